package events

const (
	// KindUserTranscriptPartial identifies mutable partial transcript updates.
	KindUserTranscriptPartial Kind = "user_input.transcript_partial"
	// KindUserTranscriptFinal identifies finalized transcript segments.
	KindUserTranscriptFinal Kind = "user_input.transcript_final"
)

// UserTranscriptPartial carries the latest partial transcript.
type UserTranscriptPartial struct {
	Base
	Transcript string
}

// NewUserTranscriptPartial creates a partial transcript update event.
func NewUserTranscriptPartial(transcript string) UserTranscriptPartial {
	return UserTranscriptPartial{Base: NewBase(KindUserTranscriptPartial), Transcript: transcript}
}

// UserTranscriptFinal carries a finalized transcript segment.
type UserTranscriptFinal struct {
	Base
	Transcript string
}

// NewUserTranscriptFinal creates a final transcript event.
func NewUserTranscriptFinal(transcript string) UserTranscriptFinal {
	return UserTranscriptFinal{Base: NewBase(KindUserTranscriptFinal), Transcript: transcript}
}
