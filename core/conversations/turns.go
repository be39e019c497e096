package conversations

import (
	"time"
)

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is a single logged contribution to the conversation.
//
// A turn is immutable once EndedAt is set.
type Turn struct {
	Sequence uint64
	Speaker  Speaker
	Text     string

	StartedAt time.Time
	EndedAt   *time.Time

	// SpeechFailed is set on assistant turns whose playback faulted.
	SpeechFailed bool
	// Interrupted is set on assistant turns cut short by stopping the session.
	Interrupted bool
}

func (t Turn) IsEnded() bool { return t.EndedAt != nil }

// Duration returns how long the turn took, zero for turns still in progress.
func (t Turn) Duration() time.Duration {
	if t.EndedAt == nil {
		return 0
	}
	return t.EndedAt.Sub(t.StartedAt)
}

func (t Turn) clone() Turn {
	if t.EndedAt != nil {
		ended := *t.EndedAt
		t.EndedAt = &ended
	}
	return t
}

// ActiveContextV0 exposes the logged turns to response generators.
type ActiveContextV0 interface {
	// Past turns only. Ordering: oldest -> newest.
	History() []Turn
}
