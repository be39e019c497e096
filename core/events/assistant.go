package events

const (
	// KindAssistantGreeting identifies the opening line of a session.
	KindAssistantGreeting Kind = "assistant.greeting"
	// KindAssistantSpeechStarted identifies the start of assistant playback.
	KindAssistantSpeechStarted Kind = "assistant.speech_started"
	// KindAssistantSpeechEnded identifies the end of assistant playback.
	KindAssistantSpeechEnded Kind = "assistant.speech_ended"
)

// AssistantGreeting carries the greeting spoken while connecting.
type AssistantGreeting struct {
	Base
	Text string
}

// NewAssistantGreeting creates an assistant greeting event.
func NewAssistantGreeting(text string) AssistantGreeting {
	return AssistantGreeting{Base: NewBase(KindAssistantGreeting), Text: text}
}

// AssistantSpeechStarted marks the start of assistant playback.
type AssistantSpeechStarted struct {
	Base
	Text string
}

// NewAssistantSpeechStarted creates an assistant speech started event.
func NewAssistantSpeechStarted(text string) AssistantSpeechStarted {
	return AssistantSpeechStarted{Base: NewBase(KindAssistantSpeechStarted), Text: text}
}

// AssistantSpeechEnded marks the end of assistant playback.
type AssistantSpeechEnded struct {
	Base
	Text   string
	Failed bool
}

// NewAssistantSpeechEnded creates an assistant speech ended event.
func NewAssistantSpeechEnded(text string, failed bool) AssistantSpeechEnded {
	return AssistantSpeechEnded{Base: NewBase(KindAssistantSpeechEnded), Text: text, Failed: failed}
}
