package dialogue

// State is the lifecycle state of the dialogue session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateListening
	StateAwaitingResponse
	StateSpeaking
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateListening:
		return "Listening"
	case StateAwaitingResponse:
		return "AwaitingResponse"
	case StateSpeaking:
		return "Speaking"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}
