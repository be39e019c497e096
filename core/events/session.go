package events

// KindSessionStateChanged identifies controller state transitions.
const KindSessionStateChanged Kind = "session.state_changed"

// SessionStateChanged marks a controller state transition.
type SessionStateChanged struct {
	Base
	SessionID string
	Previous  string
	Current   string
	// Message is a user-facing explanation, only set for the error state.
	Message string
}

// NewSessionStateChanged creates a session state changed event.
func NewSessionStateChanged(sessionID, previous, current, message string) SessionStateChanged {
	return SessionStateChanged{
		Base:      NewBase(KindSessionStateChanged),
		SessionID: sessionID,
		Previous:  previous,
		Current:   current,
		Message:   message,
	}
}
