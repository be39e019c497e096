package events

import "github.com/koscakluka/ema-companion/core/conversations"

const (
	// KindTurnAppended identifies a turn appended to the conversation log.
	KindTurnAppended Kind = "conversation.turn_appended"
	// KindTurnEnded identifies an open turn being closed.
	KindTurnEnded Kind = "conversation.turn_ended"
)

// TurnAppended carries a snapshot of the appended turn.
type TurnAppended struct {
	Base
	Turn conversations.Turn
}

// NewTurnAppended creates a turn appended event.
func NewTurnAppended(turn conversations.Turn) TurnAppended {
	return TurnAppended{Base: NewBase(KindTurnAppended), Turn: turn}
}

// TurnEnded carries a snapshot of the closed turn.
type TurnEnded struct {
	Base
	Turn conversations.Turn
}

// NewTurnEnded creates a turn ended event.
func NewTurnEnded(turn conversations.Turn) TurnEnded {
	return TurnEnded{Base: NewBase(KindTurnEnded), Turn: turn}
}
