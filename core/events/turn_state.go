package events

import "github.com/koscakluka/ema-live/core/transcript"

// KindTurnCompleted identifies turn completion.
const KindTurnCompleted Kind = "turn_state.completed"

// TurnCompleted carries the turns finalized by a turn complete signal. Turns
// is empty when nothing was transcribed.
type TurnCompleted struct {
	Base
	Turns []transcript.Turn
}

// NewTurnCompleted creates a turn completed event.
func NewTurnCompleted(sessionID string, turns []transcript.Turn) TurnCompleted {
	return TurnCompleted{Base: NewBase(KindTurnCompleted, sessionID), Turns: turns}
}
