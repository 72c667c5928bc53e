package events

import "github.com/koscakluka/ema-live/core/wire"

// KindTranscriptFragment identifies streamed transcript fragments.
const KindTranscriptFragment Kind = "transcript.fragment"

// TranscriptFragment carries an append-only transcript piece for a role.
type TranscriptFragment struct {
	Base
	Role wire.Role
	Text string
}

// NewTranscriptFragment creates a transcript fragment event.
func NewTranscriptFragment(sessionID string, role wire.Role, text string) TranscriptFragment {
	return TranscriptFragment{Base: NewBase(KindTranscriptFragment, sessionID), Role: role, Text: text}
}
