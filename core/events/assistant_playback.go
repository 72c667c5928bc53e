package events

const (
	// KindAssistantPlaybackStarted identifies playback start of model speech.
	KindAssistantPlaybackStarted Kind = "assistant_playback.started"
	// KindAssistantPlaybackEnded identifies the playback completion milestone.
	KindAssistantPlaybackEnded Kind = "assistant_playback.ended"
	// KindAssistantPlaybackDecodeFailed identifies a dropped undecodable chunk.
	KindAssistantPlaybackDecodeFailed Kind = "assistant_playback.decode_failed"
	// KindAssistantPlaybackInterrupted identifies remote barge-in.
	KindAssistantPlaybackInterrupted Kind = "assistant_playback.interrupted"
)

// AssistantPlaybackStarted marks the start of assistant playback.
type AssistantPlaybackStarted struct{ Base }

// NewAssistantPlaybackStarted creates an assistant playback started event.
func NewAssistantPlaybackStarted(sessionID string) AssistantPlaybackStarted {
	return AssistantPlaybackStarted{Base: NewBase(KindAssistantPlaybackStarted, sessionID)}
}

// AssistantPlaybackEnded marks the end of assistant playback.
type AssistantPlaybackEnded struct{ Base }

// NewAssistantPlaybackEnded creates an assistant playback ended event.
func NewAssistantPlaybackEnded(sessionID string) AssistantPlaybackEnded {
	return AssistantPlaybackEnded{Base: NewBase(KindAssistantPlaybackEnded, sessionID)}
}

// AssistantPlaybackDecodeFailed reports a chunk dropped by the scheduler.
// Playback continues.
type AssistantPlaybackDecodeFailed struct {
	Base
	Err error
}

// NewAssistantPlaybackDecodeFailed creates a playback decode failed event.
func NewAssistantPlaybackDecodeFailed(sessionID string, err error) AssistantPlaybackDecodeFailed {
	return AssistantPlaybackDecodeFailed{Base: NewBase(KindAssistantPlaybackDecodeFailed, sessionID), Err: err}
}

// AssistantPlaybackInterrupted marks playback flushed due to barge-in.
type AssistantPlaybackInterrupted struct{ Base }

// NewAssistantPlaybackInterrupted creates a playback interrupted event.
func NewAssistantPlaybackInterrupted(sessionID string) AssistantPlaybackInterrupted {
	return AssistantPlaybackInterrupted{Base: NewBase(KindAssistantPlaybackInterrupted, sessionID)}
}
