package live

import (
	"errors"

	"github.com/koscakluka/ema-live/core/events"
)

type eventEmitter func(events.Event)

func newCallbackEventEmitter(opts engineCallbacks) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.SessionStatusChanged:
			if opts.onStatus != nil {
				opts.onStatus(Status(typedEvent.Status))
			}
			if typedEvent.Err != nil && Status(typedEvent.Status) == StatusError && opts.onError != nil {
				opts.onError(typedEvent.Err)
			}
		case events.UserSpeechStarted:
			if opts.onUserSpeaking != nil {
				opts.onUserSpeaking(true)
			}
		case events.UserSpeechEnded:
			if opts.onUserSpeaking != nil {
				opts.onUserSpeaking(false)
			}
		case events.TranscriptFragment:
			if opts.onTranscriptFragment != nil {
				opts.onTranscriptFragment(typedEvent.Role, typedEvent.Text)
			}
		case events.TurnCompleted:
			if opts.onTurn != nil {
				for _, turn := range typedEvent.Turns {
					opts.onTurn(turn)
				}
			}
		case events.ToolCallCompleted:
			if opts.onToolCall != nil {
				opts.onToolCall(typedEvent.ID, typedEvent.Name, nil)
			}
		case events.ToolCallFailed:
			if opts.onToolCall != nil {
				opts.onToolCall(typedEvent.ID, typedEvent.Name, errors.New(typedEvent.Error))
			}
		case events.AssistantPlaybackStarted:
			if opts.onAssistantSpeaking != nil {
				opts.onAssistantSpeaking(true)
			}
		case events.AssistantPlaybackEnded:
			if opts.onAssistantSpeaking != nil {
				opts.onAssistantSpeaking(false)
			}
		case events.AssistantPlaybackDecodeFailed:
			if opts.onError != nil {
				opts.onError(typedEvent.Err)
			}
		}

		if opts.onEvent != nil {
			opts.onEvent(event)
		}
	}
}
