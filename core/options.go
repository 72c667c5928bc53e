package live

import (
	"context"
	"time"

	"github.com/koscakluka/ema-live/core/audio"
	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/playback"
	"github.com/koscakluka/ema-live/core/tools"
	"github.com/koscakluka/ema-live/core/transcript"
	"github.com/koscakluka/ema-live/core/transport"
	"github.com/koscakluka/ema-live/core/wire"
)

type EngineOption func(*Engine)

// Microphone is the capture capability. ctx bounds the acquisition only; the
// returned stream keeps delivering mono float32 frames at
// [audio.CaptureSampleRate] to onSamples until it is released.
// Implementations report refused access with an error matching
// [audio.ErrPermissionDenied].
type Microphone interface {
	Acquire(ctx context.Context, onSamples func(samples []float32)) (audio.CaptureStream, error)
}

type MicrophoneFunc func(ctx context.Context, onSamples func(samples []float32)) (audio.CaptureStream, error)

func (f MicrophoneFunc) Acquire(ctx context.Context, onSamples func(samples []float32)) (audio.CaptureStream, error) {
	return f(ctx, onSamples)
}

func WithMicrophone(microphone Microphone) EngineOption {
	return func(e *Engine) { e.microphone = microphone }
}

func WithTransport(dialer transport.Dialer) EngineOption {
	return func(e *Engine) { e.dialer = dialer }
}

// WithPlaybackOutput sets the speaker. Without one, playback is timed on the
// wall clock and not rendered.
func WithPlaybackOutput(output playback.Output) EngineOption {
	return func(e *Engine) {
		if output != nil {
			e.output = output
		}
	}
}

func WithTools(tools ...tools.Tool) EngineOption {
	return func(e *Engine) {
		for _, tool := range tools {
			e.dispatcher.RegisterTool(tool)
		}
	}
}

// WithSessionTools registers tools that let the model control the session
// itself, e.g. ending the call.
func WithSessionTools() EngineOption {
	return func(e *Engine) {
		for _, tool := range sessionTools(e) {
			e.dispatcher.RegisterTool(tool)
		}
	}
}

func WithSilenceThreshold(threshold float32) EngineOption {
	return func(e *Engine) {
		e.silenceOptions = append(e.silenceOptions, audio.WithSilenceThreshold(threshold))
	}
}

func WithSilenceTimeout(timeout time.Duration) EngineOption {
	return func(e *Engine) {
		e.silenceOptions = append(e.silenceOptions, audio.WithSilenceTimeout(timeout))
	}
}

func WithModel(model string) EngineOption {
	return func(e *Engine) { e.setup.Model = model }
}

func WithSystemInstruction(instruction string) EngineOption {
	return func(e *Engine) { e.setup.SystemInstruction = instruction }
}

func WithVoice(voice string) EngineOption {
	return func(e *Engine) { e.setup.Voice = voice }
}

type engineCallbacks struct {
	onStatus             func(status Status)
	onTurn               func(turn transcript.Turn)
	onTranscriptFragment func(role wire.Role, text string)
	onUserSpeaking       func(isSpeaking bool)
	onAssistantSpeaking  func(isSpeaking bool)
	onError              func(err error)
	onToolCall           func(id, name string, err error)
	onEvent              func(event events.Event)
}

// WithStatusCallback registers a callback for every session status
// transition, including transitions into the error status.
func WithStatusCallback(callback func(status Status)) EngineOption {
	return func(e *Engine) { e.callbacks.onStatus = callback }
}

// WithTurnCallback registers a callback for each finalized turn, in the
// order the turns were flushed.
func WithTurnCallback(callback func(turn transcript.Turn)) EngineOption {
	return func(e *Engine) { e.callbacks.onTurn = callback }
}

func WithTranscriptFragmentCallback(callback func(role wire.Role, text string)) EngineOption {
	return func(e *Engine) { e.callbacks.onTranscriptFragment = callback }
}

// WithUserSpeakingCallback registers a callback for local voice activity.
// The signal is advisory and does not affect what is sent.
func WithUserSpeakingCallback(callback func(isSpeaking bool)) EngineOption {
	return func(e *Engine) { e.callbacks.onUserSpeaking = callback }
}

func WithAssistantSpeakingCallback(callback func(isSpeaking bool)) EngineOption {
	return func(e *Engine) { e.callbacks.onAssistantSpeaking = callback }
}

// WithErrorCallback registers a callback for session failures and for
// chunks dropped by playback.
func WithErrorCallback(callback func(err error)) EngineOption {
	return func(e *Engine) { e.callbacks.onError = callback }
}

// WithToolCallCallback registers a callback invoked after each tool call
// finishes. err is nil on success.
func WithToolCallCallback(callback func(id, name string, err error)) EngineOption {
	return func(e *Engine) { e.callbacks.onToolCall = callback }
}

// WithEventHandler receives every typed event, after the specific
// callbacks.
func WithEventHandler(handler func(event events.Event)) EngineOption {
	return func(e *Engine) { e.callbacks.onEvent = handler }
}
