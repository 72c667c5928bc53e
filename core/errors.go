package live

import (
	"errors"

	"github.com/koscakluka/ema-live/core/audio"
	"github.com/koscakluka/ema-live/core/tools"
	"github.com/koscakluka/ema-live/core/transport"
)

var (
	// ErrPermissionDenied means the microphone could not be acquired. The
	// session never became active.
	ErrPermissionDenied = audio.ErrPermissionDenied
	// ErrAuthRequired means the endpoint rejected the credential. Prompt for
	// a new one instead of retrying.
	ErrAuthRequired    = transport.ErrAuthRequired
	ErrTransportClosed = transport.ErrClosed
	ErrTransportError  = transport.ErrTransport
	// ErrMalformedAudio is reported per chunk and never ends a session.
	ErrMalformedAudio = audio.ErrMalformedAudio
	// ErrUnknownTool is reported back to the endpoint as a tool result.
	ErrUnknownTool = tools.ErrUnknownTool

	// ErrSessionStopped is returned by Start when Stop (or a newer Start) won
	// the race against the handshake.
	ErrSessionStopped = errors.New("session stopped before it became active")
	ErrNotConfigured  = errors.New("engine is missing a required capability")
)
