package audio

import "errors"

var (
	// ErrMalformedAudio is returned when a chunk cannot be decoded into PCM16
	// samples.
	ErrMalformedAudio = errors.New("malformed audio")
	// ErrPermissionDenied is returned by microphone implementations when the
	// capture device cannot be opened.
	ErrPermissionDenied = errors.New("microphone permission denied")
)

// CaptureStream is a live microphone stream owned by a single session.
//
// Release must be safe to call more than once.
type CaptureStream interface {
	Release() error
}
