// Package portaudio is a microphone backed by PortAudio's default input
// device.
package portaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-live/core/audio"
)

const DefaultFramesPerBuffer = 480

type Client struct {
	framesPerBuffer int
}

func NewClient(framesPerBuffer int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	if framesPerBuffer <= 0 {
		framesPerBuffer = DefaultFramesPerBuffer
	}
	return &Client{framesPerBuffer: framesPerBuffer}, nil
}

// Acquire opens a mono input stream at the capture rate. Each buffer is
// copied before it is handed to onSamples. PortAudio does not tell a refused
// microphone apart from other device errors, so any failure to open or
// start the stream matches [audio.ErrPermissionDenied].
func (c *Client) Acquire(ctx context.Context, onSamples func(samples []float32)) (audio.CaptureStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	encoding := audio.GetMicrophoneEncodingInfo()
	stream, err := portaudio.OpenDefaultStream(audio.Channels, 0, float64(encoding.SampleRate), c.framesPerBuffer, func(in []float32) {
		onSamples(append([]float32(nil), in...))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open PortAudio stream: %w", audio.ErrPermissionDenied, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("%w: failed to start PortAudio stream: %w", audio.ErrPermissionDenied, err)
	}

	return &captureStream{stream: stream}, nil
}

func (c *Client) Close() {
	_ = portaudio.Terminate()
}

type captureStream struct {
	stream *portaudio.Stream
	once   sync.Once
	err    error
}

func (s *captureStream) Release() error {
	s.once.Do(func() {
		if err := s.stream.Stop(); err != nil {
			s.err = fmt.Errorf("failed to stop PortAudio stream: %w", err)
		}
		if err := s.stream.Close(); err != nil && s.err == nil {
			s.err = fmt.Errorf("failed to close PortAudio stream: %w", err)
		}
	})
	return s.err
}
