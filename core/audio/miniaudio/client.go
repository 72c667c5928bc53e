// Package miniaudio binds the live engine to the system's default capture
// and playback devices through miniaudio.
package miniaudio

import (
	"context"
	"fmt"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-live/core/audio"
)

// Client owns the miniaudio context. It is both the microphone and the
// speaker of a session.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	speaker      *speaker
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{audioContext: audioCtx}

	client.speaker, err = newSpeaker(audioCtx, audio.GetPlaybackEncodingInfo())
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}

	return &client, nil
}

// Acquire opens the default capture device and streams mono float32 frames
// at the capture rate to onSamples until the stream is released.
//
// miniaudio reports a refused microphone as a generic device error, so any
// failure to initialize or start the device matches
// [audio.ErrPermissionDenied].
func (c *Client) Acquire(ctx context.Context, onSamples func(samples []float32)) (audio.CaptureStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stream, err := openCapture(c.audioContext, audio.GetMicrophoneEncodingInfo(), onSamples)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// Now, Schedule and Clear make the client a playback output backed by the
// default playback device.
func (c *Client) Now() time.Duration {
	return c.speaker.Now()
}

func (c *Client) Schedule(at time.Duration, frame audio.Frame, onEnded func()) error {
	return c.speaker.Schedule(at, frame, onEnded)
}

func (c *Client) Clear() {
	c.speaker.Clear()
}

func (c *Client) Close() {
	if c.speaker != nil {
		if err := c.speaker.uninit(); err != nil {
			logger.Warn("failed to close playback device", "error", err)
		}
		c.speaker = nil
	}
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}
