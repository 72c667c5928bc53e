// Package playback schedules decoded model speech for gapless, strictly
// ordered playback on an [Output].
package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/koscakluka/ema-live/core/audio"
)

// Output is the playback clock and sink. Schedule places a frame at an
// absolute position on the output clock and calls onEnded once the frame has
// finished playing. Implementations must not call onEnded from within
// Schedule or Clear. Clear discards everything scheduled without calling the
// pending onEnded callbacks.
type Output interface {
	Now() time.Duration
	Schedule(at time.Duration, frame audio.Frame, onEnded func()) error
	Clear()
}

// DecodeError reports an inbound chunk that was dropped because it could not
// be decoded. It matches [audio.ErrMalformedAudio].
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode playback chunk: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type Scheduler struct {
	output     Output
	sampleRate int
	channels   int

	onSpeakingStarted func()
	onSpeakingEnded   func()

	// cursor is the scheduled end of the last enqueued frame.
	cursor     time.Duration
	active     int
	speaking   bool
	generation uint64

	mu sync.Mutex
	// signalMu is taken before mu is released so speaking signals are
	// delivered in the order the transitions happened.
	signalMu sync.Mutex
}

type SchedulerOption func(*Scheduler)

func WithSpeakingStartedCallback(callback func()) SchedulerOption {
	return func(s *Scheduler) { s.onSpeakingStarted = callback }
}

func WithSpeakingEndedCallback(callback func()) SchedulerOption {
	return func(s *Scheduler) { s.onSpeakingEnded = callback }
}

// WithFormat overrides the inbound PCM16 format. The remote endpoint always
// sends 24 kHz mono, so this only matters for tests and custom transports.
func WithFormat(sampleRate, channels int) SchedulerOption {
	return func(s *Scheduler) {
		if sampleRate > 0 {
			s.sampleRate = sampleRate
		}
		if channels > 0 {
			s.channels = channels
		}
	}
}

func NewScheduler(output Output, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		output:     output,
		sampleRate: audio.PlaybackSampleRate,
		channels:   audio.Channels,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue decodes a base64 PCM16 chunk and schedules it right after the
// previously enqueued chunk, or immediately if the output has already played
// past it. A chunk that fails to decode is dropped and reported as a
// [*DecodeError]; the stream keeps playing.
func (s *Scheduler) Enqueue(data string) error {
	frame, err := audio.DecodeBase64(data, s.sampleRate, s.channels)
	if err != nil {
		decodeErrors.Add(context.Background(), 1)
		return &DecodeError{Err: err}
	}

	return s.EnqueueFrame(frame)
}

func (s *Scheduler) EnqueueFrame(frame audio.Frame) error {
	if frame.Len() == 0 {
		return nil
	}

	s.mu.Lock()
	start := max(s.output.Now(), s.cursor)
	generation := s.generation
	if err := s.output.Schedule(start, frame, func() { s.frameEnded(generation) }); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to schedule playback frame: %w", err)
	}

	s.cursor = start + frame.Duration()
	s.active++
	if s.speaking {
		s.mu.Unlock()
		return nil
	}

	s.speaking = true
	s.signalMu.Lock()
	s.mu.Unlock()
	defer s.signalMu.Unlock()
	if s.onSpeakingStarted != nil {
		s.onSpeakingStarted()
	}
	return nil
}

func (s *Scheduler) frameEnded(generation uint64) {
	s.mu.Lock()
	if generation != s.generation || s.active == 0 {
		s.mu.Unlock()
		return
	}

	s.active--
	if s.active > 0 {
		s.mu.Unlock()
		return
	}

	s.speaking = false
	s.signalMu.Lock()
	s.mu.Unlock()
	defer s.signalMu.Unlock()
	if s.onSpeakingEnded != nil {
		s.onSpeakingEnded()
	}
}

// Stop discards everything scheduled or playing and resets the cursor.
// Completions of discarded frames are ignored. Calling Stop when nothing is
// playing is a no-op apart from resetting the cursor.
func (s *Scheduler) Stop() {
	s.discard(func() time.Duration { return 0 })
}

// Flush discards everything scheduled or playing like Stop, but moves the
// cursor to the output's current position so it never goes backwards. The
// next frame starts playing immediately.
func (s *Scheduler) Flush() {
	s.discard(s.output.Now)
}

func (s *Scheduler) discard(cursor func() time.Duration) {
	s.mu.Lock()
	s.generation++
	s.output.Clear()
	s.cursor = cursor()
	s.active = 0
	if !s.speaking {
		s.mu.Unlock()
		return
	}

	s.speaking = false
	s.signalMu.Lock()
	s.mu.Unlock()
	defer s.signalMu.Unlock()
	logger.Debug("playback discarded while speaking")
	if s.onSpeakingEnded != nil {
		s.onSpeakingEnded()
	}
}

func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Scheduler) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

func (s *Scheduler) ActiveFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
