package miniaudio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-live/core/audio"
)

// speaker renders scheduled frames on the default playback device. Its
// clock is the number of frames the device has consumed, so it never drifts
// from what is actually audible.
type speaker struct {
	device     *malgo.Device
	sampleRate int

	timeline *timeline

	mu sync.Mutex
}

func newSpeaker(audioContext *malgo.AllocatedContext, encoding audio.EncodingInfo) (*speaker, error) {
	if encoding.Format != audio.EncodingLinear16 {
		return nil, fmt.Errorf("unsupported playback format %q", encoding.Format.Name())
	}
	format, bytesPerFrame, err := deviceFormat(encoding)
	if err != nil {
		return nil, err
	}
	sampleRate := encoding.SampleRate

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(sampleRate)
	config.Playback.Format = format
	config.Playback.Channels = audio.Channels
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = uint32(sampleRate) / 50 // ~20ms of audio
	config.Periods = 4

	s := &speaker{
		sampleRate: sampleRate,
		timeline:   newTimeline(bytesPerFrame),
	}

	if s.device, err = malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: s.processAudio(bytesPerFrame),
	}); err != nil {
		return nil, err
	}

	if err := s.device.Start(); err != nil {
		s.device.Uninit()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}
	return s, nil
}

func (s *speaker) Now() time.Duration {
	return audio.SamplesToDuration(s.timeline.now(), s.sampleRate)
}

func (s *speaker) Schedule(at time.Duration, frame audio.Frame, onEnded func()) error {
	if frame.SampleRate != s.sampleRate {
		return fmt.Errorf("unsupported sample rate %d, device runs at %d", frame.SampleRate, s.sampleRate)
	}
	if frame.Channels() > audio.Channels {
		frame = audio.Frame{Samples: frame.Samples[:audio.Channels], SampleRate: frame.SampleRate}
	}

	s.timeline.schedule(audio.DurationToSamples(at, s.sampleRate), frame.PCM16(), onEnded)
	return nil
}

func (s *speaker) Clear() {
	s.timeline.clear()
}

func (s *speaker) uninit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return fmt.Errorf("device not initialized")
	}

	s.device.Uninit()
	s.device = nil
	s.timeline.clear()
	return nil
}

func (s *speaker) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame
		if len(pOutput) < need {
			need = len(pOutput) - len(pOutput)%bytesPerFrame
		}

		ended := s.timeline.fill(pOutput[:need])
		if len(ended) > 0 {
			go func() {
				for _, callback := range ended {
					callback()
				}
			}()
		}
	}
}
