package miniaudio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-live/core/audio"
)

type captureStream struct {
	device *malgo.Device

	mu sync.Mutex
}

func openCapture(audioContext *malgo.AllocatedContext, encoding audio.EncodingInfo, onSamples func(samples []float32)) (*captureStream, error) {
	if encoding.Format != audio.EncodingFloat32 {
		return nil, fmt.Errorf("unsupported capture format %q", encoding.Format.Name())
	}
	format, bytesPerFrame, err := deviceFormat(encoding)
	if err != nil {
		return nil, err
	}
	sampleRate := encoding.SampleRate

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(sampleRate)
	config.Capture.Format = format
	config.Capture.Channels = audio.Channels
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	// ~30ms of audio
	config.PeriodSizeInFrames = uint32(sampleRate) * 30 / 1000
	config.Periods = 3

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}
			onSamples(decodeFloat32(pInput[:n]))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize capture device: %w", audio.ErrPermissionDenied, err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("%w: failed to start capture device: %w", audio.ErrPermissionDenied, err)
	}

	return &captureStream{device: device}, nil
}

func (c *captureStream) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return nil
	}

	var err error
	if c.device.IsStarted() {
		if stopErr := c.device.Stop(); stopErr != nil {
			err = fmt.Errorf("failed to stop capture device: %w", stopErr)
		}
	}
	c.device.Uninit()
	c.device = nil
	return err
}

// decodeFloat32 copies a little-endian float32 device buffer. The device
// reuses its buffer after the callback returns.
func decodeFloat32(data []byte) []float32 {
	samples := make([]float32, len(data)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return samples
}
