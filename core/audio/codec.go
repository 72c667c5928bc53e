package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

const pcm16Scale = 32768

// EncodePCM16 scales float samples to signed 16-bit integers and serializes
// them little-endian, 2 bytes per sample.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(quantize(sample)))
	}
	return out
}

// Encode is EncodePCM16 wrapped in standard base64 for JSON transports.
func Encode(samples []float32) string {
	return base64.StdEncoding.EncodeToString(EncodePCM16(samples))
}

func quantize(sample float32) int16 {
	if math.IsNaN(float64(sample)) {
		return 0
	}

	scaled := math.Round(float64(sample) * pcm16Scale)
	switch {
	case scaled > math.MaxInt16:
		return math.MaxInt16
	case scaled < math.MinInt16:
		return math.MinInt16
	}
	return int16(scaled)
}

// Decode reconstructs per-channel float samples from interleaved
// little-endian PCM16.
func Decode(pcm []byte, sampleRate, channels int) (Frame, error) {
	if channels <= 0 {
		return Frame{}, fmt.Errorf("%w: invalid channel count %d", ErrMalformedAudio, channels)
	}
	if len(pcm)%(2*channels) != 0 {
		return Frame{}, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrMalformedAudio, len(pcm), 2*channels)
	}

	perChannel := len(pcm) / (2 * channels)
	samples := make([][]float32, channels)
	for channel := range samples {
		samples[channel] = make([]float32, perChannel)
	}
	for i := range perChannel {
		for channel := range channels {
			offset := 2 * (i*channels + channel)
			value := int16(binary.LittleEndian.Uint16(pcm[offset:]))
			samples[channel][i] = float32(value) / pcm16Scale
		}
	}

	return Frame{Samples: samples, SampleRate: sampleRate}, nil
}

// DecodeBase64 is Decode for base64 wrapped payloads.
func DecodeBase64(data string, sampleRate, channels int) (Frame, error) {
	pcm, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrMalformedAudio, err)
	}
	return Decode(pcm, sampleRate, channels)
}
