package audio

import "time"

// Frame is an immutable block of decoded audio. Samples holds one slice per
// channel, all of the same length, with values in [-1, 1).
//
// Ownership transfers with the frame; receivers must not mutate it.
type Frame struct {
	Samples    [][]float32
	SampleRate int
}

func (f Frame) Channels() int { return len(f.Samples) }

// Len is the number of samples per channel.
func (f Frame) Len() int {
	if len(f.Samples) == 0 {
		return 0
	}
	return len(f.Samples[0])
}

func (f Frame) Duration() time.Duration {
	return SamplesToDuration(int64(f.Len()), f.SampleRate)
}

// PCM16 re-encodes the frame as interleaved little-endian PCM16, which is what
// output devices consume.
func (f Frame) PCM16() []byte {
	channels := f.Channels()
	if channels == 0 {
		return nil
	}
	if channels == 1 {
		return EncodePCM16(f.Samples[0])
	}

	interleaved := make([]float32, 0, f.Len()*channels)
	for i := range f.Len() {
		for _, channel := range f.Samples {
			interleaved = append(interleaved, channel[i])
		}
	}
	return EncodePCM16(interleaved)
}

// SamplesToDuration converts a sample count at the given rate to a duration.
func SamplesToDuration(samples int64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// DurationToSamples converts a duration to a sample count at the given rate,
// truncating partial samples.
func DurationToSamples(d time.Duration, sampleRate int) int64 {
	return int64(d) * int64(sampleRate) / int64(time.Second)
}
