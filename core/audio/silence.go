package audio

import (
	"math"
	"time"
)

const (
	DefaultSilenceThreshold = 0.01
	DefaultSilenceTimeout   = 2500 * time.Millisecond
)

// Activity is the advisory voice activity classification of a single frame.
type Activity struct {
	Speaking bool
	Peak     float32
}

// SilenceDetector classifies captured frames as speech or silence using peak
// amplitude with a hold-over timeout, so short pauses do not flap the state.
//
// A detector belongs to one session and is not safe for concurrent use.
type SilenceDetector struct {
	threshold float32
	timeout   time.Duration

	lastActive time.Time
}

type SilenceOption func(*SilenceDetector)

func WithSilenceThreshold(threshold float32) SilenceOption {
	return func(d *SilenceDetector) {
		if threshold > 0 {
			d.threshold = threshold
		}
	}
}

func WithSilenceTimeout(timeout time.Duration) SilenceOption {
	return func(d *SilenceDetector) {
		if timeout >= 0 {
			d.timeout = timeout
		}
	}
}

func NewSilenceDetector(opts ...SilenceOption) *SilenceDetector {
	detector := &SilenceDetector{
		threshold: DefaultSilenceThreshold,
		timeout:   DefaultSilenceTimeout,
	}
	for _, opt := range opts {
		opt(detector)
	}
	return detector
}

func (d *SilenceDetector) Classify(samples []float32, now time.Time) Activity {
	peak := Peak(samples)
	if peak > d.threshold {
		d.lastActive = now
		return Activity{Speaking: true, Peak: peak}
	}

	if d.lastActive.IsZero() || now.Sub(d.lastActive) > d.timeout {
		return Activity{Speaking: false, Peak: peak}
	}
	return Activity{Speaking: true, Peak: peak}
}

func (d *SilenceDetector) Reset() {
	d.lastActive = time.Time{}
}

// Peak returns the largest absolute sample value.
func Peak(samples []float32) float32 {
	var peak float64
	for _, sample := range samples {
		peak = math.Max(peak, math.Abs(float64(sample)))
	}
	return float32(peak)
}
