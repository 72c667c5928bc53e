package audio

import (
	"testing"
	"time"
)

func TestSilenceDetectorStartsSilent(t *testing.T) {
	detector := NewSilenceDetector()

	if activity := detector.Classify(make([]float32, 160), time.Now()); activity.Speaking {
		t.Fatalf("expected silent frame on a fresh detector to report not speaking")
	}
}

func TestSilenceDetectorHoldsSpeakingThroughShortPauses(t *testing.T) {
	detector := NewSilenceDetector(WithSilenceTimeout(2500 * time.Millisecond))
	start := time.Now()

	if activity := detector.Classify([]float32{0, 0.2, -0.3}, start); !activity.Speaking {
		t.Fatalf("expected loud frame to report speaking")
	}
	if activity := detector.Classify([]float32{0, 0.001}, start.Add(time.Second)); !activity.Speaking {
		t.Fatalf("expected quiet frame within timeout to keep speaking")
	}
	if activity := detector.Classify([]float32{0, 0.001}, start.Add(2500*time.Millisecond)); !activity.Speaking {
		t.Fatalf("expected quiet frame exactly at timeout to keep speaking")
	}
	if activity := detector.Classify([]float32{0, 0.001}, start.Add(2501*time.Millisecond)); activity.Speaking {
		t.Fatalf("expected quiet frame after timeout to report silence")
	}
}

func TestSilenceDetectorLoudFrameRefreshesTimeout(t *testing.T) {
	detector := NewSilenceDetector(WithSilenceTimeout(time.Second))
	start := time.Now()

	detector.Classify([]float32{0.5}, start)
	detector.Classify([]float32{0.5}, start.Add(900*time.Millisecond))

	if activity := detector.Classify([]float32{0}, start.Add(1500*time.Millisecond)); !activity.Speaking {
		t.Fatalf("expected timeout to be measured from the latest loud frame")
	}
}

func TestSilenceDetectorThresholdOption(t *testing.T) {
	detector := NewSilenceDetector(WithSilenceThreshold(0.5))

	activity := detector.Classify([]float32{-0.4, 0.3}, time.Now())
	if activity.Speaking {
		t.Fatalf("expected frame below custom threshold to be silent")
	}
	if activity.Peak != 0.4 {
		t.Fatalf("expected peak 0.4, got %f", activity.Peak)
	}
}

func TestSilenceDetectorReset(t *testing.T) {
	detector := NewSilenceDetector()
	now := time.Now()

	detector.Classify([]float32{0.9}, now)
	detector.Reset()

	if activity := detector.Classify([]float32{0}, now); activity.Speaking {
		t.Fatalf("expected reset detector to forget previous activity")
	}
}
