package miniaudio

import (
	"slices"
	"sync"
)

// timeline holds PCM segments placed at absolute frame positions on the
// device clock.
type timeline struct {
	bytesPerFrame int

	played   int64
	segments []segment

	mu sync.Mutex
}

type segment struct {
	start   int64
	data    []byte
	onEnded func()
}

func (s segment) end(bytesPerFrame int) int64 {
	return s.start + int64(len(s.data)/bytesPerFrame)
}

func newTimeline(bytesPerFrame int) *timeline {
	return &timeline{bytesPerFrame: bytesPerFrame}
}

func (t *timeline) now() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.played
}

// schedule places data at start. A start already in the past is moved to
// the current position so the segment is played in full.
func (t *timeline) schedule(start int64, data []byte, onEnded func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start = max(start, t.played)
	i, _ := slices.BinarySearchFunc(t.segments, start, func(s segment, start int64) int {
		switch {
		case s.start <= start:
			return -1
		default:
			return 1
		}
	})
	t.segments = slices.Insert(t.segments, i, segment{start: start, data: data, onEnded: onEnded})
}

// fill renders the next len(out) bytes, advances the clock and returns the
// callbacks of segments that finished, in order. Gaps are silence.
func (t *timeline) fill(out []byte) []func() {
	clear(out)

	t.mu.Lock()
	defer t.mu.Unlock()

	frames := int64(len(out) / t.bytesPerFrame)
	from, to := t.played, t.played+frames

	var ended []func()
	remaining := t.segments[:0]
	for _, s := range t.segments {
		if s.start < to {
			segmentFrom := max(from, s.start)
			segmentTo := min(to, s.end(t.bytesPerFrame))
			if segmentTo > segmentFrom {
				dst := out[(segmentFrom-from)*int64(t.bytesPerFrame):]
				src := s.data[(segmentFrom-s.start)*int64(t.bytesPerFrame) : (segmentTo-s.start)*int64(t.bytesPerFrame)]
				copy(dst, src)
			}
		}

		if s.end(t.bytesPerFrame) <= to {
			if s.onEnded != nil {
				ended = append(ended, s.onEnded)
			}
			continue
		}
		remaining = append(remaining, s)
	}
	t.segments = remaining
	t.played = to
	return ended
}

// clear drops every scheduled segment without reporting it as ended.
func (t *timeline) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.segments = nil
}

func (t *timeline) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.segments)
}
