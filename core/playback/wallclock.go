package playback

import (
	"sync"
	"time"

	"github.com/koscakluka/ema-live/core/audio"
)

// WallClockOutput is a headless [Output] driven by the process clock. Frames
// are not rendered anywhere, only timed, which is enough to drive speaking
// signals when no speaker is attached.
type WallClockOutput struct {
	origin time.Time

	timers map[uint64]*time.Timer
	nextID uint64

	mu sync.Mutex
}

func NewWallClockOutput() *WallClockOutput {
	return &WallClockOutput{
		origin: time.Now(),
		timers: map[uint64]*time.Timer{},
	}
}

func (o *WallClockOutput) Now() time.Duration {
	return time.Since(o.origin)
}

func (o *WallClockOutput) Schedule(at time.Duration, frame audio.Frame, onEnded func()) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextID
	o.nextID++
	o.timers[id] = time.AfterFunc(at+frame.Duration()-o.Now(), func() {
		o.mu.Lock()
		_, pending := o.timers[id]
		delete(o.timers, id)
		o.mu.Unlock()

		if pending && onEnded != nil {
			onEnded()
		}
	})
	return nil
}

func (o *WallClockOutput) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, timer := range o.timers {
		timer.Stop()
		delete(o.timers, id)
	}
}

func (o *WallClockOutput) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.timers)
}
