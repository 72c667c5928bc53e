package live

import (
	"sync"

	"github.com/koscakluka/ema-live/core/events"
)

// eventPlayer delivers events to callbacks on its own goroutine, in the
// order they were ingested. Producers never block, so callbacks are free to
// call back into the engine.
type eventPlayer struct {
	emit eventEmitter

	pending []events.Event
	signal  chan struct{}
	closeCh chan struct{}
	done    chan struct{}

	endOnce sync.Once
	mu      sync.Mutex
}

func newEventPlayer(emit eventEmitter) *eventPlayer {
	player := &eventPlayer{
		emit:    emit,
		signal:  make(chan struct{}, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go player.loop()
	return player
}

func (p *eventPlayer) Ingest(event events.Event) bool {
	if p == nil {
		return false
	}

	p.mu.Lock()
	select {
	case <-p.closeCh:
		p.mu.Unlock()
		return false
	default:
	}
	p.pending = append(p.pending, event)
	p.mu.Unlock()

	select {
	case p.signal <- struct{}{}:
	default:
	}
	return true
}

func (p *eventPlayer) loop() {
	defer close(p.done)
	for {
		select {
		case <-p.signal:
			p.drain()
		case <-p.closeCh:
			p.drain()
			return
		}
	}
}

func (p *eventPlayer) drain() {
	for {
		p.mu.Lock()
		if len(p.pending) == 0 {
			p.mu.Unlock()
			return
		}
		event := p.pending[0]
		p.pending[0] = nil
		p.pending = p.pending[1:]
		p.mu.Unlock()

		p.play(event)
	}
}

func (p *eventPlayer) play(event events.Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event callback panicked", "event", string(event.Kind()), "panic", r)
		}
	}()
	p.emit(event)
}

// Stop delivers what is already queued and then stops the player.
func (p *eventPlayer) Stop() {
	if p == nil {
		return
	}

	p.endOnce.Do(func() {
		p.mu.Lock()
		close(p.closeCh)
		p.mu.Unlock()
	})
}

func (p *eventPlayer) AwaitDone() {
	if p == nil {
		return
	}
	<-p.done
}
