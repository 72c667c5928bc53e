package live

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/ema-live/core/audio"
	"github.com/koscakluka/ema-live/core/transport"
	"github.com/koscakluka/ema-live/core/wire"
)

type fakeCapture struct {
	// gate, when set, holds Release until it is closed.
	gate      chan struct{}
	releasing chan struct{}
	enterOnce sync.Once
	releases  atomic.Int32
}

func (c *fakeCapture) Release() error {
	c.enterOnce.Do(func() { close(c.releasing) })
	if c.gate != nil {
		<-c.gate
	}
	c.releases.Add(1)
	return nil
}

type fakeMicrophone struct {
	err         error
	releaseGate chan struct{}

	acquires atomic.Int32
	mu       sync.Mutex
	captures []*fakeCapture
	handler  func([]float32)
}

func (m *fakeMicrophone) Acquire(_ context.Context, onSamples func([]float32)) (audio.CaptureStream, error) {
	m.acquires.Add(1)
	if m.err != nil {
		return nil, m.err
	}

	capture := &fakeCapture{gate: m.releaseGate, releasing: make(chan struct{})}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captures = append(m.captures, capture)
	m.handler = onSamples
	return capture, nil
}

func (m *fakeMicrophone) capture(i int) *fakeCapture {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captures[i]
}

func (m *fakeMicrophone) feed(samples []float32) {
	m.mu.Lock()
	handler := m.handler
	m.mu.Unlock()
	handler(samples)
}

type fakeConnection struct {
	inbound   chan wire.Envelope
	closeOnce sync.Once
	closed    atomic.Bool

	mu   sync.Mutex
	sent []wire.Envelope
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{inbound: make(chan wire.Envelope, 32)}
}

func (c *fakeConnection) Send(envelope wire.Envelope) error {
	if c.closed.Load() {
		return transport.ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, envelope)
	return nil
}

func (c *fakeConnection) Inbound() <-chan wire.Envelope { return c.inbound }

func (c *fakeConnection) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.inbound)
	})
	return nil
}

func (c *fakeConnection) push(envelopes ...wire.Envelope) {
	for _, envelope := range envelopes {
		c.inbound <- envelope
	}
}

func (c *fakeConnection) sentEnvelopes() []wire.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]wire.Envelope(nil), c.sent...)
}

type fakeDialer struct {
	err error
	// release, when set, holds Open until it is closed, ignoring ctx, to
	// model a handshake that completes after Stop.
	release chan struct{}
	opening chan struct{}

	opens atomic.Int32
	mu    sync.Mutex
	conns []*fakeConnection
	setup wire.Setup
}

func (d *fakeDialer) Open(_ context.Context, setup wire.Setup) (transport.Connection, error) {
	d.opens.Add(1)
	if d.opening != nil {
		close(d.opening)
	}
	if d.release != nil {
		<-d.release
	}
	if d.err != nil {
		return nil, d.err
	}

	conn := newFakeConnection()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.conns = append(d.conns, conn)
	d.setup = setup
	return conn, nil
}

func (d *fakeDialer) conn(i int) *fakeConnection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

type fakeOutput struct {
	mu      sync.Mutex
	now     time.Duration
	onEnded []func()
	clears  atomic.Int32
}

func (o *fakeOutput) Now() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.now
}

func (o *fakeOutput) Schedule(_ time.Duration, _ audio.Frame, onEnded func()) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onEnded = append(o.onEnded, onEnded)
	return nil
}

func (o *fakeOutput) Clear() {
	o.clears.Add(1)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onEnded = nil
}

// finishAll completes every scheduled frame.
func (o *fakeOutput) finishAll() {
	o.mu.Lock()
	callbacks := o.onEnded
	o.onEnded = nil
	o.mu.Unlock()
	for _, callback := range callbacks {
		callback()
	}
}

func (o *fakeOutput) scheduled() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.onEnded)
}

func waitFor(t *testing.T, description string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", description)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func waitForStatus(t *testing.T, e *Engine, status Status) {
	t.Helper()
	waitFor(t, "status "+string(status), func() bool { return e.Status() == status })
}

func speechChunk(d time.Duration) string {
	return audio.Encode(make([]float32, audio.DurationToSamples(d, audio.PlaybackSampleRate)))
}
