package websocket

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-live/core/transport"
	"github.com/koscakluka/ema-live/core/wire"
)

type connection struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	inbound  chan wire.Envelope
	outbound chan []byte
	done     chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once
}

func newConnection(ws *websocket.Conn, queueSize int, writeTimeout time.Duration) *connection {
	c := &connection{
		ws:           ws,
		writeTimeout: writeTimeout,
		inbound:      make(chan wire.Envelope, inboundBufferSize),
		outbound:     make(chan []byte, queueSize),
		done:         make(chan struct{}),
	}

	go c.readLoop()
	go c.writeLoop()

	return c
}

func (c *connection) Inbound() <-chan wire.Envelope { return c.inbound }

// Send queues envelope for the writer goroutine. It returns
// [transport.ErrBackpressure] instead of blocking when the queue is full.
func (c *connection) Send(envelope wire.Envelope) error {
	if c.closed.Load() {
		return transport.ErrClosed
	}

	payload, err := wire.EncodeClientMessage(envelope)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return transport.ErrClosed
	default:
	}

	select {
	case c.outbound <- payload:
		return nil
	case <-c.done:
		return transport.ErrClosed
	default:
		return transport.ErrBackpressure
	}
}

func (c *connection) Close() error {
	c.shutdown(websocket.CloseNormalClosure)
	return nil
}

func (c *connection) shutdown(code int) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, ""),
			time.Now().Add(c.writeTimeout),
		)
		_ = c.ws.Close()
	})
}

func (c *connection) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.outbound:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !c.closed.Load() {
					logger.Warn("failed to write message", "error", err)
				}
				// The read loop observes the broken connection and reports
				// it on Inbound.
				_ = c.ws.Close()
				return
			}
		}
	}
}

func (c *connection) readLoop() {
	defer close(c.inbound)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.emit(terminalEnvelope(err))
			c.shutdown(websocket.CloseNormalClosure)
			return
		}

		envelopes, err := wire.DecodeServerMessage(data)
		if err != nil {
			logger.Warn("dropping undecodable server message", "error", err)
			continue
		}
		for _, envelope := range envelopes {
			if !c.emit(envelope) {
				return
			}
		}
	}
}

func (c *connection) emit(envelope wire.Envelope) bool {
	select {
	case c.inbound <- envelope:
		return true
	case <-c.done:
		return false
	}
}

func terminalEnvelope(err error) wire.Envelope {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		if isAuthClose(closeErr) {
			return wire.SessionError{Reason: closeErr.Text, Err: classifyReadError(err)}
		}
		switch closeErr.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived:
			return wire.SessionClosed{Code: closeErr.Code, Reason: closeErr.Text}
		}
	}
	return wire.SessionError{
		Reason: err.Error(),
		Err:    fmt.Errorf("%w: %w", transport.ErrTransport, err),
	}
}

var _ transport.Connection = (*connection)(nil)
