// Package transport defines the bidirectional channel between a session and
// the remote conversational endpoint.
package transport

import (
	"context"
	"errors"

	"github.com/koscakluka/ema-live/core/wire"
)

var (
	// ErrAuthRequired means the endpoint rejected the session for credential
	// reasons. Callers should re-prompt for a key rather than retry.
	ErrAuthRequired = errors.New("authentication required")
	ErrClosed       = errors.New("transport closed")
	ErrTransport    = errors.New("transport error")
	// ErrBackpressure is returned by Send when the outbound queue is full.
	// The envelope is dropped.
	ErrBackpressure = errors.New("transport send queue full")
)

// Connection is an open session with the remote endpoint.
//
// Send never blocks on the network. Inbound delivers envelopes in arrival
// order and is closed after the final SessionClosed or SessionError. Close
// is idempotent.
type Connection interface {
	Send(envelope wire.Envelope) error
	Inbound() <-chan wire.Envelope
	Close() error
}

// Dialer opens a connection and completes the setup handshake before
// returning.
type Dialer interface {
	Open(ctx context.Context, setup wire.Setup) (Connection, error)
}

type DialerFunc func(ctx context.Context, setup wire.Setup) (Connection, error)

func (f DialerFunc) Open(ctx context.Context, setup wire.Setup) (Connection, error) {
	return f(ctx, setup)
}
