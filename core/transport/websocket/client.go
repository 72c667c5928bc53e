// Package websocket implements [transport.Dialer] over a gorilla websocket
// speaking the bidirectional generate content protocol.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-live/core/credentials"
	"github.com/koscakluka/ema-live/core/transport"
	"github.com/koscakluka/ema-live/core/wire"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultEndpoint         = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	DefaultHandshakeTimeout = 15 * time.Second
	DefaultSendQueueSize    = 64
	defaultWriteTimeout     = 5 * time.Second
	inboundBufferSize       = 64
)

type Client struct {
	endpoint         string
	credentials      credentials.Provider
	dialer           *websocket.Dialer
	handshakeTimeout time.Duration
	sendQueueSize    int
	writeTimeout     time.Duration
}

type ClientOption func(*Client)

func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

func WithCredentials(provider credentials.Provider) ClientOption {
	return func(c *Client) { c.credentials = provider }
}

func WithDialer(dialer *websocket.Dialer) ClientOption {
	return func(c *Client) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

func WithHandshakeTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.handshakeTimeout = timeout
		}
	}
}

func WithSendQueueSize(size int) ClientOption {
	return func(c *Client) {
		if size > 0 {
			c.sendQueueSize = size
		}
	}
}

func WithWriteTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.writeTimeout = timeout
		}
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		endpoint:         DefaultEndpoint,
		credentials:      credentials.NewEnvProvider(),
		dialer:           websocket.DefaultDialer,
		handshakeTimeout: DefaultHandshakeTimeout,
		sendQueueSize:    DefaultSendQueueSize,
		writeTimeout:     defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open dials the endpoint, sends setup and waits for setupComplete. Errors
// match [transport.ErrAuthRequired] when the key is missing or rejected and
// [transport.ErrTransport] otherwise.
func (c *Client) Open(ctx context.Context, setup wire.Setup) (_ transport.Connection, err error) {
	ctx, span := tracer.Start(ctx, "open transport", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("model", setup.Model))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if c.credentials == nil {
		return nil, fmt.Errorf("%w: no credential provider", transport.ErrAuthRequired)
	}
	apiKey, err := c.credentials.Credential()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", transport.ErrAuthRequired, err)
	}

	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid endpoint: %w", transport.ErrTransport, err)
	}
	query := endpoint.Query()
	query.Set("key", apiKey)
	endpoint.RawQuery = query.Encode()

	handshakeCtx, cancel := context.WithTimeout(ctx, c.handshakeTimeout)
	defer cancel()

	ws, resp, err := c.dialer.DialContext(handshakeCtx, endpoint.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: endpoint responded %s", transport.ErrAuthRequired, resp.Status)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: failed to dial: %w", transport.ErrTransport, err)
	}

	if err := c.handshake(handshakeCtx, ws, setup); err != nil {
		_ = ws.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	logger.Debug("transport opened", "endpoint", c.endpoint)
	return newConnection(ws, c.sendQueueSize, c.writeTimeout), nil
}

func (c *Client) handshake(ctx context.Context, ws *websocket.Conn, setup wire.Setup) error {
	payload, err := wire.EncodeSetup(setup)
	if err != nil {
		return fmt.Errorf("%w: failed to encode setup: %w", transport.ErrTransport, err)
	}

	deadline, _ := ctx.Deadline()
	_ = ws.SetWriteDeadline(deadline)
	if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("%w: failed to send setup: %w", transport.ErrTransport, err)
	}
	_ = ws.SetWriteDeadline(time.Time{})

	// Reads ignore ctx, so cancelling it has to unblock them through the
	// connection itself.
	stop := context.AfterFunc(ctx, func() {
		_ = ws.SetReadDeadline(time.Now())
	})
	defer stop()
	_ = ws.SetReadDeadline(deadline)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return classifyReadError(err)
		}

		envelopes, err := wire.DecodeServerMessage(data)
		if err != nil {
			return fmt.Errorf("%w: %w", transport.ErrTransport, err)
		}
		for _, envelope := range envelopes {
			switch e := envelope.(type) {
			case wire.SetupComplete:
				if !stop() {
					return ctx.Err()
				}
				_ = ws.SetReadDeadline(time.Time{})
				return nil
			case wire.SessionError:
				return fmt.Errorf("%w: setup rejected: %s", transport.ErrTransport, e.Reason)
			}
		}
	}
}

// classifyReadError maps a websocket read failure onto the transport error
// taxonomy.
func classifyReadError(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && isAuthClose(closeErr) {
		return fmt.Errorf("%w: %s", transport.ErrAuthRequired, closeErr.Text)
	}
	return fmt.Errorf("%w: %w", transport.ErrTransport, err)
}

func isAuthClose(closeErr *websocket.CloseError) bool {
	switch closeErr.Code {
	case websocket.ClosePolicyViolation:
		return true
	case websocket.CloseInvalidFramePayloadData:
		// Invalid keys are reported as 1007 with an explanatory reason.
		return strings.Contains(strings.ToLower(closeErr.Text), "api key")
	}
	return false
}
