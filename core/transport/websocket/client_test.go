package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-live/core/credentials"
	"github.com/koscakluka/ema-live/core/transport"
	"github.com/koscakluka/ema-live/core/wire"
)

type serverScript func(t *testing.T, ws *websocket.Conn)

func newTestServer(t *testing.T, script serverScript) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer ws.Close()
		script(t, ws)
	}))
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func newTestClient(server *httptest.Server, opts ...ClientOption) *Client {
	opts = append([]ClientOption{
		WithEndpoint(wsURL(server)),
		WithCredentials(credentials.Static("test-key")),
		WithHandshakeTimeout(2 * time.Second),
	}, opts...)
	return NewClient(opts...)
}

func acceptSetup(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Errorf("failed to read setup: %v", err)
		return nil
	}
	var setup map[string]any
	if err := json.Unmarshal(data, &setup); err != nil {
		t.Errorf("setup was not JSON: %v", err)
	}
	_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"setupComplete":{}}`))
	return setup
}

func receive(t *testing.T, conn transport.Connection) wire.Envelope {
	t.Helper()
	select {
	case envelope, ok := <-conn.Inbound():
		if !ok {
			t.Fatalf("inbound closed unexpectedly")
		}
		return envelope
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for inbound envelope")
	}
	return nil
}

func TestOpenSendsSetupAndDeliversInboundInOrder(t *testing.T) {
	setupReceived := make(chan map[string]any, 1)
	server := newTestServer(t, func(t *testing.T, ws *websocket.Conn) {
		setupReceived <- acceptSetup(t, ws)
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"serverContent":{"outputTranscription":{"text":"hi"}}}`))
		_ = ws.WriteMessage(websocket.BinaryMessage, []byte(`{"serverContent":{"modelTurn":{"parts":[{"inlineData":{"data":"AAA="}}]}}}`))
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"serverContent":{"turnComplete":true}}`))
		_, _, _ = ws.ReadMessage()
	})

	conn, err := newTestClient(server).Open(context.Background(), wire.Setup{Model: "test-model"})
	if err != nil {
		t.Fatalf("expected open to succeed, got %v", err)
	}
	defer conn.Close()

	setup := <-setupReceived
	if body, ok := setup["setup"].(map[string]any); !ok || body["model"] != "models/test-model" {
		t.Fatalf("expected setup message with model, got %v", setup)
	}

	expected := []wire.Kind{wire.KindTranscriptFragment, wire.KindAudioChunk, wire.KindTurnComplete}
	for _, kind := range expected {
		if envelope := receive(t, conn); envelope.Kind() != kind {
			t.Fatalf("expected %q, got %q", kind, envelope.Kind())
		}
	}
}

func TestSendWritesAudioChunks(t *testing.T) {
	received := make(chan string, 1)
	server := newTestServer(t, func(t *testing.T, ws *websocket.Conn) {
		acceptSetup(t, ws)
		_, data, err := ws.ReadMessage()
		if err == nil {
			received <- string(data)
		}
	})

	conn, err := newTestClient(server).Open(context.Background(), wire.Setup{})
	if err != nil {
		t.Fatalf("expected open to succeed, got %v", err)
	}
	defer conn.Close()

	if err := conn.Send(wire.AudioChunk{Data: "AAA="}); err != nil {
		t.Fatalf("expected send to succeed, got %v", err)
	}

	select {
	case message := <-received:
		if !strings.Contains(message, `"mediaType":"audio/pcm;rate=16000"`) {
			t.Fatalf("expected media chunk, got %s", message)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for audio chunk")
	}
}

func TestOpenWithoutCredentialRequiresAuth(t *testing.T) {
	server := newTestServer(t, func(*testing.T, *websocket.Conn) {})

	_, err := newTestClient(server, WithCredentials(credentials.Static(""))).Open(context.Background(), wire.Setup{})
	if !errors.Is(err, transport.ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
}

func TestOpenRejectedKeyRequiresAuth(t *testing.T) {
	server := newTestServer(t, func(*testing.T, *websocket.Conn) {})

	_, err := newTestClient(server, WithCredentials(credentials.Static("wrong"))).Open(context.Background(), wire.Setup{})
	if !errors.Is(err, transport.ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired for 401, got %v", err)
	}
}

func TestOpenPolicyCloseRequiresAuth(t *testing.T) {
	server := newTestServer(t, func(t *testing.T, ws *websocket.Conn) {
		_, _, _ = ws.ReadMessage()
		_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "denied"))
	})

	_, err := newTestClient(server).Open(context.Background(), wire.Setup{})
	if !errors.Is(err, transport.ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired for policy close, got %v", err)
	}
}

func TestOpenHandshakeTimeout(t *testing.T) {
	server := newTestServer(t, func(t *testing.T, ws *websocket.Conn) {
		_, _, _ = ws.ReadMessage()
		_, _, _ = ws.ReadMessage()
	})

	_, err := newTestClient(server, WithHandshakeTimeout(50*time.Millisecond)).Open(context.Background(), wire.Setup{})
	if !errors.Is(err, transport.ErrTransport) {
		t.Fatalf("expected ErrTransport on handshake timeout, got %v", err)
	}
}

func TestOpenCancelledMidHandshake(t *testing.T) {
	server := newTestServer(t, func(t *testing.T, ws *websocket.Conn) {
		_, _, _ = ws.ReadMessage()
		_, _, _ = ws.ReadMessage()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := newTestClient(server).Open(ctx, wire.Setup{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestRemoteCloseEmitsSessionClosed(t *testing.T) {
	server := newTestServer(t, func(t *testing.T, ws *websocket.Conn) {
		acceptSetup(t, ws)
		_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		_, _, _ = ws.ReadMessage()
	})

	conn, err := newTestClient(server).Open(context.Background(), wire.Setup{})
	if err != nil {
		t.Fatalf("expected open to succeed, got %v", err)
	}
	defer conn.Close()

	closed, ok := receive(t, conn).(wire.SessionClosed)
	if !ok || closed.Code != websocket.CloseNormalClosure || closed.Reason != "bye" {
		t.Fatalf("expected session closed envelope, got %+v", closed)
	}

	select {
	case _, ok := <-conn.Inbound():
		if ok {
			t.Fatalf("expected inbound to be closed after terminal envelope")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for inbound to close")
	}

	if err := conn.Send(wire.AudioChunk{Data: "AAA="}); !errors.Is(err, transport.ErrClosed) {
		t.Fatalf("expected ErrClosed after remote close, got %v", err)
	}
}

func TestAbruptDisconnectEmitsTransportError(t *testing.T) {
	server := newTestServer(t, func(t *testing.T, ws *websocket.Conn) {
		acceptSetup(t, ws)
		_ = ws.UnderlyingConn().Close()
	})

	conn, err := newTestClient(server).Open(context.Background(), wire.Setup{})
	if err != nil {
		t.Fatalf("expected open to succeed, got %v", err)
	}
	defer conn.Close()

	sessionErr, ok := receive(t, conn).(wire.SessionError)
	if !ok || !errors.Is(sessionErr, transport.ErrTransport) {
		t.Fatalf("expected session error wrapping ErrTransport, got %+v", sessionErr)
	}
}

func TestCloseIsIdempotentAndStopsSends(t *testing.T) {
	server := newTestServer(t, func(t *testing.T, ws *websocket.Conn) {
		acceptSetup(t, ws)
		_, _, _ = ws.ReadMessage()
	})

	conn, err := newTestClient(server).Open(context.Background(), wire.Setup{})
	if err != nil {
		t.Fatalf("expected open to succeed, got %v", err)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("expected first close to succeed, got %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("expected second close to succeed, got %v", err)
	}
	if err := conn.Send(wire.AudioChunk{Data: "AAA="}); !errors.Is(err, transport.ErrClosed) {
		t.Fatalf("expected ErrClosed after close, got %v", err)
	}
}

func TestSendReportsBackpressure(t *testing.T) {
	conn := &connection{
		outbound: make(chan []byte, 1),
		done:     make(chan struct{}),
	}

	if err := conn.Send(wire.AudioChunk{Data: "AAA="}); err != nil {
		t.Fatalf("expected first send to be queued, got %v", err)
	}
	if err := conn.Send(wire.AudioChunk{Data: "AAA="}); !errors.Is(err, transport.ErrBackpressure) {
		t.Fatalf("expected ErrBackpressure on full queue, got %v", err)
	}
}
