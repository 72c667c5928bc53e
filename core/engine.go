// Package live runs real-time duplex voice sessions: it streams microphone
// audio to a remote conversational endpoint, plays the synthesized speech
// back gaplessly, and surfaces transcripts, turns and tool calls.
package live

import (
	"context"
	"fmt"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-live/core/audio"
	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/playback"
	"github.com/koscakluka/ema-live/core/tools"
	"github.com/koscakluka/ema-live/core/transcript"
	"github.com/koscakluka/ema-live/core/transport"
	"github.com/koscakluka/ema-live/core/wire"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Engine owns at most one session at a time.
type Engine struct {
	microphone Microphone
	dialer     transport.Dialer
	output     playback.Output
	dispatcher *tools.Dispatcher

	setup          wire.Setup
	silenceOptions []audio.SilenceOption
	callbacks      engineCallbacks
	events         *eventPlayer

	// startMu serializes Start so the previous session is fully torn down
	// before the next one is created.
	startMu   sync.Mutex
	closeOnce sync.Once

	// mu guards the fields below. When both are needed, take mu before a
	// session's mu.
	mu      sync.Mutex
	session *session
	// previous is the last session created by Start, kept until its
	// teardown has finished.
	previous *session
	status   Status
	last     Session
	history  []transcript.Turn
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		output:     playback.NewWallClockOutput(),
		dispatcher: tools.NewDispatcher(),
		status:     StatusIdle,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.events = newEventPlayer(newCallbackEventEmitter(e.callbacks))
	return e
}

// Start opens a new session. Any existing session, active or still
// connecting, is stopped first. Start returns once the session is active;
// ctx bounds the start only, the session runs until Stop or until the
// remote side ends it.
//
// On failure the session ends in the error status with no microphone or
// transport left open, and the returned error matches one of the package
// errors. If Stop is called before the handshake completes, Start returns
// [ErrSessionStopped].
func (e *Engine) Start(ctx context.Context) (err error) {
	if e.microphone == nil {
		return fmt.Errorf("%w: no microphone", ErrNotConfigured)
	}
	if e.dialer == nil {
		return fmt.Errorf("%w: no transport", ErrNotConfigured)
	}

	// Cancels a handshake that may be holding startMu.
	e.Stop()
	e.startMu.Lock()
	defer e.startMu.Unlock()
	e.Stop()
	e.awaitPrevious()

	ctx, span := tracer.Start(ctx, "start session")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	s := newSession(ctx, e)
	defer s.cancelOpen()
	span.SetAttributes(attribute.String("session_id", s.id))

	e.mu.Lock()
	e.session = s
	e.previous = s
	e.history = nil
	e.mu.Unlock()
	s.setStatus(StatusConnecting, nil)

	conn, err := s.open(s.openCtx, e.sessionSetup())
	if err != nil {
		if s.isStopRequested() {
			logger.Info("session stopped during handshake", "session_id", s.id)
			s.teardown(StatusClosed, nil)
			return ErrSessionStopped
		}
		logger.Error("failed to start session", "session_id", s.id, "error", err)
		s.teardown(StatusError, err)
		return err
	}

	if !s.setStatus(StatusListening, nil) {
		return ErrSessionStopped
	}
	logger.Info("session active", "session_id", s.id)

	go s.run(conn)
	return nil
}

// Stop ends the current session. It is a no-op when nothing is running and
// safe to call repeatedly or concurrently with Start. A session still in its
// handshake is torn down as soon as the handshake returns.
func (e *Engine) Stop() {
	e.mu.Lock()
	s := e.session
	e.mu.Unlock()

	if s != nil {
		s.stop()
	}
}

// Close stops the current session and waits for queued callbacks to be
// delivered. The engine cannot be used afterwards.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.Stop()
		e.startMu.Lock()
		defer e.startMu.Unlock()
		e.Stop()
		e.awaitPrevious()
		e.events.Stop()
		e.events.AwaitDone()
	})
}

// awaitPrevious blocks until the last session has released its microphone,
// transport and playback. The teardown may be running on the session's own
// goroutine after a remote close. Callers hold startMu, so the previous
// session is either torn down or live and already stopped.
func (e *Engine) awaitPrevious() {
	e.mu.Lock()
	previous := e.previous
	e.mu.Unlock()
	if previous == nil {
		return
	}

	<-previous.done
	e.mu.Lock()
	if e.previous == previous {
		e.previous = nil
	}
	e.mu.Unlock()
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Session returns the session currently owned by the engine, if any. After
// a session ends it returns the last one with ok set to false.
func (e *Engine) Session() (session Session, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return e.last, false
	}
	return Session{ID: e.session.id, Status: e.status, StartedAt: e.session.startedAt}, true
}

// History returns the turns finalized in the current or most recent session.
func (e *Engine) History() []transcript.Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]transcript.Turn(nil), e.history...)
}

// RegisterTool adds a tool for sessions started afterwards.
func (e *Engine) RegisterTool(tool tools.Tool) {
	e.dispatcher.RegisterTool(tool)
}

func (e *Engine) sessionSetup() wire.Setup {
	setup := e.setup
	setup.InputTranscription = true
	setup.OutputTranscription = true

	var declarations []wire.FunctionDeclaration
	if err := copier.Copy(&declarations, e.dispatcher.Declarations()); err != nil {
		logger.Warn("failed to copy tool declarations", "error", err)
	}
	setup.Tools = declarations
	return setup
}

// setStatus records a transition for s and queues the event. Transitions of
// a session that is no longer current are dropped. It reports whether the
// transition was applied.
func (e *Engine) setStatus(s *session, status Status, err error) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != s {
		return false
	}

	e.status = status
	if status.IsTerminal() {
		e.session = nil
		e.last = Session{ID: s.id, Status: status, StartedAt: s.startedAt}
	}
	e.events.Ingest(events.NewSessionStatusChanged(s.id, string(status), err))
	return true
}

// swapStatus moves s from one status to another only if it is still in from.
func (e *Engine) swapStatus(s *session, from, to Status) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != s || e.status != from {
		return false
	}

	e.status = to
	e.events.Ingest(events.NewSessionStatusChanged(s.id, string(to), nil))
	return true
}

func (e *Engine) appendHistory(s *session, turns []transcript.Turn) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != s {
		return
	}
	e.history = append(e.history, turns...)
}

func (e *Engine) emit(event events.Event) {
	e.events.Ingest(event)
}
