package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-live/core/audio"
	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/playback"
	"github.com/koscakluka/ema-live/core/tools"
	"github.com/koscakluka/ema-live/core/transcript"
	"github.com/koscakluka/ema-live/core/transport"
	"github.com/koscakluka/ema-live/core/wire"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var captureMIMEType = audio.GetCaptureEncodingInfo().MIMEType()

const (
	toolResultSendAttempts = 5
	toolResultRetryDelay   = 20 * time.Millisecond
)

// session holds everything owned by one start/stop cycle. None of it is
// shared with other sessions.
type session struct {
	id        string
	startedAt time.Time
	engine    *Engine

	// ctx lives until teardown and parents tool calls.
	ctx    context.Context
	cancel context.CancelFunc
	// openCtx bounds microphone acquisition and the handshake.
	openCtx    context.Context
	cancelOpen context.CancelFunc

	scheduler  *playback.Scheduler
	aggregator *transcript.Aggregator

	detector     *audio.SilenceDetector
	userSpeaking bool
	captureMu    sync.Mutex

	// live is set once the handshake completed and cleared at teardown.
	// Capture frames are only sent while it is set.
	live         atomic.Bool
	endRequested atomic.Bool

	mu            sync.Mutex
	capture       audio.CaptureStream
	conn          transport.Connection
	pending       map[string]pendingCall
	endTimer      *time.Timer
	stopRequested bool
	tornDown      bool
	done          chan struct{}
}

type pendingCall struct {
	id     string
	name   string
	cancel context.CancelFunc
}

func newSession(ctx context.Context, e *Engine) *session {
	s := &session{
		id:         uuid.NewString(),
		startedAt:  time.Now(),
		engine:     e,
		aggregator: transcript.NewAggregator(),
		detector:   audio.NewSilenceDetector(e.silenceOptions...),
		pending:    map[string]pendingCall{},
		done:       make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.openCtx, s.cancelOpen = context.WithCancel(ctx)
	context.AfterFunc(s.ctx, s.cancelOpen)

	s.scheduler = playback.NewScheduler(e.output,
		playback.WithSpeakingStartedCallback(s.onSpeakingStarted),
		playback.WithSpeakingEndedCallback(s.onSpeakingEnded),
	)
	return s
}

func (s *session) setStatus(status Status, err error) bool {
	return s.engine.setStatus(s, status, err)
}

// open acquires the microphone and then the transport, so a refused
// microphone never opens a connection. Partially acquired resources are
// left for teardown to release.
func (s *session) open(ctx context.Context, setup wire.Setup) (transport.Connection, error) {
	capture, err := s.engine.microphone.Acquire(ctx, s.onCapture)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire microphone: %w", err)
	}

	s.mu.Lock()
	s.capture = capture
	stopped := s.stopRequested
	s.mu.Unlock()
	if stopped {
		return nil, ErrSessionStopped
	}

	conn, err := s.engine.dialer.Open(ctx, setup)
	if err != nil {
		return nil, fmt.Errorf("failed to open transport: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
	if s.stopRequested {
		return nil, ErrSessionStopped
	}
	s.live.Store(true)
	return conn, nil
}

func (s *session) isStopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopRequested
}

func (s *session) stop() {
	s.mu.Lock()
	s.stopRequested = true
	active := s.live.Load()
	s.mu.Unlock()

	s.cancelOpen()
	if active {
		s.teardown(StatusClosed, nil)
	}
}

// teardown releases everything the session owns and records the terminal
// status. Every step tolerates resources that were never acquired, and
// only the first call has any effect.
func (s *session) teardown(status Status, cause error) {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return
	}
	s.tornDown = true
	s.live.Store(false)
	capture, conn := s.capture, s.conn
	s.capture, s.conn = nil, nil
	pending := s.pending
	s.pending = nil
	if s.endTimer != nil {
		s.endTimer.Stop()
	}
	s.mu.Unlock()

	s.cancel()

	var errs []error
	if capture != nil {
		if err := capture.Release(); err != nil {
			errs = append(errs, fmt.Errorf("failed to release microphone: %w", err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close transport: %w", err))
		}
	}
	s.scheduler.Stop()
	s.aggregator.Reset()

	for _, call := range pending {
		call.cancel()
		s.engine.emit(events.NewToolCallCancelled(s.id, call.id, call.name))
	}

	if err := errors.Join(errs...); err != nil {
		logger.Warn("session teardown incomplete", "session_id", s.id, "error", err)
	}

	s.setStatus(status, cause)
	close(s.done)
}

// run processes inbound envelopes one at a time in arrival order.
func (s *session) run(conn transport.Connection) {
	for envelope := range conn.Inbound() {
		if !s.handle(envelope) {
			return
		}
	}

	s.teardown(StatusClosed, ErrTransportClosed)
}

// handle routes one envelope and reports whether the loop should continue.
func (s *session) handle(envelope wire.Envelope) bool {
	if !s.live.Load() {
		return false
	}

	switch e := envelope.(type) {
	case wire.AudioChunk:
		s.playChunk(e)
	case wire.TranscriptFragment:
		s.aggregator.AppendFragment(e.Role, e.Text)
		s.engine.emit(events.NewTranscriptFragment(s.id, e.Role, e.Text))
	case wire.TurnComplete:
		turns := s.aggregator.Flush()
		s.engine.appendHistory(s, turns)
		s.engine.emit(events.NewTurnCompleted(s.id, turns))
		if s.endRequested.Load() && !s.scheduler.IsSpeaking() {
			s.teardown(StatusClosed, nil)
			return false
		}
	case wire.ToolCall:
		s.dispatchTool(e)
	case wire.ToolCallCancellation:
		s.cancelToolCalls(e.IDs)
	case wire.Interrupted:
		s.scheduler.Flush()
		s.engine.emit(events.NewAssistantPlaybackInterrupted(s.id))
	case wire.SetupComplete:
	case wire.ToolResult:
		logger.Warn("ignoring inbound tool result", "session_id", s.id, "tool.call_id", e.ID)
	case wire.SessionClosed:
		logger.Info("session closed by remote", "session_id", s.id, "code", e.Code, "reason", e.Reason)
		s.teardown(StatusClosed, fmt.Errorf("%w: %s", ErrTransportClosed, e.Reason))
		return false
	case wire.SessionError:
		err := error(e)
		if e.Err == nil {
			err = fmt.Errorf("%w: %s", ErrTransportError, e.Reason)
		}
		logger.Error("session failed", "session_id", s.id, "error", err)
		s.teardown(StatusError, err)
		return false
	default:
		logger.Warn("unhandled envelope", "session_id", s.id, "kind", string(envelope.Kind()))
	}
	return true
}

func (s *session) playChunk(chunk wire.AudioChunk) {
	if rate, ok := audio.ParseMIMERate(chunk.MIMEType); ok && rate != audio.PlaybackSampleRate {
		logger.Warn("unexpected playback sample rate", "session_id", s.id, "rate", rate)
	}

	err := s.scheduler.Enqueue(chunk.Data)
	var decodeErr *playback.DecodeError
	switch {
	case err == nil:
	case errors.As(err, &decodeErr):
		logger.Warn("dropped undecodable audio chunk", "session_id", s.id, "error", err)
		s.engine.emit(events.NewAssistantPlaybackDecodeFailed(s.id, err))
	default:
		logger.Error("failed to schedule audio chunk", "session_id", s.id, "error", err)
	}
}

func (s *session) onSpeakingStarted() {
	if !s.live.Load() {
		return
	}
	if s.engine.swapStatus(s, StatusListening, StatusSpeaking) {
		s.engine.emit(events.NewAssistantPlaybackStarted(s.id))
	}
}

func (s *session) onSpeakingEnded() {
	if !s.live.Load() {
		return
	}
	if s.engine.swapStatus(s, StatusSpeaking, StatusListening) {
		s.engine.emit(events.NewAssistantPlaybackEnded(s.id))
	}
	if s.endRequested.Load() {
		// Called with the scheduler's signal lock held; teardown stops the
		// scheduler, so it has to run elsewhere.
		go s.stop()
	}
}

// onCapture runs on the microphone's goroutine for every captured frame.
// Frames are always forwarded while the session is live, regardless of
// detected silence.
func (s *session) onCapture(samples []float32) {
	if len(samples) == 0 {
		return
	}
	if !s.live.Load() {
		droppedFrames.Add(s.ctx, 1, metric.WithAttributes(attribute.String("reason", "inactive")))
		return
	}

	s.detectSpeech(samples)

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		droppedFrames.Add(s.ctx, 1, metric.WithAttributes(attribute.String("reason", "inactive")))
		return
	}

	err := conn.Send(wire.AudioChunk{MIMEType: captureMIMEType, Data: audio.Encode(samples)})
	switch {
	case err == nil:
	case errors.Is(err, transport.ErrClosed):
		// Send raced teardown.
		droppedFrames.Add(s.ctx, 1, metric.WithAttributes(attribute.String("reason", "closed")))
	case errors.Is(err, transport.ErrBackpressure):
		droppedFrames.Add(s.ctx, 1, metric.WithAttributes(attribute.String("reason", "backpressure")))
	default:
		droppedFrames.Add(s.ctx, 1, metric.WithAttributes(attribute.String("reason", "error")))
		logger.Warn("failed to send captured audio", "session_id", s.id, "error", err)
	}
}

func (s *session) detectSpeech(samples []float32) {
	s.captureMu.Lock()
	activity := s.detector.Classify(samples, time.Now())
	changed := activity.Speaking != s.userSpeaking
	s.userSpeaking = activity.Speaking
	s.captureMu.Unlock()

	if !changed {
		return
	}
	if activity.Speaking {
		s.engine.emit(events.NewUserSpeechStarted(s.id, activity.Peak))
	} else {
		s.engine.emit(events.NewUserSpeechEnded(s.id))
	}
}

type sessionContextKey struct{}

func sessionFromContext(ctx context.Context) (*session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*session)
	return s, ok
}

// dispatchTool runs the call on its own goroutine so audio keeps flowing.
// The result is sent only if the session is still live when it is ready.
func (s *session) dispatchTool(call wire.ToolCall) {
	key := call.ID
	if key == "" {
		key = uuid.NewString()
	}

	ctx, cancel := context.WithCancel(context.WithValue(s.ctx, sessionContextKey{}, s))
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		cancel()
		return
	}
	s.pending[key] = pendingCall{id: call.ID, name: call.Name, cancel: cancel}
	s.mu.Unlock()

	s.engine.emit(events.NewToolCallStarted(s.id, call.ID, call.Name, string(call.Args)))

	go func() {
		defer cancel()
		result := s.engine.dispatcher.Dispatch(ctx, tools.CallFromEnvelope(call))

		s.mu.Lock()
		_, stillPending := s.pending[key]
		delete(s.pending, key)
		conn := s.conn
		s.mu.Unlock()
		if !stillPending || conn == nil {
			logger.Debug("dropping tool result for finished call", "session_id", s.id, "tool.name", call.Name)
			return
		}

		if result.OK() {
			output, _ := json.Marshal(result.Output)
			s.engine.emit(events.NewToolCallCompleted(s.id, call.ID, call.Name, string(output)))
		} else {
			s.engine.emit(events.NewToolCallFailed(s.id, call.ID, call.Name, string(result.Code), result.Err.Error()))
		}

		s.sendToolResult(conn, result)
	}()
}

func (s *session) sendToolResult(conn transport.Connection, result tools.Result) {
	envelope := result.Envelope()
	for attempt := 1; ; attempt++ {
		err := conn.Send(envelope)
		switch {
		case err == nil:
			return
		case errors.Is(err, transport.ErrBackpressure) && attempt < toolResultSendAttempts:
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(toolResultRetryDelay):
			}
		case errors.Is(err, transport.ErrClosed):
			return
		default:
			logger.Warn("failed to send tool result", "session_id", s.id, "tool.call_id", result.ID, "error", err)
			return
		}
	}
}

func (s *session) cancelToolCalls(ids []string) {
	var cancelled []pendingCall
	s.mu.Lock()
	for _, id := range ids {
		if call, ok := s.pending[id]; ok {
			delete(s.pending, id)
			cancelled = append(cancelled, call)
		}
	}
	s.mu.Unlock()

	for _, call := range cancelled {
		call.cancel()
		s.engine.emit(events.NewToolCallCancelled(s.id, call.id, call.name))
	}
}

// requestEnd ends the session once the model finishes its current turn, or
// after grace at the latest.
func (s *session) requestEnd(grace time.Duration) {
	if !s.endRequested.CompareAndSwap(false, true) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown {
		return
	}
	s.endTimer = time.AfterFunc(grace, s.stop)
}
