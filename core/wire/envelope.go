// Package wire defines the messages exchanged with the remote conversational
// endpoint and their JSON framing.
//
// Every inbound server message decodes into an ordered list of [Envelope]
// values; the engine switches over [Envelope.Kind] at a single call site.
package wire

import "encoding/json"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

type Kind string

const (
	KindAudioChunk           Kind = "audio_chunk"
	KindTranscriptFragment   Kind = "transcript_fragment"
	KindToolCall             Kind = "tool_call"
	KindToolResult           Kind = "tool_result"
	KindTurnComplete         Kind = "turn_complete"
	KindSessionClosed        Kind = "session_closed"
	KindSessionError         Kind = "session_error"
	KindSetupComplete        Kind = "setup_complete"
	KindInterrupted          Kind = "interrupted"
	KindToolCallCancellation Kind = "tool_call_cancellation"
)

// Envelope is the closed set of values that cross the transport boundary.
type Envelope interface {
	Kind() Kind
	envelope()
}

// AudioChunk carries base64 encoded PCM16 audio. Outbound chunks are 16 kHz
// mono capture audio, inbound chunks are 24 kHz mono model speech.
type AudioChunk struct {
	MIMEType string
	Data     string
}

type TranscriptFragment struct {
	Role Role
	Text string
}

type ToolCall struct {
	ID   string
	Name string
	Args json.RawMessage
}

// ToolResult answers a [ToolCall]. ID always matches the originating call.
type ToolResult struct {
	ID       string
	Name     string
	Response map[string]any
}

type TurnComplete struct{}

// SessionClosed reports that the remote side ended the session.
type SessionClosed struct {
	Code   int
	Reason string
}

// SessionError reports a fatal session failure. Err is set when the failure
// originated locally (e.g. a transport read error) and can be matched with
// errors.Is.
type SessionError struct {
	Reason string
	Err    error
}

type SetupComplete struct{}

// Interrupted signals that the remote side detected barge-in and discarded
// the rest of the current model turn.
type Interrupted struct{}

type ToolCallCancellation struct {
	IDs []string
}

func (AudioChunk) Kind() Kind           { return KindAudioChunk }
func (TranscriptFragment) Kind() Kind   { return KindTranscriptFragment }
func (ToolCall) Kind() Kind             { return KindToolCall }
func (ToolResult) Kind() Kind           { return KindToolResult }
func (TurnComplete) Kind() Kind         { return KindTurnComplete }
func (SessionClosed) Kind() Kind        { return KindSessionClosed }
func (SessionError) Kind() Kind         { return KindSessionError }
func (SetupComplete) Kind() Kind        { return KindSetupComplete }
func (Interrupted) Kind() Kind          { return KindInterrupted }
func (ToolCallCancellation) Kind() Kind { return KindToolCallCancellation }

func (AudioChunk) envelope()           {}
func (TranscriptFragment) envelope()   {}
func (ToolCall) envelope()             {}
func (ToolResult) envelope()           {}
func (TurnComplete) envelope()         {}
func (SessionClosed) envelope()        {}
func (SessionError) envelope()         {}
func (SetupComplete) envelope()        {}
func (Interrupted) envelope()          {}
func (ToolCallCancellation) envelope() {}

func (e SessionError) Error() string {
	if e.Err != nil && e.Reason == "" {
		return e.Err.Error()
	}
	return e.Reason
}

func (e SessionError) Unwrap() error { return e.Err }
