package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/koscakluka/ema-live/core/audio"
)

var (
	ErrMalformedMessage    = errors.New("malformed server message")
	ErrUnsupportedEnvelope = errors.New("envelope cannot be sent by the client")
)

type clientMessage struct {
	RealtimeInput *realtimeInput `json:"realtimeInput,omitempty"`
	ToolResponse  *toolResponse  `json:"toolResponse,omitempty"`
}

type realtimeInput struct {
	MediaChunks []mediaChunk `json:"mediaChunks"`
}

type mediaChunk struct {
	MediaType string `json:"mediaType"`
	Data      string `json:"data"`
}

type toolResponse struct {
	FunctionResponses []functionResponse `json:"functionResponses"`
}

type functionResponse struct {
	ID       string         `json:"id"`
	Name     string         `json:"name,omitempty"`
	Response map[string]any `json:"response"`
}

// EncodeClientMessage serializes an outbound envelope. Only [AudioChunk] and
// [ToolResult] are valid client messages.
func EncodeClientMessage(envelope Envelope) ([]byte, error) {
	switch e := envelope.(type) {
	case AudioChunk:
		mediaType := e.MIMEType
		if mediaType == "" {
			mediaType = audio.CaptureMIMEType
		}
		return json.Marshal(clientMessage{
			RealtimeInput: &realtimeInput{MediaChunks: []mediaChunk{{MediaType: mediaType, Data: e.Data}}},
		})
	case ToolResult:
		response := e.Response
		if response == nil {
			response = map[string]any{}
		}
		return json.Marshal(clientMessage{
			ToolResponse: &toolResponse{FunctionResponses: []functionResponse{{ID: e.ID, Name: e.Name, Response: response}}},
		})
	case nil:
		return nil, fmt.Errorf("%w: nil envelope", ErrUnsupportedEnvelope)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEnvelope, envelope.Kind())
	}
}

type serverMessage struct {
	SetupComplete        *struct{}             `json:"setupComplete"`
	ServerContent        *serverContent        `json:"serverContent"`
	ToolCall             *toolCallMessage      `json:"toolCall"`
	ToolCallCancellation *toolCallCancellation `json:"toolCallCancellation"`
	Error                *serverError          `json:"error"`
	Data                 string                `json:"data"`
}

type serverContent struct {
	ModelTurn           *content       `json:"modelTurn"`
	InputTranscription  *transcription `json:"inputTranscription"`
	OutputTranscription *transcription `json:"outputTranscription"`
	Interrupted         bool           `json:"interrupted"`
	TurnComplete        bool           `json:"turnComplete"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	Thought    bool        `json:"thought,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type transcription struct {
	Text string `json:"text"`
}

type toolCallMessage struct {
	FunctionCalls []functionCall `json:"functionCalls"`
}

type functionCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type toolCallCancellation struct {
	IDs []string `json:"ids"`
}

type serverError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// DecodeServerMessage parses one inbound message into envelopes in the order
// the engine must process them. Transcripts come before audio and
// turnComplete is always last. Messages the engine has no use for decode to
// an empty slice.
func DecodeServerMessage(data []byte) ([]Envelope, error) {
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	var envelopes []Envelope
	if msg.SetupComplete != nil {
		envelopes = append(envelopes, SetupComplete{})
	}

	if msg.Data != "" {
		envelopes = append(envelopes, AudioChunk{MIMEType: audio.PlaybackMIMEType, Data: msg.Data})
	}

	if msg.ServerContent != nil {
		envelopes = append(envelopes, decodeServerContent(*msg.ServerContent)...)
	}

	if msg.ToolCall != nil {
		for _, call := range msg.ToolCall.FunctionCalls {
			args := call.Args
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			envelopes = append(envelopes, ToolCall{ID: call.ID, Name: call.Name, Args: args})
		}
	}

	if msg.ToolCallCancellation != nil && len(msg.ToolCallCancellation.IDs) > 0 {
		envelopes = append(envelopes, ToolCallCancellation{IDs: msg.ToolCallCancellation.IDs})
	}

	if msg.Error != nil {
		reason := msg.Error.Message
		if msg.Error.Status != "" {
			reason = fmt.Sprintf("%s: %s", msg.Error.Status, reason)
		}
		envelopes = append(envelopes, SessionError{Reason: reason})
	}

	return envelopes, nil
}

func decodeServerContent(sc serverContent) []Envelope {
	var envelopes []Envelope
	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		envelopes = append(envelopes, TranscriptFragment{Role: RoleUser, Text: sc.InputTranscription.Text})
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		envelopes = append(envelopes, TranscriptFragment{Role: RoleAssistant, Text: sc.OutputTranscription.Text})
	}

	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			switch {
			case p.InlineData != nil && p.InlineData.Data != "":
				mimeType := p.InlineData.MIMEType
				if mimeType == "" {
					mimeType = audio.PlaybackMIMEType
				}
				envelopes = append(envelopes, AudioChunk{MIMEType: mimeType, Data: p.InlineData.Data})
			case p.Text != "" && !p.Thought:
				envelopes = append(envelopes, TranscriptFragment{Role: RoleAssistant, Text: p.Text})
			}
		}
	}

	if sc.Interrupted {
		envelopes = append(envelopes, Interrupted{})
	}
	if sc.TurnComplete {
		envelopes = append(envelopes, TurnComplete{})
	}
	return envelopes
}
