package wire

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/koscakluka/ema-live/core/audio"
)

func TestEncodeAudioChunkUsesMediaChunks(t *testing.T) {
	data, err := EncodeClientMessage(AudioChunk{Data: "AAA="})
	if err != nil {
		t.Fatalf("expected audio chunk to encode, got %v", err)
	}

	expected := `{"realtimeInput":{"mediaChunks":[{"mediaType":"audio/pcm;rate=16000","data":"AAA="}]}}`
	if string(data) != expected {
		t.Fatalf("expected %s, got %s", expected, data)
	}
}

func TestEncodeToolResultCarriesID(t *testing.T) {
	data, err := EncodeClientMessage(ToolResult{ID: "call-1", Name: "lookup", Response: map[string]any{"result": "ok"}})
	if err != nil {
		t.Fatalf("expected tool result to encode, got %v", err)
	}

	var decoded struct {
		ToolResponse struct {
			FunctionResponses []struct {
				ID       string         `json:"id"`
				Name     string         `json:"name"`
				Response map[string]any `json:"response"`
			} `json:"functionResponses"`
		} `json:"toolResponse"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("expected valid JSON, got %v", err)
	}

	responses := decoded.ToolResponse.FunctionResponses
	if len(responses) != 1 {
		t.Fatalf("expected 1 function response, got %d", len(responses))
	}
	if responses[0].ID != "call-1" || responses[0].Name != "lookup" || responses[0].Response["result"] != "ok" {
		t.Fatalf("unexpected function response %+v", responses[0])
	}
}

func TestEncodeToolResultWithoutResponseSendsEmptyObject(t *testing.T) {
	data, err := EncodeClientMessage(ToolResult{ID: "call-2"})
	if err != nil {
		t.Fatalf("expected tool result to encode, got %v", err)
	}
	if !strings.Contains(string(data), `"response":{}`) {
		t.Fatalf("expected empty response object, got %s", data)
	}
}

func TestEncodeRejectsServerOnlyEnvelopes(t *testing.T) {
	for _, envelope := range []Envelope{TurnComplete{}, TranscriptFragment{}, SessionClosed{}, nil} {
		if _, err := EncodeClientMessage(envelope); !errors.Is(err, ErrUnsupportedEnvelope) {
			t.Fatalf("expected unsupported envelope error for %T, got %v", envelope, err)
		}
	}
}

func TestDecodeServerContentOrdersTranscriptsBeforeTurnComplete(t *testing.T) {
	msg := `{"serverContent":{
		"turnComplete":true,
		"modelTurn":{"parts":[{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"AQI="}},{"text":"thinking","thought":true}]},
		"inputTranscription":{"text":"hello"},
		"outputTranscription":{"text":"hi there"}
	}}`

	envelopes, err := DecodeServerMessage([]byte(msg))
	if err != nil {
		t.Fatalf("expected message to decode, got %v", err)
	}

	expected := []Envelope{
		TranscriptFragment{Role: RoleUser, Text: "hello"},
		TranscriptFragment{Role: RoleAssistant, Text: "hi there"},
		AudioChunk{MIMEType: "audio/pcm;rate=24000", Data: "AQI="},
		TurnComplete{},
	}
	if len(envelopes) != len(expected) {
		t.Fatalf("expected %d envelopes, got %d: %+v", len(expected), len(envelopes), envelopes)
	}
	for i := range expected {
		if envelopes[i] != expected[i] {
			t.Fatalf("envelope %d: expected %+v, got %+v", i, expected[i], envelopes[i])
		}
	}
}

func TestDecodeBareDataAsAudio(t *testing.T) {
	envelopes, err := DecodeServerMessage([]byte(`{"data":"AQI="}`))
	if err != nil {
		t.Fatalf("expected message to decode, got %v", err)
	}
	if len(envelopes) != 1 {
		t.Fatalf("expected 1 envelope, got %d", len(envelopes))
	}

	chunk, ok := envelopes[0].(AudioChunk)
	if !ok {
		t.Fatalf("expected audio chunk, got %T", envelopes[0])
	}
	if chunk.Data != "AQI=" || chunk.MIMEType != audio.PlaybackMIMEType {
		t.Fatalf("unexpected chunk %+v", chunk)
	}
}

func TestDecodeToolCalls(t *testing.T) {
	msg := `{"toolCall":{"functionCalls":[{"id":"a","name":"lookup","args":{"q":"x"}},{"id":"b","name":"noop"}]}}`

	envelopes, err := DecodeServerMessage([]byte(msg))
	if err != nil {
		t.Fatalf("expected message to decode, got %v", err)
	}
	if len(envelopes) != 2 {
		t.Fatalf("expected 2 envelopes, got %d", len(envelopes))
	}

	first := envelopes[0].(ToolCall)
	if first.ID != "a" || first.Name != "lookup" || string(first.Args) != `{"q":"x"}` {
		t.Fatalf("unexpected first call %+v", first)
	}
	second := envelopes[1].(ToolCall)
	if string(second.Args) != "{}" {
		t.Fatalf("expected missing args to default to {}, got %s", second.Args)
	}
}

func TestDecodeControlMessages(t *testing.T) {
	testCases := []struct {
		name     string
		message  string
		expected Kind
	}{
		{name: "setup complete", message: `{"setupComplete":{}}`, expected: KindSetupComplete},
		{name: "interrupted", message: `{"serverContent":{"interrupted":true}}`, expected: KindInterrupted},
		{name: "cancellation", message: `{"toolCallCancellation":{"ids":["a"]}}`, expected: KindToolCallCancellation},
		{name: "error", message: `{"error":{"code":400,"message":"bad","status":"INVALID_ARGUMENT"}}`, expected: KindSessionError},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			envelopes, err := DecodeServerMessage([]byte(testCase.message))
			if err != nil {
				t.Fatalf("expected message to decode, got %v", err)
			}
			if len(envelopes) != 1 || envelopes[0].Kind() != testCase.expected {
				t.Fatalf("expected single %q envelope, got %+v", testCase.expected, envelopes)
			}
		})
	}
}

func TestDecodeUnknownMessageIsEmpty(t *testing.T) {
	envelopes, err := DecodeServerMessage([]byte(`{"usageMetadata":{"totalTokenCount":3}}`))
	if err != nil {
		t.Fatalf("expected unknown message to decode, got %v", err)
	}
	if len(envelopes) != 0 {
		t.Fatalf("expected no envelopes, got %+v", envelopes)
	}
}

func TestDecodeMalformedMessage(t *testing.T) {
	if _, err := DecodeServerMessage([]byte(`{"serverContent":`)); !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("expected malformed message error, got %v", err)
	}
}

func TestEncodeSetup(t *testing.T) {
	schema := &jsonschema.Schema{Type: "object"}
	data, err := EncodeSetup(Setup{
		Model:               "gemini-live",
		SystemInstruction:   "be brief",
		Voice:               "Puck",
		Tools:               []FunctionDeclaration{{Name: "lookup", Description: "Look things up", Parameters: schema}},
		InputTranscription:  true,
		OutputTranscription: true,
	})
	if err != nil {
		t.Fatalf("expected setup to encode, got %v", err)
	}

	var decoded map[string]map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("expected valid JSON, got %v", err)
	}

	setup := decoded["setup"]
	if setup["model"] != "models/gemini-live" {
		t.Fatalf("expected prefixed model, got %v", setup["model"])
	}
	for _, key := range []string{"generationConfig", "systemInstruction", "tools", "inputAudioTranscription", "outputAudioTranscription"} {
		if _, ok := setup[key]; !ok {
			t.Fatalf("expected setup to contain %q, got %s", key, data)
		}
	}
	if !strings.Contains(string(data), `"voiceName":"Puck"`) {
		t.Fatalf("expected voice name in setup, got %s", data)
	}
}

func TestSessionErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := error(SessionError{Err: cause})
	if !errors.Is(err, cause) {
		t.Fatalf("expected session error to unwrap to cause")
	}
	if err.Error() != "boom" {
		t.Fatalf("expected error text from cause, got %q", err.Error())
	}
}
