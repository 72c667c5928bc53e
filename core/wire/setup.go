package wire

import (
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
)

const modelPrefix = "models/"

// Setup is the first message sent on a new connection.
type Setup struct {
	Model             string
	SystemInstruction string
	Voice             string
	Tools             []FunctionDeclaration

	InputTranscription  bool
	OutputTranscription bool
}

type FunctionDeclaration struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

type setupMessage struct {
	Setup setupBody `json:"setup"`
}

type setupBody struct {
	Model                    string            `json:"model"`
	GenerationConfig         generationConfig  `json:"generationConfig"`
	SystemInstruction        *content          `json:"systemInstruction,omitempty"`
	Tools                    []toolDeclaration `json:"tools,omitempty"`
	InputAudioTranscription  *struct{}         `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}         `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type toolDeclaration struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

// EncodeSetup serializes the session setup message.
func EncodeSetup(setup Setup) ([]byte, error) {
	model := setup.Model
	if model != "" && !strings.HasPrefix(model, modelPrefix) {
		model = modelPrefix + model
	}

	body := setupBody{
		Model:            model,
		GenerationConfig: generationConfig{ResponseModalities: []string{"AUDIO"}},
	}
	if setup.Voice != "" {
		body.GenerationConfig.SpeechConfig = &speechConfig{}
		body.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = setup.Voice
	}
	if setup.SystemInstruction != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: setup.SystemInstruction}}}
	}
	if len(setup.Tools) > 0 {
		body.Tools = []toolDeclaration{{FunctionDeclarations: setup.Tools}}
	}
	if setup.InputTranscription {
		body.InputAudioTranscription = &struct{}{}
	}
	if setup.OutputTranscription {
		body.OutputAudioTranscription = &struct{}{}
	}

	return json.Marshal(setupMessage{Setup: body})
}
