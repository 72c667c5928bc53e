package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	live "github.com/koscakluka/ema-live/core"
	"github.com/koscakluka/ema-live/core/audio/miniaudio"
	"github.com/koscakluka/ema-live/core/audio/portaudio"
	"github.com/koscakluka/ema-live/core/credentials"
	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/transcript"
	"github.com/koscakluka/ema-live/core/transport/websocket"
	"github.com/koscakluka/ema-live/core/wire"
	"github.com/koscakluka/ema-live/internal/config"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render(err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:], os.Stderr)
	if err != nil {
		return err
	}

	provider := credentials.NewEnvProvider(
		credentials.WithVariable(cfg.CredentialVariable),
		credentials.WithPrompt(os.Stdin, os.Stdout),
	)
	if !provider.HasCredential() {
		if err := provider.PromptForCredential(context.Background()); err != nil {
			return fmt.Errorf("no API key available: %w", err)
		}
	}

	speaker, err := miniaudio.NewClient()
	if err != nil {
		return fmt.Errorf("failed to open audio devices: %w", err)
	}
	defer speaker.Close()

	var microphone live.Microphone = speaker
	if cfg.Backend == config.BackendPortaudio {
		client, err := portaudio.NewClient(portaudio.DefaultFramesPerBuffer)
		if err != nil {
			return fmt.Errorf("failed to open PortAudio: %w", err)
		}
		defer client.Close()
		microphone = client
	}

	// The program is created after the engine, callbacks only fire once a
	// session is started from the UI.
	var program *tea.Program
	send := func(msg tea.Msg) {
		if program != nil {
			program.Send(msg)
		}
	}

	opts := []live.EngineOption{
		live.WithMicrophone(microphone),
		live.WithPlaybackOutput(speaker),
		live.WithTransport(websocket.NewClient(
			websocket.WithEndpoint(cfg.Endpoint),
			websocket.WithCredentials(provider),
			websocket.WithHandshakeTimeout(cfg.HandshakeTimeout),
		)),
		live.WithModel(cfg.Model),
		live.WithVoice(cfg.Voice),
		live.WithSystemInstruction(cfg.SystemInstruction),
		live.WithSilenceThreshold(float32(cfg.SilenceThreshold)),
		live.WithSilenceTimeout(cfg.SilenceTimeout),
		live.WithTools(demoTools()...),
		live.WithStatusCallback(func(status live.Status) { send(statusMsg(status)) }),
		live.WithTurnCallback(func(turn transcript.Turn) { send(turnMsg(turn)) }),
		live.WithTranscriptFragmentCallback(func(role wire.Role, text string) {
			send(fragmentMsg{role: role, text: text})
		}),
		live.WithUserSpeakingCallback(func(isSpeaking bool) { send(userSpeakingMsg(isSpeaking)) }),
		live.WithErrorCallback(func(err error) { send(errMsg{err: err}) }),
		live.WithEventHandler(func(event events.Event) {
			switch e := event.(type) {
			case events.ToolCallStarted:
				send(toolMsg{name: e.Name, state: "running"})
			case events.ToolCallCompleted:
				send(toolMsg{name: e.Name, state: "done"})
			case events.ToolCallFailed:
				send(toolMsg{name: e.Name, state: "failed: " + e.Code})
			case events.ToolCallCancelled:
				send(toolMsg{name: e.Name, state: "cancelled"})
			}
		}),
	}
	if cfg.EndSessionTool {
		opts = append(opts, live.WithSessionTools())
	}

	engine := live.NewEngine(opts...)
	defer engine.Close()

	program = tea.NewProgram(newModel(engine, cfg.Model), tea.WithAltScreen())
	_, err = program.Run()
	return err
}
