package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	live "github.com/koscakluka/ema-live/core"
	"github.com/koscakluka/ema-live/core/credentials"
	"github.com/koscakluka/ema-live/core/transcript"
	"github.com/koscakluka/ema-live/core/wire"
	"github.com/muesli/reflow/wordwrap"
)

type (
	statusMsg       live.Status
	turnMsg         transcript.Turn
	userSpeakingMsg bool
	startedMsg      struct{ err error }
	errMsg          struct{ err error }
	fragmentMsg     struct {
		role wire.Role
		text string
	}
	toolMsg struct {
		name  string
		state string
	}
)

type styles struct {
	header    lipgloss.Style
	panel     lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	pending   lipgloss.Style
	status    lipgloss.Style
	err       lipgloss.Style
	help      lipgloss.Style
}

func newStyles() styles {
	blue := lipgloss.Color("#01cdfe")
	mint := lipgloss.Color("#05ffa1")
	pink := lipgloss.Color("#ff71ce")
	muted := lipgloss.Color("#9ca3d8")

	return styles{
		header:    lipgloss.NewStyle().Bold(true).Foreground(mint).Padding(0, 1),
		panel:     lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(muted).Padding(0, 1),
		user:      lipgloss.NewStyle().Foreground(blue).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(mint).Bold(true),
		pending:   lipgloss.NewStyle().Foreground(muted).Italic(true),
		status:    lipgloss.NewStyle().Foreground(blue),
		err:       lipgloss.NewStyle().Foreground(pink).Bold(true),
		help:      lipgloss.NewStyle().Foreground(muted),
	}
}

type model struct {
	engine  *live.Engine
	modelID string

	spinner  spinner.Model
	timeline viewport.Model
	styles   styles
	width    int

	status       live.Status
	starting     bool
	userSpeaking bool
	turns        []transcript.Turn
	pending      map[wire.Role]string
	lastTool     string
	lastErr      error
}

func newModel(engine *live.Engine, modelID string) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		engine:   engine,
		modelID:  modelID,
		spinner:  sp,
		timeline: viewport.New(0, 0),
		styles:   newStyles(),
		status:   live.StatusIdle,
		pending:  map[wire.Role]string{},
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) startCmd() tea.Cmd {
	return func() tea.Msg {
		return startedMsg{err: m.engine.Start(context.Background())}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.timeline.Width = max(msg.Width-4, 10)
		m.timeline.Height = max(msg.Height-7, 3)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.engine.Stop()
			return m, tea.Quit
		case " ", "enter":
			if m.status.IsActive() || m.status == live.StatusConnecting {
				m.engine.Stop()
			} else if !m.starting {
				m.starting = true
				m.lastErr = nil
				m.turns = nil
				m.pending = map[wire.Role]string{}
				cmds = append(cmds, m.startCmd())
			}
		default:
			var cmd tea.Cmd
			m.timeline, cmd = m.timeline.Update(msg)
			cmds = append(cmds, cmd)
		}

	case startedMsg:
		m.starting = false
		if msg.err != nil && !errors.Is(msg.err, live.ErrSessionStopped) {
			m.lastErr = msg.err
		}

	case statusMsg:
		m.status = live.Status(msg)

	case userSpeakingMsg:
		m.userSpeaking = bool(msg)

	case fragmentMsg:
		m.pending[msg.role] += msg.text

	case turnMsg:
		m.turns = append(m.turns, transcript.Turn(msg))
		delete(m.pending, msg.Role)

	case toolMsg:
		m.lastTool = fmt.Sprintf("%s: %s", msg.name, msg.state)

	case errMsg:
		m.lastErr = msg.err
	}

	m.renderTimeline()
	return m, tea.Batch(cmds...)
}

func (m *model) renderTimeline() {
	width := max(m.timeline.Width, 10)
	var b strings.Builder
	for _, turn := range m.turns {
		b.WriteString(m.renderTurn(turn.Role, turn.Text, width, false))
	}
	for _, role := range []wire.Role{wire.RoleUser, wire.RoleAssistant} {
		if text := strings.TrimSpace(m.pending[role]); text != "" {
			b.WriteString(m.renderTurn(role, text, width, true))
		}
	}
	m.timeline.SetContent(b.String())
	m.timeline.GotoBottom()
}

func (m model) renderTurn(role wire.Role, text string, width int, pending bool) string {
	label := m.styles.user.Render("you")
	if role == wire.RoleAssistant {
		label = m.styles.assistant.Render("ema")
	}
	body := wordwrap.String(text, width-2)
	if pending {
		body = m.styles.pending.Render(body)
	}
	return label + "\n" + body + "\n\n"
}

func (m model) View() string {
	header := m.styles.header.Render("ema-live · " + m.modelID)
	timeline := m.styles.panel.Width(max(m.width-2, 10)).Render(m.timeline.View())
	return lipgloss.JoinVertical(lipgloss.Left, header, timeline, m.renderFooter())
}

func (m model) renderFooter() string {
	var status string
	switch {
	case m.starting || m.status == live.StatusConnecting:
		status = m.spinner.View() + " connecting"
	case m.status == live.StatusSpeaking:
		status = m.spinner.View() + " ema is speaking"
	case m.status == live.StatusListening && m.userSpeaking:
		status = "● listening"
	case m.status == live.StatusListening:
		status = "○ listening"
	default:
		status = string(m.status)
	}

	line := m.styles.status.Render(status)
	if m.lastTool != "" {
		line += m.styles.help.Render("  tool " + m.lastTool)
	}
	if m.lastErr != nil {
		line += "  " + m.styles.err.Render(describeError(m.lastErr))
	}
	return line + "\n" + m.styles.help.Render("space start/stop · ↑/↓ scroll · q quit")
}

func describeError(err error) string {
	switch {
	case errors.Is(err, live.ErrAuthRequired):
		return "API key rejected, set " + credentials.DefaultVariable + " and restart"
	case errors.Is(err, live.ErrPermissionDenied):
		return "microphone unavailable"
	case errors.Is(err, live.ErrMalformedAudio):
		return "dropped a corrupt audio chunk"
	default:
		return err.Error()
	}
}
