// Package tui is the terminal client for the assistant: a transcript
// viewport over the chat ledger, a prompt line, and a badge showing the
// active dashboard view.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/attyx/assistant/internal/chat"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	badgeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")).Padding(0, 1)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	systemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

// Model is the bubbletea model for the chat client.
type Model struct {
	client *chat.Client

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	width  int
	height int
	ready  bool
}

type refreshMsg struct{}

type submitDoneMsg struct{ err error }

// New creates the TUI model around an existing chat client.
func New(client *chat.Client) Model {
	input := textinput.New()
	input.Placeholder = "Type your message..."
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		client: client,
		input:  input,
		spin:   spin,
	}
}

// Init starts the blink, spinner and ledger-watch loops.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick, m.waitForUpdate())
}

// waitForUpdate blocks on the client's coalesced change signal.
func (m Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		<-m.client.Updates()
		return refreshMsg{}
	}
}

// submit sends the prompt text off the UI goroutine.
func (m Model) submit(text string) tea.Cmd {
	return func() tea.Msg {
		return submitDoneMsg{err: m.client.Submit(context.Background(), text)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+n":
			m.client.NewSession(context.Background())
			return m, nil
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.client.InFlight() {
				return m, nil
			}
			m.input.Reset()
			return m, m.submit(text)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := msg.Height - 4
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.refreshTranscript()

	case refreshMsg:
		m.refreshTranscript()
		cmds = append(cmds, m.waitForUpdate())

	case submitDoneMsg:
		// Failures land in the ledger as system messages; the refresh
		// path renders them.

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// refreshTranscript re-renders the ledger into the viewport and pins the
// bottom.
func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for _, msg := range m.client.Ledger().Messages() {
		b.WriteString(renderMessage(msg))
		b.WriteByte('\n')
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func renderMessage(msg chat.Message) string {
	var line string
	switch msg.Role {
	case chat.RoleUser:
		line = userStyle.Render("you: ") + msg.Content
	case chat.RoleSystem:
		line = systemStyle.Render(msg.Content)
	default:
		line = assistantStyle.Render("assistant: " + msg.Content)
	}
	switch msg.Status {
	case chat.StatusSending:
		line += pendingStyle.Render(" (sending...)")
	case chat.StatusError:
		line += systemStyle.Render(" (failed)")
	}
	return line
}

func (m Model) View() string {
	if !m.ready {
		return "starting..."
	}

	header := headerStyle.Render("Attyx Assistant") + "  " +
		badgeStyle.Render(string(m.client.Views().Current())) + "  " +
		pendingStyle.Render(shortID(m.client.SessionID()))

	status := ""
	if m.client.InFlight() {
		status = m.spin.View() + " thinking..."
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s", header, m.viewport.View(), status, m.input.View())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
