// Package ui renders the chat feed in the terminal. It is a thin
// presentation layer over the engine: everything it shows comes from
// engine snapshots, and every action it offers maps to one engine trigger.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/petr-muller/jira-chat/internal/chat"
)

const snapshotInterval = 500 * time.Millisecond

// createdAtLayouts are the timestamp formats the tracker serves.
var createdAtLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	time.RFC3339,
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	issueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	authorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("240")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	attachmentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

type tickMsg time.Time

// syncMsg signals that an engine trigger finished; the next snapshot will
// carry its outcome.
type syncMsg struct{}

// Model is the TUI model for the chat feed screen.
type Model struct {
	engine    *chat.Engine
	project   string
	snapshot  chat.Snapshot
	cursor    int
	composing bool
	input     textinput.Model
	viewport  viewport.Model
	width     int
	height    int
	ready     bool
}

// NewModel creates the feed screen bound to one engine.
func NewModel(engine *chat.Engine, project string) Model {
	input := textinput.New()
	input.Placeholder = "Type a reply"
	input.Prompt = "> "

	return Model{
		engine:  engine,
		project: project,
		input:   input,
	}
}

// Init acquires the poll (the screen starts focused) and kicks off the
// initial load.
func (m Model) Init() tea.Cmd {
	m.engine.Focus()
	return tea.Batch(startCmd(m.engine), tick())
}

func tick() tea.Cmd {
	return tea.Tick(snapshotInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func startCmd(engine *chat.Engine) tea.Cmd {
	return func() tea.Msg {
		_ = engine.Start(context.Background())
		return syncMsg{}
	}
}

func refreshCmd(engine *chat.Engine) tea.Cmd {
	return func() tea.Msg {
		_ = engine.Refresh(context.Background())
		return syncMsg{}
	}
}

func sendCmd(engine *chat.Engine, messageID string) tea.Cmd {
	return func() tea.Msg {
		_ = engine.Send(context.Background(), messageID)
		return syncMsg{}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
	case tickMsg:
		m.refreshSnapshot()
		return m, tick()
	case syncMsg:
		m.refreshSnapshot()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) refreshSnapshot() {
	m.snapshot = m.engine.Snapshot()
	if m.cursor >= len(m.snapshot.Messages) {
		m.cursor = len(m.snapshot.Messages) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.updateViewport()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.composing {
		return m.handleComposeKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.engine.Close()
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.updateViewport()
		}
	case "down", "j":
		if m.cursor < len(m.snapshot.Messages)-1 {
			m.cursor++
			m.updateViewport()
		}
	case "r":
		return m, refreshCmd(m.engine)
	case "enter":
		if id, ok := m.selectedID(); ok {
			m.composing = true
			m.input.SetValue(m.engine.Draft(id))
			m.input.Focus()
		}
	}

	return m, nil
}

func (m Model) handleComposeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id, ok := m.selectedID()
	if !ok {
		m.composing = false
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.composing = false
		m.input.Blur()
		return m, nil
	case "enter":
		m.engine.SetDraft(id, m.input.Value())
		m.composing = false
		m.input.Blur()
		return m, sendCmd(m.engine, id)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.engine.SetDraft(id, m.input.Value())
	return m, cmd
}

func (m Model) selectedID() (string, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snapshot.Messages) {
		return "", false
	}
	return m.snapshot.Messages[m.cursor].ID, true
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}

	// Header, status line, input line and help line surround the viewport.
	viewportHeight := m.height - 6
	if viewportHeight < 3 {
		viewportHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(m.width, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = viewportHeight
	}
	m.input.Width = m.width - 4

	m.updateViewport()
}

func (m *Model) updateViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
}

// View renders the model.
func (m Model) View() string {
	var s strings.Builder

	status := ""
	switch {
	case m.snapshot.Loading:
		status = " (loading)"
	case m.snapshot.Refreshing:
		status = " (refreshing)"
	}

	header := fmt.Sprintf("Chat: %s%s", m.project, status)
	s.WriteString(headerStyle.Render(header))
	s.WriteString("\n")

	if !m.snapshot.LastUpdated.IsZero() {
		s.WriteString(timeStyle.Render(fmt.Sprintf("Updated %s", m.snapshot.LastUpdated.Format("15:04:05"))))
	}
	s.WriteString("\n")

	if m.ready {
		s.WriteString(m.viewport.View())
	} else {
		s.WriteString(m.renderMessages())
	}
	s.WriteString("\n")

	if m.snapshot.ErrorText != "" {
		s.WriteString(errorStyle.Render(m.snapshot.ErrorText))
	}
	s.WriteString("\n")

	if m.composing {
		s.WriteString(m.input.View())
		s.WriteString("\n")
		s.WriteString(helpStyle.Render("enter to send, esc to cancel"))
	} else {
		s.WriteString(helpStyle.Render("enter to reply, r to refresh, q to quit"))
	}

	return s.String()
}

func (m Model) renderMessages() string {
	if len(m.snapshot.Messages) == 0 {
		if m.snapshot.Loading {
			return "Loading feed..."
		}
		return "No messages."
	}

	var s strings.Builder

	for i, message := range m.snapshot.Messages {
		line := fmt.Sprintf("%s %s", issueStyle.Render("["+message.IssueKey+"]"), message.IssueSummary)
		if i == m.cursor {
			line = selectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		s.WriteString(line)
		s.WriteString("\n")

		meta := fmt.Sprintf("  %s %s", authorStyle.Render(message.AuthorName), timeStyle.Render(formatCreatedAt(message.CreatedAt)))
		if message.ID == m.snapshot.SendingID {
			meta += timeStyle.Render("  sending...")
		}
		s.WriteString(meta)
		s.WriteString("\n")

		s.WriteString("  " + message.CommentText)
		s.WriteString("\n")

		if draft := m.engine.Draft(message.ID); draft != "" && !(m.composing && i == m.cursor) {
			s.WriteString(attachmentStyle.Render(fmt.Sprintf("  draft: %s", draft)))
			s.WriteString("\n")
		}

		if len(message.Attachments) > 0 {
			s.WriteString(attachmentStyle.Render("  " + describeAttachments(message.Attachments)))
			s.WriteString("\n")
		}

		s.WriteString("\n")
	}

	return s.String()
}

func describeAttachments(attachments []chat.Attachment) string {
	images := 0
	for _, a := range attachments {
		if a.IsImage {
			images++
		}
	}

	if images > 0 {
		return fmt.Sprintf("%d attachment(s), %d image(s)", len(attachments), images)
	}
	return fmt.Sprintf("%d attachment(s)", len(attachments))
}

func formatCreatedAt(value string) string {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Local().Format("2006-01-02 15:04")
		}
	}

	return value
}
