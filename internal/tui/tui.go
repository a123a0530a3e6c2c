// Package tui renders a terminal dashboard for the streamer: live session
// state on top, the overlay event feed below. It subscribes to the same
// broadcast bus the browser overlay uses.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/kingbootoshi/Stream-Buddy/core/broadcast"
	"github.com/kingbootoshi/Stream-Buddy/core/session"
)

const maxFeedLines = 200

// envelopeMsg carries one overlay event into the update loop.
type envelopeMsg broadcast.Envelope

// feedClosedMsg signals that the broadcast bus has shut down.
type feedClosedMsg struct{}

type Model struct {
	state       *session.State
	events      <-chan broadcast.Envelope
	cancel      func()
	queueDepths func() (voice, chat int)

	viewport viewport.Model
	spinner  spinner.Model
	feed     []string
	ready    bool
	width    int
}

type ModelOption func(*Model)

// WithQueueDepths adds pending-turn counts to the status line.
func WithQueueDepths(depths func() (voice, chat int)) ModelOption {
	return func(m *Model) { m.queueDepths = depths }
}

func NewModel(state *session.State, bus *broadcast.Bus, opts ...ModelOption) *Model {
	events, cancel := bus.Subscribe()

	s := spinner.New()
	s.Spinner = spinner.Dot

	m := &Model{
		state:   state,
		events:  events,
		cancel:  cancel,
		spinner: s,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

// waitForEvent blocks on the bus subscription and resolves to the next
// overlay event.
func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		envelope, ok := <-m.events
		if !ok {
			return feedClosedMsg{}
		}
		return envelopeMsg(envelope)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		case "l":
			m.state.SetListening(!m.state.Listening())
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		headerHeight := 3
		footerHeight := 1
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.refreshFeed()
		return m, nil

	case envelopeMsg:
		m.appendEvent(broadcast.Envelope(msg))
		return m, m.waitForEvent()

	case feedClosedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) appendEvent(envelope broadcast.Envelope) {
	m.feed = append(m.feed, formatEnvelope(envelope))
	if len(m.feed) > maxFeedLines {
		m.feed = m.feed[len(m.feed)-maxFeedLines:]
	}
	m.refreshFeed()
}

func (m *Model) refreshFeed() {
	if !m.ready {
		return
	}
	content := strings.Join(m.feed, "\n")
	if m.width > 0 {
		content = wordwrap.String(content, m.width)
	}
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

// formatEnvelope renders one overlay event as a feed line.
func formatEnvelope(envelope broadcast.Envelope) string {
	timestamp := time.UnixMilli(envelope.TS).Format("15:04:05")
	line := eventTimeStyle.Render(timestamp) + " " + eventTypeStyle.Render(envelope.Type)
	if envelope.Data != nil {
		line += " " + fmt.Sprintf("%v", envelope.Data)
	}
	return line
}

func (m *Model) View() string {
	if !m.ready {
		return "starting..."
	}
	return m.headerView() + "\n" + m.viewport.View() + "\n" + m.footerView()
}

func (m *Model) headerView() string {
	title := titleStyle.Render("Stream Buddy")

	listening := statusOffStyle.Render("muted")
	if m.state.Listening() {
		listening = statusOnStyle.Render("listening")
	}

	talking := statusOffStyle.Render("idle")
	if m.state.Speaking() {
		talking = statusOnStyle.Render(m.spinner.View() + "talking")
	}

	status := fmt.Sprintf("%s | %s | mood: %s", listening, talking, m.state.Mood())
	if hat := m.state.Hat(); hat != "" {
		status += " | hat: " + hat
	}
	if forced := m.state.ForcedState(); forced != "" {
		status += " | forced: " + forced
	}
	if m.queueDepths != nil {
		voice, chat := m.queueDepths()
		status += fmt.Sprintf(" | queued: %dv/%dc", voice, chat)
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, " "+status, "")
}

func (m *Model) footerView() string {
	return footerStyle.Render("l: toggle listening • q: quit")
}

// Run drives the dashboard until the user quits or the context ends.
func Run(ctx context.Context, state *session.State, bus *broadcast.Bus, opts ...ModelOption) error {
	program := tea.NewProgram(NewModel(state, bus, opts...), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run dashboard: %w", err)
	}
	return nil
}
