package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingbootoshi/Stream-Buddy/core/broadcast"
	"github.com/kingbootoshi/Stream-Buddy/core/session"
)

func testModel() *Model {
	m := NewModel(session.NewState(), broadcast.NewBus())
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(*Model)
}

func TestModelAppendsOverlayEventsToFeed(t *testing.T) {
	m := testModel()

	updated, cmd := m.Update(envelopeMsg(broadcast.NewEnvelope(broadcast.TypeStartTalking, map[string]any{"mood": "happy"})))
	m = updated.(*Model)

	if cmd == nil {
		t.Fatalf("expected the model to keep waiting for events")
	}
	if len(m.feed) != 1 {
		t.Fatalf("expected one feed line, got %d", len(m.feed))
	}
	if !strings.Contains(m.feed[0], broadcast.TypeStartTalking) {
		t.Fatalf("feed line missing event type: %q", m.feed[0])
	}
}

func TestModelCapsFeedLength(t *testing.T) {
	m := testModel()

	for i := 0; i < maxFeedLines+10; i++ {
		m.appendEvent(broadcast.NewEnvelope(broadcast.TypeSetHat, map[string]any{"hat": "hat1"}))
	}
	if len(m.feed) != maxFeedLines {
		t.Fatalf("expected feed capped at %d lines, got %d", maxFeedLines, len(m.feed))
	}
}

func TestModelTogglesListeningOnKey(t *testing.T) {
	m := testModel()

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	m = updated.(*Model)
	if !m.state.Listening() {
		t.Fatalf("expected l to enable listening")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	m = updated.(*Model)
	if m.state.Listening() {
		t.Fatalf("expected second l to disable listening")
	}
}

func TestViewShowsSessionStatus(t *testing.T) {
	m := testModel()
	m.state.SetListening(true)
	m.state.SetMood("angry")
	m.state.SetHat("hat3")

	view := m.View()
	if !strings.Contains(view, "listening") {
		t.Fatalf("view missing listening status:\n%s", view)
	}
	if !strings.Contains(view, "mood: angry") {
		t.Fatalf("view missing mood:\n%s", view)
	}
	if !strings.Contains(view, "hat: hat3") {
		t.Fatalf("view missing hat:\n%s", view)
	}
}

func TestViewShowsQueueDepths(t *testing.T) {
	m := NewModel(session.NewState(), broadcast.NewBus(),
		WithQueueDepths(func() (int, int) { return 2, 5 }))
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(*Model)

	if view := m.View(); !strings.Contains(view, "queued: 2v/5c") {
		t.Fatalf("view missing queue depths:\n%s", view)
	}
}
