package turns

import "testing"

func TestChatDisplayRoundTrip(t *testing.T) {
	display := ChatDisplay("alice", "hello there")
	if display != "Twitch Chat User [alice] says [hello there]" {
		t.Fatalf("unexpected chat display: %q", display)
	}

	user, content, ok := ParseChatDisplay(display)
	if !ok {
		t.Fatalf("expected canonical display to parse")
	}
	if user != "alice" || content != "hello there" {
		t.Fatalf("expected alice/hello there, got %q/%q", user, content)
	}
}

func TestParseChatDisplayKeepsBracketsInContent(t *testing.T) {
	display := ChatDisplay("bob", "use [this] command")

	user, content, ok := ParseChatDisplay(display)
	if !ok {
		t.Fatalf("expected canonical display to parse")
	}
	if user != "bob" || content != "use [this] command" {
		t.Fatalf("expected bracketed content to survive, got %q/%q", user, content)
	}
}

func TestParseChatDisplayRejectsNonCanonical(t *testing.T) {
	if _, content, ok := ParseChatDisplay("just some text"); ok || content != "just some text" {
		t.Fatalf("expected non-canonical text to fall back to raw content")
	}
}

func TestNewVoiceTurnHasNoSpeakerID(t *testing.T) {
	turn := NewVoiceTurn("Bootoshi", "hello")

	if turn.Origin != OriginVoice {
		t.Fatalf("expected voice origin, got %q", turn.Origin)
	}
	if turn.SpeakerID != "" {
		t.Fatalf("expected empty speaker id for voice turn, got %q", turn.SpeakerID)
	}
	if turn.Display != "[Bootoshi] says hello" {
		t.Fatalf("unexpected voice display: %q", turn.Display)
	}
	if turn.ID == "" {
		t.Fatalf("expected turn id to be assigned")
	}
}

func TestNewChatTurnDisplay(t *testing.T) {
	turn := NewChatTurn("alice", "hi")

	if turn.Origin != OriginChat {
		t.Fatalf("expected chat origin, got %q", turn.Origin)
	}
	if turn.Display != "Twitch Chat User [alice] says [hi]" {
		t.Fatalf("unexpected chat display: %q", turn.Display)
	}
}
