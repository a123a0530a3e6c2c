package twitch

import "testing"

func TestParseLinePrivmsgWithTags(t *testing.T) {
	line := "@badge-info=;display-name=QuestFan;mod=0 :questfan!questfan@questfan.tmi.twitch.tv PRIVMSG #bootoshi :hey questboo what game is this"
	message := parseLine(line)

	if message.command != "PRIVMSG" {
		t.Fatalf("unexpected command: %q", message.command)
	}
	if message.displayName() != "QuestFan" {
		t.Fatalf("unexpected display name: %q", message.displayName())
	}
	if senderNick(message.prefix) != "questfan" {
		t.Fatalf("unexpected sender nick: %q", senderNick(message.prefix))
	}
	if len(message.params) != 1 || message.params[0] != "#bootoshi" {
		t.Fatalf("unexpected params: %v", message.params)
	}
	if message.trailing != "hey questboo what game is this" {
		t.Fatalf("unexpected trailing: %q", message.trailing)
	}
}

func TestParseLineFallsBackToNickWithoutDisplayName(t *testing.T) {
	message := parseLine(":alice!alice@alice.tmi.twitch.tv PRIVMSG #bootoshi :hello")
	if message.displayName() != "alice" {
		t.Fatalf("unexpected display name: %q", message.displayName())
	}
}

func TestParseLinePing(t *testing.T) {
	message := parseLine("PING :tmi.twitch.tv")
	if message.command != "PING" {
		t.Fatalf("unexpected command: %q", message.command)
	}
	if message.trailing != "tmi.twitch.tv" {
		t.Fatalf("unexpected trailing: %q", message.trailing)
	}
}

func TestUnescapeTagValue(t *testing.T) {
	if got := unescapeTagValue(`hello\sworld\:ok`); got != "hello world;ok" {
		t.Fatalf("unexpected unescaped value: %q", got)
	}
}

func TestMatchesKeywords(t *testing.T) {
	client := &Client{keywords: []string{"questboo", "duck"}}

	if !client.matchesKeywords("hey QuestBoo, over here") {
		t.Fatalf("expected case-insensitive keyword match")
	}
	if client.matchesKeywords("nothing relevant here") {
		t.Fatalf("expected no match without keywords in text")
	}

	client.keywords = nil
	if !client.matchesKeywords("anything at all") {
		t.Fatalf("expected empty keyword list to match everything")
	}
}
