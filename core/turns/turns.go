// Package turns defines the canonical pending-turn record shared between the
// source adapters, the turn arbiter and the shared session state.
package turns

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Origin is the producer category a turn came from.
type Origin string

const (
	OriginVoice   Origin = "voice"
	OriginChat    Origin = "chat"
	OriginUnknown Origin = "unknown"
)

// PendingTurn is one admitted, not-yet-released unit of conversation input.
//
// A pending turn is owned by exactly one arbiter queue at a time and is
// destroyed when it is released to the downstream consumer or explicitly
// discarded by policy.
type PendingTurn struct {
	ID        string
	Origin    Origin
	SpeakerID string
	Content   string
	// Display is the canonical display string handed to the downstream
	// consumer, e.g. "Twitch Chat User [alice] says [hi]".
	Display  string
	QueuedAt time.Time
}

func (t PendingTurn) String() string {
	return t.Display
}

// NewVoiceTurn builds a voice-originated pending turn attributed to the
// configured streamer name. Voice turns carry no speaker id.
func NewVoiceTurn(speakerName, content string) PendingTurn {
	return PendingTurn{
		ID:       uuid.NewString(),
		Origin:   OriginVoice,
		Content:  content,
		Display:  VoiceDisplay(speakerName, content),
		QueuedAt: time.Now(),
	}
}

// NewChatTurn builds a chat-originated pending turn attributed to the chat
// author.
func NewChatTurn(speakerID, content string) PendingTurn {
	return PendingTurn{
		ID:        uuid.NewString(),
		Origin:    OriginChat,
		SpeakerID: speakerID,
		Content:   content,
		Display:   ChatDisplay(speakerID, content),
		QueuedAt:  time.Now(),
	}
}

// VoiceDisplay renders the canonical display string for non-attributed voice
// input.
func VoiceDisplay(speakerName, content string) string {
	return fmt.Sprintf("[%s] says %s", speakerName, content)
}

// ChatDisplay renders the canonical display string for chat input.
func ChatDisplay(user, content string) string {
	return fmt.Sprintf("Twitch Chat User [%s] says [%s]", user, content)
}

// ParseChatDisplay recovers the user and message from a canonical chat
// display string. The second return is false if the string does not follow
// the canonical shape; callers should then treat the whole string as content.
func ParseChatDisplay(display string) (user, content string, ok bool) {
	const prefix = "Twitch Chat User ["
	const infix = "] says ["

	if !strings.HasPrefix(display, prefix) || !strings.HasSuffix(display, "]") {
		return "", display, false
	}

	rest := strings.TrimPrefix(display, prefix)
	idx := strings.Index(rest, infix)
	if idx < 0 {
		return "", display, false
	}

	user = rest[:idx]
	content = strings.TrimSuffix(rest[idx+len(infix):], "]")
	return user, content, true
}
