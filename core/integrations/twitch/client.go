// Package twitch reads a channel's chat over the Twitch IRC websocket
// gateway and feeds mention-relevant messages into the orchestrator's chat
// lane. It can also echo generated replies back into the channel.
package twitch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

const twitchIRCURL = "wss://irc-ws.chat.twitch.tv:443"

// maxEchoRunes keeps echoed replies inside Twitch's message length limit
// with room for the mention prefix.
const maxEchoRunes = 350

// defaultKeywords gate which chat messages reach the model. Twitch chat
// moves fast, responding to everything would starve the voice lane.
var defaultKeywords = []string{"questboo", "duck", "chicken"}

type Client struct {
	channel  string
	botUser  string
	token    string
	keywords []string

	onMessage func(user, text string)

	conn    *websocket.Conn
	writeMu sync.Mutex

	stopOnce sync.Once
	stop     chan struct{}
}

type ClientOption func(*Client)

// WithKeywords replaces the default mention keywords. An empty list lets
// every message through.
func WithKeywords(keywords ...string) ClientOption {
	return func(c *Client) { c.keywords = keywords }
}

// WithMessageCallback sets the callback invoked for each relevant chat
// message.
func WithMessageCallback(callback func(user, text string)) ClientOption {
	return func(c *Client) { c.onMessage = callback }
}

// SetMessageCallback replaces the message callback. Useful when the client
// has to exist before its consumer does. Call it before Listen.
func (c *Client) SetMessageCallback(callback func(user, text string)) {
	c.onMessage = callback
}

func NewClient(channel, botUser, token string, opts ...ClientOption) (*Client, error) {
	if channel == "" {
		return nil, fmt.Errorf("twitch channel is required")
	}
	if botUser == "" {
		return nil, fmt.Errorf("twitch bot user is required")
	}
	if token == "" {
		return nil, fmt.Errorf("twitch token is required")
	}

	client := &Client{
		channel:  strings.ToLower(strings.TrimPrefix(channel, "#")),
		botUser:  strings.ToLower(botUser),
		token:    token,
		keywords: defaultKeywords,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Connect dials the IRC gateway, authenticates and joins the channel.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, twitchIRCURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to twitch irc: %w", err)
	}
	c.conn = conn

	token := c.token
	if !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}

	for _, line := range []string{
		"PASS " + token,
		"NICK " + c.botUser,
		"CAP REQ :twitch.tv/tags twitch.tv/commands",
		"JOIN #" + c.channel,
	} {
		if err := c.writeLine(line); err != nil {
			conn.Close()
			return fmt.Errorf("failed to log in to twitch irc: %w", err)
		}
	}

	logger.Info("connected to twitch chat", "channel", c.channel)
	return nil
}

// Listen reads chat until the context is cancelled or the connection drops.
// It blocks, so run it on its own goroutine.
func (c *Client) Listen(ctx context.Context) error {
	if c.conn == nil {
		return fmt.Errorf("twitch client is not connected")
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-c.stop:
		}
		c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-c.stop:
				return nil
			default:
				return fmt.Errorf("failed to read from twitch irc: %w", err)
			}
		}

		// The gateway batches multiple IRC lines per websocket frame.
		for _, line := range strings.Split(string(payload), "\r\n") {
			if line == "" {
				continue
			}
			c.handleLine(ctx, line)
		}
	}
}

func (c *Client) handleLine(ctx context.Context, line string) {
	message := parseLine(line)

	switch message.command {
	case "PING":
		if err := c.writeLine("PONG :" + message.trailing); err != nil {
			logger.Warn("failed to answer twitch ping", "error", err)
		}
	case "PRIVMSG":
		c.handleChatMessage(ctx, message)
	case "NOTICE":
		logger.Warn("twitch notice", "notice", message.trailing)
	case "RECONNECT":
		logger.Warn("twitch requested a reconnect")
	}
}

func (c *Client) handleChatMessage(ctx context.Context, message ircMessage) {
	user := message.displayName()
	text := message.trailing

	if strings.EqualFold(senderNick(message.prefix), c.botUser) {
		return
	}
	if !c.matchesKeywords(text) {
		return
	}

	_, span := tracer.Start(ctx, "chat message")
	defer span.End()

	logger.Debug("relevant chat message", "user", user)
	if c.onMessage != nil {
		c.onMessage(user, text)
	}
}

// matchesKeywords reports whether the message mentions any configured
// keyword. An empty keyword list matches everything.
func (c *Client) matchesKeywords(text string) bool {
	if len(c.keywords) == 0 {
		return true
	}

	lowered := strings.ToLower(text)
	for _, keyword := range c.keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// Echo sends a reply back into the channel mentioning the original author.
func (c *Client) Echo(user, reply string) error {
	if c.conn == nil {
		return fmt.Errorf("twitch client is not connected")
	}

	message := "@" + user + " " + reply
	if runes := []rune(message); len(runes) > maxEchoRunes {
		message = string(runes[:maxEchoRunes])
	}

	return c.writeLine("PRIVMSG #" + c.channel + " :" + message)
}

func (c *Client) writeLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

func (c *Client) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}
