package twitch

import "strings"

// ircMessage is one parsed line of the Twitch IRC protocol.
type ircMessage struct {
	tags     map[string]string
	prefix   string
	command  string
	params   []string
	trailing string
}

// parseLine parses a raw IRC line, e.g.
//
//	@display-name=Alice :alice!alice@alice.tmi.twitch.tv PRIVMSG #channel :hi
//
// Twitch only sends well-formed lines, so parsing is lenient: missing parts
// come back empty rather than as errors.
func parseLine(line string) ircMessage {
	message := ircMessage{tags: map[string]string{}}
	line = strings.TrimRight(line, "\r\n")

	if strings.HasPrefix(line, "@") {
		rawTags, rest, found := strings.Cut(line[1:], " ")
		if !found {
			return message
		}
		for _, tag := range strings.Split(rawTags, ";") {
			key, value, _ := strings.Cut(tag, "=")
			message.tags[key] = unescapeTagValue(value)
		}
		line = rest
	}

	if strings.HasPrefix(line, ":") {
		prefix, rest, found := strings.Cut(line[1:], " ")
		if !found {
			return message
		}
		message.prefix = prefix
		line = rest
	}

	if params, trailing, found := strings.Cut(line, " :"); found {
		message.trailing = trailing
		line = params
	}

	fields := strings.Fields(line)
	if len(fields) > 0 {
		message.command = fields[0]
		message.params = fields[1:]
	}
	return message
}

// unescapeTagValue reverses the IRCv3 tag value escaping.
func unescapeTagValue(value string) string {
	replacer := strings.NewReplacer(
		`\:`, ";",
		`\s`, " ",
		`\\`, `\`,
		`\r`, "\r",
		`\n`, "\n",
	)
	return replacer.Replace(value)
}

// senderNick extracts the login name from an IRC prefix such as
// "alice!alice@alice.tmi.twitch.tv".
func senderNick(prefix string) string {
	nick, _, _ := strings.Cut(prefix, "!")
	return nick
}

// displayName prefers the display-name tag over the login name.
func (m ircMessage) displayName() string {
	if name := m.tags["display-name"]; name != "" {
		return name
	}
	return senderNick(m.prefix)
}
