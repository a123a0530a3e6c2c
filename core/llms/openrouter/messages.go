package openrouter

import (
	"github.com/kingbootoshi/Stream-Buddy/core/llms"
)

type message struct {
	Role       messageRole `json:"role"`
	Content    string      `json:"content"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
	ToolCalls  []toolCall  `json:"tool_calls,omitempty"`
}

type messageRole string

const (
	messageRoleSystem    messageRole = "system"
	messageRoleUser      messageRole = "user"
	messageRoleAssistant messageRole = "assistant"
	messageRoleTool      messageRole = "tool"
)

type toolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function toolCallFunction `json:"function"`
}

type toolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func toMessages(history []llms.Message) []message {
	messages := make([]message, 0, len(history))
	for _, entry := range history {
		msg := message{
			Role:       messageRole(entry.Role),
			Content:    entry.Content,
			ToolCallID: entry.ToolCallID,
		}
		for _, tCall := range entry.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, toolCall{
				ID:   tCall.ID,
				Type: "function",
				Function: toolCallFunction{
					Name:      tCall.Name,
					Arguments: tCall.Arguments,
				},
			})
		}
		messages = append(messages, msg)
	}
	return messages
}
