package llms

// Message is a single message in a chat-completion conversation.
type Message struct {
	Role       MessageRole
	Content    string
	ToolCallID string
	ToolCalls  []ToolCall
}

// MessageRole describes who the message is from.
type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleTool      MessageRole = "tool"
)

// ToolCall is a function invocation requested by the model, together with
// the response once it has been executed.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
	Response  string
}
