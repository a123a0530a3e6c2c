package llms

import "context"

// Stream is a lazily-evaluated completion; Chunks drives the request and
// yields deltas as they arrive.
type Stream interface {
	Chunks(context.Context) func(func(StreamChunk, error) bool)
}

type StreamChunk interface {
	FinishReason() *string
}

type StreamContentChunk interface {
	StreamChunk
	Content() string
}

type StreamToolCallChunk interface {
	StreamChunk
	ToolCall() ToolCall
}

type StreamUsageChunk interface {
	StreamChunk
	Usage() Usage
}

// Usage reports token accounting for a completed request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
