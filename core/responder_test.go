package orchestration

import (
	"context"
	"sync"
	"testing"

	"github.com/kingbootoshi/Stream-Buddy/core/llms"
	"github.com/kingbootoshi/Stream-Buddy/core/texttospeech"
	"github.com/kingbootoshi/Stream-Buddy/core/turns"
)

type scriptedStream struct {
	chunks []llms.StreamChunk
}

func (s scriptedStream) Chunks(_ context.Context) func(func(llms.StreamChunk, error) bool) {
	return func(yield func(llms.StreamChunk, error) bool) {
		for _, chunk := range s.chunks {
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

type contentChunk string

func (c contentChunk) FinishReason() *string { return nil }
func (c contentChunk) Content() string      { return string(c) }

type toolCallChunk struct {
	call llms.ToolCall
}

func (c toolCallChunk) FinishReason() *string  { return nil }
func (c toolCallChunk) ToolCall() llms.ToolCall { return c.call }

type fakeSpeechGenerator struct {
	mu        sync.Mutex
	sentences []string
	marks     int
	ended     bool
	onEnded   func(texttospeech.SpeechEndedReport)
}

func (g *fakeSpeechGenerator) SendText(text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sentences = append(g.sentences, text)
	return nil
}

func (g *fakeSpeechGenerator) Mark() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.marks++
	return nil
}

func (g *fakeSpeechGenerator) EndOfText() error {
	g.mu.Lock()
	onEnded := g.onEnded
	g.ended = true
	g.mu.Unlock()
	if onEnded != nil {
		go onEnded(texttospeech.SpeechEndedReport{})
	}
	return nil
}

func (g *fakeSpeechGenerator) Cancel() error { return nil }
func (g *fakeSpeechGenerator) Close() error  { return nil }

type fakeSynthesizer struct {
	generator *fakeSpeechGenerator
}

func (s *fakeSynthesizer) NewSpeechGenerator(_ context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGenerator, error) {
	options := texttospeech.TextToSpeechOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	s.generator.onEnded = options.SpeechEndedCallback
	return s.generator, nil
}

func scriptResponder(chunks []llms.StreamChunk, opts ...ResponderOption) *PipelineResponder {
	responder := NewPipelineResponder("test-key", "test-model", "test prompt", opts...)
	responder.promptStream = func(_ context.Context, _ string, _ []llms.Message) llms.Stream {
		return scriptedStream{chunks: chunks}
	}
	return responder
}

func TestResponderStreamsSentencesToSpeech(t *testing.T) {
	generator := &fakeSpeechGenerator{}
	responder := scriptResponder(
		[]llms.StreamChunk{
			contentChunk("Hello the"),
			contentChunk("re!"),
			contentChunk(" How are you?"),
		},
		WithSpeechSynthesizer(&fakeSynthesizer{generator: generator}),
	)

	err := responder.Respond(context.Background(), turns.NewVoiceTurn("Bootoshi", "hi"))
	if err != nil {
		t.Fatalf("failed to respond: %v", err)
	}

	generator.mu.Lock()
	defer generator.mu.Unlock()
	if len(generator.sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %v", len(generator.sentences), generator.sentences)
	}
	if generator.sentences[0] != "Hello there!" {
		t.Fatalf("unexpected first sentence: %q", generator.sentences[0])
	}
	if generator.sentences[1] != " How are you?" {
		t.Fatalf("unexpected second sentence: %q", generator.sentences[1])
	}
	if generator.marks != 2 {
		t.Fatalf("expected a mark per sentence, got %d", generator.marks)
	}
	if !generator.ended {
		t.Fatalf("expected the speech stream to be ended")
	}
}

func TestResponderEchoesChatReplies(t *testing.T) {
	var echoedUser, echoedReply string
	responder := scriptResponder(
		[]llms.StreamChunk{contentChunk("Sure thing!")},
		WithChatReplyCallback(func(user, reply string) {
			echoedUser, echoedReply = user, reply
		}),
	)

	err := responder.Respond(context.Background(), turns.NewChatTurn("questboo_fan", "can you wave"))
	if err != nil {
		t.Fatalf("failed to respond: %v", err)
	}
	if echoedUser != "questboo_fan" || echoedReply != "Sure thing!" {
		t.Fatalf("unexpected echo: user=%q reply=%q", echoedUser, echoedReply)
	}

	echoedUser, echoedReply = "", ""
	err = responder.Respond(context.Background(), turns.NewVoiceTurn("Bootoshi", "hello"))
	if err != nil {
		t.Fatalf("failed to respond: %v", err)
	}
	if echoedUser != "" {
		t.Fatalf("voice turns must not be echoed to chat, got user %q", echoedUser)
	}
}

func TestResponderExecutesToolCalls(t *testing.T) {
	var mood string
	tool := llms.NewTool("set_mood", "Change the mood",
		func(parameters struct {
			Mood string `json:"mood"`
		}) (string, error) {
			mood = parameters.Mood
			return "Mood updated", nil
		})

	responder := scriptResponder(
		[]llms.StreamChunk{
			contentChunk("Feeling great!"),
			toolCallChunk{call: llms.ToolCall{
				ID:        "call-1",
				Name:      "set_mood",
				Arguments: `{"mood":"happy"}`,
			}},
		},
		WithResponderTools(tool),
	)

	err := responder.Respond(context.Background(), turns.NewChatTurn("viewer", "how are you"))
	if err != nil {
		t.Fatalf("failed to respond: %v", err)
	}
	if mood != "happy" {
		t.Fatalf("expected tool to set mood happy, got %q", mood)
	}
}

func TestResponderCapsHistory(t *testing.T) {
	responder := scriptResponder(
		[]llms.StreamChunk{contentChunk("Okay.")},
		WithHistoryLimit(4),
	)

	for i := 0; i < 4; i++ {
		if err := responder.Respond(context.Background(), turns.NewChatTurn("viewer", "ping")); err != nil {
			t.Fatalf("failed to respond: %v", err)
		}
	}

	history := responder.snapshotHistory()
	if len(history) != 4 {
		t.Fatalf("expected history capped at 4 messages, got %d", len(history))
	}
	if history[0].Role != llms.MessageRoleUser {
		t.Fatalf("expected oldest kept message to be a user message, got %q", history[0].Role)
	}
}
