package orchestration

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kingbootoshi/Stream-Buddy/core/audio"
	"github.com/kingbootoshi/Stream-Buddy/core/llms"
	"github.com/kingbootoshi/Stream-Buddy/core/llms/openrouter"
	"github.com/kingbootoshi/Stream-Buddy/core/texttospeech"
	"github.com/kingbootoshi/Stream-Buddy/core/turns"
)

// Responder consumes a released turn: it generates and voices the reply.
// Respond returns once the reply has been fully delivered.
type Responder interface {
	Respond(ctx context.Context, turn turns.PendingTurn) error
}

// SpeechSynthesizer opens streaming speech generators, one per reply.
type SpeechSynthesizer interface {
	NewSpeechGenerator(ctx context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGenerator, error)
}

// AudioOutput plays synthesized speech.
type AudioOutput interface {
	SendAudio(audio []byte) error
	ClearBuffer()
	AwaitMark() error
	EncodingInfo() audio.EncodingInfo
}

const defaultHistoryLimit = 24

// PipelineResponder turns a released turn into a spoken reply: LLM stream
// in, sentence-sized TTS chunks out, audio to the playback device. Chat
// turns additionally get their reply echoed back through the chat callback.
type PipelineResponder struct {
	apiKey       string
	model        string
	systemPrompt string
	tools        []llms.Tool

	synthesizer SpeechSynthesizer
	audioOutput AudioOutput
	onChatReply func(user, reply string)

	history      []llms.Message
	historyLimit int
	historyMu    sync.Mutex

	promptStream func(ctx context.Context, prompt string, history []llms.Message) llms.Stream
}

type ResponderOption func(*PipelineResponder)

func WithResponderTools(tools ...llms.Tool) ResponderOption {
	return func(r *PipelineResponder) { r.tools = append(r.tools, tools...) }
}

func WithSpeechSynthesizer(synthesizer SpeechSynthesizer) ResponderOption {
	return func(r *PipelineResponder) { r.synthesizer = synthesizer }
}

func WithAudioOutput(output AudioOutput) ResponderOption {
	return func(r *PipelineResponder) { r.audioOutput = output }
}

// WithChatReplyCallback sets the callback used to echo replies to chat
// turns back to the chat platform.
func WithChatReplyCallback(callback func(user, reply string)) ResponderOption {
	return func(r *PipelineResponder) { r.onChatReply = callback }
}

func WithHistoryLimit(limit int) ResponderOption {
	return func(r *PipelineResponder) {
		if limit > 0 {
			r.historyLimit = limit
		}
	}
}

func NewPipelineResponder(apiKey, model, systemPrompt string, opts ...ResponderOption) *PipelineResponder {
	responder := &PipelineResponder{
		apiKey:       apiKey,
		model:        model,
		systemPrompt: systemPrompt,
		historyLimit: defaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(responder)
	}

	if responder.promptStream == nil {
		responder.promptStream = func(ctx context.Context, prompt string, history []llms.Message) llms.Stream {
			return openrouter.PromptWithStream(ctx, responder.apiKey, responder.model,
				&prompt, responder.systemPrompt, responder.tools, history...)
		}
	}
	return responder
}

func (r *PipelineResponder) Respond(ctx context.Context, turn turns.PendingTurn) error {
	ctx, span := tracer.Start(ctx, "respond to turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("turn.origin", string(turn.Origin)),
		attribute.String("turn.id", turn.ID),
	)

	generator, speechDone, err := r.openSpeech(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	content, toolCalls, err := r.generate(ctx, turn, generator)
	if generator != nil {
		if endErr := generator.EndOfText(); endErr != nil {
			span.RecordError(fmt.Errorf("failed to end speech stream: %w", endErr))
		}
	}
	if err != nil {
		if generator != nil {
			_ = generator.Cancel()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to generate response: %w", err)
	}

	if generator != nil && content != "" {
		select {
		case <-speechDone:
		case <-ctx.Done():
			_ = generator.Cancel()
			return ctx.Err()
		}
		if r.audioOutput != nil {
			if err := r.audioOutput.AwaitMark(); err != nil {
				span.RecordError(fmt.Errorf("failed to await playback: %w", err))
			}
		}
	} else if generator != nil {
		_ = generator.Cancel()
	}

	r.remember(turn.Display, content, toolCalls)

	if turn.Origin == turns.OriginChat && turn.SpeakerID != "" && content != "" && r.onChatReply != nil {
		r.onChatReply(turn.SpeakerID, content)
	}

	return nil
}

// openSpeech opens a speech generator wired to the audio output. The done
// channel closes once all requested speech has been generated.
func (r *PipelineResponder) openSpeech(ctx context.Context) (texttospeech.SpeechGenerator, chan struct{}, error) {
	if r.synthesizer == nil {
		return nil, nil, nil
	}

	speechDone := make(chan struct{})
	var closeOnce sync.Once

	opts := []texttospeech.TextToSpeechOption{
		texttospeech.WithSpeechEndedCallback(func(texttospeech.SpeechEndedReport) {
			closeOnce.Do(func() { close(speechDone) })
		}),
		texttospeech.WithErrorCallback(func(err error) {
			logger.Warn("speech generation error", "error", err)
			closeOnce.Do(func() { close(speechDone) })
		}),
	}
	if r.audioOutput != nil {
		opts = append(opts,
			texttospeech.WithEncodingInfo(r.audioOutput.EncodingInfo()),
			texttospeech.WithSpeechAudioCallback(func(chunk []byte) {
				if err := r.audioOutput.SendAudio(chunk); err != nil {
					logger.Warn("failed to queue speech audio", "error", err)
				}
			}),
		)
	}

	generator, err := r.synthesizer.NewSpeechGenerator(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open speech generator: %w", err)
	}
	return generator, speechDone, nil
}

// generate drives the LLM stream, forwarding sentence-sized chunks to the
// speech generator as they complete.
func (r *PipelineResponder) generate(ctx context.Context, turn turns.PendingTurn, generator texttospeech.SpeechGenerator) (string, []llms.ToolCall, error) {
	stream := r.promptStream(ctx, turn.Display, r.snapshotHistory())

	var response strings.Builder
	var sentence strings.Builder
	var toolCalls []llms.ToolCall

	sendSentence := func() {
		if generator == nil || sentence.Len() == 0 {
			return
		}
		if err := generator.SendText(sentence.String()); err != nil {
			logger.Warn("failed to send text to speech generator", "error", err)
		}
		if err := generator.Mark(); err != nil {
			logger.Warn("failed to mark speech stream", "error", err)
		}
		sentence.Reset()
	}

	var streamErr error
	stream.Chunks(ctx)(func(chunk llms.StreamChunk, err error) bool {
		if err != nil {
			streamErr = err
			return false
		}

		switch chunk := chunk.(type) {
		case llms.StreamContentChunk:
			response.WriteString(chunk.Content())
			sentence.WriteString(chunk.Content())
			if strings.ContainsAny(chunk.Content(), ".?!") {
				sendSentence()
			}
		case llms.StreamToolCallChunk:
			toolCalls = append(toolCalls, chunk.ToolCall())
		}
		return true
	})
	if streamErr != nil {
		return response.String(), nil, streamErr
	}

	sendSentence()

	for i := range toolCalls {
		r.executeToolCall(ctx, &toolCalls[i])
	}

	return response.String(), toolCalls, nil
}

func (r *PipelineResponder) executeToolCall(ctx context.Context, toolCall *llms.ToolCall) {
	_, span := tracer.Start(ctx, "execute tool")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", toolCall.Name))

	for _, tool := range r.tools {
		if tool.Function.Name != toolCall.Name {
			continue
		}
		resp, err := tool.Execute(toolCall.Arguments)
		if err != nil {
			err = fmt.Errorf("failed to execute tool %q: %w", toolCall.Name, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		toolCall.Response = resp
		return
	}

	err := fmt.Errorf("tool not found: %s", toolCall.Name)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (r *PipelineResponder) snapshotHistory() []llms.Message {
	r.historyMu.Lock()
	defer r.historyMu.Unlock()
	history := make([]llms.Message, len(r.history))
	copy(history, r.history)
	return history
}

func (r *PipelineResponder) remember(prompt, response string, toolCalls []llms.ToolCall) {
	r.historyMu.Lock()
	defer r.historyMu.Unlock()

	r.history = append(r.history, llms.Message{
		Role:    llms.MessageRoleUser,
		Content: prompt,
	})
	r.history = append(r.history, llms.Message{
		Role:      llms.MessageRoleAssistant,
		Content:   response,
		ToolCalls: toolCalls,
	})

	if overflow := len(r.history) - r.historyLimit; overflow > 0 {
		r.history = append([]llms.Message(nil), r.history[overflow:]...)
	}
}
