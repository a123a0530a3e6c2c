package openrouter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kingbootoshi/Stream-Buddy/core/llms"
	"github.com/kingbootoshi/Stream-Buddy/internal/utils"
)

const (
	url = "https://openrouter.ai/api/v1/chat/completions"

	endMessage  = "[DONE]"
	chunkPrefix = "data:"

	// OpenRouter uses these to attribute traffic on their dashboard.
	refererHeader = "https://github.com/kingbootoshi/Stream-Buddy"
	titleHeader   = "Stream-Buddy"
)

func PromptWithStream(
	_ context.Context,
	apiKey string,
	model string,
	prompt *string,
	systemPrompt string,
	baseTools []llms.Tool,
	history ...llms.Message,
) *Stream {
	messages := []message{}
	if systemPrompt != "" {
		messages = append(messages, message{
			Role:    messageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, toMessages(history)...)
	if prompt != nil {
		messages = append(messages, message{
			Role:    messageRoleUser,
			Content: *prompt,
		})
	}

	var tools []llms.Tool
	if baseTools != nil {
		copier.Copy(&tools, baseTools)
	}

	return &Stream{
		apiKey:   apiKey,
		model:    model,
		tools:    tools,
		messages: messages,
	}
}

type Stream struct {
	apiKey string

	model    string
	tools    []llms.Tool
	messages []message
}

func (s *Stream) Chunks(ctx context.Context) func(func(llms.StreamChunk, error) bool) {
	requestToFirstTokenTime := time.Time{}
	setRequestToFirstTokenTime := func(span trace.Span) {
		if requestToFirstTokenTime.IsZero() {
			return
		}
		span.SetAttributes(attribute.Float64("response.request_to_first_token_time", time.Since(requestToFirstTokenTime).Seconds()))
		span.AddEvent("received first chunk")
		requestToFirstTokenTime = time.Time{}
	}

	return func(yield func(llms.StreamChunk, error) bool) {
		ctx, span := tracer.Start(ctx, "prompt llm stream")
		defer span.End()
		span.SetAttributes(attribute.String("request.model", s.model))
		var toolNames []string
		for _, tool := range s.tools {
			toolNames = append(toolNames, tool.Function.Name)
		}
		span.SetAttributes(attribute.StringSlice("request.available_tools", toolNames))

		var toolChoice *string
		if s.tools != nil {
			toolChoice = utils.Ptr("auto")
		}

		reqBody := requestBody{
			Model:      s.model,
			Messages:   s.messages,
			Stream:     true,
			Tools:      s.tools,
			ToolChoice: toolChoice,
		}

		requestBodyBytes, err := json.Marshal(reqBody)
		if err != nil {
			err = fmt.Errorf("error marshalling JSON: %w", err)
			span.RecordError(err)
			yield(nil, err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBodyBytes))
		if err != nil {
			err = fmt.Errorf("error creating HTTP request: %w", err)
			span.RecordError(err)
			yield(nil, err)
			return
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		req.Header.Set("HTTP-Referer", refererHeader)
		req.Header.Set("X-Title", titleHeader)

		span.SetAttributes(attribute.String("request.url", req.URL.String()))
		client := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)}
		requestToFirstTokenTime = time.Now()
		span.AddEvent("request started")
		resp, err := client.Do(req)
		if err != nil {
			err = fmt.Errorf("error sending request: %w", err)
			span.RecordError(err)
			yield(nil, err)
			return
		}
		defer resp.Body.Close()

		span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
		if resp.StatusCode != http.StatusOK {
			if errorBody, err := io.ReadAll(resp.Body); err != nil {
				err = fmt.Errorf("error reading error body: %w", err)
				span.RecordError(err)
			} else {
				span.SetAttributes(attribute.String("response.error", string(errorBody)))
			}

			err := fmt.Errorf("non-OK HTTP status: %s", resp.Status)
			span.RecordError(err)
			yield(nil, err)
			return
		}

		toolCalls := []toolCall{}
		defer func() {
			toolNames := []string{}
			for _, toolCall := range toolCalls {
				toolNames = append(toolNames, toolCall.Function.Name)
			}
			span.SetAttributes(attribute.StringSlice("response.tool_calls", toolNames))
		}()
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			chunk := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), chunkPrefix))
			setRequestToFirstTokenTime(span)

			if len(chunk) == 0 {
				continue
			}

			if chunk == endMessage {
				break
			}

			// OpenRouter interleaves SSE comments as keep-alives.
			if strings.HasPrefix(chunk, ":") {
				continue
			}

			var responseBody streamingResponseBody
			err := json.Unmarshal([]byte(chunk), &responseBody)
			if err != nil {
				err = fmt.Errorf("error unmarshalling JSON: %w", err)
				span.RecordError(err)
				if !yield(nil, err) {
					return
				}
				continue
			}

			var finishReason *string
			if len(responseBody.Choices) > 0 {
				choice := responseBody.Choices[0]
				if choice.FinishReason != nil {
					finishReason = choice.FinishReason
				}

				if len(choice.Delta.ToolCalls) > 0 {
					toolCalls = append(toolCalls, choice.Delta.ToolCalls...)
					for _, toolCall := range choice.Delta.ToolCalls {
						if !yield(StreamToolCallChunk{
							finishReason: finishReason,
							toolCall: llms.ToolCall{
								ID:        toolCall.ID,
								Name:      toolCall.Function.Name,
								Arguments: toolCall.Function.Arguments,
							},
						}, nil) {
							return
						}
					}
				}

				if choice.Delta.Content != "" {
					if !yield(StreamContentChunk{
						finishReason: finishReason,
						content:      choice.Delta.Content,
					}, nil) {
						return
					}
				}
			}

			if responseBody.Usage != nil {
				span.SetAttributes(attribute.Int("usage.input", responseBody.Usage.PromptTokens))
				span.SetAttributes(attribute.Int("usage.output", responseBody.Usage.CompletionTokens))
				span.SetAttributes(attribute.Int("usage.total", responseBody.Usage.TotalTokens))

				if !yield(StreamUsageChunk{
					finishReason: finishReason,
					usage: llms.Usage{
						InputTokens:  responseBody.Usage.PromptTokens,
						OutputTokens: responseBody.Usage.CompletionTokens,
						TotalTokens:  responseBody.Usage.TotalTokens,
					},
				}, nil) {
					return
				}
			}
		}

		if err := scanner.Err(); err != nil {
			yield(nil, fmt.Errorf("error reading streamed response: %w", err))
			return
		}
	}
}

type requestBody struct {
	Model      string      `json:"model"`
	Messages   []message   `json:"messages"`
	Stream     bool        `json:"stream"`
	ToolChoice *string     `json:"tool_choice,omitempty"`
	Tools      []llms.Tool `json:"tools,omitempty"`
}

type streamingResponseBody struct {
	Choices []struct {
		Delta struct {
			Role      string     `json:"role,omitempty"`
			Content   string     `json:"content,omitempty"`
			ToolCalls []toolCall `json:"tool_calls,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason,omitempty"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type StreamContentChunk struct {
	finishReason *string
	content      string
}

func (s StreamContentChunk) FinishReason() *string {
	return s.finishReason
}

func (s StreamContentChunk) Content() string {
	return s.content
}

type StreamToolCallChunk struct {
	finishReason *string
	toolCall     llms.ToolCall
}

func (s StreamToolCallChunk) FinishReason() *string {
	return s.finishReason
}

func (s StreamToolCallChunk) ToolCall() llms.ToolCall {
	return s.toolCall
}

type StreamUsageChunk struct {
	finishReason *string
	usage        llms.Usage
}

func (s StreamUsageChunk) FinishReason() *string {
	return s.finishReason
}

func (s StreamUsageChunk) Usage() llms.Usage {
	return s.usage
}
