// Package openaicompat adapts any OpenAI-compatible chat completion API
// to the langchaingo llms.Model interface, so the workflows can run
// against OpenAI itself or any compatible stack behind a base URL.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/callbacks"
	"github.com/tmc/langchaingo/llms"
)

var (
	ErrEmptyResponse = errors.New("no response")
	ErrMissingAPIKey = errors.New("missing API key")
)

// completer is the slice of the go-openai client the adapter uses.
type completer interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Chat is an llms.Model over an OpenAI-compatible chat endpoint.
type Chat struct {
	client           completer
	model            string
	CallbacksHandler callbacks.Handler
}

var _ llms.Model = (*Chat)(nil)

// New returns a new Chat client.
//
// Authentication options:
// 1. WithAPIKey(apiKey) - pass API key directly
// 2. Set OPENAI_API_KEY environment variable
//
// Example:
//
//	model, err := openaicompat.New(
//		openaicompat.WithBaseURL("http://localhost:11434/v1"),
//		openaicompat.WithModel("llama3.1"),
//	)
func New(opts ...Option) (*Chat, error) {
	options := &options{
		apiKey:  getEnvOrDefault("OPENAI_API_KEY", ""),
		model:   DefaultModel,
		baseURL: getEnvOrDefault("OPENAI_BASE_URL", DefaultBaseURL),
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.apiKey == "" {
		return nil, fmt.Errorf(`%w
You can pass auth info by using openaicompat.New(openaicompat.WithAPIKey("{API Key}"))
or
export OPENAI_API_KEY={API Key}`, ErrMissingAPIKey)
	}

	config := openai.DefaultConfig(options.apiKey)
	config.BaseURL = options.baseURL
	if options.httpClient != nil {
		config.HTTPClient = options.httpClient
	}

	return &Chat{
		client:           openai.NewClientWithConfig(config),
		model:            options.model,
		CallbacksHandler: options.callbacksHandler,
	}, nil
}

// Call generates a response for a single prompt.
func (o *Chat) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, o, prompt, options...)
}

// GenerateContent implements the Model interface.
func (o *Chat) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if o.CallbacksHandler != nil {
		o.CallbacksHandler.HandleLLMGenerateContentStart(ctx, messages)
	}

	opts := &llms.CallOptions{}
	for _, opt := range options {
		opt(opts)
	}

	req := openai.ChatCompletionRequest{
		Model:       o.modelFor(*opts),
		Messages:    toOpenAIMessages(messages),
		Temperature: float32(opts.Temperature),
		TopP:        float32(opts.TopP),
		MaxTokens:   opts.MaxTokens,
		Stop:        opts.StopWords,
	}

	result, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if o.CallbacksHandler != nil {
			o.CallbacksHandler.HandleLLMError(ctx, err)
		}
		return nil, err
	}

	if len(result.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choices := make([]*llms.ContentChoice, 0, len(result.Choices))
	for _, c := range result.Choices {
		choice := &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: string(c.FinishReason),
			GenerationInfo: map[string]any{
				"prompt_tokens":     result.Usage.PromptTokens,
				"completion_tokens": result.Usage.CompletionTokens,
				"total_tokens":      result.Usage.TotalTokens,
			},
		}
		choices = append(choices, choice)
	}

	resp := &llms.ContentResponse{Choices: choices}

	if o.CallbacksHandler != nil {
		o.CallbacksHandler.HandleLLMGenerateContentEnd(ctx, resp)
	}

	return resp, nil
}

func (o *Chat) modelFor(opts llms.CallOptions) string {
	if opts.Model != "" {
		return opts.Model
	}
	if o.model != "" {
		return o.model
	}
	return DefaultModel
}

func toOpenAIMessages(messages []llms.MessageContent) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		var role string
		switch msg.Role {
		case llms.ChatMessageTypeSystem:
			role = openai.ChatMessageRoleSystem
		case llms.ChatMessageTypeAI:
			role = openai.ChatMessageRoleAssistant
		case llms.ChatMessageTypeTool, llms.ChatMessageTypeFunction:
			role = openai.ChatMessageRoleTool
		default:
			role = openai.ChatMessageRoleUser
		}

		var content strings.Builder
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				content.WriteString(text.Text)
			}
		}

		out = append(out, openai.ChatCompletionMessage{
			Role:    role,
			Content: content.String(),
		})
	}
	return out
}
