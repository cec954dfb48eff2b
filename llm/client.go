package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/lucaproject/luca-core/log"
)

// ErrEmptyResponse is returned when the model produced no choices.
var ErrEmptyResponse = errors.New("llm: empty response")

// Client wraps an llms.Model with logging. It is the single seam the
// workflows call an LLM through; classification, extraction, analysis
// and synthesis all go through Generate.
type Client struct {
	model  llms.Model
	logger log.Logger
}

// NewClient creates a Client over any langchaingo model.
func NewClient(model llms.Model) *Client {
	return &Client{
		model:  model,
		logger: log.GetDefaultLogger(),
	}
}

// SetLogger overrides the client's logger.
func (c *Client) SetLogger(logger log.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Generate runs one completion over a structured message list and
// returns the raw text of the first choice.
func (c *Client) Generate(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (string, error) {
	resp, err := c.model.GenerateContent(ctx, messages, options...)
	if err != nil {
		c.logger.Warn("llm: generation failed: %v", err)
		return "", fmt.Errorf("llm generation failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}

// GenerateText is a convenience wrapper for the common system+user
// prompt shape.
func (c *Client) GenerateText(ctx context.Context, system, user string, options ...llms.CallOption) (string, error) {
	messages := []llms.MessageContent{}
	if system != "" {
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		})
	}
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(user)},
	})
	return c.Generate(ctx, messages, options...)
}
