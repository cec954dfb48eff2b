package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel replays queued responses and records the messages it saw.
type fakeModel struct {
	responses []*llms.ContentResponse
	errs      []error
	calls     [][]llms.MessageContent
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls = append(f.calls, messages)
	idx := len(f.calls) - 1
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return &llms.ContentResponse{}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := f.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}

func textResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content}},
	}
}

func TestClientGenerate(t *testing.T) {
	t.Parallel()

	model := &fakeModel{responses: []*llms.ContentResponse{textResponse("hola")}}
	client := NewClient(model)

	out, err := client.Generate(context.Background(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "saludá"),
	})
	require.NoError(t, err)
	assert.Equal(t, "hola", out)
}

func TestClientGenerateEmptyResponse(t *testing.T) {
	t.Parallel()

	model := &fakeModel{responses: []*llms.ContentResponse{{}}}
	client := NewClient(model)

	_, err := client.Generate(context.Background(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "hola"),
	})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestClientGenerateModelError(t *testing.T) {
	t.Parallel()

	boom := errors.New("upstream unavailable")
	model := &fakeModel{errs: []error{boom}}
	client := NewClient(model)

	_, err := client.Generate(context.Background(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "hola"),
	})
	assert.ErrorIs(t, err, boom)
}

func TestClientGenerateText(t *testing.T) {
	t.Parallel()

	model := &fakeModel{responses: []*llms.ContentResponse{textResponse("ok")}}
	client := NewClient(model)

	out, err := client.GenerateText(context.Background(), "sos un tutor", "explicá joins")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	require.Len(t, model.calls, 1)
	require.Len(t, model.calls[0], 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.calls[0][0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.calls[0][1].Role)
}

func TestClientGenerateTextNoSystem(t *testing.T) {
	t.Parallel()

	model := &fakeModel{responses: []*llms.ContentResponse{textResponse("ok")}}
	client := NewClient(model)

	_, err := client.GenerateText(context.Background(), "", "hola")
	require.NoError(t, err)
	require.Len(t, model.calls, 1)
	require.Len(t, model.calls[0], 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.calls[0][0].Role)
}
