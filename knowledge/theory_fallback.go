package knowledge

import (
	"context"
	"fmt"

	"github.com/lucaproject/luca-core/llm"
	"github.com/lucaproject/luca-core/log"
)

const theoryFallbackSystem = "Sos un docente de bases de datos. Explicá conceptos de forma " +
	"breve y precisa, en español rioplatense, para un estudiante universitario."

// TheoryFallback wraps a Provider and answers TheoryContent through
// the language model when the underlying provider fails or has no
// material. The two paths are interchangeable from the workflows'
// perspective.
type TheoryFallback struct {
	provider Provider
	client   *llm.Client
	logger   log.Logger
}

var _ Provider = (*TheoryFallback)(nil)

// NewTheoryFallback wraps provider with an LLM-backed theory path.
func NewTheoryFallback(provider Provider, client *llm.Client) *TheoryFallback {
	return &TheoryFallback{
		provider: provider,
		client:   client,
		logger:   log.GetDefaultLogger(),
	}
}

// SetLogger overrides the fallback's logger.
func (f *TheoryFallback) SetLogger(logger log.Logger) {
	if logger != nil {
		f.logger = logger
	}
}

func (f *TheoryFallback) PracticeDetails(ctx context.Context, practiceNumber int) (*PracticeRecord, error) {
	return f.provider.PracticeDetails(ctx, practiceNumber)
}

func (f *TheoryFallback) ExerciseDetails(ctx context.Context, practiceNumber int, section, exerciseID string) (*ExerciseRecord, error) {
	return f.provider.ExerciseDetails(ctx, practiceNumber, section, exerciseID)
}

func (f *TheoryFallback) PracticeTips(ctx context.Context, practiceNumber int, section, exerciseID string) ([]Tip, error) {
	return f.provider.PracticeTips(ctx, practiceNumber, section, exerciseID)
}

func (f *TheoryFallback) SubjectObjectives(ctx context.Context, subject string) ([]string, error) {
	return f.provider.SubjectObjectives(ctx, subject)
}

// TheoryContent tries the wrapped provider first and falls back to a
// brief LLM explanation when the provider errors or returns nothing.
func (f *TheoryFallback) TheoryContent(ctx context.Context, concept string) (string, error) {
	content, err := f.provider.TheoryContent(ctx, concept)
	if err == nil && content != "" {
		return content, nil
	}
	if err != nil {
		f.logger.Warn("knowledge: theory lookup failed for %q, falling back to LLM: %v", concept, err)
	}

	prompt := fmt.Sprintf("Explicá brevemente el concepto %q en el contexto de bases de datos.", concept)
	generated, genErr := f.client.GenerateText(ctx, theoryFallbackSystem, prompt)
	if genErr != nil {
		if err != nil {
			return "", fmt.Errorf("theory lookup failed (%v) and LLM fallback failed: %w", err, genErr)
		}
		return "", genErr
	}
	return generated, nil
}

func (f *TheoryFallback) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	return f.provider.Search(ctx, query, limit)
}
