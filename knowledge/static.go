package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// StaticProvider serves course content from in-memory fixtures. It
// backs tests and offline demos and doubles as the GraphWriter target
// for dry-run content loads.
type StaticProvider struct {
	mu         sync.RWMutex
	practices  map[int]PracticeRecord
	exercises  map[string]ExerciseRecord
	tips       []Tip
	objectives map[string][]string
	concepts   map[string]string
}

var (
	_ Provider    = (*StaticProvider)(nil)
	_ GraphWriter = (*StaticProvider)(nil)
)

// NewStaticProvider returns an empty provider; populate it through the
// Upsert methods.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		practices:  make(map[int]PracticeRecord),
		exercises:  make(map[string]ExerciseRecord),
		objectives: make(map[string][]string),
		concepts:   make(map[string]string),
	}
}

func exerciseKey(practice int, section, id string) string {
	return fmt.Sprintf("%d/%s/%s", practice, section, id)
}

func (p *StaticProvider) PracticeDetails(_ context.Context, practiceNumber int) (*PracticeRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec, ok := p.practices[practiceNumber]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (p *StaticProvider) ExerciseDetails(_ context.Context, practiceNumber int, section, exerciseID string) (*ExerciseRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec, ok := p.exercises[exerciseKey(practiceNumber, section, exerciseID)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (p *StaticProvider) PracticeTips(_ context.Context, practiceNumber int, section, exerciseID string) ([]Tip, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []Tip
	for _, tip := range p.tips {
		if tip.PracticeNumber != practiceNumber {
			continue
		}
		if section != "" && tip.Section != "" && tip.Section != section {
			continue
		}
		if exerciseID != "" && tip.ExerciseID != "" && tip.ExerciseID != exerciseID {
			continue
		}
		out = append(out, tip)
	}
	return out, nil
}

func (p *StaticProvider) SubjectObjectives(_ context.Context, subject string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return append([]string(nil), p.objectives[subject]...), nil
}

func (p *StaticProvider) TheoryContent(_ context.Context, concept string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.concepts[concept], nil
}

func (p *StaticProvider) Search(_ context.Context, query string, limit int) ([]SearchHit, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	needle := strings.ToLower(query)
	var hits []SearchHit

	numbers := make([]int, 0, len(p.practices))
	for n := range p.practices {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	for _, n := range numbers {
		rec := p.practices[n]
		if containsFold(rec.Title, needle) || containsFold(rec.Description, needle) {
			hits = append(hits, SearchHit{Kind: "Practice", Title: rec.Title, Snippet: rec.Description})
		}
	}

	keys := make([]string, 0, len(p.exercises))
	for k := range p.exercises {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rec := p.exercises[k]
		if containsFold(rec.Statement, needle) {
			hits = append(hits, SearchHit{
				Kind:    "Exercise",
				Title:   fmt.Sprintf("Práctica %d, %s.%s", rec.PracticeNumber, rec.Section, rec.ExerciseID),
				Snippet: rec.Statement,
			})
		}
	}

	names := make([]string, 0, len(p.concepts))
	for name := range p.concepts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if containsFold(name, needle) || containsFold(p.concepts[name], needle) {
			hits = append(hits, SearchHit{Kind: "Concept", Title: name, Snippet: p.concepts[name]})
		}
	}

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func containsFold(haystack, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(haystack), lowerNeedle)
}

func (p *StaticProvider) UpsertPractice(_ context.Context, rec PracticeRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.practices[rec.Number] = rec
	return nil
}

func (p *StaticProvider) UpsertExercise(_ context.Context, rec ExerciseRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.exercises[exerciseKey(rec.PracticeNumber, rec.Section, rec.ExerciseID)] = rec
	return nil
}

func (p *StaticProvider) UpsertTip(_ context.Context, tip Tip) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, existing := range p.tips {
		if existing == tip {
			return nil
		}
	}
	p.tips = append(p.tips, tip)
	return nil
}

func (p *StaticProvider) UpsertConcept(_ context.Context, name, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.concepts[name] = content
	return nil
}

func (p *StaticProvider) UpsertObjective(_ context.Context, subject, objective string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, existing := range p.objectives[subject] {
		if existing == objective {
			return nil
		}
	}
	p.objectives[subject] = append(p.objectives[subject], objective)
	return nil
}
