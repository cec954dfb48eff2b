package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivedPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		eval GapEvaluation
		want float64
	}{
		{
			name: "all ones",
			eval: GapEvaluation{PedagogicalRelevance: 1, ImpactOnLearning: 1, Addressability: 1},
			want: 1.0,
		},
		{
			name: "weighting",
			eval: GapEvaluation{PedagogicalRelevance: 0.5, ImpactOnLearning: 0.8, Addressability: 0.2},
			want: 0.4*0.5 + 0.4*0.8 + 0.2*0.2,
		},
		{
			name: "addressability counts less",
			eval: GapEvaluation{Addressability: 1},
			want: 0.2,
		},
		{
			name: "zero",
			eval: GapEvaluation{},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, tt.eval.DerivedPriority(), 1e-9)
		})
	}
}

func TestEnsurePriority(t *testing.T) {
	t.Parallel()

	eval := GapEvaluation{PedagogicalRelevance: 0.9, ImpactOnLearning: 0.7, Addressability: 0.5}
	eval.EnsurePriority()
	assert.InDelta(t, 0.74, eval.PriorityScore, 1e-9)

	// A model-supplied score is kept as is.
	supplied := GapEvaluation{PedagogicalRelevance: 0.9, ImpactOnLearning: 0.7, Addressability: 0.5, PriorityScore: 0.33}
	supplied.EnsurePriority()
	assert.InDelta(t, 0.33, supplied.PriorityScore, 1e-9)
}

func TestConversationMemoryAppend(t *testing.T) {
	t.Parallel()

	m := NewConversationMemory("Bases de Datos")
	assert.Equal(t, "Bases de Datos", m.Context.CurrentSubject)

	m.Append(ConversationTurn{Role: RoleStudent, Content: "hola"})
	m.Append(ConversationTurn{Role: RoleAssistant, Content: "hola, ¿en qué te ayudo?"})

	require.Len(t, m.Turns, 2)
	assert.False(t, m.Turns[0].Timestamp.IsZero())

	stamp := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m.Append(ConversationTurn{Role: RoleStudent, Content: "joins", Timestamp: stamp})
	assert.Equal(t, stamp, m.Turns[2].Timestamp)
}

func TestConversationMemoryLastTurns(t *testing.T) {
	t.Parallel()

	m := NewConversationMemory("")
	for i := 0; i < 10; i++ {
		m.Append(ConversationTurn{Role: RoleStudent, Content: "mensaje"})
	}

	assert.Len(t, m.LastTurns(6), 6)
	assert.Len(t, m.LastTurns(20), 10)
	assert.Nil(t, m.LastTurns(0))
}

func TestConversationMemoryAddTopic(t *testing.T) {
	t.Parallel()

	m := NewConversationMemory("")
	m.AddTopic("joins")
	m.AddTopic("joins")
	m.AddTopic("normalización")
	m.AddTopic("")

	assert.Equal(t, []string{"joins", "normalización"}, m.Context.TopicsDiscussed)
}

func TestExerciseReferenceComplete(t *testing.T) {
	t.Parallel()

	ref := ExerciseReference{PracticeNumber: 3, Section: "A", ExerciseID: "2", Confidence: 0.9}
	assert.True(t, ref.Complete())

	assert.False(t, (&ExerciseReference{PracticeNumber: 3, Section: "A"}).Complete())
	assert.False(t, (&ExerciseReference{Section: "A", ExerciseID: "2"}).Complete())
}

func TestEnumValidity(t *testing.T) {
	t.Parallel()

	assert.True(t, GapConceptual.Valid())
	assert.True(t, SeverityCritical.Valid())
	assert.True(t, IntentPracticalSpecific.Valid())

	assert.False(t, GapCategory("motivational").Valid())
	assert.False(t, GapSeverity("fatal").Valid())
	assert.False(t, Intent("complaint").Valid())
}
