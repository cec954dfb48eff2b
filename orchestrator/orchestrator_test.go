package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/lucaproject/luca-core/knowledge"
	"github.com/lucaproject/luca-core/llm"
	"github.com/lucaproject/luca-core/memorystore"
	"github.com/lucaproject/luca-core/schema"
	"github.com/lucaproject/luca-core/store"
	"github.com/lucaproject/luca-core/store/memory"
)

// scriptedModel answers from a queue; when the queue runs out it
// repeats the last response.
type scriptedModel struct {
	responses []string
	calls     int
}

func (m *scriptedModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	idx := m.calls
	m.calls++
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.responses[idx]}},
	}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, nil)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

// erroringModel fails every call.
type erroringModel struct{}

func (erroringModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	return nil, errors.New("modelo caído")
}

func (erroringModel) Call(context.Context, string, ...llms.CallOption) (string, error) {
	return "", errors.New("modelo caído")
}

// failingStore errors on every operation.
type failingStore struct{}

func (failingStore) Put(context.Context, string, string, any) error { return errors.New("down") }
func (failingStore) Get(context.Context, string, string) (any, bool, error) {
	return nil, false, errors.New("down")
}
func (failingStore) List(context.Context, string) ([]string, error) { return nil, errors.New("down") }
func (failingStore) Search(context.Context, string, string, int) ([]store.Entry, error) {
	return nil, errors.New("down")
}
func (failingStore) Delete(context.Context, string, string) error { return errors.New("down") }

func classifyJSON(intent schema.Intent, confidence float64) string {
	return fmt.Sprintf(`{"predicted_intent": %q, "confidence": %.2f, "reasoning": "test"}`, intent, confidence)
}

const extractRef2JSON = `{"practice_number": 2, "section": "1", "exercise_id": "d", "confidence": 0.92}`

const oneGapAnalysisJSON = `{
  "gaps": [
    {
      "title": "Condición de join incompleta",
      "description": "Omite la condición de igualdad entre claves al combinar las dos relaciones del enunciado.",
      "category": "procedural",
      "severity": "high",
      "affected_concepts": ["álgebra relacional", "join"]
    }
  ],
  "response_quality": {"verdict": "parcial", "confidence": 0.8}
}`

const correctAnalysisJSON = `{
  "gaps": [
    {
      "title": "Notación poco prolija",
      "description": "La resolución es correcta aunque la notación de los operadores podría ser más prolija en el encadenado.",
      "category": "communicational",
      "severity": "low"
    }
  ],
  "response_quality": {"verdict": "correcta", "confidence": 0.95}
}`

const highEvalJSON = `{"pedagogical_relevance": 0.9, "impact_on_learning": 0.8, "addressability": 0.7}`

func seededKnowledge(t *testing.T) *knowledge.StaticProvider {
	t.Helper()
	ctx := context.Background()
	p := knowledge.NewStaticProvider()

	require.NoError(t, p.UpsertPractice(ctx, knowledge.PracticeRecord{
		Number:      2,
		Title:       "Práctica 2: Consultas en Álgebra Relacional",
		Description: "Ejercicios de selección, proyección y join sobre el esquema de la biblioteca.",
		Topics:      []string{"álgebra relacional"},
	}))
	require.NoError(t, p.UpsertExercise(ctx, knowledge.ExerciseRecord{
		PracticeNumber: 2,
		Section:        "1",
		ExerciseID:     "d",
		Statement:      "Listar los socios que retiraron libros de más de un autor distinto en el último mes.",
		Solution:       "π socio (σ cantidad>1 (γ socio; count(distinct autor) (Préstamos ⋈ Libros)))",
	}))
	require.NoError(t, p.UpsertTip(ctx, knowledge.Tip{
		PracticeNumber: 2,
		Section:        "1",
		ExerciseID:     "d",
		Text:           "Pensá primero qué relación tiene la información del autor.",
	}))
	require.NoError(t, p.UpsertPractice(ctx, knowledge.PracticeRecord{
		Number:      3,
		Title:       "Práctica 3: SQL declarativo",
		Description: "Consultas SQL sobre el mismo esquema, con subconsultas y agregación.",
	}))
	require.NoError(t, p.UpsertExercise(ctx, knowledge.ExerciseRecord{
		PracticeNumber: 3,
		Section:        "A",
		ExerciseID:     "2",
		Statement:      "Escribir en SQL la consulta del ejercicio anterior usando GROUP BY y HAVING.",
		Solution:       "SELECT socio FROM prestamos JOIN libros USING (libro) GROUP BY socio HAVING COUNT(DISTINCT autor) > 1",
	}))
	require.NoError(t, p.UpsertObjective(ctx, "Bases de Datos", "Dominar el álgebra relacional como base formal de las consultas."))
	require.NoError(t, p.UpsertObjective(ctx, "Bases de Datos", "Escribir consultas SQL correctas y eficientes."))
	return p
}

func newTestOrchestrator(t *testing.T, model llms.Model, opts Options) *Orchestrator {
	t.Helper()
	if opts.Knowledge == nil {
		opts.Knowledge = seededKnowledge(t)
	}
	o, err := New(llm.NewClient(model), opts)
	require.NoError(t, err)
	return o
}

func turnContext(message string) schema.ConversationContext {
	return schema.ConversationContext{
		SessionID:      "s1",
		UserID:         "u1",
		CurrentMessage: message,
		Subject:        "Bases de Datos",
	}
}

func TestTheoreticalQuestionSkipsGapAnalysis(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{responses: []string{
		classifyJSON(schema.IntentTheoreticalQuestion, 0.9),
		"Un join combina tuplas de dos relaciones según una condición.",
		"Un join combina tuplas de dos relaciones según una condición de igualdad entre atributos.",
	}}
	o := newTestOrchestrator(t, model, Options{})

	resp := o.RunConversation(context.Background(), turnContext("¿Qué es un join?"), "s1")

	require.NotNil(t, resp)
	assert.Equal(t, schema.StatusSuccess, resp.Status)
	assert.Contains(t, resp.Message, "join")
	require.NotNil(t, resp.IntentClassification)
	assert.Equal(t, schema.IntentTheoreticalQuestion, resp.IntentClassification.PredictedIntent)
	// classify + handler + synthesis. No extraction and no analysis.
	assert.Equal(t, 3, model.calls)
}

func TestPracticalSpecificRunsGapAnalysis(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{responses: []string{
		classifyJSON(schema.IntentPracticalSpecific, 0.93),
		extractRef2JSON,
		oneGapAnalysisJSON,
		highEvalJSON,
		"¿Qué condición tienen que cumplir las tuplas para combinarse? Revisá las claves de ambas relaciones.",
	}}
	o := newTestOrchestrator(t, model, Options{})

	resp := o.RunConversation(context.Background(),
		turnContext("Estoy trabado con el ejercicio 1.d de la práctica 2, hice un join sin condición"), "s1")

	require.NotNil(t, resp)
	assert.Equal(t, schema.StatusSuccess, resp.Status)
	assert.Contains(t, resp.Message, "¿Qué condición")
	// classify + extraction + analysis + evaluation + socratic reply.
	assert.Equal(t, 5, model.calls)

	// The extraction is the authoritative context update.
	require.NotNil(t, resp.ConversationContext)
	require.NotNil(t, resp.ConversationContext.Memory)
	assert.Equal(t, 2, resp.ConversationContext.Memory.Context.CurrentPractice)
	assert.Equal(t, "d", resp.ConversationContext.Memory.Context.CurrentExercise)
}

func TestSocraticReplyNeverStatesTheAnswer(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{responses: []string{
		classifyJSON(schema.IntentPracticalSpecific, 0.93),
		extractRef2JSON,
		oneGapAnalysisJSON,
		highEvalJSON,
		"Volvé al enunciado: ¿sobre qué atributo deberían coincidir las dos relaciones?",
	}}
	o := newTestOrchestrator(t, model, Options{})

	resp := o.RunConversation(context.Background(),
		turnContext("En el 1.d de la práctica 2 hice π socio (Préstamos), ¿está bien?"), "s1")

	require.NotNil(t, resp)
	assert.NotContains(t, resp.Message, "la respuesta es")
	assert.NotContains(t, resp.Message, "γ socio")
}

func TestCorrectAnswerGetsCongratulated(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{responses: []string{
		classifyJSON(schema.IntentPracticalSpecific, 0.93),
		extractRef2JSON,
		correctAnalysisJSON,
		highEvalJSON,
		"¡Muy bien! La consulta resuelve exactamente lo que pide el enunciado.",
	}}
	o := newTestOrchestrator(t, model, Options{})

	resp := o.RunConversation(context.Background(),
		turnContext("Resolví el 1.d de la práctica 2 así: π socio (σ cantidad>1 (...))"), "s1")

	require.NotNil(t, resp)
	assert.Equal(t, schema.StatusSuccess, resp.Status)
	assert.Contains(t, resp.Message, "¡Muy bien!")
	assert.NotContains(t, resp.Message, "la respuesta es")
}

func TestMissingExerciseAsksForClarification(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{responses: []string{
		classifyJSON(schema.IntentPracticalSpecific, 0.93),
		`{"practice_number": 2, "section": "9", "exercise_id": "z", "confidence": 0.9}`,
	}}
	o := newTestOrchestrator(t, model, Options{})

	resp := o.RunConversation(context.Background(),
		turnContext("¿Me ayudás con el ejercicio 9.z de la práctica 2?"), "s1")

	require.NotNil(t, resp)
	assert.Equal(t, schema.StatusNeedsClarification, resp.Status)
	assert.Contains(t, resp.Message, "no está en el material")
	assert.Contains(t, resp.Message, "verificar el número de práctica")
	// The missing exercise never reaches the analysis.
	assert.Equal(t, 2, model.calls)
}

func TestMissingPracticeAsksForClarification(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{responses: []string{
		classifyJSON(schema.IntentPracticalSpecific, 0.93),
		`{"practice_number": 7, "section": "1", "exercise_id": "a", "confidence": 0.9}`,
	}}
	o := newTestOrchestrator(t, model, Options{})

	resp := o.RunConversation(context.Background(), turnContext("ejercicio 1.a práctica 7"), "s1")

	require.NotNil(t, resp)
	assert.Equal(t, schema.StatusNeedsClarification, resp.Status)
	assert.Contains(t, resp.Message, "práctica 7")
}

func TestWeakExtractionAsksWhichExercise(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{responses: []string{
		classifyJSON(schema.IntentPracticalSpecific, 0.93),
		`{"practice_number": 2, "section": "", "exercise_id": "", "confidence": 0.4}`,
	}}
	o := newTestOrchestrator(t, model, Options{})

	resp := o.RunConversation(context.Background(), turnContext("no me sale ese ejercicio"), "s1")

	require.NotNil(t, resp)
	assert.Equal(t, schema.StatusNeedsClarification, resp.Status)
	assert.Contains(t, resp.Message, "número de práctica")
	assert.Equal(t, 2, model.calls)
}

func TestPracticalSpecificWithoutKnowledgeDegrades(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{responses: []string{
		classifyJSON(schema.IntentPracticalSpecific, 0.93),
		extractRef2JSON,
		"Revisá el enunciado: ¿qué relaciones participan en la consulta?",
	}}
	o, err := New(llm.NewClient(model), Options{})
	require.NoError(t, err)

	resp := o.RunConversation(context.Background(),
		turnContext("No me sale el ejercicio 1.d de la práctica 2"), "s1")

	require.NotNil(t, resp)
	assert.Equal(t, schema.StatusSuccess, resp.Status)
	assert.Contains(t, resp.Message, "Revisá el enunciado")
	// classify + extraction + socratic reply; no lookups to panic on.
	assert.Equal(t, 3, model.calls)
}

func TestClassificationFallbacks(t *testing.T) {
	t.Parallel()

	t.Run("model failure falls back with low confidence", func(t *testing.T) {
		o := newTestOrchestrator(t, erroringModel{}, Options{})

		resp := o.RunConversation(context.Background(), turnContext("¿qué es una clave primaria?"), "s1")

		require.NotNil(t, resp)
		assert.Equal(t, schema.StatusSuccess, resp.Status)
		require.NotNil(t, resp.IntentClassification)
		assert.Equal(t, schema.IntentTheoreticalQuestion, resp.IntentClassification.PredictedIntent)
		assert.InDelta(t, 0.1, resp.IntentClassification.Confidence, 1e-9)
		assert.NotEmpty(t, resp.Message)
	})

	t.Run("unknown intent value falls back", func(t *testing.T) {
		model := &scriptedModel{responses: []string{
			`{"predicted_intent": "banana", "confidence": 0.9}`,
			"Respuesta teórica.",
			"Respuesta teórica sintetizada.",
		}}
		o := newTestOrchestrator(t, model, Options{})

		resp := o.RunConversation(context.Background(), turnContext("hola banana"), "s1")

		require.NotNil(t, resp)
		require.NotNil(t, resp.IntentClassification)
		assert.Equal(t, schema.IntentTheoreticalQuestion, resp.IntentClassification.PredictedIntent)
		assert.InDelta(t, 0.3, resp.IntentClassification.Confidence, 1e-9)
	})
}

func TestRouteByIntent(t *testing.T) {
	t.Parallel()

	route := func(intent schema.Intent) string {
		return routeByIntent(State{Intent: &schema.IntentClassificationResult{PredictedIntent: intent}})
	}

	tests := []struct {
		intent schema.Intent
		node   string
	}{
		{schema.IntentTheoreticalQuestion, nodeHandleTheoretical},
		{schema.IntentPracticalGeneral, nodeHandlePracticalGen},
		{schema.IntentPracticalSpecific, nodeHandlePracticalSpec},
		{schema.IntentExploration, nodeHandleExploration},
		{schema.IntentGreeting, nodeHandleSocial},
		{schema.IntentGoodbye, nodeHandleSocial},
		{schema.IntentOffTopic, nodeHandleOffTopic},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.node, route(tt.intent), "intent %s", tt.intent)
		// Routing is a pure lookup: repeating it cannot change the target.
		assert.Equal(t, tt.node, route(tt.intent))
	}

	assert.Equal(t, nodeHandleError, routeByIntent(State{}))
	assert.Equal(t, nodeHandleError, route(schema.Intent("banana")))
}

func TestPersistenceFailureKeepsReply(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{responses: []string{
		classifyJSON(schema.IntentGreeting, 0.99),
		"¡Hola! Soy tu tutor de bases de datos.",
		"¡Hola! Soy tu tutor de bases de datos. ¿Arrancamos con alguna práctica?",
	}}
	o := newTestOrchestrator(t, model, Options{
		Memory: memorystore.NewManager(failingStore{}),
	})

	resp := o.RunConversation(context.Background(), turnContext("hola"), "s1")

	require.NotNil(t, resp)
	assert.Equal(t, schema.StatusSuccess, resp.Status)
	assert.Contains(t, resp.Message, "¡Hola!")
	require.NotNil(t, resp.ConversationContext)
	require.NotNil(t, resp.ConversationContext.Memory)
	assert.Len(t, resp.ConversationContext.Memory.Turns, 2)
}

func TestMemoryHeuristicsTrackTopicsAndPractice(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{responses: []string{
		classifyJSON(schema.IntentPracticalGeneral, 0.85),
		"Arrancá por los ejercicios de join.",
		"Arrancá por los ejercicios de join y repasá la teoría de SQL antes.",
	}}
	mgr := memorystore.NewManager(memory.NewKVStore())
	o := newTestOrchestrator(t, model, Options{Memory: mgr})

	resp := o.RunConversation(context.Background(),
		turnContext("¿Cómo encaro los joins en sql de la práctica 4?"), "s1")

	require.NotNil(t, resp)
	require.NotNil(t, resp.ConversationContext)
	mem := resp.ConversationContext.Memory
	require.NotNil(t, mem)

	assert.Equal(t, 4, mem.Context.CurrentPractice)
	assert.Contains(t, mem.Context.TopicsDiscussed, "joins")
	assert.Contains(t, mem.Context.TopicsDiscussed, "SQL")

	history := mgr.IntentHistory(context.Background(), "u1")
	require.Len(t, history, 1)
	assert.Equal(t, schema.IntentPracticalGeneral, history[0].Intent)
}

func TestExtractionOverridesPracticeMention(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{responses: []string{
		classifyJSON(schema.IntentPracticalSpecific, 0.92),
		`{"practice_number": 3, "section": "A", "exercise_id": "2", "confidence": 0.9}`,
		oneGapAnalysisJSON,
		highEvalJSON,
		"¿Qué agrupa tu GROUP BY y qué filtra el HAVING?",
	}}
	o := newTestOrchestrator(t, model, Options{})

	// The message mentions práctica 2 but the extraction resolves the
	// "ejercicio anterior" anaphora to práctica 3.
	resp := o.RunConversation(context.Background(),
		turnContext("Como en la práctica 2, ahora el A.2 en SQL no me sale"), "s1")

	require.NotNil(t, resp)
	require.NotNil(t, resp.ConversationContext)
	require.NotNil(t, resp.ConversationContext.Memory)
	assert.Equal(t, 3, resp.ConversationContext.Memory.Context.CurrentPractice)
	assert.Equal(t, "2", resp.ConversationContext.Memory.Context.CurrentExercise)
}

func TestConversationNeverRaises(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, erroringModel{}, Options{
		Memory: memorystore.NewResilient(failingStore{}),
	})

	for _, message := range []string{"", "hola", "σ π ⋈", "práctica -1 ejercicio 0.x"} {
		resp := o.RunConversation(context.Background(), turnContext(message), "s1")
		require.NotNil(t, resp, "message %q", message)
		assert.NotEmpty(t, resp.Message, "message %q", message)
	}
}

func TestSocialIntentsShareHandler(t *testing.T) {
	t.Parallel()
	for _, intent := range []schema.Intent{schema.IntentGreeting, schema.IntentGoodbye} {
		model := &scriptedModel{responses: []string{
			classifyJSON(intent, 0.99),
			"¡Nos vemos! Cualquier duda de la materia, escribime.",
			"¡Nos vemos! Cualquier duda de la materia, escribime.",
		}}
		o := newTestOrchestrator(t, model, Options{})

		resp := o.RunConversation(context.Background(), turnContext("chau"), "s1")
		require.NotNil(t, resp)
		assert.Equal(t, schema.StatusSuccess, resp.Status, "intent %s", intent)
		assert.Equal(t, 3, model.calls, "intent %s", intent)
	}
}

func TestCheckpointedTurn(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{responses: []string{
		classifyJSON(schema.IntentOffTopic, 0.88),
		"Eso se escapa de la materia, pero puedo ayudarte con bases de datos.",
		"Eso se escapa de la materia, pero puedo ayudarte con bases de datos.",
	}}
	checkpoints := memory.NewCheckpointStore()
	o := newTestOrchestrator(t, model, Options{Checkpoints: checkpoints})

	resp := o.RunConversation(context.Background(), turnContext("¿viste el partido?"), "hilo-1")
	require.NotNil(t, resp)

	latest, err := checkpoints.LatestByThread(context.Background(), "hilo-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
}
