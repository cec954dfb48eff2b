// Package orchestrator implements the conversation workflow: it
// classifies the student's intent, routes the turn to one handler,
// synthesizes a single reply and durably advances the conversation
// memory. Its RunConversation entry point never returns an error.
package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucaproject/luca-core/gapanalyzer"
	"github.com/lucaproject/luca-core/graph"
	"github.com/lucaproject/luca-core/knowledge"
	"github.com/lucaproject/luca-core/llm"
	"github.com/lucaproject/luca-core/log"
	"github.com/lucaproject/luca-core/memorystore"
	"github.com/lucaproject/luca-core/schema"
	"github.com/lucaproject/luca-core/store"
)

const educationalGuidance = "Tratá de justificar cada paso de tu resolución: entender el porqué " +
	"vale más que el resultado."

// Options configures an Orchestrator.
type Options struct {
	// Knowledge resolves practices, exercises, tips and objectives.
	Knowledge knowledge.Provider

	// Memory persists long-term records and session memory.
	Memory *memorystore.Manager

	// Checkpoints persists workflow state per turn when set.
	Checkpoints store.CheckpointStore

	// GapAnalyzer runs the practical-specific analysis. Built from the
	// same client and collaborators when nil.
	GapAnalyzer *gapanalyzer.Analyzer

	Logger log.Logger
}

// Orchestrator runs one conversation turn per invocation.
type Orchestrator struct {
	client      *llm.Client
	knowledge   knowledge.Provider
	memory      *memorystore.Manager
	checkpoints store.CheckpointStore
	gapAnalyzer *gapanalyzer.Analyzer
	logger      log.Logger
	runnable    *graph.Runnable[State]
}

// New builds the conversation state machine.
func New(client *llm.Client, opts Options) (*Orchestrator, error) {
	o := &Orchestrator{
		client:      client,
		knowledge:   opts.Knowledge,
		memory:      opts.Memory,
		checkpoints: opts.Checkpoints,
		gapAnalyzer: opts.GapAnalyzer,
		logger:      opts.Logger,
	}
	if o.logger == nil {
		o.logger = log.GetDefaultLogger()
	}
	if o.gapAnalyzer == nil {
		analyzer, err := gapanalyzer.New(client, gapanalyzer.Options{
			Knowledge:   opts.Knowledge,
			Memory:      opts.Memory,
			Checkpoints: opts.Checkpoints,
			Logger:      o.logger,
		})
		if err != nil {
			return nil, err
		}
		o.gapAnalyzer = analyzer
	}

	g := graph.NewStateGraph[State]()
	g.SetLogger(o.logger)

	g.AddNode(nodeClassifyIntent, "classify the student's intent", o.classifyIntent)
	g.AddNode(nodeHandleTheoretical, "answer a theory question", o.handleTheoretical)
	g.AddNode(nodeHandlePracticalGen, "answer a general practice question", o.handlePracticalGeneral)
	g.AddNode(nodeHandlePracticalSpec, "analyze a specific exercise", o.handlePracticalSpecific)
	g.AddNode(nodeHandleExploration, "guide course exploration", o.handleExploration)
	g.AddNode(nodeHandleSocial, "reply to greetings and goodbyes", o.handleSocial)
	g.AddNode(nodeHandleOffTopic, "redirect off-topic messages", o.handleOffTopic)
	g.AddNode(nodeSynthesize, "combine handler output into one reply", o.synthesizeResponse)
	g.AddNode(nodeSynthesizePractical, "build the exercise-specific reply", o.synthesizePracticalSpecific)
	g.AddNode(nodeUpdateMemory, "advance conversation memory", o.updateMemory)
	g.AddNode(nodeHandleError, "produce an error or clarification reply", o.handleError)

	g.SetEntryPoint(nodeClassifyIntent)
	g.AddConditionalEdge(nodeClassifyIntent, func(_ context.Context, s State) string {
		return routeByIntent(s)
	})

	for _, handler := range []string{
		nodeHandleTheoretical, nodeHandlePracticalGen, nodeHandleExploration,
		nodeHandleSocial, nodeHandleOffTopic,
	} {
		g.AddEdge(handler, nodeSynthesize)
	}

	g.AddConditionalEdge(nodeHandlePracticalSpec, func(_ context.Context, s State) string {
		switch {
		case s.ErrorMessage != "":
			return nodeHandleError
		case s.NeedsClarification:
			return nodeUpdateMemory
		default:
			return nodeSynthesizePractical
		}
	})

	g.AddEdge(nodeSynthesize, nodeUpdateMemory)
	g.AddEdge(nodeSynthesizePractical, nodeUpdateMemory)
	g.AddEdge(nodeUpdateMemory, graph.END)
	g.AddEdge(nodeHandleError, graph.END)

	runnable, err := g.Compile()
	if err != nil {
		return nil, err
	}
	o.runnable = runnable
	return o, nil
}

// RunConversation executes one turn. It never returns an error: every
// failure mode resolves to a populated response.
func (o *Orchestrator) RunConversation(ctx context.Context, convCtx schema.ConversationContext, threadID string) (response *schema.OrchestratorResponse) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("orchestrator: panic during turn: %v", r)
			response = genericErrorResponse(convCtx)
		}
	}()

	initial := State{Context: convCtx}

	var (
		final State
		err   error
	)
	if o.checkpoints != nil && threadID != "" {
		final, err = o.runnable.InvokeWithConfig(ctx, initial, graph.WithThreadID(threadID, o.checkpoints))
	} else {
		final, err = o.runnable.Invoke(ctx, initial)
	}
	if err != nil {
		o.logger.Error("orchestrator: workflow failed: %v", err)
		return genericErrorResponse(convCtx)
	}
	if final.FinalResponse == nil {
		o.logger.Error("orchestrator: workflow finished without a response")
		return genericErrorResponse(convCtx)
	}
	return final.FinalResponse
}

func genericErrorResponse(convCtx schema.ConversationContext) *schema.OrchestratorResponse {
	return &schema.OrchestratorResponse{
		Status:              schema.StatusError,
		Message:             "Perdón, tuve un problema para procesar tu mensaje. ¿Podés intentarlo de nuevo reformulando la consulta?",
		ConversationContext: &convCtx,
	}
}

func (o *Orchestrator) classifyIntent(ctx context.Context, s State) (State, error) {
	fallback := func(confidence float64) *schema.IntentClassificationResult {
		return &schema.IntentClassificationResult{
			PredictedIntent: schema.IntentTheoreticalQuestion,
			Confidence:      confidence,
			Reasoning:       "clasificación degradada",
		}
	}

	raw, err := o.client.GenerateText(ctx, classifySystem, classifyPrompt(s))
	if err != nil {
		o.logger.Warn("orchestrator: intent classification failed: %v", err)
		s.Intent = fallback(0.1)
		return s, nil
	}

	var result schema.IntentClassificationResult
	if err := llm.ExtractJSONInto(raw, &result); err != nil {
		o.logger.Warn("orchestrator: unparseable classification: %v", err)
		s.Intent = fallback(0.1)
		return s, nil
	}
	if !result.PredictedIntent.Valid() {
		o.logger.Warn("orchestrator: unknown intent %q", result.PredictedIntent)
		s.Intent = fallback(0.3)
		return s, nil
	}
	s.Intent = &result
	return s, nil
}

func (o *Orchestrator) synthesizeResponse(ctx context.Context, s State) (State, error) {
	message, err := o.client.GenerateText(ctx, tutorSystem, synthesizePrompt(s))
	if err != nil {
		o.logger.Warn("orchestrator: synthesis failed, using raw handler output: %v", err)
		var parts []string
		for _, text := range s.AgentResponses {
			parts = append(parts, text)
		}
		message = strings.Join(parts, "\n\n")
		if message == "" {
			message = degradedHandlerReply
		}
	}

	synthesis := &schema.ResponseSynthesis{
		Message:             message,
		EducationalGuidance: educationalGuidance,
	}
	if s.Intent != nil {
		synthesis.Confidence = s.Intent.Confidence
		synthesis.NextSteps = s.Intent.SuggestedActions
	}
	s.Synthesis = synthesis
	return s, nil
}

var practiceMentionRegex = regexp.MustCompile(`(?i)pr[áa]ctica\s+(\d+)`)

// topicTriggers maps message keywords to canonical topic names.
var topicTriggers = map[string]string{
	"join":          "joins",
	"normalizaci":   "normalización",
	"álgebra":       "álgebra relacional",
	"algebra":       "álgebra relacional",
	"sql":           "SQL",
	"transacci":     "transacciones",
	"clave":         "claves",
	"índice":        "índices",
	"indice":        "índices",
	"concurrencia":  "concurrencia",
	"recuperación":  "recuperación",
	"normalización": "normalización",
}

// updateMemory is the single place conversation state durably
// advances. A persistence failure flags ErrorMessage but never
// discards the computed reply.
func (o *Orchestrator) updateMemory(ctx context.Context, s State) (State, error) {
	if s.Context.Memory == nil {
		s.Context.Memory = schema.NewConversationMemory(s.Context.Subject)
	}
	memory := s.Context.Memory

	intentName := ""
	if s.Intent != nil {
		intentName = string(s.Intent.PredictedIntent)
	}
	memory.Append(schema.ConversationTurn{
		Role:    schema.RoleStudent,
		Content: s.Context.CurrentMessage,
		Intent:  intentName,
	})

	message := degradedHandlerReply
	if s.Synthesis != nil && s.Synthesis.Message != "" {
		message = s.Synthesis.Message
	}
	memory.Append(schema.ConversationTurn{
		Role:    schema.RoleAssistant,
		Content: message,
	})

	// Heuristic context updates; never override the extraction result.
	if s.ExtractedRef != nil {
		memory.Context.CurrentPractice = s.ExtractedRef.PracticeNumber
		memory.Context.CurrentExercise = s.ExtractedRef.ExerciseID
	} else if m := practiceMentionRegex.FindStringSubmatch(s.Context.CurrentMessage); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			memory.Context.CurrentPractice = n
		}
	}

	lowerMsg := strings.ToLower(s.Context.CurrentMessage)
	var topics []string
	for trigger, topic := range topicTriggers {
		if strings.Contains(lowerMsg, trigger) {
			memory.AddTopic(topic)
			topics = append(topics, topic)
		}
	}

	if o.memory != nil {
		userID := s.Context.UserID
		o.memory.RecordTopics(ctx, userID, topics)
		if s.ExtractedRef != nil {
			o.memory.RecordPracticeProgress(ctx, userID,
				s.ExtractedRef.PracticeNumber, s.ExtractedRef.Section, s.ExtractedRef.ExerciseID)
		}
		if s.Intent != nil {
			o.memory.RecordIntent(ctx, userID, *s.Intent)
		}
		if err := o.memory.SaveMemory(ctx, userID, s.Context.SessionID, memory); err != nil {
			s.ErrorMessage = fmt.Sprintf("persistencia de memoria falló: %v", err)
		}
	}

	status := schema.StatusSuccess
	if s.NeedsClarification {
		status = schema.StatusNeedsClarification
	}

	final := &schema.OrchestratorResponse{
		Status:               status,
		Message:              message,
		IntentClassification: s.Intent,
		ConversationContext:  &s.Context,
	}
	if s.Synthesis != nil {
		final.EducationalGuidance = s.Synthesis.EducationalGuidance
		final.NextSteps = s.Synthesis.NextSteps
	}
	s.FinalResponse = final
	return s, nil
}

// handleError distinguishes missing content, answered with a precise
// clarification, from everything else.
func (o *Orchestrator) handleError(_ context.Context, s State) (State, error) {
	if detail, ok := strings.CutPrefix(s.ErrorMessage, contentNotFoundPrefix); ok {
		s.FinalResponse = &schema.OrchestratorResponse{
			Status: schema.StatusNeedsClarification,
			Message: strings.TrimSpace(detail) +
				" ¿Podés verificar el número de práctica y de ejercicio?",
			IntentClassification: s.Intent,
			ConversationContext:  &s.Context,
		}
		return s, nil
	}

	s.FinalResponse = genericErrorResponse(s.Context)
	s.FinalResponse.IntentClassification = s.Intent
	return s, nil
}
