// Package gapanalyzer implements the learning-gap analysis workflow:
// a bounded state machine that validates the student context,
// identifies gaps through the language model, scores them, and loops
// through a feedback pass when the analysis looks weak or the context
// needs theory reinforcement.
package gapanalyzer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lucaproject/luca-core/graph"
	"github.com/lucaproject/luca-core/knowledge"
	"github.com/lucaproject/luca-core/llm"
	"github.com/lucaproject/luca-core/log"
	"github.com/lucaproject/luca-core/memorystore"
	"github.com/lucaproject/luca-core/schema"
	"github.com/lucaproject/luca-core/store"
)

// notFoundMarkers are the Spanish phrases the content resolution layer
// emits when a practice or exercise does not exist.
var notFoundMarkers = []string{
	"no se encontró",
	"no se encontro",
	"no encontrada",
	"no encontrado",
	"no existe",
	"not found",
}

// minContextLength is the threshold below which a practice or exercise
// text block is considered incomplete.
const minContextLength = 20

// feedbackMeanThreshold triggers a feedback pass when the mean
// priority falls below it.
const feedbackMeanThreshold = 0.6

// Options configures an Analyzer. Only the LLM client is mandatory.
type Options struct {
	// Knowledge serves theory lookups during feedback passes.
	Knowledge knowledge.Provider

	// Memory receives best-effort gap/pattern/recommendation records.
	Memory *memorystore.Manager

	// Checkpoints persists state after every node when set.
	Checkpoints store.CheckpointStore

	// MaxFeedbackIterations defaults to DefaultMaxFeedbackIterations.
	MaxFeedbackIterations int

	Logger log.Logger
}

// Analyzer runs the gap-analysis workflow.
type Analyzer struct {
	client      *llm.Client
	knowledge   knowledge.Provider
	memory      *memorystore.Manager
	checkpoints store.CheckpointStore
	maxIter     int
	logger      log.Logger
	runnable    *graph.Runnable[State]
}

// New builds the analysis state machine.
func New(client *llm.Client, opts Options) (*Analyzer, error) {
	a := &Analyzer{
		client:      client,
		knowledge:   opts.Knowledge,
		memory:      opts.Memory,
		checkpoints: opts.Checkpoints,
		maxIter:     opts.MaxFeedbackIterations,
		logger:      opts.Logger,
	}
	if a.maxIter <= 0 {
		a.maxIter = DefaultMaxFeedbackIterations
	}
	if a.logger == nil {
		a.logger = log.GetDefaultLogger()
	}

	g := graph.NewStateGraph[State]()
	g.SetLogger(a.logger)

	g.AddNode(nodeValidateContext, "validate the student context", a.validateContext)
	g.AddNode(nodeAnalyzeGaps, "identify learning gaps", a.analyzeGaps)
	g.AddNode(nodeEvaluateGaps, "score identified gaps", a.evaluateGaps)
	g.AddNode(nodeFeedbackAnalysis, "prepare a feedback pass", a.feedbackAnalysis)
	g.AddNode(nodeGenerateResponse, "assemble the final result", a.generateResponse)
	g.AddNode(nodeHandleError, "produce a degraded result", a.handleError)

	g.SetEntryPoint(nodeValidateContext)
	g.AddConditionalEdge(nodeValidateContext, func(_ context.Context, s State) string {
		if s.ErrorMessage != "" {
			return nodeHandleError
		}
		return nodeAnalyzeGaps
	})
	g.AddEdge(nodeAnalyzeGaps, nodeEvaluateGaps)
	g.AddConditionalEdge(nodeEvaluateGaps, func(_ context.Context, s State) string {
		switch decideFeedback(s) {
		case "error":
			return nodeHandleError
		case "feedback":
			return nodeFeedbackAnalysis
		default:
			return nodeGenerateResponse
		}
	})
	g.AddConditionalEdge(nodeFeedbackAnalysis, func(_ context.Context, s State) string {
		if s.RetryRecommended {
			return nodeAnalyzeGaps
		}
		return nodeGenerateResponse
	})
	g.AddEdge(nodeGenerateResponse, graph.END)
	g.AddEdge(nodeHandleError, graph.END)

	runnable, err := g.Compile()
	if err != nil {
		return nil, err
	}
	a.runnable = runnable
	return a, nil
}

// RunAnalysis executes the workflow. It never returns an error: every
// failure mode resolves to a populated result, worst case with
// confidence 0.0. Long-term records are keyed by threadID.
func (a *Analyzer) RunAnalysis(ctx context.Context, studentCtx schema.StudentContext, threadID string) (result *schema.GapAnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("gapanalyzer: panic during analysis: %v", r)
			result = degradedResult(studentCtx, fmt.Sprintf("fallo interno: %v", r))
		}
	}()

	initial := State{
		Context:               studentCtx,
		MaxFeedbackIterations: a.maxIter,
	}

	var (
		final State
		err   error
	)
	if a.checkpoints != nil && threadID != "" {
		final, err = a.runnable.InvokeWithConfig(ctx, initial, graph.WithThreadID(threadID, a.checkpoints))
	} else {
		final, err = a.runnable.Invoke(ctx, initial)
	}
	if err != nil {
		a.logger.Error("gapanalyzer: workflow failed: %v", err)
		return degradedResult(studentCtx, err.Error())
	}
	if final.Result == nil {
		return degradedResult(studentCtx, "el análisis no produjo resultado")
	}

	a.persistResult(ctx, threadID, final)
	return final.Result
}

// degradedResult is the never-raise guarantee: any uncaught failure
// becomes a zero-confidence result. The detail stays in the logs.
func degradedResult(studentCtx schema.StudentContext, _ string) *schema.GapAnalysisResult {
	return &schema.GapAnalysisResult{
		Context:         studentCtx,
		Summary:         "No pude completar el análisis. Por favor, intentá de nuevo en unos minutos.",
		ConfidenceScore: 0.0,
		Recommendations: []string{"Reintentá la consulta más tarde."},
		ResponseQuality: &schema.ResponseQuality{Verdict: schema.VerdictNotProvided},
	}
}

func (a *Analyzer) validateContext(_ context.Context, s State) (State, error) {
	practice := strings.TrimSpace(s.Context.PracticeContext)
	exercise := strings.TrimSpace(s.Context.ExerciseContext)

	if practice == "" && exercise == "" {
		s.ErrorMessage = "No se encontró contenido de la práctica ni del ejercicio solicitado."
		return s, nil
	}
	if marker := findNotFoundMarker(practice); marker != "" {
		s.ErrorMessage = fmt.Sprintf("La práctica solicitada no fue encontrada (%q).", marker)
		return s, nil
	}
	if marker := findNotFoundMarker(exercise); marker != "" {
		s.ErrorMessage = fmt.Sprintf("El ejercicio solicitado no fue encontrado (%q).", marker)
		return s, nil
	}

	// Counted in runes: accented Spanish text must not pass on byte length.
	complete := utf8.RuneCountInString(practice) >= minContextLength &&
		utf8.RuneCountInString(exercise) >= minContextLength
	s.EducationalContext.ContextComplete = complete
	s.EducationalContext.NeedsTheoryLookup = !complete
	return s, nil
}

func findNotFoundMarker(text string) string {
	lower := strings.ToLower(text)
	for _, marker := range notFoundMarkers {
		if strings.Contains(lower, marker) {
			return marker
		}
	}
	return ""
}

func (a *Analyzer) analyzeGaps(ctx context.Context, s State) (State, error) {
	// Each pass replaces the previous gap list.
	s.IdentifiedGaps = nil
	s.Evaluations = nil

	response, err := a.client.GenerateText(ctx, analyzeSystem, analyzePrompt(s))
	if err != nil {
		s.ErrorMessage = fmt.Sprintf("fallo del modelo al analizar: %v", err)
		return s, nil
	}

	var parsed struct {
		Gaps            []schema.IdentifiedGap  `json:"gaps"`
		ResponseQuality *schema.ResponseQuality `json:"response_quality"`
	}
	if err := llm.ExtractJSONInto(response, &parsed); err != nil {
		a.logger.Warn("gapanalyzer: unparseable analysis response: %v", err)
		s.ErrorMessage = fmt.Sprintf("respuesta de análisis inválida: %v", err)
		return s, nil
	}

	for i := range parsed.Gaps {
		if parsed.Gaps[i].ID == "" {
			parsed.Gaps[i].ID = fmt.Sprintf("gap_%d", i+1)
		}
	}
	s.IdentifiedGaps = parsed.Gaps
	if parsed.ResponseQuality != nil && parsed.ResponseQuality.Verdict != "" {
		s.ResponseQuality = parsed.ResponseQuality
	}
	return s, nil
}

func (a *Analyzer) evaluateGaps(ctx context.Context, s State) (State, error) {
	if s.ErrorMessage != "" {
		return s, nil
	}

	evaluations := make([]schema.GapEvaluation, 0, len(s.IdentifiedGaps))
	for _, gap := range s.IdentifiedGaps {
		response, err := a.client.GenerateText(ctx, evaluateSystem, evaluatePrompt(s, gap))
		if err != nil {
			s.ErrorMessage = fmt.Sprintf("fallo del modelo al evaluar la brecha %s: %v", gap.ID, err)
			return s, nil
		}

		var eval schema.GapEvaluation
		if err := llm.ExtractJSONInto(response, &eval); err != nil {
			a.logger.Warn("gapanalyzer: unparseable evaluation for %s: %v", gap.ID, err)
			s.ErrorMessage = fmt.Sprintf("evaluación inválida para la brecha %s: %v", gap.ID, err)
			return s, nil
		}
		eval.GapID = gap.ID
		eval.EnsurePriority()
		evaluations = append(evaluations, eval)
	}
	s.Evaluations = evaluations
	return s, nil
}

// decideFeedback is the feedback-loop policy. A pass that found no
// gaps at all retries; gaps whose evaluation produced nothing complete
// rather than retry.
func decideFeedback(s State) string {
	if s.ErrorMessage != "" {
		return "error"
	}
	if s.FeedbackIterations >= s.MaxFeedbackIterations {
		return "complete"
	}
	if len(s.IdentifiedGaps) == 0 {
		return "feedback"
	}
	if len(s.Evaluations) == 0 {
		return "complete"
	}
	if meanPriority(s.Evaluations) < feedbackMeanThreshold || s.EducationalContext.NeedsTheoryLookup {
		return "feedback"
	}
	return "complete"
}

func (a *Analyzer) feedbackAnalysis(ctx context.Context, s State) (State, error) {
	if s.FeedbackIterations < s.MaxFeedbackIterations {
		s.FeedbackIterations++
	}

	if s.EducationalContext.NeedsTheoryLookup && a.knowledge != nil {
		if concept := mostFrequentConcept(s.IdentifiedGaps); concept != "" {
			theory, err := a.knowledge.TheoryContent(ctx, concept)
			if err != nil {
				a.logger.Warn("gapanalyzer: theory lookup for %q failed: %v", concept, err)
			} else if theory != "" {
				s.EducationalContext.TheoryBackground = theory
				s.EducationalContext.NeedsTheoryLookup = false
			}
		}
	}

	switch {
	case len(s.IdentifiedGaps) == 0:
		s.RetryRecommended = true
	case len(s.IdentifiedGaps) == 1 && len(s.IdentifiedGaps[0].Description) < 50:
		s.RetryRecommended = true
	default:
		s.RetryRecommended = meanPriority(s.Evaluations) < feedbackMeanThreshold
	}
	return s, nil
}

func (a *Analyzer) generateResponse(ctx context.Context, s State) (State, error) {
	confidence := (gapCountFactor(len(s.IdentifiedGaps)) +
		contextFactor(s.EducationalContext) +
		completenessFactor(len(s.Evaluations), len(s.IdentifiedGaps))) / 3

	evalByGap := make(map[string]schema.GapEvaluation, len(s.Evaluations))
	for _, eval := range s.Evaluations {
		evalByGap[eval.GapID] = eval
	}
	prioritized := make([]schema.PrioritizedGap, 0, len(s.IdentifiedGaps))
	for _, gap := range s.IdentifiedGaps {
		if eval, ok := evalByGap[gap.ID]; ok {
			prioritized = append(prioritized, schema.PrioritizedGap{Gap: gap, Evaluation: eval})
		}
	}
	sortPrioritized(prioritized)

	quality := s.ResponseQuality
	if quality == nil {
		quality = &schema.ResponseQuality{Verdict: schema.VerdictNotProvided}
	}

	s.Result = &schema.GapAnalysisResult{
		Context:            s.Context,
		EducationalContext: s.EducationalContext,
		IdentifiedGaps:     s.IdentifiedGaps,
		PrioritizedGaps:    prioritized,
		Summary:            buildSummary(s.IdentifiedGaps),
		ConfidenceScore:    confidence,
		Recommendations:    generalRecommendations(),
		ResponseQuality:    quality,
	}
	return s, nil
}

// persistResult writes long-term records after a successful run.
func (a *Analyzer) persistResult(ctx context.Context, threadID string, s State) {
	if a.memory == nil || s.Result == nil || s.Result.ConfidenceScore == 0 {
		return
	}
	a.memory.SaveGapRecords(ctx, threadID, s.IdentifiedGaps, s.Evaluations)
	a.memory.SaveRecommendations(ctx, threadID, s.Result.Recommendations)
	if len(s.IdentifiedGaps) > 0 {
		a.memory.SavePattern(ctx, threadID, buildSummary(s.IdentifiedGaps))
	}
}

func (a *Analyzer) handleError(_ context.Context, s State) (State, error) {
	summary := "Ocurrió un problema al analizar tu consulta. Por favor, intentá de nuevo."
	if strings.Contains(strings.ToLower(s.ErrorMessage), "no encontrad") {
		summary = "No pude encontrar el contenido solicitado. " + s.ErrorMessage
	}

	s.Result = &schema.GapAnalysisResult{
		Context:            s.Context,
		EducationalContext: s.EducationalContext,
		Summary:            summary,
		ConfidenceScore:    0.0,
		ResponseQuality:    &schema.ResponseQuality{Verdict: schema.VerdictNotProvided},
	}
	return s, nil
}

// Confidence tier factors, each on a fixed 0.4 to 0.9 scale.

func gapCountFactor(count int) float64 {
	switch {
	case count == 0:
		return 0.4
	case count <= 3:
		return 0.9
	case count <= 6:
		return 0.7
	default:
		return 0.5
	}
}

func contextFactor(ec schema.EducationalContext) float64 {
	switch {
	case ec.ContextComplete:
		return 0.9
	case ec.TheoryBackground != "":
		return 0.7
	default:
		return 0.4
	}
}

func completenessFactor(evaluated, identified int) float64 {
	if identified == 0 {
		return 0.4
	}
	ratio := float64(evaluated) / float64(identified)
	switch {
	case ratio >= 1:
		return 0.9
	case ratio >= 0.5:
		return 0.7
	default:
		return 0.5
	}
}

func sortPrioritized(gaps []schema.PrioritizedGap) {
	for i := 1; i < len(gaps); i++ {
		for j := i; j > 0 && gaps[j].Evaluation.PriorityScore > gaps[j-1].Evaluation.PriorityScore; j-- {
			gaps[j], gaps[j-1] = gaps[j-1], gaps[j]
		}
	}
}

func buildSummary(gaps []schema.IdentifiedGap) string {
	if len(gaps) == 0 {
		return "No se detectaron brechas de aprendizaje significativas en esta consulta."
	}

	counts := make(map[schema.GapSeverity]int)
	for _, gap := range gaps {
		counts[gap.Severity]++
	}

	var parts []string
	for _, sev := range []struct {
		key   schema.GapSeverity
		label string
	}{
		{schema.SeverityCritical, "críticas"},
		{schema.SeverityHigh, "altas"},
		{schema.SeverityMedium, "medias"},
		{schema.SeverityLow, "bajas"},
	} {
		if n := counts[sev.key]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, sev.label))
		}
	}

	return fmt.Sprintf("Se identificaron %d brechas de aprendizaje (%s). Conviene trabajarlas en orden de prioridad.",
		len(gaps), strings.Join(parts, ", "))
}

func generalRecommendations() []string {
	return []string{
		"Repasá el material teórico asociado a los conceptos con brechas críticas.",
		"Resolvé ejercicios similares de la misma práctica antes de avanzar.",
		"Consultá los tips de la cátedra para el ejercicio trabajado.",
	}
}
