package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/lucaproject/luca-core/llm"
	"github.com/lucaproject/luca-core/schema"
)

// extractionConfidenceThreshold gates the practical-specific path: a
// weaker extraction asks for clarification instead of guessing.
const extractionConfidenceThreshold = 0.7

const clarificationMessage = "Para ayudarte necesito saber exactamente qué ejercicio estás trabajando. " +
	"¿Me decís el número de práctica, la sección y el ejercicio? Por ejemplo: práctica 3, sección A, ejercicio 2."

// handlePracticalSpecific resolves the referenced exercise, runs the
// gap analysis synchronously and stores its summary. Missing content
// sets a CONTENT_NOT_FOUND error for the error sink; a weak extraction
// short-circuits into a clarification reply.
func (o *Orchestrator) handlePracticalSpecific(ctx context.Context, s State) (State, error) {
	raw, err := o.client.GenerateText(ctx, extractSystem, extractPrompt(s))
	if err != nil {
		o.logger.Warn("orchestrator: exercise extraction failed: %v", err)
		return o.clarify(s), nil
	}

	var ref schema.ExerciseReference
	if err := llm.ExtractJSONInto(raw, &ref); err != nil {
		o.logger.Warn("orchestrator: unparseable exercise extraction: %v", err)
		return o.clarify(s), nil
	}
	if ref.Confidence < extractionConfidenceThreshold || !ref.Complete() {
		return o.clarify(s), nil
	}
	s.ExtractedRef = &ref

	// No content backend behaves like a failed lookup.
	if o.knowledge == nil {
		s.setResponse("gap_analysis", degradedHandlerReply)
		return s, nil
	}

	practice, err := o.knowledge.PracticeDetails(ctx, ref.PracticeNumber)
	if err != nil {
		o.logger.Warn("orchestrator: practice lookup failed: %v", err)
		s.setResponse("gap_analysis", degradedHandlerReply)
		return s, nil
	}
	if practice == nil {
		s.ErrorMessage = fmt.Sprintf("%s La práctica %d no está en el material de la cátedra.",
			contentNotFoundPrefix, ref.PracticeNumber)
		return s, nil
	}

	exercise, err := o.knowledge.ExerciseDetails(ctx, ref.PracticeNumber, ref.Section, ref.ExerciseID)
	if err != nil {
		o.logger.Warn("orchestrator: exercise lookup failed: %v", err)
		s.setResponse("gap_analysis", degradedHandlerReply)
		return s, nil
	}
	if exercise == nil {
		s.ErrorMessage = fmt.Sprintf("%s El ejercicio %s.%s de la práctica %d no está en el material de la cátedra.",
			contentNotFoundPrefix, ref.Section, ref.ExerciseID, ref.PracticeNumber)
		return s, nil
	}

	tips, err := o.knowledge.PracticeTips(ctx, ref.PracticeNumber, ref.Section, ref.ExerciseID)
	if err != nil {
		o.logger.Warn("orchestrator: tips lookup failed: %v", err)
	}
	tipTexts := make([]string, 0, len(tips))
	for _, tip := range tips {
		tipTexts = append(tipTexts, tip.Text)
	}

	studentCtx := schema.StudentContext{
		Question:            s.Context.CurrentMessage,
		ConversationHistory: historyContents(s),
		Subject:             subjectOf(s),
		PracticeContext:     fmt.Sprintf("%s\n%s", practice.Title, practice.Description),
		ExerciseContext:     exercise.Statement,
		SolutionContext:     exercise.Solution,
		TipsContext:         strings.Join(tipTexts, "\n"),
		PracticeNumber:      ref.PracticeNumber,
		ExerciseSection:     ref.Section,
	}

	result := o.gapAnalyzer.RunAnalysis(ctx, studentCtx, s.Context.SessionID)
	s.GapAnalysis = result
	s.setResponse("gap_analysis", result.Summary)
	return s, nil
}

// clarify turns a weak extraction into a clarification reply without
// treating it as an error.
func (o *Orchestrator) clarify(s State) State {
	s.NeedsClarification = true
	s.Synthesis = &schema.ResponseSynthesis{
		Message:    clarificationMessage,
		Confidence: 1.0,
	}
	return s
}

// synthesizePracticalSpecific turns the gap analysis into the reply.
// A correct answer earns a short congratulation; anything else gets
// Socratic guidance that never states the answer.
func (o *Orchestrator) synthesizePracticalSpecific(ctx context.Context, s State) (State, error) {
	verdict := schema.VerdictNotProvided
	if s.GapAnalysis != nil && s.GapAnalysis.ResponseQuality != nil {
		verdict = s.GapAnalysis.ResponseQuality.Verdict
	}

	if verdict == schema.VerdictCorrect {
		prompt := fmt.Sprintf("El estudiante escribió:\n%s\n\nSu resolución es correcta. Felicitalo.",
			s.Context.CurrentMessage)
		message, err := o.client.GenerateText(ctx, congratulationSystem, prompt)
		if err != nil {
			o.logger.Warn("orchestrator: congratulation synthesis failed: %v", err)
			message = "¡Muy bien! Tu resolución es correcta. Seguí con el próximo ejercicio."
		}
		s.Synthesis = &schema.ResponseSynthesis{
			Message:    message,
			Confidence: 0.95,
		}
		return s, nil
	}

	framework := practiceFramework(practiceNumberOf(s))
	message, err := o.client.GenerateText(ctx, socraticSystem, socraticPrompt(s, framework))
	if err != nil {
		o.logger.Warn("orchestrator: socratic synthesis failed: %v", err)
		message = "Revisá el enunciado paso a paso: ¿qué operación te pide exactamente y sobre qué relaciones? " +
			"Empezá por identificar eso y volvemos a verlo juntos."
	}

	synthesis := &schema.ResponseSynthesis{
		Message:             message,
		EducationalGuidance: educationalGuidance,
	}
	if s.GapAnalysis != nil {
		synthesis.Confidence = s.GapAnalysis.ConfidenceScore
		synthesis.NextSteps = s.GapAnalysis.Recommendations
	}
	s.Synthesis = synthesis
	return s, nil
}

func practiceNumberOf(s State) int {
	if s.ExtractedRef != nil {
		return s.ExtractedRef.PracticeNumber
	}
	if s.Context.Memory != nil {
		return s.Context.Memory.Context.CurrentPractice
	}
	return 0
}

func subjectOf(s State) string {
	if s.Context.Subject != "" {
		return s.Context.Subject
	}
	if s.Context.Memory != nil && s.Context.Memory.Context.CurrentSubject != "" {
		return s.Context.Memory.Context.CurrentSubject
	}
	return "Bases de Datos"
}

func historyContents(s State) []string {
	if s.Context.Memory == nil {
		return nil
	}
	turns := s.Context.Memory.LastTurns(historyWindow)
	out := make([]string, 0, len(turns))
	for _, turn := range turns {
		out = append(out, fmt.Sprintf("%s: %s", turn.Role, turn.Content))
	}
	return out
}
