package gapanalyzer

import (
	"fmt"
	"strings"

	"github.com/lucaproject/luca-core/schema"
)

const analyzeSystem = `Sos un experto en pedagogía de bases de datos. Analizás respuestas de
estudiantes para detectar brechas de aprendizaje. Respondé únicamente
con un objeto JSON, sin texto adicional.`

const evaluateSystem = `Sos un experto en pedagogía. Evaluás la importancia de una brecha de
aprendizaje detectada. Respondé únicamente con un objeto JSON.`

func analyzePrompt(s State) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Iteración %d de %d del análisis de brechas.\n\n", s.FeedbackIterations+1, s.MaxFeedbackIterations)
	fmt.Fprintf(&b, "Materia: %s\n\n", s.Context.Subject)
	fmt.Fprintf(&b, "Consulta del estudiante:\n%s\n\n", s.Context.Question)

	if len(s.Context.ConversationHistory) > 0 {
		b.WriteString("Historial reciente:\n")
		for _, turn := range s.Context.ConversationHistory {
			fmt.Fprintf(&b, "- %s\n", turn)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Práctica:\n%s\n\n", s.Context.PracticeContext)
	fmt.Fprintf(&b, "Ejercicio:\n%s\n\n", s.Context.ExerciseContext)
	if s.Context.SolutionContext != "" {
		fmt.Fprintf(&b, "Solución de referencia:\n%s\n\n", s.Context.SolutionContext)
	}
	if s.Context.TipsContext != "" {
		fmt.Fprintf(&b, "Tips de la cátedra:\n%s\n\n", s.Context.TipsContext)
	}
	if s.EducationalContext.TheoryBackground != "" {
		fmt.Fprintf(&b, "Material teórico adicional:\n%s\n\n", s.EducationalContext.TheoryBackground)
	}

	b.WriteString(`Identificá las brechas de aprendizaje del estudiante. Devolvé JSON con esta forma:
{
  "gaps": [
    {
      "id": "gap_1",
      "title": "...",
      "description": "...",
      "category": "conceptual|procedural|theoretical|practical|prerequisite|communication",
      "severity": "critical|high|medium|low",
      "evidence": "cita textual del estudiante",
      "affected_concepts": ["..."],
      "missing_prerequisites": ["..."]
    }
  ],
  "response_quality": {"verdict": "correcta|incorrecta|parcial|no_proporcionada", "confidence": 0.0}
}
Si el estudiante incluyó su propia respuesta al ejercicio, evaluala en response_quality.`)

	return b.String()
}

func evaluatePrompt(s State, gap schema.IdentifiedGap) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Materia: %s\n\n", s.Context.Subject)
	fmt.Fprintf(&b, "Brecha detectada: %s\n%s\n", gap.Title, gap.Description)
	fmt.Fprintf(&b, "Categoría: %s, severidad: %s\n\n", gap.Category, gap.Severity)

	b.WriteString(`Puntuá la brecha. Devolvé JSON:
{
  "pedagogical_relevance": 0.0,
  "impact_on_learning": 0.0,
  "addressability": 0.0
}
Cada valor entre 0 y 1.`)

	return b.String()
}
