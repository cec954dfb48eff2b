package orchestrator

import (
	"fmt"
	"strings"

	"github.com/lucaproject/luca-core/schema"
)

// historyWindow is how many recent turns feed the classifier.
const historyWindow = 6

const classifySystem = `Sos el clasificador de intenciones de un tutor virtual de bases de
datos. Respondé únicamente con un objeto JSON.`

const classifyTemplate = `Clasificá la intención del último mensaje del estudiante.

%s
Mensaje actual: %s

Intenciones posibles:
- theoretical_question: pregunta sobre teoría o conceptos
- practical_general: consulta general sobre prácticas o ejercicios
- practical_specific: consulta sobre un ejercicio concreto de una práctica
- exploration: quiere explorar temas u objetivos de la materia
- greeting: saludo
- goodbye: despedida
- off_topic: no relacionado con la materia

Devolvé JSON:
{
  "predicted_intent": "...",
  "confidence": 0.0,
  "reasoning": "...",
  "requires_context": false,
  "suggested_actions": ["..."]
}`

func classifyPrompt(s State) string {
	var history strings.Builder
	if s.Context.Memory != nil {
		turns := s.Context.Memory.LastTurns(historyWindow)
		if len(turns) > 0 {
			history.WriteString("Historial reciente:\n")
			for _, turn := range turns {
				fmt.Fprintf(&history, "- %s: %s\n", turn.Role, turn.Content)
			}
		}
		if ctx := s.Context.Memory.Context; ctx.CurrentPractice > 0 {
			fmt.Fprintf(&history, "El estudiante viene trabajando la práctica %d.\n", ctx.CurrentPractice)
		}
	}
	return fmt.Sprintf(classifyTemplate, history.String(), s.Context.CurrentMessage)
}

const extractSystem = `Sos un extractor de referencias a ejercicios. Entendés sinónimos como
"ejercicio", "problema", "punto" e "ítem", y resolvés referencias como
"el ejercicio anterior" usando el historial. Respondé únicamente con un
objeto JSON.`

const extractTemplate = `Extraé a qué ejercicio se refiere el estudiante.

%s
Mensaje actual: %s

Devolvé JSON:
{
  "practice_number": 0,
  "section": "",
  "exercise_id": "",
  "confidence": 0.0
}
Usá confidence baja si algún campo es dudoso.`

func extractPrompt(s State) string {
	var history strings.Builder
	if s.Context.Memory != nil {
		for _, turn := range s.Context.Memory.LastTurns(historyWindow) {
			fmt.Fprintf(&history, "- %s: %s\n", turn.Role, turn.Content)
		}
	}
	return fmt.Sprintf(extractTemplate, history.String(), s.Context.CurrentMessage)
}

const tutorSystem = `Sos LUCA, un tutor virtual de bases de datos de una universidad
argentina. Respondés en español rioplatense, con tono cercano pero
riguroso. Guiás al estudiante para que razone por su cuenta.`

const socraticSystem = `Sos LUCA, un tutor virtual de bases de datos. Guiás con método
socrático: NUNCA des la respuesta del ejercicio ni la solución, ni
siquiera parcialmente. Fundamentá tus pistas en el marco conceptual de
la práctica. Cerrá siempre con una pregunta reflexiva o con un único
próximo paso concreto. Español rioplatense.`

const congratulationSystem = `Sos LUCA, un tutor virtual de bases de datos. El estudiante resolvió
bien el ejercicio. Felicitalo de forma breve y específica, reforzando
qué hizo bien. No repitas la solución completa ni agregues contenido
nuevo. Español rioplatense.`

func socraticPrompt(s State, framework string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Consulta del estudiante:\n%s\n\n", s.Context.CurrentMessage)
	fmt.Fprintf(&b, "Marco conceptual de la práctica: %s\n\n", framework)
	if s.GapAnalysis != nil {
		fmt.Fprintf(&b, "Análisis de brechas:\n%s\n", s.GapAnalysis.Summary)
		for _, pg := range s.GapAnalysis.PrioritizedGaps {
			fmt.Fprintf(&b, "- [%s/%s] %s: %s\n", pg.Gap.Severity, pg.Gap.Category, pg.Gap.Title, pg.Gap.Description)
		}
	}
	b.WriteString("\nGenerá la guía pedagógica.")
	return b.String()
}

const synthesizeTemplate = `Combiná las siguientes respuestas parciales en una única respuesta
coherente para el estudiante.

Intención detectada: %s (confianza %.2f)

%s
Mensaje del estudiante: %s

Respondé directamente al estudiante, sin mencionar las respuestas
parciales.`

func synthesizePrompt(s State) string {
	var parts strings.Builder
	for key, text := range s.AgentResponses {
		fmt.Fprintf(&parts, "[%s]\n%s\n\n", key, text)
	}

	intent := schema.IntentTheoreticalQuestion
	confidence := 0.0
	if s.Intent != nil {
		intent = s.Intent.PredictedIntent
		confidence = s.Intent.Confidence
	}
	return fmt.Sprintf(synthesizeTemplate, intent, confidence, parts.String(), s.Context.CurrentMessage)
}

// practiceFramework infers the conceptual framework of a practice.
// Early practices of the course work on relational algebra, later ones
// on SQL.
func practiceFramework(practiceNumber int) string {
	if practiceNumber > 0 && practiceNumber <= 3 {
		return "álgebra relacional"
	}
	return "SQL"
}
