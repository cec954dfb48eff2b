package schema

// Intent is the classified purpose of a student message.
type Intent string

const (
	IntentTheoreticalQuestion Intent = "theoretical_question"
	IntentPracticalGeneral    Intent = "practical_general"
	IntentPracticalSpecific   Intent = "practical_specific"
	IntentExploration         Intent = "exploration"
	IntentGreeting            Intent = "greeting"
	IntentGoodbye             Intent = "goodbye"
	IntentOffTopic            Intent = "off_topic"
)

// Valid reports whether the intent is one of the seven known values.
func (i Intent) Valid() bool {
	switch i {
	case IntentTheoreticalQuestion, IntentPracticalGeneral, IntentPracticalSpecific,
		IntentExploration, IntentGreeting, IntentGoodbye, IntentOffTopic:
		return true
	}
	return false
}

// IntentClassificationResult is the classifier's output for one turn.
type IntentClassificationResult struct {
	PredictedIntent  Intent   `json:"predicted_intent"`
	Confidence       float64  `json:"confidence"`
	Reasoning        string   `json:"reasoning,omitempty"`
	RequiresContext  bool     `json:"requires_context"`
	SuggestedActions []string `json:"suggested_actions,omitempty"`
}

// ExerciseReference is the structured extraction from a
// practical-specific message: which exercise the student means.
type ExerciseReference struct {
	PracticeNumber int     `json:"practice_number"`
	Section        string  `json:"section"`
	ExerciseID     string  `json:"exercise_id"`
	Confidence     float64 `json:"confidence"`
}

// Complete reports whether all three locator fields were extracted.
func (r *ExerciseReference) Complete() bool {
	return r.PracticeNumber > 0 && r.Section != "" && r.ExerciseID != ""
}
