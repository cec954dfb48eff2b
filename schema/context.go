package schema

// StudentContext is the immutable input to a gap analysis run. All
// content blocks are plain text, pre-resolved from the knowledge
// source by the caller. It is created fresh per invocation and never
// mutated mid-workflow.
type StudentContext struct {
	Question            string   `json:"question"`
	ConversationHistory []string `json:"conversation_history,omitempty"`
	Subject             string   `json:"subject"`
	PracticeContext     string   `json:"practice_context"`
	ExerciseContext     string   `json:"exercise_context"`
	SolutionContext     string   `json:"solution_context,omitempty"`
	TipsContext         string   `json:"tips_context,omitempty"`

	// Optional identifiers used for long-term memory keying.
	PracticeNumber  int    `json:"practice_number,omitempty"`
	ExerciseSection string `json:"exercise_section,omitempty"`
}

// EducationalContext records what the validation step learned about
// the student context and any theory retrieved for later passes.
type EducationalContext struct {
	ContextComplete   bool   `json:"context_complete"`
	NeedsTheoryLookup bool   `json:"needs_theory_lookup"`
	TheoryBackground  string `json:"theory_background,omitempty"`
}

// ConversationContext is the per-turn input to the orchestrator:
// which session, what the student just said, and the session memory.
type ConversationContext struct {
	SessionID      string              `json:"session_id"`
	UserID         string              `json:"user_id,omitempty"`
	CurrentMessage string              `json:"current_message"`
	Subject        string              `json:"subject,omitempty"`
	Memory         *ConversationMemory `json:"memory,omitempty"`
}
