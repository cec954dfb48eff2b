package schema

// ResponseStatus is the terminal status of an orchestrator turn.
type ResponseStatus string

const (
	StatusSuccess            ResponseStatus = "success"
	StatusNeedsClarification ResponseStatus = "needs_clarification"
	StatusError              ResponseStatus = "error"
)

// ResponseSynthesis is the intermediate synthesized reply before
// memory update assembles the terminal response.
type ResponseSynthesis struct {
	Message             string   `json:"message"`
	EducationalGuidance string   `json:"educational_guidance,omitempty"`
	NextSteps           []string `json:"next_steps,omitempty"`
	Confidence          float64  `json:"confidence"`
}

// OrchestratorResponse is the sole stable contract a front-end
// integrates against. Message is always present, for every status.
type OrchestratorResponse struct {
	Status               ResponseStatus              `json:"status"`
	Message              string                      `json:"message"`
	EducationalGuidance  string                      `json:"educational_guidance,omitempty"`
	NextSteps            []string                    `json:"next_steps,omitempty"`
	IntentClassification *IntentClassificationResult `json:"intent_classification,omitempty"`
	ConversationContext  *ConversationContext        `json:"conversation_context,omitempty"`
}
