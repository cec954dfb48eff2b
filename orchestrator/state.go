package orchestrator

import "github.com/lucaproject/luca-core/schema"

// Node names of the conversation state machine.
const (
	nodeClassifyIntent       = "classify_intent"
	nodeHandleTheoretical    = "handle_theoretical"
	nodeHandlePracticalGen   = "handle_practical_general"
	nodeHandlePracticalSpec  = "handle_practical_specific"
	nodeHandleExploration    = "handle_exploration"
	nodeHandleSocial         = "handle_social"
	nodeHandleOffTopic       = "handle_off_topic"
	nodeSynthesize           = "synthesize_response"
	nodeSynthesizePractical  = "synthesize_practical_specific"
	nodeUpdateMemory         = "update_memory"
	nodeHandleError          = "handle_error"
)

// contentNotFoundPrefix marks missing-content failures so the error
// sink can answer with a clarification instead of a hard error.
const contentNotFoundPrefix = "CONTENT_NOT_FOUND:"

// State is threaded through one conversation turn.
type State struct {
	Context schema.ConversationContext `json:"context"`

	Intent         *schema.IntentClassificationResult `json:"intent,omitempty"`
	AgentResponses map[string]string                  `json:"agent_responses,omitempty"`

	ExtractedRef *schema.ExerciseReference `json:"extracted_ref,omitempty"`
	GapAnalysis  *schema.GapAnalysisResult `json:"gap_analysis,omitempty"`

	Synthesis     *schema.ResponseSynthesis    `json:"synthesis,omitempty"`
	FinalResponse *schema.OrchestratorResponse `json:"final_response,omitempty"`

	ErrorMessage       string `json:"error_message,omitempty"`
	NeedsClarification bool   `json:"needs_clarification,omitempty"`
}

// setResponse stores a handler's raw output under its named key.
func (s *State) setResponse(key, text string) {
	if s.AgentResponses == nil {
		s.AgentResponses = make(map[string]string)
	}
	s.AgentResponses[key] = text
}

// routeByIntent maps the classified intent to its handler node.
// Greeting and goodbye share the social handler. A missing
// classification means something upstream broke badly.
func routeByIntent(s State) string {
	if s.Intent == nil {
		return nodeHandleError
	}
	switch s.Intent.PredictedIntent {
	case schema.IntentTheoreticalQuestion:
		return nodeHandleTheoretical
	case schema.IntentPracticalGeneral:
		return nodeHandlePracticalGen
	case schema.IntentPracticalSpecific:
		return nodeHandlePracticalSpec
	case schema.IntentExploration:
		return nodeHandleExploration
	case schema.IntentGreeting, schema.IntentGoodbye:
		return nodeHandleSocial
	case schema.IntentOffTopic:
		return nodeHandleOffTopic
	default:
		return nodeHandleError
	}
}
