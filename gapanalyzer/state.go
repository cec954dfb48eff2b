package gapanalyzer

import "github.com/lucaproject/luca-core/schema"

// Node names of the analysis state machine.
const (
	nodeValidateContext  = "validate_context"
	nodeAnalyzeGaps      = "analyze_gaps"
	nodeEvaluateGaps     = "evaluate_gaps"
	nodeFeedbackAnalysis = "feedback_analysis"
	nodeGenerateResponse = "generate_response"
	nodeHandleError      = "handle_error"
)

// DefaultMaxFeedbackIterations bounds the analyze/evaluate retry loop.
const DefaultMaxFeedbackIterations = 3

// State is threaded through the analysis state machine. Context is
// immutable input; everything else accumulates as nodes run.
type State struct {
	Context            schema.StudentContext     `json:"context"`
	EducationalContext schema.EducationalContext `json:"educational_context"`

	IdentifiedGaps []schema.IdentifiedGap `json:"identified_gaps,omitempty"`
	Evaluations    []schema.GapEvaluation `json:"evaluations,omitempty"`

	FeedbackIterations    int  `json:"feedback_iterations"`
	MaxFeedbackIterations int  `json:"max_feedback_iterations"`
	RetryRecommended      bool `json:"retry_recommended"`

	ResponseQuality *schema.ResponseQuality   `json:"response_quality,omitempty"`
	Result          *schema.GapAnalysisResult `json:"result,omitempty"`
	ErrorMessage    string                    `json:"error_message,omitempty"`
}

// meanPriority is the average priority score across evaluations, zero
// when there are none.
func meanPriority(evals []schema.GapEvaluation) float64 {
	if len(evals) == 0 {
		return 0
	}
	var sum float64
	for _, e := range evals {
		sum += e.PriorityScore
	}
	return sum / float64(len(evals))
}

// mostFrequentConcept returns the concept named most often across the
// gaps' affected-concept lists, breaking ties by first appearance.
func mostFrequentConcept(gaps []schema.IdentifiedGap) string {
	counts := make(map[string]int)
	var order []string
	for _, gap := range gaps {
		for _, concept := range gap.AffectedConcepts {
			if concept == "" {
				continue
			}
			if counts[concept] == 0 {
				order = append(order, concept)
			}
			counts[concept]++
		}
	}

	best := ""
	bestCount := 0
	for _, concept := range order {
		if counts[concept] > bestCount {
			best = concept
			bestCount = counts[concept]
		}
	}
	return best
}
