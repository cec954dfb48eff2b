package schema

// GapCategory classifies a learning gap.
type GapCategory string

const (
	GapConceptual    GapCategory = "conceptual"
	GapProcedural    GapCategory = "procedural"
	GapTheoretical   GapCategory = "theoretical"
	GapPractical     GapCategory = "practical"
	GapPrerequisite  GapCategory = "prerequisite"
	GapCommunication GapCategory = "communication"
)

// Valid reports whether the category is one of the six known values.
func (c GapCategory) Valid() bool {
	switch c {
	case GapConceptual, GapProcedural, GapTheoretical, GapPractical, GapPrerequisite, GapCommunication:
		return true
	}
	return false
}

// GapSeverity ranks how much a gap blocks the student.
type GapSeverity string

const (
	SeverityCritical GapSeverity = "critical"
	SeverityHigh     GapSeverity = "high"
	SeverityMedium   GapSeverity = "medium"
	SeverityLow      GapSeverity = "low"
)

// Valid reports whether the severity is one of the four known values.
func (s GapSeverity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// IdentifiedGap is a single learning gap produced by the analysis
// step. A gap is never mutated after creation within a pass; a retry
// produces a fresh list replacing the old.
type IdentifiedGap struct {
	ID                   string      `json:"id"`
	Title                string      `json:"title"`
	Description          string      `json:"description"`
	Category             GapCategory `json:"category"`
	Severity             GapSeverity `json:"severity"`
	Evidence             string      `json:"evidence,omitempty"`
	AffectedConcepts     []string    `json:"affected_concepts,omitempty"`
	MissingPrerequisites []string    `json:"missing_prerequisites,omitempty"`
}

// Priority weighting contract: relevance and impact dominate,
// addressability breaks ties.
const (
	priorityRelevanceWeight      = 0.4
	priorityImpactWeight         = 0.4
	priorityAddressabilityWeight = 0.2
)

// GapEvaluation scores one gap. All component scores are in [0,1] and
// pair with their gap via GapID.
type GapEvaluation struct {
	GapID                string  `json:"gap_id"`
	PedagogicalRelevance float64 `json:"pedagogical_relevance"`
	ImpactOnLearning     float64 `json:"impact_on_learning"`
	Addressability       float64 `json:"addressability"`
	PriorityScore        float64 `json:"priority_score"`
}

// DerivedPriority computes the weighted priority from the component
// scores: 0.4*relevance + 0.4*impact + 0.2*addressability.
func (e *GapEvaluation) DerivedPriority() float64 {
	return priorityRelevanceWeight*e.PedagogicalRelevance +
		priorityImpactWeight*e.ImpactOnLearning +
		priorityAddressabilityWeight*e.Addressability
}

// EnsurePriority fills PriorityScore from the component scores when
// the model did not supply one.
func (e *GapEvaluation) EnsurePriority() {
	if e.PriorityScore == 0 {
		e.PriorityScore = e.DerivedPriority()
	}
}

// PrioritizedGap pairs a gap with its evaluation for the final result.
type PrioritizedGap struct {
	Gap        IdentifiedGap `json:"gap"`
	Evaluation GapEvaluation `json:"evaluation"`
}

// Verdict is the response-quality judgement on a student's answer.
// Values match the Spanish-facing contract.
type Verdict string

const (
	VerdictCorrect     Verdict = "correcta"
	VerdictIncorrect   Verdict = "incorrecta"
	VerdictPartial     Verdict = "parcial"
	VerdictNotProvided Verdict = "no_proporcionada"
)

// ResponseQuality carries the verdict on the student's own answer
// attempt, when one was present in the question.
type ResponseQuality struct {
	Verdict    Verdict `json:"verdict"`
	Confidence float64 `json:"confidence"`
}

// GapAnalysisResult is the terminal output of a gap analysis run.
// Immutable once produced.
type GapAnalysisResult struct {
	Context            StudentContext     `json:"context"`
	EducationalContext EducationalContext `json:"educational_context"`
	IdentifiedGaps     []IdentifiedGap    `json:"identified_gaps"`
	PrioritizedGaps    []PrioritizedGap   `json:"prioritized_gaps,omitempty"`
	Summary            string             `json:"summary"`
	ConfidenceScore    float64            `json:"confidence_score"`
	Recommendations    []string           `json:"recommendations,omitempty"`
	ResponseQuality    *ResponseQuality   `json:"response_quality,omitempty"`
}
