package knowledge

import "context"

// PracticeRecord describes one practice sheet of the course.
type PracticeRecord struct {
	Number      int      `json:"number"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Topics      []string `json:"topics,omitempty"`
}

// ExerciseRecord describes a single exercise inside a practice.
type ExerciseRecord struct {
	PracticeNumber int    `json:"practice_number"`
	Section        string `json:"section"`
	ExerciseID     string `json:"exercise_id"`
	Statement      string `json:"statement"`
	Solution       string `json:"solution,omitempty"`
}

// Tip is a hint attached to a practice, optionally scoped to one
// section or exercise.
type Tip struct {
	PracticeNumber int    `json:"practice_number"`
	Section        string `json:"section,omitempty"`
	ExerciseID     string `json:"exercise_id,omitempty"`
	Text           string `json:"text"`
}

// SearchHit is one free-text search result over the course content.
type SearchHit struct {
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Provider looks up course content. All lookups are read-only and
// idempotent. Not-found is a nil record (or empty slice) with a nil
// error; a non-nil error means the backend itself failed.
type Provider interface {
	// PracticeDetails returns the practice sheet, or nil when no such
	// practice exists.
	PracticeDetails(ctx context.Context, practiceNumber int) (*PracticeRecord, error)

	// ExerciseDetails returns one exercise, or nil when not found.
	ExerciseDetails(ctx context.Context, practiceNumber int, section, exerciseID string) (*ExerciseRecord, error)

	// PracticeTips returns tips for a practice. Empty section or
	// exerciseID matches any.
	PracticeTips(ctx context.Context, practiceNumber int, section, exerciseID string) ([]Tip, error)

	// SubjectObjectives returns the learning objectives of a subject.
	SubjectObjectives(ctx context.Context, subject string) ([]string, error)

	// TheoryContent returns theoretical material for a concept, or the
	// empty string when none is recorded.
	TheoryContent(ctx context.Context, concept string) (string, error)

	// Search runs a free-text search over the course content.
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
}
