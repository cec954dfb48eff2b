package schema

import "time"

// Turn roles.
const (
	RoleStudent   = "student"
	RoleAssistant = "assistant"
)

// ConversationTurn is one utterance in a session.
type ConversationTurn struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Intent    string         `json:"intent,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// LearningContext tracks where the student currently is in the course.
// CurrentPractice and CurrentExercise are heuristic conveniences, not
// authoritative extraction results.
type LearningContext struct {
	CurrentSubject     string   `json:"current_subject,omitempty"`
	CurrentPractice    int      `json:"current_practice,omitempty"`
	CurrentExercise    string   `json:"current_exercise,omitempty"`
	TopicsDiscussed    []string `json:"topics_discussed,omitempty"`
	DifficultyLevel    string   `json:"difficulty_level,omitempty"`
	LearningObjectives []string `json:"learning_objectives,omitempty"`
}

// ConversationMemory is the per-session log of turns plus the learning
// context. Append-only during a session's life; replaced wholesale only
// when loaded fresh from persistent storage.
type ConversationMemory struct {
	Turns   []ConversationTurn `json:"turns"`
	Context LearningContext    `json:"context"`
}

// NewConversationMemory returns an empty memory for a subject.
func NewConversationMemory(subject string) *ConversationMemory {
	return &ConversationMemory{
		Context: LearningContext{CurrentSubject: subject},
	}
}

// Append adds a turn, stamping it with the current time when unset.
func (m *ConversationMemory) Append(turn ConversationTurn) {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	m.Turns = append(m.Turns, turn)
}

// LastTurns returns up to n most recent turns in chronological order.
func (m *ConversationMemory) LastTurns(n int) []ConversationTurn {
	if n <= 0 || len(m.Turns) == 0 {
		return nil
	}
	if len(m.Turns) <= n {
		return m.Turns
	}
	return m.Turns[len(m.Turns)-n:]
}

// AddTopic records a discussed topic with set semantics.
func (m *ConversationMemory) AddTopic(topic string) {
	if topic == "" {
		return
	}
	for _, t := range m.Context.TopicsDiscussed {
		if t == topic {
			return
		}
	}
	m.Context.TopicsDiscussed = append(m.Context.TopicsDiscussed, topic)
}

// EducationalSession wraps a session's memory with lifecycle metadata.
// Created by the session manager on first reference, mutated in place
// turn by turn, evicted by an idle sweep.
type EducationalSession struct {
	SessionID           string              `json:"session_id"`
	StudentID           string              `json:"student_id,omitempty"`
	StartedAt           time.Time           `json:"started_at"`
	LastActivity        time.Time           `json:"last_activity"`
	Memory              *ConversationMemory `json:"memory"`
	SessionGoals        []string            `json:"session_goals,omitempty"`
	CompletedObjectives []string            `json:"completed_objectives,omitempty"`
}

// Touch advances the last-activity timestamp.
func (s *EducationalSession) Touch() {
	s.LastActivity = time.Now()
}

// IdleFor reports how long the session has been inactive.
func (s *EducationalSession) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivity)
}
