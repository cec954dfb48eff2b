// Package memorystore manages the long-term student memory: gap
// records, learning patterns, recommendations, discussed topics,
// practice progress and intent history, all keyed by per-student
// namespaces over a store.MemoryStore. Persistence is best-effort
// throughout; failures are logged and never surface to the workflows.
package memorystore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lucaproject/luca-core/log"
	"github.com/lucaproject/luca-core/schema"
	"github.com/lucaproject/luca-core/store"
)

// Namespace purposes under student:{id}:{purpose}.
const (
	nsGaps            = "gaps"
	nsPatterns        = "patterns"
	nsRecommendations = "recommendations"
	nsTopics          = "topics"
	nsProgress        = "progress"
	nsIntents         = "intents"
	nsSessions        = "sessions"
)

// intentHistorySize bounds the rolling intent history per student.
const intentHistorySize = 10

// Manager is the long-term memory facade used by both workflows.
type Manager struct {
	store  store.MemoryStore
	logger log.Logger
}

// NewManager creates a manager over any MemoryStore backend.
func NewManager(st store.MemoryStore) *Manager {
	return &Manager{
		store:  st,
		logger: log.GetDefaultLogger(),
	}
}

// SetLogger overrides the manager's logger.
func (m *Manager) SetLogger(logger log.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

func namespace(userID, purpose string) string {
	if userID == "" {
		userID = "anonymous"
	}
	return fmt.Sprintf("student:%s:%s", userID, purpose)
}

// GapRecord is the persisted form of one analyzed gap.
type GapRecord struct {
	Gap        schema.IdentifiedGap  `json:"gap"`
	Evaluation *schema.GapEvaluation `json:"evaluation,omitempty"`
	RecordedAt time.Time             `json:"recorded_at"`
}

// SaveGapRecords stores each identified gap with its evaluation.
func (m *Manager) SaveGapRecords(ctx context.Context, userID string, gaps []schema.IdentifiedGap, evals []schema.GapEvaluation) {
	byGap := make(map[string]*schema.GapEvaluation, len(evals))
	for i := range evals {
		byGap[evals[i].GapID] = &evals[i]
	}

	ns := namespace(userID, nsGaps)
	now := time.Now()
	for _, gap := range gaps {
		key := gap.ID
		if key == "" {
			key = uuid.NewString()
		}
		rec := GapRecord{Gap: gap, Evaluation: byGap[gap.ID], RecordedAt: now}
		if err := m.store.Put(ctx, ns, key, rec); err != nil {
			m.logger.Warn("memorystore: saving gap record %s: %v", key, err)
		}
	}
}

// SavePattern stores a detected learning pattern summary.
func (m *Manager) SavePattern(ctx context.Context, userID, pattern string) {
	record := map[string]any{
		"pattern":     pattern,
		"recorded_at": time.Now(),
	}
	if err := m.store.Put(ctx, namespace(userID, nsPatterns), uuid.NewString(), record); err != nil {
		m.logger.Warn("memorystore: saving pattern: %v", err)
	}
}

// SaveRecommendations stores the latest general recommendations.
func (m *Manager) SaveRecommendations(ctx context.Context, userID string, recommendations []string) {
	if len(recommendations) == 0 {
		return
	}
	record := map[string]any{
		"recommendations": recommendations,
		"recorded_at":     time.Now(),
	}
	if err := m.store.Put(ctx, namespace(userID, nsRecommendations), "latest", record); err != nil {
		m.logger.Warn("memorystore: saving recommendations: %v", err)
	}
}

// RecordTopics merges topics into the student's discussed-topics set.
func (m *Manager) RecordTopics(ctx context.Context, userID string, topics []string) {
	if len(topics) == 0 {
		return
	}
	ns := namespace(userID, nsTopics)

	var existing []string
	if raw, ok, err := m.store.Get(ctx, ns, "discussed"); err != nil {
		m.logger.Warn("memorystore: reading topics: %v", err)
	} else if ok {
		if err := decodeInto(raw, &existing); err != nil {
			m.logger.Warn("memorystore: decoding topics: %v", err)
		}
	}

	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[t] = true
	}
	for _, t := range topics {
		if t != "" && !seen[t] {
			existing = append(existing, t)
			seen[t] = true
		}
	}

	if err := m.store.Put(ctx, ns, "discussed", existing); err != nil {
		m.logger.Warn("memorystore: saving topics: %v", err)
	}
}

// PracticeProgress is one progress entry per practice.
type PracticeProgress struct {
	PracticeNumber int       `json:"practice_number"`
	Section        string    `json:"section,omitempty"`
	ExerciseID     string    `json:"exercise_id,omitempty"`
	LastSeen       time.Time `json:"last_seen"`
}

// RecordPracticeProgress notes the most recent exercise the student
// worked on within a practice.
func (m *Manager) RecordPracticeProgress(ctx context.Context, userID string, practice int, section, exerciseID string) {
	if practice <= 0 {
		return
	}
	rec := PracticeProgress{
		PracticeNumber: practice,
		Section:        section,
		ExerciseID:     exerciseID,
		LastSeen:       time.Now(),
	}
	key := fmt.Sprintf("practice_%d", practice)
	if err := m.store.Put(ctx, namespace(userID, nsProgress), key, rec); err != nil {
		m.logger.Warn("memorystore: saving practice progress: %v", err)
	}
}

// IntentEntry is one classified turn in the rolling history.
type IntentEntry struct {
	Intent     schema.Intent `json:"intent"`
	Confidence float64       `json:"confidence"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// RecordIntent appends to the rolling last-10 intent history. The
// read-modify-write merge is not transactionally guarded; concurrent
// turns for the same student may race on it.
func (m *Manager) RecordIntent(ctx context.Context, userID string, result schema.IntentClassificationResult) {
	ns := namespace(userID, nsIntents)

	var history []IntentEntry
	if raw, ok, err := m.store.Get(ctx, ns, "history"); err != nil {
		m.logger.Warn("memorystore: reading intent history: %v", err)
	} else if ok {
		if err := decodeInto(raw, &history); err != nil {
			m.logger.Warn("memorystore: decoding intent history: %v", err)
			history = nil
		}
	}

	history = append(history, IntentEntry{
		Intent:     result.PredictedIntent,
		Confidence: result.Confidence,
		RecordedAt: time.Now(),
	})
	if len(history) > intentHistorySize {
		history = history[len(history)-intentHistorySize:]
	}

	if err := m.store.Put(ctx, ns, "history", history); err != nil {
		m.logger.Warn("memorystore: saving intent history: %v", err)
	}
}

// IntentHistory returns the rolling intent history, newest last.
func (m *Manager) IntentHistory(ctx context.Context, userID string) []IntentEntry {
	raw, ok, err := m.store.Get(ctx, namespace(userID, nsIntents), "history")
	if err != nil || !ok {
		return nil
	}
	var history []IntentEntry
	if err := decodeInto(raw, &history); err != nil {
		return nil
	}
	return history
}

// LoadMemory fetches a session's conversation memory, nil when absent.
// Load failures are treated as absence so a storage outage never
// blocks a turn.
func (m *Manager) LoadMemory(ctx context.Context, userID, sessionID string) *schema.ConversationMemory {
	raw, ok, err := m.store.Get(ctx, namespace(userID, nsSessions), sessionID)
	if err != nil {
		m.logger.Warn("memorystore: loading memory for session %s: %v", sessionID, err)
		return nil
	}
	if !ok {
		return nil
	}

	var memory schema.ConversationMemory
	if err := decodeInto(raw, &memory); err != nil {
		m.logger.Warn("memorystore: decoding memory for session %s: %v", sessionID, err)
		return nil
	}
	return &memory
}

// SaveMemory persists a session's conversation memory. Returns the
// storage error so the caller can flag it, though the computed reply
// must not depend on it.
func (m *Manager) SaveMemory(ctx context.Context, userID, sessionID string, memory *schema.ConversationMemory) error {
	if memory == nil {
		return nil
	}
	if err := m.store.Put(ctx, namespace(userID, nsSessions), sessionID, memory); err != nil {
		m.logger.Warn("memorystore: saving memory for session %s: %v", sessionID, err)
		return err
	}
	return nil
}

// decodeInto converts a stored value back into a typed record. Values
// round-trip through JSON in the durable backends, so a stored struct
// may come back as map[string]any.
func decodeInto(v any, target any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}
