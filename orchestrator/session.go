package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/lucaproject/luca-core/log"
	"github.com/lucaproject/luca-core/memorystore"
	"github.com/lucaproject/luca-core/schema"
)

// DefaultIdleTimeout is how long a session may stay inactive before an
// idle sweep evicts it.
const DefaultIdleTimeout = 24 * time.Hour

// SessionManager tracks live educational sessions. It loads a
// session's memory from long-term storage on first reference and
// evicts idle sessions on demand.
//
// Callers must serialize turns per session id; the manager guards its
// own map but does not lock individual sessions.
type SessionManager struct {
	mu          sync.RWMutex
	sessions    map[string]*schema.EducationalSession
	memory      *memorystore.Manager
	idleTimeout time.Duration
	logger      log.Logger
}

// NewSessionManager creates a manager. memory may be nil, in which
// case sessions start empty and are not persisted on eviction.
func NewSessionManager(memory *memorystore.Manager) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*schema.EducationalSession),
		memory:      memory,
		idleTimeout: DefaultIdleTimeout,
		logger:      log.GetDefaultLogger(),
	}
}

// SetIdleTimeout overrides the eviction age.
func (m *SessionManager) SetIdleTimeout(d time.Duration) {
	if d > 0 {
		m.idleTimeout = d
	}
}

// SetLogger overrides the manager's logger.
func (m *SessionManager) SetLogger(logger log.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// GetOrCreate returns the live session, creating it and loading its
// memory from storage on first reference.
func (m *SessionManager) GetOrCreate(ctx context.Context, sessionID, studentID, subject string) *schema.EducationalSession {
	m.mu.RLock()
	session, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return session
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.sessions[sessionID]; ok {
		return session
	}

	var memory *schema.ConversationMemory
	if m.memory != nil {
		memory = m.memory.LoadMemory(ctx, studentID, sessionID)
	}
	if memory == nil {
		memory = schema.NewConversationMemory(subject)
	}

	now := time.Now()
	session = &schema.EducationalSession{
		SessionID:    sessionID,
		StudentID:    studentID,
		StartedAt:    now,
		LastActivity: now,
		Memory:       memory,
	}
	m.sessions[sessionID] = session
	m.logger.Debug("orchestrator: session %s created", sessionID)
	return session
}

// Touch marks a session as active.
func (m *SessionManager) Touch(sessionID string) {
	m.mu.RLock()
	session, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		session.Touch()
	}
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupIdle evicts sessions inactive for longer than the idle
// timeout, persisting their memory best-effort first. Returns how many
// sessions were evicted.
func (m *SessionManager) CleanupIdle(ctx context.Context) int {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, session := range m.sessions {
		if session.IdleFor(now) < m.idleTimeout {
			continue
		}
		if m.memory != nil {
			if err := m.memory.SaveMemory(ctx, session.StudentID, id, session.Memory); err != nil {
				m.logger.Warn("orchestrator: persisting evicted session %s: %v", id, err)
			}
		}
		delete(m.sessions, id)
		evicted++
	}
	if evicted > 0 {
		m.logger.Info("orchestrator: evicted %d idle sessions", evicted)
	}
	return evicted
}
