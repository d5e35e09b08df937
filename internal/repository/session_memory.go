package repository

import (
	"context"
	"sync"

	"github.com/calldojo/calldojo-api/internal/models"
)

// memorySessionRepository is a mutex-guarded map used when no Redis URL is
// configured. Reads hand out copies so a mid-call evaluation preview works
// on a stable snapshot while the writer keeps appending turns.
type memorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*models.CallSession
}

// NewMemorySessionRepository builds an in-process session store.
func NewMemorySessionRepository() SessionRepository {
	return &memorySessionRepository{sessions: make(map[string]*models.CallSession)}
}

func (r *memorySessionRepository) Save(_ context.Context, session *models.CallSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = cloneSession(session)
	return nil
}

func (r *memorySessionRepository) Get(_ context.Context, id string) (*models.CallSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cloneSession(session), nil
}

func (r *memorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *memorySessionRepository) List(_ context.Context) ([]*models.CallSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := make([]*models.CallSession, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, cloneSession(session))
	}
	return sessions, nil
}

func (r *memorySessionRepository) ListByStudent(_ context.Context, studentID string) ([]*models.CallSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := make([]*models.CallSession, 0)
	for _, session := range r.sessions {
		if matchesStudent(session, studentID) {
			sessions = append(sessions, cloneSession(session))
		}
	}
	return sessions, nil
}

func cloneSession(session *models.CallSession) *models.CallSession {
	clone := *session
	clone.Turns = append([]models.ConversationTurn(nil), session.Turns...)
	clone.NodePathTraversed = append([]string(nil), session.NodePathTraversed...)
	if session.StudentInfo != nil {
		info := *session.StudentInfo
		clone.StudentInfo = &info
	}
	if session.EndTime != nil {
		end := *session.EndTime
		clone.EndTime = &end
	}
	return &clone
}
