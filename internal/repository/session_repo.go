package repository

import (
	"context"
	"errors"

	"github.com/calldojo/calldojo-api/internal/models"
)

// ErrSessionNotFound indicates the session id is unknown to the store.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository persists call sessions for the duration of a training
// run. Implementations must be safe for concurrent use; the single-writer
// guarantee per session is enforced above this layer by the call service.
type SessionRepository interface {
	Save(ctx context.Context, session *models.CallSession) error
	Get(ctx context.Context, id string) (*models.CallSession, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.CallSession, error)
	ListByStudent(ctx context.Context, studentID string) ([]*models.CallSession, error)
}

// matchesStudent reports whether a session belongs to the given student
// identifier, which may be either a name or a batch id.
func matchesStudent(session *models.CallSession, studentID string) bool {
	if session.StudentInfo == nil {
		return false
	}
	return session.StudentInfo.Name == studentID || session.StudentInfo.BatchID == studentID
}
