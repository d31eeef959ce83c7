package repository

import (
	"time"

	"detectserver/internal/model"
)

// SessionRepository defines the interface for session history operations.
type SessionRepository interface {
	// Create operations
	Insert(s *model.Session) (int64, error)

	// Update operations
	Finish(id int64, stoppedAt time.Time, stats model.SessionStats) error
	FinishDangling(stoppedAt time.Time, reason string) (int64, error)

	// Read operations
	GetByID(id int64) (*model.Session, error)
	GetRecent(limit int) ([]model.Session, error)
	GetTotalCount() (int, error)

	// Delete operations
	DeleteAll() error
}
