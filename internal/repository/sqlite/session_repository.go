package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"detectserver/internal/model"
)

// ErrSessionNotFound is returned when no session has the requested id.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository implements repository.SessionRepository for SQLite.
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Insert adds a new session record and returns its id.
func (r *SessionRepository) Insert(s *model.Session) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO sessions (facing_mode, device, user_agent, started_at)
		VALUES (?, ?, ?, ?)
	`, s.FacingMode, s.Device, s.UserAgent, s.StartedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get session id: %w", err)
	}
	s.ID = id
	return id, nil
}

// Finish stores the stop time and counters of a session.
func (r *SessionRepository) Finish(id int64, stoppedAt time.Time, stats model.SessionStats) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		UPDATE sessions SET stopped_at = ?, frames = ?, failed_frames = ?, stop_reason = ?
		WHERE id = ?
	`, stoppedAt.UTC(), int64(stats.Frames), int64(stats.FailedFrames), stats.StopReason, id)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// FinishDangling closes sessions left open by a crash.
func (r *SessionRepository) FinishDangling(stoppedAt time.Time, reason string) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		UPDATE sessions SET stopped_at = ?, stop_reason = ? WHERE stopped_at IS NULL
	`, stoppedAt.UTC(), reason)
	if err != nil {
		return 0, fmt.Errorf("failed to finish dangling sessions: %w", err)
	}
	return result.RowsAffected()
}

// GetByID retrieves a session by id.
func (r *SessionRepository) GetByID(id int64) (*model.Session, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`
		SELECT id, facing_mode, device, user_agent, started_at, stopped_at, frames, failed_frames, stop_reason
		FROM sessions WHERE id = ?
	`, id)

	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// GetRecent returns up to limit sessions, newest first.
func (r *SessionRepository) GetRecent(limit int) ([]model.Session, error) {
	if limit <= 0 {
		limit = 20
	}

	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, facing_mode, device, user_agent, started_at, stopped_at, frames, failed_frames, stop_reason
		FROM sessions ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []model.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// GetTotalCount returns the number of recorded sessions.
func (r *SessionRepository) GetTotalCount() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// DeleteAll removes the whole session history.
func (r *SessionRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*model.Session, error) {
	var (
		s         model.Session
		stoppedAt sql.NullTime
		frames    int64
		failed    int64
	)
	if err := row.Scan(&s.ID, &s.FacingMode, &s.Device, &s.UserAgent, &s.StartedAt, &stoppedAt, &frames, &failed, &s.StopReason); err != nil {
		return nil, err
	}
	if stoppedAt.Valid {
		t := stoppedAt.Time
		s.StoppedAt = &t
	}
	s.Frames = uint64(frames)
	s.FailedFrames = uint64(failed)
	return &s, nil
}
