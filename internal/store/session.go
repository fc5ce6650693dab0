package store

import (
	"database/sql"
	"fmt"
	"time"
)

// SessionStatus represents the lifecycle state of an idea-intake session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// Session represents one idea-intake session progressing through stages 0-8.
type Session struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	IdeaTitle   string        `json:"idea_title"`
	IdeaSummary string        `json:"idea_summary"`
	Stage       int           `json:"stage"`
	Status      SessionStatus `json:"status"`
	// ProjectID is set once the stage-completion run creates the project.
	ProjectID   string     `json:"project_id"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// CreateSession creates a new session.
func (db *DB) CreateSession(s *Session) error {
	_, err := db.Exec(`
		INSERT INTO sessions (id, user_id, idea_title, idea_summary, stage, status, project_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.UserID, s.IdeaTitle, s.IdeaSummary, s.Stage, string(s.Status), s.ProjectID, formatTime(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID. Returns nil without error when the
// session does not exist.
func (db *DB) GetSession(id string) (*Session, error) {
	row := db.QueryRow(`
		SELECT id, user_id, idea_title, idea_summary, stage, status, project_id, created_at, completed_at
		FROM sessions WHERE id = ?
	`, id)

	var s Session
	var createdAt string
	var completedAt sql.NullString
	err := row.Scan(&s.ID, &s.UserID, &s.IdeaTitle, &s.IdeaSummary, &s.Stage, &s.Status, &s.ProjectID, &createdAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	s.CreatedAt = parseTime(createdAt)
	if completedAt.Valid {
		t := parseTime(completedAt.String)
		s.CompletedAt = &t
	}
	return &s, nil
}

// UpdateSessionStage records workflow progress for a session.
func (db *DB) UpdateSessionStage(id string, stage int) error {
	res, err := db.Exec(`UPDATE sessions SET stage = ? WHERE id = ?`, stage, id)
	if err != nil {
		return fmt.Errorf("update session stage: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update session stage: session %s not found", id)
	}
	return nil
}

// UpdateSessionIdea records the idea title and summary gathered by the
// workflow; project creation names the project after them.
func (db *DB) UpdateSessionIdea(id, title, summary string) error {
	_, err := db.Exec(`UPDATE sessions SET idea_title = ?, idea_summary = ? WHERE id = ?`, title, summary, id)
	if err != nil {
		return fmt.Errorf("update session idea: %w", err)
	}
	return nil
}

// MarkSessionCompleted records the terminal state of a session together with
// the project it produced. This row is the idempotency record that makes
// re-triggering a finished session rejectable.
func (db *DB) MarkSessionCompleted(id, projectID string, at time.Time) error {
	res, err := db.Exec(`
		UPDATE sessions SET status = ?, project_id = ?, completed_at = ?
		WHERE id = ?
	`, string(SessionCompleted), projectID, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("mark session completed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark session completed: session %s not found", id)
	}
	return nil
}
