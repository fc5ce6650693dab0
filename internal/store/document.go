package store

import (
	"fmt"
	"time"
)

// Document is a source document uploaded during a session. After stage
// completion it is re-parented onto the created project.
type Document struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Trashed   bool      `json:"trashed"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateDocument stores a new document record.
func (db *DB) CreateDocument(d *Document) error {
	_, err := db.Exec(`
		INSERT INTO documents (id, session_id, project_id, name, trashed, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.ID, d.SessionID, d.ProjectID, d.Name, boolToInt(d.Trashed), formatTime(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// ListSessionDocuments returns a session's documents, excluding trashed ones.
func (db *DB) ListSessionDocuments(sessionID string) ([]*Document, error) {
	rows, err := db.Query(`
		SELECT id, session_id, COALESCE(project_id, ''), name, trashed, created_at
		FROM documents WHERE session_id = ? AND trashed = 0 ORDER BY created_at
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		var d Document
		var trashed int
		var createdAt string
		if err := rows.Scan(&d.ID, &d.SessionID, &d.ProjectID, &d.Name, &trashed, &createdAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Trashed = trashed != 0
		d.CreatedAt = parseTime(createdAt)
		docs = append(docs, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// AssignDocumentsProject re-parents all of a session's live documents onto a
// project in one statement. Returns the number of documents updated.
func (db *DB) AssignDocumentsProject(sessionID, projectID string) (int, error) {
	res, err := db.Exec(`
		UPDATE documents SET project_id = ?
		WHERE session_id = ? AND trashed = 0
	`, projectID, sessionID)
	if err != nil {
		return 0, fmt.Errorf("assign documents project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("assign documents project: %w", err)
	}
	return int(n), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
