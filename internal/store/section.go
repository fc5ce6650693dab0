package store

import (
	"fmt"
	"time"
)

// ProjectSection is one generated narrative section of a project, written by
// the background narrative job after the stream has closed.
type ProjectSection struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveProjectSection inserts or replaces a section, keyed by
// (project_id, name). Background retries make double writes possible.
func (db *DB) SaveProjectSection(s *ProjectSection) error {
	_, err := db.Exec(`
		INSERT INTO project_sections (id, project_id, name, content, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id, name) DO UPDATE SET
			content = excluded.content
	`, s.ID, s.ProjectID, s.Name, s.Content, formatTime(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("save project section: %w", err)
	}
	return nil
}

// ListProjectSections returns a project's sections in insertion order.
func (db *DB) ListProjectSections(projectID string) ([]*ProjectSection, error) {
	rows, err := db.Query(`
		SELECT id, project_id, name, content, created_at
		FROM project_sections WHERE project_id = ? ORDER BY created_at, name
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project sections: %w", err)
	}
	defer rows.Close()

	var sections []*ProjectSection
	for rows.Next() {
		var s ProjectSection
		var createdAt string
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Name, &s.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan project section: %w", err)
		}
		s.CreatedAt = parseTime(createdAt)
		sections = append(sections, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list project sections: %w", err)
	}
	return sections, nil
}
