package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Project is the record created when a session completes its final stage.
type Project struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	LeadUserID  string    `json:"lead_user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Task is one sprint task persisted from a validated plan.
type Task struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Key          string    `json:"key"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
	Week         int       `json:"week"`
	TimelineDays float64   `json:"timeline_days"`
	AssigneeID   string    `json:"assignee_id"`
	ReporterID   string    `json:"reporter_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateProject stores a new project record.
func (db *DB) CreateProject(p *Project) error {
	_, err := db.Exec(`
		INSERT INTO projects (id, key, name, description, status, lead_user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Key, p.Name, p.Description, p.Status, p.LeadUserID, formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by ID. Returns nil without error when the
// project does not exist.
func (db *DB) GetProject(id string) (*Project, error) {
	row := db.QueryRow(`
		SELECT id, key, name, description, status, lead_user_id, created_at
		FROM projects WHERE id = ?
	`, id)

	var p Project
	var createdAt string
	err := row.Scan(&p.ID, &p.Key, &p.Name, &p.Description, &p.Status, &p.LeadUserID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

// CreateTasks persists a batch of tasks in a single transaction. Either all
// tasks are durably recorded or none are; the sprint_plan_generated/completed
// event is gated on this commit.
func (db *DB) CreateTasks(tasks []*Task) error {
	return db.Transaction(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO tasks (id, project_id, key, title, description, status, priority, week, timeline_days, assignee_id, reporter_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare task insert: %w", err)
		}
		defer stmt.Close()

		for _, t := range tasks {
			if _, err := stmt.Exec(t.ID, t.ProjectID, t.Key, t.Title, t.Description, t.Status, t.Priority, t.Week, t.TimelineDays, t.AssigneeID, t.ReporterID, formatTime(t.CreatedAt)); err != nil {
				return fmt.Errorf("insert task %s: %w", t.Key, err)
			}
		}
		return nil
	})
}

// ListProjectTasks returns a project's tasks ordered by week and key.
func (db *DB) ListProjectTasks(projectID string) ([]*Task, error) {
	rows, err := db.Query(`
		SELECT id, project_id, key, title, description, status, priority, week, timeline_days, assignee_id, reporter_id, created_at
		FROM tasks WHERE project_id = ? ORDER BY week, key
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		var t Task
		var createdAt string
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Key, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Week, &t.TimelineDays, &t.AssigneeID, &t.ReporterID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.CreatedAt = parseTime(createdAt)
		tasks = append(tasks, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}
