package store

import (
	"fmt"
	"time"
)

// TeamMember is one member of a session's execution team, recorded during
// the team-profile stage of the workflow.
type TeamMember struct {
	ID         string `json:"id"`
	SessionID  string `json:"session_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Profession string `json:"profession"`
	Role       string `json:"role"`
	// WeeklyCapacityDays is the member's stated available working days per
	// week; sprint planning may allocate at most 80% of it.
	WeeklyCapacityDays float64   `json:"weekly_capacity_days"`
	CreatedAt          time.Time `json:"created_at"`
}

// UpsertTeamMember inserts or refreshes a member record, keyed by
// (session_id, email).
func (db *DB) UpsertTeamMember(m *TeamMember) error {
	_, err := db.Exec(`
		INSERT INTO team_members (id, session_id, name, email, profession, role, weekly_capacity_days, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, email) DO UPDATE SET
			name = excluded.name,
			profession = excluded.profession,
			role = excluded.role,
			weekly_capacity_days = excluded.weekly_capacity_days
	`, m.ID, m.SessionID, m.Name, m.Email, m.Profession, m.Role, m.WeeklyCapacityDays, formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert team member: %w", err)
	}
	return nil
}

// ListTeamMembers returns all members recorded for a session.
func (db *DB) ListTeamMembers(sessionID string) ([]*TeamMember, error) {
	rows, err := db.Query(`
		SELECT id, session_id, name, email, profession, role, weekly_capacity_days, created_at
		FROM team_members WHERE session_id = ? ORDER BY created_at, email
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	var members []*TeamMember
	for rows.Next() {
		var m TeamMember
		var createdAt string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Name, &m.Email, &m.Profession, &m.Role, &m.WeeklyCapacityDays, &createdAt); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		m.CreatedAt = parseTime(createdAt)
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	return members, nil
}
