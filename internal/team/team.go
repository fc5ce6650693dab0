// Package team defines the execution-team roster used by project creation
// and sprint planning, and the store-backed sync that produces it.
package team

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ShayCichocki/sprintforge/internal/store"
)

// DefaultWeeklyCapacityDays is assumed for members whose capacity was never
// stated during the team-profile stage.
const DefaultWeeklyCapacityDays = 5.0

// Member is one member of the execution team.
type Member struct {
	ID                 string
	Name               string
	Email              string
	Profession         string
	Role               string
	WeeklyCapacityDays float64
}

// Roster is the synced team for one session. It is an immutable snapshot:
// steps after team sync read it, never re-query.
type Roster struct {
	SessionID string
	Members   []Member
}

// ByEmail resolves an assignee reference to a member.
func (r *Roster) ByEmail(email string) (*Member, bool) {
	for i := range r.Members {
		if strings.EqualFold(r.Members[i].Email, email) {
			return &r.Members[i], true
		}
	}
	return nil, false
}

// Describe renders the roster as prompt context for plan generation.
func (r *Roster) Describe() string {
	var b strings.Builder
	for _, m := range r.Members {
		fmt.Fprintf(&b, "- %s <%s>", m.Name, m.Email)
		if m.Profession != "" {
			fmt.Fprintf(&b, ", %s", m.Profession)
		}
		if m.Role != "" {
			fmt.Fprintf(&b, " (%s)", m.Role)
		}
		fmt.Fprintf(&b, ", capacity %.1f days/week\n", m.WeeklyCapacityDays)
	}
	return b.String()
}

// ErrEmptyRoster indicates a session with no recorded team members; the
// completion run cannot proceed without a team.
var ErrEmptyRoster = errors.New("no team members recorded for session")

// Syncer materializes the durable roster for a session from the member
// records accumulated during the team-profile stage.
type Syncer struct {
	db *store.DB
}

// NewSyncer creates a store-backed Syncer.
func NewSyncer(db *store.DB) *Syncer {
	return &Syncer{db: db}
}

// SyncTeamMembers loads and normalizes the session's team. Members without a
// stated capacity get the default, durably, so later steps and the buffer
// rule can rely on it.
func (s *Syncer) SyncTeamMembers(ctx context.Context, sessionID string) (*Roster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := s.db.ListTeamMembers(sessionID)
	if err != nil {
		return nil, fmt.Errorf("sync team members: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sync team members: %w", ErrEmptyRoster)
	}

	roster := &Roster{SessionID: sessionID}
	for _, rec := range records {
		if rec.WeeklyCapacityDays <= 0 {
			rec.WeeklyCapacityDays = DefaultWeeklyCapacityDays
			if err := s.db.UpsertTeamMember(rec); err != nil {
				return nil, fmt.Errorf("sync team members: %w", err)
			}
		}

		roster.Members = append(roster.Members, Member{
			ID:                 rec.ID,
			Name:               rec.Name,
			Email:              rec.Email,
			Profession:         rec.Profession,
			Role:               rec.Role,
			WeeklyCapacityDays: rec.WeeklyCapacityDays,
		})
	}
	return roster, nil
}
