package completion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/sprintforge/internal/planner"
	"github.com/ShayCichocki/sprintforge/internal/store"
	"github.com/ShayCichocki/sprintforge/internal/team"
)

// Store-backed collaborator implementations. Each wraps *store.DB with the
// semantics one step needs; the runner only sees the interfaces in steps.go.

// StoreProjects creates project records.
type StoreProjects struct {
	DB *store.DB
}

// CreateProject mints the project identifier and key, then inserts the
// record. The id is a random UUID; the key follows the PROJ-XXXXXXXX format
// shown to users.
func (s *StoreProjects) CreateProject(ctx context.Context, snap *Snapshot, roster *team.Roster) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if snap.IdeaTitle == "" {
		return "", fmt.Errorf("create project: session has no idea title")
	}
	if snap.LeadUserID == "" {
		return "", fmt.Errorf("create project: no lead user on trigger")
	}

	id := uuid.NewString()
	key := "PROJ-" + strings.ToUpper(strings.ReplaceAll(id, "-", "")[:8])

	err := s.DB.CreateProject(&store.Project{
		ID:          id,
		Key:         key,
		Name:        snap.IdeaTitle,
		Description: snap.IdeaSummary,
		Status:      "active",
		LeadUserID:  snap.LeadUserID,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// StoreDocuments lists and re-parents session documents.
type StoreDocuments struct {
	DB *store.DB
}

func (s *StoreDocuments) ListDocuments(ctx context.Context, sessionID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := s.DB.ListSessionDocuments(sessionID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.Name)
	}
	return names, nil
}

func (s *StoreDocuments) UpdateDocumentsProjectID(ctx context.Context, sessionID, projectID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.DB.AssignDocumentsProject(sessionID, projectID)
}

// StorePlans persists validated plans as task records.
type StorePlans struct {
	DB *store.DB
}

// SaveTasks converts the plan into task rows and writes them in one
// transaction. Task keys are sequential (TASK-1, TASK-2, ...) across the
// whole sprint, assignees resolve through the roster to member ids.
func (s *StorePlans) SaveTasks(ctx context.Context, projectID string, snap *Snapshot, plan *planner.Plan, roster *team.Roster) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var tasks []*store.Task
	n := 0
	for _, week := range plan.Weeks {
		for _, t := range week.Tasks {
			member, ok := roster.ByEmail(t.AssigneeEmail)
			if !ok {
				// Validation already guarantees resolution; a miss here is
				// a programming error, not a generation failure.
				return 0, fmt.Errorf("save tasks: assignee %q not in roster", t.AssigneeEmail)
			}
			n++
			tasks = append(tasks, &store.Task{
				ID:           uuid.NewString(),
				ProjectID:    projectID,
				Key:          fmt.Sprintf("TASK-%d", n),
				Title:        t.Title,
				Description:  t.Description,
				Status:       "backlog",
				Priority:     string(t.Priority),
				Week:         week.Week,
				TimelineDays: t.TimelineDays,
				AssigneeID:   member.ID,
				ReporterID:   snap.LeadUserID,
				CreatedAt:    time.Now(),
			})
		}
	}

	if err := s.DB.CreateTasks(tasks); err != nil {
		return 0, err
	}
	return len(tasks), nil
}

// StoreSessions records terminal session state.
type StoreSessions struct {
	DB *store.DB
}

func (s *StoreSessions) MarkCompleted(ctx context.Context, sessionID, projectID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.DB.MarkSessionCompleted(sessionID, projectID, time.Now())
}
