package completion

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/ShayCichocki/sprintforge/internal/planner"
	"github.com/ShayCichocki/sprintforge/internal/store"
	"github.com/ShayCichocki/sprintforge/internal/team"
)

func setupTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var projectKeyPattern = regexp.MustCompile(`^PROJ-[0-9A-F]{8}$`)

func TestStoreProjectsCreateProject(t *testing.T) {
	db := setupTestDB(t)
	sp := &StoreProjects{DB: db}

	id, err := sp.CreateProject(context.Background(), testSnapshot(), nil)
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	p, err := db.GetProject(id)
	if err != nil || p == nil {
		t.Fatalf("GetProject(%s) = %v, %v", id, p, err)
	}
	if !projectKeyPattern.MatchString(p.Key) {
		t.Errorf("project key %q does not match PROJ-XXXXXXXX", p.Key)
	}
	if p.Name != "Meal-prep marketplace" || p.LeadUserID != "user-1" {
		t.Errorf("project record = %+v", p)
	}
	if p.Status != "active" {
		t.Errorf("project status = %q, want active", p.Status)
	}
}

func TestStoreProjectsRequiresIdeaTitle(t *testing.T) {
	sp := &StoreProjects{DB: setupTestDB(t)}
	snap := testSnapshot()
	snap.IdeaTitle = ""

	if _, err := sp.CreateProject(context.Background(), snap, nil); err == nil {
		t.Fatal("CreateProject should reject a session without an idea title")
	}
}

func TestStorePlansSaveTasks(t *testing.T) {
	db := setupTestDB(t)
	sp := &StorePlans{DB: db}

	roster := &team.Roster{Members: []team.Member{
		{ID: "m-1", Name: "Ada", Email: "ada@example.com", WeeklyCapacityDays: 5},
		{ID: "m-2", Name: "Bob", Email: "bob@example.com", WeeklyCapacityDays: 5},
	}}
	plan := &planner.Plan{Weeks: []planner.Week{
		{Week: 1, Tasks: []planner.Task{
			{Title: "Set up repo", Description: "Done when CI is green", Priority: planner.PriorityHigh, TimelineDays: 2, AssigneeEmail: "ada@example.com"},
			{Title: "Draft schema", Description: "Done when reviewed", Priority: planner.PriorityMedium, TimelineDays: 3, AssigneeEmail: "bob@example.com"},
		}},
		{Week: 2, Tasks: []planner.Task{
			{Title: "Build API", Description: "Done when endpoints pass tests", Priority: planner.PriorityHigh, TimelineDays: 4, AssigneeEmail: "ada@example.com"},
		}},
	}}

	count, err := sp.SaveTasks(context.Background(), "proj-1", testSnapshot(), plan, roster)
	if err != nil {
		t.Fatalf("SaveTasks failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}

	tasks, err := db.ListProjectTasks("proj-1")
	if err != nil {
		t.Fatalf("ListProjectTasks failed: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("persisted tasks = %d, want 3", len(tasks))
	}
	for i, task := range tasks {
		wantKey := "TASK-" + string(rune('1'+i))
		if task.Key != wantKey {
			t.Errorf("task[%d].Key = %q, want %q", i, task.Key, wantKey)
		}
		if task.Status != "backlog" {
			t.Errorf("task %s status = %q, want backlog", task.Key, task.Status)
		}
		if task.ReporterID != "user-1" {
			t.Errorf("task %s reporter = %q, want user-1", task.Key, task.ReporterID)
		}
	}
	if tasks[0].AssigneeID != "m-1" || tasks[1].AssigneeID != "m-2" {
		t.Error("assignee emails did not resolve to member ids")
	}
}

func TestStorePlansRejectsUnknownAssignee(t *testing.T) {
	sp := &StorePlans{DB: setupTestDB(t)}
	roster := &team.Roster{Members: []team.Member{{ID: "m-1", Email: "ada@example.com"}}}
	plan := &planner.Plan{Weeks: []planner.Week{
		{Week: 1, Tasks: []planner.Task{
			{Title: "t", Description: "Done when done", Priority: planner.PriorityLow, TimelineDays: 1, AssigneeEmail: "ghost@example.com"},
		}},
	}}

	if _, err := sp.SaveTasks(context.Background(), "proj-1", testSnapshot(), plan, roster); err == nil {
		t.Fatal("SaveTasks should reject an assignee outside the roster")
	}
}

func TestStoreDocumentsRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	sd := &StoreDocuments{DB: db}

	for _, d := range []*store.Document{
		{ID: "d-1", SessionID: "sess-1", Name: "pitch.pdf"},
		{ID: "d-2", SessionID: "sess-1", Name: "old.txt", Trashed: true},
	} {
		if err := db.CreateDocument(d); err != nil {
			t.Fatalf("CreateDocument failed: %v", err)
		}
	}

	names, err := sd.ListDocuments(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(names) != 1 || names[0] != "pitch.pdf" {
		t.Fatalf("names = %v, want only the live document", names)
	}

	updated, err := sd.UpdateDocumentsProjectID(context.Background(), "sess-1", "proj-1")
	if err != nil {
		t.Fatalf("UpdateDocumentsProjectID failed: %v", err)
	}
	if updated != 1 {
		t.Errorf("updated = %d, want 1", updated)
	}
}
