package store

import (
	"testing"
	"time"
)

func TestCreateProject(t *testing.T) {
	db := setupTestDB(t)

	p := &Project{
		ID:          "proj-1",
		Key:         "PROJ-AB12CD34",
		Name:        "Meal-prep marketplace",
		Description: "Connect home cooks with busy professionals",
		Status:      "active",
		LeadUserID:  "user-1",
		CreatedAt:   time.Now(),
	}
	if err := db.CreateProject(p); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	got, err := db.GetProject("proj-1")
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetProject returned nil")
	}
	if got.Key != p.Key || got.LeadUserID != p.LeadUserID {
		t.Errorf("project mismatch: got %+v, want %+v", got, p)
	}
}

func TestCreateProjectDuplicateKey(t *testing.T) {
	db := setupTestDB(t)

	p := &Project{ID: "proj-1", Key: "PROJ-SAME", Name: "one", Status: "active", LeadUserID: "u", CreatedAt: time.Now()}
	if err := db.CreateProject(p); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	dup := &Project{ID: "proj-2", Key: "PROJ-SAME", Name: "two", Status: "active", LeadUserID: "u", CreatedAt: time.Now()}
	if err := db.CreateProject(dup); err == nil {
		t.Error("duplicate project key should fail")
	}
}

func makeTask(id, projectID, key string, week int) *Task {
	return &Task{
		ID:           id,
		ProjectID:    projectID,
		Key:          key,
		Title:        "Build onboarding flow",
		Description:  "Done when a new user can sign up and reach the dashboard",
		Status:       "backlog",
		Priority:     "High",
		Week:         week,
		TimelineDays: 1.5,
		AssigneeID:   "member-1",
		ReporterID:   "user-1",
		CreatedAt:    time.Now(),
	}
}

func TestCreateTasksAtomic(t *testing.T) {
	db := setupTestDB(t)

	tasks := []*Task{
		makeTask("t-1", "proj-1", "TASK-1", 1),
		makeTask("t-2", "proj-1", "TASK-2", 2),
		makeTask("t-3", "proj-1", "TASK-3", 3),
	}
	if err := db.CreateTasks(tasks); err != nil {
		t.Fatalf("CreateTasks failed: %v", err)
	}

	got, err := db.ListProjectTasks("proj-1")
	if err != nil {
		t.Fatalf("ListProjectTasks failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("tasks = %d, want 3", len(got))
	}
	if got[0].Key != "TASK-1" || got[2].Week != 3 {
		t.Errorf("task ordering wrong: %+v", got)
	}
}

func TestCreateTasksRollsBackOnFailure(t *testing.T) {
	db := setupTestDB(t)

	// Duplicate key inside the batch forces the transaction to roll back.
	tasks := []*Task{
		makeTask("t-1", "proj-1", "TASK-1", 1),
		makeTask("t-2", "proj-1", "TASK-1", 2),
	}
	if err := db.CreateTasks(tasks); err == nil {
		t.Fatal("CreateTasks should fail on duplicate key")
	}

	got, err := db.ListProjectTasks("proj-1")
	if err != nil {
		t.Fatalf("ListProjectTasks failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("partial batch persisted: %d tasks", len(got))
	}
}
