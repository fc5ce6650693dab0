package store

import (
	"testing"
	"time"
)

// Session CRUD Tests

func TestCreateAndGetSession(t *testing.T) {
	db := setupTestDB(t)

	session := &Session{
		ID:          "sess-001",
		UserID:      "user-1",
		IdeaTitle:   "Meal-prep marketplace",
		IdeaSummary: "Connect home cooks with busy professionals",
		Stage:       3,
		Status:      SessionActive,
		CreatedAt:   time.Now(),
	}

	if err := db.CreateSession(session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := db.GetSession("sess-001")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetSession returned nil")
	}
	if got.ID != session.ID || got.IdeaTitle != session.IdeaTitle || got.Stage != 3 {
		t.Errorf("session mismatch: got %+v, want %+v", got, session)
	}
	if got.Status != SessionActive {
		t.Errorf("status = %s, want active", got.Status)
	}
	if got.CompletedAt != nil {
		t.Errorf("CompletedAt should be nil for an active session")
	}
}

func TestGetSessionMissing(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.GetSession("nonexistent")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for nonexistent session, got %+v", got)
	}
}

func TestUpdateSessionStage(t *testing.T) {
	db := setupTestDB(t)

	session := &Session{ID: "sess-stage", Status: SessionActive, CreatedAt: time.Now()}
	if err := db.CreateSession(session); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if err := db.UpdateSessionStage("sess-stage", 7); err != nil {
		t.Fatalf("UpdateSessionStage failed: %v", err)
	}

	got, _ := db.GetSession("sess-stage")
	if got.Stage != 7 {
		t.Errorf("stage = %d, want 7", got.Stage)
	}

	if err := db.UpdateSessionStage("missing", 1); err == nil {
		t.Error("UpdateSessionStage should fail for missing session")
	}
}

func TestMarkSessionCompleted(t *testing.T) {
	db := setupTestDB(t)

	session := &Session{ID: "sess-done", Status: SessionActive, CreatedAt: time.Now()}
	if err := db.CreateSession(session); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	now := time.Now()
	if err := db.MarkSessionCompleted("sess-done", "proj-42", now); err != nil {
		t.Fatalf("MarkSessionCompleted failed: %v", err)
	}

	got, _ := db.GetSession("sess-done")
	if got.Status != SessionCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.ProjectID != "proj-42" {
		t.Errorf("project id = %q, want proj-42", got.ProjectID)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt should be set")
	}
}
