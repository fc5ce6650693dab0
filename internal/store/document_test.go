package store

import (
	"testing"
	"time"
)

func TestListSessionDocumentsExcludesTrashed(t *testing.T) {
	db := setupTestDB(t)

	docs := []*Document{
		{ID: "d-1", SessionID: "sess-1", Name: "pitch.pdf", CreatedAt: time.Now()},
		{ID: "d-2", SessionID: "sess-1", Name: "research.md", Trashed: true, CreatedAt: time.Now()},
		{ID: "d-3", SessionID: "sess-2", Name: "other.txt", CreatedAt: time.Now()},
	}
	for _, d := range docs {
		if err := db.CreateDocument(d); err != nil {
			t.Fatalf("CreateDocument failed: %v", err)
		}
	}

	got, err := db.ListSessionDocuments("sess-1")
	if err != nil {
		t.Fatalf("ListSessionDocuments failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("documents = %d, want 1 (trashed and foreign excluded)", len(got))
	}
	if got[0].ID != "d-1" {
		t.Errorf("unexpected document %q", got[0].ID)
	}
}

func TestAssignDocumentsProject(t *testing.T) {
	db := setupTestDB(t)

	for _, d := range []*Document{
		{ID: "d-1", SessionID: "sess-1", Name: "a", CreatedAt: time.Now()},
		{ID: "d-2", SessionID: "sess-1", Name: "b", CreatedAt: time.Now()},
		{ID: "d-3", SessionID: "sess-1", Name: "c", Trashed: true, CreatedAt: time.Now()},
	} {
		if err := db.CreateDocument(d); err != nil {
			t.Fatalf("CreateDocument failed: %v", err)
		}
	}

	n, err := db.AssignDocumentsProject("sess-1", "proj-9")
	if err != nil {
		t.Fatalf("AssignDocumentsProject failed: %v", err)
	}
	if n != 2 {
		t.Errorf("updated = %d, want 2 (trashed excluded)", n)
	}

	got, _ := db.ListSessionDocuments("sess-1")
	for _, d := range got {
		if d.ProjectID != "proj-9" {
			t.Errorf("document %s project id = %q, want proj-9", d.ID, d.ProjectID)
		}
	}
}

func TestAssignDocumentsProjectEmptySession(t *testing.T) {
	db := setupTestDB(t)

	n, err := db.AssignDocumentsProject("sess-empty", "proj-1")
	if err != nil {
		t.Fatalf("AssignDocumentsProject failed: %v", err)
	}
	if n != 0 {
		t.Errorf("updated = %d, want 0", n)
	}
}

func TestSaveProjectSectionUpsert(t *testing.T) {
	db := setupTestDB(t)

	s := &ProjectSection{ID: "sec-1", ProjectID: "proj-1", Name: "Problem", Content: "v1", CreatedAt: time.Now()}
	if err := db.SaveProjectSection(s); err != nil {
		t.Fatalf("SaveProjectSection failed: %v", err)
	}

	// Background retries may write the same section twice.
	s2 := &ProjectSection{ID: "sec-2", ProjectID: "proj-1", Name: "Problem", Content: "v2", CreatedAt: time.Now()}
	if err := db.SaveProjectSection(s2); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	got, err := db.ListProjectSections("proj-1")
	if err != nil {
		t.Fatalf("ListProjectSections failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("sections = %d, want 1", len(got))
	}
	if got[0].Content != "v2" {
		t.Errorf("content = %q, want v2", got[0].Content)
	}
}

func TestUpsertTeamMember(t *testing.T) {
	db := setupTestDB(t)

	m := &TeamMember{
		ID:                 "m-1",
		SessionID:          "sess-1",
		Name:               "Priya",
		Email:              "priya@example.com",
		Profession:         "Backend engineer",
		Role:               "Tech lead",
		WeeklyCapacityDays: 5,
		CreatedAt:          time.Now(),
	}
	if err := db.UpsertTeamMember(m); err != nil {
		t.Fatalf("UpsertTeamMember failed: %v", err)
	}

	// Same email refreshes rather than duplicating.
	m.ID = "m-1b"
	m.WeeklyCapacityDays = 3
	if err := db.UpsertTeamMember(m); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	got, err := db.ListTeamMembers("sess-1")
	if err != nil {
		t.Fatalf("ListTeamMembers failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("members = %d, want 1", len(got))
	}
	if got[0].WeeklyCapacityDays != 3 {
		t.Errorf("capacity = %v, want 3", got[0].WeeklyCapacityDays)
	}
}
