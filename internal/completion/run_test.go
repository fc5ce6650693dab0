package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/sprintforge/internal/narrative"
	"github.com/ShayCichocki/sprintforge/internal/planner"
	"github.com/ShayCichocki/sprintforge/internal/protocol"
	"github.com/ShayCichocki/sprintforge/internal/team"
)

type fakeTeam struct {
	roster *team.Roster
	err    error
}

func (f *fakeTeam) SyncTeamMembers(_ context.Context, sessionID string) (*team.Roster, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.roster == nil {
		f.roster = &team.Roster{SessionID: sessionID, Members: []team.Member{
			{ID: "m-1", Name: "Ada", Email: "ada@example.com", WeeklyCapacityDays: 5},
		}}
	}
	return f.roster, nil
}

type fakeProjects struct {
	id    string
	err   error
	calls int
}

func (f *fakeProjects) CreateProject(_ context.Context, _ *Snapshot, _ *team.Roster) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

type fakeDocs struct {
	names       []string
	listErr     error
	updateErr   error
	updateCalls int
	gotProject  string
}

func (f *fakeDocs) ListDocuments(_ context.Context, _ string) ([]string, error) {
	return f.names, f.listErr
}

func (f *fakeDocs) UpdateDocumentsProjectID(_ context.Context, _, projectID string) (int, error) {
	f.updateCalls++
	f.gotProject = projectID
	if f.updateErr != nil {
		return 0, f.updateErr
	}
	return len(f.names), nil
}

type fakePlanner struct {
	plan  *planner.Plan
	err   error
	calls int
}

func (f *fakePlanner) Generate(_ context.Context, _ string, _ *team.Roster) (*planner.Plan, error) {
	f.calls++
	return f.plan, f.err
}

type fakePlans struct {
	count      int
	err        error
	calls      int
	gotProject string
}

func (f *fakePlans) SaveTasks(_ context.Context, projectID string, _ *Snapshot, _ *planner.Plan, _ *team.Roster) (int, error) {
	f.calls++
	f.gotProject = projectID
	if f.err != nil {
		return 0, f.err
	}
	return f.count, nil
}

type fakeDispatcher struct {
	jobs []narrative.Job
}

func (f *fakeDispatcher) Dispatch(job narrative.Job) {
	f.jobs = append(f.jobs, job)
}

type fakeSessions struct {
	err       error
	completed map[string]string
}

func (f *fakeSessions) MarkCompleted(_ context.Context, sessionID, projectID string) error {
	if f.err != nil {
		return f.err
	}
	if f.completed == nil {
		f.completed = make(map[string]string)
	}
	f.completed[sessionID] = projectID
	return nil
}

// recordingSink captures every envelope. failAt, when positive, makes the
// nth Send (1-indexed) and all later ones fail.
type recordingSink struct {
	sent   []*protocol.ChatResponse
	failAt int
}

func (s *recordingSink) Send(resp *protocol.ChatResponse) error {
	if s.failAt > 0 && len(s.sent)+1 >= s.failAt {
		return errors.New("client went away")
	}
	s.sent = append(s.sent, resp)
	return nil
}

// keys renders the captured stream as compact event labels for ordering
// assertions.
func (s *recordingSink) keys() []string {
	out := make([]string, 0, len(s.sent))
	for _, r := range s.sent {
		switch r.ConnectionStatus {
		case protocol.StatusEventsStreaming:
			out = append(out, fmt.Sprintf("%s/%s", r.Event.EventType, r.Event.EventStatus))
		case protocol.StatusEventsCompleted:
			out = append(out, "events_completed")
		case protocol.StatusError:
			out = append(out, "error")
		default:
			out = append(out, string(r.ConnectionStatus))
		}
	}
	return out
}

type fixture struct {
	team      *fakeTeam
	projects  *fakeProjects
	docs      *fakeDocs
	planner   *fakePlanner
	plans     *fakePlans
	narrative *fakeDispatcher
	sessions  *fakeSessions
}

func newFixture() *fixture {
	return &fixture{
		team:      &fakeTeam{},
		projects:  &fakeProjects{id: "proj-abc"},
		docs:      &fakeDocs{},
		planner:   &fakePlanner{plan: &planner.Plan{}},
		plans:     &fakePlans{count: 7},
		narrative: &fakeDispatcher{},
		sessions:  &fakeSessions{},
	}
}

func (f *fixture) runner() *Runner {
	return NewRunner(Collaborators{
		Team:      f.team,
		Projects:  f.projects,
		Documents: f.docs,
		Planner:   f.planner,
		Plans:     f.plans,
		Narrative: f.narrative,
		Sessions:  f.sessions,
	}, time.Minute)
}

func testSnapshot() *Snapshot {
	return &Snapshot{
		SessionID:   "sess-1",
		Stage:       protocol.FinalStage,
		IdeaTitle:   "Meal-prep marketplace",
		IdeaSummary: "Connects home cooks with subscribers",
		LeadUserID:  "user-1",
	}
}

func assertKeys(t *testing.T, sink *recordingSink, want []string) {
	t.Helper()
	got := sink.keys()
	if len(got) != len(want) {
		t.Fatalf("event sequence = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event[%d] = %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestRunHappyPathWithDocuments(t *testing.T) {
	f := newFixture()
	f.docs.names = []string{"pitch.pdf", "research.md"}
	sink := &recordingSink{}

	if err := f.runner().Run(context.Background(), testSnapshot(), sink); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	assertKeys(t, sink, []string{
		"team_members_synced/started",
		"team_members_synced/completed",
		"project_created/started",
		"project_created/completed",
		"sources_updated/started",
		"sources_updated/completed",
		"sprint_plan_generated/started",
		"sprint_plan_generated/completed",
		"narrative_sections_started/started",
		"completed/completed",
		"events_completed",
	})

	final := sink.sent[len(sink.sent)-2]
	if final.Event.ProjectID != "proj-abc" {
		t.Errorf("final event project_id = %q, want proj-abc", final.Event.ProjectID)
	}
	if f.docs.gotProject != "proj-abc" || f.plans.gotProject != "proj-abc" {
		t.Error("project id was not threaded unchanged through the steps")
	}
	if f.sessions.completed["sess-1"] != "proj-abc" {
		t.Error("session was not marked completed with the project id")
	}
	if len(f.narrative.jobs) != 1 {
		t.Fatalf("dispatched jobs = %d, want 1", len(f.narrative.jobs))
	}
	job := f.narrative.jobs[0]
	if job.ProjectID != "proj-abc" || len(job.Documents) != 2 {
		t.Errorf("narrative job = %+v, want project proj-abc with 2 documents", job)
	}
}

func TestRunSkipsSourcesStepWithoutDocuments(t *testing.T) {
	f := newFixture()
	sink := &recordingSink{}

	if err := f.runner().Run(context.Background(), testSnapshot(), sink); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, k := range sink.keys() {
		if strings.HasPrefix(k, "sources_updated") {
			t.Fatalf("sources_updated must not be emitted without documents, got %v", sink.keys())
		}
	}
	if f.docs.updateCalls != 0 {
		t.Errorf("UpdateDocumentsProjectID calls = %d, want 0", f.docs.updateCalls)
	}
}

func TestRunProjectCreateFailureEmitsSingleError(t *testing.T) {
	f := newFixture()
	f.projects.err = errors.New("insert failed")
	sink := &recordingSink{}

	err := f.runner().Run(context.Background(), testSnapshot(), sink)
	if err == nil {
		t.Fatal("Run should fail when project creation fails")
	}

	assertKeys(t, sink, []string{
		"team_members_synced/started",
		"team_members_synced/completed",
		"project_created/started",
		"error",
	})
	if f.planner.calls != 0 || f.plans.calls != 0 {
		t.Error("later steps ran after a failed step")
	}
	if len(f.narrative.jobs) != 0 {
		t.Error("narrative dispatched after a failed run")
	}
	if len(f.sessions.completed) != 0 {
		t.Error("session marked completed after a failed run")
	}
	last := sink.sent[len(sink.sent)-1]
	if last.ErrorMessage == "" || !strings.Contains(last.ErrorMessage, "project creation") {
		t.Errorf("error envelope message = %q, want the failed step named", last.ErrorMessage)
	}
}

func TestRunPlanPersistenceGatesCompletedEvent(t *testing.T) {
	f := newFixture()
	f.plans.err = errors.New("disk full")
	sink := &recordingSink{}

	if err := f.runner().Run(context.Background(), testSnapshot(), sink); err == nil {
		t.Fatal("Run should fail when task persistence fails")
	}

	keys := sink.keys()
	if keys[len(keys)-1] != "error" {
		t.Fatalf("stream must end with error, got %v", keys)
	}
	for _, k := range keys {
		if k == "sprint_plan_generated/completed" {
			t.Fatal("sprint_plan_generated/completed emitted without persisted tasks")
		}
	}
	if len(f.sessions.completed) != 0 {
		t.Error("session marked completed after a failed run")
	}
}

func TestRunNarrativeOutcomeNeverReachesStream(t *testing.T) {
	f := newFixture()
	sink := &recordingSink{}

	if err := f.runner().Run(context.Background(), testSnapshot(), sink); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, k := range sink.keys() {
		if k == "narrative_sections_started/completed" {
			t.Fatal("narrative step must never emit a completed event")
		}
	}
}

func TestRunAbortsWithoutErrorEnvelopeWhenSinkDies(t *testing.T) {
	f := newFixture()
	sink := &recordingSink{failAt: 4}

	err := f.runner().Run(context.Background(), testSnapshot(), sink)
	if err == nil {
		t.Fatal("Run should surface the sink failure")
	}

	for _, r := range sink.sent {
		if r.ConnectionStatus == protocol.StatusError {
			t.Fatal("no error envelope should be written to a dead sink")
		}
	}
	if f.plans.calls != 0 {
		t.Error("steps kept running after the client went away")
	}
}

func TestRunStepTimeout(t *testing.T) {
	f := newFixture()
	f.planner.err = context.DeadlineExceeded
	sink := &recordingSink{}

	err := f.runner().Run(context.Background(), testSnapshot(), sink)
	if err == nil {
		t.Fatal("Run should fail on step timeout")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("err = %v, want a timeout description", err)
	}
	last := sink.sent[len(sink.sent)-1]
	if last.ConnectionStatus != protocol.StatusError {
		t.Errorf("terminal envelope = %s, want error", last.ConnectionStatus)
	}
}

func TestAcquireRejectsConcurrentRun(t *testing.T) {
	r := newFixture().runner()

	release, err := r.Acquire("sess-1")
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if _, err := r.Acquire("sess-1"); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("second Acquire err = %v, want ErrRunInProgress", err)
	}
	if _, err := r.Acquire("sess-2"); err != nil {
		t.Fatalf("other sessions must not be blocked: %v", err)
	}

	release()
	release2, err := r.Acquire("sess-1")
	if err != nil {
		t.Fatalf("Acquire after release failed: %v", err)
	}
	release2()
}

func TestCompletedErrorCarriesProjectID(t *testing.T) {
	err := &CompletedError{ProjectID: "proj-abc"}
	if !strings.Contains(err.Error(), "proj-abc") {
		t.Errorf("error text %q should include the project id", err.Error())
	}
}
