// Package completion implements the stage-completion orchestrator: the state
// machine that runs when a session finishes the final workflow stage, drives
// the dependent backend operations in order, and streams progress events.
package completion

import (
	"context"
	"strings"

	"github.com/ShayCichocki/sprintforge/internal/narrative"
	"github.com/ShayCichocki/sprintforge/internal/planner"
	"github.com/ShayCichocki/sprintforge/internal/protocol"
	"github.com/ShayCichocki/sprintforge/internal/team"
)

// Snapshot is the immutable view of the session a run operates on, captured
// at trigger time. Steps read it and thread results to each other through
// the runner; none of them mutates shared session state.
type Snapshot struct {
	SessionID   string
	Stage       int
	IdeaTitle   string
	IdeaSummary string
	LeadUserID  string
}

// IdeaContext renders the snapshot as generation context for the planner and
// the narrative job.
func (s *Snapshot) IdeaContext() string {
	var b strings.Builder
	b.WriteString("Idea: ")
	b.WriteString(s.IdeaTitle)
	if s.IdeaSummary != "" {
		b.WriteString("\nSummary: ")
		b.WriteString(s.IdeaSummary)
	}
	return b.String()
}

// Sink receives the envelopes a run emits. *stream.Writer is the production
// implementation.
type Sink interface {
	Send(resp *protocol.ChatResponse) error
}

// TeamSyncer materializes the session's durable team roster.
type TeamSyncer interface {
	SyncTeamMembers(ctx context.Context, sessionID string) (*team.Roster, error)
}

// ProjectCreator creates the project record and returns its identifier. The
// identifier is minted exactly once here and threaded unchanged through to
// the final completed event.
type ProjectCreator interface {
	CreateProject(ctx context.Context, snap *Snapshot, roster *team.Roster) (projectID string, err error)
}

// DocumentUpdater lists a session's live documents and re-parents them onto
// the created project. ListDocuments is evaluated exactly once per run,
// before the sources step; documents added mid-run are not picked up.
type DocumentUpdater interface {
	ListDocuments(ctx context.Context, sessionID string) (names []string, err error)
	UpdateDocumentsProjectID(ctx context.Context, sessionID, projectID string) (updated int, err error)
}

// PlanGenerator produces a validated sprint plan. *planner.Generator is the
// production implementation; it owns the regeneration retry.
type PlanGenerator interface {
	Generate(ctx context.Context, ideaContext string, roster *team.Roster) (*planner.Plan, error)
}

// PlanStore persists a validated plan as task records. The write is atomic:
// the runner emits sprint_plan_generated/completed only after it returns.
type PlanStore interface {
	SaveTasks(ctx context.Context, projectID string, snap *Snapshot, plan *planner.Plan, roster *team.Roster) (count int, err error)
}

// NarrativeDispatcher is the fire-and-forget handoff for narrative-section
// generation. Dispatch must return immediately and never surface the job's
// outcome to the run.
type NarrativeDispatcher interface {
	Dispatch(job narrative.Job)
}

// SessionRecorder persists the terminal session state, the idempotency
// record that makes a finished session's re-trigger rejectable.
type SessionRecorder interface {
	MarkCompleted(ctx context.Context, sessionID, projectID string) error
}

// Collaborators bundles everything a run depends on.
type Collaborators struct {
	Team      TeamSyncer
	Projects  ProjectCreator
	Documents DocumentUpdater
	Planner   PlanGenerator
	Plans     PlanStore
	Narrative NarrativeDispatcher
	Sessions  SessionRecorder
}
