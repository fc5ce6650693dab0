package completion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ShayCichocki/sprintforge/internal/narrative"
	"github.com/ShayCichocki/sprintforge/internal/protocol"
	"github.com/ShayCichocki/sprintforge/internal/team"
)

// DefaultStepTimeout bounds each awaited step. Expiry is a step failure and
// takes the run to its error state.
const DefaultStepTimeout = 2 * time.Minute

// CompletedError rejects a trigger for a session that already finished its
// completion run. It carries the existing project id so clients can recover
// it without re-running side effects.
type CompletedError struct {
	ProjectID string
}

func (e *CompletedError) Error() string {
	return fmt.Sprintf("session already completed (project %s)", e.ProjectID)
}

// Runner drives stage-completion runs. One Runner serves all sessions; each
// Run call is one linear state machine over one session's snapshot:
//
//	INIT → TEAM_SYNC → PROJECT_CREATE → [SOURCES_UPDATE] → SPRINT_PLAN
//	     → NARRATIVE_DISPATCH → FINAL_COMPLETE → STREAM_CLOSE
//
// with ERROR reachable from every state. Steps are strictly sequential; the
// only exception is the narrative dispatch, which is handed off and never
// awaited.
type Runner struct {
	co          Collaborators
	locks       *sessionLocks
	stepTimeout time.Duration
}

// NewRunner creates a Runner. stepTimeout <= 0 selects DefaultStepTimeout.
func NewRunner(co Collaborators, stepTimeout time.Duration) *Runner {
	if stepTimeout <= 0 {
		stepTimeout = DefaultStepTimeout
	}
	return &Runner{
		co:          co,
		locks:       newSessionLocks(),
		stepTimeout: stepTimeout,
	}
}

// Acquire reserves the session for one run. Callers must invoke the returned
// release exactly once, after the run ends. A second trigger while a run is
// active gets ErrRunInProgress.
func (r *Runner) Acquire(sessionID string) (release func(), err error) {
	if err := r.locks.acquire(sessionID); err != nil {
		return nil, err
	}
	return func() { r.locks.release(sessionID) }, nil
}

// Run executes the state machine for one snapshot, emitting envelopes on
// out. Returns nil when the stream closed with events_completed. Any awaited
// step failure is converted into exactly one terminal error envelope; send
// failures (client gone) abort the run without further emission. Committed
// side effects are never rolled back.
func (r *Runner) Run(ctx context.Context, snap *Snapshot, out Sink) error {
	stage := snap.Stage

	// TEAM_SYNC
	var roster *team.Roster
	err := r.step(ctx, out, stage, protocol.EventTeamMembersSynced, func(sctx context.Context) error {
		var serr error
		roster, serr = r.co.Team.SyncTeamMembers(sctx, snap.SessionID)
		return serr
	})
	if err != nil {
		return r.fail(out, snap, "team sync", err)
	}

	// The documents predicate is evaluated once, here, so documents added
	// while later steps run cannot change the branch.
	docNames, derr := r.co.Documents.ListDocuments(ctx, snap.SessionID)
	if derr != nil {
		return r.fail(out, snap, "document lookup", derr)
	}

	// PROJECT_CREATE
	var projectID string
	err = r.step(ctx, out, stage, protocol.EventProjectCreated, func(sctx context.Context) error {
		var serr error
		projectID, serr = r.co.Projects.CreateProject(sctx, snap, roster)
		return serr
	})
	if err != nil {
		return r.fail(out, snap, "project creation", err)
	}

	// SOURCES_UPDATE, skipped entirely when the session has no documents:
	// neither of its events is emitted.
	docsLinked := 0
	if len(docNames) > 0 {
		err = r.step(ctx, out, stage, protocol.EventSourcesUpdated, func(sctx context.Context) error {
			var serr error
			docsLinked, serr = r.co.Documents.UpdateDocumentsProjectID(sctx, snap.SessionID, projectID)
			return serr
		})
		if err != nil {
			return r.fail(out, snap, "source document update", err)
		}
	}

	// SPRINT_PLAN: generation (with its own validation retry) and atomic
	// task persistence both complete before the completed event.
	taskCount := 0
	err = r.step(ctx, out, stage, protocol.EventSprintPlanGenerated, func(sctx context.Context) error {
		plan, serr := r.co.Planner.Generate(sctx, snap.IdeaContext(), roster)
		if serr != nil {
			return serr
		}
		taskCount, serr = r.co.Plans.SaveTasks(sctx, projectID, snap, plan, roster)
		return serr
	})
	if err != nil {
		return r.fail(out, snap, "sprint plan generation", err)
	}

	// NARRATIVE_DISPATCH: started event only, then fire-and-forget. The
	// job outlives the run; its outcome is never observed on this stream.
	if err := out.Send(protocol.EventEnvelope(protocol.EventNarrativeSectionsStarted, protocol.EventStarted, stage)); err != nil {
		return err
	}
	r.co.Narrative.Dispatch(narrative.Job{
		ProjectID:   projectID,
		SessionID:   snap.SessionID,
		IdeaContext: snap.IdeaContext(),
		Documents:   docNames,
	})

	// FINAL_COMPLETE: the idempotency record is durable before the client
	// sees the final event.
	if err := r.markCompleted(ctx, snap.SessionID, projectID); err != nil {
		return r.fail(out, snap, "session completion", err)
	}
	if err := out.Send(protocol.FinalEnvelope(projectID, stage)); err != nil {
		return err
	}

	// STREAM_CLOSE
	summary := buildSummary(snap, roster, docsLinked, taskCount)
	if err := out.Send(protocol.SummaryEnvelope(summary, stage)); err != nil {
		return err
	}

	log.Printf("[completion] session %s completed: project %s, %d tasks", snap.SessionID, projectID, taskCount)
	return nil
}

// step emits the started event, awaits fn under the per-step timeout, and
// emits the completed event. Send errors come back unwrapped so the caller
// can tell a dead client from a failed step.
func (r *Runner) step(ctx context.Context, out Sink, stage int, et protocol.EventType, fn func(context.Context) error) error {
	if err := out.Send(protocol.EventEnvelope(et, protocol.EventStarted, stage)); err != nil {
		return &sendError{err}
	}

	sctx, cancel := context.WithTimeout(ctx, r.stepTimeout)
	defer cancel()
	if err := fn(sctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("timed out after %s", r.stepTimeout)
		}
		return err
	}

	if err := out.Send(protocol.EventEnvelope(et, protocol.EventDone, stage)); err != nil {
		return &sendError{err}
	}
	return nil
}

func (r *Runner) markCompleted(ctx context.Context, sessionID, projectID string) error {
	sctx, cancel := context.WithTimeout(ctx, r.stepTimeout)
	defer cancel()
	return r.co.Sessions.MarkCompleted(sctx, sessionID, projectID)
}

// fail converts a step failure into the single terminal error envelope. When
// the failure is a dead connection there is nothing left to emit.
func (r *Runner) fail(out Sink, snap *Snapshot, stepName string, err error) error {
	var serr *sendError
	if errors.As(err, &serr) {
		log.Printf("[completion] session %s: stream closed during %s: %v", snap.SessionID, stepName, serr.err)
		return serr.err
	}

	log.Printf("[completion] session %s: %s failed: %v", snap.SessionID, stepName, err)
	msg := fmt.Sprintf("%s failed: %v", stepName, err)
	if sendErr := out.Send(protocol.ErrorEnvelope(msg, snap.Stage)); sendErr != nil {
		log.Printf("[completion] session %s: could not deliver error envelope: %v", snap.SessionID, sendErr)
	}
	return err
}

// sendError wraps a Sink failure so fail can distinguish it from step errors.
type sendError struct {
	err error
}

func (e *sendError) Error() string { return e.err.Error() }
func (e *sendError) Unwrap() error { return e.err }

func buildSummary(snap *Snapshot, roster *team.Roster, docsLinked, taskCount int) string {
	s := fmt.Sprintf("Project %q is ready: %d team members synced, %d sprint tasks planned across %d weeks.",
		snap.IdeaTitle, len(roster.Members), taskCount, 4)
	if docsLinked > 0 {
		s += fmt.Sprintf(" %d source documents were linked to the project.", docsLinked)
	}
	s += " Narrative sections are being generated in the background."
	return s
}
