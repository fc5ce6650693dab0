package narrative

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recordingRunner tracks runs and fails a configurable number of times.
type recordingRunner struct {
	mu       sync.Mutex
	runs     []Job
	failures int
	ran      chan struct{}
}

func newRecordingRunner(failures int) *recordingRunner {
	return &recordingRunner{failures: failures, ran: make(chan struct{}, 64)}
}

func (r *recordingRunner) Run(_ context.Context, job Job) error {
	r.mu.Lock()
	r.runs = append(r.runs, job)
	fail := len(r.runs) <= r.failures
	r.mu.Unlock()
	r.ran <- struct{}{}
	if fail {
		return errors.New("generation failed")
	}
	return nil
}

func (r *recordingRunner) runCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func waitFor(t *testing.T, ch chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for run %d/%d", i+1, n)
		}
	}
}

func TestDispatchReturnsImmediately(t *testing.T) {
	block := make(chan struct{})
	var started atomic.Int32
	runner := runnerFunc(func(context.Context, Job) error {
		started.Add(1)
		<-block
		return nil
	})
	d := NewDispatcher(runner, DispatcherConfig{Workers: 1, QueueSize: 1, Backoff: time.Millisecond})
	defer func() {
		close(block)
		d.Close()
	}()

	// More dispatches than worker+queue capacity; none may block the caller.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Dispatch(Job{ProjectID: "p"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Dispatch blocked the caller")
	}
}

// runnerFunc adapts a function to the Runner interface.
type runnerFunc func(ctx context.Context, job Job) error

func (f runnerFunc) Run(ctx context.Context, job Job) error { return f(ctx, job) }

func TestDispatcherRunsJob(t *testing.T) {
	runner := newRecordingRunner(0)
	d := NewDispatcher(runner, DispatcherConfig{Backoff: time.Millisecond})
	defer d.Close()

	d.Dispatch(Job{ProjectID: "proj-1", SessionID: "sess-1"})
	waitFor(t, runner.ran, 1)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.runs[0].ProjectID != "proj-1" {
		t.Errorf("job project = %q", runner.runs[0].ProjectID)
	}
}

func TestDispatcherRetriesFailedJob(t *testing.T) {
	runner := newRecordingRunner(2)
	d := NewDispatcher(runner, DispatcherConfig{Retries: 2, Backoff: time.Millisecond})
	defer d.Close()

	d.Dispatch(Job{ProjectID: "proj-1"})
	waitFor(t, runner.ran, 3)

	if got := runner.runCount(); got != 3 {
		t.Errorf("runs = %d, want 3 (two failures then success)", got)
	}
}

func TestDispatcherGivesUpAfterRetries(t *testing.T) {
	runner := newRecordingRunner(100)
	d := NewDispatcher(runner, DispatcherConfig{Retries: 1, Backoff: time.Millisecond})
	defer d.Close()

	d.Dispatch(Job{ProjectID: "proj-1"})
	waitFor(t, runner.ran, 2)

	// Give the pool a moment to prove it stops at the retry budget.
	time.Sleep(50 * time.Millisecond)
	if got := runner.runCount(); got != 2 {
		t.Errorf("runs = %d, want 2", got)
	}
}

func TestDispatcherSurvivesPanickingJob(t *testing.T) {
	var calls atomic.Int32
	ran := make(chan struct{}, 8)
	runner := runnerFunc(func(_ context.Context, job Job) error {
		calls.Add(1)
		ran <- struct{}{}
		if job.ProjectID == "bad" {
			panic("boom")
		}
		return nil
	})
	d := NewDispatcher(runner, DispatcherConfig{Workers: 1, Retries: 0, Backoff: time.Millisecond})
	defer d.Close()

	d.Dispatch(Job{ProjectID: "bad"})
	waitFor(t, ran, 1)
	d.Dispatch(Job{ProjectID: "good"})
	waitFor(t, ran, 1)

	if calls.Load() != 2 {
		t.Errorf("worker died after panic: %d calls", calls.Load())
	}
}

func TestDispatchAfterCloseIsDropped(t *testing.T) {
	runner := newRecordingRunner(0)
	d := NewDispatcher(runner, DispatcherConfig{Backoff: time.Millisecond})
	d.Close()

	// Must not panic or block.
	d.Dispatch(Job{ProjectID: "late"})
	time.Sleep(20 * time.Millisecond)
	if runner.runCount() != 0 {
		t.Error("job ran after Close")
	}
}
