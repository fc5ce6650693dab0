package narrative

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Job parameterizes one background narrative run.
type Job struct {
	ProjectID   string
	SessionID   string
	IdeaContext string
	// Documents are the names of the session's source documents, included
	// as generation context.
	Documents []string
}

// Runner executes one job to completion. *Generator is the production
// implementation.
type Runner interface {
	Run(ctx context.Context, job Job) error
}

// DispatcherConfig configures the background pool.
type DispatcherConfig struct {
	// Workers is the number of concurrent jobs (default 2).
	Workers int
	// QueueSize is the buffered backlog before Dispatch falls back to a
	// spawned sender (default 16).
	QueueSize int
	// Retries is the number of re-runs after a failed job (default 2).
	Retries int
	// Backoff is the base delay between retries, scaled linearly (default 5s).
	Backoff time.Duration
}

func (c *DispatcherConfig) defaults() {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 16
	}
	if c.Retries < 0 {
		c.Retries = 2
	}
	if c.Backoff <= 0 {
		c.Backoff = 5 * time.Second
	}
}

// Dispatcher owns the background execution context for narrative jobs. Its
// contract with the orchestrator: Dispatch returns immediately, and nothing
// that happens to the job afterwards — failure, retry, panic — ever reaches
// the caller. Failure handling is the dispatcher's own policy: bounded
// retries with backoff, then a logged drop.
type Dispatcher struct {
	runner Runner
	cfg    DispatcherConfig

	jobs chan Job
	done chan struct{}
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher creates the pool and starts its workers. The pool's context
// is independent of any request; jobs outlive the streams that spawned them.
func NewDispatcher(runner Runner, cfg DispatcherConfig) *Dispatcher {
	cfg.defaults()

	d := &Dispatcher{
		runner: runner,
		cfg:    cfg,
		jobs:   make(chan Job, cfg.QueueSize),
		done:   make(chan struct{}),
	}

	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Dispatch hands a job to the pool and returns immediately. When the queue
// is full, a goroutine carries the blocked send so the caller still returns
// at once. After Close the job is dropped with a log line.
func (d *Dispatcher) Dispatch(job Job) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		log.Printf("[narrative] dispatcher closed, dropping job for project %s", job.ProjectID)
		return
	}
	d.mu.Unlock()

	select {
	case d.jobs <- job:
	default:
		go func() {
			select {
			case d.jobs <- job:
			case <-d.done:
				log.Printf("[narrative] shutdown before enqueue, dropping job for project %s", job.ProjectID)
			}
		}()
	}
}

// Close stops the pool. Workers finish their current job; queued jobs that
// never started are dropped with a log line.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.done)
	d.wg.Wait()

	dropped := len(d.jobs)
	if dropped > 0 {
		log.Printf("[narrative] dropped %d queued jobs on shutdown", dropped)
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobs:
			d.process(job)
		case <-d.done:
			return
		}
	}
}

func (d *Dispatcher) process(job Job) {
	for attempt := 0; attempt <= d.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * d.cfg.Backoff):
			case <-d.done:
				log.Printf("[narrative] shutdown during retry, dropping job for project %s", job.ProjectID)
				return
			}
		}

		err := d.safeRun(job)
		if err == nil {
			log.Printf("[narrative] sections complete for project %s", job.ProjectID)
			return
		}
		log.Printf("[narrative] job for project %s failed (attempt %d/%d): %v",
			job.ProjectID, attempt+1, d.cfg.Retries+1, err)
	}
	log.Printf("[narrative] giving up on project %s after %d attempts", job.ProjectID, d.cfg.Retries+1)
}

// safeRun executes the job, converting panics into errors so a bad job can
// never take a worker down.
func (d *Dispatcher) safeRun(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("narrative job panicked: %v", r)
		}
	}()
	return d.runner.Run(context.Background(), job)
}
