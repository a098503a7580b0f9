package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shiboli/mofadvisor/internal/log"
)

// JobState tracks a submitted document through the queue.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobDone      JobState = "done"
	JobFailed    JobState = "failed"
	JobDuplicate JobState = "duplicate"
)

// Job is one document queued for processing.
type Job struct {
	ID         uuid.UUID
	DocumentID string
	Content    string
}

// JobStatus is the observable state of a job.
type JobStatus struct {
	Job    Job
	State  JobState
	Report *Report
	Err    string
}

// ErrQueueClosed is returned by Submit after Close.
var ErrQueueClosed = errors.New("ingestion queue closed")

// Workers runs a fixed pool of goroutines, each with its own pipeline.
// Pipelines are created per worker rather than shared so each worker paces
// its own model calls independently.
type Workers struct {
	jobs    chan Job
	done    chan struct{}
	factory func() (*Pipeline, error)
	logger  log.Logger

	mu         sync.Mutex
	status     map[uuid.UUID]*JobStatus
	closed     bool
	submitters sync.WaitGroup
}

// NewWorkers creates a pool. factory is invoked once per worker at Run time.
func NewWorkers(queueSize int, factory func() (*Pipeline, error), logger log.Logger) *Workers {
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Workers{
		jobs:    make(chan Job, queueSize),
		done:    make(chan struct{}),
		factory: factory,
		logger:  logger,
		status:  make(map[uuid.UUID]*JobStatus),
	}
}

// Submit queues a document and returns the job ID. It blocks when the queue
// is full; a blocked Submit returns ErrQueueClosed if Close arrives first.
func (w *Workers) Submit(ctx context.Context, documentID, content string) (uuid.UUID, error) {
	job := Job{ID: uuid.New(), DocumentID: documentID, Content: content}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return uuid.Nil, ErrQueueClosed
	}
	w.status[job.ID] = &JobStatus{Job: job, State: JobQueued}
	// Registered under the same lock that sets closed, so Close waits for
	// this sender before closing the job channel.
	w.submitters.Add(1)
	w.mu.Unlock()
	defer w.submitters.Done()

	select {
	case w.jobs <- job:
		return job.ID, nil
	case <-w.done:
		w.forget(job.ID)
		return uuid.Nil, ErrQueueClosed
	case <-ctx.Done():
		w.forget(job.ID)
		return uuid.Nil, ctx.Err()
	}
}

func (w *Workers) forget(jobID uuid.UUID) {
	w.mu.Lock()
	delete(w.status, jobID)
	w.mu.Unlock()
}

// Status returns the state of a submitted job.
func (w *Workers) Status(jobID uuid.UUID) (JobStatus, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.status[jobID]
	if !ok {
		return JobStatus{}, false
	}
	return *s, true
}

// Close stops accepting jobs and wakes any Submit blocked on a full queue.
// The job channel is closed only after every in-flight Submit has returned,
// so no sender can race the close. Run returns once queued jobs drain.
func (w *Workers) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()

	w.submitters.Wait()
	close(w.jobs)
}

// Run processes jobs with n workers until the queue is closed and drained
// or the context is canceled. Each worker builds its own pipeline.
func (w *Workers) Run(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := range n {
		worker := i
		g.Go(func() error {
			pipeline, err := w.factory()
			if err != nil {
				return fmt.Errorf("worker %d: building pipeline: %w", worker, err)
			}
			return w.drain(ctx, worker, pipeline)
		})
	}
	return g.Wait()
}

func (w *Workers) drain(ctx context.Context, worker int, pipeline *Pipeline) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-w.jobs:
			if !ok {
				return nil
			}
			w.run(ctx, worker, pipeline, job)
		}
	}
}

func (w *Workers) run(ctx context.Context, worker int, pipeline *Pipeline, job Job) {
	w.setState(job.ID, func(s *JobStatus) { s.State = JobRunning })
	w.logger.Info("processing document", "worker", worker, "job", job.ID, "document", job.DocumentID)

	report, err := pipeline.Process(ctx, job.DocumentID, job.Content)
	switch {
	case errors.Is(err, ErrAlreadyProcessed):
		w.setState(job.ID, func(s *JobStatus) { s.State = JobDuplicate })
	case err != nil:
		w.logger.Error("document failed", "worker", worker, "document", job.DocumentID, "error", err)
		w.setState(job.ID, func(s *JobStatus) {
			s.State = JobFailed
			s.Report = report
			s.Err = err.Error()
		})
	default:
		w.setState(job.ID, func(s *JobStatus) {
			s.State = JobDone
			s.Report = report
		})
	}
}

func (w *Workers) setState(jobID uuid.UUID, update func(*JobStatus)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.status[jobID]; ok {
		update(s)
	}
}
