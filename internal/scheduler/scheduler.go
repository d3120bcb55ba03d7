// Package scheduler runs one-shot background jobs and notifies listeners
// when they finish.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrShutdown is returned when adding a job to a scheduler that is shutting down.
var ErrShutdown = errors.New("scheduler is shut down")

// EventCode identifies what happened to a job. Codes are bit flags so a
// listener can subscribe to several.
type EventCode int

const (
	EventJobExecuted EventCode = 1 << iota
	EventJobError
)

// EventAll matches every event.
const EventAll = EventJobExecuted | EventJobError

func (c EventCode) String() string {
	switch c {
	case EventJobExecuted:
		return "executed"
	case EventJobError:
		return "error"
	}
	return fmt.Sprintf("EventCode(%d)", int(c))
}

// Event is dispatched to listeners after a job finishes.
type Event struct {
	JobID   string
	JobName string
	Code    EventCode
	Err     error
}

// Listener receives job events.
type Listener func(Event)

// JobFunc is the work a job performs.
type JobFunc func(ctx context.Context) error

// State is a job's lifecycle stage.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Job is a snapshot of a scheduled job.
type Job struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	State     State     `json:"state"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
}

type job struct {
	Job
	fn JobFunc
}

type listener struct {
	fn   Listener
	mask EventCode
}

// Scheduler runs each added job once, asynchronously. Jobs added before Start
// wait until Start.
type Scheduler struct {
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	started   bool
	stopped   bool
	jobs      []*job
	pending   []*job
	listeners []listener
	wg        sync.WaitGroup
}

// New returns a scheduler that has not been started.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{logger: logger, ctx: ctx, cancel: cancel}
}

// AddJob schedules fn to run once and returns its snapshot.
func (s *Scheduler) AddJob(name string, fn JobFunc) (Job, error) {
	return s.add(uuid.NewString(), name, fn)
}

func (s *Scheduler) add(id, name string, fn JobFunc) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return Job{}, ErrShutdown
	}
	j := &job{Job: Job{ID: id, Name: name, State: StatePending}, fn: fn}
	s.jobs = append(s.jobs, j)
	if s.started {
		s.launchLocked(j)
	} else {
		s.pending = append(s.pending, j)
	}
	s.logger.Debug("job added", zap.String("job", name), zap.String("job_id", id))
	return j.Job, nil
}

// AddListener registers fn for the events selected by mask.
func (s *Scheduler) AddListener(fn Listener, mask EventCode) {
	s.mu.Lock()
	s.listeners = append(s.listeners, listener{fn: fn, mask: mask})
	s.mu.Unlock()
}

// Start launches pending jobs. Later jobs start as they are added.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	for _, j := range s.pending {
		s.launchLocked(j)
	}
	s.pending = nil
	s.logger.Info("scheduler started")
}

func (s *Scheduler) launchLocked(j *job) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(j)
	}()
}

func (s *Scheduler) run(j *job) {
	s.mu.Lock()
	j.State = StateRunning
	j.StartedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("running job", zap.String("job", j.Name), zap.String("job_id", j.ID))
	err := runSafely(s.ctx, j.fn)

	s.mu.Lock()
	j.EndedAt = time.Now()
	ev := Event{JobID: j.ID, JobName: j.Name, Code: EventJobExecuted}
	if err != nil {
		j.State = StateFailed
		j.Error = err.Error()
		ev.Code, ev.Err = EventJobError, err
	} else {
		j.State = StateSucceeded
	}
	elapsed := j.EndedAt.Sub(j.StartedAt)
	listeners := append([]listener(nil), s.listeners...)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("job failed", zap.String("job", j.Name), zap.Error(err), zap.Duration("elapsed", elapsed))
	} else {
		s.logger.Info("job executed successfully", zap.String("job", j.Name), zap.Duration("elapsed", elapsed))
	}
	for _, l := range listeners {
		if l.mask&ev.Code != 0 {
			s.notify(l.fn, ev)
		}
	}
}

func runSafely(ctx context.Context, fn JobFunc) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()
	return fn(ctx)
}

func (s *Scheduler) notify(fn Listener, ev Event) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("job listener panicked", zap.String("job", ev.JobName), zap.Any("panic", p))
		}
	}()
	fn(ev)
}

// Jobs returns snapshots of every job in the order they were added.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, len(s.jobs))
	for i, j := range s.jobs {
		out[i] = j.Job
	}
	return out
}

// Shutdown rejects new jobs and waits for running ones. If ctx ends first
// the jobs' context is cancelled and ctx's error returned.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.pending = nil
	s.mu.Unlock()
	s.logger.Info("shutting down scheduler")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}
