// Package scheduler runs named background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is a scheduled unit of work. ctx is cancelled on Stop.
type JobFunc func(ctx context.Context) error

// JobStatus describes a scheduled job.
type JobStatus struct {
	Name      string    `json:"name"`
	Running   bool      `json:"running"`
	LastRun   time.Time `json:"last_run,omitempty"`
	NextRun   time.Time `json:"next_run"`
	Schedule  string    `json:"schedule"`
	LastError string    `json:"last_error,omitempty"`
}

type job struct {
	entry    cron.EntryID
	schedule string
	fn       JobFunc
	running  bool
	lastRun  time.Time
	lastErr  error
}

// parser accepts five-field expressions and descriptors such as "@every 30m".
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scheduler runs jobs on their schedules. A job never overlaps itself.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.RWMutex
	jobs    map[string]*job
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an empty Scheduler.
func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithParser(parser)),
		logger: slog.Default(),
		jobs:   make(map[string]*job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// WithLogger sets the logger for the scheduler.
func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	s.logger = logger
	return s
}

// Add schedules fn under name, replacing any job of the same name.
func (s *Scheduler) Add(name, expr string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, ok := s.jobs[name]; ok {
		s.cron.Remove(j.entry)
		delete(s.jobs, name)
	}

	entry, err := s.cron.AddFunc(expr, func() {
		if j := s.claim(name); j != nil {
			s.run(name, j)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	s.jobs[name] = &job{entry: entry, schedule: expr, fn: fn}
	s.logger.Info("scheduled job",
		"job", name,
		"schedule", expr,
		"next_run", s.cron.Entry(entry).Next)
	return nil
}

// Remove unschedules a job. Unknown names are ignored.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, ok := s.jobs[name]; ok {
		s.cron.Remove(j.entry)
		delete(s.jobs, name)
		s.logger.Info("removed job", "job", name)
	}
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.started = true
	s.stopped = false
	n := len(s.jobs)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", n)
}

// IsRunning returns true if the scheduler has been started and not yet stopped.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && !s.stopped
}

// Stop halts the schedule, cancels running jobs and returns a context that
// is done once they have returned.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	s.cancel()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		cancel()
	}()
	return ctx
}

// Trigger runs a job now, outside its schedule.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("scheduler is stopped")
	}
	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("job %s is not scheduled", name)
	}
	if j.running {
		return fmt.Errorf("job %s is already running", name)
	}
	j.running = true
	s.wg.Add(1)
	go s.run(name, j)
	return nil
}

// claim marks a job running. It returns nil when the job is gone, busy,
// or the scheduler has stopped.
func (s *Scheduler) claim(name string) *job {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok || s.stopped || j.running {
		return nil
	}
	j.running = true
	s.wg.Add(1)
	return j
}

// run executes a claimed job and records the outcome.
func (s *Scheduler) run(name string, j *job) {
	defer s.wg.Done()

	start := time.Now()
	err := j.fn(s.ctx)

	s.mu.Lock()
	j.running = false
	j.lastErr = err
	if err == nil {
		j.lastRun = time.Now()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled job failed", "job", name, "duration", time.Since(start), "error", err)
		return
	}
	s.logger.Debug("scheduled job completed", "job", name, "duration", time.Since(start))
}

// Status returns the state of every job, sorted by name.
func (s *Scheduler) Status() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]JobStatus, 0, len(s.jobs))
	for name, j := range s.jobs {
		st := JobStatus{
			Name:     name,
			Running:  j.running,
			LastRun:  j.lastRun,
			NextRun:  s.cron.Entry(j.entry).Next,
			Schedule: j.schedule,
		}
		if j.lastErr != nil {
			st.LastError = j.lastErr.Error()
		}
		statuses = append(statuses, st)
	}
	sort.Slice(statuses, func(i, k int) bool { return statuses[i].Name < statuses[k].Name })
	return statuses
}

// ValidateCronExpr validates a cron expression without scheduling anything.
func ValidateCronExpr(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}
