// Package scheduler runs cron jobs, each run optionally observed as a point.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"github.com/JailtonJunior94/pointkit/pkg/observability/noop"
	"github.com/JailtonJunior94/pointkit/pkg/point"
	"github.com/robfig/cron/v3"
)

type runFunc func(ctx context.Context, job string) error

type entry struct {
	job Job
	run runFunc
}

type Scheduler struct {
	settings settings
	cron     *cron.Cron
	mu       sync.RWMutex
	jobs     map[string]*entry
	running  atomic.Bool
	active   atomic.Int32
}

func New(opts ...Option) *Scheduler {
	s := settings{
		logger:          noop.NewProvider().Logger(),
		location:        time.Local,
		jobTimeout:      DefaultJobTimeout,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}

	logger := cronLogger{logger: s.logger}
	cronOpts := []cron.Option{
		cron.WithLogger(logger),
		cron.WithLocation(s.location),
		cron.WithChain(cron.Recover(logger)),
	}
	if s.withSeconds {
		cronOpts = append(cronOpts, cron.WithSeconds())
	}

	return &Scheduler{
		settings: s,
		cron:     cron.New(cronOpts...),
		jobs:     make(map[string]*entry),
	}
}

// RegisterJobs adds jobs to the schedule. Jobs may be added while the
// scheduler is running.
func (s *Scheduler) RegisterJobs(jobs ...Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range jobs {
		if job == nil {
			return ErrNilJob
		}

		name := job.Name()
		if name == "" {
			return ErrEmptyName
		}
		if _, exists := s.jobs[name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
		}
		if job.Schedule() == "" {
			return fmt.Errorf("%w: %s", ErrEmptySchedule, name)
		}

		e, err := s.newEntry(job)
		if err != nil {
			return err
		}

		if _, err := s.cron.AddFunc(job.Schedule(), func() {
			_ = s.runJob(context.Background(), e)
		}); err != nil {
			return fmt.Errorf("scheduler: schedule %s: %w", name, err)
		}
		s.jobs[name] = e

		s.settings.logger.Info(context.Background(), "job registered",
			observability.String("job", name),
			observability.String("schedule", job.Schedule()),
		)
	}

	return nil
}

func (s *Scheduler) newEntry(job Job) (*entry, error) {
	run := runFunc(func(ctx context.Context, _ string) error {
		return job.Run(ctx)
	})
	if s.settings.decorator == nil {
		return &entry{job: job, run: run}, nil
	}

	defaults := []point.PointOption{
		point.WithName(job.Name()),
		point.WithParams("job"),
	}
	decorated, err := point.Decorate(s.settings.decorator, run, append(defaults, s.settings.pointOptions...)...)
	if err != nil {
		return nil, err
	}
	return &entry{job: job, run: decorated}, nil
}

// Run executes a registered job immediately, outside its schedule.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	s.mu.RLock()
	e, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.runJob(ctx, e)
}

func (s *Scheduler) runJob(parent context.Context, e *entry) (err error) {
	s.active.Add(1)
	defer s.active.Add(-1)

	ctx, cancel := context.WithTimeout(parent, s.settings.jobTimeout)
	defer cancel()

	name := e.job.Name()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrJobPanicked, name, r)
		}

		if err != nil {
			s.settings.logger.Error(ctx, "job failed",
				observability.String("job", name),
				observability.Duration("duration", time.Since(start)),
				observability.Error(err),
			)
			return
		}
		s.settings.logger.Info(ctx, "job completed",
			observability.String("job", name),
			observability.Duration("duration", time.Since(start)),
		)
	}()

	return e.run(ctx, name)
}

// Start begins firing jobs on their schedules and returns at once.
func (s *Scheduler) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	s.cron.Start()
	s.settings.logger.Info(context.Background(), "scheduler started",
		observability.Int("jobs", s.JobCount()),
	)
	return nil
}

// Shutdown stops the schedule and waits for running jobs, bounded by ctx
// and the shutdown timeout.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}

	ctx, cancel := context.WithTimeout(ctx, s.settings.shutdownTimeout)
	defer cancel()

	select {
	case <-s.cron.Stop().Done():
		s.settings.logger.Info(ctx, "scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler: shutdown: %w", ctx.Err())
	}
}

func (s *Scheduler) JobCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// ActiveJobs is the number of jobs currently running.
func (s *Scheduler) ActiveJobs() int32 {
	return s.active.Load()
}

func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}
