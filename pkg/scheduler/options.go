package scheduler

import (
	"time"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"github.com/JailtonJunior94/pointkit/pkg/point"
)

const (
	DefaultJobTimeout      = 5 * time.Minute
	DefaultShutdownTimeout = 30 * time.Second
)

type settings struct {
	logger          observability.Logger
	withSeconds     bool
	location        *time.Location
	jobTimeout      time.Duration
	shutdownTimeout time.Duration
	decorator       *point.Decorator
	pointOptions    []point.PointOption
}

type Option func(s *settings)

func WithLogger(logger observability.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithSeconds accepts six-field schedules with a leading seconds field.
func WithSeconds() Option {
	return func(s *settings) {
		s.withSeconds = true
	}
}

// WithLocation sets the time zone schedules are evaluated in.
// Default: time.Local
func WithLocation(location *time.Location) Option {
	return func(s *settings) {
		s.location = location
	}
}

// WithJobTimeout bounds a single job run.
// Default: 5 minutes
func WithJobTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		s.jobTimeout = timeout
	}
}

// WithShutdownTimeout bounds how long Shutdown waits for running jobs.
// Default: 30 seconds
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		s.shutdownTimeout = timeout
	}
}

// WithDecorator runs every job as a point named after the job.
func WithDecorator(d *point.Decorator, opts ...point.PointOption) Option {
	return func(s *settings) {
		s.decorator = d
		s.pointOptions = opts
	}
}
