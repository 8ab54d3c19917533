package scheduler

import "errors"

var (
	ErrRunning       = errors.New("scheduler: already running")
	ErrNotRunning    = errors.New("scheduler: not running")
	ErrNilJob        = errors.New("scheduler: job cannot be nil")
	ErrEmptyName     = errors.New("scheduler: job name cannot be empty")
	ErrEmptySchedule = errors.New("scheduler: job schedule cannot be empty")
	ErrDuplicateJob  = errors.New("scheduler: job already registered")
	ErrUnknownJob    = errors.New("scheduler: unknown job")
	ErrJobPanicked   = errors.New("scheduler: job panicked")
)
