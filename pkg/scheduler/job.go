package scheduler

import "context"

// Job is a unit of work run on a cron schedule.
type Job interface {
	Name() string
	// Schedule is a standard cron expression, or a descriptor such as
	// "@every 5m". Six fields need WithSeconds.
	Schedule() string
	Run(ctx context.Context) error
}

// FuncJob adapts a function to Job.
type FuncJob struct {
	name     string
	schedule string
	fn       func(ctx context.Context) error
}

func NewFuncJob(name, schedule string, fn func(ctx context.Context) error) *FuncJob {
	return &FuncJob{name: name, schedule: schedule, fn: fn}
}

func (j *FuncJob) Name() string {
	return j.name
}

func (j *FuncJob) Schedule() string {
	return j.schedule
}

func (j *FuncJob) Run(ctx context.Context) error {
	return j.fn(ctx)
}
