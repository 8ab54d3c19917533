package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"github.com/JailtonJunior94/pointkit/pkg/observability/fake"
	"github.com/JailtonJunior94/pointkit/pkg/point"
	"github.com/JailtonJunior94/pointkit/pkg/scheduler"
	"github.com/JailtonJunior94/pointkit/pkg/schema"
	"github.com/JailtonJunior94/pointkit/pkg/tracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDecorator(t *testing.T, provider *fake.Provider) *point.Decorator {
	t.Helper()

	tr, err := tracer.New(tracer.DefaultConfig("billing-worker"), provider)
	require.NoError(t, err)
	require.NoError(t, tr.Connect(context.Background(), nil))

	engine, err := schema.NewEngine(tr)
	require.NoError(t, err)

	d, err := point.New(engine, tr)
	require.NoError(t, err)
	return d
}

func TestRegisterJobs_Validation(t *testing.T) {
	s := scheduler.New()
	noop := func(context.Context) error { return nil }

	assert.ErrorIs(t, s.RegisterJobs(nil), scheduler.ErrNilJob)
	assert.ErrorIs(t, s.RegisterJobs(scheduler.NewFuncJob("", "@hourly", noop)), scheduler.ErrEmptyName)
	assert.ErrorIs(t, s.RegisterJobs(scheduler.NewFuncJob("close-invoices", "", noop)), scheduler.ErrEmptySchedule)
	assert.Error(t, s.RegisterJobs(scheduler.NewFuncJob("close-invoices", "not a schedule", noop)))

	require.NoError(t, s.RegisterJobs(scheduler.NewFuncJob("close-invoices", "@hourly", noop)))
	assert.ErrorIs(t, s.RegisterJobs(scheduler.NewFuncJob("close-invoices", "@daily", noop)), scheduler.ErrDuplicateJob)
	assert.Equal(t, 1, s.JobCount())
}

func TestRun_UnknownJob(t *testing.T) {
	err := scheduler.New().Run(context.Background(), "missing")
	assert.ErrorIs(t, err, scheduler.ErrUnknownJob)
}

func TestRun_AsPoint(t *testing.T) {
	provider := fake.NewProvider()
	s := scheduler.New(scheduler.WithDecorator(newDecorator(t, provider)))

	var inside observability.Span
	require.NoError(t, s.RegisterJobs(scheduler.NewFuncJob("close-invoices", "@hourly", func(ctx context.Context) error {
		inside = provider.FakeTracer().SpanFromContext(ctx)
		return nil
	})))

	require.NoError(t, s.Run(context.Background(), "close-invoices"))

	span := provider.FakeTracer().SpanByName("close-invoices")
	require.NotNil(t, span)
	assert.Same(t, span, inside)
	assert.True(t, span.Ended())
	assert.Equal(t, observability.StatusCodeOK, span.StatusCode())
}

func TestRun_ErrorIsRecorded(t *testing.T) {
	provider := fake.NewProvider()
	s := scheduler.New(
		scheduler.WithDecorator(newDecorator(t, provider)),
		scheduler.WithLogger(provider.Logger()),
	)

	failure := errors.New("ledger locked")
	require.NoError(t, s.RegisterJobs(scheduler.NewFuncJob("close-invoices", "@hourly", func(context.Context) error {
		return failure
	})))

	err := s.Run(context.Background(), "close-invoices")
	assert.Same(t, failure, err)

	span := provider.FakeTracer().SpanByName("close-invoices")
	require.NotNil(t, span)
	assert.Equal(t, observability.StatusCodeError, span.StatusCode())
	entries := provider.FakeLogger().EntriesAt(observability.LogLevelError)
	require.Len(t, entries, 1)
	assert.Equal(t, "job failed", entries[0].Message)
}

func TestRun_PanicBecomesError(t *testing.T) {
	provider := fake.NewProvider()
	s := scheduler.New(scheduler.WithDecorator(newDecorator(t, provider)))

	require.NoError(t, s.RegisterJobs(scheduler.NewFuncJob("close-invoices", "@hourly", func(context.Context) error {
		panic("nil ledger")
	})))

	err := s.Run(context.Background(), "close-invoices")
	assert.ErrorIs(t, err, scheduler.ErrJobPanicked)
	assert.Equal(t, int32(0), s.ActiveJobs())

	span := provider.FakeTracer().SpanByName("close-invoices")
	require.NotNil(t, span)
	require.Len(t, span.RecordedErrors(), 1)
	assert.ErrorIs(t, span.RecordedErrors()[0], point.ErrPointPanicked)
}

func TestRun_JobTimeout(t *testing.T) {
	s := scheduler.New(scheduler.WithJobTimeout(10 * time.Millisecond))

	require.NoError(t, s.RegisterJobs(scheduler.NewFuncJob("slow", "@hourly", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})))

	assert.ErrorIs(t, s.Run(context.Background(), "slow"), context.DeadlineExceeded)
}

func TestStartShutdown(t *testing.T) {
	s := scheduler.New()

	assert.ErrorIs(t, s.Shutdown(context.Background()), scheduler.ErrNotRunning)

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(), scheduler.ErrRunning)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestScheduledRun(t *testing.T) {
	s := scheduler.New(scheduler.WithSeconds())

	ran := make(chan struct{}, 1)
	require.NoError(t, s.RegisterJobs(scheduler.NewFuncJob("tick", "* * * * * *", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})))

	require.NoError(t, s.Start())
	defer func() { _ = s.Shutdown(context.Background()) }()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}
