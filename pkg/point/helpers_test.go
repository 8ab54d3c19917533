package point_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"github.com/JailtonJunior94/pointkit/pkg/observability/fake"
	"github.com/JailtonJunior94/pointkit/pkg/point"
)

var errStage = errors.New("stage failed")

type stubAdapter struct {
	debug   bool
	collect bool
	client  *fake.Provider
}

func newStubAdapter() *stubAdapter {
	return &stubAdapter{client: fake.NewProvider()}
}

func (a *stubAdapter) Debug() bool                         { return a.debug }
func (a *stubAdapter) CollectTrace() bool                  { return a.collect }
func (a *stubAdapter) Client() observability.Observability { return a.client }

type spyEngine struct {
	disabled  atomic.Bool
	binding   *spyBinding
	bindErr   error
	observers []point.StateObserver
	variants  []string
}

func newSpyEngine() *spyEngine {
	return &spyEngine{binding: &spyBinding{openSpan: true}}
}

func (e *spyEngine) IsTracerDisabled() bool { return e.disabled.Load() }

func (e *spyEngine) RegisterStateObserver(o point.StateObserver) {
	e.observers = append(e.observers, o)
}

func (e *spyEngine) Bind(variant, ruleSet string) (point.Binding, error) {
	e.variants = append(e.variants, variant+"/"+ruleSet)
	if e.bindErr != nil {
		return nil, e.bindErr
	}
	return e.binding, nil
}

// spyBinding records every collaborator call. With openSpan set it starts
// a fake span in INIT and ends it in POST.
type spyBinding struct {
	mu        sync.Mutex
	openSpan  bool
	failAll   bool
	panicAll  bool
	rewrite   func(pc point.Context) point.Context
	stages    []point.Stage
	callErrs  []error
	exits     []error
	contexts  map[point.Stage]point.Context
	stageCtxs map[point.Stage]context.Context
	seen      map[point.Stage]ctxState
	enabled   []bool
}

// ctxState is what a stage observed about its context while it ran.
type ctxState struct {
	err         error
	deadline    time.Time
	hasDeadline bool
}

func (b *spyBinding) OnTracerState(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = append(b.enabled, enabled)
}

func (b *spyBinding) RunStage(ctx context.Context, pc point.Context, stage point.Stage) (point.Context, error) {
	b.mu.Lock()
	b.stages = append(b.stages, stage)
	if b.contexts == nil {
		b.contexts = make(map[point.Stage]point.Context)
		b.stageCtxs = make(map[point.Stage]context.Context)
		b.seen = make(map[point.Stage]ctxState)
	}
	b.stageCtxs[stage] = ctx
	deadline, hasDeadline := ctx.Deadline()
	b.seen[stage] = ctxState{err: ctx.Err(), deadline: deadline, hasDeadline: hasDeadline}
	b.mu.Unlock()

	switch stage {
	case point.StageInit:
		if b.openSpan {
			spanCtx, span := pc.Client().Tracer().Start(pc.Ctx(), pc.Name())
			pc = pc.WithSpan(spanCtx, span)
		}
	case point.StagePre:
		if b.rewrite != nil {
			pc = b.rewrite(pc)
		}
	case point.StagePost:
		if span := pc.Span(); span != nil {
			span.End()
		}
	}

	b.mu.Lock()
	b.contexts[stage] = pc
	b.mu.Unlock()

	if b.panicAll {
		panic("stage exploded")
	}
	if b.failAll {
		return pc, errStage
	}
	return pc, nil
}

func (b *spyBinding) RegisterError(_ context.Context, pc point.Context, err error) (point.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callErrs = append(b.callErrs, err)
	if b.failAll {
		return pc, errStage
	}
	return pc, nil
}

func (b *spyBinding) EmergencyExit(_ point.Context, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exits = append(b.exits, err)
}

func (b *spyBinding) Stages() []point.Stage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]point.Stage(nil), b.stages...)
}

func (b *spyBinding) CallErrors() []error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]error(nil), b.callErrs...)
}

func (b *spyBinding) Exits() []error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]error(nil), b.exits...)
}

func (b *spyBinding) ContextAt(stage point.Stage) point.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.contexts[stage]
}

func (b *spyBinding) Seen(stage point.Stage) (ctxState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.seen[stage]
	return state, ok
}

func (b *spyBinding) StageCtx(stage point.Stage) context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stageCtxs[stage]
}
