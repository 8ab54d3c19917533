package point

import (
	"context"
	"fmt"
)

type accessorState int

const (
	stateCreated accessorState = iota
	stateArgsBound
	stateStackCaptured
	stateInitDone
	statePreDone
	stateCallRunning
	stateCallDone
	statePostDone
)

var stateNames = [...]string{
	"created", "args_bound", "stack_captured", "init_done",
	"pre_done", "call_running", "call_done", "post_done",
}

func (s accessorState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Accessor drives one invocation of a point. It is created per call and
// never shared, so it holds no locks.
type Accessor struct {
	point    *Point
	fn       Func
	recorder Recorder
	call     Call
	pc       Context
	state    accessorState
	bound    bool
	apply    func(ctx context.Context) (any, error)
	running  bool
	done     bool
}

func newAccessor(p *Point, pc Context, call Call) *Accessor {
	return &Accessor{
		point:    p,
		fn:       p.fn,
		recorder: p.binding,
		call:     call,
		pc:       pc,
	}
}

// Context returns the current point context.
func (a *Accessor) Context() Context {
	return a.pc
}

func (a *Accessor) advance(to accessorState) error {
	if to <= a.state {
		return fmt.Errorf("%w: %s after %s", ErrStageOrder, to, a.state)
	}
	a.state = to
	return nil
}

// BindArgs resolves the call against the point's signature.
func (a *Accessor) BindArgs() error {
	if err := a.advance(stateArgsBound); err != nil {
		return err
	}

	args, err := a.point.sig.Bind(a.call)
	if err != nil {
		return err
	}

	a.pc = a.pc.WithArgs(args, len(a.call.Args))
	a.bound = true
	return nil
}

// CaptureStack records the point name and, when collect is set, the
// caller frames allowed by the point's stack filter.
func (a *Accessor) CaptureStack(collect bool) error {
	if err := a.advance(stateStackCaptured); err != nil {
		return err
	}
	a.pc = a.pc.WithCallStack(a.point.d.stack.capture(a.point.name, collect))
	return nil
}

// RegisterStage runs one stage on the recorder. The state moves forward
// before the recorder runs, so a failed stage is never re-entered.
func (a *Accessor) RegisterStage(ctx context.Context, stage Stage) error {
	var to accessorState
	switch stage {
	case StageInit:
		to = stateInitDone
	case StagePre:
		if a.state != stateInitDone {
			return fmt.Errorf("%w: pre requires init, state is %s", ErrStageOrder, a.state)
		}
		to = statePreDone
	case StagePost:
		to = statePostDone
	default:
		return fmt.Errorf("%w: unknown stage %d", ErrStageOrder, stage)
	}

	if err := a.advance(to); err != nil {
		return err
	}

	pc, err := a.recorder.RunStage(ctx, a.pc, stage)
	a.adopt(pc)
	return err
}

// RegisterError reports a call error to the recorder.
func (a *Accessor) RegisterError(ctx context.Context, callErr error) error {
	pc, err := a.recorder.RegisterError(ctx, a.pc, callErr)
	a.adopt(pc)
	return err
}

// RegisterOwnError marks the context and hands err to EmergencyExit.
func (a *Accessor) RegisterOwnError(err error) {
	a.pc = a.pc.WithReuse(ReuseOwnError, err)
	a.recorder.EmergencyExit(a.pc, err)
}

func (a *Accessor) adopt(pc Context) {
	if !pc.IsZero() {
		a.pc = pc
	}
}

// Prepare builds the closure that dispatches the real callable with the
// current, possibly stage-rewritten, arguments.
func (a *Accessor) Prepare() error {
	if !a.bound {
		return fmt.Errorf("%w: arguments were never bound", ErrStageOrder)
	}
	if a.state >= stateCallRunning {
		return fmt.Errorf("%w: prepare after %s", ErrStageOrder, a.state)
	}

	call := a.point.sig.Apply(a.pc.args, a.pc.positional)
	if a.point.check != nil {
		if err := a.point.check(call); err != nil {
			return err
		}
	}

	fn := a.fn
	a.apply = func(ctx context.Context) (any, error) {
		return fn(ctx, call)
	}
	return nil
}

// Prepared reports whether Run can dispatch.
func (a *Accessor) Prepared() bool {
	return a.apply != nil
}

// Run invokes the real callable exactly once with the context's Go
// context. A panic leaves the accessor running but not done.
func (a *Accessor) Run() (any, error) {
	if a.apply == nil {
		return nil, fmt.Errorf("%w: run before prepare", ErrStageOrder)
	}
	if a.running || a.done {
		return nil, ErrAlreadyRun
	}

	a.state = stateCallRunning
	a.running = true

	result, err := a.apply(a.pc.Ctx())

	a.done = true
	a.state = stateCallDone
	a.pc = a.pc.WithResult(result)
	return result, err
}

// HasNotBeenDone reports whether Run never reached the real callable.
func (a *Accessor) HasNotBeenDone() bool {
	return !a.running
}

// Panicked reports whether the real callable started but never returned.
func (a *Accessor) Panicked() bool {
	return a.running && !a.done
}

// Fallback calls the real callable directly with the original call when
// Run was never reached. It is not isolated: whatever the callable returns
// or panics with goes to the caller.
func (a *Accessor) Fallback(ctx context.Context) (any, error) {
	if a.running || a.done {
		return nil, ErrAlreadyRun
	}

	a.state = stateCallRunning
	a.running = true

	result, err := a.fn(ctx, a.call)

	a.done = true
	a.state = stateCallDone
	a.pc = a.pc.WithResult(result)
	return result, err
}
