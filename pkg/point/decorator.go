package point

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"github.com/JailtonJunior94/pointkit/pkg/observability/noop"
	"github.com/google/uuid"
)

// DefaultPostTimeout bounds the POST stage when it runs detached from a
// cancelled caller context.
const DefaultPostTimeout = 2 * time.Second

// Func is the calling convention of a wrapped callable.
type Func func(ctx context.Context, call Call) (any, error)

// Decorator wraps callables into points. It is built once at process start
// from an explicitly injected engine and adapter.
type Decorator struct {
	engine      Engine
	adapter     Adapter
	logger      observability.Logger
	metrics     *selfMetrics
	stackConfig StackConfig
	stack       *stackFilter
	postTimeout time.Duration
	newCallID   func() string
}

// Option configures a Decorator.
type Option func(*decoratorOptions)

type decoratorOptions struct {
	logger      observability.Logger
	metrics     observability.Metrics
	stack       StackConfig
	postTimeout time.Duration
}

// WithLogger sets the logger for own errors. Defaults to the adapter client's logger.
func WithLogger(logger observability.Logger) Option {
	return func(o *decoratorOptions) {
		o.logger = logger
	}
}

// WithMetrics sets where self-metrics go. Defaults to the adapter client's metrics.
func WithMetrics(metrics observability.Metrics) Option {
	return func(o *decoratorOptions) {
		o.metrics = metrics
	}
}

// WithStack sets the call-stack bounds and ignore lists.
func WithStack(cfg StackConfig) Option {
	return func(o *decoratorOptions) {
		o.stack = cfg
	}
}

// WithPostTimeout bounds the POST stage.
func WithPostTimeout(d time.Duration) Option {
	return func(o *decoratorOptions) {
		if d > 0 {
			o.postTimeout = d
		}
	}
}

// New builds a Decorator.
func New(engine Engine, adapter Adapter, opts ...Option) (*Decorator, error) {
	if engine == nil {
		return nil, ErrNilEngine
	}
	if adapter == nil {
		return nil, ErrNilAdapter
	}

	options := &decoratorOptions{
		stack:       DefaultStackConfig(),
		postTimeout: DefaultPostTimeout,
	}
	for _, opt := range opts {
		opt(options)
	}

	client := adapter.Client()
	if client == nil {
		client = noop.NewProvider()
	}
	if options.logger == nil {
		options.logger = client.Logger()
	}
	if options.metrics == nil {
		options.metrics = client.Metrics()
	}

	stack, err := newStackFilter(options.stack)
	if err != nil {
		return nil, err
	}

	return &Decorator{
		engine:      engine,
		adapter:     adapter,
		logger:      options.logger,
		metrics:     newSelfMetrics(options.metrics),
		stackConfig: options.stack,
		stack:       stack,
		postTimeout: options.postTimeout,
		newCallID:   uuid.NewString,
	}, nil
}

// PointOption configures one wrapped callable.
type PointOption func(*pointOptions)

type pointOptions struct {
	name       string
	variant    string
	ruleSet    string
	remoteName string
	params     []string
	ref        any
}

// WithVariant selects the engine variant. Empty means the engine default.
func WithVariant(variant string) PointOption {
	return func(o *pointOptions) {
		o.variant = variant
	}
}

// WithRuleSet overrides the variant's rule set for this call site.
func WithRuleSet(ruleSet string) PointOption {
	return func(o *pointOptions) {
		o.ruleSet = ruleSet
	}
}

// WithRemoteName names the remote operation this call represents.
func WithRemoteName(name string) PointOption {
	return func(o *pointOptions) {
		o.remoteName = name
	}
}

// WithParams names the parameters of a func passed to Decorate.
func WithParams(names ...string) PointOption {
	return func(o *pointOptions) {
		o.params = names
	}
}

// WithName overrides the point name Decorate derives from the func.
func WithName(name string) PointOption {
	return func(o *pointOptions) {
		o.name = name
	}
}

// WithRef sets the value exposed as Context.Ref. Defaults to the wrapped func.
func WithRef(ref any) PointOption {
	return func(o *pointOptions) {
		o.ref = ref
	}
}

// Point is a wrapped callable. It is safe for concurrent use; the only
// state shared between calls is the engine binding.
type Point struct {
	d       *Decorator
	name    string
	sig     *Signature
	fn      Func
	check   func(Call) error
	binding Binding
	opts    pointOptions
}

// Wrap binds fn to the engine once and returns the point. When the engine
// cannot produce a binding the point still works and simply records nothing.
func (d *Decorator) Wrap(name string, sig *Signature, fn Func, opts ...PointOption) (*Point, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	if sig == nil {
		return nil, fmt.Errorf("%w: signature cannot be nil", ErrInvalidSignature)
	}

	options := pointOptions{ref: fn}
	for _, opt := range opts {
		opt(&options)
	}
	if options.name != "" {
		name = options.name
	}

	p := &Point{d: d, name: name, sig: sig, fn: fn, opts: options}

	binding, err := d.engine.Bind(options.variant, options.ruleSet)
	if err != nil || binding == nil {
		if err == nil {
			err = errors.New("engine returned no binding")
		}
		d.logOwnError(context.Background(), &OwnError{Point: name, Stage: StageInit, Err: err}, "")
		return p, nil
	}

	p.binding = binding
	d.engine.RegisterStateObserver(binding)
	return p, nil
}

func (p *Point) Name() string {
	return p.name
}

func (p *Point) Signature() *Signature {
	return p.sig
}

// Instrumented reports whether the engine produced a binding for this point.
func (p *Point) Instrumented() bool {
	return p.binding != nil
}

// Call invokes the point with positional arguments only.
func (p *Point) Call(ctx context.Context, args ...any) (any, error) {
	return p.Invoke(ctx, Call{Args: args})
}

// Invoke runs call through INIT, PRE, the real callable and POST. The
// caller sees exactly what the real callable returned or panicked with;
// instrumentation failures are logged and swallowed.
func (p *Point) Invoke(ctx context.Context, call Call) (any, error) {
	return p.invoke(ctx, call, p.fn)
}

// recording reports whether a call made now would be instrumented.
func (p *Point) recording() bool {
	return p.binding != nil && !p.d.engine.IsTracerDisabled()
}

// invoke is Invoke with fn standing in for the point's callable, so a
// caller can hand per-call state to the real call.
func (p *Point) invoke(ctx context.Context, call Call, fn Func) (result any, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !p.recording() {
		return fn(ctx, call)
	}

	p.d.metrics.calls.Increment(ctx, observability.String("point", p.name))

	acc := newAccessor(p, p.newContext(ctx), call)
	acc.fn = fn

	p.isolate(ctx, acc, StageInit, StepBindArgs, acc.BindArgs)
	p.isolate(ctx, acc, StageInit, StepCaptureStack, func() error {
		return acc.CaptureStack(p.d.adapter.CollectTrace())
	})
	p.drive(ctx, acc, StageInit)
	if acc.Context().Span() != nil {
		p.drive(ctx, acc, StagePre)
	}

	defer func() {
		if acc.Panicked() {
			p.isolate(ctx, acc, StagePost, StepRegisterError, func() error {
				return acc.RegisterError(ctx, ErrPointPanicked)
			})
		}
		p.post(ctx, acc)
	}()

	p.isolate(ctx, acc, StageInit, StepPrepare, acc.Prepare)

	if acc.Prepared() {
		result, err = acc.Run()
	}
	if acc.HasNotBeenDone() {
		result, err = acc.Fallback(ctx)
	}

	if err != nil {
		p.d.metrics.callErrors.Increment(ctx, observability.String("point", p.name))
		p.isolate(ctx, acc, StagePost, StepRegisterError, func() error {
			return acc.RegisterError(ctx, err)
		})
	}

	return result, err
}

func (p *Point) newContext(ctx context.Context) Context {
	pc := NewContext(ctx, p.name, p.d.newCallID(), nil).
		WithCollaborators(p.d.engine, p.d.adapter, p.d.adapter.Client()).
		WithSelector(p.opts.variant, p.opts.ruleSet).
		WithRef(p.opts.ref)
	if p.opts.remoteName != "" {
		pc = pc.WithReuse(ReuseRemoteName, p.opts.remoteName)
	}
	return pc
}

func (p *Point) drive(ctx context.Context, acc *Accessor, stage Stage) {
	started := time.Now()
	p.isolate(ctx, acc, stage, "", func() error {
		return acc.RegisterStage(ctx, stage)
	})
	p.d.metrics.observeStage(ctx, p.name, stage, started)
}

func (p *Point) post(ctx context.Context, acc *Accessor) {
	postCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.d.postTimeout)
	defer cancel()

	started := time.Now()
	err := guard(func() error {
		return acc.RegisterStage(postCtx, StagePost)
	})
	p.d.metrics.observeStage(ctx, p.name, StagePost, started)

	if err == nil {
		return
	}
	if cause := context.Cause(ctx); cause != nil {
		err = errors.Join(err, cause)
	}
	p.ownError(ctx, acc, StagePost, "", err)
}

// isolate runs one instrumentation step and turns any error or panic into
// an own error.
func (p *Point) isolate(ctx context.Context, acc *Accessor, stage Stage, step string, fn func() error) {
	if err := guard(fn); err != nil {
		p.ownError(ctx, acc, stage, step, err)
	}
}

func (p *Point) ownError(ctx context.Context, acc *Accessor, stage Stage, step string, err error) {
	own := &OwnError{Point: p.name, Stage: stage, Step: step, Err: err}

	if exitErr := guard(func() error {
		acc.RegisterOwnError(own)
		return nil
	}); exitErr != nil {
		p.d.logOwnError(ctx, &OwnError{Point: p.name, Stage: stage, Step: step, Err: exitErr}, acc.Context().CallID())
	}

	p.d.metrics.ownErrors.Increment(ctx,
		observability.String("point", p.name),
		observability.String("stage", stage.String()),
	)
	p.d.logOwnError(ctx, own, acc.Context().CallID())
}

func (d *Decorator) logOwnError(ctx context.Context, own *OwnError, callID string) {
	if !d.adapter.Debug() {
		d.logger.Debug(ctx, "point own error", observability.String("point", own.Point), observability.Error(own.Err))
		return
	}

	fields := []observability.Field{
		observability.String("point", own.Point),
		observability.String("stage", own.Stage.String()),
		observability.String("call_id", callID),
		observability.Error(own.Err),
	}
	if own.Step != "" {
		fields = append(fields, observability.String("step", own.Step))
	}
	var panicErr *PanicError
	if errors.As(own.Err, &panicErr) {
		fields = append(fields, observability.String("stack", string(panicErr.Stack)))
	}
	d.logger.Error(ctx, "point own error", fields...)
}

// guard runs fn and converts a panic into a PanicError.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
