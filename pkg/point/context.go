package point

import (
	"context"
	"maps"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
)

// Reuse keys shared between stages of one call.
const (
	ReuseRemoteName = "remote_name"
	ReuseOwnError   = "own_error"
	ReuseSkip       = "skip"
)

// Context is the state threaded through every stage of one call. It is a
// value: every With method returns a modified copy and leaves the receiver
// untouched, so a Context is never shared mutably between calls.
type Context struct {
	name       string
	callID     string
	variant    string
	ruleSet    string
	ref        any
	args       Args
	positional int
	engine     Engine
	adapter    Adapter
	client     observability.Observability
	reuse      map[string]any
	headers    map[string]string
	spanName   string
	spanTags   []observability.Field
	spanLogs   []observability.Field
	span       observability.Span
	ctx        context.Context
	callStack  []string
	result     any
	hasResult  bool
}

// NewContext builds the Context for one call. Tests of Recorder
// implementations use it directly; Invoke builds its own.
func NewContext(ctx context.Context, name, callID string, args Args) Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return Context{
		name:   name,
		callID: callID,
		args:   args.Clone(),
		ctx:    ctx,
	}
}

// IsZero reports whether c was never built by NewContext.
func (c Context) IsZero() bool {
	return c.callID == "" && c.name == ""
}

func (c Context) Name() string                        { return c.name }
func (c Context) CallID() string                      { return c.callID }
func (c Context) Variant() string                     { return c.variant }
func (c Context) RuleSet() string                     { return c.ruleSet }
func (c Context) Ref() any                            { return c.ref }
func (c Context) Engine() Engine                      { return c.engine }
func (c Context) Adapter() Adapter                    { return c.adapter }
func (c Context) Client() observability.Observability { return c.client }
func (c Context) SpanName() string                    { return c.spanName }
func (c Context) Span() observability.Span            { return c.span }
func (c Context) Positional() int                     { return c.positional }

// Ctx is the Go context the real callable runs with. Stages replace it to
// carry the active span.
func (c Context) Ctx() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// Args returns a copy of the bound arguments.
func (c Context) Args() Args {
	return c.args.Clone()
}

// Arg returns one bound argument.
func (c Context) Arg(name string) (any, bool) {
	v, ok := c.args[name]
	return v, ok
}

// Reuse returns the value stored under a reuse key.
func (c Context) Reuse(key string) (any, bool) {
	v, ok := c.reuse[key]
	return v, ok
}

func (c Context) Headers() map[string]string {
	return maps.Clone(c.headers)
}

func (c Context) SpanTags() []observability.Field {
	return append([]observability.Field(nil), c.spanTags...)
}

func (c Context) SpanLogs() []observability.Field {
	return append([]observability.Field(nil), c.spanLogs...)
}

func (c Context) CallStack() []string {
	return append([]string(nil), c.callStack...)
}

// Result returns the real callable's result once it has run.
func (c Context) Result() (any, bool) {
	return c.result, c.hasResult
}

func (c Context) WithCollaborators(engine Engine, adapter Adapter, client observability.Observability) Context {
	c.engine = engine
	c.adapter = adapter
	c.client = client
	return c
}

func (c Context) WithSelector(variant, ruleSet string) Context {
	c.variant = variant
	c.ruleSet = ruleSet
	return c
}

func (c Context) WithRef(ref any) Context {
	c.ref = ref
	return c
}

func (c Context) WithArgs(args Args, positional int) Context {
	c.args = args.Clone()
	c.positional = positional
	return c
}

// WithArg rebinds one argument. Apply picks the new value up when the
// real callable is dispatched.
func (c Context) WithArg(name string, value any) Context {
	args := c.args.Clone()
	if args == nil {
		args = make(Args)
	}
	args[name] = value
	c.args = args
	return c
}

func (c Context) WithReuse(key string, value any) Context {
	reuse := maps.Clone(c.reuse)
	if reuse == nil {
		reuse = make(map[string]any, 1)
	}
	reuse[key] = value
	c.reuse = reuse
	return c
}

func (c Context) WithHeaders(headers map[string]string) Context {
	merged := maps.Clone(c.headers)
	if merged == nil {
		merged = make(map[string]string, len(headers))
	}
	maps.Copy(merged, headers)
	c.headers = merged
	return c
}

func (c Context) WithSpanName(name string) Context {
	c.spanName = name
	return c
}

func (c Context) WithSpanTags(fields ...observability.Field) Context {
	c.spanTags = append(c.SpanTags(), fields...)
	return c
}

func (c Context) WithSpanLogs(fields ...observability.Field) Context {
	c.spanLogs = append(c.SpanLogs(), fields...)
	return c
}

// WithSpan records the span opened for this call together with the Go
// context that carries it.
func (c Context) WithSpan(ctx context.Context, span observability.Span) Context {
	c.span = span
	if ctx != nil {
		c.ctx = ctx
	}
	return c
}

func (c Context) WithCtx(ctx context.Context) Context {
	c.ctx = ctx
	return c
}

func (c Context) WithCallStack(stack []string) Context {
	c.callStack = append([]string(nil), stack...)
	return c
}

func (c Context) WithResult(result any) Context {
	c.result = result
	c.hasResult = true
	return c
}
