package schema

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"github.com/JailtonJunior94/pointkit/pkg/point"
)

const (
	reuseCallError = "schema.call_error"

	eventArgs     = "point.args"
	eventLogs     = "point.logs"
	eventOwnError = "point.own_error"
)

// binding is the per-point recorder. It is shared by concurrent calls and
// only its active flag changes after construction.
type binding struct {
	variant Variant
	rules   RuleSet
	active  atomic.Bool
}

func newBinding(v Variant, rules RuleSet) *binding {
	return &binding{variant: v, rules: rules}
}

func (b *binding) OnTracerState(enabled bool) {
	b.active.Store(enabled)
}

func (b *binding) RunStage(ctx context.Context, pc point.Context, stage point.Stage) (point.Context, error) {
	switch stage {
	case point.StageInit:
		return b.init(pc)
	case point.StagePre:
		return b.pre(pc)
	case point.StagePost:
		return b.post(pc)
	default:
		return pc, fmt.Errorf("schema: unknown stage %s", stage)
	}
}

func (b *binding) init(pc point.Context) (point.Context, error) {
	if !b.active.Load() || b.rules.Skip {
		return pc, nil
	}
	if skip, _ := pc.Reuse(point.ReuseSkip); skip == true {
		return pc, nil
	}

	client := pc.Client()
	if client == nil {
		return pc, ErrNoClient
	}

	ctx := pc.Ctx()
	var errs []error
	if b.variant.extracts() && b.rules.Headers != "" {
		headers, err := b.carrier(pc)
		if err != nil {
			errs = append(errs, err)
		} else {
			ctx = client.Tracer().Extract(ctx, headers)
		}
	}

	name := renderSpanName(b.rules.SpanName, pc)
	attrs := []observability.Field{
		observability.String("point.name", pc.Name()),
		observability.String("point.variant", b.variant.Name),
		observability.String("point.call_id", pc.CallID()),
	}
	if stack := pc.CallStack(); len(stack) > 1 {
		attrs = append(attrs, observability.Strings("code.stacktrace", stack))
	}

	ctx, span := client.Tracer().Start(ctx, name,
		observability.WithSpanKind(b.variant.Kind),
		observability.WithAttributes(attrs...),
	)

	return pc.WithSpanName(name).WithSpan(ctx, span), errors.Join(errs...)
}

func (b *binding) pre(pc point.Context) (point.Context, error) {
	span := pc.Span()
	if span == nil {
		return pc, nil
	}

	var errs []error
	tags := make([]observability.Field, 0, len(b.rules.Tags))
	for _, rule := range b.rules.Tags {
		v, ok := pc.Arg(rule.Arg)
		if !ok {
			continue
		}
		resolved, err := resolve(v, rule.Path)
		if err != nil {
			errs = append(errs, fmt.Errorf("tag %s: %w", rule.Key, err))
			continue
		}
		if resolved == nil {
			continue
		}
		tags = append(tags, toField(rule.Key, resolved, rule.MaxLen))
	}
	if len(tags) > 0 {
		span.SetAttributes(tags...)
		pc = pc.WithSpanTags(tags...)
	}

	if b.variant.injects() && b.rules.Headers != "" {
		var err error
		if pc, err = b.inject(pc); err != nil {
			errs = append(errs, err)
		}
	}

	if b.rules.LogArgs {
		fields := argFields(pc.Args())
		span.AddEvent(eventArgs, fields...)
		pc = pc.WithSpanLogs(fields...)
	}

	return pc, errors.Join(errs...)
}

func (b *binding) post(pc point.Context) (point.Context, error) {
	span := pc.Span()
	if span == nil {
		return pc, nil
	}

	if b.rules.Result != "" {
		if result, ok := pc.Result(); ok && result != nil {
			span.SetAttributes(toField(b.rules.Result, result, 0))
		}
	}
	if own, ok := pc.Reuse(point.ReuseOwnError); ok {
		span.SetAttributes(observability.Bool("point.own_error", true))
		if err, isErr := own.(error); isErr {
			span.AddEvent(eventOwnError, observability.Error(err))
		}
	}
	if failed, _ := pc.Reuse(reuseCallError); failed != true {
		span.SetStatus(observability.StatusCodeOK, "")
	}

	span.End()
	return pc, nil
}

func (b *binding) RegisterError(_ context.Context, pc point.Context, err error) (point.Context, error) {
	span := pc.Span()
	if span == nil || err == nil {
		return pc, nil
	}

	span.RecordError(err)
	span.SetStatus(observability.StatusCodeError, err.Error())
	return pc.WithReuse(reuseCallError, true), nil
}

// EmergencyExit never panics; a broken span simply loses the event.
func (b *binding) EmergencyExit(pc point.Context, err error) {
	defer func() { _ = recover() }()

	if span := pc.Span(); span != nil && err != nil {
		span.AddEvent(eventOwnError,
			observability.String("point.name", pc.Name()),
			observability.Error(err),
		)
	}
}

// carrier reads the configured headers argument as a propagation carrier.
func (b *binding) carrier(pc point.Context) (map[string]string, error) {
	arg, path := splitPath(b.rules.Headers)
	root, ok := pc.Arg(arg)
	if !ok {
		return nil, fmt.Errorf("%w: argument %q", ErrPathNotFound, arg)
	}
	v, err := resolve(root, path)
	if err != nil {
		return nil, err
	}
	return toCarrier(v)
}

// inject writes the trace context into the configured headers argument.
// A top-level map is cloned and rebound so the caller's map is untouched;
// a map reached through a path is written in place.
func (b *binding) inject(pc point.Context) (point.Context, error) {
	client := pc.Client()
	if client == nil {
		return pc, ErrNoClient
	}

	carrier := make(map[string]string)
	client.Tracer().Inject(pc.Ctx(), carrier)
	if len(carrier) == 0 {
		return pc, nil
	}
	pc = pc.WithHeaders(carrier)

	arg, path := splitPath(b.rules.Headers)
	root, ok := pc.Arg(arg)
	if !ok {
		return pc, fmt.Errorf("%w: argument %q", ErrPathNotFound, arg)
	}

	if path == "" {
		switch h := root.(type) {
		case nil:
			return pc.WithArg(arg, maps.Clone(carrier)), nil
		case map[string]string:
			clone := maps.Clone(h)
			if clone == nil {
				clone = make(map[string]string, len(carrier))
			}
			maps.Copy(clone, carrier)
			return pc.WithArg(arg, clone), nil
		case http.Header:
			clone := h.Clone()
			if clone == nil {
				clone = make(http.Header, len(carrier))
			}
			for k, v := range carrier {
				clone.Set(k, v)
			}
			return pc.WithArg(arg, clone), nil
		default:
			return pc, fmt.Errorf("%w: %T", ErrUnsupportedHeaders, root)
		}
	}

	target, err := resolve(root, path)
	if err != nil {
		return pc, err
	}
	switch h := target.(type) {
	case http.Header:
		if h == nil {
			return pc, fmt.Errorf("%w: nil http.Header at %q", ErrUnsupportedHeaders, b.rules.Headers)
		}
		for k, v := range carrier {
			h.Set(k, v)
		}
	case map[string]string:
		if h == nil {
			return pc, fmt.Errorf("%w: nil map at %q", ErrUnsupportedHeaders, b.rules.Headers)
		}
		maps.Copy(h, carrier)
	default:
		return pc, fmt.Errorf("%w: %T", ErrUnsupportedHeaders, target)
	}
	return pc, nil
}

// toCarrier accepts any map keyed by strings with string or []string values,
// which covers http.Header and grpc metadata.MD. Keys are lower-cased.
func toCarrier(v any) (map[string]string, error) {
	if v == nil {
		return map[string]string{}, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedHeaders, v)
	}

	out := make(map[string]string, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key := strings.ToLower(iter.Key().String())
		val := iter.Value()
		for val.Kind() == reflect.Interface && !val.IsNil() {
			val = val.Elem()
		}
		switch {
		case val.Kind() == reflect.String:
			out[key] = val.String()
		case val.Kind() == reflect.Slice && val.Type().Elem().Kind() == reflect.String:
			if val.Len() > 0 {
				out[key] = val.Index(0).String()
			}
		}
	}
	return out, nil
}

func toField(key string, v any, maxLen int) observability.Field {
	switch x := v.(type) {
	case string:
		return observability.String(key, truncate(x, maxLen))
	case []string:
		return observability.Strings(key, x)
	case int:
		return observability.Int(key, x)
	case int64:
		return observability.Int64(key, x)
	case float64:
		return observability.Float64(key, x)
	case bool:
		return observability.Bool(key, x)
	case time.Duration:
		return observability.Duration(key, x)
	case error:
		return observability.String(key, truncate(x.Error(), maxLen))
	case fmt.Stringer:
		return observability.String(key, truncate(x.String(), maxLen))
	default:
		return observability.String(key, truncate(fmt.Sprint(x), maxLen))
	}
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// argFields renders the bound arguments in name order.
func argFields(args point.Args) []observability.Field {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]observability.Field, 0, len(names))
	for _, name := range names {
		if name == point.RestKey && len(args.Rest()) == 0 {
			continue
		}
		fields = append(fields, toField("point.arg."+name, args[name], 256))
	}
	return fields
}
