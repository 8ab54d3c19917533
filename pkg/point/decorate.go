package point

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strconv"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// funcLayout maps a Go func type onto the Call convention.
type funcLayout struct {
	typ      reflect.Type
	hasCtx   bool
	fixed    []reflect.Type
	variadic reflect.Type
	results  []reflect.Type
	errOut   bool
}

func newFuncLayout(t reflect.Type) funcLayout {
	l := funcLayout{typ: t}

	in := t.NumIn()
	start := 0
	if in > 0 && t.In(0) == contextType {
		l.hasCtx = true
		start = 1
	}
	end := in
	if t.IsVariadic() {
		end--
		l.variadic = t.In(end).Elem()
	}
	for i := start; i < end; i++ {
		l.fixed = append(l.fixed, t.In(i))
	}

	out := t.NumOut()
	if out > 0 && t.Out(out-1) == errorType {
		l.errOut = true
		out--
	}
	for i := range out {
		l.results = append(l.results, t.Out(i))
	}
	return l
}

// check verifies that every value in call can be passed to the func.
func (l funcLayout) check(call Call) error {
	if len(call.Kwargs) > 0 {
		return fmt.Errorf("%w: go funcs take no keyword arguments", ErrArgumentType)
	}
	if len(call.Args) < len(l.fixed) {
		return fmt.Errorf("%w: want %d arguments, got %d", ErrMissingArgument, len(l.fixed), len(call.Args))
	}
	for i, v := range call.Args {
		t := l.variadic
		if i < len(l.fixed) {
			t = l.fixed[i]
		}
		if t == nil {
			return fmt.Errorf("%w: too many arguments", ErrArgumentType)
		}
		if _, err := toValue(v, t); err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
	}
	return nil
}

// inputs converts call back into reflect values. For a variadic func the
// last value is the whole tail slice: spread is reused when the tail still
// holds its elements, so the callee shares the caller's slice.
func (l funcLayout) inputs(ctx context.Context, call Call, spread reflect.Value) []reflect.Value {
	in := make([]reflect.Value, 0, len(l.fixed)+2)
	if l.hasCtx {
		in = append(in, reflect.ValueOf(&ctx).Elem())
	}

	fixed := min(len(call.Args), len(l.fixed))
	for i, v := range call.Args[:fixed] {
		rv, _ := toValue(v, l.fixed[i])
		in = append(in, rv)
	}
	if l.variadic == nil {
		return in
	}

	tail := call.Args[fixed:]
	if spread.IsValid() && sameElements(spread, tail) {
		return append(in, spread)
	}
	slice := reflect.MakeSlice(reflect.SliceOf(l.variadic), len(tail), len(tail))
	for i, v := range tail {
		slice.Index(i).Set(valueOrZero(v, l.variadic))
	}
	return append(in, slice)
}

// invoke calls fv with in, spreading the last value for a variadic func.
func (l funcLayout) invoke(fv reflect.Value, in []reflect.Value) []reflect.Value {
	if l.variadic != nil {
		return fv.CallSlice(in)
	}
	return fv.Call(in)
}

// sameElements reports whether tail still holds exactly the elements of
// slice.
func sameElements(slice reflect.Value, tail []any) bool {
	if slice.Len() != len(tail) {
		return false
	}
	for i, v := range tail {
		if !sameValue(slice.Index(i), v) {
			return false
		}
	}
	return true
}

func sameValue(a reflect.Value, b any) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()

	if a.Kind() == reflect.Interface {
		if a.IsNil() {
			return b == nil
		}
		a = a.Elem()
	}
	if b == nil {
		return false
	}
	bv := reflect.ValueOf(b)
	if a.Type() != bv.Type() {
		return false
	}

	switch a.Kind() {
	case reflect.Slice:
		return a.Len() == bv.Len() && a.Pointer() == bv.Pointer()
	case reflect.Map, reflect.Func, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return a.Pointer() == bv.Pointer()
	default:
		return a.Interface() == b
	}
}

func (l funcLayout) collect(out []reflect.Value) (any, error) {
	var err error
	if l.errOut {
		if e := out[len(out)-1]; !e.IsNil() {
			err = e.Interface().(error)
		}
		out = out[:len(out)-1]
	}

	switch len(out) {
	case 0:
		return nil, err
	case 1:
		return out[0].Interface(), err
	default:
		values := make([]any, len(out))
		for i, v := range out {
			values[i] = v.Interface()
		}
		return values, err
	}
}

func (l funcLayout) outputs(result any, err error) []reflect.Value {
	out := make([]reflect.Value, 0, len(l.results)+1)

	switch len(l.results) {
	case 0:
	case 1:
		out = append(out, valueOrZero(result, l.results[0]))
	default:
		values, _ := result.([]any)
		for i, t := range l.results {
			var v any
			if i < len(values) {
				v = values[i]
			}
			out = append(out, valueOrZero(v, t))
		}
	}

	if l.errOut {
		if err == nil {
			out = append(out, reflect.Zero(errorType))
		} else {
			out = append(out, reflect.ValueOf(&err).Elem())
		}
	}
	return out
}

// split turns the wrapper's inputs into a context, positional arguments
// with the variadic tail spread out, and the tail slice itself.
func (l funcLayout) split(in []reflect.Value) (context.Context, []any, reflect.Value) {
	ctx := context.Background()
	if l.hasCtx {
		if c, ok := in[0].Interface().(context.Context); ok && c != nil {
			ctx = c
		}
		in = in[1:]
	}

	var spread reflect.Value
	args := make([]any, 0, len(in))
	for i, v := range in {
		if l.variadic != nil && i == len(in)-1 {
			spread = v
			for j := range v.Len() {
				args = append(args, v.Index(j).Interface())
			}
			continue
		}
		args = append(args, v.Interface())
	}
	return ctx, args, spread
}

func toValue(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		default:
			return reflect.Value{}, fmt.Errorf("%w: nil for %s", ErrArgumentType, t)
		}
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s is not assignable to %s", ErrArgumentType, rv.Type(), t)
}

func valueOrZero(v any, t reflect.Type) reflect.Value {
	rv, err := toValue(v, t)
	if err != nil {
		return reflect.Zero(t)
	}
	return rv
}

// Decorate wraps any Go func and returns a func of the identical type.
// A leading context.Context is passed through, a variadic tail is bound
// under RestKey and a trailing error result is the call error. Several
// non-error results travel through the point as a []any.
func Decorate[F any](d *Decorator, fn F, opts ...PointOption) (F, error) {
	var zero F

	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return zero, ErrNotAFunc
	}

	layout := newFuncLayout(fv.Type())

	options := pointOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	names := options.params
	if len(names) == 0 {
		for i := range layout.fixed {
			names = append(names, "arg"+strconv.Itoa(i))
		}
	}
	if len(names) != len(layout.fixed) {
		return zero, fmt.Errorf("%w: %d names for %d parameters", ErrInvalidSignature, len(names), len(layout.fixed))
	}

	params := make([]Param, 0, len(names)+1)
	for _, name := range names {
		params = append(params, Arg(name))
	}
	if layout.variadic != nil {
		params = append(params, Variadic())
	}
	sig, err := NewSignature(params...)
	if err != nil {
		return zero, err
	}

	name := options.name
	if name == "" {
		name = runtime.FuncForPC(fv.Pointer()).Name()
	}

	inner := func(ctx context.Context, call Call) (any, error) {
		return layout.collect(layout.invoke(fv, layout.inputs(ctx, call, reflect.Value{})))
	}

	opts = append([]PointOption{WithRef(fn)}, opts...)
	p, err := d.Wrap(name, sig, inner, opts...)
	if err != nil {
		return zero, err
	}
	p.check = layout.check

	wrapper := reflect.MakeFunc(layout.typ, func(in []reflect.Value) []reflect.Value {
		if !p.recording() {
			return layout.invoke(fv, in)
		}

		ctx, args, spread := layout.split(in)
		return layout.outputs(p.invoke(ctx, Call{Args: args}, func(ctx context.Context, call Call) (any, error) {
			return layout.collect(layout.invoke(fv, layout.inputs(ctx, call, spread)))
		}))
	})

	return wrapper.Interface().(F), nil
}
