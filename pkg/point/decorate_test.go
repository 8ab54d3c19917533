package point_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/JailtonJunior94/pointkit/pkg/point"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDecorator(t *testing.T) (*point.Decorator, *spyEngine) {
	t.Helper()
	engine := newSpyEngine()
	d, err := point.New(engine, newStubAdapter())
	require.NoError(t, err)
	return d, engine
}

func TestDecorate_KeepsTypeAndResult(t *testing.T) {
	d, engine := newTestDecorator(t)

	var calls atomic.Int32
	add := func(a, b int) int {
		calls.Add(1)
		return a + b
	}

	decorated, err := point.Decorate(d, add, point.WithParams("a", "b"), point.WithName("add"))
	require.NoError(t, err)

	assert.Equal(t, 15, decorated(5, 10))
	assert.Equal(t, int32(1), calls.Load())

	a, _ := engine.binding.ContextAt(point.StageInit).Arg("a")
	assert.Equal(t, 5, a)
	assert.Equal(t, "add", engine.binding.ContextAt(point.StageInit).Name())

	engine.disabled.Store(true)
	assert.Equal(t, 3, decorated(1, 2))
	assert.Equal(t, int32(2), calls.Load())
}

func TestDecorate_ContextVariadicAndError(t *testing.T) {
	d, engine := newTestDecorator(t)

	sum := func(ctx context.Context, base int, xs ...int) (int, error) {
		if ctx == nil {
			return 0, errors.New("nil context")
		}
		total := base
		for _, x := range xs {
			total += x
		}
		if total < 0 {
			return 0, fmt.Errorf("negative total %d", total)
		}
		return total, nil
	}

	decorated, err := point.Decorate(d, sum)
	require.NoError(t, err)

	got, err := decorated(context.Background(), 1, 2, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, 10, got)

	args := engine.binding.ContextAt(point.StageInit).Args()
	assert.Equal(t, 1, args["arg0"])
	assert.Equal(t, []any{2, 3, 4}, args.Rest())

	got, err = decorated(context.Background(), -10)
	assert.EqualError(t, err, "negative total -10")
	assert.Zero(t, got)
	assert.Len(t, engine.binding.CallErrors(), 1)

	got, err = decorated(nil, 5) //nolint:staticcheck
	require.NoError(t, err)
	assert.Equal(t, 5, got)
}

func TestDecorate_MultipleResults(t *testing.T) {
	d, _ := newTestDecorator(t)

	divmod := func(a, b int) (int, int, error) {
		if b == 0 {
			return 0, 0, errors.New("division by zero")
		}
		return a / b, a % b, nil
	}

	decorated, err := point.Decorate(d, divmod)
	require.NoError(t, err)

	q, r, err := decorated(7, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, q)
	assert.Equal(t, 1, r)

	_, _, err = decorated(1, 0)
	assert.EqualError(t, err, "division by zero")
}

func TestDecorate_NoResults(t *testing.T) {
	d, engine := newTestDecorator(t)

	var seen string
	decorated, err := point.Decorate(d, func(s string) { seen = s })
	require.NoError(t, err)

	decorated("hello")
	assert.Equal(t, "hello", seen)
	assert.Len(t, engine.binding.Stages(), 3)
}

func TestDecorate_PanicPropagates(t *testing.T) {
	d, engine := newTestDecorator(t)

	boom := errors.New("boom")
	decorated, err := point.Decorate(d, func() { panic(boom) })
	require.NoError(t, err)

	assert.PanicsWithError(t, "boom", func() { decorated() })
	assert.Equal(t, []error{point.ErrPointPanicked}, engine.binding.CallErrors())
}

func TestDecorate_BadRewriteFallsBackToOriginalArgs(t *testing.T) {
	d, engine := newTestDecorator(t)
	engine.binding.rewrite = func(pc point.Context) point.Context {
		return pc.WithArg("arg0", "not an int")
	}

	var calls atomic.Int32
	double := func(n int) int {
		calls.Add(1)
		return n * 2
	}
	decorated, err := point.Decorate(d, double)
	require.NoError(t, err)

	assert.Equal(t, 8, decorated(4))
	assert.Equal(t, int32(1), calls.Load())

	exits := engine.binding.Exits()
	require.Len(t, exits, 1)
	assert.ErrorIs(t, exits[0], point.ErrArgumentType)

	var own *point.OwnError
	require.ErrorAs(t, exits[0], &own)
	assert.Equal(t, point.StageInit, own.Stage)
	assert.Equal(t, point.StepPrepare, own.Step)
}

func TestDecorate_InterfaceAndNilArguments(t *testing.T) {
	d, _ := newTestDecorator(t)

	describe := func(v any, m map[string]string) string {
		return fmt.Sprintf("%v/%d", v, len(m))
	}
	decorated, err := point.Decorate(d, describe)
	require.NoError(t, err)

	assert.Equal(t, "<nil>/0", decorated(nil, nil))
	assert.Equal(t, "7/1", decorated(7, map[string]string{"k": "v"}))
}

func TestDecorate_Validation(t *testing.T) {
	d, _ := newTestDecorator(t)

	_, err := point.Decorate(d, 42)
	assert.ErrorIs(t, err, point.ErrNotAFunc)

	var nilFn func()
	_, err = point.Decorate(d, nilFn)
	assert.ErrorIs(t, err, point.ErrNotAFunc)

	_, err = point.Decorate(d, func(a, b int) {}, point.WithParams("only"))
	assert.ErrorIs(t, err, point.ErrInvalidSignature)
}

func TestDecorate_DefaultNameIsFuncName(t *testing.T) {
	d, engine := newTestDecorator(t)

	decorated, err := point.Decorate(d, namedHelper)
	require.NoError(t, err)

	decorated()
	assert.Contains(t, engine.binding.ContextAt(point.StageInit).Name(), "point_test.namedHelper")
}

func namedHelper() {}

func TestDecorate_VariadicSliceIsShared(t *testing.T) {
	for _, disabled := range []bool{false, true} {
		t.Run(fmt.Sprintf("disabled=%t", disabled), func(t *testing.T) {
			d, engine := newTestDecorator(t)
			engine.disabled.Store(disabled)

			zero := func(xs ...int) {
				if len(xs) > 0 {
					xs[0] = 99
				}
			}
			decorated, err := point.Decorate(d, zero)
			require.NoError(t, err)

			values := []int{1, 2}
			decorated(values...)
			assert.Equal(t, []int{99, 2}, values)
		})
	}
}

func TestDecorate_EmptyVariadicStaysNil(t *testing.T) {
	for _, disabled := range []bool{false, true} {
		t.Run(fmt.Sprintf("disabled=%t", disabled), func(t *testing.T) {
			d, engine := newTestDecorator(t)
			engine.disabled.Store(disabled)

			isNil := func(xs ...string) bool { return xs == nil }
			decorated, err := point.Decorate(d, isNil)
			require.NoError(t, err)

			assert.True(t, decorated())
			assert.False(t, decorated([]string{}...))
		})
	}
}

func TestDecorate_RewrittenVariadicGetsNewSlice(t *testing.T) {
	d, engine := newTestDecorator(t)
	engine.binding.rewrite = func(pc point.Context) point.Context {
		return pc.WithArg(point.RestKey, []any{7, 8, 9})
	}

	var seen []int
	decorated, err := point.Decorate(d, func(xs ...int) { seen = xs })
	require.NoError(t, err)

	values := []int{1}
	decorated(values...)
	assert.Equal(t, []int{7, 8, 9}, seen)
	assert.Equal(t, []int{1}, values)
}

func TestDecorate_NilContextReachesCallableWhenDisabled(t *testing.T) {
	d, engine := newTestDecorator(t)
	engine.disabled.Store(true)

	var gotNil bool
	decorated, err := point.Decorate(d, func(ctx context.Context) { gotNil = ctx == nil })
	require.NoError(t, err)

	decorated(nil) //nolint:staticcheck
	assert.True(t, gotNil)
}
