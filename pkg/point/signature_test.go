package point_test

import (
	"testing"

	"github.com/JailtonJunior94/pointkit/pkg/point"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restSig is (a, b=2, *rest, c=3).
func restSig(t *testing.T) *point.Signature {
	t.Helper()
	sig, err := point.NewSignature(point.Arg("a"), point.Opt("b", 2), point.Variadic(), point.Keyword("c", 3))
	require.NoError(t, err)
	return sig
}

func TestSignature_BindCompleteness(t *testing.T) {
	sig := restSig(t)

	args, err := sig.Bind(point.Call{Args: []any{1, 5, 6}, Kwargs: map[string]any{"c": 9}})
	require.NoError(t, err)

	assert.Equal(t, point.Args{"a": 1, "b": 5, "c": 9, point.RestKey: []any{6}}, args)
	assert.Equal(t, []any{6}, args.Rest())

	call := sig.Apply(args, 3)
	assert.Equal(t, []any{1, 5, 6}, call.Args)
	assert.Equal(t, map[string]any{"c": 9}, call.Kwargs)
}

func TestSignature_BindDefaults(t *testing.T) {
	sig := restSig(t)

	args, err := sig.Bind(point.Call{Args: []any{1}})
	require.NoError(t, err)

	assert.Equal(t, 2, args["b"])
	assert.Equal(t, 3, args["c"])
	assert.Empty(t, args.Rest())

	call := sig.Apply(args, 1)
	assert.Equal(t, []any{1}, call.Args)
	assert.Equal(t, map[string]any{"b": 2, "c": 3}, call.Kwargs)
}

func TestSignature_BindKeywordsForPositional(t *testing.T) {
	sig := restSig(t)

	args, err := sig.Bind(point.Call{Kwargs: map[string]any{"a": 7, "b": 8}})
	require.NoError(t, err)
	assert.Equal(t, 7, args["a"])

	call := sig.Apply(args, 0)
	assert.Empty(t, call.Args)
	assert.Equal(t, map[string]any{"a": 7, "b": 8, "c": 3}, call.Kwargs)
}

func TestSignature_BindErrors(t *testing.T) {
	sig := restSig(t)

	tests := []struct {
		name string
		call point.Call
		want error
	}{
		{"missing required", point.Call{}, point.ErrMissingArgument},
		{"unknown keyword", point.Call{Args: []any{1}, Kwargs: map[string]any{"d": 1}}, point.ErrUnexpectedKeyword},
		{"positional and keyword", point.Call{Args: []any{1}, Kwargs: map[string]any{"a": 1}}, point.ErrMultipleValues},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sig.Bind(tt.call)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	required, err := point.NewSignature(point.Arg("a"), point.KeywordRequired("key"))
	require.NoError(t, err)
	_, err = required.Bind(point.Call{Args: []any{1}})
	assert.ErrorIs(t, err, point.ErrMissingArgument)
}

func TestSignature_OverflowWithoutVariadicIsKept(t *testing.T) {
	sig := point.MustSignature(point.Arg("a"))

	args, err := sig.Bind(point.Call{Args: []any{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, []any{2, 3}, args.Rest())
	assert.Equal(t, []any{1, 2, 3}, sig.Apply(args, 3).Args)
}

func TestSignature_ApplyUsesRewrittenValues(t *testing.T) {
	sig := restSig(t)

	args, err := sig.Bind(point.Call{Args: []any{1, 5, 6}, Kwargs: map[string]any{"c": 9}})
	require.NoError(t, err)

	args["b"] = 50
	args["c"] = 90

	call := sig.Apply(args, 3)
	assert.Equal(t, []any{1, 50, 6}, call.Args)
	assert.Equal(t, map[string]any{"c": 90}, call.Kwargs)
}

func TestNewSignature_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		params []point.Param
	}{
		{"duplicate", []point.Param{point.Arg("a"), point.Arg("a")}},
		{"empty name", []point.Param{point.Arg("")}},
		{"reserved name", []point.Param{point.Arg(point.RestKey)}},
		{"required after default", []point.Param{point.Opt("a", 1), point.Arg("b")}},
		{"positional after variadic", []point.Param{point.Variadic(), point.Arg("a")}},
		{"two variadics", []point.Param{point.Variadic(), point.Variadic()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := point.NewSignature(tt.params...)
			assert.ErrorIs(t, err, point.ErrInvalidSignature)
		})
	}

	assert.Panics(t, func() { point.MustSignature(point.Arg("x"), point.Arg("x")) })
}

func TestSignature_Accessors(t *testing.T) {
	sig := restSig(t)

	assert.Equal(t, []string{"a", "b"}, sig.Positional())
	assert.True(t, sig.IsVariadic())
	assert.Len(t, sig.Params(), 4)
	assert.Equal(t, "c", sig.Params()[3].Name())
}

func TestArgs_CloneIsIndependent(t *testing.T) {
	args := point.Args{"a": 1, point.RestKey: []any{2}}
	clone := args.Clone()

	clone["a"] = 10
	clone.Rest()[0] = 20

	assert.Equal(t, 1, args["a"])
	assert.Equal(t, []any{2}, args.Rest())
	assert.Nil(t, point.Args(nil).Clone())
}
