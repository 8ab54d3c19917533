package point

import (
	"fmt"
	"maps"
)

// RestKey is the reserved Args key holding positional values beyond the
// declared positional parameters.
const RestKey = "*rest"

type paramKind int

const (
	kindPositional paramKind = iota
	kindKeyword
	kindVariadic
)

// Param describes one formal parameter of a wrapped callable.
type Param struct {
	name       string
	kind       paramKind
	def        any
	hasDefault bool
}

// Arg is a required positional-or-keyword parameter.
func Arg(name string) Param {
	return Param{name: name, kind: kindPositional}
}

// Opt is a positional-or-keyword parameter with a default.
func Opt(name string, def any) Param {
	return Param{name: name, kind: kindPositional, def: def, hasDefault: true}
}

// Keyword is a keyword-only parameter with a default.
func Keyword(name string, def any) Param {
	return Param{name: name, kind: kindKeyword, def: def, hasDefault: true}
}

// KeywordRequired is a keyword-only parameter without a default.
func KeywordRequired(name string) Param {
	return Param{name: name, kind: kindKeyword}
}

// Variadic marks that the callable accepts extra positional values.
// They are bound under RestKey.
func Variadic() Param {
	return Param{kind: kindVariadic}
}

func (p Param) Name() string {
	return p.name
}

// Signature is the declared parameter list of a callable, built once when
// the callable is wrapped.
type Signature struct {
	params     []Param
	positional []string
	variadic   bool
	index      map[string]int
}

// NewSignature validates params and returns the signature. Positional
// parameters must come before Variadic, a required positional parameter
// cannot follow one with a default, and names must be unique.
func NewSignature(params ...Param) (*Signature, error) {
	s := &Signature{index: make(map[string]int, len(params))}

	seenDefault := false
	for i, p := range params {
		switch p.kind {
		case kindVariadic:
			if s.variadic {
				return nil, fmt.Errorf("%w: more than one variadic parameter", ErrInvalidSignature)
			}
			s.variadic = true
			s.params = append(s.params, p)
			continue
		case kindPositional:
			if s.variadic {
				return nil, fmt.Errorf("%w: positional parameter %q after variadic", ErrInvalidSignature, p.name)
			}
			if !p.hasDefault && seenDefault {
				return nil, fmt.Errorf("%w: required parameter %q follows a default", ErrInvalidSignature, p.name)
			}
			seenDefault = seenDefault || p.hasDefault
		}

		if p.name == "" || p.name == RestKey {
			return nil, fmt.Errorf("%w: parameter %d has an invalid name %q", ErrInvalidSignature, i, p.name)
		}
		if _, dup := s.index[p.name]; dup {
			return nil, fmt.Errorf("%w: duplicate parameter %q", ErrInvalidSignature, p.name)
		}

		s.index[p.name] = len(s.params)
		s.params = append(s.params, p)
		if p.kind == kindPositional {
			s.positional = append(s.positional, p.name)
		}
	}

	return s, nil
}

// MustSignature is NewSignature that panics, for package-level declarations.
func MustSignature(params ...Param) *Signature {
	s, err := NewSignature(params...)
	if err != nil {
		panic(err)
	}
	return s
}

// Params returns the declared parameters in order.
func (s *Signature) Params() []Param {
	return append([]Param(nil), s.params...)
}

// Positional returns the names that may be filled by position.
func (s *Signature) Positional() []string {
	return append([]string(nil), s.positional...)
}

func (s *Signature) IsVariadic() bool {
	return s.variadic
}

// Call is one invocation in positional/keyword form.
type Call struct {
	Args   []any
	Kwargs map[string]any
}

// Args maps every declared parameter name to its effective value, plus RestKey.
type Args map[string]any

// Get returns the value bound to name.
func (a Args) Get(name string) (any, bool) {
	v, ok := a[name]
	return v, ok
}

// Rest returns the overflow positional values.
func (a Args) Rest() []any {
	rest, _ := a[RestKey].([]any)
	return rest
}

// Clone returns a shallow copy.
func (a Args) Clone() Args {
	if a == nil {
		return nil
	}
	out := maps.Clone(a)
	if rest := a.Rest(); rest != nil {
		out[RestKey] = append([]any(nil), rest...)
	}
	return out
}

// Bind merges call into one value per parameter: keywords first, positional
// values overlaid by position, then declared defaults. Positional values
// beyond the declared positional parameters are kept under RestKey.
func (s *Signature) Bind(call Call) (Args, error) {
	args := make(Args, len(s.params)+1)

	for k, v := range call.Kwargs {
		if _, ok := s.index[k]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnexpectedKeyword, k)
		}
		args[k] = v
	}

	rest := make([]any, 0)
	for i, v := range call.Args {
		if i >= len(s.positional) {
			rest = append(rest, v)
			continue
		}
		name := s.positional[i]
		if _, dup := call.Kwargs[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrMultipleValues, name)
		}
		args[name] = v
	}
	args[RestKey] = rest

	for _, p := range s.params {
		if p.kind == kindVariadic {
			continue
		}
		if _, ok := args[p.name]; ok {
			continue
		}
		if !p.hasDefault {
			return nil, fmt.Errorf("%w: %q", ErrMissingArgument, p.name)
		}
		args[p.name] = p.def
	}

	return args, nil
}

// Apply rebuilds a call from args. The first positional parameters, as many
// as the original call passed by position, are emitted positionally in
// declaration order followed by the RestKey values. Every other parameter
// is emitted as a keyword.
func (s *Signature) Apply(args Args, positional int) Call {
	positional = min(positional, len(s.positional))

	call := Call{
		Args:   make([]any, 0, positional+len(args.Rest())),
		Kwargs: make(map[string]any),
	}

	emitted := make(map[string]struct{}, positional)
	for _, name := range s.positional[:positional] {
		call.Args = append(call.Args, args[name])
		emitted[name] = struct{}{}
	}
	if positional == len(s.positional) {
		call.Args = append(call.Args, args.Rest()...)
	}

	for _, p := range s.params {
		if p.kind == kindVariadic {
			continue
		}
		if _, ok := emitted[p.name]; ok {
			continue
		}
		if v, ok := args[p.name]; ok {
			call.Kwargs[p.name] = v
		}
	}

	return call
}
