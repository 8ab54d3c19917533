// Package schema is the rule engine behind decorated points: it maps a
// variant and rule set to the span a call produces and records it through
// the tracer's observability client.
package schema

import (
	"fmt"
	"sync"

	"github.com/JailtonJunior94/pointkit/pkg/point"
	"github.com/JailtonJunior94/pointkit/pkg/tracer"
)

// Engine implements point.Engine on top of a tracer.Tracer.
type Engine struct {
	tracer *tracer.Tracer

	mu       sync.RWMutex
	variants map[string]Variant
	ruleSets map[string]RuleSet
}

// Option configures an Engine.
type Option func(*Engine) error

// WithRuleSets registers named rule sets for point.WithRuleSet.
func WithRuleSets(ruleSets ...RuleSet) Option {
	return func(e *Engine) error {
		return e.addRuleSets(ruleSets)
	}
}

// WithVariant registers a custom variant or replaces a built-in one.
func WithVariant(v Variant) Option {
	return func(e *Engine) error {
		if v.Name == "" {
			return fmt.Errorf("%w: variant needs a name", ErrInvalidRuleSet)
		}
		if v.DefaultRuleSet.Name == "" {
			v.DefaultRuleSet.Name = v.Name
		}
		if err := v.DefaultRuleSet.Validate(); err != nil {
			return err
		}
		e.variants[v.Name] = v
		return nil
	}
}

// NewEngine builds the engine. Rule sets named by the tracer's
// RuleSetsFile are loaded before opts run.
func NewEngine(t *tracer.Tracer, opts ...Option) (*Engine, error) {
	if t == nil {
		return nil, ErrNilTracer
	}

	e := &Engine{
		tracer:   t,
		variants: builtinVariants(),
		ruleSets: make(map[string]RuleSet),
	}

	if path := t.Config().RuleSetsFile; path != "" {
		ruleSets, err := LoadRuleSetsFile(path)
		if err != nil {
			return nil, err
		}
		if err := e.addRuleSets(ruleSets); err != nil {
			return nil, err
		}
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Engine) addRuleSets(ruleSets []RuleSet) error {
	for _, rs := range ruleSets {
		if err := rs.Validate(); err != nil {
			return err
		}
		e.ruleSets[rs.Name] = rs
	}
	return nil
}

func (e *Engine) IsTracerDisabled() bool {
	return e.tracer.IsTracerDisabled()
}

func (e *Engine) RegisterStateObserver(o point.StateObserver) {
	e.tracer.RegisterStateObserver(o)
}

// Bind resolves the variant (generic when empty) and the rule set (the
// variant default when empty).
func (e *Engine) Bind(variant, ruleSet string) (point.Binding, error) {
	if variant == "" {
		variant = VariantGeneric
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	v, ok := e.variants[variant]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}

	rules := v.DefaultRuleSet
	if ruleSet != "" {
		rs, ok := e.ruleSets[ruleSet]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRuleSet, ruleSet)
		}
		rules = rs
	}

	return newBinding(v, rules), nil
}

// RuleSet returns a registered rule set.
func (e *Engine) RuleSet(name string) (RuleSet, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rs, ok := e.ruleSets[name]
	return rs, ok
}
