package schema

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// TagRule copies one value from the bound arguments onto the span.
type TagRule struct {
	// Arg is the parameter name.
	Arg string `yaml:"arg"`
	// Path is a dotted accessor applied to the argument, e.g. "URL.Path".
	Path string `yaml:"path"`
	// Key is the span attribute name.
	Key string `yaml:"key"`
	// MaxLen truncates string values; zero keeps them whole.
	MaxLen int `yaml:"max_len"`
}

// RuleSet selects what a point records.
type RuleSet struct {
	Name string `yaml:"name"`
	// SpanName is a template: {point}, {remote} and {arg.<name>.<path>}.
	SpanName string    `yaml:"span_name"`
	Tags     []TagRule `yaml:"tags"`
	// Headers names the trace-propagation carrier: "<arg>" or "<arg>.<path>".
	// Server and consumer kinds extract from it, client and producer kinds inject into it.
	Headers string `yaml:"headers"`
	// Result is the span attribute holding the call result; empty records nothing.
	Result  string `yaml:"result"`
	LogArgs bool   `yaml:"log_args"`
	Skip    bool   `yaml:"skip"`
}

func (r RuleSet) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRuleSet)
	}
	for i, tag := range r.Tags {
		if tag.Arg == "" || tag.Key == "" {
			return fmt.Errorf("%w: %s: tag %d needs arg and key", ErrInvalidRuleSet, r.Name, i)
		}
		if tag.MaxLen < 0 {
			return fmt.Errorf("%w: %s: tag %s has negative max_len", ErrInvalidRuleSet, r.Name, tag.Key)
		}
	}
	if err := validateTemplate(r.SpanName); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidRuleSet, r.Name, err)
	}
	return nil
}

type ruleSetFile struct {
	RuleSets []RuleSet `yaml:"rule_sets"`
}

// LoadRuleSets parses a YAML document with a top-level rule_sets list.
func LoadRuleSets(r io.Reader) ([]RuleSet, error) {
	var file ruleSetFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("schema: decode rule sets: %w", err)
	}

	seen := make(map[string]struct{}, len(file.RuleSets))
	for _, rs := range file.RuleSets {
		if err := rs.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[rs.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidRuleSet, rs.Name)
		}
		seen[rs.Name] = struct{}{}
	}
	return file.RuleSets, nil
}

func LoadRuleSetsFile(path string) ([]RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("schema: open rule sets: %w", err)
	}
	defer f.Close()

	return LoadRuleSets(f)
}
