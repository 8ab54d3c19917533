package schema

import "errors"

var (
	// ErrUnknownVariant is returned by Bind for a variant that was never registered.
	ErrUnknownVariant = errors.New("schema: unknown variant")

	// ErrUnknownRuleSet is returned by Bind for a rule set that was never loaded.
	ErrUnknownRuleSet = errors.New("schema: unknown rule set")

	// ErrInvalidRuleSet is returned when a rule set fails validation.
	ErrInvalidRuleSet = errors.New("schema: invalid rule set")

	// ErrPathNotFound is returned when an accessor path does not resolve.
	ErrPathNotFound = errors.New("schema: path not found")

	// ErrUnsupportedHeaders is returned when the header argument is not a string map or http.Header.
	ErrUnsupportedHeaders = errors.New("schema: unsupported headers carrier")

	// ErrNilTracer is returned by NewEngine without a tracer.
	ErrNilTracer = errors.New("schema: tracer cannot be nil")

	// ErrNoClient is returned by a stage when the context carries no transport client.
	ErrNoClient = errors.New("schema: context has no client")
)
