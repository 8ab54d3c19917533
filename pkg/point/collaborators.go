package point

import (
	"context"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
)

// Engine is the rule engine that decides what each point records.
type Engine interface {
	// IsTracerDisabled is called on every invocation and must be cheap.
	IsTracerDisabled() bool
	RegisterStateObserver(observer StateObserver)
	// Bind returns the recorder for one decorated callable. It is created
	// once at wrap time and shared by all concurrent invocations.
	Bind(variant, ruleSet string) (Binding, error)
}

// StateObserver is told when the tracer is enabled or disabled.
type StateObserver interface {
	OnTracerState(enabled bool)
}

// Recorder performs the stage work for one point. Each method receives the
// current Context and returns the updated one. A non-zero Context returned
// together with an error is still adopted, so a span opened before the
// failure can be ended by a later stage.
type Recorder interface {
	RunStage(ctx context.Context, pc Context, stage Stage) (Context, error)
	RegisterError(ctx context.Context, pc Context, err error) (Context, error)
	// EmergencyExit records an own error when the stage machinery is broken.
	// It must not panic.
	EmergencyExit(pc Context, err error)
}

// Binding is the per-point engine object.
type Binding interface {
	StateObserver
	Recorder
}

// Adapter is the tracer control object.
type Adapter interface {
	Debug() bool
	CollectTrace() bool
	Client() observability.Observability
}
