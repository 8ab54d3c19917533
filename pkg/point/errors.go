package point

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingArgument is returned by Bind when a parameter without a default gets no value.
	ErrMissingArgument = errors.New("point: missing argument")

	// ErrUnexpectedKeyword is returned by Bind for a keyword that names no parameter.
	ErrUnexpectedKeyword = errors.New("point: unexpected keyword argument")

	// ErrMultipleValues is returned by Bind when a parameter is given positionally and by keyword.
	ErrMultipleValues = errors.New("point: multiple values for argument")

	// ErrInvalidSignature is returned when a parameter list cannot describe a callable.
	ErrInvalidSignature = errors.New("point: invalid signature")

	// ErrAlreadyRun is returned when the real callable is asked to run a second time.
	ErrAlreadyRun = errors.New("point: callable already run")

	// ErrStageOrder is returned when the per-call state machine would move backwards.
	ErrStageOrder = errors.New("point: stage out of order")

	// ErrNotAFunc is returned by Decorate for anything but a non-nil func value.
	ErrNotAFunc = errors.New("point: value is not a function")

	// ErrNilFunc is returned by Wrap for a nil Func.
	ErrNilFunc = errors.New("point: func cannot be nil")

	// ErrNilEngine is returned by New without an engine.
	ErrNilEngine = errors.New("point: engine cannot be nil")

	// ErrNilAdapter is returned by New without an adapter.
	ErrNilAdapter = errors.New("point: adapter cannot be nil")

	// ErrPointPanicked is recorded against the span when the real callable panics.
	// The panic itself keeps unwinding to the caller.
	ErrPointPanicked = errors.New("point: callable panicked")

	// ErrArgumentType is returned when a bound value cannot be passed to a typed func.
	ErrArgumentType = errors.New("point: argument type mismatch")
)

// Steps that fail outside the stage callbacks themselves. Stage is then the
// stage the step belongs to: binding, stack capture and prepare happen
// around INIT, call-error reporting right before POST.
const (
	StepBindArgs      = "bind_args"
	StepCaptureStack  = "capture_stack"
	StepPrepare       = "prepare"
	StepRegisterError = "register_error"
)

// OwnError is a failure of the instrumentation itself. It is logged and
// reported to the span collaborator, and never returned to the caller.
// Step is empty when the stage callback itself failed.
type OwnError struct {
	Point string
	Stage Stage
	Step  string
	Err   error
}

func (e *OwnError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("point %s: own error in %s (%s): %v", e.Point, e.Stage, e.Step, e.Err)
	}
	return fmt.Sprintf("point %s: own error in %s: %v", e.Point, e.Stage, e.Err)
}

func (e *OwnError) Unwrap() error {
	return e.Err
}

// PanicError carries a panic recovered inside instrumentation code.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
