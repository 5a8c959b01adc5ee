package mutation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrNotFound is returned when invoking a mutation that was never registered.
var ErrNotFound = errors.New("mutation not found")

// ErrUnresolvedVariable is the cause of a BindingError raised for a variable
// reference missing from the document variables.
var ErrUnresolvedVariable = errors.New("unresolved variable")

// ErrMissingArgument is the cause of a BindingError raised for an absent
// required argument whose Go type has no empty value the Validator can see.
var ErrMissingArgument = errors.New("required argument not provided")

// ValidationError is a single validation failure. Field is the wire name of
// the offending argument, or empty for errors added by the mutation itself.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string { return e.Message }

// ValidationErrors is an ordered list of validation failures.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes each failure as its own error.
func (es ValidationErrors) Unwrap() []error {
	errs := make([]error, len(es))
	for i, e := range es {
		errs[i] = e
	}
	return errs
}

// BindingError reports a request value that could not be bound to an
// argument.
type BindingError struct {
	Mutation string
	Argument string
	Cause    error
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("mutation %s: argument %s: %v", e.Mutation, e.Argument, e.Cause)
}

func (e *BindingError) Unwrap() error { return e.Cause }

// DependencyResolutionError reports a parameter no source could supply.
type DependencyResolutionError struct {
	Mutation string
	Type     reflect.Type
	Cause    error
}

func (e *DependencyResolutionError) Error() string {
	msg := fmt.Sprintf("mutation %s: cannot resolve parameter of type %s", e.Mutation, e.Type)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *DependencyResolutionError) Unwrap() error { return e.Cause }

// TargetInvocationError tags a panic raised by the mutation function. It
// never leaves Invoke; callers see Cause.
type TargetInvocationError struct {
	Mutation string
	Cause    error
}

func (e *TargetInvocationError) Error() string {
	return fmt.Sprintf("mutation %s: %v", e.Mutation, e.Cause)
}

func (e *TargetInvocationError) Unwrap() error { return e.Cause }

// PanicError carries a recovered panic value that was not an error.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// panicCause converts a recovered value into an error, keeping error values
// as they are.
func panicCause(r any, stack []byte) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &PanicError{Value: r, Stack: stack}
}
