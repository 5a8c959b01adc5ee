package mutation

import (
	"context"
	"reflect"
	"strconv"

	"github.com/hanpama/mutagraph/internal/expr"
)

// State is the progress of one invocation.
type State int

const (
	NotStarted State = iota
	Binding
	Validating
	Failed // validation errors, terminal
	ResolvingParameters
	Invoking
	Faulted // error, terminal
	Succeeded
	ResultRewritten // terminal
)

var stateNames = [...]string{
	NotStarted:          "NotStarted",
	Binding:             "Binding",
	Validating:          "Validating",
	Failed:              "Failed",
	ResolvingParameters: "ResolvingParameters",
	Invoking:            "Invoking",
	Faulted:             "Faulted",
	Succeeded:           "Succeeded",
	ResultRewritten:     "ResultRewritten",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Outcome is the result of an invocation.
type Outcome struct {
	// Value is the awaited return value; nil when validation failed.
	Value any
	// Result is Value as an expression rebound to Context.Schema.
	Result expr.Expr
	// Errors are the validation errors; non-empty means Value is nil.
	Errors ValidationErrors
	// Arguments is the bound arguments value, nil when none was built.
	Arguments any
	State     State
}

// Invoke runs the pipeline for one call of f. Validation errors are
// returned in the Outcome with a nil error; binding, parameter resolution
// and target failures are returned as the error with the Outcome in state
// Faulted.
func (f *Field) Invoke(ctx context.Context, ic Context, request map[string]any, variables map[string]any) (*Outcome, error) {
	out := &Outcome{State: Binding}
	var bound reflect.Value
	if len(f.Arguments) > 0 {
		var err error
		bound, err = f.Bind(request, variables, ic)
		if err != nil {
			out.State = Faulted
			return out, err
		}
		out.Arguments = bound.Interface()
	}

	out.State = Validating
	v := NewValidator(f.naming)
	if bound.IsValid() {
		v.Validate(bound.Interface())
	}
	if v.HasErrors() {
		out.State = Failed
		out.Errors = v.Errors()
		return out, nil
	}

	out.State = ResolvingParameters
	params, err := f.resolveParameters(ctx, bound, ic, v)
	if err != nil {
		out.State = Faulted
		return out, err
	}

	out.State = Invoking
	val, err := f.call(params).Await()
	if err != nil {
		out.State = Faulted
		return out, unwrapInvocation(err)
	}
	out.State = Succeeded
	if v.HasErrors() {
		out.State = Failed
		out.Errors = v.Errors()
		return out, nil
	}

	out.Value = val
	out.Result = expr.RewriteResult(f.resultExpr(val), ic.Schema)
	out.State = ResultRewritten
	return out, nil
}

func (f *Field) resultExpr(val any) expr.Expr {
	if e, ok := val.(expr.Expr); ok {
		return e
	}
	return expr.TypedConst(val, f.ResultType)
}
