package mutation

import (
	"reflect"

	"github.com/hanpama/mutagraph/internal/expr"
)

// Args marks a struct as the bundled arguments of a mutation. Embed it in
// the struct taken by the mutation function:
//
//	type AddPersonArgs struct {
//		mutation.Args
//		Name string `validate:"required"`
//	}
type Args struct{}

func (Args) mutationArguments() {}

type argumentsMarker interface{ mutationArguments() }

var markerType = reflect.TypeFor[argumentsMarker]()

// isArgumentsType reports whether t or *t embeds Args.
func isArgumentsType(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && (t.Implements(markerType) || reflect.PointerTo(t).Implements(markerType))
}

// Variable references a document variable by name in request arguments.
type Variable string

// Context carries the per-call collaborators of an invocation. Root and
// Services are shared with the caller and never owned by the pipeline.
type Context struct {
	// Root is the data context the request is evaluated against.
	Root any
	// Services resolves parameters no other source supplies.
	Services ServiceLocator
	// Variables is the parameter that expr.Expr argument values use to reach
	// document variables, bound as map[string]any.
	Variables *expr.Parameter
	// Schema is the root-context parameter results are rebound to.
	Schema *expr.Parameter
}

// VariablesParameter returns a fresh parameter suitable for Context.Variables.
func VariablesParameter() *expr.Parameter {
	return expr.ParameterOf[map[string]any]("variables")
}
