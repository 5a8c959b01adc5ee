// Package mutation maps GraphQL mutation fields onto Go functions.
//
// A mutation is registered once; registration derives the argument
// descriptors from the function's bundled-arguments parameter (a struct
// embedding Args) and decides whether the function is synchronous or returns
// an Awaitable. Each invocation then runs the same pipeline:
//
//	bind -> validate -> (Failed | resolve parameters) -> invoke -> (Faulted | Succeeded) -> rewrite result
//
// Binding materializes a fresh arguments value from request literals and
// document variables. Validation checks `validate:"required"` members and
// skips the call when anything is reported. Parameters are supplied, in
// declaration order, from the bound arguments, the root context, the
// Validator, the request context or a ServiceLocator. The awaited value is
// finally exposed as an expr.Expr rebound to the schema root parameter so the
// remaining selection set can be resolved against it.
package mutation
