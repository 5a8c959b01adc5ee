package executor

import "context"

// Runtime resolves fields and leaf values for an Executor.
//
// The Executor calls ResolveSync only for fields with Async unset, and calls
// BatchResolveAsync once per depth with every async task of that depth.
// Errors become located GraphQL errors on the field that produced them.
// Implementations must not mutate sources or args and must be safe for
// concurrent operations.
type Runtime interface {
	// ResolveSync returns the raw value of a sync field. (nil, nil) is a
	// GraphQL null.
	ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves one depth of async tasks. results[i]
	// answers tasks[i]; an error in one result leaves the others intact.
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType names the object type of a value of an interface or union.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// ResolveUnionConcreteValue and ResolveInterfaceConcreteValue unwrap an
	// abstract value before it is completed as its object type.
	ResolveUnionConcreteValue(ctx context.Context, unionTypeName string, value any) (any, error)
	ResolveInterfaceConcreteValue(ctx context.Context, interfaceTypeName string, value any) (any, error)

	// SerializeLeafValue turns a scalar or enum value into a JSON-safe value.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

// AsyncResolveTask is one queued async field: the parent object type, the
// field name, the parent value (the root value for root fields) and the
// arguments.
type AsyncResolveTask struct {
	ObjectType string
	Field      string
	Source     any
	Args       map[string]any
}

// AsyncResolveResult carries either the raw value or the error of one task.
type AsyncResolveResult struct {
	Value any
	Error error
}
