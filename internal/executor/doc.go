// Package executor runs GraphQL operations breadth first against a Runtime.
//
// Fields marked Async on the schema are queued while a depth is expanded and
// resolved together by one Runtime.BatchResolveAsync call once every sync
// field at that depth has completed. Sync fields go through
// Runtime.ResolveSync immediately and never add a depth.
//
// Values complete the usual way: lists item by item, leaves through
// Runtime.SerializeLeafValue, abstract types through Runtime.ResolveType. A
// null in a Non-Null position nulls the nearest nullable ancestor; when that
// happens below an already written async value, the whole root field is
// nulled instead. Queued async tasks under a nulled path are dropped before
// the next flush.
//
// Mutation root fields run one at a time in document order. Each root field,
// including every async descendant, is fully drained before the next one is
// dispatched, so the Runtime sees at most one mutation per batch.
//
// Fields with RawArguments receive their argument AST nodes
// (*language.Value) instead of coerced values; the coerced operation
// variables are available from VariablesFromContext for late binding.
//
// Errors are collected with their response paths and never abort sibling
// fields. ExecutionResult.Errors is empty, not nil, once execution starts.
package executor
