package executor

import (
	"context"
	"fmt"

	language "github.com/hanpama/mutagraph/internal/language"
	schema "github.com/hanpama/mutagraph/internal/schema"
)

// Executor executes documents against one schema and Runtime. It holds no
// per-request state and may serve concurrent requests.
type Executor struct {
	runtime Runtime
	schema  *schema.Schema
}

func NewExecutor(runtime Runtime, schema *schema.Schema) *Executor {
	return &Executor{runtime: runtime, schema: schema}
}

// request is the state of one ExecuteRequest call.
type request struct {
	ctx       context.Context
	runtime   Runtime
	schema    *schema.Schema
	document  *language.QueryDocument
	variables map[string]any
	errors    []GraphQLError

	// pending async fields of the current depth
	pending []pendingField
	// response keys whose subtree was nulled by a non-null violation
	nulled map[string]struct{}
}

type pendingField struct {
	task   AsyncResolveTask
	path   Path
	typ    *schema.TypeRef
	fields []*language.Field
}

// pendingValue marks a response slot filled later by an async flush.
type pendingValue struct{}

// ExecuteRequest runs the named operation of document (or its only
// operation when operationName is empty). rootValue is the source of the
// root fields.
func (e *Executor) ExecuteRequest(ctx context.Context, document *language.QueryDocument, operationName string, variableValues map[string]any, rootValue any) *ExecutionResult {
	op := selectOperation(document, operationName)
	if op == nil {
		return failed("operation not found")
	}
	vars, err := coerceVariableValues(e.schema, op, variableValues)
	if err != nil {
		return failed(err.Error())
	}

	var root *schema.Type
	switch op.Operation {
	case language.Query:
		root = e.schema.GetQueryType()
	case language.Mutation:
		root = e.schema.GetMutationType()
	case language.Subscription:
		root = e.schema.GetSubscriptionType()
	default:
		return failed(fmt.Sprintf("unsupported operation type: %s", op.Operation))
	}
	if root == nil {
		return failed(fmt.Sprintf("root type not found for %s operation", op.Operation))
	}

	r := &request{
		ctx:       withVariables(ctx, vars),
		runtime:   e.runtime,
		schema:    e.schema,
		document:  document,
		variables: vars,
		errors:    []GraphQLError{},
		nulled:    make(map[string]struct{}),
	}
	data := make(map[string]any)
	fields := collectFields(r, root, op.SelectionSet).orderedFields()
	if op.Operation == language.Mutation {
		// one root field at a time, each drained before the next starts
		for _, f := range fields {
			r.executeField(root, rootValue, f, Path{}, data)
			r.drain(data)
		}
	} else {
		for _, f := range fields {
			r.executeField(root, rootValue, f, Path{}, data)
		}
		r.drain(data)
	}
	return &ExecutionResult{Data: data, Errors: r.errors}
}

func failed(message string) *ExecutionResult {
	return &ExecutionResult{Errors: []GraphQLError{{Message: message}}}
}

func selectOperation(document *language.QueryDocument, name string) *language.OperationDefinition {
	if name == "" && len(document.Operations) == 1 {
		return document.Operations[0]
	}
	for _, op := range document.Operations {
		if op.Name == name {
			return op
		}
	}
	return nil
}

func (r *request) addError(message string, path Path) {
	r.errors = append(r.errors, GraphQLError{Message: message, Path: path})
}

// addResolveError records err at path. An error joining several others, as
// errors.Join or a list of validation failures does, yields one entry each.
func (r *request) addResolveError(err error, path Path) {
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		if errs := multi.Unwrap(); len(errs) > 0 {
			for _, e := range errs {
				r.addResolveError(e, path)
			}
			return
		}
	}
	r.addError(err.Error(), path)
}

// executeSelectionSet completes an object value. It returns nil when a
// non-null child came back null, nulling the object itself.
func (r *request) executeSelectionSet(objectType *schema.Type, selectionSet language.SelectionSet, source any, path Path) map[string]any {
	out := make(map[string]any)
	for _, f := range collectFields(r, objectType, selectionSet).orderedFields() {
		if !r.executeField(objectType, source, f, path, out) {
			return nil
		}
	}
	return out
}

// executeField resolves one response key into out. It reports false when a
// non-null field below the root resolved to null.
func (r *request) executeField(objectType *schema.Type, source any, f collectedField, parent Path, out map[string]any) bool {
	path := appendPath(parent, f.ResponseName)
	name := f.Fields[0].Name
	if name == "__typename" {
		out[f.ResponseName] = objectType.Name
		return true
	}
	def := objectType.Field(name)
	if def == nil {
		r.addError(fmt.Sprintf("Cannot query field '%s' on type '%s'", name, objectType.Name), path)
		return true
	}

	var args map[string]any
	if def.RawArguments {
		args = rawArgumentValues(f.Fields[0].Arguments)
	} else {
		args = coerceArgumentValues(r, def, f.Fields[0].Arguments, path)
	}

	if def.Async {
		r.pending = append(r.pending, pendingField{
			task:   AsyncResolveTask{ObjectType: objectType.Name, Field: name, Source: source, Args: args},
			path:   path,
			typ:    def.Type,
			fields: f.Fields,
		})
		out[f.ResponseName] = pendingValue{}
		return true
	}

	var value any
	resolved, err := r.runtime.ResolveSync(r.ctx, objectType.Name, name, source, args)
	if err != nil {
		r.addResolveError(err, path)
	} else {
		value = r.completeValue(def.Type, f.Fields, resolved, path)
	}
	if isNullish(value) {
		if schema.IsNonNull(def.Type) && len(parent) > 0 {
			return false
		}
		value = nil
	}
	out[f.ResponseName] = value
	return true
}

// drain flushes pending async fields depth by depth until none remain.
func (r *request) drain(data map[string]any) {
	for len(r.pending) > 0 {
		batch := make([]pendingField, 0, len(r.pending))
		for _, p := range r.pending {
			if !r.isNulled(p.path) {
				batch = append(batch, p)
			}
		}
		r.pending = nil

		tasks := make([]AsyncResolveTask, len(batch))
		for i, p := range batch {
			tasks[i] = p.task
		}
		results := r.runtime.BatchResolveAsync(r.ctx, tasks)
		for i, p := range batch {
			var res AsyncResolveResult
			if i < len(results) {
				res = results[i]
			}
			r.completeAsync(p, res, data)
		}
	}
}

func (r *request) completeAsync(p pendingField, res AsyncResolveResult, data map[string]any) {
	if r.isNulled(p.path) {
		return
	}
	var value any
	if res.Error != nil {
		r.addResolveError(res.Error, p.path)
	} else {
		value = r.completeValue(p.typ, p.fields, res.Value, p.path)
	}
	if !isNullish(value) {
		setValueAtPath(data, p.path, value)
		return
	}
	if schema.IsNonNull(p.typ) {
		// the enclosing object is already written; null the whole root field
		top := rootFieldPath(p.path)
		setValueAtPath(data, top, nil)
		r.nulled[pathToString(top)] = struct{}{}
		return
	}
	setValueAtPath(data, p.path, nil)
}

func (r *request) isNulled(p Path) bool {
	if len(r.nulled) == 0 {
		return false
	}
	for i := range p {
		if _, ok := r.nulled[pathToString(p[:i+1])]; ok {
			return true
		}
	}
	return false
}
