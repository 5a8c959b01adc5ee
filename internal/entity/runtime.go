package entity

import (
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/hanpama/mutagraph/internal/di"
	"github.com/hanpama/mutagraph/internal/executor"
	"github.com/hanpama/mutagraph/internal/expr"
	"github.com/hanpama/mutagraph/internal/mutation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Authorizer decides whether the caller in ctx may invoke f. It is only
// consulted for mutations registered with roles.
type Authorizer interface {
	Authorize(ctx context.Context, f *mutation.Field) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, f *mutation.Field) error

func (fn AuthorizerFunc) Authorize(ctx context.Context, f *mutation.Field) error { return fn(ctx, f) }

// ErrNoAuthorizer is returned for a mutation registered with roles when the
// Runtime has no Authorizer.
var ErrNoAuthorizer = errors.New("entity: mutation requires roles but no authorizer is configured")

// ErrUnsupported is returned for abstract type resolution.
var ErrUnsupported = errors.New("entity: interfaces and unions are not supported")

// Runtime resolves fields by reading Go values and invokes mutations
// through the registry.
type Runtime struct {
	schema     *Schema
	services   mutation.ServiceLocator
	authorizer Authorizer
	logger     *zap.Logger
	limit      int
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithServices sets the locator consulted after request-scoped values.
func WithServices(l mutation.ServiceLocator) RuntimeOption {
	return func(r *Runtime) { r.services = l }
}

// WithAuthorizer sets the authorizer for mutations with roles. Without one,
// such mutations are refused with ErrNoAuthorizer.
func WithAuthorizer(a Authorizer) RuntimeOption { return func(r *Runtime) { r.authorizer = a } }

func WithLogger(l *zap.Logger) RuntimeOption { return func(r *Runtime) { r.logger = l } }

// WithConcurrency caps concurrent async query fields per depth; 0 means no
// limit.
func WithConcurrency(n int) RuntimeOption { return func(r *Runtime) { r.limit = n } }

func NewRuntime(s *Schema, opts ...RuntimeOption) *Runtime {
	r := &Runtime{schema: s, logger: zap.NewNop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

var _ executor.Runtime = (*Runtime)(nil)

func (r *Runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	m, err := r.member(objectType, field)
	if err != nil {
		return nil, err
	}
	v, err := read(ctx, source, m)
	if err != nil {
		return nil, err
	}
	return normalize(v), nil
}

// BatchResolveAsync runs mutation tasks one after another in task order and
// all other tasks concurrently.
func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	var g errgroup.Group
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for i, task := range tasks {
		if task.ObjectType == MutationTypeName {
			v, err := r.invoke(ctx, task)
			results[i] = executor.AsyncResolveResult{Value: v, Error: err}
			continue
		}
		g.Go(func() error {
			v, err := r.await(ctx, task)
			results[i] = executor.AsyncResolveResult{Value: v, Error: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runtime) await(ctx context.Context, task executor.AsyncResolveTask) (any, error) {
	m, err := r.member(task.ObjectType, task.Field)
	if err != nil {
		return nil, err
	}
	v, err := read(ctx, task.Source, m)
	if err != nil {
		return nil, err
	}
	if a, ok := v.(mutation.Awaitable); ok && !isNil(a) {
		v, err = a.Await()
		if err != nil {
			return nil, err
		}
	}
	return normalize(v), nil
}

func (r *Runtime) invoke(ctx context.Context, task executor.AsyncResolveTask) (any, error) {
	f, ok := r.schema.Mutations.Describe(task.Field)
	if !ok {
		return nil, fmt.Errorf("%w: %s", mutation.ErrNotFound, task.Field)
	}
	if len(f.Roles) > 0 {
		if r.authorizer == nil {
			return nil, fmt.Errorf("%s: %w", f.Name, ErrNoAuthorizer)
		}
		if err := r.authorizer.Authorize(ctx, f); err != nil {
			return nil, err
		}
	}
	services := di.Chain{di.ValuesFromContext(ctx)}
	if r.services != nil {
		services = append(services, r.services)
	}
	ic := r.schema.Context(task.Source, services)
	out, err := r.schema.Mutations.Invoke(ctx, task.Field, ic, task.Args, executor.VariablesFromContext(ctx))
	if err != nil {
		return nil, err
	}
	if len(out.Errors) > 0 {
		return nil, out.Errors
	}
	v, err := expr.Eval(out.Result, expr.Env{r.schema.Root: task.Source})
	if err != nil {
		r.logger.Error("mutation result evaluation failed", zap.String("mutation", task.Field), zap.Error(err))
		return nil, err
	}
	return normalize(v), nil
}

func (r *Runtime) member(objectType, field string) (*member, error) {
	o, ok := r.schema.objects[objectType]
	if !ok {
		return nil, fmt.Errorf("entity: unknown object type %s", objectType)
	}
	m, ok := o.fields[field]
	if !ok {
		return nil, fmt.Errorf("entity: unknown field %s.%s", objectType, field)
	}
	return m, nil
}

// read extracts m from source, a struct value or pointer to one.
func read(ctx context.Context, source any, m *member) (any, error) {
	v := reflect.ValueOf(source)
	if !v.IsValid() {
		return nil, nil
	}
	if m.method == "" {
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return nil, nil
			}
			v = v.Elem()
		}
		f, err := v.FieldByIndexErr(m.index)
		if err != nil {
			return nil, nil // nil embedded pointer
		}
		return f.Interface(), nil
	}
	if v.Kind() != reflect.Pointer {
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		v = p
	}
	if v.IsNil() {
		return nil, nil
	}
	var in []reflect.Value
	if m.ctx {
		in = []reflect.Value{reflect.ValueOf(&ctx).Elem()}
	}
	out := v.MethodByName(m.method).Call(in)
	if m.err && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// normalize turns nil slices into empty lists so non-null list fields
// complete.
func normalize(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.IsNil() {
		return []any{}
	}
	return v
}

func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func (r *Runtime) ResolveType(context.Context, string, any) (string, error) {
	return "", ErrUnsupported
}

func (r *Runtime) ResolveUnionConcreteValue(context.Context, string, any) (any, error) {
	return nil, ErrUnsupported
}

func (r *Runtime) ResolveInterfaceConcreteValue(context.Context, string, any) (any, error) {
	return nil, ErrUnsupported
}

// SerializeLeafValue writes DateTime as RFC 3339, decimal as a JSON number,
// text marshalers (enums) as their text and other values by kind.
func (r *Runtime) SerializeLeafValue(_ context.Context, typeName string, value any) (any, error) {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		if _, ok := rv.Interface().(encoding.TextMarshaler); ok && rv.Elem().Kind() != reflect.Struct {
			break
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, nil
	}
	switch v := rv.Interface().(type) {
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case decimal.Decimal:
		return json.Number(v.String()), nil
	case encoding.TextMarshaler:
		text, err := v.MarshalText()
		if err != nil {
			return nil, fmt.Errorf("serialize %s: %w", typeName, err)
		}
		return string(text), nil
	}
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("serialize %s: %d overflows int64", typeName, u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	}
	return nil, fmt.Errorf("cannot serialize %T as %s", value, typeName)
}
