package mutation

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/hanpama/mutagraph/internal/eventbus"
	"github.com/hanpama/mutagraph/internal/events"
	"go.uber.org/zap"
)

// Registry holds the mutation fields of a schema.
type Registry struct {
	naming NamingFunc
	mapper TypeMapper
	logger *zap.Logger

	mu     sync.RWMutex
	fields map[string]*Field
	order  []string
}

// Option configures a Registry.
type Option func(*Registry)

// WithNaming sets the convention turning Go names into wire names.
func WithNaming(n NamingFunc) Option { return func(r *Registry) { r.naming = n } }

// WithTypeMapper sets the mapper used for argument and return types.
func WithTypeMapper(m TypeMapper) Option { return func(r *Registry) { r.mapper = m } }

// WithLogger sets the logger; the default discards.
func WithLogger(l *zap.Logger) Option { return func(r *Registry) { r.logger = l } }

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		naming: LowerCamel,
		mapper: BasicTypes{},
		logger: zap.NewNop(),
		fields: map[string]*Field{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Naming returns the registry's naming convention.
func (r *Registry) Naming() NamingFunc { return r.naming }

// Add registers fn, a function or bound method value, as mutation name.
func (r *Registry) Add(name string, fn any, opts ...FieldOption) (*Field, error) {
	f, err := newField(name, reflect.ValueOf(fn), r.naming, r.mapper, opts...)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.fields[name]; dup {
		return nil, fmt.Errorf("mutation %s already registered", name)
	}
	r.fields[name] = f
	r.order = append(r.order, name)
	r.logger.Debug("registered mutation",
		zap.String("mutation", name),
		zap.Int("arguments", len(f.Arguments)),
		zap.Bool("async", f.Async),
		zap.Stringer("returns", f.ReturnType))
	return f, nil
}

// AddMutationsFrom registers every exported method of instance, named by
// the naming convention. opts apply to every method.
func (r *Registry) AddMutationsFrom(instance any, opts ...FieldOption) ([]*Field, error) {
	v := reflect.ValueOf(instance)
	t := v.Type()
	var added []*Field
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() {
			continue
		}
		f, err := r.Add(r.naming(m.Name), v.Method(i).Interface(), opts...)
		if err != nil {
			return added, err
		}
		added = append(added, f)
	}
	return added, nil
}

// Describe returns the field registered as name.
func (r *Registry) Describe(name string) (*Field, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fields[name]
	return f, ok
}

// Fields returns the registered fields in registration order.
func (r *Registry) Fields() []*Field {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Field, len(r.order))
	for i, name := range r.order {
		out[i] = r.fields[name]
	}
	return out
}

// Names returns the registered names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

// Invoke runs mutation name, publishing MutationStart and MutationFinish.
func (r *Registry) Invoke(ctx context.Context, name string, ic Context, request, variables map[string]any) (*Outcome, error) {
	f, ok := r.Describe(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	start := time.Now()
	eventbus.Publish(ctx, events.MutationStart{Mutation: name, Async: f.Async})
	out, err := f.Invoke(ctx, ic, request, variables)
	elapsed := time.Since(start)
	eventbus.Publish(ctx, events.MutationFinish{
		Mutation:         name,
		State:            out.State.String(),
		ValidationErrors: len(out.Errors),
		Err:              err,
		Duration:         elapsed,
	})
	fields := []zap.Field{
		zap.String("mutation", name),
		zap.Stringer("state", out.State),
		zap.Duration("duration", elapsed),
	}
	switch {
	case err != nil:
		r.logger.Warn("mutation faulted", append(fields, zap.Error(err))...)
	case len(out.Errors) > 0:
		r.logger.Debug("mutation failed validation", append(fields, zap.Strings("errors", messages(out.Errors)))...)
	default:
		r.logger.Debug("mutation completed", fields...)
	}
	return out, err
}

func messages(errs ValidationErrors) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Message
	}
	return out
}
