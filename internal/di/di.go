// Package di supplies mutation parameters that neither the request nor the
// root context provide.
package di

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/dig"
)

// ErrServiceNotFound is returned when a locator has nothing for a type.
var ErrServiceNotFound = errors.New("service not found")

// Locator resolves a value assignable to t.
type Locator interface {
	Resolve(t reflect.Type) (any, error)
}

// Container is a Locator backed by a dig container.
type Container struct {
	c *dig.Container
}

func New(opts ...dig.Option) *Container {
	return &Container{c: dig.New(opts...)}
}

// Provide registers a constructor. See dig.Container.Provide.
func (c *Container) Provide(constructor any, opts ...dig.ProvideOption) error {
	return c.c.Provide(constructor, opts...)
}

// Supply registers ready-made values under their dynamic types.
func (c *Container) Supply(values ...any) error {
	for _, v := range values {
		if v == nil {
			return errors.New("di: cannot supply nil")
		}
		val := reflect.ValueOf(v)
		fn := reflect.MakeFunc(
			reflect.FuncOf(nil, []reflect.Type{val.Type()}, false),
			func([]reflect.Value) []reflect.Value { return []reflect.Value{val} },
		)
		if err := c.c.Provide(fn.Interface()); err != nil {
			return err
		}
	}
	return nil
}

// Resolve builds or returns the value of type t.
func (c *Container) Resolve(t reflect.Type) (any, error) {
	var out reflect.Value
	fn := reflect.MakeFunc(
		reflect.FuncOf([]reflect.Type{t}, nil, false),
		func(in []reflect.Value) []reflect.Value { out = in[0]; return nil },
	)
	if err := c.c.Invoke(fn.Interface()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrServiceNotFound, t, err)
	}
	return out.Interface(), nil
}

// Values is a Locator over a fixed set of values, matched by assignability
// in order.
type Values []any

func (vs Values) Resolve(t reflect.Type) (any, error) {
	for _, v := range vs {
		if v != nil && reflect.TypeOf(v).AssignableTo(t) {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, t)
}

// Chain tries each locator in turn; the first hit wins. Nil entries are
// skipped.
type Chain []Locator

func (ch Chain) Resolve(t reflect.Type) (any, error) {
	var errs []error
	for _, l := range ch {
		if l == nil {
			continue
		}
		v, err := l.Resolve(t)
		if err == nil && v != nil {
			return v, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, t)
	}
	return nil, errors.Join(errs...)
}

// ResolveAs resolves a T from l.
func ResolveAs[T any](l Locator) (T, error) {
	var zero T
	v, err := l.Resolve(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

type valuesKey struct{}

// WithValues returns ctx carrying request-scoped values, appended to any
// already present.
func WithValues(ctx context.Context, values ...any) context.Context {
	prev := ValuesFromContext(ctx)
	merged := make(Values, 0, len(prev)+len(values))
	merged = append(merged, values...)
	merged = append(merged, prev...)
	return context.WithValue(ctx, valuesKey{}, merged)
}

// ValuesFromContext returns the request-scoped values of ctx, newest first.
func ValuesFromContext(ctx context.Context) Values {
	vs, _ := ctx.Value(valuesKey{}).(Values)
	return vs
}
