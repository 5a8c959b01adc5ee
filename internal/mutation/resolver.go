package mutation

import (
	"context"
	"fmt"
	"reflect"
)

// ServiceLocator supplies parameters no other source provides. Resolve
// returns an error when it has nothing for t.
type ServiceLocator interface {
	Resolve(t reflect.Type) (any, error)
}

// resolveParameters produces one value per declared parameter, in
// declaration order. bound is the arguments value, or invalid when the
// mutation declares no arguments.
func (f *Field) resolveParameters(ctx context.Context, bound reflect.Value, ic Context, v *Validator) ([]reflect.Value, error) {
	values := make([]reflect.Value, len(f.params))
	var rootType reflect.Type
	if ic.Root != nil {
		rootType = reflect.TypeOf(ic.Root)
	}
	for i, pt := range f.params {
		switch {
		case i == f.argsParam:
			values[i] = argumentsParameter(pt, bound)
		case rootType != nil && pt == rootType:
			values[i] = reflect.ValueOf(ic.Root)
		case pt == validatorType:
			values[i] = reflect.ValueOf(v)
		case pt == contextType:
			values[i] = reflect.ValueOf(ctx)
		default:
			val, err := f.lookup(pt, ic.Services)
			if err != nil {
				return nil, err
			}
			values[i] = val
		}
	}
	return values, nil
}

func argumentsParameter(pt reflect.Type, bound reflect.Value) reflect.Value {
	if !bound.IsValid() {
		return reflect.Zero(pt)
	}
	if pt.Kind() == reflect.Pointer {
		return bound.Addr()
	}
	return bound
}

func (f *Field) lookup(t reflect.Type, services ServiceLocator) (reflect.Value, error) {
	if services == nil {
		return reflect.Value{}, &DependencyResolutionError{Mutation: f.Name, Type: t}
	}
	svc, err := services.Resolve(t)
	if err != nil {
		return reflect.Value{}, &DependencyResolutionError{Mutation: f.Name, Type: t, Cause: err}
	}
	if svc == nil {
		return reflect.Value{}, &DependencyResolutionError{Mutation: f.Name, Type: t}
	}
	rv := reflect.ValueOf(svc)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, &DependencyResolutionError{
			Mutation: f.Name,
			Type:     t,
			Cause:    fmt.Errorf("resolved %s", rv.Type()),
		}
	}
	return rv, nil
}
