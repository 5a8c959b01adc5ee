package expr

import (
	"fmt"
	"reflect"
)

// Eval evaluates e against env. A nil pointer or nil interface on the way to
// a member yields nil rather than an error, matching GraphQL null
// propagation.
func Eval(e Expr, env Env) (any, error) {
	v, err := eval(e, env)
	if err != nil {
		return nil, err
	}
	if !v.IsValid() {
		return nil, nil
	}
	return v.Interface(), nil
}

func eval(e Expr, env Env) (reflect.Value, error) {
	switch n := e.(type) {
	case *Parameter:
		v, ok := env[n]
		if !ok {
			return reflect.Value{}, fmt.Errorf("%w %s", ErrUnbound, n.Name)
		}
		return reflect.ValueOf(v), nil
	case *Constant:
		return reflect.ValueOf(n.Value), nil
	case *Member:
		target, err := eval(n.Target, env)
		if err != nil {
			return reflect.Value{}, err
		}
		return member(target, n.Name)
	case *Call:
		args := make([]reflect.Value, len(n.Args))
		in := n.Fn.Type()
		for i, a := range n.Args {
			v, err := eval(a, env)
			if err != nil {
				return reflect.Value{}, err
			}
			if !v.IsValid() {
				v = reflect.Zero(in.In(i))
			}
			args[i] = v
		}
		return results(n.Name, n.Fn.Call(args))
	case nil:
		return reflect.Value{}, fmt.Errorf("expr: nil expression")
	}
	return reflect.Value{}, fmt.Errorf("expr: unsupported node %T", e)
}

func member(target reflect.Value, name string) (reflect.Value, error) {
	for target.IsValid() && target.Kind() == reflect.Interface {
		target = target.Elem()
	}
	if !target.IsValid() || target.Kind() == reflect.Pointer && target.IsNil() {
		return reflect.Value{}, nil
	}
	if m := target.MethodByName(name); m.IsValid() && m.Type().NumIn() == 0 {
		return results(name, m.Call(nil))
	}
	base := reflect.Indirect(target)
	switch base.Kind() {
	case reflect.Struct:
		if f := base.FieldByName(name); f.IsValid() {
			return f, nil
		}
	case reflect.Map:
		if base.IsNil() {
			return reflect.Value{}, nil
		}
		v := base.MapIndex(reflect.ValueOf(name).Convert(base.Type().Key()))
		if !v.IsValid() {
			return reflect.Zero(base.Type().Elem()), nil
		}
		return v, nil
	}
	return reflect.Value{}, fmt.Errorf("member %s: not found on %s", name, target.Type())
}

func results(name string, out []reflect.Value) (reflect.Value, error) {
	if len(out) == 2 && !out[1].IsNil() {
		return reflect.Value{}, fmt.Errorf("%s: %w", name, out[1].Interface().(error))
	}
	return out[0], nil
}
