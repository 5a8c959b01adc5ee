// Package expr is a small expression tree used to describe values relative
// to a request's root context. Mutations hand back an Expr describing their
// result; the runtime rewrites it against the schema root parameter and
// evaluates it to continue resolving the selection set.
package expr

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Expr is a node of an expression tree. Type reports the static type of the
// value the node evaluates to.
type Expr interface {
	Type() reflect.Type
	String() string
	children() []Expr
	withChildren([]Expr) Expr
}

// Env binds parameters to values for evaluation.
type Env map[*Parameter]any

// Parameter is a placeholder bound through an Env. Parameters compare by
// identity.
type Parameter struct {
	Name string
	typ  reflect.Type
}

func NewParameter(name string, t reflect.Type) *Parameter {
	return &Parameter{Name: name, typ: t}
}

// ParameterOf returns a parameter typed as T.
func ParameterOf[T any](name string) *Parameter {
	return NewParameter(name, reflect.TypeFor[T]())
}

func (p *Parameter) Type() reflect.Type       { return p.typ }
func (p *Parameter) String() string           { return p.Name }
func (p *Parameter) children() []Expr         { return nil }
func (p *Parameter) withChildren([]Expr) Expr { return p }

// Constant is a literal value.
type Constant struct {
	Value any
	typ   reflect.Type
}

// Const wraps v, typed by its dynamic type.
func Const(v any) *Constant {
	return &Constant{Value: v, typ: reflect.TypeOf(v)}
}

// TypedConst wraps v with an explicit static type, which is needed for nil
// values and interface-typed constants.
func TypedConst(v any, t reflect.Type) *Constant {
	return &Constant{Value: v, typ: t}
}

func (c *Constant) Type() reflect.Type       { return c.typ }
func (c *Constant) String() string           { return fmt.Sprintf("%v", c.Value) }
func (c *Constant) children() []Expr         { return nil }
func (c *Constant) withChildren([]Expr) Expr { return c }

// Member selects a struct field, a niladic method or a string map key from
// Target. The member is looked up by name on the evaluated target, so a
// Member survives replacing its target with an expression of another type
// carrying the same member.
type Member struct {
	Target Expr
	Name   string
	typ    reflect.Type
}

// MemberOf returns target.name, failing when the static type of target has
// no such member.
func MemberOf(target Expr, name string) (*Member, error) {
	t, err := memberType(target.Type(), name)
	if err != nil {
		return nil, err
	}
	return &Member{Target: target, Name: name, typ: t}, nil
}

// Path chains MemberOf over names.
func Path(target Expr, names ...string) (Expr, error) {
	cur := target
	for _, name := range names {
		m, err := MemberOf(cur, name)
		if err != nil {
			return nil, err
		}
		cur = m
	}
	return cur, nil
}

func (m *Member) Type() reflect.Type { return m.typ }
func (m *Member) String() string     { return m.Target.String() + "." + m.Name }
func (m *Member) children() []Expr   { return []Expr{m.Target} }
func (m *Member) withChildren(c []Expr) Expr {
	return &Member{Target: c[0], Name: m.Name, typ: m.typ}
}

// Call applies a Go function to the evaluated arguments. The function may
// return (T) or (T, error).
type Call struct {
	Name string
	Fn   reflect.Value
	Args []Expr
}

func NewCall(name string, fn any, args ...Expr) (*Call, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("call %s: %T is not a function", name, fn)
	}
	ft := v.Type()
	if ft.NumIn() != len(args) {
		return nil, fmt.Errorf("call %s: want %d arguments, got %d", name, ft.NumIn(), len(args))
	}
	for i, a := range args {
		if a.Type() != nil && !a.Type().AssignableTo(ft.In(i)) {
			return nil, fmt.Errorf("call %s: argument %d: %s is not assignable to %s", name, i, a.Type(), ft.In(i))
		}
	}
	if !validResults(ft) {
		return nil, fmt.Errorf("call %s: function must return (T) or (T, error)", name)
	}
	return &Call{Name: name, Fn: v, Args: args}, nil
}

func (c *Call) Type() reflect.Type { return c.Fn.Type().Out(0) }
func (c *Call) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return c.Name + "(" + strings.Join(parts, ", ") + ")"
}
func (c *Call) children() []Expr { return c.Args }
func (c *Call) withChildren(args []Expr) Expr {
	return &Call{Name: c.Name, Fn: c.Fn, Args: args}
}

var errorType = reflect.TypeFor[error]()

func validResults(ft reflect.Type) bool {
	switch ft.NumOut() {
	case 1:
		return true
	case 2:
		return ft.Out(1) == errorType
	}
	return false
}

// ErrUnbound is returned when evaluation reaches a parameter with no binding.
var ErrUnbound = errors.New("expr: unbound parameter")

func memberType(t reflect.Type, name string) (reflect.Type, error) {
	if t == nil {
		return nil, fmt.Errorf("member %s: untyped target", name)
	}
	if m, ok := t.MethodByName(name); ok {
		recv := 1
		if t.Kind() == reflect.Interface {
			recv = 0
		}
		if m.Type.NumIn() != recv {
			return nil, fmt.Errorf("member %s: method takes arguments", name)
		}
		if !validResults(m.Type) {
			return nil, fmt.Errorf("member %s: method must return (T) or (T, error)", name)
		}
		return m.Type.Out(0), nil
	}
	base := t
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	switch base.Kind() {
	case reflect.Struct:
		if f, ok := base.FieldByName(name); ok && f.IsExported() {
			return f.Type, nil
		}
	case reflect.Map:
		if base.Key().Kind() == reflect.String {
			return base.Elem(), nil
		}
	}
	return nil, fmt.Errorf("member %s: not found on %s", name, t)
}
