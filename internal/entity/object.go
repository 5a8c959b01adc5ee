package entity

import (
	"fmt"
	"reflect"

	"github.com/hanpama/mutagraph/internal/mutation"
	"github.com/hanpama/mutagraph/internal/schema"
)

// object is a Go struct exposed as a GraphQL object type.
type object struct {
	name   string
	goType reflect.Type
	def    *schema.Type
	fields map[string]*member
}

// member is how one GraphQL field reads its value from a Go value.
type member struct {
	index  []int  // struct field, when method is empty
	method string // method on the pointer method set
	ctx    bool   // method takes context.Context
	err    bool   // method returns a trailing error
	async  bool   // method returns an Awaitable
}

func (b *Builder) outputObject(t reflect.Type) (string, error) {
	if o, ok := b.outputs[t]; ok {
		return o.name, nil
	}
	if t.Name() == "" {
		return "", fmt.Errorf("anonymous struct %s cannot be an object type", t)
	}
	name := t.Name()
	if t == b.root || reflect.PointerTo(t) == b.root {
		name = QueryTypeName
	}
	name = b.freeName(name, schema.TypeKindObject)
	o := &object{name: name, goType: t, def: schema.NewType(name, schema.TypeKindObject, ""), fields: map[string]*member{}}
	b.outputs[t] = o
	b.def.AddType(o.def)

	for _, sf := range reflect.VisibleFields(t) {
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			continue
		}
		wire, _, ok := mutation.Member(sf, b.naming)
		if !ok {
			continue
		}
		ref, err := b.typeRef(sf.Type, false)
		if err != nil {
			return "", fmt.Errorf("object %s.%s: %w", name, sf.Name, err)
		}
		if err := o.add(wire, schema.NewField(wire, "", ref), &member{index: sf.Index}); err != nil {
			return "", err
		}
	}

	pt := reflect.PointerTo(t)
	for i := 0; i < pt.NumMethod(); i++ {
		m := pt.Method(i)
		if reservedMethods[m.Name] {
			continue
		}
		mem, result, ok := methodMember(m)
		if !ok {
			continue
		}
		wire := b.naming(m.Name)
		if _, taken := o.fields[wire]; taken {
			continue
		}
		ref, err := b.typeRef(result, false)
		if err != nil {
			return "", fmt.Errorf("object %s.%s: %w", name, m.Name, err)
		}
		if err := o.add(wire, schema.NewField(wire, "", ref).SetAsync(mem.async), mem); err != nil {
			return "", err
		}
	}
	return name, nil
}

func (o *object) add(wire string, f *schema.Field, m *member) error {
	if _, dup := o.fields[wire]; dup {
		return fmt.Errorf("object %s: field %q declared twice", o.name, wire)
	}
	o.fields[wire] = m
	o.def.AddField(f)
	return nil
}

// methodMember accepts methods taking nothing or a context.Context and
// returning (T), (T, error) or an Awaitable. result is the Go type of the
// field value.
func methodMember(m reflect.Method) (*member, reflect.Type, bool) {
	ft := m.Type // receiver is In(0)
	mem := &member{method: m.Name}
	switch ft.NumIn() {
	case 1:
	case 2:
		if ft.In(1) != contextType {
			return nil, nil, false
		}
		mem.ctx = true
	default:
		return nil, nil, false
	}
	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errorType {
			return nil, nil, false
		}
		mem.err = true
	default:
		return nil, nil, false
	}
	result := ft.Out(0)
	if result == errorType {
		return nil, nil, false
	}
	if result.Implements(awaitableType) {
		vt, ok := awaitedType(result)
		if !ok {
			return nil, nil, false
		}
		mem.async = true
		result = vt
	}
	return mem, result, true
}

// awaitedType reads the value type of a *mutation.Future[T] result.
func awaitedType(t reflect.Type) (reflect.Type, bool) {
	vt, ok := reflect.Zero(t).Interface().(interface{ ValueType() reflect.Type })
	if !ok {
		return nil, false
	}
	return vt.ValueType(), true
}
