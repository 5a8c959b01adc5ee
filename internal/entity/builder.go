// Package entity exposes a Go root context and a mutation registry as a
// GraphQL schema and implements executor.Runtime over them.
//
// The root context struct becomes the Query type: its exported fields and
// its niladic (or context-only) methods are the query fields. Nested structs
// become object types named after their Go types. Mutations come from a
// mutation.Registry built with the Builder as its TypeMapper, so argument
// structs become input objects as they are registered.
package entity

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/hanpama/mutagraph/internal/expr"
	"github.com/hanpama/mutagraph/internal/mutation"
	"github.com/hanpama/mutagraph/internal/schema"
	"github.com/shopspring/decimal"
)

const (
	QueryTypeName    = "Query"
	MutationTypeName = "Mutation"
)

// Enum is implemented by Go types exposed as GraphQL enums. Enum types
// should implement encoding.TextMarshaler and encoding.TextUnmarshaler
// unless their underlying type is string.
type Enum interface {
	EnumValues() []string
}

var (
	enumType      = reflect.TypeFor[Enum]()
	contextType   = reflect.TypeFor[context.Context]()
	errorType     = reflect.TypeFor[error]()
	awaitableType = reflect.TypeFor[mutation.Awaitable]()
)

// methods that never become fields
var reservedMethods = map[string]bool{
	"String": true, "Error": true, "EnumValues": true,
	"MarshalText": true, "UnmarshalText": true, "MarshalJSON": true, "UnmarshalJSON": true,
}

// Builder maps Go types onto a schema.
type Builder struct {
	naming mutation.NamingFunc
	root   reflect.Type

	def     *schema.Schema
	scalars map[reflect.Type]string
	outputs map[reflect.Type]*object // keyed by struct type
	inputs  map[reflect.Type]string  // keyed by struct type
	enums   map[reflect.Type]string
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithNaming sets the naming convention; it must match the registry's.
func WithNaming(n mutation.NamingFunc) BuilderOption { return func(b *Builder) { b.naming = n } }

// NewBuilder returns a builder whose Query type is rootType, a struct or a
// pointer to struct. time.Time (DateTime), decimal.Decimal (decimal) and
// uuid.UUID (ID) are mapped by default.
func NewBuilder(rootType reflect.Type, opts ...BuilderOption) *Builder {
	b := &Builder{
		naming:  mutation.LowerCamel,
		root:    rootType,
		def:     schema.NewSchema(""),
		scalars: map[reflect.Type]string{},
		outputs: map[reflect.Type]*object{},
		inputs:  map[reflect.Type]string{},
		enums:   map[reflect.Type]string{},
	}
	for _, o := range opts {
		o(b)
	}
	b.AddScalarType(reflect.TypeFor[time.Time](), "DateTime", "An RFC 3339 date and time.")
	b.AddScalarType(reflect.TypeFor[decimal.Decimal](), "decimal", "An arbitrary precision decimal number.")
	b.AddScalarType(reflect.TypeFor[uuid.UUID](), "ID", "")
	return b
}

// AddScalarType maps t to the scalar name. Built-in scalar names are reused
// without redefinition.
func (b *Builder) AddScalarType(t reflect.Type, name, description string) *Builder {
	b.scalars[t] = name
	if _, exists := b.def.Types[name]; !exists {
		b.def.AddType(schema.NewType(name, schema.TypeKindScalar, description))
	}
	return b
}

// Naming returns the builder's naming convention.
func (b *Builder) Naming() mutation.NamingFunc { return b.naming }

// InputType implements mutation.TypeMapper.
func (b *Builder) InputType(t reflect.Type) (*schema.TypeRef, error) {
	return b.typeRef(t, true)
}

// OutputType implements mutation.TypeMapper.
func (b *Builder) OutputType(t reflect.Type) (*schema.TypeRef, error) {
	return b.typeRef(t, false)
}

func (b *Builder) typeRef(t reflect.Type, input bool) (*schema.TypeRef, error) {
	if name, ok := b.scalars[t]; ok {
		return schema.NonNullType(schema.NamedType(name)), nil
	}
	if t.Kind() != reflect.Pointer && t.Implements(enumType) {
		return schema.NonNullType(schema.NamedType(b.enum(t))), nil
	}
	switch t.Kind() {
	case reflect.Pointer:
		inner, err := b.typeRef(t.Elem(), input)
		if err != nil {
			return nil, err
		}
		return nullable(inner), nil
	case reflect.Slice, reflect.Array:
		inner, err := b.typeRef(t.Elem(), input)
		if err != nil {
			return nil, err
		}
		return schema.NonNullType(schema.ListType(inner)), nil
	case reflect.Interface:
		if !input && t.Implements(awaitableType) {
			return nil, fmt.Errorf("awaitable %s is only supported as a method result", t)
		}
	case reflect.Struct:
		var name string
		var err error
		if input {
			name, err = b.inputObject(t)
		} else {
			name, err = b.outputObject(t)
		}
		if err != nil {
			return nil, err
		}
		return schema.NonNullType(schema.NamedType(name)), nil
	}
	name, err := mutation.BasicTypeName(t)
	if err != nil {
		return nil, err
	}
	return schema.NonNullType(schema.NamedType(name)), nil
}

func (b *Builder) enum(t reflect.Type) string {
	if name, ok := b.enums[t]; ok {
		return name
	}
	name := t.Name()
	et := schema.NewType(name, schema.TypeKindEnum, "")
	for _, v := range reflect.Zero(t).Interface().(Enum).EnumValues() {
		et.AddEnumValue(schema.NewEnumValue(v, ""))
	}
	b.enums[t] = name
	b.def.AddType(et)
	return name
}

// freeName returns name, or name+"Input" when the name is taken by another
// kind of type.
func (b *Builder) freeName(name string, kind schema.TypeKind) string {
	if existing, ok := b.def.Types[name]; ok && existing.Kind != kind {
		return name + "Input"
	}
	return name
}

func (b *Builder) inputObject(t reflect.Type) (string, error) {
	if name, ok := b.inputs[t]; ok {
		return name, nil
	}
	if t.Name() == "" {
		return "", fmt.Errorf("anonymous struct %s cannot be an input type", t)
	}
	name := b.freeName(t.Name(), schema.TypeKindInputObject)
	it := schema.NewType(name, schema.TypeKindInputObject, "")
	b.inputs[t] = name
	b.def.AddType(it)
	for _, sf := range reflect.VisibleFields(t) {
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			continue
		}
		wire, required, ok := mutation.Member(sf, b.naming)
		if !ok {
			continue
		}
		ref, err := b.typeRef(sf.Type, true)
		if err != nil {
			return "", fmt.Errorf("input %s.%s: %w", name, sf.Name, err)
		}
		ref = nullable(ref)
		if required {
			ref = schema.NonNullType(ref)
		}
		it.AddInputField(schema.NewInputValue(wire, "", ref))
	}
	return name, nil
}

func nullable(ref *schema.TypeRef) *schema.TypeRef {
	if ref.IsNonNull() {
		return ref.OfType
	}
	return ref
}

// Build completes the schema with the Query type and, when reg has fields,
// the Mutation type.
func (b *Builder) Build(reg *mutation.Registry) (*Schema, error) {
	rootStruct := b.root
	if rootStruct.Kind() == reflect.Pointer {
		rootStruct = rootStruct.Elem()
	}
	if rootStruct.Kind() != reflect.Struct {
		return nil, fmt.Errorf("root context must be a struct, got %s", b.root)
	}
	if _, err := b.outputObject(rootStruct); err != nil {
		return nil, err
	}
	b.def.SetQueryType(QueryTypeName)
	s := &Schema{
		def:       b.def,
		objects:   map[string]*object{},
		Root:      expr.NewParameter("ctx", b.root),
		Variables: mutation.VariablesParameter(),
		Mutations: reg,
	}
	for _, o := range b.outputs {
		s.objects[o.name] = o
	}
	if reg != nil && len(reg.Fields()) > 0 {
		b.def.AddType(s.mutationType())
		b.def.SetMutationType(MutationTypeName)
	}
	return s, nil
}
