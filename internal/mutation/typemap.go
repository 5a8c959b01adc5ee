package mutation

import (
	"encoding"
	"fmt"
	"reflect"
	"time"

	"github.com/hanpama/mutagraph/internal/schema"
	"github.com/shopspring/decimal"
)

// TypeMapper maps Go types to GraphQL type references. InputType is used for
// argument members, OutputType for return values. Value types map to
// non-null references; pointers, slices and maps to nullable ones.
type TypeMapper interface {
	InputType(t reflect.Type) (*schema.TypeRef, error)
	OutputType(t reflect.Type) (*schema.TypeRef, error)
}

// BasicTypes maps Go kinds to the built-in scalars, time.Time to DateTime,
// decimal.Decimal to decimal and any other named type to a reference by its
// Go type name. It registers nothing; schema builders wrap it.
type BasicTypes struct{}

var (
	timeType            = reflect.TypeFor[time.Time]()
	decimalType         = reflect.TypeFor[decimal.Decimal]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

func (BasicTypes) InputType(t reflect.Type) (*schema.TypeRef, error)  { return basicRef(t) }
func (BasicTypes) OutputType(t reflect.Type) (*schema.TypeRef, error) { return basicRef(t) }

func basicRef(t reflect.Type) (*schema.TypeRef, error) {
	switch t.Kind() {
	case reflect.Pointer:
		inner, err := basicRef(t.Elem())
		if err != nil {
			return nil, err
		}
		return nullable(inner), nil
	case reflect.Slice, reflect.Array:
		inner, err := basicRef(t.Elem())
		if err != nil {
			return nil, err
		}
		return schema.ListType(inner), nil
	}
	name, err := BasicTypeName(t)
	if err != nil {
		return nil, err
	}
	return schema.NonNullType(schema.NamedType(name)), nil
}

// BasicTypeName names scalars and named types without registering them.
func BasicTypeName(t reflect.Type) (string, error) {
	switch t {
	case timeType:
		return "DateTime", nil
	case decimalType:
		return "decimal", nil
	}
	if t.Name() != "" && (t.Kind() == reflect.Struct || reflect.PointerTo(t).Implements(textUnmarshalerType)) {
		return t.Name(), nil
	}
	switch t.Kind() {
	case reflect.Bool:
		return "Boolean", nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return "Int", nil
	case reflect.Float32, reflect.Float64:
		return "Float", nil
	case reflect.String:
		return "String", nil
	}
	return "", fmt.Errorf("no GraphQL type for %s", t)
}

func nullable(ref *schema.TypeRef) *schema.TypeRef {
	if ref.IsNonNull() {
		return ref.OfType
	}
	return ref
}
