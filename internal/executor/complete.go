package executor

import (
	"fmt"
	"reflect"
	"slices"

	language "github.com/hanpama/mutagraph/internal/language"
	schema "github.com/hanpama/mutagraph/internal/schema"
)

// completeValue shapes a resolved value by its field type. A nil return with
// a non-null type means the violation is already recorded.
func (r *request) completeValue(typ *schema.TypeRef, fields []*language.Field, value any, path Path) any {
	if schema.IsNonNull(typ) {
		if isNullish(value) {
			if !r.hasErrorAt(path) {
				r.addError(fmt.Sprintf("Cannot return null for non-nullable field %s", pathToString(path)), path)
			}
			return nil
		}
		return r.completeValue(schema.Unwrap(typ), fields, value, path)
	}
	if isNullish(value) {
		return nil
	}
	if schema.IsList(typ) {
		return r.completeList(typ, fields, value, path)
	}

	name := schema.GetNamedType(typ)
	t := r.schema.Types[name]
	if t == nil {
		r.addError(fmt.Sprintf("Unknown type: %s", name), path)
		return nil
	}
	switch t.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		out, err := r.runtime.SerializeLeafValue(r.ctx, name, value)
		if err != nil {
			r.addError(err.Error(), path)
			return nil
		}
		return out
	case schema.TypeKindObject:
		return r.completeObject(t, fields, value, path)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		return r.completeAbstract(t, fields, value, path)
	}
	r.addError(fmt.Sprintf("Cannot complete value of unexpected type: %s", t.Kind), path)
	return nil
}

func (r *request) completeList(typ *schema.TypeRef, fields []*language.Field, value any, path Path) any {
	items, ok := value.([]any)
	if !ok {
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			r.addError(fmt.Sprintf("Expected list value, got %T", value), path)
			return nil
		}
		items = make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
	}

	item := schema.Unwrap(typ)
	out := make([]any, len(items))
	for i, v := range items {
		out[i] = r.completeValue(item, fields, v, appendPath(path, i))
		if schema.IsNonNull(item) && isNullish(out[i]) {
			return nil
		}
	}
	return out
}

func (r *request) completeObject(t *schema.Type, fields []*language.Field, value any, path Path) any {
	var selections language.SelectionSet
	for _, f := range fields {
		selections = append(selections, f.SelectionSet...)
	}
	// a nil map is nullish and must not leak out as a typed nil
	if out := r.executeSelectionSet(t, selections, value, path); out != nil {
		return out
	}
	return nil
}

func (r *request) completeAbstract(abstract *schema.Type, fields []*language.Field, value any, path Path) any {
	name, err := r.runtime.ResolveType(r.ctx, abstract.Name, value)
	if err != nil {
		r.addError(err.Error(), path)
		return nil
	}
	t := r.schema.Types[name]
	if t == nil || t.Kind != schema.TypeKindObject {
		r.addError(fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", abstract.Name, name), path)
		return nil
	}
	unwrap := r.runtime.ResolveInterfaceConcreteValue
	if abstract.Kind == schema.TypeKindUnion {
		unwrap = r.runtime.ResolveUnionConcreteValue
	}
	if value, err = unwrap(r.ctx, abstract.Name, value); err != nil {
		r.addError(err.Error(), path)
		return nil
	}
	return r.completeObject(t, fields, value, path)
}

func (r *request) hasErrorAt(path Path) bool {
	return slices.ContainsFunc(r.errors, func(e GraphQLError) bool {
		return slices.Equal(e.Path, path)
	})
}

// isNullish reports nil and typed nil values.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
