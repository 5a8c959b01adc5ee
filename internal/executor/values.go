package executor

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	language "github.com/hanpama/mutagraph/internal/language"
	schema "github.com/hanpama/mutagraph/internal/schema"
)

type variablesKey struct{}

func withVariables(ctx context.Context, vars map[string]any) context.Context {
	return context.WithValue(ctx, variablesKey{}, vars)
}

// VariablesFromContext returns the coerced variable values of the operation
// being executed. Runtimes binding raw arguments resolve variables with it.
func VariablesFromContext(ctx context.Context) map[string]any {
	vars, _ := ctx.Value(variablesKey{}).(map[string]any)
	return vars
}

// rawArgumentValues passes argument AST values through unresolved.
func rawArgumentValues(arguments language.ArgumentList) map[string]any {
	raw := make(map[string]any, len(arguments))
	for _, arg := range arguments {
		raw[arg.Name] = arg.Value
	}
	return raw
}

func coerceVariableValues(sch *schema.Schema, op *language.OperationDefinition, input map[string]any) (map[string]any, error) {
	coerced := make(map[string]any)
	for _, def := range op.VariableDefinitions {
		name, t := def.Variable, def.Type
		val, ok := input[name]
		if !ok {
			switch {
			case def.DefaultValue != nil:
				val = valueFromASTWithVars(def.DefaultValue, nil)
			case t.NonNull:
				return nil, fmt.Errorf("variable $%s of required type %s was not provided", name, t.String())
			default:
				continue
			}
		}
		if val == nil && t.NonNull {
			return nil, fmt.Errorf("variable $%s of type %s cannot be null", name, t.String())
		}
		cv, err := coerceValue(sch, val, typeRefFromAST(t))
		if err != nil {
			return nil, fmt.Errorf("variable $%s of type %s cannot be coerced: %v", name, t.String(), err)
		}
		coerced[name] = cv
	}
	return coerced, nil
}

// coerceArgumentValues coerces the arguments of one field node. Failures are
// recorded at path and leave the argument out.
func coerceArgumentValues(r *request, field *schema.Field, arguments language.ArgumentList, path Path) map[string]any {
	coerced := make(map[string]any)
	for _, def := range field.Arguments {
		arg := arguments.ForName(def.Name)
		if arg == nil {
			switch {
			case def.DefaultValue != nil:
				cv, err := coerceValue(r.schema, def.DefaultValue, def.Type)
				if err != nil {
					r.addError(fmt.Sprintf("default of argument '%s' cannot be coerced: %v", def.Name, err), path)
					continue
				}
				coerced[def.Name] = cv
			case schema.IsNonNull(def.Type):
				r.addError(fmt.Sprintf("argument '%s' of required type was not provided", def.Name), path)
			}
			continue
		}
		cv, err := coerceValue(r.schema, valueFromASTWithVars(arg.Value, r.variables), def.Type)
		if err != nil {
			r.addError(fmt.Sprintf("argument '%s' cannot be coerced: %v", def.Name, err), path)
			continue
		}
		coerced[def.Name] = cv
	}
	return coerced
}

// valueFromASTWithVars converts an AST value to a Go value, substituting
// variables at any depth.
func valueFromASTWithVars(value *language.Value, variables map[string]any) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.Variable:
		return variables[strings.TrimPrefix(value.Raw, "$")]
	case language.IntValue:
		iv, _ := strconv.Atoi(value.Raw)
		return iv
	case language.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case language.StringValue, language.BlockValue, language.EnumValue:
		return value.Raw
	case language.BooleanValue:
		return value.Raw == "true"
	case language.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = valueFromASTWithVars(c.Value, variables)
		}
		return out
	case language.ObjectValue:
		out := make(map[string]any, len(value.Children))
		for _, c := range value.Children {
			out[c.Name] = valueFromASTWithVars(c.Value, variables)
		}
		return out
	}
	return nil
}

func typeRefFromAST(t *language.Type) *schema.TypeRef {
	var ref *schema.TypeRef
	if t.Elem != nil {
		ref = schema.ListType(typeRefFromAST(t.Elem))
	} else {
		ref = schema.NamedType(t.NamedType)
	}
	if t.NonNull {
		return schema.NonNullType(ref)
	}
	return ref
}

// coerceValue coerces an input value to typ. Custom scalars pass through.
func coerceValue(sch *schema.Schema, value any, typ *schema.TypeRef) (any, error) {
	if schema.IsNonNull(typ) {
		if value == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type")
		}
		return coerceValue(sch, value, schema.Unwrap(typ))
	}
	if value == nil {
		return nil, nil
	}
	if schema.IsList(typ) {
		item := schema.Unwrap(typ)
		list, ok := value.([]any)
		if !ok {
			// a single value is a list of one
			list = []any{value}
		}
		out := make([]any, len(list))
		for i, v := range list {
			cv, err := coerceValue(sch, v, item)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	}

	name := schema.GetNamedType(typ)
	if v, ok, err := coerceBuiltinScalar(name, value); ok {
		return v, err
	}
	if sch != nil {
		if t := sch.Types[name]; t != nil {
			switch t.Kind {
			case schema.TypeKindInputObject:
				return coerceInputObject(sch, t, value)
			case schema.TypeKindEnum:
				return coerceEnum(t, value)
			}
		}
	}
	return value, nil
}

func coerceInputObject(sch *schema.Schema, t *schema.Type, value any) (any, error) {
	fields, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object for %s, got %T", t.Name, value)
	}
	out := make(map[string]any, len(fields))
	for _, f := range t.InputFields {
		v, ok := fields[f.Name]
		if !ok {
			if f.DefaultValue != nil {
				cv, err := coerceValue(sch, f.DefaultValue, f.Type)
				if err != nil {
					return nil, fmt.Errorf("default of field '%s' of %s cannot be coerced: %v", f.Name, t.Name, err)
				}
				out[f.Name] = cv
			} else if schema.IsNonNull(f.Type) {
				return nil, fmt.Errorf("required field '%s' of %s was not provided", f.Name, t.Name)
			}
			continue
		}
		cv, err := coerceValue(sch, v, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field '%s' of %s: %w", f.Name, t.Name, err)
		}
		out[f.Name] = cv
	}
	var unknown []string
	for name := range fields {
		if !slices.ContainsFunc(t.InputFields, func(f *schema.InputValue) bool { return f.Name == name }) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return nil, fmt.Errorf("unknown fields %s on %s", strings.Join(unknown, ", "), t.Name)
	}
	return out, nil
}

func coerceEnum(t *schema.Type, value any) (any, error) {
	if name, ok := value.(string); ok {
		if slices.ContainsFunc(t.EnumValues, func(v *schema.EnumValue) bool { return v.Name == name }) {
			return name, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to enum %s", value, value, t.Name)
}

// coerceBuiltinScalar coerces value when name is a built-in scalar; ok is
// false for any other type.
func coerceBuiltinScalar(name string, value any) (out any, ok bool, err error) {
	fail := func(kind string) (any, bool, error) {
		return nil, true, fmt.Errorf("cannot coerce %v (%T) to %s", value, value, kind)
	}
	switch name {
	case "Int":
		switch v := value.(type) {
		case int:
			return v, true, nil
		case int32:
			return int(v), true, nil
		case int64:
			return int(v), true, nil
		case float64:
			if v == math.Trunc(v) {
				return int(v), true, nil
			}
		case float32:
			if float64(v) == math.Trunc(float64(v)) {
				return int(v), true, nil
			}
		}
		return fail("int")
	case "Float":
		switch v := value.(type) {
		case float64:
			return v, true, nil
		case float32:
			return float64(v), true, nil
		case int:
			return float64(v), true, nil
		case int32:
			return float64(v), true, nil
		case int64:
			return float64(v), true, nil
		}
		return fail("float")
	case "Boolean":
		if v, ok := value.(bool); ok {
			return v, true, nil
		}
		return fail("boolean")
	case "String", "ID":
		switch v := value.(type) {
		case string:
			return v, true, nil
		case int:
			return strconv.Itoa(v), true, nil
		}
		return fmt.Sprint(value), true, nil
	}
	return nil, false, nil
}
