package mutation

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/hanpama/mutagraph/internal/expr"
	"github.com/hanpama/mutagraph/internal/language"
	"github.com/shopspring/decimal"
)

// Bind materializes the bundled arguments of f from request values and
// document variables. The returned value has f.ArgumentsType. Request values
// may be plain Go values, *language.Value literals, Variable references or
// expr.Expr nodes evaluated with ic.Variables bound to variables.
//
// Members whose request value is absent take their default, or stay zero.
// A required argument without a default fails binding when its variable
// cannot be resolved, or when it is absent and its Go type has no nil or
// empty state for the Validator to report.
func (f *Field) Bind(request map[string]any, variables map[string]any, ic Context) (reflect.Value, error) {
	if f.ArgumentsType == nil {
		return reflect.Value{}, nil
	}
	inst := reflect.New(f.ArgumentsType).Elem()
	for _, arg := range f.Arguments {
		raw, present := request[arg.Name]
		val, resolved, err := resolveValue(raw, variables, ic)
		if err != nil {
			return reflect.Value{}, &BindingError{Mutation: f.Name, Argument: arg.Name, Cause: err}
		}
		if !present || !resolved {
			if arg.HasDefault {
				inst.FieldByIndex(arg.Index).Set(reflect.ValueOf(arg.Default))
				continue
			}
			if present && arg.Required {
				return reflect.Value{}, &BindingError{
					Mutation: f.Name,
					Argument: arg.Name,
					Cause:    fmt.Errorf("%w %s", ErrUnresolvedVariable, variableName(raw)),
				}
			}
			if !present && arg.Required && !emptiable(arg.Type) {
				return reflect.Value{}, &BindingError{Mutation: f.Name, Argument: arg.Name, Cause: ErrMissingArgument}
			}
			continue
		}
		if val == nil {
			continue
		}
		member := inst.FieldByIndex(arg.Index)
		if err := decode(val, member.Addr().Interface(), f.naming); err != nil {
			return reflect.Value{}, &BindingError{Mutation: f.Name, Argument: arg.Name, Cause: err}
		}
	}
	return inst, nil
}

// emptiable reports whether the Validator can tell an unset member of type t
// from a set one.
func emptiable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.String:
		return true
	}
	return false
}

// resolveValue reduces a request value to a plain Go value. resolved is
// false for a variable reference missing from variables.
func resolveValue(raw any, variables map[string]any, ic Context) (val any, resolved bool, err error) {
	switch v := raw.(type) {
	case Variable:
		val, ok := variables[string(v)]
		return val, ok, nil
	case *language.Value:
		if v == nil {
			return nil, true, nil
		}
		if v.Kind == language.Variable {
			val, ok := variables[v.Raw]
			return val, ok, nil
		}
		val, err := v.Value(variables)
		return val, true, err
	case expr.Expr:
		env := expr.Env{}
		if ic.Variables != nil {
			env[ic.Variables] = variables
		}
		val, err := expr.Eval(v, env)
		return val, true, err
	}
	return raw, true, nil
}

func variableName(raw any) string {
	switch v := raw.(type) {
	case Variable:
		return "$" + string(v)
	case *language.Value:
		return "$" + v.Raw
	}
	return fmt.Sprint(raw)
}

func decoderConfig(out any, naming NamingFunc) *mapstructure.DecoderConfig {
	return &mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "graphql",
		MatchName: func(key, member string) bool {
			return key == member || key == naming(member) || strings.EqualFold(key, member)
		},
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			decimalHook,
			mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05Z07:00"),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	}
}

// decimalHook builds decimal.Decimal values from strings and numbers.
func decimalHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return decimal.NewFromString(v)
	case json.Number:
		return decimal.NewFromString(v.String())
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	}
	return data, nil
}
