package mutation

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/hanpama/mutagraph/internal/expr"
	"github.com/hanpama/mutagraph/internal/schema"
)

// Argument describes one member of the bundled arguments struct.
type Argument struct {
	Name        string // wire name
	Member      string // Go field name
	Index       []int
	Type        reflect.Type
	TypeRef     *schema.TypeRef
	Description string
	Required    bool
	AllowEmpty  bool
	Message     string
	Default     any
	HasDefault  bool
}

// Field describes a registered mutation. All fields except deprecation state
// are fixed at registration.
type Field struct {
	Name          string
	Description   string
	Arguments     []*Argument
	ArgumentsType reflect.Type // struct type embedding Args, nil when absent
	ReturnType    *schema.TypeRef
	ResultType    reflect.Type // Go type of the awaited value
	Async         bool
	Roles         []string

	fn        reflect.Value
	params    []reflect.Type
	argsParam int // index into params, -1 when absent
	shape     resultShape
	naming    NamingFunc

	mu                sync.RWMutex
	deprecated        bool
	deprecationReason string
}

type resultShape int

const (
	shapeNone       resultShape = iota // ()
	shapeError                         // (error)
	shapeValue                         // (T)
	shapeValueError                    // (T, error)
)

// FieldOption configures a Field at registration.
type FieldOption func(*fieldConfig)

type fieldConfig struct {
	description string
	roles       []string
	returnType  reflect.Type
	deprecation *string
}

// WithDescription sets the field description rendered in SDL.
func WithDescription(d string) FieldOption { return func(c *fieldConfig) { c.description = d } }

// WithRoles records the roles required to invoke the mutation.
func WithRoles(roles ...string) FieldOption {
	return func(c *fieldConfig) { c.roles = append(c.roles, roles...) }
}

// WithReturnType sets the Go type used for the GraphQL return type. It is
// required when the function returns an expr.Expr or an Awaitable that does
// not report its value type.
func WithReturnType(t reflect.Type) FieldOption { return func(c *fieldConfig) { c.returnType = t } }

// WithDeprecation registers the field as deprecated.
func WithDeprecation(reason string) FieldOption {
	return func(c *fieldConfig) { c.deprecation = &reason }
}

var (
	errorType     = reflect.TypeFor[error]()
	contextType   = reflect.TypeFor[context.Context]()
	validatorType = reflect.TypeFor[*Validator]()
	awaitableType = reflect.TypeFor[Awaitable]()
	exprType      = reflect.TypeFor[expr.Expr]()
	boolType      = reflect.TypeFor[bool]()
)

// valueTyped is implemented by awaitables that know their result type, such
// as *Future[T]. It must work on a nil receiver.
type valueTyped interface{ ValueType() reflect.Type }

// newField derives a Field from fn, a function or bound method value.
func newField(name string, fn reflect.Value, naming NamingFunc, mapper TypeMapper, opts ...FieldOption) (*Field, error) {
	if fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, fmt.Errorf("mutation %s: %s is not a function", name, fn.Type())
	}
	cfg := fieldConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	ft := fn.Type()
	if ft.IsVariadic() {
		return nil, fmt.Errorf("mutation %s: variadic functions are not supported", name)
	}
	f := &Field{
		Name:        name,
		Description: cfg.description,
		Roles:       cfg.roles,
		fn:          fn,
		argsParam:   -1,
		naming:      naming,
	}
	for i := 0; i < ft.NumIn(); i++ {
		pt := ft.In(i)
		f.params = append(f.params, pt)
		if !isArgumentsType(pt) {
			continue
		}
		if f.argsParam >= 0 {
			return nil, fmt.Errorf("mutation %s: more than one arguments parameter", name)
		}
		f.argsParam = i
		f.ArgumentsType = pt
		if pt.Kind() == reflect.Pointer {
			f.ArgumentsType = pt.Elem()
		}
	}
	if f.ArgumentsType != nil {
		args, err := describeArguments(f.ArgumentsType, naming, mapper)
		if err != nil {
			return nil, fmt.Errorf("mutation %s: %w", name, err)
		}
		f.Arguments = args
	}

	if err := f.classifyResults(ft, cfg.returnType); err != nil {
		return nil, fmt.Errorf("mutation %s: %w", name, err)
	}
	ref, err := mapper.OutputType(f.ResultType)
	if err != nil {
		return nil, fmt.Errorf("mutation %s: return type: %w", name, err)
	}
	f.ReturnType = ref
	if cfg.deprecation != nil {
		f.Deprecate(*cfg.deprecation)
	}
	return f, nil
}

func (f *Field) classifyResults(ft reflect.Type, override reflect.Type) error {
	switch {
	case ft.NumOut() == 0:
		f.shape = shapeNone
	case ft.NumOut() == 1 && ft.Out(0) == errorType:
		f.shape = shapeError
	case ft.NumOut() == 1:
		f.shape = shapeValue
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
		f.shape = shapeValueError
	default:
		return fmt.Errorf("results must be (), (T), (error) or (T, error)")
	}
	if f.shape == shapeNone || f.shape == shapeError {
		f.ResultType = boolType
		return nil
	}
	out := ft.Out(0)
	f.ResultType = out
	if out.Implements(awaitableType) {
		f.Async = true
		f.ResultType = nil
		if vt, ok := reflect.Zero(out).Interface().(valueTyped); ok && out.Kind() == reflect.Pointer {
			f.ResultType = vt.ValueType()
		}
	}
	if override != nil {
		f.ResultType = override
	}
	if f.ResultType == nil || f.ResultType.Implements(exprType) || f.ResultType == exprType {
		return fmt.Errorf("return type of %s cannot be inferred; use WithReturnType", out)
	}
	return nil
}

func describeArguments(t reflect.Type, naming NamingFunc, mapper TypeMapper) ([]*Argument, error) {
	var args []*Argument
	seen := map[string]string{}
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || sf.Type == reflect.TypeFor[Args]() {
			continue
		}
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			// promoted members are visited on their own
			continue
		}
		tags := parseTags(sf.Tag)
		if tags.ignore {
			continue
		}
		arg := &Argument{
			Name:        tags.name,
			Member:      sf.Name,
			Index:       sf.Index,
			Type:        sf.Type,
			Description: tags.desc,
			Required:    tags.required,
			AllowEmpty:  tags.allowEmpty,
			Message:     tags.message,
		}
		if arg.Name == "" {
			arg.Name = naming(sf.Name)
		}
		if prev, dup := seen[arg.Name]; dup {
			return nil, fmt.Errorf("argument %q declared by both %s and %s", arg.Name, prev, sf.Name)
		}
		seen[arg.Name] = sf.Name
		if tags.hasDefault {
			v := reflect.New(sf.Type)
			if err := decode(tags.defaultRaw, v.Interface(), naming); err != nil {
				return nil, fmt.Errorf("argument %s: default %q: %w", arg.Name, tags.defaultRaw, err)
			}
			arg.Default = v.Elem().Interface()
			arg.HasDefault = true
		}
		ref, err := mapper.InputType(sf.Type)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", arg.Name, err)
		}
		arg.TypeRef = argumentRef(ref, arg.Required)
		args = append(args, arg)
	}
	return args, nil
}

// argumentRef makes the outermost wrapper non-null exactly when the
// argument is required.
func argumentRef(ref *schema.TypeRef, required bool) *schema.TypeRef {
	if ref.IsNonNull() {
		ref = ref.OfType
	}
	if required {
		return schema.NonNullType(ref)
	}
	return ref
}

// Signature renders the field as `name(arg: Type, ...): ReturnType`.
func (f *Field) Signature() string {
	return schema.FieldSignature(f.SchemaField())
}

// SchemaField returns the schema definition of the field.
func (f *Field) SchemaField() *schema.Field {
	sf := schema.NewField(f.Name, f.Description, f.ReturnType).
		SetAsync(true).
		SetRawArguments(true)
	for _, a := range f.Arguments {
		in := schema.NewInputValue(a.Name, a.Description, a.TypeRef)
		if a.HasDefault {
			in.SetDefault(a.Default)
		}
		sf.AddArgument(in)
	}
	if deprecated, reason := f.Deprecation(); deprecated {
		sf.Deprecate(reason)
	}
	return sf
}

// Deprecate marks the field deprecated. It has no effect on invocation.
func (f *Field) Deprecate(reason string) {
	f.mu.Lock()
	f.deprecated = true
	f.deprecationReason = reason
	f.mu.Unlock()
}

// Deprecation reports whether the field is deprecated and why.
func (f *Field) Deprecation() (bool, string) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.deprecated, f.deprecationReason
}

// decode copies input into out using the binder's decoding rules.
func decode(input any, out any, naming NamingFunc) error {
	dec, err := mapstructure.NewDecoder(decoderConfig(out, naming))
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
