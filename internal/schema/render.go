package schema

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Render prints s as SDL. Types, then directives, appear sorted by name;
// built-in scalars and directives are left out.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	p := &printer{}
	for _, name := range slices.Sorted(maps.Keys(s.Types)) {
		if t := s.Types[name]; !isBuiltinType(t) {
			p.typ(t)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(s.Directives)) {
		if d := s.Directives[name]; d != includeDirective && d != skipDirective {
			p.directive(d)
		}
	}
	return strings.TrimRight(p.String(), "\n") + "\n"
}

func isBuiltinType(t *Type) bool {
	return t == stringType || t == intType || t == floatType || t == booleanType || t == idType
}

type printer struct{ strings.Builder }

// description prints a string description, indented for members.
func (p *printer) description(indent, desc string) {
	if desc == "" {
		return
	}
	if !strings.Contains(desc, "\n") {
		p.WriteString(indent + strconv.Quote(desc) + "\n")
		return
	}
	p.WriteString(indent + `"""` + "\n")
	for _, line := range strings.Split(strings.ReplaceAll(desc, `"""`, `\"""`), "\n") {
		p.WriteString(indent + line + "\n")
	}
	p.WriteString(indent + `"""` + "\n")
}

func (p *printer) deprecated(is bool, reason string) {
	if !is {
		return
	}
	p.WriteString(" @deprecated")
	if reason != "" {
		p.WriteString("(reason: " + strconv.Quote(reason) + ")")
	}
}

func (p *printer) typ(t *Type) {
	p.description("", t.Description)
	switch t.Kind {
	case TypeKindScalar:
		p.WriteString("scalar " + t.Name)
		if t.SpecifiedByURL != nil {
			p.WriteString(" @specifiedBy(url: " + strconv.Quote(*t.SpecifiedByURL) + ")")
		}
		p.WriteString("\n\n")
	case TypeKindUnion:
		p.WriteString("union " + t.Name + " = " + strings.Join(t.PossibleTypes, " | ") + "\n\n")
	case TypeKindEnum:
		p.WriteString("enum " + t.Name + " {\n")
		for _, v := range t.EnumValues {
			p.description("  ", v.Description)
			p.WriteString("  " + v.Name)
			p.deprecated(v.IsDeprecated, v.DeprecationReason)
			p.WriteString("\n")
		}
		p.WriteString("}\n\n")
	case TypeKindInputObject:
		p.WriteString("input " + t.Name)
		if t.OneOf {
			p.WriteString(" @oneOf")
		}
		p.WriteString(" {\n")
		for _, f := range t.InputFields {
			p.description("  ", f.Description)
			p.WriteString("  " + inputValue(f))
			p.deprecated(f.IsDeprecated, f.DeprecationReason)
			p.WriteString("\n")
		}
		p.WriteString("}\n\n")
	case TypeKindObject, TypeKindInterface:
		keyword := "type "
		if t.Kind == TypeKindInterface {
			keyword = "interface "
		}
		p.WriteString(keyword + t.Name)
		if len(t.Interfaces) > 0 {
			p.WriteString(" implements " + strings.Join(t.Interfaces, " & "))
		}
		p.WriteString(" {\n")
		for _, f := range t.Fields {
			p.description("  ", f.Description)
			p.WriteString("  " + FieldSignature(f))
			p.deprecated(f.IsDeprecated, f.DeprecationReason)
			p.WriteString("\n")
		}
		p.WriteString("}\n\n")
	}
}

func (p *printer) directive(d *Directive) {
	p.description("", d.Description)
	p.WriteString("directive @" + d.Name + arguments(d.Arguments))
	if d.IsRepeatable {
		p.WriteString(" repeatable")
	}
	p.WriteString(" on " + strings.Join(d.Locations, " | ") + "\n\n")
}

// FieldSignature renders a field definition without description or
// directives, e.g. `addPerson(name: String!, age: Int!): Person!`.
func FieldSignature(field *Field) string {
	return field.Name + arguments(field.Arguments) + ": " + field.Type.String()
}

func arguments(args []*InputValue) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = inputValue(a)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func inputValue(v *InputValue) string {
	s := v.Name + ": " + v.Type.String()
	if v.DefaultValue != nil {
		s += " = " + renderValue(v.DefaultValue)
	}
	return s
}

// String renders the reference in SDL notation.
func (t *TypeRef) String() string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case TypeRefKindNamed:
		return t.Named
	case TypeRefKindList:
		return "[" + t.OfType.String() + "]"
	case TypeRefKindNonNull:
		return t.OfType.String() + "!"
	}
	return ""
}

// renderValue prints a Go value as a GraphQL literal. Unknown types print
// unquoted, which covers enum values.
func renderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = renderValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		var parts []string
		for _, k := range slices.Sorted(maps.Keys(v)) {
			parts = append(parts, k+": "+renderValue(v[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(value)
}
