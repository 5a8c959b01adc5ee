package executor

import (
	"slices"

	language "github.com/hanpama/mutagraph/internal/language"
	schema "github.com/hanpama/mutagraph/internal/schema"
)

// collectedField groups every field node sharing one response name.
type collectedField struct {
	ResponseName string
	Fields       []*language.Field
}

// collectedFields keeps response names in first-seen order.
type collectedFields struct {
	fields []collectedField
	index  map[string]int
}

func (c *collectedFields) add(field *language.Field) {
	name := field.Alias
	if name == "" {
		name = field.Name
	}
	if i, ok := c.index[name]; ok {
		c.fields[i].Fields = append(c.fields[i].Fields, field)
		return
	}
	c.index[name] = len(c.fields)
	c.fields = append(c.fields, collectedField{ResponseName: name, Fields: []*language.Field{field}})
}

func (c *collectedFields) orderedFields() []collectedField { return c.fields }

// collectFields flattens fragments and applies @skip/@include for the
// selection set of an object of type objectType.
func collectFields(r *request, objectType *schema.Type, selectionSet language.SelectionSet) *collectedFields {
	c := &collectedFields{index: make(map[string]int)}
	r.collect(c, objectType, selectionSet, make(map[string]bool))
	return c
}

func (r *request) collect(c *collectedFields, objectType *schema.Type, selectionSet language.SelectionSet, visited map[string]bool) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if r.included(sel.Directives) {
				c.add(sel)
			}
		case *language.InlineFragment:
			if r.included(sel.Directives) && r.applies(objectType, sel.TypeCondition) {
				r.collect(c, objectType, sel.SelectionSet, visited)
			}
		case *language.FragmentSpread:
			if visited[sel.Name] || !r.included(sel.Directives) {
				continue
			}
			visited[sel.Name] = true
			def := r.document.Fragments.ForName(sel.Name)
			if def == nil || !r.applies(objectType, def.TypeCondition) || !r.included(def.Directives) {
				continue
			}
			r.collect(c, objectType, def.SelectionSet, visited)
		}
	}
}

// applies reports whether a fragment on typeCondition selects fields of
// objectType: the same type, an interface it implements or a union it
// belongs to.
func (r *request) applies(objectType *schema.Type, typeCondition string) bool {
	if typeCondition == "" || typeCondition == objectType.Name {
		return true
	}
	if slices.Contains(objectType.Interfaces, typeCondition) {
		return true
	}
	if t := r.schema.Types[typeCondition]; t != nil && t.Kind == schema.TypeKindUnion {
		return slices.Contains(t.PossibleTypes, objectType.Name)
	}
	return false
}

func (r *request) included(directives language.DirectiveList) bool {
	if skip, ok := r.condition(directives.ForName("skip")); ok && skip {
		return false
	}
	if include, ok := r.condition(directives.ForName("include")); ok && !include {
		return false
	}
	return true
}

// condition evaluates the boolean "if" argument of a @skip or @include.
func (r *request) condition(d *language.Directive) (value, ok bool) {
	if d == nil {
		return false, false
	}
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false, false
	}
	value, ok = valueFromASTWithVars(arg.Value, r.variables).(bool)
	return value, ok
}
