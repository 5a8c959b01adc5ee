package language

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// ParseQuery parses an executable document without validating it.
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseValue parses a single GraphQL input value literal such as `3`,
// `"Frank"` or `{name: "x"}`. Variables are allowed.
func ParseValue(source string) (*Value, error) {
	doc, err := ParseQuery("{ f(v: " + source + ") }")
	if err != nil {
		return nil, err
	}
	field := doc.Operations[0].SelectionSet[0].(*Field)
	return field.Arguments[0].Value, nil
}
