package entity

import (
	"maps"

	"github.com/hanpama/mutagraph/internal/expr"
	"github.com/hanpama/mutagraph/internal/mutation"
	"github.com/hanpama/mutagraph/internal/schema"
)

// Schema is a built schema together with the parameters mutations are
// bound against.
type Schema struct {
	def     *schema.Schema
	objects map[string]*object

	// Root stands for the root data context in mutation result expressions.
	Root *expr.Parameter
	// Variables stands for the document variables in argument expressions.
	Variables *expr.Parameter
	Mutations *mutation.Registry
}

// Definition returns the schema definition. The Mutation type reflects the
// registry as of Build; use Render for the current deprecation state.
func (s *Schema) Definition() *schema.Schema { return s.def }

// Context returns the mutation invocation context for root.
func (s *Schema) Context(root any, services mutation.ServiceLocator) mutation.Context {
	return mutation.Context{Root: root, Services: services, Variables: s.Variables, Schema: s.Root}
}

// Render prints the schema as SDL.
func (s *Schema) Render() string {
	if s.def.MutationType == "" {
		return schema.Render(s.def)
	}
	cp := *s.def
	cp.Types = maps.Clone(s.def.Types)
	cp.Types[MutationTypeName] = s.mutationType()
	return schema.Render(&cp)
}

func (s *Schema) mutationType() *schema.Type {
	t := schema.NewType(MutationTypeName, schema.TypeKindObject, "")
	for _, f := range s.Mutations.Fields() {
		t.AddField(f.SchemaField())
	}
	return t
}
