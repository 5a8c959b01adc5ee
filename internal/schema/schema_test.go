package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const peopleSDL = `
type Query {
  person(id: Int!): Person
}

type Mutation {
  addPerson(name: String!, age: Int! = 3): Person!
  old: Boolean @deprecated(reason: "gone")
}

type Person {
  name: String!
  age: Int!
}

input NestedInputObject {
  name: String!
}

enum Color {
  RED
  GREEN
}
`

func TestBuildFromSDLRender(t *testing.T) {
	s, err := BuildFromSDL(peopleSDL)
	require.NoError(t, err)
	require.Equal(t, "Query", s.QueryType)
	require.Equal(t, "Mutation", s.MutationType)
	require.Empty(t, s.SubscriptionType)

	want := `enum Color {
  RED
  GREEN
}

type Mutation {
  addPerson(name: String!, age: Int! = 3): Person!
  old: Boolean @deprecated(reason: "gone")
}

input NestedInputObject {
  name: String!
}

type Person {
  name: String!
  age: Int!
}

type Query {
  person(id: Int!): Person
}
`
	if diff := cmp.Diff(want, Render(s)); diff != "" {
		t.Errorf("rendered schema mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildFromSDLInvalid(t *testing.T) {
	_, err := BuildFromSDL(`type Query { p: Missing }`)
	require.Error(t, err)
}

func TestBuilders(t *testing.T) {
	nested := NewType("NestedInputObject", TypeKindInputObject, "").
		AddInputField(NewInputValue("name", "", NonNullType(NamedType("String"))))
	mutation := NewType("Mutation", TypeKindObject, "").
		AddField(NewField("addPersonNullableNestedType", "", NonNullType(NamedType("Person"))).
			AddArgument(NewInputValue("required", "", NonNullType(NamedType("NestedInputObject")))).
			AddArgument(NewInputValue("optional", "", NamedType("NestedInputObject"))).
			SetAsync(true))
	s := NewSchema("").
		SetMutationType("Mutation").
		AddType(nested).
		AddType(mutation)

	require.Same(t, mutation, s.GetMutationType())
	require.Nil(t, s.GetQueryType())
	require.Contains(t, s.Types, "String")
	require.Contains(t, s.Directives, "skip")

	f := s.GetMutationType().Field("addPersonNullableNestedType")
	require.NotNil(t, f)
	require.True(t, f.Async)
	require.Equal(t,
		"addPersonNullableNestedType(required: NestedInputObject!, optional: NestedInputObject): Person!",
		FieldSignature(f))
	require.Nil(t, mutation.Field("missing"))
}

func TestTypeRefString(t *testing.T) {
	cases := map[string]*TypeRef{
		"Int":       NamedType("Int"),
		"Int!":      NonNullType(NamedType("Int")),
		"[Person!]": ListType(NonNullType(NamedType("Person"))),
		"[[Int]]!":  NonNullType(ListType(ListType(NamedType("Int")))),
	}
	for want, ref := range cases {
		require.Equal(t, want, ref.String())
	}
}

func TestRenderValueObjectKeysSorted(t *testing.T) {
	got := renderValue(map[string]any{"b": int64(2), "a": "x"})
	require.Equal(t, `{a: "x", b: 2}`, got)
}

func TestRenderDescriptionsAndAbstractTypes(t *testing.T) {
	s, err := BuildFromSDL(`
"Something with an id."
interface Node { id: ID! }

"""
A person.
Second line.
"""
type Person implements Node {
  "Primary key."
  id: ID!
}

union Actor = Person

type Query { actor: Actor }
`)
	require.NoError(t, err)

	want := `union Actor = Person

"Something with an id."
interface Node {
  id: ID!
}

"""
A person.
Second line.
"""
type Person implements Node {
  "Primary key."
  id: ID!
}

type Query {
  actor: Actor
}
`
	if diff := cmp.Diff(want, Render(s)); diff != "" {
		t.Errorf("rendered schema mismatch (-want +got):\n%s", diff)
	}
}
