package executor

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	language "github.com/hanpama/mutagraph/internal/language"
)

const mutationSDL = `
type Person { name: String best: Person }
input PersonInput { name: String! gender: Gender age: Int = 30 }
enum Gender { Female Male }
type Query { find(who: PersonInput, limit: Int = 5): String }
type Mutation {
	addPerson(name: String!, age: Int): Person
	rename(name: String!): String
	removePerson: String
}
`

func TestMutationFieldsRunInDocumentOrder(t *testing.T) {
	execCase{
		sdl: mutationSDL,
		resolvers: map[string]MockResolver{
			"Mutation.addPerson":    NewMockValueResolver(map[string]any{}),
			"Mutation.rename":       NewMockErrorResolver(boom),
			"Mutation.removePerson": NewMockValueResolver("gone"),
		},
		query: "mutation { removePerson rename(name: \"Ada\") addPerson(name: \"Ada\") { __typename } }",
		want: &ExecutionResult{
			Data:   map[string]any{"removePerson": "gone", "rename": nil, "addPerson": map[string]any{"__typename": "Person"}},
			Errors: []GraphQLError{{Message: "boom", Path: Path{"rename"}}},
		},
		wantCalls: []Call{
			syncCall("Mutation", "removePerson", nil),
			{Kind: CallKindSync, ObjectType: "Mutation", Field: "rename", Args: map[string]any{"name": "Ada"}},
			{Kind: CallKindSync, ObjectType: "Mutation", Field: "addPerson", Args: map[string]any{"name": "Ada"}},
		},
	}.run(t)
}

// Each async mutation field drains its whole subtree before the next root
// field is dispatched.
func TestAsyncMutationFieldsFlushOneAtATime(t *testing.T) {
	var order []string
	record := func(name string, v any) MockResolver {
		return func(context.Context, any, map[string]any) (any, error) {
			order = append(order, name)
			return v, nil
		}
	}
	execCase{
		sdl:   mutationSDL,
		async: []string{"Mutation.addPerson", "Mutation.removePerson", "Person.best"},
		resolvers: map[string]MockResolver{
			"Mutation.addPerson":    record("addPerson", map[string]any{}),
			"Person.best":           record("best", map[string]any{}),
			"Person.name":           record("name", "Grace"),
			"Mutation.removePerson": record("removePerson", "gone"),
		},
		query: `mutation { addPerson(name: "Ada") { best { name } } removePerson }`,
		want: ok(map[string]any{
			"addPerson":    map[string]any{"best": map[string]any{"name": "Grace"}},
			"removePerson": "gone",
		}),
		wantCalls: []Call{
			{Kind: CallKindAsync, ObjectType: "Mutation", Field: "addPerson", Args: map[string]any{"name": "Ada"}, BatchID: 1},
			asyncCall("Person", "best", map[string]any{}, 2),
			syncCall("Person", "name", map[string]any{}),
			asyncCall("Mutation", "removePerson", nil, 3),
		},
	}.run(t)
	require.Equal(t, []string{"addPerson", "best", "name", "removePerson"}, order)
}

func TestRawArgumentsPassedUnresolved(t *testing.T) {
	sch := mustBuildSchema(t, mutationSDL, "Mutation.addPerson")
	sch.Types["Mutation"].Field("addPerson").SetRawArguments(true)

	var gotArgs, gotVars map[string]any
	rt := NewMockRuntime(map[string]MockResolver{
		"Mutation.addPerson": func(ctx context.Context, _ any, args map[string]any) (any, error) {
			gotArgs = args
			gotVars = VariablesFromContext(ctx)
			return nil, nil
		},
	})
	doc := mustParseQuery(t, `mutation ($who: String!) { addPerson(name: $who, age: 3) { name } }`)
	res := NewExecutor(rt, sch).ExecuteRequest(context.Background(), doc, "", map[string]any{"who": "Frank"}, nil)
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"addPerson": nil}, res.Data)

	name, ok := gotArgs["name"].(*language.Value)
	require.True(t, ok)
	require.Equal(t, language.Variable, name.Kind)
	require.Equal(t, "who", name.Raw)
	age := gotArgs["age"].(*language.Value)
	require.Equal(t, language.IntValue, age.Kind)
	require.Equal(t, map[string]any{"who": "Frank"}, gotVars)
}

func TestArgumentCoercion(t *testing.T) {
	sch := mustBuildSchema(t, mutationSDL)
	var got map[string]any
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.find": func(_ context.Context, _ any, args map[string]any) (any, error) {
			got = args
			return "x", nil
		},
	})
	exec := NewExecutor(rt, sch)

	tests := []struct {
		query   string
		vars    map[string]any
		want    map[string]any
		wantErr string
	}{
		{
			query: `{ find(who: {name: "Frank", gender: Male}) }`,
			want:  map[string]any{"who": map[string]any{"name": "Frank", "gender": "Male", "age": 30}, "limit": 5},
		},
		{
			query: `query ($g: Gender) { find(who: {name: "Frank", gender: $g, age: 41}) }`,
			vars:  map[string]any{"g": "Female"},
			want:  map[string]any{"who": map[string]any{"name": "Frank", "gender": "Female", "age": 41}, "limit": 5},
		},
		{
			query: `{ find(limit: 2) }`,
			want:  map[string]any{"limit": 2},
		},
		{query: `{ find(who: {name: "Frank", gender: Robot}) }`, wantErr: "enum Gender"},
		{query: `{ find(who: {nick: "F"}) }`, wantErr: "required field 'name'"},
		{
			query:   `query ($who: PersonInput!) { find(who: $who) }`,
			vars:    map[string]any{"who": map[string]any{"age": 10}},
			wantErr: "required field 'name'",
		},
		{
			query:   `query ($n: Int!) { find(who: {name: "F", age: $n}) }`,
			vars:    map[string]any{"n": "42"},
			wantErr: "cannot coerce",
		},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got = nil
			res := exec.ExecuteRequest(context.Background(), mustParseQuery(t, tt.query), "", tt.vars, nil)
			if tt.wantErr != "" {
				require.Len(t, res.Errors, 1)
				require.Contains(t, res.Errors[0].Message, tt.wantErr)
				return
			}
			require.Empty(t, res.Errors)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("arguments mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
