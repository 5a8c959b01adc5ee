package mutation

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hanpama/mutagraph/internal/expr"
	"github.com/hanpama/mutagraph/internal/language"
	"github.com/stretchr/testify/require"
)

func newPeopleRegistry(t *testing.T) (*Registry, *PeopleMutations) {
	t.Helper()
	r := NewRegistry()
	m := &PeopleMutations{}
	_, err := r.AddMutationsFrom(m)
	require.NoError(t, err)
	return r, m
}

func peopleContext(db *People) Context {
	return Context{Root: db, Schema: expr.ParameterOf[*People]("ctx"), Variables: VariablesParameter()}
}

func TestZeroArgumentsNeverBuildsArguments(t *testing.T) {
	r, m := newPeopleRegistry(t)
	db := &People{People: []Person{{Name: "Frank"}}}

	out, err := r.Invoke(context.Background(), "clearPeople", peopleContext(db), map[string]any{}, nil)
	require.NoError(t, err)
	require.Equal(t, ResultRewritten, out.State)
	require.Nil(t, out.Arguments)
	require.Equal(t, true, out.Value)
	require.Empty(t, db.People)
	require.Equal(t, 1, m.calls)
}

func TestEmptyArgumentsStructIsNotBuilt(t *testing.T) {
	type noArgs struct{ Args }
	var got *noArgs
	seen := false
	r := NewRegistry()
	_, err := r.Add("ping", func(a *noArgs) string { got, seen = a, true; return "pong" })
	require.NoError(t, err)

	out, err := r.Invoke(context.Background(), "ping", Context{}, nil, nil)
	require.NoError(t, err)
	require.True(t, seen)
	require.Nil(t, got)
	require.Nil(t, out.Arguments)
	require.Equal(t, "pong", out.Value)
}

func TestRequiredEmptyStringSkipsInvocation(t *testing.T) {
	r, m := newPeopleRegistry(t)
	db := &People{}

	out, err := r.Invoke(context.Background(), "addPersonPrimitive", peopleContext(db),
		map[string]any{"name": ""}, nil)
	require.NoError(t, err)
	require.Equal(t, Failed, out.State)
	require.Nil(t, out.Value)
	require.Nil(t, out.Result)
	if diff := cmp.Diff(ValidationErrors{{Field: "name", Message: "name is required"}}, out.Errors); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
	require.Zero(t, m.calls)
	require.Empty(t, db.People)
}

func TestRequiredMissingNested(t *testing.T) {
	r, m := newPeopleRegistry(t)
	out, err := r.Invoke(context.Background(), "addPersonNullableNestedType", peopleContext(&People{}),
		map[string]any{"optional": map[string]any{"name": "x"}}, nil)
	require.NoError(t, err)
	require.Equal(t, Failed, out.State)
	require.Len(t, out.Errors, 1)
	require.Equal(t, "required is required", out.Errors[0].Message)
	require.Zero(t, m.calls)
}

func TestParametersSuppliedRegardlessOfOrder(t *testing.T) {
	r, _ := newPeopleRegistry(t)
	db := &People{}
	ic := peopleContext(db)

	// root first, arguments second
	out, err := r.Invoke(context.Background(), "addPersonPrimitive", ic,
		map[string]any{"name": "Frank", "id": 7}, nil)
	require.NoError(t, err)
	require.Equal(t, Person{ID: 1, Name: "Frank"}, out.Value)

	// arguments first, root second
	out, err = r.Invoke(context.Background(), "addPersonNullableNestedType", ic,
		map[string]any{"required": map[string]any{"name": "Luke"}}, nil)
	require.NoError(t, err)
	require.Equal(t, Person{ID: 2, Name: "Luke"}, out.Value)
	require.Len(t, db.People, 2)
}

func TestBindingFromLiteralsAndVariables(t *testing.T) {
	r, _ := newPeopleRegistry(t)
	db := &People{}
	ic := peopleContext(db)

	name, err := language.ParseValue(`$name`)
	require.NoError(t, err)
	gender, err := language.ParseValue(`Male`)
	require.NoError(t, err)
	nameOf, err := expr.MemberOf(ic.Variables, "who")
	require.NoError(t, err)

	out, err := r.Invoke(context.Background(), "addPersonPrimitive", ic, map[string]any{
		"name":     name,
		"gender":   gender,
		"birthday": Variable("birthday"),
		"weight":   "70.25",
	}, map[string]any{"name": "Frank", "birthday": "2000-01-02T03:04:05Z"})
	require.NoError(t, err)
	p := out.Value.(Person)
	require.Equal(t, "Frank", p.Name)
	require.Equal(t, Male, *p.Gender)
	require.Equal(t, 2000, p.Birthday.Year())
	require.Equal(t, "70.25", p.Weight.String())

	out, err = r.Invoke(context.Background(), "addPersonPrimitive", ic,
		map[string]any{"name": nameOf}, map[string]any{"who": "Luke"})
	require.NoError(t, err)
	require.Equal(t, "Luke", out.Value.(Person).Name)
}

func TestBindingNestedInputLiteral(t *testing.T) {
	r, _ := newPeopleRegistry(t)
	required, err := language.ParseValue(`{name: $who}`)
	require.NoError(t, err)

	out, err := r.Invoke(context.Background(), "addPersonNullableNestedType", peopleContext(&People{}),
		map[string]any{"required": required}, map[string]any{"who": "Leia"})
	require.NoError(t, err)
	require.Equal(t, "Leia", out.Value.(Person).Name)
	require.Equal(t, "Leia", out.Arguments.(AddPersonNestedArgs).Required.Name)
}

func TestBindingErrors(t *testing.T) {
	r, m := newPeopleRegistry(t)
	ic := peopleContext(&People{})

	t.Run("unresolved required variable", func(t *testing.T) {
		out, err := r.Invoke(context.Background(), "addPersonPrimitive", ic,
			map[string]any{"name": Variable("missing")}, map[string]any{})
		var be *BindingError
		require.ErrorAs(t, err, &be)
		require.Equal(t, "name", be.Argument)
		require.Equal(t, "addPersonPrimitive", be.Mutation)
		require.ErrorIs(t, err, ErrUnresolvedVariable)
		require.Equal(t, Faulted, out.State)
	})

	t.Run("unresolved optional variable leaves member unset", func(t *testing.T) {
		out, err := r.Invoke(context.Background(), "addPersonPrimitive", ic,
			map[string]any{"name": "Frank", "weight": Variable("missing")}, nil)
		require.NoError(t, err)
		require.Nil(t, out.Value.(Person).Weight)
	})

	t.Run("undecodable value", func(t *testing.T) {
		_, err := r.Invoke(context.Background(), "addPersonPrimitive", ic,
			map[string]any{"name": "Frank", "id": "seven"}, nil)
		var be *BindingError
		require.ErrorAs(t, err, &be)
		require.Equal(t, "id", be.Argument)
	})

	t.Run("unknown enum value", func(t *testing.T) {
		_, err := r.Invoke(context.Background(), "addPersonPrimitive", ic,
			map[string]any{"name": "Frank", "gender": "robot"}, nil)
		var be *BindingError
		require.ErrorAs(t, err, &be)
		require.Equal(t, "gender", be.Argument)
	})

	require.Equal(t, 1, m.calls)
}

func TestDefaults(t *testing.T) {
	type pageArgs struct {
		Args
		First int    `default:"10"`
		Order string `default:"asc"`
	}
	r := NewRegistry()
	f, err := r.Add("page", func(a pageArgs) pageArgs { return a })
	require.NoError(t, err)
	require.Equal(t, "page(first: Int = 10, order: String = \"asc\"): pageArgs!", f.Signature())

	out, err := f.Invoke(context.Background(), Context{}, map[string]any{"order": "desc"}, nil)
	require.NoError(t, err)
	got := out.Value.(pageArgs)
	require.Equal(t, 10, got.First)
	require.Equal(t, "desc", got.Order)

	out, err = f.Invoke(context.Background(), Context{}, map[string]any{"first": Variable("n")}, nil)
	require.NoError(t, err)
	require.Equal(t, 10, out.Value.(pageArgs).First)
}

func TestAsyncDomainErrorKeepsIdentity(t *testing.T) {
	r, _ := newPeopleRegistry(t)
	db := &People{People: []Person{{ID: 1, Name: "Frank"}}}

	_, err := r.Invoke(context.Background(), "addPersonAsync", peopleContext(db),
		map[string]any{"name": "Frank"}, nil)
	var dup *DuplicatePersonError
	require.ErrorAs(t, err, &dup)
	require.Same(t, dup, err)
	require.Equal(t, "Frank", dup.Name)

	out, err := r.Invoke(context.Background(), "addPersonAsync", peopleContext(db),
		map[string]any{"name": "Luke"}, nil)
	require.NoError(t, err)
	require.Equal(t, Person{ID: 2, Name: "Luke"}, out.Value)
}

func TestPanicsSurfaceTheirCause(t *testing.T) {
	domain := &DuplicatePersonError{Name: "Frank"}
	r := NewRegistry()
	_, err := r.Add("explode", func() int { panic(domain) })
	require.NoError(t, err)
	_, err = r.Add("shout", func() int { panic("boom") })
	require.NoError(t, err)
	_, err = r.Add("explodeLater", func() *Future[int] {
		return Go(func() (int, error) { panic(domain) })
	})
	require.NoError(t, err)

	out, err := r.Invoke(context.Background(), "explode", Context{}, nil, nil)
	require.Same(t, domain, err)
	require.Equal(t, Faulted, out.State)

	_, err = r.Invoke(context.Background(), "explodeLater", Context{}, nil, nil)
	require.Same(t, domain, err)

	_, err = r.Invoke(context.Background(), "shout", Context{}, nil, nil)
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "boom", pe.Value)
	require.NotEmpty(t, pe.Stack)
	var tie *TargetInvocationError
	require.False(t, errors.As(err, &tie))
}

func TestReturnedErrorPropagatesUnchanged(t *testing.T) {
	sentinel := errors.New("rejected")
	r := NewRegistry()
	_, err := r.Add("reject", func() (int, error) { return 0, sentinel })
	require.NoError(t, err)
	_, err = r.Add("rejectOnly", func() error { return sentinel })
	require.NoError(t, err)

	_, err = r.Invoke(context.Background(), "reject", Context{}, nil, nil)
	require.Same(t, sentinel, err)
	_, err = r.Invoke(context.Background(), "rejectOnly", Context{}, nil, nil)
	require.Same(t, sentinel, err)
}

func TestDependencyResolution(t *testing.T) {
	mailer := &Mailer{}
	r := NewRegistry()
	_, err := r.Add("notify", func(m *Mailer, db *People, ctx context.Context) int {
		m.sent = append(m.sent, "hi")
		require.NotNil(t, ctx)
		return len(db.People)
	})
	require.NoError(t, err)
	ic := peopleContext(&People{})

	_, err = r.Invoke(context.Background(), "notify", ic, nil, nil)
	var dre *DependencyResolutionError
	require.ErrorAs(t, err, &dre)
	require.Equal(t, "notify", dre.Mutation)
	require.Equal(t, reflect.TypeFor[*Mailer](), dre.Type)
	require.Contains(t, err.Error(), "*mutation.Mailer")
	require.Contains(t, err.Error(), "notify")

	ic.Services = locator{}
	_, err = r.Invoke(context.Background(), "notify", ic, nil, nil)
	require.ErrorAs(t, err, &dre)
	require.ErrorIs(t, err, errNotRegistered)

	ic.Services = locator{reflect.TypeFor[*Mailer](): mailer}
	out, err := r.Invoke(context.Background(), "notify", ic, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 0, out.Value)
	require.Equal(t, []string{"hi"}, mailer.sent)
}

func TestValidatorParameter(t *testing.T) {
	r := NewRegistry()
	_, err := r.Add("vet", func(v *Validator, args AddPersonPrimitiveArgs) *Person {
		if args.Name == "Darth" {
			v.AddError("name", "no sith allowed")
		}
		return &Person{Name: args.Name}
	})
	require.NoError(t, err)

	out, err := r.Invoke(context.Background(), "vet", Context{}, map[string]any{"name": "Darth"}, nil)
	require.NoError(t, err)
	require.Equal(t, Failed, out.State)
	require.Nil(t, out.Value)
	require.Equal(t, ValidationErrors{{Field: "name", Message: "no sith allowed"}}, out.Errors)
}

func TestResultRewrittenAgainstSchemaRoot(t *testing.T) {
	db := &People{}
	other := &People{People: []Person{{Name: "Luke"}}}
	r := NewRegistry()
	_, err := r.Add("self", func(db *People) *People { return db })
	require.NoError(t, err)
	_, err = r.Add("everyone", func(db *People) expr.Expr {
		e, _ := expr.MemberOf(expr.Const(db), "People")
		return e
	}, WithReturnType(reflect.TypeFor[[]Person]()))
	require.NoError(t, err)

	ic := peopleContext(db)
	out, err := r.Invoke(context.Background(), "self", ic, nil, nil)
	require.NoError(t, err)
	require.True(t, expr.Equal(ic.Schema, out.Result), "got %s", out.Result)

	out, err = r.Invoke(context.Background(), "everyone", ic, nil, nil)
	require.NoError(t, err)
	got, err := expr.Eval(out.Result, expr.Env{ic.Schema: other})
	require.NoError(t, err)
	require.Equal(t, other.People, got)

	// without a schema parameter the result stays as returned
	out, err = r.Invoke(context.Background(), "self", Context{Root: db}, nil, nil)
	require.NoError(t, err)
	c, ok := out.Result.(*expr.Constant)
	require.True(t, ok)
	require.Same(t, db, c.Value)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "ResultRewritten", ResultRewritten.String())
	require.Equal(t, "Failed", Failed.String())
	require.Equal(t, "Succeeded", Succeeded.String())
	require.Equal(t, "State(42)", State(42).String())
}

func TestAbsentRequiredArgumentWithoutEmptyState(t *testing.T) {
	type setAgeArgs struct {
		Args
		Age     int  `validate:"required"`
		Visible bool `validate:"required" default:"true"`
	}
	calls := 0
	r := NewRegistry()
	_, err := r.Add("setAge", func(a setAgeArgs) int { calls++; return a.Age })
	require.NoError(t, err)

	out, err := r.Invoke(context.Background(), "setAge", Context{}, map[string]any{}, nil)
	var be *BindingError
	require.ErrorAs(t, err, &be)
	require.Equal(t, "age", be.Argument)
	require.ErrorIs(t, err, ErrMissingArgument)
	require.Equal(t, Faulted, out.State)
	require.Zero(t, calls)

	out, err = r.Invoke(context.Background(), "setAge", Context{}, map[string]any{"age": 0}, nil)
	require.NoError(t, err)
	require.Equal(t, 0, out.Value)
	require.Equal(t, 1, calls)
}
