package entity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hanpama/mutagraph/internal/expr"
	"github.com/hanpama/mutagraph/internal/mutation"
	"github.com/shopspring/decimal"
)

type Gender int

const (
	Female Gender = iota
	Male
)

func (Gender) EnumValues() []string { return []string{"Female", "Male"} }

func (g Gender) MarshalText() ([]byte, error) {
	switch g {
	case Female:
		return []byte("Female"), nil
	case Male:
		return []byte("Male"), nil
	}
	return nil, fmt.Errorf("unknown gender %d", g)
}

func (g *Gender) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "female":
		*g = Female
	case "male":
		*g = Male
	default:
		return fmt.Errorf("unknown gender %q", b)
	}
	return nil
}

type Person struct {
	ID       int
	Name     string
	Birthday *time.Time
	Weight   *decimal.Decimal
	Gender   *Gender
	Friends  []Person
	Secret   string `graphql:"-"`
}

type PeopleContext struct {
	mu     sync.Mutex
	People []Person
}

func (c *PeopleContext) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.People)
}

func (c *PeopleContext) Names(ctx context.Context) *mutation.Future[[]string] {
	return mutation.Go(func() ([]string, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		names := make([]string, len(c.People))
		for i, p := range c.People {
			names[i] = p.Name
		}
		return names, nil
	})
}

func (c *PeopleContext) add(p Person) Person {
	c.mu.Lock()
	defer c.mu.Unlock()
	p.ID = len(c.People) + 1
	c.People = append(c.People, p)
	return p
}

type NestedInputObject struct {
	Name string
}

type AddPersonArgs struct {
	mutation.Args
	Name     string `validate:"required"`
	Birthday *time.Time
	Weight   *decimal.Decimal
	Gender   *Gender
}

type AddPersonNestedArgs struct {
	mutation.Args
	Required *NestedInputObject `validate:"required"`
	Optional *NestedInputObject
}

type Mailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *Mailer) Send(to string) {
	m.mu.Lock()
	m.sent = append(m.sent, to)
	m.mu.Unlock()
}

// Caller is a request-scoped value.
type Caller struct{ Name string }

type PeopleMutations struct{}

func (PeopleMutations) AddPerson(c *PeopleContext, args AddPersonArgs) Person {
	return c.add(Person{Name: args.Name, Birthday: args.Birthday, Weight: args.Weight, Gender: args.Gender})
}

func (PeopleMutations) AddPersonNullableNestedType(args AddPersonNestedArgs, c *PeopleContext) Person {
	p := Person{Name: args.Required.Name}
	if args.Optional != nil {
		p.Friends = []Person{{Name: args.Optional.Name}}
	}
	return c.add(p)
}

func (PeopleMutations) AddPersonAsync(c *PeopleContext, args AddPersonArgs) *mutation.Future[Person] {
	return mutation.Go(func() (Person, error) {
		time.Sleep(time.Millisecond)
		for _, p := range c.People {
			if p.Name == args.Name {
				return Person{}, fmt.Errorf("duplicate person %s", args.Name)
			}
		}
		return c.add(Person{Name: args.Name}), nil
	})
}

func (PeopleMutations) Invite(c *PeopleContext, mailer *Mailer, caller Caller, args AddPersonArgs) Person {
	mailer.Send(args.Name + " from " + caller.Name)
	return c.add(Person{Name: args.Name})
}

// Everyone returns a query over a placeholder context; it is rebound to the
// request's root context before evaluation.
func (PeopleMutations) Everyone() expr.Expr {
	e, err := expr.MemberOf(expr.Const(&PeopleContext{}), "People")
	if err != nil {
		panic(err)
	}
	return e
}
