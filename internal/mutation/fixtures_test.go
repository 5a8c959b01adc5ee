package mutation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type Gender int

const (
	Female Gender = iota
	Male
)

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
}

type NestedInputObject struct {
	Name string
}

type People struct {
	mu     sync.Mutex
	People []Person
}

func (p *People) add(person Person) Person {
	p.mu.Lock()
	defer p.mu.Unlock()
	person.ID = len(p.People) + 1
	p.People = append(p.People, person)
	return person
}

type AddPersonPrimitiveArgs struct {
	Args
	ID       *int
	Name     string `validate:"required"`
	Birthday *time.Time
	Weight   *decimal.Decimal
	Gender   *Gender
}

type AddPersonNestedArgs struct {
	Args
	Required *NestedInputObject `validate:"required"`
	Optional *NestedInputObject
}

type DuplicatePersonError struct{ Name string }

func (e *DuplicatePersonError) Error() string { return "duplicate person " + e.Name }

type Mailer struct{ sent []string }

// locator resolves services registered by type.
type locator map[reflect.Type]any

var errNotRegistered = errors.New("not registered")

func (l locator) Resolve(t reflect.Type) (any, error) {
	if v, ok := l[t]; ok {
		return v, nil
	}
	return nil, errNotRegistered
}

type PeopleMutations struct {
	calls int
}

func (m *PeopleMutations) AddPersonPrimitive(db *People, args AddPersonPrimitiveArgs) Person {
	m.calls++
	p := Person{Name: args.Name, Birthday: args.Birthday, Weight: args.Weight, Gender: args.Gender}
	if args.ID != nil {
		p.ID = *args.ID
	}
	return db.add(p)
}

func (m *PeopleMutations) AddPersonNullableNestedType(args *AddPersonNestedArgs, db *People) Person {
	m.calls++
	return db.add(Person{Name: args.Required.Name})
}

func (m *PeopleMutations) AddPersonAsync(db *People, args AddPersonPrimitiveArgs) *Future[Person] {
	m.calls++
	return Go(func() (Person, error) {
		time.Sleep(time.Millisecond)
		for _, p := range db.People {
			if p.Name == args.Name {
				return Person{}, &DuplicatePersonError{Name: args.Name}
			}
		}
		return db.add(Person{Name: args.Name}), nil
	})
}

func (m *PeopleMutations) ClearPeople(db *People) bool {
	m.calls++
	db.People = nil
	return true
}
