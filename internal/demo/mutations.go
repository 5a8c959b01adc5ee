package demo

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/hanpama/mutagraph/internal/entity"
	"github.com/hanpama/mutagraph/internal/expr"
	"github.com/hanpama/mutagraph/internal/mutation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/metadata"
)

type AddPersonArgs struct {
	mutation.Args
	Name     string           `validate:"required" description:"Display name"`
	Birthday *time.Time       `description:"RFC 3339 date of birth"`
	Weight   *decimal.Decimal `description:"Weight in kilograms"`
	Gender   *Gender
}

type NestedPerson struct {
	Name string `validate:"required"`
}

type AddPersonNestedArgs struct {
	mutation.Args
	Required *NestedPerson `validate:"required"`
	Optional *NestedPerson
}

type RenameArgs struct {
	mutation.Args
	ID   uuid.UUID `validate:"required"`
	Name string    `validate:"required,msg=a new name is required"`
}

type BefriendArgs struct {
	mutation.Args
	Person uuid.UUID `validate:"required"`
	Friend uuid.UUID `validate:"required"`
}

type RemoveArgs struct {
	mutation.Args
	ID uuid.UUID `validate:"required"`
}

// Notifier is told about people joining the directory.
type Notifier struct {
	logger *zap.Logger
}

func NewNotifier(logger *zap.Logger) *Notifier { return &Notifier{logger: logger} }

// Joined logs p with the tenant forwarded in md, if any.
func (n *Notifier) Joined(md metadata.MD, p *Person) {
	fields := []zap.Field{zap.String("person", p.Name), zap.Stringer("id", p.ID)}
	if tenant := md.Get("x-tenant"); len(tenant) > 0 {
		fields = append(fields, zap.String("tenant", tenant[0]))
	}
	n.logger.Info("person joined", fields...)
}

// PeopleMutations are the directory's mutation fields.
type PeopleMutations struct{}

func (PeopleMutations) AddPerson(s *Store, n *Notifier, md metadata.MD, args AddPersonArgs) *Person {
	p := &Person{Name: args.Name, Birthday: args.Birthday, Weight: args.Weight}
	if args.Gender != nil {
		p.Gender = *args.Gender
	}
	s.insert(p)
	n.Joined(md, p)
	return p
}

func (PeopleMutations) AddPersonNullableNestedType(s *Store, args *AddPersonNestedArgs) Person {
	p := &Person{Name: args.Required.Name}
	if args.Optional != nil {
		p.Friends = []*Person{s.insert(&Person{Name: args.Optional.Name})}
	}
	return *s.insert(p)
}

// AddPersonAsync rejects names already present.
func (PeopleMutations) AddPersonAsync(s *Store, args AddPersonArgs) *mutation.Future[*Person] {
	return mutation.Go(func() (*Person, error) {
		if s.findByName(args.Name) != nil {
			return nil, fmt.Errorf("%s is already in the directory", args.Name)
		}
		return s.insert(&Person{Name: args.Name, Birthday: args.Birthday, Weight: args.Weight}), nil
	})
}

func (PeopleMutations) Rename(s *Store, v *mutation.Validator, args RenameArgs) *Person {
	p := s.find(args.ID)
	if p == nil {
		v.AddError("id", fmt.Sprintf("no person with id %s", args.ID))
		return nil
	}
	s.mu.Lock()
	p.Name = args.Name
	s.mu.Unlock()
	return p
}

func (PeopleMutations) Befriend(s *Store, v *mutation.Validator, args BefriendArgs) (*Person, error) {
	p, f := s.find(args.Person), s.find(args.Friend)
	if p == nil {
		v.AddError("person", "unknown person")
	}
	if f == nil {
		v.AddError("friend", "unknown friend")
	}
	if v.HasErrors() {
		return nil, nil
	}
	if p == f {
		return nil, fmt.Errorf("%s cannot befriend themselves", p.Name)
	}
	s.mu.Lock()
	p.Friends = append(p.Friends, f)
	s.mu.Unlock()
	return p, nil
}

func (PeopleMutations) RemovePerson(s *Store, args RemoveArgs) bool {
	return s.remove(args.ID)
}

// ClearPeople empties the directory and returns who is left, evaluated
// against the root context after the mutation.
func (PeopleMutations) ClearPeople(s *Store) (expr.Expr, error) {
	s.clear()
	return expr.MemberOf(expr.Const(s), "People")
}

// Register adds PeopleMutations to reg. clearPeople requires the admin role.
func Register(reg *mutation.Registry) error {
	m := PeopleMutations{}
	if _, err := reg.Add("addPerson", m.AddPerson, mutation.WithDescription("Add a person to the directory.")); err != nil {
		return err
	}
	if _, err := reg.Add("addPersonNullableNestedType", m.AddPersonNullableNestedType); err != nil {
		return err
	}
	f, err := reg.Add("addPersonAsync", m.AddPersonAsync)
	if err != nil {
		return err
	}
	f.Deprecate("use addPerson")
	for _, add := range []struct {
		name string
		fn   any
	}{
		{"rename", m.Rename},
		{"befriend", m.Befriend},
		{"removePerson", m.RemovePerson},
	} {
		if _, err := reg.Add(add.name, add.fn); err != nil {
			return err
		}
	}
	_, err = reg.Add("clearPeople", m.ClearPeople,
		mutation.WithRoles("admin"),
		mutation.WithReturnType(reflect.TypeFor[[]*Person]()))
	return err
}

// NewSchema builds the directory schema over Store.
func NewSchema(logger *zap.Logger) (*entity.Schema, error) {
	b := entity.NewBuilder(reflect.TypeFor[*Store]())
	reg := mutation.NewRegistry(mutation.WithTypeMapper(b), mutation.WithLogger(logger))
	if err := Register(reg); err != nil {
		return nil, fmt.Errorf("register mutations: %w", err)
	}
	return b.Build(reg)
}
