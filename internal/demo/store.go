// Package demo is a small people directory served by mutagraph serve.
package demo

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hanpama/mutagraph/internal/mutation"
	"github.com/shopspring/decimal"
)

type Gender int

const (
	Unspecified Gender = iota
	Female
	Male
)

var genderNames = [...]string{Unspecified: "Unspecified", Female: "Female", Male: "Male"}

func (Gender) EnumValues() []string { return genderNames[:] }

func (g Gender) MarshalText() ([]byte, error) {
	if int(g) < 0 || int(g) >= len(genderNames) {
		return nil, fmt.Errorf("unknown gender %d", g)
	}
	return []byte(genderNames[g]), nil
}

func (g *Gender) UnmarshalText(b []byte) error {
	for i, name := range genderNames {
		if strings.EqualFold(name, string(b)) {
			*g = Gender(i)
			return nil
		}
	}
	return fmt.Errorf("unknown gender %q", b)
}

type Person struct {
	ID        uuid.UUID
	Name      string
	Birthday  *time.Time
	Weight    *decimal.Decimal
	Gender    Gender
	Friends   []*Person
	CreatedAt time.Time
}

// Store is the root data context. It is shared by all requests.
type Store struct {
	mu     sync.RWMutex
	people []*Person
	now    func() time.Time
}

func NewStore() *Store { return &Store{now: time.Now} }

// People lists everyone in insertion order.
func (s *Store) People() []*Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Person(nil), s.people...)
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.people)
}

// Heaviest is computed off the request goroutine.
func (s *Store) Heaviest(ctx context.Context) *mutation.Future[*Person] {
	return mutation.Go(func() (*Person, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		var top *Person
		for _, p := range s.people {
			if p.Weight != nil && (top == nil || p.Weight.GreaterThan(*top.Weight)) {
				top = p
			}
		}
		return top, nil
	})
}

func (s *Store) insert(p *Person) *Person {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = s.now().UTC()
	s.people = append(s.people, p)
	return p
}

func (s *Store) find(id uuid.UUID) *Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.people {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Store) findByName(name string) *Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.people {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

func (s *Store) remove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.people {
		if p.ID == id {
			s.people = append(s.people[:i], s.people[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.people)
	s.people = nil
	return n
}
