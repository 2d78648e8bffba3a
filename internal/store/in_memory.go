package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InMemoryStore implements ProductStore using an in-memory map.
// Ids have the same format as the MongoDB store, and FindAll keeps insertion order.
type InMemoryStore struct {
	mu       sync.RWMutex
	products map[string]Product
	order    []string
}

var _ ProductStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates a new, empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		products: make(map[string]Product),
	}
}

func (s *InMemoryStore) Save(_ context.Context, p Product) (*Product, error) {
	if p.ID == "" {
		p.ID = primitive.NewObjectID().Hex()
	} else if !validID(p.ID) {
		return nil, ErrInvalidID
	}
	p.Image = slices.Clone(p.Image)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.products[p.ID]; !exists {
		s.order = append(s.order, p.ID)
	}
	s.products[p.ID] = p

	return clone(p), nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*Product, error) {
	if !validID(id) {
		return nil, ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, perrors.ErrProductNotFound
	}
	return clone(p), nil
}

func (s *InMemoryStore) FindAll(_ context.Context) ([]Product, error) {
	return s.filter(func(Product) bool { return true }), nil
}

func (s *InMemoryStore) DeleteByID(_ context.Context, id string) error {
	if !validID(id) {
		return ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return perrors.ErrProductNotFound
	}
	delete(s.products, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

func (s *InMemoryStore) ExistsByID(_ context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.products[id]
	return exists, nil
}

func (s *InMemoryStore) FindByNameContaining(_ context.Context, name string) ([]Product, error) {
	return s.filter(nameContains(name)), nil
}

func (s *InMemoryStore) FindByCategory(_ context.Context, category string) ([]Product, error) {
	return s.filter(categoryEquals(category)), nil
}

func (s *InMemoryStore) FindByPriceBetween(_ context.Context, min, max float64) ([]Product, error) {
	return s.filter(func(p Product) bool { return p.Price >= min && p.Price <= max }), nil
}

func (s *InMemoryStore) FindByNameContainingAndCategory(_ context.Context, name, category string) ([]Product, error) {
	byName, byCategory := nameContains(name), categoryEquals(category)
	return s.filter(func(p Product) bool { return byName(p) && byCategory(p) }), nil
}

func (s *InMemoryStore) filter(match func(Product) bool) []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Product, 0, len(s.order))
	for _, id := range s.order {
		if p := s.products[id]; match(p) {
			list = append(list, *clone(p))
		}
	}
	return list
}

func nameContains(name string) func(Product) bool {
	needle := strings.ToLower(name)
	return func(p Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle)
	}
}

func categoryEquals(category string) func(Product) bool {
	return func(p Product) bool {
		return strings.EqualFold(p.Category, category)
	}
}

func validID(id string) bool {
	return primitive.IsValidObjectID(id)
}

func clone(p Product) *Product {
	p.Image = slices.Clone(p.Image)
	return &p
}
