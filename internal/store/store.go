// Package store provides an interface for product storage operations.
package store

import (
	"context"
	"errors"
)

// ErrInvalidID is returned when an identifier cannot be a product id in the underlying store.
var ErrInvalidID = errors.New("invalid product id")

// Product represents a product document.
// ID is empty until the store assigns one on the first Save.
type Product struct {
	ID               string
	Name             string
	Price            float64
	Description      string
	Category         string
	Image            []byte
	ImageContentType string
}

// ProductStore is an interface for product storage operations.
// It abstracts the underlying document store, allowing for different implementations (e.g., in-memory, MongoDB).
// Lookups of an unknown id return ErrProductNotFound, lookups of a malformed id return ErrInvalidID.
type ProductStore interface {
	// Save inserts p when p.ID is empty, assigning a new id, and replaces the stored document otherwise.
	Save(ctx context.Context, p Product) (*Product, error)

	// FindByID retrieves a single product by its unique identifier.
	FindByID(ctx context.Context, id string) (*Product, error)

	// FindAll returns all products in store order.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context) ([]Product, error)

	// DeleteByID removes a product by its ID.
	DeleteByID(ctx context.Context, id string) error

	// ExistsByID reports whether a product with the given id exists.
	ExistsByID(ctx context.Context, id string) (bool, error)

	// FindByNameContaining returns products whose name contains name, ignoring case.
	FindByNameContaining(ctx context.Context, name string) ([]Product, error)

	// FindByCategory returns products whose category equals category, ignoring case.
	FindByCategory(ctx context.Context, category string) ([]Product, error)

	// FindByPriceBetween returns products with min <= price <= max.
	FindByPriceBetween(ctx context.Context, min, max float64) ([]Product, error)

	// FindByNameContainingAndCategory combines FindByNameContaining and FindByCategory.
	FindByNameContainingAndCategory(ctx context.Context, name, category string) ([]Product, error)
}
