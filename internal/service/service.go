// Package service provides the implementation of product-related business logic.
package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/internal/store"
)

// ProductService defines the methods for managing products.
// It abstracts the underlying business logic and data access.
type ProductService interface {
	// FindAll returns every product, ordered by ascending price when sortByPrice is set.
	// Products with equal prices keep their store order.
	FindAll(ctx context.Context, sortByPrice bool) ([]ProductDto, error)

	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID or the ID is malformed.
	FindByID(ctx context.Context, id string) (*ProductDto, error)

	// Create stores a new product, decoding ImageBase64 when no raw image is given.
	Create(ctx context.Context, product ProductInputDto) (*ProductDto, error)

	// Update overwrites the scalar fields of an existing product, and its image only when a non-empty one is given.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, id string, changes ProductInputDto) (*ProductDto, error)

	// DeleteByID removes a product and reports whether it existed.
	DeleteByID(ctx context.Context, id string) (bool, error)

	// Search filters by name substring and/or exact category, both ignoring case.
	// Blank criteria are ignored; with no criteria every product is returned.
	Search(ctx context.Context, name, category string) ([]ProductDto, error)

	// FindByPriceRange returns products priced between min and max inclusive.
	// Returns ErrInvalidPriceRange if min is greater than max.
	FindByPriceRange(ctx context.Context, min, max float64) ([]ProductDto, error)
}

// Service implements ProductService and provides methods to manage products.
type Service struct {
	repository store.ProductStore
}

var _ ProductService = (*Service)(nil)

// NewService creates a new instance of ProductService with the provided repository.
func NewService(repo store.ProductStore) *Service {
	return &Service{
		repository: repo,
	}
}

// ProductInputDto is the payload of create and update requests.
// ImageBase64 is an alternative to Image and is never stored as such.
type ProductInputDto struct {
	Name             string   `json:"name"             validate:"required,max=255"`
	Price            *float64 `json:"price"            validate:"required,gte=0"`
	Description      string   `json:"description"      validate:"max=4096"`
	Category         string   `json:"category"         validate:"max=255"`
	Image            []byte   `json:"image"`
	ImageContentType string   `json:"imageContentType" validate:"max=255"`
	ImageBase64      string   `json:"imageBase64"`
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Price            float64 `json:"price"`
	Description      string  `json:"description"`
	Category         string  `json:"category"`
	Image            []byte  `json:"image,omitempty"`
	ImageContentType string  `json:"imageContentType,omitempty"`
}

// FindAll retrieves all products, optionally sorted by price.
func (s *Service) FindAll(ctx context.Context, sortByPrice bool) ([]ProductDto, error) {
	products, err := s.repository.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	if sortByPrice {
		slices.SortStableFunc(products, func(a, b store.Product) int {
			return cmp.Compare(a.Price, b.Price)
		})
	}
	return toDtos(products), nil
}

// FindByID retrieves a product by its ID and returns it as a ProductDto.
func (s *Service) FindByID(ctx context.Context, id string) (*ProductDto, error) {
	product, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, notFoundIfInvalid(err))
	}
	return toDto(product), nil
}

// Create normalizes the image payload, stores the product and returns it with its new ID.
func (s *Service) Create(ctx context.Context, product ProductInputDto) (*ProductDto, error) {
	p := toProduct(product)
	normalizeImage(&p, product.ImageBase64)

	created, err := s.repository.Save(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return toDto(created), nil
}

// Update modifies an existing product's details and returns the updated product as a ProductDto.
func (s *Service) Update(ctx context.Context, id string, changes ProductInputDto) (*ProductDto, error) {
	existing, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %s: %w", id, notFoundIfInvalid(err))
	}

	incoming := toProduct(changes)
	normalizeImage(&incoming, changes.ImageBase64)

	existing.Name = incoming.Name
	existing.Price = incoming.Price
	existing.Description = incoming.Description
	existing.Category = incoming.Category
	if len(incoming.Image) > 0 {
		existing.Image = incoming.Image
		existing.ImageContentType = incoming.ImageContentType
	}

	updated, err := s.repository.Save(ctx, *existing)
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %s: %w", id, err)
	}
	return toDto(updated), nil
}

// DeleteByID deletes a product by its ID. Unknown and malformed IDs report false without an error.
func (s *Service) DeleteByID(ctx context.Context, id string) (bool, error) {
	exists, err := s.repository.ExistsByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrInvalidID) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check product with ID %s: %w", id, err)
	}
	if !exists {
		return false, nil
	}
	if err := s.repository.DeleteByID(ctx, id); err != nil {
		// deleted concurrently between the existence check and the delete
		if errors.Is(err, perrors.ErrProductNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete product with ID %s: %w", id, err)
	}
	return true, nil
}

// Search dispatches to the narrowest store query the non-blank criteria allow.
func (s *Service) Search(ctx context.Context, name, category string) ([]ProductDto, error) {
	hasName, hasCategory := !isBlank(name), !isBlank(category)

	var (
		products []store.Product
		err      error
	)
	switch {
	case hasName && hasCategory:
		products, err = s.repository.FindByNameContainingAndCategory(ctx, name, category)
	case hasName:
		products, err = s.repository.FindByNameContaining(ctx, name)
	case hasCategory:
		products, err = s.repository.FindByCategory(ctx, category)
	default:
		products, err = s.repository.FindAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search products (name=%q, category=%q): %w", name, category, err)
	}
	return toDtos(products), nil
}

// FindByPriceRange retrieves products with min <= price <= max.
func (s *Service) FindByPriceRange(ctx context.Context, min, max float64) ([]ProductDto, error) {
	if min > max {
		return nil, fmt.Errorf("min %v is greater than max %v: %w", min, max, perrors.ErrInvalidPriceRange)
	}
	products, err := s.repository.FindByPriceBetween(ctx, min, max)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products priced between %v and %v: %w", min, max, err)
	}
	return toDtos(products), nil
}

// notFoundIfInvalid maps a malformed identifier to ErrProductNotFound.
func notFoundIfInvalid(err error) error {
	if errors.Is(err, store.ErrInvalidID) {
		return perrors.ErrProductNotFound
	}
	return err
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func toProduct(in ProductInputDto) store.Product {
	var price float64
	if in.Price != nil {
		price = *in.Price
	}
	return store.Product{
		Name:             in.Name,
		Price:            price,
		Description:      in.Description,
		Category:         in.Category,
		Image:            in.Image,
		ImageContentType: in.ImageContentType,
	}
}

// toDto converts a store.Product to a ProductDto.
func toDto(product *store.Product) *ProductDto {
	return &ProductDto{
		ID:               product.ID,
		Name:             product.Name,
		Price:            product.Price,
		Description:      product.Description,
		Category:         product.Category,
		Image:            product.Image,
		ImageContentType: product.ImageContentType,
	}
}

func toDtos(products []store.Product) []ProductDto {
	dtos := make([]ProductDto, len(products))
	for i := range products {
		dtos[i] = *toDto(&products[i])
	}
	return dtos
}
