// Package rest provides HTTP handlers for product-related operations.
package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/internal/service"
	"github.com/abgdnv/productcatalog/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const fallbackImageContentType = "application/octet-stream"

type Handler struct {
	service            service.ProductService
	validate           *validator.Validate
	logger             *slog.Logger
	multipartMaxMemory int64
}

// NewHandler creates a new instance of Handler with the provided service.
// multipartMaxMemory bounds the part of a multipart form held in memory.
func NewHandler(service service.ProductService, logger *slog.Logger, multipartMaxMemory int64) *Handler {
	return &Handler{
		service:            service,
		validate:           validator.New(),
		logger:             logger.With("component", "rest"),
		multipartMaxMemory: multipartMaxMemory,
	}
}

// RegisterRoutes registers the HTTP routes for the product service.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.wrap(h.FindAll))
		r.Post("/", h.wrap(h.Create))
		r.Post("/multipart/create", h.wrap(h.CreateMultipart))
		r.Get("/search", h.wrap(h.Search))
		r.Get("/price-range", h.wrap(h.FindByPriceRange))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.wrap(h.FindByID))
			r.Put("/", h.wrap(h.Update))
			r.Delete("/", h.wrap(h.DeleteByID))
			r.Get("/image", h.wrap(h.Image))
			r.Put("/multipart", h.wrap(h.UpdateMultipart))
		})
	})

	r.Get("/healthz", h.HealthCheck)
}

// FindAll lists all products; sort=price orders them by ascending price.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) error {
	mLogger := h.loggerWithReqID(r)
	sortByPrice := r.URL.Query().Get("sort") == "price"
	mLogger.DebugContext(r.Context(), "Received request to find all products", "sortByPrice", sortByPrice)

	list, err := h.service.FindAll(r.Context(), sortByPrice)
	if err != nil {
		return err
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
	return nil
}

// FindByID retrieves a product by its ID.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) error {
	mLogger := h.loggerWithReqID(r)
	id := chi.URLParam(r, "id")
	mLogger.DebugContext(r.Context(), "Received request to find product by ID", "ID", id)

	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		return err
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product", "ID", found.ID, "Name", found.Name)
	web.RespondJSON(w, mLogger, http.StatusOK, found)
	return nil
}

// Create handles the creation of a new product from a JSON body.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) error {
	mLogger := h.loggerWithReqID(r)
	product, err := h.decodeJSON(r)
	if err != nil {
		return err
	}
	mLogger.DebugContext(r.Context(), "Received request to create product", "Name", product.Name)
	return h.create(w, r, product)
}

// CreateMultipart handles the creation of a new product from a multipart form.
func (h *Handler) CreateMultipart(w http.ResponseWriter, r *http.Request) error {
	mLogger := h.loggerWithReqID(r)
	product, err := h.decodeMultipart(r)
	if err != nil {
		return err
	}
	mLogger.DebugContext(r.Context(), "Received multipart request to create product", "Name", product.Name, "imageSize", len(product.Image))
	return h.create(w, r, product)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, product service.ProductInputDto) error {
	mLogger := h.loggerWithReqID(r)
	newProduct, err := h.service.Create(r.Context(), product)
	if err != nil {
		return err
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", "ID", newProduct.ID, "Name", newProduct.Name)
	web.RespondJSON(w, mLogger, http.StatusCreated, newProduct)
	return nil
}

// Update replaces a product's details from a JSON body.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) error {
	changes, err := h.decodeJSON(r)
	if err != nil {
		return err
	}
	return h.update(w, r, changes)
}

// UpdateMultipart replaces a product's details from a multipart form.
func (h *Handler) UpdateMultipart(w http.ResponseWriter, r *http.Request) error {
	changes, err := h.decodeMultipart(r)
	if err != nil {
		return err
	}
	return h.update(w, r, changes)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, changes service.ProductInputDto) error {
	mLogger := h.loggerWithReqID(r)
	id := chi.URLParam(r, "id")
	mLogger.DebugContext(r.Context(), "Received request to update product", "ID", id)

	updated, err := h.service.Update(r.Context(), id, changes)
	if err != nil {
		return err
	}
	mLogger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID, "Name", updated.Name)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
	return nil
}

// Image writes the stored image bytes of a product.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		return err
	}
	if len(found.Image) == 0 {
		return perrors.ErrProductNotFound
	}
	contentType := found.ImageContentType
	if contentType == "" {
		contentType = fallbackImageContentType
	}
	web.RespondBytes(w, http.StatusOK, contentType, found.Image)
	return nil
}

// DeleteByID deletes a product by its ID.
func (h *Handler) DeleteByID(w http.ResponseWriter, r *http.Request) error {
	mLogger := h.loggerWithReqID(r)
	id := chi.URLParam(r, "id")
	mLogger.DebugContext(r.Context(), "Received request to delete product", "ID", id)

	deleted, err := h.service.DeleteByID(r.Context(), id)
	if err != nil {
		return err
	}
	if !deleted {
		return perrors.ErrProductNotFound
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Search filters products by the optional name and category query parameters.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) error {
	mLogger := h.loggerWithReqID(r)
	name := r.URL.Query().Get("name")
	category := r.URL.Query().Get("category")
	mLogger.DebugContext(r.Context(), "Received request to search products", "name", name, "category", category)

	list, err := h.service.Search(r.Context(), name, category)
	if err != nil {
		return err
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
	return nil
}

// FindByPriceRange lists products priced between the min and max query parameters.
func (h *Handler) FindByPriceRange(w http.ResponseWriter, r *http.Request) error {
	mLogger := h.loggerWithReqID(r)
	minPrice, err := web.ParseFloatParam(r, "min", web.Gte(0))
	if err != nil {
		return err
	}
	maxPrice, err := web.ParseFloatParam(r, "max", web.Gte(0))
	if err != nil {
		return err
	}
	mLogger.DebugContext(r.Context(), "Received request to find products by price range", "min", minPrice, "max", maxPrice)

	list, err := h.service.FindByPriceRange(r.Context(), minPrice, maxPrice)
	if err != nil {
		return err
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
	return nil
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) decodeJSON(r *http.Request) (service.ProductInputDto, error) {
	var product service.ProductInputDto
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		return product, badRequest("Invalid request body", err)
	}
	if err := h.validate.Struct(product); err != nil {
		return product, err
	}
	return product, nil
}
