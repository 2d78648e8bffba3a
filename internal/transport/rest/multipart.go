package rest

import (
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/abgdnv/productcatalog/internal/service"
)

// decodeMultipart reads a product from a multipart form with the fields
// name, price, description, category and an optional image file part.
func (h *Handler) decodeMultipart(r *http.Request) (service.ProductInputDto, error) {
	var product service.ProductInputDto
	if err := r.ParseMultipartForm(h.multipartMaxMemory); err != nil {
		return product, badRequest("Invalid multipart form", err)
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	product.Name = r.FormValue("name")
	product.Description = r.FormValue("description")
	product.Category = r.FormValue("category")

	if raw := r.FormValue("price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
			return product, badRequest("Invalid price number: "+raw, err)
		}
		product.Price = &price
	}

	image, contentType, err := readImagePart(r)
	if err != nil {
		return product, err
	}
	product.Image = image
	product.ImageContentType = contentType

	if err := h.validate.Struct(product); err != nil {
		return product, err
	}
	return product, nil
}

// readImagePart returns the bytes and declared content type of the image part.
// A missing or empty part yields no image.
func readImagePart(r *http.Request) ([]byte, string, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", nil
		}
		return nil, "", badRequest("Invalid image part", err)
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	if header.Size == 0 {
		return nil, "", nil
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", badRequest("Failed to read image part", err)
	}
	if len(data) == 0 {
		return nil, "", nil
	}
	return data, header.Header.Get("Content-Type"), nil
}
