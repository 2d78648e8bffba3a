package service

import (
	"encoding/base64"

	"github.com/abgdnv/productcatalog/internal/store"
)

// DefaultImageContentType is used for stored images whose source did not name a MIME type.
const DefaultImageContentType = "image/*"

// normalizeImage fills p.Image from imageBase64 when no raw image was given and makes sure
// a stored image always has a content type. Undecodable base64 leaves p without an image.
func normalizeImage(p *store.Product, imageBase64 string) {
	if len(p.Image) == 0 && imageBase64 != "" {
		if decoded, ok := decodeBase64(imageBase64); ok {
			p.Image = decoded
		}
	}
	if len(p.Image) > 0 && p.ImageContentType == "" {
		p.ImageContentType = DefaultImageContentType
	}
}

// decodeBase64 accepts standard base64 with or without padding.
func decodeBase64(s string) ([]byte, bool) {
	if decoded, err := base64.StdEncoding.DecodeString(s); err == nil {
		return decoded, true
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return decoded, true
	}
	return nil, false
}
