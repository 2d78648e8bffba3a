// Package e2e provides end-to-end tests for the product service.
// The suite runs the real application handler in an `httptest.Server` and drives it over HTTP.
// It runs twice: against the in-memory store, and against a MongoDB container started with
// `testcontainers-go` (skipped with -short or when PRODUCT_SKIP_INTEGRATION_TESTS=true).
//
// Test coverage includes:
//   - CRUD over JSON and multipart bodies.
//   - Image upload as raw bytes or base64, and image download.
//   - Sorting by price, search dispatch and price range queries.
//   - Status mapping for unknown and malformed ids and for invalid input.
//   - CORS preflight for the configured origin.
package e2e

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"
	"time"

	"github.com/abgdnv/productcatalog/internal/app"
	"github.com/abgdnv/productcatalog/internal/config"
	"github.com/abgdnv/productcatalog/internal/service"
	"github.com/abgdnv/productcatalog/internal/store"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// skipIntegrationTests is the environment variable that can be set to skip container based tests.
const skipIntegrationTests = "PRODUCT_SKIP_INTEGRATION_TESTS"

// productURL is the base URL for the product API.
const productURL = "/api/products"

const allowedOrigin = "http://localhost:3000"

// ProductServiceE2ESuite is a test suite for end-to-end tests of the product service.
type ProductServiceE2ESuite struct {
	suite.Suite
	// newStore returns an empty product store for the next test.
	newStore   func() store.ProductStore
	server     *httptest.Server
	httpClient *http.Client
	appCfg     *config.Config
	logger     *slog.Logger
	ctx        context.Context
}

// testConfig creates a configuration for the product service application.
func testConfig() *config.Config {
	var cfg config.Config
	cfg.HTTPServer.MultipartMaxMemory = 1 << 20
	cfg.CORS.AllowedOrigin = allowedOrigin
	return &cfg
}

func (s *ProductServiceE2ESuite) setupApp() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s.appCfg = testConfig()
}

// SetupTest starts a fresh server over an empty store for every test.
func (s *ProductServiceE2ESuite) SetupTest() {
	deps := app.SetupDependencies(s.newStore(), s.logger)
	s.server = httptest.NewServer(app.SetupHttpHandler(deps, s.appCfg))
	s.httpClient = s.server.Client()
}

func (s *ProductServiceE2ESuite) TearDownTest() {
	if s.server != nil {
		s.server.Close()
	}
}

// InMemoryE2ESuite runs the end-to-end tests against the in-memory store.
type InMemoryE2ESuite struct {
	ProductServiceE2ESuite
}

func (s *InMemoryE2ESuite) SetupSuite() {
	s.setupApp()
	s.newStore = func() store.ProductStore { return store.NewInMemoryStore() }
}

func TestProductServiceE2E_InMemory(t *testing.T) {
	suite.Run(t, new(InMemoryE2ESuite))
}

// MongoE2ESuite runs the end-to-end tests against MongoDB in a container.
type MongoE2ESuite struct {
	ProductServiceE2ESuite
	container *mongodb.MongoDBContainer
	client    *mongo.Client
}

func (s *MongoE2ESuite) SetupSuite() {
	s.setupApp()
	var err error

	s.container, err = mongodb.Run(s.ctx, "mongo:7")
	require.NoError(s.T(), err, "Failed to run MongoDB container")

	uri, err := s.container.ConnectionString(s.ctx)
	require.NoError(s.T(), err, "Failed to get connection string from container")
	s.client, err = mongo.Connect(s.ctx, options.Client().ApplyURI(uri))
	require.NoError(s.T(), err, "Failed to connect to MongoDB")
	for range 10 {
		if err = s.client.Ping(s.ctx, readpref.Primary()); err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(s.T(), err, "Failed to ping MongoDB after retries")

	coll := s.client.Database("productdb").Collection("products")
	s.newStore = func() store.ProductStore {
		_, err := coll.DeleteMany(s.ctx, bson.M{})
		s.Require().NoError(err, "Failed to empty products collection")
		return store.NewMongoStore(coll)
	}
}

func (s *MongoE2ESuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Disconnect(s.ctx)
	}
	if s.container != nil {
		if err := testcontainers.TerminateContainer(s.container); err != nil {
			s.logger.Warn("Failed to terminate E2E MongoDB container", "error", err)
		}
	}
}

func TestProductServiceE2E_Mongo(t *testing.T) {
	if testing.Short() || os.Getenv(skipIntegrationTests) == "true" {
		t.Skip("Skipping MongoDB E2E tests")
	}
	suite.Run(t, new(MongoE2ESuite))
}

// --------------------------------------------------------------------------
// ------------------------------- Test cases -------------------------------
// --------------------------------------------------------------------------

func (s *ProductServiceE2ESuite) TestCreateAndFind() {
	// given
	payload := productPayload{Name: "Blue Shirt", Price: 19.99, Description: "cotton", Category: "Clothing"}

	// when
	created, code := s.createProduct(payload)

	// then
	s.Require().Equal(http.StatusCreated, code)
	s.NotEmpty(created.ID)
	found, code := s.findByID(created.ID)
	s.Require().Equal(http.StatusOK, code)
	s.Equal(created, found)
	s.Equal("Blue Shirt", found.Name)
	s.InDelta(19.99, found.Price, 0)
}

func (s *ProductServiceE2ESuite) TestCreate_Validation() {
	testCases := []struct {
		name string
		body string
	}{
		{name: "missing name", body: `{"price":1}`},
		{name: "missing price", body: `{"name":"x"}`},
		{name: "negative price", body: `{"name":"x","price":-0.01}`},
		{name: "malformed JSON", body: `{"name":`},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			resp := s.do(http.MethodPost, s.server.URL+productURL, "application/json", bytes.NewBufferString(tc.body))
			defer closeBody(resp)
			s.Equal(http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func (s *ProductServiceE2ESuite) TestFindByID_UnknownAndMalformed() {
	for _, id := range []string{primitive.NewObjectID().Hex(), "not-an-object-id"} {
		resp := s.do(http.MethodGet, s.server.URL+productURL+"/"+id, "", nil)
		body := readBody(s.T(), resp)
		s.Equal(http.StatusNotFound, resp.StatusCode, id)
		s.Empty(body)
	}
}

func (s *ProductServiceE2ESuite) TestFindAll_SortByPrice() {
	// given
	for _, p := range []productPayload{
		{Name: "A", Price: 30},
		{Name: "B", Price: 10},
		{Name: "C", Price: 30},
		{Name: "D", Price: 20},
	} {
		_, code := s.createProduct(p)
		s.Require().Equal(http.StatusCreated, code)
	}

	// when
	unsorted, code := s.listProducts(s.server.URL + productURL)
	s.Require().Equal(http.StatusOK, code)
	sorted, code := s.listProducts(s.server.URL + productURL + "?sort=price")
	s.Require().Equal(http.StatusOK, code)

	// then
	s.Equal([]string{"A", "B", "C", "D"}, names(unsorted))
	s.Equal([]string{"B", "D", "A", "C"}, names(sorted))
}

func (s *ProductServiceE2ESuite) TestCreate_Base64Image() {
	// given
	payload := productPayload{
		Name: "Lamp", Price: 5,
		ImageBase64: base64.StdEncoding.EncodeToString([]byte("lamp-image")),
	}

	// when
	created, code := s.createProduct(payload)

	// then
	s.Require().Equal(http.StatusCreated, code)
	s.Equal([]byte("lamp-image"), created.Image)
	s.Equal(service.DefaultImageContentType, created.ImageContentType)

	image, contentType, code := s.fetchImage(created.ID)
	s.Equal(http.StatusOK, code)
	s.Equal("image/*", contentType)
	s.Equal([]byte("lamp-image"), image)
}

func (s *ProductServiceE2ESuite) TestCreate_InvalidBase64IsIgnored() {
	created, code := s.createProduct(productPayload{Name: "Lamp", Price: 5, ImageBase64: "***"})
	s.Require().Equal(http.StatusCreated, code)
	s.Empty(created.Image)
	s.Empty(created.ImageContentType)

	_, _, code = s.fetchImage(created.ID)
	s.Equal(http.StatusNotFound, code)
}

func (s *ProductServiceE2ESuite) TestMultipart_CreateAndUpdate() {
	// given
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	body, contentType := multipartProduct(s.T(), map[string]string{
		"name": "Poster", "price": "7.5", "description": "wall", "category": "Decor",
	}, png, "image/png")

	// when
	created, code := s.doAndDecodeProduct(http.MethodPost, s.server.URL+productURL+"/multipart/create", contentType, body)

	// then
	s.Require().Equal(http.StatusCreated, code)
	s.Equal("Poster", created.Name)
	s.Equal(png, created.Image)
	s.Equal("image/png", created.ImageContentType)

	// an update without an image keeps the stored one
	body, contentType = multipartProduct(s.T(), map[string]string{
		"name": "Poster XL", "price": "9", "description": "", "category": "Decor",
	}, nil, "")
	updated, code := s.doAndDecodeProduct(http.MethodPut, s.server.URL+productURL+"/"+created.ID+"/multipart", contentType, body)
	s.Require().Equal(http.StatusOK, code)
	s.Equal("Poster XL", updated.Name)
	s.Empty(updated.Description)
	s.Equal(png, updated.Image)

	image, imageType, code := s.fetchImage(created.ID)
	s.Equal(http.StatusOK, code)
	s.Equal("image/png", imageType)
	s.Equal(png, image)
}

func (s *ProductServiceE2ESuite) TestMultipart_InvalidPrice() {
	body, contentType := multipartProduct(s.T(), map[string]string{"name": "Poster", "price": "seven"}, nil, "")
	resp := s.do(http.MethodPost, s.server.URL+productURL+"/multipart/create", contentType, body)
	defer closeBody(resp)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *ProductServiceE2ESuite) TestUpdate() {
	// given
	created, code := s.createProduct(productPayload{
		Name: "Old", Price: 1, Category: "A",
		ImageBase64: base64.StdEncoding.EncodeToString([]byte("keep")),
	})
	s.Require().Equal(http.StatusCreated, code)

	// when
	updated, code := s.updateProduct(created.ID, productPayload{Name: "New", Price: 2, Category: "B"})

	// then
	s.Require().Equal(http.StatusOK, code)
	s.Equal(created.ID, updated.ID)
	s.Equal("New", updated.Name)
	s.InDelta(2, updated.Price, 0)
	s.Equal("B", updated.Category)
	s.Equal([]byte("keep"), updated.Image)

	_, code = s.updateProduct(primitive.NewObjectID().Hex(), productPayload{Name: "New", Price: 2})
	s.Equal(http.StatusNotFound, code)
	_, code = s.updateProduct("bad-id", productPayload{Name: "New", Price: 2})
	s.Equal(http.StatusNotFound, code)
}

func (s *ProductServiceE2ESuite) TestDelete() {
	// given
	created, code := s.createProduct(productPayload{Name: "Gone", Price: 1})
	s.Require().Equal(http.StatusCreated, code)
	deleteURL := s.server.URL + productURL + "/" + created.ID

	// when
	first := s.do(http.MethodDelete, deleteURL, "", nil)
	closeBody(first)
	second := s.do(http.MethodDelete, deleteURL, "", nil)
	closeBody(second)
	malformed := s.do(http.MethodDelete, s.server.URL+productURL+"/bad-id", "", nil)
	closeBody(malformed)

	// then
	s.Equal(http.StatusNoContent, first.StatusCode)
	s.Equal(http.StatusNotFound, second.StatusCode)
	s.Equal(http.StatusNotFound, malformed.StatusCode)
	_, code = s.findByID(created.ID)
	s.Equal(http.StatusNotFound, code)
}

func (s *ProductServiceE2ESuite) TestSearch() {
	// given
	for _, p := range []productPayload{
		{Name: "Blue Shirt", Price: 20, Category: "Clothing"},
		{Name: "Red shirt", Price: 25, Category: "Sale"},
		{Name: "Jacket", Price: 80, Category: "Clothing"},
	} {
		_, code := s.createProduct(p)
		s.Require().Equal(http.StatusCreated, code)
	}
	testCases := []struct {
		name     string
		query    string
		expected []string
	}{
		{name: "name and category", query: "?name=SHIRT&category=clothing", expected: []string{"Blue Shirt"}},
		{name: "name only", query: "?name=shirt", expected: []string{"Blue Shirt", "Red shirt"}},
		{name: "category only", query: "?category=Clothing", expected: []string{"Blue Shirt", "Jacket"}},
		{name: "no criteria", query: "", expected: []string{"Blue Shirt", "Red shirt", "Jacket"}},
		{name: "blank criteria", query: "?name=%20&category=%20", expected: []string{"Blue Shirt", "Red shirt", "Jacket"}},
		{name: "regex characters are literal", query: "?name=.*", expected: []string{}},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			found, code := s.listProducts(s.server.URL + productURL + "/search" + tc.query)
			s.Require().Equal(http.StatusOK, code)
			s.ElementsMatch(tc.expected, names(found))
		})
	}
}

func (s *ProductServiceE2ESuite) TestPriceRange() {
	// given
	for _, p := range []productPayload{{Name: "A", Price: 5}, {Name: "B", Price: 10}, {Name: "C", Price: 15}} {
		_, code := s.createProduct(p)
		s.Require().Equal(http.StatusCreated, code)
	}

	// when
	found, code := s.listProducts(s.server.URL + productURL + "/price-range?min=5&max=10")

	// then
	s.Require().Equal(http.StatusOK, code)
	s.ElementsMatch([]string{"A", "B"}, names(found))

	resp := s.do(http.MethodGet, s.server.URL+productURL+"/price-range?min=10&max=5", "", nil)
	closeBody(resp)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *ProductServiceE2ESuite) TestCORSPreflight() {
	// given
	req, err := http.NewRequest(http.MethodOptions, s.server.URL+productURL, nil)
	s.Require().NoError(err)
	req.Header.Set("Origin", allowedOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	// when
	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer closeBody(resp)

	// then
	s.Equal(http.StatusNoContent, resp.StatusCode)
	s.Equal(allowedOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
}

func (s *ProductServiceE2ESuite) TestRequestIDHeader() {
	resp := s.do(http.MethodGet, s.server.URL+"/healthz", "", nil)
	closeBody(resp)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.NotEmpty(resp.Header.Get("X-Request-Id"))
}

// --------------------------------------------------------------------------
// ---------- Payload structures and Helper methods for E2E tests -----------
// --------------------------------------------------------------------------

// productPayload is the JSON body of create and update requests.
type productPayload struct {
	Name             string  `json:"name"`
	Price            float64 `json:"price"`
	Description      string  `json:"description,omitempty"`
	Category         string  `json:"category,omitempty"`
	ImageContentType string  `json:"imageContentType,omitempty"`
	ImageBase64      string  `json:"imageBase64,omitempty"`
}

func (s *ProductServiceE2ESuite) findByID(id string) (service.ProductDto, int) {
	s.T().Helper()
	return s.doAndDecodeProduct(http.MethodGet, s.server.URL+productURL+"/"+id, "", nil)
}

func (s *ProductServiceE2ESuite) createProduct(payload productPayload) (service.ProductDto, int) {
	s.T().Helper()
	return s.doAndDecodeProduct(http.MethodPost, s.server.URL+productURL, "application/json", jsonBody(s.T(), payload))
}

func (s *ProductServiceE2ESuite) updateProduct(id string, payload productPayload) (service.ProductDto, int) {
	s.T().Helper()
	return s.doAndDecodeProduct(http.MethodPut, s.server.URL+productURL+"/"+id, "application/json", jsonBody(s.T(), payload))
}

func (s *ProductServiceE2ESuite) fetchImage(id string) ([]byte, string, int) {
	s.T().Helper()
	resp := s.do(http.MethodGet, s.server.URL+productURL+"/"+id+"/image", "", nil)
	body := readBody(s.T(), resp)
	return body, resp.Header.Get("Content-Type"), resp.StatusCode
}

func (s *ProductServiceE2ESuite) listProducts(url string) ([]service.ProductDto, int) {
	s.T().Helper()
	resp := s.do(http.MethodGet, url, "", nil)
	body := readBody(s.T(), resp)
	var list []service.ProductDto
	if resp.StatusCode == http.StatusOK {
		require.NoError(s.T(), json.Unmarshal(body, &list), "Failed to decode product list")
	}
	return list, resp.StatusCode
}

// doAndDecodeProduct sends a request and decodes a product from a 2xx response.
func (s *ProductServiceE2ESuite) doAndDecodeProduct(method, url, contentType string, body io.Reader) (service.ProductDto, int) {
	s.T().Helper()
	resp := s.do(method, url, contentType, body)
	raw := readBody(s.T(), resp)
	var product service.ProductDto
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		require.NoError(s.T(), json.Unmarshal(raw, &product), "Failed to decode product")
	}
	return product, resp.StatusCode
}

func (s *ProductServiceE2ESuite) do(method, url, contentType string, body io.Reader) *http.Response {
	s.T().Helper()
	req, err := http.NewRequestWithContext(s.ctx, method, url, body)
	require.NoError(s.T(), err, "Failed to create request")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err, "Failed to send request")
	return resp
}

func jsonBody(t *testing.T, payload any) io.Reader {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err, "Failed to marshal payload")
	return bytes.NewReader(b)
}

// multipartProduct builds a multipart form; a nil image omits the file part.
func multipartProduct(t *testing.T, fields map[string]string, image []byte, imageType string) (io.Reader, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="image"`)
		if imageType != "" {
			h.Set("Content-Type", imageType)
		}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer closeBody(resp)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "Failed to read response body")
	return b
}

func closeBody(resp *http.Response) {
	_ = resp.Body.Close()
}

func names(products []service.ProductDto) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}
