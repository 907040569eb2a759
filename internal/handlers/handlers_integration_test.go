package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/template/html/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"katalog/internal/handlers"
	"katalog/internal/models"
	"katalog/internal/repositories"
	"katalog/internal/services"
	"katalog/internal/storage"
)

// setupApp builds the Fiber app on an in-memory SQLite database and an
// in-memory blob store, with both the API and the page handlers registered.
func setupApp(t *testing.T) (*fiber.App, *repositories.GORMProductRepository, *storage.LocalStorage) {
	t.Helper()

	// A named in-memory database keeps the pooled connections on the same
	// store while isolating tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "failed to connect to in-memory database")
	require.NoError(t, db.AutoMigrate(&models.Product{}))

	productRepo := repositories.NewGORMProductRepository(db)
	blobs := storage.NewLocalStorage(afero.NewMemMapFs())
	productService := services.NewProductService(productRepo, blobs, zerolog.Nop())

	engine := html.New("../../views", ".html")
	app := fiber.New(fiber.Config{Views: engine})

	api := app.Group("/api")
	handlers.NewProductAPIHandler(productService).RegisterRoutes(api)
	handlers.NewProductWebHandler(productService, session.New()).RegisterRoutes(app)

	return app, productRepo, blobs
}

// multipartBody builds a multipart form with the given fields and an optional
// image file.
func multipartBody(t *testing.T, fields map[string]string, imageName string, imageData []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if imageName != "" {
		part, err := writer.CreateFormFile("image", imageName)
		require.NoError(t, err)
		_, err = part.Write(imageData)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func pngBytes() []byte {
	return []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out), "body: %s", data)
}

func TestAPI_CreateShowUpdateDelete(t *testing.T) {
	app, _, _ := setupApp(t)

	// Create via multipart form with an image.
	body, contentType := multipartBody(t, map[string]string{
		"name":        "Widget A",
		"description": "A very useful widget",
		"price":       "9.99",
		"quantity":    "10",
	}, "widget.png", pngBytes())

	req := httptest.NewRequest(http.MethodPost, "/api/products", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Message string         `json:"message"`
		Product models.Product `json:"product"`
	}
	decodeJSON(t, resp, &created)
	assert.Equal(t, "Product created successfully.", created.Message)
	require.NotEmpty(t, created.Product.ID)
	assert.Equal(t, "Widget A", created.Product.Name)
	assert.Equal(t, 9.99, created.Product.Price)
	assert.Equal(t, 10, created.Product.Quantity)
	assert.True(t, strings.HasPrefix(created.Product.Image, storage.ProductImageDir+"/"))

	// Show round-trips the stored values.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/products/"+created.Product.ID, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var shown models.Product
	decodeJSON(t, resp, &shown)
	assert.Equal(t, created.Product.ID, shown.ID)
	assert.Equal(t, "A very useful widget", shown.Description)

	// Update via JSON body.
	payload := []byte(`{"name":"Widget A v2","description":"now with more widget","price":12.5,"quantity":8}`)
	req = httptest.NewRequest(http.MethodPut, "/api/products/"+created.Product.ID, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var updated struct {
		Message string         `json:"message"`
		Product models.Product `json:"product"`
	}
	decodeJSON(t, resp, &updated)
	assert.Equal(t, "Widget A v2", updated.Product.Name)
	assert.Equal(t, 12.5, updated.Product.Price)
	assert.Equal(t, created.Product.Image, updated.Product.Image, "image untouched without a new upload")

	// Delete, then the product is gone.
	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/products/"+created.Product.ID, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/products/"+created.Product.ID, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_CreateValidationFailure(t *testing.T) {
	app, _, _ := setupApp(t)

	payload := []byte(`{"description":"no name, price, or quantity"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/products", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var result struct {
		Errors map[string][]string `json:"errors"`
	}
	decodeJSON(t, resp, &result)
	assert.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors, "name")
	assert.Contains(t, result.Errors, "price")
	assert.Contains(t, result.Errors, "quantity")
}

func TestAPI_CreateRejectsNonImageUpload(t *testing.T) {
	app, _, _ := setupApp(t)

	body, contentType := multipartBody(t, map[string]string{
		"name":     "Widget A",
		"price":    "9.99",
		"quantity": "10",
	}, "notes.txt", []byte("plain text, not an image"))

	req := httptest.NewRequest(http.MethodPost, "/api/products", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var result struct {
		Errors map[string][]string `json:"errors"`
	}
	decodeJSON(t, resp, &result)
	assert.Contains(t, result.Errors, "image")
}

func TestAPI_UpdateNotFound(t *testing.T) {
	app, _, _ := setupApp(t)

	payload := []byte(`{"name":"X","price":1,"quantity":1}`)
	req := httptest.NewRequest(http.MethodPut, "/api/products/missing", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// seedProducts inserts count products with deterministic ids and spaced
// created_at values. widgetIdx marks which (zero-based) ones mention widgets.
func seedProducts(t *testing.T, repo *repositories.GORMProductRepository, count int, widgetIdx ...int) {
	t.Helper()

	isWidget := make(map[int]bool, len(widgetIdx))
	for _, i := range widgetIdx {
		isWidget[i] = true
	}

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		product := &models.Product{
			ID:        fmt.Sprintf("prod-%02d", i+1),
			Name:      fmt.Sprintf("Gadget %02d", i+1),
			Price:     float64(i) + 0.99,
			Quantity:  i + 1,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if isWidget[i] {
			product.Description = "a fine widget"
		}
		require.NoError(t, repo.Create(product))
	}
}

type pageResponse struct {
	Data       []models.Product `json:"data"`
	PerPage    int              `json:"per_page"`
	NextCursor *string          `json:"next_cursor"`
}

func TestAPI_ListCursorWalk(t *testing.T) {
	app, repo, _ := setupApp(t)
	seedProducts(t, repo, 12)

	var seen []string
	url := "/api/products"
	pages := 0
	for {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, url, nil), -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var page pageResponse
		decodeJSON(t, resp, &page)
		assert.Equal(t, 5, page.PerPage)
		for _, p := range page.Data {
			seen = append(seen, p.ID)
		}
		pages++

		if page.NextCursor == nil {
			assert.Less(t, len(page.Data), 5, "last page carries the remainder")
			break
		}
		assert.Len(t, page.Data, 5)
		url = "/api/products?cursor=" + *page.NextCursor
	}

	assert.Equal(t, 3, pages)
	require.Len(t, seen, 12, "cursor walk yields every product exactly once")
	unique := make(map[string]bool)
	for _, id := range seen {
		assert.False(t, unique[id], "no overlap between pages: %s", id)
		unique[id] = true
	}
}

func TestAPI_ListSearch(t *testing.T) {
	app, repo, _ := setupApp(t)
	seedProducts(t, repo, 12, 0, 5, 9)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/products?search=widget", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page pageResponse
	decodeJSON(t, resp, &page)
	require.Len(t, page.Data, 3, "exactly the seeded widget products match")
	assert.Nil(t, page.NextCursor)
	assert.Equal(t, "prod-01", page.Data[0].ID)
	assert.Equal(t, "prod-06", page.Data[1].ID)
	assert.Equal(t, "prod-10", page.Data[2].ID)
}

func TestWeb_IndexRenders(t *testing.T) {
	app, repo, _ := setupApp(t)
	seedProducts(t, repo, 2)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/products", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Gadget 01")
	assert.Contains(t, string(data), "Gadget 02")
}

func TestWeb_CreateFormAndStore(t *testing.T) {
	app, repo, _ := setupApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/products/create", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	form := strings.NewReader("name=Widget+A&description=useful&price=9.99&quantity=10")
	req := httptest.NewRequest(http.MethodPost, "/products", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/products", resp.Header.Get("Location"))

	products, err := repo.List("", nil, 10)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Widget A", products[0].Name)
}

func TestWeb_DestroyRedirects(t *testing.T) {
	app, repo, _ := setupApp(t)
	seedProducts(t, repo, 1)

	req := httptest.NewRequest(http.MethodPost, "/products/prod-01/delete", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	_, err = repo.GetByID("prod-01")
	assert.Error(t, err)
}
