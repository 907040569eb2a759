package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"katalog/internal/apperr"
	"katalog/internal/services"
)

// ProductAPIHandler serves the JSON variant of the product routes.
type ProductAPIHandler struct {
	service *services.ProductService
}

// NewProductAPIHandler creates a new ProductAPIHandler.
func NewProductAPIHandler(service *services.ProductService) *ProductAPIHandler {
	return &ProductAPIHandler{
		service: service,
	}
}

// RegisterRoutes registers the product API routes with the Fiber app.
func (h *ProductAPIHandler) RegisterRoutes(router fiber.Router) {
	products := router.Group("/products")
	products.Get("/", h.HandleList)
	products.Post("/", h.HandleCreate)
	products.Get("/:id", h.HandleShow)
	products.Put("/:id", h.HandleUpdate)
	products.Patch("/:id", h.HandleUpdate)
	products.Delete("/:id", h.HandleDelete)
}

// productPayload mirrors the JSON body of create and update requests. Price
// and quantity are numbers on the wire; json.Number keeps them verbatim for
// the service's own parsing.
type productPayload struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	Quantity    json.Number `json:"quantity"`
}

// parseRequest accepts either a multipart form (fields plus an optional image
// file) or a JSON body (no file).
func parseRequest(c *fiber.Ctx) (services.ProductInput, *services.ImageUpload, error) {
	if form, err := c.MultipartForm(); err == nil && form != nil {
		img, err := imageFromForm(c)
		if err != nil {
			return services.ProductInput{}, nil, err
		}
		return productInputFromForm(c), img, nil
	}

	var payload productPayload
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return services.ProductInput{}, nil, err
	}
	return services.ProductInput{
		Name:        payload.Name,
		Description: payload.Description,
		Price:       payload.Price.String(),
		Quantity:    payload.Quantity.String(),
	}, nil, nil
}

// HandleList returns one page of products, optionally filtered by the search
// query parameter and positioned by the cursor parameter.
func (h *ProductAPIHandler) HandleList(c *fiber.Ctx) error {
	page, err := h.service.List(c.Query("search"), c.Query("cursor"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// HandleCreate creates a new product.
func (h *ProductAPIHandler) HandleCreate(c *fiber.Ctx) error {
	input, img, err := parseRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	product, err := h.service.Create(input, img)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Product created successfully.",
		"product": product,
	})
}

// HandleShow returns a single product by its ID.
func (h *ProductAPIHandler) HandleShow(c *fiber.Ctx) error {
	product, err := h.service.GetByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// HandleUpdate replaces the fields of an existing product.
func (h *ProductAPIHandler) HandleUpdate(c *fiber.Ctx) error {
	input, img, err := parseRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	product, err := h.service.Update(c.Params("id"), input, img)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Product updated successfully.",
		"product": product,
	})
}

// HandleDelete removes a product.
func (h *ProductAPIHandler) HandleDelete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Product deleted successfully.",
	})
}

// respondError maps service errors onto the API status contract: 422 with a
// per-field error map for validation failures, 404 for unresolved ids, and a
// generic 500 for everything else.
func respondError(c *fiber.Ctx, err error) error {
	var vErr *apperr.ValidationError
	if errors.As(err, &vErr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"errors": vErr.Fields,
		})
	}

	var nfErr *apperr.NotFoundError
	if errors.As(err, &nfErr) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": nfErr.Error(),
		})
	}

	// The underlying storage cause is logged by the service, not exposed.
	var sErr *apperr.StorageError
	if errors.As(err, &sErr) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Something went wrong.",
			"error":   "failed to store product image",
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Something went wrong.",
		"error":   err.Error(),
	})
}
