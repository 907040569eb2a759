package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"katalog/internal/apperr"
	"katalog/internal/services"
)

// ProductWebHandler serves the server-rendered variant of the product routes.
// Mutations redirect back to the listing with a flash message; views get the
// plain result values.
type ProductWebHandler struct {
	service *services.ProductService
	store   *session.Store
}

// NewProductWebHandler creates a new ProductWebHandler.
func NewProductWebHandler(service *services.ProductService, store *session.Store) *ProductWebHandler {
	return &ProductWebHandler{
		service: service,
		store:   store,
	}
}

// RegisterRoutes registers the page routes with the Fiber app. "/create" must
// come before "/:id".
func (h *ProductWebHandler) RegisterRoutes(router fiber.Router) {
	products := router.Group("/products")
	products.Get("/", h.HandleIndex)
	products.Get("/create", h.HandleCreateForm)
	products.Post("/", h.HandleStore)
	products.Get("/:id", h.HandleShow)
	products.Get("/:id/edit", h.HandleEditForm)
	products.Post("/:id", h.HandleUpdate)
	products.Post("/:id/delete", h.HandleDestroy)
}

// HandleIndex renders the paginated product listing with the search box.
func (h *ProductWebHandler) HandleIndex(c *fiber.Ctx) error {
	search := c.Query("search")
	page, err := h.service.List(search, c.Query("cursor"))
	if err != nil {
		return err
	}

	nextCursor := ""
	if page.NextCursor != nil {
		nextCursor = *page.NextCursor
	}

	return c.Render("products/index", fiber.Map{
		"Title":      "Products",
		"Products":   page.Items,
		"Search":     search,
		"NextCursor": nextCursor,
		"Success":    h.takeFlash(c, "success"),
		"Error":      h.takeFlash(c, "error"),
	}, "layouts/main")
}

// HandleCreateForm renders the empty product form.
func (h *ProductWebHandler) HandleCreateForm(c *fiber.Ctx) error {
	return c.Render("products/create", fiber.Map{
		"Title": "New Product",
		"Error": h.takeFlash(c, "error"),
	}, "layouts/main")
}

// HandleStore creates a product from the submitted form and redirects back to
// the listing.
func (h *ProductWebHandler) HandleStore(c *fiber.Ctx) error {
	img, err := imageFromForm(c)
	if err != nil {
		h.flash(c, "error", "Could not read the uploaded image.")
		return c.Redirect("/products/create", fiber.StatusFound)
	}

	if _, err := h.service.Create(productInputFromForm(c), img); err != nil {
		h.flash(c, "error", flashMessage(err, "Product could not be created."))
		return c.Redirect("/products", fiber.StatusFound)
	}

	h.flash(c, "success", "Product created successfully.")
	return c.Redirect("/products", fiber.StatusFound)
}

// HandleShow renders a single product.
func (h *ProductWebHandler) HandleShow(c *fiber.Ctx) error {
	product, err := h.service.GetByID(c.Params("id"))
	if err != nil {
		var nfErr *apperr.NotFoundError
		if errors.As(err, &nfErr) {
			h.flash(c, "error", "Product not found.")
			return c.Redirect("/products", fiber.StatusFound)
		}
		return err
	}

	return c.Render("products/show", fiber.Map{
		"Title":   product.Name,
		"Product": product,
	}, "layouts/main")
}

// HandleEditForm renders the form prefilled with the product's fields.
func (h *ProductWebHandler) HandleEditForm(c *fiber.Ctx) error {
	product, err := h.service.GetByID(c.Params("id"))
	if err != nil {
		var nfErr *apperr.NotFoundError
		if errors.As(err, &nfErr) {
			h.flash(c, "error", "Product not found.")
			return c.Redirect("/products", fiber.StatusFound)
		}
		return err
	}

	return c.Render("products/edit", fiber.Map{
		"Title":   "Edit " + product.Name,
		"Product": product,
		"Error":   h.takeFlash(c, "error"),
	}, "layouts/main")
}

// HandleUpdate replaces the product's fields from the submitted form. All
// fields are resent on every update, description included.
func (h *ProductWebHandler) HandleUpdate(c *fiber.Ctx) error {
	id := c.Params("id")

	img, err := imageFromForm(c)
	if err != nil {
		h.flash(c, "error", "Could not read the uploaded image.")
		return c.Redirect("/products/"+id+"/edit", fiber.StatusFound)
	}

	if _, err := h.service.Update(id, productInputFromForm(c), img); err != nil {
		h.flash(c, "error", flashMessage(err, "Product could not be updated."))
		return c.Redirect("/products", fiber.StatusFound)
	}

	h.flash(c, "success", "Product updated successfully.")
	return c.Redirect("/products", fiber.StatusFound)
}

// HandleDestroy deletes a product and redirects back to the listing.
func (h *ProductWebHandler) HandleDestroy(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Params("id")); err != nil {
		h.flash(c, "error", flashMessage(err, "Product could not be deleted."))
		return c.Redirect("/products", fiber.StatusFound)
	}

	h.flash(c, "success", "Product deleted successfully.")
	return c.Redirect("/products", fiber.StatusFound)
}

// flashMessage picks the message the listing shows for a failed mutation.
// Validation details stay behind the generic message in this variant; the
// JSON API is the surface that exposes the per-field map.
func flashMessage(err error, fallback string) string {
	var vErr *apperr.ValidationError
	if errors.As(err, &vErr) {
		return "Please check the submitted fields and try again."
	}
	var nfErr *apperr.NotFoundError
	if errors.As(err, &nfErr) {
		return "Product not found."
	}
	return fallback
}

func (h *ProductWebHandler) flash(c *fiber.Ctx, key, message string) {
	sess, err := h.store.Get(c)
	if err != nil {
		return
	}
	sess.Set(key, message)
	_ = sess.Save()
}

// takeFlash reads and clears a flash message.
func (h *ProductWebHandler) takeFlash(c *fiber.Ctx, key string) string {
	sess, err := h.store.Get(c)
	if err != nil {
		return ""
	}
	message, _ := sess.Get(key).(string)
	if message != "" {
		sess.Delete(key)
		_ = sess.Save()
	}
	return message
}
