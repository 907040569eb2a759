package handlers

import (
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"

	"katalog/internal/services"
)

// productInputFromForm collects the product fields from a form submission.
func productInputFromForm(c *fiber.Ctx) services.ProductInput {
	return services.ProductInput{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Price:       c.FormValue("price"),
		Quantity:    c.FormValue("quantity"),
	}
}

// imageFromForm reads the optional "image" file of a multipart submission.
// It returns nil without error when no file was attached.
func imageFromForm(c *fiber.Ctx) (*services.ImageUpload, error) {
	header, err := c.FormFile("image")
	if err != nil {
		return nil, nil
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded image: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded image: %w", err)
	}
	return &services.ImageUpload{Filename: header.Filename, Data: data}, nil
}
