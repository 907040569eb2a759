package repositories

import (
	"katalog/internal/models"
	"katalog/internal/pagination"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	Create(product *models.Product) error
	GetByID(id string) (*models.Product, error)
	Update(product *models.Product) error
	Delete(id string) error
	// List returns up to limit products in insertion order, filtered by a
	// substring search over name and description when search is non-empty,
	// and positioned after cursor when cursor is non-nil.
	List(search string, cursor *pagination.Cursor, limit int) ([]models.Product, error)
}
