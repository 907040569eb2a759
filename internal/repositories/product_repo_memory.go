package repositories

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"katalog/internal/apperr"
	"katalog/internal/models"
	"katalog/internal/pagination"
)

// InMemoryProductRepository is a map-backed implementation of
// ProductRepository. It backs the server when no database is configured and
// keeps tests independent of a database driver.
type InMemoryProductRepository struct {
	products map[string]models.Product
	mu       sync.RWMutex
}

// NewInMemoryProductRepository creates a new instance of InMemoryProductRepository.
func NewInMemoryProductRepository() *InMemoryProductRepository {
	return &InMemoryProductRepository{
		products: make(map[string]models.Product),
	}
}

// Create adds a new product, assigning an ID and timestamps when unset.
func (r *InMemoryProductRepository) Create(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	now := time.Now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	r.products[product.ID] = *product
	return nil
}

// GetByID returns a product by its ID.
func (r *InMemoryProductRepository) GetByID(id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, &apperr.NotFoundError{ID: id}
	}
	return &product, nil
}

// Update replaces an existing product.
func (r *InMemoryProductRepository) Update(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[product.ID]; !ok {
		return &apperr.NotFoundError{ID: product.ID}
	}
	product.UpdatedAt = time.Now()
	r.products[product.ID] = *product
	return nil
}

// Delete removes a product by its ID.
func (r *InMemoryProductRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return &apperr.NotFoundError{ID: id}
	}
	delete(r.products, id)
	return nil
}

// List mirrors the GORM implementation: insertion order by (created_at, id),
// substring search over name and description, keyset positioning.
func (r *InMemoryProductRepository) List(search string, cursor *pagination.Cursor, limit int) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if search != "" && !strings.Contains(p.Name, search) && !strings.Contains(p.Description, search) {
			continue
		}
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	result := make([]models.Product, 0, limit)
	for _, p := range matched {
		if cursor != nil && !after(p, cursor) {
			continue
		}
		result = append(result, p)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func after(p models.Product, c *pagination.Cursor) bool {
	if p.CreatedAt.After(c.CreatedAt) {
		return true
	}
	return p.CreatedAt.Equal(c.CreatedAt) && p.ID > c.ID
}
