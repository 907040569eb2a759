package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"katalog/internal/apperr"
	"katalog/internal/models"
	"katalog/internal/pagination"
	"katalog/internal/repositories"
	"katalog/internal/storage"
)

// MaxImageBytes caps image uploads at 2048 KB.
const MaxImageBytes = 2048 * 1024

// Accepted upload types: jpeg, png, jpg, gif, svg.
var allowedImageMimes = map[string]struct{}{
	"image/jpeg":    {},
	"image/png":     {},
	"image/gif":     {},
	"image/svg+xml": {},
}

// ProductInput is the raw field bag submitted on create and update. Price and
// Quantity arrive as strings: the form variant submits text fields, and the
// JSON adapter stringifies its numbers before calling in. Parsing them is
// part of validation.
type ProductInput struct {
	Name        string `validate:"required"`
	Description string
	Price       string `validate:"required"`
	Quantity    string `validate:"required"`
}

// ImageUpload is an optional uploaded file accompanying a ProductInput.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// validatedProduct holds the input after all rules passed, with numeric
// fields parsed and safe to persist.
type validatedProduct struct {
	Name        string
	Description string
	Price       float64
	Quantity    int
}

// ProductService orchestrates validation, image storage, and repository calls
// for the product CRUD operations. It is presentation-agnostic: handlers map
// its results and typed errors onto JSON or rendered pages.
type ProductService struct {
	repo     repositories.ProductRepository
	blobs    storage.BlobStorage
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, blobs storage.BlobStorage, logger zerolog.Logger) *ProductService {
	return &ProductService{
		repo:     repo,
		blobs:    blobs,
		validate: validator.New(),
		logger:   logger,
	}
}

// validateInput applies the field rules and, when an image is supplied, the
// upload rules. Every violation is collected before failing so the caller
// sees the full per-field error map at once.
func (s *ProductService) validateInput(in ProductInput, img *ImageUpload) (*validatedProduct, error) {
	verr := apperr.NewValidationError()

	if err := s.validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, fmt.Errorf("failed to validate product input: %w", err)
		}
		for _, fe := range fieldErrs {
			field := strings.ToLower(fe.Field())
			verr.Add(field, fmt.Sprintf("The %s field is required.", field))
		}
	}

	out := &validatedProduct{Name: in.Name, Description: in.Description}

	if in.Price != "" {
		price, err := strconv.ParseFloat(in.Price, 64)
		if err != nil {
			verr.Add("price", "The price field must be a number.")
		} else {
			out.Price = price
		}
	}
	if in.Quantity != "" {
		quantity, err := strconv.Atoi(in.Quantity)
		if err != nil {
			verr.Add("quantity", "The quantity field must be an integer.")
		} else {
			out.Quantity = quantity
		}
	}

	if img != nil {
		if _, ok := allowedImageMimes[mimetype.Detect(img.Data).String()]; !ok {
			verr.Add("image", "The image field must be a file of type: jpeg, png, jpg, gif, svg.")
		}
		if len(img.Data) > MaxImageBytes {
			verr.Add("image", "The image field must not be greater than 2048 kilobytes.")
		}
	}

	if verr.HasErrors() {
		return nil, verr
	}
	return out, nil
}

// Create validates the input, stores the image if one was uploaded, and
// inserts the product. No record is created when validation or the blob
// write fails.
func (s *ProductService) Create(in ProductInput, img *ImageUpload) (*models.Product, error) {
	validated, err := s.validateInput(in, img)
	if err != nil {
		s.logFailure("create", "", err)
		return nil, err
	}

	product := &models.Product{
		Name:        validated.Name,
		Description: validated.Description,
		Price:       validated.Price,
		Quantity:    validated.Quantity,
	}

	if img != nil {
		path, err := s.blobs.Put(img.Data, img.Filename)
		if err != nil {
			s.logFailure("create", "", err)
			return nil, err
		}
		product.Image = path
	}

	if err := s.repo.Create(product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.logger.Debug().Str("operation", "create").Str("product_id", product.ID).Msg("product created")
	return product, nil
}

// GetByID retrieves a single product by its ID.
func (s *ProductService) GetByID(id string) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		s.logFailure("show", id, err)
		return nil, err
	}
	return product, nil
}

// Update replaces the validated fields of an existing product. When a new
// image is uploaded it is written before the previous blob is deleted, so a
// storage failure can leave an orphaned blob but never a record pointing at
// a missing one. Without a new image the existing image path is untouched.
func (s *ProductService) Update(id string, in ProductInput, img *ImageUpload) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		s.logFailure("update", id, err)
		return nil, err
	}

	validated, err := s.validateInput(in, img)
	if err != nil {
		s.logFailure("update", id, err)
		return nil, err
	}

	if img != nil {
		path, err := s.blobs.Put(img.Data, img.Filename)
		if err != nil {
			s.logFailure("update", id, err)
			return nil, err
		}
		if product.Image != "" {
			if err := s.blobs.Delete(product.Image); err != nil {
				// Orphaned blob, not a broken reference. Keep going.
				s.logger.Warn().Err(err).
					Str("operation", "update").
					Str("product_id", id).
					Str("path", product.Image).
					Msg("failed to delete previous product image")
			}
		}
		product.Image = path
	}

	product.Name = validated.Name
	product.Description = validated.Description
	product.Price = validated.Price
	product.Quantity = validated.Quantity

	if err := s.repo.Update(product); err != nil {
		return nil, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	s.logger.Debug().Str("operation", "update").Str("product_id", id).Msg("product updated")
	return product, nil
}

// Delete removes a product and, best-effort, its stored image. A blob
// deletion failure is logged but does not fail the operation once the record
// is gone.
func (s *ProductService) Delete(id string) error {
	product, err := s.repo.GetByID(id)
	if err != nil {
		s.logFailure("delete", id, err)
		return err
	}

	if err := s.repo.Delete(id); err != nil {
		return err
	}

	if product.Image != "" {
		if err := s.blobs.Delete(product.Image); err != nil {
			s.logger.Warn().Err(err).
				Str("operation", "delete").
				Str("product_id", id).
				Str("path", product.Image).
				Msg("failed to delete product image")
		}
	}
	s.logger.Debug().Str("operation", "delete").Str("product_id", id).Msg("product deleted")
	return nil
}

// List returns one page of products, filtered by search over name and
// description when non-empty. cursorToken is the opaque token from a previous
// page; empty or unparseable tokens start from the beginning.
func (s *ProductService) List(search, cursorToken string) (*pagination.Page[models.Product], error) {
	cursor := pagination.Decode(cursorToken)

	// Fetch one extra row to detect whether a next page exists.
	items, err := s.repo.List(search, cursor, pagination.PerPage+1)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	page := &pagination.Page[models.Product]{PerPage: pagination.PerPage}
	if len(items) > pagination.PerPage {
		items = items[:pagination.PerPage]
		last := items[len(items)-1]
		token := pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
		page.NextCursor = &token
	}
	if items == nil {
		items = []models.Product{}
	}
	page.Items = items
	return page, nil
}

// logFailure emits the single structured event per failed operation. The
// level follows the error class: expected client errors are informational,
// storage breakage is not.
func (s *ProductService) logFailure(op, id string, err error) {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		s.logger.Info().
			Str("operation", op).
			Str("product_id", id).
			Interface("errors", verr.Fields).
			Msg("product validation failed")
		return
	}
	var nfErr *apperr.NotFoundError
	if errors.As(err, &nfErr) {
		s.logger.Info().
			Str("operation", op).
			Str("product_id", id).
			Msg("product not found")
		return
	}
	var sErr *apperr.StorageError
	if errors.As(err, &sErr) {
		s.logger.Error().Err(err).
			Str("operation", op).
			Str("product_id", id).
			Str("path", sErr.Path).
			Msg("product image storage failed")
		return
	}
	s.logger.Error().Err(err).Str("operation", op).Str("product_id", id).Msg("product operation failed")
}
