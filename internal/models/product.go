package models

import "time"

// Product represents a single catalog entry. The ID is assigned by the
// repository on creation and is immutable afterwards. Image holds the storage
// path of the uploaded picture; an empty string means the product has none.
type Product struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	Image       string    `json:"image"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
