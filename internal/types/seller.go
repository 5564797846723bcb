// Package types provides the domain model shared by the catalog-tracker packages.
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Seller is the owner of a WhatsApp catalog.
type Seller struct {
	ID           uuid.UUID `json:"id" validate:"required"`
	Name         string    `json:"name" validate:"required,min=1"`
	City         string    `json:"city,omitempty"`
	Contact      string    `json:"contact,omitempty"`
	CatalogueURL string    `json:"catalogue_url" validate:"required"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate validates the Seller using the validator.
func (s *Seller) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}
