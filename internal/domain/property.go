package domain

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

type PropertyType string

const (
	PropertyTypeSale PropertyType = "Sale"
	PropertyTypeRent PropertyType = "Rent"
)

func (t PropertyType) Valid() bool {
	return t == PropertyTypeSale || t == PropertyTypeRent
}

// PropertyStatus is advisory; nothing derives it from contracts.
type PropertyStatus string

const (
	PropertyStatusAvailable PropertyStatus = "available"
	PropertyStatusRented    PropertyStatus = "rented"
	PropertyStatusSold      PropertyStatus = "sold"
)

func (s PropertyStatus) Valid() bool {
	switch s {
	case PropertyStatusAvailable, PropertyStatusRented, PropertyStatusSold:
		return true
	}
	return false
}

// Property is a listing published by an owner
type Property struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	Location    string          `json:"location"`
	Price       decimal.Decimal `json:"price"`
	Type        PropertyType    `json:"type"`
	Beds        int             `json:"beds"`
	Baths       int             `json:"baths"`
	Sqft        int             `json:"sqft"`
	ImageURL    *string         `json:"image_url"`
	Status      PropertyStatus  `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Owner is populated on reads that join the owner's contact details.
	Owner *OwnerSummary `json:"owner,omitempty"`
}

// OwnerSummary is the public contact card of a property owner.
type OwnerSummary struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone"`
}

// PropertyFilter holds the conjunctive filters of a listing query.
// Nil or empty fields do not filter.
type PropertyFilter struct {
	Type     *PropertyType
	Status   *PropertyStatus
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Location string
}

// PropertyRepository defines data access for properties
type PropertyRepository interface {
	Create(ctx context.Context, property *Property) error
	GetByID(ctx context.Context, id string) (*Property, error)
	List(ctx context.Context, filter PropertyFilter) ([]*Property, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Property, error)
	Update(ctx context.Context, property *Property) error
	// DeleteCascade removes the property with its contracts and their
	// payments. Callers run it inside a transaction.
	DeleteCascade(ctx context.Context, id string) (*CascadeSummary, error)
}

// ImageStore persists uploaded listing images and returns the public URL.
type ImageStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Remove(ctx context.Context, url string) error
}
