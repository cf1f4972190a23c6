package repository

import (
	"context"

	"github.com/google/uuid"
)

// Listing represents a book listed for sale.
type Listing struct {
	ID          uuid.UUID `db:"id"`
	SellerID    uuid.UUID `db:"seller_id"`
	Title       string    `db:"title"`
	Author      *string   `db:"author"`
	Description *string   `db:"description"`
	Category    string    `db:"category"`
	Condition   string    `db:"condition"`
	Board       *string   `db:"board"`
	ClassLevel  *string   `db:"class_level"`
	Subject     *string   `db:"subject"`
	Price       *float64  `db:"price"`
	PriceStatus string    `db:"price_status"`
	Location    *string   `db:"location"`
	Latitude    *float64  `db:"latitude"`
	Longitude   *float64  `db:"longitude"`
	City        *string   `db:"city"`
	Images      []string  `db:"images"`
	Status      string    `db:"status"`
	CreatedAt   string    `db:"created_at"`
	UpdatedAt   string    `db:"updated_at"`
}

// CreateListingParams contains data for creating a listing.
type CreateListingParams struct {
	SellerID    uuid.UUID
	Title       string
	Author      *string
	Description *string
	Category    string
	Condition   string
	Board       *string
	ClassLevel  *string
	Subject     *string
	Price       *float64
	PriceStatus string
	Location    *string
	Latitude    *float64
	Longitude   *float64
	City        *string
	Images      []string
}

// UpdateListingParams contains data for updating a listing. Nil fields are
// left unchanged.
type UpdateListingParams struct {
	ID          uuid.UUID
	SellerID    uuid.UUID
	Title       *string
	Author      *string
	Description *string
	Category    *string
	Condition   *string
	Board       *string
	ClassLevel  *string
	Subject     *string
	Price       *float64
	PriceStatus *string
	Location    *string
	Latitude    *float64
	Longitude   *float64
	City        *string
	Images      []string
}

// ListFilters are the AND-combined predicates for public listing queries.
type ListFilters struct {
	Category    string
	Board       string
	ClassLevel  string
	Subject     string
	City        string
	Condition   string
	PriceStatus string
	MinPrice    *float64
	MaxPrice    *float64
}

// ListListingsParams defines filters, ordering and pagination for listing
// queries. A Limit of zero disables pagination and returns the full filtered
// set, which callers use when ranking must see every candidate.
type ListListingsParams struct {
	Filters ListFilters
	SortBy  string
	Offset  int
	Limit   int
}

// Repository defines listing storage operations.
type Repository interface {
	Create(ctx context.Context, params CreateListingParams) (Listing, error)
	Update(ctx context.Context, params UpdateListingParams) (Listing, error)
	UpdateStatus(ctx context.Context, sellerID, id uuid.UUID, status string) (Listing, error)
	Delete(ctx context.Context, sellerID, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (Listing, error)
	List(ctx context.Context, params ListListingsParams) ([]Listing, int, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, offset, limit int) ([]Listing, int, error)
	ListMissingCoordinates(ctx context.Context, limit int) ([]Listing, error)
	SetCoordinates(ctx context.Context, id uuid.UUID, latitude, longitude float64) error
}
