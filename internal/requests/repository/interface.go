package repository

import (
	"context"

	"github.com/google/uuid"
)

// BookRequest represents a buyer's ask for a book they could not find.
type BookRequest struct {
	ID          uuid.UUID  `db:"id"`
	RequesterID uuid.UUID  `db:"requester_id"`
	ListingID   *uuid.UUID `db:"listing_id"`
	Title       string     `db:"title"`
	Author      *string    `db:"author"`
	Message     *string    `db:"message"`
	Category    *string    `db:"category"`
	Board       *string    `db:"board"`
	ClassLevel  *string    `db:"class_level"`
	Subject     *string    `db:"subject"`
	Condition   *string    `db:"condition"`
	Location    *string    `db:"location"`
	Latitude    *float64   `db:"latitude"`
	Longitude   *float64   `db:"longitude"`
	City        *string    `db:"city"`
	Status      string     `db:"status"`
	CreatedAt   string     `db:"created_at"`
	UpdatedAt   string     `db:"updated_at"`
}

// CreateRequestParams contains data for creating a book request.
type CreateRequestParams struct {
	RequesterID uuid.UUID
	ListingID   *uuid.UUID
	Title       string
	Author      *string
	Message     *string
	Category    *string
	Board       *string
	ClassLevel  *string
	Subject     *string
	Condition   *string
	Location    *string
	Latitude    *float64
	Longitude   *float64
	City        *string
}

// ListRequestsParams defines filters, search, ordering and pagination for
// request queries. Search runs at the store as a websearch tsquery over the
// title and message. A Limit of zero disables pagination.
type ListRequestsParams struct {
	Search     string
	Category   string
	Board      string
	ClassLevel string
	Subject    string
	City       string
	SortBy     string
	Offset     int
	Limit      int
}

// Repository defines book request storage operations.
type Repository interface {
	Create(ctx context.Context, params CreateRequestParams) (BookRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (BookRequest, error)
	List(ctx context.Context, params ListRequestsParams) ([]BookRequest, int, error)
	Delete(ctx context.Context, requesterID, id uuid.UUID) error
}
