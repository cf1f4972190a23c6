package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookmarket_backend/platform/apperr"
)

const listingNotFoundMessage = "listing not found"

const listingColumns = `id, seller_id, title, author, description, category, condition, board,
	class_level, subject, price, price_status, location, latitude, longitude, city,
	images, status, created_at, updated_at`

// Repo implements the listings repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new listings repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Create inserts a listing.
func (r *Repo) Create(ctx context.Context, params CreateListingParams) (Listing, error) {
	query := fmt.Sprintf(`
		INSERT INTO books (
			seller_id, title, author, description, category, condition, board,
			class_level, subject, price, price_status, location, latitude, longitude,
			city, images
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING %s`, listingColumns)

	row := r.pool.QueryRow(ctx, query,
		params.SellerID, params.Title, params.Author, params.Description, params.Category,
		params.Condition, params.Board, params.ClassLevel, params.Subject, params.Price,
		params.PriceStatus, params.Location, params.Latitude, params.Longitude,
		params.City, params.Images,
	)
	listing, err := scanListing(row)
	if err != nil {
		return Listing{}, fmt.Errorf("create listing: %w", err)
	}
	return listing, nil
}

// Update modifies a listing owned by the given seller.
func (r *Repo) Update(ctx context.Context, params UpdateListingParams) (Listing, error) {
	query := fmt.Sprintf(`
		UPDATE books
		SET title = COALESCE($3, title),
			author = COALESCE($4, author),
			description = COALESCE($5, description),
			category = COALESCE($6, category),
			condition = COALESCE($7, condition),
			board = COALESCE($8, board),
			class_level = COALESCE($9, class_level),
			subject = COALESCE($10, subject),
			price = CASE WHEN $11::text = 'price_on_call' THEN NULL ELSE COALESCE($12, price) END,
			price_status = COALESCE($11::text, price_status),
			location = COALESCE($13, location),
			latitude = COALESCE($14, latitude),
			longitude = COALESCE($15, longitude),
			city = COALESCE($16, city),
			images = COALESCE($17, images),
			updated_at = now()
		WHERE id = $1 AND seller_id = $2
		RETURNING %s`, listingColumns)

	row := r.pool.QueryRow(ctx, query,
		params.ID, params.SellerID, params.Title, params.Author, params.Description,
		params.Category, params.Condition, params.Board, params.ClassLevel, params.Subject,
		params.PriceStatus, params.Price, params.Location, params.Latitude, params.Longitude,
		params.City, params.Images,
	)
	listing, err := scanListing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Listing{}, apperr.NotFound(listingNotFoundMessage)
		}
		return Listing{}, fmt.Errorf("update listing: %w", err)
	}
	return listing, nil
}

// UpdateStatus transitions a listing's availability status, owner-scoped.
func (r *Repo) UpdateStatus(ctx context.Context, sellerID, id uuid.UUID, status string) (Listing, error) {
	query := fmt.Sprintf(`
		UPDATE books
		SET status = $3, updated_at = now()
		WHERE id = $1 AND seller_id = $2
		RETURNING %s`, listingColumns)

	listing, err := scanListing(r.pool.QueryRow(ctx, query, id, sellerID, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Listing{}, apperr.NotFound(listingNotFoundMessage)
		}
		return Listing{}, fmt.Errorf("update listing status: %w", err)
	}
	return listing, nil
}

// Delete removes a listing owned by the given seller.
func (r *Repo) Delete(ctx context.Context, sellerID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM books WHERE id = $1 AND seller_id = $2`, id, sellerID)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(listingNotFoundMessage)
	}
	return nil
}

// GetByID retrieves a listing by ID regardless of owner.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Listing, error) {
	query := fmt.Sprintf(`SELECT %s FROM books WHERE id = $1`, listingColumns)

	listing, err := scanListing(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Listing{}, apperr.NotFound(listingNotFoundMessage)
		}
		return Listing{}, fmt.Errorf("get listing by id: %w", err)
	}
	return listing, nil
}

// List retrieves available listings with filters, ordering and optional
// pagination, plus the exact filtered count.
func (r *Repo) List(ctx context.Context, params ListListingsParams) ([]Listing, int, error) {
	whereClauses := []string{"status = 'available'"}
	args := []interface{}{}
	argIdx := 1

	addEq := func(column, value string) {
		if value == "" {
			return
		}
		whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}
	addEq("category", params.Filters.Category)
	addEq("board", params.Filters.Board)
	addEq("class_level", params.Filters.ClassLevel)
	addEq("subject", params.Filters.Subject)
	addEq("condition", params.Filters.Condition)
	addEq("price_status", params.Filters.PriceStatus)

	if params.Filters.City != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("city ILIKE $%d", argIdx))
		args = append(args, params.Filters.City)
		argIdx++
	}
	if params.Filters.MinPrice != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("price >= $%d", argIdx))
		args = append(args, *params.Filters.MinPrice)
		argIdx++
	}
	if params.Filters.MaxPrice != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("price <= $%d", argIdx))
		args = append(args, *params.Filters.MaxPrice)
		argIdx++
	}

	whereClause := strings.Join(whereClauses, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM books WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}

	// Price sorts push unpriced (price-on-call) listings last in both
	// directions.
	orderBy := "created_at DESC"
	switch params.SortBy {
	case "date_asc":
		orderBy = "created_at ASC"
	case "price_asc":
		orderBy = "price ASC NULLS LAST, created_at DESC"
	case "price_desc":
		orderBy = "price DESC NULLS LAST, created_at DESC"
	}

	query := fmt.Sprintf(`SELECT %s FROM books WHERE %s ORDER BY %s`, listingColumns, whereClause, orderBy)
	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, params.Limit, params.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	items, err := scanListings(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListBySeller retrieves a seller's own listings, any status, newest first.
func (r *Repo) ListBySeller(ctx context.Context, sellerID uuid.UUID, offset, limit int) ([]Listing, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM books WHERE seller_id = $1`, sellerID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count seller listings: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM books
		WHERE seller_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, listingColumns)

	rows, err := r.pool.Query(ctx, query, sellerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list seller listings: %w", err)
	}
	defer rows.Close()

	items, err := scanListings(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListMissingCoordinates returns listings that have a location text but no
// resolved coordinates yet, oldest first so the backfill drains fairly.
func (r *Repo) ListMissingCoordinates(ctx context.Context, limit int) ([]Listing, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM books
		WHERE latitude IS NULL AND (location IS NOT NULL OR city IS NOT NULL)
		ORDER BY created_at ASC
		LIMIT $1`, listingColumns)

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list listings missing coordinates: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

// SetCoordinates stores resolved coordinates for a listing.
func (r *Repo) SetCoordinates(ctx context.Context, id uuid.UUID, latitude, longitude float64) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE books SET latitude = $2, longitude = $3, updated_at = now() WHERE id = $1`,
		id, latitude, longitude,
	)
	if err != nil {
		return fmt.Errorf("set listing coordinates: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(listingNotFoundMessage)
	}
	return nil
}

func scanListing(row pgx.Row) (Listing, error) {
	var l Listing
	var createdAt, updatedAt time.Time
	if err := row.Scan(
		&l.ID, &l.SellerID, &l.Title, &l.Author, &l.Description, &l.Category, &l.Condition,
		&l.Board, &l.ClassLevel, &l.Subject, &l.Price, &l.PriceStatus, &l.Location,
		&l.Latitude, &l.Longitude, &l.City, &l.Images, &l.Status, &createdAt, &updatedAt,
	); err != nil {
		return Listing{}, err
	}
	l.CreatedAt = createdAt.Format(time.RFC3339)
	l.UpdatedAt = updatedAt.Format(time.RFC3339)
	return l, nil
}

func scanListings(rows pgx.Rows) ([]Listing, error) {
	items := make([]Listing, 0)
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		items = append(items, listing)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate listings: %w", rows.Err())
	}
	return items, nil
}
