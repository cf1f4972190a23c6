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

const requestNotFoundMessage = "book request not found"

const requestColumns = `id, requester_id, listing_id, title, author, message, category, board,
	class_level, subject, condition, location, latitude, longitude, city, status,
	created_at, updated_at`

// Repo implements the book requests repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new book requests repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Create inserts a book request.
func (r *Repo) Create(ctx context.Context, params CreateRequestParams) (BookRequest, error) {
	query := fmt.Sprintf(`
		INSERT INTO book_requests (
			requester_id, listing_id, title, author, message, category, board,
			class_level, subject, condition, location, latitude, longitude, city
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING %s`, requestColumns)

	row := r.pool.QueryRow(ctx, query,
		params.RequesterID, params.ListingID, params.Title, params.Author, params.Message,
		params.Category, params.Board, params.ClassLevel, params.Subject, params.Condition,
		params.Location, params.Latitude, params.Longitude, params.City,
	)
	request, err := scanRequest(row)
	if err != nil {
		return BookRequest{}, fmt.Errorf("create book request: %w", err)
	}
	return request, nil
}

// GetByID retrieves a book request by ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (BookRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM book_requests WHERE id = $1`, requestColumns)

	request, err := scanRequest(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BookRequest{}, apperr.NotFound(requestNotFoundMessage)
		}
		return BookRequest{}, fmt.Errorf("get book request by id: %w", err)
	}
	return request, nil
}

// List retrieves open book requests with filters, text search and optional
// pagination, plus the exact filtered count.
func (r *Repo) List(ctx context.Context, params ListRequestsParams) ([]BookRequest, int, error) {
	whereClauses := []string{"status = 'open'"}
	args := []interface{}{}
	argIdx := 1

	if params.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"to_tsvector('simple', title || ' ' || coalesce(message, '')) @@ websearch_to_tsquery('simple', $%d)", argIdx))
		args = append(args, params.Search)
		argIdx++
	}

	addEq := func(column, value string) {
		if value == "" {
			return
		}
		whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}
	addEq("category", params.Category)
	addEq("board", params.Board)
	addEq("class_level", params.ClassLevel)
	addEq("subject", params.Subject)

	if params.City != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("city ILIKE $%d", argIdx))
		args = append(args, params.City)
		argIdx++
	}

	whereClause := strings.Join(whereClauses, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM book_requests WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count book requests: %w", err)
	}

	orderBy := "created_at DESC"
	if params.SortBy == "date_asc" {
		orderBy = "created_at ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM book_requests WHERE %s ORDER BY %s`, requestColumns, whereClause, orderBy)
	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, params.Limit, params.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list book requests: %w", err)
	}
	defer rows.Close()

	items := make([]BookRequest, 0)
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan book request: %w", err)
		}
		items = append(items, request)
	}
	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("iterate book requests: %w", rows.Err())
	}

	return items, total, nil
}

// Delete removes a book request owned by the requester.
func (r *Repo) Delete(ctx context.Context, requesterID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM book_requests WHERE id = $1 AND requester_id = $2`, id, requesterID)
	if err != nil {
		return fmt.Errorf("delete book request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(requestNotFoundMessage)
	}
	return nil
}

func scanRequest(row pgx.Row) (BookRequest, error) {
	var req BookRequest
	var createdAt, updatedAt time.Time
	if err := row.Scan(
		&req.ID, &req.RequesterID, &req.ListingID, &req.Title, &req.Author, &req.Message,
		&req.Category, &req.Board, &req.ClassLevel, &req.Subject, &req.Condition,
		&req.Location, &req.Latitude, &req.Longitude, &req.City, &req.Status,
		&createdAt, &updatedAt,
	); err != nil {
		return BookRequest{}, err
	}
	req.CreatedAt = createdAt.Format(time.RFC3339)
	req.UpdatedAt = updatedAt.Format(time.RFC3339)
	return req, nil
}
