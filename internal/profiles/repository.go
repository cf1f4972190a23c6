package profiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookmarket_backend/platform/apperr"
)

const profileColumns = `user_id, full_name, email, phone, location, latitude, longitude, city, created_at, updated_at`

// Store defines profile persistence, satisfied by Repo.
type Store interface {
	Get(ctx context.Context, userID uuid.UUID) (Profile, error)
	Upsert(ctx context.Context, profile Profile) (Profile, error)
}

// Repo implements profile storage on Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Store = (*Repo)(nil)

// Get retrieves a profile by user ID.
func (r *Repo) Get(ctx context.Context, userID uuid.UUID) (Profile, error) {
	query := fmt.Sprintf(`SELECT %s FROM profiles WHERE user_id = $1`, profileColumns)

	profile, err := scanProfile(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, apperr.NotFound("profile not found")
		}
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

// Upsert creates or updates a profile. Nil fields leave existing values in
// place.
func (r *Repo) Upsert(ctx context.Context, p Profile) (Profile, error) {
	query := fmt.Sprintf(`
		INSERT INTO profiles (user_id, full_name, email, phone, location, latitude, longitude, city)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = COALESCE(EXCLUDED.full_name, profiles.full_name),
			email = COALESCE(EXCLUDED.email, profiles.email),
			phone = COALESCE(EXCLUDED.phone, profiles.phone),
			location = COALESCE(EXCLUDED.location, profiles.location),
			latitude = COALESCE(EXCLUDED.latitude, profiles.latitude),
			longitude = COALESCE(EXCLUDED.longitude, profiles.longitude),
			city = COALESCE(EXCLUDED.city, profiles.city),
			updated_at = now()
		RETURNING %s`, profileColumns)

	profile, err := scanProfile(r.pool.QueryRow(ctx, query,
		p.UserID, p.FullName, p.Email, p.Phone, p.Location, p.Latitude, p.Longitude, p.City,
	))
	if err != nil {
		return Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return profile, nil
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	var createdAt, updatedAt time.Time
	if err := row.Scan(
		&p.UserID, &p.FullName, &p.Email, &p.Phone, &p.Location, &p.Latitude, &p.Longitude, &p.City,
		&createdAt, &updatedAt,
	); err != nil {
		return Profile{}, err
	}
	p.CreatedAt = createdAt.Format(time.RFC3339)
	p.UpdatedAt = updatedAt.Format(time.RFC3339)
	return p, nil
}
