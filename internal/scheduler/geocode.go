package scheduler

import (
	"context"
	"errors"
	"strings"

	"bookmarket_backend/internal/geo"
	listingrepo "bookmarket_backend/internal/listings/repository"
	"bookmarket_backend/platform/logger"

	"github.com/google/uuid"
)

// AddressGeocoder resolves a free-text address to coordinates.
type AddressGeocoder interface {
	Geocode(ctx context.Context, address string) (geo.Coordinates, error)
}

// ListingGeocoder fills in missing coordinates on listings from their stored
// location text. It is shared by the queue worker, the periodic sweeper and
// the one-shot backfill binary.
type ListingGeocoder struct {
	repo     listingrepo.Repository
	geocoder AddressGeocoder
	log      *logger.Logger
}

func NewListingGeocoder(repo listingrepo.Repository, geocoder AddressGeocoder, log *logger.Logger) *ListingGeocoder {
	return &ListingGeocoder{
		repo:     repo,
		geocoder: geocoder,
		log:      log,
	}
}

// GeocodeListing resolves and persists coordinates for a single listing.
// Listings that already carry coordinates or have no usable address are
// skipped without error; a missing listing is also not an error since the
// task may outlive a deleted listing.
func (g *ListingGeocoder) GeocodeListing(ctx context.Context, id uuid.UUID) error {
	listing, err := g.repo.GetByID(ctx, id)
	if err != nil {
		g.log.Debug("listing gone before geocode", "listingId", id, "error", err)
		return nil
	}

	if listing.Latitude != nil && listing.Longitude != nil {
		return nil
	}

	address := listingAddress(listing)
	if address == "" {
		return nil
	}

	coords, err := g.geocoder.Geocode(ctx, address)
	if err != nil {
		if errors.Is(err, geo.ErrNoResults) {
			g.log.Info("no geocode result", "listingId", id, "address", address)
			return nil
		}
		return err
	}

	if err := g.repo.SetCoordinates(ctx, id, coords.Latitude, coords.Longitude); err != nil {
		return err
	}

	g.log.Info("listing geocoded", "listingId", id, "lat", coords.Latitude, "lon", coords.Longitude)
	return nil
}

// Sweep geocodes one batch of listings that are missing coordinates and
// returns how many were resolved. Individual failures are logged and skipped
// so one bad address cannot stall the batch.
func (g *ListingGeocoder) Sweep(ctx context.Context, batchSize int) (int, error) {
	if batchSize < 1 {
		batchSize = defaultGeocodeBatchSize
	}

	listings, err := g.repo.ListMissingCoordinates(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, listing := range listings {
		if ctx.Err() != nil {
			return resolved, ctx.Err()
		}

		address := listingAddress(listing)
		if address == "" {
			continue
		}

		coords, err := g.geocoder.Geocode(ctx, address)
		if err != nil {
			if errors.Is(err, geo.ErrNoResults) {
				g.log.Info("no geocode result", "listingId", listing.ID, "address", address)
			} else {
				g.log.Warn("geocode failed", "listingId", listing.ID, "error", err)
			}
			continue
		}

		if err := g.repo.SetCoordinates(ctx, listing.ID, coords.Latitude, coords.Longitude); err != nil {
			g.log.Warn("failed to store coordinates", "listingId", listing.ID, "error", err)
			continue
		}

		resolved++
	}

	return resolved, nil
}

func listingAddress(listing listingrepo.Listing) string {
	if listing.Location != nil {
		if trimmed := strings.TrimSpace(*listing.Location); trimmed != "" {
			return trimmed
		}
	}
	if listing.City != nil {
		return strings.TrimSpace(*listing.City)
	}
	return ""
}
