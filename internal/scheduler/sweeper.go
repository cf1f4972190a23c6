package scheduler

import (
	"context"
	"time"

	"bookmarket_backend/platform/logger"
)

const (
	defaultGeocodeSweepInterval = 15 * time.Minute
	defaultGeocodeBatchSize     = 25
)

// GeocodeSweeper periodically geocodes listings that were created without
// coordinates. It runs alongside the queue worker so listings whose enqueue
// was lost still get picked up.
type GeocodeSweeper struct {
	geocoder *ListingGeocoder
	log      *logger.Logger
	interval time.Duration
	batch    int
}

func NewGeocodeSweeper(geocoder *ListingGeocoder, log *logger.Logger, interval time.Duration, batch int) *GeocodeSweeper {
	if interval <= 0 {
		interval = defaultGeocodeSweepInterval
	}
	if batch < 1 {
		batch = defaultGeocodeBatchSize
	}

	return &GeocodeSweeper{
		geocoder: geocoder,
		log:      log,
		interval: interval,
		batch:    batch,
	}
}

func (s *GeocodeSweeper) Run(ctx context.Context) {
	if s == nil || s.geocoder == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *GeocodeSweeper) sweep(ctx context.Context) {
	resolved, err := s.geocoder.Sweep(ctx, s.batch)
	if err != nil {
		s.log.Warn("geocode sweep failed", "error", err)
		return
	}

	if resolved > 0 {
		s.log.Info("geocode sweep resolved listings", "resolved", resolved)
	}
}
