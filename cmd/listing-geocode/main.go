package main

import (
	"context"

	"bookmarket_backend/internal/geo"
	listingrepo "bookmarket_backend/internal/listings/repository"
	"bookmarket_backend/internal/scheduler"
	"bookmarket_backend/platform/config"
	"bookmarket_backend/platform/db"
	"bookmarket_backend/platform/logger"
)

// One-shot backfill: drains the set of listings without coordinates, batch by
// batch, then exits. The resolver's rate limiter keeps the upstream happy.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting listing geocode backfill")

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	resolver := geo.NewResolver(cfg, nil, log)
	geocoder := scheduler.NewListingGeocoder(listingrepo.New(pool), resolver, log)

	batchSize := cfg.GetGeocodeBatchSize()
	total := 0
	for {
		resolved, err := geocoder.Sweep(ctx, batchSize)
		if err != nil {
			log.Error("geocode sweep failed", "error", err)
			return
		}
		total += resolved

		// No progress means everything left is unresolvable; stop rather
		// than loop over the same addresses forever.
		if resolved == 0 {
			log.Info("listing geocode backfill finished", "resolved", total)
			return
		}
	}
}
