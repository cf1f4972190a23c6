package scheduler

import (
	"context"
	"fmt"

	listingrepo "bookmarket_backend/internal/listings/repository"
	"bookmarket_backend/platform/config"
	"bookmarket_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	geocoder *ListingGeocoder
	batch    int
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, geocoder AddressGeocoder, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	batch := cfg.GetGeocodeBatchSize()
	if batch < 1 {
		batch = defaultGeocodeBatchSize
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		geocoder: NewListingGeocoder(listingrepo.New(pool), geocoder, log),
		batch:    batch,
		log:      log,
	}

	mux.HandleFunc(TaskListingGeocode, w.handleListingGeocode)
	mux.HandleFunc(TaskGeocodeSweep, w.handleGeocodeSweep)

	return w, nil
}

func (w *Worker) handleListingGeocode(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseListingGeocodePayload(task)
	if err != nil {
		return err
	}

	listingID, err := uuid.Parse(payload.ListingID)
	if err != nil {
		return err
	}

	return w.geocoder.GeocodeListing(ctx, listingID)
}

func (w *Worker) handleGeocodeSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseGeocodeSweepPayload(task)
	if err != nil {
		return err
	}

	batch := payload.BatchSize
	if batch < 1 {
		batch = w.batch
	}

	resolved, err := w.geocoder.Sweep(ctx, batch)
	if err != nil {
		return err
	}

	if resolved > 0 {
		w.log.Info("geocode sweep resolved listings", "resolved", resolved)
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
