package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookmarket_backend/internal/adapters/storage"
	"bookmarket_backend/internal/email"
	"bookmarket_backend/internal/geo"
	apphttp "bookmarket_backend/internal/http"
	"bookmarket_backend/internal/http/router"
	"bookmarket_backend/internal/listings"
	listingrepo "bookmarket_backend/internal/listings/repository"
	"bookmarket_backend/internal/profiles"
	"bookmarket_backend/internal/requests"
	"bookmarket_backend/internal/scheduler"
	"bookmarket_backend/internal/search"
	"bookmarket_backend/platform/ai/embeddings"
	"bookmarket_backend/platform/config"
	"bookmarket_backend/platform/db"
	"bookmarket_backend/platform/logger"
	"bookmarket_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Shared validator instance for dependency injection
	val := validator.New()

	sender := email.NewSender(cfg)

	// Storage service for listing image uploads (MinIO). Optional: presign
	// endpoints answer 503 when storage is not configured.
	var storageSvc storage.StorageService
	if cfg.IsMinIOEnabled() {
		minioSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure listing images bucket", 5, 2*time.Second, func() error {
			return minioSvc.EnsureBucketExists(ctx, cfg.GetMinioBucketListingImages())
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetMinioBucketListingImages())
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		storageSvc = minioSvc
		log.Info("storage service initialized", "listingImagesBucket", cfg.GetMinioBucketListingImages())
	} else {
		log.Warn("MinIO not configured; image uploads disabled")
	}

	// Shared geocoding resolver. One instance so its caches and the upstream
	// rate limit apply process-wide.
	resolver := geo.NewResolver(cfg, nil, log)

	scorer := newListingScorer(cfg, log)

	geocodeScheduler, closeScheduler := initGeocodeScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	profilesModule := profiles.NewModule(pool, val, log)

	listingsModule := listings.NewModule(
		pool,
		scorer,
		resolver,
		profilesModule.Service(),
		storageSvc,
		cfg.GetMinioBucketListingImages(),
		cfg.GetSearchThreshold(),
		val,
		log,
	)
	if geocodeScheduler != nil {
		listingsModule.Service().SetGeocodeScheduler(geocodeScheduler)
	}

	requestsModule := requests.NewModule(
		pool,
		resolver,
		profilesModule.Service(),
		listingsModule.Service(),
		sender,
		val,
		log,
	)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			profilesModule,
			listingsModule,
			requestsModule,
		},
	}

	engine := router.New(app)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: engine,
	}

	log.Info("server listening", "addr", cfg.HTTPAddr)
	if err := serve(ctx, log, srv); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
}

const shutdownTimeout = 10 * time.Second

// serve runs the HTTP server until the context is canceled, then drains
// in-flight requests within shutdownTimeout.
func serve(ctx context.Context, log *logger.Logger, srv *http.Server) error {
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// newListingScorer picks the relevance strategy from configuration. The fuzzy
// scorer needs no external service; the embedding scorer calls the configured
// embedding API.
func newListingScorer(cfg *config.Config, log *logger.Logger) search.Scorer[listingrepo.Listing] {
	if cfg.GetSearchStrategy() == "embedding" {
		log.Info("using embedding relevance scorer", "apiUrl", cfg.GetEmbeddingAPIURL())
		embedder := embeddings.NewClient(embeddings.Config{
			BaseURL: cfg.GetEmbeddingAPIURL(),
			APIKey:  cfg.GetEmbeddingAPIKey(),
		})
		return search.NewEmbeddingScorer[listingrepo.Listing](embedder)
	}

	return search.NewFuzzyScorer[listingrepo.Listing]()
}

func initGeocodeScheduler(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.GeocodeScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; background geocoding disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize geocode scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
