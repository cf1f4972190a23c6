// Package listings provides the listings bounded context module.
package listings

import (
	"bookmarket_backend/internal/adapters/storage"
	apphttp "bookmarket_backend/internal/http"
	"bookmarket_backend/internal/listings/handler"
	"bookmarket_backend/internal/listings/repository"
	"bookmarket_backend/internal/listings/service"
	"bookmarket_backend/internal/search"
	"bookmarket_backend/platform/logger"
	"bookmarket_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the listings bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the listings module.
func NewModule(
	pool *pgxpool.Pool,
	scorer search.Scorer[repository.Listing],
	resolver service.LocationResolver,
	profiles service.ProfileLocator,
	storageSvc storage.StorageService,
	bucket string,
	threshold float64,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, scorer, resolver, profiles, storageSvc, bucket, threshold, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "listings"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts listings routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Browsing and search are public; the optional identity middleware on
	// the public group lets signed-in users keep their location fallback.
	ctx.Public.GET("/listings", m.handler.Search)
	ctx.Public.GET("/listings/:id", m.handler.GetByID)

	ctx.Protected.GET("/my-listings", m.handler.ListOwn)
	ctx.Protected.POST("/listings", m.handler.Create)
	ctx.Protected.PUT("/listings/:id", m.handler.Update)
	ctx.Protected.PATCH("/listings/:id/status", m.handler.UpdateStatus)
	ctx.Protected.DELETE("/listings/:id", m.handler.Delete)
	ctx.Protected.POST("/listing-images/presign", m.handler.PresignImageUpload)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
