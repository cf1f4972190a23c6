// Package requests provides the book request board bounded context module.
package requests

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"bookmarket_backend/internal/email"
	apphttp "bookmarket_backend/internal/http"
	"bookmarket_backend/internal/requests/handler"
	"bookmarket_backend/internal/requests/repository"
	"bookmarket_backend/internal/requests/service"
	"bookmarket_backend/platform/logger"
	"bookmarket_backend/platform/validator"
)

// Module is the book requests bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the book requests module.
func NewModule(
	pool *pgxpool.Pool,
	resolver service.LocationResolver,
	profiles service.ProfileDirectory,
	listings service.ListingDirectory,
	mailer email.Sender,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, resolver, profiles, listings, mailer, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "requests"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts book request routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Public.GET("/requests", m.handler.List)
	ctx.Public.GET("/requests/:id", m.handler.GetByID)

	ctx.Protected.POST("/requests", m.handler.Create)
	ctx.Protected.DELETE("/requests/:id", m.handler.Delete)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
