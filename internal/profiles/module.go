// Package profiles stores user profiles and supplies the location fallback
// used by listing and request searches.
package profiles

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "bookmarket_backend/internal/http"
	"bookmarket_backend/platform/logger"
	"bookmarket_backend/platform/validator"
)

// Module wires the profile HTTP routes.
type Module struct {
	handler *Handler
	service *Service
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	svc := NewService(NewRepo(pool), log)
	h := NewHandler(svc, val)
	return &Module{handler: h, service: svc}
}

func (m *Module) Name() string {
	return "profiles"
}

// Service returns the service layer for other modules.
func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/profile", m.handler.GetOwn)
	ctx.Protected.PUT("/profile", m.handler.UpdateOwn)
}

var _ apphttp.Module = (*Module)(nil)
