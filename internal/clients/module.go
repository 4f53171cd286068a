// Package clients provides the client identity bounded context module.
package clients

import (
	"propsales_backend/internal/clients/handler"
	"propsales_backend/internal/clients/repository"
	"propsales_backend/internal/clients/service"
	apphttp "propsales_backend/internal/http"
	"propsales_backend/platform/logger"
	"propsales_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the clients bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the clients module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "clients"
}

// Repository returns the repository for identity resolution at the boundary.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts client routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/clients", m.handler.Register)
	ctx.Client.GET("/clients/me", m.handler.GetProfile)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
