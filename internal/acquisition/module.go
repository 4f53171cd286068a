// Package acquisition provides the property acquisition bounded context
// module: interest lifecycle, commitment locking, agreement signing,
// deposits and the handover pipeline.
package acquisition

import (
	"propsales_backend/internal/acquisition/handler"
	"propsales_backend/internal/acquisition/repository"
	"propsales_backend/internal/acquisition/service"
	"propsales_backend/internal/events"
	apphttp "propsales_backend/internal/http"
	"propsales_backend/internal/payments"
	"propsales_backend/platform/logger"
	"propsales_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the acquisition bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the acquisition module.
func NewModule(pool *pgxpool.Pool, clients service.ClientReader, gateway payments.Gateway, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, clients, gateway, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "acquisition"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts acquisition routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public read-only endpoint
	ctx.V1.GET("/properties/:id", m.handler.GetProperty)

	// Client-scoped acquisition flow
	ctx.Client.POST("/properties/:id/interest", m.handler.ExpressInterest)
	ctx.Client.DELETE("/properties/:id/interest", m.handler.CancelInterest)
	ctx.Client.POST("/properties/:id/reserve", m.handler.ReserveProperty)
	ctx.Client.POST("/properties/:id/commit", m.handler.CommitProperty)
	ctx.Client.POST("/properties/:id/agreement", m.handler.SignAgreement)
	ctx.Client.POST("/properties/:id/deposit", m.handler.PayDeposit)
	ctx.Client.POST("/properties/:id/deposit/confirm", m.handler.ConfirmDeposit)

	// Admin workflow endpoints
	adminGroup := ctx.Admin.Group("/properties/:id")
	adminGroup.POST("/handover", m.handler.StartHandover)
	adminGroup.POST("/handover/advance", m.handler.AdvanceHandoverStage)
	adminGroup.PATCH("/subdivision", m.handler.SetSubdivisionStatus)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
