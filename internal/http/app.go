package http

import (
	"context"

	"propsales_backend/internal/events"
	"propsales_backend/platform/config"
	"propsales_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies. It is populated
// by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the HTTP server settings.
	Config config.HTTPConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness checks (DB ping).
	Health HealthChecker
	// EventBus is the domain event bus for cross-module communication.
	EventBus events.Bus
	// ClientResolver authenticates the client-scoped route group.
	ClientResolver gin.HandlerFunc
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
