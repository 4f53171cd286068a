package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"propsales_backend/internal/acquisition"
	"propsales_backend/internal/clients"
	"propsales_backend/internal/email"
	"propsales_backend/internal/events"
	apphttp "propsales_backend/internal/http"
	"propsales_backend/internal/http/middleware"
	"propsales_backend/internal/http/router"
	"propsales_backend/internal/notification"
	"propsales_backend/internal/notification/audit"
	"propsales_backend/internal/notification/outbox"
	"propsales_backend/internal/payments"
	"propsales_backend/internal/scheduler"
	"propsales_backend/migrations"
	"propsales_backend/platform/config"
	"propsales_backend/platform/db"
	"propsales_backend/platform/logger"
	"propsales_backend/platform/validator"

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
		return db.RunMigrations(ctx, cfg, migrations.FS)
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

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	gateway := newPaymentGateway(cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	clientsModule := clients.NewModule(pool, val, log)
	acquisitionModule := acquisition.NewModule(pool, clientsModule.Repository(), gateway, eventBus, val, log)

	outboxRepo := outbox.New(pool)
	auditRepo := audit.New(pool)

	// Notification module subscribes to domain events; acquisition never
	// knows about email or the audit trail.
	acqRepo := acquisitionModule.Repository()
	notificationModule := notification.New(sender, clientsModule.Repository(), acqRepo, acqRepo, auditRepo, outboxRepo, log)
	notificationModule.UseAuditReader(auditRepo)
	notificationModule.RegisterHandlers(eventBus)

	// Deferred notifications ride the outbox; without Redis they stay
	// pending until a worker environment picks them up.
	if cfg.GetRedisURL() != "" {
		dispatcher, err := scheduler.NewNotificationOutboxDispatcher(cfg, outboxRepo, log)
		if err != nil {
			log.Error("failed to initialize outbox dispatcher", "error", err)
			panic("failed to initialize outbox dispatcher: " + err.Error())
		}
		defer dispatcher.Close()
		go dispatcher.Run(ctx)
	} else {
		log.Warn("REDIS_URL not configured; deferred notifications disabled")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:         cfg,
		Logger:         log,
		Health:         db.NewPoolAdapter(pool),
		EventBus:       eventBus,
		ClientResolver: middleware.ResolveClient(clientsModule.Repository()),
		Modules: []apphttp.Module{
			clientsModule,
			acquisitionModule,
			notificationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func newPaymentGateway(cfg config.PaymentConfig, log *logger.Logger) payments.Gateway {
	if cfg.GetPaymentGatewayMode() == "live" && cfg.GetPaymentGatewayURL() != "" {
		log.Info("payment gateway initialized", "mode", "live")
		return payments.NewHTTPGateway(cfg.GetPaymentGatewayURL())
	}
	log.Info("payment gateway initialized", "mode", "sandbox")
	return payments.NewSandbox()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
