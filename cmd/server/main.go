package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mtaani/soko/internal"
	"github.com/mtaani/soko/internal/clock"
	"github.com/mtaani/soko/internal/handler"
	"github.com/mtaani/soko/internal/metrics"
	"github.com/mtaani/soko/internal/middleware"
	"github.com/mtaani/soko/internal/repository"
	"github.com/mtaani/soko/internal/service"
	"github.com/mtaani/soko/internal/sweep"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize stores
	userStore := repository.NewUserStore(db)
	catalogStore := repository.NewCatalogStore(db)
	listingStore := repository.NewListingStore(db)
	addOnStore := repository.NewAddOnStore(db)
	paymentStore := repository.NewPaymentStore(db)

	clk := clock.System()

	// Initialize services
	gateService := service.NewGateService(userStore, catalogStore, clk, logger)
	listingService := service.NewListingService(listingStore, catalogStore, gateService, clk, logger)
	addOnService := service.NewAddOnService(listingStore, addOnStore, paymentStore,
		service.EffectPolicy(cfg.EffectPolicy), clk, logger)
	paymentService := service.NewPaymentService(paymentStore, addOnStore, listingStore, clk, logger)

	// Initialize middleware
	idMw := middleware.NewIdentityMiddleware(userStore, logger)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	writeLimiter := middleware.NewWriteRateLimiter(logger)

	// Initialize handlers
	listingHandler := handler.NewListingHandler(listingService, gateService, logger)
	addOnHandler := handler.NewAddOnHandler(addOnService, logger)
	paymentHandler := handler.NewPaymentHandler(paymentService, logger)
	adminHandler := handler.NewAdminHandler(listingService, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Metrics (basic auth when configured)
	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	// Middleware stacks
	public := middleware.Stack(idMw.WithUser)
	requireUser := middleware.Stack(idMw.WithUser, idMw.RequireUser)
	requireAdmin := middleware.Stack(idMw.WithUser, idMw.RequireUser, idMw.RequireAdmin)

	// Public feed and listing detail
	mux.Handle("GET /feed", public(http.HandlerFunc(listingHandler.Feed)))
	mux.Handle("GET /listings/{id}", public(http.HandlerFunc(listingHandler.Get)))
	mux.Handle("GET /listings/{id}/add-ons", public(http.HandlerFunc(addOnHandler.List)))

	// Listing lifecycle
	mux.Handle("POST /listings/evaluate", requireUser(http.HandlerFunc(listingHandler.Evaluate)))
	mux.Handle("POST /listings",
		requireUser(writeLimiter.LimitListings(http.HandlerFunc(listingHandler.Create))))
	mux.Handle("PATCH /listings/{id}/status", requireUser(http.HandlerFunc(listingHandler.Transition)))
	mux.Handle("DELETE /listings/{id}", requireUser(http.HandlerFunc(listingHandler.Delete)))

	// Add-on purchases and payments
	mux.Handle("POST /listings/{id}/add-ons",
		requireUser(writeLimiter.LimitPurchases(http.HandlerFunc(addOnHandler.Purchase))))
	mux.Handle("GET /payments/{id}", requireUser(http.HandlerFunc(paymentHandler.Get)))

	// Admin workflow
	mux.Handle("PATCH /admin/payments/{id}/status", requireAdmin(http.HandlerFunc(paymentHandler.Transition)))
	mux.Handle("GET /admin/moderation/counts", requireAdmin(http.HandlerFunc(adminHandler.ModerationCounts)))

	// Outer middleware: metrics then request logging
	root := metrics.Middleware(loggingMw.Handler(mux))

	// ==========================================================================
	// Start background sweeper and server
	// ==========================================================================

	var sweeper *sweep.Sweeper
	if cfg.SweepEnabled {
		sweeper = sweep.New(listingStore, cfg.SweepInterval, clk, logger)
		sweeper.Start(ctx)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env, "effect_policy", cfg.EffectPolicy)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sweeper != nil {
		sweeper.Stop()
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
