package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/medguard/medguard-backend/internal/verification/events"
	"github.com/medguard/medguard-backend/internal/verification/handler"
	"github.com/medguard/medguard-backend/internal/verification/history"
	"github.com/medguard/medguard-backend/internal/verification/registry"
	"github.com/medguard/medguard-backend/internal/verification/repository"
	"github.com/medguard/medguard-backend/internal/verification/service"
	"github.com/medguard/medguard-backend/pkg/config"
	"github.com/medguard/medguard-backend/pkg/database"
	"github.com/medguard/medguard-backend/pkg/httputil"
	"github.com/medguard/medguard-backend/pkg/logger"
	"github.com/medguard/medguard-backend/pkg/messaging"
	"github.com/medguard/medguard-backend/pkg/metrics"
)

const serviceName = "verification-service"

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Msg("starting Verification Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ when configured; events are skipped otherwise
	var (
		rmq       *messaging.RabbitMQ
		publisher *events.VerificationEventPublisher
	)
	if cfg.RabbitMQ.Enabled() {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = events.NewVerificationEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
	} else {
		log.Warn().Msg("RabbitMQ not configured, verification events disabled")
	}

	// Metrics
	registryMetrics := metrics.NewRegistry()
	m, err := metrics.NewVerificationMetrics(registryMetrics)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}

	// Drug registries
	rc := cfg.Registries
	sources := []registry.Source{
		registry.NewOpenFDA(rc.OpenFDAURL, rc.Timeout),
		registry.NewRxNorm(rc.RxNormURL, rc.Timeout),
		registry.NewDailyMed(rc.DailyMedURL, rc.Timeout),
		registry.NewPubChem(rc.PubChemURL, rc.Timeout),
		registry.NewEMA(rc.EMAURL, rc.Timeout),
	}
	chain := registry.NewChain(sources, rc.Priority, log.WithComponent("registry"),
		registry.WithSequential(rc.Sequential),
		registry.WithMetrics(m),
	)
	labels := registry.NewLabelClient(rc.OpenFDAURL, rc.Timeout, cfg.Cache.LabelTTL)

	// Initialize repositories
	verifiedRepo := repository.NewVerifiedMedicineRepository(db)
	referenceRepo := repository.NewReferenceRepository(db)

	// Initialize services
	verifier := service.NewVerifier(verifiedRepo, chain, publisher, m, log.WithComponent("verifier"))
	analyzer := service.NewAnalyzer(cfg.AI, labels, m, log.WithComponent("analyzer"))
	classifier := service.NewQRClassifier(rc.Timeout, log.WithComponent("qr"))
	sessions := history.NewSessions(cfg.History.Capacity, cfg.Cache.SessionTTL)
	scanner := service.NewScanner(analyzer, classifier, verifier, referenceRepo, sessions, publisher, m, log.WithComponent("scanner"))
	pharmacies := service.NewPharmacyFinder(log)

	// Initialize handler
	verificationHandler := handler.NewVerificationHandler(
		analyzer, verifier, classifier, scanner, pharmacies, referenceRepo, log,
	)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"authorization", "x-client-info", "apikey", "content-type", "x-session-id"},
		ExposedHeaders: []string{"X-Request-ID", httputil.SessionHeader},
		MaxAge:         300,
	}))
	r.Use(httputil.RequestID)
	r.Use(httputil.Session)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  serviceName,
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
			"sessions": sessions.Len(),
		})
	})
	r.Handle("/metrics", metrics.Handler(registryMetrics))

	// API routes
	r.Mount("/api/v1", verificationHandler.Routes())

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
