package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medgrid/bedbridge/backend/internal/adapters/cache"
	"github.com/medgrid/bedbridge/backend/internal/adapters/database"
	"github.com/medgrid/bedbridge/backend/internal/adapters/events"
	"github.com/medgrid/bedbridge/backend/internal/api/handlers"
	"github.com/medgrid/bedbridge/backend/internal/api/middleware"
	"github.com/medgrid/bedbridge/backend/internal/api/routes"
	"github.com/medgrid/bedbridge/backend/internal/application/services"
	"github.com/medgrid/bedbridge/backend/internal/domain/providers"
	"github.com/medgrid/bedbridge/backend/internal/infrastructure/clients/postgres"
	"github.com/medgrid/bedbridge/backend/internal/infrastructure/clients/redis"
	"github.com/medgrid/bedbridge/backend/internal/infrastructure/observability"
	"github.com/medgrid/bedbridge/backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Warn().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	log.Info().Msg("PostgreSQL client initialized")

	// Redis is optional: without it the service runs with no response
	// cache and no real-time streams
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize Redis client, continuing without it")
		redisClient = nil
	} else {
		defer redisClient.Close()
		log.Info().Msg("Redis client initialized")
	}

	// Initialize adapters
	hospitalAdapter := database.NewHospitalAdapter(pgClient)
	bedAdapter := database.NewBedAdapter(pgClient)
	ledgerAdapter := database.NewBedLedgerAdapter(pgClient)
	transferAdapter := database.NewTransferAdapter(pgClient)

	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
		eventBus = events.NewRedisEventBus(redisClient)
		log.Info().Msg("event bus initialized")
	} else {
		log.Info().Msg("event bus disabled (Redis not available)")
	}

	// Initialize services
	notificationService := services.NewNotificationService(eventBus)
	syncService := services.NewLedgerSyncService(bedAdapter, ledgerAdapter, hospitalAdapter, notificationService)
	capacityService := services.NewCapacityService(ledgerAdapter, hospitalAdapter, notificationService)
	bedService := services.NewBedService(bedAdapter, hospitalAdapter, syncService)
	transferService := services.NewTransferService(transferAdapter, ledgerAdapter, hospitalAdapter, notificationService, metrics)
	resolver := services.NewHospitalResolver(hospitalAdapter, cfg.Hospital.DefaultCode)

	// Periodically cancel requests that sat too long in pending or
	// approved; a disabled TTL pair makes the sweep a no-op
	if cfg.Transfer.PendingTTL > 0 || cfg.Transfer.ApprovedTTL > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Transfer.SweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					expired, err := transferService.ExpireStale(ctx, cfg.Transfer.PendingTTL, cfg.Transfer.ApprovedTTL)
					if err != nil {
						log.Warn().Err(err).Msg("stale transfer sweep failed")
					} else if expired > 0 {
						log.Info().Int("expired", expired).Msg("stale transfers cancelled")
					}
				}
			}
		}()
		log.Info().
			Dur("pending_ttl", cfg.Transfer.PendingTTL).
			Dur("approved_ttl", cfg.Transfer.ApprovedTTL).
			Dur("interval", cfg.Transfer.SweepInterval).
			Msg("stale transfer sweeper started")
	}

	// Initialize handlers
	capacityHandler := handlers.NewCapacityHandler(capacityService)
	transferHandler := handlers.NewTransferHandler(transferService, resolver)
	ledgerHandler := handlers.NewLedgerHandler(capacityService, syncService)
	bedHandler := handlers.NewBedHandler(bedService)

	var sseHandler *handlers.SSEHandler
	if eventBus != nil {
		sseHandler = handlers.NewSSEHandler(eventBus)
	}

	// Initialize cache middleware
	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider)
		log.Info().Msg("cache middleware initialized")
	}

	// Set up router
	router := routes.NewRouter(
		capacityHandler,
		transferHandler,
		ledgerHandler,
		bedHandler,
		sseHandler,
		cacheMiddleware,
		metrics,
	)
	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("error during server shutdown")
	}

	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing event bus")
		}
	}

	log.Info().Msg("server stopped")
}
