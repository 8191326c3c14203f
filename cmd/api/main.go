package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/gfreitas/placepin/internal/adapters/blob"
	"github.com/gfreitas/placepin/internal/adapters/geocoding"
	"github.com/gfreitas/placepin/internal/adapters/http"
	natsadapter "github.com/gfreitas/placepin/internal/adapters/nats"
	"github.com/gfreitas/placepin/internal/adapters/postgres"
	"github.com/gfreitas/placepin/internal/adapters/sqlite"
	"github.com/gfreitas/placepin/internal/adapters/valkey"
	"github.com/gfreitas/placepin/internal/core/ports"
	"github.com/gfreitas/placepin/internal/core/usecases"
	"github.com/gfreitas/placepin/internal/pkg/config"
	"github.com/gfreitas/placepin/internal/pkg/logging"
	"github.com/gfreitas/placepin/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("placepin-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	// Local blob storage. Preferences always live here, and with the sqlite
	// backend the collection snapshot does too.
	kv, err := sqlite.Open(ctx, cfg.Store.SQLitePath)
	if err != nil {
		log.Fatalf("sqlite: %v", err)
	}
	defer kv.Close()

	// Collection store backend
	var store ports.CollectionStore
	var db *postgres.DB
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err = postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		go db.ReportPoolMetrics(ctx, 15*time.Second)
		store = postgres.NewLocationRepo(db)
	default:
		store = blob.NewCollectionStore(kv)
	}

	// Cache (optional)
	var cache *valkey.Cache
	if cfg.Valkey.Addr != "" {
		cache, err = valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	// Event publishing (optional)
	var events ports.EventPublisher
	var natsConn *nats.Conn
	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			events = pub
		}

		// Raw NATS connection for the WebSocket relay
		natsConn, err = natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
		}
	}

	// Geocoding client
	geocoder := geocoding.New(geocoding.Config{
		SearchURL:    cfg.Geocoding.SearchURL,
		CountriesURL: cfg.Geocoding.CountriesURL,
		UserAgent:    cfg.Geocoding.UserAgent,
		MinInterval:  time.Duration(cfg.Geocoding.MinIntervalMS) * time.Millisecond,
		Timeout:      time.Duration(cfg.Geocoding.TimeoutSeconds) * time.Second,
	})

	// Use cases
	collectionSvc := usecases.NewCollectionService(store, events, cfg.Store.Strict)
	if err := collectionSvc.Load(ctx); err != nil {
		log.Fatalf("load collection: %v", err)
	}
	var cacheSvc ports.CacheService
	if cache != nil {
		cacheSvc = cache
	}
	geocodeSvc := usecases.NewGeocodeService(geocoder, cacheSvc)
	preferencesSvc := usecases.NewPreferencesService(kv)

	deps := &http.Dependencies{
		Collection:  collectionSvc,
		Geocode:     geocodeSvc,
		Preferences: preferencesSvc,
		NATS:        natsConn,
		DB:          db,
		Cache:       cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    5 * 1024 * 1024, // import payloads can carry a whole collection
		AppName:      "PlacePin API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "backend", cfg.Store.Backend)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
