package main

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sheetvault/internal/activity"
	"sheetvault/internal/cache"
	"sheetvault/internal/config"
	"sheetvault/internal/extract"
	handlers "sheetvault/internal/http/handler"
	"sheetvault/internal/http/middleware"
	"sheetvault/internal/logger"
	"sheetvault/internal/orders"
	"sheetvault/internal/registry"
	"sheetvault/internal/service"
	"sheetvault/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	// Remote blob store holding the authoritative file bytes
	remote, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize object storage")
	}

	// Local durable cache: archive index plus extraction results
	store, err := cache.NewDiskStore(cfg.Cache.Dir)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize local cache")
	}
	index := cache.NewIndex(store)

	// Advisory metadata registry; nil when disabled
	var reg *registry.Client
	if cfg.Registry.Enabled {
		reg = registry.New(cfg.Registry.BaseURL, time.Duration(cfg.Registry.TimeoutSec)*time.Second)
	}

	var sink activity.Sink = activity.Nop{}
	if cfg.Activity.Enabled && cfg.Activity.Endpoint != "" {
		sink = activity.NewHTTPSink(cfg.Activity.Endpoint, log)
	}

	urlExpiry := time.Duration(cfg.MinIO.URLExpirySec) * time.Second
	svc := service.NewArchiveService(remote, index, reg, sink, urlExpiry, log)
	pipeline := extract.NewPipeline(index, orders.NewValidator(), nil, log)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))

	promReg := prometheus.NewRegistry()
	promMiddleware, err := middleware.NewPrometheusMiddleware(promReg)
	if err != nil {
		log.Fatal().Err(err).Msg("register prometheus metrics")
	}
	app.Use(promMiddleware.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, svc, pipeline)

	addr := ":" + cfg.Port
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("start server")
	}
}
