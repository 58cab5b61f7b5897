package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tripcast/weather-advisor/internal/advice"
	httpapi "github.com/tripcast/weather-advisor/internal/api/http"
	"github.com/tripcast/weather-advisor/internal/config"
	"github.com/tripcast/weather-advisor/internal/logging"
	"github.com/tripcast/weather-advisor/internal/observability"
	"github.com/tripcast/weather-advisor/internal/openweather"
	"github.com/tripcast/weather-advisor/internal/requests"
	"github.com/tripcast/weather-advisor/internal/scheduler"
	"github.com/tripcast/weather-advisor/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(cfg.AppEnv, cfg.LogLevel)
	slog.SetDefault(logger)

	metrics := observability.NewMetrics()

	db, err := store.Open(cfg.SQLitePath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	requestStore := store.New(db)

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	owm := openweather.NewClient(httpClient, cfg.OpenWeatherAPIKey, metrics, logger)
	geocoder := openweather.NewCachedGeocoder(owm, cfg.GeocodeCacheTTL, cfg.GeocodeCacheSize, metrics)

	assistant := advice.NewGenerator(cfg.OpenAIAPIKey, cfg.AdviceModel, cfg.AnswerModel, logger)
	if !assistant.Enabled() {
		logger.Warn("OPENAI_API_KEY not set, advice and Q&A are disabled")
	}

	service := requests.NewService(requestStore, geocoder, owm, assistant, metrics, logger)

	// Hourly eviction of expired geocode cache entries.
	sched := scheduler.New(geocoder, time.Hour, logger)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-advisor",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(app, service, assistant, metrics)

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
}
