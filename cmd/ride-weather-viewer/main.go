package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/ride-weather-viewer/internal/annotator"
	httpapi "github.com/i474232898/ride-weather-viewer/internal/api/http"
	"github.com/i474232898/ride-weather-viewer/internal/chart"
	"github.com/i474232898/ride-weather-viewer/internal/config"
	"github.com/i474232898/ride-weather-viewer/internal/logger"
	"github.com/i474232898/ride-weather-viewer/internal/mapview"
	"github.com/i474232898/ride-weather-viewer/internal/scheduler"
	"github.com/i474232898/ride-weather-viewer/internal/viewer"
)

func main() {
	// Load configuration (.env first, then the environment).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.Init(cfg.LogLevel, cfg.Environment)
	defer logger.Sync()
	lg := logger.Get()

	// Shared HTTP client for outbound calls to the annotation service.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	client := annotator.New(httpClient, annotator.Config{
		Endpoint:   cfg.ServiceURL,
		HealthURL:  cfg.ServiceHealthURL,
		MaxRetries: cfg.ServiceMaxRetries,
		RateLimit:  cfg.ServiceRateLimit,
		RateBurst:  cfg.ServiceRateBurst,
	}, lg.Named("annotator"))

	// Renderers own the single chart and the single map.
	chartRenderer := chart.NewRenderer(chart.Options{
		Width:  cfg.ChartWidth,
		Height: cfg.ChartHeight,
		StepKm: cfg.StepKm,
	}, lg.Named("chart"))
	rideMap := mapview.New(mapview.TileLayer{
		URL:         cfg.TileURL,
		Attribution: cfg.TileAttribution,
	}, lg.Named("map"))

	ctrl := viewer.NewController(client, chartRenderer, rideMap, viewer.Options{
		Timeout: cfg.HTTPTimeout,
		StepKm:  cfg.StepKm,
	}, lg.Named("viewer"))

	// Keep the annotation service awake between rides.
	sched := scheduler.New(client, cfg.KeepAliveInterval, lg.Named("scheduler"))
	if err := sched.Start(); err != nil {
		lg.Fatalw("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "ride-weather-viewer",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          cfg.HTTPTimeout + 10*time.Second,
		BodyLimit:             cfg.MaxUploadBytes + 1<<20,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "ride-weather-viewer",
		})
	})

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Controller:     ctrl,
		Chart:          chartRenderer,
		Map:            rideMap,
		MapWidth:       cfg.MapWidth,
		MapHeight:      cfg.MapHeight,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	go func() {
		lg.Infow("listening", "port", cfg.Port, "service_url", cfg.ServiceURL)
		if err := app.Listen(":" + cfg.Port); err != nil {
			lg.Warnw("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		lg.Errorw("error during shutdown", "error", err)
	}
}
