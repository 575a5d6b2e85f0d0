package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adityahazarika/flash-sale-flow/internal/config"
	"github.com/adityahazarika/flash-sale-flow/internal/handlers"
	"github.com/adityahazarika/flash-sale-flow/internal/logger"
	"github.com/adityahazarika/flash-sale-flow/internal/messaging"
	"github.com/adityahazarika/flash-sale-flow/internal/metrics"
	"github.com/adityahazarika/flash-sale-flow/internal/middleware"
	"github.com/adityahazarika/flash-sale-flow/internal/repository"
	"github.com/adityahazarika/flash-sale-flow/internal/repository/memory"
	"github.com/adityahazarika/flash-sale-flow/internal/retry"
	"github.com/adityahazarika/flash-sale-flow/internal/service"
	"github.com/adityahazarika/flash-sale-flow/internal/web"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	_ "github.com/lib/pq"
)

func main() {
	log := logger.New("reservation-service")
	log.Info().Msg("🚀 Reservation service starting")

	cfg := config.Load()

	orderStore, inventoryStore, inventoryAdmin, closeStores, err := initStores(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Store initialization failed")
	}
	defer closeStores()

	rabbitConfig := messaging.NewRabbitMQConfig()
	rabbitClient := messaging.NewRabbitMQClient(rabbitConfig, log)
	if err := rabbitClient.Connect(); err != nil {
		log.Fatal().Err(err).Msg("RabbitMQ connection failed")
	}
	defer rabbitClient.Close()

	publisher := messaging.NewPublisher(rabbitClient, log)

	reservations := service.NewReservationService(orderStore, inventoryStore, log)
	resolver := service.NewResolverService(orderStore, inventoryStore, publisher, log)

	reaperResolver := resolver.WithRetry(retry.Policy{
		Attempts:  cfg.Reaper.RetryAttempts,
		BaseDelay: cfg.Reaper.RetryBaseDelay,
	}, cfg.Reaper.InventoryConcurrency)
	reaper := service.NewReaperService(orderStore, reaperResolver, cfg.Reaper, log)

	orderHandler := handlers.NewOrderHandler(reservations, orderStore)
	paymentHandler := handlers.NewPaymentHandler(resolver, log)
	inventoryHandler := handlers.NewInventoryHandler(inventoryAdmin)

	app := setupFiberApp(log)
	setupRoutes(app, cfg, log, orderHandler, paymentHandler, inventoryHandler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Reaper.Enabled {
		go runReaperSchedule(ctx, reaper, cfg.Reaper.Interval, log)
	}

	go serveMetrics(cfg.MetricsPort, log)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("🛑 Reservation service shutting down")
		cancel()
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Shutdown error")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("🌍 Reservation service listening")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("Server start error")
	}
}

func initStores(cfg *config.Config, log zerolog.Logger) (service.OrderStore, service.InventoryStore, handlers.InventoryAdmin, func(), error) {
	if cfg.StoreDriver == "memory" {
		log.Warn().Msg("Using volatile in-memory stores")
		inventory := memory.NewInventoryStore()
		return memory.NewOrderStore(), inventory, inventory, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("database open error: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, nil, nil, fmt.Errorf("database ping error: %w", err)
	}
	log.Info().Str("database", cfg.Database.Name).Msg("✅ Database connected")

	inventory := repository.NewInventoryRepository(db)
	return repository.NewOrderRepository(db), inventory, inventory, func() { db.Close() }, nil
}

func setupFiberApp(log zerolog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Reservation Service v1.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal Server Error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}
			log.Error().Err(err).Int("status", code).Str("path", c.Path()).Msg("Request error")
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": message,
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID",
	}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${method} ${path} - ${latency}\n",
	}))

	return app
}

func setupRoutes(app *fiber.App, cfg *config.Config, log zerolog.Logger,
	orderHandler *handlers.OrderHandler,
	paymentHandler *handlers.PaymentHandler,
	inventoryHandler *handlers.InventoryHandler,
) {
	api := app.Group("/api/v1")

	api.Get("/health", orderHandler.HealthCheck)

	orders := api.Group("/orders")
	orders.Post("/", orderHandler.CreateOrder)
	orders.Get("/:id", orderHandler.GetOrderByID)

	payments := api.Group("/payments")
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		dedupe := middleware.NewWebhookDedupe(rdb, cfg.Redis.WebhookTTL, log)
		payments.Use("/webhook", dedupe.Middleware())
	}
	payments.Post("/webhook", paymentHandler.HandleWebhook)

	inventory := api.Group("/inventory")
	inventory.Get("/:product_id", inventoryHandler.GetItem)
	inventory.Put("/:product_id", inventoryHandler.Restock)

	app.Use("*", func(c *fiber.Ctx) error {
		return web.NotFoundResponse(c, "Route not found")
	})
}

func runReaperSchedule(ctx context.Context, reaper *service.ReaperService, interval time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("Timeout reaper scheduled")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Timeout reaper schedule stopped")
			return
		case <-ticker.C:
			if _, err := reaper.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Reaper run failed")
			}
		}
	}
}

func serveMetrics(port string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	log.Info().Str("port", port).Msg("Metrics listening")
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Error().Err(err).Msg("Metrics server error")
	}
}
