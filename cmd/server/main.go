// Package main is the entry point for the application.
// It initializes all dependencies, sets up the HTTP server,
// starts the background schedulers and serves until interrupted.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"findr/internal/config"
	"findr/internal/gateway"
	"findr/internal/handlers"
	"findr/internal/repositories"
	"findr/internal/routes"
	"findr/internal/services/escrow"
	"findr/internal/services/notification"
	"findr/internal/services/reconciler"
	"findr/internal/services/scheduler"
	"findr/internal/services/strike"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	// Load environment variables
	config.LoadEnv()

	// Initialize databases (PostgreSQL + Redis)
	if err := repositories.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sqlDB, err := repositories.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	maxIdleConns, _ := strconv.Atoi(config.GetEnv("DB_MAX_IDLE_CONNS", "10"))
	maxOpenConns, _ := strconv.Atoi(config.GetEnv("DB_MAX_OPEN_CONNS", "100"))
	connMaxLifetime, _ := time.ParseDuration(config.GetEnv("DB_CONN_MAX_LIFETIME", "1h"))
	connMaxIdleTime, _ := time.ParseDuration(config.GetEnv("DB_CONN_MAX_IDLE_TIME", "30m"))

	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("✅ Successfully connected to database with connection pooling")

	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Printf("⚠️ Failed to close database connection: %v", err)
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.Close(); err != nil {
				log.Printf("⚠️ Failed to close Redis connection: %v", err)
			}
		}
	}()

	// Wire up the service layer
	store := repositories.NewStore(repositories.DB)
	notifier := notification.NewService()

	escrowService := escrow.NewService(store, notifier, escrow.Config{
		ReviewWindow: config.GetDurationEnv("REVIEW_WINDOW", escrow.DefaultReviewWindow),
	})

	verifier := gateway.NewStripeVerifier()
	reconcilerService := reconciler.NewService(
		store,
		escrowService,
		verifier,
		config.GetEnv("WEBHOOK_SECRET", ""),
	)

	strikeService := strike.NewService(store, repositories.CacheService, notifier, strike.Config{
		BanThreshold: config.GetIntEnv("STRIKE_BAN_THRESHOLD", strike.DefaultBanThreshold),
		StrikeTTL:    config.GetDurationEnv("STRIKE_TTL", strike.DefaultStrikeTTL),
	})

	// Background schedulers
	autoRelease := scheduler.NewAutoRelease(store, escrowService, scheduler.DefaultGracePeriod)

	registry := scheduler.NewRegistry()
	registry.Register(autoRelease, config.GetDurationEnv("AUTO_RELEASE_INTERVAL", scheduler.DefaultInterval), true)
	registry.Register(scheduler.NewTask("strike_sweep", func(ctx context.Context) error {
		_, err := strikeService.ExpireSweep(ctx)
		return err
	}), config.GetDurationEnv("STRIKE_SWEEP_INTERVAL", strike.DefaultSweepInterval), false)

	registry.StartAll()
	defer registry.StopAll()

	// Create Fiber app
	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Webhook-Signature",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: true,
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.SetupRoutes(
		app,
		store,
		handlers.NewEscrowHandler(escrowService),
		handlers.NewWebhookHandler(reconcilerService),
		handlers.NewStrikeHandler(strikeService),
		handlers.NewAdminHandler(escrowService, autoRelease),
	)

	// Serve until interrupted so the deferred scheduler and connection
	// shutdown actually runs.
	go func() {
		if err := app.Listen(":" + config.GetEnv("PORT", "3000")); err != nil {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	if err := app.Shutdown(); err != nil {
		log.Printf("⚠️ Server shutdown error: %v", err)
	}
}
