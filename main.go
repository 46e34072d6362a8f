package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/SAP-F-2025/study-buddy-service/internal/config"
	"github.com/SAP-F-2025/study-buddy-service/internal/events"
	"github.com/SAP-F-2025/study-buddy-service/internal/handlers"
	"github.com/SAP-F-2025/study-buddy-service/internal/repositories"
	"github.com/SAP-F-2025/study-buddy-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/study-buddy-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/study-buddy-service/internal/services"
	"github.com/SAP-F-2025/study-buddy-service/internal/storage"
	"github.com/SAP-F-2025/study-buddy-service/internal/timer"
	"github.com/SAP-F-2025/study-buddy-service/internal/utils"
	"github.com/SAP-F-2025/study-buddy-service/internal/validator"
	"github.com/SAP-F-2025/study-buddy-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database (study logs, and the kv store for the sql driver)
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize key-value storage
	var backend storage.Backend
	switch cfg.StorageDriver {
	case config.StorageRedis:
		redisClient, err := pkg.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize Redis: %v", err)
		}
		backend = storage.NewRedisBackend(redisClient, cfg.RedisNamespace)
	case config.StorageSQL:
		sqlBackend, err := storage.NewSQLBackend(db)
		if err != nil {
			log.Fatalf("Failed to initialize SQL storage: %v", err)
		}
		backend = sqlBackend
	}

	// Initialize repositories
	hasher := repositories.NewBcryptVerifier(bcrypt.DefaultCost)
	repoConfig := postgres.RepositoryConfig{
		DB:            db,
		LocalVerifier: hasher,
	}
	if cfg.Casdoor.Enabled() {
		repoConfig.CasdoorConfig = casdoor.CasdoorConfig{
			Endpoint:         cfg.Casdoor.Endpoint,
			ClientID:         cfg.Casdoor.ClientID,
			ClientSecret:     cfg.Casdoor.ClientSecret,
			Certificate:      cfg.Casdoor.Cert,
			OrganizationName: cfg.Casdoor.Organization,
			ApplicationName:  cfg.Casdoor.Application,
		}
		logger.Info("Verifying credentials with Casdoor", "endpoint", cfg.Casdoor.Endpoint)
	}
	repoManager := postgres.NewRepositoryManager(repoConfig)
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	// Initialize event publisher
	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.EventsTopic, slogLogger)
		if err != nil {
			log.Fatalf("Failed to initialize Kafka publisher: %v", err)
		}
		publisher = kafkaPublisher
	} else {
		publisher, _ = events.NewGoChannelPublisher(cfg.EventsTopic, slogLogger)
	}

	// Initialize validator
	validator := validator.New()

	// Initialize services
	serviceManager := services.NewServiceManager(services.Dependencies{
		Backend:   backend,
		Repo:      repoManager.GetRepository(),
		Hasher:    hasher,
		Publisher: publisher,
		Clock:     timer.RealClock{},
		Logger:    slogLogger,
		Validator: validator,
	}, services.ServiceManagerConfig{
		Presence: services.PresenceConfig{
			StaleAfter:      cfg.Presence.StaleAfter,
			DefaultDuration: cfg.Presence.DefaultDuration,
		},
		HeartbeatInterval: cfg.Presence.HeartbeatInterval,
		HistoryEnabled:    true,
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, validator, logger)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Setup middleware
	handlers.SetupMiddleware(router, logger)

	// Setup routes
	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment, "storage", cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Shutdown services (ends running sessions)
	if err := serviceManager.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown services: %v", err)
	}

	if err := publisher.Close(); err != nil {
		log.Printf("Failed to close event publisher: %v", err)
	}

	if err := backend.Close(); err != nil {
		log.Printf("Failed to close storage: %v", err)
	}

	// Closes the database connection
	if err := repoManager.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown repositories: %v", err)
	}

	logger.Info("Server exited")
}
