package main

// @title Circuit Microservice API
// @version 1.0.0
// @description Сервис редактора circuits для карт точек интереса. Ведёт черновики маршрутов, сохранённые circuits, аннотации POI, импорт и экспорт GPX с согласованием принадлежности файлов, а также батч-слияние мобильных бэкапов в канонический GeoJSON.
// @description
// @description Основные возможности:
// @description - Стейт-машина черновика circuit (добавление, перестановка, замыкание, сохранение)
// @description - Аннотации POI с журналом модификаций
// @description - GPX кодек с тройным встраиванием идентификатора circuit
// @description - Согласование импортируемых GPX файлов (зона, идентификатор, близость waypoint'ов)
// @description - Слияние мобильных бэкапов: новые POI, GPS-коррекции, обогащение контента

// @contact.name API Support
// @contact.email support@circuit-microservice.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/circuit-microservice/docs/swagger"
	"github.com/circuit-microservice/internal/config"
	httpDelivery "github.com/circuit-microservice/internal/delivery/http"
	"github.com/circuit-microservice/internal/delivery/http/handler"
	"github.com/circuit-microservice/internal/infrastructure/gpxfile"
	"github.com/circuit-microservice/internal/pkg/logger"
	"github.com/circuit-microservice/internal/repository/cache"
	"github.com/circuit-microservice/internal/repository/postgres"
	redisRepo "github.com/circuit-microservice/internal/repository/redis"
	"github.com/circuit-microservice/internal/usecase"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Circuit Microservice")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
	)

	// 3. Connect to PostgreSQL
	db, err := postgres.New(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close PostgreSQL connection", zap.Error(err))
		}
	}()

	// 4. Connect to Redis
	redisClient, err := cache.NewRedis(&cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	// 5. Health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Health(ctx); err != nil {
		log.Fatal("PostgreSQL health check failed", zap.Error(err))
	}
	if err := redisClient.Health(ctx); err != nil {
		log.Fatal("Redis health check failed", zap.Error(err))
	}
	log.Info("All connections healthy")

	// 6. Initialize Repositories
	annotationRepo := postgres.NewAnnotationRepository(db)
	circuitRepo := postgres.NewCircuitRepository(db)
	settingsRepo := postgres.NewSettingsRepository(db)
	cacheRepo := cache.NewCacheRepository(redisClient)
	modLogRepo := redisRepo.NewModLogRepository(redisClient.Client(), log)
	gpxFiles := gpxfile.NewClient(&cfg.GPX, log)
	log.Info("Repositories initialized")

	// 7. Initialize Use Cases
	sessions := usecase.NewSessionStore()

	circuitUC := usecase.NewCircuitUseCase(
		circuitRepo,
		annotationRepo,
		settingsRepo,
		cacheRepo,
		gpxFiles,
		sessions,
		log,
		cfg.Circuit.MaxPoints,
	)

	mapUC := usecase.NewMapUseCase(
		annotationRepo,
		circuitRepo,
		modLogRepo,
		cacheRepo,
		sessions,
		log,
		&cfg.Circuit,
	)

	reconcileUC := usecase.NewReconcileUseCase(
		circuitRepo,
		cacheRepo,
		sessions,
		log,
		&cfg.GPX,
	)

	fusionUC := usecase.NewFusionUseCase(&cfg.Fusion, log)

	log.Info("Use cases initialized")

	// 8. Initialize HTTP Handlers
	circuitHandler := handler.NewCircuitHandler(circuitUC, log)
	mapHandler := handler.NewMapHandler(mapUC, log)
	gpxHandler := handler.NewGPXHandler(reconcileUC, log)
	fusionHandler := handler.NewFusionHandler(fusionUC, log)
	log.Info("HTTP handlers initialized")

	// 9. Initialize HTTP Server
	server := httpDelivery.NewServer(
		cfg,
		log,
		circuitHandler,
		mapHandler,
		gpxHandler,
		fusionHandler,
	)
	log.Info("HTTP server initialized")

	// 10. Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 11. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	log.Info("Server stopped successfully")
}
