package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"

	"github.com/circuit-microservice/internal/config"
	"github.com/circuit-microservice/internal/delivery/http/handler"
	"github.com/circuit-microservice/internal/delivery/http/middleware"
	"github.com/circuit-microservice/internal/pkg/errors"
)

// Server - HTTP сервер на основе Fiber
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	// Handlers
	circuitHandler *handler.CircuitHandler
	mapHandler     *handler.MapHandler
	gpxHandler     *handler.GPXHandler
	fusionHandler  *handler.FusionHandler
}

// NewServer - создание нового HTTP сервера
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	circuitHandler *handler.CircuitHandler,
	mapHandler *handler.MapHandler,
	gpxHandler *handler.GPXHandler,
	fusionHandler *handler.FusionHandler,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Circuit Microservice",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    16 * 1024 * 1024, // GeoJSON карты и бэкапы бывают крупными
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:            app,
		config:         cfg,
		logger:         logger,
		circuitHandler: circuitHandler,
		mapHandler:     mapHandler,
		gpxHandler:     gpxHandler,
		fusionHandler:  fusionHandler,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

// setupMiddlewares - настройка middleware
func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery())
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS())
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

// setupRoutes - настройка маршрутов
func (s *Server) setupRoutes() {
	// Swagger documentation route
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)

	api := s.app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	// Map layer and annotations
	maps := api.Group("/maps/:map_id")
	maps.Post("/geojson", s.mapHandler.LoadGeoJSON)
	maps.Get("/annotations", s.mapHandler.Annotations)
	maps.Get("/clusters", s.mapHandler.PoiClusters)
	maps.Put("/pois/:poi_id/annotations", s.mapHandler.Annotate)
	maps.Get("/backup", s.mapHandler.ExportBackup)
	maps.Get("/modlog", s.mapHandler.ExportModLog)

	// Draft state machine
	maps.Get("/draft", s.circuitHandler.GetDraft)
	maps.Post("/draft/points", s.circuitHandler.AddPoi)
	maps.Delete("/draft/points/:index", s.circuitHandler.RemovePoint)
	maps.Post("/draft/reorder", s.circuitHandler.Reorder)
	maps.Post("/draft/loop", s.circuitHandler.Loop)
	maps.Post("/draft/save", s.circuitHandler.Save)
	maps.Post("/draft/detach", s.circuitHandler.ConvertToDraft)
	maps.Post("/draft/recover", s.mapHandler.RecoverDraft)

	// Persisted circuits
	maps.Get("/circuits", s.circuitHandler.List)
	maps.Get("/circuits/:id", s.circuitHandler.Load)
	maps.Delete("/circuits/:id", s.circuitHandler.Delete)
	maps.Put("/circuits/:id/visited", s.circuitHandler.SetVisited)
	maps.Get("/circuits/:id/gpx", s.circuitHandler.ExportGPX)

	// Share links
	api.Post("/circuits/import-link", s.circuitHandler.ImportShareLink)

	// GPX import reconciliation
	api.Post("/gpx/import", s.gpxHandler.Analyze)
	api.Post("/gpx/import/:token/confirm", s.gpxHandler.Confirm)

	// Batch fusion
	api.Post("/fusion/analyze", s.fusionHandler.Analyze)
	api.Post("/fusion/apply", s.fusionHandler.Apply)
}

// Start - запуск HTTP сервера
func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown - graceful shutdown HTTP сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler - кастомный обработчик ошибок
func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error("HTTP Error",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		if appErr, ok := err.(*errors.AppError); ok {
			return c.Status(appErr.StatusCode).JSON(fiber.Map{
				"error": appErr,
			})
		}

		return c.Status(code).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "INTERNAL_ERROR",
				"message": err.Error(),
			},
		})
	}
}
