package api

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())
	if !s.config.IsProduction() {
		s.app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(s.config.Security.AllowOrigins, ","),
		AllowHeaders:  "Origin, Content-Type, Accept",
		AllowMethods:  "GET, POST, OPTIONS",
		ExposeHeaders: "Content-Disposition",
	}))
	s.app.Use(s.metricsMiddleware())

	s.app.Get("/api/health", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
	s.app.Get("/api/metrics", s.handleMetricsJSON)

	comparison := s.app.Group("/api/comparison")
	comparison.Post("/get-page-count", s.handlePageCount)
	comparison.Post("/compare", s.handleCompare)
	comparison.Post("/reconcile", s.handleReconcile)
	comparison.Post("/download/:type", s.handleDownload)
}

// Start starts the server
func (s *Server) Start() error {
	return s.app.Listen(s.config.ListenAddr())
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}
