// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AryanBhardwaj123/placement-tracker/internal/common"
	"github.com/AryanBhardwaj123/placement-tracker/internal/company"
	"github.com/AryanBhardwaj123/placement-tracker/internal/config"
	"github.com/AryanBhardwaj123/placement-tracker/internal/jobs"
	"github.com/AryanBhardwaj123/placement-tracker/internal/middleware"
)

// Server struct holds the dependencies for the HTTP server. It serves
// the legacy companies API at /api/companies, the path its existing
// consumers already call.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	companyHandler *company.Handler

	deadlineReminderJob *jobs.DeadlineReminderJob
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	companyHandler *company.Handler,
	deadlineReminderJob *jobs.DeadlineReminderJob,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		common.RespondOK(c, "Placement Tracker API is healthy!", gin.H{"status": "UP"})
	})
	router.NoRoute(func(c *gin.Context) {
		common.RespondWithError(c, common.ErrNotFound.WithDetails(
			fmt.Sprintf("Route %s %s not found", c.Request.Method, c.Request.URL.Path)))
	})

	// The legacy surface keeps its own error rendering ({message, stack}).
	api := router.Group("/api")
	api.Use(middleware.LegacyErrorHandler(logger))
	companyHandler.RegisterRoutes(api)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:          httpServer,
		router:              router,
		cfg:                 cfg,
		logger:              logger,
		companyHandler:      companyHandler,
		deadlineReminderJob: deadlineReminderJob,
	}, nil
}

func (s *Server) Start() error {
	if s.deadlineReminderJob != nil {
		if err := s.deadlineReminderJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start deadline reminder job", zap.Error(err))
		}
	} else {
		s.logger.Info("Deadline reminder job is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped gracefully or an error occurred")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.deadlineReminderJob != nil {
		s.deadlineReminderJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
