// Package httpapi hosts the ingestion and lookup endpoints of the
// dispatcher. Delivery never flows through here; workers talk to the
// database directly.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-webhook-dispatcher/core"
)

type Server struct {
	config  core.Config
	logger  core.Logger
	handler *Handler
	server  *http.Server
}

func NewServer(cfg core.Config, handler *Handler, logger core.Logger) *Server {
	return &Server{
		config:  cfg,
		logger:  logger,
		handler: handler,
	}
}

// Start blocks serving until the listener fails or Stop is called.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	s.handler.RegisterRoutes(router)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.server = &http.Server{
		Addr:    s.config.HTTPAddr,
		Handler: router,
	}

	if s.logger != nil {
		s.logger.Info("http server started", "addr", s.config.HTTPAddr)
	}
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.logger == nil {
			c.Next()
			return
		}
		startedAt := time.Now()
		c.Next()
		s.logger.Info("request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(startedAt).Milliseconds(),
		)
	}
}
