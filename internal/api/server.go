// Package api exposes the detection engines and the level repository over
// HTTP. It is a thin surface: webhook delivery, provider fetching and
// trade verdicts live outside this process.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"trend-level-bot/internal/cache"
	"trend-level-bot/internal/engine"
	"trend-level-bot/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Server hosts the HTTP API.
type Server struct {
	router        *gin.Engine
	httpServer    *http.Server
	levels        store.LevelStore
	engines       map[string]engine.Detector
	cache         cache.Cache
	cacheTTL      time.Duration
	defaultEngine string
	baseTimeframe string
	log           zerolog.Logger
}

// Config holds server settings. DefaultEngine and BaseTimeframe fill in
// detect requests that leave those fields empty.
type Config struct {
	Host           string
	Port           int
	ProductionMode bool
	CacheTTL       time.Duration
	DefaultEngine  string
	BaseTimeframe  string
}

// NewServer wires routes and middleware. The cache may be nil, in which
// case detection results are computed on every request.
func NewServer(cfg Config, levels store.LevelStore, engines map[string]engine.Detector, resultCache cache.Cache, log zerolog.Logger) *Server {
	if cfg.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	defaultEngine := cfg.DefaultEngine
	if defaultEngine == "" {
		defaultEngine = "confluence_swing"
	}

	s := &Server{
		router:        router,
		levels:        levels,
		engines:       engines,
		cache:         resultCache,
		cacheTTL:      cfg.CacheTTL,
		defaultEngine: defaultEngine,
		baseTimeframe: cfg.BaseTimeframe,
		log:           log,
	}

	router.Use(s.requestLogger())

	v1 := router.Group("/api/v1")
	{
		v1.POST("/detect", s.handleDetect)
		v1.POST("/levels", s.handleRecordLevels)
		v1.GET("/levels/:symbol", s.handleQueryLevels)
	}
	router.GET("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// requestLogger tags every request with a trace id and logs its outcome.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := uuid.NewString()
		c.Set("trace_id", traceID)
		start := time.Now()

		c.Next()

		s.log.Info().
			Str("trace_id", traceID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

// Start begins serving; it blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("api server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
