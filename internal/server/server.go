// Package server exposes the retrieval pipeline over HTTP: chunking,
// embedding, search, and answer generation endpoints.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aris-rag/aris/internal/config"
	"github.com/aris-rag/aris/internal/embed"
	"github.com/aris-rag/aris/internal/index"
	"github.com/aris-rag/aris/internal/llm"
	"github.com/aris-rag/aris/internal/search"
)

// Server wires the HTTP routes to the retrieval pipeline.
type Server struct {
	cfg      *config.Config
	manager  *index.Manager
	engine   *search.Engine
	registry *embed.Registry
	llm      *llm.Client
	router   *gin.Engine
}

// New builds the server and its route table.
func New(cfg *config.Config, manager *index.Manager, engine *search.Engine, registry *embed.Registry, llmClient *llm.Client) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), cors())

	s := &Server{
		cfg:      cfg,
		manager:  manager,
		engine:   engine,
		registry: registry,
		llm:      llmClient,
		router:   router,
	}
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler, for mounting or testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer returns a configured http.Server bound to the configured
// address. The caller owns startup and shutdown.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) registerRoutes() {
	s.router.GET("/", s.handleRoot)

	s.router.GET("/chunk/datasets", s.handleListDatasets)
	s.router.POST("/chunk", s.handleChunk)

	s.router.GET("/embed/models", s.handleListModels)
	s.router.POST("/embed", s.handleEmbed)

	sr := s.router.Group("/search")
	sr.POST("/upsert", s.handleUpsert)
	sr.POST("/dense", s.handleDenseSearch)
	sr.POST("/sparse", s.handleSparseSearch)
	sr.POST("/hybrid", s.handleHybridSearch)
	sr.POST("/compare", s.handleCompareSearch)
	sr.GET("/chunks", s.handleListChunks)
	sr.DELETE("/clear", s.handleClear)

	s.router.POST("/rag/answer", s.handleRAGAnswer)
}

// requestLogger logs one line per request with method, path, status and
// latency.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http_request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)))
	}
}

// cors allows the demo frontend to call from any origin.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
