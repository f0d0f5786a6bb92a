// Package server provides the HTTP API for the Red Panda backend.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/heyjiacheng/Backend-Red-Panda/internal/ingest"
	"github.com/heyjiacheng/Backend-Red-Panda/internal/metastore"
	"github.com/heyjiacheng/Backend-Red-Panda/internal/rag"
)

// Ingestor is the slice of the ingestion service the API calls.
type Ingestor interface {
	Ingest(ctx context.Context, kbID int64, filename string, content io.Reader) (*ingest.Result, error)
	DeleteDocument(ctx context.Context, docID int64) error
	DeleteKnowledgeBase(ctx context.Context, kbID int64) error
}

// Querier answers questions against a knowledge base.
type Querier interface {
	Query(ctx context.Context, req rag.QueryRequest) (*rag.Answer, error)
}

// MetadataStore is the slice of the metadata store the API reads.
type MetadataStore interface {
	CreateKnowledgeBase(ctx context.Context, name, description string) (*metastore.KnowledgeBase, error)
	GetKnowledgeBase(ctx context.Context, id int64) (*metastore.KnowledgeBase, error)
	ListKnowledgeBases(ctx context.Context) ([]metastore.KnowledgeBase, error)
	GetDocument(ctx context.Context, id int64) (*metastore.Document, error)
	ListDocuments(ctx context.Context, kbID int64) ([]metastore.Document, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server provides the HTTP endpoints.
type Server struct {
	echo     *echo.Echo
	ingestor Ingestor
	querier  Querier
	meta     MetadataStore
	logger   *zap.Logger
	config   *Config
}

// New creates the HTTP server with its routes registered.
func New(ingestor Ingestor, querier Querier, meta MetadataStore, logger *zap.Logger, cfg *Config) (*Server, error) {
	if ingestor == nil {
		return nil, fmt.Errorf("ingestor cannot be nil")
	}
	if querier == nil {
		return nil, fmt.Errorf("querier cannot be nil")
	}
	if meta == nil {
		return nil, fmt.Errorf("metadata store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "0.0.0.0",
			Port: 8080,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		ingestor: ingestor,
		querier:  querier,
		meta:     meta,
		logger:   logger,
		config:   cfg,
	}

	// Register routes
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.POST("/embed", s.handleEmbed)
	s.echo.POST("/query", s.handleQuery)

	s.echo.GET("/documents", s.handleListDocuments)
	s.echo.GET("/documents/:id", s.handleGetDocument)
	s.echo.GET("/documents/:id/download", s.handleDownloadDocument)
	s.echo.DELETE("/documents/:id", s.handleDeleteDocument)

	s.echo.GET("/knowledge-bases", s.handleListKnowledgeBases)
	s.echo.POST("/knowledge-bases", s.handleCreateKnowledgeBase)
	s.echo.GET("/knowledge-bases/:id", s.handleGetKnowledgeBase)
	s.echo.DELETE("/knowledge-bases/:id", s.handleDeleteKnowledgeBase)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
