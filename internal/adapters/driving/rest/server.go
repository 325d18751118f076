// Package rest exposes the chat pipeline over HTTP with gin.
//
// Every /v1 route requires a bearer token. The token's subject becomes the
// user the core services act for.
package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/pdfchat/internal/core/ports/driving"
	"github.com/custodia-labs/pdfchat/internal/logger"
)

// TokenValidator turns a bearer token into a user ID.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// Ports aggregates the driving ports the server calls.
type Ports struct {
	Chat     driving.ChatService
	Document driving.DocumentService
	Indexing driving.IndexingService
}

// ErrMissingPorts is returned when a required port or the validator is nil.
var ErrMissingPorts = errors.New("rest: chat, document and indexing services and a token validator are required")

// Server serves the REST API.
type Server struct {
	ports     *Ports
	validator TokenValidator
	engine    *gin.Engine
}

// NewServer builds the router.
func NewServer(ports *Ports, validator TokenValidator) (*Server, error) {
	if ports == nil || ports.Chat == nil || ports.Document == nil || ports.Indexing == nil || validator == nil {
		return nil, ErrMissingPorts
	}

	s := &Server{ports: ports, validator: validator, engine: gin.New()}
	s.engine.Use(gin.Recovery(), requestLogger())
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.engine.Group("/v1", s.authenticate())
	v1.POST("/documents", s.registerDocument)
	v1.GET("/documents", s.listDocuments)
	v1.GET("/documents/:id", s.getDocument)
	v1.POST("/documents/:id/index", s.indexDocument)
	v1.POST("/documents/:id/questions", s.askQuestion)
	v1.GET("/documents/:id/messages", s.listMessages)
}

// Run serves on addr until ctx is cancelled, then drains for up to 10s.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down REST server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
