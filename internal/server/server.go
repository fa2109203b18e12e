// Package server exposes a small local HTTP endpoint for inspecting the
// running agent. It is optional and off unless a status port is set.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/servicemon/agent/internal/domain"
)

// WorklistSource exposes the current worklist snapshot.
type WorklistSource interface {
	Snapshot() []domain.ServiceTarget
}

// StatusSource exposes the scheduler's most recent outcomes.
type StatusSource interface {
	View() domain.AgentStatus
}

type Server struct {
	http *http.Server
}

// New builds the status server on the loopback interface.
func New(port int, worklist WorklistSource, status StatusSource, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggingMiddleware(logger))

	h := NewHandler(worklist, status)
	router.GET("/ping", h.Ping)
	router.GET("/status", h.Status)

	s := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{http: s}
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
