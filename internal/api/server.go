package api

import (
	"net/http"

	"github.com/mkuran/gatewarden/internal/api/middleware"
	"github.com/mkuran/gatewarden/internal/audit"
	"github.com/mkuran/gatewarden/internal/gate"
	"github.com/mkuran/gatewarden/internal/trust"
)

// Server is the local dev harness. It speaks the same request and
// decision JSON as the Lambda deployment so integrations can be
// exercised without an AWS stack in front.
type Server struct {
	gate    *gate.Gate
	fetcher *trust.Fetcher

	// memory is non-nil when the memory recorder is configured; it
	// backs the events endpoint.
	memory *audit.MemoryRecorder
}

func NewServer(g *gate.Gate, fetcher *trust.Fetcher, memory *audit.MemoryRecorder) *Server {
	return &Server{
		gate:    g,
		fetcher: fetcher,
		memory:  memory,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+AboutRoute, s.handleAbout)

	// gate routes
	mux.HandleFunc("POST "+AuthorizeRoute, s.handleAuthorize)
	mux.HandleFunc("GET "+KeysRoute, s.handleKeys)
	mux.HandleFunc("GET "+EventsRoute, s.handleEvents)

	return middleware.RecoverMiddleware(
		middleware.CorrelationIDMiddleware(
			middleware.LoggingMiddleware(
				mux)))
}
