package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/dyluth/natter/internal/pool"
)

// Pinger verifies connectivity to the chat transport.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server provides an HTTP health check endpoint for the bot.
// The server runs in a background goroutine and can be gracefully shut down.
type Server struct {
	server *http.Server
	pinger Pinger
	stats  func() pool.Stats
}

// Response represents the JSON response from the /healthz endpoint.
type Response struct {
	Status  string      `json:"status"`
	Error   string      `json:"error,omitempty"`
	Workers *pool.Stats `json:"workers,omitempty"`
}

// NewServer creates a health check HTTP server listening on all interfaces at port.
// stats may be nil, in which case worker statistics are omitted.
func NewServer(pinger Pinger, stats func() pool.Stats, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		pinger: pinger,
		stats:  stats,
	}

	mux.HandleFunc("/healthz", s.handleHealthz)

	return s
}

// Start binds the listening socket and serves in a background goroutine.
// Returns an error if the port cannot be bound (e.g., already in use).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	go func() {
		log.Printf("[DEBUG] Health server starting on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("[ERROR] Health server error: %v", err)
		}
		log.Printf("[DEBUG] Health server stopped")
	}()

	return nil
}

// Shutdown gracefully shuts down the HTTP server, waiting for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Printf("[DEBUG] Shutting down health server...")
	return s.server.Shutdown(ctx)
}

// Handler exposes the endpoint mux, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// handleHealthz pings the transport.
// Returns 200 {"status":"healthy"} or 503 {"status":"unhealthy","error":...},
// with worker statistics attached when available.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := Response{Status: "healthy"}
	statusCode := http.StatusOK

	if err := s.pinger.Ping(ctx); err != nil {
		response = Response{Status: "unhealthy", Error: err.Error()}
		statusCode = http.StatusServiceUnavailable
	}

	if s.stats != nil {
		stats := s.stats()
		response.Workers = &stats
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("[ERROR] Failed to encode health response: %v", err)
	}
}
