package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/brewbean/livecup/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Options configures the relay server.
type Options struct {
	Addr           string
	Logger         *log.Logger
	AllowedOrigins []string
	// Metrics is mounted at /metrics when set.
	Metrics      http.Handler
	Participants ParticipantObserver
}

// Server exposes the hub over HTTP.
type Server struct {
	addr   string
	logger *log.Logger
	hub    *Hub
	mux    *http.ServeMux
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status       string `json:"status"`
	Rooms        int    `json:"rooms"`
	Participants int    `json:"participants"`
	Version      string `json:"version"`
}

// NewServer wires the hub, health and metrics endpoints.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	hub := NewHub(
		WithHubLogger(logger),
		WithParticipantObserver(opts.Participants),
		WithOriginCheck(NewOriginPolicy(opts.AllowedOrigins)),
	)

	s := &Server{
		addr:   opts.Addr,
		logger: logger,
		hub:    hub,
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("/rtc", hub.HandleWebSocket)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	if opts.Metrics != nil {
		s.mux.Handle("/metrics", opts.Metrics)
	}
	return s
}

// Hub returns the relay hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rooms := s.hub.Rooms()
	total := 0
	for _, room := range rooms {
		total += s.hub.ParticipantCount(room)
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:       "ok",
		Rooms:        len(rooms),
		Participants: total,
		Version:      version.String(),
	})
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the hub and serves HTTP on ln until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	httpServer := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("[hub] listening on %s", ln.Addr())
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	stopHub()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Printf("[hub] stopped")
	return nil
}
