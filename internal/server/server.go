// Package server provides the HTTP server of the signstream service.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/ayusman/signstream/internal/app"
	"github.com/ayusman/signstream/internal/server/api"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App
	// AllowedOrigins lists extra browser origins allowed on /api/ws.
	AllowedOrigins []string
}

// Server represents the HTTP server of the signstream service.
type Server struct {
	config Config
	router *mux.Router
	start  time.Time

	mu   sync.Mutex
	http *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		router: mux.NewRouter(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	if a := s.config.App; a != nil {
		api.NewSessionHandler(a, a.Store()).Register(s.router)
		api.NewSettingsHandler(a).Register(s.router)
		api.NewSignHandler(a.Store(), a).Register(s.router)
		api.NewSamplesHandler(a.Store()).Register(s.router)

		s.router.Handle("/api/stream", NewStreamHandler(a.Preview())).Methods(http.MethodGet)
		s.router.Handle("/api/ws", NewSessionSocket(a, s.config.AllowedOrigins...)).Methods(http.MethodGet)
	}

	// Serve static files if StaticDir is configured and present
	if s.config.StaticDir != "" {
		if info, err := os.Stat(s.config.StaticDir); err == nil && info.IsDir() {
			s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.config.StaticDir)))
		}
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if a := s.config.App; a != nil {
		st := a.Status()
		response["session_id"] = st.SessionID
		response["camera_active"] = st.CameraActive
		response["classifier_healthy"] = st.ClassifierHealthy
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address. It returns
// http.ErrServerClosed after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.mu.Lock()
	s.http = &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	srv := s.http
	s.mu.Unlock()
	return srv.ListenAndServe()
}

// Shutdown gracefully stops a server started with ListenAndServe.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
