// Package api exposes the job manager over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"evacsim/internal/grid"
	"evacsim/internal/job"
	"evacsim/internal/sim"

	"github.com/gorilla/websocket"
	"github.com/matryer/way"
)

// Defaults for Config fields left zero.
const (
	DefaultMaxUploadBytes = 10 << 20
	DefaultStreamInterval = 250 * time.Millisecond
)

// DefaultAllowedOrigins are the browser origins of the local frontend.
var DefaultAllowedOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}

// Jobs is the part of job.Manager the server needs.
type Jobs interface {
	Submit(ctx context.Context, g *grid.Grid, opts sim.Options) (string, error)
	Get(ctx context.Context, id string) (job.Job, error)
}

// Config configures a Server.
type Config struct {
	AllowedOrigins []string
	MaxUploadBytes int64
	StreamInterval time.Duration
	Classifier     grid.Classifier
	Defaults       sim.Options // applied before per-request form overrides
}

// Server serves the simulation API.
type Server struct {
	jobs     Jobs
	cfg      Config
	origins  map[string]bool
	log      *slog.Logger
	router   *way.Router
	upgrader websocket.Upgrader
}

// NewServer wires the routes.
func NewServer(jobs Jobs, cfg Config, log *slog.Logger) *Server {
	if cfg.AllowedOrigins == nil {
		cfg.AllowedOrigins = DefaultAllowedOrigins
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = DefaultStreamInterval
	}
	if cfg.Classifier == nil {
		cfg.Classifier = grid.NewThresholdClassifier()
	}
	if cfg.Defaults.MaxTicks == 0 {
		cfg.Defaults = sim.DefaultOptions()
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		jobs:    jobs,
		cfg:     cfg,
		origins: make(map[string]bool, len(cfg.AllowedOrigins)),
		log:     log,
	}
	for _, o := range cfg.AllowedOrigins {
		s.origins[o] = true
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router = way.NewRouter()
	s.router.HandleFunc("POST", "/api/v1/simulate", s.handleSimulate)
	s.router.HandleFunc("GET", "/api/v1/status/:job_id", s.handleStatus)
	s.router.HandleFunc("GET", "/api/v1/stream/:job_id", s.handleStream)
	s.router.HandleFunc("GET", "/healthz", s.handleHealth)
}

// Handler returns the routed handler wrapped in CORS.
func (s *Server) Handler() http.Handler {
	return s.cors(s.router)
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorBody struct {
	Error string `json:"error"`
}

// notFoundBody is the body clients expect for unknown jobs.
var notFoundBody = map[string]string{"status": "error", "message": "Job not found"}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, job.ErrJobNotFound):
		writeJSON(w, http.StatusNotFound, notFoundBody)
	case errors.Is(err, grid.ErrInvalidFloorPlan), errors.Is(err, errBadRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}
