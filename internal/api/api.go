package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pfrederiksen/vlr-matches/internal/logger"
	"github.com/pfrederiksen/vlr-matches/internal/match"
	"github.com/pfrederiksen/vlr-matches/internal/orchestrator"
	"github.com/pfrederiksen/vlr-matches/internal/scheduler"
	"github.com/pfrederiksen/vlr-matches/internal/scraper"
	"github.com/pfrederiksen/vlr-matches/internal/storage"
	"github.com/rs/cors"
)

const shutdownTimeout = 10 * time.Second

// Store is the read side of the match store plus the merge pass
type Store interface {
	ListMatches(ctx context.Context, opts storage.ListOptions) ([]match.Match, int, error)
	ListTeams(ctx context.Context) ([]match.Team, error)
	ListTournaments(ctx context.Context) ([]match.Tournament, error)
	Stats(ctx context.Context) (*storage.Stats, error)
	RecentScrapeLogs(ctx context.Context, limit int) ([]match.ScrapeLogEntry, error)
	MergeNearDuplicates(ctx context.Context) (storage.MergeReport, error)
	Ping(ctx context.Context) error
}

// Engine runs scrape cycles and live lookups
type Engine interface {
	RunCycle(ctx context.Context) (*orchestrator.Summary, error)
	RunCategories(ctx context.Context, categories ...scraper.Category) (*orchestrator.Summary, error)
	ListMatches(ctx context.Context, c scraper.Category) ([]match.Summary, error)
	GetMatchDetail(ctx context.Context, id string) (*match.Detail, error)
	State() orchestrator.State
	LastSummary() (*orchestrator.Summary, time.Time)
}

// StatusReporter describes the background schedule
type StatusReporter interface {
	Status() scheduler.Status
}

// Envelope wraps every response body
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Server exposes the store and the engine over HTTP
type Server struct {
	store   Store
	engine  Engine
	sched   StatusReporter
	log     *logger.Logger
	origins []string
	now     func() time.Time
	handler http.Handler
}

// Option configures a Server
type Option func(*Server)

// WithScheduler adds schedule details to the health report
func WithScheduler(s StatusReporter) Option {
	return func(srv *Server) { srv.sched = s }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(srv *Server) { srv.log = l }
}

// WithAllowedOrigins restricts CORS origins; the default allows any
func WithAllowedOrigins(origins ...string) Option {
	return func(srv *Server) { srv.origins = origins }
}

// New builds the router and CORS middleware
func New(store Store, engine Engine, opts ...Option) *Server {
	s := &Server{
		store:   store,
		engine:  engine,
		log:     logger.Default(),
		origins: []string{"*"},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	routes := []struct {
		path    string
		method  string
		handler http.HandlerFunc
	}{
		{"/health", http.MethodGet, s.handleHealth},
		{"/matches", http.MethodGet, s.handleStoredMatches},
		{"/matches/{category}", http.MethodGet, s.handleLiveListing},
		{"/calendar.ics", http.MethodGet, s.handleCalendar},
		{"/match/{id}", http.MethodGet, s.handleMatchDetail},
		{"/scrape", http.MethodPost, s.handleScrape},
		{"/teams", http.MethodGet, s.handleTeams},
		{"/tournaments", http.MethodGet, s.handleTournaments},
		{"/stats", http.MethodGet, s.handleStats},
		{"/logs", http.MethodGet, s.handleLogs},
		{"/metrics", http.MethodGet, s.handleMetrics},
		{"/merge", http.MethodPost, s.handleMerge},
	}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.Handle("/", notAllowed(http.MethodGet))

	api := r.PathPrefix("/api").Subrouter()
	for _, rt := range routes {
		api.HandleFunc(rt.path, rt.handler).Methods(rt.method)
	}
	// Subrouters report a method mismatch as not found, so every path gets
	// an explicit catch-all registered after its handler.
	for _, rt := range routes {
		api.Handle(rt.path, notAllowed(rt.method))
	}
	api.Use(s.logRequests)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	s.handler = cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(r)
	return s
}

func notAllowed(allow string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method))
	})
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", logger.Fields{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.IncrCounter("api.requests")
		logger.RecordTiming("api.request", time.Since(start))
		s.log.Debug("HTTP request", logger.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": rec.status,
		})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: false, Error: message})
}
