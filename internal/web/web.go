// Package web exposes events, statuses and the dashboard over HTTP.
package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"

	"timerdash/internal/config"
	"timerdash/internal/countdown"
	"timerdash/internal/events"
	"timerdash/internal/ics"
	appLog "timerdash/internal/log"
	"timerdash/internal/store"
)

// maxBodyBytes caps JSON and calendar request bodies.
const maxBodyBytes = 1 << 20

// Snapshots provides the most recent pre-computed dashboard.
// *scheduler.Scheduler satisfies it.
type Snapshots interface {
	Latest() (countdown.Dashboard, bool)
}

// Server provides the JSON API.
type Server struct {
	cfg       *config.Config
	svc       *events.Service
	snapshots Snapshots
	fetcher   *ics.Fetcher
	router    *mux.Router

	// snapshotMaxAge bounds how stale a scheduler snapshot may be before
	// /api/dashboard recomputes it.
	snapshotMaxAge time.Duration
}

// NewServer constructs a Server. snapshots may be nil.
func NewServer(cfg *config.Config, svc *events.Service, snapshots Snapshots) *Server {
	s := &Server{
		cfg:            cfg,
		svc:            svc,
		snapshots:      snapshots,
		fetcher:        ics.NewFetcher(nil),
		router:         mux.NewRouter(),
		snapshotMaxAge: 5 * time.Second,
	}
	s.registerRoutes()
	return s
}

// Handler returns the router wrapped in recovery, CORS and, when
// configured, basic auth.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	h = s.corsHandler().Handler(h)
	return recoverMiddleware(h)
}

// HTTPServer wraps Handler in an http.Server bound to cfg.Listen.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func (s *Server) registerRoutes() {
	r := s.router
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/api/events", s.handleListEvents).Methods(http.MethodGet)
	r.HandleFunc("/api/events", s.handleCreateEvent).Methods(http.MethodPost)
	r.HandleFunc("/api/events.ics", s.handleExportICS).Methods(http.MethodGet)
	r.HandleFunc("/api/events/import", s.handleImportICS).Methods(http.MethodPost)
	r.HandleFunc("/api/events/{id}", s.handleGetEvent).Methods(http.MethodGet)
	r.HandleFunc("/api/events/{id}", s.handleUpdateEvent).Methods(http.MethodPut)
	r.HandleFunc("/api/events/{id}", s.handleDeleteEvent).Methods(http.MethodDelete)
	r.HandleFunc("/api/events/{id}/status", s.handleEventStatus).Methods(http.MethodGet)

	r.HandleFunc("/api/dashboard", s.handleDashboard).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

func (s *Server) corsHandler() *cors.Cors {
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: len(s.cfg.CORSOrigins) > 0,
	})
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /api/health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="timerdash", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// recoverMiddleware turns handler panics into 500 responses.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				appLog.Error("panic recovered", errors.Errorf("%v", rec),
					"method", r.Method,
					"url", r.URL.String(),
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// writeServiceError maps service and store errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	status, msg := serviceErrorStatus(op, err)
	writeError(w, status, msg)
}

func serviceErrorStatus(op string, err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "event not found"
	case errors.Is(err, store.ErrExists):
		return http.StatusConflict, "event already exists"
	case events.IsValidation(err):
		return http.StatusBadRequest, err.Error()
	default:
		appLog.Error(op+" failed", err)
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
