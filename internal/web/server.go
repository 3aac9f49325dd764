// Package web exposes the credential-gated dashboard API over gorilla/mux.
// Every data endpoint takes the code+PIN pair in the request body; there are
// no sessions or cookies to steal.
package web

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/access"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/config"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/database"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/logging"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/report"
	"github.com/AunuHost/GLX-Protection-Free-Version/internal/state"
)

// GuildAdmin is the slice of the bot the admin endpoints need.
type GuildAdmin interface {
	LeaveGuild(guildID uint64) error
}

// AutomodSyncer pushes automod rules into one guild.
type AutomodSyncer interface {
	Sync(guildID uint64) (int, error)
}

// IncidentStore reads the audit log. May be nil when the database is
// disabled.
type IncidentStore interface {
	GetRecentIncidents(guildID uint64, limit int) ([]database.Incident, error)
}

type Server struct {
	cfg        config.WebConfig
	keys       *access.Store
	flags      *state.FlagStore
	aggregator *report.Aggregator
	directory  report.Directory
	admin      GuildAdmin
	syncer     AutomodSyncer
	incidents  IncidentStore
	hub        *Hub

	srv *http.Server
}

func NewServer(cfg config.WebConfig, keys *access.Store, flags *state.FlagStore,
	aggregator *report.Aggregator, directory report.Directory, admin GuildAdmin,
	syncer AutomodSyncer, incidents IncidentStore, hub *Hub) *Server {
	s := &Server{
		cfg:        cfg,
		keys:       keys,
		flags:      flags,
		aggregator: aggregator,
		directory:  directory,
		admin:      admin,
		syncer:     syncer,
		incidents:  incidents,
		hub:        hub,
	}

	r := mux.NewRouter()
	r.Use(loggingMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ws/traffic", s.handleTrafficWS).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/toggle", s.handleToggle).Methods(http.MethodPost)
	api.HandleFunc("/sync_automod", s.handleSyncAutomod).Methods(http.MethodPost)
	api.HandleFunc("/admin/leave_guild", s.handleLeaveGuild).Methods(http.MethodPost)
	api.HandleFunc("/admin/incidents", s.handleIncidents).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.srv.Handler
}

func (s *Server) Start() {
	go func() {
		logging.Info("Web API listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Web server failed: %v", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logging.Debug("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the logging middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}
