// Package api exposes the dashboard REST surface and the push
// subscription endpoint.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/option-signal-feed/internal/config"
	"github.com/option-signal-feed/internal/logger"
	"github.com/option-signal-feed/internal/metrics"
	"github.com/option-signal-feed/internal/session"
	"github.com/option-signal-feed/internal/settings"
	"github.com/option-signal-feed/internal/siglog"
)

// WSHandler serves a push subscription for one user.
type WSHandler interface {
	ServeWS(ctx context.Context, w http.ResponseWriter, r *http.Request, user string)
}

type Server struct {
	config   config.APIConfig
	sessions *session.Store
	settings settings.Store
	siglog   *siglog.Memory
	hub      WSHandler
	server   *http.Server
	log      *logger.Logger
}

func NewServer(cfg config.APIConfig, sessions *session.Store, store settings.Store, log *siglog.Memory, hub WSHandler) *Server {
	return &Server{
		config:   cfg,
		sessions: sessions,
		settings: store,
		siglog:   log,
		hub:      hub,
		log:      logger.Get().With("component", "api"),
	}
}

func (s *Server) Run(ctx context.Context) error {
	router := mux.NewRouter()

	c := cors.New(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           3600,
	})

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/dashboard/{user}", s.getDashboard).Methods("GET")
	api.HandleFunc("/settings/{user}", s.getSettings).Methods("GET")
	api.HandleFunc("/settings/{user}", s.putSettings).Methods("PUT")
	api.HandleFunc("/signals/{user}", s.getSignals).Methods("GET")
	api.HandleFunc("/signals/{user}/export", s.exportSignals).Methods("GET")
	api.HandleFunc("/sessions", s.listSessions).Methods("GET")
	api.HandleFunc("/sessions/{user}/baseline/reset", s.resetBaseline).Methods("POST")

	router.HandleFunc("/ws/{user}", s.serveWS).Methods("GET")
	router.HandleFunc("/health", s.getHealth).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	handler := c.Handler(router)

	s.server = &http.Server{
		Addr:    s.config.BindAddress,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log.Infow("api server starting", "addr", s.config.BindAddress)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// getDashboard returns the session's latest composite state, starting
// the session on first access.
func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	runner := s.sessions.Acquire(user)

	comp, ok := runner.Composite()
	if !ok {
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "warming_up",
			"detail": "no poll cycle has completed yet",
		})
		return
	}
	writeJSON(w, http.StatusOK, comp)
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	writeJSON(w, http.StatusOK, settings.GetOrDefaults(s.settings, user))
}

func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]

	// Start from the current values so a partial body only overrides
	// what it names.
	cfg := settings.GetOrDefaults(s.settings, user)
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, fmt.Sprintf("invalid settings payload: %v", err), http.StatusBadRequest)
		return
	}
	if cfg.Confirmations < 1 {
		http.Error(w, "consecutive_confirmations must be at least 1", http.StatusBadRequest)
		return
	}
	if err := s.settings.Put(user, cfg); err != nil {
		http.Error(w, "failed to store settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) getSignals(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	sigs := s.siglog.Signals(user)

	limit := len(sigs)
	if l := r.URL.Query().Get("limit"); l != "" {
		var n int
		if _, err := fmt.Sscanf(l, "%d", &n); err == nil && n > 0 && n < limit {
			limit = n
		}
	}
	sigs = sigs[len(sigs)-limit:]

	writeJSON(w, http.StatusOK, map[string]any{
		"signals": sigs,
		"count":   len(sigs),
	})
}

func (s *Server) exportSignals(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="signals.csv"`)
	if err := s.siglog.WriteCSV(w, user); err != nil {
		s.log.Errorw("csv export failed", "user", user, "error", err)
	}
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	users := s.sessions.Users()
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": users,
		"count":    len(users),
	})
}

func (s *Server) resetBaseline(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	runner, ok := s.sessions.Peek(user)
	if !ok {
		http.Error(w, "no active session", http.StatusNotFound)
		return
	}
	runner.ResetBaseline()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	s.sessions.Acquire(user)
	s.hub.ServeWS(r.Context(), w, r, user)
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now(),
		"sessions":  s.sessions.Count(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
