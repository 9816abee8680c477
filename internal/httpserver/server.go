// internal/httpserver/server.go
//
// HTTP server wiring for the Word Ripple backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/debug/words", "/leaderboard".
//   - Session endpoints (optional auth): /session/* drive the player's live game.
//   - Live events: GET /session/events upgrades to a WebSocket.
//   - Auth endpoints: /auth/signup, /auth/login, /auth/logout, /auth/me.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Every browser gets a device cookie; the device owns one live session.
//   - Optional auth resolves the signed-in identity per request and publishes
//     it to the session's identity holder, which re-evaluates the daily lock.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/robalobadob/wordripple/internal/config"
	"github.com/robalobadob/wordripple/internal/game"
	"github.com/robalobadob/wordripple/internal/gate"
	"github.com/robalobadob/wordripple/internal/prefs"
	"github.com/robalobadob/wordripple/internal/scores"
	"github.com/robalobadob/wordripple/internal/store"
)

// WordCounter reports the size of the loaded dictionary.
type WordCounter interface {
	Len() int
}

// Deps are the collaborators the HTTP layer serves.
type Deps struct {
	DB          *sql.DB
	Sessions    store.Store
	Game        game.Deps
	Prefs       *prefs.Store
	Scores      *scores.Store
	Completions *gate.RemoteStore
	Words       WordCounter
}

// Server bundles router, session registry, and persistence handles.
type Server struct {
	r    *chi.Mux
	cfg  config.Config
	deps Deps

	createMu sync.Mutex // serializes session creation per process

	limiterMu sync.Mutex
	limiters  map[string]*limiterEntry

	upgrader websocket.Upgrader
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, deps Deps) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		cfg:      cfg,
		deps:     deps,
		limiters: make(map[string]*limiterEntry),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)        // add X-Request-ID
	s.r.Use(chimw.RealIP)           // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)        // recover from panics
	s.r.Use(jsonContentType)        // default JSON responses
	s.r.Use(cors(cfg.ClientOrigin)) // credentials-friendly CORS
	s.r.Use(s.withOptionalAuth())   // identity if a valid token is present

	// Live event stream stays outside the handler timeout.
	s.r.Get("/session/events", s.handleEvents)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"wordripple","endpoints":["/health","/session","/session/submit","/session/events","/leaderboard","/auth/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
			n := 0
			if s.deps.Words != nil {
				n = s.deps.Words.Len()
			}
			_ = json.NewEncoder(w).Encode(map[string]int{"words": n})
		})

		s.mountSession(r)
		s.mountLeaderboard(r)
		s.mountAuthRoutes(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.r }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v with status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
