// internal/httpserver/server.go
//
// HTTP server wiring for the crossword battle backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs,
//     request logging).
//   - Public endpoints: "/", "/health", "/difficulties".
//   - Game endpoints (optional auth): mounted under /game (routes_game.go).
//   - Stats and daily leaderboard endpoints (routes_stats.go, routes_daily.go).
//   - Auth + account endpoints (auth.go).
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Optional auth decorates requests with user context when a valid token is present;
//     routes can still run for guests.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/crossword-battle/internal/ai"
	"github.com/robalobadob/crossword-battle/internal/game"
	"github.com/robalobadob/crossword-battle/internal/live"
	"github.com/robalobadob/crossword-battle/internal/puzzle"
	"github.com/robalobadob/crossword-battle/internal/stats"
	"github.com/robalobadob/crossword-battle/internal/store"
)

// Config carries the transport settings read from the environment.
type Config struct {
	JWTSecret     string
	JWTExpires    time.Duration
	CookieName    string // auth token cookie
	SessionCookie string // signed game session cookie
	ClientOrigin  string
	Production    bool // Secure + SameSite=None cookies
	DailySalt     string
}

// Options are the collaborators the server is built from.
type Options struct {
	Store   store.Store
	DB      *sql.DB
	Stats   *stats.Store
	Catalog *puzzle.Catalog
	Policy  game.Policy
	Hub     *live.Hub
	Config  Config

	// Sleep and Now are handed to every session; nil means the real clock.
	Sleep func(time.Duration)
	Now   func() time.Time
}

// Server bundles router, session registry, and DB handle.
type Server struct {
	r       *chi.Mux
	store   store.Store
	db      *sql.DB
	stats   *stats.Store
	catalog *puzzle.Catalog
	policy  game.Policy
	hub     *live.Hub
	cfg     Config
	sleep   func(time.Duration)
	now     func() time.Time
}

// New constructs a Server, installs middleware, and registers routes.
func New(opts Options) *Server {
	s := &Server{
		r:       chi.NewRouter(),
		store:   opts.Store,
		db:      opts.DB,
		stats:   opts.Stats,
		catalog: opts.Catalog,
		policy:  opts.Policy,
		hub:     opts.Hub,
		cfg:     opts.Config,
		sleep:   opts.Sleep,
		now:     opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.hub == nil {
		s.hub = live.NewHub(nil)
	}
	if s.cfg.CookieName == "" {
		s.cfg.CookieName = "crossword_token"
	}
	if s.cfg.SessionCookie == "" {
		s.cfg.SessionCookie = "crossword_session"
	}
	if s.cfg.JWTExpires <= 0 {
		s.cfg.JWTExpires = 14 * 24 * time.Hour
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)   // one zerolog line per request
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(s.cors)          // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"service": "crossword-battle",
				"endpoints": []string{
					"/health", "/difficulties", "POST /game/start", "POST /game/{id}/answer",
					"POST /game/{id}/hint", "GET /game/{id}", "POST /game/{id}/reset",
					"/stats", "/daily/leaderboard", "/auth/*",
				},
			})
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		})
		r.Get("/difficulties", s.handleDifficulties)

		// Stats + daily leaderboard (public)
		s.mountStats(r)
		s.mountDaily(r)

		// Auth + account (require auth where needed)
		s.mountAuthRoutes(r)
	})

	// Game endpoints: OPTIONAL AUTH (guests can play). The websocket route
	// lives here too, so this group carries no handler timeout.
	s.r.Route("/game", func(r chi.Router) {
		r.Use(s.withOptionalAuth())
		s.mountGame(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

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

// cors enables credentialed CORS for a single origin (CLIENT_ORIGIN).
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	if origin == "" {
		origin = "http://localhost:5173"
	}
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

// requestLogger logs method, path, status and duration with the request id.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("requestId", chimw.GetReqID(r.Context())).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// ------------------------------- helpers -----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, puzzle.ErrNoPuzzle), errors.Is(err, stats.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrNotYourTurn),
		errors.Is(err, game.ErrGameEnded),
		errors.Is(err, game.ErrNoActivePuzzle),
		errors.Is(err, game.ErrInvalidClue),
		errors.Is(err, game.ErrNoHintsLeft),
		errors.Is(err, game.ErrHintUnavailable),
		errors.Is(err, game.ErrAlreadyStarted),
		errors.Is(err, errAlreadyPlayed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status; unexpected errors are logged and
// hidden from the client.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Str("requestId", chimw.GetReqID(r.Context())).Msg("request failed")
		writeError(w, status, "server_error")
		return
	}
	writeError(w, status, err.Error())
}

// ----------------------------- difficulties --------------------------------

type difficultyInfo struct {
	Difficulty puzzle.Difficulty `json:"difficulty"`
	Puzzles    int               `json:"puzzles"`
	Accuracy   float64           `json:"accuracy"`
	Thinking   float64           `json:"thinkingSeconds"`
	Expected   ai.Expected       `json:"expected"`
}

// handleDifficulties lists each difficulty with its puzzle count and AI profile.
func (s *Server) handleDifficulties(w http.ResponseWriter, r *http.Request) {
	out := make([]difficultyInfo, 0, len(puzzle.Difficulties))
	for _, d := range puzzle.Difficulties {
		p := ai.ProfileFor(d)
		out = append(out, difficultyInfo{
			Difficulty: d,
			Puzzles:    s.catalog.Count(d),
			Accuracy:   p.Accuracy,
			Thinking:   p.ThinkingTime.Seconds(),
			Expected:   ai.ExpectedFor(d),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
