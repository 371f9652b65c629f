// internal/httpserver/routes_stats.go
//
// Public stats endpoints backed by the SQLite stats store.
//   - GET /stats                     → global overview + recent games
//   - GET /stats/players/{playerId}  → one player's aggregate (404 if unknown)
//
// Per-account stats live under /stats/me (auth.go).

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// mountStats registers the public stats routes.
func (s *Server) mountStats(r chi.Router) {
	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		ov, err := s.stats.Overview(r.Context())
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ov)
	})
	r.Get("/stats/players/{playerId}", func(w http.ResponseWriter, r *http.Request) {
		p, err := s.stats.Player(r.Context(), chi.URLParam(r, "playerId"))
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	})
}
