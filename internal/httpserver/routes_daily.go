// internal/httpserver/routes_daily.go
//
// HTTP routes for the daily puzzle.
// Daily games themselves are started through POST /game/start with
// mode "daily"; these endpoints only report on them:
//   - GET /daily/status      → today's date key and whether the caller played
//   - GET /daily/leaderboard → top 20 results for today (or ?date=YYYY-MM-DD)
//
// Each account can record one daily result per day and difficulty
// (enforced by the UNIQUE key on daily_results).

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/crossword-battle/internal/daily"
	"github.com/robalobadob/crossword-battle/internal/puzzle"
)

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	r.Route("/daily", func(r chi.Router) {
		r.With(s.withOptionalAuth()).Get("/status", s.handleDailyStatus)
		r.Get("/leaderboard", s.handleLeaderboard)
	})
}

// today returns the current date key.
func (s *Server) today() string { return daily.DateKey(s.now().UTC()) }

// statusRes is returned by /daily/status.
type statusRes struct {
	Date       string            `json:"date"`
	Difficulty puzzle.Difficulty `json:"difficulty"`
	Title      string            `json:"title"`
	Played     bool              `json:"played"`
}

// handleDailyStatus reports today's puzzle for a difficulty (?difficulty=,
// default medium) and, for logged-in callers, whether it was already played.
func (s *Server) handleDailyStatus(w http.ResponseWriter, r *http.Request) {
	d := puzzle.ParseDifficulty(r.URL.Query().Get("difficulty"))
	p, _, err := s.catalog.Daily(d, s.now().UTC(), s.cfg.DailySalt)
	if err != nil {
		fail(w, r, err)
		return
	}
	res := statusRes{Date: s.today(), Difficulty: d, Title: p.Title}
	if me := currentUser(r); me != nil {
		played, err := daily.NewStore(s.db).AlreadyPlayed(r.Context(), me.ID, res.Date, string(d))
		if err != nil {
			fail(w, r, err)
			return
		}
		res.Played = played
	}
	writeJSON(w, http.StatusOK, res)
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = s.today()
	} else if _, err := daily.ParseDateKey(date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	rows, err := daily.NewStore(s.db).Leaderboard(r.Context(), date, 20)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}
