// internal/httpserver/routes_game.go
//
// HTTP routes for playing a crossword battle.
//   - POST /game/start        → new session; sets the signed session cookie
//   - POST /game/{id}/answer  → submit an answer for a clue
//   - POST /game/{id}/hint    → reveal the start of a clue's answer
//   - GET  /game/{id}         → full state snapshot
//   - POST /game/{id}/reset   → drop the session
//   - GET  /game/{id}/ws      → websocket stream of snapshots
//
// Sessions live in the in-memory registry. Starting a new game discards the
// caller's previous one, found through the session cookie.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/crossword-battle/internal/daily"
	"github.com/robalobadob/crossword-battle/internal/game"
	"github.com/robalobadob/crossword-battle/internal/puzzle"
)

var errAlreadyPlayed = errors.New("daily puzzle already played today")

// mountGame registers all /game routes.
func (s *Server) mountGame(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Post("/start", s.handleStart)
		r.Post("/{id}/answer", s.handleAnswer)
		r.Post("/{id}/hint", s.handleHint)
		r.Get("/{id}", s.handleState)
		r.Post("/{id}/reset", s.handleReset)
	})
	r.Get("/{id}/ws", s.handleWS)
}

// ------------------------------ /game/start ---------------------------------

type startReq struct {
	Difficulty string `json:"difficulty"`
	Mode       string `json:"mode"`
}

type startRes struct {
	Status     string            `json:"status"`
	SessionID  string            `json:"sessionId"`
	PlayerID   string            `json:"playerId"`
	Difficulty puzzle.Difficulty `json:"difficulty"`
	Mode       game.Mode         `json:"mode"`
	DailyDate  string            `json:"dailyDate,omitempty"`
	Puzzle     puzzle.View       `json:"puzzle"`
}

// handleStart creates and starts a session. Unknown difficulties fall back to
// medium and unknown modes to quick_play; an empty body is accepted.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startReq
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_json")
			return
		}
	}
	cfg := game.Config{
		Difficulty: puzzle.ParseDifficulty(req.Difficulty),
		Mode:       game.ParseMode(req.Mode),
	}
	me := currentUser(r)
	if me != nil {
		cfg.Owner = me.ID
	}

	var catalog game.Catalog = s.catalog
	if cfg.Mode == game.ModeDaily {
		now := s.now().UTC()
		cfg.DailyDate = daily.DateKey(now)
		if me != nil {
			played, err := daily.NewStore(s.db).AlreadyPlayed(r.Context(), me.ID, cfg.DailyDate, string(cfg.Difficulty))
			if err != nil {
				fail(w, r, err)
				return
			}
			if played {
				fail(w, r, errAlreadyPlayed)
				return
			}
		}
		catalog = &puzzle.DailySource{Catalog: s.catalog, Date: now, Salt: s.cfg.DailySalt}
	}

	var sink game.Sink
	if s.stats != nil {
		sink = s.stats
	}
	sess := game.New(cfg, game.Deps{
		Catalog: catalog,
		Policy:  s.policy,
		Sink:    sink,
		Notify:  s.hub.Publish,
		Sleep:   s.sleep,
		Now:     s.now,
	})
	if err := sess.Start(); err != nil {
		fail(w, r, err)
		return
	}

	// One active game per caller: the previous one is dropped.
	if prev := s.sessionFromCookie(r); prev != "" && prev != sess.ID {
		s.dropSession(r, prev)
	}
	if err := s.store.Save(r.Context(), sess); err != nil {
		fail(w, r, err)
		return
	}
	if tok, exp, err := s.signSession(sess.ID); err == nil {
		s.setCookie(w, s.cfg.SessionCookie, tok, exp)
	} else {
		log.Warn().Err(err).Str("session", sess.ID).Msg("sign session cookie")
	}

	writeJSON(w, http.StatusOK, startRes{
		Status:     "started",
		SessionID:  sess.ID,
		PlayerID:   game.PlayerID(sess.ID),
		Difficulty: sess.Difficulty,
		Mode:       sess.Mode,
		DailyDate:  cfg.DailyDate,
		Puzzle:     sess.Puzzle().View(),
	})
}

// ----------------------------- /game/{id}/... -------------------------------

type answerReq struct {
	ClueID int    `json:"clueId"`
	Answer string `json:"answer"`
}

type answerRes struct {
	game.AnswerResult
	State game.Snapshot `json:"state"`
}

// handleAnswer submits an answer. With ?wait=true the response is held until
// the AI half-turn has committed, so State already shows the AI's move.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req answerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	res, err := sess.SubmitAnswer(req.ClueID, req.Answer)
	if err != nil {
		fail(w, r, err)
		return
	}
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		sess.Wait()
	}
	writeJSON(w, http.StatusOK, answerRes{AnswerResult: res, State: sess.Snapshot()})
}

type hintReq struct {
	ClueID int `json:"clueId"`
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req hintReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	res, err := sess.Hint(req.ClueID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// handleReset drops the session. Unknown ids are acknowledged too.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.dropSession(r, id)
	if s.sessionFromCookie(r) == id {
		s.clearCookie(w, s.cfg.SessionCookie)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// handleWS streams the session's snapshots until the client leaves or the
// session is dropped.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.hub.ServeWS(w, r, sess.Snapshot())
}

// -------------------------------- helpers -----------------------------------

// lookup resolves {id} against the registry, writing a 404 when unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*game.Session, bool) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return nil, false
	}
	return sess, true
}

// dropSession removes a session from the registry and ends its live feeds.
func (s *Server) dropSession(r *http.Request, id string) {
	if err := s.store.Delete(r.Context(), id); err != nil {
		log.Warn().Err(err).Str("session", id).Msg("delete session")
	}
	s.hub.Close(id)
	log.Debug().Str("session", id).Msg("session dropped")
}

// signSession issues the session cookie token carrying the session id.
func (s *Server) signSession(id string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	ss, err := t.SignedString([]byte(s.secret()))
	return ss, exp, err
}

// sessionFromCookie returns the session id of a valid session cookie, or "".
func (s *Server) sessionFromCookie(r *http.Request) string {
	c, err := r.Cookie(s.cfg.SessionCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	claims := &jwt.RegisteredClaims{}
	t, err := jwt.ParseWithClaims(c.Value, claims, s.keyFunc, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !t.Valid {
		return ""
	}
	return claims.Subject
}
