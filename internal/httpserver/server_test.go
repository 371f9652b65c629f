package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/robalobadob/crossword-battle/assets"
	"github.com/robalobadob/crossword-battle/internal/database"
	"github.com/robalobadob/crossword-battle/internal/game"
	"github.com/robalobadob/crossword-battle/internal/live"
	"github.com/robalobadob/crossword-battle/internal/puzzle"
	"github.com/robalobadob/crossword-battle/internal/stats"
	"github.com/robalobadob/crossword-battle/internal/store"
)

// firstCluePolicy always attempts the first open clue and gets it right.
type firstCluePolicy struct{}

func (firstCluePolicy) SelectClue(available []puzzle.Clue, _ puzzle.Difficulty) (puzzle.Clue, bool) {
	if len(available) == 0 {
		return puzzle.Clue{}, false
	}
	return available[0], true
}
func (firstCluePolicy) ShouldAnswerCorrectly(puzzle.Difficulty) bool  { return true }
func (firstCluePolicy) ThinkingDelay(puzzle.Difficulty) time.Duration { return 0 }

func testPuzzle() *puzzle.Puzzle {
	return &puzzle.Puzzle{Title: "Pets", Size: 3, Clues: []puzzle.Clue{
		{ID: 1, Text: "Barks", Answer: "DOG", Direction: puzzle.Across, Position: puzzle.Position{0, 0}, Points: 5},
		{ID: 2, Text: "Purrs", Answer: "CAT", Direction: puzzle.Across, Position: puzzle.Position{1, 0}, Points: 5},
		{ID: 3, Text: "Hoots", Answer: "OWL", Direction: puzzle.Across, Position: puzzle.Position{2, 0}, Points: 5},
	}}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db, assets.Migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	catalog := puzzle.New(nil)
	for _, d := range puzzle.Difficulties {
		catalog.Add(d, testPuzzle())
	}
	return New(Options{
		Store:   store.NewMemoryStore(),
		DB:      db,
		Stats:   stats.New(db),
		Catalog: catalog,
		Policy:  firstCluePolicy{},
		Hub:     live.NewHub(nil),
		Config:  Config{JWTSecret: "test-secret", DailySalt: "test-salt"},
		Sleep:   func(time.Duration) {},
	})
}

func do(t *testing.T, s *Server, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func startGame(t *testing.T, s *Server, body string, cookies ...*http.Cookie) (startRes, *httptest.ResponseRecorder) {
	t.Helper()
	w := do(t, s, "POST", "/game/start", body, cookies...)
	if w.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	raw := w.Body.String()
	if strings.Contains(raw, "DOG") {
		t.Fatalf("puzzle view leaks answers: %s", raw)
	}
	return decode[startRes](t, w), w
}

func TestHealthAndDifficulties(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, "GET", "/health", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}

	w = do(t, s, "GET", "/difficulties", "")
	if w.Code != http.StatusOK {
		t.Fatalf("difficulties: %d", w.Code)
	}
	got := decode[[]difficultyInfo](t, w)
	if len(got) != 3 || got[0].Difficulty != puzzle.Easy || got[0].Puzzles != 1 || got[0].Accuracy != 0.70 {
		t.Fatalf("difficulties = %+v", got)
	}

	w = do(t, s, "GET", "/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestFullGameFlow(t *testing.T) {
	s := newTestServer(t)

	start, _ := startGame(t, s, `{"difficulty":"easy","mode":"full_puzzle"}`)
	if start.SessionID == "" || start.Difficulty != puzzle.Easy || start.Mode != game.ModeFullPuzzle {
		t.Fatalf("start = %+v", start)
	}
	if len(start.Puzzle.Clues) != 3 || start.Puzzle.Clues[0].Length != 3 {
		t.Fatalf("puzzle view = %+v", start.Puzzle)
	}
	base := "/game/" + start.SessionID

	// Player answers clue 1; the AI then takes clue 2.
	w := do(t, s, "POST", base+"/answer?wait=true", `{"clueId":1,"answer":"dog"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("answer: %d %s", w.Code, w.Body.String())
	}
	res := decode[answerRes](t, w)
	if !res.Correct || res.Streak != 1 || res.State.PlayerScore != 5 || res.State.AIScore != 5 {
		t.Fatalf("answer result = %+v", res)
	}
	if res.State.Turn != game.TurnPlayer || res.State.Grid["0-0"] != "D" || res.State.Grid["1-2"] != "T" {
		t.Fatalf("state after exchange = %+v", res.State)
	}

	// Clue 2 is gone.
	w = do(t, s, "POST", base+"/answer", `{"clueId":2,"answer":"cat"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("answered clue: expected 409, got %d", w.Code)
	}

	w = do(t, s, "POST", base+"/hint", `{"clueId":3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("hint: %d %s", w.Code, w.Body.String())
	}
	if h := decode[game.HintResult](t, w); h.Hint != "O..." || h.HintsRemaining != 2 {
		t.Fatalf("hint = %+v", h)
	}

	w = do(t, s, "POST", base+"/answer", `{"clueId":3,"answer":"OWL"}`)
	res = decode[answerRes](t, w)
	if !res.GameEnded || res.Winner != game.WinnerPlayer || !res.State.GameEnded {
		t.Fatalf("final answer = %+v", res)
	}

	w = do(t, s, "POST", base+"/answer", `{"clueId":3,"answer":"OWL"}`)
	if w.Code != http.StatusConflict || !strings.Contains(w.Body.String(), game.ErrGameEnded.Error()) {
		t.Fatalf("after end: %d %s", w.Code, w.Body.String())
	}

	// The finished game reached the stats sink.
	w = do(t, s, "GET", "/stats", "")
	ov := decode[stats.Overview](t, w)
	if ov.TotalGames != 1 || ov.PlayerWins != 1 || ov.Difficulties["easy"] != 1 {
		t.Fatalf("overview = %+v", ov)
	}
	w = do(t, s, "GET", "/stats/players/"+game.PlayerID(start.SessionID), "")
	if p := decode[stats.Player](t, w); p.TotalGames != 1 || p.Wins != 1 || p.TotalScore != 10 {
		t.Fatalf("player = %+v", p)
	}
	w = do(t, s, "GET", "/stats/players/unknown", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown player: expected 404, got %d", w.Code)
	}

	w = do(t, s, "POST", base+"/reset", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"reset"`) {
		t.Fatalf("reset: %d %s", w.Code, w.Body.String())
	}
	w = do(t, s, "GET", base, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("after reset: expected 404, got %d", w.Code)
	}
}

func TestRejections(t *testing.T) {
	s := newTestServer(t)
	start, _ := startGame(t, s, `{}`)
	if start.Difficulty != puzzle.Medium || start.Mode != game.ModeQuickPlay {
		t.Fatalf("defaults = %s / %s", start.Difficulty, start.Mode)
	}
	base := "/game/" + start.SessionID

	cases := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown session", "/game/missing/answer", `{"clueId":1,"answer":"x"}`, http.StatusNotFound},
		{"bad json", base + "/answer", `{`, http.StatusBadRequest},
		{"unknown clue", base + "/answer", `{"clueId":99,"answer":"x"}`, http.StatusConflict},
		{"hint for unknown clue", base + "/hint", `{"clueId":99}`, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := do(t, s, "GET", base, "").Body.String()
			w := do(t, s, "POST", tc.path, tc.body)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
			if after := do(t, s, "GET", base, "").Body.String(); after != before {
				t.Fatalf("state changed:\n%s\n%s", before, after)
			}
		})
	}

	// Wrong answers keep the turn with the player.
	w := do(t, s, "POST", base+"/answer", `{"clueId":1,"answer":"cat"}`)
	if res := decode[answerRes](t, w); res.Correct || res.State.Turn != game.TurnPlayer {
		t.Fatalf("wrong answer = %+v", res)
	}

	for i := range 3 {
		if w := do(t, s, "POST", base+"/hint", `{"clueId":1}`); w.Code != http.StatusOK {
			t.Fatalf("hint %d: %d", i+1, w.Code)
		}
	}
	w = do(t, s, "POST", base+"/hint", `{"clueId":1}`)
	if w.Code != http.StatusConflict || !strings.Contains(w.Body.String(), game.ErrNoHintsLeft.Error()) {
		t.Fatalf("4th hint: %d %s", w.Code, w.Body.String())
	}
}

func TestStartDiscardsPreviousSession(t *testing.T) {
	s := newTestServer(t)
	first, w := startGame(t, s, `{"difficulty":"hard"}`)
	cookie := cookieNamed(w, "crossword_session")
	if cookie == nil {
		t.Fatal("no session cookie")
	}
	second, _ := startGame(t, s, `{"difficulty":"hard"}`, cookie)
	if second.SessionID == first.SessionID {
		t.Fatal("expected a fresh session")
	}
	if w := do(t, s, "GET", "/game/"+first.SessionID, ""); w.Code != http.StatusNotFound {
		t.Fatalf("previous session: expected 404, got %d", w.Code)
	}
	if w := do(t, s, "GET", "/game/"+second.SessionID, ""); w.Code != http.StatusOK {
		t.Fatalf("new session: expected 200, got %d", w.Code)
	}
}

func TestAccountsAndDaily(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, "GET", "/auth/me", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("me without token: expected 401, got %d", w.Code)
	}
	w = do(t, s, "POST", "/auth/signup", `{"username":"al","password":"password1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("short username: expected 400, got %d", w.Code)
	}
	w = do(t, s, "POST", "/auth/signup", `{"username":"alice","password":"password1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("signup: %d %s", w.Code, w.Body.String())
	}
	auth := cookieNamed(w, "crossword_token")
	if auth == nil {
		t.Fatal("no auth cookie")
	}
	if w := do(t, s, "POST", "/auth/signup", `{"username":"ALICE","password":"password1"}`); w.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: expected 409, got %d", w.Code)
	}
	if w := do(t, s, "POST", "/auth/login", `{"username":"alice","password":"wrong-pass"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", w.Code)
	}
	w = do(t, s, "POST", "/auth/login", `{"username":"alice","password":"password1"}`)
	if w.Code != http.StatusOK || cookieNamed(w, "crossword_token") == nil {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}

	w = do(t, s, "GET", "/auth/me", "", auth)
	me := decode[authUser](t, w)
	if me.Username != "alice" || me.ID == "" {
		t.Fatalf("me = %+v", me)
	}

	w = do(t, s, "GET", "/daily/status?difficulty=easy", "", auth)
	if st := decode[statusRes](t, w); st.Played || st.Title != "Pets" {
		t.Fatalf("status before = %+v", st)
	}

	start, _ := startGame(t, s, `{"difficulty":"easy","mode":"daily"}`, auth)
	if start.DailyDate == "" {
		t.Fatal("daily game without a date")
	}
	base := "/game/" + start.SessionID
	do(t, s, "POST", base+"/answer?wait=true", `{"clueId":1,"answer":"dog"}`, auth)
	w = do(t, s, "POST", base+"/answer", `{"clueId":3,"answer":"owl"}`, auth)
	if res := decode[answerRes](t, w); !res.GameEnded || res.Winner != game.WinnerPlayer {
		t.Fatalf("daily finish = %+v", res)
	}

	// One daily result per day and difficulty.
	w = do(t, s, "POST", "/game/start", `{"difficulty":"easy","mode":"daily"}`, auth)
	if w.Code != http.StatusConflict {
		t.Fatalf("second daily: expected 409, got %d", w.Code)
	}
	w = do(t, s, "GET", "/daily/status?difficulty=easy", "", auth)
	if st := decode[statusRes](t, w); !st.Played {
		t.Fatalf("status after = %+v", st)
	}

	w = do(t, s, "GET", "/daily/leaderboard", "")
	lb := decode[lbRes](t, w)
	if len(lb.Top) != 1 || lb.Top[0].PlayerID != me.ID || lb.Top[0].PlayerScore != 10 {
		t.Fatalf("leaderboard = %+v", lb)
	}
	if w := do(t, s, "GET", "/daily/leaderboard?date=yesterday", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad date: expected 400, got %d", w.Code)
	}

	w = do(t, s, "GET", "/stats/me", "", auth)
	if acc := decode[stats.Account](t, w); acc.GamesPlayed != 1 || acc.Wins != 1 {
		t.Fatalf("account = %+v", acc)
	}

	w = do(t, s, "POST", "/auth/logout", "", auth)
	if c := cookieNamed(w, "crossword_token"); c == nil || c.MaxAge >= 0 {
		t.Fatalf("logout did not clear the cookie: %+v", c)
	}
}
