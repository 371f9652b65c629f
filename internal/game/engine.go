// internal/game/engine.go
//
// Core game engine for a single crossword battle session.
// Responsibilities:
//   - Bind a puzzle from the catalog and set up an empty grid.
//   - Validate and apply player answers, hints, and the AI half-turn.
//   - Track state transitions: player turn → ai turn → player turn → ended.
//   - Report the finished game to the stats sink exactly once.
//
// Notes:
//   - turn is the ownership token: player-facing operations require
//     turn == player, so only the AI goroutine mutates state while turn == ai.
//   - mu makes reads (Snapshot) safe while the AI goroutine commits.
//   - The AI half-turn waits outside the lock and commits in one critical
//     section.
//   - Every commit bumps version; pub is taken before mu is released and held
//     through Notify, so observers see snapshots in commit order.
package game

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/crossword-battle/internal/puzzle"
)

// recordTimeout bounds a single stats sink write.
const recordTimeout = 5 * time.Second

// Config is the per-game configuration chosen by the caller.
type Config struct {
	ID         string // optional; a UUID is generated when empty
	Difficulty puzzle.Difficulty
	Mode       Mode
	Owner      string // account id of a logged-in player
	DailyDate  string // set for daily games
}

// Deps are the collaborators a session calls out to.
// Sink, Notify, Sleep and Now are optional.
type Deps struct {
	Catalog Catalog
	Policy  Policy
	Sink    Sink
	Notify  func(Snapshot)
	Sleep   func(time.Duration)
	Now     func() time.Time
}

// Session holds the state of a single crossword battle.
type Session struct {
	ID         string
	Difficulty puzzle.Difficulty
	Mode       Mode
	Owner      string
	DailyDate  string

	deps Deps
	ai   sync.WaitGroup // in-flight AI half-turn

	pub sync.Mutex // orders Notify calls; acquired while holding mu

	mu          sync.Mutex
	version     uint64
	puzzle      *puzzle.Puzzle
	grid        *Grid
	started     bool
	playerScore int
	aiScore     int
	turn        Turn
	answered    []int
	answeredSet map[int]struct{}
	hintsUsed   int
	streak      int
	bestStreak  int
	ended       bool
	winner      Winner
	recorded    bool
	lastAI      *AIMove
	startTime   time.Time
}

// New constructs a session that has not started yet.
func New(cfg Config, deps Deps) *Session {
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	if deps.Sleep == nil {
		deps.Sleep = time.Sleep
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Session{
		ID:          id,
		Difficulty:  cfg.Difficulty,
		Mode:        cfg.Mode,
		Owner:       cfg.Owner,
		DailyDate:   cfg.DailyDate,
		deps:        deps,
		turn:        TurnPlayer,
		answered:    []int{},
		answeredSet: make(map[int]struct{}),
	}
}

// Start fetches a puzzle for the session's difficulty and opens the game
// with the player to move.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	p, err := s.deps.Catalog.Puzzle(s.Difficulty)
	if err != nil {
		return err
	}
	if p == nil {
		return puzzle.ErrNoPuzzle
	}
	s.puzzle = p
	s.grid = NewGrid(p.Size)
	s.turn = TurnPlayer
	s.started = true
	s.startTime = s.deps.Now()
	log.Debug().Str("session", s.ID).Str("puzzle", p.Title).
		Str("difficulty", string(s.Difficulty)).Str("mode", string(s.Mode)).Msg("game started")
	return nil
}

// Puzzle returns the bound puzzle, or nil before Start.
func (s *Session) Puzzle() *puzzle.Puzzle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puzzle
}

// SubmitAnswer checks the player's answer for a clue.
//
// Validation rules (any failure leaves the state untouched):
//   - Game must not be finished.
//   - It must be the player's turn.
//   - A puzzle must be bound.
//   - The clue must exist and not be answered yet.
//
// A correct answer scores, fills the grid, and hands the turn to the AI,
// whose half-turn then runs in the background. A wrong answer resets the
// streak and keeps the turn with the player.
func (s *Session) SubmitAnswer(clueID int, answer string) (AnswerResult, error) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return AnswerResult{}, ErrGameEnded
	}
	if s.turn != TurnPlayer {
		s.mu.Unlock()
		return AnswerResult{}, ErrNotYourTurn
	}
	if s.puzzle == nil {
		s.mu.Unlock()
		return AnswerResult{}, ErrNoActivePuzzle
	}
	clue, ok := s.openClueLocked(clueID)
	if !ok {
		s.mu.Unlock()
		return AnswerResult{}, ErrInvalidClue
	}

	if strings.ToUpper(strings.TrimSpace(answer)) != clue.Answer {
		s.streak = 0
		s.unlockAndPublish(s.commitLocked())
		return AnswerResult{Correct: false, Streak: 0}, nil
	}

	s.playerScore += clue.Points
	s.markAnsweredLocked(clue)
	s.streak++
	s.bestStreak = max(s.bestStreak, s.streak)
	s.turn = TurnAI

	res := AnswerResult{Correct: true, Streak: s.streak}
	ended := s.evaluateLocked()
	sum, record := s.summaryLocked()
	if ended {
		res.GameEnded, res.Winner = true, s.winner
	} else {
		s.ai.Add(1)
	}
	snap := s.commitLocked()
	s.unlockAndPublish(snap)

	log.Debug().Str("session", s.ID).Int("clue", clue.ID).Int("score", snap.PlayerScore).Msg("player answered")
	if record {
		s.record(sum)
	}
	if !ended {
		go s.aiTurn()
	}
	return res, nil
}

// aiTurn is the AI half-turn. It always completes and hands the turn back.
func (s *Session) aiTurn() {
	defer s.ai.Done()

	s.deps.Sleep(s.deps.Policy.ThinkingDelay(s.Difficulty))

	s.mu.Lock()
	if s.turn != TurnAI || s.ended {
		s.mu.Unlock()
		return
	}
	var move *AIMove
	if c, ok := s.deps.Policy.SelectClue(s.unansweredLocked(), s.Difficulty); ok {
		move = &AIMove{ClueID: c.ID}
		if s.deps.Policy.ShouldAnswerCorrectly(s.Difficulty) {
			move.Correct = true
			s.aiScore += c.Points
			s.markAnsweredLocked(c)
		}
	}
	s.lastAI = move
	s.turn = TurnPlayer
	s.evaluateLocked()
	sum, record := s.summaryLocked()
	snap := s.commitLocked()
	s.unlockAndPublish(snap)

	if move != nil {
		log.Debug().Str("session", s.ID).Int("clue", move.ClueID).Bool("correct", move.Correct).
			Int("aiScore", snap.AIScore).Msg("ai moved")
	}
	if record {
		s.record(sum)
	}
}

// Wait blocks until any in-flight AI half-turn has committed.
func (s *Session) Wait() { s.ai.Wait() }

// Hint reveals the start of an unanswered clue's answer.
//
// Validation order:
//   - Hint budget (MaxHints) not exhausted.
//   - A puzzle must be bound and the game not finished.
//   - The clue must exist and not be answered yet.
func (s *Session) Hint(clueID int) (HintResult, error) {
	s.mu.Lock()
	if s.hintsUsed >= MaxHints {
		s.mu.Unlock()
		return HintResult{}, ErrNoHintsLeft
	}
	if s.puzzle == nil {
		s.mu.Unlock()
		return HintResult{}, ErrNoActivePuzzle
	}
	if s.ended {
		s.mu.Unlock()
		return HintResult{}, ErrGameEnded
	}
	clue, ok := s.openClueLocked(clueID)
	if !ok {
		s.mu.Unlock()
		return HintResult{}, ErrHintUnavailable
	}
	s.hintsUsed++
	res := HintResult{Hint: hintFor(clue.Answer), HintsRemaining: MaxHints - s.hintsUsed}
	s.unlockAndPublish(s.commitLocked())
	return res, nil
}

// hintFor reveals the first two letters of answers longer than three
// letters and only the first letter of shorter ones, so CAT gives "C...".
// A plain "longer than two" cut would give "CA..." and leave a single
// letter to guess; the one-letter form for three-letter answers is kept
// on purpose.
func hintFor(answer string) string {
	r := []rune(answer)
	switch {
	case len(r) > 3:
		return string(r[:2]) + "..."
	case len(r) > 0:
		return string(r[:1]) + "..."
	default:
		return "..."
	}
}

// Snapshot returns a copy of the observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// ---------------------------------------------------------------------------
// helpers; callers hold s.mu

// openClueLocked finds a clue that exists and is still unanswered.
func (s *Session) openClueLocked(id int) (puzzle.Clue, bool) {
	c, ok := s.puzzle.Clue(id)
	if !ok {
		return puzzle.Clue{}, false
	}
	if _, done := s.answeredSet[id]; done {
		return puzzle.Clue{}, false
	}
	return c, true
}

func (s *Session) unansweredLocked() []puzzle.Clue {
	out := make([]puzzle.Clue, 0, len(s.puzzle.Clues))
	for _, c := range s.puzzle.Clues {
		if _, done := s.answeredSet[c.ID]; !done {
			out = append(out, c)
		}
	}
	return out
}

// markAnsweredLocked records the clue and writes its answer into the grid.
func (s *Session) markAnsweredLocked(c puzzle.Clue) {
	s.answered = append(s.answered, c.ID)
	s.answeredSet[c.ID] = struct{}{}
	s.grid.Write(c, c.Answer)
}

// evaluateLocked applies the win conditions and reports whether the game
// has ended:
//  1. every clue answered: higher score wins, equal scores tie;
//  2. quick_play only: either score at or above ScoreThreshold.
func (s *Session) evaluateLocked() bool {
	if s.ended {
		return true
	}
	switch {
	case len(s.answered) >= len(s.puzzle.Clues):
	case s.Mode == ModeQuickPlay && (s.playerScore >= ScoreThreshold || s.aiScore >= ScoreThreshold):
	default:
		return false
	}
	s.ended = true
	switch {
	case s.playerScore > s.aiScore:
		s.winner = WinnerPlayer
	case s.aiScore > s.playerScore:
		s.winner = WinnerAI
	default:
		s.winner = WinnerTie
	}
	log.Info().Str("session", s.ID).Str("winner", string(s.winner)).
		Int("player", s.playerScore).Int("ai", s.aiScore).Msg("game ended")
	return true
}

// summaryLocked returns the summary to record when the game has ended and
// has not been recorded yet, and marks it recorded.
func (s *Session) summaryLocked() (Summary, bool) {
	if !s.ended || s.recorded {
		return Summary{}, false
	}
	s.recorded = true
	return Summary{
		SessionID:   s.ID,
		Owner:       s.Owner,
		Difficulty:  s.Difficulty,
		Mode:        s.Mode,
		PlayerScore: s.playerScore,
		AIScore:     s.aiScore,
		Winner:      s.winner,
		Duration:    s.deps.Now().Sub(s.startTime),
		HintsUsed:   s.hintsUsed,
		BestStreak:  s.bestStreak,
		PuzzleTitle: s.puzzle.Title,
		DailyDate:   s.DailyDate,
	}, true
}

// commitLocked marks a state change and returns the snapshot to publish.
func (s *Session) commitLocked() Snapshot {
	s.version++
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Version:       s.version,
		SessionID:     s.ID,
		Difficulty:    s.Difficulty,
		Mode:          s.Mode,
		PlayerScore:   s.playerScore,
		AIScore:       s.aiScore,
		Turn:          s.turn,
		GameEnded:     s.ended,
		Winner:        s.winner,
		AnsweredClues: append([]int{}, s.answered...),
		Grid:          map[string]string{},
		HintsUsed:     s.hintsUsed,
		Streak:        s.streak,
		BestStreak:    s.bestStreak,
		StartedAt:     s.startTime,
	}
	if s.grid != nil {
		snap.Grid = s.grid.Map()
	}
	if s.lastAI != nil {
		m := *s.lastAI
		snap.LastAIMove = &m
	}
	if s.ended && s.puzzle != nil {
		snap.Solution = solutionMap(s.puzzle)
	}
	return snap
}

// ---------------------------------------------------------------------------
// side effects

// unlockAndPublish releases mu and hands snap to Notify. Taking pub before
// mu is released keeps a later commit from overtaking this one.
func (s *Session) unlockAndPublish(snap Snapshot) {
	s.pub.Lock()
	defer s.pub.Unlock()
	s.mu.Unlock()
	if s.deps.Notify != nil {
		s.deps.Notify(snap)
	}
}

// record hands the summary to the sink. Failures are logged, never surfaced.
func (s *Session) record(sum Summary) {
	if s.deps.Sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := s.deps.Sink.Record(ctx, sum); err != nil {
		log.Warn().Err(err).Str("session", s.ID).Msg("record game stats")
		return
	}
	log.Info().Str("session", s.ID).Msg("saved game stats")
}
