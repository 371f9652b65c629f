// internal/game/types.go
//
// Core type definitions for the crossword battle engine.
// Defines:
//   - Turn, Winner, Mode: the enums a session moves through.
//   - Catalog, Policy, Sink: the collaborators a session calls out to.
//   - AnswerResult, HintResult, Snapshot, Summary: what a session reports.

package game

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/robalobadob/crossword-battle/internal/puzzle"
)

const (
	// MaxHints is the hint budget of a single game.
	MaxHints = 3
	// ScoreThreshold ends a quick_play game once either side reaches it.
	ScoreThreshold = 100
)

// Turn identifies who may act next.
type Turn string

const (
	TurnPlayer Turn = "player"
	TurnAI     Turn = "ai"
)

// Winner is the outcome of an ended game; empty while in progress.
type Winner string

const (
	WinnerNone   Winner = ""
	WinnerPlayer Winner = "player"
	WinnerAI     Winner = "ai"
	WinnerTie    Winner = "tie"
)

// Mode selects the win-condition policy.
//   - "quick_play":  completion, or the first side to reach ScoreThreshold.
//   - "full_puzzle": completion only.
//   - "daily":       completion only, on the puzzle of the day.
type Mode string

const (
	ModeQuickPlay  Mode = "quick_play"
	ModeFullPuzzle Mode = "full_puzzle"
	ModeDaily      Mode = "daily"
)

// ParseMode maps free-form input onto a known mode, defaulting to quick_play.
func ParseMode(s string) Mode {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeQuickPlay, ModeFullPuzzle, ModeDaily:
		return m
	default:
		return ModeQuickPlay
	}
}

// Precondition violations. None of them change session state.
var (
	ErrNotYourTurn     = errors.New("not your turn")
	ErrGameEnded       = errors.New("game ended")
	ErrNoActivePuzzle  = errors.New("no active puzzle")
	ErrInvalidClue     = errors.New("invalid or already-answered clue")
	ErrNoHintsLeft     = errors.New("no more hints available")
	ErrHintUnavailable = errors.New("cannot provide hint for this clue")
	ErrAlreadyStarted  = errors.New("game already started")
)

// Catalog supplies the puzzle a session plays.
type Catalog interface {
	Puzzle(d puzzle.Difficulty) (*puzzle.Puzzle, error)
}

// Policy decides the AI's moves.
type Policy interface {
	SelectClue(available []puzzle.Clue, d puzzle.Difficulty) (puzzle.Clue, bool)
	ShouldAnswerCorrectly(d puzzle.Difficulty) bool
	ThinkingDelay(d puzzle.Difficulty) time.Duration
}

// Sink receives the summary of every finished game, exactly once.
type Sink interface {
	Record(ctx context.Context, s Summary) error
}

// AIMove is the outcome of the AI's most recent half-turn.
type AIMove struct {
	ClueID  int  `json:"clueId"`
	Correct bool `json:"correct"`
}

// AnswerResult is returned by SubmitAnswer.
type AnswerResult struct {
	Correct   bool   `json:"correct"`
	Streak    int    `json:"streak"`
	GameEnded bool   `json:"gameEnded,omitempty"`
	Winner    Winner `json:"winner,omitempty"`
}

// HintResult is returned by Hint.
type HintResult struct {
	Hint           string `json:"hint"`
	HintsRemaining int    `json:"hintsRemaining"`
}

// Snapshot is a read-only copy of a session's observable state.
type Snapshot struct {
	// Version increases with every state change of the session.
	Version       uint64            `json:"version"`
	SessionID     string            `json:"sessionId"`
	Difficulty    puzzle.Difficulty `json:"difficulty"`
	Mode          Mode              `json:"mode"`
	PlayerScore   int               `json:"playerScore"`
	AIScore       int               `json:"aiScore"`
	Turn          Turn              `json:"turn"`
	GameEnded     bool              `json:"gameEnded"`
	Winner        Winner            `json:"winner,omitempty"`
	AnsweredClues []int             `json:"answeredClues"`
	Grid          map[string]string `json:"grid"`
	HintsUsed     int               `json:"hintsUsed"`
	Streak        int               `json:"streak"`
	BestStreak    int               `json:"bestStreak"`
	LastAIMove    *AIMove           `json:"lastAiMove,omitempty"`
	StartedAt     time.Time         `json:"startedAt"`
	// Solution holds every clue's letters once the game has ended.
	Solution map[string]string `json:"solution,omitempty"`
}

// Summary describes a finished game for the stats sink.
type Summary struct {
	SessionID   string
	Owner       string // account id, empty for guests
	Difficulty  puzzle.Difficulty
	Mode        Mode
	PlayerScore int
	AIScore     int
	Winner      Winner
	Duration    time.Duration
	HintsUsed   int
	BestStreak  int
	PuzzleTitle string
	DailyDate   string // YYYY-MM-DD for daily games
}

// DurationSeconds is the game length in whole seconds.
func (s Summary) DurationSeconds() int {
	return int(s.Duration / time.Second)
}

// PlayerID is the aggregate key for stats: the first 8 characters of the
// session id.
func (s Summary) PlayerID() string {
	return PlayerID(s.SessionID)
}

// PlayerID derives the stats key from a session id.
func PlayerID(sessionID string) string {
	if len(sessionID) > 8 {
		return sessionID[:8]
	}
	return sessionID
}
