// internal/stats/store.go
//
// SQLite-backed stats sink.
// Responsibilities:
//   - Record a finished game: game_stats row, player_stats upsert, and the
//     daily_results row for daily games, all in one transaction.
//   - Read side: global overview, per-player aggregate, per-account aggregate.

package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/robalobadob/crossword-battle/internal/daily"
	"github.com/robalobadob/crossword-battle/internal/game"
)

// ErrNotFound is returned for players without any recorded game.
var ErrNotFound = errors.New("player not found")

// recentLimit is the number of games listed in the overview.
const recentLimit = 10

// Store writes and reads game statistics.
type Store struct {
	db *sql.DB
}

// New wraps an open, migrated database.
func New(db *sql.DB) *Store { return &Store{db: db} }

// Record persists a finished game. It satisfies game.Sink.
func (s *Store) Record(ctx context.Context, sum game.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var owner any
	if sum.Owner != "" {
		owner = sum.Owner
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO game_stats
			(session_id, user_id, difficulty, mode, player_score, ai_score, winner, duration, hints_used)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		sum.SessionID, owner, string(sum.Difficulty), string(sum.Mode),
		sum.PlayerScore, sum.AIScore, string(sum.Winner), sum.DurationSeconds(), sum.HintsUsed,
	); err != nil {
		return fmt.Errorf("insert game_stats: %w", err)
	}

	var win, loss, tie int
	switch sum.Winner {
	case game.WinnerPlayer:
		win = 1
	case game.WinnerAI:
		loss = 1
	case game.WinnerTie:
		tie = 1
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO player_stats
			(player_id, total_games, wins, losses, ties, total_score, best_streak, created_at, updated_at)
		VALUES (?,1,?,?,?,?,?,?,?)
		ON CONFLICT(player_id) DO UPDATE SET
			total_games = total_games + 1,
			wins        = wins + excluded.wins,
			losses      = losses + excluded.losses,
			ties        = ties + excluded.ties,
			total_score = total_score + excluded.total_score,
			best_streak = MAX(best_streak, excluded.best_streak),
			updated_at  = excluded.updated_at`,
		sum.PlayerID(), win, loss, tie, sum.PlayerScore, sum.BestStreak, now, now,
	); err != nil {
		return fmt.Errorf("upsert player_stats: %w", err)
	}

	if sum.Mode == game.ModeDaily && sum.DailyDate != "" {
		player := sum.Owner
		if player == "" {
			player = sum.PlayerID()
		}
		if err := daily.NewStore(tx).InsertResult(ctx, daily.Result{
			PlayerID:    player,
			Date:        sum.DailyDate,
			Difficulty:  string(sum.Difficulty),
			PuzzleTitle: sum.PuzzleTitle,
			PlayerScore: sum.PlayerScore,
			AIScore:     sum.AIScore,
			Winner:      string(sum.Winner),
			ElapsedMs:   int(sum.Duration.Milliseconds()),
		}); err != nil {
			return fmt.Errorf("insert daily_results: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecentGame is one row of the overview's recent list.
type RecentGame struct {
	Difficulty  string `json:"difficulty"`
	Mode        string `json:"mode"`
	Winner      string `json:"winner"`
	PlayerScore int    `json:"playerScore"`
	AIScore     int    `json:"aiScore"`
	Duration    int    `json:"duration"`
	CreatedAt   string `json:"createdAt"`
}

// Overview aggregates every recorded game.
type Overview struct {
	TotalGames     int            `json:"totalGames"`
	PlayerWins     int            `json:"playerWins"`
	AIWins         int            `json:"aiWins"`
	Ties           int            `json:"ties"`
	WinRate        float64        `json:"winRate"`
	AvgPlayerScore float64        `json:"avgPlayerScore"`
	AvgAIScore     float64        `json:"avgAiScore"`
	Difficulties   map[string]int `json:"difficultyStats"`
	Recent         []RecentGame   `json:"recentGames"`
}

// Overview reports global totals, averages, the difficulty distribution and
// the most recent games.
func (s *Store) Overview(ctx context.Context) (Overview, error) {
	ov := Overview{Difficulties: map[string]int{}, Recent: []RecentGame{}}
	var avgPlayer, avgAI float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(winner='player'),0),
			COALESCE(SUM(winner='ai'),0),
			COALESCE(SUM(winner='tie'),0),
			COALESCE(AVG(player_score),0),
			COALESCE(AVG(ai_score),0)
		FROM game_stats`,
	).Scan(&ov.TotalGames, &ov.PlayerWins, &ov.AIWins, &ov.Ties, &avgPlayer, &avgAI)
	if err != nil {
		return ov, fmt.Errorf("totals: %w", err)
	}
	ov.WinRate = percent(ov.PlayerWins, ov.TotalGames)
	ov.AvgPlayerScore = round1(avgPlayer)
	ov.AvgAIScore = round1(avgAI)

	rows, err := s.db.QueryContext(ctx, `SELECT difficulty, COUNT(*) FROM game_stats GROUP BY difficulty`)
	if err != nil {
		return ov, fmt.Errorf("difficulties: %w", err)
	}
	for rows.Next() {
		var d string
		var n int
		if err := rows.Scan(&d, &n); err != nil {
			rows.Close()
			return ov, err
		}
		ov.Difficulties[d] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ov, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT difficulty, mode, COALESCE(winner,''), player_score, ai_score, duration, created_at
		FROM game_stats ORDER BY created_at DESC, id DESC LIMIT ?`, recentLimit)
	if err != nil {
		return ov, fmt.Errorf("recent: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var g RecentGame
		if err := rows.Scan(&g.Difficulty, &g.Mode, &g.Winner, &g.PlayerScore, &g.AIScore, &g.Duration, &g.CreatedAt); err != nil {
			return ov, err
		}
		ov.Recent = append(ov.Recent, g)
	}
	return ov, rows.Err()
}

// Player is the rolling aggregate of one player id.
type Player struct {
	PlayerID     string  `json:"playerId"`
	TotalGames   int     `json:"totalGames"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	Ties         int     `json:"ties"`
	TotalScore   int     `json:"totalScore"`
	BestStreak   int     `json:"bestStreak"`
	WinRate      float64 `json:"winRate"`
	AverageScore float64 `json:"averageScore"`
	UpdatedAt    string  `json:"updatedAt"`
}

// Player loads the aggregate for a player id.
func (s *Store) Player(ctx context.Context, id string) (Player, error) {
	p := Player{PlayerID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT total_games, wins, losses, ties, total_score, best_streak, updated_at
		FROM player_stats WHERE player_id=?`, id,
	).Scan(&p.TotalGames, &p.Wins, &p.Losses, &p.Ties, &p.TotalScore, &p.BestStreak, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, fmt.Errorf("player_stats: %w", err)
	}
	p.WinRate = percent(p.Wins, p.TotalGames)
	p.AverageScore = ratio(p.TotalScore, p.TotalGames)
	return p, nil
}

// Account is the aggregate of a logged-in user's games.
type Account struct {
	UserID       string  `json:"id"`
	GamesPlayed  int     `json:"gamesPlayed"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	Ties         int     `json:"ties"`
	TotalScore   int     `json:"totalScore"`
	BestScore    int     `json:"bestScore"`
	WinRate      float64 `json:"winRate"`
	AverageScore float64 `json:"averageScore"`
}

// Account aggregates game_stats rows linked to a user. Users without games
// get a zero aggregate.
func (s *Store) Account(ctx context.Context, userID string) (Account, error) {
	a := Account{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(winner='player'),0),
			COALESCE(SUM(winner='ai'),0),
			COALESCE(SUM(winner='tie'),0),
			COALESCE(SUM(player_score),0),
			COALESCE(MAX(player_score),0)
		FROM game_stats WHERE user_id=?`, userID,
	).Scan(&a.GamesPlayed, &a.Wins, &a.Losses, &a.Ties, &a.TotalScore, &a.BestScore)
	if err != nil {
		return a, fmt.Errorf("account stats: %w", err)
	}
	a.WinRate = percent(a.Wins, a.GamesPlayed)
	a.AverageScore = ratio(a.TotalScore, a.GamesPlayed)
	return a, nil
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}

func ratio(sum, n int) float64 {
	if n == 0 {
		return 0
	}
	return round1(float64(sum) / float64(n))
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }
