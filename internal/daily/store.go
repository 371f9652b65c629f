package daily

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so results can be written
// inside the stats transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Result struct {
	PlayerID    string `json:"playerId"`
	Date        string `json:"date"`
	Difficulty  string `json:"difficulty"`
	PuzzleTitle string `json:"puzzleTitle"`
	PlayerScore int    `json:"playerScore"`
	AIScore     int    `json:"aiScore"`
	Winner      string `json:"winner"`
	ElapsedMs   int    `json:"elapsedMs"`
}

type Store struct{ db DBTX }

func NewStore(db DBTX) *Store { return &Store{db: db} }

func (s *Store) AlreadyPlayed(ctx context.Context, playerID, date, difficulty string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM daily_results WHERE player_id=? AND date=? AND difficulty=?",
		playerID, date, difficulty,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult records a daily result; a repeat for the same player, date
// and difficulty is ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results
			(player_id, date, difficulty, puzzle_title, player_score, ai_score, winner, elapsed_ms)
		VALUES(?,?,?,?,?,?,?,?)`,
		r.PlayerID, r.Date, r.Difficulty, r.PuzzleTitle, r.PlayerScore, r.AIScore, r.Winner, r.ElapsedMs,
	)
	return err
}

type LBRow struct {
	PlayerID    string `json:"playerId"`
	Difficulty  string `json:"difficulty"`
	PlayerScore int    `json:"playerScore"`
	AIScore     int    `json:"aiScore"`
	Winner      string `json:"winner"`
	ElapsedMs   int    `json:"elapsedMs"`
}

// Leaderboard ranks a day's results: highest score first, then fastest.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT player_id, difficulty, player_score, ai_score, winner, elapsed_ms
		FROM daily_results
		WHERE date=?
		ORDER BY player_score DESC, elapsed_ms ASC, created_at ASC
		LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LBRow{}
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.PlayerID, &r.Difficulty, &r.PlayerScore, &r.AIScore, &r.Winner, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
