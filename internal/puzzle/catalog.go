// internal/puzzle/catalog.go
//
// Puzzle catalog management.
//
// Responsibilities:
//   - Load the catalog from a JSON file (PUZZLES_FILE, resolved by the caller)
//     or fall back to the embedded default (assets/puzzles.json).
//   - Normalize clue data (uppercase answers, default points).
//   - Serve one random puzzle per difficulty, or a deterministic daily one.
//
// File shape:
//   { "easy": [ {title, size, clues: [...]}, ... ], "medium": [...], "hard": [...] }

package puzzle

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/crossword-battle/assets"
	"github.com/robalobadob/crossword-battle/internal/daily"
)

// defaultPoints is used for clues that carry no positive point value.
const defaultPoints = 10

// ErrNoPuzzle is returned when no puzzle exists for a difficulty.
var ErrNoPuzzle = errors.New("no puzzle available")

// Catalog holds the immutable puzzle lists keyed by difficulty.
type Catalog struct {
	puzzles map[Difficulty][]*Puzzle

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// Load builds a catalog from the JSON file at path, or from the embedded
// default catalog when path is empty.
func Load(path string, rng *rand.Rand) (*Catalog, error) {
	raw := assets.Puzzles()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		raw = b
		log.Info().Str("file", path).Msg("loading puzzles from file")
	}
	return Parse(raw, rng)
}

// Parse decodes a JSON catalog. A nil rng gets a time-seeded PCG source.
func Parse(raw []byte, rng *rand.Rand) (*Catalog, error) {
	var byKey map[string][]*Puzzle
	if err := json.Unmarshal(raw, &byKey); err != nil {
		return nil, fmt.Errorf("decode puzzles: %w", err)
	}
	c := New(rng)
	for k, list := range byKey {
		d := Difficulty(strings.ToLower(k))
		for _, p := range list {
			normalize(p)
			c.puzzles[d] = append(c.puzzles[d], p)
		}
	}
	if len(c.puzzles) == 0 {
		return nil, errors.New("puzzles: catalog is empty")
	}
	return c, nil
}

// New returns an empty catalog; Add populates it.
func New(rng *rand.Rand) *Catalog {
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>1))
	}
	return &Catalog{puzzles: make(map[Difficulty][]*Puzzle), rng: rng}
}

// Add registers a puzzle under a difficulty.
func (c *Catalog) Add(d Difficulty, p *Puzzle) {
	normalize(p)
	c.puzzles[d] = append(c.puzzles[d], p)
}

// normalize uppercases answers and fills in missing point values.
func normalize(p *Puzzle) {
	for i := range p.Clues {
		cl := &p.Clues[i]
		cl.Answer = strings.ToUpper(strings.TrimSpace(cl.Answer))
		if cl.Points <= 0 {
			cl.Points = defaultPoints
		}
		if cl.Direction != Down {
			cl.Direction = Across
		}
	}
}

// resolve applies the unknown-difficulty fallback.
func (c *Catalog) resolve(d Difficulty) Difficulty {
	if _, ok := c.puzzles[d]; ok {
		return d
	}
	return Medium
}

// Puzzle returns a random puzzle for d.
// Unknown difficulties fall back to Medium.
func (c *Catalog) Puzzle(d Difficulty) (*Puzzle, error) {
	list := c.puzzles[c.resolve(d)]
	if len(list) == 0 {
		return nil, ErrNoPuzzle
	}
	c.mu.Lock()
	i := c.rng.IntN(len(list))
	c.mu.Unlock()
	return list[i], nil
}

// Daily returns the puzzle for d on the given date, chosen deterministically
// from the salt, along with its index in the difficulty's list.
func (c *Catalog) Daily(d Difficulty, date time.Time, salt string) (*Puzzle, int, error) {
	list := c.puzzles[c.resolve(d)]
	if len(list) == 0 {
		return nil, 0, ErrNoPuzzle
	}
	idx := daily.PuzzleIndex(date, salt, len(list))
	return list[idx], idx, nil
}

// Count returns the number of puzzles for d (no fallback).
func (c *Catalog) Count(d Difficulty) int {
	return len(c.puzzles[d])
}

// DailySource adapts a Catalog to always return the daily puzzle for a
// fixed date and salt.
type DailySource struct {
	Catalog *Catalog
	Date    time.Time
	Salt    string
}

// Puzzle implements the session's catalog contract.
func (s *DailySource) Puzzle(d Difficulty) (*Puzzle, error) {
	p, _, err := s.Catalog.Daily(d, s.Date, s.Salt)
	return p, err
}
