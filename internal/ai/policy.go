// internal/ai/policy.go
//
// Scripted AI opponent.
// Responsibilities:
//   - Pick which unanswered clue the AI attempts (difficulty-flavored pool,
//     then a uniform random pick inside it).
//   - Decide whether the attempt succeeds (per-difficulty accuracy).
//   - Produce the simulated thinking delay.
//
// The policy holds no game state. Its only mutable field is the PRNG, which
// is injected so tests can pin outcomes and is guarded for use by many
// sessions at once.

package ai

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/robalobadob/crossword-battle/internal/puzzle"
)

// minDelay is the shortest thinking delay the AI ever waits.
const minDelay = 500 * time.Millisecond

// Profile holds the fixed knobs for one difficulty.
type Profile struct {
	Accuracy     float64       `json:"accuracy"`
	ThinkingTime time.Duration `json:"thinkingTime"`
	PreferShort  bool          `json:"preferShort"`
}

// Expected is the advertised AI performance at a difficulty.
type Expected struct {
	WinRate  int     `json:"winRate"`  // percent
	AvgScore int     `json:"avgScore"` // points per game
	AvgTime  float64 `json:"avgTime"`  // seconds per move
}

var profiles = map[puzzle.Difficulty]Profile{
	puzzle.Easy:   {Accuracy: 0.70, ThinkingTime: 3 * time.Second, PreferShort: true},
	puzzle.Medium: {Accuracy: 0.85, ThinkingTime: 2 * time.Second},
	puzzle.Hard:   {Accuracy: 0.95, ThinkingTime: 1 * time.Second},
}

var expected = map[puzzle.Difficulty]Expected{
	puzzle.Easy:   {WinRate: 30, AvgScore: 45, AvgTime: 3.2},
	puzzle.Medium: {WinRate: 50, AvgScore: 72, AvgTime: 2.1},
	puzzle.Hard:   {WinRate: 70, AvgScore: 95, AvgTime: 1.3},
}

// ProfileFor returns the profile for d, or Medium's for unknown values.
func ProfileFor(d puzzle.Difficulty) Profile {
	if p, ok := profiles[d]; ok {
		return p
	}
	return profiles[puzzle.Medium]
}

// ExpectedFor returns the advertised performance figures for d.
func ExpectedFor(d puzzle.Difficulty) Expected {
	if e, ok := expected[d]; ok {
		return e
	}
	return expected[puzzle.Medium]
}

// Policy is the AI decision maker shared by all sessions.
type Policy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a policy drawing from rng. A nil rng gets a time-seeded PCG.
func New(rng *rand.Rand) *Policy {
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now^0x9e3779b97f4a7c15))
	}
	return &Policy{rng: rng}
}

// NewSeeded returns a deterministic policy.
func NewSeeded(seed uint64) *Policy {
	return New(rand.New(rand.NewPCG(seed, seed)))
}

// Pool returns the clues the AI picks from at difficulty d.
//
// Easy prefers short answers: ascending by length, first half.
// Medium and hard prefer valuable clues: descending by points, first third.
// The pool always holds at least one clue when the input is non-empty.
func Pool(clues []puzzle.Clue, d puzzle.Difficulty) []puzzle.Clue {
	if len(clues) == 0 {
		return nil
	}
	sorted := append([]puzzle.Clue(nil), clues...)
	var n int
	if ProfileFor(d).PreferShort {
		sort.SliceStable(sorted, func(i, j int) bool {
			return len(sorted[i].Answer) < len(sorted[j].Answer)
		})
		n = len(sorted) / 2
	} else {
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Points > sorted[j].Points
		})
		n = len(sorted) / 3
	}
	return sorted[:max(1, n)]
}

// SelectClue picks the clue the AI attempts next. ok is false when there is
// nothing left to pick.
func (p *Policy) SelectClue(available []puzzle.Clue, d puzzle.Difficulty) (c puzzle.Clue, ok bool) {
	pool := Pool(available, d)
	if len(pool) == 0 {
		return puzzle.Clue{}, false
	}
	p.mu.Lock()
	i := p.rng.IntN(len(pool))
	p.mu.Unlock()
	return pool[i], true
}

// ShouldAnswerCorrectly is an independent draw against the accuracy of d.
func (p *Policy) ShouldAnswerCorrectly(d puzzle.Difficulty) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64() < ProfileFor(d).Accuracy
}

// ThinkingDelay is the base delay of d jittered by ±0.5s, never below 0.5s.
func (p *Policy) ThinkingDelay(d puzzle.Difficulty) time.Duration {
	p.mu.Lock()
	jitter := p.rng.Float64() - 0.5
	p.mu.Unlock()
	delay := ProfileFor(d).ThinkingTime + time.Duration(jitter*float64(time.Second))
	if delay < minDelay {
		return minDelay
	}
	return delay
}

// StrategyScore rates how attractive a clue is: points, twice the answer
// length, and a bonus of 5 for across or 3 for down entries.
func StrategyScore(c puzzle.Clue) int {
	bonus := 3
	if c.Direction == puzzle.Across {
		bonus = 5
	}
	return c.Points + 2*len(c.Answer) + bonus
}
