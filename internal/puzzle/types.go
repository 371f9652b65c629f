// internal/puzzle/types.go
//
// Core type definitions for crossword puzzles.
// Defines:
//   - Difficulty: easy/medium/hard bucket a puzzle belongs to.
//   - Direction:  across/down orientation of a clue.
//   - Clue:       one crossword entry (text, answer, position, points).
//   - Puzzle:     an immutable bundle of clues on a square grid.

package puzzle

import (
	"strings"
	"unicode/utf8"
)

// Difficulty selects the puzzle bucket and the AI profile.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Difficulties lists the known difficulties in ascending order.
var Difficulties = []Difficulty{Easy, Medium, Hard}

// ParseDifficulty maps free-form input onto a known difficulty.
// Anything unrecognized falls back to Medium.
func ParseDifficulty(s string) Difficulty {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case Easy, Medium, Hard:
		return d
	default:
		return Medium
	}
}

// Direction is the orientation a clue's answer is written in.
type Direction string

const (
	Across Direction = "across"
	Down   Direction = "down"
)

// Position is the top-left cell of a clue as [row, col].
type Position [2]int

func (p Position) Row() int { return p[0] }
func (p Position) Col() int { return p[1] }

// Clue is a single crossword entry.
type Clue struct {
	ID        int       `json:"id"`
	Text      string    `json:"clue"`
	Answer    string    `json:"answer"` // uppercase letters, no spaces
	Direction Direction `json:"direction"`
	Position  Position  `json:"position"`
	Points    int       `json:"points"`
}

// Cell returns the grid coordinates of the i-th letter of the answer.
func (c Clue) Cell(i int) (row, col int) {
	if c.Direction == Down {
		return c.Position.Row() + i, c.Position.Col()
	}
	return c.Position.Row(), c.Position.Col() + i
}

// Puzzle is an immutable set of clues on a Size×Size grid.
type Puzzle struct {
	Title string `json:"title"`
	Size  int    `json:"size"`
	Clues []Clue `json:"clues"`
}

// Clue looks up a clue by id.
func (p *Puzzle) Clue(id int) (Clue, bool) {
	for _, c := range p.Clues {
		if c.ID == id {
			return c, true
		}
	}
	return Clue{}, false
}

// ClueView is a clue as shown to the player: no answer, only its length.
type ClueView struct {
	ID        int       `json:"id"`
	Text      string    `json:"clue"`
	Length    int       `json:"length"`
	Direction Direction `json:"direction"`
	Position  Position  `json:"position"`
	Points    int       `json:"points"`
}

// View is the answer-free form of a puzzle.
type View struct {
	Title string     `json:"title"`
	Size  int        `json:"size"`
	Clues []ClueView `json:"clues"`
}

// View strips the answers from p.
func (p *Puzzle) View() View {
	v := View{Title: p.Title, Size: p.Size, Clues: make([]ClueView, len(p.Clues))}
	for i, c := range p.Clues {
		v.Clues[i] = ClueView{
			ID:        c.ID,
			Text:      c.Text,
			Length:    utf8.RuneCountInString(c.Answer),
			Direction: c.Direction,
			Position:  c.Position,
			Points:    c.Points,
		}
	}
	return v
}
