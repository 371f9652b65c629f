// internal/game/grid.go
//
// Letter grid for a session.
// Responsibilities:
//   - Hold the size×size board of revealed letters.
//   - Write a clue's answer along its direction, clipping at the edges.
//   - Flatten to the "row-col" → letter map used in snapshots.

package game

import (
	"strconv"

	"github.com/robalobadob/crossword-battle/internal/puzzle"
)

// Grid is the size×size board of letters written so far; "" is empty.
type Grid struct {
	size  int
	cells [][]string
}

// NewGrid returns an all-empty grid.
func NewGrid(size int) *Grid {
	cells := make([][]string, size)
	for i := range cells {
		cells[i] = make([]string, size)
	}
	return &Grid{size: size, cells: cells}
}

// CellKey is the "row-col" key used in the map form of a grid.
func CellKey(row, col int) string {
	return strconv.Itoa(row) + "-" + strconv.Itoa(col)
}

func (g *Grid) inBounds(row, col int) bool {
	return row >= 0 && row < g.size && col >= 0 && col < g.size
}

// Get returns the letter at (row, col), or "" if empty or out of bounds.
func (g *Grid) Get(row, col int) string {
	if !g.inBounds(row, col) {
		return ""
	}
	return g.cells[row][col]
}

// Write places answer along c's direction starting at its position,
// overwriting existing letters. Cells outside the grid are skipped.
// Returns the number of letters written.
func (g *Grid) Write(c puzzle.Clue, answer string) int {
	n := 0
	for i, r := range []rune(answer) {
		row, col := c.Cell(i)
		if !g.inBounds(row, col) {
			continue
		}
		g.cells[row][col] = string(r)
		n++
	}
	return n
}

// Map returns every cell keyed by CellKey.
func (g *Grid) Map() map[string]string {
	out := make(map[string]string, g.size*g.size)
	for r, row := range g.cells {
		for c, v := range row {
			out[CellKey(r, c)] = v
		}
	}
	return out
}

// solutionMap renders all answers of p onto a fresh grid.
func solutionMap(p *puzzle.Puzzle) map[string]string {
	g := NewGrid(p.Size)
	for _, c := range p.Clues {
		g.Write(c, c.Answer)
	}
	return g.Map()
}
