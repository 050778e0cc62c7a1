package engine

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"
)

// RandomSource supplies uniform values in [0,1)
type RandomSource interface {
	Float64() float64
}

// NewRandomSource returns a pseudorandom source seeded with seed
func NewRandomSource(seed uint64) RandomSource {
	return rand.New(rand.NewSource(seed))
}

// Generator builds boards for new runs
type Generator struct {
	rng RandomSource
}

// NewGenerator creates a generator drawing from rng. A nil rng is replaced
// by a clock-seeded source.
func NewGenerator(rng RandomSource) *Generator {
	if rng == nil {
		rng = NewRandomSource(uint64(time.Now().UnixNano()))
	}
	return &Generator{rng: rng}
}

// Generate builds a board using the default difficulty table
func (g *Generator) Generate(size int, difficulty Difficulty) (Grid, error) {
	settings, ok := DefaultDifficulties()[difficulty]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDifficulty, difficulty)
	}
	return g.GenerateBoard(size, settings)
}

// GenerateBoard builds a board of side size with the given settings.
//
// Cells within one step (8-neighborhood) of start or home are never dirty.
// Clearing the top row and right column is a heuristic: interior tiles may
// still wall off every route, so solvability is not guaranteed.
func (g *Generator) GenerateBoard(size int, settings DifficultySettings) (Grid, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	start := StartPosition()
	home := HomePosition(size)

	grid := make(Grid, size)
	for y := 0; y < size; y++ {
		grid[y] = make([]Tile, size)
		for x := 0; x < size; x++ {
			p := Position{X: x, Y: y}
			if ChebyshevDistance(p, start) <= 1 || ChebyshevDistance(p, home) <= 1 {
				continue
			}
			if g.rng.Float64() < settings.DirtyChance {
				grid[y][x] = Dirty
			}
		}
	}

	if settings.ClearBorder {
		for x := 0; x < size; x++ {
			grid[0][x] = Clean
		}
		for y := 0; y < size; y++ {
			grid[y][size-1] = Clean
		}
	}

	grid[start.Y][start.X] = Clean
	grid[home.Y][home.X] = Home
	return grid, nil
}

// StartPosition is where every run begins
func StartPosition() Position {
	return Position{X: 0, Y: 0}
}

// HomePosition is the goal cell of a board of side size
func HomePosition(size int) Position {
	return Position{X: size - 1, Y: size - 1}
}
