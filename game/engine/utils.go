package engine

import "strings"

// CountTiles counts the cells of a specific kind in the grid
func CountTiles(grid Grid, tile Tile) int {
	count := 0
	for _, row := range grid {
		for _, t := range row {
			if t == tile {
				count++
			}
		}
	}
	return count
}

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	return abs(from.X-to.X) + abs(from.Y-to.Y)
}

// ChebyshevDistance is the king-move distance between two positions
func ChebyshevDistance(from, to Position) int {
	dx, dy := abs(from.X-to.X), abs(from.Y-to.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// HasCleanPath reports whether home can be reached from start without
// stepping on a dirty tile, moving in the four cardinal directions.
func HasCleanPath(grid Grid) bool {
	size := grid.Size()
	if size == 0 {
		return false
	}
	start, home := StartPosition(), HomePosition(size)

	seen := make([][]bool, size)
	for i := range seen {
		seen[i] = make([]bool, size)
	}
	queue := []Position{start}
	seen[start.Y][start.X] = true

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if p == home {
			return true
		}
		for _, d := range Directions {
			dx, dy := d.delta()
			n := Position{X: p.X + dx, Y: p.Y + dy}
			if !grid.InBounds(n) || seen[n.Y][n.X] || grid.At(n) == Dirty {
				continue
			}
			seen[n.Y][n.X] = true
			queue = append(queue, n)
		}
	}
	return false
}

// TileChar returns the one-character map symbol for a tile
func TileChar(t Tile) string {
	switch t {
	case Dirty:
		return "D"
	case Home:
		return "H"
	default:
		return "."
	}
}

// RenderGrid draws the board as text rows with the player marked '@'
func RenderGrid(grid Grid, player Position) []string {
	rows := make([]string, 0, len(grid))
	for y, row := range grid {
		var b strings.Builder
		for x, t := range row {
			if x == player.X && y == player.Y {
				b.WriteString("@")
				continue
			}
			b.WriteString(TileChar(t))
		}
		rows = append(rows, b.String())
	}
	return rows
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
