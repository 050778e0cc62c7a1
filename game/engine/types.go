package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Tile classifies a single grid cell
type Tile int

const (
	Clean Tile = iota
	Dirty
	Home
)

// Validation constants
const (
	MinGridSize      = 3
	MaxGridSize      = 50
	DefaultGridSize  = 6
	MinStartingWater = 1
	MaxStartingWater = 1000
	MaxDirtyPenalty  = 1000
	MaxBulkMoves     = 50
	DefaultWater     = 100
	DefaultPenalty   = 15
)

var (
	ErrInvalidSize       = errors.New("invalid grid size")
	ErrInvalidDirection  = errors.New("invalid direction")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrInvalidTile       = errors.New("invalid tile")
)

var tileNames = [...]string{Clean: "clean", Dirty: "dirty", Home: "home"}

func (t Tile) String() string {
	if t < Clean || t > Home {
		return fmt.Sprintf("tile(%d)", int(t))
	}
	return tileNames[t]
}

// MarshalText encodes the tile by name so persisted grids stay readable
func (t Tile) MarshalText() ([]byte, error) {
	if t < Clean || t > Home {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTile, int(t))
	}
	return []byte(tileNames[t]), nil
}

// UnmarshalText decodes a tile name
func (t *Tile) UnmarshalText(text []byte) error {
	for i, name := range tileNames {
		if string(text) == name {
			*t = Tile(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidTile, string(text))
}

// Position represents x,y coordinates
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Grid is a square matrix of tiles indexed grid[y][x]
type Grid [][]Tile

// Size returns the side length of the grid
func (g Grid) Size() int {
	return len(g)
}

// At returns the tile at p
func (g Grid) At(p Position) Tile {
	return g[p.Y][p.X]
}

// InBounds reports whether p lies on the grid
func (g Grid) InBounds(p Position) bool {
	return p.Y >= 0 && p.Y < len(g) && p.X >= 0 && p.X < len(g[p.Y])
}

// Clone returns a deep copy of the grid
func (g Grid) Clone() Grid {
	if g == nil {
		return nil
	}
	out := make(Grid, len(g))
	for y := range g {
		out[y] = append([]Tile(nil), g[y]...)
	}
	return out
}

// Difficulty selects the dirty-tile density and time budget of a run
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Normal Difficulty = "normal"
	Hard   Difficulty = "hard"
)

// Difficulties lists every difficulty from easiest to hardest
var Difficulties = []Difficulty{Easy, Normal, Hard}

// ParseDifficulty normalizes a difficulty name
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case Easy, Normal, Hard:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
}

// Direction is one of the four cardinal moves
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Directions lists every direction in a stable order
var Directions = []Direction{Up, Down, Left, Right}

// ParseDirection accepts direction names and browser arrow-key names
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "arrowup":
		return Up, nil
	case "down", "arrowdown":
		return Down, nil
	case "left", "arrowleft":
		return Left, nil
	case "right", "arrowright":
		return Right, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// delta returns the unit displacement of d
func (d Direction) delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

// Status is the session lifecycle state
type Status string

const (
	Idle    Status = "idle"
	Running Status = "running"
	Won     Status = "won"
	Lost    Status = "lost"
)

// Outcome explains why a session ended
type Outcome string

const (
	OutcomeNone        Outcome = ""
	OutcomeHomeReached Outcome = "home_reached"
	OutcomeDepleted    Outcome = "depleted"
)

// DifficultySettings is one row of the difficulty table
type DifficultySettings struct {
	DirtyChance float64 `json:"dirty_chance" yaml:"dirty_chance"`
	TimeBudget  int     `json:"time_budget" yaml:"time_budget"`
	ClearBorder bool    `json:"clear_border,omitempty" yaml:"clear_border,omitempty"`
}

// Messages are the texts attached to state transitions
type Messages struct {
	Welcome     string `json:"welcome" yaml:"welcome"`
	Started     string `json:"started" yaml:"started"`
	Milestone   string `json:"milestone" yaml:"milestone"`
	DirtyTile   string `json:"dirty_tile" yaml:"dirty_tile"`
	HomeReached string `json:"home_reached" yaml:"home_reached"`
	Depleted    string `json:"depleted" yaml:"depleted"`
	Reset       string `json:"reset" yaml:"reset"`
}

// GameConfig is a rule set loaded from JSON or YAML
type GameConfig struct {
	Name              string                            `json:"name" yaml:"name"`
	Description       string                            `json:"description" yaml:"description"`
	GridSize          int                               `json:"grid_size" yaml:"grid_size"`
	StartingWater     int                               `json:"starting_water" yaml:"starting_water"`
	DirtyPenalty      int                               `json:"dirty_penalty" yaml:"dirty_penalty"`
	Milestones        []int                             `json:"milestones" yaml:"milestones"`
	DefaultDifficulty Difficulty                        `json:"default_difficulty" yaml:"default_difficulty"`
	Difficulties      map[Difficulty]DifficultySettings `json:"difficulties" yaml:"difficulties"`
	Messages          Messages                          `json:"messages" yaml:"messages"`
}

// GameState represents the complete state of one session
type GameState struct {
	Grid            Grid               `json:"grid"`
	PlayerPos       Position           `json:"player_pos"`
	Water           int                `json:"water"`
	TimeLeft        int                `json:"time_left"`
	Steps           int                `json:"steps"`
	MilestonesShown []int              `json:"milestones_shown"`
	Status          Status             `json:"status"`
	Outcome         Outcome            `json:"outcome,omitempty"`
	Difficulty      Difficulty         `json:"difficulty"`
	Epoch           int                `json:"epoch"`
	Message         string             `json:"message"`
	ConfigName      string             `json:"config_name"`
	StartedAt       time.Time          `json:"started_at,omitempty"`
	MoveHistory     []MoveHistoryEntry `json:"move_history"`
}

// MoveHistoryEntry records one move attempt of the current run
type MoveHistoryEntry struct {
	Direction    Direction `json:"direction"`
	FromPosition Position  `json:"from_position"`
	ToPosition   Position  `json:"to_position"`
	Tile         Tile      `json:"tile"`
	Water        int       `json:"water"`
	Steps        int       `json:"steps"`
	Accepted     bool      `json:"accepted"`
	Timestamp    int64     `json:"timestamp"`
	MoveNumber   int       `json:"move_number"`
}

// MoveInfo describes the displacement produced by an accepted move.
// For a dirty tile To is the tile stepped on and Final is the start cell.
type MoveInfo struct {
	Direction    Direction `json:"direction"`
	From         Position  `json:"from"`
	To           Position  `json:"to"`
	Final        Position  `json:"final"`
	Tile         Tile      `json:"tile"`
	Penalty      int       `json:"penalty,omitempty"`
	ResetToStart bool      `json:"reset_to_start,omitempty"`
}

// Result is returned by every state-changing operation
type Result struct {
	Status     Status    `json:"status"`
	Position   Position  `json:"position"`
	Water      int       `json:"water"`
	TimeLeft   int       `json:"time_left"`
	Steps      int       `json:"steps"`
	Milestones []int     `json:"milestones,omitempty"`
	Outcome    Outcome   `json:"outcome,omitempty"`
	Ended      bool      `json:"ended,omitempty"`
	Ignored    bool      `json:"ignored,omitempty"`
	NoOp       bool      `json:"no_op,omitempty"`
	Move       *MoveInfo `json:"move,omitempty"`
	Message    string    `json:"message,omitempty"`
}
