package engine

import (
	"fmt"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	Snapshot() *GameState
	Status() Status
	IsRunning() bool
	IsGameOver() bool
	Epoch() int

	// Transitions
	Start(difficulty string) (*Result, error)
	Tick() *Result
	Move(direction string) (*Result, error)
	Reset() *Result

	// Configuration
	GetConfig() *GameConfig

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry
}

// GameEngine owns one session's state. It does no locking: the host must
// not call Tick and Move concurrently.
type GameEngine struct {
	state     *GameState
	config    *GameConfig
	generator *Generator
}

// EngineOption customizes a GameEngine
type EngineOption func(*GameEngine)

// WithRandomSource makes board generation draw from rng
func WithRandomSource(rng RandomSource) EngineOption {
	return func(e *GameEngine) {
		e.generator = NewGenerator(rng)
	}
}

// NewEngine creates an idle engine with the provided rule set
func NewEngine(config *GameConfig, opts ...EngineOption) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	e := &GameEngine{config: config}
	for _, opt := range opts {
		opt(e)
	}
	if e.generator == nil {
		e.generator = NewGenerator(nil)
	}

	state, err := InitGameStateFromConfig(config, e.generator, e.defaultDifficulty())
	if err != nil {
		return nil, err
	}
	e.state = state
	return e, nil
}

// NewEngineWithDefaults creates an idle engine with the classic rule set
func NewEngineWithDefaults(opts ...EngineOption) *GameEngine {
	e, err := NewEngine(DefaultConfig(), opts...)
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return e
}

// GetState returns the live game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// Snapshot returns a deep copy of the game state
func (e *GameEngine) Snapshot() *GameState {
	return e.state.Clone()
}

// SetState sets the game state (used for persistence loading)
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if state.Grid.Size() != e.config.GridSize {
		return fmt.Errorf("state grid size %d does not match config grid size %d", state.Grid.Size(), e.config.GridSize)
	}
	if !state.Grid.InBounds(state.PlayerPos) {
		return fmt.Errorf("player position (%d,%d) is off the grid", state.PlayerPos.X, state.PlayerPos.Y)
	}
	if state.MilestonesShown == nil {
		state.MilestonesShown = []int{}
	}
	if state.MoveHistory == nil {
		state.MoveHistory = []MoveHistoryEntry{}
	}
	e.state = state
	return nil
}

// Status returns the lifecycle state
func (e *GameEngine) Status() Status {
	return e.state.Status
}

// IsRunning reports whether ticks and moves currently apply
func (e *GameEngine) IsRunning() bool {
	return e.state.Status == Running
}

// IsGameOver returns whether the run ended in a win or a loss
func (e *GameEngine) IsGameOver() bool {
	return e.state.Status == Won || e.state.Status == Lost
}

// Epoch changes on every Start and Reset. A host timer started for one
// epoch must not tick a later one.
func (e *GameEngine) Epoch() int {
	return e.state.Epoch
}

// Start begins a new run. Starting while running restarts.
func (e *GameEngine) Start(difficulty string) (*Result, error) {
	d := e.defaultDifficulty()
	if difficulty != "" {
		parsed, err := ParseDifficulty(difficulty)
		if err != nil {
			return nil, err
		}
		d = parsed
	}

	settings, err := e.config.Settings(d)
	if err != nil {
		return nil, err
	}
	grid, err := e.generator.GenerateBoard(e.config.GridSize, settings)
	if err != nil {
		return nil, err
	}

	epoch := e.state.Epoch + 1
	e.state = &GameState{
		Grid:            grid,
		PlayerPos:       StartPosition(),
		Water:           e.config.StartingWater,
		TimeLeft:        settings.TimeBudget,
		Steps:           0,
		MilestonesShown: []int{},
		Status:          Running,
		Outcome:         OutcomeNone,
		Difficulty:      d,
		Epoch:           epoch,
		Message:         e.config.Messages.Started,
		ConfigName:      e.config.Name,
		StartedAt:       time.Now(),
		MoveHistory:     []MoveHistoryEntry{},
	}
	return e.state.result(), nil
}

// Tick applies one second of elapsed time; ignored unless running
func (e *GameEngine) Tick() *Result {
	if !e.IsRunning() {
		res := e.state.result()
		res.Ignored = true
		return res
	}
	return e.state.Advance(e.config)
}

// Move attempts to move the player. An unknown direction is an error in any
// state; a valid move while not running is ignored.
func (e *GameEngine) Move(direction string) (*Result, error) {
	d, err := ParseDirection(direction)
	if err != nil {
		return nil, err
	}
	if !e.IsRunning() {
		res := e.state.result()
		res.Ignored = true
		return res, nil
	}
	return e.state.MovePlayer(d, e.config), nil
}

// BulkMove executes moves in sequence until the run stops or a direction is invalid
func (e *GameEngine) BulkMove(moves []string) ([]*Result, error) {
	results := make([]*Result, 0, len(moves))
	for i, direction := range moves {
		if !e.IsRunning() {
			break
		}
		res, err := e.Move(direction)
		if err != nil {
			return results, fmt.Errorf("move %d: %w", i+1, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Reset returns to an idle state with a fresh inert board, keeping the
// selected difficulty
func (e *GameEngine) Reset() *Result {
	d := e.state.Difficulty
	if _, err := e.config.Settings(d); err != nil {
		d = e.defaultDifficulty()
	}

	epoch := e.state.Epoch + 1
	state, err := InitGameStateFromConfig(e.config, e.generator, d)
	if err != nil {
		// config was validated on construction
		panic(fmt.Sprintf("reset with validated config failed: %v", err))
	}
	state.Epoch = epoch
	if e.config.Messages.Reset != "" {
		state.Message = e.config.Messages.Reset
	}
	e.state = state
	return e.state.result()
}

// GetConfig returns the current rule set
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// GetMoveHistory returns the history of the current run
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.state.MoveHistory
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.state.MoveHistory) == 0 {
		return nil
	}
	return &e.state.MoveHistory[len(e.state.MoveHistory)-1]
}

// defaultDifficulty is the rule set's default, falling back to easy
func (e *GameEngine) defaultDifficulty() Difficulty {
	if e.config.DefaultDifficulty != "" {
		return e.config.DefaultDifficulty
	}
	return Easy
}
