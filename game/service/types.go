package service

import (
	"time"

	"github.com/wricardo/quest-for-water/game/engine"
)

// Event types carried in GameEvent.Type
const (
	EventStart     = "start"
	EventMove      = "move"
	EventNoOp      = "noop"
	EventIgnored   = "ignored"
	EventDirty     = "dirty"
	EventMilestone = "milestone"
	EventTick      = "tick"
	EventVictory   = "victory"
	EventGameOver  = "game_over"
	EventReset     = "reset"
)

// SessionOptions tunes a new session
type SessionOptions struct {
	// ManualClock disables the wall-clock timer; time only passes on Tick
	ManualClock bool `json:"manual_clock"`
}

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	ManualClock    bool               `json:"manual_clock"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// ActionResult is returned by every single-step operation
type ActionResult struct {
	Success   bool              `json:"success"`
	GameState *engine.GameState `json:"game_state"`
	Result    *engine.Result    `json:"result"`
	Message   string            `json:"message"`
	Events    []GameEvent       `json:"events,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Results        []*engine.Result  `json:"results"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // not_running|invalid_direction|victory|game_over
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`  // 1-based

	StartPos   engine.Position `json:"start_pos"`
	EndPos     engine.Position `json:"end_pos"`
	StartWater int             `json:"start_water"`
	EndWater   int             `json:"end_water"`

	GameOver     bool     `json:"game_over"`
	Message      string   `json:"message,omitempty"`
	LocalView3x3 []string `json:"local_view_3x3,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Position  engine.Position `json:"position,omitempty"`
	Milestone int             `json:"milestone,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename      string `json:"filename"`
	ConfigID      string `json:"config_id"` // The identifier to use for session creation
	Name          string `json:"name"`      // Display name
	Description   string `json:"description"`
	GridSize      int    `json:"grid_size"`
	StartingWater int    `json:"starting_water"`
	DirtyPenalty  int    `json:"dirty_penalty"`
}
