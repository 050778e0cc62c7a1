package engine

import (
	"fmt"
	"time"
)

// Destination returns where a move in direction d would land. Movement is
// clamped at the edges, so pushing against a wall returns the current cell.
func (gs *GameState) Destination(d Direction) Position {
	dx, dy := d.delta()
	next := Position{X: gs.PlayerPos.X + dx, Y: gs.PlayerPos.Y + dy}
	if !gs.Grid.InBounds(next) {
		return gs.PlayerPos
	}
	return next
}

// MovePlayer applies a single move. The caller guarantees the run is active.
func (gs *GameState) MovePlayer(d Direction, config *GameConfig) *Result {
	from := gs.PlayerPos
	dest := gs.Destination(d)
	if dest == from {
		gs.addMoveToHistory(d, from, from, gs.Grid.At(from), false)
		res := gs.result()
		res.NoOp = true
		return res
	}

	gs.Steps++
	fired := gs.checkMilestones(config)

	tile := gs.Grid.At(dest)
	info := &MoveInfo{Direction: d, From: from, To: dest, Final: dest, Tile: tile}

	switch tile {
	case Dirty:
		// Depletion here is left for the next tick to notice.
		gs.Water -= config.DirtyPenalty
		if gs.Water < 0 {
			gs.Water = 0
		}
		gs.Grid[dest.Y][dest.X] = Clean
		gs.PlayerPos = StartPosition()
		info.Final = gs.PlayerPos
		info.Penalty = config.DirtyPenalty
		info.ResetToStart = true
		gs.Message = config.Messages.DirtyTile

	case Home:
		gs.PlayerPos = dest
		gs.Status = Won
		gs.Outcome = OutcomeHomeReached
		gs.Message = config.Messages.HomeReached

	default:
		gs.PlayerPos = dest
		gs.Message = fmt.Sprintf("Water: %d | Time: %ds", gs.Water, gs.TimeLeft)
	}

	if len(fired) > 0 && tile == Clean && config.Messages.Milestone != "" {
		gs.Message = fmt.Sprintf(config.Messages.Milestone, fired[len(fired)-1])
	}

	gs.addMoveToHistory(d, from, dest, tile, true)

	res := gs.result()
	res.Milestones = fired
	res.Move = info
	res.Ended = gs.Status == Won
	return res
}

// Advance applies one second of elapsed time. The caller guarantees the run is active.
func (gs *GameState) Advance(config *GameConfig) *Result {
	gs.TimeLeft--
	gs.Water--
	if gs.TimeLeft < 0 {
		gs.TimeLeft = 0
	}
	if gs.Water < 0 {
		gs.Water = 0
	}

	ended := false
	if gs.TimeLeft <= 0 || gs.Water <= 0 {
		gs.Status = Lost
		gs.Outcome = OutcomeDepleted
		gs.Message = config.Messages.Depleted
		ended = true
	}

	res := gs.result()
	res.Ended = ended
	return res
}

// checkMilestones marks every unshown threshold equal to the step count
func (gs *GameState) checkMilestones(config *GameConfig) []int {
	var fired []int
	for _, m := range config.Milestones {
		if m == gs.Steps && !gs.MilestoneShown(m) {
			gs.MilestonesShown = append(gs.MilestonesShown, m)
			fired = append(fired, m)
		}
	}
	return fired
}

// MilestoneShown reports whether threshold m already fired this run
func (gs *GameState) MilestoneShown(m int) bool {
	for _, shown := range gs.MilestonesShown {
		if shown == m {
			return true
		}
	}
	return false
}

// result snapshots the scalar fields of the state
func (gs *GameState) result() *Result {
	return &Result{
		Status:   gs.Status,
		Position: gs.PlayerPos,
		Water:    gs.Water,
		TimeLeft: gs.TimeLeft,
		Steps:    gs.Steps,
		Outcome:  gs.Outcome,
		Message:  gs.Message,
	}
}

// addMoveToHistory adds a move to the current run's history
func (gs *GameState) addMoveToHistory(d Direction, from, to Position, tile Tile, accepted bool) {
	entry := MoveHistoryEntry{
		Direction:    d,
		FromPosition: from,
		ToPosition:   to,
		Tile:         tile,
		Water:        gs.Water,
		Steps:        gs.Steps,
		Accepted:     accepted,
		Timestamp:    time.Now().Unix(),
		MoveNumber:   len(gs.MoveHistory) + 1,
	}
	gs.MoveHistory = append(gs.MoveHistory, entry)
}

// Clone returns a deep copy safe to hand to other goroutines
func (gs *GameState) Clone() *GameState {
	if gs == nil {
		return nil
	}
	out := *gs
	out.Grid = gs.Grid.Clone()
	out.MilestonesShown = append([]int{}, gs.MilestonesShown...)
	out.MoveHistory = append([]MoveHistoryEntry{}, gs.MoveHistory...)
	return &out
}

// ElapsedSeconds is the budget consumed by ticks so far
func (gs *GameState) ElapsedSeconds(config *GameConfig) int {
	s, err := config.Settings(gs.Difficulty)
	if err != nil {
		return 0
	}
	return s.TimeBudget - gs.TimeLeft
}
