// Package engine provides the core game logic for Quest for Water.
//
// The engine package implements the game mechanics including:
//   - Board generation with safe zones around start and home
//   - Grid-based movement with edge clamping
//   - Water and countdown management driven by ticks
//   - Dirty-tile penalties and milestone tracking
//   - Rule set loading and validation
//
// Core Types:
//
// Generator builds boards from a difficulty row and a RandomSource.
// GameEngine implements the Engine interface and owns one GameState, moving
// through the states idle, running, won and lost. Every transition returns a
// Result describing the new state, any milestones that fired, and how the
// run ended.
//
// Usage:
//
//	gameEngine, err := engine.NewEngine(engine.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if _, err := gameEngine.Start("easy"); err != nil {
//		log.Fatal(err)
//	}
//	res, err := gameEngine.Move("right")
//	// once per second, from the host's timer:
//	res = gameEngine.Tick()
//
// Game Rules:
//
// The player carries water from (0,0) to the home cell in the opposite
// corner. Each tick costs one second and one unit of water. Stepping on a
// dirty tile costs a penalty, cleans the tile, and sends the player back to
// start. A dirty-tile penalty never ends the run by itself; the next tick
// does. Reaching home wins regardless of remaining water or time.
package engine
