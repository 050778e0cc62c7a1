// Package service orchestrates Quest for Water sessions.
//
// GameService sits between the transports (HTTP, WebSocket, MCP) and the
// engine. It owns one countdown timer per running session and serializes
// every state transition, whether it comes from a client or the clock, behind
// a single lock. Timer callbacks carry the engine epoch they were started
// for and are dropped once the session has been restarted or reset.
//
// Sessions created with ManualClock get no wall clock timer; Tick advances
// them one second at a time, which is how tests and scripted agents drive a
// deterministic game.
//
// Finished runs are written to a scoreboard.Store and pushed to a Notifier.
//
//	svc := service.NewGameService(sessions, configs,
//		service.WithNotifier(hub),
//		service.WithScoreboard(results),
//	)
//	info, _ := svc.CreateSession(ctx, "classic", service.SessionOptions{})
//	svc.Start(ctx, info.ID, "normal")
//	svc.Move(ctx, info.ID, "right")
package service
