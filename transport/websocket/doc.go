// Package websocket pushes Quest for Water session updates to browsers.
//
// A Hub keeps the clients of each session and implements service.Notifier.
// Every state transition, including the once-per-second clock tick, is sent
// as a "state_update" message with the full GameState, followed by one
// message per game event ("move", "dirty", "victory", ...).
//
// Clients subscribe with /ws?session=<id> and only receive messages for that
// session. They never send commands over the socket; actions go through the
// REST API or MCP.
//
// Broadcasting never blocks the caller: messages are queued on a buffered
// channel and dropped when the queue is full, and a client whose own buffer
// is full is disconnected.
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//	svc := service.NewGameService(sessions, configs, service.WithNotifier(hub))
package websocket
