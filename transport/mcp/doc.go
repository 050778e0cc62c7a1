// Package mcp exposes Quest for Water to AI agents over the Model Context Protocol.
//
// Client is a thin proxy: every tool call becomes a request against the REST
// API, so an MCP agent and a browser watching /ws observe the same sessions.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - start_game, game_state, move, bulk_move, tick, reset_game
//   - move_history, describe_cell
//   - list_configs, latest_result, game_instructions
//
// Transports:
//
//	// Stdio, for local MCP clients
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP, one JSON-RPC message per POST
//	router.Handle("/mcp", client.HTTPHandler())
//
// The move and bulk_move tools accept an optional intent string. It is not
// sent to the server; asking for it nudges agents to state their plan.
package mcp
