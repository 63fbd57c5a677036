// Package mcp exposes Mondrian Blocks to AI agents over the Model Context
// Protocol.
//
// The client holds no game state. Every tool call is translated into a REST
// request against a running server through apiclient, and the answer is
// rendered as text with the board drawn as eight rows:
//
//	  01234567
//	0 5555....
//	1 5555....
//	2 5555....
//
// Tools: create_session, list_sessions, get_session, board_state,
// place_block, remove_block, rotate_block, reset_board, solve,
// replay_status, cancel_replay, list_catalogs and game_instructions.
//
// A refused edit is a normal result naming the rule that refused it. Only
// transport failures, unknown sessions and busy boards are tool errors.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
