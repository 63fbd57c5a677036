// Package api provides the HTTP REST API for Mondrian Blocks.
//
// Endpoints:
//
// Sessions:
//   - POST   /api/sessions           create a board ({"catalog_id": "white"}, optional)
//   - GET    /api/sessions           list boards
//   - GET    /api/sessions/{id}      one board with its session metadata
//   - DELETE /api/sessions/{id}      delete a board, cancelling any replay
//
// Board:
//   - GET  /api/sessions/{id}/board   grid, palette and replay progress
//   - POST /api/sessions/{id}/place   {"block_id": 5, "x": 0, "y": 0}
//   - POST /api/sessions/{id}/remove  {"block_id": 5}
//   - POST /api/sessions/{id}/rotate  {"block_id": 5}
//   - POST /api/sessions/{id}/reset
//
// A rejected place, remove or rotate is not an HTTP error. The response is
// 200 with "applied": false and a "reason" naming the rule that refused it.
//
// Solver:
//   - POST   /api/sessions/{id}/solve   202, replay starts in the background
//   - GET    /api/sessions/{id}/replay  replay progress
//   - DELETE /api/sessions/{id}/replay  cancel the replay
//
// Catalogs:
//   - GET  /api/catalogs
//   - POST /api/catalogs         {"catalog_id": "mine", "catalog": {...}}
//   - GET  /api/catalogs/{name}
//
// Other:
//   - GET /ws?session={id}  WebSocket stream of board_update, replay_step
//     and replay_done events
//   - GET /healthz
//
// Errors are JSON with a stable code:
//
//	{
//	  "error": "session busy",
//	  "code": "busy"
//	}
//
// not_found maps to 404, busy to 409, no_solution to 422, solver_unavailable
// to 502 and bad_request to 400.
package api
