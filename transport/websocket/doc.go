// Package websocket pushes board changes to renderers over WebSocket.
//
// The package uses a hub-and-spoke model where a central Hub manages all
// connections. Each client connection is handled by a read goroutine and a
// write goroutine; the hub loop owns the client registry.
//
// Message Protocol:
//
// Renderers only listen. Every outgoing frame is one JSON message:
//
//	{"session_id": "ab12", "event": "board_update", "data": {...board...}}
//
// Events are board_update after an interactive change, replay_step after
// each replay tick and replay_done when a replay ends.
//
// Session Integration:
//
// Clients choose a session with the query parameter ?session=ab12 when
// connecting. Messages are delivered only to clients of the same session.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
// BroadcastEvent never blocks the caller, so it is safe to call from the
// replay goroutine.
package websocket
