// Package session provides session management for Mondrian Blocks.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the session store used by the game service. Each session owns
// one board state built from its catalog and one replay controller.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference, generated from
// cryptographic randomness. Lookups are case-insensitive.
//
// Concurrency:
//
// The manager guards its session map. The board state inside a session is
// guarded by the game service, which is the only writer.
//
// Usage:
//
//	manager := session.NewManager(session.WithReplayDelay(500 * time.Millisecond))
//
//	sess, err := manager.Create("", "white", engine.DefaultCatalog())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sess.ID)
//
// Cleanup:
//
// Deleting or expiring a session cancels its replay. Sessions are kept in
// memory only.
package session
