// Package service provides the business logic layer for Mondrian Blocks.
//
// The service package implements:
//   - Multi-session board management
//   - Catalog listing, loading and saving
//   - Interactive placement, removal and rotation of blocks
//   - Solving through an external solver and replaying the result
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level operations.
// SessionManager stores sessions. CatalogManager loads block catalogs.
// Solver computes a placement sequence for the current board, and
// Broadcaster pushes replay progress to connected renderers.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and
// the engine. Each session owns one board state and one replay controller.
// Every board change goes through the service lock, so interactive
// operations and replay ticks never interleave within a session. While a
// solve request or a replay is in flight, interactive operations on that
// session fail with ErrBusy.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	catalogMgr, _ := catalog.NewManager("catalogs")
//	gameService := service.NewGameService(sessionMgr, catalogMgr, solverClient,
//		service.WithLogger(logger),
//		service.WithBroadcaster(hub),
//	)
//
//	info, err := gameService.CreateSession(ctx, "white")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Place(ctx, info.ID, 3, 0, 0)
//	if err == nil && !result.Applied {
//		fmt.Println("rejected:", result.Reason)
//	}
package service
