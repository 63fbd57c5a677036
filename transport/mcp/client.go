package mcp

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mondrian-blocks/game/engine"
	"github.com/wricardo/mondrian-blocks/game/replay"
	"github.com/wricardo/mondrian-blocks/game/service"
	"github.com/wricardo/mondrian-blocks/transport/apiclient"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	api       *apiclient.Client
	mcpServer *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		api: apiclient.New(baseURL),
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Mondrian Blocks",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Mondrian Blocks - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Cover every cell of the 8x8 board with the session's blocks. Blocks may not
overlap or leave the board. Coordinates are 0-based, (0,0) is the top-left cell,
and a block is placed by its top-left cell.

AVAILABLE TOOLS:
- create_session: Create a board from a catalog
- list_sessions / get_session: Inspect boards
- board_state: Current grid and block palette
- place_block / remove_block / rotate_block: Edit the board
- reset_board: Empty the board
- solve: Ask the solver to finish the board; the answer is replayed step by step
- replay_status / cancel_replay: Follow or stop the replay
- list_catalogs: Available block sets
- game_instructions: Rules and tips

The board refuses edits while a solve or replay is in progress.`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func blockProperty(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": desc,
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new board with optional catalog selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"catalog_id": map[string]interface{}{
					"type":        "string",
					"description": "Catalog to use (optional, defaults to white)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active boards",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Board operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "board_state",
		Description: "Get the current board: grid rows, placed and unplaced blocks",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleBoardState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place_block",
		Description: "Place an unplaced block with its top-left cell at (x, y)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"block_id":   blockProperty("Block to place"),
				"x":          blockProperty("Column of the top-left cell (0-7)"),
				"y":          blockProperty("Row of the top-left cell (0-7)"),
			},
			Required: []string{"session_id", "block_id", "x", "y"},
		},
	}, c.handlePlace)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "remove_block",
		Description: "Take a placed block off the board",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"block_id":   blockProperty("Block to remove"),
			},
			Required: []string{"session_id", "block_id"},
		},
	}, c.handleRemove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "rotate_block",
		Description: "Swap a block's width and height. A placed block keeps its top-left cell and only rotates if the new footprint fits.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"block_id":   blockProperty("Block to rotate"),
			},
			Required: []string{"session_id", "block_id"},
		},
	}, c.handleRotate)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_board",
		Description: "Remove every block from the board",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	// Solver
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "solve",
		Description: "Ask the solver to complete the board from its current state. The solution is replayed onto the board one block at a time.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleSolve)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "replay_status",
		Description: "Get the progress of the solution replay",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleReplayStatus)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "cancel_replay",
		Description: "Stop a running replay. Blocks already replayed stay on the board.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleCancelReplay)

	// Catalogs
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_catalogs",
		Description: "List available block catalogs",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListCatalogs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules of the puzzle and how to use the tools",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Argument helpers

func stringArg(request mcp.CallToolRequest, key string) (string, error) {
	v, ok := request.GetArguments()[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// intArg reads a whole number. JSON numbers arrive as float64.
func intArg(request mcp.CallToolRequest, key string) (int, error) {
	raw, ok := request.GetArguments()[key]
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%s must be a whole number", key)
		}
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	catalogID, _ := request.GetArguments()["catalog_id"].(string)

	session, err := c.api.CreateSession(ctx, catalogID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nCatalog: %s (%s)\n\n%s",
		session.ID, session.CatalogID, session.CatalogName, formatBoard(session.Board))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := c.api.ListSessions(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", list.Count)
	for _, s := range list.Sessions {
		filled := 0
		if s.Board != nil {
			filled = s.Board.Filled
		}
		fmt.Fprintf(&b, "- %s (Catalog: %s, Filled: %d/%d, Created: %s)\n",
			s.ID, s.CatalogID, filled, engine.MaxBoardArea, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := stringArg(request, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	session, err := c.api.GetSession(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(session)), nil
}

func (c *Client) handleBoardState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := stringArg(request, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	board, err := c.api.Board(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBoard(board)), nil
}

func (c *Client) handlePlace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := stringArg(request, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var blockID, x, y int
	for key, dst := range map[string]*int{"block_id": &blockID, "x": &x, "y": &y} {
		if *dst, err = intArg(request, key); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	result, err := c.api.Place(ctx, sessionID, blockID, x, y)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatPlacementResult(result)), nil
}

func (c *Client) handleRemove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.blockOp(ctx, request, c.api.Remove)
}

func (c *Client) handleRotate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.blockOp(ctx, request, c.api.Rotate)
}

func (c *Client) blockOp(
	ctx context.Context,
	request mcp.CallToolRequest,
	op func(ctx context.Context, id string, blockID int) (*service.PlacementResult, error),
) (*mcp.CallToolResult, error) {
	sessionID, err := stringArg(request, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	blockID, err := intArg(request, "block_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := op(ctx, sessionID, blockID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatPlacementResult(result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := stringArg(request, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	board, err := c.api.Reset(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Board reset\n\n" + formatBoard(board)), nil
}

func (c *Client) handleSolve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := stringArg(request, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := c.api.Solve(ctx, sessionID)
	switch {
	case apiclient.HasCode(err, apiclient.CodeNoSolution):
		return mcp.NewToolResultText("The solver found no way to complete this board. Remove or rotate some blocks and try again."), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Solution found: %d placements (run %s)\n", result.Steps, result.RunID)
	for i, p := range result.Solution {
		fmt.Fprintf(&b, "%2d. block %d %dx%d at (%d,%d)\n", i+1, p.ID, p.Width, p.Height, p.X, p.Y)
	}
	fmt.Fprintf(&b, "\nReplay: %s\n", formatProgress(result.Replay))
	b.WriteString("Use replay_status to follow progress; the board is locked until the replay ends.")
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleReplayStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := stringArg(request, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	progress, err := c.api.Replay(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Replay: " + formatProgress(*progress)), nil
}

func (c *Client) handleCancelReplay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := stringArg(request, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	progress, err := c.api.CancelReplay(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Replay cancelled at " + formatProgress(*progress)), nil
}

func (c *Client) handleListCatalogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	catalogs, err := c.api.ListCatalogs(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Available Catalogs (%d):\n\n", len(catalogs))
	for _, cat := range catalogs {
		fmt.Fprintf(&b, "- %s: %s (%d blocks, %d/%d cells)\n",
			cat.CatalogID, cat.Name, cat.BlockCount, cat.TotalArea, engine.MaxBoardArea)
		if cat.Description != "" {
			fmt.Fprintf(&b, "  %s\n", cat.Description)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `MONDRIAN BLOCKS

THE BOARD
- 8x8 cells. x is the column (0-7, left to right), y is the row (0-7, top to bottom).
- Empty cells are shown as '.', occupied cells show the block id in base 36
  (0-9, then a, b, ...).

BLOCKS
- Each session has a fixed catalog of rectangular blocks, 1 to 5 cells per side.
- The White Edition has eleven blocks that tile the board exactly.
- A block is placed by its top-left cell and covers width x height cells.

RULES
- place_block fails if the block is already placed, would leave the board, or
  overlaps another block. The board is unchanged when an edit is refused.
- rotate_block swaps width and height. A placed block keeps its top-left cell,
  so rotation is refused when the new footprint leaves the board or overlaps.
- remove_block returns a placed block to the palette.
- reset_board clears the board; rotations are kept.

SOLVER
- solve sends the current board to the solver. Blocks you placed stay where they
  are and the solver fills the rest.
- The solution is replayed one block at a time. Edits are refused until the
  replay finishes or cancel_replay stops it.
- If no solution exists the board is left as it was.

TIPS
- Place the largest blocks first; small blocks fill the gaps.
- Check board_state after a refused edit to see which cells are taken.`

// Formatters

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nCatalog: %s (%s)\nCreated: %s\n\n%s",
		session.ID, session.CatalogID, session.CatalogName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatBoard(session.Board))
}

func formatBoard(board *service.BoardView) string {
	if board == nil {
		return "No board available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Filled: %d/%d", board.Filled, engine.MaxBoardArea)
	if board.Complete {
		b.WriteString(" | COMPLETE")
	}
	if board.Solving {
		b.WriteString(" | solving")
	}
	if board.Replay.Status == replay.Running {
		fmt.Fprintf(&b, " | replay %s", formatProgress(board.Replay))
	}
	b.WriteString("\n\n")

	b.WriteString("  01234567\n")
	for y, row := range board.Rows {
		fmt.Fprintf(&b, "%d %s\n", y, row)
	}

	if len(board.PlacedBlocks) > 0 {
		b.WriteString("\nPlaced:\n")
		for _, pb := range board.PlacedBlocks {
			fmt.Fprintf(&b, "- block %d %dx%d at (%d,%d)\n", pb.ID, pb.Width, pb.Height, pb.X, pb.Y)
		}
	}
	if len(board.Unplaced) > 0 {
		b.WriteString("\nUnplaced:\n")
		for _, blk := range board.Unplaced {
			fmt.Fprintf(&b, "- block %d %dx%d %s\n", blk.ID, blk.Width, blk.Height, blk.Color)
		}
	}
	return b.String()
}

func formatPlacementResult(result *service.PlacementResult) string {
	status := "OK"
	if !result.Applied {
		status = fmt.Sprintf("REFUSED (%s)", result.Reason)
	}
	return fmt.Sprintf("%s block %d: %s\n%s\n\n%s",
		result.Operation, result.BlockID, status, result.Message, formatBoard(result.Board))
}

func formatProgress(p replay.Progress) string {
	if p.RunID == "" {
		return string(p.Status)
	}
	return fmt.Sprintf("%s %d/%d (run %s)", p.Status, p.Step, p.Total, p.RunID)
}
