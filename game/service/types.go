package service

import (
	"time"

	"github.com/wricardo/mondrian-blocks/game/engine"
	"github.com/wricardo/mondrian-blocks/game/replay"
)

// Broadcast event names
const (
	EventReplayStep = "replay_step"
	EventReplayDone = "replay_done"
)

// Operation names reported in PlacementResult
const (
	OpPlace  = "place"
	OpRemove = "remove"
	OpRotate = "rotate"
)

// SessionInfo provides information about a session
type SessionInfo struct {
	ID             string     `json:"id"`
	CatalogID      string     `json:"catalog_id"`
	CatalogName    string     `json:"catalog_name"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAccessedAt time.Time  `json:"last_accessed_at"`
	Board          *BoardView `json:"board"`
}

// BoardView is everything a renderer needs to draw a session: the grid,
// the palette partition and whether the board accepts input.
type BoardView struct {
	Grid         engine.Grid          `json:"grid"`
	Blocks       []engine.Block       `json:"blocks"`
	PlacedBlocks []engine.PlacedBlock `json:"placed_blocks"`
	Unplaced     []engine.Block       `json:"unplaced"`
	Rows         []string             `json:"rows"`
	Filled       int                  `json:"filled"`
	Complete     bool                 `json:"complete"`
	Interactive  bool                 `json:"interactive"`
	Solving      bool                 `json:"solving"`
	Replay       replay.Progress      `json:"replay"`
}

// PlacementResult contains the outcome of an interactive operation.
// A rejected operation is not an error: Applied is false and Reason names
// the rule that refused it.
type PlacementResult struct {
	Applied   bool             `json:"applied"`
	Operation string           `json:"operation"`
	BlockID   int              `json:"block_id"`
	Reason    engine.Rejection `json:"reason,omitempty"`
	Message   string           `json:"message"`
	Board     *BoardView       `json:"board"`
}

// SolveResult describes an accepted solve whose replay has started
type SolveResult struct {
	RunID    string          `json:"run_id"`
	Steps    int             `json:"steps"`
	Solution engine.Solution `json:"solution"`
	Replay   replay.Progress `json:"replay"`
}

// ReplayStep is broadcast after every replay tick
type ReplayStep struct {
	RunID     string           `json:"run_id"`
	Step      int              `json:"step"`
	Total     int              `json:"total"`
	Placement engine.Placement `json:"placement"`
	Board     *BoardView       `json:"board"`
}

// ReplayDone is broadcast when a replay ends
type ReplayDone struct {
	Progress  replay.Progress `json:"progress"`
	Cancelled bool            `json:"cancelled"`
	Board     *BoardView      `json:"board"`
}

// CatalogInfo provides information about a block catalog
type CatalogInfo struct {
	Filename    string `json:"filename,omitempty"`
	CatalogID   string `json:"catalog_id"` // The identifier to use for session creation
	Name        string `json:"name"`       // Display name
	Description string `json:"description"`
	BlockCount  int    `json:"block_count"`
	TotalArea   int    `json:"total_area"`
	BuiltIn     bool   `json:"built_in,omitempty"`
}
