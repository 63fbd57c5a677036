package engine

const (
	// GridSize is the width and height of the board in cells.
	GridSize = 8

	// Validation constants
	MinBlockSide  = 1
	MaxBlockSide  = GridSize
	MaxBoardArea  = GridSize * GridSize
	MaxCatalogLen = MaxBoardArea
)

// BlockSpec is the immutable definition of a block as listed in a catalog
// and sent to the solver.
type BlockSpec struct {
	ID     int    `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Color  string `json:"color"`
}

// Block is a catalog block together with its mutable placement status.
// Width and Height change in place on rotation.
type Block struct {
	ID     int    `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Color  string `json:"color"`
	Placed bool   `json:"placed"`
}

// Spec returns the block's current dimensions as a BlockSpec.
func (b Block) Spec() BlockSpec {
	return BlockSpec{ID: b.ID, Width: b.Width, Height: b.Height, Color: b.Color}
}

// PlacedBlock is a snapshot of a placed block anchored at its top-left cell.
type PlacedBlock struct {
	Block
	X int `json:"x"`
	Y int `json:"y"`
}

// Placement returns the wire form of the placed block.
func (p PlacedBlock) Placement() Placement {
	return Placement{ID: p.ID, Width: p.Width, Height: p.Height, Color: p.Color, X: p.X, Y: p.Y}
}

// Placement is a placed-block record as exchanged with the solver.
type Placement struct {
	ID     int    `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Color  string `json:"color"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// Solution is an ordered sequence of placements computed by the solver.
// It is never mutated once received.
type Solution []Placement

// SolveRequest is the puzzle definition sent to the solver.
type SolveRequest struct {
	Blocks    []BlockSpec `json:"blocks"`
	PrePlaced []Placement `json:"pre_placed_blocks"`
}

// Rejection names why a placement operation was not applied.
// The empty Rejection means the operation is allowed.
type Rejection string

const (
	Accepted            Rejection = ""
	RejectUnknownBlock  Rejection = "unknown_block"
	RejectAlreadyPlaced Rejection = "already_placed"
	RejectNotPlaced     Rejection = "not_placed"
	RejectOutOfBounds   Rejection = "out_of_bounds"
	RejectOccupied      Rejection = "occupied"
)
