package engine

import "strconv"

// Unplaced returns the blocks still in the palette, in catalog order.
func (s State) Unplaced() []Block {
	out := []Block{}
	for _, b := range s.Blocks.Blocks() {
		if !b.Placed {
			out = append(out, b)
		}
	}
	return out
}

// Complete reports whether every cell of the board is occupied.
func (s State) Complete() bool {
	return s.Grid.Filled() == MaxBoardArea
}

// SolveRequest builds the puzzle definition for the solver: every block with
// its current dimensions plus the blocks already on the board.
func (s State) SolveRequest() *SolveRequest {
	req := &SolveRequest{
		Blocks:    make([]BlockSpec, 0, s.Blocks.Len()),
		PrePlaced: make([]Placement, 0, len(s.Placed)),
	}
	for _, b := range s.Blocks.Blocks() {
		req.Blocks = append(req.Blocks, b.Spec())
	}
	for _, pb := range s.Placed {
		req.PrePlaced = append(req.PrePlaced, pb.Placement())
	}
	return req
}

// Render draws the board as GridSize text rows. Empty cells are '.', occupied
// cells show the block id as a base-36 digit.
func (s State) Render() []string {
	rows := make([]string, GridSize)
	for y := 0; y < GridSize; y++ {
		row := make([]byte, GridSize)
		for x := 0; x < GridSize; x++ {
			row[x] = CellSymbol(s.Grid, x, y)
		}
		rows[y] = string(row)
	}
	return rows
}

// CellSymbol returns the character Render uses for (x, y).
func CellSymbol(g Grid, x, y int) byte {
	id, ok := g.At(x, y)
	if !ok {
		return '.'
	}
	if id >= 36 {
		return '#'
	}
	return strconv.FormatInt(int64(id), 36)[0]
}

// Edges describes which sides of an occupied cell border a different block
// or the edge of the board. Renderers draw an outline on those sides.
type Edges struct {
	Top    bool `json:"top"`
	Right  bool `json:"right"`
	Bottom bool `json:"bottom"`
	Left   bool `json:"left"`
}

// Edges returns the outline sides for (x, y). Empty cells have no outline.
func (s State) Edges(x, y int) Edges {
	id, ok := s.Grid.At(x, y)
	if !ok {
		return Edges{}
	}
	differs := func(nx, ny int) bool {
		other, taken := s.Grid.At(nx, ny)
		return !taken || other != id
	}
	return Edges{
		Top:    differs(x, y-1),
		Right:  differs(x+1, y),
		Bottom: differs(x, y+1),
		Left:   differs(x-1, y),
	}
}

// PlacedBlocks returns a copy of the placement records in placement order.
func (s State) PlacedBlocks() []PlacedBlock {
	out := make([]PlacedBlock, len(s.Placed))
	copy(out, s.Placed)
	return out
}
