package engine

// State is the complete board of one game session: occupancy grid, block
// registry and the records of placed blocks. State is a value; every
// operation returns a new State and leaves the receiver untouched.
type State struct {
	Grid   Grid          `json:"grid"`
	Blocks Registry      `json:"blocks"`
	Placed []PlacedBlock `json:"placed_blocks"`
}

// NewState creates an empty board holding every block of the catalog,
// all unplaced.
func NewState(catalog *Catalog) State {
	var blocks []Block
	if catalog != nil {
		blocks = make([]Block, 0, len(catalog.Blocks))
		for _, spec := range catalog.Blocks {
			blocks = append(blocks, Block{
				ID:     spec.ID,
				Width:  spec.Width,
				Height: spec.Height,
				Color:  spec.Color,
			})
		}
	}
	return State{
		Blocks: NewRegistry(blocks),
		Placed: []PlacedBlock{},
	}
}

// PlacedBlock returns the placement record for id, if the block is placed.
func (s State) PlacedBlock(id int) (PlacedBlock, bool) {
	for _, pb := range s.Placed {
		if pb.ID == id {
			return pb, true
		}
	}
	return PlacedBlock{}, false
}

// CheckPlace reports whether block id may be placed with its top-left cell
// at (x, y).
func (s State) CheckPlace(id, x, y int) Rejection {
	b, ok := s.Blocks.Lookup(id)
	if !ok {
		return RejectUnknownBlock
	}
	if b.Placed {
		return RejectAlreadyPlaced
	}
	if !FitsOnBoard(x, y, b.Width, b.Height) {
		return RejectOutOfBounds
	}
	for _, p := range Footprint(x, y, b.Width, b.Height) {
		if _, taken := s.Grid.At(p.X, p.Y); taken {
			return RejectOccupied
		}
	}
	return Accepted
}

// Place puts block id on the board at (x, y). If the block is unknown,
// already placed, would leave the board or would overlap another block, the
// receiver is returned unchanged with false.
func (s State) Place(id, x, y int) (State, bool) {
	if s.CheckPlace(id, x, y) != Accepted {
		return s, false
	}
	b, _ := s.Blocks.Lookup(id)

	next := s
	next.Grid = s.Grid.With(occupyAll(Footprint(x, y, b.Width, b.Height), id)...)
	next.Blocks = s.Blocks.Update(id, func(b *Block) { b.Placed = true })

	b.Placed = true
	next.Placed = appendPlaced(s.Placed, PlacedBlock{Block: b, X: x, Y: y})
	return next, true
}

// CheckRemove reports whether block id is currently on the board.
func (s State) CheckRemove(id int) Rejection {
	if _, ok := s.Blocks.Lookup(id); !ok {
		return RejectUnknownBlock
	}
	if _, ok := s.PlacedBlock(id); !ok {
		return RejectNotPlaced
	}
	return Accepted
}

// Remove takes block id off the board, freeing its cells. Removing a block
// that is not placed is a no-op.
func (s State) Remove(id int) (State, bool) {
	pb, ok := s.PlacedBlock(id)
	if !ok {
		return s, false
	}

	next := s
	next.Grid = s.Grid.With(vacateOwned(s.Grid, Footprint(pb.X, pb.Y, pb.Width, pb.Height), id)...)
	next.Blocks = s.Blocks.Update(id, func(b *Block) { b.Placed = false })
	next.Placed = withoutPlaced(s.Placed, id)
	return next, true
}

// CheckRotate reports whether block id may be rotated. Unplaced blocks can
// always rotate. A placed block keeps its anchor, so the swapped footprint
// must stay on the board and cover only empty cells or cells it already
// occupies.
func (s State) CheckRotate(id int) Rejection {
	b, ok := s.Blocks.Lookup(id)
	if !ok {
		return RejectUnknownBlock
	}
	if !b.Placed {
		return Accepted
	}
	pb, ok := s.PlacedBlock(id)
	if !ok {
		return RejectNotPlaced
	}

	w, h := b.Height, b.Width
	if !FitsOnBoard(pb.X, pb.Y, w, h) {
		return RejectOutOfBounds
	}
	for _, p := range Footprint(pb.X, pb.Y, w, h) {
		if other, taken := s.Grid.At(p.X, p.Y); taken && other != id {
			return RejectOccupied
		}
	}
	return Accepted
}

// Rotate swaps the width and height of block id. For a placed block the
// rotation is all-or-nothing: if the new footprint does not fit, the receiver
// is returned unchanged with false.
func (s State) Rotate(id int) (State, bool) {
	if s.CheckRotate(id) != Accepted {
		return s, false
	}
	b, _ := s.Blocks.Lookup(id)

	next := s
	next.Blocks = s.Blocks.Update(id, func(b *Block) { b.Width, b.Height = b.Height, b.Width })
	if !b.Placed {
		return next, true
	}

	pb, _ := s.PlacedBlock(id)
	old := Footprint(pb.X, pb.Y, pb.Width, pb.Height)
	rotated, _ := next.Blocks.Lookup(id)

	next.Grid = s.Grid.
		With(vacateOwned(s.Grid, old, id)...).
		With(occupyAll(Footprint(pb.X, pb.Y, rotated.Width, rotated.Height), id)...)
	next.Placed = replacePlaced(s.Placed, PlacedBlock{Block: rotated, X: pb.X, Y: pb.Y})
	return next, true
}

// Reset empties the board and marks every block unplaced. Current
// dimensions are kept, so rotations survive a reset.
func (s State) Reset() State {
	return State{
		Blocks: s.mapBlocks(func(b *Block) { b.Placed = false }),
		Placed: []PlacedBlock{},
	}
}

// Apply writes a trusted placement without bounds or overlap checks, as used
// when replaying a solution. The block adopts the placement's dimensions.
// Cells off the board are skipped. Unknown ids are a no-op.
func (s State) Apply(p Placement) (State, bool) {
	if _, ok := s.Blocks.Lookup(p.ID); !ok {
		return s, false
	}

	next := s
	grid := s.Grid
	if prev, ok := s.PlacedBlock(p.ID); ok {
		grid = grid.With(vacateOwned(grid, Footprint(prev.X, prev.Y, prev.Width, prev.Height), p.ID)...)
	}
	next.Grid = grid.With(occupyAll(Footprint(p.X, p.Y, p.Width, p.Height), p.ID)...)
	next.Blocks = s.Blocks.Update(p.ID, func(b *Block) {
		b.Width, b.Height = p.Width, p.Height
		b.Placed = true
	})

	b, _ := next.Blocks.Lookup(p.ID)
	record := PlacedBlock{Block: b, X: p.X, Y: p.Y}
	if _, ok := s.PlacedBlock(p.ID); ok {
		next.Placed = replacePlaced(s.Placed, record)
	} else {
		next.Placed = appendPlaced(s.Placed, record)
	}
	return next, true
}

func (s State) mapBlocks(mutate func(b *Block)) Registry {
	blocks := s.Blocks.Blocks()
	for i := range blocks {
		mutate(&blocks[i])
	}
	return NewRegistry(blocks)
}

func occupyAll(points []Point, id int) []Assignment {
	out := make([]Assignment, 0, len(points))
	for _, p := range points {
		out = append(out, Occupy(p, id))
	}
	return out
}

// vacateOwned clears only those points that currently hold id.
func vacateOwned(g Grid, points []Point, id int) []Assignment {
	out := make([]Assignment, 0, len(points))
	for _, p := range points {
		if got, ok := g.At(p.X, p.Y); ok && got == id {
			out = append(out, Vacate(p))
		}
	}
	return out
}

func appendPlaced(placed []PlacedBlock, pb PlacedBlock) []PlacedBlock {
	out := make([]PlacedBlock, 0, len(placed)+1)
	out = append(out, placed...)
	return append(out, pb)
}

func withoutPlaced(placed []PlacedBlock, id int) []PlacedBlock {
	out := make([]PlacedBlock, 0, len(placed))
	for _, pb := range placed {
		if pb.ID != id {
			out = append(out, pb)
		}
	}
	return out
}

func replacePlaced(placed []PlacedBlock, pb PlacedBlock) []PlacedBlock {
	out := make([]PlacedBlock, len(placed))
	for i, cur := range placed {
		if cur.ID == pb.ID {
			out[i] = pb
		} else {
			out[i] = cur
		}
	}
	return out
}
