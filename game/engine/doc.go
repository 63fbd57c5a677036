// Package engine provides the board occupancy and block-placement rules for
// Mondrian Blocks.
//
// The engine package implements:
//   - The 8x8 occupancy grid (Grid)
//   - The ordered block registry with placement status (Registry)
//   - Place, Remove, Rotate and Reset on an immutable State value
//   - Unchecked application of trusted solver placements (Apply)
//   - Catalog definition and validation
//
// Core Types:
//
// State bundles the Grid, the Registry and the PlacedBlock records of one
// game session. Every operation is a method with a value receiver that
// returns the next State, so callers own their state explicitly and no
// partial update is ever observable.
//
// Usage:
//
//	state := engine.NewState(engine.DefaultCatalog())
//
//	state, ok := state.Place(5, 0, 0)
//	if !ok {
//		// rejected: out of bounds, overlapping, unknown or already placed
//	}
//
//	state, _ = state.Rotate(6)
//	state, _ = state.Remove(5)
//	state = state.Reset()
//
// Rules:
//
// A block may be placed only when its footprint [x, x+width) x [y, y+height)
// lies on the board and covers empty cells. Rotating a placed block keeps its
// top-left anchor and succeeds only if the swapped footprint fits, treating
// cells the block already covers as free. Rejections are ordinary outcomes,
// not errors; CheckPlace, CheckRotate and CheckRemove report the reason.
package engine
