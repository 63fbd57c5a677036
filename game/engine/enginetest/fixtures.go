// Package enginetest holds shared fixtures for tests that drive the engine.
package enginetest

import "github.com/wricardo/mondrian-blocks/game/engine"

// WhiteSolution returns a complete tiling of the White Edition catalog in the
// order a solver would emit it.
func WhiteSolution() engine.Solution {
	colors := map[int]string{}
	for _, b := range engine.DefaultCatalog().Blocks {
		colors[b.ID] = b.Color
	}
	entry := func(id, w, h, x, y int) engine.Placement {
		return engine.Placement{ID: id, Width: w, Height: h, Color: colors[id], X: x, Y: y}
	}
	return engine.Solution{
		entry(0, 1, 1, 0, 0),
		entry(1, 1, 2, 1, 0),
		entry(2, 3, 1, 2, 0),
		entry(3, 3, 3, 5, 0),
		entry(6, 1, 5, 0, 1),
		entry(8, 3, 2, 2, 1),
		entry(7, 1, 4, 1, 2),
		entry(5, 4, 3, 2, 3),
		entry(10, 2, 5, 6, 3),
		entry(4, 2, 2, 0, 6),
		entry(9, 4, 2, 2, 6),
	}
}

// WhiteSolutionRows is the rendered board after applying WhiteSolution.
var WhiteSolutionRows = []string{
	"01222333",
	"61888333",
	"67888333",
	"675555aa",
	"675555aa",
	"675555aa",
	"449999aa",
	"449999aa",
}

// NewWhiteState returns an empty board with the White Edition catalog.
func NewWhiteState() engine.State {
	return engine.NewState(engine.DefaultCatalog())
}
