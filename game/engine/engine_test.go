package engine_test

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mondrian-blocks/game/engine"
	"github.com/wricardo/mondrian-blocks/game/engine/enginetest"
)

// requireConsistent checks that the grid is exactly the disjoint union of
// the placed blocks' footprints and that the registry agrees with the records.
func requireConsistent(t *testing.T, s engine.State) {
	t.Helper()

	want := map[engine.Point]int{}
	for _, pb := range s.Placed {
		b, ok := s.Blocks.Lookup(pb.ID)
		require.True(t, ok, "placed block %d missing from registry", pb.ID)
		require.True(t, b.Placed, "block %d has a record but is not marked placed", pb.ID)
		require.Equal(t, b.Width, pb.Width, "block %d width differs from its record", pb.ID)
		require.Equal(t, b.Height, pb.Height, "block %d height differs from its record", pb.ID)

		for _, p := range engine.Footprint(pb.X, pb.Y, pb.Width, pb.Height) {
			require.True(t, engine.InBounds(p.X, p.Y), "block %d covers off-board cell %v", pb.ID, p)
			prev, dup := want[p]
			require.False(t, dup, "cell %v covered by both %d and %d", p, prev, pb.ID)
			want[p] = pb.ID
		}
	}

	got := map[engine.Point]int{}
	for y := 0; y < engine.GridSize; y++ {
		for x := 0; x < engine.GridSize; x++ {
			if id, ok := s.Grid.At(x, y); ok {
				got[engine.Point{X: x, Y: y}] = id
			}
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("grid does not match placed footprints (-want +got):\n%s", diff)
	}

	for _, b := range s.Blocks.Blocks() {
		_, hasRecord := s.PlacedBlock(b.ID)
		require.Equal(t, b.Placed, hasRecord, "block %d placed flag disagrees with records", b.ID)
	}
}

func TestNewState(t *testing.T) {
	s := enginetest.NewWhiteState()

	assert.Equal(t, 11, s.Blocks.Len())
	assert.Empty(t, s.Placed)
	assert.Equal(t, 0, s.Grid.Filled())
	assert.Len(t, s.Unplaced(), 11)
	requireConsistent(t, s)
}

func TestPlace(t *testing.T) {
	s := enginetest.NewWhiteState()

	next, ok := s.Place(5, 0, 0)
	require.True(t, ok)

	for _, p := range engine.Footprint(0, 0, 4, 3) {
		id, taken := next.Grid.At(p.X, p.Y)
		require.True(t, taken)
		assert.Equal(t, 5, id)
	}
	assert.Equal(t, 12, next.Grid.Filled())

	pb, ok := next.PlacedBlock(5)
	require.True(t, ok)
	assert.Equal(t, 0, pb.X)
	assert.Equal(t, 0, pb.Y)
	assert.True(t, pb.Placed)

	b, _ := next.Blocks.Lookup(5)
	assert.True(t, b.Placed)

	// The receiver is untouched.
	assert.Equal(t, 0, s.Grid.Filled())
	assert.Empty(t, s.Placed)
	requireConsistent(t, next)
}

func TestPlace_Rejections(t *testing.T) {
	base, ok := enginetest.NewWhiteState().Place(5, 0, 0)
	require.True(t, ok)

	tests := []struct {
		name   string
		id     int
		x, y   int
		reason engine.Rejection
	}{
		{"unknown block", 42, 0, 0, engine.RejectUnknownBlock},
		{"already placed", 5, 4, 4, engine.RejectAlreadyPlaced},
		{"overflows right edge", 10, 7, 0, engine.RejectOutOfBounds},
		{"overflows bottom edge", 6, 0, 4, engine.RejectOutOfBounds},
		{"negative x", 0, -1, 0, engine.RejectOutOfBounds},
		{"negative y", 0, 0, -1, engine.RejectOutOfBounds},
		{"overlaps existing block", 6, 3, 0, engine.RejectOccupied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.reason, base.CheckPlace(tt.id, tt.x, tt.y))

			next, ok := base.Place(tt.id, tt.x, tt.y)
			assert.False(t, ok)
			assert.Equal(t, base, next)
		})
	}
}

func TestPlace_AlreadyPlacedIsNoOp(t *testing.T) {
	s, ok := enginetest.NewWhiteState().Place(0, 0, 0)
	require.True(t, ok)

	for _, pos := range []engine.Point{{X: 0, Y: 0}, {X: 5, Y: 5}} {
		next, ok := s.Place(0, pos.X, pos.Y)
		assert.False(t, ok)
		assert.Equal(t, s, next)
	}
}

func TestPlaceRemoveScenario(t *testing.T) {
	s := enginetest.NewWhiteState()

	s, ok := s.Place(5, 0, 0)
	require.True(t, ok, "4x3 block at (0,0)")

	_, ok = s.Place(6, 3, 0)
	assert.False(t, ok, "1x5 block at (3,0) overlaps column 3")

	s, ok = s.Place(6, 4, 0)
	require.True(t, ok, "1x5 block at (4,0)")

	s, ok = s.Remove(5)
	require.True(t, ok)

	for _, p := range engine.Footprint(0, 0, 4, 3) {
		_, taken := s.Grid.At(p.X, p.Y)
		assert.False(t, taken, "cell %v should be empty", p)
	}
	for y := 0; y < 5; y++ {
		id, taken := s.Grid.At(4, y)
		require.True(t, taken)
		assert.Equal(t, 6, id)
	}
	requireConsistent(t, s)
}

func TestRemove(t *testing.T) {
	s := enginetest.NewWhiteState()

	t.Run("not placed is a no-op", func(t *testing.T) {
		next, ok := s.Remove(3)
		assert.False(t, ok)
		assert.Equal(t, s, next)
		assert.Equal(t, engine.RejectNotPlaced, s.CheckRemove(3))
	})

	t.Run("unknown block is a no-op", func(t *testing.T) {
		next, ok := s.Remove(99)
		assert.False(t, ok)
		assert.Equal(t, s, next)
		assert.Equal(t, engine.RejectUnknownBlock, s.CheckRemove(99))
	})

	t.Run("remove then place restores the grid", func(t *testing.T) {
		placed, ok := s.Place(9, 2, 3)
		require.True(t, ok)
		placed, ok = placed.Place(0, 7, 7)
		require.True(t, ok)

		removed, ok := placed.Remove(9)
		require.True(t, ok)
		b, _ := removed.Blocks.Lookup(9)
		assert.False(t, b.Placed)

		restored, ok := removed.Place(9, 2, 3)
		require.True(t, ok)
		assert.Equal(t, placed.Grid, restored.Grid)
		requireConsistent(t, restored)
	})
}

func TestRotate_Unplaced(t *testing.T) {
	s := enginetest.NewWhiteState()

	for _, b := range s.Blocks.Blocks() {
		next, ok := s.Rotate(b.ID)
		require.True(t, ok, "block %d", b.ID)

		rotated, _ := next.Blocks.Lookup(b.ID)
		assert.Equal(t, b.Height, rotated.Width)
		assert.Equal(t, b.Width, rotated.Height)
		assert.Equal(t, b.Color, rotated.Color)
		assert.Equal(t, s.Grid, next.Grid)
	}
}

func TestRotate_Placed(t *testing.T) {
	s, ok := enginetest.NewWhiteState().Place(8, 0, 0) // 2x3
	require.True(t, ok)

	next, ok := s.Rotate(8)
	require.True(t, ok)

	pb, ok := next.PlacedBlock(8)
	require.True(t, ok)
	assert.Equal(t, 3, pb.Width)
	assert.Equal(t, 2, pb.Height)
	assert.Equal(t, 0, pb.X)
	assert.Equal(t, 0, pb.Y)

	assert.Equal(t, []string{
		"888.....",
		"888.....",
		"........",
		"........",
		"........",
		"........",
		"........",
		"........",
	}, next.Render())
	requireConsistent(t, next)

	// Original record is replaced, not mutated.
	old, _ := s.PlacedBlock(8)
	assert.Equal(t, 2, old.Width)
}

func TestRotate_PlacedOverflowIsRejected(t *testing.T) {
	s, ok := enginetest.NewWhiteState().Place(6, 7, 0) // 1x5 in the last column
	require.True(t, ok)

	assert.Equal(t, engine.RejectOutOfBounds, s.CheckRotate(6))

	next, ok := s.Rotate(6)
	assert.False(t, ok)
	assert.Equal(t, s, next)

	b, _ := next.Blocks.Lookup(6)
	assert.Equal(t, 1, b.Width)
	assert.Equal(t, 5, b.Height)
}

func TestRotate_PlacedBlockedByNeighbour(t *testing.T) {
	s := enginetest.NewWhiteState()
	s, ok := s.Place(7, 0, 0) // 1x4
	require.True(t, ok)
	s, ok = s.Place(0, 2, 0) // 1x1 in the way of the rotated 4x1
	require.True(t, ok)

	assert.Equal(t, engine.RejectOccupied, s.CheckRotate(7))
	next, ok := s.Rotate(7)
	assert.False(t, ok)
	assert.Equal(t, s, next)
}

func TestRotate_SquareBlockKeepsCells(t *testing.T) {
	s, ok := enginetest.NewWhiteState().Place(3, 2, 2) // 3x3
	require.True(t, ok)

	next, ok := s.Rotate(3)
	require.True(t, ok)
	assert.Equal(t, s.Grid, next.Grid)
}

func TestRotate_UnknownBlock(t *testing.T) {
	s := enginetest.NewWhiteState()
	next, ok := s.Rotate(77)
	assert.False(t, ok)
	assert.Equal(t, s, next)
}

func TestReset(t *testing.T) {
	s := enginetest.NewWhiteState()
	s, _ = s.Rotate(10)
	s, _ = s.Place(10, 0, 0)
	s, _ = s.Place(0, 7, 7)
	require.Len(t, s.Placed, 2)

	reset := s.Reset()

	assert.Equal(t, 0, reset.Grid.Filled())
	assert.Empty(t, reset.Placed)
	for _, b := range reset.Blocks.Blocks() {
		assert.False(t, b.Placed, "block %d", b.ID)
	}

	// Rotation survives the reset.
	b, _ := reset.Blocks.Lookup(10)
	assert.Equal(t, 5, b.Width)
	assert.Equal(t, 2, b.Height)

	// Reset of an empty board is still an empty board.
	assert.Equal(t, reset, reset.Reset())
}

func TestApply_Solution(t *testing.T) {
	s := enginetest.NewWhiteState()

	for _, entry := range enginetest.WhiteSolution() {
		var ok bool
		s, ok = s.Apply(entry)
		require.True(t, ok, "entry %+v", entry)
		requireConsistent(t, s)
	}

	assert.True(t, s.Complete())
	assert.Empty(t, s.Unplaced())
	assert.Equal(t, enginetest.WhiteSolutionRows, s.Render())

	// The solver rotated block 2; the registry follows.
	b, _ := s.Blocks.Lookup(2)
	assert.Equal(t, 3, b.Width)
	assert.Equal(t, 1, b.Height)
}

func TestApply_UnknownBlockIsNoOp(t *testing.T) {
	s := enginetest.NewWhiteState()
	next, ok := s.Apply(engine.Placement{ID: 50, Width: 1, Height: 1, X: 0, Y: 0})
	assert.False(t, ok)
	assert.Equal(t, s, next)
}

func TestApply_SkipsOffBoardCells(t *testing.T) {
	s := enginetest.NewWhiteState()
	next, ok := s.Apply(engine.Placement{ID: 10, Width: 2, Height: 5, X: 7, Y: 6})
	require.True(t, ok)

	assert.ElementsMatch(t, []engine.Point{{X: 7, Y: 6}, {X: 7, Y: 7}}, next.Grid.Cells(10))
}

func TestApply_ReplacesExistingPlacement(t *testing.T) {
	s, ok := enginetest.NewWhiteState().Place(4, 0, 0)
	require.True(t, ok)

	next, ok := s.Apply(engine.Placement{ID: 4, Width: 2, Height: 2, X: 6, Y: 6})
	require.True(t, ok)

	assert.Len(t, next.Placed, 1)
	assert.ElementsMatch(t, engine.Footprint(6, 6, 2, 2), next.Grid.Cells(4))
	requireConsistent(t, next)
}

// TestRandomOperations drives long random sequences of user operations and
// checks the occupancy invariants after every step.
func TestRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := enginetest.NewWhiteState()

	for i := 0; i < 2000; i++ {
		id := rng.Intn(12) // includes one unknown id
		switch rng.Intn(4) {
		case 0, 1:
			s, _ = s.Place(id, rng.Intn(10)-1, rng.Intn(10)-1)
		case 2:
			s, _ = s.Remove(id)
		case 3:
			before := s
			var ok bool
			s, ok = s.Rotate(id)
			if !ok {
				require.Equal(t, before, s)
			}
		}
		requireConsistent(t, s)

		if rng.Intn(200) == 0 {
			s = s.Reset()
			require.Equal(t, 0, s.Grid.Filled())
		}
	}
}
