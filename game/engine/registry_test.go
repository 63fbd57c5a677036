package engine_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mondrian-blocks/game/engine"
)

func testBlocks() []engine.Block {
	return []engine.Block{
		{ID: 3, Width: 3, Height: 3, Color: "#fff"},
		{ID: 1, Width: 1, Height: 2, Color: "#000"},
		{ID: 7, Width: 1, Height: 4, Color: "#00f"},
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := engine.NewRegistry(testBlocks())

	b, ok := r.Lookup(7)
	require.True(t, ok)
	assert.Equal(t, 4, b.Height)

	_, ok = r.Lookup(2)
	assert.False(t, ok)
}

func TestRegistry_UpdateIsPure(t *testing.T) {
	r := engine.NewRegistry(testBlocks())

	next := r.Update(1, func(b *engine.Block) {
		b.Width, b.Height = b.Height, b.Width
		b.Placed = true
		b.Color = "#abc" // not a mutable field
		b.ID = 99        // not a mutable field
	})

	updated, ok := next.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, engine.Block{ID: 1, Width: 2, Height: 1, Color: "#000", Placed: true}, updated)

	orig, _ := r.Lookup(1)
	assert.Equal(t, engine.Block{ID: 1, Width: 1, Height: 2, Color: "#000"}, orig)

	// Other blocks and order are preserved.
	ids := []int{}
	for _, b := range next.Blocks() {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []int{3, 1, 7}, ids)
	assert.Equal(t, r.Blocks()[0], next.Blocks()[0])
	assert.Equal(t, r.Blocks()[2], next.Blocks()[2])
}

func TestRegistry_UpdateUnknown(t *testing.T) {
	r := engine.NewRegistry(testBlocks())
	called := false
	next := r.Update(42, func(*engine.Block) { called = true })
	assert.False(t, called)
	assert.Equal(t, r, next)
}

func TestRegistry_BlocksReturnsCopy(t *testing.T) {
	r := engine.NewRegistry(testBlocks())
	blocks := r.Blocks()
	blocks[0].Width = 8

	b, _ := r.Lookup(3)
	assert.Equal(t, 3, b.Width)
}

func TestRegistry_JSON(t *testing.T) {
	data, err := json.Marshal(engine.Registry{})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	r := engine.NewRegistry(testBlocks())
	data, err = json.Marshal(r)
	require.NoError(t, err)

	var decoded engine.Registry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r.Blocks(), decoded.Blocks())
}
