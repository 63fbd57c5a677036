package engine

import (
	"fmt"
	"strings"
)

// Catalog is the fixed, ordered list of blocks available in a game session.
type Catalog struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Blocks      []BlockSpec `json:"blocks"`
}

// Area returns the total number of cells covered by all blocks.
func (c *Catalog) Area() int {
	area := 0
	for _, b := range c.Blocks {
		area += b.Width * b.Height
	}
	return area
}

// ValidateCatalog validates a catalog for correctness and playability
func ValidateCatalog(catalog *Catalog) error {
	if catalog == nil {
		return fmt.Errorf("catalog validation: catalog is nil")
	}
	if strings.TrimSpace(catalog.Name) == "" {
		return fmt.Errorf("catalog validation: name is required")
	}
	if len(catalog.Blocks) == 0 {
		return fmt.Errorf("catalog validation: at least one block is required")
	}
	if len(catalog.Blocks) > MaxCatalogLen {
		return fmt.Errorf("catalog validation: at most %d blocks allowed, got %d", MaxCatalogLen, len(catalog.Blocks))
	}

	seen := make(map[int]bool, len(catalog.Blocks))
	for i, b := range catalog.Blocks {
		if b.ID < 0 {
			return fmt.Errorf("catalog validation: block %d has negative id %d", i, b.ID)
		}
		if seen[b.ID] {
			return fmt.Errorf("catalog validation: duplicate block id %d", b.ID)
		}
		seen[b.ID] = true

		if b.Width < MinBlockSide || b.Width > MaxBlockSide {
			return fmt.Errorf("catalog validation: block %d width must be between %d and %d, got %d", b.ID, MinBlockSide, MaxBlockSide, b.Width)
		}
		if b.Height < MinBlockSide || b.Height > MaxBlockSide {
			return fmt.Errorf("catalog validation: block %d height must be between %d and %d, got %d", b.ID, MinBlockSide, MaxBlockSide, b.Height)
		}
		if strings.TrimSpace(b.Color) == "" {
			return fmt.Errorf("catalog validation: block %d color is required", b.ID)
		}
	}

	if area := catalog.Area(); area > MaxBoardArea {
		return fmt.Errorf("catalog validation: blocks cover %d cells but the board has only %d", area, MaxBoardArea)
	}

	return nil
}

// DefaultCatalog returns the White Edition block set. The eleven blocks
// cover the 8×8 board exactly.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Name:        "White Edition",
		Description: "Eleven blocks that tile the 8x8 board exactly",
		Blocks: []BlockSpec{
			{ID: 0, Width: 1, Height: 1, Color: "#000000"},
			{ID: 1, Width: 1, Height: 2, Color: "#000000"},
			{ID: 2, Width: 1, Height: 3, Color: "#000000"},
			{ID: 3, Width: 3, Height: 3, Color: "#ffffff"},
			{ID: 4, Width: 2, Height: 2, Color: "#ffffff"},
			{ID: 5, Width: 4, Height: 3, Color: "#FFFF00"},
			{ID: 6, Width: 1, Height: 5, Color: "#0000FF"},
			{ID: 7, Width: 1, Height: 4, Color: "#0000FF"},
			{ID: 8, Width: 2, Height: 3, Color: "#FF0000"},
			{ID: 9, Width: 2, Height: 4, Color: "#FF0000"},
			{ID: 10, Width: 2, Height: 5, Color: "#FF0000"},
		},
	}
}
