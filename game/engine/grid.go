package engine

import (
	"encoding/json"
	"fmt"
)

// Point is a grid coordinate. The origin is the top-left cell.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Assignment writes a block id into one cell, or clears it when Clear is set.
type Assignment struct {
	Point
	ID    int
	Clear bool
}

// Occupy returns an assignment marking p with id.
func Occupy(p Point, id int) Assignment {
	return Assignment{Point: p, ID: id}
}

// Vacate returns an assignment clearing p.
func Vacate(p Point) Assignment {
	return Assignment{Point: p, Clear: true}
}

// Grid is the occupancy matrix. The zero value is an empty board.
//
// Cells store id+1 so that zero means empty; use At to read them.
type Grid struct {
	cells [GridSize][GridSize]int
}

// InBounds reports whether (x, y) lies on the board.
func InBounds(x, y int) bool {
	return x >= 0 && x < GridSize && y >= 0 && y < GridSize
}

// At returns the id of the block covering (x, y). ok is false when the cell
// is empty or off the board.
func (g Grid) At(x, y int) (id int, ok bool) {
	if !InBounds(x, y) {
		return 0, false
	}
	v := g.cells[y][x]
	if v == 0 {
		return 0, false
	}
	return v - 1, true
}

// With returns a copy of g with the assignments applied in order.
// Assignments outside the board are skipped; bounds are the caller's concern.
func (g Grid) With(assignments ...Assignment) Grid {
	for _, a := range assignments {
		if !InBounds(a.X, a.Y) {
			continue
		}
		if a.Clear {
			g.cells[a.Y][a.X] = 0
		} else {
			g.cells[a.Y][a.X] = a.ID + 1
		}
	}
	return g
}

// Cells returns every cell currently holding id, in row-major order.
func (g Grid) Cells(id int) []Point {
	var points []Point
	for y := 0; y < GridSize; y++ {
		for x := 0; x < GridSize; x++ {
			if got, ok := g.At(x, y); ok && got == id {
				points = append(points, Point{X: x, Y: y})
			}
		}
	}
	return points
}

// Filled returns the number of occupied cells.
func (g Grid) Filled() int {
	n := 0
	for y := range g.cells {
		for x := range g.cells[y] {
			if g.cells[y][x] != 0 {
				n++
			}
		}
	}
	return n
}

// Footprint returns the cells [x, x+w) × [y, y+h) in row-major order,
// including any that fall off the board.
func Footprint(x, y, w, h int) []Point {
	if w <= 0 || h <= 0 {
		return nil
	}
	points := make([]Point, 0, w*h)
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			points = append(points, Point{X: x + j, Y: y + i})
		}
	}
	return points
}

// FitsOnBoard reports whether the whole footprint lies within the board.
func FitsOnBoard(x, y, w, h int) bool {
	return w > 0 && h > 0 && x >= 0 && y >= 0 && x+w <= GridSize && y+h <= GridSize
}

// MarshalJSON encodes the grid as rows of block ids with null for empty cells.
func (g Grid) MarshalJSON() ([]byte, error) {
	rows := make([][]*int, GridSize)
	for y := 0; y < GridSize; y++ {
		rows[y] = make([]*int, GridSize)
		for x := 0; x < GridSize; x++ {
			if id, ok := g.At(x, y); ok {
				rows[y][x] = &id
			}
		}
	}
	return json.Marshal(rows)
}

// UnmarshalJSON decodes the row form produced by MarshalJSON.
func (g *Grid) UnmarshalJSON(data []byte) error {
	var rows [][]*int
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	if len(rows) != GridSize {
		return fmt.Errorf("grid must have %d rows, got %d", GridSize, len(rows))
	}
	var out Grid
	for y, row := range rows {
		if len(row) != GridSize {
			return fmt.Errorf("grid row %d must have %d cells, got %d", y, GridSize, len(row))
		}
		for x, cell := range row {
			if cell == nil {
				continue
			}
			if *cell < 0 {
				return fmt.Errorf("grid cell (%d,%d) holds negative id %d", x, y, *cell)
			}
			out.cells[y][x] = *cell + 1
		}
	}
	*g = out
	return nil
}
