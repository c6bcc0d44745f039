package grid

import "fmt"

// Pos identifies a grid cell as (row << 4) | col.
//
// Invariant: 0 <= col < 16. Rows and columns are bounded further by the owning
// grid's height and width.
type Pos int

// PosOf packs a row and column into a Pos.
//
// Precondition: 0 <= col < 16 and row >= 0.
func PosOf(row, col int) Pos {
	return Pos(row<<4 | col)
}

// Row returns the row component.
func (p Pos) Row() int {
	return int(p) >> 4
}

// Col returns the column component.
func (p Pos) Col() int {
	return int(p) & 0xf
}

// Plus returns the neighboring position in direction d. The result may lie
// outside any grid; callers check bounds.
func (p Pos) Plus(d Dir) Pos {
	return p + deltas[d]
}

// Relative expresses target in the frame of a walker standing at p facing d.
// It returns how far forward and how far to the right target lies.
func (p Pos) Relative(d Dir, target Pos) (forward, right int) {
	dy := target.Row() - p.Row()
	dx := target.Col() - p.Col()
	switch d {
	case Up:
		return -dy, dx
	case Right:
		return dx, dy
	case Down:
		return dy, -dx
	default:
		return -dx, -dy
	}
}

// String renders the position as two hex digits (row, col).
func (p Pos) String() string {
	return fmt.Sprintf("%02x", int(p))
}
