// Package grid provides the cell-level primitives shared by the cave shuffler:
// packed positions, cardinal directions, nibble-packed screen values and
// random path generation.
package grid

import "fmt"

// Dir is a cardinal direction. The numeric order is significant: dir&1 is set
// for horizontal directions and dir&2 for directions pointing toward the
// maximum row or column.
type Dir int

// The four cardinal directions.
const (
	Up    Dir = 0
	Right Dir = 1
	Down  Dir = 2
	Left  Dir = 3
)

// AllDirs lists the four directions in numeric order.
var AllDirs = [4]Dir{Up, Right, Down, Left}

var deltas = [4]Pos{-16, 1, 16, -1}

// Inv returns the opposite direction.
func (d Dir) Inv() Dir {
	return d ^ 2
}

// Shift returns the bit offset of this direction's nibble in a screen value.
func (d Dir) Shift() uint {
	return uint(d) << 2
}

// EdgeMask returns the mask selecting this direction's nibble.
func (d Dir) EdgeMask() Scr {
	return 0xf << d.Shift()
}

// Turn rotates the direction by change quarter turns (positive is clockwise).
func (d Dir) Turn(change Turn) Dir {
	return (d + Dir(change)) & 3
}

// Horizontal reports whether d is Left or Right.
func (d Dir) Horizontal() bool {
	return d&1 != 0
}

// String implements fmt.Stringer.
func (d Dir) String() string {
	switch d {
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	default:
		return fmt.Sprintf("dir(%d)", int(d))
	}
}

// ParseDir converts a direction name back into a Dir.
func ParseDir(s string) (Dir, error) {
	for _, d := range AllDirs {
		if d.String() == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// DirMask is a set of directions, one bit per Dir.
type DirMask int

// MaskOf builds a DirMask from the given directions.
func MaskOf(dirs ...Dir) DirMask {
	var m DirMask
	for _, d := range dirs {
		m |= 1 << d
	}
	return m
}

// Has reports whether d is in the mask.
func (m DirMask) Has(d Dir) bool {
	return m&(1<<d) != 0
}
