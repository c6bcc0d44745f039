package grid

import "fmt"

// Scr is a bit-packed screen value. The low 16 bits hold one nibble per
// direction describing the edge type on that side (0 blocked, 1 narrow
// passage, 2 wide passage, 3 river, 6 narrow exit, 7 blocked beside a wide
// room). Higher bits select a feature variant (wall, bridge, stair, ...) of
// the same edge signature.
type Scr uint32

// EdgeBits masks the edge signature of a screen.
const EdgeBits Scr = 0xffff

// Edge returns the edge type facing d.
func (s Scr) Edge(d Dir) int {
	return int(s>>d.Shift()) & 0xf
}

// Edges returns only the edge signature of the screen.
func (s Scr) Edges() Scr {
	return s & EdgeBits
}

// WithEdge returns s with the nibble facing d replaced by edge.
func (s Scr) WithEdge(d Dir, edge int) Scr {
	return s&^d.EdgeMask() | Scr(edge)<<d.Shift()
}

// NumExits counts the non-blocked edges of the screen.
func (s Scr) NumExits() int {
	n := 0
	for _, d := range AllDirs {
		if s.Edge(d) != 0 {
			n++
		}
	}
	return n
}

// FromExits builds a screen with exitType on every direction in mask.
func FromExits(mask DirMask, exitType int) Scr {
	var s Scr
	for _, d := range AllDirs {
		if mask.Has(d) {
			s |= Scr(exitType) << d.Shift()
		}
	}
	return s
}

// String renders the screen as five hex digits.
func (s Scr) String() string {
	return fmt.Sprintf("%05x", uint32(s))
}
