// Package spec holds the screen catalog a maze draws from, the structural
// survey extracted from an existing area, and the compatibility tables
// used by river caves.
package spec

import (
	"fmt"

	"github.com/cory-johannsen/caveshuffle/internal/grid"
)

// Wall types.
const (
	WallTypeWall   = "wall"
	WallTypeBridge = "bridge"
)

// Spec describes one catalog screen.
//
// Invariant: Edges uniquely identifies a Spec within a catalog. Tile need not
// be unique; several edge signatures can render with the same tile.
type Spec struct {
	Edges grid.Scr
	Tile  int
	Icon  string
	// Connections lists groups of mutually reachable channels. A channel is
	// an edge offset: 0x01..0x03 top, 0x10..0x30 left, 0x1001..0x1003 bottom,
	// 0x0110..0x0130 right.
	Connections [][]int
	// Fixed screens are never chosen by generic fill.
	Fixed bool
	// Flag screens need a game flag when written back.
	Flag    bool
	Pit     bool
	DeadEnd bool
	Stairs  []Stair
	Wall    *Wall
	Poi     []Poi
}

// String implements fmt.Stringer.
func (s *Spec) String() string {
	return fmt.Sprintf("%s(%02x %s)", s.Edges, s.Tile, s.Icon)
}

// Stair is a staircase on a screen.
type Stair struct {
	Dir grid.Dir
	// Entrance is the YyXx pixel position of the arrival point.
	Entrance int
	// Exit is the yx tile of the first exit tile; the stair spans two tiles.
	Exit int
}

// Tile returns the yx tile of the stair entrance within its screen.
func (s Stair) Tile() int {
	return (s.Entrance&0xf000)>>8 | (s.Entrance&0xf0)>>4
}

// Wall is a breakable wall or a bridge separating two channel groups.
type Wall struct {
	Type string
	// Tile is the yx tile the wall spawn sits on.
	Tile int
	A    int
	B    int
}

// Connections returns the channel groups for the wall. A flagged (already
// removed) wall joins both sides into a single group.
func (w *Wall) Connections(flagged bool) [][]int {
	if !flagged {
		return [][]int{connection(w.A), connection(w.B)}
	}
	a := w.A
	for count := w.B; count != 0; count >>= 4 {
		a <<= 4
	}
	return [][]int{connection(a | w.B)}
}

// Poi is a point of interest that can host a relocated spawn.
type Poi struct {
	// Priority starts at zero for the best spots.
	Priority int
	// DY and DX are pixel offsets from the top-left of the screen.
	DY int
	DX int
}

// connection expands packed nibbles into edge channels. Each nibble holds the
// exit index in its low two bits, bit 4 for the left/right edges and bit 8
// for the right/bottom edges.
func connection(data int) []int {
	var out []int
	for ; data != 0; data >>= 4 {
		channel := (data & 3) << (data & 4)
		offset := 0
		if data&8 != 0 {
			if data&4 != 0 {
				offset = 0x0100
			} else {
				offset = 0x1000
			}
		}
		out = append(out, channel|offset)
	}
	return out
}

type option func(*Spec)

func newSpec(edges grid.Scr, tile int, icon string, opts ...option) *Spec {
	s := &Spec{Edges: edges, Tile: tile, Icon: icon}
	for _, o := range opts {
		o(s)
	}
	return s
}

func conn(data int) option {
	return func(s *Spec) { s.Connections = append(s.Connections, connection(data)) }
}

func fixed(s *Spec)   { s.Fixed = true }
func pit(s *Spec)     { s.Pit = true }
func deadEnd(s *Spec) { s.DeadEnd = true }

func stairUp(entrance, exit int) option {
	return func(s *Spec) { s.Stairs = append(s.Stairs, Stair{Dir: grid.Up, Entrance: entrance, Exit: exit}) }
}

func stairDown(entrance, exit int) option {
	return func(s *Spec) { s.Stairs = append(s.Stairs, Stair{Dir: grid.Down, Entrance: entrance, Exit: exit}) }
}

func wall(tile, a, b int) option {
	return func(s *Spec) { s.Wall = &Wall{Type: WallTypeWall, Tile: tile, A: a, B: b} }
}

func bridge(tile, a, b int) option {
	return func(s *Spec) { s.Wall = &Wall{Type: WallTypeBridge, Tile: tile, A: a, B: b} }
}

func poiAt(priority, dy, dx int) option {
	return func(s *Spec) { s.Poi = append(s.Poi, Poi{Priority: priority, DY: dy, DX: dx}) }
}

// poi places a point of interest at the center of the screen.
func poi(priority int) option {
	return poiAt(priority, 0x70, 0x78)
}
