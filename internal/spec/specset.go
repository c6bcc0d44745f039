package spec

import (
	"errors"
	"fmt"
	"math/bits"
	"slices"

	"github.com/zyedidia/generic/mapset"

	"github.com/cory-johannsen/caveshuffle/internal/area"
	"github.com/cory-johannsen/caveshuffle/internal/grid"
)

var (
	// ErrBadTile is returned when an area uses a tile missing from the catalog.
	ErrBadTile = errors.New("tile not in catalog")
	// ErrMissingExit is returned when an entrance has no paired exit.
	ErrMissingExit = errors.New("could not find exit for entrance")
	// ErrInconsistentWide is returned when wide tiles are mixed with narrow ones.
	ErrInconsistentWide = errors.New("inconsistent use of wide tiles")
)

// exitCoordTolerance is the pixel distance within which an exit is paired
// with an entrance.
const exitCoordTolerance = 20

// StairScreen is the direction and entrance layout of a stair screen.
type StairScreen struct {
	Dir      grid.Dir
	Entrance EntranceSpec
}

// SpecSet indexes a group of catalogs for survey extraction and write-back.
type SpecSet struct {
	specSets [][]*Spec
	empty    *Spec

	fixedTiles   map[int]*Spec
	deadEndTiles map[int]bool
	// edgesByTile is a mask of open edges (1 << dir) per tile id.
	edgesByTile map[int]grid.DirMask
	// stairsByTile maps tile<<8 | entrance tile to the stair direction.
	stairsByTile map[int]grid.Dir
	stairScreens map[grid.Scr]StairScreen
	walls        map[int]string
}

// NewSpecSet builds the indexes for the given catalogs. empty, if non-nil,
// is always included in surveyed specs.
func NewSpecSet(specSets [][]*Spec, empty *Spec) *SpecSet {
	s := &SpecSet{
		specSets:     specSets,
		empty:        empty,
		fixedTiles:   make(map[int]*Spec),
		deadEndTiles: make(map[int]bool),
		edgesByTile:  make(map[int]grid.DirMask),
		stairsByTile: make(map[int]grid.Dir),
		stairScreens: make(map[grid.Scr]StairScreen),
		walls:        make(map[int]string),
	}
	for _, set := range specSets {
		for _, sp := range set {
			for _, d := range grid.AllDirs {
				edge := sp.Edges.Edge(d)
				if edge != 0 && edge&7 != 7 {
					s.edgesByTile[sp.Tile] |= grid.MaskOf(d)
				}
			}
			for _, st := range sp.Stairs {
				s.stairsByTile[sp.Tile<<8|st.Tile()] = st.Dir
				s.stairScreens[sp.Edges] = StairScreen{
					Dir:      st.Dir,
					Entrance: EntranceSpec{Entrance: st.Entrance, Exits: []int{st.Exit, st.Exit + 1}},
				}
			}
			if sp.Wall != nil {
				s.walls[sp.Tile] = sp.Wall.Type
			}
			// Tile 0x91 has two specs; the first one wins.
			if sp.Tile != area.EmptyTile && sp.Fixed {
				if _, ok := s.fixedTiles[sp.Tile]; !ok {
					s.fixedTiles[sp.Tile] = sp
				}
			}
			if sp.DeadEnd {
				s.deadEndTiles[sp.Tile] = true
			}
		}
	}
	return s
}

// StairScreen returns the stair layout for a screen edge signature.
func (s *SpecSet) StairScreen(scr grid.Scr) (StairScreen, bool) {
	st, ok := s.stairScreens[scr]
	return st, ok
}

// FixedTile returns the fixed spec rendered by tile, if any.
func (s *SpecSet) FixedTile(tile int) (*Spec, bool) {
	sp, ok := s.fixedTiles[tile]
	return sp, ok
}

// ExitEntry is a required exit: either an edge exit or a stair.
type ExitEntry struct {
	Pos grid.Pos
	// Entrance is the index into the area's entrance table.
	Entrance int
	// Exit is destination<<8 | destination entrance.
	Exit int
	Dir  grid.Dir
}

// FixedEntry is a screen that must appear somewhere in the new layout.
type FixedEntry struct {
	Pos  grid.Pos
	Spec *Spec
}

// Survey is the structural inventory of an area. It is immutable once built.
type Survey struct {
	Size     int
	Rivers   int
	DeadEnds int
	Branches int
	Walls    int
	Bridges  int
	Wide     bool
	// Stairs and Edges are in row-major order of the original area.
	Stairs []ExitEntry
	Edges  []ExitEntry
	Fixed  []FixedEntry
	Tiles  map[int]int
	Specs  []*Spec
	Set    *SpecSet
}

// Stair returns the required stair originally at pos.
func (s *Survey) Stair(pos grid.Pos) (ExitEntry, bool) {
	i := slices.IndexFunc(s.Stairs, func(e ExitEntry) bool { return e.Pos == pos })
	if i < 0 {
		return ExitEntry{}, false
	}
	return s.Stairs[i], true
}

// Edge returns the required edge exit originally at pos.
func (s *Survey) Edge(pos grid.Pos) (ExitEntry, bool) {
	i := slices.IndexFunc(s.Edges, func(e ExitEntry) bool { return e.Pos == pos })
	if i < 0 {
		return ExitEntry{}, false
	}
	return s.Edges[i], true
}

// FixedAt returns the fixed spec originally at pos.
func (s *Survey) FixedAt(pos grid.Pos) (*Spec, bool) {
	i := slices.IndexFunc(s.Fixed, func(e FixedEntry) bool { return e.Pos == pos })
	if i < 0 {
		return nil, false
	}
	return s.Fixed[i].Spec, true
}

// Survey extracts the structural inventory of a.
//
// Precondition: a passes Validate.
// Postcondition: Returns a Survey or an error wrapping ErrBadTile,
// ErrMissingExit or ErrInconsistentWide.
func (s *SpecSet) Survey(a *area.Area) (*Survey, error) {
	sv := &Survey{Wide: true, Tiles: make(map[int]int), Set: s}
	anyWide := false

	// Collect every catalog that contributes a tile present in the area.
	if s.empty != nil {
		sv.Specs = append(sv.Specs, s.empty)
	}
	present := make(map[int]bool)
	for _, row := range a.Screens {
		for _, t := range row {
			present[t] = true
		}
	}
	for _, set := range s.specSets {
		if slices.ContainsFunc(set, func(sp *Spec) bool { return sp.Tile != area.EmptyTile && present[sp.Tile] }) {
			sv.Specs = append(sv.Specs, set...)
		}
	}
	// Tileset a4 cannot render horizontal wall corridors.
	if a.Tileset == 0xa4 {
		sv.Specs = slices.DeleteFunc(sv.Specs, func(sp *Spec) bool { return sp.Edges == 0x1_1010 })
	}

	entranceToExit := make(map[int]int)
	for i, e := range a.Entrances {
		for _, x := range a.Exits {
			if abs(x.X()-e.X()) < exitCoordTolerance && abs(x.Y()-e.Y()) < exitCoordTolerance {
				entranceToExit[i] = x.Dest<<8 | x.Entrance
				break
			}
		}
	}

	for i, e := range a.Entrances {
		d, ok := s.stairsByTile[a.Tile(e.Screen)<<8|e.Tile()]
		if !ok {
			continue
		}
		exit, ok := entranceToExit[i]
		if !ok {
			return nil, fmt.Errorf("area %s entrance %d: %w", a.Label(), i, ErrMissingExit)
		}
		sv.Stairs = setExit(sv.Stairs, ExitEntry{Pos: e.Screen, Entrance: i, Exit: exit, Dir: d})
	}

	// Screens cut off from every entrance, such as the far side of a broken
	// bridge, do not count.
	reachable := s.reachable(a)

	for y := 0; y < a.Height; y++ {
		var edgeMask grid.DirMask
		if y == 0 {
			edgeMask |= grid.MaskOf(grid.Up)
		}
		if y == a.Height-1 {
			edgeMask |= grid.MaskOf(grid.Down)
		}
		for x := 0; x < a.Width; x++ {
			pos := grid.PosOf(y, x)
			edgeMask &^= grid.MaskOf(grid.Left, grid.Right)
			if x == 0 {
				edgeMask |= grid.MaskOf(grid.Left)
			}
			if x == a.Width-1 {
				edgeMask |= grid.MaskOf(grid.Right)
			}
			if !reachable.Has(pos) {
				continue
			}
			tile := a.Tile(pos)
			sv.Tiles[tile]++
			if tile == area.EmptyTile {
				continue
			}
			if wideTiles[tile] {
				anyWide = true
			} else {
				sv.Wide = false
			}
			sv.Size++
			if riverTiles[tile] {
				sv.Rivers++
			}
			edgeExits, ok := s.edgesByTile[tile]
			if !ok {
				return nil, fmt.Errorf("area %s tile %02x at %s: %w", a.Label(), tile, pos, ErrBadTile)
			}
			edgeCount := bits.OnesCount(uint(edgeExits))
			if _, ok := sv.Stair(pos); ok {
				edgeCount++
			}
			// Two-stair and dead-end tiles count by their shape, not their edges.
			switch tile {
			case 0x9a:
				edgeCount = 2
			case 0x9b, 0x9c, 0xf0, 0xf1:
				edgeCount = 1
			}
			if edgeCount == 1 {
				sv.DeadEnds++
			}
			if edgeCount > 2 {
				sv.Branches += edgeCount - 2
			}
			switch s.walls[tile] {
			case WallTypeWall:
				sv.Walls++
			case WallTypeBridge:
				sv.Bridges++
			}
			if s.deadEndTiles[tile] {
				edgeExits = 0
			}
			for _, d := range grid.AllDirs {
				if !(edgeExits & edgeMask).Has(d) {
					continue
				}
				entrance := slices.IndexFunc(a.Entrances, func(e area.Entrance) bool {
					return e.Screen == pos && matchesDir(e.Tile(), d)
				})
				if entrance < 0 {
					continue
				}
				exit, ok := entranceToExit[entrance]
				if !ok {
					return nil, fmt.Errorf("area %s entrance %d: %w", a.Label(), entrance, ErrMissingExit)
				}
				sv.Edges = setExit(sv.Edges, ExitEntry{Pos: pos, Entrance: entrance, Exit: exit, Dir: d})
			}
			if sp, ok := s.fixedTiles[tile]; ok {
				sv.Fixed = append(sv.Fixed, FixedEntry{Pos: pos, Spec: sp})
			}
		}
	}
	if sv.Rivers > 0 {
		// River screens cannot place blanks beside the boss room, so use the
		// boss variant without side blanks.
		i := slices.IndexFunc(sv.Specs, func(sp *Spec) bool { return sp.Edges == 0x7_0101 })
		if i >= 0 {
			for j := range sv.Fixed {
				if sv.Fixed[j].Spec.Edges == 0x7176 {
					sv.Fixed[j].Spec = sv.Specs[i]
				}
			}
		}
	}
	if sv.Wide != anyWide {
		return nil, fmt.Errorf("area %s: %w", a.Label(), ErrInconsistentWide)
	}
	return sv, nil
}

// reachable returns the screens joined to an entrance screen through edges
// open on both sides. Water inside a screen does not block. An area without
// entrances is reachable everywhere.
func (s *SpecSet) reachable(a *area.Area) mapset.Set[grid.Pos] {
	seen := mapset.New[grid.Pos]()
	var queue []grid.Pos
	visit := func(pos grid.Pos) {
		if a.InBounds(pos) && !seen.Has(pos) {
			seen.Put(pos)
			queue = append(queue, pos)
		}
	}
	if len(a.Entrances) == 0 {
		for y := 0; y < a.Height; y++ {
			for x := 0; x < a.Width; x++ {
				visit(grid.PosOf(y, x))
			}
		}
		return seen
	}
	for _, e := range a.Entrances {
		visit(e.Screen)
	}
	for len(queue) > 0 {
		pos := queue[0]
		queue = queue[1:]
		edges := s.edgesByTile[a.Tile(pos)]
		for _, d := range grid.AllDirs {
			next := pos.Plus(d)
			if !edges.Has(d) || !a.InBounds(next) || d.Horizontal() && next.Row() != pos.Row() {
				continue
			}
			if s.edgesByTile[a.Tile(next)].Has(d.Inv()) {
				visit(next)
			}
		}
	}
	return seen
}

// setExit replaces the entry at e.Pos or appends e.
func setExit(entries []ExitEntry, e ExitEntry) []ExitEntry {
	if i := slices.IndexFunc(entries, func(x ExitEntry) bool { return x.Pos == e.Pos }); i >= 0 {
		entries[i] = e
		return entries
	}
	return append(entries, e)
}

// matchesDir reports whether an entrance tile (yx) lies on the screen edge
// facing d.
func matchesDir(tile int, d grid.Dir) bool {
	switch d {
	case grid.Up:
		return tile>>4 < 0x4
	case grid.Right:
		return tile&0xf > 0xd
	case grid.Down:
		return tile>>4 > 0xc
	case grid.Left:
		return tile&0xf < 0x2
	}
	return false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
