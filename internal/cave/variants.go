package cave

import (
	"github.com/cory-johannsen/caveshuffle/internal/grid"
	"github.com/cory-johannsen/caveshuffle/internal/maze"
	"github.com/cory-johannsen/caveshuffle/internal/random"
)

// Waterfall river screens.
const (
	waterfallBase  grid.Scr = 0x2_0001 // down stair
	waterfallPool  grid.Scr = 0x0003
	waterfallTop   grid.Scr = 0x0300
	waterfallLeft  grid.Scr = 0x1303
	waterfallRight grid.Scr = 0x0313
)

// bind assembles the phases for kind on top of the basic strategy.
func (s *Shuffler) bind(kind Kind) phases {
	p := s.basicPhases()
	switch kind {
	case Wide:
		p.initialFillMaze = s.wideInitialFill
		p.refineMaze = func(*maze.Maze) bool { return true }
		p.addFeatures = func(*maze.Maze) bool { return true }
	case WaterfallRiver:
		p.initializeFixedScreens = s.waterfallFixedScreens
		p.check = s.waterfallCheck
	case Cycle:
		p.check = s.cycleCheck
	case TightCycle:
		p.check = s.cycleCheck
		p.removeTightCycles = func(*maze.Maze) bool { return true }
	case River:
		p.tryShuffle = s.riverShuffle
	}
	return p
}

// wideInitialFill joins the fixed points into one structure and opens the
// rest of the grid into a single room.
func (s *Shuffler) wideInitialFill(m *maze.Maze) bool {
	poi := s.fixed.slice()
	if len(poi) >= 2 && !m.Connect(poi[0], poi[1], maze.FillOptions{}) {
		return s.fail("could not connect wide cave exits")
	}
	for _, pos := range poi[min(2, len(poi)):] {
		if !m.ConnectAny(pos, maze.FillOptions{}) {
			return s.fail("could not connect wide cave fixed point " + pos.String())
		}
	}
	if !m.FillAll(maze.FillOptions{Edge: maze.EdgeType(0)}) {
		return s.fail("could not fill wide cave")
	}
	return true
}

// waterfallFixedScreens drops a river column from the top row to a pool on
// the bottom row. The two waterfall bases flanking the pool are the cave's
// stairs.
func (s *Shuffler) waterfallFixedScreens(m *maze.Maze) bool {
	if s.w < 3 || s.h < 2 {
		return s.fail("waterfall cave needs three columns and two rows")
	}
	place := func(pos grid.Pos, scr grid.Scr) bool {
		if !m.TrySet(pos, scr) {
			return false
		}
		s.fixed.add(pos)
		return true
	}
	river := 1 + s.src.Intn(s.w-2)
	left := s.src.Intn(river)
	right := s.w - 1 - s.src.Intn(s.w-river-1)
	bottom := s.h - 1
	if !place(grid.PosOf(bottom, left), waterfallBase) ||
		!place(grid.PosOf(bottom, right), waterfallBase) ||
		!place(grid.PosOf(bottom, river), waterfallPool) ||
		!place(grid.PosOf(0, river), waterfallTop) {
		return s.fail("could not place waterfall")
	}
	var column []grid.Scr
	for y := 1; y < s.h-1; y += 2 {
		column = append(column, waterfallLeft, waterfallRight)
	}
	random.Shuffle(s.src, column)
	for y := 1; y < s.h-1; y++ {
		scr, _ := pop(&column)
		if !place(grid.PosOf(y, river), scr) {
			return s.fail("could not place river column")
		}
	}
	return true
}

// waterfallCheck requires exactly two banks, each larger than two spots,
// that together cover the traversal.
func (s *Shuffler) waterfallCheck(m *maze.Maze) bool {
	t := m.Traverse(maze.TraverseOptions{})
	parts := t.Partitions()
	return len(parts) == 2 &&
		len(parts[0])+len(parts[1]) == t.Len() &&
		len(parts[0]) > 2 && len(parts[1]) > 2
}

// cycleCheck extends check with a genuine cycle: two cells, each removable
// alone, that disconnect the map when removed together.
func (s *Shuffler) cycleCheck(m *maze.Maze) bool {
	if !s.check(m) {
		return false
	}
	var nonCritical []grid.Pos
	for pos, scr := range m.Screens() {
		if scr == 0 {
			continue
		}
		t := m.Traverse(maze.TraverseOptions{Without: []grid.Pos{pos}})
		if t.Len() > 0 && t.Connected() {
			nonCritical = append(nonCritical, pos)
		}
	}
	for i := range nonCritical {
		for j := range i {
			t := m.Traverse(maze.TraverseOptions{Without: []grid.Pos{nonCritical[i], nonCritical[j]}})
			if t.Len() > 0 && !t.Connected() {
				return true
			}
		}
	}
	return false
}
