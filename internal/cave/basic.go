package cave

import (
	"errors"
	"fmt"
	"slices"

	"github.com/zyedidia/generic/mapset"

	"github.com/cory-johannsen/caveshuffle/internal/grid"
	"github.com/cory-johannsen/caveshuffle/internal/maze"
	"github.com/cory-johannsen/caveshuffle/internal/random"
	"github.com/cory-johannsen/caveshuffle/internal/spec"
)

const (
	// plainExitEdge is the border edge type declared for an edge exit
	// without its own fixed screen.
	plainExitEdge = 6
	// openBorderEdge keeps a wide opening in a fixed screen open.
	openBorderEdge = 7
	// stairHallTile is the decorative tile placed by addFeatures.
	stairHallTile = 0x8c
)

// basicPhases returns the default strategy.
func (s *Shuffler) basicPhases() phases {
	return phases{
		tryShuffle:             s.tryShuffle,
		initializeFixedScreens: s.initializeFixedScreens,
		initialFillMaze:        s.initialFillMaze,
		refineMaze:             s.refineMaze,
		postRefine:             func(*maze.Maze, grid.Pos) {},
		removeTightCycles:      s.removeTightCycles,
		addFeatures:            s.addFeatures,
		check:                  s.check,
	}
}

func (s *Shuffler) tryShuffle(m *maze.Maze) bool {
	if !s.phases.initializeFixedScreens(m) {
		return false
	}
	s.trace("initialized", m)
	if !s.phases.initialFillMaze(m) {
		return false
	}
	s.trace("initial fill", m)
	if !s.phases.refineMaze(m) {
		return false
	}
	s.trace("refined", m)
	if !s.phases.addFeatures(m) {
		return false
	}
	s.trace("features", m)
	return s.finish(m)
}

// initializeFixedScreens claims a border cell for every edge exit, places
// the remaining fixed screens, then drops stairs at random positions.
func (s *Shuffler) initializeFixedScreens(m *maze.Maze) bool {
	for _, edge := range s.survey.Edges {
		placed := false
		for pos := range random.IShuffle(s.src, s.edges(edge.Dir)) {
			if s.fixed.has(pos) {
				continue
			}
			s.fixed.add(pos)
			fixedSpec, ok := s.survey.FixedAt(edge.Pos)
			if !ok {
				if err := m.SetBorder(pos, edge.Dir, plainExitEdge); err != nil {
					return s.fail(err.Error())
				}
			} else {
				if s.h == 1 {
					return s.fail("fixed edge screen needs two rows")
				}
				if err := m.SetBorder(pos, edge.Dir, fixedSpec.Edges.Edge(edge.Dir)); err != nil {
					return s.fail(err.Error())
				}
				if err := fixBorders(m, pos, fixedSpec.Edges); err != nil {
					return s.fail(err.Error())
				}
				if !m.TrySet(pos, fixedSpec.Edges) {
					return s.fail(fmt.Sprintf("fixed edge screen %s does not fit at %s", fixedSpec.Edges, pos))
				}
				if fixedSpec.Wall != nil {
					s.walls--
				}
			}
			placed = true
			break
		}
		if !placed {
			return s.fail(fmt.Sprintf("no free %s border for exit %s", edge.Dir, edge.Pos))
		}
	}

	for _, f := range s.survey.Fixed {
		if _, ok := s.survey.Edge(f.Pos); ok {
			continue
		}
		placed := false
		for pos := range random.IShuffle(s.src, s.allPos) {
			if s.fixed.has(pos) {
				continue
			}
			ok := m.SaveExcursion(func() bool {
				if err := fixBorders(m, pos, f.Spec.Edges); err != nil {
					return s.fail(err.Error())
				}
				return m.TrySet(pos, f.Spec.Edges)
			})
			if !ok {
				continue
			}
			s.fixed.add(pos)
			if f.Spec.Wall != nil {
				s.walls--
			}
			placed = true
			break
		}
		if !placed {
			return s.fail(fmt.Sprintf("could not place fixed screen %s", f.Spec.Edges))
		}
	}

	return s.placeStairs(m)
}

func (s *Shuffler) placeStairs(m *maze.Maze) bool {
	stairs := s.survey.Stairs
	i := 0
	for tries := 0; tries < s.cfg.StairRetries && i < len(stairs); tries++ {
		pos := m.RandomPos()
		if s.fixed.has(pos) {
			continue
		}
		if !m.Fill(pos, maze.FillOptions{Stair: maze.StairDir(stairs[i].Dir)}) {
			continue
		}
		s.fixed.add(pos)
		tries = -1
		i++
	}
	if i < len(stairs) {
		return s.fail("could not add all stairs")
	}
	return true
}

// initialFillMaze covers the grid with plain screens, opening border edges
// by one step.
func (s *Shuffler) initialFillMaze(m *maze.Maze) bool {
	opts := maze.FillOptions{
		Edge:           maze.EdgeType(1),
		Fuzzy:          1,
		ShuffleOrder:   true,
		SkipAlternates: true,
	}
	if !m.FillAll(opts) {
		return s.fail("could not fill open")
	}
	return true
}

// refineMaze empties cells in random order until the density target is met,
// each removal guarded by the connectivity check.
//
// Precondition: the grid passes check.
func (s *Shuffler) refineMaze(m *maze.Maze) bool {
	if !s.phases.check(m) {
		return s.fail("check failed after initial setup")
	}
	opts := maze.FillOptions{SkipAlternates: true}
	var cells []grid.Pos
	for pos := range m.Screens() {
		cells = append(cells, pos)
	}
	for _, pos := range random.Shuffle(s.src, cells) {
		if m.Density() <= s.density {
			break
		}
		if m.IsFixed(pos) || s.fixed.has(pos) {
			continue
		}
		changed := m.SaveExcursion(func() bool {
			return m.SetAndUpdate(pos, 0, opts) && s.phases.check(m)
		})
		if changed {
			s.phases.postRefine(m, pos)
		}
	}
	return s.phases.removeTightCycles(m)
}

// removeTightCycles severs one edge of every 2x2 block whose cells are all
// joined around the centre.
func (s *Shuffler) removeTightCycles(m *maze.Maze) bool {
	for y := 1; y < s.h; y++ {
		for x := 1; x < s.w; x++ {
			pos := grid.PosOf(y, x)
			if !isTightCycle(m, pos) {
				continue
			}
			replaced := false
			for d := range random.IShuffle(s.src, grid.AllDirs[:]) {
				// Up and Right sever from the lower left cell, Down and
				// Left from the upper right.
				pos2 := pos - 16
				if d < grid.Down {
					pos2 = pos - 1
				}
				if _, ok := m.Get(pos2); !ok {
					continue
				}
				if _, ok := m.Get(pos2.Plus(d)); !ok {
					continue
				}
				if m.SaveExcursion(func() bool { return m.ReplaceEdge(pos2, d, 0) && s.phases.check(m) }) {
					replaced = true
					break
				}
			}
			if !replaced {
				return s.fail(fmt.Sprintf("failed to remove tight cycle at %s", pos))
			}
		}
	}
	return true
}

// isTightCycle reports whether the block with lower right corner pos is
// joined on all four inner edges.
func isTightCycle(m *maze.Maze, pos grid.Pos) bool {
	ul, _ := m.Get(pos - 17)
	dr, _ := m.Get(pos)
	return ul.Edge(grid.Down) != 0 && ul.Edge(grid.Right) != 0 &&
		dr.Edge(grid.Left) != 0 && dr.Edge(grid.Up) != 0
}

// addFeatures swaps plain cells for their decorated, walled or bridged
// variants until each survey count is met.
func (s *Shuffler) addFeatures(m *maze.Maze) bool {
	replaced := mapset.New[grid.Pos]()
	alts := slices.Collect(m.Alternates())

	for _, tile := range []int{stairHallTile} {
		need := s.survey.Tiles[tile]
		if need == 0 {
			continue
		}
		steps := random.Shuffle(s.src, filterAlts(alts, func(sp *spec.Spec) bool { return sp.Tile == tile }))
		for placed := 0; placed < need; {
			alt, ok := pop(&steps)
			if !ok {
				return s.fail("could not add stair hallway")
			}
			if replaced.Has(alt.Pos) || !s.swap(m, alt) {
				continue
			}
			replaced.Put(alt.Pos)
			placed++
		}
	}

	for _, feature := range []struct {
		typ   string
		count int
	}{
		{spec.WallTypeWall, s.walls},
		{spec.WallTypeBridge, s.bridges},
	} {
		screens := random.Shuffle(s.src, filterAlts(alts, func(sp *spec.Spec) bool {
			return sp.Wall != nil && sp.Wall.Type == feature.typ
		}))
		for placed := 0; placed < feature.count; {
			alt, ok := pop(&screens)
			if !ok {
				return s.fail(fmt.Sprintf("could not add %s %d", feature.typ, placed))
			}
			if replaced.Has(alt.Pos) || !s.swap(m, alt) {
				continue
			}
			replaced.Put(alt.Pos)
			placed++
		}
	}
	return true
}

// swap installs alt unless doing so breaks the strategy's check.
func (s *Shuffler) swap(m *maze.Maze, alt maze.Alternate) bool {
	return m.SaveExcursion(func() bool {
		m.Replace(alt.Pos, alt.Candidate)
		return s.phases.check(m)
	})
}

func (s *Shuffler) finish(m *maze.Maze) bool {
	s.trace("finish", m)
	return m.Finish(s.survey, s.area)
}

// check requires a single connected component of more than two spots.
func (s *Shuffler) check(m *maze.Maze) bool {
	t := m.Traverse(maze.TraverseOptions{})
	return t.Len() > 2 && len(t.First()) == t.Len()
}

// edges lists the positions on the border facing d.
func (s *Shuffler) edges(d grid.Dir) []grid.Pos {
	var out []grid.Pos
	switch d {
	case grid.Up, grid.Down:
		row := 0
		if d == grid.Down {
			row = s.h - 1
		}
		for x := range s.w {
			out = append(out, grid.PosOf(row, x))
		}
	default:
		col := 0
		if d == grid.Right {
			col = s.w - 1
		}
		for y := range s.h {
			out = append(out, grid.PosOf(y, col))
		}
	}
	return out
}

// randomEdge draws a position on the border facing d.
func (s *Shuffler) randomEdge(d grid.Dir) grid.Pos {
	return random.Pick(s.src, s.edges(d))
}

// retry commits the first of up to n excursions running f that succeeds.
func (s *Shuffler) retry(m *maze.Maze, f func() bool, n int) bool {
	for range n {
		if m.SaveExcursion(f) {
			return true
		}
	}
	return false
}

// fixBorders opens every border edge of pos that scr spans entirely.
// Border edges declared earlier are left alone.
func fixBorders(m *maze.Maze, pos grid.Pos, scr grid.Scr) error {
	for _, d := range grid.AllDirs {
		if m.InBounds(pos.Plus(d)) || scr.Edge(d)&openBorderEdge != openBorderEdge {
			continue
		}
		if err := m.SetBorder(pos, d, openBorderEdge); err != nil && !errors.Is(err, maze.ErrBorderDeclared) {
			return fmt.Errorf("fixing borders of %s: %w", pos, err)
		}
	}
	return nil
}

func filterAlts(alts []maze.Alternate, keep func(*spec.Spec) bool) []maze.Alternate {
	var out []maze.Alternate
	for _, a := range alts {
		if keep(a.Spec) {
			out = append(out, a)
		}
	}
	return out
}

func pop[T any](s *[]T) (T, bool) {
	var zero T
	if len(*s) == 0 {
		return zero, false
	}
	last := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]
	return last, true
}
