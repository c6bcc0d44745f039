package cave

import (
	"fmt"

	"github.com/zyedidia/generic/mapset"

	"github.com/cory-johannsen/caveshuffle/internal/grid"
	"github.com/cory-johannsen/caveshuffle/internal/maze"
	"github.com/cory-johannsen/caveshuffle/internal/random"
	"github.com/cory-johannsen/caveshuffle/internal/spec"
)

// River ends entering from the top or bottom of the grid.
const (
	riverEndDown grid.Scr = 0x1_0300
	riverEndUp   grid.Scr = 0x1_0003
)

const (
	// riverLoopStalls is the number of consecutive failed loops after which
	// branchRiver settles for the density it has.
	riverLoopStalls = 10
	// maxDeletedLand is the largest unreachable land pocket that is deleted
	// rather than rerolled.
	maxDeletedLand = 2
)

// Retry budgets of the river pipeline steps.
const (
	initialRiverTries  = 5
	branchRiverTries   = 5
	connectLandTries   = 3
	removeBridgesTries = 5
	addStairsTries     = 3
)

// riverShuffle lays the river first, hangs the land off it, and only then
// runs the usual refinement over the land.
func (s *Shuffler) riverShuffle(m *maze.Maze) bool {
	steps := []struct {
		name  string
		f     func(*maze.Maze) bool
		tries int
	}{
		{"initial river", s.makeInitialRiver, initialRiverTries},
		{"branched river", s.branchRiver, branchRiverTries},
		{"connected land", s.connectLand, connectLandTries},
		{"removed bridges", s.removeBridges, removeBridgesTries},
		{"added stairs", s.addRiverStairs, addStairsTries},
	}
	for _, step := range steps {
		if !s.retry(m, func() bool { return step.f(m) }, step.tries) {
			return s.fail(step.name + " failed")
		}
		s.trace(step.name, m)
	}

	var locked []grid.Pos
	for _, pos := range s.river.slice() {
		if !s.fixed.has(pos) {
			s.fixed.add(pos)
			locked = append(locked, pos)
		}
	}
	if !s.phases.refineMaze(m) {
		return false
	}
	for _, pos := range locked {
		s.fixed.remove(pos)
	}
	s.bridges = 0
	if !s.phases.addFeatures(m) {
		return false
	}
	s.trace("features", m)
	if !m.FillAll(maze.FillOptions{Edge: maze.EdgeType(0)}) {
		return s.fail("could not close river cave")
	}
	return s.finish(m)
}

// makeInitialRiver joins a river end on the left column to one on the right.
func (s *Shuffler) makeInitialRiver(m *maze.Maze) bool {
	if s.h < 3 || s.w < 2 {
		return s.fail("river cave needs three rows and two columns")
	}
	end := func(y int) grid.Scr {
		if 2*y < s.h {
			return riverEndDown
		}
		return riverEndUp
	}
	leftY := s.src.Intn(s.h-2) + 1
	rightY := s.src.Intn(s.h-2) + 1
	left := grid.PosOf(leftY, 0)
	right := grid.PosOf(rightY, s.w-1)
	if !m.TrySet(left, end(leftY)) || !m.TrySet(right, end(rightY)) {
		return s.fail("could not place river ends")
	}
	return m.Connect(left, right, maze.FillOptions{
		Allowed:          spec.CaveRiver.InitialAllowed,
		PathAlternatives: spec.CaveRiver.PathAlternatives,
	})
}

// branchRiver grows loops off the river toward the surveyed water density
// and records every filled cell as river.
func (s *Shuffler) branchRiver(m *maze.Maze) bool {
	target := float64(s.survey.Rivers) / float64(s.w*s.h)
	opts := maze.FillOptions{
		Allowed:          spec.CaveRiver.LoopAllowed,
		PathAlternatives: spec.CaveRiver.PathAlternatives,
	}
	for stalls := 0; stalls < riverLoopStalls && m.Density() < target; stalls++ {
		if m.AddLoop(opts) {
			stalls = -1
		}
	}
	s.river = newPosSet()
	for pos, scr := range m.Screens() {
		if scr != 0 {
			s.river.add(pos)
		}
	}
	return true
}

// connectLand fills the land and splices every land partition into a river
// bank. Pockets that cannot be joined are deleted when small.
func (s *Shuffler) connectLand(m *maze.Maze) bool {
	s.landPartitions = nil
	if !s.phases.initialFillMaze(m) {
		return false
	}
	t := m.Traverse(maze.TraverseOptions{})

partitions:
	for _, part := range t.Partitions() {
		positions := newPosSet()
		for _, spot := range part {
			pos := spot.Pos()
			if s.river.has(pos) {
				continue partitions
			}
			// A spot is named from one side of its edge; claim the other.
			cells := []grid.Pos{pos}
			if spot&0x0f == 0 {
				cells = append(cells, pos-1)
			} else if spot&0xf0 == 0 {
				cells = append(cells, pos-16)
			}
			for _, c := range cells {
				if _, ok := m.Get(c); ok {
					positions.add(c)
				}
			}
		}
		s.landPartitions = append(s.landPartitions, positions)

		found := false
		for pos := range random.IShuffle(s.src, positions.slice()) {
			spliced := false
			for _, d := range grid.AllDirs {
				bank, ok := m.Get(pos.Plus(d))
				if !ok || bank&grid.EdgeBits != bankScreen(d) {
					continue
				}
				cur, _ := m.Get(pos)
				next := cur | grid.Scr(1)<<d.Shift()
				if !m.HasScreen(next) || !m.SetAndUpdate(pos, next, maze.FillOptions{Replace: true}) {
					continue
				}
				found, spliced = true, true
				break
			}
			if spliced && s.src.Intn(2) == 0 {
				continue partitions
			}
		}
		if found {
			continue
		}
		if positions.len() > maxDeletedLand {
			return s.fail(fmt.Sprintf("land partition of %d cells is unreachable", positions.len()))
		}
		for _, pos := range positions.slice() {
			m.Delete(pos)
		}
		s.landPartitions = s.landPartitions[:len(s.landPartitions)-1]
	}
	return s.phases.check(m)
}

// bankScreen is the straight river segment a land cell in direction d of it
// can open onto.
func bankScreen(d grid.Dir) grid.Scr {
	if d.Horizontal() {
		return 0x0303
	}
	return 0x3030
}

// removeBridges breaks bridges over the river, in random order, until the
// survey's bridge budget is met.
func (s *Shuffler) removeBridges(m *maze.Maze) bool {
	for pos := range random.IShuffle(s.src, s.river.slice()) {
		if s.riverBridges(m) <= s.survey.Bridges {
			break
		}
		scr, ok := m.Get(pos)
		if !ok {
			panic(&maze.InvariantError{Op: "removeBridges", Pos: pos, Msg: "expected a screen"})
		}
		for opt := range random.IShuffle(s.src, spec.CaveRiver.RemoveBridge[scr]) {
			next := scr&grid.EdgeBits | grid.Scr(opt)<<16
			if !m.HasScreen(next) {
				continue
			}
			ok := m.SaveExcursion(func() bool {
				m.Replace(pos, next)
				return s.phases.check(m)
			})
			if ok {
				break
			}
		}
	}
	return s.riverBridges(m) <= s.survey.Bridges
}

func (s *Shuffler) riverBridges(m *maze.Maze) int {
	n := 0
	for _, pos := range s.river.slice() {
		if sp := m.Spec(pos); sp != nil && sp.Wall != nil && sp.Wall.Type == spec.WallTypeBridge {
			n++
		}
	}
	return n
}

// addRiverStairs places the fixed screens on land, then gives every stair a
// land partition of its own.
func (s *Shuffler) addRiverStairs(m *maze.Maze) bool {
	if len(s.survey.Edges) > 0 {
		panic(&maze.InvariantError{Op: "addStairs", Pos: s.survey.Edges[0].Pos, Msg: "river caves have no edge exits"})
	}
	opts := maze.FillOptions{Replace: true, SkipAlternates: true}
	// Placements are committed into the enclosing retry excursion, so fixed
	// positions claimed here are released again on failure.
	var claimed []grid.Pos
	release := func() bool {
		for _, pos := range claimed {
			s.fixed.remove(pos)
		}
		return false
	}
	claim := func(pos grid.Pos) {
		s.fixed.add(pos)
		claimed = append(claimed, pos)
	}

	for _, f := range s.survey.Fixed {
		placed := false
		for pos := range random.IShuffle(s.src, s.allPos) {
			if s.fixed.has(pos) || s.river.has(pos) {
				continue
			}
			ok := m.SaveExcursion(func() bool {
				return m.SetAndUpdate(pos, f.Spec.Edges, opts) && s.phases.check(m)
			})
			if ok {
				claim(pos)
				placed = true
				break
			}
		}
		if !placed {
			s.fail(fmt.Sprintf("could not place fixed screen %s", f.Spec.Edges))
			return release()
		}
	}

	var keys []grid.Pos
	partitionOf := make(map[grid.Pos]int)
	for i, part := range s.landPartitions {
		for _, pos := range part.slice() {
			if _, ok := partitionOf[pos]; !ok {
				keys = append(keys, pos)
			}
			partitionOf[pos] = i
		}
	}
	stairs := s.survey.Stairs
	seen := mapset.New[int]()
	for pos := range random.IShuffle(s.src, keys) {
		if len(stairs) == 0 {
			break
		}
		part := partitionOf[pos]
		if seen.Has(part) || s.fixed.has(pos) {
			continue
		}
		for _, stairScr := range spec.CaveRiver.StairScreens[stairs[0].Dir] {
			if !m.HasScreen(stairScr) {
				continue
			}
			ok := m.SaveExcursion(func() bool {
				return m.SetAndUpdate(pos, stairScr, opts) && s.phases.check(m)
			})
			if !ok {
				continue
			}
			stairs = stairs[1:]
			claim(pos)
			seen.Put(part)
			break
		}
	}
	if len(stairs) > 0 {
		s.fail(fmt.Sprintf("%d stairs left without a land partition", len(stairs)))
		return release()
	}
	return true
}
