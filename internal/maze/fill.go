package maze

import (
	"iter"
	"math"
	"slices"

	"github.com/cory-johannsen/caveshuffle/internal/grid"
	"github.com/cory-johannsen/caveshuffle/internal/random"
	"github.com/cory-johannsen/caveshuffle/internal/spec"
)

const (
	// pathAttempts bounds the random paths tried per connection or loop.
	pathAttempts = 20
	// maxPathSteps abandons a random path that wanders too long.
	maxPathSteps = 64
)

// FillOptions controls screen selection for the fill family of operations.
type FillOptions struct {
	// Allowed restricts candidates to these screens, in this order. Nil
	// means the whole catalog.
	Allowed []grid.Scr
	// SkipAlternates excludes screens carrying feature bits.
	SkipAlternates bool
	// MaxExits excludes screens with more exits. Zero means no limit.
	MaxExits int
	// Edge, when set, is the edge type assumed for unset neighbors.
	Edge *int
	// Fuzzy allows mismatches against non-fixed neighbors, which are then
	// refilled with Fuzzy-1. Only the least-mismatched candidates are kept.
	Fuzzy int
	// Stair requires a stair in this direction; nil excludes stairs.
	Stair *grid.Dir
	// Replace permits overwriting set cells.
	Replace bool
	// ShuffleOrder visits cells in random order in FillAll.
	ShuffleOrder bool
	// PathAlternatives lists feature nibbles to OR into path screens.
	PathAlternatives map[grid.Scr][]int
}

// EdgeType returns a pointer for FillOptions.Edge.
func EdgeType(e int) *int { return &e }

// StairDir returns a pointer for FillOptions.Stair.
func StairDir(d grid.Dir) *grid.Dir { return &d }

// Eligible lists the catalog screens that may be placed at pos under opts.
// It panics with *InvariantError if Allowed names an unknown screen.
func (m *Maze) Eligible(pos grid.Pos, opts FillOptions) []grid.Scr {
	var defaultScreen grid.Scr
	if opts.Edge != nil {
		e := grid.Scr(*opts.Edge)
		defaultScreen = e | e<<4 | e<<8 | e<<12
	}
	var mask, fuzzyMask, constraint grid.Scr
	for _, d := range grid.AllDirs {
		screen, ok := m.GetDir(pos, d)
		if !ok {
			if opts.Edge == nil {
				continue
			}
			screen = defaultScreen
		}
		inv := screen & d.Inv().EdgeMask()
		constraint |= (inv>>8 | inv<<8) & grid.EdgeBits
		mask |= d.EdgeMask()
		if opts.Fuzzy > 0 && m.IsFixed(pos.Plus(d)) {
			fuzzyMask |= d.EdgeMask()
		}
	}
	if opts.Fuzzy == 0 {
		fuzzyMask = mask
	}
	fuzzyConstraint := constraint & fuzzyMask

	candidates := m.order
	if opts.Allowed != nil {
		candidates = opts.Allowed
	}
	var out []grid.Scr
	fuzziness := math.MaxInt
	for _, scr := range candidates {
		sp, ok := m.screens[scr]
		if !ok {
			invariantf("eligible", pos, "bad screen %s in allowed list", scr)
		}
		if sp.Fixed {
			continue
		}
		if opts.SkipAlternates && scr&^grid.EdgeBits != 0 {
			continue
		}
		if opts.Stair != nil && !slices.ContainsFunc(sp.Stairs, func(s spec.Stair) bool { return s.Dir == *opts.Stair }) {
			continue
		}
		if opts.Stair == nil && len(sp.Stairs) > 0 {
			continue
		}
		if scr&fuzzyMask != fuzzyConstraint {
			continue
		}
		if opts.MaxExits > 0 && scr.NumExits() > opts.MaxExits {
			continue
		}
		if opts.Fuzzy == 0 {
			out = append(out, scr)
			continue
		}
		cmp := (scr & mask) ^ constraint
		fuzz := 0
		for _, d := range grid.AllDirs {
			if cmp&d.EdgeMask() != 0 {
				fuzz++
			}
		}
		switch {
		case fuzz < fuzziness:
			fuzziness = fuzz
			out = []grid.Scr{scr}
		case fuzz == fuzziness:
			out = append(out, scr)
		}
	}
	return out
}

// Fill places a random eligible screen at pos. With Fuzzy set, mismatched
// neighbors are refilled through SetAndUpdate. It returns false when pos is
// out of bounds, nothing is eligible, or pos is occupied without Replace.
func (m *Maze) Fill(pos grid.Pos, opts FillOptions) bool {
	if !m.InBounds(pos) {
		return false
	}
	eligible := m.Eligible(pos, opts)
	if len(eligible) == 0 {
		return false
	}
	pick := random.Pick(m.src, eligible)
	if opts.Fuzzy > 0 {
		return m.SetAndUpdate(pos, pick, opts)
	}
	return m.trySet(pos, pick, opts.Replace)
}

// FillAll fills every unset cell, stopping at the first cell that cannot be
// filled.
func (m *Maze) FillAll(opts FillOptions) bool {
	order := m.AllPos()
	if opts.ShuffleOrder {
		random.Shuffle(m.src, order)
	}
	for _, pos := range order {
		if m.cells[pos].ok {
			continue
		}
		if !m.Fill(pos, opts) {
			m.logger.Debug("could not fill", zapPos(pos))
			return false
		}
	}
	return true
}

// SetAndUpdate writes scr at pos and refills every non-fixed neighbor that
// no longer agrees with it, all inside an excursion. It returns false, with
// no change, if a fixed neighbor disagrees or a neighbor cannot be refilled.
// It panics with *InvariantError if scr is not in the catalog.
func (m *Maze) SetAndUpdate(pos grid.Pos, scr grid.Scr, opts FillOptions) bool {
	if !m.InBounds(pos) {
		return false
	}
	m.requireScreen("setAndUpdate", pos, scr)
	next := opts
	next.Fuzzy = max(opts.Fuzzy-1, 0)
	next.Replace = true
	return m.SaveExcursion(func() bool {
		m.setInternal(pos, scr)
		for _, d := range grid.AllDirs {
			if m.checkFit(pos, d) {
				continue
			}
			pos2 := pos.Plus(d)
			if m.IsFixed(pos2) {
				return false
			}
			if !m.Fill(pos2, next) {
				return false
			}
		}
		return true
	})
}

// fillPath walks path from pos, starting in direction d, laying screens of
// exitType, then fills the cell after the last step.
func (m *Maze) fillPath(pos grid.Pos, d grid.Dir, path iter.Seq[grid.Turn], exitType int, opts FillOptions) bool {
	return m.SaveExcursion(func() bool {
		steps := 0
		for step := range path {
			if steps++; steps > maxPathSteps {
				return false
			}
			next := d.Turn(step)
			pos = pos.Plus(d)
			scr := grid.FromExits(grid.MaskOf(d.Inv(), next), exitType)
			if alts := opts.PathAlternatives[scr]; len(alts) > 0 {
				scr |= grid.Scr(random.Pick(m.src, alts)) << 16
			}
			if !m.trySet(pos, scr, opts.Replace) {
				return false
			}
			d = next
		}
		end := opts
		end.MaxExits = 2
		return m.Fill(pos.Plus(d), end)
	})
}

// tryPaths carves up to pathAttempts random paths from pos (leaving in
// direction d) to the cell target, stopping at the first that succeeds.
func (m *Maze) tryPaths(pos grid.Pos, d grid.Dir, target grid.Pos, exitType int, opts FillOptions) bool {
	forward, right := pos.Relative(d, target)
	attempts := 0
	for path := range grid.Paths(m.src, forward, right) {
		if m.fillPath(pos, d, path, exitType, opts) {
			return true
		}
		if attempts++; attempts > pathAttempts {
			return false
		}
	}
	return false
}

// Extension is a way to grow the filled structure by one exit: replacing
// the screen at Pos with Scr opens an exit toward the unset neighbor in Dir.
type Extension struct {
	Pos grid.Pos
	Scr grid.Scr
	Dir grid.Dir
	// Partition groups extensions whose targets lie in the same connected
	// region of unset cells: region<<4 | exit type.
	Partition int
}

// ExitType returns the edge type of the new exit.
func (e Extension) ExitType() int {
	return e.Partition & 0xf
}

// Extensions lists every available extension in row-major order.
func (m *Maze) Extensions() []Extension {
	uf := newUnionFind[grid.Pos]()
	var exts []Extension
	for _, pos := range m.AllPos() {
		c := m.cells[pos]
		if !c.ok {
			uf.add(pos)
			if pos.Col() > 0 && m.unfilled(pos-1) {
				uf.union(pos, pos-1)
			}
			if m.unfilled(pos - 16) {
				uf.union(pos, pos-16)
			}
			continue
		}
		for _, ext := range m.screenExtensions[c.scr&grid.EdgeBits] {
			if m.unfilled(pos.Plus(ext.dir)) {
				exts = append(exts, Extension{Pos: pos, Scr: ext.scr, Dir: ext.dir})
			}
		}
	}
	for i := range exts {
		root := uf.find(exts[i].Pos.Plus(exts[i].Dir))
		exts[i].Partition = int(root)<<4 | exts[i].Scr.Edge(exts[i].Dir)
	}
	return exts
}

// Connect carves a path of screens from the single open exit of from to the
// single open exit of to, using the exit type of from. It returns false if
// either endpoint lacks a unique open exit or no path can be laid.
// It panics with *InvariantError if the two exits have different types.
func (m *Maze) Connect(from, to grid.Pos, opts FillOptions) bool {
	return m.connect(from, &to, opts)
}

// ConnectAny carves a path from the single open exit of from to a fresh
// extension of the existing structure with a matching exit type.
func (m *Maze) ConnectAny(from grid.Pos, opts FillOptions) bool {
	return m.connect(from, nil, opts)
}

func (m *Maze) connect(pos1 grid.Pos, to *grid.Pos, opts FillOptions) bool {
	dir1, ok := m.FindEmptyDir(pos1)
	if !ok {
		return false
	}
	scr1, _ := m.Get(pos1)
	exitType := scr1.Edge(dir1)
	var pos2 grid.Pos
	if to != nil {
		pos2 = *to
	} else {
		var matching []Extension
		for _, e := range m.Extensions() {
			if e.ExitType() == exitType {
				matching = append(matching, e)
			}
		}
		if len(matching) == 0 {
			return false
		}
		ext := random.Pick(m.src, matching)
		m.Replace(ext.Pos, ext.Scr)
		pos2 = ext.Pos
	}
	dir2, ok := m.FindEmptyDir(pos2)
	if !ok {
		return false
	}
	scr2, _ := m.Get(pos2)
	if scr2.Edge(dir2) != exitType {
		invariantf("connect", pos2, "incompatible exit types %d and %d", exitType, scr2.Edge(dir2))
	}
	return m.tryPaths(pos1, dir1, pos2.Plus(dir2), exitType, opts)
}

// AddLoop extends two exits of one extension partition and joins them with a
// new path, growing the structure without disconnecting anything. It
// returns false, with no change, if no partition offers two extensions on
// distinct cells or no path can be laid.
func (m *Maze) AddLoop(opts FillOptions) bool {
	var keys []int
	groups := make(map[int][]Extension)
	for _, e := range m.Extensions() {
		if _, ok := groups[e.Partition]; !ok {
			keys = append(keys, e.Partition)
		}
		groups[e.Partition] = append(groups[e.Partition], e)
	}
	random.Shuffle(m.src, keys)
	var first, second Extension
	found := false
	for len(keys) > 0 && !found {
		part := groups[keys[len(keys)-1]]
		keys = keys[:len(keys)-1]
		if len(part) < 2 {
			continue
		}
		random.Shuffle(m.src, part)
		first = part[0]
		for _, e := range part[1:] {
			if e.Pos != first.Pos {
				second, found = e, true
				break
			}
		}
	}
	if !found {
		return false
	}
	loopOpts := opts
	loopOpts.Replace = true
	return m.SaveExcursion(func() bool {
		m.Replace(first.Pos, first.Scr)
		m.Replace(second.Pos, second.Scr)
		end := second.Pos.Plus(second.Dir)
		if first.Pos.Plus(first.Dir) == end {
			endOpts := loopOpts
			endOpts.MaxExits = 2
			return m.Fill(end, endOpts)
		}
		return m.tryPaths(first.Pos, first.Dir, end, first.ExitType(), loopOpts)
	})
}
