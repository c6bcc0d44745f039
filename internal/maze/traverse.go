package maze

import (
	"github.com/zyedidia/generic/mapset"

	"github.com/cory-johannsen/caveshuffle/internal/grid"
)

// TraverseOptions controls a connectivity query.
type TraverseOptions struct {
	// Without treats these cells as removed.
	Without []grid.Pos
	// Flight joins every channel group of a cell, ignoring water, except on
	// dead ends.
	Flight bool
	// NoFlagged keeps walls closed. By default walls count as broken.
	NoFlagged bool
}

// Spot names a connection point on a cell edge: pos<<8 + channel. Cells
// sharing an edge share its spots.
type Spot int

// Pos returns the cell the spot was named from.
func (s Spot) Pos() grid.Pos {
	return grid.Pos(s >> 8)
}

// Traversal groups spots into connected partitions.
type Traversal struct {
	parts  [][]Spot
	partOf map[Spot]int
}

// Len returns the number of reachable spots.
func (t *Traversal) Len() int {
	return len(t.partOf)
}

// Partitions returns the partitions in deterministic order.
func (t *Traversal) Partitions() [][]Spot {
	return t.parts
}

// First returns the partition of the first spot, or nil if none.
func (t *Traversal) First() []Spot {
	if len(t.parts) == 0 {
		return nil
	}
	return t.parts[0]
}

// PartitionOf returns the index of the partition holding s.
func (t *Traversal) PartitionOf(s Spot) (int, bool) {
	i, ok := t.partOf[s]
	return i, ok
}

// Connected reports whether every spot lies in one partition.
func (t *Traversal) Connected() bool {
	return len(t.parts) > 0 && len(t.parts[0]) == t.Len()
}

// Traverse computes the connected partitions of the current grid.
func (m *Maze) Traverse(opts TraverseOptions) *Traversal {
	without := mapset.New[grid.Pos]()
	for _, p := range opts.Without {
		without.Put(p)
	}
	flagged := !opts.NoFlagged
	uf := newUnionFind[Spot]()
	spots := func(pos grid.Pos, channels []int) []Spot {
		out := make([]Spot, len(channels))
		for i, c := range channels {
			out[i] = Spot(int(pos)<<8 + c)
		}
		return out
	}
	for _, pos := range m.AllPos() {
		if without.Has(pos) {
			continue
		}
		c := m.cells[pos]
		if !c.ok {
			continue
		}
		sp := m.screens[c.scr]
		if sp == nil {
			continue
		}
		for _, conn := range sp.Connections {
			uf.union(spots(pos, conn)...)
		}
		if sp.Wall != nil {
			for _, conn := range sp.Wall.Connections(flagged) {
				uf.union(spots(pos, conn)...)
			}
		}
		if opts.Flight && len(sp.Connections) > 0 && !sp.DeadEnd {
			firsts := make([]int, len(sp.Connections))
			for i, conn := range sp.Connections {
				firsts[i] = conn[0]
			}
			uf.union(spots(pos, firsts)...)
		}
	}
	t := &Traversal{parts: uf.sets(), partOf: make(map[Spot]int)}
	for i, part := range t.parts {
		for _, s := range part {
			t.partOf[s] = i
		}
	}
	return t
}
