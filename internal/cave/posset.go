package cave

import (
	"slices"

	"github.com/zyedidia/generic/mapset"

	"github.com/cory-johannsen/caveshuffle/internal/grid"
)

// posSet is a set of positions that remembers insertion order, so that
// anything shuffled from it is reproducible for a given seed.
type posSet struct {
	members mapset.Set[grid.Pos]
	order   []grid.Pos
}

func newPosSet() *posSet {
	return &posSet{members: mapset.New[grid.Pos]()}
}

func (s *posSet) add(pos grid.Pos) {
	if s.members.Has(pos) {
		return
	}
	s.members.Put(pos)
	s.order = append(s.order, pos)
}

func (s *posSet) has(pos grid.Pos) bool {
	return s.members.Has(pos)
}

func (s *posSet) remove(pos grid.Pos) {
	if !s.members.Has(pos) {
		return
	}
	s.members.Remove(pos)
	s.order = slices.DeleteFunc(s.order, func(p grid.Pos) bool { return p == pos })
}

func (s *posSet) len() int {
	return len(s.order)
}

// slice returns the members in insertion order. The result is a copy.
func (s *posSet) slice() []grid.Pos {
	return slices.Clone(s.order)
}
