package maze

import (
	"iter"

	"github.com/cory-johannsen/caveshuffle/internal/grid"
	"github.com/cory-johannsen/caveshuffle/internal/spec"
)

// Feature bits an alternate may add to a screen.
const (
	firstFeatureBit grid.Scr = 0x1_0000
	lastFeatureBit  grid.Scr = 0x10_0000
)

// Alternate is a feature variant of a set cell with the same edges.
type Alternate struct {
	Pos       grid.Pos
	Current   grid.Scr
	Bit       grid.Scr
	Candidate grid.Scr
	Spec      *spec.Spec
}

// Alternates lazily yields every catalog variant of each set cell that adds
// one feature bit. The sequence reads the grid as it is when iterated; each
// iteration starts over.
func (m *Maze) Alternates() iter.Seq[Alternate] {
	return func(yield func(Alternate) bool) {
		for pos, scr := range m.Screens() {
			for bit := firstFeatureBit; bit <= lastFeatureBit; bit <<= 1 {
				if scr&bit != 0 {
					continue
				}
				cand := scr | bit
				sp, ok := m.screens[cand]
				if !ok {
					continue
				}
				if !yield(Alternate{Pos: pos, Current: scr, Bit: bit, Candidate: cand, Spec: sp}) {
					return
				}
			}
		}
	}
}
