package maze

import "slices"

// SaveExcursion runs f against the current grid and keeps its mutations only
// if f returns true. On a false return or a panic the grid, borders and
// dimensions are restored to exactly their state on entry; the panic then
// propagates.
//
// Excursions nest: an inner excursion commits into the enclosing one, which
// may still roll it back.
func (m *Maze) SaveExcursion(f func() bool) bool {
	cells := slices.Clone(m.cells)
	border := slices.Clone(m.border)
	height, width := m.height, m.width
	keep := false
	defer func() {
		if !keep {
			m.cells, m.border = cells, border
			m.height, m.width = height, width
		}
	}()
	keep = f()
	return keep
}
