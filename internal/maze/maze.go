// Package maze implements the mutable screen grid a cave layout is built in,
// along with the fill, path carving and connectivity primitives the shuffle
// strategies compose.
package maze

import (
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/cory-johannsen/caveshuffle/internal/area"
	"github.com/cory-johannsen/caveshuffle/internal/grid"
	"github.com/cory-johannsen/caveshuffle/internal/random"
	"github.com/cory-johannsen/caveshuffle/internal/spec"
)

// Finisher writes a completed maze back into an area.
type Finisher interface {
	Finish(m *Maze, s *spec.Survey, a *area.Area) error
}

// cell is one grid slot. A set cell holding screen 0 is an explicit empty
// screen; an unset cell is unfilled.
type cell struct {
	scr grid.Scr
	ok  bool
}

type extension struct {
	dir grid.Dir
	scr grid.Scr
}

// Maze is the grid for one shuffle attempt.
//
// Invariant: len(cells) == len(border) == height<<4.
type Maze struct {
	src      random.Source
	logger   *zap.Logger
	finisher Finisher

	height int
	width  int
	cells  []cell
	// border holds, per cell, the screen value of the imaginary neighbor
	// beyond the grid edge. Only nibbles facing back into the grid are used.
	border []grid.Scr

	screens map[grid.Scr]*spec.Spec
	// order lists the catalog screens in insertion order.
	order []grid.Scr
	// screenExtensions maps an edge signature to the screens that add
	// exactly one exit to it.
	screenExtensions map[grid.Scr][]extension
}

// Option configures a Maze.
type Option func(*Maze)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Maze) { m.logger = logger }
}

// WithFinisher sets the write-back collaborator invoked by Finish.
func WithFinisher(f Finisher) Option {
	return func(m *Maze) { m.finisher = f }
}

// New creates an empty maze of the given size over the screen catalog specs.
// When several specs share an edge signature the last one wins.
//
// Precondition: 1 <= height <= 16, 1 <= width <= 16, src non-nil.
func New(src random.Source, height, width int, specs []*spec.Spec, opts ...Option) *Maze {
	if height < 1 || height > 16 || width < 1 || width > 16 {
		panic(fmt.Sprintf("maze: invalid dimensions %dx%d", width, height))
	}
	m := &Maze{
		src:              src,
		logger:           zap.NewNop(),
		height:           height,
		width:            width,
		cells:            make([]cell, height<<4),
		border:           make([]grid.Scr, height<<4),
		screens:          make(map[grid.Scr]*spec.Spec, len(specs)),
		screenExtensions: make(map[grid.Scr][]extension),
	}
	for _, sp := range specs {
		if _, ok := m.screens[sp.Edges]; !ok {
			m.order = append(m.order, sp.Edges)
		}
		m.screens[sp.Edges] = sp
	}
	for _, scr := range m.order {
		if m.screens[scr].Fixed {
			continue
		}
		for _, d := range grid.AllDirs {
			mask := d.EdgeMask()
			if scr&mask != 0 {
				key := scr &^ mask & grid.EdgeBits
				m.screenExtensions[key] = append(m.screenExtensions[key], extension{dir: d, scr: scr})
			}
		}
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Height returns the number of rows.
func (m *Maze) Height() int { return m.height }

// Width returns the number of columns.
func (m *Maze) Width() int { return m.width }

// Random returns the maze's random source.
func (m *Maze) Random() random.Source { return m.src }

// Logger returns the maze's logger.
func (m *Maze) Logger() *zap.Logger { return m.logger }

// InBounds reports whether pos is a cell of the grid.
func (m *Maze) InBounds(pos grid.Pos) bool {
	return pos >= 0 && pos.Col() < m.width && pos.Row() < m.height
}

// AllPos returns every in-bounds position in row-major order.
func (m *Maze) AllPos() []grid.Pos {
	out := make([]grid.Pos, 0, m.width*m.height)
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			out = append(out, grid.PosOf(y, x))
		}
	}
	return out
}

// Screens yields every set cell (including explicit empty screens) in
// row-major order.
func (m *Maze) Screens() iter.Seq2[grid.Pos, grid.Scr] {
	return func(yield func(grid.Pos, grid.Scr) bool) {
		for _, pos := range m.AllPos() {
			c := m.cells[pos]
			if !c.ok {
				continue
			}
			if !yield(pos, c.scr) {
				return
			}
		}
	}
}

// HasScreen reports whether scr is in the catalog.
func (m *Maze) HasScreen(scr grid.Scr) bool {
	_, ok := m.screens[scr]
	return ok
}

// Catalog returns the spec for scr, or nil.
func (m *Maze) Catalog(scr grid.Scr) *spec.Spec {
	return m.screens[scr]
}

// Get returns the screen at pos and whether the cell is set.
func (m *Maze) Get(pos grid.Pos) (grid.Scr, bool) {
	if !m.InBounds(pos) {
		return 0, false
	}
	c := m.cells[pos]
	return c.scr, c.ok
}

// GetDir returns the neighbor of pos in direction d. A neighbor beyond the
// grid edge is always present and reads as the border override (zero,
// blocked, unless SetBorder declared otherwise).
func (m *Maze) GetDir(pos grid.Pos, d grid.Dir) (grid.Scr, bool) {
	next := pos.Plus(d)
	if !m.InBounds(next) {
		if !m.InBounds(pos) {
			return 0, true
		}
		return m.border[pos] & d.Inv().EdgeMask(), true
	}
	c := m.cells[next]
	return c.scr, c.ok
}

// Spec returns the catalog spec of the screen at pos, or nil when the cell
// is unset.
func (m *Maze) Spec(pos grid.Pos) *spec.Spec {
	scr, ok := m.Get(pos)
	if !ok {
		return nil
	}
	return m.screens[scr]
}

// unfilled reports whether pos is an in-bounds unset cell.
func (m *Maze) unfilled(pos grid.Pos) bool {
	return m.InBounds(pos) && !m.cells[pos].ok
}

// Fits reports whether scr agrees with every set neighbor and border of pos.
func (m *Maze) Fits(pos grid.Pos, scr grid.Scr) bool {
	for _, d := range grid.AllDirs {
		n, ok := m.GetDir(pos, d)
		if !ok {
			continue
		}
		if scr.Edge(d) != n.Edge(d.Inv()) {
			return false
		}
	}
	return true
}

func (m *Maze) checkFit(pos grid.Pos, d grid.Dir) bool {
	scr, ok := m.Get(pos)
	n, nok := m.GetDir(pos, d)
	if !ok || !nok {
		return true
	}
	return scr.Edge(d) == n.Edge(d.Inv())
}

func (m *Maze) setInternal(pos grid.Pos, scr grid.Scr) {
	m.cells[pos] = cell{scr: scr, ok: true}
}

func (m *Maze) requireScreen(op string, pos grid.Pos, scr grid.Scr) {
	if _, ok := m.screens[scr]; !ok {
		invariantf(op, pos, "no such screen %s", scr)
	}
}

// Set writes scr into the cell at pos without checking its neighbors.
//
// Precondition: pos is in bounds and scr is in the catalog. Panics with
// *InvariantError otherwise.
func (m *Maze) Set(pos grid.Pos, scr grid.Scr) {
	if !m.InBounds(pos) {
		invariantf("set", pos, "out of bounds")
	}
	m.requireScreen("set", pos, scr)
	m.setInternal(pos, scr)
}

// Replace overwrites the cell at pos, set or not, with a fitting screen.
//
// Precondition: pos in bounds, scr fits and is in the catalog. Panics with
// *InvariantError otherwise.
func (m *Maze) Replace(pos grid.Pos, scr grid.Scr) {
	if !m.InBounds(pos) || !m.Fits(pos, scr) {
		invariantf("replace", pos, "cannot place %s", scr)
	}
	m.requireScreen("replace", pos, scr)
	m.setInternal(pos, scr)
}

// TrySet writes scr into the unset cell at pos if it fits, reporting success.
// It panics with *InvariantError if scr is not in the catalog.
func (m *Maze) TrySet(pos grid.Pos, scr grid.Scr) bool {
	return m.trySet(pos, scr, false)
}

func (m *Maze) trySet(pos grid.Pos, scr grid.Scr, replace bool) bool {
	if !m.InBounds(pos) {
		return false
	}
	if !replace && m.cells[pos].ok {
		return false
	}
	if !m.Fits(pos, scr) {
		return false
	}
	m.requireScreen("trySet", pos, scr)
	m.setInternal(pos, scr)
	return true
}

// Delete unsets the cell at pos.
func (m *Maze) Delete(pos grid.Pos) {
	if m.InBounds(pos) {
		m.cells[pos] = cell{}
	}
}

// SetBorder declares that the edge of pos facing d, which leaves the grid,
// connects to an imaginary neighbor with the given edge type.
//
// Precondition: pos is on the border facing d, is still unset, and that
// border edge has not been declared.
func (m *Maze) SetBorder(pos grid.Pos, d grid.Dir, edge int) error {
	if !m.InBounds(pos) || m.InBounds(pos.Plus(d)) {
		return fmt.Errorf("not on border: %s %s", pos, d)
	}
	if m.cells[pos].ok {
		return fmt.Errorf("border %s %s: cell already set", pos, d)
	}
	inv := d.Inv()
	if m.border[pos]&inv.EdgeMask() != 0 {
		return fmt.Errorf("border %s %s: %w", pos, d, ErrBorderDeclared)
	}
	m.border[pos] |= grid.Scr(edge) << inv.Shift()
	return nil
}

// ReplaceEdge sets the shared edge between pos and its neighbor in d to edge
// on both sides. It returns false, leaving the grid untouched, when either
// resulting screen is not in the catalog.
//
// Precondition: pos and its neighbor are in bounds and set. Panics with
// *InvariantError otherwise.
func (m *Maze) ReplaceEdge(pos grid.Pos, d grid.Dir, edge int) bool {
	pos2 := pos.Plus(d)
	if !m.InBounds(pos) {
		invariantf("replaceEdge", pos, "out of bounds")
	}
	if !m.InBounds(pos2) {
		invariantf("replaceEdge", pos2, "out of bounds")
	}
	c1, c2 := m.cells[pos], m.cells[pos2]
	if !c1.ok {
		invariantf("replaceEdge", pos, "no screen")
	}
	if !c2.ok {
		invariantf("replaceEdge", pos2, "no screen")
	}
	scr1 := c1.scr.WithEdge(d, edge)
	scr2 := c2.scr.WithEdge(d.Inv(), edge)
	if !m.HasScreen(scr1) || !m.HasScreen(scr2) {
		return false
	}
	m.setInternal(pos, scr1)
	m.setInternal(pos2, scr2)
	return true
}

// IsFixed reports whether pos must not be touched by generic refinement.
// Positions outside the grid are fixed.
func (m *Maze) IsFixed(pos grid.Pos) bool {
	if !m.InBounds(pos) {
		return true
	}
	c := m.cells[pos]
	if !c.ok {
		return false
	}
	sp := m.screens[c.scr]
	return sp != nil && (sp.Fixed || len(sp.Stairs) > 0)
}

// Size counts the non-empty set cells.
func (m *Maze) Size() int {
	n := 0
	for _, pos := range m.AllPos() {
		if c := m.cells[pos]; c.ok && c.scr != 0 {
			n++
		}
	}
	return n
}

// Density returns the fraction of the grid holding non-empty screens.
func (m *Maze) Density() float64 {
	return float64(m.Size()) / float64(m.width*m.height)
}

// RandomPos draws a uniformly random in-bounds position.
func (m *Maze) RandomPos() grid.Pos {
	return random.Pick(m.src, m.AllPos())
}

// FindEmptyDir returns the single direction in which the screen at pos has
// an exit leading to an unset cell. It reports false if pos is unset or
// there is not exactly one such direction.
func (m *Maze) FindEmptyDir(pos grid.Pos) (grid.Dir, bool) {
	scr, ok := m.Get(pos)
	if !ok {
		return 0, false
	}
	var found []grid.Dir
	for _, d := range grid.AllDirs {
		if scr.Edge(d) != 0 && m.unfilled(pos.Plus(d)) {
			found = append(found, d)
		}
	}
	if len(found) != 1 {
		return 0, false
	}
	return found[0], true
}

func zapPos(pos grid.Pos) zap.Field {
	return zap.Stringer("pos", pos)
}

// Finish trims the grid and hands it to the finisher. It returns false,
// logging the cause, if write-back fails. A maze without a finisher always
// finishes.
func (m *Maze) Finish(s *spec.Survey, a *area.Area) bool {
	m.Trim()
	if m.finisher == nil {
		return true
	}
	if err := m.finisher.Finish(m, s, a); err != nil {
		m.logger.Debug("reroll", zap.String("reason", err.Error()))
		return false
	}
	return true
}
