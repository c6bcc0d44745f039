// Package writeback installs a finished maze into an area: it maps the
// original fixed screens, exits and stairs onto their new positions, writes
// tiles and flags, and relocates spawns.
package writeback

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/cory-johannsen/caveshuffle/internal/area"
	"github.com/cory-johannsen/caveshuffle/internal/grid"
	"github.com/cory-johannsen/caveshuffle/internal/maze"
	"github.com/cory-johannsen/caveshuffle/internal/random"
	"github.com/cory-johannsen/caveshuffle/internal/spec"
)

var (
	// ErrUnplaced is returned when the maze lacks a screen the survey requires.
	ErrUnplaced = errors.New("required screen not placed")
	// ErrNoFlags is returned when walls outnumber the area's flags.
	ErrNoFlags = errors.New("no flag available for wall")
	// ErrIncomplete is returned when a cell of the maze is unset.
	ErrIncomplete = errors.New("maze has unset cells")
)

// Flag written for screens that always need one.
const fixedScreenFlag = 0x2f0

// The trigger that follows the screen above the original 0x21 screen.
const (
	followTrigger    = 0x8c
	followTriggerPos = grid.Pos(0x21)
)

// Finisher is the default maze.Finisher.
type Finisher struct {
	logger *zap.Logger
}

// New creates a Finisher.
//
// Precondition: logger must be non-nil.
func New(logger *zap.Logger) *Finisher {
	return &Finisher{logger: logger}
}

type stairPlace struct {
	pos      grid.Pos
	entrance spec.EntranceSpec
}

type pixel struct {
	y, x int
}

// run carries the working state of one write-back.
type run struct {
	m   *maze.Maze
	s   *spec.Survey
	a   *area.Area
	src random.Source
	log *zap.Logger

	fixedPos      map[grid.Scr][]grid.Pos
	poi           map[int][]pixel
	allEdges      [4][]grid.Pos
	fixedEdges    [4][]grid.Pos
	allStairs     [4][]stairPlace
	posMapping    map[grid.Pos]grid.Pos
	displacements map[grid.Pos][2]int
}

// Finish writes m into a. The area is only modified if every step succeeds.
//
// Postcondition: on nil error, a's screens, entrances, exits, flags and
// spawns describe m.
func (f *Finisher) Finish(m *maze.Maze, s *spec.Survey, a *area.Area) error {
	r := &run{
		m:             m,
		s:             s,
		a:             a.Clone(),
		src:           m.Random(),
		log:           f.logger,
		fixedPos:      make(map[grid.Scr][]grid.Pos),
		poi:           make(map[int][]pixel),
		posMapping:    make(map[grid.Pos]grid.Pos),
		displacements: make(map[grid.Pos][2]int),
	}
	r.index()
	if err := r.shuffleFixed(); err != nil {
		return err
	}
	if err := r.placeExits(); err != nil {
		return err
	}
	if err := r.write(); err != nil {
		return err
	}
	if err := r.placeSpawns(); err != nil {
		return err
	}
	*a = *r.a
	f.logger.Debug("layout written",
		zap.String("area", a.Label()),
		zap.Int("width", a.Width),
		zap.Int("height", a.Height),
	)
	return nil
}

func (r *run) index() {
	for pos, scr := range r.m.Screens() {
		sp := r.m.Catalog(scr)
		if sp == nil {
			continue
		}
		if sp.Fixed {
			r.fixedPos[scr] = append(r.fixedPos[scr], pos)
		}
		for _, p := range sp.Poi {
			r.poi[p.Priority] = append(r.poi[p.Priority], pixel{
				y: pos.Row()<<8 + p.DY,
				x: pos.Col()<<8 + p.DX,
			})
		}
		if st, ok := r.s.Set.StairScreen(scr); ok {
			r.allStairs[st.Dir] = append(r.allStairs[st.Dir], stairPlace{pos: pos, entrance: st.Entrance})
		}
	}
	for _, d := range grid.AllDirs {
		for _, pos := range edgePositions(r.m, d) {
			scr, ok := r.m.Get(pos)
			if !ok || scr == 0 {
				continue
			}
			if t := scr.Edge(d); t == 0 || t == 7 {
				continue
			}
			if sp := r.m.Catalog(scr); sp != nil && sp.Fixed {
				r.fixedEdges[d] = append(r.fixedEdges[d], pos)
			} else {
				r.allEdges[d] = append(r.allEdges[d], pos)
			}
		}
	}
}

// edgePositions lists the cells on the border facing d.
func edgePositions(m *maze.Maze, d grid.Dir) []grid.Pos {
	var out []grid.Pos
	switch d {
	case grid.Up, grid.Down:
		row := 0
		if d == grid.Down {
			row = m.Height() - 1
		}
		for x := 0; x < m.Width(); x++ {
			out = append(out, grid.PosOf(row, x))
		}
	default:
		col := 0
		if d == grid.Right {
			col = m.Width() - 1
		}
		for y := 0; y < m.Height(); y++ {
			out = append(out, grid.PosOf(y, col))
		}
	}
	return out
}

func pop[T any](s *[]T) (T, bool) {
	var zero T
	if len(*s) == 0 {
		return zero, false
	}
	v := (*s)[len(*s)-1]
	*s = (*s)[:len(*s)-1]
	return v, true
}

func (r *run) shuffleFixed() error {
	for _, scr := range slices.Sorted(maps.Keys(r.fixedPos)) {
		random.Shuffle(r.src, r.fixedPos[scr])
	}
	for _, f := range r.s.Fixed {
		list := r.fixedPos[f.Spec.Edges]
		pos, ok := pop(&list)
		r.fixedPos[f.Spec.Edges] = list
		if !ok {
			return fmt.Errorf("fixed screen %s from %s: %w", f.Spec.Edges, f.Pos, ErrUnplaced)
		}
		r.posMapping[f.Pos] = pos
	}
	return nil
}

func (r *run) placeExits() error {
	r.a.Exits = nil
	for _, d := range grid.AllDirs {
		random.Shuffle(r.src, r.allEdges[d])
		random.Shuffle(r.src, r.fixedEdges[d])
	}
	random.Shuffle(r.src, r.allStairs[grid.Up])
	random.Shuffle(r.src, r.allStairs[grid.Down])

	for _, e := range r.s.Edges {
		if e.Entrance >= len(r.a.Entrances) {
			return fmt.Errorf("edge exit at %s: entrance %d out of range", e.Pos, e.Entrance)
		}
		list := &r.allEdges[e.Dir]
		if _, ok := r.s.FixedAt(e.Pos); ok {
			list = &r.fixedEdges[e.Dir]
		}
		edge, ok := pop(list)
		if !ok {
			return fmt.Errorf("edge exit %s from %s: %w", e.Dir, e.Pos, ErrUnplaced)
		}
		r.posMapping[e.Pos] = edge
		scr, _ := r.m.Get(edge)
		data, ok := spec.EdgeTypes[scr.Edge(e.Dir)][e.Dir]
		if !ok {
			return fmt.Errorf("edge exit at %s: no entrance data for edge type %d facing %s", edge, scr.Edge(e.Dir), e.Dir)
		}
		r.a.Entrances[e.Entrance] = area.Entrance{Screen: edge, Coord: data.Entrance}
		r.addExits(edge, data.Exits, e.Exit)
	}
	for _, e := range r.s.Stairs {
		if e.Entrance >= len(r.a.Entrances) {
			return fmt.Errorf("stair at %s: entrance %d out of range", e.Pos, e.Entrance)
		}
		stair, ok := pop(&r.allStairs[e.Dir])
		if !ok {
			return fmt.Errorf("stair %s from %s: %w", e.Dir, e.Pos, ErrUnplaced)
		}
		r.posMapping[e.Pos] = stair.pos
		entrance := &r.a.Entrances[e.Entrance]
		before := entrance.Tile()
		entrance.Screen = stair.pos
		entrance.Coord = stair.entrance.Entrance
		after := entrance.Tile()
		r.displacements[e.Pos] = [2]int{after>>4 - before>>4, after&0xf - before&0xf}
		r.addExits(stair.pos, stair.entrance.Exits, e.Exit)
	}
	return nil
}

func (r *run) addExits(pos grid.Pos, tiles []int, exit int) {
	for _, t := range tiles {
		r.a.Exits = append(r.a.Exits, area.Exit{
			Screen:   pos,
			Tile:     t,
			Dest:     exit >> 8,
			Entrance: exit & 0xff,
		})
	}
}

func (r *run) write() error {
	var available []int
	for _, f := range r.a.Flags {
		if !slices.Contains(available, f.Flag) {
			available = append(available, f.Flag)
		}
	}
	wallElement := 0
	wallSpawns := map[string][]int{spec.WallTypeWall: nil, spec.WallTypeBridge: nil}
	for i, s := range r.a.Spawns {
		t := s.WallType()
		if t == "" {
			continue
		}
		wallSpawns[t] = append(wallSpawns[t], i)
		if t == spec.WallTypeWall {
			wallElement = s.WallElement()
		}
	}

	r.a.Flags = nil
	r.a.Width, r.a.Height = r.m.Width(), r.m.Height()
	r.a.Screens = make([][]int, r.m.Height())
	for y := range r.a.Screens {
		r.a.Screens[y] = make([]int, r.m.Width())
		for x := range r.a.Screens[y] {
			pos := grid.PosOf(y, x)
			scr, ok := r.m.Get(pos)
			if !ok {
				return fmt.Errorf("cell %s: %w", pos, ErrIncomplete)
			}
			sp := r.m.Catalog(scr)
			if sp == nil {
				return fmt.Errorf("cell %s: no spec for %s", pos, scr)
			}
			r.a.Screens[y][x] = sp.Tile
			if sp.Flag {
				r.a.Flags = append(r.a.Flags, area.Flag{Screen: pos, Flag: fixedScreenFlag})
			}
			if sp.Wall == nil {
				continue
			}
			if len(available) == 0 {
				return fmt.Errorf("wall at %s: %w", pos, ErrNoFlags)
			}
			r.a.Flags = append(r.a.Flags, area.Flag{Screen: pos, Flag: available[0]})
			available = available[1:]
			list := wallSpawns[sp.Wall.Type]
			i, ok := pop(&list)
			wallSpawns[sp.Wall.Type] = list
			if !ok {
				id := wallElement
				if sp.Wall.Type == spec.WallTypeBridge {
					id = 2
				}
				r.a.Spawns = append(r.a.Spawns, area.Spawn{Type: area.SpawnWall, ID: id})
				i = len(r.a.Spawns) - 1
			}
			r.a.Spawns[i].MoveTo(pos, sp.Wall.Tile)
		}
	}
	return nil
}

// placeSpawns relocates non-wall spawns: those on a mapped screen move with
// it, the rest take the best free point of interest.
func (r *run) placeSpawns() error {
	moved := make(map[pixel]pixel)
	priorities := slices.Sorted(maps.Keys(r.poi))
	var anywhere []pixel
	for _, p := range priorities {
		anywhere = append(anywhere, r.poi[p]...)
	}
	for i := range r.a.Spawns {
		s := &r.a.Spawns[i]
		if s.Type == area.SpawnWall {
			continue
		}
		if s.IsMonster() {
			if len(anywhere) == 0 {
				r.log.Warn("no location for monster", zap.Int("id", s.ID))
				continue
			}
			p := random.Pick(r.src, anywhere)
			s.Y, s.X = p.y, p.x
			continue
		}
		old := pixel{y: s.Y, x: s.X}
		if p, ok := moved[old]; ok {
			s.Y, s.X = p.y, p.x
			continue
		}
		pos0 := s.Screen()
		if mapped, ok := r.posMapping[pos0]; ok {
			s.Y = mapped.Row()<<8 | s.Y&0xff
			s.X = mapped.Col()<<8 | s.X&0xff
			if d, ok := r.displacements[pos0]; ok {
				s.Y += d[0] << 4
				s.X += d[1] << 4
			}
			continue
		}
		if s.IsTrigger() {
			target, ok := r.posMapping[followTriggerPos]
			if s.ID != followTrigger || !ok {
				r.log.Warn("unhandled trigger", zap.Int("id", s.ID))
				continue
			}
			target -= 16
			s.Y = target.Row()<<8 | s.Y&0xff
			s.X = target.Col()<<8 | s.X&0xff
			continue
		}
		if len(priorities) == 0 {
			return fmt.Errorf("spawn %d: no point of interest", i)
		}
		placed := false
		for _, key := range priorities {
			spots := r.poi[key]
			if len(spots) == 0 {
				continue
			}
			j := r.src.Intn(len(spots))
			p := spots[j]
			r.poi[key] = slices.Delete(spots, j, j+1)
			s.Y, s.X = p.y, p.x
			moved[old] = p
			placed = true
			break
		}
		if !placed {
			r.log.Warn("points of interest exhausted", zap.Int("spawn", i))
		}
	}
	return nil
}
