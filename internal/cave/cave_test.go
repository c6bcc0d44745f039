package cave_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/caveshuffle/internal/area"
	"github.com/cory-johannsen/caveshuffle/internal/cave"
	"github.com/cory-johannsen/caveshuffle/internal/config"
	"github.com/cory-johannsen/caveshuffle/internal/grid"
	"github.com/cory-johannsen/caveshuffle/internal/maze"
	"github.com/cory-johannsen/caveshuffle/internal/random"
	"github.com/cory-johannsen/caveshuffle/internal/spec"
)

// basicSurvey surveys a one-screen corridor to obtain the basic catalog.
func basicSurvey(t *testing.T) *spec.Survey {
	t.Helper()
	a := &area.Area{ID: 0x01, Name: "corridor", Width: 1, Height: 1, Screens: [][]int{{0x81}}}
	sv, err := spec.Cave.Survey(a)
	require.NoError(t, err)
	return sv
}

// scenarioSurvey asks for twelve screens, one wall and one down stair.
func scenarioSurvey(t *testing.T) *spec.Survey {
	base := basicSurvey(t)
	return &spec.Survey{
		Size:   12,
		Walls:  1,
		Stairs: []spec.ExitEntry{{Pos: 0x11, Dir: grid.Down}},
		Tiles:  map[int]int{},
		Specs:  base.Specs,
		Set:    base.Set,
	}
}

func scenarioArea() *area.Area {
	screens := make([][]int, 4)
	for y := range screens {
		screens[y] = []int{0x80, 0x80, 0x80, 0x80, 0x80}
	}
	return &area.Area{ID: 0x10, Name: "test cave", Width: 5, Height: 4, Screens: screens}
}

func newScenario(t *testing.T, seed uint64, sv *spec.Survey, opts ...cave.Option) *cave.Shuffler {
	t.Helper()
	opts = append([]cave.Option{
		cave.WithSurveyor(func(*area.Area) (*spec.Survey, error) { return sv, nil }),
		cave.WithFinisher(nil),
	}, opts...)
	s, err := cave.New(scenarioArea(), random.NewSeeded(seed), cave.Basic, opts...)
	require.NoError(t, err)
	return s
}

func countSpecs(m *maze.Maze, keep func(*spec.Spec) bool) int {
	n := 0
	for pos := range m.Screens() {
		if sp := m.Spec(pos); sp != nil && keep(sp) {
			n++
		}
	}
	return n
}

func TestShuffle_Scenario(t *testing.T) {
	s := newScenario(t, 7, scenarioSurvey(t))
	require.NoError(t, s.Shuffle())

	m := s.Maze()
	require.NotNil(t, m)
	assert.Equal(t, 1, countSpecs(m, func(sp *spec.Spec) bool {
		return sp.Wall != nil && sp.Wall.Type == spec.WallTypeWall
	}), "wall count")
	assert.Equal(t, 1, countSpecs(m, func(sp *spec.Spec) bool {
		return len(sp.Stairs) == 1 && sp.Stairs[0].Dir == grid.Down
	}), "down stairs")
	assert.Equal(t, 0, countSpecs(m, func(sp *spec.Spec) bool {
		return len(sp.Stairs) == 1 && sp.Stairs[0].Dir == grid.Up
	}), "up stairs")

	tr := m.Traverse(maze.TraverseOptions{Flight: true})
	assert.True(t, tr.Connected(), "single partition:\n%s", m.Show(false))
	assert.LessOrEqual(t, s.Attempts(), 100)
}

func TestShuffle_NoTightCycles(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		s := newScenario(t, seed, scenarioSurvey(t))
		require.NoError(t, s.Shuffle(), "seed %d", seed)
		m := s.Maze()
		for y := 1; y < m.Height(); y++ {
			for x := 1; x < m.Width(); x++ {
				ul, _ := m.Get(grid.PosOf(y-1, x-1))
				dr, _ := m.Get(grid.PosOf(y, x))
				tight := ul.Edge(grid.Down) != 0 && ul.Edge(grid.Right) != 0 &&
					dr.Edge(grid.Left) != 0 && dr.Edge(grid.Up) != 0
				assert.False(t, tight, "seed %d: tight cycle at %s\n%s", seed, grid.PosOf(y, x), m.Show(false))
			}
		}
	}
}

func TestShuffle_Deterministic(t *testing.T) {
	sv := scenarioSurvey(t)
	a := newScenario(t, 42, sv)
	b := newScenario(t, 42, sv)
	require.NoError(t, a.Shuffle())
	require.NoError(t, b.Shuffle())
	assert.Equal(t, a.Attempts(), b.Attempts())
	assert.Equal(t, a.Maze().Show(true), b.Maze().Show(true))
}

func TestShuffle_Exhausted(t *testing.T) {
	sv := scenarioSurvey(t)
	sv.Walls = 1000
	s := newScenario(t, 3, sv, cave.WithConfig(config.ShuffleConfig{
		Attempts: 3, StairRetries: 10, MaxWidth: 8, MaxHeight: 16,
	}))
	err := s.Shuffle()
	require.Error(t, err)
	assert.True(t, errors.Is(err, cave.ErrExhausted))
	assert.Contains(t, err.Error(), "10 test cave")
	assert.Equal(t, 3, s.Attempts())
	assert.Nil(t, s.Maze())
}

func TestShuffle_InvariantViolationIsNotRetried(t *testing.T) {
	sv := scenarioSurvey(t)
	// A fixed screen missing from the catalog is a data bug.
	sv.Fixed = []spec.FixedEntry{{Pos: 0x00, Spec: &spec.Spec{Edges: 0x40_0000, Tile: 0xee}}}
	s := newScenario(t, 3, sv)
	err := s.Shuffle()
	require.Error(t, err)
	assert.True(t, errors.Is(err, cave.ErrInvariant))
	var ie *maze.InvariantError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 1, s.Attempts())
}

func TestShuffle_LogsRerollsAndCompletion(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sv := scenarioSurvey(t)
	sv.Walls = 1000
	s := newScenario(t, 5, sv,
		cave.WithLogger(zap.New(core)),
		cave.WithConfig(config.ShuffleConfig{Attempts: 2, StairRetries: 10, MaxWidth: 8, MaxHeight: 16}),
	)
	require.Error(t, s.Shuffle())

	assert.Equal(t, 1, logs.FilterMessage("shuffle start").Len())
	rerolls := logs.FilterMessage("reroll").All()
	require.NotEmpty(t, rerolls)
	fields := rerolls[0].ContextMap()
	assert.Equal(t, "10", fields["area_id"])
	assert.Equal(t, "basic", fields["strategy"])
	assert.Equal(t, s.RunID().String(), fields["run_id"])
	assert.Contains(t, fields, "reason")
}

func TestNew_SurveyError(t *testing.T) {
	boom := errors.New("boom")
	_, err := cave.New(scenarioArea(), random.NewSeeded(1), cave.Basic,
		cave.WithSurveyor(func(*area.Area) (*spec.Survey, error) { return nil, boom }))
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestShuffleCave_UsesTable(t *testing.T) {
	sv := scenarioSurvey(t)
	table := cave.NewTable(map[int]cave.Kind{0x10: cave.TightCycle})
	core, logs := observer.New(zapcore.InfoLevel)
	err := cave.ShuffleCave(scenarioArea(), random.NewSeeded(9), table,
		cave.WithSurveyor(func(*area.Area) (*spec.Survey, error) { return sv, nil }),
		cave.WithFinisher(nil),
		cave.WithLogger(zap.New(core)),
		cave.WithConfig(config.ShuffleConfig{Attempts: 1, StairRetries: 10, MaxWidth: 8, MaxHeight: 16}),
	)
	// One attempt may or may not find a cycle; the strategy is what matters.
	if err != nil {
		assert.True(t, errors.Is(err, cave.ErrExhausted))
	}
	start := logs.FilterMessage("shuffle start").All()
	require.Len(t, start, 1)
	assert.Equal(t, "tight-cycle", start[0].ContextMap()["strategy"])
}

func stairCounts(m *maze.Maze) map[grid.Dir]int {
	out := make(map[grid.Dir]int)
	for pos := range m.Screens() {
		if sp := m.Spec(pos); sp != nil {
			for _, st := range sp.Stairs {
				out[st.Dir]++
			}
		}
	}
	return out
}

// hasLoop reports whether the open edges between non-empty cells close a
// loop, which a tree of v cells never does with v or more edges.
func hasLoop(m *maze.Maze) bool {
	cells, edges := 0, 0
	for pos, scr := range m.Screens() {
		if scr == 0 {
			continue
		}
		cells++
		for _, d := range []grid.Dir{grid.Right, grid.Down} {
			if n, ok := m.GetDir(pos, d); ok && m.InBounds(pos.Plus(d)) && scr.Edge(d) != 0 && n.Edge(d.Inv()) != 0 {
				edges++
			}
		}
	}
	return edges >= cells
}

func TestShuffle_ConnectedAcrossSeeds(t *testing.T) {
	sv := scenarioSurvey(t)
	solved := 0
	for seed := uint64(1); seed <= 60; seed++ {
		s := newScenario(t, seed, sv)
		if err := s.Shuffle(); err != nil {
			require.ErrorIs(t, err, cave.ErrExhausted, "seed %d", seed)
			continue
		}
		solved++
		m := s.Maze()
		assert.True(t, m.Traverse(maze.TraverseOptions{}).Connected(), "seed %d:\n%s", seed, m.Show(false))
		assert.True(t, m.Traverse(maze.TraverseOptions{Flight: true}).Connected(), "seed %d:\n%s", seed, m.Show(false))
		assert.Equal(t, 1, countSpecs(m, func(sp *spec.Spec) bool {
			return sp.Wall != nil && sp.Wall.Type == spec.WallTypeWall
		}), "seed %d", seed)
	}
	assert.Positive(t, solved)
}

func TestShuffle_HorizontalWallJoinsItsCorridor(t *testing.T) {
	sv := scenarioSurvey(t)
	// Only a horizontal wall may be placed.
	sv.Specs = slices.DeleteFunc(slices.Clone(sv.Specs), func(sp *spec.Spec) bool {
		return sp.Wall != nil && sp.Edges != 0x1_1010
	})
	solved := 0
	for seed := uint64(1); seed <= 20; seed++ {
		s := newScenario(t, seed, sv)
		if err := s.Shuffle(); err != nil {
			require.ErrorIs(t, err, cave.ErrExhausted, "seed %d", seed)
			continue
		}
		solved++
		m := s.Maze()
		require.Equal(t, 1, countSpecs(m, func(sp *spec.Spec) bool { return sp.Edges == 0x1_1010 }))
		assert.True(t, m.Traverse(maze.TraverseOptions{}).Connected(), "seed %d:\n%s", seed, m.Show(false))
	}
	assert.Positive(t, solved)
}

// catalogSurvey surveys screens to pick up their catalogs, then asks for
// the given inventory.
func catalogSurvey(t *testing.T, tiles []int, sv spec.Survey) *spec.Survey {
	t.Helper()
	base, err := spec.Cave.Survey(&area.Area{ID: 0x01, Name: "catalog", Width: len(tiles), Height: 1, Screens: [][]int{tiles}})
	require.NoError(t, err)
	sv.Specs, sv.Set = base.Specs, base.Set
	if sv.Tiles == nil {
		sv.Tiles = map[int]int{}
	}
	return &sv
}

func TestShuffle_Kinds(t *testing.T) {
	tests := []struct {
		name   string
		kind   cave.Kind
		survey func(t *testing.T) *spec.Survey
		stairs map[grid.Dir]int
		// solve requires at least one seed to produce a layout.
		solve  bool
		verify func(t *testing.T, m *maze.Maze)
	}{
		{
			name:   "basic",
			kind:   cave.Basic,
			survey: scenarioSurvey,
			stairs: map[grid.Dir]int{grid.Down: 1},
			solve:  true,
			verify: func(t *testing.T, m *maze.Maze) {
				assert.True(t, m.Traverse(maze.TraverseOptions{}).Connected())
			},
		},
		{
			name:   "cycle",
			kind:   cave.Cycle,
			survey: scenarioSurvey,
			stairs: map[grid.Dir]int{grid.Down: 1},
			verify: func(t *testing.T, m *maze.Maze) {
				assert.True(t, m.Traverse(maze.TraverseOptions{}).Connected())
				assert.True(t, hasLoop(m))
			},
		},
		{
			name:   "tight cycle",
			kind:   cave.TightCycle,
			survey: scenarioSurvey,
			stairs: map[grid.Dir]int{grid.Down: 1},
			solve:  true,
			verify: func(t *testing.T, m *maze.Maze) {
				assert.True(t, m.Traverse(maze.TraverseOptions{}).Connected())
				assert.True(t, hasLoop(m))
			},
		},
		{
			name: "wide",
			kind: cave.Wide,
			survey: func(t *testing.T) *spec.Survey {
				return catalogSurvey(t, []int{0x71}, spec.Survey{
					Size:   6,
					Wide:   true,
					Stairs: []spec.ExitEntry{{Pos: 0x00, Dir: grid.Down}, {Pos: 0x01, Dir: grid.Down}},
				})
			},
			stairs: map[grid.Dir]int{grid.Down: 2},
			verify: func(t *testing.T, m *maze.Maze) {
				assert.True(t, m.Traverse(maze.TraverseOptions{}).Connected(), "the stairs are joined")
			},
		},
		{
			name: "waterfall river",
			kind: cave.WaterfallRiver,
			survey: func(t *testing.T) *spec.Survey {
				return catalogSurvey(t, []int{0x81, 0xd4}, spec.Survey{Size: 12, Rivers: 4})
			},
			// Both waterfall bases are down stairs.
			stairs: map[grid.Dir]int{grid.Down: 2},
			verify: func(t *testing.T, m *maze.Maze) {
				tr := m.Traverse(maze.TraverseOptions{})
				parts := tr.Partitions()
				require.Len(t, parts, 2, "two banks:\n%s", m.Show(false))
				assert.Greater(t, len(parts[0]), 2)
				assert.Greater(t, len(parts[1]), 2)
			},
		},
		{
			name: "river",
			kind: cave.River,
			survey: func(t *testing.T) *spec.Survey {
				return catalogSurvey(t, []int{0x81, 0xd4}, spec.Survey{
					Size:    14,
					Rivers:  6,
					Bridges: 1,
					Stairs:  []spec.ExitEntry{{Pos: 0x00, Dir: grid.Down}, {Pos: 0x01, Dir: grid.Up}},
				})
			},
			stairs: map[grid.Dir]int{grid.Down: 1, grid.Up: 1},
			verify: func(t *testing.T, m *maze.Maze) {
				assert.LessOrEqual(t, countSpecs(m, func(sp *spec.Spec) bool {
					return sp.Wall != nil && sp.Wall.Type == spec.WallTypeBridge
				}), 1, "bridge budget:\n%s", m.Show(false))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sv := tt.survey(t)
			solved := 0
			for seed := uint64(1); seed <= 4; seed++ {
				s, err := cave.New(scenarioArea(), random.NewSeeded(seed), tt.kind,
					cave.WithSurveyor(func(*area.Area) (*spec.Survey, error) { return sv, nil }),
					cave.WithFinisher(nil),
				)
				require.NoError(t, err)
				if err := s.Shuffle(); err != nil {
					require.ErrorIs(t, err, cave.ErrExhausted, "seed %d", seed)
					assert.Nil(t, s.Maze())
					continue
				}
				solved++
				m := s.Maze()
				assert.Equal(t, tt.stairs, stairCounts(m), "seed %d:\n%s", seed, m.Show(false))
				tt.verify(t, m)
			}
			if tt.solve {
				assert.Positive(t, solved)
			}
		})
	}
}
