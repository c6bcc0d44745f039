package cave

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/caveshuffle/internal/area"
	"github.com/cory-johannsen/caveshuffle/internal/grid"
	"github.com/cory-johannsen/caveshuffle/internal/maze"
	"github.com/cory-johannsen/caveshuffle/internal/random"
	"github.com/cory-johannsen/caveshuffle/internal/spec"
)

func riverSpecs(t *testing.T) []*spec.Spec {
	t.Helper()
	a := &area.Area{ID: 0x02, Name: "river", Width: 2, Height: 1, Screens: [][]int{{0x81, 0xd4}}}
	sv, err := spec.Cave.Survey(a)
	require.NoError(t, err)
	return sv.Specs
}

// lay writes rows of screens into a fresh maze, opening the border under
// every outer edge the screens use.
func lay(t require.TestingT, specs []*spec.Spec, src random.Source, rows ...[]grid.Scr) *maze.Maze {
	m := maze.New(src, len(rows), len(rows[0]), specs)
	for y, row := range rows {
		for x, scr := range row {
			pos := grid.PosOf(y, x)
			for _, d := range grid.AllDirs {
				if e := scr.Edge(d); e != 0 && !m.InBounds(pos.Plus(d)) {
					require.NoError(t, m.SetBorder(pos, d, e))
				}
			}
			require.True(t, m.TrySet(pos, scr), "%s at %s", scr, pos)
		}
	}
	return m
}

func riverShuffler(w, h int, river ...grid.Pos) *Shuffler {
	s := testShuffler(w, h)
	for _, pos := range river {
		s.river.add(pos)
	}
	return s
}

func invariantPanic(t *testing.T, f func()) *maze.InvariantError {
	t.Helper()
	var ie *maze.InvariantError
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected a panic")
			err, ok := r.(error)
			require.True(t, ok, "panic value %v is not an error", r)
			require.True(t, errors.As(err, &ie))
		}()
		f()
	}()
	return ie
}

// bridgedRiver is a horizontal river of n bridges.
func bridgedRiver(t require.TestingT, specs []*spec.Spec, seed uint64, n int) *maze.Maze {
	row := make([]grid.Scr, n)
	for i := range row {
		row[i] = 0x1_3030
	}
	return lay(t, specs, random.NewSeeded(seed), row)
}

func TestRemoveBridges_MeetsBudget(t *testing.T) {
	specs := riverSpecs(t)
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Uint64().Draw(t, "seed")
		budget := rapid.IntRange(1, 3).Draw(t, "budget")
		m := bridgedRiver(t, specs, seed, 3)
		s := riverShuffler(3, 1, 0x00, 0x01, 0x02)
		s.src = random.NewSeeded(seed)
		s.survey.Bridges = budget

		require.True(t, s.removeBridges(m))
		assert.Equal(t, budget, s.riverBridges(m), "bridges are only removed down to the budget")
		assert.True(t, s.check(m), "both banks stay joined")
	})
}

func TestRemoveBridges_KeepsLastCrossing(t *testing.T) {
	m := bridgedRiver(t, riverSpecs(t), 4, 3)
	s := riverShuffler(3, 1, 0x00, 0x01, 0x02)
	before := m.Show(true)

	assert.False(t, s.retry(m, func() bool { return s.removeBridges(m) }, 2))
	assert.Equal(t, before, m.Show(true), "failed tries leave the river as it was")

	assert.False(t, s.removeBridges(m))
	assert.Equal(t, 1, s.riverBridges(m))
	assert.True(t, s.check(m))
}

func TestRemoveBridges_MissingRiverScreenPanics(t *testing.T) {
	m := bridgedRiver(t, riverSpecs(t), 2, 3)
	// The river claims a cell that was never filled.
	s := riverShuffler(3, 1, 0x00, 0x01, 0x02, 0x12)
	ie := invariantPanic(t, func() { s.removeBridges(m) })
	assert.Equal(t, "removeBridges", ie.Op)
	assert.Equal(t, grid.Pos(0x12), ie.Pos)
}

// banks is a bridged river along the top with two land pockets below it,
// each opening onto the river.
func banks(t require.TestingT, specs []*spec.Spec, seed uint64) *maze.Maze {
	return lay(t, specs, random.NewSeeded(seed),
		[]grid.Scr{0x3130, 0x1_3030, 0x3130},
		[]grid.Scr{0x0001, 0x0000, 0x0001},
	)
}

func landPartitions(parts ...[]grid.Pos) []*posSet {
	var out []*posSet
	for _, part := range parts {
		p := newPosSet()
		for _, pos := range part {
			p.add(pos)
		}
		out = append(out, p)
	}
	return out
}

func TestAddRiverStairs_OnePerPartition(t *testing.T) {
	specs := riverSpecs(t)
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Uint64().Draw(t, "seed")
		m := banks(t, specs, seed)
		s := riverShuffler(3, 2, 0x00, 0x01, 0x02)
		s.src = random.NewSeeded(seed)
		s.landPartitions = landPartitions([]grid.Pos{0x10}, []grid.Pos{0x12})
		s.survey.Stairs = []spec.ExitEntry{{Dir: grid.Down}, {Dir: grid.Down}}

		require.True(t, s.addRiverStairs(m))
		for _, pos := range []grid.Pos{0x10, 0x12} {
			sp := m.Spec(pos)
			require.NotNil(t, sp)
			require.Len(t, sp.Stairs, 1, "stair at %s", pos)
			assert.Equal(t, grid.Down, sp.Stairs[0].Dir)
			assert.True(t, s.fixed.has(pos))
		}
		for _, pos := range []grid.Pos{0x00, 0x01, 0x02} {
			assert.Nil(t, m.Spec(pos).Stairs, "river at %s", pos)
		}
		assert.True(t, s.check(m))
	})
}

func TestAddRiverStairs_SharedPartitionFails(t *testing.T) {
	m := banks(t, riverSpecs(t), 3)
	s := riverShuffler(3, 2, 0x00, 0x01, 0x02)
	s.landPartitions = landPartitions([]grid.Pos{0x10, 0x12})
	s.survey.Stairs = []spec.ExitEntry{{Dir: grid.Down}, {Dir: grid.Down}}
	before := m.Show(true)

	assert.False(t, s.retry(m, func() bool { return s.addRiverStairs(m) }, 1))
	assert.Equal(t, before, m.Show(true))
	assert.Equal(t, 0, s.fixed.len(), "claimed stair cells are released")
}

func TestAddRiverStairs_EdgeExitsPanic(t *testing.T) {
	m := banks(t, riverSpecs(t), 1)
	s := riverShuffler(3, 2, 0x00, 0x01, 0x02)
	s.survey.Edges = []spec.ExitEntry{{Pos: 0x01, Dir: grid.Up}}
	ie := invariantPanic(t, func() { s.addRiverStairs(m) })
	assert.Equal(t, "addStairs", ie.Op)
	assert.Equal(t, grid.Pos(0x01), ie.Pos)
}

func TestConnectLand_SplicesIntoBank(t *testing.T) {
	specs := riverSpecs(t)
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Uint64().Draw(t, "seed")
		// A corridor beside a river whose banks meet at the lower bridge.
		m := lay(t, specs, random.NewSeeded(seed),
			[]grid.Scr{0x0010, 0x1000, 0x0303},
			[]grid.Scr{0x0000, 0x0000, 0x1_0303},
		)
		s := riverShuffler(3, 2, 0x02, 0x12)
		s.src = random.NewSeeded(seed)

		require.True(t, s.connectLand(m))
		require.Len(t, s.landPartitions, 1)
		assert.True(t, s.landPartitions[0].has(0x00))
		assert.True(t, s.landPartitions[0].has(0x01))
		assert.False(t, s.landPartitions[0].has(0x02), "river cells are not land")

		land, _ := m.Get(0x01)
		bank, _ := m.Get(0x02)
		assert.Equal(t, grid.Scr(0x1010), land)
		assert.Equal(t, grid.Scr(0x1303), bank)
		assert.Equal(t, 1, s.riverBridges(m))
	})
}

func TestMakeInitialRiver_JoinsBothSides(t *testing.T) {
	specs := riverSpecs(t)
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Uint64().Draw(t, "seed")
		w := rapid.IntRange(2, 6).Draw(t, "w")
		h := rapid.IntRange(3, 6).Draw(t, "h")
		m := maze.New(random.NewSeeded(seed), h, w, specs)
		s := riverShuffler(w, h)
		s.src = random.NewSeeded(seed)

		if !s.retry(m, func() bool { return s.makeInitialRiver(m) }, initialRiverTries) {
			assert.Zero(t, m.Size(), "a failed river leaves the grid empty")
			return
		}
		var left, right bool
		for pos, scr := range m.Screens() {
			assert.True(t, m.Fits(pos, scr), "%s at %s", scr, pos)
			switch {
			case pos.Col() == 0 && (scr == riverEndDown || scr == riverEndUp):
				left = true
			case pos.Col() == w-1 && (scr == riverEndDown || scr == riverEndUp):
				right = true
			}
		}
		assert.True(t, left && right, "river ends\n%s", m.Show(true))
	})
}

func TestMakeInitialRiver_TooSmall(t *testing.T) {
	for _, dims := range [][2]int{{1, 4}, {4, 2}} {
		m := maze.New(random.NewSeeded(1), dims[1], dims[0], riverSpecs(t))
		s := riverShuffler(dims[0], dims[1])
		assert.False(t, s.makeInitialRiver(m), "%dx%d", dims[0], dims[1])
		assert.Zero(t, m.Size())
	}
}

func TestBranchRiver_RecordsRiver(t *testing.T) {
	m := lay(t, riverSpecs(t), random.NewSeeded(1),
		[]grid.Scr{0x0000, 0x0000},
		[]grid.Scr{0x1_3030, 0x1_3030},
	)
	s := riverShuffler(2, 2)
	s.survey.Rivers = 1

	require.True(t, s.branchRiver(m), "the density is already met")
	assert.Equal(t, []grid.Pos{0x10, 0x11}, s.river.slice(), "empty screens are not river")
}
