package grid_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/caveshuffle/internal/grid"
)

func TestPos_Components(t *testing.T) {
	p := grid.PosOf(3, 0xa)
	assert.Equal(t, grid.Pos(0x3a), p)
	assert.Equal(t, 3, p.Row())
	assert.Equal(t, 0xa, p.Col())
	assert.Equal(t, "3a", p.String())
	assert.Equal(t, "05", grid.Pos(5).String())
}

func TestPos_Plus(t *testing.T) {
	p := grid.PosOf(2, 2)
	assert.Equal(t, grid.PosOf(1, 2), p.Plus(grid.Up))
	assert.Equal(t, grid.PosOf(2, 3), p.Plus(grid.Right))
	assert.Equal(t, grid.PosOf(3, 2), p.Plus(grid.Down))
	assert.Equal(t, grid.PosOf(2, 1), p.Plus(grid.Left))
}

func TestPos_Relative(t *testing.T) {
	origin := grid.PosOf(5, 5)
	target := grid.PosOf(2, 7) // three up, two right

	f, r := origin.Relative(grid.Up, target)
	assert.Equal(t, [2]int{3, 2}, [2]int{f, r})
	f, r = origin.Relative(grid.Right, target)
	assert.Equal(t, [2]int{2, -3}, [2]int{f, r})
	f, r = origin.Relative(grid.Down, target)
	assert.Equal(t, [2]int{-3, -2}, [2]int{f, r})
	f, r = origin.Relative(grid.Left, target)
	assert.Equal(t, [2]int{-2, 3}, [2]int{f, r})
}

func TestDir_Basics(t *testing.T) {
	assert.Equal(t, grid.Down, grid.Up.Inv())
	assert.Equal(t, grid.Left, grid.Right.Inv())
	assert.Equal(t, uint(12), grid.Left.Shift())
	assert.Equal(t, grid.Scr(0x0f00), grid.Down.EdgeMask())
	assert.Equal(t, grid.Left, grid.Up.Turn(grid.TurnLeft))
	assert.Equal(t, grid.Up, grid.Left.Turn(grid.TurnRight))
	assert.True(t, grid.Right.Horizontal())
	assert.False(t, grid.Down.Horizontal())
	assert.Equal(t, "dir(9)", grid.Dir(9).String())
}

func TestParseDir(t *testing.T) {
	for _, d := range grid.AllDirs {
		got, err := grid.ParseDir(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
	_, err := grid.ParseDir("north")
	assert.Error(t, err)
}

func TestDirMask(t *testing.T) {
	m := grid.MaskOf(grid.Up, grid.Left)
	assert.True(t, m.Has(grid.Up))
	assert.True(t, m.Has(grid.Left))
	assert.False(t, m.Has(grid.Right))
	assert.Equal(t, grid.DirMask(0b1001), m)
}

func TestScr_Edges(t *testing.T) {
	s := grid.Scr(0x2_1302)
	assert.Equal(t, 2, s.Edge(grid.Up))
	assert.Equal(t, 0, s.Edge(grid.Right))
	assert.Equal(t, 3, s.Edge(grid.Down))
	assert.Equal(t, 1, s.Edge(grid.Left))
	assert.Equal(t, grid.Scr(0x1302), s.Edges())
	assert.Equal(t, 3, s.NumExits())
	assert.Equal(t, grid.Scr(0x2_1362), s.WithEdge(grid.Right, 6))
	assert.Equal(t, "21302", s.String())
}

func TestFromExits(t *testing.T) {
	assert.Equal(t, grid.Scr(0x0202), grid.FromExits(grid.MaskOf(grid.Up, grid.Down), 2))
	assert.Equal(t, grid.Scr(0), grid.FromExits(0, 1))
}

func TestPropertyPosRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		row := rapid.IntRange(0, 15).Draw(t, "row")
		col := rapid.IntRange(0, 15).Draw(t, "col")
		p := grid.PosOf(row, col)
		if p.Row() != row || p.Col() != col {
			t.Fatalf("PosOf(%d, %d) = %s", row, col, p)
		}
		for _, d := range grid.AllDirs {
			if p.Plus(d).Plus(d.Inv()) != p {
				t.Fatalf("%s moved %s and back", p, d)
			}
		}
	})
}

func TestPropertyWithEdgeOnlyTouchesOneNibble(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := grid.Scr(rapid.Uint32Range(0, 0xf_ffff).Draw(t, "scr"))
		d := grid.AllDirs[rapid.IntRange(0, 3).Draw(t, "dir")]
		edge := rapid.IntRange(0, 15).Draw(t, "edge")
		got := s.WithEdge(d, edge)
		if got.Edge(d) != edge {
			t.Fatalf("%s.WithEdge(%s, %d) = %s", s, d, edge, got)
		}
		if got&^d.EdgeMask() != s&^d.EdgeMask() {
			t.Fatalf("%s.WithEdge(%s, %d) changed other bits: %s", s, d, edge, got)
		}
	})
}

type pcgSource struct{ r *rand.Rand }

func (p pcgSource) Float64() float64 { return p.r.Float64() }

// Property: every path leaves the walker one step short of its target, facing it.
func TestPropertyPathsReachTarget(t *testing.T) {
	dy := [4]int{-1, 0, 1, 0}
	dx := [4]int{0, 1, 0, -1}
	rapid.Check(t, func(t *rapid.T) {
		forward := rapid.IntRange(-6, 6).Draw(t, "forward")
		right := rapid.IntRange(-6, 6).Draw(t, "right")
		if forward == 0 && right == 0 {
			right = 1
		}
		seed := rapid.Uint64().Draw(t, "seed")
		src := pcgSource{rand.New(rand.NewPCG(seed, 0))}

		n := 0
		for path := range grid.Paths(src, forward, right) {
			y, x, d := 0, 0, grid.Up
			steps := 0
			for turn := range path {
				y += dy[d]
				x += dx[d]
				d = d.Turn(turn)
				steps++
				if steps > 100000 {
					t.Fatalf("path to (%d, %d) did not terminate", forward, right)
				}
			}
			// the target is forward cells up and right cells right of the start
			if y+dy[d] != -forward || x+dx[d] != right {
				t.Fatalf("path ended at (%d, %d) facing %s, target (%d, %d)", y, x, d, -forward, right)
			}
			if n++; n == 3 {
				break
			}
		}
	})
}
