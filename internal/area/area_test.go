package area_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/caveshuffle/internal/area"
	"github.com/cory-johannsen/caveshuffle/internal/grid"
)

const caveYAML = `
area:
  id: 0x4b
  name: lower cave
  tileset: 0xa0
  width: 3
  height: 2
  screens:
    - "83 8a 84"
    - "85 8b 86"
  entrances:
    - screen: 0x12
      coord: 0x3080
  exits:
    - screen: 0x12
      tile: 0x27
      dest: 0x4c
      entrance: 1
  flags:
    - screen: 0x01
      flag: 0x120
  spawns:
    - y: 0x1a4
      x: 0x2b8
      type: 0
      id: 0x11
`

func TestLoadFromBytes(t *testing.T) {
	a, err := area.LoadFromBytes([]byte(caveYAML))
	require.NoError(t, err)

	assert.Equal(t, 0x4b, a.ID)
	assert.Equal(t, "lower cave", a.Name)
	assert.Equal(t, 0xa0, a.Tileset)
	assert.Equal(t, [][]int{{0x83, 0x8a, 0x84}, {0x85, 0x8b, 0x86}}, a.Screens)
	assert.Equal(t, 0x8b, a.Tile(grid.PosOf(1, 1)))
	require.Len(t, a.Entrances, 1)
	assert.Equal(t, grid.Pos(0x12), a.Entrances[0].Screen)
	require.Len(t, a.Exits, 1)
	assert.Equal(t, 0x4c, a.Exits[0].Dest)
	assert.Equal(t, []area.Flag{{Screen: 0x01, Flag: 0x120}}, a.Flags)
	assert.Equal(t, []area.Spawn{{Y: 0x1a4, X: 0x2b8, Type: 0, ID: 0x11}}, a.Spawns)
	assert.Equal(t, "4b lower cave", a.Label())
}

func TestLoadFromBytes_Errors(t *testing.T) {
	cases := map[string]string{
		"yaml":      "area: [",
		"hex":       "area: {id: 1, width: 1, height: 1, screens: [\"zz\"]}",
		"width":     "area: {id: 1, width: 0, height: 1, screens: []}",
		"rows":      "area: {id: 1, width: 1, height: 2, screens: [\"80\"]}",
		"row width": "area: {id: 1, width: 2, height: 1, screens: [\"80\"]}",
		"entrance":  "area: {id: 1, width: 1, height: 1, screens: [\"80\"], entrances: [{screen: 0x05, coord: 0}]}",
		"exit":      "area: {id: 1, width: 1, height: 1, screens: [\"80\"], exits: [{screen: 0x10, tile: 0}]}",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := area.LoadFromBytes([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	a, err := area.LoadFromBytes([]byte(caveYAML))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "cave.yaml")
	require.NoError(t, area.SaveToFile(a, path))
	got, err := area.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	_, err = area.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseAndFormatScreens(t *testing.T) {
	row, err := area.ParseScreens("  80 9a  d3 ")
	require.NoError(t, err)
	assert.Equal(t, []int{0x80, 0x9a, 0xd3}, row)
	assert.Equal(t, "80 9a d3", area.FormatScreens(row))
	assert.Equal(t, "05", area.FormatScreens([]int{5}))

	_, err = area.ParseScreens("80 gg")
	assert.ErrorContains(t, err, "gg")
}

func TestEntranceAndExitCoordinates(t *testing.T) {
	e := area.Entrance{Screen: 0x12, Coord: 0x3080}
	assert.Equal(t, 0x38, e.Tile())
	assert.Equal(t, 0x280, e.X())
	assert.Equal(t, 0x130, e.Y())

	x := area.Exit{Screen: 0x12, Tile: 0x27}
	assert.Equal(t, 0x270, x.X())
	assert.Equal(t, 0x120, x.Y())
}

func TestSpawn(t *testing.T) {
	s := area.Spawn{Y: 0x1a4, X: 0x2b8, Type: area.SpawnMonster}
	assert.Equal(t, grid.Pos(0x12), s.Screen())
	assert.Equal(t, 0xab, s.Tile())
	assert.True(t, s.IsMonster())
	assert.Equal(t, "", s.WallType())
	assert.Equal(t, -1, s.WallElement())

	s.MoveTo(0x03, 0x45)
	assert.Equal(t, 0x40, s.Y)
	assert.Equal(t, 0x350, s.X)
	assert.Equal(t, grid.Pos(0x03), s.Screen())
	assert.Equal(t, 0x45, s.Tile())

	assert.Equal(t, "bridge", area.Spawn{Type: area.SpawnWall, ID: 2}.WallType())
	wall := area.Spawn{Type: area.SpawnWall, ID: 1}
	assert.Equal(t, "wall", wall.WallType())
	assert.Equal(t, 1, wall.WallElement())
	assert.Equal(t, "", area.Spawn{Type: area.SpawnWall, ID: 5}.WallType())
	assert.True(t, area.Spawn{Type: area.SpawnChest, ID: 0x80}.IsTrigger())
	assert.False(t, area.Spawn{Type: area.SpawnChest, ID: 0x10}.IsTrigger())
}

func TestInBounds(t *testing.T) {
	a := &area.Area{Width: 3, Height: 2}
	assert.True(t, a.InBounds(0x12))
	assert.False(t, a.InBounds(0x13))
	assert.False(t, a.InBounds(0x20))
	assert.False(t, a.InBounds(-1))
}

func TestClone_IsDeep(t *testing.T) {
	a, err := area.LoadFromBytes([]byte(caveYAML))
	require.NoError(t, err)
	c := a.Clone()
	c.Screens[0][0] = 0x80
	c.Spawns[0].X = 0
	c.Flags = append(c.Flags, area.Flag{Screen: 0x02})
	assert.Equal(t, 0x83, a.Screens[0][0])
	assert.Equal(t, 0x2b8, a.Spawns[0].X)
	assert.Len(t, a.Flags, 1)
}

// Property: Marshal output loads back to an equal area.
func TestPropertyMarshalRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := rapid.IntRange(1, 16).Draw(t, "w")
		h := rapid.IntRange(1, 16).Draw(t, "h")
		a := &area.Area{
			ID:      rapid.IntRange(0, 0xff).Draw(t, "id"),
			Name:    rapid.StringMatching(`[a-z]{1,12}`).Draw(t, "name") + " cave",
			Tileset: rapid.IntRange(0, 0xff).Draw(t, "tileset"),
			Width:   w,
			Height:  h,
		}
		for range h {
			a.Screens = append(a.Screens, rapid.SliceOfN(rapid.IntRange(0, 0xff), w, w).Draw(t, "row"))
		}
		n := rapid.IntRange(0, 3).Draw(t, "spawns")
		for range n {
			a.Spawns = append(a.Spawns, area.Spawn{
				Y:    rapid.IntRange(0, h<<8-1).Draw(t, "y"),
				X:    rapid.IntRange(0, w<<8-1).Draw(t, "x"),
				Type: rapid.IntRange(0, 3).Draw(t, "type"),
				ID:   rapid.IntRange(0, 0xff).Draw(t, "spawn id"),
			})
		}
		data, err := area.Marshal(a)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		got, err := area.LoadFromBytes(data)
		if err != nil {
			t.Fatalf("LoadFromBytes: %v\n%s", err, data)
		}
		if got.ID != a.ID || got.Name != a.Name || got.Tileset != a.Tileset {
			t.Fatalf("header mismatch: %+v vs %+v", got, a)
		}
		for y := range a.Screens {
			for x := range a.Screens[y] {
				if got.Screens[y][x] != a.Screens[y][x] {
					t.Fatalf("screen (%d,%d) = %02x, want %02x", y, x, got.Screens[y][x], a.Screens[y][x])
				}
			}
		}
		if len(got.Spawns) != len(a.Spawns) {
			t.Fatalf("spawns = %d, want %d", len(got.Spawns), len(a.Spawns))
		}
		for i := range a.Spawns {
			if got.Spawns[i] != a.Spawns[i] {
				t.Fatalf("spawn %d = %+v, want %+v", i, got.Spawns[i], a.Spawns[i])
			}
		}
	})
}
