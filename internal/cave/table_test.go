package cave_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/caveshuffle/internal/cave"
)

func TestDefaultTable(t *testing.T) {
	table := cave.DefaultTable()
	for id, want := range map[int]cave.Kind{
		0x27: cave.Cycle,
		0x4b: cave.TightCycle,
		0x54: cave.Cycle,
		0x56: cave.Wide,
		0x57: cave.WaterfallRiver,
		0x69: cave.River,
		0x84: cave.Wide,
		0xab: cave.River,
		0x10: cave.Basic,
	} {
		assert.Equal(t, want, table.Lookup(id), "area %02x", id)
	}
}

func TestNilTableIsBasic(t *testing.T) {
	var table *cave.Table
	assert.Equal(t, cave.Basic, table.Lookup(0x69))
}

func TestParseKind(t *testing.T) {
	for _, k := range []cave.Kind{cave.Basic, cave.Wide, cave.WaterfallRiver, cave.Cycle, cave.TightCycle, cave.River} {
		got, err := cave.ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := cave.ParseKind("labyrinth")
	assert.True(t, errors.Is(err, cave.ErrUnknownKind))
	assert.Equal(t, "kind(42)", cave.Kind(42).String())
}

func TestWithOverrides(t *testing.T) {
	base := cave.DefaultTable()
	table, err := base.WithOverrides(map[int]string{0x10: "wide", 0x27: "basic"})
	require.NoError(t, err)
	assert.Equal(t, cave.Wide, table.Lookup(0x10))
	assert.Equal(t, cave.Basic, table.Lookup(0x27))
	assert.Equal(t, cave.River, table.Lookup(0x69))

	assert.Equal(t, cave.Cycle, base.Lookup(0x27), "the base table is unchanged")
	assert.Equal(t, cave.Basic, base.Lookup(0x10))

	_, err = base.WithOverrides(map[int]string{0x10: "maze"})
	assert.True(t, errors.Is(err, cave.ErrUnknownKind))

	var empty *cave.Table
	table, err = empty.WithOverrides(map[int]string{0x10: "river"})
	require.NoError(t, err)
	assert.Equal(t, cave.River, table.Lookup(0x10))
}
