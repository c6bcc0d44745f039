package spec

import "github.com/cory-johannsen/caveshuffle/internal/grid"

// RiverTables are the screen compatibility tables river caves build with.
// The values are tuned against the cave catalog and have no derivation
// beyond it.
type RiverTables struct {
	// AddBridge maps a plain river screen to its bridged variant.
	AddBridge map[grid.Scr]grid.Scr
	// RemoveBridge lists feature nibbles (shifted above the edge bits) that
	// may replace a bridged screen. Repeats weight the draw.
	RemoveBridge map[grid.Scr][]int
	// StairScreens lists stair screens usable on land, per direction.
	StairScreens map[grid.Dir][]grid.Scr
	// PathAlternatives lists feature nibbles to OR into straight river
	// segments while carving a path.
	PathAlternatives map[grid.Scr][]int
	// InitialAllowed restricts the first river crossing.
	InitialAllowed []grid.Scr
	// LoopAllowed restricts river branches. Repeats weight the draw.
	LoopAllowed []grid.Scr
}

// CaveRiver is the table set for the cave catalog.
var CaveRiver = RiverTables{
	AddBridge: map[grid.Scr]grid.Scr{
		0x0_3030: 0x1_3030,
		0x0_0303: 0x1_0303,
		0x0_0003: 0x1_0003,
		0x0_0300: 0x1_0300,
	},
	RemoveBridge: map[grid.Scr][]int{
		0x1_3030: {0, 8},
		0x1_0303: {0, 2, 2, 2, 4, 4, 4, 8},
		0x1_0003: {0},
		0x1_0300: {0},
	},
	StairScreens: map[grid.Dir][]grid.Scr{
		grid.Down: {0x2_1000, 0x2_0010, 0x2_0001},
		grid.Up:   {0x2_1010, 0x1_1000, 0x1_0010, 0x2_0100},
	},
	PathAlternatives: map[grid.Scr][]int{
		0x0303: {1},
		0x3030: {1},
	},
	InitialAllowed: []grid.Scr{
		0x1_0303, 0x1_3030,
		0x0033, 0x0330, 0x3300, 0x3003,
	},
	LoopAllowed: []grid.Scr{
		0x1_0303, 0x1_3030, 0x1_0303, 0x1_3030,
		0x8_0303, 0x8_3030,
		0x0033, 0x0330, 0x3300, 0x3003,
		0x3033, 0x3330, 0x3333,
	},
}
