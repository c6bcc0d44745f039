package spec

import "github.com/cory-johannsen/caveshuffle/internal/grid"

// EntranceSpec locates the arrival point and exit tiles for an edge exit.
type EntranceSpec struct {
	// Entrance is the YyXx pixel position within the screen.
	Entrance int
	// Exits are the yx tiles forming the exit.
	Exits []int
}

// EdgeTypes maps an edge type and direction to where exits are written for
// vertical screen edges. Only types 1 (narrow) and 6 (narrow exit) carry
// entrances.
var EdgeTypes = map[int]map[grid.Dir]EntranceSpec{
	1: {
		grid.Down: {Entrance: 0xdf80, Exits: []int{0xe6, 0xe7, 0xe8, 0xe9}},
		grid.Up:   {Entrance: 0x3080, Exits: []int{0x26, 0x27, 0x28, 0x29}},
	},
	6: {
		grid.Down: {Entrance: 0xdf80, Exits: []int{0xe7, 0xe8}},
		grid.Up:   {Entrance: 0x3080, Exits: []int{0x27, 0x28}},
	},
}

var emptyCaveScreen = newSpec(0, 0x80, " ")

var basicCaveScreens = []*Spec{
	// Normal cave screens
	newSpec(0x0_0101, 0x81, "│", conn(0x2a), poi(4)),
	newSpec(0x0_1010, 0x82, "─", conn(0x6e), poi(4)),
	newSpec(0x0_0110, 0x83, "┌", conn(0xae), poi(2)),
	newSpec(0x0_1100, 0x84, "┐", conn(0x6a), poi(2)),
	newSpec(0x0_0011, 0x85, "└", conn(0x2e), poi(2)),
	newSpec(0x0_1001, 0x86, "┘", conn(0x26), poi(2)),
	newSpec(0x0_0111, 0x87, "├", conn(0x2ae), poi(3)),
	newSpec(0x0_1111, 0x88, "┼", conn(0x26ae), poi(3)),
	newSpec(0x0_1101, 0x89, "┤", conn(0x26a), poi(3)),
	newSpec(0x0_1110, 0x8a, "┬", conn(0x6ae), poi(3)),
	newSpec(0x0_1011, 0x8b, "┴", conn(0x26e), poi(3)),

	// Doors, walls, dead ends
	newSpec(0x2_0101, 0x8c, "┋", conn(0x2a)), // stair hallway
	newSpec(0x10_0101, 0x8d, "╫", fixed, conn(0x2a)),
	newSpec(0x10_1010, 0x8e, "╫", fixed, conn(0x6e)),
	newSpec(0x1_0101, 0x8f, "┆", wall(0x87, 0x2, 0xa)),
	newSpec(0x1_1010, 0x90, "┄", wall(0x67, 0x6, 0xe)),
	newSpec(0x1_1011, 0x94, "┸", wall(0x37, 0x2, 0x6e)),
	newSpec(0x2_1010, 0x95, "┸", conn(0x6e), stairUp(0x40_80, 0x37)),
	newSpec(0x1_1000, 0x96, "┚", conn(0x6), stairUp(0x40_30, 0x32)),
	newSpec(0x2_1000, 0x97, "┒", conn(0x6), stairDown(0xaf_30, 0xb2)),
	newSpec(0x1_0010, 0x98, "┖", conn(0xe), stairUp(0x40_d0, 0x3c)),
	newSpec(0x2_0010, 0x99, "┎", conn(0xe), stairDown(0xaf_d0, 0xbc)),
	newSpec(0x2_0001, 0x9a, "╹", conn(0x2), stairDown(0x1f_80, 0x27)),
	newSpec(0x2_0100, 0x9a, "╻", conn(0xa), stairUp(0xd0_80, 0xc7)),
	// vertical dead ends
	newSpec(0x4_0101, 0x9b, " ", conn(0x2), conn(0xa), deadEnd),
	newSpec(0x0_0001, 0x9b, "╵", conn(0x2), poiAt(0, -0x30, 0x78), deadEnd),
	newSpec(0x0_0100, 0x9b, "╷", conn(0xa), poiAt(0, 0x110, 0x78), deadEnd),
	// horizontal dead ends
	newSpec(0x4_1010, 0x9c, " ", conn(0x6), conn(0xe), deadEnd),
	newSpec(0x0_0010, 0x9c, "╶", conn(0xe), poiAt(0, 0x70, 0x108), deadEnd),
	newSpec(0x0_1000, 0x9c, "╴", conn(0x6), poiAt(0, 0x70, -0x28), deadEnd),
	// narrow bottom entrance
	newSpec(0x0_0601, 0x9e, "╽", conn(0x2a)),
}

var bossCaveScreens = []*Spec{
	newSpec(0x0_7176, 0x91, "╤", fixed, conn(0x2a), poiAt(1, 0x60, 0x78)),
	newSpec(0x7_0101, 0x91, "╤", fixed, conn(0x2a), poiAt(1, 0x60, 0x78)),
	newSpec(0x1_7176, 0x92, "╤", fixed, wall(0x27, 0x2, 0xa), poiAt(1, 0x60, 0x78)),
	newSpec(0x0_0070, 0x80, "╘"), // left of boss room
	newSpec(0x0_7000, 0x80, "╛"), // right of boss room
}

var riverScreens = []*Spec{
	newSpec(0x0_3333, 0xd3, "╬", conn(0x15), conn(0x3d), bridge(0xb6, 0x79, 0xbf), poiAt(4, 0x00, 0x98)),
	newSpec(0x0_0303, 0xd4, "║", conn(0x19), conn(0x3b)),
	newSpec(0x0_3030, 0xd5, "═", conn(0x5d), conn(0x7f)),
	newSpec(0x1_0303, 0xd6, "║", bridge(0x87, 0x19, 0x3b)),
	newSpec(0x1_3030, 0xd7, "═", bridge(0x86, 0x5d, 0x7f)),
	newSpec(0x0_0330, 0xd8, "╔", conn(0x9d), conn(0xbf)),
	newSpec(0x0_3300, 0xd9, "╗", conn(0x5b), conn(0x79)),
	newSpec(0x0_0033, 0xda, "╚", conn(0x1f), conn(0x3d)),
	newSpec(0x0_3003, 0xdb, "╝", conn(0x15), conn(0x37)),
	newSpec(0x0_3031, 0xdc, "╧", conn(0x25d), conn(0x7f)),
	newSpec(0x0_3130, 0xdd, "╤", conn(0x5d), conn(0x7af)),
	newSpec(0x0_1303, 0xde, "╢", conn(0x169), conn(0x3b)),
	newSpec(0x0_0313, 0xdf, "╟", conn(0x19), conn(0x3be)),
	// vertical dead ends
	newSpec(0x8_0303, 0xf0, " ", conn(0x1), conn(0x3), conn(0x9), conn(0xb), deadEnd),
	newSpec(0x0_0003, 0xf0, " ", conn(0x1), conn(0x3),
		poiAt(1, -0x30, 0x48), poiAt(1, -0x30, 0x98), deadEnd),
	newSpec(0x0_0300, 0xf0, " ", conn(0x9), conn(0xb),
		poiAt(1, 0x110, 0x48), poiAt(1, 0x110, 0x98), deadEnd),
	// horizontal dead ends
	newSpec(0x8_3030, 0xf1, " ", conn(0x5), conn(0x7), conn(0xd), conn(0xf), deadEnd),
	newSpec(0x0_0030, 0xf1, " ", conn(0xd), conn(0xf),
		poiAt(1, 0x60, 0x108), poiAt(1, 0xa0, 0x108), deadEnd),
	newSpec(0x0_3000, 0xf1, " ", conn(0x5), conn(0x7),
		poiAt(1, 0x60, -0x28), poiAt(1, 0xa0, -0x28), deadEnd),
	// top/bottom bridges
	newSpec(0x1_0003, 0xf2, "╨", bridge(0x17, 0x1, 0x3)),
	newSpec(0x1_0300, 0xf2, "╥", bridge(0xc6, 0x9, 0xb)),
	newSpec(0x0_3330, 0xf3, "╦", conn(0x5d), conn(0x79), conn(0xbf)),
	newSpec(0x0_3033, 0xf4, "╩", conn(0x15), conn(0x3d), conn(0x7f)),
	// notched vertical halls
	newSpec(0x2_0303, 0xf5, "╠", conn(0x19), conn(0x3), conn(0xb),
		poiAt(1, 0xc0, 0x98), poiAt(1, 0x40, 0x98)),
	newSpec(0x4_0303, 0xf6, "╣", conn(0x1), conn(0x9), conn(0x3b),
		poiAt(1, 0xb0, 0x48), poiAt(1, 0x30, 0x48)),
}

var wideScreens = []*Spec{
	newSpec(0x0_0002, 0x71, "┻", conn(0x2), stairDown(0xcf_80, 0xd7)),
	newSpec(0x0_0202, 0x72, "┃", conn(0x2a)),
	newSpec(0x0_0022, 0xe0, "┖", conn(0x2e)),
	newSpec(0x0_2002, 0xe1, "┚", conn(0x26)),
	newSpec(0x0_0220, 0xe2, "┎", conn(0xae)),
	newSpec(0x0_2200, 0xe3, "┒", conn(0x6a)),
	// Not safely placeable at random; wide caves build paths around these.
	newSpec(0x1_0202, 0xe5, "╏", fixed, conn(0x2), conn(0xa)),
	newSpec(0x0_2222, 0xe6, "╂", conn(0x26ae)),
	newSpec(0x0_2022, 0xe7, "┸", conn(0x26e)),
	newSpec(0x0_2220, 0xe8, "┰", conn(0x6ae)),
	newSpec(0x0_0201, 0xe9, "╽", fixed, wall(0x37, 0x2, 0xa)),
	newSpec(0x0_2020, 0xea, "─", conn(0x6e)),
	newSpec(0x1_0201, 0xfd, "╽", fixed, conn(0x2a)),
}

var pitScreens = []*Spec{
	newSpec(0x8_1010, 0xeb, "┈", pit, conn(0x6e)),
	newSpec(0x8_0101, 0xec, "┊", pit, conn(0x2a)),
}

var spikeScreens = []*Spec{
	newSpec(0x0_0104, 0xed, "╿", conn(0x2a)),
	newSpec(0x0_0401, 0xee, "╽", conn(0x2a)),
	newSpec(0x0_1414, 0xef, "╂", conn(0x26ae)),
	newSpec(0x0_0404, 0xf7, "┃", conn(0x2a)),
}

// wideTiles are the tiles that may appear in a wide cave.
var wideTiles = tileSet(append([]*Spec{emptyCaveScreen}, wideScreens...))

// riverTiles are the tiles with water on them.
var riverTiles = tileSet(riverScreens)

func tileSet(specs []*Spec) map[int]bool {
	out := make(map[int]bool, len(specs))
	for _, s := range specs {
		out[s.Tile] = true
	}
	return out
}

// Cave is the catalog of all cave screens.
var Cave = NewSpecSet([][]*Spec{
	basicCaveScreens,
	bossCaveScreens,
	riverScreens,
	wideScreens,
	pitScreens,
	spikeScreens,
}, emptyCaveScreen)
