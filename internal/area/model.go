// Package area provides the location record a cave shuffle reads its
// structural requirements from and writes its finished layout back into.
package area

import (
	"errors"
	"fmt"
	"slices"

	"github.com/cory-johannsen/caveshuffle/internal/grid"
)

// EmptyTile is the tile id of a screen with no passable terrain.
const EmptyTile = 0x80

// Spawn types.
const (
	SpawnMonster = 0
	SpawnNPC     = 1
	// SpawnChest covers chests (id < 0x80) and triggers (id >= 0x80).
	SpawnChest = 2
	SpawnWall  = 3
)

const (
	// bridgeElement is the wall spawn id denoting a bridge.
	bridgeElement = 2
	triggerBase   = 0x80
)

// Entrance is a point where the player arrives in the area.
type Entrance struct {
	// Screen is the cell holding the entrance.
	Screen grid.Pos
	// Coord is the pixel position within the screen as YyXx.
	Coord int
}

// Tile returns the entrance position in tile units within its screen (yx).
func (e Entrance) Tile() int {
	return (e.Coord>>8)&0xf0 | (e.Coord&0xff)>>4
}

// X returns the absolute horizontal pixel coordinate.
func (e Entrance) X() int {
	return e.Screen.Col()<<8 | e.Coord&0xff
}

// Y returns the absolute vertical pixel coordinate.
func (e Entrance) Y() int {
	return e.Screen.Row()<<8 | (e.Coord>>8)&0xff
}

// Exit is a tile that sends the player to another area.
type Exit struct {
	Screen grid.Pos
	// Tile is the yx tile within the screen.
	Tile int
	// Dest is the destination area id.
	Dest int
	// Entrance is the entrance index in the destination area.
	Entrance int
}

// X returns the absolute horizontal pixel coordinate of the exit tile.
func (e Exit) X() int {
	return e.Screen.Col()<<8 | (e.Tile&0xf)<<4
}

// Y returns the absolute vertical pixel coordinate of the exit tile.
func (e Exit) Y() int {
	return e.Screen.Row()<<8 | (e.Tile>>4)<<4
}

// Flag ties a game flag to a screen (walls, doors).
type Flag struct {
	Screen grid.Pos
	Flag   int
}

// Spawn is an object placed in the area at an absolute pixel position.
type Spawn struct {
	Y    int
	X    int
	Type int
	ID   int
}

// Screen returns the cell containing the spawn.
func (s Spawn) Screen() grid.Pos {
	return grid.PosOf(s.Y>>8, s.X>>8)
}

// IsMonster reports whether the spawn is a monster.
func (s Spawn) IsMonster() bool {
	return s.Type == SpawnMonster
}

// IsTrigger reports whether the spawn is an invisible trigger.
func (s Spawn) IsTrigger() bool {
	return s.Type == SpawnChest && s.ID >= triggerBase
}

// WallType returns "wall" or "bridge" for wall spawns, and "" otherwise.
func (s Spawn) WallType() string {
	if s.Type != SpawnWall || s.ID >= 4 {
		return ""
	}
	if s.ID == bridgeElement {
		return "bridge"
	}
	return "wall"
}

// WallElement returns the element a wall spawn requires, or -1.
func (s Spawn) WallElement() int {
	if s.WallType() == "" {
		return -1
	}
	return s.ID & 3
}

// Tile returns the yx tile of the spawn within its screen.
func (s Spawn) Tile() int {
	return (s.Y&0xf0) | (s.X&0xf0)>>4
}

// MoveTo places the spawn on tile (yx) of screen pos.
func (s *Spawn) MoveTo(pos grid.Pos, tile int) {
	s.Y = pos.Row()<<8 | (tile>>4)<<4
	s.X = pos.Col()<<8 | (tile&0xf)<<4
}

// Area is a tile-grid location.
type Area struct {
	ID      int
	Name    string
	Tileset int
	Width   int
	Height  int
	// Screens holds Height rows of Width tile ids.
	Screens   [][]int
	Entrances []Entrance
	Exits     []Exit
	Flags     []Flag
	Spawns    []Spawn
}

// Tile returns the tile id at pos.
//
// Precondition: pos is within Width and Height.
func (a *Area) Tile(pos grid.Pos) int {
	return a.Screens[pos.Row()][pos.Col()]
}

// InBounds reports whether pos lies within the area.
func (a *Area) InBounds(pos grid.Pos) bool {
	return pos >= 0 && pos.Col() < a.Width && pos.Row() < a.Height
}

// Label returns a human-readable identifier for error messages.
func (a *Area) Label() string {
	return fmt.Sprintf("%02x %s", a.ID, a.Name)
}

// Validate checks area invariants.
//
// Postcondition: Returns nil if the area is well-formed.
func (a *Area) Validate() error {
	if a.Width < 1 || a.Width > 16 {
		return fmt.Errorf("area %s: width must be 1-16, got %d", a.Label(), a.Width)
	}
	if a.Height < 1 || a.Height > 16 {
		return fmt.Errorf("area %s: height must be 1-16, got %d", a.Label(), a.Height)
	}
	if len(a.Screens) != a.Height {
		return fmt.Errorf("area %s: expected %d screen rows, got %d", a.Label(), a.Height, len(a.Screens))
	}
	for y, row := range a.Screens {
		if len(row) != a.Width {
			return fmt.Errorf("area %s: row %d has %d screens, expected %d", a.Label(), y, len(row), a.Width)
		}
	}
	var errs []error
	for i, e := range a.Entrances {
		if !a.InBounds(e.Screen) {
			errs = append(errs, fmt.Errorf("entrance %d screen %s out of bounds", i, e.Screen))
		}
	}
	for i, e := range a.Exits {
		if !a.InBounds(e.Screen) {
			errs = append(errs, fmt.Errorf("exit %d screen %s out of bounds", i, e.Screen))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("area %s: %w", a.Label(), errors.Join(errs...))
	}
	return nil
}

// Clone returns a deep copy of the area.
func (a *Area) Clone() *Area {
	c := *a
	c.Screens = make([][]int, len(a.Screens))
	for i, row := range a.Screens {
		c.Screens[i] = slices.Clone(row)
	}
	c.Entrances = slices.Clone(a.Entrances)
	c.Exits = slices.Clone(a.Exits)
	c.Flags = slices.Clone(a.Flags)
	c.Spawns = slices.Clone(a.Spawns)
	return &c
}
