package area

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/caveshuffle/internal/grid"
)

// yamlAreaFile is the top-level YAML structure for area files.
type yamlAreaFile struct {
	Area yamlArea `yaml:"area"`
}

// yamlArea is the YAML representation of an area. Screens are rows of
// space-separated hex tile ids.
type yamlArea struct {
	ID        int            `yaml:"id"`
	Name      string         `yaml:"name"`
	Tileset   int            `yaml:"tileset"`
	Width     int            `yaml:"width"`
	Height    int            `yaml:"height"`
	Screens   []string       `yaml:"screens"`
	Entrances []yamlEntrance `yaml:"entrances,omitempty"`
	Exits     []yamlExit     `yaml:"exits,omitempty"`
	Flags     []yamlFlag     `yaml:"flags,omitempty"`
	Spawns    []yamlSpawn    `yaml:"spawns,omitempty"`
}

type yamlEntrance struct {
	Screen int `yaml:"screen"`
	Coord  int `yaml:"coord"`
}

type yamlExit struct {
	Screen   int `yaml:"screen"`
	Tile     int `yaml:"tile"`
	Dest     int `yaml:"dest"`
	Entrance int `yaml:"entrance"`
}

type yamlFlag struct {
	Screen int `yaml:"screen"`
	Flag   int `yaml:"flag"`
}

type yamlSpawn struct {
	Y    int `yaml:"y"`
	X    int `yaml:"x"`
	Type int `yaml:"type"`
	ID   int `yaml:"id"`
}

// LoadFromFile reads and validates a single area YAML file.
//
// Precondition: path must point to a valid YAML area file.
// Postcondition: Returns a validated Area or a non-nil error.
func LoadFromFile(path string) (*Area, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading area file %s: %w", path, err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses and validates an area from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the area schema.
// Postcondition: Returns a validated Area or a non-nil error.
func LoadFromBytes(data []byte) (*Area, error) {
	var file yamlAreaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing area YAML: %w", err)
	}
	a, err := convertYAMLArea(file.Area)
	if err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("validating area: %w", err)
	}
	return a, nil
}

// Marshal renders the area in the same YAML schema LoadFromBytes accepts.
//
// Postcondition: LoadFromBytes(Marshal(a)) reproduces a.
func Marshal(a *Area) ([]byte, error) {
	ya := yamlArea{
		ID:      a.ID,
		Name:    a.Name,
		Tileset: a.Tileset,
		Width:   a.Width,
		Height:  a.Height,
	}
	for _, row := range a.Screens {
		ya.Screens = append(ya.Screens, FormatScreens(row))
	}
	for _, e := range a.Entrances {
		ya.Entrances = append(ya.Entrances, yamlEntrance{Screen: int(e.Screen), Coord: e.Coord})
	}
	for _, e := range a.Exits {
		ya.Exits = append(ya.Exits, yamlExit{Screen: int(e.Screen), Tile: e.Tile, Dest: e.Dest, Entrance: e.Entrance})
	}
	for _, f := range a.Flags {
		ya.Flags = append(ya.Flags, yamlFlag{Screen: int(f.Screen), Flag: f.Flag})
	}
	for _, s := range a.Spawns {
		ya.Spawns = append(ya.Spawns, yamlSpawn(s))
	}
	data, err := yaml.Marshal(yamlAreaFile{Area: ya})
	if err != nil {
		return nil, fmt.Errorf("marshalling area: %w", err)
	}
	return data, nil
}

// SaveToFile writes the area as YAML to path.
//
// Postcondition: path holds a file LoadFromFile accepts, or an error is returned.
func SaveToFile(a *Area, path string) error {
	data, err := Marshal(a)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing area file %s: %w", path, err)
	}
	return nil
}

// ParseScreens parses a row of space-separated hex tile ids.
func ParseScreens(row string) ([]int, error) {
	fields := strings.Fields(row)
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseInt(f, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("bad screen %q in %q", f, row)
		}
		out = append(out, int(v))
	}
	return out, nil
}

// FormatScreens renders a row of tile ids as space-separated hex.
func FormatScreens(row []int) string {
	parts := make([]string, len(row))
	for i, t := range row {
		parts[i] = fmt.Sprintf("%02x", t)
	}
	return strings.Join(parts, " ")
}

func convertYAMLArea(ya yamlArea) (*Area, error) {
	a := &Area{
		ID:      ya.ID,
		Name:    ya.Name,
		Tileset: ya.Tileset,
		Width:   ya.Width,
		Height:  ya.Height,
	}
	for _, row := range ya.Screens {
		tiles, err := ParseScreens(row)
		if err != nil {
			return nil, fmt.Errorf("area %s: %w", a.Label(), err)
		}
		a.Screens = append(a.Screens, tiles)
	}
	for _, e := range ya.Entrances {
		a.Entrances = append(a.Entrances, Entrance{Screen: grid.Pos(e.Screen), Coord: e.Coord})
	}
	for _, e := range ya.Exits {
		a.Exits = append(a.Exits, Exit{Screen: grid.Pos(e.Screen), Tile: e.Tile, Dest: e.Dest, Entrance: e.Entrance})
	}
	for _, f := range ya.Flags {
		a.Flags = append(a.Flags, Flag{Screen: grid.Pos(f.Screen), Flag: f.Flag})
	}
	for _, s := range ya.Spawns {
		a.Spawns = append(a.Spawns, Spawn(s))
	}
	return a, nil
}
