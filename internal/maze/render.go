package maze

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/caveshuffle/internal/grid"
)

var unicodeTiles = map[grid.Scr]string{
	0x1010: "─",
	0x0101: "│",
	0x0110: "┌",
	0x1100: "┐",
	0x0011: "└",
	0x1001: "┘",
	0x0111: "├",
	0x1101: "┤",
	0x1110: "┬",
	0x1011: "┴",
	0x1111: "┼",
	0x1000: "╴",
	0x0001: "╵",
	0x0010: "╶",
	0x0100: "╷",
}

// blank reports whether pos renders as nothing: unset, the empty screen, or
// a screen drawn with an empty tile.
func (m *Maze) blank(pos grid.Pos, emptyTiles map[int]bool) bool {
	c := m.cells[pos]
	if !c.ok || c.scr == 0 {
		return true
	}
	sp := m.screens[c.scr]
	return sp != nil && emptyTiles[sp.Tile]
}

// Trim drops outer rows and columns that hold only blank cells. A grid that
// is entirely blank is left alone.
func (m *Maze) Trim() {
	emptyTiles := make(map[int]bool)
	for _, scr := range m.order {
		if sp := m.screens[scr]; sp.Edges == 0 {
			emptyTiles[sp.Tile] = true
		}
	}
	top, bottom, left, right := m.height, -1, m.width, -1
	for _, pos := range m.AllPos() {
		if m.blank(pos, emptyTiles) {
			continue
		}
		top, bottom = min(top, pos.Row()), max(bottom, pos.Row())
		left, right = min(left, pos.Col()), max(right, pos.Col())
	}
	if bottom < 0 {
		return
	}
	if top == 0 && left == 0 && bottom == m.height-1 && right == m.width-1 {
		return
	}
	height, width := bottom-top+1, right-left+1
	cells := make([]cell, height<<4)
	border := make([]grid.Scr, height<<4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			from := grid.PosOf(y+top, x+left)
			to := grid.PosOf(y, x)
			cells[to] = m.cells[from]
			border[to] = m.border[from]
		}
	}
	m.cells, m.border = cells, border
	m.height, m.width = height, width
}

// Show renders the grid for diagnostics, as catalog icons or, with hex,
// as raw screen values.
func (m *Maze) Show(hex bool) string {
	var b strings.Builder
	b.WriteByte(' ')
	for x := 0; x < m.width; x++ {
		if hex {
			fmt.Fprintf(&b, " %5x", x)
		} else {
			fmt.Fprintf(&b, "%x", x)
		}
	}
	for y := 0; y < m.height; y++ {
		fmt.Fprintf(&b, "\n%x", y)
		for x := 0; x < m.width; x++ {
			c := m.cells[grid.PosOf(y, x)]
			switch {
			case hex:
				fmt.Fprintf(&b, " %s", c.scr)
			case !c.ok:
				b.WriteByte(' ')
			case m.screens[c.scr] != nil:
				b.WriteString(m.screens[c.scr].Icon)
			default:
				var index grid.Scr
				for _, d := range grid.AllDirs {
					if c.scr.Edge(d) != 0 {
						index |= 1 << d.Shift()
					}
				}
				if icon, ok := unicodeTiles[index]; ok {
					b.WriteString(icon)
				} else {
					b.WriteByte(' ')
				}
			}
		}
	}
	return b.String()
}
