// Package spatial maps bilingual ordinal/cardinal qualifiers ("top-right",
// "arriba a la derecha") onto a 3×3 grid over the screen.
package spatial

// Zone is a canonical grid region tag.
type Zone string

const (
	ZoneNone         Zone = ""
	ZoneTop          Zone = "top"
	ZoneBottom       Zone = "bottom"
	ZoneLeft         Zone = "left"
	ZoneRight        Zone = "right"
	ZoneCenter       Zone = "center"
	ZoneTopLeft      Zone = "top-left"
	ZoneTopCenter    Zone = "top-center"
	ZoneTopRight     Zone = "top-right"
	ZoneCenterLeft   Zone = "center-left"
	ZoneCenterRight  Zone = "center-right"
	ZoneBottomLeft   Zone = "bottom-left"
	ZoneBottomCenter Zone = "bottom-center"
	ZoneBottomRight  Zone = "bottom-right"
)

// Cell identifies one of the nine grid cells; row 0 is the top third,
// col 0 the left third.
type Cell struct {
	Row, Col int
}

// Cells returns the grid cells a zone resolves to: a full row, a full
// column, or exactly one cell for center and composites.
func (z Zone) Cells() []Cell {
	switch z {
	case ZoneTop:
		return []Cell{{0, 0}, {0, 1}, {0, 2}}
	case ZoneBottom:
		return []Cell{{2, 0}, {2, 1}, {2, 2}}
	case ZoneLeft:
		return []Cell{{0, 0}, {1, 0}, {2, 0}}
	case ZoneRight:
		return []Cell{{0, 2}, {1, 2}, {2, 2}}
	case ZoneCenter:
		return []Cell{{1, 1}}
	case ZoneTopLeft:
		return []Cell{{0, 0}}
	case ZoneTopCenter:
		return []Cell{{0, 1}}
	case ZoneTopRight:
		return []Cell{{0, 2}}
	case ZoneCenterLeft:
		return []Cell{{1, 0}}
	case ZoneCenterRight:
		return []Cell{{1, 2}}
	case ZoneBottomLeft:
		return []Cell{{2, 0}}
	case ZoneBottomCenter:
		return []Cell{{2, 1}}
	case ZoneBottomRight:
		return []Cell{{2, 2}}
	}
	return nil
}

// cellOf maps a point to its grid cell on a width×height screen.
func cellOf(width, height, x, y int) Cell {
	col := x * 3 / width
	row := y * 3 / height
	if col > 2 {
		col = 2
	}
	if row > 2 {
		row = 2
	}
	if col < 0 {
		col = 0
	}
	if row < 0 {
		row = 0
	}
	return Cell{Row: row, Col: col}
}

// Contains reports whether the point lies in any cell implied by the zone.
func (z Zone) Contains(width, height, x, y int) bool {
	if z == ZoneNone || width <= 0 || height <= 0 {
		return false
	}
	pt := cellOf(width, height, x, y)
	for _, c := range z.Cells() {
		if c == pt {
			return true
		}
	}
	return false
}
