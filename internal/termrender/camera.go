package termrender

import "math"

// Camera maps world positions to terminal cells. One world unit spans two columns and one row, so
// wide glyphs line up on a square grid.
type Camera struct {
	OriginX float64 // World X shown at column 0
	OriginY float64 // World Y shown at row 0
	Width   int     // Viewport width in columns
	Height  int     // Viewport height in rows
}

// CenterOn moves the camera so the world position (x, y) is in the middle of the viewport.
func (c *Camera) CenterOn(x, y float64) {
	c.OriginX = x - float64(c.Width)/4
	c.OriginY = y - float64(c.Height)/2
}

// Cell returns the cell showing the world position (x, y). visible is false when the cell is outside
// the viewport.
func (c *Camera) Cell(x, y float64) (col, row int, visible bool) {
	col = int(math.Floor(x-c.OriginX)) * 2
	row = int(math.Floor(y - c.OriginY))
	visible = col >= 0 && col < c.Width && row >= 0 && row < c.Height
	return col, row, visible
}
