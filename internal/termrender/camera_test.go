package termrender

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCamera_Cell(t *testing.T) {
	t.Parallel()

	cam := Camera{OriginX: 1, OriginY: -2, Width: 20, Height: 10}
	tests := []struct {
		name     string
		x, y     float64
		col, row int
		visible  bool
	}{
		{name: "origin", x: 1, y: -2, col: 0, row: 0, visible: true},
		{name: "fraction rounds down", x: 3.9, y: 0.5, col: 4, row: 2, visible: true},
		{name: "last column", x: 10.5, y: 7, col: 18, row: 9, visible: true},
		{name: "past the right edge", x: 11, y: 0, col: 20, row: 2},
		{name: "left of the origin", x: 0.5, y: 0, col: -2, row: 2},
		{name: "below the viewport", x: 2, y: 8, col: 2, row: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			col, row, visible := cam.Cell(tt.x, tt.y)
			assert.Equal(t, tt.col, col)
			assert.Equal(t, tt.row, row)
			assert.Equal(t, tt.visible, visible)
		})
	}
}

func TestCamera_CenterOn(t *testing.T) {
	t.Parallel()

	cam := Camera{Width: 40, Height: 20}
	cam.CenterOn(100, 50)

	col, row, visible := cam.Cell(100, 50)
	assert.True(t, visible)
	assert.Equal(t, 20, col)
	assert.Equal(t, 10, row)
}
