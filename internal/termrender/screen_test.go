package termrender_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/gdamore/tcell/v2"
	"github.com/kyanite-engine/kyanite/internal/termrender"
	"github.com/kyanite-engine/kyanite/pkg/ecs"
	"github.com/kyanite-engine/kyanite/pkg/engine"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScreen(t *testing.T) (*termrender.Screen, tcell.SimulationScreen) {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, sim.Init())
	sim.SetSize(40, 12)
	t.Cleanup(sim.Fini)
	return termrender.New(sim, zerolog.Nop()), sim
}

// newMaterial creates a material drawing glyph in the given foreground color.
func newMaterial(t *testing.T, s *termrender.Screen, glyph, fg string) engine.Handle {
	t.Helper()
	tex, err := s.LoadTexture(glyph+".txt", []byte(glyph))
	require.NoError(t, err)
	ps, err := s.CreateShader(fg+".ps", engine.ShaderPixel, []byte(fg))
	require.NoError(t, err)
	vs, err := s.CreateShader("plain.vs", engine.ShaderVertex, nil)
	require.NoError(t, err)
	h, err := s.CreateMaterial(engine.MaterialDesc{
		Name:         glyph,
		PixelShader:  ps,
		VertexShader: vs,
		Textures:     map[string]engine.Handle{termrender.GlyphKey: tex},
	})
	require.NoError(t, err)
	return h
}

func draw(t *testing.T, s *termrender.Screen, draws ...engine.DrawCommand) {
	t.Helper()
	require.NoError(t, s.StartFrame())
	for _, d := range draws {
		require.NoError(t, s.SubmitDraw(d))
	}
	require.NoError(t, s.EndFrame())
}

func at(x, y float64) engine.Vec3 {
	return engine.Vec3{X: x, Y: y}
}

func cell(sim tcell.SimulationScreen, col, row int) (rune, tcell.Style) {
	r, _, style, _ := sim.GetContent(col, row)
	return r, style
}

func TestScreen_LoadAssets(t *testing.T) {
	t.Parallel()

	s, _ := newScreen(t)

	tests := []struct {
		name    string
		load    func() error
		wantErr bool
	}{
		{name: "ascii glyph", load: func() error { _, err := s.LoadTexture("a", []byte(" @\n")); return err }},
		{name: "wide glyph", load: func() error { _, err := s.LoadTexture("b", []byte("🚀")); return err }},
		{name: "empty texture", load: func() error { _, err := s.LoadTexture("c", []byte("  ")); return err }, wantErr: true},
		{name: "texture too wide", load: func() error { _, err := s.LoadTexture("d", []byte("abc")); return err }, wantErr: true},
		{name: "invalid utf8", load: func() error { _, err := s.LoadTexture("e", []byte{0xff, 0xfe}); return err }, wantErr: true},
		{name: "named color", load: func() error { _, err := s.CreateShader("f", engine.ShaderPixel, []byte("Yellow")); return err }},
		{name: "hex color", load: func() error { _, err := s.CreateShader("g", engine.ShaderVertex, []byte("#ff8800")); return err }},
		{name: "unknown color", load: func() error { _, err := s.CreateShader("h", engine.ShaderPixel, []byte("sparkly")); return err }, wantErr: true},
	}
	for _, tt := range tests {
		err := tt.load()
		if tt.wantErr {
			assert.Error(t, err, tt.name)
		} else {
			assert.NoError(t, err, tt.name)
		}
	}
}

func TestScreen_MaterialNeedsKnownAssets(t *testing.T) {
	t.Parallel()

	s, _ := newScreen(t)
	tex, err := s.LoadTexture("t", []byte("@"))
	require.NoError(t, err)
	ps, err := s.CreateShader("p", engine.ShaderPixel, []byte("red"))
	require.NoError(t, err)

	// A single texture is used whatever its key.
	_, err = s.CreateMaterial(engine.MaterialDesc{
		Name: "single", PixelShader: ps, VertexShader: ps,
		Textures: map[string]engine.Handle{"albedo": tex},
	})
	require.NoError(t, err)

	_, err = s.CreateMaterial(engine.MaterialDesc{
		Name: "two", PixelShader: ps, VertexShader: ps,
		Textures: map[string]engine.Handle{"albedo": tex, "normal": tex},
	})
	require.Error(t, err)

	_, err = s.CreateMaterial(engine.MaterialDesc{
		Name: "noshader", PixelShader: 99, VertexShader: ps,
		Textures: map[string]engine.Handle{termrender.GlyphKey: tex},
	})
	require.Error(t, err)

	_, err = s.CreateMaterial(engine.MaterialDesc{
		Name: "notexture", PixelShader: ps, VertexShader: ps,
		Textures: map[string]engine.Handle{termrender.GlyphKey: 99},
	})
	require.Error(t, err)

	require.Error(t, s.SubmitDraw(engine.DrawCommand{Entity: 1, Material: 99}))
}

func TestScreen_PaintsSprites(t *testing.T) {
	t.Parallel()

	s, sim := newScreen(t)
	player := newMaterial(t, s, "@", "yellow")

	draw(t, s, engine.DrawCommand{Entity: 1, Material: player, Position: at(3, 2)})

	r, style := cell(sim, 6, 2)
	assert.Equal(t, '@', r)
	assert.Equal(t, tcell.StyleDefault.Foreground(tcell.ColorYellow).Background(tcell.ColorDefault), style)

	// The next frame starts from a blank screen.
	draw(t, s, engine.DrawCommand{Entity: 1, Material: player, Position: at(4, 2)})
	r, _ = cell(sim, 6, 2)
	assert.Equal(t, ' ', r)
	r, _ = cell(sim, 8, 2)
	assert.Equal(t, '@', r)
}

func TestScreen_HigherLayersPaintOnTop(t *testing.T) {
	t.Parallel()

	s, sim := newScreen(t)
	floor := newMaterial(t, s, ".", "gray")
	wall := newMaterial(t, s, "#", "white")

	draw(t, s,
		engine.DrawCommand{Entity: 1, Material: wall, Layer: 1, Position: at(1, 1)},
		engine.DrawCommand{Entity: 2, Material: floor, Layer: 0, Position: at(1, 1)},
	)
	r, _ := cell(sim, 2, 1)
	assert.Equal(t, '#', r)

	// Same layer: the higher entity id wins.
	draw(t, s,
		engine.DrawCommand{Entity: 5, Material: floor, Position: at(1, 1)},
		engine.DrawCommand{Entity: 3, Material: wall, Position: at(1, 1)},
	)
	r, _ = cell(sim, 2, 1)
	assert.Equal(t, '.', r)
}

func TestScreen_WideGlyphs(t *testing.T) {
	t.Parallel()

	s, sim := newScreen(t)
	rocket := newMaterial(t, s, "🚀", "default")

	draw(t, s,
		engine.DrawCommand{Entity: 1, Material: rocket, Position: at(0, 0)},
		engine.DrawCommand{Entity: 2, Material: rocket, Position: at(-5, 0)},
		engine.DrawCommand{Entity: 3, Material: rocket, Position: at(0, 100)},
	)
	r, _ := cell(sim, 0, 0)
	assert.Equal(t, '🚀', r)
	r, _ = cell(sim, 2, 0)
	assert.Equal(t, ' ', r)
}

func TestScreen_DrivesEngineFrames(t *testing.T) {
	t.Parallel()

	s, sim := newScreen(t)
	files := fstest.MapFS{
		"player.txt": {Data: []byte("@")},
		"player.ps":  {Data: []byte("green")},
		"sprite.vs":  {Data: []byte("")},
		"player.json": {Data: []byte(`{"name": "player", "pixelShader": "player.ps", "vertexShader": "sprite.vs",
			"textures": [{"path": "player.txt", "key": "glyph"}], "ints": {"bold": 1}}`)},
	}

	eng, err := engine.New(engine.Options{
		Files:        engine.FSFileSystem{FS: files},
		Assets:       s,
		Renderer:     s,
		WorldOptions: []ecs.WorldOption{ecs.WithLogger(zerolog.Nop())},
	}, nil)
	require.NoError(t, err)

	mat, err := eng.Resources().CreateMaterial("player.json")
	require.NoError(t, err)
	_, err = eng.World().CreateEntity("player",
		engine.NewTransform(at(2, 3), 0, engine.One),
		engine.Velocity{Linear: engine.Vec3{X: 1}},
		engine.Sprite{Material: mat})
	require.NoError(t, err)

	require.NoError(t, eng.Step(context.Background(), 1))
	r, style := cell(sim, 6, 3)
	assert.Equal(t, '@', r)
	assert.Equal(t, tcell.StyleDefault.Foreground(tcell.ColorGreen).Background(tcell.ColorDefault).Bold(true), style)
}
