// Package termrender draws engine sprites as glyphs on a terminal.
//
// Assets are plain text. A texture is the glyph drawn for a sprite, a pixel shader names the
// foreground color and a vertex shader names the background color, using the color names tcell
// understands (e.g. "yellow" or "#ff8800"). An empty shader keeps the terminal's default color.
// Rotation and scale are ignored.
package termrender

import (
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"github.com/kyanite-engine/kyanite/pkg/engine"
	"github.com/mattn/go-runewidth"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// GlyphKey is the material texture slot holding the glyph. A material with a single texture uses
// it regardless of its key.
const GlyphKey = "glyph"

var (
	_ engine.FrameRenderer = (*Screen)(nil)
	_ engine.AssetBackend  = (*Screen)(nil)
)

type shader struct {
	stage engine.ShaderStage
	color tcell.Color
}

type material struct {
	glyph string
	style tcell.Style
}

// Screen implements engine.FrameRenderer and engine.AssetBackend on top of a tcell screen. Draws
// submitted during a frame are buffered and painted in EndFrame, lowest layer first.
type Screen struct {
	screen tcell.Screen
	logger zerolog.Logger

	mu        sync.Mutex
	camera    Camera
	next      engine.Handle
	textures  map[engine.Handle]string
	shaders   map[engine.Handle]shader
	materials map[engine.Handle]material
	draws     []engine.DrawCommand
	dropped   int
}

// New creates a renderer drawing on screen, which must already be initialized. The camera covers
// the whole screen.
func New(screen tcell.Screen, logger zerolog.Logger) *Screen {
	w, h := screen.Size()
	return &Screen{
		screen:    screen,
		logger:    logger,
		camera:    Camera{Width: w, Height: h},
		textures:  make(map[engine.Handle]string),
		shaders:   make(map[engine.Handle]shader),
		materials: make(map[engine.Handle]material),
	}
}

// Camera returns a copy of the current camera.
func (s *Screen) Camera() Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

// CenterOn centers the camera on the world position (x, y).
func (s *Screen) CenterOn(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.CenterOn(x, y)
}

// Resize updates the viewport after the terminal changed size.
func (s *Screen) Resize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera.Width, s.camera.Height = s.screen.Size()
	s.screen.Sync()
}

// LoadTexture turns the file contents into a glyph. Surrounding whitespace is trimmed and the glyph
// must be one or two columns wide.
func (s *Screen) LoadTexture(path string, data []byte) (engine.Handle, error) {
	glyph := strings.TrimSpace(string(data))
	if glyph == "" || !utf8.ValidString(glyph) {
		return 0, eris.Errorf("texture %s is not a glyph", path)
	}
	if w := runewidth.StringWidth(glyph); w < 1 || w > 2 {
		return 0, eris.Errorf("texture %s is %d columns wide", path, w)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.handle()
	s.textures[h] = glyph
	return h, nil
}

// CreateShader parses the shader source as a color name.
func (s *Screen) CreateShader(path string, stage engine.ShaderStage, data []byte) (engine.Handle, error) {
	color, err := parseColor(string(data))
	if err != nil {
		return 0, eris.Wrapf(err, "%s shader %s", stage, path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.handle()
	s.shaders[h] = shader{stage: stage, color: color}
	return h, nil
}

// CreateMaterial combines a glyph texture with the colors of its shaders. A non-zero "bold" int
// draws the glyph in bold.
func (s *Screen) CreateMaterial(desc engine.MaterialDesc) (engine.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	texture, ok := desc.Textures[GlyphKey]
	if !ok && len(desc.Textures) == 1 {
		for _, h := range desc.Textures {
			texture = h
		}
		ok = true
	}
	if !ok {
		return 0, eris.Errorf("material %s has no %q texture", desc.Name, GlyphKey)
	}
	glyph, ok := s.textures[texture]
	if !ok {
		return 0, eris.Errorf("material %s uses unknown texture %d", desc.Name, texture)
	}

	ps, ok := s.shaders[desc.PixelShader]
	if !ok {
		return 0, eris.Errorf("material %s uses unknown pixel shader %d", desc.Name, desc.PixelShader)
	}
	vs, ok := s.shaders[desc.VertexShader]
	if !ok {
		return 0, eris.Errorf("material %s uses unknown vertex shader %d", desc.Name, desc.VertexShader)
	}

	style := tcell.StyleDefault.Foreground(ps.color).Background(vs.color)
	if desc.Ints["bold"] != 0 {
		style = style.Bold(true)
	}

	h := s.handle()
	s.materials[h] = material{glyph: glyph, style: style}
	return h, nil
}

// SubmitDraw queues a sprite for the current frame.
func (s *Screen) SubmitDraw(cmd engine.DrawCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.materials[cmd.Material]; !ok {
		return eris.Errorf("entity %d: unknown material %d", cmd.Entity, cmd.Material)
	}
	s.draws = append(s.draws, cmd)
	return nil
}

// StartFrame discards draws left over from a frame that was never ended.
func (s *Screen) StartFrame() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draws = s.draws[:0]
	return nil
}

// EndFrame paints the frame's draws and shows the result. Draws on the same layer are painted in
// entity order, so the output doesn't depend on which worker submitted first.
func (s *Screen) EndFrame() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slices.SortFunc(s.draws, func(a, b engine.DrawCommand) int {
		if a.Layer != b.Layer {
			return a.Layer - b.Layer
		}
		return int(a.Entity) - int(b.Entity)
	})

	s.screen.Clear()
	offscreen := 0
	for _, cmd := range s.draws {
		col, row, visible := s.camera.Cell(cmd.Position.X, cmd.Position.Y)
		if !visible {
			offscreen++
			continue
		}
		m := s.materials[cmd.Material]
		s.putGlyph(col, row, m.glyph, m.style)
	}
	s.screen.Show()

	if offscreen != s.dropped {
		s.logger.Debug().Int("offscreen", offscreen).Int("draws", len(s.draws)).Msg("sprites outside the viewport")
		s.dropped = offscreen
	}
	s.draws = s.draws[:0]
	return nil
}

func (s *Screen) handle() engine.Handle {
	s.next++
	return s.next
}

// putGlyph draws a glyph of one or more runes at (x, y). Wide glyphs also fill the next column.
func (s *Screen) putGlyph(x, y int, glyph string, style tcell.Style) {
	runes := []rune(glyph)
	var comb []rune
	if len(runes) > 1 {
		comb = runes[1:]
	}
	s.screen.SetContent(x, y, runes[0], comb, style)
	if runewidth.StringWidth(glyph) == 2 {
		s.screen.SetContent(x+1, y, ' ', nil, style)
	}
}

func parseColor(src string) (tcell.Color, error) {
	name := strings.ToLower(strings.TrimSpace(src))
	if name == "" || name == "default" {
		return tcell.ColorDefault, nil
	}
	color := tcell.GetColor(name)
	if color == tcell.ColorDefault {
		return tcell.ColorDefault, eris.Errorf("unknown color %q", name)
	}
	return color, nil
}
