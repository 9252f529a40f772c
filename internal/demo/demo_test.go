package demo

import (
	"context"
	"math"
	"testing"

	"github.com/kyanite-engine/kyanite/pkg/ecs"
	"github.com/kyanite-engine/kyanite/pkg/engine"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	next engine.Handle
}

func (b *stubBackend) handle() (engine.Handle, error) {
	b.next++
	return b.next, nil
}

func (b *stubBackend) LoadTexture(string, []byte) (engine.Handle, error) { return b.handle() }

func (b *stubBackend) CreateShader(string, engine.ShaderStage, []byte) (engine.Handle, error) {
	return b.handle()
}

func (b *stubBackend) CreateMaterial(engine.MaterialDesc) (engine.Handle, error) { return b.handle() }

func newWorld(t *testing.T, arena Arena) *ecs.World {
	t.Helper()
	w, err := ecs.NewWorld(ecs.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	require.NoError(t, engine.RegisterComponents(w))
	require.NoError(t, RegisterComponents(w))
	require.NoError(t, w.AddPipeline(engine.PipelineLateUpdate))
	require.NoError(t, RegisterSystems(w, arena))
	return w
}

func TestBounce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		pos, vel         float64
		wantPos, wantVel float64
	}{
		{name: "inside", pos: 4, vel: -1, wantPos: 4, wantVel: -1},
		{name: "on the low edge", pos: 0, vel: -1, wantPos: 0, wantVel: -1},
		{name: "past the low edge", pos: -0.5, vel: -2, wantPos: 0.5, wantVel: 2},
		{name: "past the high edge", pos: 10.5, vel: 3, wantPos: 9.5, wantVel: -3},
		{name: "far past the high edge", pos: 25, vel: 3, wantPos: 0, wantVel: -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pos, vel := bounce(tt.pos, tt.vel, 10)
			assert.InDelta(t, tt.wantPos, pos, 1e-9)
			assert.InDelta(t, tt.wantVel, vel, 0)
		})
	}

	pos, _ := bounce(10, 1, 10)
	assert.Less(t, pos, 10.0)
}

func TestEmitterAndLifetime(t *testing.T) {
	t.Parallel()

	w := newWorld(t, Arena{Width: 10, Height: 10})
	_, err := w.CreateEntity("emitter",
		engine.NewTransform(engine.Vec3{X: 1, Y: 1}, 0, engine.One),
		Emitter{Interval: 0.25, TTL: 0.75, Material: 7})
	require.NoError(t, err)

	// Two particles per tick, each living for one and a half ticks.
	counts := []int{3, 5, 5, 5}
	for tick, want := range counts {
		require.NoError(t, w.Tick(0.5))
		assert.Equal(t, want, w.EntityCount(), "tick %d", tick+1)
	}

	particle, ok := w.Lookup("particle")
	require.True(t, ok)
	tf := ecs.Get[engine.Transform](w, particle)
	require.NotNil(t, tf)
	assert.Equal(t, engine.Vec3{X: 1, Y: 1}, tf.Position)
	sprite := ecs.Get[engine.Sprite](w, particle)
	require.NotNil(t, sprite)
	assert.Equal(t, engine.Sprite{Material: 7, Layer: layerTrail}, *sprite)
}

func TestEmitterWithoutInterval(t *testing.T) {
	t.Parallel()

	w := newWorld(t, Arena{Width: 10, Height: 10})
	_, err := w.CreateEntity("broken", engine.NewTransform(engine.Vec3{}, 0, engine.One), Emitter{})
	require.NoError(t, err)
	require.ErrorContains(t, w.Tick(0.1), "without an interval")
}

func TestOrbit(t *testing.T) {
	t.Parallel()

	w := newWorld(t, Arena{Width: 10, Height: 10})
	moon, err := w.CreateEntity("moon",
		engine.NewTransform(engine.Vec3{}, 0, engine.One),
		Orbit{Radius: 2, Rate: math.Pi})
	require.NoError(t, err)

	require.NoError(t, w.Tick(0.5))
	tf := ecs.Get[engine.Transform](w, moon)
	assert.InDelta(t, 0, tf.LocalPosition.X, 1e-9)
	assert.InDelta(t, 2, tf.LocalPosition.Y, 1e-9)
	assert.InDelta(t, math.Pi/2, tf.LocalRotation, 1e-9)
}

func TestSetup(t *testing.T) {
	t.Parallel()

	eng, err := engine.New(engine.Options{
		Files:        Files(),
		Assets:       &stubBackend{},
		WorldOptions: []ecs.WorldOption{ecs.WithLogger(zerolog.Nop())},
	}, nil)
	require.NoError(t, err)

	arena := Arena{Width: 20, Height: 10}
	require.NoError(t, Setup(eng, Options{Ships: 3, Stars: 5, MaxSpeed: 10, Arena: arena, Seed: 1}))

	w := eng.World()
	assert.Equal(t, 5+3*2, w.EntityCount())

	orbitID, err := ecs.ComponentIDOf[Orbit](w)
	require.NoError(t, err)

	// Moons follow their ship within the frame that moved it.
	require.NoError(t, eng.Step(context.Background(), 0.1))
	moons := 0
	for id := ecs.EntityID(1); id <= 11; id++ {
		if !w.HasComponent(id, orbitID) {
			continue
		}
		moons++
		moon, ship := ecs.Get[engine.Transform](w, id), ecs.Get[engine.Transform](w, w.Parent(id))
		want := ship.Position.Add(moon.LocalPosition)
		assert.InDelta(t, want.X, moon.Position.X, 1e-9)
		assert.InDelta(t, want.Y, moon.Position.Y, 1e-9)
		assert.InDelta(t, ship.LocalPosition.X, ship.Position.X, 1e-9)
	}
	assert.Equal(t, 3, moons)

	for range 49 {
		require.NoError(t, eng.Step(context.Background(), 0.1))
	}

	velocityID, err := ecs.ComponentIDOf[engine.Velocity](w)
	require.NoError(t, err)

	ships := 0
	for id := ecs.EntityID(1); id <= 11; id++ {
		switch {
		case w.HasComponent(id, velocityID):
			ships++
			tf := ecs.Get[engine.Transform](w, id)
			assert.GreaterOrEqual(t, tf.LocalPosition.X, 0.0)
			assert.Less(t, tf.LocalPosition.X, arena.Width)
			assert.GreaterOrEqual(t, tf.LocalPosition.Y, 0.0)
			assert.Less(t, tf.LocalPosition.Y, arena.Height)
		case w.HasComponent(id, orbitID):
			parent := w.Parent(id)
			require.NotEqual(t, ecs.Null, parent)
			moon, ship := ecs.Get[engine.Transform](w, id), ecs.Get[engine.Transform](w, parent)
			d := moon.Position.Add(ship.Position.Scale(-1))
			assert.InDelta(t, 2, math.Hypot(d.X, d.Y), 1e-9)
		}
	}
	assert.Equal(t, 3, ships)
	assert.Greater(t, w.EntityCount(), 11)
}

func TestSetupRejectsEmptyArena(t *testing.T) {
	t.Parallel()

	eng, err := engine.New(engine.Options{
		Files:        Files(),
		Assets:       &stubBackend{},
		WorldOptions: []ecs.WorldOption{ecs.WithLogger(zerolog.Nop())},
	}, nil)
	require.NoError(t, err)
	require.Error(t, Setup(eng, Options{Ships: 1}))
}
