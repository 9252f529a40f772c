package ecs

import (
	"sync"
	"testing"

	. "github.com/kyanite-engine/kyanite/pkg/testutils"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystem_Movement(t *testing.T) {
	t.Parallel()

	w := newTestWorld(t)
	registerTestComponents(t, w)

	_, err := w.RegisterSystem("movement", []ComponentKey{Of[Position](), Of[Velocity]()},
		func(dt float64, view *View) error {
			positions := Buffer[Position](view, 0)
			velocities := Buffer[Velocity](view, 1)
			for i := range view.Len() {
				positions[i].X += velocities[i].X * dt
				positions[i].Y += velocities[i].Y * dt
				positions[i].Z += velocities[i].Z * dt
			}
			return nil
		})
	require.NoError(t, err)

	// The third mover carries an extra component, so the system spans two archetypes.
	movers := make([]EntityID, 0, 3)
	for _, extra := range [][]Component{nil, nil, {Health{HP: 3}}} {
		e, err := w.CreateEntity("", append([]Component{Position{}, Velocity{X: 1}}, extra...)...)
		require.NoError(t, err)
		movers = append(movers, e)
	}
	still, err := w.CreateEntity("still", Position{X: 7})
	require.NoError(t, err)

	for range 5 {
		require.NoError(t, w.Tick(1.0))
	}

	for _, e := range movers {
		assert.Equal(t, Position{X: 5}, *Get[Position](w, e), "entity %d", e)
	}
	assert.Equal(t, Health{HP: 3}, *Get[Health](w, movers[2]))
	assert.Equal(t, Position{X: 7}, *Get[Position](w, still))
	assert.Equal(t, uint64(5), w.CurrentTick())
}

func TestSystem_UnregisteredComponentRejected(t *testing.T) {
	t.Parallel()

	w := newTestWorld(t)
	_, err := RegisterComponent[Position](w)
	require.NoError(t, err)

	called := false
	_, err = w.RegisterSystem("needs-health", []ComponentKey{Of[Position](), Of[Health]()},
		func(float64, *View) error {
			called = true
			return nil
		})
	require.ErrorIs(t, err, ErrComponentNotRegistered)

	_, err = w.CreateEntity("", Position{})
	require.NoError(t, err)
	require.NoError(t, w.Tick(1))

	assert.False(t, called)
	systems, err := w.Systems(DefaultPipeline)
	require.NoError(t, err)
	assert.Empty(t, systems)
}

func TestSystem_RegistrationErrors(t *testing.T) {
	t.Parallel()

	w := newTestWorld(t)
	ids := registerTestComponents(t, w)
	noop := func(float64, *View) error { return nil }

	tests := []struct {
		name     string
		sysName  string
		requires []ComponentKey
		fn       SystemFunc
		opts     []SystemOption
		wantErr  error
	}{
		{name: "empty name", requires: []ComponentKey{Of[Position]()}, fn: noop},
		{name: "nil callback", sysName: "s", requires: []ComponentKey{Of[Position]()}},
		{name: "no components", sysName: "s", fn: noop},
		{
			name:     "duplicate component",
			sysName:  "s",
			requires: []ComponentKey{Of[Position](), ByID(ids.position)},
			fn:       noop,
		},
		{
			name:     "unknown component id",
			sysName:  "s",
			requires: []ComponentKey{ByID(999)},
			fn:       noop,
			wantErr:  ErrComponentNotRegistered,
		},
		{
			name:     "unknown pipeline",
			sysName:  "s",
			requires: []ComponentKey{Named(RawName)},
			fn:       noop,
			opts:     []SystemOption{InPipeline("onRender")},
			wantErr:  ErrPipelineNotFound,
		},
	}

	for _, tt := range tests {
		_, err := w.RegisterSystem(tt.sysName, tt.requires, tt.fn, tt.opts...)
		require.Error(t, err, tt.name)
		if tt.wantErr != nil {
			require.ErrorIs(t, err, tt.wantErr, tt.name)
		}
	}

	systems, err := w.Systems(DefaultPipeline)
	require.NoError(t, err)
	assert.Empty(t, systems, "failed registrations must not record anything")
}

func TestSystem_PipelineOrder(t *testing.T) {
	t.Parallel()

	w := newTestWorld(t)
	registerTestComponents(t, w)
	require.NoError(t, w.AddPipeline("onRender"))
	require.Error(t, w.AddPipeline("onRender"))

	var order []string
	record := func(name string) SystemFunc {
		return func(float64, *View) error {
			order = append(order, name)
			return nil
		}
	}

	keys := []ComponentKey{Of[Position]()}
	_, err := w.RegisterSystem("draw", keys, record("draw"), InPipeline("onRender"))
	require.NoError(t, err)
	_, err = w.RegisterSystem("first", keys, record("first"))
	require.NoError(t, err)
	_, err = w.RegisterSystem("second", keys, record("second"))
	require.NoError(t, err)

	_, err = w.CreateEntity("", Position{})
	require.NoError(t, err)
	require.NoError(t, w.Tick(0))

	assert.Equal(t, []string{"first", "second", "draw"}, order)
	assert.Equal(t, []string{DefaultPipeline, "onRender"}, w.Pipelines())

	_, err = w.RegisterSystem("late", keys, record("late"))
	require.ErrorIs(t, err, ErrRegistrationClosed)
	require.ErrorIs(t, w.AddPipeline("late"), ErrRegistrationClosed)
}

func TestSystem_ViewBuffersFollowDeclaredOrder(t *testing.T) {
	t.Parallel()

	w := newTestWorld(t)
	ids := registerTestComponents(t, w)

	want := make(map[EntityID]Velocity)
	for i := range 20 {
		v := Velocity{X: float64(i)}
		comps := []Component{Position{X: float64(-i)}, v}
		if i%2 == 0 {
			comps = append(comps, Health{HP: i})
		}
		if i%3 == 0 {
			comps = append(comps, rawValue(byte(i)))
		}
		e, err := w.CreateEntity("", comps...)
		require.NoError(t, err)
		want[e] = v
	}

	archetypes := make(map[int]struct{})
	seen := 0
	_, err := w.RegisterSystem("check", []ComponentKey{Of[Velocity](), ByID(ids.position)},
		func(_ float64, view *View) error {
			archetypes[view.Archetype()] = struct{}{}
			velocities := Buffer[Velocity](view, 0)
			positions := Buffer[Position](view, 1)
			entities := view.Entities()

			assert.Len(t, velocities, view.Len())
			assert.Len(t, positions, view.Len())
			assert.Len(t, entities, view.Len())
			assert.Equal(t, ids.velocity, view.ComponentID(0))
			assert.Equal(t, 0, view.Stride(0))

			for i, e := range entities {
				assert.Equal(t, want[e], velocities[i])
				assert.Equal(t, -velocities[i].X, positions[i].X)
			}
			seen += view.Len()
			return nil
		})
	require.NoError(t, err)
	require.NoError(t, w.Tick(0))

	assert.Equal(t, 20, seen)
	assert.Len(t, archetypes, 4)
	assert.Equal(t, []int{0, 1, 2, 3}, w.Matching(NewSignature(ids.velocity)))
}

func TestSystem_RawView(t *testing.T) {
	t.Parallel()

	w := newTestWorld(t)
	ids := registerTestComponents(t, w)

	e1, err := w.CreateEntity("", rawValue(1))
	require.NoError(t, err)
	e2, err := w.CreateEntity("", rawValue(2))
	require.NoError(t, err)

	_, err = w.RegisterSystem("bump", []ComponentKey{Named(RawName)}, func(_ float64, view *View) error {
		data := view.Raw(0)
		stride := view.Stride(0)
		for i := range view.Len() {
			data[i*stride] += 10
		}
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, w.Tick(0))

	assert.Equal(t, byte(11), w.GetRaw(e1, ids.raw)[0])
	assert.Equal(t, byte(12), w.GetRaw(e2, ids.raw)[0])
}

func TestSystem_SkipsEmptyArchetypes(t *testing.T) {
	t.Parallel()

	w := newTestWorld(t)
	registerTestComponents(t, w)

	calls := 0
	_, err := w.RegisterSystem("count", []ComponentKey{Of[Health]()}, func(float64, *View) error {
		calls++
		return nil
	})
	require.NoError(t, err)

	e, err := w.CreateEntity("", Health{})
	require.NoError(t, err)
	require.NoError(t, w.DestroyEntity(e))
	require.NoError(t, w.Tick(0))
	assert.Zero(t, calls)

	// Archetypes created after the first run are picked up.
	_, err = w.CreateEntity("", Health{}, Tag{})
	require.NoError(t, err)
	require.NoError(t, w.Tick(0))
	assert.Equal(t, 1, calls)
}

func TestSystem_ParallelChunks(t *testing.T) {
	t.Parallel()

	const (
		chunkSize = 10
		entities  = 95
	)
	w := newTestWorld(t, WithWorkers(4), WithChunkSize(chunkSize))
	registerTestComponents(t, w)

	for i := range entities {
		comps := []Component{Health{HP: i}}
		if i >= 60 {
			comps = append(comps, Tag{})
		}
		_, err := w.CreateEntity("", comps...)
		require.NoError(t, err)
	}

	var mu sync.Mutex
	visits := make(map[EntityID]int)
	var sizes []int
	_, err := w.RegisterSystem("heal", []ComponentKey{Of[Health]()}, func(_ float64, view *View) error {
		health := Buffer[Health](view, 0)
		for i := range health {
			health[i].HP++
		}

		mu.Lock()
		defer mu.Unlock()
		sizes = append(sizes, view.Len())
		for _, e := range view.Entities() {
			visits[e]++
		}
		return nil
	}, Parallel())
	require.NoError(t, err)
	require.NoError(t, w.Tick(0))

	// 60 rows in one archetype and 35 in the other: 6 + 4 views.
	assert.Len(t, sizes, 10)
	for _, size := range sizes {
		assert.LessOrEqual(t, size, chunkSize)
	}
	assert.Len(t, visits, entities)
	for e, n := range visits {
		assert.Equal(t, 1, n, "entity %d visited %d times", e, n)
		assert.Equal(t, int(e), Get[Health](w, e).HP, "entity %d", e)
	}
}

func TestSystem_FailureDoesNotStopTick(t *testing.T) {
	t.Parallel()

	w := newTestWorld(t)
	registerTestComponents(t, w)

	keys := []ComponentKey{Of[Health]()}
	_, err := w.RegisterSystem("broken", keys, func(float64, *View) error {
		return eris.New("boom")
	})
	require.NoError(t, err)

	ran := 0
	_, err = w.RegisterSystem("healthy", keys, func(float64, *View) error {
		ran++
		return nil
	})
	require.NoError(t, err)

	_, err = w.CreateEntity("", Health{})
	require.NoError(t, err)

	err = w.Tick(0)
	require.Error(t, err)
	assert.ErrorContains(t, err, "broken")
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, 1, ran)

	require.Error(t, w.Tick(0))
	assert.Equal(t, 2, ran)
}

func TestSystem_ParallelPanicBecomesError(t *testing.T) {
	t.Parallel()

	w := newTestWorld(t, WithWorkers(2), WithChunkSize(10))
	registerTestComponents(t, w)

	const entities = 25
	for i := range entities {
		_, err := w.CreateEntity("", Health{HP: i})
		require.NoError(t, err)
	}

	keys := []ComponentKey{Of[Health]()}
	_, err := w.RegisterSystem("heal", keys, func(_ float64, view *View) error {
		health := Buffer[Health](view, 0)
		for _, h := range health {
			if h.HP == 13 {
				panic("bad row")
			}
		}
		for i := range health {
			health[i].HP += 100
		}
		return nil
	}, Parallel())
	require.NoError(t, err)

	ran := 0
	_, err = w.RegisterSystem("after", keys, func(float64, *View) error {
		ran++
		return nil
	})
	require.NoError(t, err)

	require.NotPanics(t, func() { err = w.Tick(0) })
	require.Error(t, err)
	assert.ErrorContains(t, err, "heal")
	assert.ErrorContains(t, err, "bad row")
	assert.Equal(t, 1, ran)

	// Only the view over rows 10-19 was cut short.
	healed := 0
	for e := EntityID(1); e <= entities; e++ {
		hp := Get[Health](w, e).HP
		if hp >= 100 {
			healed++
			continue
		}
		assert.True(t, hp >= 10 && hp < 20, "entity %d with hp %d", e, hp)
	}
	assert.Equal(t, entities-10, healed)
	assert.Equal(t, entities, w.EntityCount())
}
