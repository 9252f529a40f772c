package ecs

import (
	"testing"

	. "github.com/kyanite-engine/kyanite/pkg/testutils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// newTestWorld creates a world that doesn't log.
func newTestWorld(t *testing.T, opts ...WorldOption) *World {
	t.Helper()
	w, err := NewWorld(append([]WorldOption{WithLogger(zerolog.Nop())}, opts...)...)
	require.NoError(t, err)
	return w
}

// testComponents are the IDs of the components registered by registerTestComponents.
type testComponents struct {
	position ComponentID
	velocity ComponentID
	health   ComponentID
	label    ComponentID
	tag      ComponentID
	raw      ComponentID
}

func registerTestComponents(t *testing.T, w *World) testComponents {
	t.Helper()

	var ids testComponents
	var err error
	ids.position, err = RegisterComponent[Position](w)
	require.NoError(t, err)
	ids.velocity, err = RegisterComponent[Velocity](w)
	require.NoError(t, err)
	ids.health, err = RegisterComponent[Health](w)
	require.NoError(t, err)
	ids.label, err = RegisterComponent[Label](w)
	require.NoError(t, err)
	ids.tag, err = RegisterComponent[Tag](w)
	require.NoError(t, err)
	ids.raw, err = RegisterRawComponent(w, RawName, RawSize, RawAlign)
	require.NoError(t, err)
	return ids
}

func rawValue(data ...byte) RawComponent {
	buf := make([]byte, RawSize)
	copy(buf, data)
	return RawComponent{Type: RawName, Data: buf}
}
