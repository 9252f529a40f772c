package testutils

import "github.com/kyanite-engine/kyanite/pkg/assert"

// Gen enumerates every combination of the choices a test makes, one combination per iteration of
//
//	for g := testutils.NewGen(); !g.Done(); {
//		a := g.Intn(3)
//		b := g.Bool()
//		...
//	}
//
// Each call to a choice method records its position and bound. Done advances to the next
// combination like an odometer: the last choice that hasn't reached its bound is incremented and
// every later choice restarts from zero. The choices may depend on earlier ones, since later
// positions are re-bounded on every iteration.
//
// See: <https://matklad.github.io/2021/11/07/generate-all-the-things.html>
type Gen struct {
	started bool
	v       [32]struct{ value, bound uint32 }
	p       int
	pMax    int
}

// NewGen creates a new exhaustive generator.
func NewGen() *Gen {
	return &Gen{}
}

// Done returns true when all combinations have been exhausted.
func (g *Gen) Done() bool {
	if !g.started {
		g.started = true
		return false
	}
	i := g.pMax
	for i > 0 {
		i--
		if g.v[i].value < g.v[i].bound {
			g.v[i].value++
			g.pMax = i + 1
			g.p = 0
			return false
		}
	}
	return true
}

func (g *Gen) gen(bound uint32) uint32 {
	assert.That(g.p < len(g.v), "exhaustigen: exceeded maximum depth of 32")
	if g.p == g.pMax {
		g.v[g.p] = struct{ value, bound uint32 }{value: 0, bound: 0}
		g.pMax++
	}
	g.p++
	g.v[g.p-1].bound = bound
	return g.v[g.p-1].value
}

// Intn returns an int in range [0, bound] (inclusive).
func (g *Gen) Intn(bound int) int {
	return int(g.gen(uint32(bound))) //nolint:gosec // bound is expected to be small in tests
}

// Bool returns false, then true.
func (g *Gen) Bool() bool {
	return g.Intn(1) == 1
}

// Pick returns an element from the slice.
func Pick[T any](g *Gen, slice []T) T {
	assert.That(len(slice) > 0, "exhaustigen: empty slice")
	return slice[g.Intn(len(slice)-1)]
}
