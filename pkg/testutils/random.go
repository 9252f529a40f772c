package testutils

import (
	"cmp"
	"encoding/binary"
	"maps"
	"math"
	"math/rand/v2"
	"os"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"
)

// seed is read once per test binary. TEST_SEED overrides the clock so a failing run can be replayed.
var seed = sync.OnceValue(func() uint64 { //nolint:gochecknoglobals // shared by every test in the binary
	if s, err := strconv.ParseUint(os.Getenv("TEST_SEED"), 0, 64); err == nil {
		return s
	}
	return uint64(time.Now().UnixNano()) //nolint:gosec // it's ok
})

// NewRand returns a generator seeded for replay and logs the seed with the test's output.
func NewRand(t *testing.T) *rand.Rand {
	t.Helper()
	s := seed()
	t.Logf("to reproduce: TEST_SEED=0x%x", s)
	return rand.New(rand.NewPCG(s, s)) //nolint:gosec // weak RNG is fine for tests
}

// RandKey returns a random key of m. Keys are sorted first so the pick only depends on the seed.
// Panics if m is empty.
func RandKey[K cmp.Ordered, V any](r *rand.Rand, m map[K]V) K {
	keys := slices.Sorted(maps.Keys(m))
	return keys[r.IntN(len(keys))]
}

// Weighted pairs an operation with its relative frequency.
type Weighted[T any] struct {
	Op     T
	Weight int
}

// RandOp picks an operation from table with probability proportional to its weight.
func RandOp[T any](r *rand.Rand, table []Weighted[T]) T {
	total := 0
	for _, w := range table {
		total += w.Weight
	}
	pick := r.IntN(total)
	for _, w := range table {
		if pick < w.Weight {
			return w.Op
		}
		pick -= w.Weight
	}
	panic("unreachable")
}

// RandRawData returns the bytes of a random raw test component: three little-endian float32s.
func RandRawData(r *rand.Rand) []byte {
	b := make([]byte, RawSize)
	for off := 0; off < RawSize; off += 4 {
		binary.LittleEndian.PutUint32(b[off:], math.Float32bits(r.Float32()))
	}
	return b
}
