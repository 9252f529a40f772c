package ecs

import (
	"encoding/binary"

	"github.com/kelindar/bitmap"
)

// Signature is the presence fingerprint of a set of component types. Bit i is set when the
// component with ID i is present. The underlying bitmap grows on demand, so a signature produced
// before later registrations is still valid: bits past its length read as zero.
type Signature struct {
	bits bitmap.Bitmap
}

// NewSignature returns a signature with the given component IDs set.
func NewSignature(ids ...ComponentID) Signature {
	var s Signature
	for _, id := range ids {
		s.bits.Set(id)
	}
	return s
}

// With returns a copy of the signature with the component added.
func (s Signature) With(id ComponentID) Signature {
	out := Signature{bits: s.bits.Clone(nil)}
	out.bits.Set(id)
	return out
}

// Without returns a copy of the signature with the component removed.
func (s Signature) Without(id ComponentID) Signature {
	out := Signature{bits: s.bits.Clone(nil)}
	out.bits.Remove(id)
	return out
}

// Has reports whether the component is present.
func (s Signature) Has(id ComponentID) bool {
	return s.bits.Contains(id)
}

// Contains reports whether every component in required is also present in s, i.e.
// s & required == required. Words missing from either side are treated as zero.
func (s Signature) Contains(required Signature) bool {
	for i, want := range required.bits {
		var have uint64
		if i < len(s.bits) {
			have = s.bits[i]
		}
		if have&want != want {
			return false
		}
	}
	return true
}

// Equal reports whether both signatures have exactly the same components set.
func (s Signature) Equal(other Signature) bool {
	return s.Contains(other) && other.Contains(s)
}

// Len returns the number of components in the signature.
func (s Signature) Len() int {
	return s.bits.Count()
}

// IDs returns the component IDs in ascending order.
func (s Signature) IDs() []ComponentID {
	ids := make([]ComponentID, 0, s.bits.Count())
	s.bits.Range(func(x uint32) {
		ids = append(ids, x)
	})
	return ids
}

// key returns a normalized map key for the signature. Trailing zero words are trimmed so that
// signatures of different widths with the same bits set map to the same key.
func (s Signature) key() string {
	n := len(s.bits)
	for n > 0 && s.bits[n-1] == 0 {
		n--
	}
	buf := make([]byte, n*8)
	for i := range n {
		binary.LittleEndian.PutUint64(buf[i*8:], s.bits[i])
	}
	return string(buf)
}
