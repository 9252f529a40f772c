// Package assert checks internal invariants. Assertions panic with a Failure in development builds
// and compile to nothing in builds with the release tag.
package assert

// Failure is the value a failed assertion panics with.
type Failure string

func (f Failure) Error() string { return string(f) }
