//go:build !release

package assert

import "fmt"

// Enabled reports whether assertions panic. It is false in builds with the release tag.
const Enabled = true

func That(cond bool, format string, args ...any) { //nolint:goprintffuncname // it's ok
	if !cond {
		panic(Failure(fmt.Sprintf(format, args...)))
	}
}
