//go:build release

package assert

// Enabled reports whether assertions panic. It is false in builds with the release tag.
const Enabled = false

func That(bool, string, ...any) {} //nolint:goprintffuncname // it's ok
