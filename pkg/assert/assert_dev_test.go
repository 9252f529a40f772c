//go:build !release

package assert_test

import (
	"testing"

	"github.com/kyanite-engine/kyanite/pkg/assert"
	testify "github.com/stretchr/testify/assert"
)

func TestThat(t *testing.T) {
	t.Parallel()

	testify.True(t, assert.Enabled)
	testify.NotPanics(t, func() { assert.That(true, "never") })
	testify.PanicsWithValue(t, assert.Failure("row 3 out of range"), func() {
		assert.That(false, "row %d out of range", 3)
	})
}
