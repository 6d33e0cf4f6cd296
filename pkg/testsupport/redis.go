package testsupport

import (
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

// Redis starts an in-process Redis server that is shut down when the test ends.
func Redis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	return miniredis.RunT(t)
}

// SequentialKeys returns a key generator producing prefix-1, prefix-2, ...
// so tests can compare against fixed output.
func SequentialKeys(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}
