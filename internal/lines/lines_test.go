package lines

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func collect(seq func(func(int, string) bool)) (offsets []int, out []string) {
	for off, line := range seq {
		offsets = append(offsets, off)
		out = append(out, line)
	}
	return offsets, out
}

func TestEnumerateForward(t *testing.T) {
	window := []string{"a", "b", "c", "d"}

	offsets, out := collect(EnumerateForward(window, NoLimit))
	assert.Equal(t, []int{0, 1, 2, 3}, offsets)
	assert.Equal(t, window, out)

	offsets, out = collect(EnumerateForward(window, 2))
	assert.Equal(t, []int{0, 1}, offsets)
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestEnumerateBackward(t *testing.T) {
	window := []string{"a", "b", "c", "d"}

	offsets, out := collect(EnumerateBackward(window, NoLimit))
	assert.Equal(t, []int{3, 2, 1, 0}, offsets)
	assert.Equal(t, []string{"d", "c", "b", "a"}, out)

	offsets, out = collect(EnumerateBackward(window, 2))
	assert.Equal(t, []int{3, 2}, offsets)
	assert.Equal(t, []string{"d", "c"}, out)

	// A limit larger than the window is clamped.
	offsets, _ = collect(EnumerateBackward(window, 50))
	assert.Equal(t, []int{3, 2, 1, 0}, offsets)
}

// Backward enumeration sorted by ascending offset must reproduce forward
// enumeration over the same suffix, for any limit.
func TestEnumerateBackwardMatchesForward(t *testing.T) {
	window := []string{"one", "two", "three", "four", "five"}
	for _, limit := range []int{NoLimit, 1, 3, 5, 10} {
		backward := map[int]string{}
		for off, line := range EnumerateBackward(window, limit) {
			backward[off] = line
		}
		var offsets []int
		for off := range backward {
			offsets = append(offsets, off)
		}
		sort.Ints(offsets)

		n := len(window) - len(offsets)
		for off, line := range EnumerateTailForward(window, bound(len(window), limit)) {
			assert.GreaterOrEqual(t, off, n)
			assert.Equal(t, backward[off], line)
		}
	}
}

func TestEnumerateTailForward(t *testing.T) {
	window := []string{"a", "b", "c", "d"}

	offsets, out := collect(EnumerateTailForward(window, 2))
	assert.Equal(t, []int{2, 3}, offsets)
	assert.Equal(t, []string{"c", "d"}, out)

	offsets, _ = collect(EnumerateTailForward(window, NoLimit))
	assert.Equal(t, []int{0, 1, 2, 3}, offsets)
}

func TestIterBackward(t *testing.T) {
	var out []string
	for line := range IterBackward([]string{"x", "y", "z"}, 2) {
		out = append(out, line)
	}
	assert.Equal(t, []string{"z", "y"}, out)
}

func TestTrimEOL(t *testing.T) {
	assert.Equal(t, "E: Broken packages", TrimEOL("E: Broken packages\n"))
	assert.Equal(t, "E: Broken packages", TrimEOL("E: Broken packages"))
	assert.Equal(t, "done", TrimEOL("done\r\n"))
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Split("a\nb\n"))
	assert.Equal(t, []string{"a", "", "b"}, Split("a\n\nb"))
	assert.Empty(t, Split(""))
}

func TestClean(t *testing.T) {
	got := Clean("\x1b[31mE: Broken packages\x1b[0m\nplain\n")
	assert.Equal(t, []string{"E: Broken packages", "plain"}, got)
}
