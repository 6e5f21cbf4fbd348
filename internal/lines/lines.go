// Package lines provides indexed, bidirectional iteration over the lines of
// a captured log. Every scanner in this module works on the same window
// contract: offsets are 0-based and absolute, regardless of scan direction
// or limit.
package lines

import (
	"iter"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// NoLimit requests an unbounded scan.
const NoLimit = -1

// EnumerateForward yields (offset, line) pairs from the start of the window,
// visiting at most limit lines. Pass NoLimit to visit every line.
func EnumerateForward(lines []string, limit int) iter.Seq2[int, string] {
	n := bound(len(lines), limit)
	return func(yield func(int, string) bool) {
		for i := 0; i < n; i++ {
			if !yield(i, lines[i]) {
				return
			}
		}
	}
}

// EnumerateBackward yields (offset, line) pairs from the end of the window,
// visiting at most limit lines. Offsets stay absolute: the first element
// yielded has offset len-1.
func EnumerateBackward(lines []string, limit int) iter.Seq2[int, string] {
	n := bound(len(lines), limit)
	return func(yield func(int, string) bool) {
		for i := 0; i < n; i++ {
			off := len(lines) - i - 1
			if !yield(off, lines[off]) {
				return
			}
		}
	}
}

// EnumerateTailForward yields the last limit lines of the window in forward
// order, preserving their true offsets.
func EnumerateTailForward(lines []string, limit int) iter.Seq2[int, string] {
	start := 0
	if limit != NoLimit && limit < len(lines) {
		start = len(lines) - limit
	}
	return func(yield func(int, string) bool) {
		for i := start; i < len(lines); i++ {
			if !yield(i, lines[i]) {
				return
			}
		}
	}
}

// IterForward yields at most limit lines from the start of the window.
func IterForward(lines []string, limit int) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range EnumerateForward(lines, limit) {
			if !yield(line) {
				return
			}
		}
	}
}

// IterBackward yields at most limit lines from the end of the window.
func IterBackward(lines []string, limit int) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range EnumerateBackward(lines, limit) {
			if !yield(line) {
				return
			}
		}
	}
}

func bound(n, limit int) int {
	if limit == NoLimit || limit > n {
		return n
	}
	return limit
}

// TrimEOL strips a trailing newline from a line. Callers may hand the
// window lines with or without terminators; matchers normalize through this
// before applying patterns.
func TrimEOL(line string) string {
	return strings.TrimRight(line, "\r\n")
}

// Split breaks raw log text into window lines, dropping the empty fragment
// a trailing newline would otherwise produce.
func Split(text string) []string {
	split := strings.Split(text, "\n")
	if n := len(split); n > 0 && split[n-1] == "" {
		split = split[:n-1]
	}
	return split
}

// Clean splits raw log text and strips ANSI escape sequences from each
// line. Build logs frequently carry color codes that would defeat the
// pattern tables.
func Clean(text string) []string {
	split := Split(text)
	for i, line := range split {
		if strings.ContainsRune(line, '\x1b') {
			split[i] = ansi.Strip(line)
		}
	}
	return split
}
