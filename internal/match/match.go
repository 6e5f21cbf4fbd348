// Package match locates the log excerpt that justifies a diagnosis and
// provides the ordered pattern table used for single-pass lookups.
package match

import (
	"fmt"
	"strings"
)

// Origin records which rule produced a match. Purely diagnostic.
type Origin string

// Match is a located excerpt of the log with provenance. The anchor of a
// multi-line match is its last element.
type Match interface {
	// Line returns the anchor line.
	Line() string
	// Origin returns the rule provenance.
	Origin() Origin
	// Offset returns the 0-based anchor offset.
	Offset() int
	// Lineno returns the 1-based anchor line number.
	Lineno() int
	// Offsets returns every matched offset, in insertion order.
	Offsets() []int
	// Linenos returns every matched 1-based line number.
	Linenos() []int
	// Lines returns every matched line, parallel to Offsets.
	Lines() []string
	// AddOffset returns a copy translated by n lines.
	AddOffset(n int) Match
	fmt.Stringer
}

// SingleLineMatch anchors a diagnosis to one log line.
type SingleLineMatch struct {
	origin Origin
	offset int
	line   string
}

// NewSingleLineMatch builds a match for one already-extracted line.
func NewSingleLineMatch(origin Origin, offset int, line string) *SingleLineMatch {
	return &SingleLineMatch{origin: origin, offset: offset, line: line}
}

// SingleFromLines anchors a match at offset within the given window.
func SingleFromLines(window []string, offset int, origin Origin) *SingleLineMatch {
	return &SingleLineMatch{origin: origin, offset: offset, line: window[offset]}
}

func (m *SingleLineMatch) Line() string     { return m.line }
func (m *SingleLineMatch) Origin() Origin   { return m.origin }
func (m *SingleLineMatch) Offset() int      { return m.offset }
func (m *SingleLineMatch) Lineno() int      { return m.offset + 1 }
func (m *SingleLineMatch) Offsets() []int   { return []int{m.offset} }
func (m *SingleLineMatch) Linenos() []int   { return []int{m.offset + 1} }
func (m *SingleLineMatch) Lines() []string  { return []string{m.line} }

func (m *SingleLineMatch) AddOffset(n int) Match {
	return &SingleLineMatch{origin: m.origin, offset: m.offset + n, line: m.line}
}

func (m *SingleLineMatch) String() string {
	return fmt.Sprintf("line %d: %s", m.Lineno(), strings.TrimRight(m.line, "\n"))
}

// MultiLineMatch anchors a diagnosis to several lines; the last offset is
// the anchor. Offsets and lines must be non-empty and of equal length.
type MultiLineMatch struct {
	origin  Origin
	offsets []int
	lines   []string
}

// NewMultiLineMatch builds a match over the given offsets and lines.
func NewMultiLineMatch(origin Origin, offsets []int, matched []string) *MultiLineMatch {
	if len(offsets) == 0 || len(offsets) != len(matched) {
		panic(fmt.Sprintf("multi-line match needs equal, non-zero offsets and lines (%d vs %d)",
			len(offsets), len(matched)))
	}
	return &MultiLineMatch{origin: origin, offsets: offsets, lines: matched}
}

func (m *MultiLineMatch) Line() string    { return m.lines[len(m.lines)-1] }
func (m *MultiLineMatch) Origin() Origin  { return m.origin }
func (m *MultiLineMatch) Offset() int     { return m.offsets[len(m.offsets)-1] }
func (m *MultiLineMatch) Lineno() int     { return m.Offset() + 1 }
func (m *MultiLineMatch) Offsets() []int  { return m.offsets }
func (m *MultiLineMatch) Lines() []string { return m.lines }

func (m *MultiLineMatch) Linenos() []int {
	linenos := make([]int, len(m.offsets))
	for i, off := range m.offsets {
		linenos[i] = off + 1
	}
	return linenos
}

func (m *MultiLineMatch) AddOffset(n int) Match {
	offsets := make([]int, len(m.offsets))
	for i, off := range m.offsets {
		offsets[i] = off + n
	}
	return &MultiLineMatch{origin: m.origin, offsets: offsets, lines: m.lines}
}

func (m *MultiLineMatch) String() string {
	return fmt.Sprintf("lines %v: %s", m.Linenos(), strings.TrimRight(m.Line(), "\n"))
}

// Rendering is the JSON form of a match: {"lineno", "line", "origin"}.
type Rendering struct {
	Lineno int    `json:"lineno"`
	Line   string `json:"line"`
	Origin string `json:"origin"`
}

// Render converts a match to its wire form.
func Render(m Match) Rendering {
	return Rendering{Lineno: m.Lineno(), Line: m.Line(), Origin: string(m.Origin())}
}
