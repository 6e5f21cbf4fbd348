// Package render formats diagnoses for people and for machines: a styled
// excerpt of the log around the matched lines, and a stable JSON envelope.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/newhook/buildlog/internal/lines"
	"github.com/newhook/buildlog/internal/match"
	"github.com/newhook/buildlog/internal/problem"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	markerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	linenoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	kindStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// Renderer formats diagnoses as text.
type Renderer struct {
	// Color enables ANSI styling.
	Color bool
	// Context is the number of unmatched lines shown around the match.
	Context int
	// Width is the column descriptions wrap at.
	Width int
}

func (r Renderer) style(s lipgloss.Style, text string) string {
	if !r.Color {
		return text
	}
	return s.Render(text)
}

// Diagnosis renders a match and problem against the window they were found
// in. Matched lines carry a leading marker; surrounding context is indented.
func (r Renderer) Diagnosis(window []string, m match.Match, p problem.Problem) string {
	var b strings.Builder
	if m == nil {
		b.WriteString("No known failure signature found.\n")
		r.writeProblem(&b, p)
		return b.String()
	}

	b.WriteString(r.style(headerStyle, fmt.Sprintf("Issue found at line %d:", m.Lineno())))
	b.WriteString("\n")

	matched := make(map[int]bool, len(m.Offsets()))
	for _, off := range m.Offsets() {
		matched[off] = true
	}
	first := m.Offsets()[0] - r.Context
	if first < 0 {
		first = 0
	}
	last := m.Offset() + r.Context
	if last > len(window)-1 {
		last = len(window) - 1
	}
	width := len(fmt.Sprint(last + 1))
	for off := first; off <= last; off++ {
		marker := "  "
		if matched[off] {
			marker = r.style(markerStyle, "> ")
		}
		lineno := r.style(linenoStyle, fmt.Sprintf("%*d", width, off+1))
		fmt.Fprintf(&b, " %s%s %s\n", marker, lineno, lines.TrimEOL(window[off]))
	}
	r.writeProblem(&b, p)
	return b.String()
}

func (r Renderer) writeProblem(b *strings.Builder, p problem.Problem) {
	if p == nil {
		return
	}
	width := r.Width
	if width <= 0 {
		width = 100
	}
	text := fmt.Sprintf("%s: %s", r.style(kindStyle, p.Kind()), p.String())
	b.WriteString(wordwrap.String(text, width))
	b.WriteString("\n")
}

// Envelope is the JSON form of a diagnosis.
type Envelope struct {
	Match   *match.Rendering  `json:"match,omitempty"`
	Problem *problem.Envelope `json:"problem,omitempty"`
}

// JSON renders a diagnosis as its wire envelope.
func JSON(m match.Match, p problem.Problem) ([]byte, error) {
	var env Envelope
	if m != nil {
		rendering := match.Render(m)
		rendering.Line = lines.TrimEOL(rendering.Line)
		env.Match = &rendering
	}
	if p != nil {
		details, err := json.Marshal(p.Details())
		if err != nil {
			return nil, fmt.Errorf("encoding %s details: %w", p.Kind(), err)
		}
		env.Problem = &problem.Envelope{Kind: p.Kind(), Details: details}
	}
	return json.MarshalIndent(env, "", "  ")
}
