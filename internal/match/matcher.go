package match

import (
	"fmt"
	"regexp"

	"github.com/newhook/buildlog/internal/lines"
	"github.com/newhook/buildlog/internal/problem"
)

// Error is a framework error: a rule matched but its callback could not
// produce a well-formed diagnosis. Always attributable to a specific rule.
type Error struct {
	Pattern string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("rule %q: %s", e.Pattern, e.Message)
}

// NewError builds a framework error for the given pattern.
func NewError(pattern, format string, args ...any) *Error {
	return &Error{Pattern: pattern, Message: fmt.Sprintf(format, args...)}
}

// Callback maps regexp submatches to an optional problem. Returning a nil
// problem records a soft match: the location is interesting but carries no
// structured diagnosis.
type Callback func(groups []string) (problem.Problem, error)

// Rule pairs a compiled pattern with its callback.
type Rule struct {
	re *regexp.Regexp
	cb Callback
}

// NewRule compiles pattern into a rule. A nil callback yields soft matches.
func NewRule(pattern string, cb Callback) *Rule {
	return &Rule{re: regexp.MustCompile(pattern), cb: cb}
}

// Pattern returns the rule's regular expression source text.
func (r *Rule) Pattern() string { return r.re.String() }

// ExtractFromLine applies the rule to one line. The boolean reports whether
// the pattern matched at all; a nil problem with a true boolean is a soft
// match.
func (r *Rule) ExtractFromLine(line string) (bool, problem.Problem, error) {
	groups := r.re.FindStringSubmatch(lines.TrimEOL(line))
	if groups == nil {
		return false, nil, nil
	}
	if r.cb == nil {
		return true, nil, nil
	}
	p, err := r.cb(groups)
	if err != nil {
		return true, nil, &Error{Pattern: r.re.String(), Message: err.Error()}
	}
	return true, p, nil
}

// ExtractFromLines applies the rule at offset within the window, wrapping a
// hit into a SingleLineMatch carrying the rule's origin.
func (r *Rule) ExtractFromLines(window []string, offset int) (Match, problem.Problem, error) {
	matched, p, err := r.ExtractFromLine(window[offset])
	if err != nil {
		return nil, nil, err
	}
	if !matched {
		return nil, nil, nil
	}
	origin := Origin(fmt.Sprintf("direct regex (%s)", r.re.String()))
	return SingleFromLines(window, offset, origin), p, nil
}

// MatcherGroup evaluates rules in order; the first rule that matches at
// all, soft or hard, wins.
type MatcherGroup []*Rule

// ExtractFromLines tries every rule at offset and returns the first hit.
func (g MatcherGroup) ExtractFromLines(window []string, offset int) (Match, problem.Problem, error) {
	for _, rule := range g {
		m, p, err := rule.ExtractFromLines(window, offset)
		if err != nil {
			return nil, nil, err
		}
		if m != nil {
			return m, p, nil
		}
	}
	return nil, nil, nil
}
