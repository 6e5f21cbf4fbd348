package sbuild

import (
	"regexp"
	"strings"

	"github.com/newhook/buildlog/internal/lines"
	"github.com/newhook/buildlog/internal/problem"
)

// brzRule maps one "brz: ERROR:" message shape to a diagnosis.
type brzRule struct {
	re *regexp.Regexp
	cb func(groups []string) problem.Problem
}

var brzRules = []brzRule{
	{
		regexp.MustCompile(`Unable to find the needed upstream tarball for package (.*), version (.*)\.`),
		func(groups []string) problem.Problem {
			return problem.UnableToFindUpstreamTarball{Package: groups[1], Version: groups[2]}
		},
	},
	{
		regexp.MustCompile(`Inconsistency between source format and version: version is( not)? native, format is( not)? native\.`),
		func(groups []string) problem.Problem {
			return problem.InconsistentSourceFormat{
				Version:      groups[1] != "",
				SourceFormat: groups[2] != "",
			}
		},
	},
	{
		regexp.MustCompile(`UScan failed to run: In directory \., downloading (.*) failed: (.*)`),
		func(groups []string) problem.Problem {
			return problem.UScanFailed{URL: groups[1], Reason: groups[2]}
		},
	},
	{
		regexp.MustCompile(`\[Errno 28\] No space left on device`),
		func([]string) problem.Problem { return problem.NoSpaceOnDevice{} },
	},
}

// findBrzBuildError scans backward for the error footer the Breezy
// packaging tools print when a build setup step fails. Indented lines after
// the footer continue its message.
func findBrzBuildError(window []string) (problem.Problem, string, bool) {
	for offset, raw := range lines.EnumerateBackward(window, lines.NoLimit) {
		rest, ok := strings.CutPrefix(raw, "brz: ERROR: ")
		if !ok {
			continue
		}
		parts := []string{lines.TrimEOL(rest)}
		for _, follow := range window[offset+1:] {
			if strings.HasPrefix(follow, " ") {
				parts = append(parts, lines.TrimEOL(follow))
			}
		}
		p, description := parseBrzError(strings.Join(parts, "\n"))
		return p, description, true
	}
	return nil, "", false
}

// parseBrzError maps a reassembled brz error message to a diagnosis. An
// unrecognized message yields its first line as the description with no
// problem attached.
func parseBrzError(msg string) (problem.Problem, string) {
	msg = strings.TrimSpace(msg)
	for _, rule := range brzRules {
		if groups := rule.re.FindStringSubmatch(msg); groups != nil {
			p := rule.cb(groups)
			return p, p.String()
		}
	}
	if rest, ok := strings.CutPrefix(msg, "UScan failed to run: "); ok {
		return problem.UScanError{Reason: rest}, msg
	}
	if rest, ok := strings.CutPrefix(msg, "Unable to parse changelog: "); ok {
		return problem.ChangelogParseError{Reason: rest}, msg
	}
	first, _, _ := strings.Cut(msg, "\n")
	return nil, first
}
