// Package classify holds the generic failure classifier: an ordered table
// of known failure signatures scanned backward over the tail of a log, plus
// a second pass of vaguer patterns used when nothing precise matched.
package classify

import (
	"strings"
	"sync"

	"github.com/newhook/buildlog/internal/lines"
	"github.com/newhook/buildlog/internal/logging"
	"github.com/newhook/buildlog/internal/match"
	"github.com/newhook/buildlog/internal/problem"
)

// Offset bounds the backward scan over the log tail.
const Offset = 250

var (
	buildOnce sync.Once
	group     match.MatcherGroup
	extra     match.MatcherGroup
)

// Register adds a rule tried after the built-in table. Must be called
// before the first classification.
func Register(rule *match.Rule) {
	extra = append(extra, rule)
}

func matchers() match.MatcherGroup {
	buildOnce.Do(func() {
		group = append(buildTable(), extra...)
	})
	return group
}

// FindBuildFailureDescription scans the last 250 lines of the window
// backward for the most recent line matching a known failure signature.
// When nothing precise matches, a forward pass over the same tail looks
// for vaguer signatures that at least locate the failure.
func FindBuildFailureDescription(window []string) (match.Match, problem.Problem, error) {
	for offset := range lines.EnumerateBackward(window, Offset) {
		m, p, err := matchers().ExtractFromLines(window, offset)
		if err != nil {
			return nil, nil, err
		}
		if m != nil {
			return m, p, nil
		}
	}
	if m := FindSecondaryBuildFailure(window, Offset); m != nil {
		return m, nil, nil
	}
	return nil, nil, nil
}

// FindSecondaryBuildFailure scans the last lookBack lines forward for a
// vague failure signature. These patterns locate a failure without
// diagnosing it, so no problem is ever attached.
func FindSecondaryBuildFailure(window []string, lookBack int) match.Match {
	for offset, line := range lines.EnumerateTailForward(window, lookBack) {
		trimmed := lines.TrimEOL(line)
		for _, re := range secondaryPatterns() {
			if re.MatchString(trimmed) {
				logging.Debug("secondary signature hit",
					"pattern", re.String(), "lineno", offset+1)
				origin := match.Origin("secondary regex " + re.String())
				return match.NewSingleLineMatch(origin, offset, line)
			}
		}
	}
	return nil
}

// commandMissing classifies a "not found" hit on an executable name.
// Relative paths and the build tree's own scripts are not diagnoses.
func commandMissing(groups []string) (problem.Problem, error) {
	command := groups[1]
	if strings.Contains(command, "PKGBUILDDIR") {
		return nil, nil
	}
	if command == "./configure" {
		return problem.MissingConfigure{}, nil
	}
	if strings.HasPrefix(command, "./") || strings.HasPrefix(command, "../") {
		return nil, nil
	}
	if command == "debian/rules" {
		return nil, nil
	}
	return problem.MissingCommand{Command: command}, nil
}

// fileNotFound classifies a missing path, distinguishing absolute paths,
// paths inside the build tree, version control metadata and bare names.
func fileNotFound(groups []string) (problem.Problem, error) {
	path := groups[1]
	switch {
	case strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "/<<PKGBUILDDIR>>"):
		return problem.MissingFile{Path: path}, nil
	case strings.HasPrefix(path, "/<<PKGBUILDDIR>>/"):
		return problem.MissingBuildFile{Filename: strings.TrimPrefix(path, "/<<PKGBUILDDIR>>/")}, nil
	case path == ".git/HEAD":
		return problem.VcsControlDirectoryNeeded{Vcs: []string{"git"}}, nil
	case path == "CVS/Root":
		return problem.VcsControlDirectoryNeeded{Vcs: []string{"cvs"}}, nil
	case !strings.Contains(path, "/"):
		return problem.MissingBuildFile{Filename: path}, nil
	}
	return nil, nil
}

// fileNotFoundMaybeExecutable is fileNotFound for contexts where a bare
// name is as likely a command as a file.
func fileNotFoundMaybeExecutable(groups []string) (problem.Problem, error) {
	path := groups[1]
	if strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "/<<PKGBUILDDIR>>") {
		return problem.MissingFile{Path: path}, nil
	}
	if !strings.Contains(path, "/") {
		return problem.MissingCommandOrBuildFile{Filename: path}, nil
	}
	return nil, nil
}

// interpreterMissing classifies a failed script interpreter lookup.
func interpreterMissing(groups []string) (problem.Problem, error) {
	name := groups[1]
	if strings.HasPrefix(name, "/") {
		if strings.Contains(name, "PKGBUILDDIR") {
			return nil, nil
		}
		return problem.MissingFile{Path: name}, nil
	}
	if strings.Contains(name, "/") {
		return nil, nil
	}
	return problem.MissingCommand{Command: name}, nil
}

func pkgConfigMissing(groups []string) (problem.Problem, error) {
	expr := strings.SplitN(groups[1], "\t", 2)[0]
	if pkg, minimum, found := strings.Cut(expr, ">="); found {
		return problem.MissingPkgConfig{
			Module:         strings.TrimSpace(pkg),
			MinimumVersion: strings.TrimSpace(minimum),
		}, nil
	}
	if !strings.Contains(expr, " ") {
		return problem.MissingPkgConfig{Module: expr}, nil
	}
	return nil, nil
}
