// Package apt detects package-manager failures in build logs: the apt-get
// failure cascade and resolver (dose3/CUDF) reports.
package apt

import (
	"regexp"
	"strings"

	"github.com/newhook/buildlog/internal/lines"
	"github.com/newhook/buildlog/internal/match"
	"github.com/newhook/buildlog/internal/problem"
)

var (
	fetchFailedRe    = regexp.MustCompile(`^E: Failed to fetch ([^ ]+)  (.*)`)
	heldBrokenDepRe  = regexp.MustCompile(`\s*Depends: (.*) but it is not (going to be installed|installable)`)
	heldBrokenPkgRe  = regexp.MustCompile(`\s*(.*) : Depends: (.*) but it is not (going to be installed|installable)`)
	missingReleaseRe = regexp.MustCompile(`E: The repository '([^']+)' does not have a Release file\.`)
	dpkgDebNoSpaceRe = regexp.MustCompile(`dpkg-deb: error: unable to write file '(.*)': No space left on device`)
	aptNoSpaceRe     = regexp.MustCompile(`E: You don't have enough free space in (.*)\.`)
	unknownPackageRe = regexp.MustCompile(`E: Unable to locate package (.*)`)
	dpkgErrorRe      = regexp.MustCompile(`dpkg: error: (.*)`)
	dpkgProcessingRe = regexp.MustCompile(`dpkg: error processing package (.*) \((.*)\):`)
	copyNoSpaceRe    = regexp.MustCompile(` cannot copy extracted data for '(.*)' to '(.*)': failed to write \(No space left on device\)`)
	anyNoSpaceRe     = regexp.MustCompile(` .*: No space left on device`)
)

// FindAptGetFailure scans apt-get output for the failure that stopped it.
// The primary pass walks the last 50 lines backward; hard diagnoses return
// immediately, while a generic "E: " line is kept as a soft candidate in
// case nothing more specific turns up. A final forward pass catches
// out-of-space messages that apt reports outside its own "E:" prefix.
func FindAptGetFailure(window []string) (match.Match, problem.Problem) {
	var softMatch match.Match
	for lineno, raw := range lines.EnumerateBackward(window, 50) {
		line := lines.TrimEOL(raw)

		if strings.HasPrefix(line, "E: Failed to fetch ") {
			if groups := fetchFailedRe.FindStringSubmatch(line); groups != nil {
				var p problem.Problem
				if strings.Contains(groups[2], "No space left on device") {
					p = problem.NoSpaceOnDevice{}
				} else {
					p = problem.AptFetchFailure{URL: groups[1], Error: groups[2]}
				}
				return match.SingleFromLines(window, lineno, "direct regex"), p
			}
			return match.SingleFromLines(window, lineno, "direct regex"), nil
		}

		if line == "E: Broken packages" {
			// The summary of what is broken sits on the line before.
			anchor := lineno
			if anchor > 0 {
				anchor--
			}
			p := problem.AptBrokenPackages{
				Description: strings.TrimSpace(window[anchor]),
			}
			return match.SingleFromLines(window, anchor, "direct match"), p
		}

		if line == "E: Unable to correct problems, you have held broken packages." {
			var offsets []int
			var broken []string
			for j := lineno - 1; j >= 0; j-- {
				if groups := heldBrokenDepRe.FindStringSubmatch(window[j]); groups != nil {
					offsets = append(offsets, j)
					broken = append(broken, groups[1])
					continue
				}
				if groups := heldBrokenPkgRe.FindStringSubmatch(window[j]); groups != nil {
					offsets = append(offsets, j)
					broken = append(broken, groups[2])
					continue
				}
				break
			}
			p := problem.AptBrokenPackages{
				Description: strings.TrimSpace(window[lineno]),
				Broken:      broken,
			}
			offsets = append(offsets, lineno)
			matched := make([]string, len(offsets))
			for i, off := range offsets {
				matched[i] = window[off]
			}
			return match.NewMultiLineMatch("direct match", offsets, matched), p
		}

		if groups := missingReleaseRe.FindStringSubmatch(line); groups != nil {
			return match.SingleFromLines(window, lineno, "direct regex"),
				problem.AptMissingReleaseFile{URL: groups[1]}
		}

		if dpkgDebNoSpaceRe.MatchString(line) {
			return match.SingleFromLines(window, lineno, "direct regex"), problem.NoSpaceOnDevice{}
		}

		if aptNoSpaceRe.MatchString(line) {
			return match.SingleFromLines(window, lineno, "direct regex"), problem.NoSpaceOnDevice{}
		}

		if strings.HasPrefix(line, "E: ") && softMatch == nil {
			softMatch = match.SingleFromLines(window, lineno, "direct regex")
		}

		if groups := unknownPackageRe.FindStringSubmatch(line); groups != nil {
			return match.SingleFromLines(window, lineno, "direct regex"),
				problem.AptPackageUnknown{Package: groups[1]}
		}

		if line == "E: Write error - write (28: No space left on device)" {
			return match.SingleFromLines(window, lineno, "direct regex"), problem.NoSpaceOnDevice{}
		}

		if groups := dpkgErrorRe.FindStringSubmatch(line); groups != nil {
			if strings.HasSuffix(groups[1], ": No space left on device") {
				return match.SingleFromLines(window, lineno, "direct regex"), problem.NoSpaceOnDevice{}
			}
			return match.SingleFromLines(window, lineno, "direct regex"),
				problem.DpkgError{Msg: groups[1]}
		}

		if groups := dpkgProcessingRe.FindStringSubmatch(line); groups != nil {
			// Anchor one line past the banner, on the detail that follows.
			anchor := lineno
			if anchor+1 < len(window) {
				anchor++
			}
			return match.SingleFromLines(window, anchor, "direct regex"),
				problem.DpkgError{Msg: "processing package " + groups[1] + " (" + groups[2] + ")"}
		}
	}

	for i, line := range lines.EnumerateForward(window, lines.NoLimit) {
		if copyNoSpaceRe.MatchString(line) || anyNoSpaceRe.MatchString(line) {
			return match.SingleFromLines(window, i, "direct regex"), problem.NoSpaceOnDevice{}
		}
	}

	return softMatch, nil
}
