package sbuild

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/newhook/buildlog/internal/apt"
	"github.com/newhook/buildlog/internal/classify"
	"github.com/newhook/buildlog/internal/lines"
	"github.com/newhook/buildlog/internal/match"
	"github.com/newhook/buildlog/internal/problem"
)

const (
	originDirect = match.Origin("direct regex")
	originExact  = match.Origin("direct match")
)

var (
	upstreamChangesRe  = regexp.MustCompile(`dpkg-source: error: aborting due to unexpected upstream changes, see (.*)`)
	unwantedBinaryRe   = regexp.MustCompile(`dpkg-source: error: detected ([0-9]+) unwanted binary file.*`)
	missingControlRe   = regexp.MustCompile(`dpkg-source: error: cannot read (.*/debian/control): No such file or directory`)
	dpkgSrcNoSpaceRe   = regexp.MustCompile(`dpkg-source: error: .*: No space left on device`)
	tarNoSpaceRe       = regexp.MustCompile(`tar: .*: Cannot write: No space left on device`)
	binaryChangedRe    = regexp.MustCompile(`dpkg-source: error: cannot represent change to (.*): binary file contents changed`)
	perlFormatRe       = regexp.MustCompile(`dpkg-source: error: source package format '(.*)' is not supported: Can't locate (.*) in @INC \(you may need to install the (.*) module\) \(@INC contains: (.*)\) at \(eval [0-9]+\) line [0-9]+\.`)
	packFailedRe       = regexp.MustCompile(`E: Failed to package source directory (.*)`)
	badVersionRe       = regexp.MustCompile(`E: Bad version unknown in (.*)`)
	changelogInvalidRe = regexp.MustCompile(`dpkg-parsechangelog: warning: .*\(l[0-9]+\): version '(.*)' is invalid: (.*)`)
	patchNoApplyRe     = regexp.MustCompile(`Patch (.*) does not apply \(enforce with -f\)`)
	patchRejectRe      = regexp.MustCompile(`dpkg-source: error: LC_ALL=C patch .* --reject-file=- < .*\/debian\/patches\/([^ ]+) subprocess returned exit status 1`)
	unbuildableRe      = regexp.MustCompile(`dpkg-source: error: can't build with source format '(.*)': (.*)`)
	patchMissingRe     = regexp.MustCompile(`dpkg-source: error: cannot read (.*): No such file or directory`)
	formatUnsupportRe  = regexp.MustCompile(`dpkg-source: error: source package format '(.*)' is not supported: (.*)`)
	noSuchRevisionRe   = regexp.MustCompile(`breezy\.errors\.NoSuchRevision: (.*) has no revision b'(.*)'`)
	gitAmbiguousRe     = regexp.MustCompile(`fatal: ambiguous argument '(.*)': unknown revision or path not in the working tree.`)
	dpkgSourceErrorRe  = regexp.MustCompile(`dpkg-source: error: (.*)`)

	chrootNotFoundRe = regexp.MustCompile(`E: Chroot for distribution (.*), architecture (.*) not found`)
	archSkipRe       = regexp.MustCompile(`E: dsc: (.*) not in arch list or does not match any arch wildcards: (.*) -- skipping`)
	spaceNeededRe    = regexp.MustCompile(`I: Source needs ([0-9]+) KiB, while ([0-9]+) KiB is free\.`)
	tailHeaderRe     = regexp.MustCompile(`==> (.*) <==`)
)

// preambleLookBack bounds the backward scan over the section that failed
// before the build proper started.
const preambleLookBack = 100

// FindPreambleFailureDescription scans a pre-build section backward for
// dpkg-source, patch and packaging errors. A generic "dpkg-source: error:"
// line is kept as a soft candidate when nothing more specific matches.
func FindPreambleFailureDescription(window []string) (match.Match, problem.Problem, error) {
	var (
		softMatch   match.Match
		softProblem problem.Problem
	)
	for lineno, raw := range lines.EnumerateBackward(window, preambleLookBack) {
		line := lines.TrimEOL(raw)

		if groups := upstreamChangesRe.FindStringSubmatch(line); groups != nil {
			// The modified files are listed between the detection banner
			// and the abort line.
			var files []string
			for j := lineno - 1; j > 0; j-- {
				if lines.TrimEOL(window[j]) == "dpkg-source: info: local changes detected, the modified files are:" {
					break
				}
				files = append(files, strings.TrimSpace(window[j]))
			}
			return match.SingleFromLines(window, lineno, originDirect),
				problem.DpkgSourceLocalChanges{DiffFile: groups[1], Files: files}, nil
		}

		if line == "dpkg-source: error: unrepresentable changes to source" {
			return match.SingleFromLines(window, lineno, originExact),
				problem.DpkgSourceUnrepresentableChanges{}, nil
		}

		if unwantedBinaryRe.MatchString(line) {
			return match.SingleFromLines(window, lineno, originDirect),
				problem.DpkgUnwantedBinaryFiles{}, nil
		}

		if groups := missingControlRe.FindStringSubmatch(line); groups != nil {
			return match.SingleFromLines(window, lineno, originDirect),
				problem.MissingControlFile{Path: groups[1]}, nil
		}

		if dpkgSrcNoSpaceRe.MatchString(line) || tarNoSpaceRe.MatchString(line) {
			return match.SingleFromLines(window, lineno, originDirect),
				problem.NoSpaceOnDevice{}, nil
		}

		if groups := binaryChangedRe.FindStringSubmatch(line); groups != nil {
			return match.SingleFromLines(window, lineno, originDirect),
				problem.DpkgBinaryFileChanged{Files: []string{groups[1]}}, nil
		}

		if groups := perlFormatRe.FindStringSubmatch(line); groups != nil {
			return match.SingleFromLines(window, lineno, originDirect),
				problem.SourceFormatUnsupported{Format: groups[1]}, nil
		}

		if groups := packFailedRe.FindStringSubmatch(line); groups != nil {
			return match.SingleFromLines(window, lineno, originDirect),
				problem.DpkgSourcePackFailed{Reason: groups[1]}, nil
		}

		if badVersionRe.MatchString(line) && lineno >= 2 {
			if strings.HasPrefix(lines.TrimEOL(window[lineno-1]), "LINE: ") {
				if groups := changelogInvalidRe.FindStringSubmatch(lines.TrimEOL(window[lineno-2])); groups != nil {
					return match.SingleFromLines(window, lineno, originDirect),
						problem.DpkgBadVersion{Version: groups[1], Reason: groups[2]}, nil
				}
			}
		}

		if groups := patchNoApplyRe.FindStringSubmatch(line); groups != nil {
			patch := groups[1]
			if idx := strings.LastIndex(patch, "/"); idx >= 0 {
				patch = patch[idx+1:]
			}
			return match.SingleFromLines(window, lineno, originDirect),
				problem.PatchApplicationFailed{Patch: patch}, nil
		}

		if groups := patchRejectRe.FindStringSubmatch(line); groups != nil {
			return match.SingleFromLines(window, lineno, originDirect),
				problem.PatchApplicationFailed{Patch: groups[1]}, nil
		}

		if groups := unbuildableRe.FindStringSubmatch(line); groups != nil {
			return match.SingleFromLines(window, lineno, originDirect),
				problem.SourceFormatUnbuildable{Format: groups[1], Reason: groups[2]}, nil
		}

		if groups := patchMissingRe.FindStringSubmatch(line); groups != nil {
			return match.SingleFromLines(window, lineno, originDirect),
				problem.PatchFileMissing{Path: groups[1]}, nil
		}

		if groups := formatUnsupportRe.FindStringSubmatch(line); groups != nil {
			_, p, err := classify.FindBuildFailureDescription([]string{groups[2]})
			if err != nil {
				return nil, nil, err
			}
			if p == nil {
				p = problem.SourceFormatUnsupported{Format: groups[1]}
			}
			return match.SingleFromLines(window, lineno, originDirect), p, nil
		}

		if groups := noSuchRevisionRe.FindStringSubmatch(line); groups != nil {
			return match.SingleFromLines(window, lineno, originDirect),
				problem.MissingRevision{Revision: groups[2]}, nil
		}

		if groups := gitAmbiguousRe.FindStringSubmatch(line); groups != nil {
			return match.SingleFromLines(window, lineno, originDirect),
				problem.PristineTarTreeMissing{Treeish: groups[1]}, nil
		}

		if groups := dpkgSourceErrorRe.FindStringSubmatch(line); groups != nil {
			softMatch = match.SingleFromLines(window, lineno, originDirect)
			softProblem = problem.DpkgSourcePackFailed{Reason: groups[1]}
		}
	}
	return softMatch, softProblem, nil
}

// findCreationSessionError scans a failed chroot-session section backward.
// "E: " lines are soft candidates; out-of-space is a hard diagnosis.
func findCreationSessionError(window []string) (match.Match, problem.Problem) {
	var (
		m match.Match
		p problem.Problem
	)
	for lineno, raw := range lines.EnumerateBackward(window, lines.NoLimit) {
		line := lines.TrimEOL(raw)
		if strings.HasPrefix(line, "E: ") {
			m = match.SingleFromLines(window, lineno, originDirect)
			p = nil
		}
		if groups := chrootNotFoundRe.FindStringSubmatch(line); groups != nil {
			m = match.SingleFromLines(window, lineno, originDirect)
			p = problem.ChrootNotFound{Chroot: groups[1] + "-" + groups[2] + "-sbuild"}
		}
		if strings.HasSuffix(line, ": No space left on device") {
			return match.SingleFromLines(window, lineno, originDirect), problem.NoSpaceOnDevice{}
		}
	}
	return m, p
}

// findArchCheckFailureDescription diagnoses a failed architecture check.
// When no skip line is found the last line of the section locates the
// failure without a diagnosis.
func findArchCheckFailureDescription(window []string) (match.Match, problem.Problem) {
	for offset, raw := range lines.EnumerateForward(window, lines.NoLimit) {
		line := lines.TrimEOL(raw)
		if groups := archSkipRe.FindStringSubmatch(line); groups != nil {
			return match.SingleFromLines(window, offset, originDirect),
				problem.ArchitectureNotInList{Arch: groups[1], ArchList: strings.Fields(groups[2])}
		}
	}
	if len(window) == 0 {
		return nil, nil
	}
	return match.SingleFromLines(window, len(window)-1, originDirect), nil
}

// findCheckSpaceFailureDescription diagnoses a failed disk space check.
func findCheckSpaceFailureDescription(window []string) (match.Match, problem.Problem) {
	for offset, raw := range lines.EnumerateForward(window, lines.NoLimit) {
		line := lines.TrimEOL(raw)
		if line != "E: Disk space is probably not sufficient for building." {
			continue
		}
		if offset+1 < len(window) {
			if groups := spaceNeededRe.FindStringSubmatch(lines.TrimEOL(window[offset+1])); groups != nil {
				needed, err1 := strconv.ParseUint(groups[1], 10, 64)
				free, err2 := strconv.ParseUint(groups[2], 10, 64)
				if err1 == nil && err2 == nil {
					return match.SingleFromLines(window, offset, originDirect),
						problem.InsufficientDiskSpace{NeededKiB: needed, FreeKiB: free}
				}
			}
		}
		return match.SingleFromLines(window, offset, originExact), nil
	}
	return nil, nil
}

// DefaultLookBack bounds the search for the build-finished marker when
// stripping the tail sbuild appends after the build itself.
const DefaultLookBack = 50

// StripBuildTail cuts the "Build finished at" trailer off a build section
// and splits out any "==> file <==" dumps that follow the build output.
// It returns the remaining body and the dumped files by name.
func StripBuildTail(window []string, lookBack int) ([]string, map[string][]string) {
	if lookBack <= 0 {
		lookBack = DefaultLookBack
	}

	body := window
	for i, raw := range lines.EnumerateTailForward(window, lookBack) {
		if strings.HasPrefix(lines.TrimEOL(raw), "Build finished at ") {
			body = window[:i]
			if n := len(body); n > 0 && lines.TrimEOL(body[n-1]) == strings.Repeat("-", 80) {
				body = body[:n-1]
			}
			break
		}
	}

	files := make(map[string][]string)
	var (
		name  string
		open  bool
		begin int
		first = len(body)
	)
	for i, raw := range lines.EnumerateForward(body, lines.NoLimit) {
		groups := tailHeaderRe.FindStringSubmatch(lines.TrimEOL(raw))
		if groups == nil {
			continue
		}
		if open {
			files[name] = body[begin:i]
		} else {
			first = i
		}
		name, open, begin = groups[1], true, i+1
	}
	if open {
		files[name] = body[begin:]
		body = body[:first]
	}
	return body, files
}

// updateChrootSection is the transcript section apt-get update writes to.
const updateChrootSection = "update chroot"

// FindAptGetUpdateFailure localizes a failed apt-get update inside a
// transcript. It returns the section searched along with the match.
func FindAptGetUpdateFailure(l *Log) (string, match.Match, problem.Problem) {
	window := l.SectionLines(updateChrootSection)
	m, p := apt.FindAptGetFailure(window)
	return updateChrootSection, m, p
}

// Dose3Section is the section the aspcud-based resolver writes to.
const Dose3Section = "install dose3 build dependencies (aspcud-based resolver)"

// buildDepsSection is the section the classic resolver writes to.
const buildDepsSection = "Install package build dependencies"

// findInstallDepsFailureDescription diagnoses a failed build-dependency
// installation, preferring the resolver's own report when one is present.
func findInstallDepsFailureDescription(l *Log) (string, match.Match, problem.Problem, error) {
	if window := l.SectionLines(Dose3Section); window != nil {
		name, m, p, err := cudfFailure(Dose3Section, window)
		if err != nil || m != nil {
			return name, m, p, err
		}
	}

	if window := l.SectionLines(buildDepsSection); window != nil {
		name, m, p, err := cudfFailure(buildDepsSection, window)
		if err != nil || m != nil {
			return name, m, p, err
		}
		m, p = apt.FindAptGetFailure(window)
		return buildDepsSection, m, p, nil
	}

	for i := range l.Sections {
		section := &l.Sections[i]
		if section.Title == nil {
			continue
		}
		if !installDepsSectionRe.MatchString(strings.ToLower(*section.Title)) {
			continue
		}
		if m, p := apt.FindAptGetFailure(section.Lines); m != nil {
			return *section.Title, m, p, nil
		}
	}
	return "", nil, nil, nil
}

func cudfFailure(name string, window []string) (string, match.Match, problem.Problem, error) {
	offsets, doc, err := apt.FindCudfOutput(window)
	if err != nil {
		return name, nil, nil, err
	}
	if doc == nil {
		return "", nil, nil, nil
	}
	p, err := apt.ErrorFromDose3Reports(doc.Report)
	if err != nil {
		return name, nil, nil, err
	}
	matched := make([]string, len(offsets))
	for i, off := range offsets {
		matched[i] = window[off]
	}
	return name, match.NewMultiLineMatch("", offsets, matched), p, nil
}

var installDepsSectionRe = regexp.MustCompile(`install (.*) build dependencies.*`)
