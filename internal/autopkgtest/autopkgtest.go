// Package autopkgtest localizes failures in Debian autopkgtest runner logs.
//
// The runner interleaves timestamped control messages with raw test output.
// The localizer replays the log once, bucketing raw lines into per-test
// fields, and decides the failure from either an ERROR control message or
// the trailing summary block.
package autopkgtest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/newhook/buildlog/internal/apt"
	"github.com/newhook/buildlog/internal/classify"
	"github.com/newhook/buildlog/internal/lines"
	"github.com/newhook/buildlog/internal/logging"
	"github.com/newhook/buildlog/internal/match"
	"github.com/newhook/buildlog/internal/problem"
)

const originDirect = match.Origin("direct regex")

// Result is the outcome of localizing one autopkgtest log. A zero Result
// means the log showed no failure. TestName and Description are empty when
// unknown; Problem is nil when the failure could not be mapped to a known
// category.
type Result struct {
	Match       match.Match
	TestName    string
	Problem     problem.Problem
	Description string
}

// buffer holds the raw lines bucketed under one field, plus the window
// offset of its first line.
type buffer struct {
	lines  []string
	offset int
}

var (
	failedStderrRe  = regexp.MustCompile(`"(.*)" failed with stderr "(.*)("?)`)
	chrootStatRe    = regexp.MustCompile(`W: (.*): Failed to stat file: No such file or directory`)
	testbedReasonRe = regexp.MustCompile(`testbed failure: (.*)`)
	erroneousRe     = regexp.MustCompile(`erroneous package: (.*)`)
	xdgRuntimeRe    = regexp.MustCompile(`QStandardPaths: XDG_RUNTIME_DIR not set, defaulting to '(.*)'`)
)

// FindFailureDescription scans an autopkgtest log and localizes its failure.
// The returned error covers matcher framework failures and summary entries
// that violate the runner's own format, never the mere absence of a match.
func FindFailureDescription(window []string) (Result, error) {
	output := map[field]*buffer{}
	var current *field

	for i := 0; i < len(window); i++ {
		line := window[i]
		pkt, ok := parsePacket(line)
		if !ok {
			if current != nil {
				b := output[*current]
				if b == nil {
					b = &buffer{offset: i}
					output[*current] = b
				}
				b.lines = append(b.lines, line)
			}
			continue
		}
		switch pkt.kind {
		case packetSource, packetOther:
		case packetError:
			return localizeError(window, i, pkt.payload, current, output)
		case packetSummary:
			f := summaryField()
			current = &f
			output[f] = &buffer{offset: i + 1}
		case packetTestEndOutput:
			switch {
			case current == nil:
				logging.Warn("unexpected test end output", "test", pkt.test)
			case current.kind == kindOutput:
				if current.test != pkt.test {
					logging.Warn("unexpected test end output",
						"test", current.test, "expected", pkt.test)
				}
			default:
				logging.Warn("unexpected test end output",
					"test", pkt.test, "field", current.String())
			}
			current = nil
		default:
			var f field
			switch pkt.kind {
			case packetTestBeginOutput:
				f = outputField(pkt.test)
			case packetResults:
				f = resultsField(pkt.test)
			case packetStderr:
				f = stderrField(pkt.test)
			case packetTestbedSetup:
				f = field{test: pkt.test, kind: kindPrepareTestbed}
			case packetTestOutput:
				f = field{test: pkt.test, kind: pkt.payload}
			}
			if _, dup := output[f]; dup {
				logging.Warn("duplicate output fields", "field", f.String())
			}
			current = &f
			output[f] = &buffer{offset: i + 1}
		}
	}

	sb := output[summaryField()]
	if sb == nil {
		trimmed := window
		for len(trimmed) > 0 && strings.TrimSpace(trimmed[len(trimmed)-1]) == "" {
			trimmed = trimmed[:len(trimmed)-1]
		}
		if len(trimmed) == 0 {
			return Result{}, nil
		}
		offset := len(trimmed) - 1
		return Result{
			Match:    match.SingleFromLines(trimmed, offset, originDirect),
			TestName: trimmed[offset],
		}, nil
	}

	for _, entry := range ParseSummary(sb.lines) {
		if entry.Result == ResultPass || entry.Result == ResultSkip {
			continue
		}
		switch {
		case entry.Reason == "timed out":
			return Result{
				Match:       match.SingleFromLines(window, sb.offset+entry.Offset, originDirect),
				TestName:    entry.Name,
				Problem:     problem.AutopkgtestTimedOut{},
				Description: entry.Reason,
			}, nil
		case strings.HasPrefix(entry.Reason, "stderr: "):
			out := strings.TrimPrefix(entry.Reason, "stderr: ")
			return localizeStderrVerdict(window, sb, entry, out, output)
		case entry.Reason == "badpkg":
			return localizeBadpkgVerdict(window, sb, entry, output)
		default:
			buf := output[outputField(entry.Name)]
			var buffered []string
			if buf != nil {
				buffered = buf.lines
			}
			m, p, err := classify.FindBuildFailureDescription(buffered)
			if err != nil {
				return Result{}, err
			}
			offset := sb.offset + entry.Offset
			description := fmt.Sprintf("Test %s failed", entry.Name)
			if m != nil {
				offset = m.Offset() + buf.offset
				description = m.Line()
			} else if entry.Reason != "" {
				description = fmt.Sprintf("Test %s failed: %s", entry.Name, entry.Reason)
			}
			return Result{
				Match:       match.SingleFromLines(window, offset, originDirect),
				TestName:    entry.Name,
				Problem:     p,
				Description: description,
			}, nil
		}
	}
	return Result{}, nil
}

// localizeError decides the failure from an ERROR control message at
// window offset i. Every path returns a Result anchored somewhere in the
// window; raw messages that map to no known category come back with a nil
// Problem and the message as description.
func localizeError(window []string, i int, msg string, current *field, output map[field]*buffer) (Result, error) {
	// A message opening a quote that never closes on the same line
	// continues on the following lines until one closes it.
	if strings.HasPrefix(msg, `"`) && strings.Count(msg, `"`) == 1 {
		sublines := []string{msg}
		for j := i + 1; j < len(window); j++ {
			sublines = append(sublines, window[j])
			if strings.Count(window[j], `"`) == 1 {
				break
			}
		}
		msg = strings.Join(sublines, "\n")
	}

	lastTest := ""
	if current != nil {
		lastTest = current.test
	}

	if groups := failedStderrRe.FindStringSubmatch(msg); groups != nil {
		stderr := groups[2]
		if chrootStatRe.MatchString(stderr) {
			return Result{
				Match:       match.SingleFromLines(window, i, originDirect),
				TestName:    lastTest,
				Problem:     problem.AutopkgtestDepChrootDisappeared{},
				Description: stderr,
			}, nil
		}
	}

	if groups := testbedReasonRe.FindStringSubmatch(msg); groups != nil {
		reason := groups[1]
		if current != nil && reason == "testbed auxverb failed with exit code 255" {
			if b := output[outputField(current.test)]; b != nil {
				m, p, err := classify.FindBuildFailureDescription(b.lines)
				if err != nil {
					return Result{}, err
				}
				if p != nil && m != nil {
					return Result{
						Match:       match.SingleFromLines(window, b.offset+m.Offset(), originDirect),
						TestName:    lastTest,
						Problem:     p,
						Description: m.Line(),
					}, nil
				}
			}
		}
		if reason == "sent `auxverb_debug_fail', got `copy-failed', expected `ok...'" {
			m, p, err := classify.FindBuildFailureDescription(window)
			if err != nil {
				return Result{}, err
			}
			if p != nil && m != nil {
				return Result{Match: m, TestName: lastTest, Problem: p, Description: m.Line()}, nil
			}
		}
		if reason == "cannot send to testbed: [Errno 32] Broken pipe" {
			m, p := FindTestbedSetupFailure(window)
			if m != nil && p != nil {
				return Result{Match: m, TestName: lastTest, Problem: p, Description: m.Line()}, nil
			}
		}
		if reason == "apt repeatedly failed to download packages" {
			m, p := apt.FindAptGetFailure(window)
			if m != nil && p != nil {
				return Result{Match: m, TestName: lastTest, Problem: p, Description: m.Line()}, nil
			}
			return Result{
				Match:    match.SingleFromLines(window, i, originDirect),
				TestName: lastTest,
				Problem:  problem.AptFetchFailure{Error: reason},
			}, nil
		}
		return Result{
			Match:    match.SingleFromLines(window, i, originDirect),
			TestName: lastTest,
			Problem:  problem.AutopkgtestTestbedFailure{Reason: reason},
		}, nil
	}

	if groups := erroneousRe.FindStringSubmatch(msg); groups != nil {
		m, p, err := classify.FindBuildFailureDescription(window[:i])
		if err != nil {
			return Result{}, err
		}
		if m != nil && p != nil {
			return Result{Match: m, TestName: lastTest, Problem: p, Description: m.Line()}, nil
		}
		return Result{
			Match:    match.SingleFromLines(window, i, originDirect),
			TestName: lastTest,
			Problem:  problem.AutopkgtestErroneousPackage{Reason: groups[1]},
		}, nil
	}

	if msg == "unexpected error:" {
		m, p, err := classify.FindBuildFailureDescription(window[i+1:])
		if err != nil {
			return Result{}, err
		}
		if m != nil && p != nil {
			return Result{Match: m, TestName: lastTest, Problem: p, Description: m.Line()}, nil
		}
	}

	if current != nil {
		if b := output[*current]; b != nil {
			m, p := apt.FindAptGetFailure(b.lines)
			if m != nil && p != nil {
				return Result{
					Match:       match.SingleFromLines(window, b.offset+m.Offset(), originDirect),
					TestName:    lastTest,
					Problem:     p,
					Description: m.Line(),
				}, nil
			}
		}
	}

	if msg == "autopkgtest" && i+1 < len(window) &&
		strings.TrimRightFunc(window[i+1], unicode.IsSpace) == ": error cleaning up:" {
		if current != nil && i > 0 {
			if b := output[*current]; b != nil {
				return Result{
					Match:       match.SingleFromLines(window, b.offset, originDirect),
					TestName:    lastTest,
					Problem:     problem.AutopkgtestTimedOut{},
					Description: strings.TrimRightFunc(window[i-1], unicode.IsSpace),
				}, nil
			}
		}
	}

	return Result{
		Match:       match.SingleFromLines(window, i, originDirect),
		TestName:    lastTest,
		Description: msg,
	}, nil
}

// localizeStderrVerdict handles a summary verdict of "stderr: <output>":
// the test failed because it wrote to stderr. The stderr buffer, when
// captured, often contains a more precise failure than the verdict line.
func localizeStderrVerdict(window []string, sb *buffer, entry SummaryEntry, out string, output map[field]*buffer) (Result, error) {
	var (
		p           problem.Problem
		offset      = -1
		description string
	)
	buf := output[stderrField(entry.Name)]
	if buf != nil && len(buf.lines) > 0 {
		m, found, err := classify.FindBuildFailureDescription(buf.lines)
		if err != nil {
			return Result{}, err
		}
		p = found
		switch {
		case m != nil:
			offset = m.Offset() + buf.offset
			description = m.Line()
		case len(buf.lines) == 1 && xdgRuntimeRe.MatchString(buf.lines[0]):
			p = problem.XDGRunTimeNotSet{}
			description = buf.lines[0]
			offset = buf.offset
		default:
			offset = buf.offset
		}
	} else {
		m, found, err := classify.FindBuildFailureDescription([]string{out})
		if err != nil {
			return Result{}, err
		}
		p = found
		if m != nil {
			offset = sb.offset + entry.Offset + m.Offset()
			description = m.Line()
		}
	}
	if offset < 0 {
		offset = sb.offset + entry.Offset
	}
	if p == nil {
		p = problem.AutopkgtestStderrFailure{StderrLine: out}
	}
	if description == "" {
		description = fmt.Sprintf(
			"Test %s failed due to unauthorized stderr output: %s", entry.Name, out)
	}
	return Result{
		Match:       match.SingleFromLines(window, offset, originDirect),
		TestName:    entry.Name,
		Problem:     p,
		Description: description,
	}, nil
}

// localizeBadpkgVerdict handles a summary verdict of "badpkg": the test
// dependencies could not be installed. The Output buffer is consulted for
// an apt failure first; otherwise the blame:/badpkg: extras carry the
// unsatisfiable dependency set.
func localizeBadpkgVerdict(window []string, sb *buffer, entry SummaryEntry, output map[field]*buffer) (Result, error) {
	if buf := output[outputField(entry.Name)]; buf != nil && len(buf.lines) > 0 {
		m, p := apt.FindAptGetFailure(buf.lines)
		if m != nil && p != nil {
			return Result{
				Match:    match.SingleFromLines(window, m.Offset()+buf.offset, originDirect),
				TestName: entry.Name,
				Problem:  p,
			}, nil
		}
	}
	badpkg := ""
	haveBadpkg := false
	blame := ""
	blameOffset := -1
	for idx, l := range entry.Extra {
		if rest, ok := strings.CutPrefix(l, "badpkg: "); ok {
			badpkg = rest
			haveBadpkg = true
		}
		if strings.HasPrefix(l, "blame: ") {
			blame = l
			blameOffset = idx + 1
		}
	}
	if blameOffset < 0 {
		return Result{}, fmt.Errorf(
			"badpkg verdict for test %s carries no blame line", entry.Name)
	}
	description := fmt.Sprintf("Test %s failed", entry.Name)
	if haveBadpkg {
		description = fmt.Sprintf("Test %s failed: %s", entry.Name, strings.TrimRight(badpkg, "\n"))
	}
	return Result{
		Match:       match.SingleFromLines(window, sb.offset+entry.Offset+blameOffset, originDirect),
		TestName:    entry.Name,
		Problem:     problem.NewDepsUnsatisfiableFromBlameLine(blame),
		Description: description,
	}, nil
}

var (
	auxverbFailedRe = regexp.MustCompile(`\[(.*)\] failed \(exit status ([0-9]+), stderr '(.*)'\)`)
	chrootMissingRe = regexp.MustCompile(`E: (.*): Chroot not found\\n`)
	virtSubprocRe   = regexp.MustCompile("<VirtSubproc>: failure: \\['(.*)'\\] unexpectedly produced stderr output `(.*)")
	sessionStatRe   = regexp.MustCompile(`W: /var/lib/schroot/session/(.*): Failed to stat file: No such file or directory`)
)

// FindTestbedSetupFailure scans backward for the testbed setup error that
// broke the session before any test ran.
func FindTestbedSetupFailure(window []string) (match.Match, problem.Problem) {
	for offset, line := range lines.EnumerateBackward(window, lines.NoLimit) {
		line = lines.TrimEOL(line)
		if groups := auxverbFailedRe.FindStringSubmatch(line); groups != nil {
			if inner := chrootMissingRe.FindStringSubmatch(groups[3]); inner != nil {
				return match.SingleFromLines(window, offset, originDirect),
					problem.ChrootNotFound{Chroot: inner[1]}
			}
			status, _ := strconv.Atoi(groups[2])
			return match.SingleFromLines(window, offset, originDirect),
				problem.AutopkgtestTestbedSetupFailure{
					Command:    groups[1],
					ExitStatus: status,
					Error:      groups[3],
				}
		}
		if groups := virtSubprocRe.FindStringSubmatch(line); groups != nil {
			if sessionStatRe.MatchString(groups[2]) {
				return match.SingleFromLines(window, offset, originDirect),
					problem.AutopkgtestDepChrootDisappeared{}
			}
			return match.SingleFromLines(window, offset, originDirect),
				problem.AutopkgtestTestbedSetupFailure{
					Command:    groups[1],
					ExitStatus: 1,
					Error:      groups[2],
				}
		}
	}
	return nil, nil
}
