package autopkgtest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/newhook/buildlog/internal/logging"
)

// packetKind discriminates the recognized autopkgtest control messages.
type packetKind int

const (
	packetSource packetKind = iota
	packetSummary
	packetTestBeginOutput
	packetTestEndOutput
	packetResults
	packetStderr
	packetTestbedSetup
	packetTestOutput
	packetError
	packetOther
)

// packet is the tokenized form of one timestamped runner line. It is
// consumed immediately to update the current field or trigger
// localization.
type packet struct {
	kind    packetKind
	test    string
	payload string
}

var packetRe = regexp.MustCompile(`^autopkgtest \[([0-9:]+)\]: (.*)`)

// parsePacket tokenizes a runner control line. Lines without the
// timestamped prefix are unstructured output and return false.
func parsePacket(line string) (packet, bool) {
	groups := packetRe.FindStringSubmatch(line)
	if groups == nil {
		return packet{}, false
	}
	message := groups[2]

	switch {
	case strings.HasPrefix(message, "@@@@@@@@@@@@@@@@@@@@ source "):
		return packet{kind: packetSource}, true
	case strings.HasPrefix(message, "@@@@@@@@@@@@@@@@@@@@ summary"):
		return packet{kind: packetSummary}, true
	case strings.HasPrefix(message, "test "):
		rest := strings.TrimRight(strings.TrimPrefix(message, "test "), "\n")
		testname, status, found := strings.Cut(rest, ": ")
		if !found {
			logging.Warn("unhandled autopkgtest message", "message", message)
			return packet{kind: packetOther, payload: message}, true
		}
		switch status {
		case "[-----------------------":
			return packet{kind: packetTestBeginOutput, test: testname}, true
		case "-----------------------]":
			return packet{kind: packetTestEndOutput, test: testname}, true
		case " - - - - - - - - - - results - - - - - - - - - -":
			return packet{kind: packetResults, test: testname}, true
		case " - - - - - - - - - - stderr - - - - - - - - - -":
			return packet{kind: packetStderr, test: testname}, true
		case "preparing testbed":
			return packet{kind: packetTestbedSetup, test: testname}, true
		default:
			return packet{kind: packetTestOutput, test: testname, payload: status}, true
		}
	case strings.HasPrefix(message, "ERROR: "):
		return packet{kind: packetError, payload: strings.TrimPrefix(message, "ERROR: ")}, true
	default:
		logging.Warn("unhandled autopkgtest message", "message", message)
		return packet{kind: packetOther, payload: message}, true
	}
}

// field identifies one logical buffer of raw lines. The kind is either one
// of the well-known buffer names or the free-form label from a test-output
// packet.
type field struct {
	test string
	kind string
}

const (
	kindOutput         = "output"
	kindStderr         = "stderr"
	kindResults        = "results"
	kindPrepareTestbed = "prepare testbed"
	kindSummary        = "summary"
)

func summaryField() field            { return field{kind: kindSummary} }
func outputField(test string) field  { return field{test: test, kind: kindOutput} }
func stderrField(test string) field  { return field{test: test, kind: kindStderr} }
func resultsField(test string) field { return field{test: test, kind: kindResults} }

func (f field) String() string {
	switch f.kind {
	case kindSummary:
		return "summary"
	case kindPrepareTestbed:
		return fmt.Sprintf("testbed setup for test %s", f.test)
	default:
		return fmt.Sprintf("%s for test %s", f.kind, f.test)
	}
}

// TestResult is the verdict printed for one test in the summary.
type TestResult string

// Summary verdicts.
const (
	ResultPass  TestResult = "PASS"
	ResultFail  TestResult = "FAIL"
	ResultSkip  TestResult = "SKIP"
	ResultFlaky TestResult = "FLAKY"
)

// SummaryEntry is one parsed line of the runner's summary. Entries are
// consumed once, in order, by the localizer.
type SummaryEntry struct {
	Offset int
	Name   string
	Result TestResult
	Reason string
	Extra  []string
}

// Lineno returns the 1-based position within the summary buffer.
func (s SummaryEntry) Lineno() int { return s.Offset + 1 }

var (
	summaryPassRe   = regexp.MustCompile(`([^ ]+)(?:[ ]+)PASS`)
	summaryResultRe = regexp.MustCompile(`([^ ]+)(?:[ ]+)(FAIL|PASS|SKIP|FLAKY) (.+)`)
)

// ParseSummary parses the buffered summary field. A "badpkg" verdict
// absorbs the immediately following badpkg:/blame: detail lines as extras.
func ParseSummary(buffered []string) []SummaryEntry {
	var entries []SummaryEntry
	for i := 0; i < len(buffered); i++ {
		line := buffered[i]
		if groups := summaryPassRe.FindStringSubmatch(line); groups != nil {
			entries = append(entries, SummaryEntry{
				Offset: i,
				Name:   groups[1],
				Result: ResultPass,
			})
			continue
		}
		groups := summaryResultRe.FindStringSubmatch(line)
		if groups == nil {
			continue
		}
		entry := SummaryEntry{
			Offset: i,
			Name:   groups[1],
			Result: TestResult(groups[2]),
			Reason: groups[3],
		}
		if entry.Reason == "badpkg" {
			for i+1 < len(buffered) &&
				(strings.HasPrefix(buffered[i+1], "badpkg:") || strings.HasPrefix(buffered[i+1], "blame:")) {
				entry.Extra = append(entry.Extra, buffered[i+1])
				i++
			}
		}
		entries = append(entries, entry)
	}
	return entries
}
