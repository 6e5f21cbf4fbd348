// Package sbuild parses Debian sbuild transcripts and localizes the failure
// that aborted a build.
//
// An sbuild transcript is divided into sections by banner lines. Each stage
// of the build writes into its own section, and the trailing Summary section
// records metadata including the failed stage. The per-stage finders in this
// package inspect the section the failed stage wrote to.
package sbuild

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/newhook/buildlog/internal/logging"
)

// Section is one banner-delimited chunk of a transcript. Title is nil for
// the preamble before the first banner. Begin and End are 1-based line
// numbers into the original log; End accounts for trailing blank lines
// trimmed at the closing banner.
type Section struct {
	Title *string
	Begin int
	End   int
	Lines []string
}

// Log is a parsed sbuild transcript.
type Log struct {
	Sections []Section
}

var sectionSep = "+" + strings.Repeat("-", 78) + "+"

// Parse splits an sbuild transcript into its banner-delimited sections.
// Lines keep their trailing newline so offsets and matches line up with the
// raw log.
func Parse(r io.Reader) (*Log, error) {
	br := bufio.NewReader(r)
	readLine := func() (string, error) {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		return line, nil
	}

	var (
		sections    []Section
		buf         []string
		title       *string
		beginOffset = 1
		lineno      = 0
	)
	for {
		line, err := readLine()
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		lineno++
		if strings.TrimSpace(line) != sectionSep {
			buf = append(buf, line)
			continue
		}

		// A separator may open a title banner; peek the next two lines.
		l1, err := readLine()
		if err != nil {
			return nil, err
		}
		l2, err := readLine()
		if err != nil {
			return nil, err
		}
		lineno += 2
		l1t := strings.TrimSpace(l1)
		if strings.HasPrefix(l1t, "|") && strings.HasSuffix(l1t, "|") &&
			strings.TrimSpace(l2) == sectionSep {
			endOffset := lineno - 3
			for len(buf) > 0 && buf[len(buf)-1] == "\n" {
				buf = buf[:len(buf)-1]
				endOffset--
			}
			if len(buf) > 0 {
				sections = append(sections, Section{
					Title: title,
					Begin: beginOffset,
					End:   endOffset,
					Lines: buf,
				})
			}
			t := strings.TrimSpace(strings.Trim(l1t, "|"))
			title = &t
			buf = nil
			beginOffset = lineno
		} else {
			buf = append(buf, line, l1, l2)
		}
	}

	// The final section is kept even when empty.
	sections = append(sections, Section{
		Title: title,
		Begin: beginOffset,
		End:   lineno,
		Lines: buf,
	})
	return &Log{Sections: sections}, nil
}

// ParseString parses a transcript held in memory.
func ParseString(s string) (*Log, error) {
	return Parse(strings.NewReader(s))
}

// Section returns the first section whose title matches, ignoring case, or
// nil. Sections with empty titles are not addressable by name.
func (l *Log) Section(title string) *Section {
	for i := range l.Sections {
		s := &l.Sections[i]
		if s.Title != nil && *s.Title != "" && title != "" && strings.EqualFold(*s.Title, title) {
			return s
		}
	}
	return nil
}

// Preamble returns the untitled section before the first banner, or nil.
func (l *Log) Preamble() *Section {
	for i := range l.Sections {
		if l.Sections[i].Title == nil {
			return &l.Sections[i]
		}
	}
	return nil
}

// SectionLines returns the lines of the named section, or nil.
func (l *Log) SectionLines(title string) []string {
	if s := l.Section(title); s != nil {
		return s.Lines
	}
	return nil
}

// Titles returns the titles of all titled sections, in order.
func (l *Log) Titles() []string {
	var titles []string
	for _, s := range l.Sections {
		if s.Title != nil {
			titles = append(titles, *s.Title)
		}
	}
	return titles
}

// FailedStage returns the Fail-Stage value from the Summary section, or ""
// when the build did not record one.
func (l *Log) FailedStage() string {
	if s := l.Summary(); s != nil {
		return s.FailStage
	}
	return ""
}

// Summary parses the Summary section, or returns nil when the transcript
// has none.
func (l *Log) Summary() *Summary {
	section := l.Section("Summary")
	if section == nil {
		return nil
	}
	s := ParseSummary(section.Lines)
	return &s
}

// FindFailedStage scans raw lines for a Fail-Stage header.
func FindFailedStage(window []string) string {
	for _, line := range window {
		if value, ok := strings.CutPrefix(line, "Fail-Stage: "); ok {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// Space is a disk space figure from the summary. Known is false when the
// log reported "n/a".
type Space struct {
	Bytes uint64
	Known bool
}

// ParseSpace parses a Build-Space or Space summary value.
func ParseSpace(s string) (Space, error) {
	if s == "n/a" {
		return Space{}, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return Space{}, err
	}
	return Space{Bytes: n, Known: true}, nil
}

// Summary is the metadata sbuild prints at the end of a transcript. String
// fields are empty and pointers nil when the log omitted a key.
type Summary struct {
	BuildArchitecture   string
	BuildType           string
	BuildTime           time.Duration
	BuildSpace          *Space
	HostArchitecture    string
	InstallTime         time.Duration
	Lintian             string
	Package             string
	PackageTime         time.Duration
	Distribution        string
	FailStage           string
	Job                 string
	Autopkgtest         string
	SourceVersion       string
	MachineArchitecture string
	Status              string
	Space               *Space
	Version             string
}

// ParseSummary parses the key/value lines of a Summary section. Unknown
// keys and malformed values are logged and skipped.
func ParseSummary(window []string) Summary {
	var s Summary
	for _, line := range window {
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, found := strings.Cut(strings.TrimRight(line, " \t\r\n"), ": ")
		if !found {
			logging.Warn("unknown line in summary", "line", line)
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "Fail-Stage":
			s.FailStage = value
		case "Build Architecture":
			s.BuildArchitecture = value
		case "Build Type":
			s.BuildType = value
		case "Build-Time":
			s.BuildTime = parseSeconds(key, value)
		case "Build-Space":
			s.BuildSpace = parseSpace(key, value)
		case "Host Architecture":
			s.HostArchitecture = value
		case "Install-Time":
			s.InstallTime = parseSeconds(key, value)
		case "Lintian":
			s.Lintian = value
		case "Package":
			s.Package = value
		case "Package-Time":
			s.PackageTime = parseSeconds(key, value)
		case "Source-Version":
			s.SourceVersion = value
		case "Job":
			s.Job = value
		case "Machine Architecture":
			s.MachineArchitecture = value
		case "Distribution":
			s.Distribution = value
		case "Autopkgtest":
			s.Autopkgtest = value
		case "Status":
			s.Status = value
		case "Space":
			s.Space = parseSpace(key, value)
		case "Version":
			s.Version = value
		default:
			logging.Warn("unknown key in summary", "key", key)
		}
	}
	return s
}

func parseSeconds(key, value string) time.Duration {
	n, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("malformed summary value", "key", key, "value", value)
		return 0
	}
	return time.Duration(n) * time.Second
}

func parseSpace(key, value string) *Space {
	sp, err := ParseSpace(value)
	if err != nil {
		logging.Warn("malformed summary value", "key", key, "value", value)
		return nil
	}
	return &sp
}
