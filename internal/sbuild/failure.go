package sbuild

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/newhook/buildlog/internal/apt"
	"github.com/newhook/buildlog/internal/autopkgtest"
	"github.com/newhook/buildlog/internal/classify"
	"github.com/newhook/buildlog/internal/logging"
	"github.com/newhook/buildlog/internal/match"
	"github.com/newhook/buildlog/internal/problem"
)

// Phase names the part of the build a failure belongs to. Test is set only
// for autopkgtest phases.
type Phase struct {
	Kind string
	Test string
}

const (
	PhaseAutopkgtest   = "autopkgtest"
	PhaseBuild         = "build"
	PhaseBuildEnv      = "buildenv"
	PhaseCreateSession = "create-session"
)

func buildPhase() *Phase { return &Phase{Kind: PhaseBuild} }

func autopkgtestPhase(test string) *Phase {
	return &Phase{Kind: PhaseAutopkgtest, Test: test}
}

func (p Phase) String() string {
	if p.Kind == PhaseAutopkgtest && p.Test != "" {
		return p.Kind + ": " + p.Test
	}
	return p.Kind
}

// MarshalJSON renders an autopkgtest phase as {"autopkgtest": test} and any
// other phase as its kind string.
func (p Phase) MarshalJSON() ([]byte, error) {
	if p.Kind == PhaseAutopkgtest && p.Test != "" {
		return json.Marshal(map[string]string{PhaseAutopkgtest: p.Test})
	}
	return json.Marshal(p.Kind)
}

// Failure is the localized diagnosis of a failed sbuild run.
type Failure struct {
	Stage       string
	Description string
	Error       problem.Problem
	Phase       *Phase
	Section     *Section
	Match       match.Match
}

func (f *Failure) String() string {
	return fmt.Sprintf("Failed at stage: %s (%s)", f.Stage, f.Description)
}

// MarshalJSON flattens the failure for reports. Lineno is absolute in the
// original transcript, derived from the section origin and the match anchor.
func (f *Failure) MarshalJSON() ([]byte, error) {
	out := struct {
		Stage   string          `json:"stage,omitempty"`
		Phase   *Phase          `json:"phase,omitempty"`
		Section *string         `json:"section,omitempty"`
		Origin  string          `json:"origin,omitempty"`
		Lineno  int             `json:"lineno,omitempty"`
		Kind    string          `json:"kind,omitempty"`
		Details json.RawMessage `json:"details,omitempty"`
	}{
		Stage: f.Stage,
		Phase: f.Phase,
	}
	if f.Section != nil {
		out.Section = f.Section.Title
		if f.Match != nil {
			out.Lineno = f.Section.Begin + f.Match.Lineno()
		}
	}
	if f.Match != nil {
		out.Origin = string(f.Match.Origin())
	}
	if f.Error != nil {
		out.Kind = f.Error.Kind()
		details, err := json.Marshal(f.Error.Details())
		if err != nil {
			return nil, err
		}
		out.Details = details
	}
	return json.Marshal(out)
}

func stageFallback(stage string) string {
	return fmt.Sprintf("build failed stage %s", stage)
}

// findFailureFetchSrc diagnoses a failed source fetch. A bare "E: Could not
// find" section means the sources were never unpacked; the preamble then
// holds the real error.
func findFailureFetchSrc(l *Log, stage string) (*Failure, error) {
	section := l.Section("fetch source files")
	if section == nil {
		logging.Warn("expected section missing", "section", "fetch source files")
		return nil, nil
	}
	window := section.Lines
	if len(window) > 0 && strings.TrimSpace(window[0]) == "" {
		window = window[1:]
	}
	if len(window) == 1 && strings.HasPrefix(window[0], "E: Could not find ") {
		preamble := l.Preamble()
		if preamble == nil {
			return nil, nil
		}
		m, p, err := FindPreambleFailureDescription(preamble.Lines)
		if err != nil {
			return nil, err
		}
		var description string
		if p != nil {
			description = p.String()
		}
		return &Failure{
			Stage:       "unpack",
			Description: description,
			Error:       p,
			Section:     section,
			Match:       m,
		}, nil
	}
	m, p := apt.FindAptGetFailure(section.Lines)
	return &Failure{
		Stage:       stage,
		Description: stageFallback(stage),
		Error:       p,
		Section:     section,
		Match:       m,
	}, nil
}

func findFailureCreateSession(l *Log, stage string) (*Failure, error) {
	section := l.Preamble()
	if section == nil {
		return nil, nil
	}
	m, p := findCreationSessionError(section.Lines)
	phase := Phase{Kind: PhaseCreateSession}
	return &Failure{
		Stage:       stage,
		Description: stageFallback(stage),
		Error:       p,
		Phase:       &phase,
		Section:     section,
		Match:       m,
	}, nil
}

func findFailureUnpack(l *Log, stage string) (*Failure, error) {
	section := l.Section("build")
	if section != nil {
		m, p, err := FindPreambleFailureDescription(section.Lines)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return &Failure{
				Stage:       stage,
				Description: p.String(),
				Error:       p,
				Section:     section,
				Match:       m,
			}, nil
		}
	}
	return &Failure{
		Stage:       stage,
		Description: stageFallback(stage),
		Section:     section,
	}, nil
}

func findFailureBuild(l *Log, stage string) (*Failure, error) {
	var (
		section *Section
		m       match.Match
		p       problem.Problem
	)
	if section = l.Section("build"); section != nil {
		body, _ := StripBuildTail(section.Lines, DefaultLookBack)
		var err error
		m, p, err = classify.FindBuildFailureDescription(body)
		if err != nil {
			return nil, err
		}
	}
	description := stageFallback(stage)
	if p != nil {
		description = p.String()
	} else if m != nil {
		description = strings.TrimRight(m.Line(), "\n")
	}
	return &Failure{
		Stage:       stage,
		Description: description,
		Error:       p,
		Phase:       buildPhase(),
		Section:     section,
		Match:       m,
	}, nil
}

func findFailureAptGetUpdate(l *Log, stage string) (*Failure, error) {
	focus, m, p := FindAptGetUpdateFailure(l)
	description := stageFallback(stage)
	if p != nil {
		description = p.String()
	} else if m != nil {
		description = strings.TrimRight(m.Line(), "\n")
	}
	return &Failure{
		Stage:       stage,
		Description: description,
		Error:       p,
		Section:     l.Section(focus),
		Match:       m,
	}, nil
}

func findFailureArchCheck(l *Log, stage string) (*Failure, error) {
	section := l.Section("check architectures")
	var (
		m match.Match
		p problem.Problem
	)
	if section != nil {
		m, p = findArchCheckFailureDescription(section.Lines)
	}
	description := stageFallback(stage)
	if p != nil {
		description = p.String()
	}
	return &Failure{
		Stage:       stage,
		Description: description,
		Error:       p,
		Section:     section,
		Match:       m,
	}, nil
}

func findFailureCheckSpace(l *Log, stage string) (*Failure, error) {
	section := l.Section("cleanup")
	if section == nil {
		return nil, nil
	}
	m, p := findCheckSpaceFailureDescription(section.Lines)
	description := stageFallback(stage)
	if p != nil {
		description = p.String()
	}
	return &Failure{
		Stage:       stage,
		Description: description,
		Error:       p,
		Section:     section,
		Match:       m,
	}, nil
}

func findFailureInstallDeps(l *Log, stage string) (*Failure, error) {
	focus, m, p, err := findInstallDepsFailureDescription(l)
	if err != nil {
		return nil, err
	}
	description := stageFallback(stage)
	if p != nil {
		description = p.String()
	} else if m != nil {
		line := strings.TrimPrefix(m.Line(), "E: ")
		description = strings.TrimRight(line, "\n")
	}
	return &Failure{
		Stage:       stage,
		Description: description,
		Error:       p,
		Phase:       buildPhase(),
		Section:     l.Section(focus),
		Match:       m,
	}, nil
}

func findFailureAutopkgtest(l *Log, stage string) (*Failure, error) {
	var focus string
	switch stage {
	case "run-post-build-commands":
		focus = "post build commands"
	case "post-build":
		focus = "post build"
	case "autopkgtest":
		focus = "autopkgtest"
	default:
		return nil, fmt.Errorf("stage %q is not an autopkgtest stage", stage)
	}
	section := l.Section(focus)
	var (
		m           match.Match
		p           problem.Problem
		phase       *Phase
		description string
	)
	if section != nil {
		result, err := autopkgtest.FindFailureDescription(section.Lines)
		if err != nil {
			return nil, err
		}
		m, p = result.Match, result.Problem
		description = result.Description
		if description == "" && p != nil {
			description = p.String()
		}
		if result.TestName != "" {
			phase = autopkgtestPhase(result.TestName)
		}
	}
	if description == "" {
		description = stageFallback(stage)
	}
	return &Failure{
		Stage:       stage,
		Description: description,
		Error:       p,
		Phase:       phase,
		Section:     section,
		Match:       m,
	}, nil
}

// FailureFromLog localizes the failure of a complete sbuild transcript,
// dispatching on the Fail-Stage the summary recorded.
func FailureFromLog(l *Log) (*Failure, error) {
	onlyPreamble := len(l.Sections) == 1 && l.Sections[0].Title == nil
	if onlyPreamble {
		section := &l.Sections[0]
		m, p, err := FindPreambleFailureDescription(section.Lines)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return &Failure{
				Stage:       "unpack",
				Description: p.String(),
				Error:       p,
				Section:     section,
				Match:       m,
			}, nil
		}
	}

	stage := l.FailedStage()
	if stage != "" {
		var (
			failure *Failure
			err     error
		)
		switch stage {
		case "fetch-src":
			failure, err = findFailureFetchSrc(l, stage)
		case "create-session":
			failure, err = findFailureCreateSession(l, stage)
		case "unpack":
			failure, err = findFailureUnpack(l, stage)
		case "build":
			failure, err = findFailureBuild(l, stage)
		case "apt-get-update":
			failure, err = findFailureAptGetUpdate(l, stage)
		case "arch-check":
			failure, err = findFailureArchCheck(l, stage)
		case "check-space":
			failure, err = findFailureCheckSpace(l, stage)
		case "install-deps", "explain-bd-uninstallable":
			failure, err = findFailureInstallDeps(l, stage)
		case "autopkgtest", "run-post-build-commands", "post-build":
			failure, err = findFailureAutopkgtest(l, stage)
		default:
			logging.Warn("unknown failed stage", "stage", stage)
		}
		if err != nil {
			return nil, err
		}
		if failure != nil {
			return failure, nil
		}
		return &Failure{Stage: stage, Description: stageFallback(stage)}, nil
	}

	failure := &Failure{
		Stage:       stage,
		Description: "build failed",
		Phase:       &Phase{Kind: PhaseBuildEnv},
	}
	if onlyPreamble {
		section := &l.Sections[0]
		failure.Section = section
		m, p, err := FindPreambleFailureDescription(section.Lines)
		if err != nil {
			return nil, err
		}
		if p == nil {
			m, p, err = classify.FindBuildFailureDescription(section.Lines)
			if err != nil {
				return nil, err
			}
			if m != nil {
				failure.Description = strings.TrimRight(m.Line(), "\n")
			} else if bp, description, ok := findBrzBuildError(section.Lines); ok {
				failure.Description = description
				p = bp
			}
		} else {
			failure.Description = p.String()
		}
		failure.Match, failure.Error = m, p
	}
	return failure, nil
}
