package apt

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/newhook/buildlog/internal/lines"
	"github.com/newhook/buildlog/internal/problem"
)

// Cudf is a dose3 resolver report document.
type Cudf struct {
	OutputVersion      string   `yaml:"output-version"`
	NativeArchitecture string   `yaml:"native-architecture"`
	Report             []Report `yaml:"report"`
}

// Report describes the resolver's verdict for one package.
type Report struct {
	Package      string   `yaml:"package"`
	Version      string   `yaml:"version"`
	Architecture string   `yaml:"architecture"`
	Status       string   `yaml:"status"`
	Reasons      []Reason `yaml:"reasons"`
}

// StatusBroken is the report status for an uninstallable package.
const StatusBroken = "broken"

// Reason is one cause in a report; exactly one of Missing or Conflict is
// set.
type Reason struct {
	Missing  *Missing  `yaml:"missing"`
	Conflict *Conflict `yaml:"conflict"`
}

// Missing names a dependency that could not be satisfied.
type Missing struct {
	Pkg Pkg `yaml:"pkg"`
}

// Conflict names a pair of mutually exclusive packages.
type Conflict struct {
	Pkg1 Pkg `yaml:"pkg1"`
	Pkg2 Pkg `yaml:"pkg2"`
}

// Pkg is a package reference inside a reason.
type Pkg struct {
	Package         string `yaml:"package"`
	Version         string `yaml:"version"`
	Architecture    string `yaml:"architecture"`
	UnsatDependency string `yaml:"unsat-dependency"`
	UnsatConflict   string `yaml:"unsat-conflict"`
}

// FindCudfOutput locates the most recent resolver document in the window
// and parses it. The document starts at the last line beginning with
// "output-version:" and runs to the next blank line.
func FindCudfOutput(window []string) ([]int, *Cudf, error) {
	start := -1
	for i, line := range lines.EnumerateBackward(window, lines.NoLimit) {
		if strings.HasPrefix(line, "output-version:") {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, nil, nil
	}

	var offsets []int
	var output []string
	for off := start; off < len(window) && strings.TrimSpace(window[off]) != ""; off++ {
		offsets = append(offsets, off)
		output = append(output, lines.TrimEOL(window[off]))
	}

	var doc Cudf
	if err := yaml.Unmarshal([]byte(strings.Join(output, "\n")), &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing resolver output: %w", err)
	}
	return offsets, &doc, nil
}

// ErrorFromDose3Reports aggregates a resolver verdict into a problem. The
// resolver is invoked on a single synthesized dependency package, so the
// document must contain exactly one report; anything else is reported as an
// error. Missing dependencies take precedence over conflicts.
func ErrorFromDose3Reports(reports []Report) (problem.Problem, error) {
	if len(reports) != 1 {
		names := make([]string, len(reports))
		for i, report := range reports {
			names[i] = report.Package
		}
		return nil, fmt.Errorf("expected exactly one resolver report, got %d (%s)",
			len(reports), strings.Join(names, ", "))
	}
	report := reports[0]
	if report.Status != StatusBroken {
		return nil, nil
	}

	var missing, conflict []string
	for _, reason := range report.Reasons {
		if reason.Missing != nil && reason.Missing.Pkg.UnsatDependency != "" {
			missing = append(missing, reason.Missing.Pkg.UnsatDependency)
		}
		if reason.Conflict != nil && reason.Conflict.Pkg1.UnsatConflict != "" {
			conflict = append(conflict, reason.Conflict.Pkg1.UnsatConflict)
		}
	}
	if len(missing) > 0 {
		return problem.UnsatisfiedAptDependencies{Relations: strings.Join(missing, ", ")}, nil
	}
	if len(conflict) > 0 {
		return problem.UnsatisfiedAptConflicts{Relations: strings.Join(conflict, ", ")}, nil
	}
	return nil, nil
}
