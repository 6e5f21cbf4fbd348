package problem

import (
	"fmt"
	"strings"

	"github.com/newhook/buildlog/internal/logging"
)

// AutopkgtestTimedOut indicates a test exceeded its time budget.
type AutopkgtestTimedOut struct{}

func (AutopkgtestTimedOut) Kind() string   { return "timed-out" }
func (AutopkgtestTimedOut) Details() any   { return struct{}{} }
func (AutopkgtestTimedOut) String() string { return "Timed out" }

// XDGRunTimeNotSet indicates a test failed because XDG_RUNTIME_DIR was
// unset, a common stderr-only failure for GUI test suites.
type XDGRunTimeNotSet struct{}

func (XDGRunTimeNotSet) Kind() string   { return "xdg-runtime-dir-not-set" }
func (XDGRunTimeNotSet) Details() any   { return struct{}{} }
func (XDGRunTimeNotSet) String() string { return "XDG_RUNTIME_DIR is not set" }

// AutopkgtestTestbedFailure is a generic testbed failure with the runner's
// reason text.
type AutopkgtestTestbedFailure struct {
	Reason string `json:"reason"`
}

func (p AutopkgtestTestbedFailure) Kind() string { return "testbed-failure" }
func (p AutopkgtestTestbedFailure) Details() any { return p }
func (p AutopkgtestTestbedFailure) String() string {
	return fmt.Sprintf("Testbed failure: %s", p.Reason)
}

// AutopkgtestDepChrootDisappeared indicates the dependency-resolution
// chroot vanished mid-run.
type AutopkgtestDepChrootDisappeared struct{}

func (AutopkgtestDepChrootDisappeared) Kind() string { return "testbed-chroot-disappeared" }
func (AutopkgtestDepChrootDisappeared) Details() any { return struct{}{} }
func (AutopkgtestDepChrootDisappeared) String() string {
	return "Chroot for dependency resolution disappeared"
}

// AutopkgtestErroneousPackage indicates the runner rejected the package
// under test.
type AutopkgtestErroneousPackage struct {
	Reason string `json:"reason"`
}

func (p AutopkgtestErroneousPackage) Kind() string { return "erroneous-package" }
func (p AutopkgtestErroneousPackage) Details() any { return p }
func (p AutopkgtestErroneousPackage) String() string {
	return fmt.Sprintf("Erroneous package: %s", p.Reason)
}

// AutopkgtestStderrFailure indicates a test failed only because it wrote
// to stderr.
type AutopkgtestStderrFailure struct {
	StderrLine string `json:"stderr_line"`
}

func (p AutopkgtestStderrFailure) Kind() string { return "stderr-output" }
func (p AutopkgtestStderrFailure) Details() any { return p }
func (p AutopkgtestStderrFailure) String() string {
	return fmt.Sprintf("output on stderr: %s", p.StderrLine)
}

// BlameEntry is one kind:value token from an autopkgtest blame line. Kind
// is empty when the token carried no prefix.
type BlameEntry struct {
	Kind string `json:"kind"`
	Arg  string `json:"arg"`
}

// AutopkgtestDepsUnsatisfiable indicates the runner could not install the
// test dependencies, with the blamed artifacts.
type AutopkgtestDepsUnsatisfiable struct {
	Args []BlameEntry `json:"args"`
}

// NewDepsUnsatisfiableFromBlameLine parses a "blame: ..." line into its
// space-separated kind:value tokens. Unknown kinds are logged but kept.
func NewDepsUnsatisfiableFromBlameLine(line string) AutopkgtestDepsUnsatisfiable {
	var args []BlameEntry
	rest := strings.TrimPrefix(line, "blame: ")
	for _, entry := range strings.Fields(rest) {
		kind, arg, found := strings.Cut(entry, ":")
		if !found {
			args = append(args, BlameEntry{Arg: entry})
			continue
		}
		switch kind {
		case "deb", "arg", "dsc":
		default:
			logging.Warn("unknown entry on badpkg line", "entry", kind)
		}
		args = append(args, BlameEntry{Kind: kind, Arg: arg})
	}
	return AutopkgtestDepsUnsatisfiable{Args: args}
}

func (p AutopkgtestDepsUnsatisfiable) Kind() string { return "badpkg" }
func (p AutopkgtestDepsUnsatisfiable) Details() any { return p }
func (p AutopkgtestDepsUnsatisfiable) String() string {
	return fmt.Sprintf("Dependencies unsatisfiable: %v", p.Args)
}

// AutopkgtestTestbedSetupFailure indicates the testbed could not be brought
// up before any test ran.
type AutopkgtestTestbedSetupFailure struct {
	Command    string `json:"command"`
	ExitStatus int    `json:"exit_status"`
	Error      string `json:"error"`
}

func (p AutopkgtestTestbedSetupFailure) Kind() string { return "testbed-setup-failure" }
func (p AutopkgtestTestbedSetupFailure) Details() any { return p }
func (p AutopkgtestTestbedSetupFailure) String() string {
	return fmt.Sprintf("Error setting up testbed %q failed (%d): %s", p.Command, p.ExitStatus, p.Error)
}
