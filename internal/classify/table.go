package classify

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/newhook/buildlog/internal/match"
	"github.com/newhook/buildlog/internal/problem"
)

// buildTable assembles the ordered signature table. Order matters: more
// specific signatures come before the catch-alls that would shadow them.
func buildTable() match.MatcherGroup {
	return match.MatcherGroup{
		// Shell interpreters reporting a missing executable.
		match.NewRule(`^npm ERR! sh: [0-9]+: (.*): not found`, commandMissing),
		match.NewRule(`^/bin/sh: \d+: ([^ ]+): not found`, commandMissing),
		match.NewRule(`^sh: \d+: ([^ ]+): not found`, commandMissing),
		match.NewRule(`^.*\.sh: \d+: ([^ ]+): not found`, commandMissing),
		match.NewRule(`^/bin/bash: (.*): command not found`, commandMissing),
		match.NewRule(`^bash: ([^ ]+): command not found`, commandMissing),
		match.NewRule(`^.*: line \d+: ([^ ]+): command not found`, commandMissing),
		match.NewRule(`^.*: [0-9]+: exec: (.*): not found`, commandMissing),
		match.NewRule(`^.*: [0-9]+: (.*): not found`, commandMissing),
		match.NewRule(`^/usr/bin/env: [‘'](.*)['’]: No such file or directory`, commandMissing),
		match.NewRule(`^env: ‘(.*)’: No such file or directory`, interpreterMissing),
		match.NewRule(`^/bin/bash: .*: (.*): bad interpreter: No such file or directory`, interpreterMissing),
		match.NewRule(`^make\[[0-9]+\]: (.*): Command not found`, commandMissing),
		match.NewRule(`^make: (.*): Command not found`, commandMissing),
		match.NewRule(`^xargs: (.*): No such file or directory`, commandMissing),
		match.NewRule(`(.*): exec: "(.*)": executable file not found in \$PATH`,
			func(groups []string) (problem.Problem, error) {
				return problem.MissingCommand{Command: groups[2]}, nil
			}),
		match.NewRule(`/usr/bin/eatmydata: [0-9]+: exec: (.*): not found`, commandMissing),

		// Perl.
		match.NewRule(`Can't exec "(.*)": No such file or directory at (.*) line ([0-9]+)\.`, commandMissing),
		match.NewRule(`^Can't locate (.*)\.pm in @INC \(you may need to install the (.*) module\)`,
			func(groups []string) (problem.Problem, error) {
				return problem.MissingPerlModule{
					Module:   groups[2],
					Filename: groups[1] + ".pm",
				}, nil
			}),

		// Python.
		match.NewRule(`^ModuleNotFoundError: No module named '(.*)'`,
			func(groups []string) (problem.Problem, error) {
				return problem.MissingPythonModule{Module: groups[1], PythonVersion: 3}, nil
			}),
		match.NewRule(`^E ImportError: (.*) could not be imported\.$`,
			func(groups []string) (problem.Problem, error) {
				return problem.MissingPythonModule{Module: groups[1]}, nil
			}),
		match.NewRule(`^ImportError: No module named (.*)$`,
			func(groups []string) (problem.Problem, error) {
				return problem.MissingPythonModule{Module: groups[1]}, nil
			}),

		// PHPUnit.
		match.NewRule(`Cannot open file "(.*)"\.`, fileNotFound),

		// Toolchain.
		match.NewRule(`^.*fatal error: (.+\.h|.+\.hh|.+\.hpp): No such file or directory`,
			func(groups []string) (problem.Problem, error) {
				return problem.MissingCHeader{Header: groups[1]}, nil
			}),
		match.NewRule(`configure: error: Package requirements \((.*)\) were not met:`, pkgConfigMissing),
		match.NewRule(`^No package '([^']+)' found`, pkgConfigMissing),
		match.NewRule(`cannot find package "(.*)" in any of:`,
			func(groups []string) (problem.Problem, error) {
				return problem.MissingGoPackage{Package: groups[1]}, nil
			}),

		// Generic file lookups.
		match.NewRule(`^cp: cannot stat '(.*)': No such file or directory`, fileNotFound),
		match.NewRule(`^mv: cannot stat '(.*)': No such file or directory`, fileNotFound),
		match.NewRule(`^install: cannot stat [‘'](.*)['’]: No such file or directory`, fileNotFound),
		match.NewRule(`^cat: (.*): No such file or directory`, fileNotFoundMaybeExecutable),
		match.NewRule(`Could not open '(.*)': No such file or directory at .*`, fileNotFoundMaybeExecutable),
		match.NewRule(`^fatal: not a git repository \(or any of the parent directories\): \.git`,
			func([]string) (problem.Problem, error) {
				return problem.VcsControlDirectoryNeeded{Vcs: []string{"git"}}, nil
			}),

		// Builder resource exhaustion.
		match.NewRule(`^E: Build killed with signal TERM after ([0-9]+) minutes of inactivity$`,
			func(groups []string) (problem.Problem, error) {
				minutes, err := strconv.Atoi(groups[1])
				if err != nil {
					return nil, err
				}
				return problem.InactiveKilled{Minutes: minutes}, nil
			}),
		match.NewRule(`.*(No space left on device).*`,
			func([]string) (problem.Problem, error) {
				return problem.NoSpaceOnDevice{}, nil
			}),
	}
}

var (
	secondaryOnce sync.Once
	secondary     []*regexp.Regexp
)

// secondaryPatterns returns the vague failure signatures. Matches from
// these locate the failure without diagnosing it.
func secondaryPatterns() []*regexp.Regexp {
	secondaryOnce.Do(func() {
		for _, pattern := range []string{
			`E: pybuild pybuild:[0-9]+: test: plugin [^ ]+ failed with: exit code=[0-9]+: .*`,
			`[^:]+: error: (.*)`,
			`[^:]+:[0-9]+: error: (.*)`,
			`[^:]+:[0-9]+:[0-9]+: error: (.*)`,
			`error TS[0-9]+: (.*)`,
			`mount: .*: mount failed: Operation not permitted\.`,
			`  [0-9]+:[0-9]+\s+error\s+.+`,
			`fontmake: Error: In '(.*)': (.*)`,
			`Error \([0-9]+\) occurred during .*`,
			`Segmentation fault`,
			`make\[[0-9]+\]: \*\*\* No targets specified and no makefile found\.  Stop\.`,
			`make\[[0-9]+\]: \*\*\* No rule to make target '.*'\.  Stop\.`,
			`make\[[0-9]+\]: \*\*\* \[.*\] Error [0-9]+`,
			`make\[[0-9]+\]: \*\*\* \[.*\] Aborted`,
			`make: \*\*\* \[.*\] Error [0-9]+`,
			`exit code=[0-9]+: .*`,
			`chmod: cannot access '.*': .*`,
			`dh_autoreconf: autoreconf .* returned exit code [0-9]+`,
			`.*:[0-9]+: \*\*\* missing separator\.  Stop\.`,
			`[0-9]+ tests: [0-9]+ ok, [0-9]+ failure\(s\), [0-9]+ test\(s\) skipped`,
			`\*\*Error:\*\* (.*)`,
			`^Error: (.*)`,
			`Failed [0-9]+ tests? out of [0-9]+, [0-9.]+% okay.`,
			`Failed [0-9]+/[0-9]+ test programs. [0-9]+/[0-9]+ subtests failed.`,
			`Original error was: (.*)`,
			`^FAILED \(.*\)`,
			`FAILED .*`,
			`^(E  +)?(SyntaxError|TypeError|ValueError|AttributeError|NameError|django\.core\.exceptions\..*|RuntimeError|subprocess\.CalledProcessError|testtools\.matchers\._impl\.MismatchError|PermissionError|IndexError|AssertionError|IOError|ImportError|SerialException|OSError|redis\.exceptions\.ConnectionError|builtins\.OverflowError|ArgumentError|SSLError|KeyError|Exception|UnicodeDecodeError|UnicodeEncodeError): .*`,
			`error\[E[0-9]+\]: .*`,
			`^E   DeprecationWarning: .*`,
			`^E       fixture '(.*)' not found`,
			`[0-9]+ runs, [0-9]+ assertions, [0-9]+ failures, [0-9]+ errors, [0-9]+ skips`,
			`# failed [0-9]+ of [0-9]+ tests`,
			`(.*)\.py:[0-9]+: AssertionError`,
			`  Failed tests:  [0-9-]+`,
			`Failed (.*\.t): output changed`,
			`no packages to test`,
			"FAIL\t(.*)\t[0-9.]+s",
			`/usr/bin/ld: cannot open output file (.*): No such file or directory`,
			`configure: error: (.+)`,
			`config.status: error: (.*)`,
			`E: Build killed with signal TERM after ([0-9]+) minutes of inactivity`,
			`    \[javac\] [^: ]+:[0-9]+: error: (.*)`,
			`cp: target '(.*)' is not a directory`,
			`cp: cannot create regular file '(.*)': No such file or directory`,
			`ln: failed to create symbolic link '(.*)': File exists`,
			`ln: failed to create symbolic link '(.*)': No such file or directory`,
			`ln: failed to create symbolic link '(.*)': Permission denied`,
			`mkdir: cannot create directory [‘'](.*)['’]: No such file or directory`,
			`mkdir: cannot create directory [‘'](.*)['’]: File exists`,
			`mkdir: missing operand`,
			`Fatal error: .*`,
			`Fatal Error: (.*)`,
			`ERROR: Test "(.*)" failed. Exiting.`,
			`ERROR: test\(s\) failed in (.*)`,
			`./configure: line [0-9]+: syntax error near unexpected token \x60.*'`,
			`Execution of (.*) aborted due to compilation errors.`,
			`ninja: build stopped: subcommand failed.`,
			`not ok [0-9]+ .*`,
			`Errors while running CTest`,
			`dh_auto_install: error: .*`,
			`dh_quilt_patch: error: (.*)`,
			`dh.*: Aborting due to earlier error`,
			`dh.*: unknown option or error during option parsing; aborting`,
			`dpkg-gencontrol: error: (.*)`,
			`.*:[0-9]+:[0-9]+: (error|ERROR): (.*)`,
			`.*[.]+FAILED .*`,
			`FAIL: (.*)`,
			`FAIL!  : (.*)`,
			`\s*FAIL (.*) \(.*\)`,
			`FAIL\s+(.*) \[.*\] ?`,
			`([0-9]+)% tests passed, ([0-9]+) tests failed out of ([0-9]+)`,
			`TEST FAILURE`,
			`Project ERROR: .*`,
			`! LaTeX Error: .*`,
			`! Undefined control sequence\.`,
			`! Emergency stop\.`,
			`\[!\] Error: Unexpected token`,
			`tar: .*: Cannot stat: No such file or directory`,
			`tar: .*: Cannot open: No such file or directory`,
			`ERROR: file not found: (.*)`,
			`/usr/bin/msgfmt: found [0-9]+ fatal errors`,
			`Cannot connect to the Docker daemon at unix:///var/run/docker.sock. Is the docker daemon running\?`,
			`dh_makeshlibs: failing due to earlier errors`,
			`\(.*:[0-9]+\): [a-zA-Z0-9]+-CRITICAL \*\*: [0-9:.]+: .*`,
			`[^:]+: line [0-9]+:\s+[0-9]+ Segmentation fault.*`,
			`Killed`,
		} {
			secondary = append(secondary, regexp.MustCompile(pattern))
		}
	})
	return secondary
}
