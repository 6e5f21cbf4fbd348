package classify

import (
	"fmt"
	"testing"

	"github.com/newhook/buildlog/internal/problem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertDiagnosis(t *testing.T, line string, want problem.Problem) {
	t.Helper()
	window := []string{"random preamble", line}
	m, p, err := FindBuildFailureDescription(window)
	require.NoError(t, err)
	require.NotNil(t, m, "no match for %q", line)
	assert.Equal(t, 1, m.Offset())
	assert.Equal(t, line, m.Line())
	if want == nil {
		assert.Nil(t, p)
	} else {
		require.NotNil(t, p)
		assert.True(t, problem.Equal(want, p), "got %v, want %v", p, want)
	}
}

func TestFindBuildFailureDescription_MissingCommand(t *testing.T) {
	assertDiagnosis(t, "/tmp/bla: 12: ss: not found", problem.MissingCommand{Command: "ss"})
	assertDiagnosis(t, "/bin/sh: 1: xvfb-run: not found", problem.MissingCommand{Command: "xvfb-run"})
	assertDiagnosis(t, "make[1]: pytest: Command not found", problem.MissingCommand{Command: "pytest"})
	assertDiagnosis(t,
		`Can't exec "uptime": No such file or directory at /usr/lib/nagios/plugins/check_uptime line 529.`,
		problem.MissingCommand{Command: "uptime"})
}

func TestFindBuildFailureDescription_MissingFile(t *testing.T) {
	assertDiagnosis(t, `Cannot open file "/usr/share/php/Pimple/autoload.php".`,
		problem.MissingFile{Path: "/usr/share/php/Pimple/autoload.php"})
	assertDiagnosis(t, "cp: cannot stat '/etc/missing.conf': No such file or directory",
		problem.MissingFile{Path: "/etc/missing.conf"})
}

func TestFindBuildFailureDescription_BuildTreePaths(t *testing.T) {
	// Paths inside the build tree are the package's own problem, not the host's.
	assertDiagnosis(t, "cp: cannot stat '/<<PKGBUILDDIR>>/missing': No such file or directory",
		problem.MissingBuildFile{Filename: "missing"})
}

func TestFindBuildFailureDescription_RelativeCommandsIgnored(t *testing.T) {
	window := []string{"sh: 1: ./setup.sh: not found"}
	m, p, err := FindBuildFailureDescription(window)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Nil(t, p)
}

func TestFindBuildFailureDescription_Python(t *testing.T) {
	assertDiagnosis(t, "ModuleNotFoundError: No module named 'pytest'",
		problem.MissingPythonModule{Module: "pytest", PythonVersion: 3})
}

func TestFindBuildFailureDescription_Inactivity(t *testing.T) {
	assertDiagnosis(t, "E: Build killed with signal TERM after 150 minutes of inactivity",
		problem.InactiveKilled{Minutes: 150})
}

func TestFindBuildFailureDescription_NoMatch(t *testing.T) {
	m, p, err := FindBuildFailureDescription([]string{"everything is fine", "done"})
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Nil(t, p)
}

func TestFindBuildFailureDescription_ScanBound(t *testing.T) {
	window := []string{"/bin/sh: 1: early-tool: not found"}
	for i := 0; i < Offset; i++ {
		window = append(window, fmt.Sprintf("progress line %d", i))
	}
	// The failing line is outside the 250-line tail.
	m, _, err := FindBuildFailureDescription(window)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestFindBuildFailureDescription_MostRecentWins(t *testing.T) {
	window := []string{
		"/bin/sh: 1: older: not found",
		"some output",
		"/bin/sh: 1: newer: not found",
	}
	_, p, err := FindBuildFailureDescription(window)
	require.NoError(t, err)
	assert.True(t, problem.Equal(problem.MissingCommand{Command: "newer"}, p))
}

func TestFindSecondaryBuildFailure(t *testing.T) {
	window := []string{
		"ordinary output",
		"builtins.OverflowError: mktime argument out of range",
		"Ran 12377 tests in 143.490s",
	}
	m := FindSecondaryBuildFailure(window, 250)
	require.NotNil(t, m)
	assert.Equal(t, 1, m.Offset())
	assert.Equal(t, "builtins.OverflowError: mktime argument out of range", m.Line())

	assert.Nil(t, FindSecondaryBuildFailure([]string{"all good"}, 250))
}

func TestFindSecondaryBuildFailure_TailBound(t *testing.T) {
	window := []string{"make: *** [all] Error 2"}
	for i := 0; i < 300; i++ {
		window = append(window, "filler")
	}
	assert.Nil(t, FindSecondaryBuildFailure(window, 250))

	m := FindSecondaryBuildFailure(window, len(window))
	require.NotNil(t, m)
	assert.Equal(t, 0, m.Offset())
}
