package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newhook/buildlog/internal/match"
	"github.com/newhook/buildlog/internal/problem"
)

func TestDiagnosis(t *testing.T) {
	window := []string{
		"checking for gcc... yes\n",
		"checking for cmake... no\n",
		"configure: error: cmake is required\n",
		"make: *** [configure] Error 1\n",
	}
	m := match.SingleFromLines(window, 2, "direct regex")
	p := problem.MissingCommand{Command: "cmake"}

	out := Renderer{Context: 1, Width: 100}.Diagnosis(window, m, p)

	assert.Contains(t, out, "Issue found at line 3:")
	assert.Contains(t, out, "> 3 configure: error: cmake is required")
	assert.Contains(t, out, "   2 checking for cmake... no")
	assert.Contains(t, out, "   4 make: *** [configure] Error 1")
	assert.NotContains(t, out, "checking for gcc")
	assert.Contains(t, out, "command-missing")
	// No ANSI escapes without color.
	assert.NotContains(t, out, "\x1b[")
}

func TestDiagnosisNoMatch(t *testing.T) {
	out := Renderer{}.Diagnosis([]string{"all good\n"}, nil, nil)
	assert.Contains(t, out, "No known failure signature found.")
}

func TestDiagnosisWrapsDescription(t *testing.T) {
	window := []string{"E: broken\n"}
	m := match.SingleFromLines(window, 0, "direct regex")
	p := problem.AptFetchFailure{
		URL:   "http://deb.example.org/very/long/path/to/a/package/archive/pool/main",
		Error: strings.Repeat("connection timed out and retried ", 5),
	}

	out := Renderer{Width: 40}.Diagnosis(window, m, p)
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len(line), 80)
	}
}

func TestJSON(t *testing.T) {
	window := []string{"configure: error: cmake is required\n"}
	m := match.SingleFromLines(window, 0, "direct regex")
	p := problem.MissingCommand{Command: "cmake"}

	raw, err := JSON(m, p)
	require.NoError(t, err)

	var env struct {
		Match struct {
			Lineno int    `json:"lineno"`
			Line   string `json:"line"`
			Origin string `json:"origin"`
		} `json:"match"`
		Problem struct {
			Kind    string          `json:"kind"`
			Details json.RawMessage `json:"details"`
		} `json:"problem"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, 1, env.Match.Lineno)
	assert.Equal(t, "configure: error: cmake is required", env.Match.Line)
	assert.Equal(t, "direct regex", env.Match.Origin)
	assert.Equal(t, "command-missing", env.Problem.Kind)
	assert.JSONEq(t, `{"command": "cmake"}`, string(env.Problem.Details))
}

func TestJSONNoMatch(t *testing.T) {
	raw, err := JSON(nil, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}
