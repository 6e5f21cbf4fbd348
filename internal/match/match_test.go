package match

import (
	"encoding/json"
	"testing"

	"github.com/newhook/buildlog/internal/problem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleLineMatch(t *testing.T) {
	window := []string{"first", "second", "third"}
	m := SingleFromLines(window, 1, "direct match")

	assert.Equal(t, "second", m.Line())
	assert.Equal(t, 1, m.Offset())
	assert.Equal(t, 2, m.Lineno())
	assert.Equal(t, []int{1}, m.Offsets())
	assert.Equal(t, []int{2}, m.Linenos())
	assert.Equal(t, []string{"second"}, m.Lines())
	assert.Equal(t, Origin("direct match"), m.Origin())
}

func TestMultiLineMatchAnchor(t *testing.T) {
	m := NewMultiLineMatch("direct regex", []int{7, 3, 9}, []string{"a", "b", "c"})

	// The anchor is the last element, not the largest offset.
	assert.Equal(t, 9, m.Offset())
	assert.Equal(t, 10, m.Lineno())
	assert.Equal(t, "c", m.Line())
	assert.Equal(t, []int{8, 4, 10}, m.Linenos())
}

func TestMultiLineMatchInvariants(t *testing.T) {
	assert.Panics(t, func() {
		NewMultiLineMatch("x", nil, nil)
	})
	assert.Panics(t, func() {
		NewMultiLineMatch("x", []int{1, 2}, []string{"only"})
	})
}

func TestAddOffsetAssociative(t *testing.T) {
	single := Match(NewSingleLineMatch("o", 4, "line"))
	multi := Match(NewMultiLineMatch("o", []int{1, 5}, []string{"a", "b"}))

	for _, m := range []Match{single, multi} {
		chained := m.AddOffset(3).AddOffset(11)
		direct := m.AddOffset(14)
		assert.Equal(t, direct.Offsets(), chained.Offsets())
		assert.Equal(t, direct.Lines(), chained.Lines())
		assert.Equal(t, direct.Origin(), chained.Origin())
	}
}

func TestRender(t *testing.T) {
	m := NewSingleLineMatch("direct regex (E: .*)", 9, "E: Broken packages")
	raw, err := json.Marshal(Render(m))
	require.NoError(t, err)
	assert.JSONEq(t, `{"lineno": 10, "line": "E: Broken packages", "origin": "direct regex (E: .*)"}`, string(raw))
}

func TestRuleExtractFromLine(t *testing.T) {
	hard := NewRule(`^E: Unable to locate package (.*)`, func(groups []string) (problem.Problem, error) {
		return problem.AptPackageUnknown{Package: groups[1]}, nil
	})

	matched, p, err := hard.ExtractFromLine("E: Unable to locate package foo")
	require.NoError(t, err)
	assert.True(t, matched)
	require.NotNil(t, p)
	assert.Equal(t, "apt-package-unknown", p.Kind())

	matched, p, err = hard.ExtractFromLine("I: nothing to see")
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Nil(t, p)

	// Trailing newlines are tolerated.
	matched, _, err = hard.ExtractFromLine("E: Unable to locate package foo\n")
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestRuleSoftMatch(t *testing.T) {
	soft := NewRule(`^E: `, nil)
	matched, p, err := soft.ExtractFromLine("E: something broke")
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Nil(t, p)
}

func TestMatcherGroupFirstWins(t *testing.T) {
	group := MatcherGroup{
		NewRule(`^E: first (.*)`, func(groups []string) (problem.Problem, error) {
			return problem.DpkgError{Msg: "first " + groups[1]}, nil
		}),
		NewRule(`^E: (.*)`, func(groups []string) (problem.Problem, error) {
			return problem.DpkgError{Msg: groups[1]}, nil
		}),
	}

	window := []string{"E: first rule"}
	m, p, err := group.ExtractFromLines(window, 0)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, Origin("direct regex (^E: first (.*))"), m.Origin())
	assert.True(t, problem.Equal(problem.DpkgError{Msg: "first rule"}, p))

	m, p, err = group.ExtractFromLines([]string{"unrelated"}, 0)
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Nil(t, p)
}

func TestProblemEquality(t *testing.T) {
	a := problem.AptFetchFailure{URL: "http://x", Error: "404"}
	b := problem.AptFetchFailure{URL: "http://x", Error: "404"}
	c := problem.AptFetchFailure{URL: "http://y", Error: "404"}

	assert.True(t, problem.Equal(a, b))
	assert.False(t, problem.Equal(a, c))
	assert.False(t, problem.Equal(a, problem.NoSpaceOnDevice{}))
}
