package sbuild

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newhook/buildlog/internal/problem"
)

const sep = "+------------------------------------------------------------------------------+"

// banner renders the three-line section header sbuild writes.
func banner(title string) string {
	return sep + "\n| " + title + strings.Repeat(" ", 76-len(title)) + "|\n" + sep + "\n"
}

func TestParseLog(t *testing.T) {
	content := banner("") + "\n" +
		banner("Section1") + "Line1\nLine2\n\n" +
		banner("Section2") + "Line3\nLine4\n"

	log, err := ParseString(content)
	require.NoError(t, err)

	assert.Equal(t, []string{"Section1", "Section2"}, log.Titles())

	section1 := log.Section("Section1")
	require.NotNil(t, section1)
	assert.Equal(t, []string{"Line1\n", "Line2\n"}, section1.Lines)

	section2 := log.Section("Section2")
	require.NotNil(t, section2)
	assert.Equal(t, []string{"Line3\n", "Line4\n"}, section2.Lines)

	// Lookup ignores case.
	assert.Equal(t, section1, log.Section("section1"))
	assert.Nil(t, log.Section("NonExistent"))
}

func TestParseLogPreamble(t *testing.T) {
	content := "Setting up chroot\nE: something broke\n" + banner("Summary") + "Fail-Stage: create-session\n"
	log, err := ParseString(content)
	require.NoError(t, err)

	preamble := log.Preamble()
	require.NotNil(t, preamble)
	assert.Equal(t, []string{"Setting up chroot\n", "E: something broke\n"}, preamble.Lines)
	assert.Equal(t, 1, preamble.Begin)
	assert.Equal(t, "create-session", log.FailedStage())
}

func TestParseLogEmptyFinalSection(t *testing.T) {
	log, err := ParseString(banner("Build") + "some output\n" + banner("Summary"))
	require.NoError(t, err)

	require.Len(t, log.Sections, 2)
	build := log.Section("Build")
	require.NotNil(t, build)
	assert.Equal(t, []string{"some output\n"}, build.Lines)

	// The final section is emitted even when it has no content.
	last := log.Sections[1]
	require.NotNil(t, last.Title)
	assert.Equal(t, "Summary", *last.Title)
	assert.Empty(t, last.Lines)
}

func TestSectionLookup(t *testing.T) {
	title1, title2 := "Section1", "Section2"
	log := &Log{Sections: []Section{
		{Title: &title1, Begin: 1, End: 5, Lines: []string{"Line1", "Line2"}},
		{Title: &title2, Begin: 6, End: 10, Lines: []string{"Line3", "Line4"}},
	}}

	section := log.Section("Section1")
	require.NotNil(t, section)
	assert.Equal(t, []string{"Line1", "Line2"}, section.Lines)
	assert.Equal(t, []string{"Line3", "Line4"}, log.SectionLines("Section2"))
	assert.Nil(t, log.Section("NonExistent"))
	assert.Equal(t, []string{"Section1", "Section2"}, log.Titles())
}

func TestFindFailedStage(t *testing.T) {
	assert.Equal(t, "unpack", FindFailedStage([]string{"Foo: bar", "Fail-Stage: unpack", "Bar: baz"}))
	assert.Equal(t, "", FindFailedStage([]string{"Foo: bar", "Bar: baz"}))
}

func TestParseSummary(t *testing.T) {
	summary := ParseSummary([]string{
		"Package: rust-always-assert",
		"Version: 0.1.3-1",
		"Distribution: unstable",
		"Status: successful",
		"Build-Time: 3",
		"Build-Space: 41428",
		"Space: n/a",
	})
	assert.Equal(t, "rust-always-assert", summary.Package)
	assert.Equal(t, "0.1.3-1", summary.Version)
	assert.Equal(t, "unstable", summary.Distribution)
	assert.Equal(t, "successful", summary.Status)
	assert.Equal(t, 3*time.Second, summary.BuildTime)
	require.NotNil(t, summary.BuildSpace)
	assert.Equal(t, Space{Bytes: 41428, Known: true}, *summary.BuildSpace)
	require.NotNil(t, summary.Space)
	assert.False(t, summary.Space.Known)
}

func TestParseSpace(t *testing.T) {
	space, err := ParseSpace("1024")
	require.NoError(t, err)
	assert.Equal(t, Space{Bytes: 1024, Known: true}, space)

	space, err = ParseSpace("n/a")
	require.NoError(t, err)
	assert.False(t, space.Known)

	_, err = ParseSpace("lots")
	assert.Error(t, err)
}

func TestStripBuildTail(t *testing.T) {
	body, files := StripBuildTail([]string{
		"Build finished at 2023-09-16T16:47:58Z",
		strings.Repeat("-", 80),
		"Finished at 2023-09-16T16:47:58Z",
		"Build needed 00:01:12, 41428k disk space",
	}, 0)
	assert.Empty(t, body)
	assert.Empty(t, files)

	body, files = StripBuildTail([]string{
		"dh_auto_configure: error: cd obj-x86_64-linux-gnu && meson returned exit code 1",
		"cd obj-x86_64-linux-gnu && tail -v -n +0 meson-logs/meson-log.txt",
		"==> meson-logs/meson-log.txt <==",
		"Build started at 2022-07-21T04:21:47.088879",
		"Main binary: /usr/bin/python3",
		"Build finished at 2022-07-21T04:21:47Z",
		strings.Repeat("-", 80),
		"Finished at 2022-07-21T04:21:47Z",
	}, 0)
	assert.Equal(t, []string{
		"dh_auto_configure: error: cd obj-x86_64-linux-gnu && meson returned exit code 1",
		"cd obj-x86_64-linux-gnu && tail -v -n +0 meson-logs/meson-log.txt",
	}, body)
	assert.Equal(t, map[string][]string{
		"meson-logs/meson-log.txt": {
			"Build started at 2022-07-21T04:21:47.088879",
			"Main binary: /usr/bin/python3",
		},
	}, files)
}

func TestFindPreambleFailureDescription(t *testing.T) {
	t.Run("local changes", func(t *testing.T) {
		m, p, err := FindPreambleFailureDescription([]string{
			"dpkg-source: info: local changes detected, the modified files are:\n",
			" debian/rules\n",
			" configure.ac\n",
			"dpkg-source: error: aborting due to unexpected upstream changes, see /tmp/pkg.diff\n",
		})
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, 4, m.Lineno())
		assert.True(t, problem.Equal(problem.DpkgSourceLocalChanges{
			DiffFile: "/tmp/pkg.diff",
			Files:    []string{"configure.ac", "debian/rules"},
		}, p))
	})

	t.Run("unrepresentable changes", func(t *testing.T) {
		m, p, err := FindPreambleFailureDescription([]string{
			"dpkg-source: error: unrepresentable changes to source\n",
		})
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.True(t, problem.Equal(problem.DpkgSourceUnrepresentableChanges{}, p))
	})

	t.Run("patch does not apply", func(t *testing.T) {
		m, p, err := FindPreambleFailureDescription([]string{
			"Patch debian/patches/fix-ftbfs.patch does not apply (enforce with -f)\n",
		})
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.True(t, problem.Equal(problem.PatchApplicationFailed{Patch: "fix-ftbfs.patch"}, p))
	})

	t.Run("missing control file", func(t *testing.T) {
		_, p, err := FindPreambleFailureDescription([]string{
			"dpkg-source: error: cannot read pkg/debian/control: No such file or directory\n",
		})
		require.NoError(t, err)
		assert.True(t, problem.Equal(problem.MissingControlFile{Path: "pkg/debian/control"}, p))
	})

	t.Run("bad version", func(t *testing.T) {
		m, p, err := FindPreambleFailureDescription([]string{
			"dpkg-parsechangelog: warning: debian/changelog(l1): version '1.0-1blah' is invalid: version number does not start with digit\n",
			"LINE: pkg (1.0-1blah) unstable; urgency=medium\n",
			"E: Bad version unknown in pkg_1.0-1blah.dsc\n",
		})
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, 3, m.Lineno())
		assert.True(t, problem.Equal(problem.DpkgBadVersion{
			Version: "1.0-1blah",
			Reason:  "version number does not start with digit",
		}, p))
	})

	t.Run("soft dpkg-source error", func(t *testing.T) {
		m, p, err := FindPreambleFailureDescription([]string{
			"dpkg-source: error: something odd happened\n",
		})
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.True(t, problem.Equal(problem.DpkgSourcePackFailed{Reason: "something odd happened"}, p))
	})

	t.Run("no match", func(t *testing.T) {
		m, p, err := FindPreambleFailureDescription([]string{"all fine here\n"})
		require.NoError(t, err)
		assert.Nil(t, m)
		assert.Nil(t, p)
	})
}

func TestFindCreationSessionError(t *testing.T) {
	m, p := findCreationSessionError([]string{
		"E: Chroot for distribution unstable, architecture amd64 not found\n",
	})
	require.NotNil(t, m)
	assert.True(t, problem.Equal(problem.ChrootNotFound{Chroot: "unstable-amd64-sbuild"}, p))

	m, p = findCreationSessionError([]string{
		"mkdir: cannot create directory '/build': No space left on device\n",
	})
	require.NotNil(t, m)
	assert.True(t, problem.Equal(problem.NoSpaceOnDevice{}, p))

	m, p = findCreationSessionError([]string{"E: something else\n"})
	require.NotNil(t, m)
	assert.Nil(t, p)
}

func TestFindArchCheckFailureDescription(t *testing.T) {
	m, p := findArchCheckFailureDescription([]string{
		"Checking architectures\n",
		"E: dsc: amd64 not in arch list or does not match any arch wildcards: s390x mips -- skipping\n",
	})
	require.NotNil(t, m)
	assert.Equal(t, 2, m.Lineno())
	assert.True(t, problem.Equal(problem.ArchitectureNotInList{
		Arch:     "amd64",
		ArchList: []string{"s390x", "mips"},
	}, p))

	m, p = findArchCheckFailureDescription([]string{"one\n", "two\n"})
	require.NotNil(t, m)
	assert.Equal(t, 2, m.Lineno())
	assert.Nil(t, p)
}

func TestFindCheckSpaceFailureDescription(t *testing.T) {
	m, p := findCheckSpaceFailureDescription([]string{
		"E: Disk space is probably not sufficient for building.\n",
		"I: Source needs 500 KiB, while 100 KiB is free.\n",
	})
	require.NotNil(t, m)
	assert.Equal(t, 1, m.Lineno())
	assert.True(t, problem.Equal(problem.InsufficientDiskSpace{NeededKiB: 500, FreeKiB: 100}, p))

	m, p = findCheckSpaceFailureDescription([]string{
		"E: Disk space is probably not sufficient for building.\n",
	})
	require.NotNil(t, m)
	assert.Nil(t, p)

	m, p = findCheckSpaceFailureDescription([]string{"nothing here\n"})
	assert.Nil(t, m)
	assert.Nil(t, p)
}

func TestFailureFromLogCheckSpace(t *testing.T) {
	content := banner("Cleanup") +
		"E: Disk space is probably not sufficient for building.\n" +
		"I: Source needs 500 KiB, while 100 KiB is free.\n" +
		banner("Summary") +
		"Fail-Stage: check-space\n"
	log, err := ParseString(content)
	require.NoError(t, err)

	failure, err := FailureFromLog(log)
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, "check-space", failure.Stage)
	assert.True(t, problem.Equal(problem.InsufficientDiskSpace{NeededKiB: 500, FreeKiB: 100}, failure.Error))
	require.NotNil(t, failure.Section)
	assert.Equal(t, "Cleanup", *failure.Section.Title)
}

func TestFailureFromLogCreateSession(t *testing.T) {
	content := "Setting up chroot\n" +
		"E: Chroot for distribution unstable, architecture amd64 not found\n" +
		banner("Summary") +
		"Fail-Stage: create-session\n"
	log, err := ParseString(content)
	require.NoError(t, err)

	failure, err := FailureFromLog(log)
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, "create-session", failure.Stage)
	require.NotNil(t, failure.Phase)
	assert.Equal(t, PhaseCreateSession, failure.Phase.Kind)
	assert.True(t, problem.Equal(problem.ChrootNotFound{Chroot: "unstable-amd64-sbuild"}, failure.Error))
}

func TestFailureFromLogBuild(t *testing.T) {
	content := banner("Build") +
		"make[1]: Entering directory '/<<PKGBUILDDIR>>'\n" +
		"make[1]: *** No rule to make target 'all'.  Stop.\n" +
		"Build finished at 2023-09-16T16:47:58Z\n" +
		strings.Repeat("-", 80) + "\n" +
		banner("Summary") +
		"Fail-Stage: build\n"
	log, err := ParseString(content)
	require.NoError(t, err)

	failure, err := FailureFromLog(log)
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, "build", failure.Stage)
	require.NotNil(t, failure.Phase)
	assert.Equal(t, PhaseBuild, failure.Phase.Kind)
	require.NotNil(t, failure.Match)
}

func TestFailureFromLogPreambleOnly(t *testing.T) {
	content := "dpkg-source: error: unrepresentable changes to source\n"
	log, err := ParseString(content)
	require.NoError(t, err)

	failure, err := FailureFromLog(log)
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, "unpack", failure.Stage)
	assert.True(t, problem.Equal(problem.DpkgSourceUnrepresentableChanges{}, failure.Error))
}

func TestFindBrzBuildError(t *testing.T) {
	p, desc, ok := findBrzBuildError([]string{
		"Building using working tree\n",
		"brz: ERROR: Inconsistency between source format and version: version is not native, format is native.\n",
	})
	require.True(t, ok)
	assert.Equal(t, "Inconsistent source format between version and source format", desc)
	assert.True(t, problem.Equal(problem.InconsistentSourceFormat{Version: true}, p))

	p, desc, ok = findBrzBuildError([]string{
		"brz: ERROR: Unable to parse changelog: invalid version\n",
	})
	require.True(t, ok)
	assert.Equal(t, "Unable to parse changelog: invalid version", desc)
	assert.True(t, problem.Equal(problem.ChangelogParseError{Reason: "invalid version"}, p))

	p, desc, ok = findBrzBuildError([]string{
		"brz: ERROR: UScan failed to run: In directory ., downloading http://example.com/foo-1.0.tar.gz failed: 404 Not Found\n",
	})
	require.True(t, ok)
	assert.Equal(t, "UScan failed: 404 Not Found", desc)
	assert.True(t, problem.Equal(problem.UScanFailed{
		URL:    "http://example.com/foo-1.0.tar.gz",
		Reason: "404 Not Found",
	}, p))

	// Unrecognized messages keep their first line as the description;
	// indented lines only extend the message handed to the rules.
	p, desc, ok = findBrzBuildError([]string{
		"brz: ERROR: something unexpected happened\n",
		"  with more detail\n",
	})
	require.True(t, ok)
	assert.Nil(t, p)
	assert.Equal(t, "something unexpected happened", desc)

	_, _, ok = findBrzBuildError([]string{"nothing to see here\n"})
	assert.False(t, ok)
}

func TestFailureFromLogBrzError(t *testing.T) {
	log, err := ParseString("Building using working tree\n" +
		"brz: ERROR: Inconsistency between source format and version: version is not native, format is native.\n")
	require.NoError(t, err)

	failure, err := FailureFromLog(log)
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Empty(t, failure.Stage)
	assert.Equal(t, "Inconsistent source format between version and source format", failure.Description)
	assert.True(t, problem.Equal(problem.InconsistentSourceFormat{Version: true}, failure.Error))
}

func TestFailureFromLogUnknownStage(t *testing.T) {
	content := banner("Summary") + "Fail-Stage: warp-core\n"
	log, err := ParseString(content)
	require.NoError(t, err)

	failure, err := FailureFromLog(log)
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, "warp-core", failure.Stage)
	assert.Equal(t, "build failed stage warp-core", failure.Description)
	assert.Nil(t, failure.Error)
}

func TestFailureString(t *testing.T) {
	f := &Failure{Stage: "build", Description: "make exited with 2"}
	assert.Equal(t, "Failed at stage: build (make exited with 2)", f.String())
}
