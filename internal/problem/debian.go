package problem

import (
	"fmt"
	"strings"
)

// DpkgError is a generic dpkg failure.
type DpkgError struct {
	Msg string `json:"msg"`
}

func (p DpkgError) Kind() string   { return "dpkg-error" }
func (p DpkgError) Details() any   { return p }
func (p DpkgError) String() string { return fmt.Sprintf("Dpkg error: %s", p.Msg) }

// AptUpdateError indicates apt-get update failed without a more specific
// diagnosis.
type AptUpdateError struct{}

func (AptUpdateError) Kind() string   { return "apt-update-error" }
func (AptUpdateError) Details() any   { return struct{}{} }
func (AptUpdateError) String() string { return "Apt update error" }

// AptFetchFailure indicates apt could not download an archive. URL is empty
// when the failing line did not name one.
type AptFetchFailure struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

func (p AptFetchFailure) Kind() string { return "apt-fetch-failure" }
func (p AptFetchFailure) Details() any { return p }
func (p AptFetchFailure) String() string {
	if p.URL == "" {
		return fmt.Sprintf("Apt file fetch failed: %s", p.Error)
	}
	return fmt.Sprintf("Apt file fetch of %s failed: %s", p.URL, p.Error)
}

// AptMissingReleaseFile indicates a repository without a Release file.
type AptMissingReleaseFile struct {
	URL string `json:"url"`
}

func (p AptMissingReleaseFile) Kind() string { return "apt-missing-release-file" }
func (p AptMissingReleaseFile) Details() any { return p }
func (p AptMissingReleaseFile) String() string {
	return fmt.Sprintf("Missing release file: %s", p.URL)
}

// AptPackageUnknown indicates apt could not locate a requested package.
type AptPackageUnknown struct {
	Package string `json:"package"`
}

func (p AptPackageUnknown) Kind() string { return "apt-package-unknown" }
func (p AptPackageUnknown) Details() any { return p }
func (p AptPackageUnknown) String() string {
	return fmt.Sprintf("Apt package unknown: %s", p.Package)
}

// AptBrokenPackages indicates apt refused to proceed due to broken
// packages. Broken is nil when the individual packages were not recovered
// from the surrounding lines.
type AptBrokenPackages struct {
	Description string   `json:"description"`
	Broken      []string `json:"broken"`
}

func (p AptBrokenPackages) Kind() string { return "apt-broken-packages" }
func (p AptBrokenPackages) Details() any { return p }
func (p AptBrokenPackages) String() string {
	return fmt.Sprintf("Broken apt packages: %s", p.Description)
}

// UnsatisfiedAptDependencies aggregates the missing dependency relations a
// resolver reported.
type UnsatisfiedAptDependencies struct {
	Relations string `json:"relations"`
}

func (p UnsatisfiedAptDependencies) Kind() string { return "unsatisfied-apt-dependencies" }
func (p UnsatisfiedAptDependencies) Details() any { return p }
func (p UnsatisfiedAptDependencies) String() string {
	return fmt.Sprintf("Unsatisfied apt dependencies: %s", p.Relations)
}

// UnsatisfiedAptConflicts aggregates the conflicting relations a resolver
// reported.
type UnsatisfiedAptConflicts struct {
	Relations string `json:"relations"`
}

func (p UnsatisfiedAptConflicts) Kind() string { return "unsatisfied-apt-conflicts" }
func (p UnsatisfiedAptConflicts) Details() any { return p }
func (p UnsatisfiedAptConflicts) String() string {
	return fmt.Sprintf("Unsatisfied apt conflicts: %s", p.Relations)
}

// InsufficientDiskSpace reports the sbuild pre-build space check failing.
type InsufficientDiskSpace struct {
	NeededKiB uint64 `json:"needed"`
	FreeKiB   uint64 `json:"free"`
}

func (p InsufficientDiskSpace) Kind() string { return "insufficient-disk-space" }
func (p InsufficientDiskSpace) Details() any { return p }
func (p InsufficientDiskSpace) String() string {
	return fmt.Sprintf("Insufficient disk space for build. Need: %d KiB, free: %d KiB", p.NeededKiB, p.FreeKiB)
}

// ArchitectureNotInList indicates the package does not build on the
// requested architecture.
type ArchitectureNotInList struct {
	Arch     string   `json:"arch"`
	ArchList []string `json:"arch_list"`
}

func (p ArchitectureNotInList) Kind() string { return "arch-not-in-list" }
func (p ArchitectureNotInList) Details() any { return p }
func (p ArchitectureNotInList) String() string {
	return fmt.Sprintf("Architecture %s not a build arch (%s)", p.Arch, strings.Join(p.ArchList, ", "))
}

// MissingControlFile indicates debian/control is absent from the source.
type MissingControlFile struct {
	Path string `json:"path"`
}

func (p MissingControlFile) Kind() string { return "missing-control-file" }
func (p MissingControlFile) Details() any { return p }
func (p MissingControlFile) String() string {
	return fmt.Sprintf("Missing control file: %s", p.Path)
}

// SourceFormatUnsupported indicates dpkg-source rejected the source format.
type SourceFormatUnsupported struct {
	Format string `json:"format"`
}

func (p SourceFormatUnsupported) Kind() string { return "source-format-unsupported" }
func (p SourceFormatUnsupported) Details() any { return p }
func (p SourceFormatUnsupported) String() string {
	return fmt.Sprintf("Source format %s unsupported", p.Format)
}

// SourceFormatUnbuildable indicates the source format cannot be built as
// requested.
type SourceFormatUnbuildable struct {
	Format string `json:"format"`
	Reason string `json:"reason"`
}

func (p SourceFormatUnbuildable) Kind() string { return "source-format-unbuildable" }
func (p SourceFormatUnbuildable) Details() any { return p }
func (p SourceFormatUnbuildable) String() string {
	return fmt.Sprintf("Source format %s unbuildable: %s", p.Format, p.Reason)
}

// DpkgBadVersion indicates dpkg rejected the package version string.
type DpkgBadVersion struct {
	Version string `json:"version"`
	Reason  string `json:"reason"`
}

func (p DpkgBadVersion) Kind() string { return "dpkg-bad-version" }
func (p DpkgBadVersion) Details() any { return p }
func (p DpkgBadVersion) String() string {
	if p.Reason != "" {
		return fmt.Sprintf("Version (%s) is invalid: %s", p.Version, p.Reason)
	}
	return fmt.Sprintf("Version (%s) is invalid", p.Version)
}

// DpkgSourcePackFailed indicates dpkg-source failed while packing the
// source tree.
type DpkgSourcePackFailed struct {
	Reason string `json:"reason"`
}

func (p DpkgSourcePackFailed) Kind() string { return "dpkg-source-pack-failed" }
func (p DpkgSourcePackFailed) Details() any { return p }
func (p DpkgSourcePackFailed) String() string {
	if p.Reason != "" {
		return fmt.Sprintf("Packing source directory failed: %s", p.Reason)
	}
	return "Packing source directory failed"
}

// DpkgSourceLocalChanges indicates unexpected upstream changes in the
// working tree.
type DpkgSourceLocalChanges struct {
	DiffFile string   `json:"diff_file,omitempty"`
	Files    []string `json:"files,omitempty"`
}

func (p DpkgSourceLocalChanges) Kind() string { return "unexpected-local-upstream-changes" }
func (p DpkgSourceLocalChanges) Details() any { return p }
func (p DpkgSourceLocalChanges) String() string {
	if len(p.Files) > 0 {
		return fmt.Sprintf("Tree has local changes: %v", p.Files)
	}
	return "Tree has local changes"
}

// DpkgSourceUnrepresentableChanges indicates changes the source format
// cannot express.
type DpkgSourceUnrepresentableChanges struct{}

func (DpkgSourceUnrepresentableChanges) Kind() string { return "unrepresentable-local-changes" }
func (DpkgSourceUnrepresentableChanges) Details() any { return struct{}{} }
func (DpkgSourceUnrepresentableChanges) String() string {
	return "Tree has unrepresentable local changes."
}

// DpkgUnwantedBinaryFiles indicates binary files in the debian diff.
type DpkgUnwantedBinaryFiles struct{}

func (DpkgUnwantedBinaryFiles) Kind() string   { return "unwanted-binary-files" }
func (DpkgUnwantedBinaryFiles) Details() any   { return struct{}{} }
func (DpkgUnwantedBinaryFiles) String() string { return "Tree has unwanted binary files." }

// DpkgBinaryFileChanged indicates a binary file changed in the diff.
type DpkgBinaryFileChanged struct {
	Files []string `json:"files"`
}

func (p DpkgBinaryFileChanged) Kind() string { return "binary-file-changed" }
func (p DpkgBinaryFileChanged) Details() any { return p }
func (p DpkgBinaryFileChanged) String() string {
	return fmt.Sprintf("Binary file changed: %v", p.Files)
}

// PatchFileMissing indicates a patch named in debian/patches/series is
// absent from the tree.
type PatchFileMissing struct {
	Path string `json:"path"`
}

func (p PatchFileMissing) Kind() string   { return "patch-file-missing" }
func (p PatchFileMissing) Details() any   { return p }
func (p PatchFileMissing) String() string { return fmt.Sprintf("Patch file missing: %s", p.Path) }

// PristineTarTreeMissing indicates pristine-tar could not find the treeish
// it was asked to check out.
type PristineTarTreeMissing struct {
	Treeish string `json:"treeish"`
}

func (p PristineTarTreeMissing) Kind() string { return "pristine-tar-missing-tree" }
func (p PristineTarTreeMissing) Details() any { return p }
func (p PristineTarTreeMissing) String() string {
	return fmt.Sprintf("Pristine-tar tree missing: %s", p.Treeish)
}

// MissingRevision indicates the version control repository lacks a revision
// the build needed.
type MissingRevision struct {
	Revision string `json:"revision"`
}

func (p MissingRevision) Kind() string   { return "missing-revision" }
func (p MissingRevision) Details() any   { return p }
func (p MissingRevision) String() string { return fmt.Sprintf("Missing revision: %s", p.Revision) }

// PatchApplicationFailed indicates a quilt patch did not apply.
type PatchApplicationFailed struct {
	Patch string `json:"patch"`
}

func (p PatchApplicationFailed) Kind() string { return "patch-application-failed" }
func (p PatchApplicationFailed) Details() any { return p }
func (p PatchApplicationFailed) String() string {
	return fmt.Sprintf("Patch application failed: %s", p.Patch)
}

// UnableToFindUpstreamTarball indicates the packaging tools could not fetch
// the upstream tarball a package version needs.
type UnableToFindUpstreamTarball struct {
	Package string `json:"package"`
	Version string `json:"version"`
}

func (p UnableToFindUpstreamTarball) Kind() string { return "unable-to-find-upstream-tarball" }
func (p UnableToFindUpstreamTarball) Details() any { return p }
func (p UnableToFindUpstreamTarball) String() string {
	return fmt.Sprintf("Unable to find upstream tarball for %s, version %s", p.Package, p.Version)
}

// InconsistentSourceFormat indicates the package version and its
// debian/source/format disagree about nativeness. Each field is true when
// that side is not native.
type InconsistentSourceFormat struct {
	Version      bool `json:"version"`
	SourceFormat bool `json:"source_format"`
}

func (p InconsistentSourceFormat) Kind() string { return "inconsistent-source-format" }
func (p InconsistentSourceFormat) Details() any { return p }
func (p InconsistentSourceFormat) String() string {
	return "Inconsistent source format between version and source format"
}

// UScanError reports uscan failing for a reason with no more specific
// diagnosis.
type UScanError struct {
	Reason string `json:"reason"`
}

func (p UScanError) Kind() string   { return "uscan-error" }
func (p UScanError) Details() any   { return p }
func (p UScanError) String() string { return fmt.Sprintf("UScan error: %s", p.Reason) }

// UScanFailed reports uscan failing to download a watched URL.
type UScanFailed struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

func (p UScanFailed) Kind() string   { return "uscan-failed" }
func (p UScanFailed) Details() any   { return p }
func (p UScanFailed) String() string { return fmt.Sprintf("UScan failed: %s", p.Reason) }

// ChangelogParseError indicates debian/changelog could not be parsed.
type ChangelogParseError struct {
	Reason string `json:"reason"`
}

func (p ChangelogParseError) Kind() string { return "changelog-parse-error" }
func (p ChangelogParseError) Details() any { return p }
func (p ChangelogParseError) String() string {
	return fmt.Sprintf("Changelog parse error: %s", p.Reason)
}
