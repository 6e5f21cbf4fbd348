package problem

import "fmt"

// NoSpaceOnDevice indicates the build ran out of disk space.
type NoSpaceOnDevice struct{}

func (NoSpaceOnDevice) Kind() string   { return "no-space-on-device" }
func (NoSpaceOnDevice) Details() any   { return struct{}{} }
func (NoSpaceOnDevice) String() string { return "No space on device" }

// MissingFile indicates a referenced file does not exist.
type MissingFile struct {
	Path string `json:"path"`
}

func (p MissingFile) Kind() string   { return "missing-file" }
func (p MissingFile) Details() any   { return p }
func (p MissingFile) String() string { return fmt.Sprintf("Missing file: %s", p.Path) }

// MissingBuildFile indicates a file expected inside the build tree is absent.
type MissingBuildFile struct {
	Filename string `json:"filename"`
}

func (p MissingBuildFile) Kind() string { return "missing-build-file" }
func (p MissingBuildFile) Details() any { return p }
func (p MissingBuildFile) String() string {
	return fmt.Sprintf("Missing build file: %s", p.Filename)
}

// MissingCommand indicates an executable was not found on PATH.
type MissingCommand struct {
	Command string `json:"command"`
}

func (p MissingCommand) Kind() string   { return "command-missing" }
func (p MissingCommand) Details() any   { return p }
func (p MissingCommand) String() string { return fmt.Sprintf("Missing command: %s", p.Command) }

// MissingCommandOrBuildFile covers a bare name that could be either a
// command or a file relative to the build tree.
type MissingCommandOrBuildFile struct {
	Filename string `json:"filename"`
}

func (p MissingCommandOrBuildFile) Kind() string { return "missing-command-or-build-file" }
func (p MissingCommandOrBuildFile) Details() any { return p }
func (p MissingCommandOrBuildFile) String() string {
	return fmt.Sprintf("Missing command or build file: %s", p.Filename)
}

// MissingConfigure indicates the tree lacks a ./configure script.
type MissingConfigure struct{}

func (MissingConfigure) Kind() string   { return "missing-configure" }
func (MissingConfigure) Details() any   { return struct{}{} }
func (MissingConfigure) String() string { return "Missing ./configure" }

// MissingPythonModule indicates an import failed for a python module.
type MissingPythonModule struct {
	Module        string `json:"module"`
	PythonVersion int    `json:"python_version,omitempty"`
	MinimumVerStr string `json:"minimum_version,omitempty"`
}

func (p MissingPythonModule) Kind() string { return "missing-python-module" }
func (p MissingPythonModule) Details() any { return p }
func (p MissingPythonModule) String() string {
	return fmt.Sprintf("Missing python module: %s", p.Module)
}

// MissingPerlModule indicates a perl module could not be loaded.
type MissingPerlModule struct {
	Module   string `json:"module"`
	Filename string `json:"filename,omitempty"`
}

func (p MissingPerlModule) Kind() string { return "missing-perl-module" }
func (p MissingPerlModule) Details() any { return p }
func (p MissingPerlModule) String() string {
	return fmt.Sprintf("Missing perl module: %s", p.Module)
}

// MissingGoPackage indicates a go package could not be resolved.
type MissingGoPackage struct {
	Package string `json:"package"`
}

func (p MissingGoPackage) Kind() string { return "missing-go-package" }
func (p MissingGoPackage) Details() any { return p }
func (p MissingGoPackage) String() string {
	return fmt.Sprintf("Missing go package: %s", p.Package)
}

// MissingCHeader indicates a C header include failed.
type MissingCHeader struct {
	Header string `json:"header"`
}

func (p MissingCHeader) Kind() string   { return "missing-c-header" }
func (p MissingCHeader) Details() any   { return p }
func (p MissingCHeader) String() string { return fmt.Sprintf("Missing C header: %s", p.Header) }

// MissingPkgConfig indicates pkg-config could not locate a module.
type MissingPkgConfig struct {
	Module         string `json:"module"`
	MinimumVersion string `json:"minimum_version,omitempty"`
}

func (p MissingPkgConfig) Kind() string { return "missing-pkg-config-package" }
func (p MissingPkgConfig) Details() any { return p }
func (p MissingPkgConfig) String() string {
	if p.MinimumVersion != "" {
		return fmt.Sprintf("Missing pkg-config module: %s (>= %s)", p.Module, p.MinimumVersion)
	}
	return fmt.Sprintf("Missing pkg-config module: %s", p.Module)
}

// MissingVagueDependency covers "cannot find X" messages with no clearer
// classification.
type MissingVagueDependency struct {
	Name string `json:"name"`
}

func (p MissingVagueDependency) Kind() string   { return "missing-vague-dependency" }
func (p MissingVagueDependency) Details() any   { return p }
func (p MissingVagueDependency) String() string { return fmt.Sprintf("Missing dependency: %s", p.Name) }

// VcsControlDirectoryNeeded indicates the build requires a version control
// metadata directory that is absent from the unpacked source.
type VcsControlDirectoryNeeded struct {
	Vcs []string `json:"vcs"`
}

func (p VcsControlDirectoryNeeded) Kind() string { return "vcs-control-directory-needed" }
func (p VcsControlDirectoryNeeded) Details() any { return p }
func (p VcsControlDirectoryNeeded) String() string {
	return fmt.Sprintf("Version control directory needed: %v", p.Vcs)
}

// ChrootNotFound indicates a named chroot does not exist on the builder.
type ChrootNotFound struct {
	Chroot string `json:"chroot"`
}

func (p ChrootNotFound) Kind() string   { return "chroot-not-found" }
func (p ChrootNotFound) Details() any   { return p }
func (p ChrootNotFound) String() string { return fmt.Sprintf("Chroot not found: %s", p.Chroot) }

// InactiveKilled indicates the build was killed after a period of inactivity.
type InactiveKilled struct {
	Minutes int `json:"minutes"`
}

func (p InactiveKilled) Kind() string { return "inactive-killed" }
func (p InactiveKilled) Details() any { return p }
func (p InactiveKilled) String() string {
	return fmt.Sprintf("Killed due to inactivity after %d minutes", p.Minutes)
}
