// Package csvers computes CSemVer versions for the commits of a Git repository.
//
// Versions come from the tags already present: every commit either carries a
// valid release tag, or gets a CI build version derived from the best tag of its
// ancestors when it sits on a branch configured for CI builds. The repository is
// only read, never modified.
package csvers

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// CIBranchVersionMode selects how CI build versions are computed on a branch.
type CIBranchVersionMode int

const (
	// CIVersionModeNone disables CI builds on the branch.
	CIVersionModeNone CIBranchVersionMode = iota
	// CIVersionModeZeroTimed produces 0.0.0--ci-{name}-{timestamp} versions.
	CIVersionModeZeroTimed
	// CIVersionModeLastReleaseBased produces versions right after the best
	// ancestor tag, numbered by the commit depth below it.
	CIVersionModeLastReleaseBased
)

func (m CIBranchVersionMode) String() string {
	switch m {
	case CIVersionModeZeroTimed:
		return "ZeroTimed"
	case CIVersionModeLastReleaseBased:
		return "LastReleaseBased"
	default:
		return "None"
	}
}

// ParseCIBranchVersionMode parses None, ZeroTimed or LastReleaseBased (case-insensitive).
func ParseCIBranchVersionMode(s string) (CIBranchVersionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CIVersionModeNone, nil
	case "zerotimed":
		return CIVersionModeZeroTimed, nil
	case "lastreleasebased":
		return CIVersionModeLastReleaseBased, nil
	default:
		return CIVersionModeNone, fmt.Errorf("unknown CI version mode %q", s)
	}
}

// MaxBranchVersionNameLength is the longest branch version name: NuGet v2
// prerelease segments are limited to 20 characters.
const MaxBranchVersionNameLength = 8

var branchVersionNameRe = regexp.MustCompile(`^[0-9A-Za-z-]+$`)

// BranchOptions configures CI builds for one branch.
type BranchOptions struct {
	// Name is the branch name (e.g., "develop").
	Name string `yaml:"name" json:"name"`

	// CIVersionMode selects the kind of CI build version.
	CIVersionMode CIBranchVersionMode `yaml:"ciVersionMode" json:"ciVersionMode"`

	// VersionName overrides the branch name in CI versions.
	VersionName string `yaml:"versionName,omitempty" json:"versionName,omitempty"`
}

// BranchVersionName is the name that appears in CI versions.
func (b BranchOptions) BranchVersionName() string {
	if b.VersionName != "" {
		return b.VersionName
	}
	return b.Name
}

// Options configures version calculation behavior
type Options struct {
	// Repository is the Git repository to analyze
	Repository *git.Repository `yaml:"-"`

	// Commitish specifies which commit to analyze (default: "HEAD")
	Commitish plumbing.Revision `yaml:"-"`

	// Branch is the branch the commit is built from. When empty it is the
	// branch Commitish names, or the branch HEAD points to.
	Branch string `yaml:"-"`

	// StartingVersion ignores every tag below it. The tag itself must exist
	// once versions above it have been released.
	StartingVersion string `yaml:"startingVersion,omitempty"`

	// SingleMajor restricts possible versions to one major.
	SingleMajor *int `yaml:"singleMajor,omitempty"`

	// OnlyPatch restricts possible versions to patches.
	OnlyPatch bool `yaml:"onlyPatch,omitempty"`

	// Branches lists the branches with CI builds.
	Branches []BranchOptions `yaml:"branches,omitempty"`

	// OverriddenTags replaces the tags of a commit, keyed by full commit sha
	// or "head" for the analyzed commit.
	OverriddenTags map[string][]string `yaml:"overriddenTags,omitempty"`

	// ReportMalformedTags reports tags that look like versions but are not
	// valid instead of ignoring them.
	ReportMalformedTags bool `yaml:"reportMalformedTags,omitempty"`

	// DirtyIsError makes uncommitted changes an error instead of a warning.
	DirtyIsError bool `yaml:"dirtyIsError,omitempty"`

	// StrictPrereleaseNames makes non standard prerelease names an error
	// instead of a warning.
	StrictPrereleaseNames bool `yaml:"strictPrereleaseNames,omitempty"`

	// TagFilter allows filtering which tags to consider
	TagFilter func(string) bool `yaml:"-"`

	// TagPattern is a regex pattern to filter tags (alternative to TagFilter)
	TagPattern string `yaml:"tagPattern,omitempty"`

	// Logger receives debug traces and warnings. Defaults to slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

// BranchOptionsFor returns the CI configuration of a branch, if any.
func (o Options) BranchOptionsFor(branch string) (BranchOptions, bool) {
	for _, b := range o.Branches {
		if b.Name == branch {
			return b, true
		}
	}
	return BranchOptions{}, false
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// VersionFormats contains a version rendered in every supported format
type VersionFormats struct {
	Normalized       string `json:"normalized"`
	SemVer           string `json:"semver"`
	// SemVerWithMarker is SemVer followed by +invalid for versions marked invalid.
	SemVerWithMarker string `json:"semverWithMarker"`
	NuGet            string `json:"nuget"`
	FileVersion      string `json:"fileVersion"`
	Informational    string `json:"informational,omitempty"`
}
