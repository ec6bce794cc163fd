package csvers

import (
	"fmt"
	"strings"
	"time"

	"github.com/blang/semver"

	"github.com/jaxxstorm/csvers/csemver"
	"github.com/jaxxstorm/csvers/internal/errors"
)

// MaxCIDepth is the greatest depth a CI build version can carry: NuGet v2
// renders it on four digits.
const MaxCIDepth = 9999

const (
	zeroTimedSemVerLayout = "2006-01-02T15-04-05"
	zeroTimedNuGetLayout  = "0601021504"
)

// CIReleaseInfo is the pseudo version of an untagged commit on a CI branch.
type CIReleaseInfo struct {
	// BaseTag is the version the build follows. It is not valid for zero
	// timed builds.
	BaseTag csemver.Version `json:"-"`
	// Depth is the number of commits between the build and BaseTag.
	Depth int `json:"depth"`
	// BuildVersion is the SemVer rendering.
	BuildVersion string `json:"buildVersion"`
	// BuildVersionNuGet is the NuGet v2 rendering.
	BuildVersionNuGet string `json:"buildVersionNuGet"`
	// IsZeroTimed is true for 0.0.0--ci-{name}-{timestamp} builds.
	IsZeroTimed bool `json:"isZeroTimed"`
	// FileVersion sits between the file versions of BaseTag and its successor.
	FileVersion string `json:"fileVersion"`
}

// validateBranchVersionName checks that name fits in a NuGet v2 prerelease.
func validateBranchVersionName(name string) error {
	if name == "" {
		return fmt.Errorf("branch version name is empty")
	}
	if len(name) > MaxBranchVersionNameLength {
		return fmt.Errorf("branch version name '%s' is longer than %d characters", name, MaxBranchVersionNameLength)
	}
	if !branchVersionNameRe.MatchString(name) {
		return fmt.Errorf("branch version name '%s' must only contain letters, digits and dashes", name)
	}
	return nil
}

// composeCIRelease builds the CI version of a commit whose best reachable
// version is basic. A LastReleaseBased branch without any reachable version
// falls back to a zero timed build.
func composeCIRelease(branch BranchOptions, basic *BasicCommitInfo, when time.Time) (*CIReleaseInfo, Diagnostics) {
	var diags Diagnostics
	name := branch.BranchVersionName()
	if err := validateBranchVersionName(name); err != nil {
		diags.add(errors.ErrCodeCIConfig, "Branch '%s': %s.", branch.Name, err)
		return nil, diags
	}

	var ci *CIReleaseInfo
	if branch.CIVersionMode == CIVersionModeZeroTimed || !basic.HasBest() {
		ci = zeroTimed(name, when)
	} else {
		if basic.BelowDepth > MaxCIDepth {
			diags.add(errors.ErrCodeCIConfig, "Commit is %d commits below '%s': CI builds are limited to a depth of %d.",
				basic.BelowDepth, basic.BestTag.Format(csemver.Normalized), MaxCIDepth)
			return nil, diags
		}
		var err error
		if ci, err = lastReleaseBased(name, basic.BestTag, basic.BelowDepth); err != nil {
			diags.add(errors.ErrCodeCIConfig, "%s", err)
			return nil, diags
		}
	}
	if err := verifyCIOrdering(ci); err != nil {
		diags.add(errors.ErrCodeInternal, "%s", err)
		return nil, diags
	}
	return ci, nil
}

func zeroTimed(name string, when time.Time) *CIReleaseInfo {
	utc := when.UTC()
	return &CIReleaseInfo{
		IsZeroTimed:       true,
		BuildVersion:      fmt.Sprintf("0.0.0--ci-%s-%s", name, utc.Format(zeroTimedSemVerLayout)),
		BuildVersionNuGet: fmt.Sprintf("0.0.0--%s-%s", name, utc.Format(zeroTimedNuGetLayout)),
		FileVersion:       csemver.FileVersionOf(0, true),
	}
}

func lastReleaseBased(name string, base csemver.Version, depth int) (*CIReleaseInfo, error) {
	ci := &CIReleaseInfo{
		BaseTag:     base,
		Depth:       depth,
		FileVersion: csemver.FileVersionOf(base.Ordered(), true),
	}
	if base.IsPrerelease() {
		core := fmt.Sprintf("%d.%d.%d", base.Major(), base.Minor(), base.Patch())
		ci.BuildVersion = fmt.Sprintf("%s-%s.%d.%d.ci-%s.%d",
			core, base.PrereleaseName(), base.PrereleaseNumber(), base.PrereleaseFix(), name, depth)
		// No dash before the branch name: with it an 8 character name overflows
		// the 20 characters of a NuGet v2 prerelease.
		ci.BuildVersionNuGet = fmt.Sprintf("%s-%s-%02d-%02d%s-%04d",
			core, base.PrereleaseName()[:1], base.PrereleaseNumber(), base.PrereleaseFix(), name, depth)
		return ci, nil
	}
	successors := base.GetDirectSuccessors(false)
	if len(successors) == 0 {
		return nil, fmt.Errorf("no version can follow '%s'", base.Format(csemver.Normalized))
	}
	next := successors[0]
	core := fmt.Sprintf("%d.%d.%d", next.Major(), next.Minor(), next.Patch())
	ci.BuildVersion = fmt.Sprintf("%s--ci-%s.%d", core, name, depth)
	ci.BuildVersionNuGet = fmt.Sprintf("%s--%s-%04d", core, name, depth)
	return ci, nil
}

// verifyCIOrdering checks that the build sorts strictly after its base and
// before the first successor of the base, in SemVer and NuGet v2 precedence.
func verifyCIOrdering(ci *CIReleaseInfo) error {
	build, err := semver.Parse(ci.BuildVersion)
	if err != nil {
		return fmt.Errorf("CI version '%s' is not a valid SemVer: %w", ci.BuildVersion, err)
	}
	next := ci.BaseTag.GetDirectSuccessors(false)
	if len(next) > 0 {
		n, err := next[0].SemVer()
		if err != nil {
			return err
		}
		if !build.LT(n) || !nugetLess(ci.BuildVersionNuGet, next[0].Format(csemver.NuGetV2)) {
			return fmt.Errorf("CI version '%s' does not sort before '%s'", ci.BuildVersion, next[0].Format(csemver.SemVer))
		}
	}
	if !ci.BaseTag.IsValid() {
		return nil
	}
	b, err := ci.BaseTag.SemVer()
	if err != nil {
		return err
	}
	if !b.LT(build) || !nugetLess(ci.BaseTag.Format(csemver.NuGetV2), ci.BuildVersionNuGet) {
		return fmt.Errorf("CI version '%s' does not sort after '%s'", ci.BuildVersion, ci.BaseTag.Format(csemver.SemVer))
	}
	return nil
}

// nugetLess compares NuGet v2 versions: the prerelease part is a single
// case-insensitive string and a release sorts after all of its prereleases.
func nugetLess(a, b string) bool {
	coreA, preA, _ := strings.Cut(a, "-")
	coreB, preB, _ := strings.Cut(b, "-")
	va, errA := semver.Parse(coreA)
	vb, errB := semver.Parse(coreB)
	if errA != nil || errB != nil {
		return false
	}
	if c := va.Compare(vb); c != 0 {
		return c < 0
	}
	switch {
	case preA == "":
		return false
	case preB == "":
		return true
	default:
		return strings.ToLower(preA) < strings.ToLower(preB)
	}
}
