package csvers

import (
	"fmt"
	"time"

	"github.com/jaxxstorm/csvers/csemver"
	"github.com/jaxxstorm/csvers/internal/errors"
)

// RepositoryInfo is the version of one commit of a repository, along with
// everything that was found while computing it.
type RepositoryInfo struct {
	// CommitSha is the analyzed commit.
	CommitSha string `json:"commitSha"`
	// CommitDate is the committer date of the analyzed commit.
	CommitDate time.Time `json:"commitDate"`
	// Branch is the branch the commit is built from, if known.
	Branch string `json:"branch,omitempty"`
	// IsDirty is true when the working tree has uncommitted changes.
	IsDirty bool `json:"isDirty"`

	// Versions are the released versions of the repository.
	Versions *RepositoryVersions `json:"-"`
	// CommitInfo is nil when the repository versions have errors.
	CommitInfo *CommitInfo `json:"-"`

	// ValidReleaseTag is the version of the commit when it is tagged and the
	// tag is one of its possible versions.
	ValidReleaseTag csemver.Version `json:"-"`
	// CIRelease is set when the commit is not tagged and sits on a CI branch.
	CIRelease *CIReleaseInfo `json:"ciRelease,omitempty"`

	FinalSemVersion           string `json:"finalSemVersion,omitempty"`
	FinalNuGetVersion         string `json:"finalNuGetVersion,omitempty"`
	FinalFileVersion          string `json:"finalFileVersion,omitempty"`
	FinalInformationalVersion string `json:"finalInformationalVersion,omitempty"`

	Errors   Diagnostics `json:"errors,omitempty"`
	Warnings Diagnostics `json:"warnings,omitempty"`
}

// HasError reports whether no valid version could be computed.
func (r *RepositoryInfo) HasError() bool { return len(r.Errors) > 0 }

// Err returns nil when a version has been computed, a *errors.StructuredError
// carrying every error line otherwise.
func (r *RepositoryInfo) Err() error {
	if !r.HasError() {
		return nil
	}
	lines := make([]string, len(r.Errors))
	for i, d := range r.Errors {
		lines[i] = d.String()
	}
	err := errors.NewWithContext(errors.ErrCodeNoVersion, "no valid version for this commit", map[string]any{
		"commit": r.CommitSha,
		"errors": lines,
	})
	err.Cause = r.Errors
	return err
}

// Formats returns the final version in every format. It is nil when the
// commit has no valid version.
func (r *RepositoryInfo) Formats() *VersionFormats {
	if r.HasError() || r.FinalSemVersion == "" {
		return nil
	}
	normalized := "v" + r.FinalSemVersion
	if r.ValidReleaseTag.IsValid() {
		normalized = r.ValidReleaseTag.Format(csemver.Normalized)
	}
	return &VersionFormats{
		Normalized:       normalized,
		SemVer:           r.FinalSemVersion,
		SemVerWithMarker: r.FinalSemVersion,
		NuGet:            r.FinalNuGetVersion,
		FileVersion:      r.FinalFileVersion,
		Informational:    r.FinalInformationalVersion,
	}
}

// finalize renders the final strings from the release tag or the CI build.
func (r *RepositoryInfo) finalize() {
	if r.HasError() {
		return
	}
	switch {
	case r.ValidReleaseTag.IsValid():
		r.FinalSemVersion = r.ValidReleaseTag.Format(csemver.SemVer)
		r.FinalNuGetVersion = r.ValidReleaseTag.Format(csemver.NuGetV2)
		r.FinalFileVersion = r.ValidReleaseTag.Format(csemver.FileVersion)
	case r.CIRelease != nil:
		r.FinalSemVersion = r.CIRelease.BuildVersion
		r.FinalNuGetVersion = r.CIRelease.BuildVersionNuGet
		r.FinalFileVersion = r.CIRelease.FileVersion
	default:
		return
	}
	r.FinalInformationalVersion = informationalVersion(r.FinalSemVersion, r.CommitSha, r.CommitDate)
}

func informationalVersion(version, sha string, when time.Time) string {
	return fmt.Sprintf("%s/%s/%s", version, sha, when.UTC().Format(time.RFC3339))
}
