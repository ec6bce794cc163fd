// Package csvers computes CSemVer versions for the commits of a Git repository.
//
// This file contains code adapted from pulumictl (https://github.com/pulumi/pulumictl)
// which is licensed under the Apache License 2.0. See NOTICE file for full attribution.
package csvers

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/jaxxstorm/csvers/csemver"
	"github.com/jaxxstorm/csvers/internal/errors"
)

// headOverrideKey designates the analyzed commit in Options.OverriddenTags.
const headOverrideKey = "head"

// Calculate computes the version of the commit Options.Commitish names. The
// error is only set for invalid options or when the repository cannot be
// read: version problems are reported by RepositoryInfo.Err.
func Calculate(opts Options) (*RepositoryInfo, error) {
	if opts.Repository == nil {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "repository is required")
	}
	return calculate(newGitReader(opts.Repository), opts)
}

// settings are the options once validated.
type settings struct {
	floor     csemver.Version
	tagFilter func(string) bool
}

func validateOptions(opts Options) (settings, error) {
	var s settings
	if opts.StartingVersion != "" {
		floor, err := csemver.Parse(opts.StartingVersion)
		if err != nil {
			return s, errors.Wrap(errors.ErrCodeInvalidRequest, "invalid starting version", err)
		}
		if floor.IsMarkedInvalid() {
			return s, errors.New(errors.ErrCodeInvalidRequest, fmt.Sprintf("starting version %q must not be marked invalid", opts.StartingVersion))
		}
		s.floor = floor
	}
	if opts.SingleMajor != nil && (*opts.SingleMajor < 0 || *opts.SingleMajor > csemver.MaxMajor) {
		return s, errors.New(errors.ErrCodeInvalidRequest, fmt.Sprintf("single major %d is out of range", *opts.SingleMajor))
	}

	s.tagFilter = opts.TagFilter
	// Apply tag pattern filter if specified
	if opts.TagPattern != "" && opts.TagFilter == nil {
		re, err := regexp.Compile(opts.TagPattern)
		if err != nil {
			return s, errors.Wrap(errors.ErrCodeInvalidRequest, "invalid tag pattern", err)
		}
		s.tagFilter = func(tag string) bool {
			return re.MatchString(tag)
		}
	}

	for _, b := range opts.Branches {
		if b.Name == "" {
			return s, errors.New(errors.ErrCodeInvalidRequest, "branch options without a name")
		}
	}
	return s, nil
}

// parseOverrides maps OverriddenTags keys to commits. "head" is the analyzed
// commit, other keys must be full commit shas.
func parseOverrides(overrides map[string][]string, head plumbing.Hash) (map[plumbing.Hash][]string, error) {
	if len(overrides) == 0 {
		return nil, nil
	}
	out := make(map[plumbing.Hash][]string, len(overrides))
	for key, tags := range overrides {
		var commit plumbing.Hash
		switch {
		case strings.EqualFold(key, headOverrideKey):
			commit = head
		case len(key) == 2*len(plumbing.ZeroHash):
			if _, err := hex.DecodeString(key); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidRequest, fmt.Sprintf("overridden tags key %q is not a commit sha", key), err)
			}
			commit = plumbing.NewHash(key)
		default:
			return nil, errors.New(errors.ErrCodeInvalidRequest, fmt.Sprintf("overridden tags key %q must be a full commit sha or %q", key, headOverrideKey))
		}
		out[commit] = append(out[commit], tags...)
	}
	return out, nil
}

func calculate(reader *gitReader, opts Options) (*RepositoryInfo, error) {
	log := opts.logger()
	s, err := validateOptions(opts)
	if err != nil {
		return nil, err
	}
	if opts.Commitish == "" {
		opts.Commitish = "HEAD"
	}

	hash, err := reader.resolve(opts.Commitish)
	if err != nil {
		return nil, err
	}
	node, err := reader.commit(hash)
	if err != nil {
		return nil, err
	}
	overrides, err := parseOverrides(opts.OverriddenTags, hash)
	if err != nil {
		return nil, err
	}
	log = log.With("commit", hash.String())

	info := &RepositoryInfo{
		CommitSha:  hash.String(),
		CommitDate: node.When,
	}
	if info.Branch, err = detectBranch(reader, opts); err != nil {
		return nil, err
	}
	if opts.Commitish == "HEAD" {
		checkDirty(reader, opts, info, log)
	}

	tags, err := reader.tags(s.tagFilter)
	if err != nil {
		return nil, err
	}
	treeOf := func(h plumbing.Hash) (plumbing.Hash, error) {
		n, err := reader.commit(h)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return n.Tree, nil
	}
	versions, diags, err := buildRepositoryVersions(tags, registryOptions{
		floor:           s.floor,
		reportMalformed: opts.ReportMalformedTags,
		overrides:       overrides,
	}, treeOf, log)
	if err != nil {
		return nil, err
	}
	info.Versions = versions
	if len(diags) > 0 {
		info.Errors = append(info.Errors, diags...)
		log.Debug("repository versions have errors", "errors", len(diags))
		return info, nil
	}

	res := newResolver(reader, versions, s.floor, opts.SingleMajor, opts.OnlyPatch, log)
	commitInfo, err := res.commitInfo(hash)
	if err != nil {
		return nil, err
	}
	info.CommitInfo = commitInfo

	if commitInfo.ThisTag.IsValid() {
		checkReleaseTag(commitInfo, opts, info, log)
	} else {
		composeCI(commitInfo, node, opts, info)
	}
	info.finalize()
	if info.HasError() {
		log.Debug("no valid version", "errors", len(info.Errors))
	} else {
		log.Debug("computed version", "version", info.FinalSemVersion)
	}
	return info, nil
}

// detectBranch returns Options.Branch, the branch Commitish names or the branch
// HEAD points to when Commitish is HEAD.
func detectBranch(reader *gitReader, opts Options) (string, error) {
	switch {
	case opts.Branch != "":
		return opts.Branch, nil
	case opts.Commitish == "HEAD":
		return reader.headBranch()
	case reader.isBranch(opts.Commitish):
		return string(opts.Commitish), nil
	default:
		return "", nil
	}
}

func checkDirty(reader *gitReader, opts Options, info *RepositoryInfo, log *slog.Logger) {
	dirty, err := reader.isDirty()
	if err != nil {
		log.Warn("unable to check the working tree", "error", err)
		return
	}
	if !dirty {
		return
	}
	info.IsDirty = true
	const msg = "Working tree has uncommitted changes."
	if opts.DirtyIsError {
		info.Errors.add(errors.ErrCodeDirtyWorkingTree, msg)
		return
	}
	info.Warnings.add(errors.ErrCodeDirtyWorkingTree, msg)
	log.Warn("working tree has uncommitted changes")
}

// checkReleaseTag accepts the tag of the commit when it is one of its possible
// versions.
func checkReleaseTag(ci *CommitInfo, opts Options, info *RepositoryInfo, log *slog.Logger) {
	tag := ci.ThisTag
	if tag.IsPrerelease() && !tag.IsStandardPrerelease() {
		msg := fmt.Sprintf("Tag '%s' uses the non standard prerelease name '%s', ordered as '%s'. Standard names are: %s.",
			tag.Text(), tag.PrereleaseNameFromTag(), tag.PrereleaseName(), strings.Join(csemver.StandardPrereleaseNames(), ", "))
		if opts.StrictPrereleaseNames {
			info.Errors.add(errors.ErrCodeNonStandardPrerelease, "%s", msg)
		} else {
			info.Warnings.add(errors.ErrCodeNonStandardPrerelease, "%s", msg)
			log.Warn("non standard prerelease name", "tag", tag.Text())
		}
	}
	if !ci.IsPossibleVersion(tag) {
		info.Errors.add(errors.ErrCodeNotAPossibleVersion,
			"Tag '%s' is not a possible version for commit '%s'. Possible versions are: %s.",
			tag.Format(csemver.Normalized), ci.CommitSha, describeVersions(ci.PossibleVersions))
		return
	}
	if !info.HasError() {
		info.ValidReleaseTag = tag
	}
}

// composeCI computes the CI build of an untagged commit.
func composeCI(ci *CommitInfo, node *commitNode, opts Options, info *RepositoryInfo) {
	branch, ok := opts.BranchOptionsFor(info.Branch)
	if !ok || branch.CIVersionMode == CIVersionModeNone {
		where := "is detached"
		if info.Branch != "" {
			where = fmt.Sprintf("is on branch '%s' which is not configured for CI builds", info.Branch)
		}
		info.Errors.add(errors.ErrCodeNoVersion, "Commit '%s' has no version tag and %s. Possible versions are: %s.",
			ci.CommitSha, where, describeVersions(ci.PossibleVersions))
		return
	}
	release, diags := composeCIRelease(branch, ci.BasicInfo, node.When)
	if len(diags) > 0 {
		info.Errors = append(info.Errors, diags...)
		return
	}
	info.CIRelease = release
}

// describeVersions lists versions in normalized form.
func describeVersions(versions []csemver.Version) string {
	if len(versions) == 0 {
		return "none"
	}
	names := make([]string, len(versions))
	for i, v := range versions {
		names[i] = v.Format(csemver.Normalized)
	}
	return strings.Join(names, ", ")
}

// Convert renders a version string in every format.
func Convert(version string) (*VersionFormats, error) {
	v, err := csemver.Parse(version)
	if err != nil {
		return nil, err
	}
	return &VersionFormats{
		Normalized:       v.Format(csemver.Normalized),
		SemVer:           v.Format(csemver.SemVer),
		SemVerWithMarker: v.Format(csemver.SemVerWithMarker),
		NuGet:            v.Format(csemver.NuGetV2),
		FileVersion:      v.Format(csemver.FileVersion),
	}, nil
}

// FallbackVersions is the version used when no repository is available. It
// sorts below every possible version.
func FallbackVersions() *VersionFormats {
	return &VersionFormats{
		Normalized:       "v0.0.0--0",
		SemVer:           "0.0.0--0",
		SemVerWithMarker: "0.0.0--0",
		NuGet:            "0.0.0--0",
		FileVersion:      csemver.FileVersionOf(0, false),
	}
}

// sortedBranches returns the configured branch names, sorted.
func (o Options) sortedBranches() []string {
	names := make([]string, 0, len(o.Branches))
	for _, b := range o.Branches {
		names = append(names, b.Name)
	}
	sort.Strings(names)
	return names
}
