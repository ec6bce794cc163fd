package csvers

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/jaxxstorm/csvers/csemver"
	"github.com/jaxxstorm/csvers/internal/errors"
)

// TagCommit is a commit carrying a valid version tag.
type TagCommit struct {
	// CommitSha is the tagged commit.
	CommitSha plumbing.Hash
	// ContentSha is the tree of the commit.
	ContentSha plumbing.Hash
	// ThisTag is the version of the commit once its tags have been reconciled.
	ThisTag csemver.Version
	// TagName is the name of the tag ThisTag comes from.
	TagName string

	group *contentGroup
}

// BestTag is the greatest version among the commits sharing this commit's
// content. It is at least ThisTag.
func (tc *TagCommit) BestTag() csemver.Version {
	if tc.group == nil {
		return tc.ThisTag
	}
	return tc.group.best.ThisTag
}

// parsedTag is a tag whose name is a valid version.
type parsedTag struct {
	Name    string
	Commit  plumbing.Hash
	Version csemver.Version
}

// parseTags keeps the tags that are valid versions at or above the floor. It
// reports whether the floor itself has been found.
func parseTags(tags []rawTag, floor csemver.Version, reportMalformed bool, log *slog.Logger) ([]parsedTag, bool, Diagnostics) {
	var (
		parsed     []parsedTag
		floorFound bool
		diags      Diagnostics
	)
	for _, t := range tags {
		v := csemver.TryParse(tagVersionText(t.Name))
		if !v.IsValid() {
			if v.IsMalformed() {
				if reportMalformed {
					diags.add(errors.ErrCodeParse, "Tag '%s' on commit '%s' is malformed: %s", t.Name, t.Commit, v.ParseError())
				} else {
					log.Debug("ignoring malformed tag", "tag", t.Name, "commit", t.Commit.String(), "reason", v.ParseError())
				}
			}
			continue
		}
		if floor.IsValid() {
			if v.Less(floor) {
				log.Debug("ignoring tag below starting version", "tag", t.Name, "startingVersion", floor.Format(csemver.Normalized))
				continue
			}
			if v.Equal(floor) && !v.IsMarkedInvalid() {
				floorFound = true
			}
		}
		parsed = append(parsed, parsedTag{Name: t.Name, Commit: t.Commit, Version: v})
	}
	return parsed, floorFound, diags
}

// resolveTags reconciles the tags of each commit. Tags denoting the same version
// are merged, the strongest definition winning; versions whose winner is marked
// "+invalid" are dropped. A commit still carrying more than one version is
// ambiguous and excluded. The result is sorted by version.
func resolveTags(parsed []parsedTag) ([]*TagCommit, Diagnostics) {
	var (
		order    []plumbing.Hash
		byCommit = make(map[plumbing.Hash][]parsedTag)
		diags    Diagnostics
	)
	for _, p := range parsed {
		if _, seen := byCommit[p.Commit]; !seen {
			order = append(order, p.Commit)
		}
		byCommit[p.Commit] = append(byCommit[p.Commit], p)
	}

	var result []*TagCommit
	for _, commit := range order {
		var winners []parsedTag
		for _, p := range byCommit[commit] {
			i := indexOfVersion(winners, p.Version)
			switch {
			case i < 0:
				winners = append(winners, p)
			case p.Version.DefinitionStrength() > winners[i].Version.DefinitionStrength():
				winners[i] = p
			}
		}
		survivors := winners[:0]
		for _, w := range winners {
			if !w.Version.IsMarkedInvalid() {
				survivors = append(survivors, w)
			}
		}
		switch len(survivors) {
		case 0:
		case 1:
			result = append(result, &TagCommit{
				CommitSha: commit,
				ThisTag:   survivors[0].Version,
				TagName:   survivors[0].Name,
			})
		default:
			names := make([]string, len(survivors))
			for i, s := range survivors {
				names[i] = s.Version.Format(csemver.Normalized)
			}
			diags.add(errors.ErrCodeAmbiguousCommit,
				"Commit '%s' has %d different released version tags: %s. Delete some of them or add '+invalid' to the ones to ignore.",
				commit, len(survivors), strings.Join(names, ", "))
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].ThisTag.Less(result[j].ThisTag) })
	return result, diags
}

func indexOfVersion(tags []parsedTag, v csemver.Version) int {
	for i, t := range tags {
		if t.Version.Equal(v) {
			return i
		}
	}
	return -1
}

// checkCompactHistory reports duplicated versions and versions that do not
// directly follow any lower version. sorted must be ordered by version.
func checkCompactHistory(sorted []*TagCommit, floor csemver.Version) Diagnostics {
	var diags Diagnostics
	for i, tc := range sorted {
		if i > 0 && tc.ThisTag.Equal(sorted[i-1].ThisTag) {
			diags.add(errors.ErrCodeAmbiguousCommit, "Version '%s' is defined on '%s' and '%s'.",
				tc.ThisTag.Format(csemver.Normalized), sorted[i-1].CommitSha, tc.CommitSha)
			continue
		}
		if i == 0 {
			if !floor.IsValid() && !tc.ThisTag.IsFirstPossibleVersion() {
				diags.add(errors.ErrCodeNonCompactHistory,
					"First existing version is '%s' (on '%s'). It must be 0.0.0, 0.1.0 or 1.0.0 or one of their first prereleases, or StartingVersion must be set.",
					tc.ThisTag.Format(csemver.Normalized), tc.CommitSha)
			}
			continue
		}
		found := false
		for j := i - 1; j >= 0 && !found; j-- {
			found = tc.ThisTag.IsDirectPredecessor(sorted[j].ThisTag)
		}
		if !found {
			diags.add(errors.ErrCodeNonCompactHistory,
				"Missing one or more version(s) before '%s' (on '%s'): the previous version is '%s'.",
				tc.ThisTag.Format(csemver.Normalized), tc.CommitSha, sorted[i-1].ThisTag.Format(csemver.Normalized))
		}
	}
	return diags
}

// RepositoryVersions is the sorted, gap free list of the versions of a repository.
type RepositoryVersions struct {
	// Versions is sorted by ascending version.
	Versions []*TagCommit

	byCommit map[plumbing.Hash]*TagCommit
	content  *contentIndex
}

// TagCommitOf returns the tagged commit with the given sha, if any.
func (r *RepositoryVersions) TagCommitOf(sha plumbing.Hash) (*TagCommit, bool) {
	tc, ok := r.byCommit[sha]
	return tc, ok
}

// nearestHigher returns the lowest existing version greater than v, ignoring
// excluded. An invalid v stands for "no version".
func (r *RepositoryVersions) nearestHigher(v, excluded csemver.Version) (csemver.Version, bool) {
	i := sort.Search(len(r.Versions), func(i int) bool { return v.Less(r.Versions[i].ThisTag) })
	for ; i < len(r.Versions); i++ {
		t := r.Versions[i].ThisTag
		if excluded.IsValid() && t.Equal(excluded) {
			continue
		}
		return t, true
	}
	return csemver.Version{}, false
}

// registryOptions holds what buildRepositoryVersions needs from Options.
type registryOptions struct {
	floor           csemver.Version
	reportMalformed bool
	overrides       map[plumbing.Hash][]string
}

// applyOverrides replaces the tags of the overridden commits.
func applyOverrides(tags []rawTag, overrides map[plumbing.Hash][]string) []rawTag {
	if len(overrides) == 0 {
		return tags
	}
	out := make([]rawTag, 0, len(tags))
	for _, t := range tags {
		if _, ok := overrides[t.Commit]; !ok {
			out = append(out, t)
		}
	}
	commits := make([]plumbing.Hash, 0, len(overrides))
	for c := range overrides {
		commits = append(commits, c)
	}
	sort.Slice(commits, func(i, j int) bool { return commits[i].String() < commits[j].String() })
	for _, c := range commits {
		for _, name := range overrides[c] {
			out = append(out, rawTag{Name: name, Commit: c})
		}
	}
	return out
}

// buildRepositoryVersions runs the three passes over the tags: parse, resolve
// per commit and check the history. Content groups are only computed when no
// error has been found.
func buildRepositoryVersions(tags []rawTag, opts registryOptions, treeOf func(plumbing.Hash) (plumbing.Hash, error), log *slog.Logger) (*RepositoryVersions, Diagnostics, error) {
	tags = applyOverrides(tags, opts.overrides)

	parsed, floorFound, diags := parseTags(tags, opts.floor, opts.reportMalformed, log)
	if opts.floor.IsValid() && !floorFound && len(parsed) > 0 {
		diags.add(errors.ErrCodeMissingFloor, "Unable to find StartingVersion tag '%s' although versions above it exist.",
			opts.floor.Format(csemver.Normalized))
	}

	tagCommits, resolveDiags := resolveTags(parsed)
	diags = append(diags, resolveDiags...)
	diags = append(diags, checkCompactHistory(tagCommits, opts.floor)...)

	log.Debug("collected version tags", "tags", len(tags), "versions", len(tagCommits), "errors", len(diags))

	rv := &RepositoryVersions{
		Versions: tagCommits,
		byCommit: make(map[plumbing.Hash]*TagCommit, len(tagCommits)),
		content:  newContentIndex(),
	}
	if len(diags) > 0 {
		return rv, diags, nil
	}
	for _, tc := range tagCommits {
		tree, err := treeOf(tc.CommitSha)
		if err != nil {
			return nil, nil, err
		}
		tc.ContentSha = tree
		rv.byCommit[tc.CommitSha] = tc
		rv.content.add(tc)
	}
	return rv, nil, nil
}
