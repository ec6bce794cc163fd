package csvers

import (
	"fmt"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"github.com/jaxxstorm/csvers/csemver"
	"github.com/jaxxstorm/csvers/internal/errors"
	"github.com/jaxxstorm/csvers/internal/logging"
)

func sha(n int) plumbing.Hash {
	return plumbing.NewHash(fmt.Sprintf("%040x", n))
}

// treeIsCommit gives every commit its own content.
func treeIsCommit(h plumbing.Hash) (plumbing.Hash, error) { return h, nil }

func versionsOf(tcs []*TagCommit) []string {
	out := make([]string, len(tcs))
	for i, tc := range tcs {
		out[i] = tc.ThisTag.Format(csemver.Normalized)
	}
	return out
}

func TestParseTags(t *testing.T) {
	tags := []rawTag{
		{Name: "v1.0.0", Commit: sha(1)},
		{Name: "sdk/v1.1.0", Commit: sha(2)},
		{Name: "release-notes", Commit: sha(3)},
		{Name: "v1.2", Commit: sha(4)},
		{Name: "v0.9.0", Commit: sha(5)},
	}

	t.Run("Malformed tags are ignored", func(t *testing.T) {
		parsed, floorFound, diags := parseTags(tags, csemver.Version{}, false, logging.Discard())
		require.Empty(t, diags)
		require.False(t, floorFound)
		require.Len(t, parsed, 3)
		require.Equal(t, "sdk/v1.1.0", parsed[1].Name)
		require.Equal(t, "v1.1.0", parsed[1].Version.Format(csemver.Normalized))
	})

	t.Run("Malformed tags are reported", func(t *testing.T) {
		_, _, diags := parseTags(tags, csemver.Version{}, true, logging.Discard())
		require.Len(t, diags, 1)
		require.Equal(t, errors.ErrCodeParse, diags[0].Code)
		require.Contains(t, diags[0].Message, "v1.2")
		require.Contains(t, diags[0].Message, "Expected Major.Minor.Patch.")
	})

	t.Run("Floor", func(t *testing.T) {
		parsed, floorFound, _ := parseTags(tags, csemver.MustParse("1.0.0"), false, logging.Discard())
		require.True(t, floorFound)
		require.Len(t, parsed, 2)

		_, floorFound, _ = parseTags(tags, csemver.MustParse("1.0.1"), false, logging.Discard())
		require.False(t, floorFound)
	})
}

func TestResolveTags(t *testing.T) {
	parse := func(name string, commit plumbing.Hash) parsedTag {
		return parsedTag{Name: name, Commit: commit, Version: csemver.MustParse(name)}
	}

	t.Run("Same version written differently", func(t *testing.T) {
		resolved, diags := resolveTags([]parsedTag{
			parse("v1.0.0-preview", sha(1)),
			parse("v1.0.0-prerelease", sha(1)),
		})
		require.Empty(t, diags)
		require.Len(t, resolved, 1)
		require.Equal(t, "v1.0.0-prerelease", resolved[0].TagName)
	})

	t.Run("Invalid marker removes the version", func(t *testing.T) {
		resolved, diags := resolveTags([]parsedTag{
			parse("v1.0.0", sha(1)),
			parse("v2.0.0", sha(1)),
			parse("v2.0.0+invalid", sha(1)),
		})
		require.Empty(t, diags)
		require.Equal(t, []string{"v1.0.0"}, versionsOf(resolved))
	})

	t.Run("Only invalid tags", func(t *testing.T) {
		resolved, diags := resolveTags([]parsedTag{parse("v1.0.0+invalid", sha(1))})
		require.Empty(t, diags)
		require.Empty(t, resolved)
	})

	t.Run("Ambiguous commit", func(t *testing.T) {
		resolved, diags := resolveTags([]parsedTag{
			parse("v1.0.0", sha(1)),
			parse("v1.1.0", sha(1)),
			parse("v0.1.0", sha(2)),
		})
		require.Equal(t, []string{"v0.1.0"}, versionsOf(resolved))
		require.Len(t, diags, 1)
		require.Equal(t, errors.ErrCodeAmbiguousCommit, diags[0].Code)
		require.Contains(t, diags[0].Message, sha(1).String())
		require.Contains(t, diags[0].Message, "v1.0.0, v1.1.0")
	})

	t.Run("Sorted by version", func(t *testing.T) {
		resolved, diags := resolveTags([]parsedTag{
			parse("v1.0.0", sha(3)),
			parse("v0.0.0-alpha", sha(1)),
			parse("v0.0.0", sha(2)),
		})
		require.Empty(t, diags)
		require.Equal(t, []string{"v0.0.0-alpha", "v0.0.0", "v1.0.0"}, versionsOf(resolved))
	})
}

func TestCheckCompactHistory(t *testing.T) {
	tagCommits := func(versions ...string) []*TagCommit {
		out := make([]*TagCommit, len(versions))
		for i, v := range versions {
			out[i] = &TagCommit{CommitSha: sha(i + 1), ThisTag: csemver.MustParse(v)}
		}
		return out
	}

	t.Run("Compact", func(t *testing.T) {
		diags := checkCompactHistory(tagCommits("0.1.0-alpha", "0.1.0-beta", "0.1.0", "1.0.0-rc", "1.0.0", "1.0.1", "1.1.0"), csemver.Version{})
		require.Empty(t, diags)
	})

	t.Run("Branches share predecessors", func(t *testing.T) {
		// 1.1.0 follows 1.0.0, not the 1.0.1-rc released in between.
		diags := checkCompactHistory(tagCommits("1.0.0", "1.0.1-rc", "1.1.0"), csemver.Version{})
		require.Empty(t, diags)
	})

	t.Run("Prerelease followed by a bump", func(t *testing.T) {
		require.Empty(t, checkCompactHistory(tagCommits("1.0.0-alpha", "1.0.1"), csemver.Version{}))
		require.Empty(t, checkCompactHistory(tagCommits("1.0.0-alpha", "1.0.0-rc.3", "1.1.0"), csemver.Version{}))
		require.Empty(t, checkCompactHistory(tagCommits("1.0.0-beta", "2.0.0-alpha"), csemver.Version{}))

		diags := checkCompactHistory(tagCommits("1.0.0-alpha", "1.0.2"), csemver.Version{})
		require.Len(t, diags, 1)
		require.Equal(t, errors.ErrCodeNonCompactHistory, diags[0].Code)
	})

	t.Run("Gap", func(t *testing.T) {
		diags := checkCompactHistory(tagCommits("1.0.0", "1.2.0"), csemver.Version{})
		require.Len(t, diags, 1)
		require.Equal(t, errors.ErrCodeNonCompactHistory, diags[0].Code)
		require.Contains(t, diags[0].Message, "v1.2.0")
	})

	t.Run("Duplicate", func(t *testing.T) {
		diags := checkCompactHistory(tagCommits("1.0.0", "2.0.0", "2.0.0"), csemver.Version{})
		require.Len(t, diags, 1)
		require.Equal(t, errors.ErrCodeAmbiguousCommit, diags[0].Code)
		require.Contains(t, diags[0].Message, sha(2).String())
		require.Contains(t, diags[0].Message, sha(3).String())
	})

	t.Run("First version", func(t *testing.T) {
		diags := checkCompactHistory(tagCommits("3.0.0", "3.0.1"), csemver.Version{})
		require.Len(t, diags, 1)
		require.Equal(t, errors.ErrCodeNonCompactHistory, diags[0].Code)

		require.Empty(t, checkCompactHistory(tagCommits("3.0.0", "3.0.1"), csemver.MustParse("3.0.0")))
	})
}

func TestBuildRepositoryVersions(t *testing.T) {
	t.Run("Missing floor", func(t *testing.T) {
		tags := []rawTag{{Name: "v2.0.1", Commit: sha(1)}}
		rv, diags, err := buildRepositoryVersions(tags, registryOptions{floor: csemver.MustParse("2.0.0")}, treeIsCommit, logging.Discard())
		require.NoError(t, err)
		require.NotNil(t, rv)
		require.True(t, diags.Has(errors.ErrCodeMissingFloor))
	})

	t.Run("Floor not yet released", func(t *testing.T) {
		tags := []rawTag{{Name: "v1.0.0", Commit: sha(1)}}
		rv, diags, err := buildRepositoryVersions(tags, registryOptions{floor: csemver.MustParse("2.0.0")}, treeIsCommit, logging.Discard())
		require.NoError(t, err)
		require.Empty(t, diags)
		require.Empty(t, rv.Versions)
	})

	t.Run("Content groups", func(t *testing.T) {
		tree := sha(100)
		tags := []rawTag{
			{Name: "v1.0.0", Commit: sha(1)},
			{Name: "v1.0.1", Commit: sha(2)},
			{Name: "v1.1.0", Commit: sha(3)},
		}
		treeOf := func(h plumbing.Hash) (plumbing.Hash, error) {
			if h == sha(1) {
				return h, nil
			}
			return tree, nil
		}
		rv, diags, err := buildRepositoryVersions(tags, registryOptions{}, treeOf, logging.Discard())
		require.NoError(t, err)
		require.Empty(t, diags)
		require.Len(t, rv.Versions, 3)

		patch, ok := rv.TagCommitOf(sha(2))
		require.True(t, ok)
		require.Equal(t, "v1.0.1", patch.ThisTag.Format(csemver.Normalized))
		require.Equal(t, "v1.1.0", patch.BestTag().Format(csemver.Normalized))

		first, _ := rv.TagCommitOf(sha(1))
		require.Equal(t, "v1.0.0", first.BestTag().Format(csemver.Normalized))

		_, ok = rv.TagCommitOf(sha(4))
		require.False(t, ok)
	})

	t.Run("Overridden tags", func(t *testing.T) {
		tags := []rawTag{
			{Name: "v1.0.0", Commit: sha(1)},
			{Name: "v5.0.0", Commit: sha(2)},
		}
		overrides := map[plumbing.Hash][]string{sha(2): {"v1.0.1"}}
		rv, diags, err := buildRepositoryVersions(tags, registryOptions{overrides: overrides}, treeIsCommit, logging.Discard())
		require.NoError(t, err)
		require.Empty(t, diags)
		require.Equal(t, []string{"v1.0.0", "v1.0.1"}, versionsOf(rv.Versions))
	})

	t.Run("Tree errors are returned", func(t *testing.T) {
		tags := []rawTag{{Name: "v1.0.0", Commit: sha(1)}}
		failing := func(plumbing.Hash) (plumbing.Hash, error) { return plumbing.ZeroHash, fmt.Errorf("boom") }
		_, _, err := buildRepositoryVersions(tags, registryOptions{}, failing, logging.Discard())
		require.Error(t, err)
	})
}

func TestNearestHigher(t *testing.T) {
	rv := &RepositoryVersions{}
	for i, v := range []string{"1.0.0", "1.0.1", "1.1.0", "2.0.0"} {
		rv.Versions = append(rv.Versions, &TagCommit{CommitSha: sha(i), ThisTag: csemver.MustParse(v)})
	}

	next, ok := rv.nearestHigher(csemver.MustParse("1.0.0"), csemver.Version{})
	require.True(t, ok)
	require.Equal(t, "1.0.1", next.Format(csemver.SemVer))

	next, ok = rv.nearestHigher(csemver.MustParse("1.0.0"), csemver.MustParse("1.0.1"))
	require.True(t, ok)
	require.Equal(t, "1.1.0", next.Format(csemver.SemVer))

	next, ok = rv.nearestHigher(csemver.Version{}, csemver.Version{})
	require.True(t, ok)
	require.Equal(t, "1.0.0", next.Format(csemver.SemVer))

	_, ok = rv.nearestHigher(csemver.MustParse("2.0.0"), csemver.Version{})
	require.False(t, ok)
}
