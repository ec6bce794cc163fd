package csvers

import (
	"log/slog"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/jaxxstorm/csvers/csemver"
)

// BasicCommitInfo is the best version reachable from a commit.
type BasicCommitInfo struct {
	// CommitSha is the commit the information is about.
	CommitSha plumbing.Hash
	// BestCommit is the tagged commit BestTag comes from. It is nil when no
	// version is reachable.
	BestCommit *TagCommit
	// BestTag is the greatest version carried by the commit, its content or
	// its ancestors. It is not valid when none exists.
	BestTag csemver.Version
	// BelowDepth is the length of the longest path from the commit down to
	// the commit carrying BestTag (0 when the commit itself, or its content,
	// carries it).
	BelowDepth int
}

// HasBest reports whether a version is reachable.
func (b *BasicCommitInfo) HasBest() bool { return b.BestCommit != nil }

// CommitInfo is everything known about a commit's versions.
type CommitInfo struct {
	CommitSha plumbing.Hash
	// ThisTag is the version the commit is tagged with, if any.
	ThisTag csemver.Version
	// BasicInfo is the best version reachable from the commit.
	BasicInfo *BasicCommitInfo
	// PossibleVersions are the versions the commit may be tagged with. When
	// the commit is tagged they are computed as if ThisTag did not exist.
	PossibleVersions []csemver.Version
	// NextPossibleVersions are the versions a direct child of the commit may
	// be tagged with.
	NextPossibleVersions []csemver.Version
}

// IsPossibleVersion reports whether v belongs to PossibleVersions.
func (c *CommitInfo) IsPossibleVersion(v csemver.Version) bool {
	for _, p := range c.PossibleVersions {
		if p.Equal(v) {
			return true
		}
	}
	return false
}

// commitSource provides the commit graph.
type commitSource interface {
	commit(hash plumbing.Hash) (*commitNode, error)
}

type resolveKey struct {
	commit   plumbing.Hash
	excluded int64
}

// resolver answers commit queries against one RepositoryVersions. Its cache is
// tied to the filters it has been created with.
type resolver struct {
	src         commitSource
	versions    *RepositoryVersions
	floor       csemver.Version
	singleMajor *int
	onlyPatch   bool
	log         *slog.Logger

	cache map[resolveKey]*BasicCommitInfo
}

func newResolver(src commitSource, versions *RepositoryVersions, floor csemver.Version, singleMajor *int, onlyPatch bool, log *slog.Logger) *resolver {
	return &resolver{
		src:         src,
		versions:    versions,
		floor:       floor,
		singleMajor: singleMajor,
		onlyPatch:   onlyPatch,
		log:         log,
		cache:       make(map[resolveKey]*BasicCommitInfo),
	}
}

// basicInfo resolves the best version reachable from hash, ignoring the
// excluded version. Ancestors are visited in post-order without recursion.
func (r *resolver) basicInfo(hash plumbing.Hash, excluded csemver.Version) (*BasicCommitInfo, error) {
	ex := excluded.Ordered()
	root := resolveKey{commit: hash, excluded: ex}
	if info, ok := r.cache[root]; ok {
		return info, nil
	}

	type frame struct {
		node     *commitNode
		expanded bool
	}
	node, err := r.src.commit(hash)
	if err != nil {
		return nil, err
	}
	stack := []frame{{node: node}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		key := resolveKey{commit: top.node.Hash, excluded: ex}
		if _, done := r.cache[key]; done {
			stack = stack[:len(stack)-1]
			continue
		}
		if !top.expanded {
			top.expanded = true
			current := top.node
			// Pushed in reverse so the first parent is resolved first.
			for i := len(current.Parents) - 1; i >= 0; i-- {
				p := current.Parents[i]
				if _, done := r.cache[resolveKey{commit: p, excluded: ex}]; done {
					continue
				}
				parent, err := r.src.commit(p)
				if err != nil {
					return nil, err
				}
				stack = append(stack, frame{node: parent})
			}
			continue
		}
		r.cache[key] = r.combine(top.node, excluded)
		stack = stack[:len(stack)-1]
	}
	return r.cache[root], nil
}

// combine computes the information of node once its parents are resolved. A
// local tag wins unless a parent reaches a strictly greater version. Between
// parents the greater version wins, then the deeper one, then the first one.
func (r *resolver) combine(node *commitNode, excluded csemver.Version) *BasicCommitInfo {
	ex := excluded.Ordered()
	info := &BasicCommitInfo{CommitSha: node.Hash}
	local := false
	if tc := r.versions.content.best(node.Tree, excluded); tc != nil {
		info.BestCommit = tc
		info.BestTag = tc.ThisTag
		local = true
	}
	for _, p := range node.Parents {
		parent := r.cache[resolveKey{commit: p, excluded: ex}]
		if parent == nil || !parent.HasBest() {
			continue
		}
		depth := parent.BelowDepth + 1
		switch {
		case !info.HasBest(), info.BestTag.Less(parent.BestTag):
		case !local && parent.BestTag.Equal(info.BestTag) && depth > info.BelowDepth:
		default:
			continue
		}
		info.BestCommit = parent.BestCommit
		info.BestTag = parent.BestTag
		info.BelowDepth = depth
		local = false
	}
	return info
}

// possibleVersions lists the successors of base that are still available:
// above the floor, in the single major when one is set and below the nearest
// version already released anywhere in the repository.
func (r *resolver) possibleVersions(base, excluded csemver.Version) []csemver.Version {
	var candidates []csemver.Version
	if !base.IsValid() && r.floor.IsValid() {
		candidates = []csemver.Version{r.floor}
	} else {
		candidates = base.GetDirectSuccessors(r.onlyPatch)
	}
	upper, hasUpper := r.versions.nearestHigher(base, excluded)

	var out []csemver.Version
	for _, v := range candidates {
		if r.floor.IsValid() && v.Less(r.floor) {
			continue
		}
		if r.singleMajor != nil && v.Major() != *r.singleMajor {
			continue
		}
		if hasUpper && !v.Less(upper) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// commitInfo resolves everything about one commit.
func (r *resolver) commitInfo(hash plumbing.Hash) (*CommitInfo, error) {
	basic, err := r.basicInfo(hash, csemver.Version{})
	if err != nil {
		return nil, err
	}
	info := &CommitInfo{
		CommitSha:            hash,
		BasicInfo:            basic,
		NextPossibleVersions: r.possibleVersions(basic.BestTag, csemver.Version{}),
	}
	tc, tagged := r.versions.TagCommitOf(hash)
	if !tagged {
		info.PossibleVersions = info.NextPossibleVersions
		r.log.Debug("resolved untagged commit", "commit", hash.String(), "best", basic.BestTag.String(), "depth", basic.BelowDepth)
		return info, nil
	}

	info.ThisTag = tc.ThisTag
	previous, err := r.basicInfo(hash, tc.ThisTag)
	if err != nil {
		return nil, err
	}
	info.PossibleVersions = r.possibleVersions(previous.BestTag, tc.ThisTag)
	r.log.Debug("resolved tagged commit", "commit", hash.String(), "tag", tc.ThisTag.String(), "previous", previous.BestTag.String())
	return info, nil
}
