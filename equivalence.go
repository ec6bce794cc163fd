package csvers

import (
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/jaxxstorm/csvers/csemver"
)

// contentGroup gathers the tagged commits sharing the same tree. best and second
// are maintained as members are added.
type contentGroup struct {
	content plumbing.Hash
	best    *TagCommit
	second  *TagCommit
}

func (g *contentGroup) add(tc *TagCommit) {
	tc.group = g
	switch {
	case g.best == nil:
		g.best = tc
	case g.best.ThisTag.Less(tc.ThisTag):
		g.second = g.best
		g.best = tc
	case g.second == nil || g.second.ThisTag.Less(tc.ThisTag):
		g.second = tc
	}
}

// bestExcluding returns the best member whose version is not excluded.
func (g *contentGroup) bestExcluding(excluded csemver.Version) *TagCommit {
	if excluded.IsValid() && g.best.ThisTag.Equal(excluded) {
		return g.second
	}
	return g.best
}

// contentIndex maps tree shas to the group of tagged commits with that content.
type contentIndex struct {
	groups    []*contentGroup
	byContent map[plumbing.Hash]int
}

func newContentIndex() *contentIndex {
	return &contentIndex{byContent: make(map[plumbing.Hash]int)}
}

func (x *contentIndex) add(tc *TagCommit) {
	id, ok := x.byContent[tc.ContentSha]
	if !ok {
		id = len(x.groups)
		x.groups = append(x.groups, &contentGroup{content: tc.ContentSha})
		x.byContent[tc.ContentSha] = id
	}
	x.groups[id].add(tc)
}

// best returns the best tagged commit whose tree is content, ignoring the
// excluded version.
func (x *contentIndex) best(content plumbing.Hash, excluded csemver.Version) *TagCommit {
	id, ok := x.byContent[content]
	if !ok {
		return nil
	}
	return x.groups[id].bestExcluding(excluded)
}
