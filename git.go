// Package csvers computes CSemVer versions for the commits of a Git repository.
//
// This file contains code adapted from pulumictl (https://github.com/pulumi/pulumictl)
// which is licensed under the Apache License 2.0. See NOTICE file for full attribution.
package csvers

import (
	"errors"
	"fmt"
	"os/exec"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// OpenRepository opens a Git repository at the specified path
func OpenRepository(path string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
}

// commitNode is the part of a commit the version computation needs.
type commitNode struct {
	Hash    plumbing.Hash
	Tree    plumbing.Hash
	Parents []plumbing.Hash
	When    time.Time
}

// rawTag is a tag name and the commit it eventually points to.
type rawTag struct {
	Name   string
	Commit plumbing.Hash
}

// gitReader serializes reads of a repository and caches commit nodes. It can be
// shared by concurrent evaluations.
type gitReader struct {
	mu      sync.Mutex
	repo    *git.Repository
	commits map[plumbing.Hash]*commitNode
}

func newGitReader(repo *git.Repository) *gitReader {
	return &gitReader{
		repo:    repo,
		commits: make(map[plumbing.Hash]*commitNode),
	}
}

func (g *gitReader) resolve(rev plumbing.Revision) (plumbing.Hash, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	hash, err := g.repo.ResolveRevision(rev)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolving commitish %q: %w", rev, err)
	}
	return *hash, nil
}

func (g *gitReader) commit(hash plumbing.Hash) (*commitNode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if node, ok := g.commits[hash]; ok {
		return node, nil
	}
	c, err := g.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("getting commit object %s: %w", hash, err)
	}
	node := &commitNode{
		Hash:    c.Hash,
		Tree:    c.TreeHash,
		Parents: append([]plumbing.Hash(nil), c.ParentHashes...),
		When:    c.Committer.When,
	}
	g.commits[hash] = node
	return node, nil
}

// tags lists every tag that resolves to a commit, following chains of
// annotated tags, sorted by name.
func (g *gitReader) tags(tagFilter func(string) bool) ([]rawTag, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	iter, err := g.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer iter.Close()

	var tags []rawTag
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if tagFilter != nil && !tagFilter(name) {
			return nil
		}
		target, ok, err := g.peelToCommit(ref.Hash())
		if err != nil {
			return fmt.Errorf("resolving tag %q: %w", name, err)
		}
		if ok {
			tags = append(tags, rawTag{Name: name, Commit: target})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

// peelToCommit follows annotated tags until a commit. Tags on trees or blobs
// are reported with ok false.
func (g *gitReader) peelToCommit(hash plumbing.Hash) (plumbing.Hash, bool, error) {
	for {
		obj, err := g.repo.TagObject(hash)
		switch {
		case err == nil:
			if obj.TargetType == plumbing.TagObject {
				hash = obj.Target
				continue
			}
			if obj.TargetType != plumbing.CommitObject {
				return plumbing.ZeroHash, false, nil
			}
			return obj.Target, true, nil
		case errors.Is(err, plumbing.ErrObjectNotFound):
			// Lightweight tag
			if _, err := g.repo.CommitObject(hash); err != nil {
				if errors.Is(err, plumbing.ErrObjectNotFound) {
					return plumbing.ZeroHash, false, nil
				}
				return plumbing.ZeroHash, false, err
			}
			return hash, true, nil
		default:
			return plumbing.ZeroHash, false, err
		}
	}
}

// headBranch returns the short name of the branch HEAD points to, or "" when
// HEAD is detached.
func (g *gitReader) headBranch() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	head, err := g.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	if head.Type() == plumbing.SymbolicReference && head.Target().IsBranch() {
		return head.Target().Short(), nil
	}
	return "", nil
}

// isBranch reports whether rev is the short name of a local branch.
func (g *gitReader) isBranch(rev plumbing.Revision) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, err := g.repo.Reference(plumbing.NewBranchReferenceName(string(rev)), false)
	return err == nil
}

func (g *gitReader) isDirty() (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return workTreeIsDirty(g.repo)
}

// tagVersionText strips module prefixes ("sdk/v1.2.0") so that only the
// version part of a tag name is parsed.
func tagVersionText(tag string) string {
	_, versionComponent := path.Split(tag)
	return versionComponent
}

func workTreeIsDirty(repo *git.Repository) (bool, error) {
	workTree, err := repo.Worktree()
	if err != nil {
		if errors.Is(err, git.ErrIsBareRepository) {
			return false, nil
		}
		return false, fmt.Errorf("getting worktree: %w", err)
	}

	// Fast path for filesystem storage
	if _, ok := repo.Storer.(*filesystem.Storage); ok {
		return checkDirtyWithGitCommand(workTree.Filesystem.Root())
	}

	// Fallback to go-git status check
	status, err := workTree.Status()
	if err != nil {
		return false, fmt.Errorf("getting git status: %w", err)
	}

	return !status.IsClean(), nil
}

func checkDirtyWithGitCommand(repoPath string) (bool, error) {
	// Refresh index first
	cmd := exec.Command("git", "update-index", "-q", "--refresh")
	cmd.Dir = repoPath
	if err := cmd.Run(); err != nil {
		// If update-index fails, assume dirty
		return true, nil
	}

	// Check for changes
	cmd = exec.Command("git", "diff-files", "--name-status", "--ignore-space-at-eol")
	cmd.Dir = repoPath
	output, err := cmd.Output()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return true, nil
		}
		return false, err
	}

	return len(output) > 0, nil
}
