package csvers

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"

	"github.com/jaxxstorm/csvers/internal/logging"
)

var testSignature = &object.Signature{
	Name:  "test",
	Email: "test@example.com",
	When:  time.Now(),
}

// testEpoch is the date of the first commit of a testGraph.
var testEpoch = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// testRepoCreate creates a new in-memory git repository for testing
func testRepoCreate() (*git.Repository, error) {
	storage := memory.NewStorage()
	fs := memfs.New()
	return git.Init(storage, fs)
}

// testRepoFSCreate creates a new filesystem-based git repository for testing
func testRepoFSCreate(path string) (*git.Repository, error) {
	fs := osfs.New(path)
	storage := filesystem.NewStorage(fs, nil)
	return git.Init(storage, fs)
}

// testRepoSingleCommit adds a single commit to the repository and returns the commit hash
func testRepoSingleCommit(repo *git.Repository) (plumbing.Hash, error) {
	workTree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	err = writeFile(workTree.Filesystem, "test.txt", "Hello world")
	if err != nil {
		return plumbing.ZeroHash, err
	}

	_, err = workTree.Add("test.txt")
	if err != nil {
		return plumbing.ZeroHash, err
	}

	return workTree.Commit("Initial commit", &git.CommitOptions{Author: testSignature})
}

// testRepoWithTags commits one file per tag through the worktree and tags
// each commit, oldest first.
func testRepoWithTags(repo *git.Repository, tags []string) ([]plumbing.Hash, error) {
	workTree, err := repo.Worktree()
	if err != nil {
		return nil, err
	}

	var commits []plumbing.Hash
	for _, tag := range tags {
		filename := "file_" + tag + ".txt"
		if err := writeFile(workTree.Filesystem, filename, "Content for "+tag); err != nil {
			return nil, err
		}
		if _, err := workTree.Add(filename); err != nil {
			return nil, err
		}
		commitHash, err := workTree.Commit("Commit for "+tag, &git.CommitOptions{Author: testSignature})
		if err != nil {
			return nil, err
		}
		if _, err := repo.CreateTag(tag, commitHash, nil); err != nil {
			return nil, err
		}
		commits = append(commits, commitHash)
	}
	return commits, nil
}

// writeFile writes content to a file in the given filesystem
func writeFile(fs billy.Filesystem, filename, content string) error {
	file, err := fs.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.Write([]byte(content))
	return err
}

// testGraph builds commit graphs object by object in a bare in-memory
// repository, so that several commits can share the same tree.
type testGraph struct {
	t     *testing.T
	repo  *git.Repository
	clock time.Time
}

func newTestGraph(t *testing.T) *testGraph {
	t.Helper()
	repo, err := git.Init(memory.NewStorage(), nil)
	require.NoError(t, err)
	return &testGraph{t: t, repo: repo, clock: testEpoch}
}

func (g *testGraph) store(obj plumbing.EncodedObject) plumbing.Hash {
	g.t.Helper()
	h, err := g.repo.Storer.SetEncodedObject(obj)
	require.NoError(g.t, err)
	return h
}

func (g *testGraph) blob(content string) plumbing.Hash {
	g.t.Helper()
	obj := g.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	require.NoError(g.t, err)
	_, err = w.Write([]byte(content))
	require.NoError(g.t, err)
	require.NoError(g.t, w.Close())
	return g.store(obj)
}

// tree stores a flat tree holding files.
func (g *testGraph) tree(files map[string]string) plumbing.Hash {
	g.t.Helper()
	tree := &object.Tree{}
	for name, content := range files {
		tree.Entries = append(tree.Entries, object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: g.blob(content)})
	}
	sort.Slice(tree.Entries, func(i, j int) bool { return tree.Entries[i].Name < tree.Entries[j].Name })
	obj := g.repo.Storer.NewEncodedObject()
	require.NoError(g.t, tree.Encode(obj))
	return g.store(obj)
}

// commitTree stores a commit of tree. Each commit is one minute after the previous one.
func (g *testGraph) commitTree(tree plumbing.Hash, message string, parents ...plumbing.Hash) plumbing.Hash {
	g.t.Helper()
	sig := object.Signature{Name: "test", Email: "test@example.com", When: g.clock}
	g.clock = g.clock.Add(time.Minute)
	c := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     tree,
		ParentHashes: parents,
	}
	obj := g.repo.Storer.NewEncodedObject()
	require.NoError(g.t, c.Encode(obj))
	return g.store(obj)
}

// commit stores a commit whose tree holds a single file with content.
func (g *testGraph) commit(content string, parents ...plumbing.Hash) plumbing.Hash {
	g.t.Helper()
	return g.commitTree(g.tree(map[string]string{"content.txt": content}), content, parents...)
}

// chain commits n times on top of from and returns the last commit.
func (g *testGraph) chain(from plumbing.Hash, n int, prefix string) plumbing.Hash {
	g.t.Helper()
	for i := 0; i < n; i++ {
		from = g.commit(prefix+"-"+strconv.Itoa(i), from)
	}
	return from
}

func (g *testGraph) tag(name string, commit plumbing.Hash) {
	g.t.Helper()
	_, err := g.repo.CreateTag(name, commit, nil)
	require.NoError(g.t, err)
}

func (g *testGraph) annotatedTag(name string, commit plumbing.Hash) {
	g.t.Helper()
	_, err := g.repo.CreateTag(name, commit, &git.CreateTagOptions{Tagger: testSignature, Message: "Release " + name})
	require.NoError(g.t, err)
}

func (g *testGraph) branch(name string, commit plumbing.Hash) {
	g.t.Helper()
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), commit)
	require.NoError(g.t, g.repo.Storer.SetReference(ref))
}

// checkout points HEAD to a branch, creating it on commit.
func (g *testGraph) checkout(name string, commit plumbing.Hash) {
	g.t.Helper()
	g.branch(name, commit)
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(name))
	require.NoError(g.t, g.repo.Storer.SetReference(head))
}

// detach points HEAD directly to a commit.
func (g *testGraph) detach(commit plumbing.Hash) {
	g.t.Helper()
	require.NoError(g.t, g.repo.Storer.SetReference(plumbing.NewHashReference(plumbing.HEAD, commit)))
}

func (g *testGraph) calculate(opts Options) *RepositoryInfo {
	g.t.Helper()
	opts.Repository = g.repo
	if opts.Logger == nil {
		opts.Logger = testLogger(g.t)
	}
	info, err := Calculate(opts)
	require.NoError(g.t, err)
	return info
}

type testLogWriter struct{ t *testing.T }

func (w testLogWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// testLogger sends debug logs to the test output.
func testLogger(t *testing.T) *slog.Logger {
	return logging.NewTextLogger(testLogWriter{t: t}, "csvers", "test", "debug")
}
