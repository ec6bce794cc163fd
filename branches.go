package csvers

import (
	"context"
	"fmt"
	"runtime"

	"github.com/go-git/go-git/v5/plumbing"
	"golang.org/x/sync/errgroup"

	"github.com/jaxxstorm/csvers/internal/errors"
)

// CalculateBranches computes the version of the tip of each branch. When
// branches is empty, every branch of Options.Branches is evaluated. Each
// evaluation has its own registry and caches; git reads are shared.
func CalculateBranches(ctx context.Context, opts Options, branches []string) (map[string]*RepositoryInfo, error) {
	if opts.Repository == nil {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "repository is required")
	}
	if len(branches) == 0 {
		branches = opts.sortedBranches()
	}
	reader := newGitReader(opts.Repository)
	results := make([]*RepositoryInfo, len(branches))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, branch := range branches {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			branchOpts := opts
			branchOpts.Commitish = plumbing.Revision(plumbing.NewBranchReferenceName(branch))
			branchOpts.Branch = branch
			info, err := calculate(reader, branchOpts)
			if err != nil {
				return fmt.Errorf("calculating version of branch %q: %w", branch, err)
			}
			results[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*RepositoryInfo, len(branches))
	for i, branch := range branches {
		out[branch] = results[i]
	}
	return out, nil
}
