package git

import (
	"context"
	"errors"

	"github.com/go-git/go-git/v5/plumbing"
)

// Head returns the full hash of the commit HEAD points at. It returns
// ErrNoCommits when HEAD is unborn.
func (r *Repo) Head(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", ErrNoCommits
		}
		return "", WrapError(err, "failed to resolve HEAD")
	}

	return head.Hash().String(), nil
}
