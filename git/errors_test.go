package git

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/stretchr/testify/assert"

	reposyncerrors "github.com/input-output-hk/catalyst-forge-libs/reposync/errors"
)

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(nil, "context"))
	assert.NoError(t, WrapErrorf(nil, "context %s", "arg"))

	err := WrapError(ErrNotRepository, "open /srv/app")
	assert.Equal(t, "open /srv/app: not a git repository", err.Error())
	assert.ErrorIs(t, err, ErrNotRepository)

	err = WrapErrorf(ErrBranchMissing, "%s/%s", "origin", "develop")
	assert.Equal(t, "origin/develop: branch does not exist", err.Error())
	assert.ErrorIs(t, err, ErrBranchMissing)
}

func TestClassifyTransportError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{name: "auth required", err: transport.ErrAuthenticationRequired, sentinel: ErrAuthRequired},
		{name: "auth failed", err: transport.ErrAuthorizationFailed, sentinel: ErrAuthFailed},
		{name: "non fast-forward", err: git.ErrNonFastForwardUpdate, sentinel: ErrNotFastForward},
		{name: "empty remote", err: transport.ErrEmptyRemoteRepository, sentinel: ErrBranchMissing},
		{name: "missing ref", err: git.NoMatchingRefSpecError{}, sentinel: ErrBranchMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyTransportError(fmt.Errorf("remote: %w", tt.err), "clone")
			assert.ErrorIs(t, err, tt.sentinel)
			assert.ErrorIs(t, err, tt.err, "original error must stay in the chain")
		})
	}

	assert.NoError(t, classifyTransportError(nil, "clone"))

	other := errors.New("disk full")
	assert.ErrorIs(t, classifyTransportError(other, "clone"), other)
}

func TestWithCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want reposyncerrors.ErrorCode
	}{
		{name: "auth", err: WrapError(ErrAuthRequired, "clone"), want: reposyncerrors.CodeUnauthorized},
		{name: "missing branch", err: WrapError(ErrBranchMissing, "clone"), want: reposyncerrors.CodeNotFound},
		{name: "missing repository", err: transport.ErrRepositoryNotFound, want: reposyncerrors.CodeNotFound},
		{name: "diverged", err: WrapError(ErrNotFastForward, "pull"), want: reposyncerrors.CodeConflict},
		{name: "invalid", err: ErrInvalidOptions, want: reposyncerrors.CodeInvalidInput},
		{name: "unclassified", err: errors.New("boom"), want: reposyncerrors.CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := withCode(tt.err)
			assert.Equal(t, tt.want, reposyncerrors.GetCode(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, withCode(nil))
}
