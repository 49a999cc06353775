// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"context"
	"errors"
	"fmt"
	"slices"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// State is the position of the working copy. A working copy is
// normally on a branch; when HEAD is detached, Branch is empty and Tag
// names a tag pointing at the checked-out commit, if any.
type State struct {
	Branch string
	Commit string
	Tag    string
}

// State reads the working copy position. The repository files are
// re-read on every call so the result reflects git CLI operations
// performed since the last call.
func (r *Repository) State(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	repository, err := openGoGit(r.dir)
	if err != nil {
		return State{}, err
	}

	head, err := repository.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// Unborn branch: HEAD is symbolic but nothing is committed.
		symbolic, symbolicErr := repository.Reference(plumbing.HEAD, false)
		if symbolicErr != nil {
			return State{}, fmt.Errorf("reading HEAD in %s: %w", r.dir, symbolicErr)
		}
		if symbolic.Target().IsBranch() {
			return State{Branch: symbolic.Target().Short()}, nil
		}
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("reading HEAD in %s: %w", r.dir, err)
	}

	state := State{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		state.Branch = head.Name().Short()
	}
	state.Tag, err = tagAt(repository, head.Hash())
	if err != nil {
		return State{}, fmt.Errorf("reading tags in %s: %w", r.dir, err)
	}
	return state, nil
}

// CurrentBranch returns the checked-out branch, or "" when detached.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	state, err := r.State(ctx)
	return state.Branch, err
}

// CurrentCommit returns the full hash of HEAD.
func (r *Repository) CurrentCommit(ctx context.Context) (string, error) {
	state, err := r.State(ctx)
	return state.Commit, err
}

// CurrentTag returns a tag pointing at HEAD, or "" when there is none.
func (r *Repository) CurrentTag(ctx context.Context) (string, error) {
	state, err := r.State(ctx)
	return state.Tag, err
}

// tagAt returns the alphabetically first tag whose target commit is
// hash. Annotated tags are peeled to their target.
func tagAt(repository *gogit.Repository, hash plumbing.Hash) (string, error) {
	references, err := repository.Tags()
	if err != nil {
		return "", err
	}
	var names []string
	err = references.ForEach(func(reference *plumbing.Reference) error {
		target := reference.Hash()
		if tagObject, err := repository.TagObject(target); err == nil {
			target = tagObject.Target
		}
		if target == hash {
			names = append(names, reference.Name().Short())
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	slices.Sort(names)
	return names[0], nil
}

func openGoGit(dir string) (*gogit.Repository, error) {
	repository, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotARepository, dir, err)
	}
	return repository, nil
}
