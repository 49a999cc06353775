// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package git drives the single working copy the updater deploys from.
// Mutating operations (fetch, checkout, reset) shell out to the git CLI
// so they honor the operator's credentials, hooks, and configuration.
// Every CLI invocation targets the working copy through "git -C <dir>";
// there is no default directory. Read-only introspection (current
// branch, commit, tag) goes through go-git, which reads the repository
// files directly without spawning a process.
package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/bureau-foundation/updater/lib/command"
)

var (
	// ErrNotARepository means the git binary is missing from PATH or
	// the directory is not inside a working copy. Nothing was changed.
	ErrNotARepository = errors.New("not a git repository")

	// ErrFetchFailed wraps a failed "git fetch".
	ErrFetchFailed = errors.New("git fetch failed")

	// ErrCheckoutFailed wraps a failed branch switch.
	ErrCheckoutFailed = errors.New("git checkout failed")

	// ErrResetFailed wraps a failed hard reset to the remote branch.
	ErrResetFailed = errors.New("git reset failed")
)

// DefaultTimeout bounds each git subprocess when the caller does not
// configure one.
const DefaultTimeout = 5 * time.Minute

// Repository represents the working copy at a specific directory.
type Repository struct {
	dir     string
	remote  string
	timeout time.Duration
	runner  command.Runner
}

// Option configures a Repository.
type Option func(*Repository)

// WithTimeout bounds each git subprocess. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Repository) { r.timeout = timeout }
}

// WithRemote sets the remote fetched from and reset against. Defaults
// to "origin".
func WithRemote(remote string) Option {
	return func(r *Repository) { r.remote = remote }
}

// WithRunner substitutes the process runner.
func WithRunner(runner command.Runner) Option {
	return func(r *Repository) { r.runner = runner }
}

// Open returns a Repository for the working copy containing dir. It
// fails with [ErrNotARepository] when git is not installed or dir is
// not inside a working copy.
func Open(dir string, options ...Option) (*Repository, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, fmt.Errorf("%w: git binary not found: %v", ErrNotARepository, err)
	}
	if _, err := openGoGit(dir); err != nil {
		return nil, err
	}
	repository := &Repository{
		dir:     dir,
		remote:  "origin",
		timeout: DefaultTimeout,
		runner:  command.Exec{},
	}
	for _, option := range options {
		option(repository)
	}
	return repository, nil
}

// Dir returns the working copy directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Run executes a git command targeting this repository and returns
// stdout. Stderr is included in the error on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	result, err := r.runner.Run(ctx, command.Command{
		Name:    "git",
		Args:    fullArgs,
		Dir:     r.dir,
		Timeout: r.timeout,
	})
	if err != nil {
		return "", err
	}
	return result.Stdout, nil
}

// Fetch updates remote-tracking refs from the configured remote.
func (r *Repository) Fetch(ctx context.Context) error {
	if _, err := r.Run(ctx, "fetch", r.remote); err != nil {
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	return nil
}

// Checkout fetches, switches to branch if the working copy is on a
// different one, and then hard-resets to <remote>/<branch>. The reset
// is skipped only when the working copy resolves to neither a branch
// nor a tag. The first failing step aborts the sequence; its sentinel
// error ([ErrFetchFailed], [ErrCheckoutFailed], [ErrResetFailed]) is
// wrapped in the result.
func (r *Repository) Checkout(ctx context.Context, branch string) error {
	if branch == "" {
		return fmt.Errorf("%w: empty branch name", ErrCheckoutFailed)
	}
	if err := r.Fetch(ctx); err != nil {
		return err
	}

	state, err := r.State(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}
	if state.Branch != branch {
		if _, err := r.Run(ctx, "checkout", "-q", branch); err != nil {
			return fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
		}
		if state, err = r.State(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
		}
	}

	if state.Branch == "" && state.Tag == "" {
		return nil
	}
	if _, err := r.Run(ctx, "reset", "-q", "--hard", r.remote+"/"+branch); err != nil {
		return fmt.Errorf("%w: %w", ErrResetFailed, err)
	}
	return nil
}
