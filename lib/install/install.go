// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package install runs the dependency-install command for the root
// project and for each sub-project. Installs are best-effort: a failed
// install is reported but never cancels its siblings.
package install

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/updater/lib/command"
)

// ErrInstallFailed wraps a non-zero exit, timeout, or start failure of
// the install command in one directory.
var ErrInstallFailed = errors.New("dependency install failed")

// DefaultCommand is the install command used when none is configured.
var DefaultCommand = []string{"npm", "install"}

// DefaultTimeout bounds a single install when none is configured.
const DefaultTimeout = 10 * time.Minute

// Result is the outcome of installing in one directory.
type Result struct {
	Dir      string
	Duration time.Duration
	Err      error
}

// Installer runs the install command in a given directory.
type Installer struct {
	command     []string
	timeout     time.Duration
	concurrency int
	runner      command.Runner
	logger      *slog.Logger
}

// Config configures an Installer.
type Config struct {
	// Command is the program and arguments. Defaults to DefaultCommand.
	Command []string

	// Timeout bounds each install. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Concurrency limits simultaneous installs in InstallAll. Zero or
	// negative means unlimited.
	Concurrency int

	// Runner executes the command. Defaults to command.Exec.
	Runner command.Runner

	// Logger is the structured logger. Required.
	Logger *slog.Logger
}

// New creates an Installer. Panics if Logger is nil.
func New(config Config) *Installer {
	if config.Logger == nil {
		panic("install.New: Logger is required")
	}
	installer := &Installer{
		command:     config.Command,
		timeout:     config.Timeout,
		concurrency: config.Concurrency,
		runner:      config.Runner,
		logger:      config.Logger,
	}
	if len(installer.command) == 0 {
		installer.command = DefaultCommand
	}
	if installer.timeout == 0 {
		installer.timeout = DefaultTimeout
	}
	if installer.runner == nil {
		installer.runner = command.Exec{}
	}
	return installer
}

// Install runs the install command with dir as its working directory
// and waits for it to exit.
func (i *Installer) Install(ctx context.Context, dir string) error {
	i.logger.Info("installing dependencies", "dir", dir, "command", i.command)
	result, err := i.runner.Run(ctx, command.Command{
		Name:    i.command[0],
		Args:    i.command[1:],
		Dir:     dir,
		Timeout: i.timeout,
	})
	if err != nil {
		i.logger.Error("dependency install failed",
			"dir", dir,
			"exit_code", result.ExitCode,
			"error", err,
		)
		return fmt.Errorf("%w in %s: %w", ErrInstallFailed, dir, err)
	}
	i.logger.Debug("dependencies installed", "dir", dir, "duration", result.Duration)
	return nil
}

// InstallAll installs in every directory concurrently and returns
// once all of them have finished. Results are in the order of dirs.
// A failure in one directory does not stop the others.
func (i *Installer) InstallAll(ctx context.Context, dirs []string) []Result {
	results := make([]Result, len(dirs))
	var group errgroup.Group
	if i.concurrency > 0 {
		group.SetLimit(i.concurrency)
	}
	for index, dir := range dirs {
		group.Go(func() error {
			started := time.Now()
			err := i.Install(ctx, dir)
			results[index] = Result{Dir: dir, Duration: time.Since(started), Err: err}
			// Failures are recorded per directory, never propagated.
			return nil
		})
	}
	group.Wait()
	return results
}
