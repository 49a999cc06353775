// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package command runs external programs for the updater: the git CLI
// and the dependency installer. Every invocation names its working
// directory explicitly. The process-wide current directory is never
// read or changed, so invocations for different directories can run
// concurrently without observing each other.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout is wrapped by Run when a command exceeds its Timeout.
var ErrTimeout = errors.New("command timed out")

// Command describes one program invocation.
type Command struct {
	// Name is the program to run, resolved through PATH.
	Name string

	// Args are passed to the program after Name.
	Args []string

	// Dir is the working directory for the child process. Empty means
	// the child inherits the parent's directory; callers that care
	// always set it.
	Dir string

	// Env entries ("KEY=value") are appended to the parent
	// environment.
	Env []string

	// Timeout bounds the run. Zero means the context alone bounds it.
	Timeout time.Duration
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the outcome of a finished command.
type Result struct {
	// ExitCode is the process exit status, or -1 when the process
	// could not be started or was killed.
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner executes commands. [Exec] is the production implementation;
// tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Exec runs commands with os/exec.
type Exec struct{}

// Run starts the command, waits for it, and captures its output. A
// non-zero exit returns the Result together with an error describing
// the status and the trimmed stderr. Exceeding Timeout kills the child
// and returns an error wrapping [ErrTimeout].
func (Exec) Run(ctx context.Context, cmd Command) (Result, error) {
	runContext := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runContext, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	process := exec.CommandContext(runContext, cmd.Name, cmd.Args...)
	process.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		process.Env = append(os.Environ(), cmd.Env...)
	}
	var stdout, stderr bytes.Buffer
	process.Stdout = &stdout
	process.Stderr = &stderr

	started := time.Now()
	err := process.Run()
	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(started),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case cmd.Timeout > 0 && errors.Is(runContext.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		result.ExitCode = -1
		return result, fmt.Errorf("%s in %s: %w after %s", cmd, cmd.Dir, ErrTimeout, cmd.Timeout)
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		return result, fmt.Errorf("%s in %s: exit status %d: %w (stderr: %s)",
			cmd, cmd.Dir, result.ExitCode, err, strings.TrimSpace(result.Stderr))
	default:
		result.ExitCode = -1
		return result, fmt.Errorf("%s in %s: %w", cmd, cmd.Dir, err)
	}
}
