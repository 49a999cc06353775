// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package install

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/updater/lib/command"
	"github.com/bureau-foundation/updater/lib/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// blockingRunner records each invocation's directory and blocks until
// released, so tests can observe how many installs run at once.
type blockingRunner struct {
	mu       sync.Mutex
	dirs     []string
	started  chan string
	release  chan struct{}
	running  atomic.Int32
	peak     atomic.Int32
	failures map[string]bool
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan string, 64),
		release: make(chan struct{}),
	}
}

func (r *blockingRunner) Run(ctx context.Context, cmd command.Command) (command.Result, error) {
	r.mu.Lock()
	r.dirs = append(r.dirs, cmd.Dir)
	r.mu.Unlock()

	current := r.running.Add(1)
	for {
		peak := r.peak.Load()
		if current <= peak || r.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	r.started <- cmd.Dir
	<-r.release
	r.running.Add(-1)

	if r.failures[cmd.Dir] {
		return command.Result{ExitCode: 1}, errors.New("exit status 1")
	}
	return command.Result{}, nil
}

func TestInstall_UsesDirectoryAndCommand(t *testing.T) {
	var got command.Command
	runner := runnerFunc(func(_ context.Context, cmd command.Command) (command.Result, error) {
		got = cmd
		return command.Result{}, nil
	})
	installer := New(Config{Command: []string{"pnpm", "install", "--frozen-lockfile"}, Runner: runner, Logger: discardLogger()})

	if err := installer.Install(context.Background(), "/srv/app/plugins/irc"); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if got.Name != "pnpm" || !slices.Equal(got.Args, []string{"install", "--frozen-lockfile"}) {
		t.Errorf("command = %s, want pnpm install --frozen-lockfile", got)
	}
	if got.Dir != "/srv/app/plugins/irc" {
		t.Errorf("Dir = %q, want /srv/app/plugins/irc", got.Dir)
	}
	if got.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", got.Timeout, DefaultTimeout)
	}
}

func TestInstall_Failure(t *testing.T) {
	runner := runnerFunc(func(context.Context, command.Command) (command.Result, error) {
		return command.Result{ExitCode: 1}, errors.New("exit status 1")
	})
	installer := New(Config{Runner: runner, Logger: discardLogger()})

	err := installer.Install(context.Background(), "/srv/app")
	if !errors.Is(err, ErrInstallFailed) {
		t.Fatalf("Install error = %v, want ErrInstallFailed", err)
	}
}

func TestInstallAll_RunsConcurrentlyAndWaitsForAll(t *testing.T) {
	runner := newBlockingRunner()
	installer := New(Config{Runner: runner, Logger: discardLogger()})
	dirs := []string{"/srv/app", "/srv/app/plugins/a", "/srv/app/plugins/b"}

	done := make(chan []Result, 1)
	go func() { done <- installer.InstallAll(context.Background(), dirs) }()

	// All three start before any is released: they run concurrently.
	for range dirs {
		testutil.RequireReceive(t, runner.started, 5*time.Second, "install start")
	}
	select {
	case <-done:
		t.Fatal("InstallAll returned before installs finished")
	default:
	}
	close(runner.release)

	results := testutil.RequireReceive(t, done, 5*time.Second, "InstallAll result")
	if runner.peak.Load() != 3 {
		t.Errorf("peak concurrency = %d, want 3", runner.peak.Load())
	}
	for index, result := range results {
		if result.Dir != dirs[index] {
			t.Errorf("results[%d].Dir = %q, want %q", index, result.Dir, dirs[index])
		}
		if result.Err != nil {
			t.Errorf("results[%d].Err = %v", index, result.Err)
		}
	}
}

func TestInstallAll_FailureDoesNotStopSiblings(t *testing.T) {
	runner := newBlockingRunner()
	runner.failures = map[string]bool{"/srv/app/plugins/a": true}
	close(runner.release)
	installer := New(Config{Runner: runner, Logger: discardLogger()})
	dirs := []string{"/srv/app", "/srv/app/plugins/a", "/srv/app/plugins/b"}

	results := installer.InstallAll(context.Background(), dirs)

	if len(runner.dirs) != 3 {
		t.Fatalf("installs run = %d, want 3", len(runner.dirs))
	}
	if !errors.Is(results[1].Err, ErrInstallFailed) {
		t.Errorf("results[1].Err = %v, want ErrInstallFailed", results[1].Err)
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("sibling results = %v, %v, want nil", results[0].Err, results[2].Err)
	}
}

func TestInstallAll_ConcurrencyLimit(t *testing.T) {
	runner := newBlockingRunner()
	installer := New(Config{Runner: runner, Concurrency: 1, Logger: discardLogger()})
	dirs := []string{"/a", "/b", "/c"}

	done := make(chan []Result, 1)
	go func() { done <- installer.InstallAll(context.Background(), dirs) }()
	for range dirs {
		testutil.RequireReceive(t, runner.started, 5*time.Second, "install start")
		runner.release <- struct{}{}
	}
	testutil.RequireReceive(t, done, 5*time.Second, "InstallAll result")

	if runner.peak.Load() != 1 {
		t.Errorf("peak concurrency = %d, want 1", runner.peak.Load())
	}
}

func TestInstallAll_Empty(t *testing.T) {
	installer := New(Config{Runner: newBlockingRunner(), Logger: discardLogger()})
	if results := installer.InstallAll(context.Background(), nil); len(results) != 0 {
		t.Errorf("InstallAll(nil) = %v, want empty", results)
	}
}

// Real processes: each install writes a marker into its own working
// directory, proving the directory is fixed per invocation.
func TestInstallAll_RealProcessesUseOwnDirectory(t *testing.T) {
	root := t.TempDir()
	var dirs []string
	for _, name := range []string{"root", "one", "two", "three"} {
		dir := filepath.Join(root, name)
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		dirs = append(dirs, dir)
	}
	installer := New(Config{
		Command: []string{"sh", "-c", "pwd > installed.marker"},
		Timeout: 10 * time.Second,
		Logger:  discardLogger(),
	})

	for _, result := range installer.InstallAll(context.Background(), dirs) {
		if result.Err != nil {
			t.Fatalf("install in %s: %v", result.Dir, result.Err)
		}
	}
	for _, dir := range dirs {
		if _, err := os.Stat(filepath.Join(dir, "installed.marker")); err != nil {
			t.Errorf("marker missing in %s: %v", dir, err)
		}
	}
}

func TestNew_RequiresLogger(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New without Logger should panic")
		}
	}()
	New(Config{})
}

type runnerFunc func(context.Context, command.Command) (command.Result, error)

func (f runnerFunc) Run(ctx context.Context, cmd command.Command) (command.Result, error) {
	return f(ctx, cmd)
}
