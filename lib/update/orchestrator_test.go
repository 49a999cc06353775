// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/updater/lib/changeset"
	"github.com/bureau-foundation/updater/lib/clock"
	"github.com/bureau-foundation/updater/lib/command"
	"github.com/bureau-foundation/updater/lib/git"
	"github.com/bureau-foundation/updater/lib/install"
	"github.com/bureau-foundation/updater/lib/testutil"
	"github.com/bureau-foundation/updater/lib/watchdog"
)

const previousCommit = "3f786850e387550fdab836ed7e6dc881de23001b"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRepository is a working copy whose Checkout can fail or block.
type fakeRepository struct {
	branch      string
	checkoutErr error
	block       chan struct{}
	entered     chan struct{}

	mu        sync.Mutex
	checkouts []string
}

func (r *fakeRepository) CurrentBranch(context.Context) (string, error) { return r.branch, nil }

func (r *fakeRepository) CurrentCommit(context.Context) (string, error) { return previousCommit, nil }

func (r *fakeRepository) Checkout(ctx context.Context, branch string) error {
	r.mu.Lock()
	r.checkouts = append(r.checkouts, branch)
	r.mu.Unlock()
	if r.entered != nil {
		r.entered <- struct{}{}
	}
	if r.block != nil {
		<-r.block
	}
	return r.checkoutErr
}

func (r *fakeRepository) checkoutCalls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.checkouts)
}

// recordingRunner stands in for the install command and records the
// directory of every invocation.
type recordingRunner struct {
	failIn string

	mu   sync.Mutex
	dirs []string
}

func (r *recordingRunner) Run(_ context.Context, cmd command.Command) (command.Result, error) {
	r.mu.Lock()
	r.dirs = append(r.dirs, cmd.Dir)
	r.mu.Unlock()
	if cmd.Dir == r.failIn {
		return command.Result{ExitCode: 1}, errors.New("exit status 1")
	}
	return command.Result{}, nil
}

func (r *recordingRunner) installedDirs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	dirs := slices.Clone(r.dirs)
	slices.Sort(dirs)
	return dirs
}

// fakeHost counts terminal actions.
type fakeHost struct {
	mu        sync.Mutex
	shutdowns []string
	reloads   int
}

func (h *fakeHost) Shutdown(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shutdowns = append(h.shutdowns, reason)
}

func (h *fakeHost) Reload() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reloads++
}

func (h *fakeHost) counts() (shutdowns, reloads int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.shutdowns), h.reloads
}

type harness struct {
	root       string
	repository *fakeRepository
	runner     *recordingRunner
	host       *fakeHost
	config     Config
}

// newHarness builds a deployment root with two plugins and an
// orchestrator wired to fakes at the repository, command, and host
// boundaries. Discovery and install are the real implementations.
func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"app.js":                      "",
		"package.json":                "{}",
		"plugins/weather/plugin.json": "{}",
		"plugins/music/plugin.json":   "{}",
		"plugins/notes/README.md":     "",
	})

	h := &harness{
		root:       root,
		repository: &fakeRepository{branch: "main"},
		runner:     &recordingRunner{},
		host:       &fakeHost{},
	}
	h.config = Config{
		AutoUpdate: true,
		Root:       root,
		Rules:      changeset.DefaultRules(),
		Repository: h.repository,
		Installer:  install.New(install.Config{Runner: h.runner, Logger: discardLogger()}),
		Host:       h.host,
		Logger:     discardLogger(),
	}
	return h
}

func (h *harness) orchestrator() *Orchestrator { return New(h.config) }

func commitModifying(paths ...string) changeset.Commit {
	return changeset.Commit{ID: "abc123", Message: "change", Modified: paths}
}

func TestHandle_DocumentationChangeReloads(t *testing.T) {
	h := newHarness(t)

	outcome := h.orchestrator().Handle(context.Background(), "main",
		[]changeset.Commit{commitModifying("README.md")})

	if outcome.Err != nil {
		t.Fatalf("Err = %v", outcome.Err)
	}
	if outcome.Phase != PhaseReloaded {
		t.Errorf("Phase = %v, want %v", outcome.Phase, PhaseReloaded)
	}
	want := []Phase{PhaseIdle, PhaseDeciding, PhaseFetching, PhaseCheckingOut,
		PhaseInstallingDeps, PhaseFinalizing, PhaseReloaded}
	if !slices.Equal(outcome.Trace, want) {
		t.Errorf("Trace = %v, want %v", outcome.Trace, want)
	}
	if got := h.repository.checkoutCalls(); !slices.Equal(got, []string{"main"}) {
		t.Errorf("checkouts = %v, want [main]", got)
	}
	if dirs := h.runner.installedDirs(); len(dirs) != 0 {
		t.Errorf("installs ran in %v, want none", dirs)
	}
	shutdowns, reloads := h.host.counts()
	if shutdowns != 0 || reloads != 1 {
		t.Errorf("shutdowns=%d reloads=%d, want 0 and 1", shutdowns, reloads)
	}
}

func TestHandle_HotFileAndManifestRestartWithInstalls(t *testing.T) {
	h := newHarness(t)

	outcome := h.orchestrator().Handle(context.Background(), "main",
		[]changeset.Commit{commitModifying("app.js", "package.json")})

	if outcome.Phase != PhaseRestarted {
		t.Fatalf("Phase = %v (err %v), want %v", outcome.Phase, outcome.Err, PhaseRestarted)
	}
	if !outcome.Decision.MustRestart || !outcome.Decision.MustReinstallDeps {
		t.Errorf("Decision = %+v, want both flags", outcome.Decision)
	}

	want := []string{
		h.root,
		filepath.Join(h.root, "plugins", "music"),
		filepath.Join(h.root, "plugins", "weather"),
	}
	slices.Sort(want)
	if got := h.runner.installedDirs(); !slices.Equal(got, want) {
		t.Errorf("installs ran in %v, want %v", got, want)
	}
	if len(outcome.Installs) != 3 {
		t.Errorf("len(Installs) = %d, want 3", len(outcome.Installs))
	}

	shutdowns, reloads := h.host.counts()
	if shutdowns != 1 || reloads != 0 {
		t.Errorf("shutdowns=%d reloads=%d, want 1 and 0", shutdowns, reloads)
	}
}

func TestHandle_CheckoutFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.repository.checkoutErr = fmt.Errorf("%w: pathspec 'main' did not match", git.ErrCheckoutFailed)

	outcome := h.orchestrator().Handle(context.Background(), "main",
		[]changeset.Commit{commitModifying("app.js", "package.json")})

	if outcome.Phase != PhaseAborted {
		t.Errorf("Phase = %v, want %v", outcome.Phase, PhaseAborted)
	}
	if !errors.Is(outcome.Err, git.ErrCheckoutFailed) {
		t.Errorf("Err = %v, want ErrCheckoutFailed", outcome.Err)
	}
	if slices.Contains(outcome.Trace, PhaseInstallingDeps) {
		t.Errorf("Trace %v reached installing_deps", outcome.Trace)
	}
	if dirs := h.runner.installedDirs(); len(dirs) != 0 {
		t.Errorf("installs ran in %v, want none", dirs)
	}
	if shutdowns, reloads := h.host.counts(); shutdowns+reloads != 0 {
		t.Errorf("host actions = %d shutdowns %d reloads, want none", shutdowns, reloads)
	}
}

func TestHandle_FetchFailureStopsAtFetching(t *testing.T) {
	h := newHarness(t)
	h.repository.checkoutErr = fmt.Errorf("%w: could not resolve host github.com", git.ErrFetchFailed)

	outcome := h.orchestrator().Handle(context.Background(), "main",
		[]changeset.Commit{commitModifying("app.js")})

	if !errors.Is(outcome.Err, git.ErrFetchFailed) {
		t.Errorf("Err = %v, want ErrFetchFailed", outcome.Err)
	}
	want := []Phase{PhaseIdle, PhaseDeciding, PhaseFetching, PhaseAborted}
	if !slices.Equal(outcome.Trace, want) {
		t.Errorf("Trace = %v, want %v", outcome.Trace, want)
	}
}

func TestHandle_CheckoutFailureTraceIncludesCheckingOut(t *testing.T) {
	h := newHarness(t)
	h.repository.checkoutErr = fmt.Errorf("%w: pathspec 'main' did not match", git.ErrCheckoutFailed)

	outcome := h.orchestrator().Handle(context.Background(), "main",
		[]changeset.Commit{commitModifying("app.js")})

	want := []Phase{PhaseIdle, PhaseDeciding, PhaseFetching, PhaseCheckingOut, PhaseAborted}
	if !slices.Equal(outcome.Trace, want) {
		t.Errorf("Trace = %v, want %v", outcome.Trace, want)
	}
}

func TestHandle_BranchChangeForcesRestartAndReinstall(t *testing.T) {
	h := newHarness(t)

	outcome := h.orchestrator().Handle(context.Background(), "develop", nil)

	if outcome.Phase != PhaseRestarted {
		t.Fatalf("Phase = %v (err %v), want %v", outcome.Phase, outcome.Err, PhaseRestarted)
	}
	if got := h.repository.checkoutCalls(); !slices.Equal(got, []string{"develop"}) {
		t.Errorf("checkouts = %v, want [develop]", got)
	}
	if len(h.runner.installedDirs()) != 3 {
		t.Errorf("installs = %v, want root and two plugins", h.runner.installedDirs())
	}
}

func TestHandle_NothingToUpdate(t *testing.T) {
	tests := []struct {
		name       string
		autoUpdate bool
		branch     string
		commits    []changeset.Commit
	}{
		{"no commits on current branch", true, "main", nil},
		{"auto update disabled", false, "main", []changeset.Commit{commitModifying("app.js")}},
		{"auto update disabled on branch change", false, "develop", nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h := newHarness(t)
			h.config.AutoUpdate = test.autoUpdate

			outcome := h.orchestrator().Handle(context.Background(), test.branch, test.commits)

			if outcome.Phase != PhaseAborted || outcome.Err != nil {
				t.Errorf("Phase = %v Err = %v, want aborted with no error", outcome.Phase, outcome.Err)
			}
			if len(h.repository.checkoutCalls()) != 0 {
				t.Error("Checkout called")
			}
			if shutdowns, reloads := h.host.counts(); shutdowns+reloads != 0 {
				t.Error("host action issued")
			}
		})
	}
}

func TestHandle_NotARepository(t *testing.T) {
	h := newHarness(t)
	h.config.Repository = nil

	outcome := h.orchestrator().Handle(context.Background(), "main",
		[]changeset.Commit{commitModifying("app.js")})

	if !errors.Is(outcome.Err, git.ErrNotARepository) {
		t.Errorf("Err = %v, want ErrNotARepository", outcome.Err)
	}
	if outcome.Phase != PhaseAborted {
		t.Errorf("Phase = %v, want %v", outcome.Phase, PhaseAborted)
	}
}

func TestHandle_ConcurrentRunRejected(t *testing.T) {
	h := newHarness(t)
	h.repository.block = make(chan struct{})
	h.repository.entered = make(chan struct{}, 1)
	orchestrator := h.orchestrator()

	first := make(chan Outcome, 1)
	go func() {
		first <- orchestrator.Handle(context.Background(), "main",
			[]changeset.Commit{commitModifying("README.md")})
	}()
	testutil.RequireReceive(t, h.repository.entered, 5*time.Second, "first run reaching checkout")

	second := orchestrator.Handle(context.Background(), "main",
		[]changeset.Commit{commitModifying("app.js")})
	if !errors.Is(second.Err, ErrRunInProgress) {
		t.Errorf("second Err = %v, want ErrRunInProgress", second.Err)
	}
	if second.Phase != PhaseAborted {
		t.Errorf("second Phase = %v, want %v", second.Phase, PhaseAborted)
	}

	close(h.repository.block)
	outcome := testutil.RequireReceive(t, first, 5*time.Second, "first run finishing")
	if outcome.Phase != PhaseReloaded {
		t.Errorf("first Phase = %v, want %v", outcome.Phase, PhaseReloaded)
	}

	// The guard is released once the first run ends.
	third := orchestrator.Handle(context.Background(), "main",
		[]changeset.Commit{commitModifying("README.md")})
	if errors.Is(third.Err, ErrRunInProgress) {
		t.Error("guard still held after the first run finished")
	}
}

func TestHandle_DiscoveryFailureInstallsRootOnly(t *testing.T) {
	h := newHarness(t)
	h.config.Discover = func(string, string) ([]string, error) {
		return nil, errors.New("bad pattern")
	}

	outcome := h.orchestrator().Handle(context.Background(), "main",
		[]changeset.Commit{commitModifying("package.json")})

	if got := h.runner.installedDirs(); !slices.Equal(got, []string{h.root}) {
		t.Errorf("installs ran in %v, want only the root", got)
	}
	if outcome.Phase != PhaseReloaded {
		t.Errorf("Phase = %v, want %v", outcome.Phase, PhaseReloaded)
	}
}

func TestHandle_InstallFailureDoesNotAbort(t *testing.T) {
	h := newHarness(t)
	h.runner.failIn = filepath.Join(h.root, "plugins", "weather")

	outcome := h.orchestrator().Handle(context.Background(), "main",
		[]changeset.Commit{commitModifying("app.js", "package.json")})

	if outcome.Phase != PhaseRestarted {
		t.Fatalf("Phase = %v, want %v", outcome.Phase, PhaseRestarted)
	}
	failed := 0
	for _, result := range outcome.Installs {
		if result.Err != nil {
			failed++
			if !errors.Is(result.Err, install.ErrInstallFailed) {
				t.Errorf("install error = %v, want ErrInstallFailed", result.Err)
			}
		}
	}
	if failed != 1 {
		t.Errorf("failed installs = %d, want 1", failed)
	}
}

func TestHandle_CancelledBeforeFinalizing(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := h.orchestrator().Handle(ctx, "main",
		[]changeset.Commit{commitModifying("README.md")})

	if outcome.Phase != PhaseAborted || !errors.Is(outcome.Err, context.Canceled) {
		t.Errorf("Phase = %v Err = %v, want aborted with context.Canceled", outcome.Phase, outcome.Err)
	}
	if shutdowns, reloads := h.host.counts(); shutdowns+reloads != 0 {
		t.Error("host action issued after cancellation")
	}
}

func TestHandle_WatchdogWrittenBeforeShutdown(t *testing.T) {
	h := newHarness(t)
	h.config.WatchdogPath = filepath.Join(t.TempDir(), "update.watchdog")
	fake := clock.Fake(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	h.config.Clock = fake

	outcome := h.orchestrator().Handle(context.Background(), "main",
		[]changeset.Commit{commitModifying("app.js")})
	if outcome.Phase != PhaseRestarted {
		t.Fatalf("Phase = %v, want %v", outcome.Phase, PhaseRestarted)
	}

	state, found, err := watchdog.Check(h.config.WatchdogPath, time.Minute, fake.Now())
	if err != nil || !found {
		t.Fatalf("Check = found %v err %v, want a fresh record", found, err)
	}
	if state.RunID != outcome.RunID {
		t.Errorf("RunID = %q, want %q", state.RunID, outcome.RunID)
	}
	if state.PreviousCommit != previousCommit {
		t.Errorf("PreviousCommit = %q, want %q", state.PreviousCommit, previousCommit)
	}
	if state.Branch != "main" {
		t.Errorf("Branch = %q, want main", state.Branch)
	}
}

func TestHandle_ReloadDoesNotWriteWatchdog(t *testing.T) {
	h := newHarness(t)
	h.config.WatchdogPath = filepath.Join(t.TempDir(), "update.watchdog")

	h.orchestrator().Handle(context.Background(), "main",
		[]changeset.Commit{commitModifying("docs/guide.md")})

	if _, found, _ := watchdog.Check(h.config.WatchdogPath, time.Hour, time.Now()); found {
		t.Error("watchdog written for a reload")
	}
}

func TestHandle_RunIDsAreUnique(t *testing.T) {
	h := newHarness(t)
	orchestrator := h.orchestrator()

	first := orchestrator.Handle(context.Background(), "main", nil)
	second := orchestrator.Handle(context.Background(), "main", nil)

	for _, id := range []string{first.RunID, second.RunID} {
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("RunID %q is not a UUID: %v", id, err)
		}
	}
	if first.RunID == second.RunID {
		t.Error("two runs share a RunID")
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	h := newHarness(t)
	for name, mutate := range map[string]func(*Config){
		"installer": func(c *Config) { c.Installer = nil },
		"host":      func(c *Config) { c.Host = nil },
		"logger":    func(c *Config) { c.Logger = nil },
	} {
		t.Run(name, func(t *testing.T) {
			config := h.config
			mutate(&config)
			defer func() {
				if recover() == nil {
					t.Error("New did not panic")
				}
			}()
			New(config)
		})
	}
}

func TestPhaseString(t *testing.T) {
	if got := PhaseInstallingDeps.String(); got != "installing_deps" {
		t.Errorf("String() = %q", got)
	}
	if got := Phase(99).String(); got != "unknown" {
		t.Errorf("String() of out-of-range phase = %q", got)
	}
	for _, phase := range []Phase{PhaseRestarted, PhaseReloaded, PhaseAborted} {
		if !phase.Terminal() {
			t.Errorf("%v.Terminal() = false", phase)
		}
	}
	if PhaseFinalizing.Terminal() {
		t.Error("finalizing reported terminal")
	}
}
