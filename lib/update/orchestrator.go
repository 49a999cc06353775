// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package update

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/bureau-foundation/updater/lib/changeset"
	"github.com/bureau-foundation/updater/lib/clock"
	"github.com/bureau-foundation/updater/lib/git"
	"github.com/bureau-foundation/updater/lib/install"
	"github.com/bureau-foundation/updater/lib/subproject"
	"github.com/bureau-foundation/updater/lib/watchdog"
)

// ErrRunInProgress is returned when Handle is called while another run
// is still executing.
var ErrRunInProgress = errors.New("update already in progress")

// Repository is the working copy the pipeline updates. Satisfied by
// *git.Repository.
type Repository interface {
	CurrentBranch(ctx context.Context) (string, error)
	CurrentCommit(ctx context.Context) (string, error)
	Checkout(ctx context.Context, branch string) error
}

// Installer reinstalls dependencies. Satisfied by *install.Installer.
type Installer interface {
	InstallAll(ctx context.Context, dirs []string) []install.Result
}

// Host is the process being updated. Both calls are fire-and-forget.
type Host interface {
	// Shutdown terminates the process so an external supervisor
	// relaunches it from the updated working copy.
	Shutdown(reason string)

	// Reload reinitializes the host's components in place.
	Reload()
}

// DiscoverFunc lists sub-project directories. Matches
// subproject.Discover.
type DiscoverFunc func(root, pattern string) ([]string, error)

// Config configures an Orchestrator.
type Config struct {
	// AutoUpdate gates the whole pipeline. When false every run ends
	// in Deciding → Aborted.
	AutoUpdate bool

	// Root is the deployment root: the working copy directory where
	// the root project's install runs and sub-project discovery
	// starts.
	Root string

	// SubprojectPattern is the discovery glob relative to Root.
	// Defaults to subproject.DefaultPattern.
	SubprojectPattern string

	// Rules classify pushed commits.
	Rules changeset.Rules

	// Repository is the working copy. A nil Repository aborts every
	// run with git.ErrNotARepository.
	Repository Repository

	// Installer runs dependency installs. Required.
	Installer Installer

	// Discover lists sub-projects. Defaults to subproject.Discover.
	Discover DiscoverFunc

	// Host receives the terminal action. Required.
	Host Host

	// WatchdogPath, when set, receives a transition record just
	// before Shutdown so the relaunched process can confirm the
	// update.
	WatchdogPath string

	// Clock timestamps watchdog records. Defaults to clock.Real().
	Clock clock.Clock

	// Logger is the structured logger. Required.
	Logger *slog.Logger
}

// Outcome summarizes one run.
type Outcome struct {
	RunID    string
	Branch   string
	Phase    Phase
	Trace    []Phase
	Decision changeset.Decision
	Installs []install.Result
	Err      error
}

// Orchestrator runs update pipelines.
type Orchestrator struct {
	config  Config
	running atomic.Bool
}

// New creates an Orchestrator. Panics if Installer, Host, or Logger is
// nil.
func New(config Config) *Orchestrator {
	if config.Installer == nil {
		panic("update.New: Installer is required")
	}
	if config.Host == nil {
		panic("update.New: Host is required")
	}
	if config.Logger == nil {
		panic("update.New: Logger is required")
	}
	if config.SubprojectPattern == "" {
		config.SubprojectPattern = subproject.DefaultPattern
	}
	if config.Discover == nil {
		config.Discover = subproject.Discover
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	return &Orchestrator{config: config}
}

// run carries the state of one pipeline execution.
type run struct {
	outcome Outcome
	logger  *slog.Logger
}

func (r *run) enter(phase Phase) {
	r.outcome.Phase = phase
	r.outcome.Trace = append(r.outcome.Trace, phase)
	r.logger.Debug("update phase", "phase", phase.String())
}

func (r *run) abort(err error) Outcome {
	r.outcome.Err = err
	r.enter(PhaseAborted)
	return r.outcome
}

// Handle runs the pipeline for a push of commits to branch and returns
// when the run reaches a terminal phase. Errors are reported through
// the Outcome and the log; Handle never panics on pipeline failures.
func (o *Orchestrator) Handle(ctx context.Context, branch string, commits []changeset.Commit) Outcome {
	r := &run{outcome: Outcome{RunID: uuid.NewString(), Branch: branch}}
	r.logger = o.config.Logger.With("run_id", r.outcome.RunID, "branch", branch)
	r.enter(PhaseIdle)

	if !o.running.CompareAndSwap(false, true) {
		r.logger.Warn("update already in progress, ignoring push")
		return r.abort(ErrRunInProgress)
	}
	defer o.running.Store(false)

	r.logger.Info("handling push", "commits", len(commits))
	r.enter(PhaseDeciding)

	repository := o.config.Repository
	if repository == nil {
		r.logger.Debug("not a git repository, stopping update")
		return r.abort(git.ErrNotARepository)
	}
	currentBranch, err := repository.CurrentBranch(ctx)
	if err != nil {
		r.logger.Error("reading current branch", "error", err)
		return r.abort(err)
	}
	previousCommit, err := repository.CurrentCommit(ctx)
	if err != nil {
		r.logger.Error("reading current commit", "error", err)
		return r.abort(err)
	}

	changingBranch := branch != currentBranch
	shouldUpdate := o.config.AutoUpdate && (len(commits) > 0 || changingBranch)
	r.logger.Debug("update decision inputs",
		"current_branch", currentBranch,
		"changing_branch", changingBranch,
		"auto_update", o.config.AutoUpdate,
		"update", shouldUpdate,
	)
	if !shouldUpdate {
		r.logger.Debug("nothing to update, stopping update")
		return r.abort(nil)
	}

	decision := changeset.Classify(commits, changingBranch, o.config.Rules)
	r.outcome.Decision = decision
	r.logger.Info("updating working copy",
		"must_restart", decision.MustRestart,
		"must_reinstall_deps", decision.MustReinstallDeps,
	)

	// Checkout fetches before switching. A fetch failure leaves the
	// trace at Fetching; anything later is attributed to CheckingOut.
	r.enter(PhaseFetching)
	err = repository.Checkout(ctx, branch)
	if errors.Is(err, git.ErrFetchFailed) {
		r.logger.Error("fetch failed, update aborted", "error", err)
		return r.abort(err)
	}
	r.enter(PhaseCheckingOut)
	if err != nil {
		r.logger.Error("checkout failed, update aborted", "error", err)
		return r.abort(err)
	}

	r.enter(PhaseInstallingDeps)
	if decision.MustReinstallDeps {
		r.outcome.Installs = o.installAll(ctx, r.logger)
	}

	if err := ctx.Err(); err != nil {
		r.logger.Warn("update cancelled before finalizing", "error", err)
		return r.abort(err)
	}

	r.enter(PhaseFinalizing)
	if decision.MustRestart {
		o.recordTransition(r, previousCommit)
		r.enter(PhaseRestarted)
		r.logger.Info("update applied, shutting down for restart")
		o.config.Host.Shutdown(fmt.Sprintf("updating to %s", branch))
		return r.outcome
	}
	r.enter(PhaseReloaded)
	r.logger.Info("update applied, reloading")
	o.config.Host.Reload()
	return r.outcome
}

// installAll installs in the root and every sub-project found after
// checkout. A discovery failure degrades to a root-only install.
func (o *Orchestrator) installAll(ctx context.Context, logger *slog.Logger) []install.Result {
	dirs := []string{o.config.Root}
	subprojects, err := o.config.Discover(o.config.Root, o.config.SubprojectPattern)
	if err != nil {
		logger.Error("sub-project discovery failed, installing root only",
			"pattern", o.config.SubprojectPattern,
			"error", err,
		)
	}
	for _, dir := range subprojects {
		if dir != o.config.Root {
			dirs = append(dirs, dir)
		}
	}

	results := o.config.Installer.InstallAll(ctx, dirs)
	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
		}
	}
	logger.Info("dependency installs finished", "total", len(results), "failed", failed)
	return results
}

func (o *Orchestrator) recordTransition(r *run, previousCommit string) {
	if o.config.WatchdogPath == "" {
		return
	}
	state := watchdog.State{
		RunID:          r.outcome.RunID,
		Branch:         r.outcome.Branch,
		PreviousCommit: previousCommit,
		Timestamp:      o.config.Clock.Now(),
	}
	if err := watchdog.Write(o.config.WatchdogPath, state); err != nil {
		// The restart still goes ahead; only the post-restart
		// confirmation is lost.
		r.logger.Warn("writing update watchdog", "path", o.config.WatchdogPath, "error", err)
	}
}
