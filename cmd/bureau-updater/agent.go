// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/bureau-foundation/updater/lib/alert"
	"github.com/bureau-foundation/updater/lib/changeset"
	"github.com/bureau-foundation/updater/lib/clock"
	"github.com/bureau-foundation/updater/lib/config"
	"github.com/bureau-foundation/updater/lib/git"
	"github.com/bureau-foundation/updater/lib/install"
	"github.com/bureau-foundation/updater/lib/schema/forge"
	"github.com/bureau-foundation/updater/lib/update"
)

// pipeline runs one update. Satisfied by *update.Orchestrator.
type pipeline interface {
	Handle(ctx context.Context, branch string, commits []changeset.Commit) update.Outcome
}

// notifier sends event alerts. Satisfied by *alert.Notifier.
type notifier interface {
	Notify(ctx context.Context, event *forge.Event)
}

// components is everything a reload replaces.
type components struct {
	config   *config.Config
	notifier notifier
	pipeline pipeline
}

// buildFunc assembles components from a loaded config.
type buildFunc func(cfg *config.Config) (*components, error)

// agent routes webhook events to alerts and the update pipeline.
type agent struct {
	ctx    context.Context
	load   func() (*config.Config, error)
	build  buildFunc
	logger *slog.Logger

	// onReload runs after a successful reload with the new config.
	onReload func(*config.Config)

	mu      sync.RWMutex
	current *components

	// runs tracks in-flight pipeline goroutines.
	runs sync.WaitGroup

	// runMu guards running and pending. At most one drive loop runs
	// at a time; pushes that arrive meanwhile collapse into pending.
	runMu   sync.Mutex
	running bool
	pending *pendingPush
}

// pendingPush is a tracked push waiting for the in-flight run to end.
type pendingPush struct {
	branch  string
	commits []changeset.Commit
}

func newAgent(ctx context.Context, load func() (*config.Config, error), build buildFunc, logger *slog.Logger) (*agent, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	current, err := build(cfg)
	if err != nil {
		return nil, err
	}
	return &agent{
		ctx:     ctx,
		load:    load,
		build:   build,
		logger:  logger,
		current: current,
	}, nil
}

func (a *agent) components() *components {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// HandleEvent is the webhook OnEvent callback. It never blocks on the
// update pipeline.
func (a *agent) HandleEvent(event *forge.Event) {
	current := a.components()

	if event.Kind == forge.KindPush && event.Push.Deleted {
		a.logger.Debug("ignoring branch deletion", "repo", event.Repo(), "ref", event.Push.Ref)
		return
	}

	current.notifier.Notify(a.ctx, event)

	branch, ok := a.shouldUpdate(current.config, event)
	if !ok {
		return
	}
	commits := append([]changeset.Commit(nil), event.Push.Commits...)

	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.running {
		switch {
		case a.pending != nil && a.pending.branch == branch:
			a.pending.commits = append(a.pending.commits, commits...)
		default:
			if a.pending != nil {
				a.logger.Info("superseding queued update", "repo", event.Repo(), "dropped_branch", a.pending.branch, "branch", branch)
			}
			a.pending = &pendingPush{branch: branch, commits: commits}
		}
		a.logger.Info("update in progress, queued push", "repo", event.Repo(), "branch", branch, "queued_commits", len(a.pending.commits))
		return
	}
	a.running = true
	a.runs.Add(1)
	go a.drive(branch, commits)
}

// drive runs the pipeline for branch, then for whatever push queued up
// while it ran. A queued push is dropped once a run restarts the
// process or the agent is shutting down.
func (a *agent) drive(branch string, commits []changeset.Commit) {
	defer a.runs.Done()
	for {
		outcome := a.components().pipeline.Handle(a.ctx, branch, commits)

		a.runMu.Lock()
		next := a.pending
		a.pending = nil
		if next == nil || outcome.Phase == update.PhaseRestarted || a.ctx.Err() != nil {
			a.running = false
			a.runMu.Unlock()
			if next != nil {
				a.logger.Info("dropping queued update, shutting down", "branch", next.branch, "queued_commits", len(next.commits))
			}
			return
		}
		a.runMu.Unlock()

		branch, commits = next.branch, next.commits
		a.logger.Info("running queued update", "branch", branch, "queued_commits", len(commits))
	}
}

// shouldUpdate reports whether event drives the pipeline, and for
// which branch.
func (a *agent) shouldUpdate(cfg *config.Config, event *forge.Event) (string, bool) {
	if event.Kind != forge.KindPush {
		return "", false
	}
	push := event.Push
	if push.IsTag {
		a.logger.Debug("ignoring tag push", "repo", event.Repo(), "ref", push.Ref)
		return "", false
	}
	if event.Repo() != cfg.Repository {
		a.logger.Debug("push to untracked repository", "repo", event.Repo(), "tracked", cfg.Repository)
		return "", false
	}
	if !cfg.Branch.Tracks(push.Branch) {
		a.logger.Debug("push to untracked branch", "repo", event.Repo(), "branch", push.Branch, "tracked", cfg.Branch.String())
		return "", false
	}
	return push.Branch, true
}

// Reload re-reads the config and swaps in freshly built components.
// On failure the running components stay in place.
func (a *agent) Reload() {
	cfg, err := a.load()
	if err != nil {
		a.logger.Error("reload failed, keeping current configuration", "error", err)
		return
	}
	next, err := a.build(cfg)
	if err != nil {
		a.logger.Error("reload failed, keeping current configuration", "error", err)
		return
	}

	a.mu.Lock()
	a.current = next
	a.mu.Unlock()

	if a.onReload != nil {
		a.onReload(cfg)
	}
	a.logger.Info("configuration reloaded",
		"repository", cfg.Repository,
		"branch", cfg.Branch.String(),
		"auto_update", cfg.AutoUpdate,
	)
}

// Wait blocks until every started pipeline run has returned.
func (a *agent) Wait() {
	a.runs.Wait()
}

// newBuilder returns the production buildFunc.
func newBuilder(host update.Host, clk clock.Clock, logger *slog.Logger) buildFunc {
	return func(cfg *config.Config) (*components, error) {
		root, err := filepath.Abs(cfg.WorkDir)
		if err != nil {
			return nil, fmt.Errorf("resolving work_dir: %w", err)
		}

		// A nil Repository makes every run abort as not-a-repository,
		// matching a deployment that is not a git checkout.
		var repository update.Repository
		opened, err := git.Open(root, git.WithTimeout(cfg.Update.CommandTimeout))
		if err != nil {
			logger.Warn("work_dir is not a git working copy, updates disabled", "work_dir", root, "error", err)
		} else {
			repository = opened
		}

		installer := install.New(install.Config{
			Command:     cfg.Update.InstallCommand,
			Timeout:     cfg.Update.InstallTimeout,
			Concurrency: cfg.Update.InstallConcurrency,
			Logger:      logger,
		})

		orchestrator := update.New(update.Config{
			AutoUpdate:        cfg.AutoUpdate,
			Root:              root,
			SubprojectPattern: cfg.Update.SubprojectGlob,
			Rules:             cfg.Rules(),
			Repository:        repository,
			Installer:         installer,
			Host:              host,
			WatchdogPath:      cfg.WatchdogPath(),
			Clock:             clk,
			Logger:            logger,
		})

		return &components{
			config:   cfg,
			notifier: alert.NewNotifier(alert.LogSink{Logger: logger}, cfg.Events, logger),
			pipeline: orchestrator,
		}, nil
	}
}
