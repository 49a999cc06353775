// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package changeset inspects a batch of pushed commits and decides how
// disruptive applying them will be: whether the process must restart
// (rather than reload in place) and whether dependencies must be
// reinstalled.
package changeset

import (
	"slices"
	"strings"
)

// Commit is one commit from a push. Paths are repository-relative.
type Commit struct {
	ID       string
	Author   string
	Message  string
	Added    []string
	Modified []string
	Removed  []string
}

// Rules names the files that make a change disruptive.
type Rules struct {
	// HotFiles are entry points that cannot be reloaded in place.
	// Modifying any of them forces a restart. Compared by exact path.
	HotFiles []string

	// Manifest is the dependency manifest filename. Any added or
	// modified path containing it forces a dependency reinstall, so
	// sub-project manifests ("plugins/x/package.json") count too.
	Manifest string
}

// DefaultRules matches the Node.js host layout the updater was built
// for: app.js is the entry point and package.json the manifest.
func DefaultRules() Rules {
	return Rules{
		HotFiles: []string{"app.js"},
		Manifest: "package.json",
	}
}

// Decision is the outcome of classifying a push.
type Decision struct {
	MustRestart       bool
	MustReinstallDeps bool
}

// Classify computes the Decision for commits. A branch change forces
// both flags regardless of commit contents, and the commits are not
// inspected at all in that case.
func Classify(commits []Commit, branchChanging bool, rules Rules) Decision {
	decision := Decision{
		MustRestart:       branchChanging,
		MustReinstallDeps: branchChanging,
	}
	if branchChanging {
		return decision
	}

	for _, commit := range commits {
		for _, path := range commit.Modified {
			if !decision.MustRestart && slices.Contains(rules.HotFiles, path) {
				decision.MustRestart = true
			}
			if !decision.MustReinstallDeps && touchesManifest(path, rules.Manifest) {
				decision.MustReinstallDeps = true
			}
		}
		for _, path := range commit.Added {
			if !decision.MustReinstallDeps && touchesManifest(path, rules.Manifest) {
				decision.MustReinstallDeps = true
			}
		}
		if decision.MustRestart && decision.MustReinstallDeps {
			break
		}
	}
	return decision
}

func touchesManifest(path, manifest string) bool {
	return manifest != "" && strings.Contains(path, manifest)
}
