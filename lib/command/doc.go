// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package command runs external programs with a per-invocation working
// directory, environment, and timeout.
//
// [Runner] is the seam between the updater and the operating system:
// lib/git and lib/install take a Runner so tests substitute a recorder
// for real git and package-manager processes. [Exec] is the production
// implementation.
package command
