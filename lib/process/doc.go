// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the updater's exit paths.
//
// Exit codes are part of the supervisor contract: [ExitRestart] asks
// the supervisor to start the binary again after a self-update,
// anything else nonzero is a failure.
package process
