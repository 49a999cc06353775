// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package update runs the self-update pipeline for one triggering
// push:
//
//	Idle → Deciding → Fetching → CheckingOut → InstallingDeps → Finalizing
//	     → Restarted | Reloaded | Aborted
//
// Deciding compares the pushed branch with the working copy's branch
// and classifies the commits (see lib/changeset). Fetching and
// CheckingOut bring the working copy to the remote branch (a fetch
// error leaves the trace at Fetching); failure
// there aborts the run without touching the host, so the process never
// restarts into a half-updated checkout. InstallingDeps reinstalls
// dependencies for the root project and every discovered sub-project
// concurrently and waits for all of them; install failures are logged
// and do not stop the run. Finalizing issues exactly one host action:
// Shutdown when the change cannot be reloaded in place, Reload
// otherwise.
//
// An [Orchestrator] runs one pipeline at a time. A call to Handle
// while another is in flight returns immediately with
// [ErrRunInProgress]. Callers that want pushes arriving mid-run to be
// applied must serialize them; the orchestrator does not queue.
package update
