// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package watchdog records an update run across the restart it
// triggers.
//
// The sequence for a restart-class update:
//
//  1. Before Shutdown: Write a State holding the run ID, the target
//     branch, and the commit the working copy was on before checkout.
//  2. The process exits and the supervisor relaunches it from the
//     updated working copy.
//  3. On startup, Check the state file. When the working copy's HEAD
//     differs from State.PreviousCommit, the update landed. When it
//     still matches, the checkout was rolled back or never applied.
//     Either way, report and Clear.
//
// The file is CBOR (see lib/codec), written atomically (temporary
// file, fsync, rename) so readers never see a partial record. Check
// ignores records older than a caller-chosen age so a file left behind
// by an unrelated restart is not mistaken for a fresh update.
package watchdog
