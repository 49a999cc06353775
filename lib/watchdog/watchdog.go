// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watchdog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/updater/lib/codec"
)

// State records an update run that ended in a restart.
type State struct {
	// RunID identifies the update run in logs on both sides of the
	// restart.
	RunID string `cbor:"run_id"`

	// Branch is the branch the run checked out.
	Branch string `cbor:"branch"`

	// PreviousCommit is the working copy's HEAD before checkout.
	PreviousCommit string `cbor:"previous_commit"`

	// Timestamp is when the restart was initiated.
	Timestamp time.Time `cbor:"timestamp"`
}

// Applied reports whether the relaunched process is running a
// different commit than the one the update started from.
func (s State) Applied(currentCommit string) bool {
	return currentCommit != s.PreviousCommit
}

// Write atomically writes a watchdog state file with mode 0600. The
// state goes to a temporary file in the same directory, is fsynced, and
// is renamed into place, so readers never see a partial write. The
// parent directory must already exist.
func Write(path string, state State) error {
	data, err := codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling watchdog state: %w", err)
	}

	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating temporary watchdog file: %w", err)
	}

	// Write, sync, close, in that order. The rename below must only
	// ever publish bytes that are already on disk; if any step fails,
	// remove the temporary file and report the first error.
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary watchdog file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary watchdog file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary watchdog file: %w", err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming watchdog file into place: %w", err)
	}

	// Sync the parent directory to make the rename durable. Without it
	// a power loss between rename and the kernel flushing directory
	// metadata can leave the old file (or none) in place.
	parentDirectory, err := os.Open(filepath.Dir(path))
	if err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}

	return nil
}

// Read reads and decodes a watchdog state file. When the file does not
// exist, the returned error wraps os.ErrNotExist.
func Read(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}

	var state State
	if err := codec.Unmarshal(data, &state); err != nil {
		// Well-formed CBOR of the wrong shape is worth showing to the
		// operator; raw garbage is not.
		if diagnostic, diagErr := codec.Diagnose(data); diagErr == nil {
			return State{}, fmt.Errorf("parsing watchdog file %s (contents %s): %w",
				path, truncateDiagnostic(diagnostic), err)
		}
		return State{}, fmt.Errorf("parsing watchdog file %s: %w", path, err)
	}
	return state, nil
}

// maxDiagnosticLength bounds the CBOR diagnostic quoted in a parse
// error.
const maxDiagnosticLength = 128

func truncateDiagnostic(diagnostic string) string {
	if len(diagnostic) <= maxDiagnosticLength {
		return diagnostic
	}
	return diagnostic[:maxDiagnosticLength] + "..."
}

// Check reads a watchdog state file and reports whether it was written
// within maxAge of now. A missing or stale file returns a zero State
// and false. Any other error (permission denied, corrupt CBOR) is
// returned so the caller can tell "no watchdog" from "watchdog exists
// but unreadable".
func Check(path string, maxAge time.Duration, now time.Time) (State, bool, error) {
	state, err := Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, false, nil
		}
		return State{}, false, err
	}

	if now.Sub(state.Timestamp) > maxAge {
		return State{}, false, nil
	}

	return state, true, nil
}

// Clear removes a watchdog state file. Returns nil when the file does
// not exist.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing watchdog file: %w", err)
	}
	return nil
}
