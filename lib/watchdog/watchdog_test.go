// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watchdog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/updater/lib/codec"
)

var epoch = time.Date(2026, 2, 10, 15, 30, 0, 0, time.UTC)

func sampleState() State {
	return State{
		RunID:          "4a8f2c1e-6b1d-4b0e-9c55-3e1f7a2d9b10",
		Branch:         "main",
		PreviousCommit: "3f786850e387550fdab836ed7e6dc881de23001b",
		Timestamp:      epoch,
	}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog.cbor")
	state := sampleState()

	if err := Write(path, state); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got.RunID != state.RunID {
		t.Errorf("RunID = %q, want %q", got.RunID, state.RunID)
	}
	if got.Branch != state.Branch {
		t.Errorf("Branch = %q, want %q", got.Branch, state.Branch)
	}
	if got.PreviousCommit != state.PreviousCommit {
		t.Errorf("PreviousCommit = %q, want %q", got.PreviousCommit, state.PreviousCommit)
	}
	if !got.Timestamp.Equal(state.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, state.Timestamp)
	}
}

func TestWriteOverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog.cbor")

	first := sampleState()
	if err := Write(path, first); err != nil {
		t.Fatalf("Write first: %v", err)
	}
	second := sampleState()
	second.Branch = "release"
	if err := Write(path, second); err != nil {
		t.Fatalf("Write second: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Branch != "release" {
		t.Errorf("Branch = %q, want %q (second write should overwrite)", got.Branch, "release")
	}
}

func TestWriteFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog.cbor")
	if err := Write(path, sampleState()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}
}

func TestWriteNoTemporaryFileLeftBehind(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, "watchdog.cbor")
	if err := Write(path, sampleState()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temporary file still present: %v", err)
	}
}

func TestWriteParentDirectoryMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "watchdog.cbor")
	if err := Write(path, sampleState()); err == nil {
		t.Fatal("Write should fail when the parent directory is missing")
	}
}

func TestReadNonexistent(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.cbor"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Read error = %v, want os.ErrNotExist", err)
	}
}

func TestReadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog.cbor")
	if err := os.WriteFile(path, []byte{0xFF, 0x00, 0x13}, 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Read(path)
	if err == nil {
		t.Fatal("Read should fail on corrupt data")
	}
	if !strings.Contains(err.Error(), "parsing watchdog file") {
		t.Errorf("error = %v, want a parsing error", err)
	}
}

func TestReadWrongShapeQuotesContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog.cbor")
	data, err := codec.Marshal([]string{"left", "by", "an", "older", "release"})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	_, err = Read(path)
	if err == nil {
		t.Fatal("Read should fail on a record of the wrong shape")
	}
	if !strings.Contains(err.Error(), `"older"`) {
		t.Errorf("error = %v, want the CBOR diagnostic of the contents", err)
	}
}

func TestReadGarbageOmitsContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog.cbor")
	if err := os.WriteFile(path, []byte{0xFF, 0x00, 0x13}, 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Read(path)
	if err == nil {
		t.Fatal("Read should fail on corrupt data")
	}
	if strings.Contains(err.Error(), "contents") {
		t.Errorf("error = %v, want no diagnostic for undecodable bytes", err)
	}
}

func TestTruncateDiagnostic(t *testing.T) {
	long := strings.Repeat("x", maxDiagnosticLength+10)
	got := truncateDiagnostic(long)
	if len(got) != maxDiagnosticLength+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncateDiagnostic(%d bytes) = %d bytes %q", len(long), len(got), got)
	}
	if got := truncateDiagnostic("[1, 2]"); got != "[1, 2]" {
		t.Errorf("truncateDiagnostic short = %q", got)
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name  string
		now   time.Time
		found bool
	}{
		{"recent", epoch.Add(30 * time.Second), true},
		{"at limit", epoch.Add(5 * time.Minute), true},
		{"stale", epoch.Add(5*time.Minute + time.Second), false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "watchdog.cbor")
			if err := Write(path, sampleState()); err != nil {
				t.Fatalf("Write: %v", err)
			}
			state, found, err := Check(path, 5*time.Minute, test.now)
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if found != test.found {
				t.Fatalf("found = %v, want %v", found, test.found)
			}
			if found && state.RunID != sampleState().RunID {
				t.Errorf("RunID = %q, want %q", state.RunID, sampleState().RunID)
			}
			if !found && state != (State{}) {
				t.Errorf("stale Check returned %+v, want zero State", state)
			}
		})
	}
}

func TestCheckNonexistent(t *testing.T) {
	_, found, err := Check(filepath.Join(t.TempDir(), "absent.cbor"), time.Hour, epoch)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if found {
		t.Error("found = true for a missing file")
	}
}

func TestCheckCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog.cbor")
	if err := os.WriteFile(path, []byte("not cbor"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Check(path, time.Hour, epoch); err == nil {
		t.Error("Check should surface a corrupt file")
	}
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog.cbor")
	if err := Write(path, sampleState()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	for i := range 2 {
		if err := Clear(path); err != nil {
			t.Fatalf("Clear #%d: %v", i+1, err)
		}
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file still present after Clear: %v", err)
	}
}

func TestApplied(t *testing.T) {
	state := sampleState()
	if state.Applied(state.PreviousCommit) {
		t.Error("Applied(previous commit) = true, want false")
	}
	if !state.Applied("0000000000000000000000000000000000000001") {
		t.Error("Applied(new commit) = false, want true")
	}
}
