// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"os"
)

const (
	// ExitFailure reports an unrecoverable error.
	ExitFailure = 1

	// ExitUsage reports invalid flags or configuration.
	ExitUsage = 2

	// ExitRestart reports a deliberate shutdown after an update that
	// needs a fresh process. Matches EX_TEMPFAIL so systemd units can
	// use RestartForceExitStatus=75.
	ExitRestart = 75
)

// exit is replaced in tests.
var exit = os.Exit

// Fatal writes "error: err" to stderr and exits with ExitFailure. Use
// it in main() for errors that occur before the logger exists.
func Fatal(err error) {
	FatalCode(os.Stderr, err, ExitFailure)
}

// FatalCode writes "error: err" to w and exits with code.
func FatalCode(w io.Writer, err error, code int) {
	fmt.Fprintf(w, "error: %v\n", err)
	exit(code)
}

// Restart exits with ExitRestart.
func Restart() {
	exit(ExitRestart)
}
