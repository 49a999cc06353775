// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// newLogger writes text to a terminal and JSON otherwise. The level is
// read through level on every record so a reload can change it.
func newLogger(output *os.File, level *slog.LevelVar) *slog.Logger {
	return slog.New(newHandler(output, term.IsTerminal(int(output.Fd())), level))
}

func newHandler(output io.Writer, terminal bool, level *slog.LevelVar) slog.Handler {
	options := &slog.HandlerOptions{Level: level}
	if terminal {
		return slog.NewTextHandler(output, options)
	}
	return slog.NewJSONHandler(output, options)
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}
