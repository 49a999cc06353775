// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/updater/lib/clock"
)

// processHost is the update.Host for this process. Shutdown cancels
// the root context; main then drains and exits with
// process.ExitRestart.
type processHost struct {
	cancel context.CancelFunc
	logger *slog.Logger

	// reload is set once the agent exists.
	reload func()

	mu     sync.Mutex
	reason string
}

func (h *processHost) Shutdown(reason string) {
	h.mu.Lock()
	if h.reason == "" {
		h.reason = reason
	}
	h.mu.Unlock()

	h.logger.Info("shutting down for restart", "reason", reason)
	h.cancel()
}

func (h *processHost) Reload() {
	if h.reload != nil {
		h.reload()
	}
}

// restartReason returns the first Shutdown reason, or "" if none.
func (h *processHost) restartReason() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reason
}

// drain calls each wait concurrently and returns true if all finish
// within grace.
func drain(clk clock.Clock, grace time.Duration, waits ...func()) bool {
	var group sync.WaitGroup
	for _, wait := range waits {
		group.Add(1)
		go func() {
			defer group.Done()
			wait()
		}()
	}
	done := make(chan struct{})
	go func() {
		group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-clk.After(grace):
		return false
	}
}
