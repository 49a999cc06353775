// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package update

// Phase is a state of the update pipeline.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDeciding
	PhaseFetching
	PhaseCheckingOut
	PhaseInstallingDeps
	PhaseFinalizing
	PhaseRestarted
	PhaseReloaded
	PhaseAborted
)

var phaseNames = [...]string{
	PhaseIdle:           "idle",
	PhaseDeciding:       "deciding",
	PhaseFetching:       "fetching",
	PhaseCheckingOut:    "checking_out",
	PhaseInstallingDeps: "installing_deps",
	PhaseFinalizing:     "finalizing",
	PhaseRestarted:      "restarted",
	PhaseReloaded:       "reloaded",
	PhaseAborted:        "aborted",
}

// String returns the snake_case phase name used in logs.
func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Terminal reports whether the pipeline stops in this phase.
func (p Phase) Terminal() bool {
	return p == PhaseRestarted || p == PhaseReloaded || p == PhaseAborted
}
