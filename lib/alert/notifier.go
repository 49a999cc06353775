// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package alert

import (
	"context"
	"log/slog"

	"github.com/bureau-foundation/updater/lib/schema/forge"
)

// Sink delivers an alert somewhere people will see it.
type Sink interface {
	Send(ctx context.Context, alert Alert) error
}

// LogSink writes alerts to a structured logger at info level.
type LogSink struct {
	Logger *slog.Logger
}

// Send logs the alert.
func (s LogSink) Send(_ context.Context, alert Alert) error {
	s.Logger.Info("alert", "kind", alert.Kind.String(), "text", alert.String())
	return nil
}

// Notifier formats events and sends them to a Sink, honoring per-kind
// toggles.
type Notifier struct {
	sink    Sink
	enabled map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. enabled is keyed by event kind name
// ("push", "pull_request", ...); a kind missing from the map is
// enabled. Panics if sink or logger is nil.
func NewNotifier(sink Sink, enabled map[string]bool, logger *slog.Logger) *Notifier {
	if sink == nil {
		panic("alert.NewNotifier: sink is required")
	}
	if logger == nil {
		panic("alert.NewNotifier: logger is required")
	}
	return &Notifier{sink: sink, enabled: enabled, logger: logger}
}

// Enabled reports whether alerts for kind are sent.
func (n *Notifier) Enabled(kind forge.Kind) bool {
	enabled, configured := n.enabled[kind.String()]
	return !configured || enabled
}

// Notify formats and sends alerts for event. Failures are logged, not
// returned: alerts never block event handling.
func (n *Notifier) Notify(ctx context.Context, event *forge.Event) {
	if !n.Enabled(event.Kind) {
		n.logger.Debug("alert disabled for event kind", "kind", event.Kind.String())
		return
	}
	alerts, err := Format(event)
	if err != nil {
		n.logger.Error("formatting alert", "kind", event.Kind.String(), "error", err)
		return
	}
	for _, alert := range alerts {
		if err := n.sink.Send(ctx, alert); err != nil {
			n.logger.Error("sending alert", "kind", alert.Kind.String(), "error", err)
		}
	}
}
