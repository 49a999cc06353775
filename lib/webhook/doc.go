// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package webhook receives GitHub webhook deliveries over HTTP and
// turns them into [forge.Event] values.
//
// [Handler] verifies the delivery signature (X-Hub-Signature-256, or
// the legacy SHA-1 X-Hub-Signature), drops repeated deliveries, and
// translates the payload for every kind the updater understands. Kinds
// it does not understand (ping, installation, check_run, ...) are
// acknowledged with 200 and dropped, so GitHub never retries them.
// Translation failures are also acknowledged: a retry carries the same
// payload and would fail the same way.
//
// [Server] owns the TCP listener and graceful shutdown and mounts the
// Handler at the configured callback path.
package webhook
