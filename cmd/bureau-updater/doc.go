// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Bureau-updater keeps a deployed working copy in step with its GitHub
// repository.
//
// It listens for GitHub webhook deliveries, sends a one-line alert for
// each event, and runs the update pipeline (lib/update) for pushes to
// the configured repository on a tracked branch. An update that touches
// a hot file ends with the process exiting with code 75 so its
// supervisor starts the new code; any other update reloads the agent's
// configuration in place.
//
// Usage:
//
//	bureau-updater --config /etc/bureau/updater.yaml
//	bureau-updater --config updater.yaml --migrate-legacy github-listener.json
//	bureau-updater --config updater.yaml --once push.json
//
// Webhook listener settings (listen, path, secret) are read once at
// startup; a reload does not rebind the listener.
package main
