// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package forge defines the repository events the updater understands.
//
// Webhook payloads are translated at ingestion time (see lib/webhook)
// into an [Event]: a discriminated union with one variant per [Kind].
// The set of kinds is closed. Code that must handle every kind
// implements [Visitor] and calls [Dispatch]; adding a kind adds a
// Visitor method, so every consumer fails to compile until it handles
// the new kind.
package forge
