// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap the
// select-with-timeout pattern so individual tests never call
// time.After themselves. They are the only place in the test suite
// where real wall-clock timeouts are used.
//
// [WriteTree] lays out a directory of files from a map, for tests that
// need a deployment root with manifests and sub-projects.
//
// [UniqueID] generates monotonically increasing identifiers, for
// webhook delivery IDs and similar values that must differ between
// requests in one test.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
