// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the updater binary.
//
// [Version], [GitCommit], and [BuildTime] are injected with -ldflags -X.
// When they are not, [Commit] falls back to the VCS revision the Go
// toolchain stamps into the binary, so `go install` builds still
// identify themselves.
package version
