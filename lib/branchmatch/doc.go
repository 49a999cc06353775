// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package branchmatch decides which branches a deployment tracks.
//
// A pattern is one of:
//
//   - "*" or a literal branch name (exact equality)
//   - "!name" or "-name": every branch except name
//   - "*suffix", "prefix*", or "*infix*": suffix, prefix, or substring
//     matching around the wildcard
//
// A literal pattern never matches by substring: "main" does not match
// "maintenance". A [Spec] is an ordered list of patterns and tracks a
// branch when any pattern matches. An empty Spec tracks nothing.
//
// This package has no dependencies on other updater packages.
package branchmatch
