// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret keeps key material out of the Go heap.
//
// A [Buffer] is an anonymous mmap region locked against swap (mlock)
// and excluded from core dumps (MADV_DONTDUMP). The updater stores the
// webhook HMAC secret in one for the life of the listener; Close zeroes
// and unmaps it.
//
// Depends on golang.org/x/sys/unix.
package secret
