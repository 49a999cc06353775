// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed reads and writes secret files that may be encrypted
// with age (filippo.io/age).
//
// The webhook secret lives in a file named by configuration. The file
// is either the plaintext secret or an age ciphertext (binary or
// ASCII-armored) encrypted to an X25519 identity held in a separate
// identity file. [ReadFile] detects which form it is given, so an
// operator can move from a plaintext secret to an encrypted one
// without changing configuration beyond the identity path.
package sealed
