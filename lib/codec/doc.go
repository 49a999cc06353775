// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the updater's CBOR encoding configuration.
//
// JSON and YAML are for things people write (configuration, webhook
// payloads). CBOR is for state the updater writes for itself, such as
// the watchdog record that survives a restart. The encoder uses Core
// Deterministic Encoding so the same record always produces the same
// bytes.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
package codec
