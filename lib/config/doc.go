// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the updater's configuration.
//
// Configuration comes from a single YAML file named by the --config
// flag or the BUREAU_UPDATER_CONFIG environment variable. There is no
// automatic discovery. Values are layered onto [Default], ${VAR}
// references in path fields are expanded, and the result is validated
// before use.
//
// Deployments that predate the YAML format keep a JSON plugin config
// (github-listener.json). [Migrate] converts it once, explicitly;
// loading never rewrites files.
package config
