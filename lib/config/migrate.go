// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/updater/lib/branchmatch"
)

// ErrListenerDisabled is returned by Migrate for a legacy config with
// "enabled": false. The updater has no disabled mode; not running it
// is the equivalent.
var ErrListenerDisabled = errors.New("legacy config has the listener disabled")

// ErrNoBranches is returned by Migrate for a legacy config with an
// empty "branch" list. It tracks nothing, so it cannot fall back to
// the default branch.
var ErrNoBranches = errors.New("legacy config tracks no branches")

// legacyConfig is the github-listener.json plugin config. Comments and
// trailing commas are tolerated.
type legacyConfig struct {
	Port       *int             `json:"port"`
	Path       *string          `json:"path"`
	Secret     string           `json:"secret"`
	Repository *string          `json:"repository"`
	Branch     branchmatch.Spec `json:"branch"`
	AutoUpdate *bool            `json:"autoUpdate"`
	Events     map[string]bool  `json:"events"`
	Enabled    *bool            `json:"enabled"`
}

// Migration is the result of converting a legacy config.
type Migration struct {
	Config *Config

	// Secret is the legacy inline webhook secret. The YAML format
	// keeps secrets out of the config file; the caller writes it to
	// Config.Webhook.SecretFile.
	Secret string
}

// Migrate converts a legacy JSON config into a Config layered on
// Default. Event toggles missing from the legacy file, including
// commit_comment which early versions lacked, default to enabled.
// secretFile becomes Webhook.SecretFile; an empty legacy secret sets
// AllowUnsigned instead.
func Migrate(data []byte, secretFile string) (*Migration, error) {
	var legacy legacyConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &legacy); err != nil {
		return nil, fmt.Errorf("parsing legacy config: %w", err)
	}
	if legacy.Enabled != nil && !*legacy.Enabled {
		return nil, ErrListenerDisabled
	}

	cfg := Default()
	if legacy.Port != nil {
		cfg.Webhook.Listen = net.JoinHostPort("", strconv.Itoa(*legacy.Port))
	}
	if legacy.Path != nil {
		cfg.Webhook.Path = *legacy.Path
	}
	if legacy.Repository != nil {
		cfg.Repository = *legacy.Repository
	}
	if legacy.Branch != nil {
		if len(legacy.Branch) == 0 {
			return nil, ErrNoBranches
		}
		cfg.Branch = legacy.Branch
	}
	if legacy.AutoUpdate != nil {
		cfg.AutoUpdate = *legacy.AutoUpdate
	}
	for name, enabled := range legacy.Events {
		cfg.Events[name] = enabled
	}

	if legacy.Secret != "" {
		cfg.Webhook.SecretFile = secretFile
	} else {
		cfg.Webhook.AllowUnsigned = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("migrated config: %w", err)
	}
	return &Migration{Config: cfg, Secret: legacy.Secret}, nil
}
