// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package branchmatch

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Spec is the configured set of branch patterns. In configuration files
// it may be written either as a single string or as a list:
//
//	branch: master
//	branch: ["master", "release-*", "!wip"]
type Spec []string

// Tracks reports whether any pattern in the spec matches actual. The
// patterns are evaluated in order and evaluation stops at the first
// match.
func (s Spec) Tracks(actual string) bool {
	for _, pattern := range s {
		if Match(actual, pattern) {
			return true
		}
	}
	return false
}

// String joins the patterns for log output.
func (s Spec) String() string {
	return strings.Join(s, ",")
}

// UnmarshalYAML accepts a scalar pattern or a sequence of patterns.
func (s *Spec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var pattern string
		if err := node.Decode(&pattern); err != nil {
			return fmt.Errorf("branch pattern: %w", err)
		}
		*s = Spec{pattern}
		return nil
	case yaml.SequenceNode:
		var patterns []string
		if err := node.Decode(&patterns); err != nil {
			return fmt.Errorf("branch patterns: %w", err)
		}
		*s = Spec(patterns)
		return nil
	default:
		return fmt.Errorf("branch: expected string or list of strings at line %d", node.Line)
	}
}

// MarshalYAML writes a single-pattern spec as a scalar so that a
// migrated legacy config round-trips to the form an operator would
// write by hand.
func (s Spec) MarshalYAML() (any, error) {
	if len(s) == 1 {
		return s[0], nil
	}
	return []string(s), nil
}

// UnmarshalJSON accepts a string or an array of strings. Legacy plugin
// configuration stored the branch in either form.
func (s *Spec) UnmarshalJSON(data []byte) error {
	var pattern string
	if err := json.Unmarshal(data, &pattern); err == nil {
		*s = Spec{pattern}
		return nil
	}
	var patterns []string
	if err := json.Unmarshal(data, &patterns); err != nil {
		return fmt.Errorf("branch: expected string or array of strings: %w", err)
	}
	*s = Spec(patterns)
	return nil
}
