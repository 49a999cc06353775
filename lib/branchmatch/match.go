// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package branchmatch

import "strings"

// Match reports whether the branch name actual satisfies pattern. See
// the package documentation for the pattern forms. Match is total: any
// pair of strings yields an answer.
func Match(actual, pattern string) bool {
	if pattern == "*" || pattern == actual {
		return true
	}
	if strings.HasPrefix(pattern, "!") || strings.HasPrefix(pattern, "-") {
		return actual != pattern[1:]
	}

	first := strings.IndexByte(pattern, '*')
	if first == -1 {
		return false
	}
	last := strings.LastIndexByte(pattern, '*')

	switch {
	case last > first:
		return strings.Contains(actual, pattern[first+1:last])
	case first == 0:
		return strings.HasSuffix(actual, pattern[1:])
	default:
		return strings.HasPrefix(actual, pattern[:first])
	}
}
