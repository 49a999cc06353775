// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package subproject locates independently dependency-managed
// directories inside the deployment, such as plugins that carry their
// own manifest. The set is recomputed on every call: an update may add
// or remove sub-projects.
package subproject

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrGlob wraps an invalid discovery pattern or a filesystem error
// while expanding it.
var ErrGlob = errors.New("sub-project glob failed")

// DefaultPattern matches plugin directories that carry a plugin
// manifest, relative to the deployment root.
const DefaultPattern = "plugins/*/plugin.json"

// Discover expands pattern relative to root and returns the absolute
// directory of every match, sorted and without duplicates. The pattern
// uses doublestar syntax, so "**" crosses directory boundaries. A root
// without matches yields an empty slice and no error.
func Discover(root, pattern string) ([]string, error) {
	absoluteRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving root %s: %w", ErrGlob, root, err)
	}
	if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
		return nil, fmt.Errorf("%w: invalid pattern %q", ErrGlob, pattern)
	}

	// Globbing inside an fs.FS keeps metacharacters in the root path
	// from being interpreted as part of the pattern.
	matches, err := doublestar.Glob(os.DirFS(absoluteRoot), filepath.ToSlash(pattern), doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("%w: %s in %s: %w", ErrGlob, pattern, absoluteRoot, err)
	}

	directories := make([]string, 0, len(matches))
	for _, match := range matches {
		directories = append(directories, filepath.Dir(filepath.Join(absoluteRoot, filepath.FromSlash(match))))
	}
	slices.Sort(directories)
	return slices.Compact(directories), nil
}
