// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package changeset

import "testing"

func TestClassify(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		name           string
		commits        []Commit
		branchChanging bool
		want           Decision
	}{
		{
			name: "no commits",
			want: Decision{},
		},
		{
			name:    "hot file modified",
			commits: []Commit{{Modified: []string{"app.js"}}},
			want:    Decision{MustRestart: true},
		},
		{
			name:    "manifest modified",
			commits: []Commit{{Modified: []string{"package.json"}}},
			want:    Decision{MustReinstallDeps: true},
		},
		{
			name:    "sub-project manifest modified",
			commits: []Commit{{Modified: []string{"plugins/irc/package.json"}}},
			want:    Decision{MustReinstallDeps: true},
		},
		{
			name:    "hot file match is exact",
			commits: []Commit{{Modified: []string{"plugins/irc/app.js"}}},
			want:    Decision{},
		},
		{
			name:    "unrelated files",
			commits: []Commit{{Modified: []string{"README.md", "lib/util.js"}}},
			want:    Decision{},
		},
		{
			name: "flags from different commits",
			commits: []Commit{
				{Modified: []string{"app.js"}},
				{Modified: []string{"README.md"}},
				{Modified: []string{"package.json"}},
			},
			want: Decision{MustRestart: true, MustReinstallDeps: true},
		},
		{
			name:    "hot file added does not restart",
			commits: []Commit{{Added: []string{"app.js"}}},
			want:    Decision{},
		},
		{
			name:    "removed manifest is ignored",
			commits: []Commit{{Removed: []string{"package.json"}}},
			want:    Decision{},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := Classify(test.commits, test.branchChanging, rules)
			if got != test.want {
				t.Errorf("Classify() = %+v, want %+v", got, test.want)
			}
		})
	}
}

func TestClassify_BranchChangeDominates(t *testing.T) {
	batches := [][]Commit{
		nil,
		{{Modified: []string{"README.md"}}},
		{{Modified: []string{"app.js"}, Added: []string{"package.json"}}},
	}
	for _, commits := range batches {
		got := Classify(commits, true, DefaultRules())
		if !got.MustRestart || !got.MustReinstallDeps {
			t.Errorf("Classify(%v, true) = %+v, want both flags set", commits, got)
		}
	}
}

// The created-file list is checked on its own. An earlier
// implementation indexed the modified list while walking the created
// list, so a manifest that was only created never triggered a
// reinstall.
func TestClassify_CreatedManifestTriggersReinstall(t *testing.T) {
	commits := []Commit{{
		Modified: []string{"README.md"},
		Added:    []string{"plugins/new/package.json"},
	}}
	got := Classify(commits, false, DefaultRules())
	if !got.MustReinstallDeps {
		t.Error("created manifest should force a dependency reinstall")
	}
	if got.MustRestart {
		t.Error("created manifest should not force a restart")
	}
}

func TestClassify_CustomRules(t *testing.T) {
	rules := Rules{HotFiles: []string{"cmd/main.go", "go.sum"}, Manifest: "go.mod"}
	commits := []Commit{{Modified: []string{"go.sum", "tools/go.mod"}}}
	got := Classify(commits, false, rules)
	if got != (Decision{MustRestart: true, MustReinstallDeps: true}) {
		t.Errorf("Classify() = %+v, want both flags", got)
	}
}

func TestClassify_EmptyManifestNeverMatches(t *testing.T) {
	rules := Rules{HotFiles: []string{"app.js"}}
	commits := []Commit{{Modified: []string{"package.json"}, Added: []string{"x"}}}
	if got := Classify(commits, false, rules); got.MustReinstallDeps {
		t.Error("empty manifest name should not match every path")
	}
}
