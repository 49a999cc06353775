// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"strings"

	"github.com/bureau-foundation/updater/lib/changeset"
)

// PushEvent is a push to a branch or tag.
type PushEvent struct {
	Repo       string // repository name as configured, e.g. "AKP48Squared"
	Ref        string // "refs/heads/main"
	Branch     string // ref with the refs/<kind>/ prefix removed
	IsTag      bool
	Created    bool
	Deleted    bool
	Forced     bool
	Pusher     string
	CompareURL string
	Commits    []changeset.Commit // oldest first
}

// BranchFromRef strips the "refs/<namespace>/" prefix from a ref.
// "refs/heads/feature/x" becomes "feature/x". A value that is not a
// full ref is returned unchanged.
func BranchFromRef(ref string) string {
	rest, ok := strings.CutPrefix(ref, "refs/")
	if !ok {
		return ref
	}
	_, name, found := strings.Cut(rest, "/")
	if !found {
		return ref
	}
	return name
}

// PullRequestEvent is an action on a pull request.
type PullRequestEvent struct {
	Repo   string
	Number int
	Action string // "opened", "closed", "synchronize", ...
	Merged bool
	Title  string
	URL    string
}

// EffectiveAction reports "merged" for a closed pull request that was
// merged, and Action otherwise.
func (e *PullRequestEvent) EffectiveAction() string {
	if e.Action == "closed" && e.Merged {
		return "merged"
	}
	return e.Action
}

// IssuesEvent is an action on an issue.
type IssuesEvent struct {
	Repo     string
	Number   int
	Action   string
	Title    string
	Assignee string // set for assigned/unassigned
	Label    string // set for labeled/unlabeled
	URL      string
}

// IssueCommentEvent is a new comment on an issue or pull request.
type IssueCommentEvent struct {
	Repo        string
	IssueNumber int
	Author      string
	Body        string
	URL         string
}

// CommitCommentEvent is a comment on a commit.
type CommitCommentEvent struct {
	Repo   string
	Author string
	URL    string
}

// WikiPage is one page touched by a GollumEvent.
type WikiPage struct {
	Name   string
	Action string // "created" or "edited"
	URL    string
}

// GollumEvent is a set of wiki page changes.
type GollumEvent struct {
	Repo  string
	Pages []WikiPage
}

// ForkEvent is a new fork of the repository.
type ForkEvent struct {
	Repo    string
	Sender  string
	ForkURL string
}

// WatchEvent is a new star on the repository.
type WatchEvent struct {
	Repo   string
	Sender string
}

// RepositoryEvent is a repository lifecycle action in an organization.
type RepositoryEvent struct {
	Organization string
	Name         string
	Action       string
	Sender       string
	URL          string
}
