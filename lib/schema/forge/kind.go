// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package forge

// Kind identifies an event variant.
type Kind int

const (
	KindPush Kind = iota + 1
	KindPullRequest
	KindIssues
	KindIssueComment
	KindCommitComment
	KindGollum
	KindFork
	KindWatch
	KindRepository
)

// kindNames are the GitHub event header values, which double as the
// keys of the alert toggle map in configuration.
var kindNames = map[Kind]string{
	KindPush:          "push",
	KindPullRequest:   "pull_request",
	KindIssues:        "issues",
	KindIssueComment:  "issue_comment",
	KindCommitComment: "commit_comment",
	KindGollum:        "gollum",
	KindFork:          "fork",
	KindWatch:         "watch",
	KindRepository:    "repository",
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindPush, KindPullRequest, KindIssues, KindIssueComment,
		KindCommitComment, KindGollum, KindFork, KindWatch, KindRepository,
	}
}

// String returns the event name, or "unknown" for an invalid Kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps an X-GitHub-Event header value to a Kind.
func ParseKind(name string) (Kind, bool) {
	for kind, kindName := range kindNames {
		if kindName == name {
			return kind, true
		}
	}
	return 0, false
}
