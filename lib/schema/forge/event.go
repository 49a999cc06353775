// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"errors"
	"fmt"
)

// ErrInvalidEvent is returned by Validate and Dispatch for an Event
// whose populated variant does not match its Kind.
var ErrInvalidEvent = errors.New("invalid forge event")

// Event is a discriminated union of forge events. Kind identifies
// which pointer is populated; exactly one is non-nil for a valid
// Event.
type Event struct {
	Kind          Kind
	Push          *PushEvent
	PullRequest   *PullRequestEvent
	Issues        *IssuesEvent
	IssueComment  *IssueCommentEvent
	CommitComment *CommitCommentEvent
	Gollum        *GollumEvent
	Fork          *ForkEvent
	Watch         *WatchEvent
	Repository    *RepositoryEvent
}

// variant reports whether the pointer for kind is populated.
func (e *Event) variant(kind Kind) bool {
	switch kind {
	case KindPush:
		return e.Push != nil
	case KindPullRequest:
		return e.PullRequest != nil
	case KindIssues:
		return e.Issues != nil
	case KindIssueComment:
		return e.IssueComment != nil
	case KindCommitComment:
		return e.CommitComment != nil
	case KindGollum:
		return e.Gollum != nil
	case KindFork:
		return e.Fork != nil
	case KindWatch:
		return e.Watch != nil
	case KindRepository:
		return e.Repository != nil
	}
	return false
}

// Validate checks that exactly the variant named by Kind is populated.
func (e *Event) Validate() error {
	if _, known := kindNames[e.Kind]; !known {
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidEvent, e.Kind)
	}
	populated := 0
	for _, kind := range Kinds() {
		if e.variant(kind) {
			populated++
		}
	}
	if !e.variant(e.Kind) {
		return fmt.Errorf("%w: kind %s has no %s payload", ErrInvalidEvent, e.Kind, e.Kind)
	}
	if populated != 1 {
		return fmt.Errorf("%w: kind %s has %d populated variants", ErrInvalidEvent, e.Kind, populated)
	}
	return nil
}

// Repo returns the repository the event concerns. For repository
// lifecycle events this is the repository name, not the organization.
func (e *Event) Repo() string {
	switch {
	case e.Kind == KindPush && e.Push != nil:
		return e.Push.Repo
	case e.Kind == KindPullRequest && e.PullRequest != nil:
		return e.PullRequest.Repo
	case e.Kind == KindIssues && e.Issues != nil:
		return e.Issues.Repo
	case e.Kind == KindIssueComment && e.IssueComment != nil:
		return e.IssueComment.Repo
	case e.Kind == KindCommitComment && e.CommitComment != nil:
		return e.CommitComment.Repo
	case e.Kind == KindGollum && e.Gollum != nil:
		return e.Gollum.Repo
	case e.Kind == KindFork && e.Fork != nil:
		return e.Fork.Repo
	case e.Kind == KindWatch && e.Watch != nil:
		return e.Watch.Repo
	case e.Kind == KindRepository && e.Repository != nil:
		return e.Repository.Name
	}
	return ""
}

// Visitor handles every event kind.
type Visitor interface {
	Push(*PushEvent) error
	PullRequest(*PullRequestEvent) error
	Issues(*IssuesEvent) error
	IssueComment(*IssueCommentEvent) error
	CommitComment(*CommitCommentEvent) error
	Gollum(*GollumEvent) error
	Fork(*ForkEvent) error
	Watch(*WatchEvent) error
	Repository(*RepositoryEvent) error
}

// Dispatch validates event and calls the Visitor method for its kind.
func Dispatch(event *Event, visitor Visitor) error {
	if err := event.Validate(); err != nil {
		return err
	}
	switch event.Kind {
	case KindPush:
		return visitor.Push(event.Push)
	case KindPullRequest:
		return visitor.PullRequest(event.PullRequest)
	case KindIssues:
		return visitor.Issues(event.Issues)
	case KindIssueComment:
		return visitor.IssueComment(event.IssueComment)
	case KindCommitComment:
		return visitor.CommitComment(event.CommitComment)
	case KindGollum:
		return visitor.Gollum(event.Gollum)
	case KindFork:
		return visitor.Fork(event.Fork)
	case KindWatch:
		return visitor.Watch(event.Watch)
	case KindRepository:
		return visitor.Repository(event.Repository)
	}
	panic("unreachable: Validate accepted kind " + event.Kind.String())
}
