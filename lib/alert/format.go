// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package alert turns forge events into one-line human summaries and
// delivers them to a Sink.
package alert

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/updater/lib/schema/forge"
)

const (
	// prefix starts every alert.
	prefix = "[Github]"

	// maxTextLength is the rune count after which titles and comment
	// bodies are cut and suffixed with "...".
	maxTextLength = 80

	// maxPushCommits is how many of a push's newest commits are
	// listed.
	maxPushCommits = 3
)

// Alert is one notification. Lines[0] is the headline; further lines
// are detail (the newest commits of a push).
type Alert struct {
	Kind  forge.Kind
	Lines []string
}

// String joins the lines with single spaces, the form chat sinks
// display.
func (a Alert) String() string {
	return strings.Join(a.Lines, " ")
}

// Format renders event as alerts. Wiki events produce one alert per
// page; every other kind produces exactly one.
func Format(event *forge.Event) ([]Alert, error) {
	f := &formatter{}
	if err := forge.Dispatch(event, f); err != nil {
		return nil, err
	}
	return f.alerts, nil
}

type formatter struct {
	alerts []Alert
}

func (f *formatter) add(kind forge.Kind, scope string, lines ...string) {
	lines[0] = fmt.Sprintf("%s [%s] %s", prefix, scope, lines[0])
	f.alerts = append(f.alerts, Alert{Kind: kind, Lines: lines})
}

func (f *formatter) Push(event *forge.PushEvent) error {
	verb := "pushed"
	if event.Forced && !event.Created {
		verb = "force pushed"
	}
	target := "branch"
	if event.IsTag {
		target = "tag"
	}
	newness := ""
	if event.Created {
		newness = "new "
	}
	lines := []string{fmt.Sprintf("%s %s to %s%s %s by %s. (%s)",
		pluralize(len(event.Commits), "commit"), verb, newness, target,
		event.Branch, event.Pusher, event.CompareURL)}

	for i := 0; i < len(event.Commits) && i < maxPushCommits; i++ {
		commit := event.Commits[len(event.Commits)-1-i]
		lines = append(lines, fmt.Sprintf("[%s] %s: %s",
			shortID(commit.ID), commit.Author, firstLine(commit.Message)))
	}
	f.add(forge.KindPush, event.Repo, lines...)
	return nil
}

func (f *formatter) PullRequest(event *forge.PullRequestEvent) error {
	f.add(forge.KindPullRequest, event.Repo, fmt.Sprintf("Pull Request %d %s. Title: %s",
		event.Number, event.EffectiveAction(), truncate(event.Title)))
	return nil
}

func (f *formatter) Issues(event *forge.IssuesEvent) error {
	action := event.Action
	switch action {
	case "assigned":
		action += " to " + event.Assignee
	case "unassigned":
		action += " from " + event.Assignee
	case "labeled", "unlabeled":
		action += " " + event.Label
	}
	f.add(forge.KindIssues, event.Repo, fmt.Sprintf("Issue %d %s. Title: %s",
		event.Number, action, truncate(event.Title)))
	return nil
}

func (f *formatter) IssueComment(event *forge.IssueCommentEvent) error {
	f.add(forge.KindIssueComment, event.Repo, fmt.Sprintf("New comment on issue %d by %s. %s (%s)",
		event.IssueNumber, event.Author, truncate(event.Body), event.URL))
	return nil
}

func (f *formatter) CommitComment(event *forge.CommitCommentEvent) error {
	f.add(forge.KindCommitComment, event.Repo, fmt.Sprintf("%s left a comment. %s", event.Author, event.URL))
	return nil
}

func (f *formatter) Gollum(event *forge.GollumEvent) error {
	for _, page := range event.Pages {
		f.add(forge.KindGollum, event.Repo, fmt.Sprintf("Wiki Page %s %s. (%s)", page.Name, page.Action, page.URL))
	}
	return nil
}

func (f *formatter) Fork(event *forge.ForkEvent) error {
	f.add(forge.KindFork, event.Repo, fmt.Sprintf("New Fork! %s forked the repo! (%s)", event.Sender, event.ForkURL))
	return nil
}

func (f *formatter) Watch(event *forge.WatchEvent) error {
	f.add(forge.KindWatch, event.Repo, fmt.Sprintf("New Star! %s starred the repo!", event.Sender))
	return nil
}

func (f *formatter) Repository(event *forge.RepositoryEvent) error {
	f.add(forge.KindRepository, event.Organization+" Organization", fmt.Sprintf("Repository %s %s by %s. (%s)",
		event.Name, event.Action, event.Sender, event.URL))
	return nil
}

func pluralize(count int, noun string) string {
	if count == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", count, noun)
}

func shortID(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}

func firstLine(message string) string {
	line, _, _ := strings.Cut(message, "\n")
	return line
}

func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxTextLength {
		return text
	}
	return string(runes[:maxTextLength]) + "..."
}
