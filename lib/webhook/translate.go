// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bureau-foundation/updater/lib/changeset"
	"github.com/bureau-foundation/updater/lib/schema/forge"
)

// Translate converts a raw payload of the given kind into an Event.
func Translate(kind forge.Kind, body []byte) (*forge.Event, error) {
	switch kind {
	case forge.KindPush:
		return translatePush(body)
	case forge.KindPullRequest:
		return translatePullRequest(body)
	case forge.KindIssues:
		return translateIssues(body)
	case forge.KindIssueComment:
		return translateIssueComment(body)
	case forge.KindCommitComment:
		return translateCommitComment(body)
	case forge.KindGollum:
		return translateGollum(body)
	case forge.KindFork:
		return translateFork(body)
	case forge.KindWatch:
		return translateWatch(body)
	case forge.KindRepository:
		return translateRepository(body)
	}
	return nil, fmt.Errorf("no translator for kind %s", kind)
}

func decode(kind forge.Kind, body []byte, payload any) error {
	if err := json.Unmarshal(body, payload); err != nil {
		return fmt.Errorf("parsing %s payload: %w", kind, err)
	}
	return nil
}

func translatePush(body []byte) (*forge.Event, error) {
	var payload ghPushPayload
	if err := decode(forge.KindPush, body, &payload); err != nil {
		return nil, err
	}

	commits := make([]changeset.Commit, len(payload.Commits))
	for i, ghc := range payload.Commits {
		author := ghc.Author.Username
		if author == "" {
			author = ghc.Author.Name
		}
		commits[i] = changeset.Commit{
			ID:       ghc.ID,
			Author:   author,
			Message:  ghc.Message,
			Added:    ghc.Added,
			Modified: ghc.Modified,
			Removed:  ghc.Removed,
		}
	}

	return &forge.Event{
		Kind: forge.KindPush,
		Push: &forge.PushEvent{
			Repo:       payload.Repository.Name,
			Ref:        payload.Ref,
			Branch:     forge.BranchFromRef(payload.Ref),
			IsTag:      strings.HasPrefix(payload.Ref, "refs/tags/"),
			Created:    payload.Created,
			Deleted:    payload.Deleted,
			Forced:     payload.Forced,
			Pusher:     payload.Pusher.Name,
			CompareURL: payload.CompareURL,
			Commits:    commits,
		},
	}, nil
}

func translatePullRequest(body []byte) (*forge.Event, error) {
	var payload ghPullRequestPayload
	if err := decode(forge.KindPullRequest, body, &payload); err != nil {
		return nil, err
	}
	number := payload.Number
	if number == 0 {
		number = payload.PullRequest.Number
	}
	return &forge.Event{
		Kind: forge.KindPullRequest,
		PullRequest: &forge.PullRequestEvent{
			Repo:   payload.Repository.Name,
			Number: number,
			Action: payload.Action,
			Merged: payload.PullRequest.Merged,
			Title:  payload.PullRequest.Title,
			URL:    payload.PullRequest.HTMLURL,
		},
	}, nil
}

func translateIssues(body []byte) (*forge.Event, error) {
	var payload ghIssuesPayload
	if err := decode(forge.KindIssues, body, &payload); err != nil {
		return nil, err
	}
	event := &forge.IssuesEvent{
		Repo:   payload.Repository.Name,
		Number: payload.Issue.Number,
		Action: payload.Action,
		Title:  payload.Issue.Title,
		URL:    payload.Issue.HTMLURL,
	}
	if payload.Assignee != nil {
		event.Assignee = payload.Assignee.Login
	}
	if payload.Label != nil {
		event.Label = payload.Label.Name
	}
	return &forge.Event{Kind: forge.KindIssues, Issues: event}, nil
}

func translateIssueComment(body []byte) (*forge.Event, error) {
	var payload ghIssueCommentPayload
	if err := decode(forge.KindIssueComment, body, &payload); err != nil {
		return nil, err
	}
	return &forge.Event{
		Kind: forge.KindIssueComment,
		IssueComment: &forge.IssueCommentEvent{
			Repo:        payload.Repository.Name,
			IssueNumber: payload.Issue.Number,
			Author:      payload.Comment.User.Login,
			Body:        payload.Comment.Body,
			URL:         payload.Comment.HTMLURL,
		},
	}, nil
}

func translateCommitComment(body []byte) (*forge.Event, error) {
	var payload ghCommitCommentPayload
	if err := decode(forge.KindCommitComment, body, &payload); err != nil {
		return nil, err
	}
	return &forge.Event{
		Kind: forge.KindCommitComment,
		CommitComment: &forge.CommitCommentEvent{
			Repo:   payload.Repository.Name,
			Author: payload.Comment.User.Login,
			URL:    payload.Comment.HTMLURL,
		},
	}, nil
}

func translateGollum(body []byte) (*forge.Event, error) {
	var payload ghGollumPayload
	if err := decode(forge.KindGollum, body, &payload); err != nil {
		return nil, err
	}
	pages := make([]forge.WikiPage, len(payload.Pages))
	for i, page := range payload.Pages {
		pages[i] = forge.WikiPage{Name: page.PageName, Action: page.Action, URL: page.HTMLURL}
	}
	return &forge.Event{
		Kind:   forge.KindGollum,
		Gollum: &forge.GollumEvent{Repo: payload.Repository.Name, Pages: pages},
	}, nil
}

func translateFork(body []byte) (*forge.Event, error) {
	var payload ghForkPayload
	if err := decode(forge.KindFork, body, &payload); err != nil {
		return nil, err
	}
	return &forge.Event{
		Kind: forge.KindFork,
		Fork: &forge.ForkEvent{
			Repo:    payload.Repository.Name,
			Sender:  payload.Sender.Login,
			ForkURL: payload.Forkee.HTMLURL,
		},
	}, nil
}

func translateWatch(body []byte) (*forge.Event, error) {
	var payload ghWatchPayload
	if err := decode(forge.KindWatch, body, &payload); err != nil {
		return nil, err
	}
	return &forge.Event{
		Kind:  forge.KindWatch,
		Watch: &forge.WatchEvent{Repo: payload.Repository.Name, Sender: payload.Sender.Login},
	}, nil
}

func translateRepository(body []byte) (*forge.Event, error) {
	var payload ghRepositoryPayload
	if err := decode(forge.KindRepository, body, &payload); err != nil {
		return nil, err
	}
	return &forge.Event{
		Kind: forge.KindRepository,
		Repository: &forge.RepositoryEvent{
			Organization: payload.Organization.Login,
			Name:         payload.Repository.Name,
			Action:       payload.Action,
			Sender:       payload.Sender.Login,
			URL:          payload.Repository.HTMLURL,
		},
	}, nil
}
