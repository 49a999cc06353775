// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package webhook

// GitHub webhook payload types. Only the fields the updater's events
// carry are decoded. JSON names follow GitHub's webhook documentation.

type ghUser struct {
	Login string `json:"login"`
}

type ghRepository struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
}

type ghOrganization struct {
	Login string `json:"login"`
}

// ghAuthor is the git author of a pushed commit, not a GitHub user.
type ghAuthor struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"` // may be empty
}

type ghCommit struct {
	ID       string   `json:"id"`
	Message  string   `json:"message"`
	Author   ghAuthor `json:"author"`
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
	Removed  []string `json:"removed"`
}

type ghPusher struct {
	Name string `json:"name"`
}

type ghPushPayload struct {
	Ref        string       `json:"ref"`
	Created    bool         `json:"created"`
	Deleted    bool         `json:"deleted"`
	Forced     bool         `json:"forced"`
	CompareURL string       `json:"compare"`
	Commits    []ghCommit   `json:"commits"`
	Pusher     ghPusher     `json:"pusher"`
	Repository ghRepository `json:"repository"`
}

type ghPullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	HTMLURL string `json:"html_url"`
	Merged  bool   `json:"merged"`
}

type ghPullRequestPayload struct {
	Action      string        `json:"action"`
	Number      int           `json:"number"`
	PullRequest ghPullRequest `json:"pull_request"`
	Repository  ghRepository  `json:"repository"`
}

type ghIssue struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	HTMLURL string `json:"html_url"`
}

type ghLabel struct {
	Name string `json:"name"`
}

type ghIssuesPayload struct {
	Action     string       `json:"action"`
	Issue      ghIssue      `json:"issue"`
	Assignee   *ghUser      `json:"assignee"`
	Label      *ghLabel     `json:"label"`
	Repository ghRepository `json:"repository"`
}

type ghComment struct {
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
	User    ghUser `json:"user"`
}

type ghIssueCommentPayload struct {
	Action     string       `json:"action"`
	Issue      ghIssue      `json:"issue"`
	Comment    ghComment    `json:"comment"`
	Repository ghRepository `json:"repository"`
}

type ghCommitCommentPayload struct {
	Comment    ghComment    `json:"comment"`
	Repository ghRepository `json:"repository"`
}

type ghPage struct {
	PageName string `json:"page_name"`
	Action   string `json:"action"`
	HTMLURL  string `json:"html_url"`
}

type ghGollumPayload struct {
	Pages      []ghPage     `json:"pages"`
	Repository ghRepository `json:"repository"`
}

type ghForkPayload struct {
	Forkee     ghRepository `json:"forkee"`
	Sender     ghUser       `json:"sender"`
	Repository ghRepository `json:"repository"`
}

type ghWatchPayload struct {
	Sender     ghUser       `json:"sender"`
	Repository ghRepository `json:"repository"`
}

type ghRepositoryPayload struct {
	Action       string         `json:"action"`
	Repository   ghRepository   `json:"repository"`
	Organization ghOrganization `json:"organization"`
	Sender       ghUser         `json:"sender"`
}
