// Package issues implements the issue creation workflow: reserve a branch,
// open a keyed issue, commit a tracking file and open a draft pull request.
package issues

import (
	"context"
	"fmt"
	"time"

	"github.com/danielolaszy/ghm/internal/logging"
	"github.com/danielolaszy/ghm/pkg/models"
)

// GitHub is the subset of the GitHub API the workflow needs. It is satisfied
// by *github.Client, built from the caller's own token.
type GitHub interface {
	BranchSHA(ctx context.Context, owner, repo, branch string) (string, error)
	BranchExists(ctx context.Context, owner, repo, branch string) (bool, error)
	CreateBranch(ctx context.Context, owner, repo, branch, sha string) error
	CreateIssue(ctx context.Context, owner, repo string, input models.NewIssue) (*models.Issue, error)
	UpdateIssueTitle(ctx context.Context, owner, repo string, number int, title string) (*models.Issue, error)
	CommitFile(ctx context.Context, owner, repo, branch, path, content, message string) (string, error)
	CreatePullRequest(ctx context.Context, owner, repo string, input models.NewPullRequest) (*models.PullRequest, error)
	CompareURL(owner, repo, base, head string) string
}

// Tracker mirrors created issues into an external tracker such as JIRA.
type Tracker interface {
	CreateTicket(ctx context.Context, issue models.Issue, req models.IssueCreationRequest) (string, error)
}

const (
	notesFull          = "Issue, branch and draft pull request created successfully"
	notesNoPullRequest = "Issue and branch created; the draft pull request could not be opened"
	notesNoCommit      = "Issue and branch created; pull request skipped because the tracking commit failed"
)

// Creator runs the issue creation workflow for one caller.
type Creator struct {
	gh      GitHub
	tracker Tracker
	now     func() time.Time
}

// Option configures a Creator.
type Option func(*Creator)

// WithTracker mirrors every created issue into tracker.
func WithTracker(tracker Tracker) Option {
	return func(c *Creator) {
		c.tracker = tracker
	}
}

// WithClock replaces time.Now, which drives branch suffixes and timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Creator) {
		c.now = now
	}
}

// NewCreator returns a Creator issuing calls through gh.
func NewCreator(gh GitHub, opts ...Option) *Creator {
	c := &Creator{
		gh:  gh,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create reserves a branch, opens the issue and renames it with its key,
// then tries to commit the tracking file and open a draft pull request.
// Failures up to the rename abort with an error; later failures only
// degrade the returned outcome.
func (c *Creator) Create(ctx context.Context, req models.IssueCreationRequest) (*models.CreationResult, error) {
	result, err := c.create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}
	return result, nil
}

func (c *Creator) create(ctx context.Context, req models.IssueCreationRequest) (*models.CreationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	owner, repo, err := models.ParseProjectID(req.ProjectID)
	if err != nil {
		return nil, err
	}
	repository := owner + "/" + repo

	logging.Info("creating issue",
		"repository", repository,
		"title", req.Title,
		"type", req.Type,
		"priority", req.Priority)

	branch, err := c.reserveBranch(ctx, owner, repo, req.BaseBranch, BranchName(req.Type, req.Title))
	if err != nil {
		return nil, err
	}

	body := IssueBody(req, branch.Name)
	created, err := c.gh.CreateIssue(ctx, owner, repo, models.NewIssue{
		Title:     req.Title,
		Body:      body,
		Labels:    Labels(req),
		Assignees: Assignees(req),
	})
	if err != nil {
		return nil, err
	}

	key := IssueKey(req.ProjectID, created.Number)
	title := KeyedTitle(key, req.Title)
	issue, err := c.gh.UpdateIssueTitle(ctx, owner, repo, created.Number, title)
	if err != nil {
		return nil, err
	}
	issue.Key = key
	issue.BranchName = branch.Name

	logging.Info("created issue",
		"repository", repository,
		"issue_number", issue.Number,
		"key", key,
		"branch", branch.Name)

	result := &models.CreationResult{
		Success: true,
		Issue:   *issue,
		Branch:  *branch,
	}

	_, err = c.gh.CommitFile(ctx, owner, repo, branch.Name,
		TrackingFilePath(key),
		TrackingFile(key, req.Title, branch.Name, c.now()),
		TrackingCommitMessage(key))
	if err != nil {
		logging.Warn("failed to create tracking commit",
			"repository", repository,
			"branch", branch.Name,
			"key", key,
			"error", err)
	}
	result.HasInitialCommit = err == nil

	switch {
	case !result.HasInitialCommit:
		result.Outcome = models.OutcomeNoCommit
		result.Notes = notesNoCommit
	default:
		pr, err := c.gh.CreatePullRequest(ctx, owner, repo, models.NewPullRequest{
			Title: title,
			Body:  PullRequestBody(issue.Number, body),
			Head:  branch.Name,
			Base:  branch.BaseBranch,
			Draft: true,
		})
		if err != nil {
			logging.Warn("failed to create pull request",
				"repository", repository,
				"branch", branch.Name,
				"key", key,
				"error", err)
			result.Outcome = models.OutcomeNoPullRequest
			result.Notes = notesNoPullRequest
		} else {
			logging.Info("created draft pull request",
				"repository", repository,
				"pull_number", pr.Number,
				"key", key)
			result.PullRequest = pr
			result.Outcome = models.OutcomeFull
			result.Notes = notesFull
		}
	}

	if c.tracker != nil {
		ticket, err := c.tracker.CreateTicket(ctx, *issue, req)
		if err != nil {
			logging.Warn("failed to mirror issue to tracker",
				"key", key,
				"error", err)
		} else {
			result.TrackerKey = ticket
		}
	}

	return result, nil
}
