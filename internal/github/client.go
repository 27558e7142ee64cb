// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"

	"github.com/danielolaszy/ghm/internal/logging"
	"github.com/danielolaszy/ghm/pkg/models"
)

// DefaultDomain is the public GitHub host.
const DefaultDomain = "github.com"

// Client encapsulates the GitHub API client for a single caller's token.
// It is built per request and never shared between callers.
type Client struct {
	client *github.Client
	domain string
}

// APIURL returns the REST API base URL for a GitHub domain. github.com uses
// api.github.com, any other domain is treated as GitHub Enterprise.
func APIURL(domain string) string {
	if domain == "" || domain == DefaultDomain {
		return "https://api.github.com/"
	}
	return fmt.Sprintf("https://%s/api/v3/", domain)
}

// NewClient creates a GitHub API client authenticated with token against the
// given domain (github.com when empty).
func NewClient(ctx context.Context, token, domain string) (*Client, error) {
	if domain == "" {
		domain = DefaultDomain
	}
	return NewClientWithURL(ctx, token, APIURL(domain), domain)
}

// NewClientWithURL creates a GitHub API client talking to an explicit API
// URL. domain is only used to build web links.
func NewClientWithURL(ctx context.Context, token, apiURL, domain string) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: github token is empty", ErrUnauthorized)
	}

	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	parsedURL, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid github api url: %w", err)
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	client := github.NewClient(oauth2.NewClient(ctx, ts))
	client.BaseURL = parsedURL
	client.UploadURL = parsedURL

	logging.Debug("github client created",
		"api_url", apiURL,
		"token", logging.MaskSensitive(token))

	return &Client{client: client, domain: domain}, nil
}

// ParseRepository splits an "owner/repo" string.
func ParseRepository(repository string) (owner, repo string, err error) {
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %s, expected format: owner/repo", ErrInvalidRepository, repository)
	}
	return parts[0], parts[1], nil
}

// AuthenticatedUser returns the login of the token's owner.
func (c *Client) AuthenticatedUser(ctx context.Context) (*github.User, error) {
	user, resp, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return nil, wrapError("failed to get authenticated user", resp, err)
	}
	return user, nil
}

// BranchSHA returns the commit SHA a branch points at. A missing branch
// yields an error wrapping ErrNotFound.
func (c *Client) BranchSHA(ctx context.Context, owner, repo, branch string) (string, error) {
	ref, resp, err := c.client.Git.GetRef(ctx, owner, repo, "heads/"+branch)
	if err != nil {
		return "", wrapError(fmt.Sprintf("failed to get branch %s", branch), resp, err)
	}
	return ref.GetObject().GetSHA(), nil
}

// BranchExists reports whether a branch exists. Only a 404 counts as absent;
// any other failure is returned.
func (c *Client) BranchExists(ctx context.Context, owner, repo, branch string) (bool, error) {
	_, err := c.BranchSHA(ctx, owner, repo, branch)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateBranch creates refs/heads/branch pointing at sha. An existing branch
// yields an error wrapping ErrAlreadyExists.
func (c *Client) CreateBranch(ctx context.Context, owner, repo, branch, sha string) error {
	ref := &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: github.String(sha)},
	}

	_, resp, err := c.client.Git.CreateRef(ctx, owner, repo, ref)
	if err != nil {
		err = wrapError(fmt.Sprintf("failed to create branch %s", branch), resp, err)
		if errors.Is(err, ErrValidation) {
			return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
		}
		return err
	}

	logging.Debug("created branch", "repository", owner+"/"+repo, "branch", branch, "sha", sha)
	return nil
}

// CreateIssue opens an issue.
func (c *Client) CreateIssue(ctx context.Context, owner, repo string, input models.NewIssue) (*models.Issue, error) {
	req := &github.IssueRequest{
		Title: github.String(input.Title),
		Body:  github.String(input.Body),
	}
	if len(input.Labels) > 0 {
		labels := input.Labels
		req.Labels = &labels
	}
	if len(input.Assignees) > 0 {
		assignees := input.Assignees
		req.Assignees = &assignees
	}

	issue, resp, err := c.client.Issues.Create(ctx, owner, repo, req)
	if err != nil {
		return nil, wrapError("failed to create issue", resp, err)
	}

	logging.Debug("created issue", "repository", owner+"/"+repo, "issue_number", issue.GetNumber())
	return toIssue(issue), nil
}

// UpdateIssueTitle renames an issue.
func (c *Client) UpdateIssueTitle(ctx context.Context, owner, repo string, number int, title string) (*models.Issue, error) {
	issue, resp, err := c.client.Issues.Edit(ctx, owner, repo, number, &github.IssueRequest{
		Title: github.String(title),
	})
	if err != nil {
		return nil, wrapError(fmt.Sprintf("failed to update issue %s#%d", repo, number), resp, err)
	}
	return toIssue(issue), nil
}

// CommitFile adds a single file on top of the branch head and fast-forwards
// the branch to the new commit. It returns the new commit SHA.
func (c *Client) CommitFile(ctx context.Context, owner, repo, branch, path, content, message string) (string, error) {
	headSHA, err := c.BranchSHA(ctx, owner, repo, branch)
	if err != nil {
		return "", err
	}

	head, resp, err := c.client.Git.GetCommit(ctx, owner, repo, headSHA)
	if err != nil {
		return "", wrapError(fmt.Sprintf("failed to get commit %s", headSHA), resp, err)
	}

	blob, resp, err := c.client.Git.CreateBlob(ctx, owner, repo, &github.Blob{
		Content:  github.String(content),
		Encoding: github.String("utf-8"),
	})
	if err != nil {
		return "", wrapError("failed to create blob", resp, err)
	}

	tree, resp, err := c.client.Git.CreateTree(ctx, owner, repo, head.GetTree().GetSHA(), []*github.TreeEntry{
		{
			Path: github.String(path),
			Mode: github.String("100644"),
			Type: github.String("blob"),
			SHA:  blob.SHA,
		},
	})
	if err != nil {
		return "", wrapError("failed to create tree", resp, err)
	}

	commit, resp, err := c.client.Git.CreateCommit(ctx, owner, repo, &github.Commit{
		Message: github.String(message),
		Tree:    &github.Tree{SHA: tree.SHA},
		Parents: []*github.Commit{{SHA: github.String(headSHA)}},
	})
	if err != nil {
		return "", wrapError("failed to create commit", resp, err)
	}

	_, resp, err = c.client.Git.UpdateRef(ctx, owner, repo, &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: commit.SHA},
	}, false)
	if err != nil {
		return "", wrapError(fmt.Sprintf("failed to update branch %s", branch), resp, err)
	}

	logging.Debug("committed file",
		"repository", owner+"/"+repo,
		"branch", branch,
		"path", path,
		"sha", commit.GetSHA())
	return commit.GetSHA(), nil
}

// CreatePullRequest opens a pull request.
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo string, input models.NewPullRequest) (*models.PullRequest, error) {
	pr, resp, err := c.client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(input.Title),
		Head:  github.String(input.Head),
		Base:  github.String(input.Base),
		Body:  github.String(input.Body),
		Draft: github.Bool(input.Draft),
	})
	if err != nil {
		return nil, wrapError("failed to create pull request", resp, err)
	}

	return &models.PullRequest{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		Draft:   pr.GetDraft(),
		Head:    pr.GetHead().GetRef(),
		Base:    pr.GetBase().GetRef(),
		HTMLURL: pr.GetHTMLURL(),
	}, nil
}

// CompareURL returns the web link comparing head against base.
func (c *Client) CompareURL(owner, repo, base, head string) string {
	return fmt.Sprintf("https://%s/%s/%s/compare/%s...%s", c.domain, owner, repo, base, head)
}

func toIssue(issue *github.Issue) *models.Issue {
	labels := make([]string, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		labels = append(labels, label.GetName())
	}
	assignees := make([]string, 0, len(issue.Assignees))
	for _, user := range issue.Assignees {
		assignees = append(assignees, user.GetLogin())
	}

	return &models.Issue{
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		Body:      issue.GetBody(),
		State:     issue.GetState(),
		HTMLURL:   issue.GetHTMLURL(),
		Labels:    labels,
		Assignees: assignees,
	}
}
