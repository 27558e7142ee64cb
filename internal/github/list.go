package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v41/github"
)

// Page selects one page of a listing. Zero values use GitHub's defaults.
type Page struct {
	Number  int
	PerPage int
}

func (p Page) options() github.ListOptions {
	return github.ListOptions{Page: p.Number, PerPage: p.PerPage}
}

// ListRepositories returns the repositories visible to the authenticated user.
func (c *Client) ListRepositories(ctx context.Context, page Page) ([]*github.Repository, error) {
	repos, resp, err := c.client.Repositories.List(ctx, "", &github.RepositoryListOptions{
		Sort:        "updated",
		ListOptions: page.options(),
	})
	if err != nil {
		return nil, wrapError("failed to list repositories", resp, err)
	}
	return repos, nil
}

// ListBranches returns the branches of a repository.
func (c *Client) ListBranches(ctx context.Context, owner, repo string, page Page) ([]*github.Branch, error) {
	branches, resp, err := c.client.Repositories.ListBranches(ctx, owner, repo, &github.BranchListOptions{
		ListOptions: page.options(),
	})
	if err != nil {
		return nil, wrapError(fmt.Sprintf("failed to list branches of %s/%s", owner, repo), resp, err)
	}
	return branches, nil
}

// ListContributors returns the contributors of a repository.
func (c *Client) ListContributors(ctx context.Context, owner, repo string, page Page) ([]*github.Contributor, error) {
	contributors, resp, err := c.client.Repositories.ListContributors(ctx, owner, repo, &github.ListContributorsOptions{
		ListOptions: page.options(),
	})
	if err != nil {
		return nil, wrapError(fmt.Sprintf("failed to list contributors of %s/%s", owner, repo), resp, err)
	}
	return contributors, nil
}

// ListCommits returns the commits of a repository's default branch, or of
// branch when set.
func (c *Client) ListCommits(ctx context.Context, owner, repo, branch string, page Page) ([]*github.RepositoryCommit, error) {
	commits, resp, err := c.client.Repositories.ListCommits(ctx, owner, repo, &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: page.options(),
	})
	if err != nil {
		return nil, wrapError(fmt.Sprintf("failed to list commits of %s/%s", owner, repo), resp, err)
	}
	return commits, nil
}

// ListIssues returns the issues of a repository in the given state
// ("open", "closed" or "all"). Pull requests are filtered out.
func (c *Client) ListIssues(ctx context.Context, owner, repo, state string, page Page) ([]*github.Issue, error) {
	if state == "" {
		state = "open"
	}

	issues, resp, err := c.client.Issues.ListByRepo(ctx, owner, repo, &github.IssueListByRepoOptions{
		State:       state,
		ListOptions: page.options(),
	})
	if err != nil {
		return nil, wrapError(fmt.Sprintf("failed to list issues of %s/%s", owner, repo), resp, err)
	}

	// Skip pull requests (they're also returned by the Issues API)
	result := make([]*github.Issue, 0, len(issues))
	for _, issue := range issues {
		if issue.PullRequestLinks != nil {
			continue
		}
		result = append(result, issue)
	}
	return result, nil
}

// ListPullRequests returns the pull requests of a repository in the given state.
func (c *Client) ListPullRequests(ctx context.Context, owner, repo, state string, page Page) ([]*github.PullRequest, error) {
	if state == "" {
		state = "open"
	}

	pulls, resp, err := c.client.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
		State:       state,
		ListOptions: page.options(),
	})
	if err != nil {
		return nil, wrapError(fmt.Sprintf("failed to list pull requests of %s/%s", owner, repo), resp, err)
	}
	return pulls, nil
}
