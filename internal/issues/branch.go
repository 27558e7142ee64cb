package issues

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/danielolaszy/ghm/internal/github"
	"github.com/danielolaszy/ghm/internal/logging"
	"github.com/danielolaszy/ghm/pkg/models"
)

const (
	// MaxSlugLength is the maximum length of the title part of a branch name.
	MaxSlugLength = 30
	// MaxBranchAttempts bounds how many names are probed before giving up.
	MaxBranchAttempts = 5
	// DefaultBaseBranch is tried first when the request names no base.
	DefaultBaseBranch = "main"
	// FallbackBaseBranch is tried when the preferred base does not exist.
	FallbackBaseBranch = "master"

	emptySlug = "new_issue"
)

var (
	// ErrNoDefaultBranch means none of the base branch candidates exist.
	ErrNoDefaultBranch = errors.New("repository has no usable default branch")
	// ErrBranchCollision means every probed branch name was already taken.
	ErrBranchCollision = errors.New("could not find an unused branch name")

	nonSlugChars = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// BranchPrefix returns the branch namespace for an issue type.
func BranchPrefix(issueType models.IssueType) string {
	switch models.ParseIssueType(string(issueType)) {
	case models.TypeFeature:
		return "feature"
	case models.TypeBug:
		return "hotfix"
	case models.TypeEpic:
		return "epic"
	default:
		return "task"
	}
}

// Slug turns a title into the lowercase [a-z0-9_] form used in branch names.
func Slug(title string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(title), "")
	slug = whitespace.ReplaceAllString(strings.TrimSpace(slug), "_")
	if len(slug) > MaxSlugLength {
		slug = strings.TrimRight(slug[:MaxSlugLength], "_")
	}
	if slug == "" {
		return emptySlug
	}
	return slug
}

// BranchName returns the deterministic base branch name for an issue.
func BranchName(issueType models.IssueType, title string) string {
	return BranchPrefix(issueType) + "/" + Slug(title)
}

func baseCandidates(preferred string) []string {
	if preferred == "" {
		preferred = DefaultBaseBranch
	}
	if preferred == FallbackBaseBranch {
		return []string{preferred}
	}
	return []string{preferred, FallbackBaseBranch}
}

// resolveBase returns the first candidate base branch that exists and its head SHA.
func (c *Creator) resolveBase(ctx context.Context, owner, repo, preferred string) (string, string, error) {
	candidates := baseCandidates(preferred)
	for _, candidate := range candidates {
		sha, err := c.gh.BranchSHA(ctx, owner, repo, candidate)
		if errors.Is(err, github.ErrNotFound) {
			logging.Debug("base branch candidate missing",
				"repository", owner+"/"+repo,
				"branch", candidate)
			continue
		}
		if err != nil {
			return "", "", err
		}
		return candidate, sha, nil
	}
	return "", "", fmt.Errorf("%w: tried %s in %s/%s", ErrNoDefaultBranch, strings.Join(candidates, ", "), owner, repo)
}

// reserveBranch resolves the base branch, finds a free name derived from
// name and creates it. Collisions are retried with a timestamp suffix.
func (c *Creator) reserveBranch(ctx context.Context, owner, repo, preferredBase, name string) (*models.Branch, error) {
	base, sha, err := c.resolveBase(ctx, owner, repo, preferredBase)
	if err != nil {
		return nil, err
	}

	candidate := name
	for attempt := 0; attempt < MaxBranchAttempts; attempt++ {
		if attempt > 0 {
			candidate = fmt.Sprintf("%s_%d", name, c.now().UnixMilli())
		}

		exists, err := c.gh.BranchExists(ctx, owner, repo, candidate)
		if err != nil {
			return nil, err
		}
		if exists {
			logging.Debug("branch name taken", "branch", candidate, "attempt", attempt+1)
			continue
		}

		err = c.gh.CreateBranch(ctx, owner, repo, candidate, sha)
		if errors.Is(err, github.ErrAlreadyExists) {
			// lost a race with a concurrent request
			logging.Debug("branch created concurrently", "branch", candidate, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}

		logging.Info("reserved branch",
			"repository", owner+"/"+repo,
			"branch", candidate,
			"base", base,
			"attempts", attempt+1)

		return &models.Branch{
			Name:       candidate,
			BaseBranch: base,
			BaseSHA:    sha,
			URL:        c.gh.CompareURL(owner, repo, base, candidate),
		}, nil
	}

	return nil, fmt.Errorf("%w: %s after %d attempts", ErrBranchCollision, name, MaxBranchAttempts)
}
