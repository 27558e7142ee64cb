package issues

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielolaszy/ghm/internal/github"
	"github.com/danielolaszy/ghm/internal/github/githubtest"
	"github.com/danielolaszy/ghm/pkg/models"
)

var epoch = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

// tickingClock advances one millisecond every time it is read.
func tickingClock() func() time.Time {
	now := epoch
	return func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}
}

func fixedClock() time.Time { return epoch }

type fakeTracker struct {
	calls []models.Issue
	err   error
}

func (f *fakeTracker) CreateTicket(ctx context.Context, issue models.Issue, req models.IssueCreationRequest) (string, error) {
	f.calls = append(f.calls, issue)
	if f.err != nil {
		return "", f.err
	}
	return "MIRROR-1", nil
}

func setup(t *testing.T, branches ...string) (*githubtest.Server, *github.Client) {
	t.Helper()
	srv := githubtest.NewServer(t)
	srv.AddRepo("acme", "widgets", branches...)
	client, err := github.NewClientWithURL(context.Background(), "user-token", srv.URL, "github.com")
	require.NoError(t, err)
	return srv, client
}

func loginRequest() models.IssueCreationRequest {
	return models.IssueCreationRequest{
		ProjectID:  "acme/widgets",
		Title:      "Add login page",
		Type:       "FEATURE",
		Priority:   "HIGH",
		ReporterID: "alice",
	}
}

func TestCreateEndToEnd(t *testing.T) {
	srv, client := setup(t, "main")
	tracker := &fakeTracker{}
	creator := NewCreator(client, WithClock(tickingClock()), WithTracker(tracker))

	result, err := creator.Create(context.Background(), loginRequest())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, models.OutcomeFull, result.Outcome)
	assert.True(t, result.HasInitialCommit)
	assert.Equal(t, notesFull, result.Notes)

	assert.Equal(t, "feature/add_login_page", result.Branch.Name)
	assert.Equal(t, "main", result.Branch.BaseBranch)
	assert.Equal(t, "https://github.com/acme/widgets/compare/main...feature/add_login_page", result.Branch.URL)

	assert.Equal(t, 1, result.Issue.Number)
	assert.Equal(t, "[ACME-1] Add login page", result.Issue.Title)
	assert.Equal(t, "ACME-1", result.Issue.Key)
	assert.Equal(t, "feature/add_login_page", result.Issue.BranchName)
	assert.Equal(t, []string{"feature", "high"}, result.Issue.Labels)
	assert.Equal(t, []string{"alice"}, result.Issue.Assignees)

	require.NotNil(t, result.PullRequest)
	assert.Equal(t, "[ACME-1] Add login page", result.PullRequest.Title)
	assert.True(t, result.PullRequest.Draft)
	assert.Equal(t, "feature/add_login_page", result.PullRequest.Head)
	assert.Equal(t, "main", result.PullRequest.Base)
	assert.True(t, strings.HasPrefix(result.PullRequest.Body, "Closes #1\n\n"))
	assert.Contains(t, result.PullRequest.Body, "## Branch")

	content, ok := srv.File("acme", "widgets", "feature/add_login_page", "ISSUE_ACME-1.md")
	require.True(t, ok, "tracking file must be committed to the new branch")
	assert.Contains(t, content, "# ACME-1: Add login page")

	issues := srv.Issues("acme", "widgets")
	require.Len(t, issues, 1)
	assert.Equal(t, "[ACME-1] Add login page", issues[0].Title)

	assert.Equal(t, "MIRROR-1", result.TrackerKey)
	require.Len(t, tracker.calls, 1)
	assert.Equal(t, "ACME-1", tracker.calls[0].Key)

	for _, token := range srv.Tokens() {
		assert.Equal(t, "user-token", token)
	}
}

func TestCreateFallsBackToMaster(t *testing.T) {
	srv, client := setup(t, "master")
	creator := NewCreator(client, WithClock(tickingClock()))

	result, err := creator.Create(context.Background(), loginRequest())
	require.NoError(t, err)

	assert.Equal(t, "master", result.Branch.BaseBranch)
	assert.Contains(t, result.Branch.URL, "/compare/master...")
	require.NotNil(t, result.PullRequest)
	assert.Equal(t, "master", result.PullRequest.Base)
	assert.Equal(t, srv.Branches("acme", "widgets")["master"], result.Branch.BaseSHA)
}

func TestCreatePreferredBaseBranch(t *testing.T) {
	_, client := setup(t, "main", "develop")
	creator := NewCreator(client, WithClock(tickingClock()))

	req := loginRequest()
	req.BaseBranch = "develop"
	result, err := creator.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "develop", result.Branch.BaseBranch)
}

func TestCreateWithoutDefaultBranch(t *testing.T) {
	srv, client := setup(t, "develop")
	creator := NewCreator(client, WithClock(tickingClock()))

	_, err := creator.Create(context.Background(), loginRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoDefaultBranch)
	assert.True(t, strings.HasPrefix(err.Error(), "failed to create issue: "))

	assert.Empty(t, srv.Issues("acme", "widgets"), "no issue may be left dangling")
	assert.Len(t, srv.Branches("acme", "widgets"), 1)
}

func TestCreateBaseLookupErrorIsNotConfigurationError(t *testing.T) {
	srv, client := setup(t, "main")
	srv.Fail(http.MethodGet, "/git/ref/heads/main", http.StatusInternalServerError)
	creator := NewCreator(client)

	_, err := creator.Create(context.Background(), loginRequest())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoDefaultBranch))
}

func TestCreateBranchCollision(t *testing.T) {
	srv, client := setup(t, "main")
	srv.AddBranch("acme", "widgets", "feature/x", "main")
	creator := NewCreator(client, WithClock(tickingClock()))

	req := loginRequest()
	req.Title = "x"
	result, err := creator.Create(context.Background(), req)
	require.NoError(t, err)

	expected := fmt.Sprintf("feature/x_%d", epoch.Add(time.Millisecond).UnixMilli())
	assert.Equal(t, expected, result.Branch.Name)
	assert.Equal(t, expected, result.Issue.BranchName)
	assert.Contains(t, srv.Branches("acme", "widgets"), expected)
}

func TestCreateBranchCollisionExhausted(t *testing.T) {
	srv, client := setup(t, "main")
	srv.AddBranch("acme", "widgets", "feature/x", "main")
	srv.AddBranch("acme", "widgets", fmt.Sprintf("feature/x_%d", epoch.UnixMilli()), "main")
	creator := NewCreator(client, WithClock(fixedClock))

	req := loginRequest()
	req.Title = "x"
	_, err := creator.Create(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBranchCollision)
	assert.Empty(t, srv.Issues("acme", "widgets"))
}

func TestCreateBranchRaceCountsAsCollision(t *testing.T) {
	srv, client := setup(t, "main")
	// every create loses the race
	srv.Fail(http.MethodPost, "/git/refs", http.StatusUnprocessableEntity)
	creator := NewCreator(client, WithClock(tickingClock()))

	_, err := creator.Create(context.Background(), loginRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBranchCollision)

	creates := 0
	for _, r := range srv.Requests() {
		if r == "POST /repos/acme/widgets/git/refs" {
			creates++
		}
	}
	assert.Equal(t, MaxBranchAttempts, creates)
}

func TestCreateTrackingCommitFailure(t *testing.T) {
	srv, client := setup(t, "main")
	srv.Fail(http.MethodPost, "/git/blobs", http.StatusInternalServerError)
	creator := NewCreator(client, WithClock(tickingClock()))

	result, err := creator.Create(context.Background(), loginRequest())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.False(t, result.HasInitialCommit)
	assert.Nil(t, result.PullRequest)
	assert.Equal(t, models.OutcomeNoCommit, result.Outcome)
	assert.Equal(t, notesNoCommit, result.Notes)

	assert.Len(t, srv.Issues("acme", "widgets"), 1)
	assert.Contains(t, srv.Branches("acme", "widgets"), "feature/add_login_page")
	assert.Empty(t, srv.Pulls("acme", "widgets"), "pull request must not be attempted")
}

func TestCreatePullRequestFailure(t *testing.T) {
	srv, client := setup(t, "main")
	srv.Fail(http.MethodPost, "/pulls", http.StatusInternalServerError)
	creator := NewCreator(client, WithClock(tickingClock()))

	result, err := creator.Create(context.Background(), loginRequest())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.HasInitialCommit)
	assert.Nil(t, result.PullRequest)
	assert.Equal(t, models.OutcomeNoPullRequest, result.Outcome)
	assert.Equal(t, notesNoPullRequest, result.Notes)
}

func TestCreateIssueFailureAborts(t *testing.T) {
	srv, client := setup(t, "main")
	srv.Fail(http.MethodPost, "/repos/acme/widgets/issues", http.StatusInternalServerError)
	creator := NewCreator(client)

	_, err := creator.Create(context.Background(), loginRequest())
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to create issue: failed to create issue")

	// the branch is not rolled back
	assert.Contains(t, srv.Branches("acme", "widgets"), "feature/add_login_page")
}

func TestCreateTrackerFailureKeepsOutcome(t *testing.T) {
	_, client := setup(t, "main")
	tracker := &fakeTracker{err: errors.New("jira down")}
	creator := NewCreator(client, WithClock(tickingClock()), WithTracker(tracker))

	result, err := creator.Create(context.Background(), loginRequest())
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeFull, result.Outcome)
	assert.Empty(t, result.TrackerKey)
	assert.Len(t, tracker.calls, 1)
}

func TestCreateInvalidRequest(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*models.IssueCreationRequest)
	}{
		{name: "empty title", mutate: func(r *models.IssueCreationRequest) { r.Title = "   " }},
		{name: "missing reporter", mutate: func(r *models.IssueCreationRequest) { r.ReporterID = "" }},
		{name: "project without slash", mutate: func(r *models.IssueCreationRequest) { r.ProjectID = "acme" }},
		{name: "project with empty repo", mutate: func(r *models.IssueCreationRequest) { r.ProjectID = "acme/" }},
		{name: "project with three segments", mutate: func(r *models.IssueCreationRequest) { r.ProjectID = "a/b/c" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv, client := setup(t, "main")
			creator := NewCreator(client)

			req := loginRequest()
			tc.mutate(&req)
			_, err := creator.Create(context.Background(), req)
			assert.ErrorIs(t, err, models.ErrInvalidRequest)
			assert.Empty(t, srv.Requests(), "validation must fail before any remote call")
		})
	}
}
