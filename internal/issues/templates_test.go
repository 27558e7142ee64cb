package issues

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/danielolaszy/ghm/pkg/models"
)

func TestIssueKey(t *testing.T) {
	testCases := []struct {
		projectID string
		number    int
		expected  string
	}{
		{"ABCD/something", 42, "ABCD-42"},
		{"acme/widgets", 7, "ACME-7"},
		{"danielolaszy/glue", 1, "DANI-1"},
		{"ab/cd", 3, "ABCD-3"},
		{"x-y/z", 10, "XYZ-10"},
	}

	for _, tc := range testCases {
		t.Run(tc.projectID, func(t *testing.T) {
			assert.Equal(t, tc.expected, IssueKey(tc.projectID, tc.number))
		})
	}
}

func TestKeyedTitle(t *testing.T) {
	assert.Equal(t, "[ACME-42] Add login page", KeyedTitle("ACME-42", "Add login page"))
}

func TestLabels(t *testing.T) {
	req := models.IssueCreationRequest{
		Type:     models.TypeFeature,
		Priority: models.PriorityHigh,
		Labels:   []string{"UI", "frontend", "ui", " ", "Feature"},
	}
	assert.Equal(t, []string{"ui", "frontend", "feature", "high"}, Labels(req))

	assert.Equal(t, []string{"bug", "low"}, Labels(models.IssueCreationRequest{
		Type:     models.TypeBug,
		Priority: models.PriorityLow,
	}))
}

func TestAssignees(t *testing.T) {
	assert.Equal(t, []string{"alice"}, Assignees(models.IssueCreationRequest{ReporterID: "alice"}))
	assert.Equal(t, []string{"alice"}, Assignees(models.IssueCreationRequest{ReporterID: "alice", AssigneeIDs: []string{" "}}))
	assert.Equal(t, []string{"bob", "carol"}, Assignees(models.IssueCreationRequest{
		ReporterID:  "alice",
		AssigneeIDs: []string{"bob", "carol"},
	}))
}

func TestIssueBody(t *testing.T) {
	estimated := 4.5
	req := models.IssueCreationRequest{
		Description:    "Users need to sign in.",
		Type:           models.TypeFeature,
		Priority:       models.PriorityHigh,
		ReporterID:     "alice",
		EstimatedHours: &estimated,
		DueDate:        "2026-11-01",
		EpicID:         "12",
		ParentID:       "https://github.com/acme/widgets/issues/3",
		WorkBreakdown:  json.RawMessage(`{"tasks":["form","api"]}`),
	}

	body := IssueBody(req, "feature/add_login_page")

	assert.Contains(t, body, "## Description\n\nUsers need to sign in.")
	assert.Contains(t, body, "- **Type:** Feature")
	assert.Contains(t, body, "- **Priority:** High")
	assert.Contains(t, body, "- **Reporter:** @alice")
	assert.Contains(t, body, "- **Estimated Hours:** 4.5")
	assert.Contains(t, body, "- **Actual Hours:** Not set")
	assert.Contains(t, body, "- **Due Date:** 2026-11-01")
	assert.Contains(t, body, "- **Epic:** #12")
	assert.Contains(t, body, "- **Parent:** https://github.com/acme/widgets/issues/3")
	assert.Contains(t, body, "```json\n{\n  \"tasks\": [\n    \"form\",\n    \"api\"\n  ]\n}\n```")
	assert.Contains(t, body, "## Branch\n\n`feature/add_login_page`")
}

func TestIssueBodyMinimal(t *testing.T) {
	body := IssueBody(models.IssueCreationRequest{Type: models.TypeTask, Priority: models.PriorityLow, ReporterID: "bob"}, "task/x")

	assert.Contains(t, body, "_No description provided._")
	assert.Contains(t, body, "- **Epic:** None")
	assert.NotContains(t, body, "Work Breakdown")

	body = IssueBody(models.IssueCreationRequest{WorkBreakdown: json.RawMessage("null")}, "task/x")
	assert.NotContains(t, body, "Work Breakdown")
}

func TestWorkBreakdownInvalidJSON(t *testing.T) {
	assert.Equal(t, "not json", workBreakdown(json.RawMessage(" not json ")))
}

func TestPullRequestBody(t *testing.T) {
	assert.Equal(t, "Closes #42\n\nbody", PullRequestBody(42, "body"))
}

func TestTrackingFile(t *testing.T) {
	created := time.Date(2026, 10, 14, 9, 30, 0, 0, time.FixedZone("CEST", 2*60*60))

	assert.Equal(t, "ISSUE_ACME-42.md", TrackingFilePath("ACME-42"))
	assert.Equal(t, "[ACME-42] Initialize issue tracking", TrackingCommitMessage("ACME-42"))

	content := TrackingFile("ACME-42", "Add login page", "feature/add_login_page", created)
	assert.Contains(t, content, "# ACME-42: Add login page\n")
	assert.Contains(t, content, "- **Branch:** `feature/add_login_page`")
	assert.Contains(t, content, "- **Created:** 2026-10-14T07:30:00Z")
	assert.Contains(t, content, "## Checklist")
	assert.Contains(t, content, "- [ ] Tests")
}
