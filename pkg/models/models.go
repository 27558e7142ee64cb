// Package models defines data structures shared across the application.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest is returned when an issue creation request fails validation.
var ErrInvalidRequest = errors.New("invalid issue creation request")

// IssueType is the kind of work an issue tracks.
type IssueType string

const (
	TypeTask    IssueType = "Task"
	TypeFeature IssueType = "Feature"
	TypeBug     IssueType = "Bug"
	TypeEpic    IssueType = "Epic"
)

// ParseIssueType matches s case-insensitively against the known issue types.
// Unknown values are returned verbatim so callers can still fall back on them.
func ParseIssueType(s string) IssueType {
	s = strings.TrimSpace(s)
	for _, t := range []IssueType{TypeTask, TypeFeature, TypeBug, TypeEpic} {
		if strings.EqualFold(s, string(t)) {
			return t
		}
	}
	return IssueType(s)
}

// Priority is the urgency of an issue.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// ParsePriority matches s case-insensitively against the known priorities.
func ParsePriority(s string) Priority {
	s = strings.TrimSpace(s)
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical} {
		if strings.EqualFold(s, string(p)) {
			return p
		}
	}
	return Priority(s)
}

// IssueCreationRequest is the payload submitted to create an issue together
// with its branch, tracking commit and draft pull request.
type IssueCreationRequest struct {
	// ProjectID is the "owner/repository" pair the issue is created in
	ProjectID string `json:"projectId" yaml:"projectId"`

	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Type        IssueType `json:"type" yaml:"type"`
	Priority    Priority  `json:"priority" yaml:"priority"`

	// ReporterID is the GitHub login of the user filing the issue. It becomes
	// the assignee when AssigneeIDs is empty.
	ReporterID  string   `json:"reporterId" yaml:"reporterId"`
	AssigneeIDs []string `json:"assigneeIds,omitempty" yaml:"assigneeIds,omitempty"`
	Labels      []string `json:"labels,omitempty" yaml:"labels,omitempty"`

	EstimatedHours *float64 `json:"estimatedHours,omitempty" yaml:"estimatedHours,omitempty"`
	ActualHours    *float64 `json:"actualHours,omitempty" yaml:"actualHours,omitempty"`
	DueDate        string   `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	EpicID         string   `json:"epicId,omitempty" yaml:"epicId,omitempty"`
	ParentID       string   `json:"parentId,omitempty" yaml:"parentId,omitempty"`

	// WorkBreakdown is an arbitrary JSON document embedded in the issue body
	WorkBreakdown json.RawMessage `json:"workBreakdown,omitempty" yaml:"-"`

	// BaseBranch is the preferred branch to fork from. Defaults to "main".
	BaseBranch string `json:"baseBranch,omitempty" yaml:"baseBranch,omitempty"`
}

// ParseProjectID splits a project identifier into owner and repository.
func ParseProjectID(projectID string) (owner, repo string, err error) {
	parts := strings.Split(projectID, "/")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return "", "", fmt.Errorf("%w: invalid project id %q, expected format: owner/repo", ErrInvalidRequest, projectID)
	}
	return parts[0], parts[1], nil
}

// Validate normalizes the type and priority and checks the required fields.
func (r *IssueCreationRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.ReporterID = strings.TrimSpace(r.ReporterID)
	r.Type = ParseIssueType(string(r.Type))
	r.Priority = ParsePriority(string(r.Priority))

	if r.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidRequest)
	}
	if r.ReporterID == "" {
		return fmt.Errorf("%w: reporter id is required", ErrInvalidRequest)
	}
	if _, _, err := ParseProjectID(r.ProjectID); err != nil {
		return err
	}
	return nil
}

// Issue represents a GitHub issue created by the workflow.
type Issue struct {
	// Number is the issue number in GitHub (e.g., 42)
	Number int `json:"number" yaml:"number"`

	// Title is the issue's title, including the key prefix once renamed
	Title string `json:"title" yaml:"title"`

	Body      string   `json:"body" yaml:"body"`
	State     string   `json:"state" yaml:"state"`
	HTMLURL   string   `json:"htmlUrl" yaml:"htmlUrl"`
	Labels    []string `json:"labels" yaml:"labels"`
	Assignees []string `json:"assignees" yaml:"assignees"`

	// Key is the generated issue key (e.g., "ACME-42")
	Key string `json:"key,omitempty" yaml:"key,omitempty"`

	// BranchName is the branch reserved for this issue
	BranchName string `json:"branchName,omitempty" yaml:"branchName,omitempty"`
}

// Branch describes the branch reserved for an issue.
type Branch struct {
	Name       string `json:"name" yaml:"name"`
	BaseBranch string `json:"baseBranch" yaml:"baseBranch"`
	BaseSHA    string `json:"baseSha" yaml:"baseSha"`

	// URL is the web compare view of the branch against its base
	URL string `json:"url" yaml:"url"`
}

// PullRequest represents a draft pull request opened for an issue.
type PullRequest struct {
	Number  int    `json:"number" yaml:"number"`
	Title   string `json:"title" yaml:"title"`
	Body    string `json:"body" yaml:"body"`
	Draft   bool   `json:"draft" yaml:"draft"`
	Head    string `json:"head" yaml:"head"`
	Base    string `json:"base" yaml:"base"`
	HTMLURL string `json:"htmlUrl" yaml:"htmlUrl"`
}

// NewPullRequest holds the fields needed to open a pull request.
type NewPullRequest struct {
	Title string
	Body  string
	Head  string
	Base  string
	Draft bool
}

// NewIssue holds the fields needed to open an issue.
type NewIssue struct {
	Title     string
	Body      string
	Labels    []string
	Assignees []string
}

// Outcome tags how far the issue creation workflow got.
type Outcome string

const (
	// OutcomeFull means the issue, branch, tracking commit and pull request all exist.
	OutcomeFull Outcome = "full"
	// OutcomeNoPullRequest means the tracking commit landed but the pull request could not be opened.
	OutcomeNoPullRequest Outcome = "partial-no-pr"
	// OutcomeNoCommit means the tracking commit failed, so no pull request was attempted.
	OutcomeNoCommit Outcome = "partial-no-commit"
)

// CreationResult is the aggregate returned by the issue creation workflow.
type CreationResult struct {
	Success          bool         `json:"success" yaml:"success"`
	Outcome          Outcome      `json:"outcome" yaml:"outcome"`
	Issue            Issue        `json:"issue" yaml:"issue"`
	Branch           Branch       `json:"branch" yaml:"branch"`
	PullRequest      *PullRequest `json:"pullRequest,omitempty" yaml:"pullRequest,omitempty"`
	HasInitialCommit bool         `json:"hasInitialCommit" yaml:"hasInitialCommit"`

	// TrackerKey is the Jira ticket mirroring the issue, when mirroring is enabled
	TrackerKey string `json:"trackerKey,omitempty" yaml:"trackerKey,omitempty"`

	Notes string `json:"notes" yaml:"notes"`
}
