// Package jira mirrors issues created by ghm into a JIRA project.
package jira

import (
	"context"
	"fmt"
	"strings"

	jira "github.com/andygrunwald/go-jira"

	"github.com/danielolaszy/ghm/internal/config"
	"github.com/danielolaszy/ghm/internal/logging"
	"github.com/danielolaszy/ghm/pkg/models"
)

// signature marks tickets created by ghm.
const signature = "Created by ghm from GitHub issue"

// Client handles interactions with the JIRA API
type Client struct {
	client  *jira.Client
	project string
}

// NewClient creates a new JIRA client from the JIRA configuration.
func NewClient(cfg *config.Config) (*Client, error) {
	if err := config.ValidateJiraConfig(cfg); err != nil {
		return nil, err
	}

	// Create JIRA authentication transport
	tp := jira.BasicAuthTransport{
		Username: cfg.Jira.Username,
		Password: cfg.Jira.Token,
	}

	client, err := jira.NewClient(tp.Client(), cfg.Jira.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	logging.Info("jira mirroring enabled",
		"url", cfg.Jira.BaseURL,
		"project", cfg.Jira.Project,
		"username", cfg.Jira.Username,
		"token", logging.MaskSensitive(cfg.Jira.Token))

	return &Client{client: client, project: cfg.Jira.Project}, nil
}

// IssueTypeName maps an issue type onto the matching JIRA issue type.
func IssueTypeName(issueType models.IssueType) string {
	switch models.ParseIssueType(string(issueType)) {
	case models.TypeFeature:
		return "Story"
	case models.TypeBug:
		return "Bug"
	case models.TypeEpic:
		return "Epic"
	default:
		return "Task"
	}
}

// CreateTicket creates a JIRA ticket mirroring a GitHub issue and returns its key.
func (c *Client) CreateTicket(ctx context.Context, issue models.Issue, req models.IssueCreationRequest) (string, error) {
	description := fmt.Sprintf("%s\n\n----\n%s %s (%s)\nBranch: %s",
		strings.TrimSpace(req.Description), signature, issue.Key, issue.HTMLURL, issue.BranchName)

	fields := &jira.IssueFields{
		Project: jira.Project{
			Key: c.project,
		},
		Summary:     issue.Title,
		Description: description,
		Type: jira.IssueType{
			Name: IssueTypeName(req.Type),
		},
		Labels: issue.Labels,
	}
	if req.Priority != "" {
		fields.Priority = &jira.Priority{Name: string(req.Priority)}
	}

	created, resp, err := c.client.Issue.CreateWithContext(ctx, &jira.Issue{Fields: fields})
	if err != nil {
		if resp != nil {
			return "", fmt.Errorf("failed to create jira ticket: %w (status: %d)", err, resp.StatusCode)
		}
		return "", fmt.Errorf("failed to create jira ticket: %w", err)
	}

	logging.Info("created jira ticket",
		"jira_key", created.Key,
		"github_key", issue.Key,
		"project", c.project)
	return created.Key, nil
}
