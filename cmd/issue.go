package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/ghm/internal/issues"
	"github.com/danielolaszy/ghm/internal/jira"
	"github.com/danielolaszy/ghm/internal/logging"
	"github.com/danielolaszy/ghm/pkg/models"
)

// issueFlags holds the values of the "issue create" flags.
type issueFlags struct {
	title         string
	description   string
	issueType     string
	priority      string
	reporter      string
	assignees     []string
	labels        []string
	estimate      float64
	hasEstimate   bool
	due           string
	epic          string
	parent        string
	base          string
	workBreakdown string
	output        string
}

var createFlags issueFlags

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Manage GitHub issues",
}

var issueCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an issue with its branch, tracking commit and draft pull request",
	Long: `Create a GitHub issue together with a dedicated branch, a tracking commit
and a draft pull request that closes the issue.

Example:
  ghm issue create -r acme/widgets --title "Add login page" --type feature --priority high

When --reporter is omitted the authenticated user is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repository, err := cmd.Flags().GetString("repository")
		if err != nil {
			return err
		}
		if repository == "" {
			return fmt.Errorf("repository flag is required")
		}
		createFlags.hasEstimate = cmd.Flags().Changed("estimate")

		return issueCreateRun(cmd, repository, createFlags)
	},
}

func init() {
	f := issueCreateCmd.Flags()
	f.StringVar(&createFlags.title, "title", "", "Issue title (required)")
	f.StringVarP(&createFlags.description, "description", "d", "", "Issue description")
	f.StringVarP(&createFlags.issueType, "type", "t", string(models.TypeTask), "Issue type: task, feature, bug or epic")
	f.StringVarP(&createFlags.priority, "priority", "p", string(models.PriorityMedium), "Priority: low, medium, high or critical")
	f.StringVar(&createFlags.reporter, "reporter", "", "Reporter login (defaults to the authenticated user)")
	f.StringArrayVarP(&createFlags.assignees, "assignee", "a", nil, "Assignee login, can be repeated")
	f.StringArrayVarP(&createFlags.labels, "label", "l", nil, "Extra label, can be repeated")
	f.Float64Var(&createFlags.estimate, "estimate", 0, "Estimated hours")
	f.StringVar(&createFlags.due, "due", "", "Due date (e.g., 2026-12-31)")
	f.StringVar(&createFlags.epic, "epic", "", "Epic issue number or reference")
	f.StringVar(&createFlags.parent, "parent", "", "Parent issue number or reference")
	f.StringVar(&createFlags.base, "base", "", "Preferred base branch (defaults to main, then master)")
	f.StringVar(&createFlags.workBreakdown, "work-breakdown", "", "Work breakdown as a JSON document")
	f.StringVarP(&createFlags.output, "output", "o", "text", "Output format: text, json or yaml")
	_ = issueCreateCmd.MarkFlagRequired("title")

	issueCmd.AddCommand(issueCreateCmd)
}

// buildRequest maps the command flags onto an issue creation request.
func buildRequest(repository string, f issueFlags) models.IssueCreationRequest {
	req := models.IssueCreationRequest{
		ProjectID:   repository,
		Title:       f.title,
		Description: f.description,
		Type:        models.ParseIssueType(f.issueType),
		Priority:    models.ParsePriority(f.priority),
		ReporterID:  f.reporter,
		AssigneeIDs: f.assignees,
		Labels:      f.labels,
		DueDate:     f.due,
		EpicID:      f.epic,
		ParentID:    f.parent,
		BaseBranch:  f.base,
	}
	if f.hasEstimate {
		estimate := f.estimate
		req.EstimatedHours = &estimate
	}
	if f.workBreakdown != "" {
		req.WorkBreakdown = json.RawMessage(f.workBreakdown)
	}
	return req
}

func issueCreateRun(cmd *cobra.Command, repository string, f issueFlags) error {
	ctx := cmd.Context()

	gh, err := newGitHubClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize github client: %w", err)
	}

	req := buildRequest(repository, f)
	if req.ReporterID == "" {
		user, err := gh.AuthenticatedUser(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve reporter: %w", err)
		}
		req.ReporterID = user.GetLogin()
	}

	var opts []issues.Option
	if cfg.Jira.Enabled() {
		tracker, err := jira.NewClient(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize jira client: %w", err)
		}
		opts = append(opts, issues.WithTracker(tracker))
	}

	logging.Debug("creating issue", "repository", repository, "title", req.Title, "type", req.Type)

	result, err := issues.NewCreator(gh, opts...).Create(ctx, req)
	if err != nil {
		return err
	}
	return ui.Result(f.output, result)
}
