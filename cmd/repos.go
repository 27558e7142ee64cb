package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/ghm/internal/github"
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List repositories of the authenticated user",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		perPage, _ := cmd.Flags().GetInt("per-page")
		return reposRun(cmd, github.Page{Number: page, PerPage: perPage})
	},
}

func init() {
	reposCmd.Flags().Int("page", 1, "Page number")
	reposCmd.Flags().Int("per-page", 30, "Repositories per page")
}

func reposRun(cmd *cobra.Command, page github.Page) error {
	gh, err := newGitHubClient(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize github client: %w", err)
	}

	repos, err := gh.ListRepositories(cmd.Context(), page)
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		ui.Info("No repositories found")
		return nil
	}

	table := ui.Table([]string{"Repository", "Visibility", "Default Branch", "URL"})
	for _, repo := range repos {
		visibility := "public"
		if repo.GetPrivate() {
			visibility = "private"
		}
		_ = table.Append([]string{
			repo.GetFullName(),
			visibility,
			repo.GetDefaultBranch(),
			repo.GetHTMLURL(),
		})
	}
	return table.Render()
}
