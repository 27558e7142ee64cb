// Package cmd provides the command-line interface for ghm.
package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/ghm/internal/config"
	"github.com/danielolaszy/ghm/internal/github"
	"github.com/danielolaszy/ghm/internal/logging"
	"github.com/danielolaszy/ghm/internal/output"
)

// Package-level shared dependencies, initialized before every command runs.
var (
	ui  *output.UI
	cfg *config.Config

	// newGitHubClient builds the client used by CLI commands from GITHUB_TOKEN.
	newGitHubClient = func(ctx context.Context, cfg *config.Config) (*github.Client, error) {
		if err := config.ValidateGitHubConfig(cfg); err != nil {
			return nil, err
		}
		return github.NewClient(ctx, cfg.GitHub.Token, cfg.GitHub.Domain)
	}
)

var rootCmd = &cobra.Command{
	Use:   "ghm",
	Short: "ghm creates fully wired GitHub issues",
	Long: `ghm turns a single issue request into a GitHub issue, a dedicated branch,
a tracking commit and a draft pull request linked to the issue.

It runs either as an HTTP backend ("ghm serve") acting on behalf of the caller's
GitHub token, or directly from the terminal using GITHUB_TOKEN.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	ui = output.New()

	rootCmd.PersistentFlags().String("config", "", "Optional YAML config file; environment variables take precedence")
	rootCmd.PersistentFlags().StringP("repository", "r", "", "GitHub repository name (e.g., 'owner/repo')")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(issueCmd)
	rootCmd.AddCommand(reposCmd)
}

func initConfig(cmd *cobra.Command, args []string) error {
	file, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	loaded, err := config.LoadConfig(file)
	if err != nil {
		return err
	}

	logging.SetupLogger(os.Stderr, logging.LogLevel(loaded.Logging.Level), logging.Format(loaded.Logging.Format))
	cfg = loaded
	return nil
}
