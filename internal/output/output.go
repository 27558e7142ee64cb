// Package output renders command results on the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"gopkg.in/yaml.v3"

	"github.com/danielolaszy/ghm/pkg/models"
)

// Output formats accepted by Render.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// UI writes colored messages and tables.
type UI struct {
	Out    io.Writer
	ErrOut io.Writer
}

// New creates a UI with default stdout/stderr writers.
func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
)

// Cyan returns a cyan-colored string.
func Cyan(s string) string { return cyan(s) }

// OutcomeColor returns the outcome colored by how much of the workflow completed.
func OutcomeColor(outcome models.Outcome) string {
	switch outcome {
	case models.OutcomeFull:
		return green(string(outcome))
	case models.OutcomeNoPullRequest, models.OutcomeNoCommit:
		return yellow(string(outcome))
	default:
		return string(outcome)
	}
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// Render writes v as indented JSON or as YAML.
func (u *UI) Render(format string, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(u.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(u.Out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q (use %s, %s or %s)", format, FormatText, FormatJSON, FormatYAML)
	}
}

// Result prints a creation result in the requested format.
func (u *UI) Result(format string, result *models.CreationResult) error {
	if format != "" && format != FormatText {
		return u.Render(format, result)
	}

	u.Success("Created issue #%d %s", result.Issue.Number, Cyan(result.Issue.Title))
	u.Info("Issue:   %s", result.Issue.HTMLURL)
	u.Info("Branch:  %s (from %s)", result.Branch.Name, result.Branch.BaseBranch)
	if result.PullRequest != nil {
		u.Info("Pull:    #%d %s", result.PullRequest.Number, result.PullRequest.HTMLURL)
	}
	if result.TrackerKey != "" {
		u.Info("Jira:    %s", result.TrackerKey)
	}
	u.Info("Outcome: %s", OutcomeColor(result.Outcome))
	if result.Outcome != models.OutcomeFull {
		u.Warning("%s", result.Notes)
	}
	return nil
}
