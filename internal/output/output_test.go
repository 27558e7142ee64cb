package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/danielolaszy/ghm/pkg/models"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func testResult(outcome models.Outcome) *models.CreationResult {
	result := &models.CreationResult{
		Success: true,
		Outcome: outcome,
		Issue: models.Issue{
			Number:  7,
			Title:   "[ACME-7] Add login page",
			HTMLURL: "https://github.com/acme/widgets/issues/7",
			Key:     "ACME-7",
		},
		Branch: models.Branch{
			Name:       "feature/add_login_page",
			BaseBranch: "main",
		},
		HasInitialCommit: outcome != models.OutcomeNoCommit,
		Notes:            "notes for " + string(outcome),
	}
	if outcome == models.OutcomeFull {
		result.PullRequest = &models.PullRequest{Number: 8, HTMLURL: "https://github.com/acme/widgets/pull/8"}
	}
	return result
}

func TestMessages(t *testing.T) {
	u, out, errOut := newTestUI()
	u.Info("hello %s", "world")
	u.Success("done %d", 42)
	u.Warning("careful %s", "now")
	u.Error("failed %s", "badly")

	assert.Contains(t, out.String(), "hello world")
	assert.Contains(t, out.String(), "done 42")
	assert.Contains(t, errOut.String(), "careful now")
	assert.Contains(t, errOut.String(), "failed badly")
}

func TestOutcomeColor(t *testing.T) {
	assert.Contains(t, OutcomeColor(models.OutcomeFull), "full")
	assert.Contains(t, OutcomeColor(models.OutcomeNoCommit), "partial-no-commit")
	assert.Equal(t, "other", OutcomeColor("other"))
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"Name", "Visibility"})
	require.NoError(t, table.Append([]string{"acme/widgets", "public"}))
	require.NoError(t, table.Render())

	assert.Contains(t, out.String(), "acme/widgets")
	assert.Contains(t, out.String(), "public")
}

func TestResultText(t *testing.T) {
	u, out, errOut := newTestUI()
	require.NoError(t, u.Result(FormatText, testResult(models.OutcomeFull)))

	assert.Contains(t, out.String(), "#7")
	assert.Contains(t, out.String(), "feature/add_login_page (from main)")
	assert.Contains(t, out.String(), "https://github.com/acme/widgets/pull/8")
	assert.Empty(t, errOut.String())
}

func TestResultPartialWarns(t *testing.T) {
	u, out, errOut := newTestUI()
	require.NoError(t, u.Result("", testResult(models.OutcomeNoCommit)))

	assert.NotContains(t, out.String(), "Pull:")
	assert.Contains(t, errOut.String(), "notes for partial-no-commit")
}

func TestResultJSON(t *testing.T) {
	u, out, _ := newTestUI()
	require.NoError(t, u.Result(FormatJSON, testResult(models.OutcomeFull)))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "full", decoded["outcome"])
	assert.Equal(t, true, decoded["hasInitialCommit"])
}

func TestResultYAML(t *testing.T) {
	u, out, _ := newTestUI()
	require.NoError(t, u.Result(FormatYAML, testResult(models.OutcomeNoPullRequest)))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "partial-no-pr", decoded["outcome"])
	assert.NotContains(t, decoded, "pullRequest")
}

func TestRenderUnsupportedFormat(t *testing.T) {
	u, _, _ := newTestUI()
	assert.ErrorContains(t, u.Render("xml", struct{}{}), "unsupported output format")
}
