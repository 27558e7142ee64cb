package issues

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/danielolaszy/ghm/pkg/models"
)

// IssueKey derives the human readable key of an issue from the first four
// alphanumeric characters of the project id, e.g. "acme/widgets", 42 → "ACME-42".
func IssueKey(projectID string, number int) string {
	var prefix []rune
	for _, r := range projectID {
		if len(prefix) == 4 {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			prefix = append(prefix, unicode.ToUpper(r))
		}
	}
	return string(prefix) + "-" + strconv.Itoa(number)
}

// KeyedTitle prefixes a title with its issue key.
func KeyedTitle(key, title string) string {
	return fmt.Sprintf("[%s] %s", key, title)
}

// Labels returns the user labels plus the type and priority, lowercased and
// de-duplicated in first-seen order.
func Labels(req models.IssueCreationRequest) []string {
	all := append(append([]string{}, req.Labels...), string(req.Type), string(req.Priority))

	seen := make(map[string]bool, len(all))
	labels := make([]string, 0, len(all))
	for _, label := range all {
		label = strings.ToLower(strings.TrimSpace(label))
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	return labels
}

// Assignees returns the requested assignees, or the reporter when none were given.
func Assignees(req models.IssueCreationRequest) []string {
	var assignees []string
	for _, a := range req.AssigneeIDs {
		if a = strings.TrimSpace(a); a != "" {
			assignees = append(assignees, a)
		}
	}
	if len(assignees) == 0 {
		return []string{req.ReporterID}
	}
	return assignees
}

func hours(h *float64) string {
	if h == nil {
		return "Not set"
	}
	return strconv.FormatFloat(*h, 'f', -1, 64)
}

func orNotSet(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not set"
	}
	return s
}

// issueRef renders an epic or parent link; bare numbers become "#N".
func issueRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "None"
	}
	if _, err := strconv.Atoi(ref); err == nil {
		return "#" + ref
	}
	return ref
}

// IssueBody renders the markdown body of a new issue.
func IssueBody(req models.IssueCreationRequest, branch string) string {
	var b strings.Builder

	b.WriteString("## Description\n\n")
	if strings.TrimSpace(req.Description) != "" {
		b.WriteString(req.Description)
	} else {
		b.WriteString("_No description provided._")
	}
	b.WriteString("\n\n## Details\n\n")
	fmt.Fprintf(&b, "- **Type:** %s\n", req.Type)
	fmt.Fprintf(&b, "- **Priority:** %s\n", req.Priority)
	fmt.Fprintf(&b, "- **Reporter:** @%s\n", req.ReporterID)
	fmt.Fprintf(&b, "- **Estimated Hours:** %s\n", hours(req.EstimatedHours))
	fmt.Fprintf(&b, "- **Actual Hours:** %s\n", hours(req.ActualHours))
	fmt.Fprintf(&b, "- **Due Date:** %s\n", orNotSet(req.DueDate))
	fmt.Fprintf(&b, "- **Epic:** %s\n", issueRef(req.EpicID))
	fmt.Fprintf(&b, "- **Parent:** %s\n", issueRef(req.ParentID))

	if wb := workBreakdown(req.WorkBreakdown); wb != "" {
		b.WriteString("\n## Work Breakdown\n\n```json\n")
		b.WriteString(wb)
		b.WriteString("\n```\n")
	}

	fmt.Fprintf(&b, "\n## Branch\n\n`%s`\n", branch)
	return b.String()
}

// workBreakdown pretty-prints the payload. Invalid JSON is embedded verbatim.
func workBreakdown(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return ""
	}
	var out bytes.Buffer
	if err := json.Indent(&out, trimmed, "", "  "); err != nil {
		return string(trimmed)
	}
	return out.String()
}

// PullRequestBody links the pull request to the issue it closes.
func PullRequestBody(number int, issueBody string) string {
	return fmt.Sprintf("Closes #%d\n\n%s", number, issueBody)
}

// TrackingFilePath is the path of the file committed to a new issue branch.
func TrackingFilePath(key string) string {
	return "ISSUE_" + key + ".md"
}

// TrackingCommitMessage is the message of the commit adding the tracking file.
func TrackingCommitMessage(key string) string {
	return fmt.Sprintf("[%s] Initialize issue tracking", key)
}

// TrackingFile renders the tracking file committed to a new issue branch.
func TrackingFile(key, title, branch string, created time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s: %s\n\n", key, title)
	fmt.Fprintf(&b, "- **Issue Key:** %s\n", key)
	fmt.Fprintf(&b, "- **Branch:** `%s`\n", branch)
	fmt.Fprintf(&b, "- **Created:** %s\n", created.UTC().Format(time.RFC3339))
	b.WriteString("\n## Checklist\n\n")
	b.WriteString("- [ ] Implementation\n")
	b.WriteString("- [ ] Tests\n")
	b.WriteString("- [ ] Documentation\n")
	b.WriteString("- [ ] Code review\n")
	return b.String()
}
