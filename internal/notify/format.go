package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/kmaassrock/nba-injury-alert/internal/models"
	"github.com/sirupsen/logrus"
)

// FormatChange builds the human-readable subject line and plain-text body for
// a status change.
func FormatChange(ch models.StatusChange) (subject, body string) {
	switch {
	case ch.OldStatus == "":
		subject = fmt.Sprintf("%s (%s) added to injury report: %s", ch.PlayerName, ch.Team, ch.NewStatus)
	case ch.NewStatus == models.StatusActive:
		subject = fmt.Sprintf("%s (%s) removed from injury report", ch.PlayerName, ch.Team)
	default:
		subject = fmt.Sprintf("%s (%s) status change: %s → %s", ch.PlayerName, ch.Team, ch.OldStatus, ch.NewStatus)
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Player: %s", ch.PlayerName))
	lines = append(lines, fmt.Sprintf("Team: %s", ch.Team))

	if ch.OldStatus == "" {
		lines = append(lines, fmt.Sprintf("Status: %s", ch.NewStatus))
	} else {
		lines = append(lines, fmt.Sprintf("Previous Status: %s", ch.OldStatus))
		lines = append(lines, fmt.Sprintf("New Status: %s", ch.NewStatus))
	}

	if ch.Reason != "" {
		lines = append(lines, fmt.Sprintf("Reason: %s", ch.Reason))
	}
	if ch.Details != "" {
		lines = append(lines, fmt.Sprintf("Details: %s", ch.Details))
	}

	return subject, strings.Join(lines, "\n")
}

const changeHTMLTemplate = `
<div class="injury-alert {{.ChangeType}}">
    <div class="player-info">
        <h3>{{.Change.PlayerName}}</h3>
        <div class="team">{{.Change.Team}}</div>
        {{if .Change.Rank}}<div class="rank">Rank: {{.Change.Rank}}</div>{{end}}
    </div>
    <div class="status-info">
        <div class="status-change">{{.StatusText}}</div>
        {{if .Change.Reason}}<div class="reason">{{.Change.Reason}}</div>{{end}}
        {{if .Change.Details}}<div class="details">{{.Change.Details}}</div>{{end}}
    </div>
</div>
`

var changeTmpl = template.Must(template.New("change").Parse(changeHTMLTemplate))

// FormatChangeHTML builds the structured HTML variant of a status change.
func FormatChangeHTML(ch models.StatusChange) string {
	var changeType, statusText string
	switch {
	case ch.OldStatus == "":
		changeType = "added"
		statusText = ch.NewStatus
	case ch.NewStatus == models.StatusActive:
		changeType = "removed"
		statusText = models.StatusActive
	default:
		changeType = "changed"
		statusText = fmt.Sprintf("%s → %s", ch.OldStatus, ch.NewStatus)
	}

	var buf bytes.Buffer
	err := changeTmpl.Execute(&buf, struct {
		Change     models.StatusChange
		ChangeType string
		StatusText string
	}{ch, changeType, statusText})
	if err != nil {
		logrus.Errorf("Failed to render HTML for change %d: %v", ch.ID, err)
		return ""
	}
	return buf.String()
}
