package provbox

import (
	"fmt"
	"sort"
	"strings"

	"charm.land/lipgloss/v2"
)

var (
	renderTitleStyle = lipgloss.NewStyle().Bold(true)
	renderKeyStyle   = lipgloss.NewStyle().Faint(true)
	renderOKStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	renderBadStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

func renderStatus(ok bool, okLabel, badLabel string) string {
	if ok {
		return renderOKStyle.Render(okLabel)
	}
	return renderBadStyle.Render(badLabel)
}

// RenderHealthReport formats a monitor report for the terminal. The JSON
// output is the machine contract; this is for humans at a shell.
func RenderHealthReport(report *HealthReport) string {
	var sb strings.Builder

	sb.WriteString(renderTitleStyle.Render("Job health"))
	sb.WriteString("  ")
	sb.WriteString(renderStatus(report.Message.Status == JobStatusHealthy, JobStatusHealthy, JobStatusUnhealthy))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "  %s %s\n", renderKeyStyle.Render("host:"), report.Host)
	fmt.Fprintf(&sb, "  %s %s\n", renderKeyStyle.Render("ansible:"), report.AnsibleVersion)
	fmt.Fprintf(&sb, "  %s %s\n", renderKeyStyle.Render("user:"), report.AnsibleUser)
	fmt.Fprintf(&sb, "  %s %s\n", renderKeyStyle.Render("checked:"), report.Timestamp)

	if len(report.Message.Jobs) == 0 {
		sb.WriteString("\n  no matching job containers\n")
		return sb.String()
	}

	names := make([]string, 0, len(report.Message.Jobs))
	width := 0
	for name := range report.Message.Jobs {
		names = append(names, name)
		if len(name) > width {
			width = len(name)
		}
	}
	sort.Strings(names)

	sb.WriteString("\n")
	for _, name := range names {
		detail := report.Message.Jobs[name]
		recent := strings.HasPrefix(detail, "executed_at:")
		fmt.Fprintf(&sb, "  %s %-*s  %s\n",
			renderStatus(recent, "✓", "✗"), width, name, detail)
	}

	return sb.String()
}

// RenderAuditReport formats an sshd audit report for the terminal.
func RenderAuditReport(report *AuditReport) string {
	var sb strings.Builder

	sb.WriteString(renderTitleStyle.Render("sshd compliance"))
	sb.WriteString("  ")
	sb.WriteString(renderStatus(report.Status == AuditCompliant, AuditCompliant, AuditNonCompliant))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "  %s %s\n\n", renderKeyStyle.Render("config:"), report.Config)

	keys := make([]string, 0, len(report.Options))
	width := 0
	for key := range report.Options {
		keys = append(keys, key)
		if len(key) > width {
			width = len(key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		opt := report.Options[key]
		actual := opt.Actual
		if actual == "" {
			actual = "(not set)"
		}
		fmt.Fprintf(&sb, "  %s %-*s  want %s, got %s\n",
			renderStatus(opt.Compliant, "✓", "✗"), width, key, opt.Expected, actual)
	}

	return sb.String()
}
