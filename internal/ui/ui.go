// Package ui renders sync and review state for the terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/example/wordsync/internal/merge"
	wsync "github.com/example/wordsync/internal/sync"
	"github.com/example/wordsync/pkg/models"
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	labelStyle  = lipgloss.NewStyle().Width(16)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

func RenderAccent(s string) string { return accentStyle.Render(s) }
func RenderPass(s string) string   { return passStyle.Render(s) }
func RenderWarn(s string) string   { return warnStyle.Render(s) }
func RenderFail(s string) string   { return failStyle.Render(s) }
func RenderMuted(s string) string  { return mutedStyle.Render(s) }

// RenderState colors a session state
func RenderState(s wsync.State) string {
	switch s {
	case wsync.StateSyncing:
		return RenderAccent(s.String())
	case wsync.StateFailed:
		return RenderFail(s.String())
	default:
		return RenderPass(s.String())
	}
}

func renderTime(t time.Time) string {
	if t.IsZero() {
		return RenderMuted("never")
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

// RenderStatus formats the orchestrator status
func RenderStatus(st wsync.Status) string {
	rows := []string{
		headerStyle.Render("Sync status"),
		row("State", RenderState(st.State)),
		row("Last upload", renderTime(st.LastUploadAt)),
		row("Last download", renderTime(st.LastDownloadAt)),
		row("Last success", renderTime(st.LastSuccessAt)),
	}
	if st.LastError != "" {
		errText := st.LastError
		if st.LastErrorKind != "" {
			errText = fmt.Sprintf("[%s] %s", st.LastErrorKind, errText)
		}
		rows = append(rows, row("Last error", RenderFail(errText)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// RenderReport formats a merge report as a table, one line per collection
func RenderReport(r merge.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerStyle.Render("Merge report"))
	fmt.Fprintf(&b, "%-14s %8s %8s %8s %9s %8s\n", "", "inserted", "updated", "deleted", "unchanged", "skipped")
	for _, c := range []struct {
		name string
		rep  merge.CollectionReport
	}{
		{"words", r.Words},
		{"schedule", r.Schedule},
		{"chapters", r.Chapters},
		{"reviews", r.Reviews},
		{"ledger", r.Ledger},
		{"achievements", r.Achievements},
	} {
		fmt.Fprintf(&b, "%-14s %8d %8d %8d %9d %8d\n",
			c.name, c.rep.Inserted, c.rep.Updated, c.rep.Deleted, c.rep.Unchanged, c.rep.Skipped)
	}
	fmt.Fprintf(&b, "settings restored: %d\n", r.Settings)
	if r.Rejected > 0 {
		b.WriteString(RenderWarn(fmt.Sprintf("rejected remote records: %d", r.Rejected)))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderDue lists due schedule records
func RenderDue(records []models.ScheduleRecord) string {
	if len(records) == 0 {
		return RenderPass("Nothing to review")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerStyle.Render(fmt.Sprintf("%d words due", len(records))))
	for _, r := range records {
		fmt.Fprintf(&b, "%-20s %-12s %s  ef %.2f  every %dd\n",
			r.Word, RenderMuted(r.Dict), r.NextReviewAt, r.EasinessFactor, r.IntervalDays)
	}
	return strings.TrimRight(b.String(), "\n")
}
