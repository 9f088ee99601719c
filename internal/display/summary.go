// Package display renders the end-of-run report for the terminal.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"glacier-backup/internal/backup"
)

// Summary prints the outcome of a backup run
type Summary struct {
	w      io.Writer
	colors ColorSystem
}

// NewSummary creates a summary printer writing to w
func NewSummary(w io.Writer, colors ColorSystem) *Summary {
	if colors == nil {
		colors = NewColorSystem(PlainTextTheme(), false)
	}
	return &Summary{w: w, colors: colors}
}

// Print writes the run counters followed by every file that was not archived
func (s *Summary) Print(stats backup.StatsSnapshot, outcomes []*backup.UploadOutcome) error {
	theme := s.colors.Theme()
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(s.colors.Sprint(theme.Primary, "Backup summary"))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", ruleWidth(s.w)))
	b.WriteString("\n")

	fmt.Fprintf(&b, "  %-12s %d\n", "Files:", stats.Files)
	fmt.Fprintf(&b, "  %-12s %s\n", "Archived:", s.colors.Sprintf(theme.Success, "%d", stats.Succeeded))
	failedColor := theme.Muted
	if stats.Failed > 0 {
		failedColor = theme.Error
	}
	fmt.Fprintf(&b, "  %-12s %s\n", "Failed:", s.colors.Sprintf(failedColor, "%d", stats.Failed))
	if stats.Interrupted > 0 {
		fmt.Fprintf(&b, "  %-12s %s\n", "Interrupted:", s.colors.Sprintf(theme.Warning, "%d", stats.Interrupted))
	}
	fmt.Fprintf(&b, "  %-12s %d (%d retries)\n", "Attempts:", stats.Attempts, stats.Retries)
	fmt.Fprintf(&b, "  %-12s %s\n", "Uploaded:", FormatBytes(stats.Bytes))
	fmt.Fprintf(&b, "  %-12s %s\n", "Duration:", stats.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "  %-12s %.1f%%\n", "Success:", stats.SuccessRate()*100)

	var failed []*backup.UploadOutcome
	for _, o := range outcomes {
		if !o.Succeeded() {
			failed = append(failed, o)
		}
	}
	if len(failed) > 0 {
		b.WriteString("\n")
		b.WriteString(s.colors.Sprint(theme.Error, "Not archived:"))
		b.WriteString("\n")
		for _, o := range failed {
			reason := "unknown error"
			switch {
			case o.Interrupted:
				reason = "interrupted"
			case o.Err != nil:
				reason = o.Err.Error()
			}
			fmt.Fprintf(&b, "  %s %s (%d attempts): %s\n",
				s.colors.Sprint(theme.Error, "x"), o.Description(), o.Attempts, reason)
		}
	}

	_, err := io.WriteString(s.w, b.String())
	return err
}

// FormatBytes renders a byte count with a binary unit
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

const defaultRuleWidth = 40

// ruleWidth fits the separator line to the terminal, if w is one
func ruleWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultRuleWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultRuleWidth
	}
	return min(width, 60)
}
