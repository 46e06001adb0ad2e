package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/dustin/go-humanize"

	"OptionsSentinel/internal/selector"
	"OptionsSentinel/internal/tracker"
)

// FormatSelection formats the result of a selection pass.
func FormatSelection(r *selector.Report) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("🔎 <b>OptionsSentinel candidates</b> | %s\n\n", r.Date))
	if len(r.Candidates) == 0 {
		b.WriteString("No candidates selected.\n")
	}
	for _, o := range r.Outcomes {
		if o.Candidate == nil {
			continue
		}
		b.WriteString(fmt.Sprintf("• <b>%s</b>\n", html.EscapeString(o.Candidate.ID)))
		b.WriteString(fmt.Sprintf("   close $%s → pre-market $%s | option close $%s\n",
			humanize.CommafWithDigits(o.StockClose, 2),
			humanize.CommafWithDigits(o.StockLatest, 2),
			humanize.CommafWithDigits(o.OptionClose, 2)))
	}

	skipped := make(map[selector.Status]int)
	for _, o := range r.Outcomes {
		if o.Status != selector.StatusSelected {
			skipped[o.Status]++
		}
	}
	if len(skipped) > 0 {
		b.WriteString("\nSkipped:")
		for _, st := range []selector.Status{
			selector.StatusSentinel, selector.StatusBadPrice, selector.StatusNoExpirations,
			selector.StatusNoStrikes, selector.StatusTooFar, selector.StatusFetchFailed,
		} {
			if n := skipped[st]; n > 0 {
				b.WriteString(fmt.Sprintf(" %s=%d", st, n))
			}
		}
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("\n%s of %s screener rows selected",
		humanize.Comma(int64(len(r.Candidates))), humanize.Comma(int64(len(r.Outcomes)))))
	return b.String()
}

// FormatTracking formats the high-water marks reached by a tracking run.
func FormatTracking(s *tracker.Summary) string {
	var b strings.Builder

	if s.Date == "" {
		return "📈 <b>OptionsSentinel tracking</b>\n\nNo daily record to track."
	}
	b.WriteString(fmt.Sprintf("📈 <b>OptionsSentinel tracking</b> | %s\n\n", s.Date))
	for _, c := range s.Candidates {
		line := fmt.Sprintf("• %s: <b>%+.2f%%</b>", html.EscapeString(c.ID), c.Percentage)
		if c.HighPrice > 0 {
			line += fmt.Sprintf(" (open $%s, high $%s)",
				humanize.CommafWithDigits(c.OpenPrice, 2), humanize.CommafWithDigits(c.HighPrice, 2))
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(fmt.Sprintf("\n%s polling %s", humanize.Comma(int64(s.Passes)), plural(s.Passes, "pass", "passes")))
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
