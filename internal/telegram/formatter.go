package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/egtbills/tbill-yields/internal/yield"
)

// FormatResults formats freshly saved auction results as a Telegram message.
// Records should hold one entry per tenor.
func FormatResults(records []yield.Record, sourceURL string) string {
	var msg strings.Builder

	msg.WriteString("📈 <b>New T-bill auction results</b>\n\n")

	dates := make([]string, 0, len(records))
	for _, r := range records {
		dates = append(dates, r.SessionDate)
	}
	latest, ok := yield.LatestSessionDate(dates)
	if ok {
		fmt.Fprintf(&msg, "📅 Session: %s\n\n", html.EscapeString(latest))
	}

	sorted := append([]yield.Record(nil), records...)
	yield.SortByTenor(sorted)
	for _, r := range sorted {
		fmt.Fprintf(&msg, "• <b>%d days</b>: %.3f%%", r.Tenor, r.Rate)
		// tenors from an older session are marked with their own date
		if ok && r.SessionDate != latest {
			fmt.Fprintf(&msg, " <i>(%s)</i>", html.EscapeString(r.SessionDate))
		}
		msg.WriteString("\n")
	}

	if sourceURL != "" {
		fmt.Fprintf(&msg, "\n🔗 <a href=\"%s\">Central Bank of Egypt</a>\n", html.EscapeString(sourceURL))
	}
	msg.WriteString("\n#TBills #Egypt")
	return msg.String()
}
