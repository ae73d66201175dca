package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/egtbills/tbill-yields/internal/yield"
)

// Notifier defines the interface for announcing auction results
type Notifier interface {
	// Notify posts one announcement for the given records
	Notify(ctx context.Context, records []yield.Record) error
}

// maxTweetLength is Twitter's limit for a single status
const maxTweetLength = 280

// formatAnnouncement formats records as a plain-text post within the tweet limit
func formatAnnouncement(records []yield.Record) string {
	sorted := append([]yield.Record(nil), records...)
	yield.SortByTenor(sorted)

	dates := make([]string, 0, len(sorted))
	for _, r := range sorted {
		dates = append(dates, r.SessionDate)
	}

	var b strings.Builder
	b.WriteString("📈 Egyptian T-bill auction results")
	if latest, ok := yield.LatestSessionDate(dates); ok {
		fmt.Fprintf(&b, " (%s)", latest)
	}
	b.WriteString("\n\n")
	for _, r := range sorted {
		fmt.Fprintf(&b, "%d days: %.3f%%\n", r.Tenor, r.Rate)
	}
	b.WriteString("\n#TBills #Egypt")

	text := b.String()
	if runes := []rune(text); len(runes) > maxTweetLength {
		text = string(runes[:maxTweetLength-3]) + "..."
	}
	return text
}
