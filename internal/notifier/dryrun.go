package notifier

import (
	"context"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/egtbills/tbill-yields/internal/yield"
)

// DryRunNotifier prints what would be posted without actually posting
type DryRunNotifier struct {
	out io.Writer
}

// NewDryRunNotifier creates a dry-run notifier writing to out, or stdout when nil
func NewDryRunNotifier(out io.Writer) *DryRunNotifier {
	if out == nil {
		out = os.Stdout
	}
	return &DryRunNotifier{out: out}
}

// Notify prints the announcement that would be posted
func (n *DryRunNotifier) Notify(_ context.Context, records []yield.Record) error {
	if len(records) == 0 {
		return nil
	}
	text := formatAnnouncement(records)
	fmt.Fprintln(n.out, "--- Announcement ---")
	fmt.Fprintln(n.out, text)
	fmt.Fprintf(n.out, "\n(Length: %d characters)\n", utf8.RuneCountInString(text))
	return nil
}
