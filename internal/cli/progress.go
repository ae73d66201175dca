package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/egtbills/tbill-yields/internal/fetch"
)

// progressSteps maps status prefixes to coarse completion percentages
var progressSteps = []struct {
	prefix  string
	percent int
}{
	{fetch.StatusChecking, 5},
	{fetch.StatusBrowser, 15},
	{fetch.StatusConnecting, 30},
	{fetch.StatusParsing, 60},
	{fetch.StatusSaving, 85},
	{fetch.StatusDone, 100},
	{fetch.StatusUpToDate, 100},
}

// ProgressPercent returns the completion percentage for a status.
// Failure and retry statuses have none.
func ProgressPercent(status string) (int, bool) {
	for _, step := range progressSteps {
		if strings.HasPrefix(status, step.prefix) {
			return step.percent, true
		}
	}
	return 0, false
}

// progressPrinter writes "[ NN%] status" lines, keeping the last percentage
// for statuses that have none
type progressPrinter struct {
	out     io.Writer
	quiet   bool
	percent int
}

func newProgressPrinter(out io.Writer, quiet bool) *progressPrinter {
	return &progressPrinter{out: out, quiet: quiet}
}

func (p *progressPrinter) update(status string) {
	if pct, ok := ProgressPercent(status); ok {
		p.percent = pct
	}
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "[%3d%%] %s\n", p.percent, status)
}
