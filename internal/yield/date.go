package yield

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SessionDateLayout is the canonical DD/MM/YYYY form used by the auction page and the store
const SessionDateLayout = "02/01/2006"

// permissive read layout, accepts single-digit day and month
const readSessionDateLayout = "2/1/2006"

// ErrInvalidSessionDate is returned when a session date is not in DD/MM/YYYY form
var ErrInvalidSessionDate = errors.New("invalid session date")

var digitReplacer = strings.NewReplacer(
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	"٫", ".", "٬", ",",
)

// NormalizeDigits replaces Arabic-Indic and Persian digits and separators with ASCII ones
func NormalizeDigits(s string) string {
	return digitReplacer.Replace(s)
}

// ParseSessionDate parses a DD/MM/YYYY session date into a UTC midnight time.
// Lexical order on the text form is wrong, so comparisons must go through this.
func ParseSessionDate(s string) (time.Time, error) {
	text := strings.TrimSpace(NormalizeDigits(s))
	if text == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidSessionDate)
	}
	text = strings.ReplaceAll(text, "-", "/")

	t, err := time.Parse(readSessionDateLayout, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSessionDate, s)
	}
	return t, nil
}

// NormalizeSessionDate rewrites a session date in its canonical zero-padded form
func NormalizeSessionDate(s string) (string, error) {
	t, err := ParseSessionDate(s)
	if err != nil {
		return "", err
	}
	return t.Format(SessionDateLayout), nil
}

// CompareSessionDates orders two session dates chronologically.
// Unparseable dates sort before every valid one.
func CompareSessionDates(a, b string) int {
	ta, errA := ParseSessionDate(a)
	tb, errB := ParseSessionDate(b)
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	return ta.Compare(tb)
}

// LatestSessionDate returns the most recent valid session date in dates
func LatestSessionDate(dates []string) (string, bool) {
	latest := ""
	found := false
	for _, d := range dates {
		normalized, err := NormalizeSessionDate(d)
		if err != nil {
			continue
		}
		if !found || CompareSessionDates(normalized, latest) > 0 {
			latest = normalized
			found = true
		}
	}
	return latest, found
}
