package filter

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/egtbills/tbill-yields/internal/yield"
)

var (
	yearPattern  = regexp.MustCompile(`^(\d{4})$`)
	monthPattern = regexp.MustCompile(`^(\d{1,2})[/-](\d{4})$`)
)

// ParseDateRange parses a session-date range.
//
// Supported formats:
//   - "01/01/2025..31/03/2025" - explicit range, either side may be omitted
//   - "03/2025" - an entire month
//   - "2025" - an entire year
//   - "07/07/2025" - a single day
//
// Returns (dateFrom, dateTo, error). Times are UTC midnight, both ends inclusive.
func ParseDateRange(input string) (*time.Time, *time.Time, error) {
	input = strings.TrimSpace(yield.NormalizeDigits(input))
	if input == "" {
		return nil, nil, fmt.Errorf("date range cannot be empty")
	}

	if from, to, ok := strings.Cut(input, ".."); ok {
		var fromDate, toDate *time.Time
		if s := strings.TrimSpace(from); s != "" {
			t, err := yield.ParseSessionDate(s)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid start date: %w", err)
			}
			fromDate = &t
		}
		if s := strings.TrimSpace(to); s != "" {
			t, err := yield.ParseSessionDate(s)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid end date: %w", err)
			}
			toDate = &t
		}
		if fromDate == nil && toDate == nil {
			return nil, nil, fmt.Errorf("date range needs at least one end")
		}
		if fromDate != nil && toDate != nil && fromDate.After(*toDate) {
			return nil, nil, fmt.Errorf("start date must be before end date")
		}
		return fromDate, toDate, nil
	}

	if m := yearPattern.FindStringSubmatch(input); m != nil {
		year, _ := strconv.Atoi(m[1])
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
		return &from, &to, nil
	}

	if m := monthPattern.FindStringSubmatch(input); m != nil {
		month, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			return nil, nil, fmt.Errorf("invalid month: %s", m[1])
		}
		from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, -1)
		return &from, &to, nil
	}

	day, err := yield.ParseSessionDate(input)
	if err != nil {
		return nil, nil, fmt.Errorf("unrecognized date range %q: use DD/MM/YYYY..DD/MM/YYYY, MM/YYYY or YYYY", input)
	}
	return &day, &day, nil
}

// ParseTenors parses a comma-separated list of tenors such as "91,182".
// Duplicates are removed and the result is sorted.
func ParseTenors(input string) ([]int, error) {
	input = strings.TrimSpace(yield.NormalizeDigits(input))
	if input == "" {
		return nil, fmt.Errorf("tenor list cannot be empty")
	}

	seen := make(map[int]bool)
	var tenors []int
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tenor, err := strconv.Atoi(part)
		if err != nil || tenor <= 0 {
			return nil, fmt.Errorf("invalid tenor: %s", part)
		}
		if !seen[tenor] {
			seen[tenor] = true
			tenors = append(tenors, tenor)
		}
	}
	if len(tenors) == 0 {
		return nil, fmt.Errorf("tenor list cannot be empty")
	}
	sort.Ints(tenors)
	return tenors, nil
}
