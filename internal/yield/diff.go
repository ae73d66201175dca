package yield

import "strings"

// Change is the outcome of comparing the live page with the store
type Change int

const (
	// Unchanged means the live page shows a session the store already holds
	Unchanged Change = iota
	// NewData means a full fetch and save is warranted
	NewData
)

func (c Change) String() string {
	switch c {
	case Unchanged:
		return "unchanged"
	case NewData:
		return "new-data-available"
	default:
		return "unknown"
	}
}

// DetectChange compares the newest stored session date with the newest live one.
// Only the session date is compared, never yield values. An empty store, or a live
// page without a readable date, always reports NewData.
func DetectChange(stored string, hasStored bool, live string) Change {
	if !hasStored || strings.TrimSpace(stored) == "" {
		return NewData
	}
	if strings.TrimSpace(live) == "" {
		return NewData
	}
	if canonical(stored) == canonical(live) {
		return Unchanged
	}
	return NewData
}

// DetectChangeFromRecords is DetectChange using the newest session date among
// records. It also returns that date, empty when no record has a valid one.
func DetectChangeFromRecords(stored string, hasStored bool, records []Record) (Change, string) {
	dates := make([]string, 0, len(records))
	for _, r := range records {
		dates = append(dates, r.SessionDate)
	}
	live, _ := LatestSessionDate(dates)
	return DetectChange(stored, hasStored, live), live
}

func canonical(date string) string {
	if normalized, err := NormalizeSessionDate(date); err == nil {
		return normalized
	}
	return strings.TrimSpace(date)
}
