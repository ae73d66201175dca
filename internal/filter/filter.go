// Package filter narrows yield history down for display.
//
// A Filter selects records by tenor and by session-date range. Both criteria are
// optional; an empty filter matches everything.
//
// Example usage:
//
//	// 91-day yields for the first quarter of 2025
//	f := filter.NewFilter()
//	f.Tenors = []int{91}
//	f.DateFrom, f.DateTo, _ = filter.ParseDateRange("01/01/2025..31/03/2025")
//
//	filtered := f.Apply(records)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/egtbills/tbill-yields/internal/yield"
)

// Filter represents record filtering criteria
type Filter struct {
	// Session date range, both ends inclusive
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	// Tenors to keep, in days
	Tenors []int `json:"tenors,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
// The filter will match all records until criteria are added.
func NewFilter() *Filter {
	return &Filter{Tenors: []int{}}
}

// IsEmpty checks if the filter has any active criteria
func (f *Filter) IsEmpty() bool {
	return f.DateFrom == nil && f.DateTo == nil && len(f.Tenors) == 0
}

// Matches checks if a record matches all active filter criteria.
// Records whose session date cannot be parsed never match a date range.
func (f *Filter) Matches(r yield.Record) bool {
	if f.IsEmpty() {
		return true
	}

	if len(f.Tenors) > 0 {
		matched := false
		for _, tenor := range f.Tenors {
			if r.Tenor == tenor {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if f.DateFrom == nil && f.DateTo == nil {
		return true
	}

	session, err := yield.ParseSessionDate(r.SessionDate)
	if err != nil {
		return false
	}
	if f.DateFrom != nil && session.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && session.After(*f.DateTo) {
		return false
	}
	return true
}

// Apply applies the filter to a list of records and returns only matching ones.
// If the filter is empty, returns the original list unchanged.
func (f *Filter) Apply(records []yield.Record) []yield.Record {
	if f.IsEmpty() {
		return records
	}

	var filtered []yield.Record
	for _, r := range records {
		if f.Matches(r) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Format: "Tenors: 91, 182 | From: 01/01/2025 | To: 31/03/2025"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string
	if len(f.Tenors) > 0 {
		tenors := make([]string, len(f.Tenors))
		for i, t := range f.Tenors {
			tenors[i] = fmt.Sprintf("%d", t)
		}
		parts = append(parts, "Tenors: "+strings.Join(tenors, ", "))
	}
	if f.DateFrom != nil {
		parts = append(parts, "From: "+f.DateFrom.Format(yield.SessionDateLayout))
	}
	if f.DateTo != nil {
		parts = append(parts, "To: "+f.DateTo.Format(yield.SessionDateLayout))
	}
	return strings.Join(parts, " | ")
}
