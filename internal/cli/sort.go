package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/egtbills/tbill-yields/internal/yield"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate  SortOrder = "date"
	SortByTenor SortOrder = "tenor"
	SortByYield SortOrder = "yield"
)

// ParseSortOrder validates a --sort value
func ParseSortOrder(s string) (SortOrder, error) {
	order := SortOrder(strings.ToLower(strings.TrimSpace(s)))
	switch order {
	case SortByDate, SortByTenor, SortByYield:
		return order, nil
	default:
		return "", fmt.Errorf("invalid sort order: %s (must be 'date', 'tenor' or 'yield')", s)
	}
}

// sortRecords sorts records in place. Dates run newest first, yields highest first.
func sortRecords(records []yield.Record, order SortOrder) {
	switch order {
	case SortByDate:
		sort.SliceStable(records, func(i, j int) bool {
			return compareByDate(records[i], records[j])
		})
	case SortByTenor:
		sort.SliceStable(records, func(i, j int) bool {
			if records[i].Tenor != records[j].Tenor {
				return records[i].Tenor < records[j].Tenor
			}
			return compareByDate(records[i], records[j])
		})
	case SortByYield:
		sort.SliceStable(records, func(i, j int) bool {
			if records[i].Rate != records[j].Rate {
				return records[i].Rate > records[j].Rate
			}
			return compareByDate(records[i], records[j])
		})
	}
}

// compareByDate reports whether i belongs before j: later session first,
// then shorter tenor
func compareByDate(i, j yield.Record) bool {
	if c := yield.CompareSessionDates(i.SessionDate, j.SessionDate); c != 0 {
		return c > 0
	}
	return i.Tenor < j.Tenor
}
