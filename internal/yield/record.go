package yield

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Record is the accepted weighted-average yield for one tenor at one auction session
type Record struct {
	Tenor       int       `json:"tenor"`
	Rate        float64   `json:"yield"`
	SessionDate string    `json:"session_date"` // DD/MM/YYYY
	ScrapedAt   time.Time `json:"scrape_date"`
}

// NewRecord creates a Record with a normalized session date and a UTC scrape time
func NewRecord(tenor int, rate float64, sessionDate string, scrapedAt time.Time) (Record, error) {
	normalized, err := NormalizeSessionDate(sessionDate)
	if err != nil {
		return Record{}, err
	}

	r := Record{
		Tenor:       tenor,
		Rate:        rate,
		SessionDate: normalized,
		ScrapedAt:   scrapedAt.UTC(),
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Validate checks the invariants every stored record must satisfy
func (r Record) Validate() error {
	if r.Tenor <= 0 {
		return fmt.Errorf("invalid tenor %d: must be positive", r.Tenor)
	}
	if r.Rate <= 0 || math.IsNaN(r.Rate) || math.IsInf(r.Rate, 0) {
		return fmt.Errorf("invalid yield %v for tenor %d: must be positive", r.Rate, r.Tenor)
	}
	if _, err := ParseSessionDate(r.SessionDate); err != nil {
		return fmt.Errorf("tenor %d: %w", r.Tenor, err)
	}
	return nil
}

// Session returns the parsed session date, or the zero time if it cannot be parsed
func (r Record) Session() time.Time {
	t, err := ParseSessionDate(r.SessionDate)
	if err != nil {
		return time.Time{}
	}
	return t
}

// LatestByTenor keeps a single record per tenor, the one with the most recent
// session date. When two records share a tenor and a session date, the one that
// comes first in records wins. The result is sorted by tenor.
func LatestByTenor(records []Record) []Record {
	best := make(map[int]Record, len(records))
	for _, r := range records {
		current, seen := best[r.Tenor]
		if !seen || r.Session().After(current.Session()) {
			best[r.Tenor] = r
		}
	}

	unique := make([]Record, 0, len(best))
	for _, r := range best {
		unique = append(unique, r)
	}
	SortByTenor(unique)
	return unique
}

// SortByTenor sorts records by tenor, then by session date with the newest first
func SortByTenor(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Tenor != records[j].Tenor {
			return records[i].Tenor < records[j].Tenor
		}
		return records[i].Session().After(records[j].Session())
	})
}

// Tenors returns the distinct tenors present in records, ascending
func Tenors(records []Record) []int {
	seen := make(map[int]bool)
	tenors := make([]int, 0)
	for _, r := range records {
		if !seen[r.Tenor] {
			seen[r.Tenor] = true
			tenors = append(tenors, r.Tenor)
		}
	}
	sort.Ints(tenors)
	return tenors
}
