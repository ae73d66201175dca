// Package timezone pins display times to Cairo, where the auctions are held.
package timezone

import (
	"time"
	_ "time/tzdata"
)

// Name is the IANA zone used for displaying scrape times
const Name = "Africa/Cairo"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation(Name)
	if err != nil {
		panic(err)
	}
}

// Now returns the current time in Cairo
func Now() time.Time {
	return time.Now().In(Location)
}

// In converts t to Cairo time
func In(t time.Time) time.Time {
	return t.In(Location)
}
