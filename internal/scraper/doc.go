// Package scraper turns the Central Bank of Egypt treasury-bill auction page into
// yield records.
//
// The page repeats one block per auction: a results header, a results table whose
// header row lists tenors and whose "session date" row lists per-tenor auction dates,
// then an "accepted bids" paragraph followed by a table holding the weighted average
// yield per tenor. Before any parsing, Verify checks that the raw markup still carries
// every expected landmark; a missing one means the layout changed and parsing would
// produce wrong numbers.
//
// Tables are first read into a typed Table of labelled rows and only then interpreted.
// A block whose tenors, dates and yields do not line up is skipped whole and counted,
// never partially trusted.
package scraper
