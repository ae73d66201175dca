// Package storage persists auction yields in a local SQLite database.
//
// Rows are keyed by (tenor, session date): saving a record for an auction that is
// already stored overwrites its yield and scrape time, so repeated scrapes never
// duplicate history. Session dates are kept in their DD/MM/YYYY text form and are
// ordered by year, month and day explicitly. Scrape times are stored as UTC unix
// milliseconds.
//
// The default database lives under ~/.local/share/tbill-yields/.
package storage
