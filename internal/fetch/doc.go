// Package fetch runs the end-to-end acquisition of auction yields.
//
// A run optionally starts with a cheap plain-HTTP pre-check: when the newest
// session date on the page matches the newest one in the store, the browser is
// never started. Otherwise each attempt opens a fresh headless browser, waits for
// the page to render, verifies its structure, extracts the records and saves them
// when they carry a session the store does not have yet. Failed attempts are
// retried after a constant delay until the attempt budget is spent.
package fetch
