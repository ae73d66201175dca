// Package cli implements the command-line interface for tbill-yields.
//
// The cli package provides the Cobra-based commands that fetch the latest
// treasury bill auction results, show the stored snapshot and history, and
// run the investment calculators. It builds the store, browser and notifiers
// from configuration and passes them down; no other package holds them.
package cli
