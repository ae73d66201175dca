// Package yield provides the treasury-bill auction record model.
//
// A Record is one accepted weighted-average yield for a tenor at an auction session.
// Session dates keep the source's DD/MM/YYYY text so they round-trip exactly through
// storage, and ParseSessionDate turns them into comparable dates. The package also
// decides whether the live auction page carries a session the store has not seen yet.
package yield
