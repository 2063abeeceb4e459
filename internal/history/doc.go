// Package history persists organizer runs and their placements in SQLite.
//
// Each run is recorded when it starts and updated with its final state, error,
// and archive count when it ends, so interrupted runs remain visible. The CLI
// reads the same store for `modelsort history`.
package history
