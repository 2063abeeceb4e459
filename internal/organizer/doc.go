// Package organizer runs the end-to-end organize pipeline: bootstrap a fresh
// workspace and output root, scan the source tree, place loose asset
// directories, expand archives through a worklist, place their asset
// directories, and remove the workspace.
//
// A run is all-or-nothing. Any failure after bootstrap removes the output root
// this run created, and the workspace is removed in every case. A run that
// finds its output or workspace already present aborts without touching
// either. Runs are serialized by a file lock in the state directory and, when
// enabled, recorded in the history store.
package organizer
