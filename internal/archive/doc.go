// Package archive extracts zip archives into a run workspace and expands
// archives nested inside them.
//
// Extract unpacks a single archive into a fresh directory named after the
// archive, rejecting entries that would escape it and decoding legacy
// (non-UTF-8) entry names with a configurable code page. Expander drives an
// explicit worklist over a set of archives so nesting depth stays bounded and
// every extracted tree is reported once.
package archive
