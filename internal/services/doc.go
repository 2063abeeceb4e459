// Package services defines shared utilities consumed by the organizer pipeline
// and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs and stage names for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent process exit codes.
//
// Use these helpers when wiring new pipeline steps so error handling and
// observability stay uniform across bootstrap, extraction, and placement.
package services
