// Package config loads, normalizes, and validates modelsort configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and canonicalizes extension lists so the organizer can match
// files case-insensitively. The Config type centralizes every knob the CLI and
// organizer need: workspace and state locations, archive/asset extensions,
// placement mode, legacy filename encoding, history, and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical values, and clear validation errors.
package config
