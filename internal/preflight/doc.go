// Package preflight provides readiness checks for the filesystem paths an
// organizer run depends on.
package preflight
