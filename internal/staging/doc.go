// Package staging finds and removes run workspaces left behind by organizer
// runs that were killed before their cleanup step.
//
// A workspace lives next to the configured temp base and is named by
// appending a run ID to the base name, so "/data/tempWorkSpace" yields
// workspaces such as "/data/tempWorkSpace20260314093000-1f2e3d4c".
package staging
