package preflight

import (
	"path/filepath"

	"modelsort/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks for organizing target into output with the
// workspace base and state directory from cfg.
func RunAll(cfg *config.Config, target, output string) []Result {
	if cfg == nil {
		return nil
	}

	target = filepath.Clean(target)
	output = filepath.Clean(output)

	results := []Result{
		CheckDirectoryAccess("Source directory", target, AccessRead),
		CheckAbsent("Output directory", output),
		CheckParentWritable("Output parent", output),
		CheckOverlap(target, output),
		CheckParentWritable("Workspace base", cfg.Paths.TempDir),
	}
	if cfg.History.Enabled {
		results = append(results, CheckParentWritable("State directory", filepath.Join(cfg.Paths.StateDir, "history.db")))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
