package preflight

import (
	"fmt"

	"cadence/internal/config"
	"cadence/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes every preflight check for the given config: directory
// access for all working paths plus the external program checks.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, fromStatus(status))
	}
	return results
}

// Passed reports whether every required check succeeded.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return false
		}
	}
	return true
}

func fromStatus(status deps.Status) Result {
	result := Result{
		Name:     status.Name,
		Passed:   status.Available,
		Optional: status.Optional,
	}
	if status.Available {
		result.Detail = status.Command
	} else {
		result.Detail = status.Detail
	}
	return result
}

// Summarize renders a one-line failure summary, or an empty string when all
// required checks passed.
func Summarize(results []Result) string {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return fmt.Sprintf("%s: %s", r.Name, r.Detail)
		}
	}
	return ""
}
