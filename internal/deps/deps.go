// Package deps reports the availability of the external programs an
// import needs before any chapter work starts.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Requirement defines an external dependency Cadence relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckScript reports whether a script path exists as a regular file.
// Alignment entry points are paths, not PATH lookups, so LookPath does
// not apply.
func CheckScript(name, description, path string) Status {
	status := Status{
		Name:        name,
		Command:     strings.TrimSpace(path),
		Description: strings.TrimSpace(description),
	}
	if status.Command == "" {
		status.Detail = "script not configured"
		return status
	}
	info, err := os.Stat(status.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("script %q not found", status.Command)
		return status
	}
	if !info.Mode().IsRegular() {
		status.Detail = fmt.Sprintf("%q is not a regular file", status.Command)
		return status
	}
	status.Available = true
	return status
}
