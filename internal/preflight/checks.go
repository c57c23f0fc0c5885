package preflight

import (
	"fmt"
	"os"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
	"golang.org/x/sys/unix"

	"cadence/internal/config"
	"cadence/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external programs an import needs. Both the
// import path and the CLI status command use this to avoid duplicating the
// requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "Calibre",
			Command:     cfg.Extraction.ConverterBinary,
			Description: "Required for chapter text extraction",
		},
		{
			Name:        "Python",
			Command:     deps.ResolvePython(cfg.WhisperX.Python, cfg.WhisperX.WorkerScript),
			Description: "Required for WhisperX forced alignment",
		},
	}
	if strings.TrimSpace(cfg.TTS.Engine) == "exec" {
		requirements = append(requirements, deps.Requirement{
			Name:        "TTS engine",
			Command:     commandBinary(cfg.TTS.Command),
			Description: "Required for speech synthesis",
		})
	}

	statuses := deps.CheckBinaries(requirements)
	statuses = append(statuses,
		deps.CheckScript("Worker script", "Persistent alignment worker", cfg.WhisperX.WorkerScript),
		deps.CheckScript("Align script", "Single-run alignment fallback", cfg.WhisperX.AlignScript),
	)
	return statuses
}

// commandBinary extracts the executable from a shell-style command string.
func commandBinary(command string) string {
	parts, err := shellwords.Parse(command)
	if err != nil || len(parts) == 0 {
		return strings.TrimSpace(command)
	}
	return parts[0]
}
