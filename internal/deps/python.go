package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ResolvePython picks the interpreter used to launch the alignment scripts.
//
// A configured interpreter always wins. Otherwise a virtualenv that sits
// next to the worker script is preferred, since that is where the alignment
// dependencies are normally installed, with a plain "python3" from PATH as
// the final fallback.
func ResolvePython(configured, workerScript string) string {
	if configured != "" {
		return configured
	}
	if candidate, ok := venvCandidate(workerScript); ok {
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			return candidate
		}
	}
	if path, err := exec.LookPath("python3"); err == nil {
		return path
	}
	return "python3"
}

func venvCandidate(workerScript string) (string, bool) {
	if workerScript == "" {
		return "", false
	}
	dir := filepath.Dir(workerScript)
	name := "python3"
	bin := "bin"
	if runtime.GOOS == "windows" {
		name = "python.exe"
		bin = "Scripts"
	}
	return filepath.Join(dir, ".venv", bin, name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
