package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// renderCheckLine prints one preflight row, colorized when the writer is a
// terminal.
func renderCheckLine(w io.Writer, name string, ok, optional bool, detail string) {
	label := "OK"
	color := ansiGreen
	switch {
	case !ok && optional:
		label = "WARN"
		color = ansiYellow
	case !ok:
		label = "FAIL"
		color = ansiRed
	}
	line := fmt.Sprintf("  %-18s [%s] %s", name+":", label, detail)
	if shouldColorize(w) {
		line = color + line + ansiReset
	}
	fmt.Fprintln(w, line)
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
