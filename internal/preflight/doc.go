// Package preflight provides readiness checks for external programs and
// filesystem paths that Cadence depends on.
//
// These checks run in two contexts:
//   - The import command calls RunAll before processing a book. If any
//     required check fails, the import stops before touching a chapter.
//   - The CLI "cadence status" command displays the same checks as a
//     health table.
package preflight
