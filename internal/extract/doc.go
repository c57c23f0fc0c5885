// Package extract turns an ebook into per-chapter plaintext artifacts using
// Calibre's ebook-convert. The book is unpacked once, the OPF spine supplies
// the reading order, and each spine document is converted to text in
// parallel. Documents below a size floor (covers, blank separators) are
// skipped.
package extract
