package textutil_test

import (
	"testing"

	"cadence/internal/textutil"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"A Tale of Two Cities", "A Tale of Two Cities"},
		{"what/why:how", "what-why-how"},
		{"  trimmed  ", "trimmed"},
		{`bad"<chars>|`, "badchars"},
	}
	for _, tc := range cases {
		if got := textutil.SanitizeFileName(tc.input); got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestBookFolderName(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"/books/The Long Way.epub", "The_Long_Way"},
		{"simple.epub", "simple"},
		{"///", "book"},
	}
	for _, tc := range cases {
		if got := textutil.BookFolderName(tc.input); got != tc.want {
			t.Fatalf("BookFolderName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestHashStringStable(t *testing.T) {
	a := textutil.HashString("chapter one text")
	b := textutil.HashString("chapter one text")
	if a != b {
		t.Fatalf("expected stable hash, got %q vs %q", a, b)
	}
	if a == textutil.HashString("chapter two text") {
		t.Fatal("expected different content to hash differently")
	}
	if len(a) != 64 {
		t.Fatalf("expected 32-byte hex hash, got length %d", len(a))
	}
}
