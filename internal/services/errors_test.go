package services_test

import (
	"errors"
	"strings"
	"testing"

	"cadence/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrSynthesis, "synthesis", "chunk", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"synthesis", "chunk", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerFallsBackToTransient(t *testing.T) {
	err := services.Wrap(nil, "alignment", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestAlignmentMarkersAreDistinct(t *testing.T) {
	startup := services.Wrap(services.ErrAlignmentStartup, "alignment", "start", "worker not ready", nil)
	timeout := services.Wrap(services.ErrAlignmentTimeout, "alignment", "align", "chapter budget exceeded", nil)

	if errors.Is(startup, services.ErrAlignmentTimeout) {
		t.Fatal("startup error must not classify as per-chapter timeout")
	}
	if errors.Is(timeout, services.ErrAlignmentStartup) {
		t.Fatal("per-chapter timeout must not classify as startup failure")
	}
}
