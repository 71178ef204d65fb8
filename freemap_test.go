package tinyfs_test

import (
	"errors"
	"testing"

	"github.com/tinyfs/tinyfs"
)

func TestBitmapFreeMapReservesFixedSectors(t *testing.T) {
	fm := tinyfs.NewBitmapFreeMap(16)
	if got := fm.Count(); got != 2 {
		t.Fatalf("Count() after construction = %d, want 2 (sectors 0 and 1 reserved)", got)
	}

	s, err := fm.Allocate(1)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if s == 0 || s == 1 {
		t.Fatalf("Allocate returned reserved sector %d", s)
	}
}

func TestBitmapFreeMapAllocateReleaseRoundTrip(t *testing.T) {
	fm := tinyfs.NewBitmapFreeMap(8)

	s, err := fm.Allocate(1)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	before := fm.Count()

	fm.Release(s, 1)
	if got := fm.Count(); got != before-1 {
		t.Fatalf("Count() after Release = %d, want %d", got, before-1)
	}

	s2, err := fm.Allocate(1)
	if err != nil {
		t.Fatalf("Allocate after Release: %v", err)
	}
	if s2 != s {
		t.Fatalf("Allocate after Release returned %d, want reused sector %d", s2, s)
	}
}

func TestBitmapFreeMapExhaustion(t *testing.T) {
	fm := tinyfs.NewBitmapFreeMap(4) // sectors 0,1 reserved; 2,3 free

	if _, err := fm.Allocate(1); err != nil {
		t.Fatalf("Allocate 1: %v", err)
	}
	if _, err := fm.Allocate(1); err != nil {
		t.Fatalf("Allocate 2: %v", err)
	}
	if _, err := fm.Allocate(1); !errors.Is(err, tinyfs.ErrOutOfSpace) {
		t.Fatalf("Allocate on exhausted map = %v, want ErrOutOfSpace", err)
	}
}

func TestBitmapFreeMapContiguousRun(t *testing.T) {
	fm := tinyfs.NewBitmapFreeMap(32)

	s, err := fm.Allocate(5)
	if err != nil {
		t.Fatalf("Allocate(5): %v", err)
	}
	if s < 2 {
		t.Fatalf("Allocate(5) returned %d inside the reserved range", s)
	}

	fm.Release(s, 5)
	s2, err := fm.Allocate(5)
	if err != nil {
		t.Fatalf("Allocate(5) after Release: %v", err)
	}
	if s2 != s {
		t.Fatalf("Allocate(5) after Release = %d, want reused run at %d", s2, s)
	}
}
