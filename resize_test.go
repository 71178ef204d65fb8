package tinyfs_test

import (
	"bytes"
	"testing"

	"github.com/tinyfs/tinyfs"
)

func newTestFS(t *testing.T, sectors uint32) (*tinyfs.FileSystem, *tinyfs.MemBlockDevice) {
	t.Helper()
	dev := tinyfs.NewMemBlockDevice(sectors)
	fsys, err := tinyfs.New(dev)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return fsys, dev
}

// TestDoubleIndirectGrowth is S3: writing past the indirect range forces
// double-indirect allocation, and the untouched byte just before the
// write reads as zero (an allocated, zeroed hole, not a sparse gap —
// spec.md's Non-goals exclude preserving true sparse holes).
func TestDoubleIndirectGrowth(t *testing.T) {
	fsys, _ := newTestFS(t, 20000)

	const sector uint32 = 2
	if err := fsys.Table().Create(sector, 0, false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	ino, err := fsys.Table().Open(sector)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer fsys.Table().Close(ino)

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	n := ino.WriteAt(payload, 8_000_000)
	if n != len(payload) {
		t.Fatalf("WriteAt returned %d, want %d", n, len(payload))
	}
	if ino.Length() != 8_000_008 {
		t.Fatalf("Length() = %d, want 8000008", ino.Length())
	}

	got := make([]byte, 9)
	if n := ino.ReadAt(got, 7_999_999); n != 9 {
		t.Fatalf("ReadAt returned %d, want 9", n)
	}
	want := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8}
	if !bytes.Equal(got, want) {
		t.Fatalf("ReadAt = %v, want %v", got, want)
	}
}

// TestShrinkReleasesBlocks is S4: shrinking releases a substantial
// fraction of the sectors the grown file held, including indirection
// tier sectors.
func TestShrinkReleasesBlocks(t *testing.T) {
	fsys, _ := newTestFS(t, 3000)

	const sector uint32 = 2
	if err := fsys.Table().Create(sector, 500_000, false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	freeCountA := fsys.FreeMap().Count()

	ino, err := fsys.Table().Open(sector)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer fsys.Table().Close(ino)

	if !ino.Resize(100) {
		t.Fatalf("resize to 100 failed")
	}
	freeCountB := fsys.FreeMap().Count()

	if got := freeCountA - freeCountB; got < 977 {
		t.Fatalf("freed %d sectors on shrink, want >= 977", got)
	}
}

// TestGrowShrinkReversibility is spec.md §8 invariant 5: after growing to
// L1 then shrinking to L0 then regrowing to L1, everything past L0 reads
// as zero (the shrink clears the tail of the last kept sector, and later
// sectors are re-allocated fresh), not the stale data that used to be there.
func TestGrowShrinkReversibility(t *testing.T) {
	fsys, _ := newTestFS(t, 3000)

	const sector uint32 = 2
	if err := fsys.Table().Create(sector, 0, false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	ino, err := fsys.Table().Open(sector)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer fsys.Table().Close(ino)

	const l0 = 1000
	const l1 = 200_000

	payload := bytes.Repeat([]byte{0x42}, l1-l0)
	ino.WriteAt(payload, l0)
	if ino.Length() != l1 {
		t.Fatalf("Length() = %d, want %d", ino.Length(), l1)
	}

	if !ino.Resize(l0) {
		t.Fatalf("shrink to %d failed", l0)
	}
	if !ino.Resize(l1) {
		t.Fatalf("regrow to %d failed", l1)
	}

	got := make([]byte, l1-l0)
	ino.ReadAt(got, l0)
	for i, b := range got {
		if b != 0 {
			t.Fatalf("byte %d past shrink point = %d, want 0", l0+int64(i), b)
		}
	}
}
