package tinyfs_test

import (
	"testing"
)

// TestOpenDeduplication is S6: opening the same sector twice returns the
// same *Inode, and OpenCount tracks both references.
func TestOpenDeduplication(t *testing.T) {
	fsys, _ := newTestFS(t, 300)

	const sector uint32 = 2
	if err := fsys.Table().Create(sector, 0, false); err != nil {
		t.Fatalf("Create: %v", err)
	}

	a, err := fsys.Table().Open(sector)
	if err != nil {
		t.Fatalf("Open (a): %v", err)
	}
	b, err := fsys.Table().Open(sector)
	if err != nil {
		t.Fatalf("Open (b): %v", err)
	}

	if a != b {
		t.Fatalf("Open returned distinct *Inode values for the same sector")
	}
	if a.OpenCount != 2 {
		t.Fatalf("OpenCount after two opens = %d, want 2", a.OpenCount)
	}

	fsys.Table().Close(a)
	// b is still a live reference; reading through it must still work.
	buf := make([]byte, 1)
	b.ReadAt(buf, 0)

	fsys.Table().Close(b)
}

// TestDenyWrite is S5: once DenyWrite is in effect, WriteAt is a no-op
// returning 0, and lifting it with AllowWrite restores normal writes.
func TestDenyWrite(t *testing.T) {
	fsys, _ := newTestFS(t, 300)

	const sector uint32 = 2
	if err := fsys.Table().Create(sector, 512, false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	ino, err := fsys.Table().Open(sector)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer fsys.Table().Close(ino)

	ino.DenyWrite()
	if n := ino.WriteAt([]byte{1, 2, 3}, 0); n != 0 {
		t.Fatalf("WriteAt under deny-write returned %d, want 0", n)
	}

	ino.AllowWrite()
	if n := ino.WriteAt([]byte{1, 2, 3}, 0); n != 3 {
		t.Fatalf("WriteAt after AllowWrite returned %d, want 3", n)
	}
}

// TestDenyWriteStacking confirms DenyWrite/AllowWrite are reference
// counted: one AllowWrite does not lift two DenyWrite calls.
func TestDenyWriteStacking(t *testing.T) {
	fsys, _ := newTestFS(t, 300)

	const sector uint32 = 2
	if err := fsys.Table().Create(sector, 512, false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	ino, err := fsys.Table().Open(sector)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer fsys.Table().Close(ino)

	ino.DenyWrite()
	ino.DenyWrite()
	ino.AllowWrite()

	if n := ino.WriteAt([]byte{9}, 0); n != 0 {
		t.Fatalf("WriteAt with one outstanding deny returned %d, want 0", n)
	}

	ino.AllowWrite()
	if n := ino.WriteAt([]byte{9}, 0); n != 1 {
		t.Fatalf("WriteAt after both denies lifted returned %d, want 1", n)
	}
}

// TestFreeMapConservation is spec.md §8 invariant 6: every sector
// allocated by Create and then released by Remove (after Close) returns
// to the free map, leaving the allocated count unchanged from before the
// file existed.
func TestFreeMapConservation(t *testing.T) {
	fsys, _ := newTestFS(t, 3000)

	if err := fsys.Format(); err != nil {
		t.Fatalf("Format: %v", err)
	}
	before := fsys.FreeMap().Count()

	root, err := fsys.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	defer fsys.Table().Close(root)

	ino, err := fsys.Create(root, "scratch", 200_000)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := fsys.Remove(root, "scratch"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	fsys.Table().Close(ino)

	after := fsys.FreeMap().Count()
	if after != before {
		t.Fatalf("free map count after create+remove = %d, want %d", after, before)
	}
}
