package tinyfs_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/tinyfs/tinyfs"
)

func formattedFS(t *testing.T, sectors uint32) *tinyfs.FileSystem {
	t.Helper()
	fsys, _ := newTestFS(t, sectors)
	if err := fsys.Format(); err != nil {
		t.Fatalf("Format: %v", err)
	}
	return fsys
}

func TestFormatSeedsRootDirectory(t *testing.T) {
	fsys := formattedFS(t, 300)

	root, err := fsys.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	defer fsys.Table().Close(root)

	if !root.IsDir() {
		t.Fatalf("root inode is not a directory")
	}

	dir, err := tinyfs.OpenDirectory(root)
	if err != nil {
		t.Fatalf("OpenDirectory: %v", err)
	}

	if sector, err := dir.Lookup("."); err != nil || sector != tinyfs.RootDirSector {
		t.Fatalf("lookup(.) = (%d, %v), want (%d, nil)", sector, err, tinyfs.RootDirSector)
	}
	if sector, err := dir.Lookup(".."); err != nil || sector != tinyfs.RootDirSector {
		t.Fatalf("lookup(..) = (%d, %v), want (%d, nil)", sector, err, tinyfs.RootDirSector)
	}
}

func TestCreateOpenRemove(t *testing.T) {
	fsys := formattedFS(t, 300)

	root, err := fsys.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	defer fsys.Table().Close(root)

	ino, err := fsys.Create(root, "hello.txt", 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	payload := []byte("hello, tinyfs")
	if n := ino.WriteAt(payload, 0); n != len(payload) {
		t.Fatalf("WriteAt returned %d, want %d", n, len(payload))
	}
	fsys.Table().Close(ino)

	opened, err := fsys.Open(root, "hello.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got := make([]byte, len(payload))
	opened.ReadAt(got, 0)
	if !bytes.Equal(got, payload) {
		t.Fatalf("read back = %q, want %q", got, payload)
	}
	fsys.Table().Close(opened)

	if err := fsys.Remove(root, "hello.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := fsys.Open(root, "hello.txt"); !errors.Is(err, tinyfs.ErrNotFound) {
		t.Fatalf("Open after Remove = %v, want ErrNotFound", err)
	}
}

func TestCreateDuplicateNameFails(t *testing.T) {
	fsys := formattedFS(t, 300)

	root, err := fsys.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	defer fsys.Table().Close(root)

	a, err := fsys.Create(root, "dup", 0)
	if err != nil {
		t.Fatalf("Create (first): %v", err)
	}
	defer fsys.Table().Close(a)

	if _, err := fsys.Create(root, "dup", 0); !errors.Is(err, tinyfs.ErrExists) {
		t.Fatalf("Create (duplicate) = %v, want ErrExists", err)
	}
}

// TestReopenPreservesFreeMapAndFiles is a regression test for reopening a
// formatted image: New must reload the persisted free map rather than
// starting from a blank slate, or a later Create against the reopened
// FileSystem could hand out a sector already occupied by a live file
// (or the root directory's own data).
func TestReopenPreservesFreeMapAndFiles(t *testing.T) {
	dev := tinyfs.NewMemBlockDevice(300)

	fsys1, err := tinyfs.New(dev)
	if err != nil {
		t.Fatalf("New (first): %v", err)
	}
	if err := fsys1.Format(); err != nil {
		t.Fatalf("Format: %v", err)
	}

	root1, err := fsys1.Root()
	if err != nil {
		t.Fatalf("Root (first): %v", err)
	}
	ino, err := fsys1.Create(root1, "keep.txt", 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	payload := []byte("don't clobber me")
	ino.WriteAt(payload, 0)
	fsys1.Table().Close(ino)
	fsys1.Table().Close(root1)
	fsys1.Close()

	allocatedAfterFirstSession := fsys1.FreeMap().Count()

	// Simulate a fresh process reopening the same image.
	fsys2, err := tinyfs.New(dev)
	if err != nil {
		t.Fatalf("New (second): %v", err)
	}

	if got := fsys2.FreeMap().Count(); got != allocatedAfterFirstSession {
		t.Fatalf("reopened free map count = %d, want %d (persisted state not reloaded)", got, allocatedAfterFirstSession)
	}

	root2, err := fsys2.Root()
	if err != nil {
		t.Fatalf("Root (second): %v", err)
	}
	defer fsys2.Table().Close(root2)

	opened, err := fsys2.Open(root2, "keep.txt")
	if err != nil {
		t.Fatalf("Open (second session): %v", err)
	}
	defer fsys2.Table().Close(opened)

	got := make([]byte, len(payload))
	opened.ReadAt(got, 0)
	if !bytes.Equal(got, payload) {
		t.Fatalf("read back in second session = %q, want %q", got, payload)
	}

	// A fresh Create in the second session must not collide with
	// keep.txt's already-allocated data sector.
	other, err := fsys2.Create(root2, "new.txt", 0)
	if err != nil {
		t.Fatalf("Create (second session): %v", err)
	}
	defer fsys2.Table().Close(other)

	other.WriteAt([]byte("fresh"), 0)

	stillGot := make([]byte, len(payload))
	opened.ReadAt(stillGot, 0)
	if !bytes.Equal(stillGot, payload) {
		t.Fatalf("keep.txt corrupted after a fresh Create in the reopened session: got %q, want %q", stillGot, payload)
	}
}

func TestOpenMissingNameFails(t *testing.T) {
	fsys := formattedFS(t, 300)

	root, err := fsys.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	defer fsys.Table().Close(root)

	if _, err := fsys.Open(root, "does-not-exist"); !errors.Is(err, tinyfs.ErrNotFound) {
		t.Fatalf("Open on missing name = %v, want ErrNotFound", err)
	}
}
