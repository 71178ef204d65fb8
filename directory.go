package tinyfs

import "bytes"

// spec.md §6 leaves the on-disk directory record format to the Directory
// layer, calling it "opaque" to the core. original_source ships no
// directory.c, so this is a supplemented minimal format (SPEC_FULL.md
// §2): a flat, fixed-width entry list stored through the regular File
// I/O path, good enough to give fs.go's path-based API and the optional
// FUSE front end something real to walk.

const (
	dirNameLen   = 28
	dirEntrySize = dirNameLen + 4 // name + sector
)

// DirEntry is one name -> inode-sector mapping in a directory's data.
type DirEntry struct {
	Name   string
	Sector uint32
	inUse  bool
}

func encodeDirEntry(e DirEntry) [dirEntrySize]byte {
	var buf [dirEntrySize]byte
	n := copy(buf[:dirNameLen], e.Name)
	_ = n
	if e.inUse {
		putLeUint32(buf[dirNameLen:], e.Sector)
	}
	return buf
}

func decodeDirEntry(buf []byte) DirEntry {
	sector := leUint32(buf[dirNameLen:])
	name := string(bytes.TrimRight(buf[:dirNameLen], "\x00"))
	return DirEntry{Name: name, Sector: sector, inUse: sector != 0 && name != ""}
}

// Directory wraps a directory inode with name-based lookup, add and
// remove, exercising the plain File I/O path the way any other file
// content would.
type Directory struct {
	ino *Inode
}

// OpenDirectory wraps an already-open directory inode. Returns
// ErrNotDirectory if the inode isn't marked as a directory.
func OpenDirectory(ino *Inode) (*Directory, error) {
	if !ino.IsDir() {
		return nil, ErrNotDirectory
	}
	return &Directory{ino: ino}, nil
}

// Lookup scans the directory's entries for name, returning its inode
// sector, or ErrNotFound.
func (d *Directory) Lookup(name string) (uint32, error) {
	n := int(d.ino.Length() / dirEntrySize)
	buf := make([]byte, dirEntrySize)
	for i := 0; i < n; i++ {
		if got := d.ino.ReadAt(buf, int64(i)*dirEntrySize); got != dirEntrySize {
			break
		}
		e := decodeDirEntry(buf)
		if e.inUse && e.Name == name {
			return e.Sector, nil
		}
	}
	return 0, ErrNotFound
}

// Add appends a name -> sector entry, reusing a tombstoned slot if one
// exists. Returns ErrExists if name is already present.
func (d *Directory) Add(name string, sector uint32) error {
	if _, err := d.Lookup(name); err == nil {
		return ErrExists
	}

	n := int(d.ino.Length() / dirEntrySize)
	buf := make([]byte, dirEntrySize)
	for i := 0; i < n; i++ {
		d.ino.ReadAt(buf, int64(i)*dirEntrySize)
		e := decodeDirEntry(buf)
		if !e.inUse {
			enc := encodeDirEntry(DirEntry{Name: name, Sector: sector, inUse: true})
			d.ino.WriteAt(enc[:], int64(i)*dirEntrySize)
			return nil
		}
	}

	enc := encodeDirEntry(DirEntry{Name: name, Sector: sector, inUse: true})
	d.ino.WriteAt(enc[:], int64(n)*dirEntrySize)
	return nil
}

// Remove tombstones the entry for name.
func (d *Directory) Remove(name string) error {
	n := int(d.ino.Length() / dirEntrySize)
	buf := make([]byte, dirEntrySize)
	for i := 0; i < n; i++ {
		d.ino.ReadAt(buf, int64(i)*dirEntrySize)
		e := decodeDirEntry(buf)
		if e.inUse && e.Name == name {
			var empty [dirEntrySize]byte
			d.ino.WriteAt(empty[:], int64(i)*dirEntrySize)
			return nil
		}
	}
	return ErrNotFound
}

// List returns every live entry in the directory.
func (d *Directory) List() []DirEntry {
	n := int(d.ino.Length() / dirEntrySize)
	buf := make([]byte, dirEntrySize)
	out := make([]DirEntry, 0, n)
	for i := 0; i < n; i++ {
		d.ino.ReadAt(buf, int64(i)*dirEntrySize)
		e := decodeDirEntry(buf)
		if e.inUse {
			out = append(out, e)
		}
	}
	return out
}
