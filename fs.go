package tinyfs

import (
	"errors"
	"log"
)

const (
	// FreeMapSector is the fixed sector holding the free-map's own inode
	// (spec.md §3/§6).
	FreeMapSector uint32 = 0
	// RootDirSector is the fixed sector holding the root directory's
	// inode (spec.md §3/§6).
	RootDirSector uint32 = 1
)

// FileSystem is the single, process-wide aggregate tying the cache, the
// inode table and the free map together, per spec.md §9 ("Single global
// state... forbid multiple instances per device"). It is the Go
// counterpart of original_source/src/filesys/filesys.c's file-scope
// fs_device/buffer_cache/open_inodes globals, modeled as a value instead
// of hidden package state so multiple devices can coexist in tests.
type FileSystem struct {
	dev   BlockDevice
	cache *BufferCache
	free  FreeMap
	table *InodeTable
}

// New wires a FileSystem over dev. The free map defaults to a
// BitmapFreeMap sized to dev's sector count; override with WithFreeMap.
//
// If dev already holds a formatted image, the default BitmapFreeMap is
// reloaded from its persisted record at FreeMapSector (mirroring
// original_source's free_map_open) instead of starting from a blank
// slate — otherwise a second New/Open against the same device would think
// every sector but 0 and 1 is free and start handing out sectors already
// occupied by live files. A device that has never been formatted decodes
// no valid inode there, so the default freshly-reserved bitmap is kept as
// is, ready for Format to persist.
func New(dev BlockDevice, opts ...Option) (*FileSystem, error) {
	fs := &FileSystem{dev: dev}
	fs.cache = NewBufferCache(dev)
	fs.free = NewBitmapFreeMap(int(dev.SectorCount()))

	for _, opt := range opts {
		if err := opt(fs); err != nil {
			return nil, err
		}
	}

	fs.table = NewInodeTable(fs.cache, fs.free)

	if bm, ok := fs.free.(*BitmapFreeMap); ok {
		if err := bm.reload(fs.table); err != nil && !errors.Is(err, ErrBadMagic) {
			return nil, err
		}
	}

	return fs, nil
}

// Cache returns the filesystem's buffer cache, for test introspection
// (hit_rate, reset, reset_stats — spec.md §6).
func (fs *FileSystem) Cache() *BufferCache { return fs.cache }

// FreeMap returns the filesystem's free map, for test introspection
// (free-map conservation, spec.md §8 invariant 6).
func (fs *FileSystem) FreeMap() FreeMap { return fs.free }

// Table returns the filesystem's inode table.
func (fs *FileSystem) Table() *InodeTable { return fs.table }

// Format lays down a fresh free map and an empty root directory at the
// fixed sectors spec.md §6 names, seeding "." and "..", mirroring
// original_source's do_format + filesys_init root-directory bootstrap.
// do_format's fixed 16-entry root directory size is dropped — directory
// growth is an ordinary resize to whatever byte length the record format
// implies (SPEC_FULL.md §3).
func (fs *FileSystem) Format() error {
	log.Printf("tinyfs: formatting")

	if err := fs.table.Create(RootDirSector, 0, true); err != nil {
		return err
	}

	root, err := fs.table.Open(RootDirSector)
	if err != nil {
		return err
	}
	defer fs.table.Close(root)

	dir, err := OpenDirectory(root)
	if err != nil {
		return err
	}
	if err := dir.Add(".", RootDirSector); err != nil {
		return err
	}
	if err := dir.Add("..", RootDirSector); err != nil {
		return err
	}

	if bm, ok := fs.free.(*BitmapFreeMap); ok {
		if err := bm.persist(fs.table); err != nil {
			return err
		}
	}

	fs.cache.FlushAll()
	return nil
}

// Root opens the root directory inode.
func (fs *FileSystem) Root() (*Inode, error) {
	return fs.table.Open(RootDirSector)
}

// Create creates a new file of the given initial length as an entry named
// name in dir, mirroring original_source's filesys_create (trimmed to a
// flat single-directory lookup, since VFS path resolution is out of scope
// per spec.md §1).
func (fs *FileSystem) Create(dir *Inode, name string, length int64) (*Inode, error) {
	d, err := OpenDirectory(dir)
	if err != nil {
		return nil, err
	}
	if dir.IsRemoved() {
		return nil, ErrRemoved
	}

	sector, err := fs.free.Allocate(1)
	if err != nil {
		return nil, err
	}

	if err := fs.table.Create(sector, length, false); err != nil {
		fs.free.Release(sector, 1)
		return nil, err
	}

	if err := d.Add(name, sector); err != nil {
		fs.free.Release(sector, 1)
		return nil, err
	}

	return fs.table.Open(sector)
}

// Open looks up name in dir and opens the matching inode, mirroring
// original_source's filesys_open.
func (fs *FileSystem) Open(dir *Inode, name string) (*Inode, error) {
	d, err := OpenDirectory(dir)
	if err != nil {
		return nil, err
	}
	if dir.IsRemoved() {
		return nil, ErrRemoved
	}

	sector, err := d.Lookup(name)
	if err != nil {
		return nil, err
	}
	return fs.table.Open(sector)
}

// Remove removes the directory entry named name in dir and marks its
// inode for deletion, mirroring original_source's filesys_remove.
func (fs *FileSystem) Remove(dir *Inode, name string) error {
	d, err := OpenDirectory(dir)
	if err != nil {
		return err
	}
	if dir.IsRemoved() {
		return ErrRemoved
	}

	sector, err := d.Lookup(name)
	if err != nil {
		return err
	}

	ino, err := fs.table.Open(sector)
	if err != nil {
		return err
	}
	fs.table.Remove(ino)
	fs.table.Close(ino)

	return d.Remove(name)
}

// Close persists the free map's current allocation state and flushes any
// unwritten data to disk, mirroring original_source's filesys_done (which
// calls free_map_close then lets the buffer cache's own shutdown path
// handle the rest).
func (fs *FileSystem) Close() {
	if bm, ok := fs.free.(*BitmapFreeMap); ok {
		if err := bm.persist(fs.table); err != nil {
			log.Printf("tinyfs: free map persist failed: %s", err)
		}
	}
	fs.cache.FlushAll()
}
