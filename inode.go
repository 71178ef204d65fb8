package tinyfs

import "sync"

// Inode is the in-memory handle wrapping a cached InodeDisk image: the
// inode's own sector number, open/deny-write refcounts, the removed flag,
// and the on-disk image itself (spec.md §3).
//
// mu guards resize/read/write/deny-write/allow-write end to end. This is
// SPEC_FULL.md's open-question decision #2: original_source leaves
// concurrent resize on a shared inode unsound (two writers extending the
// same file race); tinyfs re-architects with a per-inode lock instead.
type Inode struct {
	mu sync.RWMutex // GUARDED_BY: Sector, OpenCount, DenyWriteCount, Removed, Disk

	table *InodeTable

	Sector uint32
	Disk   InodeDisk

	OpenCount      int
	DenyWriteCount int
	Removed        bool
}

// InodeTable is the process-wide OpenInodeSet plus the create/open/close/
// remove operations of spec.md §4.G, grounded on original_source's
// inode_create/inode_open/inode_reopen/inode_close/inode_remove. The
// original's linked-list open_inodes scan is generalized to a map keyed
// by sector number, which is what spec.md §3's OpenInodeSet actually asks
// for.
type InodeTable struct {
	mu sync.Mutex // protects the open set itself; see spec.md §5

	cache  *BufferCache
	free   FreeMap
	resize resizeEngine
	xlate  sectorTranslator

	open map[uint32]*Inode
}

// NewInodeTable wires an InodeTable to its BufferCache and FreeMap.
func NewInodeTable(cache *BufferCache, free FreeMap) *InodeTable {
	t := &InodeTable{
		cache: cache,
		free:  free,
		open:  make(map[uint32]*Inode),
	}
	t.resize = resizeEngine{cache: cache, free: free}
	t.xlate = sectorTranslator{cache: cache}
	return t
}

// Create allocates an on-disk inode image at sector, sizes it to length,
// zero-fills every data sector it ends up owning, and writes the image to
// sector. It does not insert the inode into the open set — callers open
// it afterward if they want a live handle.
//
// The "dummy" scratch allocation the original performs as a crude OOM
// canary (SPEC_FULL.md §4, open question 3) is omitted.
func (t *InodeTable) Create(sector uint32, length int64, isDir bool) error {
	if length < 0 {
		return ErrInvalidOffset
	}
	if length > MaxFileSize {
		return ErrTooLarge
	}

	disk := &InodeDisk{Magic: inodeMagic, Dir: isDir}
	if !t.resize.resize(disk, length) {
		return ErrOutOfSpace
	}

	sectors := bytesToSectors(length)
	for i := 0; i < sectors; i++ {
		s := t.xlate.translate(disk, int64(i)*SectorSize)
		t.cache.Write(s, zeroSector[:], SectorSize, 0)
	}

	buf := disk.encode()
	t.cache.Write(sector, buf[:], SectorSize, 0)
	return nil
}

// Open returns the live Inode for sector, bumping OpenCount if it's
// already open, otherwise loading its image through the cache and
// inserting it into the open set.
func (t *InodeTable) Open(sector uint32) (*Inode, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ino, ok := t.open[sector]; ok {
		ino.mu.Lock()
		ino.OpenCount++
		ino.mu.Unlock()
		return ino, nil
	}

	var raw [SectorSize]byte
	t.cache.Read(sector, raw[:], SectorSize, 0)
	disk, err := decodeInodeDisk(raw[:])
	if err != nil {
		return nil, err
	}

	ino := &Inode{
		table:     t,
		Sector:    sector,
		Disk:      *disk,
		OpenCount: 1,
	}
	t.open[sector] = ino
	return ino, nil
}

// Reopen increments ino's OpenCount; it is a no-op on a nil inode.
func (t *InodeTable) Reopen(ino *Inode) *Inode {
	if ino == nil {
		return nil
	}
	ino.mu.Lock()
	ino.OpenCount++
	ino.mu.Unlock()
	return ino
}

// Close decrements ino's OpenCount; when it reaches zero, ino is removed
// from the open set, and if it was marked removed, its data sectors and
// its own sector are returned to the FreeMap.
func (t *InodeTable) Close(ino *Inode) {
	if ino == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ino.mu.Lock()
	ino.OpenCount--
	openCount := ino.OpenCount
	removed := ino.Removed
	ino.mu.Unlock()

	if openCount > 0 {
		return
	}

	delete(t.open, ino.Sector)

	if removed {
		ino.mu.Lock()
		t.resize.dealloc(&ino.Disk)
		ino.mu.Unlock()
		t.free.Release(ino.Sector, 1)
	}
}

// Remove marks ino as removed; if it has no current openers the
// deallocation happens immediately rather than waiting for Close.
func (t *InodeTable) Remove(ino *Inode) {
	ino.mu.Lock()
	ino.Removed = true
	openCount := ino.OpenCount
	ino.mu.Unlock()

	if openCount != 0 {
		return
	}

	t.mu.Lock()
	delete(t.open, ino.Sector)
	t.mu.Unlock()

	ino.mu.Lock()
	t.resize.dealloc(&ino.Disk)
	ino.mu.Unlock()
	t.free.Release(ino.Sector, 1)
}

// DenyWrite increments ino's deny-write veto counter.
func (ino *Inode) DenyWrite() {
	ino.mu.Lock()
	defer ino.mu.Unlock()
	ino.DenyWriteCount++
}

// AllowWrite decrements ino's deny-write veto counter.
func (ino *Inode) AllowWrite() {
	ino.mu.Lock()
	defer ino.mu.Unlock()
	if ino.DenyWriteCount > 0 {
		ino.DenyWriteCount--
	}
}

// Resize grows or shrinks ino to exactly size bytes, allocating or
// releasing sectors as needed and zero-filling any newly allocated data,
// then persisting the updated inode image. A shrink also zeroes the bytes
// past the new length in the last sector it keeps. It reports whether the resize
// succeeded; a failed grow leaves whatever sectors it managed to allocate
// before running out of space (spec.md §9's documented non-atomicity).
// This is the standalone inode_resize operation of spec.md §4.E — WriteAt
// calls the same engine internally when a write runs past the current
// length, but callers that just want to pre-size or truncate a file use
// this directly.
func (ino *Inode) Resize(size int64) bool {
	ino.mu.Lock()
	defer ino.mu.Unlock()

	if size < 0 || size > MaxFileSize {
		return false
	}
	if ofs := int(size % SectorSize); size < int64(ino.Disk.Length) && ofs != 0 {
		// The last kept sector is not released, so clear its tail; a later
		// regrow then reads those bytes as zero.
		s := ino.table.xlate.translate(&ino.Disk, size)
		var raw [SectorSize]byte
		ino.table.cache.Read(s, raw[:], SectorSize, 0)
		copy(raw[ofs:], zeroSector[ofs:])
		ino.table.cache.Write(s, raw[:], SectorSize, 0)
	}
	if !ino.table.resize.resize(&ino.Disk, size) {
		return false
	}

	buf := ino.Disk.encode()
	ino.table.cache.Write(ino.Sector, buf[:], SectorSize, 0)
	return true
}

// Length returns the inode's current byte length.
func (ino *Inode) Length() int64 {
	ino.mu.RLock()
	defer ino.mu.RUnlock()
	return int64(ino.Disk.Length)
}

// IsDir reports whether this inode describes a directory.
func (ino *Inode) IsDir() bool {
	ino.mu.RLock()
	defer ino.mu.RUnlock()
	return ino.Disk.Dir
}

// IsRemoved reports whether ino has been marked for deletion.
func (ino *Inode) IsRemoved() bool {
	ino.mu.RLock()
	defer ino.mu.RUnlock()
	return ino.Removed
}
