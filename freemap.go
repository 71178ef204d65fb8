package tinyfs

import (
	"errors"
	"sync"
)

// FreeMap is the external collaborator that allocates and releases single
// device sectors. spec.md treats it as atomic per call, serialized
// internally by the FreeMap layer itself.
type FreeMap interface {
	// Allocate reserves count consecutive sectors (only count == 1 is
	// exercised by this repository) and returns the first one.
	Allocate(count int) (sector uint32, err error)

	// Release returns count sectors starting at sector to the pool.
	Release(sector uint32, count int)

	// Count returns the number of sectors currently marked allocated.
	Count() int
}

// BitmapFreeMap is a plain []byte bitmap FreeMap, one bit per device
// sector. It reserves sector 0 (the free-map's own record, spec.md §3)
// and sector 1 (root directory) up front so callers never get handed
// either. Its own image is itself stored as an ordinary inode at
// FreeMapSector (persist/reload below), the same bootstrap
// original_source's free_map_create/free_map_open use: the in-memory
// bitmap allocates the sectors for its own on-disk file from itself,
// before that file exists.
type BitmapFreeMap struct {
	mu   sync.Mutex
	bits []byte
	n    int
}

// NewBitmapFreeMap creates a FreeMap over n sectors, with sector 0 and
// sector 1 pre-marked allocated per spec.md §6.
func NewBitmapFreeMap(n int) *BitmapFreeMap {
	fm := &BitmapFreeMap{
		bits: make([]byte, (n+7)/8),
		n:    n,
	}
	fm.setBit(0, true)
	if n > 1 {
		fm.setBit(1, true)
	}
	return fm
}

func (fm *BitmapFreeMap) bitSet(i int) bool {
	return fm.bits[i/8]&(1<<uint(i%8)) != 0
}

func (fm *BitmapFreeMap) setBit(i int, v bool) {
	if v {
		fm.bits[i/8] |= 1 << uint(i%8)
	} else {
		fm.bits[i/8] &^= 1 << uint(i%8)
	}
}

// Allocate scans for the first run of count free bits. Only count == 1 is
// exercised by the core, but contiguous runs of any size are supported.
func (fm *BitmapFreeMap) Allocate(count int) (uint32, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	run := 0
	for i := 0; i < fm.n; i++ {
		if !fm.bitSet(i) {
			run++
			if run == count {
				start := i - count + 1
				for j := start; j <= i; j++ {
					fm.setBit(j, true)
				}
				return uint32(start), nil
			}
		} else {
			run = 0
		}
	}
	return 0, ErrOutOfSpace
}

// Release marks count sectors starting at sector as free again.
func (fm *BitmapFreeMap) Release(sector uint32, count int) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	for j := int(sector); j < int(sector)+count && j < fm.n; j++ {
		fm.setBit(j, false)
	}
}

// Count returns the number of sectors currently marked allocated.
func (fm *BitmapFreeMap) Count() int {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	n := 0
	for i := 0; i < fm.n; i++ {
		if fm.bitSet(i) {
			n++
		}
	}
	return n
}

// Bytes returns the bitmap's raw backing storage, one bit per sector. Used
// to persist the free map as its own block-device-backed file (spec.md §6:
// "Sector 0 = FreeMap inode"), mirroring original_source's free_map_close
// writing bitmap_buf_ onto the free-map's own inode.
func (fm *BitmapFreeMap) Bytes() []byte {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.bits
}

// LoadBytes overwrites the bitmap's backing storage with a previously
// persisted image, restoring exactly the allocation state it was saved
// with. Bytes beyond len(raw) are left untouched.
func (fm *BitmapFreeMap) LoadBytes(raw []byte) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	copy(fm.bits, raw)
}

// reload restores a previously persisted bitmap image from dev via table,
// by opening the fixed free-map inode at FreeMapSector (mirroring
// original_source's free_map_open). If no valid inode exists there yet —
// a freshly allocated, never-formatted device — it leaves fm untouched and
// returns the decode error (ErrBadMagic) so New can tell "nothing to load"
// apart from a real I/O problem.
func (fm *BitmapFreeMap) reload(table *InodeTable) error {
	ino, err := table.Open(FreeMapSector)
	if err != nil {
		return err
	}
	defer table.Close(ino)

	raw := make([]byte, len(fm.Bytes()))
	if n := ino.ReadAt(raw, 0); n != len(raw) {
		return errors.New("tinyfs: free-map image truncated")
	}
	fm.LoadBytes(raw)
	return nil
}

// persist writes fm's current bitmap image to its on-disk file at
// FreeMapSector through table, creating that inode first if it doesn't
// already exist. Mirrors original_source's free_map_create + free_map_close.
func (fm *BitmapFreeMap) persist(table *InodeTable) error {
	size := int64(len(fm.Bytes()))

	ino, err := table.Open(FreeMapSector)
	if err != nil {
		if err := table.Create(FreeMapSector, size, false); err != nil {
			return err
		}
		ino, err = table.Open(FreeMapSector)
		if err != nil {
			return err
		}
	}
	defer table.Close(ino)

	ino.WriteAt(fm.Bytes(), 0)
	return nil
}
