package tinyfs

import "sync"

// cacheFrames is the fixed capacity of the buffer cache, per spec.
const cacheFrames = 64

// cacheEntry is one frame in the cache. The per-entry lock is held during
// the actual device I/O so the cache-wide lock can be released while a
// read or write back is in flight, per spec.md §4.C/§5.
type cacheEntry struct {
	mu sync.Mutex // held only across device I/O for this frame

	sector   uint32
	valid    bool
	dirty    bool
	accessed bool
	data     [SectorSize]byte
}

// BufferCache is the fixed-capacity, write-back, CLOCK-evicted cache that
// mediates every access to the underlying BlockDevice. It is grounded
// directly on original_source/src/filesys/filesys.c's
// buffer_cache_{init,read,write,flush_all_entries,reset} and the
// find_buffer_cache_entry/load_new_entry/write_new_entry helpers.
type BufferCache struct {
	dev BlockDevice

	mu    sync.Mutex // guards frame table: sector/valid/dirty/accessed, clock hand
	frame [cacheFrames]*cacheEntry
	hand  int

	hits   uint64
	misses uint64
}

// NewBufferCache allocates the fixed set of frames once at startup.
func NewBufferCache(dev BlockDevice) *BufferCache {
	c := &BufferCache{dev: dev}
	for i := range c.frame {
		c.frame[i] = &cacheEntry{}
	}
	return c
}

// find returns the valid frame already holding sector, or nil. Must be
// called with mu held.
func (c *BufferCache) find(sector uint32) *cacheEntry {
	for _, e := range c.frame {
		if e.valid && e.sector == sector {
			return e
		}
	}
	return nil
}

// claimOrEvict returns a frame ready to hold sector: an invalid frame if
// one exists, otherwise the CLOCK victim. Must be called with mu held; it
// releases and reacquires mu around any write-back I/O. On return the
// frame's sector field is already set to the target, so no other caller
// can steal it out from under the I/O that follows.
func (c *BufferCache) claimOrEvict(sector uint32) *cacheEntry {
	for _, e := range c.frame {
		if !e.valid {
			e.sector = sector
			e.valid = true
			e.dirty = false
			e.accessed = true
			return e
		}
	}

	for {
		e := c.frame[c.hand]
		if !e.accessed {
			if e.dirty {
				victimSector := e.sector
				e.mu.Lock()
				c.mu.Unlock()
				c.dev.WriteSector(victimSector, e.data[:])
				c.mu.Lock()
				e.mu.Unlock()
			}

			e.sector = sector
			e.valid = true
			e.dirty = false
			e.accessed = true
			c.advanceHand()
			return e
		}

		e.accessed = false
		c.advanceHand()
	}
}

func (c *BufferCache) advanceHand() {
	c.hand = (c.hand + 1) % len(c.frame)
}

// Read copies size bytes starting at intra-sector offset from sector into
// dst. offset+size must be <= SectorSize.
func (c *BufferCache) Read(sector uint32, dst []byte, size, offset int) {
	c.mu.Lock()

	e := c.find(sector)
	if e != nil {
		copy(dst[:size], e.data[offset:offset+size])
		e.accessed = true
		c.hits++
		c.mu.Unlock()
		return
	}

	e = c.claimOrEvict(sector)
	c.misses++
	c.mu.Unlock()

	e.mu.Lock()
	c.dev.ReadSector(sector, e.data[:])
	e.mu.Unlock()

	c.mu.Lock()
	copy(dst[:size], e.data[offset:offset+size])
	c.mu.Unlock()
}

// Write copies size bytes from src into sector at intra-sector offset,
// marking the frame dirty. On a miss the sector is not read from the
// device: the requested bytes are copied into the claimed frame and the
// rest of the frame keeps whatever it held before, so a partial write to
// an uncached sector does not preserve that sector's other bytes. Full
// sector writes (such as resize's zero-fill of a new sector) are
// unaffected.
func (c *BufferCache) Write(sector uint32, src []byte, size, offset int) {
	c.mu.Lock()

	e := c.find(sector)
	if e != nil {
		copy(e.data[offset:offset+size], src[:size])
		e.accessed = true
		e.dirty = true
		c.mu.Unlock()
		return
	}

	e = c.claimOrEvict(sector)
	copy(e.data[offset:offset+size], src[:size])
	e.dirty = true
	c.mu.Unlock()
}

// FlushAll writes back every valid, dirty frame and clears their dirty bits.
func (c *BufferCache) FlushAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.frame {
		if e.valid && e.dirty {
			sector := e.sector
			e.mu.Lock()
			c.mu.Unlock()
			c.dev.WriteSector(sector, e.data[:])
			e.mu.Unlock()
			c.mu.Lock()
			e.dirty = false
		}
	}
}

// Reset flushes, then invalidates every frame. Used by tests to measure
// cold-cache behavior.
func (c *BufferCache) Reset() {
	c.FlushAll()

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.frame {
		e.valid = false
		e.dirty = false
		e.accessed = false
	}
}

// HitRate returns hits / (hits + misses) as a real ratio. Per
// SPEC_FULL.md's open-question decision, this departs from the source's
// integer-division quirk; callers that only care about ordering (hot vs
// cold) are unaffected either way.
func (c *BufferCache) HitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hits+c.misses == 0 {
		return 0
	}
	return float64(c.hits) / float64(c.hits+c.misses)
}

// ResetStats clears the hit/miss counters without touching frame contents.
func (c *BufferCache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits = 0
	c.misses = 0
}
