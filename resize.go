package tinyfs

var zeroSector [SectorSize]byte

// resizeEngine brings an InodeDisk's block map into agreement with a
// requested new byte size, allocating or freeing direct, indirect and
// double-indirect sectors tier by tier, then setting Length = size.
//
// This is a direct transliteration of original_source's inode_resize:
// same threshold formulas, same allocate-zero-store / release-zero order,
// same "no rollback on partial failure" policy (spec.md §4.E, §9).
type resizeEngine struct {
	cache *BufferCache
	free  FreeMap
}

// resize implements spec.md §4.E. On allocation failure it returns false
// without undoing any allocation already performed in this call — a known,
// intentionally preserved weakness (spec.md §9, SPEC_FULL.md §4).
func (r *resizeEngine) resize(id *InodeDisk, size int64) bool {
	// Direct pointers.
	for i := 0; i < NumDirect; i++ {
		threshold := int64(i) * SectorSize
		if size <= threshold && id.Direct[i] != 0 {
			r.free.Release(id.Direct[i], 1)
			id.Direct[i] = 0
		} else if size > threshold && id.Direct[i] == 0 {
			sector, err := r.free.Allocate(1)
			if err != nil {
				return false
			}
			id.Direct[i] = sector
			r.cache.Write(sector, zeroSector[:], SectorSize, 0)
		}
	}

	if id.Indirect == 0 && size <= NumDirect*SectorSize {
		id.Length = int32(size)
		return true
	}

	var buf [PointersPerSector]uint32
	if id.Indirect == 0 {
		sector, err := r.free.Allocate(1)
		if err != nil {
			return false
		}
		id.Indirect = sector
		r.cache.Write(sector, zeroSector[:], SectorSize, 0)
	} else {
		readPointerBlock(r.cache, id.Indirect, &buf)
	}

	// Indirect pointers.
	for i := 0; i < PointersPerSector; i++ {
		threshold := int64(NumDirect+i) * SectorSize
		if size <= threshold && buf[i] != 0 {
			r.free.Release(buf[i], 1)
			buf[i] = 0
		} else if size > threshold && buf[i] == 0 {
			sector, err := r.free.Allocate(1)
			if err != nil {
				return false
			}
			buf[i] = sector
			r.cache.Write(sector, zeroSector[:], SectorSize, 0)
		}
	}

	writePointerBlock(r.cache, id.Indirect, &buf)

	if size <= NumDirect*SectorSize {
		r.free.Release(id.Indirect, 1)
		id.Indirect = 0
	}

	if id.DoubleIndirect == 0 && size <= int64(NumDirect+PointersPerSector)*SectorSize {
		id.Length = int32(size)
		return true
	}

	var top [PointersPerSector]uint32
	if id.DoubleIndirect == 0 {
		sector, err := r.free.Allocate(1)
		if err != nil {
			return false
		}
		id.DoubleIndirect = sector
		r.cache.Write(sector, zeroSector[:], SectorSize, 0)
	} else {
		readPointerBlock(r.cache, id.DoubleIndirect, &top)
	}

	for i := 0; i < PointersPerSector; i++ {
		var leaf [PointersPerSector]uint32

		if top[i] != 0 {
			readPointerBlock(r.cache, top[i], &leaf)

			for j := 0; j < PointersPerSector; j++ {
				threshold := int64(NumDirect+PointersPerSector+PointersPerSector*i+j) * SectorSize
				if size <= threshold && leaf[j] != 0 {
					r.free.Release(leaf[j], 1)
					leaf[j] = 0
				} else if size > threshold && leaf[j] == 0 {
					sector, err := r.free.Allocate(1)
					if err != nil {
						return false
					}
					leaf[j] = sector
					r.cache.Write(sector, zeroSector[:], SectorSize, 0)
				}
			}

			writePointerBlock(r.cache, top[i], &leaf)

			if size <= int64(NumDirect+PointersPerSector+PointersPerSector*i)*SectorSize {
				r.free.Release(top[i], 1)
				top[i] = 0
			}
		} else {
			leafThreshold := int64(NumDirect+PointersPerSector+PointersPerSector*i) * SectorSize
			if size <= leafThreshold {
				continue
			}

			sector, err := r.free.Allocate(1)
			if err != nil {
				return false
			}
			top[i] = sector
			r.cache.Write(sector, zeroSector[:], SectorSize, 0)

			for j := 0; j < PointersPerSector; j++ {
				threshold := int64(NumDirect+PointersPerSector+PointersPerSector*i+j) * SectorSize
				if size > threshold && leaf[j] == 0 {
					s, err := r.free.Allocate(1)
					if err != nil {
						return false
					}
					leaf[j] = s
					r.cache.Write(s, zeroSector[:], SectorSize, 0)
				}
			}

			writePointerBlock(r.cache, top[i], &leaf)
		}
	}

	writePointerBlock(r.cache, id.DoubleIndirect, &top)

	if id.DoubleIndirect != 0 && size <= int64(NumDirect+PointersPerSector)*SectorSize {
		r.free.Release(id.DoubleIndirect, 1)
		id.DoubleIndirect = 0
	}

	id.Length = int32(size)
	return true
}

// dealloc releases every data sector reachable from id (resize to 0) and
// resets Length, but leaves the inode's own sector untouched — that's the
// caller's job (spec.md §4.G close/remove).
func (r *resizeEngine) dealloc(id *InodeDisk) {
	r.resize(id, 0)
}

func readPointerBlock(c *BufferCache, sector uint32, buf *[PointersPerSector]uint32) {
	var raw [SectorSize]byte
	c.Read(sector, raw[:], SectorSize, 0)
	for i := range buf {
		buf[i] = leUint32(raw[i*4 : i*4+4])
	}
}

func writePointerBlock(c *BufferCache, sector uint32, buf *[PointersPerSector]uint32) {
	var raw [SectorSize]byte
	for i, v := range buf {
		putLeUint32(raw[i*4:i*4+4], v)
	}
	c.Write(sector, raw[:], SectorSize, 0)
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLeUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
