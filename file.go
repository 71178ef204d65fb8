package tinyfs

// ReadAt reads up to len(dst) bytes from ino starting at offset, clipped
// at EOF. It returns the number of bytes actually read, which may be
// less than len(dst) (possibly 0) if the read runs past the end of the
// file. Grounded on original_source's inode_read_at.
func (ino *Inode) ReadAt(dst []byte, offset int64) int {
	ino.mu.RLock()
	defer ino.mu.RUnlock()
	return ino.readAtLocked(dst, offset)
}

func (ino *Inode) readAtLocked(dst []byte, offset int64) int {
	size := len(dst)
	read := 0

	for size > 0 {
		sectorIdx := ino.table.xlate.translate(&ino.Disk, offset)
		sectorOfs := int(offset % SectorSize)

		inodeLeft := int64(ino.Disk.Length) - offset
		sectorLeft := SectorSize - sectorOfs
		minLeft := sectorLeft
		if inodeLeft < int64(minLeft) {
			minLeft = int(inodeLeft)
		}

		chunk := size
		if minLeft < chunk {
			chunk = minLeft
		}
		if chunk <= 0 {
			break
		}

		ino.table.cache.Read(sectorIdx, dst[read:read+chunk], chunk, sectorOfs)

		size -= chunk
		offset += int64(chunk)
		read += chunk
	}

	return read
}

// WriteAt writes len(src) bytes to ino starting at offset, implicitly
// extending the file (via resize) if the write runs past the current
// length. Returns the number of bytes actually written; 0 if the resize
// fails or a deny-write is in effect. Grounded on original_source's
// inode_write_at.
func (ino *Inode) WriteAt(src []byte, offset int64) int {
	ino.mu.Lock()
	defer ino.mu.Unlock()

	size := len(src)
	if offset+int64(size) > int64(ino.Disk.Length) {
		if !ino.table.resize.resize(&ino.Disk, offset+int64(size)) {
			return 0
		}
	}

	if ino.DenyWriteCount > 0 {
		return 0
	}

	written := 0
	remaining := size
	for remaining > 0 {
		sectorIdx := ino.table.xlate.translate(&ino.Disk, offset)
		sectorOfs := int(offset % SectorSize)

		inodeLeft := int64(ino.Disk.Length) - offset
		sectorLeft := SectorSize - sectorOfs
		minLeft := sectorLeft
		if inodeLeft < int64(minLeft) {
			minLeft = int(inodeLeft)
		}

		chunk := remaining
		if minLeft < chunk {
			chunk = minLeft
		}
		if chunk <= 0 {
			break
		}

		ino.table.cache.Write(sectorIdx, src[written:written+chunk], chunk, sectorOfs)

		remaining -= chunk
		offset += int64(chunk)
		written += chunk
	}

	buf := ino.Disk.encode()
	ino.table.cache.Write(ino.Sector, buf[:], SectorSize, 0)

	return written
}
