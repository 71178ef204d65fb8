package tinyfs

// sectorTranslator maps a byte offset within an inode to the device
// sector that stores it, walking the indirection tree through the
// BufferCache. Grounded directly on original_source's byte_to_sector.
type sectorTranslator struct {
	cache *BufferCache
}

// translate returns the device sector backing byte position pos within an
// inode of the given length, or NoSector if pos is out of bounds.
func (t *sectorTranslator) translate(id *InodeDisk, pos int64) uint32 {
	if pos < 0 || pos >= int64(id.Length) {
		return NoSector
	}

	n := int(pos / SectorSize)
	switch {
	case n < NumDirect:
		return id.Direct[n]

	case n < NumDirect+PointersPerSector:
		var buf [PointersPerSector]uint32
		readPointerBlock(t.cache, id.Indirect, &buf)
		return buf[n-NumDirect]

	default:
		var top [PointersPerSector]uint32
		readPointerBlock(t.cache, id.DoubleIndirect, &top)

		idx := (n - NumDirect - PointersPerSector) / PointersPerSector
		var leaf [PointersPerSector]uint32
		readPointerBlock(t.cache, top[idx], &leaf)
		return leaf[(n-NumDirect-PointersPerSector)%PointersPerSector]
	}
}
