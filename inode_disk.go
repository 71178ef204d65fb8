package tinyfs

import (
	"bytes"
	"encoding/binary"
)

const (
	// NumDirect is the number of direct sector pointers in an InodeDisk.
	NumDirect = 100
	// PointersPerSector is how many 32-bit sector pointers fit in one
	// indirect or double-indirect sector.
	PointersPerSector = SectorSize / 4 // 128

	// inodeMagic identifies a live InodeDisk record.
	inodeMagic uint32 = 0x494E4F44

	// MaxFileSize is the largest byte length an InodeDisk can address:
	// (100 + 128 + 128*128) sectors.
	MaxFileSize = int64(NumDirect+PointersPerSector+PointersPerSector*PointersPerSector) * SectorSize
)

// InodeDisk is the on-disk inode record, exactly one sector (spec.md §3,
// §4.D). Field order is part of the on-disk format and must not change.
type InodeDisk struct {
	Direct         [NumDirect]uint32
	Indirect       uint32
	DoubleIndirect uint32
	Length         int32
	Magic          uint32
	Dir            bool
}

// encode serializes id into exactly SectorSize bytes: 100 direct pointers,
// indirect, double_indirect, length, magic, a directory flag byte, three
// padding bytes, then 23 unused uint32s to fill out the sector exactly as
// spec.md §4.D lays out (400+4+4+4+4+1+3+92 = 512).
func (id *InodeDisk) encode() [SectorSize]byte {
	var buf [SectorSize]byte
	w := bytes.NewBuffer(buf[:0])

	binary.Write(w, binary.LittleEndian, id.Direct)
	binary.Write(w, binary.LittleEndian, id.Indirect)
	binary.Write(w, binary.LittleEndian, id.DoubleIndirect)
	binary.Write(w, binary.LittleEndian, id.Length)
	binary.Write(w, binary.LittleEndian, id.Magic)

	var dirByte byte
	if id.Dir {
		dirByte = 1
	}
	w.WriteByte(dirByte)
	w.Write(make([]byte, 3)) // padding

	var unused [23]uint32
	binary.Write(w, binary.LittleEndian, unused)

	var out [SectorSize]byte
	copy(out[:], w.Bytes())
	return out
}

// decodeInodeDisk parses a raw sector image into an InodeDisk.
func decodeInodeDisk(raw []byte) (*InodeDisk, error) {
	r := bytes.NewReader(raw[:SectorSize])
	id := &InodeDisk{}

	binary.Read(r, binary.LittleEndian, &id.Direct)
	binary.Read(r, binary.LittleEndian, &id.Indirect)
	binary.Read(r, binary.LittleEndian, &id.DoubleIndirect)
	binary.Read(r, binary.LittleEndian, &id.Length)
	binary.Read(r, binary.LittleEndian, &id.Magic)

	var dirByte byte
	binary.Read(r, binary.LittleEndian, &dirByte)
	id.Dir = dirByte != 0

	if id.Magic != inodeMagic {
		return nil, ErrBadMagic
	}
	return id, nil
}

func bytesToSectors(size int64) int {
	return int((size + SectorSize - 1) / SectorSize)
}
