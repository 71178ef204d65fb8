//go:build unix

package tinyfs

import (
	"io"
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// MmapBlockDevice is a BlockDevice backed by a memory-mapped file, wired
// through golang.org/x/sys/unix rather than os.File's ReadAt/WriteAt.
// Every sector access touches the mapping directly; Sync msyncs it back.
type MmapBlockDevice struct {
	f          *os.File
	data       []byte
	sectors    uint32
	readCount  uint64
	writeCount uint64
}

// OpenMmapBlockDevice opens (or creates) path and maps it into memory as a
// block device of the given sector count.
func OpenMmapBlockDevice(path string, sectors uint32) (*MmapBlockDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	size := int64(sectors) * SectorSize
	if info, err := f.Stat(); err == nil && info.Size() < size {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, err
		}
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &MmapBlockDevice{f: f, data: data, sectors: sectors}, nil
}

func (d *MmapBlockDevice) ReadSector(sector uint32, dst []byte) error {
	if sector >= d.sectors {
		return io.ErrUnexpectedEOF
	}
	off := int(sector) * SectorSize
	copy(dst, d.data[off:off+SectorSize])
	atomic.AddUint64(&d.readCount, 1)
	return nil
}

func (d *MmapBlockDevice) WriteSector(sector uint32, src []byte) error {
	if sector >= d.sectors {
		return io.ErrUnexpectedEOF
	}
	off := int(sector) * SectorSize
	copy(d.data[off:off+SectorSize], src[:SectorSize])
	atomic.AddUint64(&d.writeCount, 1)
	return nil
}

func (d *MmapBlockDevice) SectorCount() uint32 { return d.sectors }
func (d *MmapBlockDevice) ReadCount() uint64   { return atomic.LoadUint64(&d.readCount) }
func (d *MmapBlockDevice) WriteCount() uint64  { return atomic.LoadUint64(&d.writeCount) }

// Sync flushes the mapping back to the backing file.
func (d *MmapBlockDevice) Sync() error {
	return unix.Msync(d.data, unix.MS_SYNC)
}

// Close unmaps the region and closes the backing file.
func (d *MmapBlockDevice) Close() error {
	if err := unix.Munmap(d.data); err != nil {
		return err
	}
	return d.f.Close()
}
