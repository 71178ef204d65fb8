// Package tinyfs implements a block-device file system engine: a
// write-back, CLOCK-evicted buffer cache and an extensible-file inode
// layer built on direct, single-indirect and double-indirect block maps.
//
// It is modeled on the Pintos/CS140 filesystem project. The syscall
// dispatcher, process model and VFS path resolution are out of scope;
// tinyfs exposes only the BlockDevice-backed cache, the inode table, and
// byte-granular file I/O, plus a minimal directory record good enough to
// build a flat namespace on top of.
package tinyfs

// SectorSize is the fixed size of a device sector in bytes.
const SectorSize = 512

// NoSector is returned by the sector translator when a byte position is
// out of bounds (negative, or at or past the inode's length). A sector pointer
// field equal to 0 means "unallocated" (sector 0 is reserved for the
// free map and is never handed out to ordinary files), matching
// original_source's use of the sector number type itself for both.
const NoSector uint32 = 0xFFFFFFFF
