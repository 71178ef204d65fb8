package tinyfs

import "errors"

// Package-specific error variables, intended for use with errors.Is.
var (
	// ErrBadMagic is returned when an on-disk inode record fails the magic check.
	ErrBadMagic = errors.New("tinyfs: bad inode magic")

	// ErrOutOfSpace is returned when the FreeMap has no sectors left to allocate.
	ErrOutOfSpace = errors.New("tinyfs: free map exhausted")

	// ErrInvalidOffset is returned by InodeTable.Create for a negative length.
	ErrInvalidOffset = errors.New("tinyfs: invalid offset or size")

	// ErrTooLarge is returned when a requested length exceeds the maximum file size.
	ErrTooLarge = errors.New("tinyfs: requested length exceeds maximum file size")

	// ErrNotDirectory is returned when a directory operation targets a non-directory inode.
	ErrNotDirectory = errors.New("tinyfs: not a directory")

	// ErrRemoved is returned when an operation targets an inode already marked removed.
	ErrRemoved = errors.New("tinyfs: inode removed")

	// ErrNotFound is returned when a directory lookup finds no matching entry.
	ErrNotFound = errors.New("tinyfs: no such entry")

	// ErrExists is returned when a directory create targets a name already present.
	ErrExists = errors.New("tinyfs: entry already exists")
)
