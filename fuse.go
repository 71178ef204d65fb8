//go:build fuse

package tinyfs

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// fuseNode is the minimal FUSE front end over the Directory/File API,
// grounded on squashfs/inode_fuse.go at the same depth the teacher
// implements it: Lookup/Readdir/Open/Read only, no full mount daemon
// beyond the Mount helper below (cmd/tinyfsctl has no mount verb either,
// matching cmd/sqfs's scope).
type fuseNode struct {
	fs.Inode

	fsys *FileSystem
	ino  *Inode
}

var _ fs.NodeLookuper = (*fuseNode)(nil)
var _ fs.NodeReaddirer = (*fuseNode)(nil)
var _ fs.NodeOpener = (*fuseNode)(nil)
var _ fs.NodeReader = (*fuseNode)(nil)

func (n *fuseNode) attr(out *fuse.EntryOut) {
	out.Ino = uint64(n.ino.Sector)
	if n.ino.IsDir() {
		out.Mode = syscall.S_IFDIR | 0o755
	} else {
		out.Mode = syscall.S_IFREG | 0o644
		out.Size = uint64(n.ino.Length())
	}
}

// Lookup implements fs.NodeLookuper.
func (n *fuseNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	dir, err := OpenDirectory(n.ino)
	if err != nil {
		return nil, syscall.ENOTDIR
	}

	sector, err := dir.Lookup(name)
	if err != nil {
		return nil, syscall.ENOENT
	}

	child, err := n.fsys.table.Open(sector)
	if err != nil {
		return nil, syscall.EIO
	}

	cn := &fuseNode{fsys: n.fsys, ino: child}
	cn.attr(out)

	mode := uint32(syscall.S_IFREG)
	if child.IsDir() {
		mode = syscall.S_IFDIR
	}
	return n.NewInode(ctx, cn, fs.StableAttr{Mode: mode, Ino: uint64(child.Sector)}), 0
}

// Readdir implements fs.NodeReaddirer.
func (n *fuseNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	dir, err := OpenDirectory(n.ino)
	if err != nil {
		return nil, syscall.ENOTDIR
	}

	entries := dir.List()
	out := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, fuse.DirEntry{Name: e.Name, Ino: uint64(e.Sector)})
	}
	return fs.NewListDirStream(out), 0
}

// Open implements fs.NodeOpener. tinyfs caches everything in the buffer
// cache already, so there's no separate file handle to hand back.
func (n *fuseNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

// Read implements fs.NodeReader.
func (n *fuseNode) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	got := n.ino.ReadAt(dest, off)
	return fuse.ReadResultData(dest[:got]), 0
}

// Mount mounts fsys's root directory at mountPoint, returning the running
// fuse.Server. Callers must call server.Unmount() (or Wait()) themselves.
func Mount(fsys *FileSystem, mountPoint string, opts *fs.Options) (*fuse.Server, error) {
	root, err := fsys.Root()
	if err != nil {
		return nil, err
	}

	rn := &fuseNode{fsys: fsys, ino: root}
	return fs.Mount(mountPoint, rn, opts)
}
