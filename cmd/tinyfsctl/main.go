// Command tinyfsctl inspects and manipulates a tinyfs block-device image,
// grounded on squashfs/cmd/sqfs/main.go's hand-rolled os.Args switch.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/tinyfs/tinyfs"
)

const usage = `tinyfsctl - tinyfs image tool

Usage:
  tinyfsctl format <image> <sectors>           Create and format a new image
  tinyfsctl ls <image>                         List the root directory
  tinyfsctl cat <image> <file>                 Print a file's contents
  tinyfsctl stat <image>                       Show free-map usage
  tinyfsctl dump <image> <out.zst>             Write a compressed snapshot
  tinyfsctl restore <in.zst> <image> <sectors> Restore a snapshot
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "format":
		err = cmdFormat()
	case "ls":
		err = cmdLs()
	case "cat":
		err = cmdCat()
	case "stat":
		err = cmdStat()
	case "dump":
		err = cmdDump()
	case "restore":
		err = cmdRestore()
	default:
		fmt.Print(usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func cmdFormat() error {
	if len(os.Args) < 4 {
		return fmt.Errorf("missing <image> <sectors>")
	}
	sectors, err := strconv.Atoi(os.Args[3])
	if err != nil {
		return err
	}

	dev, err := tinyfs.OpenFileBlockDevice(os.Args[2], uint32(sectors))
	if err != nil {
		return err
	}
	defer dev.Close()

	fsys, err := tinyfs.New(dev)
	if err != nil {
		return err
	}
	if err := fsys.Format(); err != nil {
		return err
	}
	return dev.Sync()
}

func cmdLs() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("missing <image>")
	}
	fsys, dev, err := openExisting(os.Args[2])
	if err != nil {
		return err
	}
	defer dev.Close()

	root, err := fsys.Root()
	if err != nil {
		return err
	}
	defer fsys.Table().Close(root)

	dir, err := tinyfs.OpenDirectory(root)
	if err != nil {
		return err
	}
	for _, e := range dir.List() {
		fmt.Printf("%-28s sector %d\n", e.Name, e.Sector)
	}
	return nil
}

func cmdCat() error {
	if len(os.Args) < 4 {
		return fmt.Errorf("missing <image> <file>")
	}
	fsys, dev, err := openExisting(os.Args[2])
	if err != nil {
		return err
	}
	defer dev.Close()

	root, err := fsys.Root()
	if err != nil {
		return err
	}
	defer fsys.Table().Close(root)

	ino, err := fsys.Open(root, os.Args[3])
	if err != nil {
		return err
	}
	defer fsys.Table().Close(ino)

	buf := make([]byte, ino.Length())
	n := ino.ReadAt(buf, 0)
	os.Stdout.Write(buf[:n])
	return nil
}

func cmdStat() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("missing <image>")
	}
	fsys, dev, err := openExisting(os.Args[2])
	if err != nil {
		return err
	}
	defer dev.Close()

	fmt.Printf("sectors:   %d\n", dev.SectorCount())
	fmt.Printf("allocated: %d\n", fsys.FreeMap().Count())
	fmt.Printf("hit rate:  %.3f\n", fsys.Cache().HitRate())
	return nil
}

func cmdDump() error {
	if len(os.Args) < 4 {
		return fmt.Errorf("missing <image> <out.zst>")
	}
	_, dev, err := openExisting(os.Args[2])
	if err != nil {
		return err
	}
	defer dev.Close()

	out, err := os.Create(os.Args[3])
	if err != nil {
		return err
	}
	defer out.Close()

	return tinyfs.DumpImage(dev, out, tinyfs.CompressionZstd)
}

func cmdRestore() error {
	if len(os.Args) < 5 {
		return fmt.Errorf("missing <in.zst> <image> <sectors>")
	}
	sectors, err := strconv.Atoi(os.Args[4])
	if err != nil {
		return err
	}

	in, err := os.Open(os.Args[2])
	if err != nil {
		return err
	}
	defer in.Close()

	dev, err := tinyfs.OpenFileBlockDevice(os.Args[3], uint32(sectors))
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := tinyfs.LoadImage(dev, in, tinyfs.CompressionZstd); err != nil {
		return err
	}
	return dev.Sync()
}

func openExisting(path string) (*tinyfs.FileSystem, *tinyfs.FileBlockDevice, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	sectors := uint32(info.Size() / tinyfs.SectorSize)

	dev, err := tinyfs.OpenFileBlockDevice(path, sectors)
	if err != nil {
		return nil, nil, err
	}

	fsys, err := tinyfs.New(dev)
	if err != nil {
		dev.Close()
		return nil, nil, err
	}
	return fsys, dev, nil
}
