package tinyfs

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression selects the codec DumpImage/LoadImage use, generalizing
// squashfs/comp_zstd.go and comp_xz.go's per-algorithm registration down
// to the two codecs this repository actually needs, called directly
// rather than through a pluggable per-sector registry (tinyfs has one
// on-disk format, not squashfs's menu of compressors).
type Compression int

const (
	// CompressionZstd uses github.com/klauspost/compress/zstd.
	CompressionZstd Compression = iota
	// CompressionXZ uses github.com/ulikunitz/xz.
	CompressionXZ
)

// DumpImage streams every sector of dev, compressed, to w. Used by
// cmd/tinyfsctl's "dump" verb and exercised by snapshot_test.go.
func DumpImage(dev BlockDevice, w io.Writer, comp Compression) error {
	cw, closeFn, err := newCompressWriter(w, comp)
	if err != nil {
		return err
	}

	var buf [SectorSize]byte
	for s := uint32(0); s < dev.SectorCount(); s++ {
		if err := dev.ReadSector(s, buf[:]); err != nil {
			closeFn()
			return fmt.Errorf("tinyfs: dump sector %d: %w", s, err)
		}
		if _, err := cw.Write(buf[:]); err != nil {
			closeFn()
			return fmt.Errorf("tinyfs: dump sector %d: %w", s, err)
		}
	}
	return closeFn()
}

// LoadImage reads a compressed image produced by DumpImage from r and
// writes it sector by sector into dev.
func LoadImage(dev BlockDevice, r io.Reader, comp Compression) error {
	cr, err := newDecompressReader(r, comp)
	if err != nil {
		return err
	}

	var buf [SectorSize]byte
	for s := uint32(0); s < dev.SectorCount(); s++ {
		if _, err := io.ReadFull(cr, buf[:]); err != nil {
			return fmt.Errorf("tinyfs: restore sector %d: %w", s, err)
		}
		if err := dev.WriteSector(s, buf[:]); err != nil {
			return fmt.Errorf("tinyfs: restore sector %d: %w", s, err)
		}
	}
	return nil
}

func newCompressWriter(w io.Writer, comp Compression) (io.Writer, func() error, error) {
	switch comp {
	case CompressionXZ:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, nil, err
		}
		return xw, xw.Close, nil
	default:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, err
		}
		return zw, zw.Close, nil
	}
}

func newDecompressReader(r io.Reader, comp Compression) (io.Reader, error) {
	switch comp {
	case CompressionXZ:
		return xz.NewReader(r)
	default:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	}
}
