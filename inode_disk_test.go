package tinyfs

import "testing"

func TestInodeDiskEncodeDecodeRoundTrip(t *testing.T) {
	id := &InodeDisk{
		Indirect:       7,
		DoubleIndirect: 9,
		Length:         123456,
		Magic:          inodeMagic,
		Dir:            true,
	}
	id.Direct[0] = 2
	id.Direct[99] = 55

	raw := id.encode()
	if len(raw) != SectorSize {
		t.Fatalf("encode() length = %d, want %d", len(raw), SectorSize)
	}

	got, err := decodeInodeDisk(raw[:])
	if err != nil {
		t.Fatalf("decodeInodeDisk: %v", err)
	}
	if got.Indirect != id.Indirect || got.DoubleIndirect != id.DoubleIndirect ||
		got.Length != id.Length || got.Dir != id.Dir ||
		got.Direct[0] != id.Direct[0] || got.Direct[99] != id.Direct[99] {
		t.Fatalf("decode(encode(id)) = %+v, want fields matching %+v", got, id)
	}
}

func TestInodeDiskDecodeBadMagic(t *testing.T) {
	id := &InodeDisk{Magic: 0xdeadbeef}
	raw := id.encode()

	if _, err := decodeInodeDisk(raw[:]); err != ErrBadMagic {
		t.Fatalf("decodeInodeDisk with bad magic = %v, want ErrBadMagic", err)
	}
}
