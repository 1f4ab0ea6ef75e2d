package mkboot

import (
	"encoding/binary"
	"testing"
)

func TestHeaderBinarySize(t *testing.T) {
	if size := binary.Size(&Header{}); size != HeaderSize {
		t.Errorf("header serializes to %d bytes, expected %d", size, HeaderSize)
	}
}

func TestResetVector(t *testing.T) {
	// b 0x30 from offset 0, ARM encoding
	if resetVector != 0xEA00000A {
		t.Errorf("reset vector is 0x%08X, expected 0xEA00000A", resetVector)
	}
}

func TestMagicBytes(t *testing.T) {
	if string(MagicBytes[:]) != Magic {
		t.Errorf("magic bytes spell %q, expected %q", MagicBytes[:], Magic)
	}
	if len(Magic) != MagicSize {
		t.Errorf("magic is %d bytes, expected %d", len(Magic), MagicSize)
	}
}

func TestHeaderString(t *testing.T) {
	hdr := Header{
		Branch:   0xEA00000A,
		Checksum: 0xC7ADF7F2,
		Length:   512,
		HeadSize: 32,
	}

	want := "eGON.BT0 length=512 header=32 branch=0xEA00000A checksum=0xC7ADF7F2"
	if got := hdr.String(); got != want {
		t.Errorf("header renders as %q, expected %q", got, want)
	}
}
