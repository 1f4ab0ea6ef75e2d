package mkboot

import (
	"bytes"
	"encoding/binary"
	"testing"

	gzip "github.com/klauspost/pgzip"
)

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		name   string
		data   []byte
		format int
	}{
		{"elf", []byte("\x7fELF\x01\x01\x01\x00"), FormatELF},
		{"gzip", []byte{0x1f, 0x8b, 0x08, 0x00}, FormatGzip},
		{"hex eof record", []byte(":00000001FF"), FormatHex},
		{"hex crlf", []byte(":020000040000FA\r\n:00000001FF\r\n"), FormatHex},
		{"empty", []byte{}, FormatRaw},
		{"arm vector", []byte{0x0A, 0x00, 0x00, 0xEA}, FormatRaw},
		{"colon then binary", []byte{':', 0x10, 0x9F, 0xE5}, FormatRaw},
		{"colon line too short", []byte(":0000"), FormatRaw},
		{"odd digit count", []byte(":00000001FFA"), FormatRaw},
	}

	for _, c := range cases {
		if got := DetectFormat(c.data); got != c.format {
			t.Errorf("%s: detected format %d, expected %d", c.name, got, c.format)
		}
	}
}

func TestLoadRaw(t *testing.T) {
	data := []byte{0x0A, 0x00, 0x00, 0xEA, 0x00, 0x10, 0x9F, 0xE5}

	code, desc, err := LoadCode(data)
	if err != nil {
		t.Fatalf("loading raw input: %v", err)
	}
	if desc != "raw binary" {
		t.Errorf("described as %q, expected raw binary", desc)
	}
	if !bytes.Equal(code, data) {
		t.Error("raw input did not pass through verbatim")
	}
}

func TestLoadGzip(t *testing.T) {
	payload := []byte("boot code travelling compressed")

	var buf bytes.Buffer
	gWriter, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		t.Fatalf("preparing compressor: %v", err)
	}
	if _, err = gWriter.Write(payload); err != nil {
		t.Fatalf("compressing payload: %v", err)
	}
	if err = gWriter.Close(); err != nil {
		t.Fatalf("finishing compression: %v", err)
	}

	code, desc, err := LoadCode(buf.Bytes())
	if err != nil {
		t.Fatalf("loading gzip input: %v", err)
	}
	if desc != "gzip compressed binary" {
		t.Errorf("described as %q, expected gzip compressed binary", desc)
	}
	if !bytes.Equal(code, payload) {
		t.Error("decompressed code differs from the original payload")
	}
}

func TestLoadGzipCorrupt(t *testing.T) {
	if _, _, err := LoadCode([]byte{0x1f, 0x8b, 0xFF, 0x00}); err == nil {
		t.Error("corrupt gzip input was accepted")
	}
}

func TestLoadHex(t *testing.T) {
	records := ":04000000DEADBEEFC4\n" +
		":020008001122C3\n" +
		":00000001FF\n"

	code, desc, err := LoadCode([]byte(records))
	if err != nil {
		t.Fatalf("loading Intel HEX input: %v", err)
	}
	if desc != "Intel HEX, base address 0x0" {
		t.Errorf("described as %q, expected base address 0x0", desc)
	}

	expected := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0xFF, 0xFF, 0xFF, 0xFF, 0x11, 0x22}
	if !bytes.Equal(code, expected) {
		t.Errorf("flattened to % X, expected % X", code, expected)
	}
}

func TestLoadHexHighBase(t *testing.T) {
	records := ":02200000AABB79\n:00000001FF\n"

	code, desc, err := LoadCode([]byte(records))
	if err != nil {
		t.Fatalf("loading Intel HEX input: %v", err)
	}
	if desc != "Intel HEX, base address 0x2000" {
		t.Errorf("described as %q, expected base address 0x2000", desc)
	}
	if !bytes.Equal(code, []byte{0xAA, 0xBB}) {
		t.Errorf("flattened to % X, expected AA BB", code)
	}
}

func TestLoadHexNoData(t *testing.T) {
	if _, _, err := LoadCode([]byte(":00000001FF\n")); err == nil {
		t.Error("Intel HEX input without data records was accepted")
	}
}

func TestLoadHexBadRecord(t *testing.T) {
	if _, _, err := LoadCode([]byte(":04000000DEADBEEF00\n:00000001FF\n")); err == nil {
		t.Error("Intel HEX record with a bad checksum was accepted")
	}
}

type elfSegment struct {
	paddr uint32
	data  []byte
}

// makeELF assembles a minimal 32-bit ARM executable around the given
// loadable segments, with no section table.
func makeELF(segments ...elfSegment) []byte {
	const (
		ehsize    = 52
		phentsize = 32
	)

	var buf bytes.Buffer
	buf.WriteString(elfMagic)
	buf.WriteByte(1) // 32-bit
	buf.WriteByte(1) // little endian
	buf.WriteByte(1) // version
	buf.Write(make([]byte, 9))

	w := func(v any) {
		// writes to a bytes.Buffer cannot fail
		binary.Write(&buf, binary.LittleEndian, v)
	}

	w(uint16(2))  // ET_EXEC
	w(uint16(40)) // EM_ARM
	w(uint32(1))
	w(uint32(0))      // entry point
	w(uint32(ehsize)) // program headers follow immediately
	w(uint32(0))
	w(uint32(0))
	w(uint16(ehsize))
	w(uint16(phentsize))
	w(uint16(len(segments)))
	w(uint16(40))
	w(uint16(0))
	w(uint16(0))

	offset := uint32(ehsize + phentsize*len(segments))
	for _, segment := range segments {
		w(uint32(1)) // PT_LOAD
		w(offset)
		w(segment.paddr)
		w(segment.paddr)
		w(uint32(len(segment.data)))
		w(uint32(len(segment.data)))
		w(uint32(5)) // R+X
		w(uint32(4))
		offset += uint32(len(segment.data))
	}

	for _, segment := range segments {
		buf.Write(segment.data)
	}

	return buf.Bytes()
}

func TestLoadELF(t *testing.T) {
	payload := []byte{0x0A, 0x00, 0x00, 0xEA, 0x78, 0x56, 0x34, 0x12}
	data := makeELF(elfSegment{paddr: 0x10000, data: payload})

	code, desc, err := LoadCode(data)
	if err != nil {
		t.Fatalf("loading ELF input: %v", err)
	}
	if desc != "ELF, load address 0x10000" {
		t.Errorf("described as %q, expected load address 0x10000", desc)
	}
	if !bytes.Equal(code, payload) {
		t.Errorf("flattened to % X, expected % X", code, payload)
	}
}

func TestLoadELFMultipleSegments(t *testing.T) {
	text := []byte{0x01, 0x02, 0x03, 0x04}
	rodata := []byte{0x05, 0x06, 0x07, 0x08}
	data := makeELF(
		elfSegment{paddr: 0x0, data: text},
		elfSegment{paddr: 0x4, data: rodata},
	)

	code, _, err := LoadCode(data)
	if err != nil {
		t.Fatalf("loading ELF input: %v", err)
	}
	if !bytes.Equal(code, append(append([]byte{}, text...), rodata...)) {
		t.Errorf("flattened to % X, expected the segments back to back", code)
	}
}

func TestLoadELFNonContiguous(t *testing.T) {
	data := makeELF(
		elfSegment{paddr: 0x0, data: []byte{0x01, 0x02}},
		elfSegment{paddr: 0x100, data: []byte{0x03, 0x04}},
	)

	if _, _, err := LoadCode(data); err == nil {
		t.Error("ELF with a gap between load segments was accepted")
	}
}

func TestLoadELFNoSegments(t *testing.T) {
	if _, _, err := LoadCode(makeELF()); err == nil {
		t.Error("ELF without loadable segments was accepted")
	}
}
