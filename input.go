package mkboot

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"sort"

	gzip "github.com/klauspost/pgzip"
	"github.com/marcinbor85/gohex"
)

// Input formats
const (
	FormatRaw = iota
	FormatELF
	FormatHex
	FormatGzip
)

const elfMagic = "\x7fELF"

// DetectFormat sniffs the input format from its leading bytes. The check
// is heuristic: raw ARM code can in principle begin with any byte
// sequence, so callers that know their input is raw should skip
// detection altogether.
func DetectFormat(data []byte) int {
	switch {
	case len(data) >= 4 && string(data[:4]) == elfMagic:
		return FormatELF
	case len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b:
		return FormatGzip
	case looksLikeHex(data):
		return FormatHex
	default:
		return FormatRaw
	}
}

// looksLikeHex reports whether data starts with a well-formed Intel HEX
// record: a colon followed by an even run of hex digits long enough for
// the count, address, type and checksum fields.
func looksLikeHex(data []byte) bool {
	if len(data) == 0 || data[0] != ':' {
		return false
	}

	digits := 0
	for _, c := range data[1:] {
		if c == '\r' || c == '\n' {
			break
		}
		if !isHexDigit(c) {
			return false
		}
		digits++
	}

	return digits >= 10 && digits%2 == 0
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// LoadCode turns input file contents into the flat binary to wrap. ELF
// executables are flattened the way objcopy -O binary flattens them,
// Intel HEX records are placed from their lowest address with gaps
// filled by 0xFF, gzip input is decompressed and used as-is, and
// anything else passes through verbatim. The returned description names
// what was detected.
func LoadCode(data []byte) (code []byte, desc string, err error) {
	switch DetectFormat(data) {
	case FormatELF:
		return extractELF(data)
	case FormatHex:
		return extractHex(data)
	case FormatGzip:
		code, err = extractGzip(data)
		return code, "gzip compressed binary", err
	default:
		return data, "raw binary", nil
	}
}

// extractELF flattens the loadable segments of an ELF executable: the
// dump starts at the load address of the lowest allocated section, and
// the segments must be contiguous.
func extractELF(data []byte) ([]byte, string, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, "", eMsg(err, "parsing ELF input")
	}

	startAddr := ^uint64(0)
	for _, section := range f.Sections {
		if section.Type != elf.SHT_PROGBITS || section.Flags&elf.SHF_ALLOC == 0 {
			continue
		}
		if section.Addr < startAddr {
			startAddr = section.Addr
		}
	}

	var progs []*elf.Prog
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Filesz == 0 {
			continue
		}
		progs = append(progs, prog)
	}
	if len(progs) == 0 {
		return nil, "", eMsg(errors.New("ELF input has no loadable segments"), "flattening ELF input")
	}

	sort.Slice(progs, func(i, j int) bool {
		return progs[i].Paddr < progs[j].Paddr
	})

	var flat []byte
	for _, prog := range progs {
		if prog.Paddr != progs[0].Paddr+uint64(len(flat)) {
			return nil, "", eMsg(errors.New("ELF load segments are not contiguous"), "flattening ELF input")
		}

		segment, err := io.ReadAll(prog.Open())
		if err != nil {
			return nil, "", eMsg(err, "reading ELF segment")
		}
		flat = append(flat, segment...)
	}

	loadAddr := progs[0].Paddr
	if startAddr != ^uint64(0) && startAddr > loadAddr {
		// Segment data below the first section is loader filler, not
		// program code; drop it the way objcopy does.
		delta := startAddr - loadAddr
		if delta >= uint64(len(flat)) {
			return nil, "", eMsg(errors.New("ELF sections lie outside the loadable segments"), "flattening ELF input")
		}
		flat = flat[delta:]
		loadAddr = startAddr
	}

	return flat, fmt.Sprintf("ELF, load address 0x%X", loadAddr), nil
}

// extractHex flattens Intel HEX records into a single binary spanning
// from the lowest data address, with gaps filled by 0xFF to match
// erased flash.
func extractHex(data []byte) ([]byte, string, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(bytes.NewReader(data)); err != nil {
		return nil, "", eMsg(err, "parsing Intel HEX input")
	}

	segments := mem.GetDataSegments()
	if len(segments) == 0 {
		return nil, "", eMsg(errors.New("Intel HEX input has no data records"), "flattening Intel HEX input")
	}

	base := segments[0].Address
	end := base
	for _, segment := range segments {
		if segment.Address < base {
			base = segment.Address
		}
		if top := segment.Address + uint32(len(segment.Data)); top > end {
			end = top
		}
	}

	flat := bytes.Repeat([]byte{0xFF}, int(end-base))
	for _, segment := range segments {
		copy(flat[segment.Address-base:], segment.Data)
	}

	return flat, fmt.Sprintf("Intel HEX, base address 0x%X", base), nil
}

// extractGzip decompresses gzip input.
func extractGzip(data []byte) ([]byte, error) {
	gReader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, eMsg(err, "preparing to decompress input")
	}

	code, err := io.ReadAll(gReader)
	if err != nil {
		return nil, eMsg(err, "decompressing input")
	}

	err = gReader.Close()
	if err != nil {
		return nil, eMsg(err, "cleaning up input decompression")
	}

	return code, nil
}
