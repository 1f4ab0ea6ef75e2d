package mkboot

import "fmt"

// eGON.BT0 format constants
// Header layout: https://linux-sunxi.org/Boot0
const (
	Magic     = "eGON.BT0"
	MagicSize = 8

	// HeaderSize is the size of the public eGON.BT0 header.
	HeaderSize = 32

	// CodeStart is the offset of the program code within the image. The
	// BROM writes boot device info directly after the header, so code
	// starts at 0x30 rather than at the end of the 32-byte header.
	CodeStart = 0x30

	// ChecksumSeed is the value the checksum field holds while the image
	// sum is computed. The BROM seeds its own verification the same way.
	ChecksumSeed = 0x5F0A6C39
)

// MagicBytes is the image header magic number, in byte array form
var MagicBytes = [...]byte{'e', 'G', 'O', 'N', '.', 'B', 'T', '0'}

// Placement constants
const (
	// SDBlockSize is the block granularity the BROM loads from SD cards
	// and SPI flash. Images are padded to a whole number of blocks.
	SDBlockSize = 512

	// NANDPageSize is the larger granularity used when booting from NAND.
	NANDPageSize = 8192

	// SDCardOffset is where the BROM expects the image on an SD card.
	// Full card dumps carry the header there instead of at offset 0.
	SDCardOffset = 8192
)

// resetVector is the ARM instruction at offset 0: "b" to CodeStart,
// encoded relative to PC+8. Evaluates to 0xEA00000A.
const resetVector = 0xEA000000 | (CodeStart/4-2)&0x00FFFFFF

// checksumOffset is the byte offset of the checksum field within the header.
const checksumOffset = 12

// Header directly correlates to the eGON.BT0 boot header.
type Header struct {
	// ARM branch instruction jumping over the header to the code
	Branch uint32

	// Header magic: "eGON.BT0"
	Magic [MagicSize]byte

	// Sum of all little-endian 32-bit words in the image, computed with
	// this field holding ChecksumSeed
	Checksum uint32

	// Total image length in bytes, including header and all padding
	Length uint32

	// Size of the public header, always HeaderSize
	HeadSize uint32

	// Reserved for the BROM, left zero
	Reserved [8]byte
}

func (h *Header) String() string {
	return fmt.Sprintf("eGON.BT0 length=%d header=%d branch=0x%08X checksum=0x%08X",
		h.Length, h.HeadSize, h.Branch, h.Checksum)
}

// Image holds an unpacked boot image: the parsed header, the offset at
// which the header was found, and the stored image bytes.
type Image struct {
	Header Header
	Offset int64
	Data   []byte
}
