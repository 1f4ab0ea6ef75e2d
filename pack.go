package mkboot

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash"
)

// BuildImage wraps code in an eGON.BT0 header and pads the result to a
// whole number of SD/SPI blocks. Any byte sequence is accepted as code,
// including an empty one.
func BuildImage(code []byte) []byte {
	return buildImage(code, SDBlockSize)
}

// BuildImageAligned is BuildImage with a caller-chosen tail alignment,
// e.g. NANDPageSize when booting from NAND. The alignment must be a
// power-of-two multiple of SDBlockSize.
func BuildImageAligned(code []byte, align int) ([]byte, error) {
	if align < SDBlockSize || align&(align-1) != 0 {
		err := fmt.Errorf("alignment %d is not a power-of-two multiple of %d", align, SDBlockSize)
		return nil, eMsg(err, "preparing the image layout")
	}

	return buildImage(code, align), nil
}

// buildImage assembles header, gap padding, code and tail padding, then
// patches the checksum into the finished buffer.
func buildImage(code []byte, align int) []byte {
	totalSize := CodeStart + len(code)
	alignedSize := (totalSize + align - 1) &^ (align - 1)

	hdr := Header{
		Branch:   resetVector,
		Magic:    MagicBytes,
		Checksum: ChecksumSeed,
		Length:   uint32(alignedSize),
		HeadSize: HeaderSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, alignedSize))
	// writes to a bytes.Buffer cannot fail
	binary.Write(buf, binary.LittleEndian, &hdr)
	buf.Write(bytes.Repeat([]byte{0xFF}, CodeStart-HeaderSize))
	buf.Write(code)
	buf.Write(make([]byte, alignedSize-totalSize))

	image := buf.Bytes()
	if len(image) != alignedSize {
		panic(fmt.Sprintf("assembled image is %d bytes, expected %d", len(image), alignedSize))
	}

	binary.LittleEndian.PutUint32(image[checksumOffset:], Checksum(image))

	return image
}

// Checksum computes the eGON image checksum: the sum of every
// little-endian 32-bit word, wrapping modulo 2^32, with the header's
// checksum field taken as ChecksumSeed. Computing it over a finished
// image therefore reproduces the stored value.
func Checksum(image []byte) uint32 {
	var sum uint32
	for i := 0; i+4 <= len(image); i += 4 {
		word := binary.LittleEndian.Uint32(image[i:])
		if i == checksumOffset {
			word = ChecksumSeed
		}
		sum += word
	}

	return sum
}

// Fingerprint computes an xxhash64 digest of the image contents. Builds
// are deterministic, so equal fingerprints mean byte-identical images.
func Fingerprint(image []byte) uint64 {
	return xxhash.Sum64(image)
}

// Fingerprint computes the digest of the stored image bytes.
func (img *Image) Fingerprint() uint64 {
	return Fingerprint(img.Data)
}
