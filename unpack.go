package mkboot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// headerOffsets lists where the BROM looks for an eGON.BT0 header: the
// start of the medium for SPI flash and bare images, SDCardOffset within
// SD card dumps.
var headerOffsets = []int64{0, SDCardOffset}

// UnpackImage locates and reads a boot image. The input may be a bare
// image or a larger dump; data beyond the recorded image length is
// ignored.
func UnpackImage(fin io.ReadSeeker) (*Image, error) {
	var offset int64 = -1
	hdrBuf := make([]byte, HeaderSize)

	for _, off := range headerOffsets {
		_, err := fin.Seek(off, io.SeekStart)
		if err != nil {
			return nil, eMsg(err, "seeking in input")
		}

		_, err = io.ReadFull(fin, hdrBuf)
		if err != nil {
			if off == 0 {
				return nil, eMsg(err, "reading header from input")
			}
			break
		}

		if bytes.Equal(hdrBuf[4:4+MagicSize], MagicBytes[:]) {
			offset = off
			break
		}
	}

	if offset < 0 {
		return nil, eMsg(errors.New("Perhaps this is not an eGON.BT0 image?"), "finding eGON.BT0 header")
	}

	var hdr Header
	// hdrBuf holds exactly HeaderSize bytes, Read cannot fail
	binary.Read(bytes.NewReader(hdrBuf), binary.LittleEndian, &hdr)

	if hdr.HeadSize != HeaderSize {
		return nil, eMsg(fmt.Errorf("unsupported header size %d", hdr.HeadSize), "checking header fields")
	}
	if hdr.Length < SDBlockSize || hdr.Length%SDBlockSize != 0 {
		return nil, eMsg(fmt.Errorf("implausible image length %d", hdr.Length), "checking header fields")
	}

	if _, err := fin.Seek(offset, io.SeekStart); err != nil {
		return nil, eMsg(err, "seeking to read image")
	}

	data := make([]byte, hdr.Length)
	if _, err := io.ReadFull(fin, data); err != nil {
		return nil, eMsg(err, "reading image contents")
	}

	return &Image{
		Header: hdr,
		Offset: offset,
		Data:   data,
	}, nil
}

// UnpackImageBytes unpacks an image from the given byte slice.
func UnpackImageBytes(data []byte) (*Image, error) {
	return UnpackImage(bytes.NewReader(data))
}

// VerifyChecksum recomputes the image checksum and compares it with the
// header field.
func (img *Image) VerifyChecksum() error {
	got := Checksum(img.Data)
	want := img.Header.Checksum
	if got != want {
		err := fmt.Errorf("computed 0x%08X but the header records 0x%08X", got, want)
		return eMsg(err, "verifying image checksum")
	}

	return nil
}

// Code returns the program code region of the image. The header records
// only the padded total length, so any tail padding added when the image
// was built is included.
func (img *Image) Code() []byte {
	return img.Data[CodeStart:]
}
