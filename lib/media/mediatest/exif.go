// Package mediatest builds image fixtures for tests.
package mediatest

import (
	"bytes"
	"encoding/binary"
	"slices"

	"github.com/samber/lo"
)

// EXIF tag IDs.
const (
	TagArtist    uint16 = 0x013B
	TagCopyright uint16 = 0x8298
)

const typeASCII = 2

// WithEXIF returns a copy of a JPEG with an APP1 segment holding the given
// ASCII tags in IFD0, inserted right after the SOI marker.
func WithEXIF(jpeg []byte, tags map[uint16]string) []byte {
	ids := lo.Keys(tags)
	slices.Sort(ids)

	le := binary.LittleEndian
	dataOffset := uint32(8 + 2 + 12*len(ids) + 4)

	var ifd, data bytes.Buffer
	binary.Write(&ifd, le, uint16(len(ids)))
	for _, id := range ids {
		value := append([]byte(tags[id]), 0)
		binary.Write(&ifd, le, id)
		binary.Write(&ifd, le, uint16(typeASCII))
		binary.Write(&ifd, le, uint32(len(value)))
		if len(value) <= 4 {
			inline := make([]byte, 4)
			copy(inline, value)
			ifd.Write(inline)
			continue
		}
		binary.Write(&ifd, le, dataOffset+uint32(data.Len()))
		data.Write(value)
		if data.Len()%2 == 1 {
			data.WriteByte(0)
		}
	}
	// No next IFD
	binary.Write(&ifd, le, uint32(0))

	var tiff bytes.Buffer
	tiff.WriteString("II")
	binary.Write(&tiff, le, uint16(42))
	binary.Write(&tiff, le, uint32(8))
	tiff.Write(ifd.Bytes())
	tiff.Write(data.Bytes())

	var app1 bytes.Buffer
	app1.Write([]byte{0xFF, 0xE1})
	binary.Write(&app1, binary.BigEndian, uint16(2+6+tiff.Len()))
	app1.WriteString("Exif\x00\x00")
	app1.Write(tiff.Bytes())

	out := make([]byte, 0, len(jpeg)+app1.Len())
	out = append(out, jpeg[:2]...)
	out = append(out, app1.Bytes()...)
	return append(out, jpeg[2:]...)
}
