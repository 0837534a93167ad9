package pngchunk

import "encoding/binary"

// WriteIHDR writes the 13-byte IHDR payload: width, height, bit depth,
// color type, and the three method bytes the PNG spec currently pins to
// zero (compression=deflate, filter=adaptive-per-scanline, interlace=none).
func (cw *Writer) WriteIHDR(width, height uint32, bitDepth, colorType uint8) error {
	var data [13]byte
	binary.BigEndian.PutUint32(data[0:4], width)
	binary.BigEndian.PutUint32(data[4:8], height)
	data[8] = bitDepth
	data[9] = colorType
	data[10] = 0 // compression method: deflate
	data[11] = 0 // filter method: adaptive
	data[12] = 0 // interlace method: none
	return cw.WriteChunk("IHDR", data[:])
}

// WriteIEND writes the zero-length terminating chunk.
func (cw *Writer) WriteIEND() error {
	return cw.WriteChunk("IEND", nil)
}
