package pipeline

import "encoding/binary"

// zlibHeader builds the 2-byte CMF/FLG header for a zlib stream wrapping a
// raw deflate body produced externally (so compress/zlib itself, which only
// offers a whole-stream encoder, can't generate it). FDICT is always 0: per
// The zlib wrapper advertises no preset dictionary even though the
// per-chunk raw deflate streams it wraps used one internally. FLEVEL is
// set from level the same way zlib's own deflateInit2 derives it; it's
// informational and decoders don't rely on it to inflate correctly.
func zlibHeader(level int) [2]byte {
	const cmf = byte(0x78) // deflate, 32K window
	var flevel byte
	switch {
	case level <= 1:
		flevel = 0
	case level < 6:
		flevel = 1
	case level == 6:
		flevel = 2
	default:
		flevel = 3
	}
	flg := flevel << 6
	check := uint16(cmf)<<8 | uint16(flg)
	if rem := check % 31; rem != 0 {
		flg += byte(31 - rem)
	}
	return [2]byte{cmf, flg}
}

// adlerTrailer encodes the zlib stream's trailing big-endian Adler-32.
func adlerTrailer(adler uint32) [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], adler)
	return b
}
