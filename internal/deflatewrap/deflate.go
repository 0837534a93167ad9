// Package deflatewrap is a thin facade over klauspost/compress/flate
// exposing exactly the capabilities the chunked PNG pipeline needs: raw
// (headerless) deflate output, a preset dictionary, a byte-aligned flush
// that leaves the stream open, and a final close that emits the last block.
package deflatewrap

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/flate"
)

// Strategy selects among the handful of strategies Go's deflate
// implementation actually exposes. See resolveLevel for how each maps onto
// a flate compression level.
type Strategy uint8

const (
	StrategyDefault Strategy = iota
	StrategyFiltered
	StrategyHuffman
	StrategyRLE
	StrategyFixed
)

// resolveLevel maps a (level, strategy) pair onto the flate level klauspost
// understands. Filtered/Default/Fixed pass the configured level through
// unchanged; Huffman maps onto flate's HuffmanOnly pseudo-level (the direct
// analog of zlib's Z_HUFFMAN_ONLY); RLE has no equivalent in klauspost's
// flate, so it's approximated with BestSpeed, which is the closest
// available "don't try hard to find long matches" behavior.
func resolveLevel(level int, strategy Strategy) int {
	switch strategy {
	case StrategyHuffman:
		return flate.HuffmanOnly
	case StrategyRLE:
		return flate.BestSpeed
	default:
		return level
	}
}

// Writer accumulates raw deflate output for one chunk. A Writer is used for
// exactly one chunk's worth of input and then finalized with either
// FlushBlock (non-final, byte-aligned) or Close (final block).
type Writer struct {
	buf bytes.Buffer
	fw  *flate.Writer
}

// New starts a fresh raw deflate stream at the given zlib-style level
// (1, 6, or 9; klauspost/compress/flate accepts any valid level the same
// way stdlib compress/flate does) and strategy, optionally seeded with up
// to 32 KiB of preset dictionary bytes.
func New(level int, strategy Strategy, dict []byte) (*Writer, error) {
	w := &Writer{}
	resolved := resolveLevel(level, strategy)

	var fw *flate.Writer
	var err error
	if len(dict) > 0 {
		fw, err = flate.NewWriterDict(&w.buf, resolved, dict)
	} else {
		fw, err = flate.NewWriter(&w.buf, resolved)
	}
	if err != nil {
		return nil, fmt.Errorf("deflatewrap: %w", err)
	}
	w.fw = fw
	return w, nil
}

// Write compresses p into the raw deflate body.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.fw.Write(p)
	if err != nil {
		return n, fmt.Errorf("deflatewrap: write: %w", err)
	}
	return n, nil
}

// FlushBlock emits a non-final, byte-aligned sync flush: all pending bytes
// are emitted and the stream is left open, so further chunks' deflate
// output can be concatenated onto this one without a bit-level splice.
func (w *Writer) FlushBlock() error {
	if err := w.fw.Flush(); err != nil {
		return fmt.Errorf("deflatewrap: flush: %w", err)
	}
	return nil
}

// Close emits the final block (BFINAL=1) and releases the flate.Writer.
// The pipeline never closes a chunk's Writer; it uses Close only on an
// empty Writer to produce the stream's terminating final block.
func (w *Writer) Close() error {
	if err := w.fw.Close(); err != nil {
		return fmt.Errorf("deflatewrap: close: %w", err)
	}
	return nil
}

// Bytes returns the accumulated raw deflate output so far.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of raw deflate bytes emitted so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// BitPos reports the bit offset within the final output byte. Every chunk
// boundary produced by FlushBlock or Close is byte-aligned by construction,
// so this is always 0 under the flush strategy this package implements; the
// method exists so callers can carry a bit-position field without baking
// the byte-alignment assumption into their own logic.
func (w *Writer) BitPos() int {
	return 0
}
