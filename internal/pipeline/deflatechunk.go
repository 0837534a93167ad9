package pipeline

import (
	"fmt"
	"hash/adler32"

	"github.com/parapng/parapng/internal/deflatewrap"
)

// codedOutput is the result of deflating one chunk's filtered bytes: the
// result of deflating one filtered chunk.
type codedOutput struct {
	bytes  []byte
	adler  uint32
	length int
	bitPos int
}

// runCodedChunk raw-deflates filtered using dict (the predecessor chunk's
// trailing filtered window, or nil for the first chunk) and finalizes with
// a byte-aligned, non-final sync flush. Every chunk is flushed this way,
// including the image's last one; the terminating final empty block is
// appended once, separately, by the Dispatcher at Finish — see
// Dispatcher.appendFinalTerminator.
func runCodedChunk(cfg Config, filtered []byte, dict []byte) (codedOutput, error) {
	w, err := deflatewrap.New(cfg.CompressionLevel, cfg.Strategy, dict)
	if err != nil {
		return codedOutput{}, fmt.Errorf("pipeline: coded chunk: %w", err)
	}
	if _, err := w.Write(filtered); err != nil {
		return codedOutput{}, fmt.Errorf("pipeline: coded chunk: %w", err)
	}
	if err := w.FlushBlock(); err != nil {
		return codedOutput{}, fmt.Errorf("pipeline: coded chunk: %w", err)
	}
	return codedOutput{
		bytes:  w.Bytes(),
		adler:  adler32.Checksum(filtered),
		length: len(filtered),
		bitPos: w.BitPos(),
	}, nil
}

// newTerminatorWriter produces a zero-length, final (BFINAL=1) raw deflate
// block. It needs no dictionary: an empty final block carries no literal
// data, so there's nothing for a dictionary to back-reference.
func newTerminatorWriter(cfg Config) ([]byte, error) {
	w, err := deflatewrap.New(cfg.CompressionLevel, cfg.Strategy, nil)
	if err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
