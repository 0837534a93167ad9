package pipeline

import "github.com/parapng/parapng/internal/filter"

// dictWindowSize is the maximum preset dictionary deflate will accept.
const dictWindowSize = 32 * 1024

// filterOutput is the result of filtering one chunk's raw rows.
type filterOutput struct {
	// filtered holds RowCount * (stride+1) bytes: one leading filter-type
	// byte plus the filtered row for every row in the chunk.
	filtered []byte
	// trailingWindow is a copy of the last <=32KiB of filtered, handed to
	// the next chunk's deflate job as its preset dictionary.
	trailingWindow []byte
}

// runFilterChunk filters every row of one chunk. prevLastRawRow is the raw
// (unfiltered) last scanline of the preceding chunk, used as the `b`/`c`
// predictor context for this chunk's first row; it is nil only for the very
// first chunk of the image, where `b` and `c` are defined as zero.
//
// It would be tempting to use the predecessor's last *filtered* scanline
// here, but PNG's own filter reconstruction always walks forward from raw
// (unfiltered) bytes — a decoder has no way to recover a predecessor
// chunk's filtered row without re-deriving it from the raw one first.
// Using the raw row here is what keeps the encoder's output decodable by a
// standard PNG reader.
func runFilterChunk(cfg Config, rawRows []byte, rowCount int, prevLastRawRow []byte) filterOutput {
	stride := cfg.Stride
	filtered := make([]byte, rowCount*(stride+1))

	var sel *filter.Adaptive
	if cfg.FilterMode.Adaptive {
		sel = filter.NewAdaptive(cfg.FilterBPP, stride)
	}

	prevRaw := prevLastRawRow
	if prevRaw == nil {
		prevRaw = make([]byte, stride)
	}
	for r := 0; r < rowCount; r++ {
		src := rawRows[r*stride : (r+1)*stride]
		dst := filtered[r*(stride+1) : (r+1)*(stride+1)]
		if cfg.FilterMode.Adaptive {
			sel.Select(dst, src, prevRaw)
		} else {
			filter.SelectFixed(cfg.FilterMode.Fixed, dst, src, prevRaw, cfg.FilterBPP)
		}
		prevRaw = src
	}

	window := filtered
	if len(window) > dictWindowSize {
		window = window[len(window)-dictWindowSize:]
	}
	trailing := make([]byte, len(window))
	copy(trailing, window)

	return filterOutput{filtered: filtered, trailingWindow: trailing}
}
