// Package pipeline implements the row-partitioning dispatcher that drives
// the parallel filter-and-deflate chunk pipeline: it cuts an image's raw
// rows into row-aligned chunks, submits each chunk's filter and deflate
// jobs to a worker pool honoring the cross-chunk dictionary and
// last-scanline dependencies, and reassembles the results in strict
// sequence order into a single zlib stream.
package pipeline

import (
	"go.uber.org/zap"

	"github.com/parapng/parapng/internal/deflatewrap"
	"github.com/parapng/parapng/internal/filter"
	"github.com/parapng/parapng/internal/workerpool"
)

// FilterModeConfig mirrors the root package's FilterMode without importing
// it, avoiding an import cycle between this package and the façade that
// constructs a Dispatcher.
type FilterModeConfig struct {
	Adaptive bool
	Fixed    filter.Type
}

// Config carries everything a Dispatcher needs from Header and Options,
// translated into this package's vocabulary by the root package.
type Config struct {
	Stride           int
	FilterBPP        int
	ChunkSize        int
	CompressionLevel int
	FilterMode       FilterModeConfig
	Strategy         deflatewrap.Strategy
	Pool             *workerpool.Pool
	Logger           *zap.Logger
}

func (c Config) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}
