package parapng

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/parapng/parapng/internal/deflatewrap"
	"github.com/parapng/parapng/internal/filter"
	"github.com/parapng/parapng/internal/pipeline"
	"github.com/parapng/parapng/internal/pngchunk"
	"github.com/parapng/parapng/internal/workerpool"
)

// State is one of the Encoder's strictly-forward lifecycle states.
type State int

const (
	StateInitial State = iota
	StateHeaderWritten
	StatePaletteWritten
	StateImageBody
	StateFinished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateHeaderWritten:
		return "header_written"
	case StatePaletteWritten:
		return "palette_written"
	case StateImageBody:
		return "image_body"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// defaultPool is shared by encoders that weren't given one explicitly via
// Options.Pool: default size equals the number of logical processors,
// but a caller may supply a shared pool instead.
var defaultPool = workerpool.New(0)

// Encoder is the public façade: it accepts a header, optional palette and
// transparency, row data, and a finish call, in that strict order, and
// drives the parallel filter-and-deflate pipeline underneath.
type Encoder struct {
	state  State
	logger *zap.Logger

	sink Sink
	cw   *pngchunk.Writer

	header     Header
	opts       Options
	rowsWant   int
	rowsSeen   int
	stride     int
	gotHeader  bool
	gotPalette bool

	dispatcher *pipeline.Dispatcher
}

// NewEncoder creates an Encoder in the Initial state, writing to sink.
func NewEncoder(sink Sink, opts Options) (*Encoder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Encoder{
		state:  StateInitial,
		logger: opts.logger(),
		sink:   sink,
		cw:     pngchunk.New(sink),
		opts:   opts,
	}, nil
}

func (e *Encoder) fail(op string, err error) error {
	e.state = StateFailed
	e.logger.Debug("encoder failed", zap.String("op", op), zap.Error(err))
	return err
}

func (e *Encoder) requireState(op string, allowed ...State) error {
	for _, s := range allowed {
		if e.state == s {
			return nil
		}
	}
	return e.fail(op, newError(op, KindWrongState, fmt.Errorf("state is %s", e.state)))
}

// WriteHeader validates h, emits the PNG signature and IHDR chunk, and
// moves the encoder to HeaderWritten.
func (e *Encoder) WriteHeader(h Header) error {
	const op = "Encoder.WriteHeader"
	if err := e.requireState(op, StateInitial); err != nil {
		return err
	}
	if err := h.Validate(); err != nil {
		return e.fail(op, err)
	}

	if err := e.cw.WriteSignature(); err != nil {
		return e.fail(op, e.sinkErr(op, err))
	}
	if err := e.cw.WriteIHDR(h.Width, h.Height, h.BitDepth, uint8(h.ColorType)); err != nil {
		return e.fail(op, e.sinkErr(op, err))
	}

	e.header = h
	e.stride = h.Stride()
	e.rowsWant = int(h.Height)
	e.state = StateHeaderWritten
	e.logger.Debug("header written", zap.String("header", h.String()))
	return nil
}

// WritePalette emits a PLTE chunk. entries is raw RGB triples (len must be
// a multiple of 3, 1 to 256 entries).
func (e *Encoder) WritePalette(entries []byte) error {
	const op = "Encoder.WritePalette"
	if err := e.requireState(op, StateHeaderWritten); err != nil {
		return err
	}
	if len(entries) == 0 || len(entries)%3 != 0 || len(entries)/3 > 256 {
		return e.fail(op, newError(op, KindInvalidOption, fmt.Errorf("palette must hold 1..256 RGB triples, got %d bytes", len(entries))))
	}
	if err := e.cw.WriteChunk("PLTE", entries); err != nil {
		return e.fail(op, e.sinkErr(op, err))
	}
	e.gotPalette = true
	e.state = StatePaletteWritten
	return nil
}

// WriteTransparency emits a tRNS chunk. Valid from HeaderWritten or
// PaletteWritten; it does not change rowsWant or the stride. For an
// Indexed image, tRNS entries index the palette, so a palette must already
// be written.
func (e *Encoder) WriteTransparency(data []byte) error {
	const op = "Encoder.WriteTransparency"
	if err := e.requireState(op, StateHeaderWritten, StatePaletteWritten); err != nil {
		return err
	}
	if e.header.ColorType == ColorIndexed && !e.gotPalette {
		return e.fail(op, newError(op, KindInvalidOption, fmt.Errorf("indexed images require a palette before transparency")))
	}
	if err := e.cw.WriteChunk("tRNS", data); err != nil {
		return e.fail(op, e.sinkErr(op, err))
	}
	if e.state == StateHeaderWritten {
		e.state = StatePaletteWritten
	} else {
		e.state = StateImageBody
	}
	return nil
}

// WriteImageRows appends rows (a positive multiple of Header.Stride()) to
// the pipeline, partitioning and dispatching chunks as thresholds are
// crossed. The encoder moves to ImageBody on the first call.
func (e *Encoder) WriteImageRows(rows []byte) error {
	const op = "Encoder.WriteImageRows"
	if err := e.requireState(op, StateHeaderWritten, StatePaletteWritten, StateImageBody); err != nil {
		return err
	}
	if e.header.ColorType == ColorIndexed && !e.gotPalette {
		return e.fail(op, newError(op, KindInvalidOption, fmt.Errorf("indexed images require a palette before image data")))
	}
	if e.stride == 0 || len(rows)%e.stride != 0 {
		return e.fail(op, newError(op, KindRowCountMismatch, fmt.Errorf("%d bytes is not a multiple of stride %d", len(rows), e.stride)))
	}

	if e.dispatcher == nil {
		if err := e.startDispatcher(); err != nil {
			return e.fail(op, err)
		}
	}

	rowCount := len(rows) / e.stride
	if e.rowsSeen+rowCount > e.rowsWant {
		return e.fail(op, newError(op, KindRowCountMismatch, fmt.Errorf("received %d rows, exceeding height %d", e.rowsSeen+rowCount, e.rowsWant)))
	}

	if err := e.dispatcher.WriteRows(rows); err != nil {
		return e.fail(op, e.classifyPipelineErr(err))
	}

	e.rowsSeen += rowCount
	e.state = StateImageBody
	return nil
}

// Finish drains outstanding jobs, flushes the final IDAT payload, writes
// IEND, and moves the encoder to Finished.
func (e *Encoder) Finish() error {
	const op = "Encoder.Finish"
	if err := e.requireState(op, StateImageBody); err != nil {
		return err
	}
	if e.rowsSeen != e.rowsWant {
		return e.fail(op, newError(op, KindRowCountMismatch, fmt.Errorf("received %d of %d rows", e.rowsSeen, e.rowsWant)))
	}

	_, chunkCount, err := e.dispatcher.Finish()
	if err != nil {
		return e.fail(op, e.classifyPipelineErr(err))
	}
	if err := e.cw.WriteIEND(); err != nil {
		return e.fail(op, e.sinkErr(op, err))
	}
	if err := e.sink.Flush(); err != nil {
		return e.fail(op, e.sinkErr(op, err))
	}

	e.state = StateFinished
	e.logger.Debug("finished", zap.Int("chunks", chunkCount))
	return nil
}

// Release aborts the encoder: outstanding jobs are allowed to finish but
// their outputs are discarded, and the encoder moves to Failed. It is safe
// to call at any point before Finished.
func (e *Encoder) Release() {
	if e.state == StateFinished || e.state == StateFailed {
		return
	}
	if e.dispatcher != nil {
		e.dispatcher.Release()
	}
	e.state = StateFailed
}

// EmitIDAT implements pipeline.IDATEmitter, writing one IDAT chunk per
// dispatcher-flushed payload. Errors here are tagged SinkFailure directly,
// since this is the only place the pipeline touches the output sink.
func (e *Encoder) EmitIDAT(payload []byte) error {
	if err := e.cw.WriteChunk("IDAT", payload); err != nil {
		return e.sinkErr("Encoder.EmitIDAT", err)
	}
	if err := e.sink.Flush(); err != nil {
		return e.sinkErr("Encoder.EmitIDAT", err)
	}
	return nil
}

func (e *Encoder) sinkErr(op string, err error) error {
	return newError(op, KindSinkFailure, err)
}

// classifyPipelineErr maps an error surfaced from the Dispatcher back onto
// a parapng Error kind: a *parapng.Error anywhere in the chain (raised by
// EmitIDAT) is returned as-is, a chunk-job failure (pipeline.ErrChunkJob)
// is a compression failure, and anything else is an internal invariant
// violation.
func (e *Encoder) classifyPipelineErr(err error) error {
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	if errors.Is(err, pipeline.ErrChunkJob) {
		return newError("pipeline", KindCompressionFailure, err)
	}
	return newError("pipeline", KindInternal, err)
}

func (e *Encoder) startDispatcher() error {
	pool := e.opts.Pool
	if pool == nil {
		pool = defaultPool
	}
	mode := e.opts.resolveFilterMode(e.header)
	cfg := pipeline.Config{
		Stride:           e.stride,
		FilterBPP:        e.header.filterBPP(),
		ChunkSize:        e.opts.ChunkSize,
		CompressionLevel: int(e.opts.CompressionLevel),
		FilterMode:       toFilterModeConfig(mode),
		Strategy:         resolveStrategy(e.opts.StrategyMode, mode),
		Pool:             pool,
		Logger:           e.logger,
	}
	e.dispatcher = pipeline.NewDispatcher(cfg, e)
	return nil
}

func toFilterModeConfig(m FilterMode) pipeline.FilterModeConfig {
	return pipeline.FilterModeConfig{
		Adaptive: m.Adaptive,
		Fixed:    filter.Type(m.Fixed),
	}
}

// resolveStrategy maps Options.StrategyMode onto internal/deflatewrap's
// Strategy. The adaptive rule resolves to Filtered unless the resolved
// filter mode is None, in which case unfiltered rows gain nothing from the
// filtered-data heuristics and it resolves to Default instead.
func resolveStrategy(s StrategyMode, resolvedFilter FilterMode) deflatewrap.Strategy {
	fixed := s.Fixed
	if s.Adaptive {
		if !resolvedFilter.Adaptive && resolvedFilter.Fixed == FilterNone {
			fixed = StrategyDefault
		} else {
			fixed = StrategyFiltered
		}
	}
	switch fixed {
	case StrategyHuffman:
		return deflatewrap.StrategyHuffman
	case StrategyRLE:
		return deflatewrap.StrategyRLE
	case StrategyFixed:
		return deflatewrap.StrategyFixed
	case StrategyFiltered:
		return deflatewrap.StrategyFiltered
	default:
		return deflatewrap.StrategyDefault
	}
}
