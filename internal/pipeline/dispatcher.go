package pipeline

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parapng/parapng/internal/workerpool"
)

// ErrChunkJob wraps any error a filter or deflate job reports, so callers
// can distinguish a compression-stage failure from an internal consistency
// error raised directly by the Dispatcher.
var ErrChunkJob = errors.New("pipeline: chunk job failed")

// idatChunkThreshold bounds how large the pending IDAT payload grows before
// it's flushed as a PNG chunk. Implementation-defined; chosen to keep per-chunk header overhead negligible without holding an
// entire large image's compressed bytes in memory at once.
const idatChunkThreshold = 64 * 1024

// IDATEmitter receives finished IDAT payloads, in stream order, from a
// Dispatcher.
type IDATEmitter interface {
	EmitIDAT(payload []byte) error
}

type jobResult struct {
	seq     int
	isCoded bool
	filter  filterOutput
	coded   codedOutput
	err     error
}

// Dispatcher partitions an image's raw rows into row-aligned chunks,
// submits each chunk's filter and deflate jobs to a worker pool respecting
// the cross-chunk last-row and dictionary-window dependencies, and
// reassembles finished chunks in strict sequence order into PNG IDAT
// chunks. Only the goroutine that calls WriteRows/Finish/Release ever
// touches its internal maps; workers report completions over a single
// channel that goroutine drains, funneling many concurrent one-shot
// handoffs into one place instead of requiring each to be polled
// individually.
type Dispatcher struct {
	cfg     Config
	emitter IDATEmitter
	logger  *zap.Logger

	pending   []byte
	chunkSize int
	totalRows int

	lastRawRow []byte

	descriptors []ChunkDescriptor

	filterOut      []filterOutput
	filterDone     []bool
	nextCodedCheck int

	codedOut    []codedOutput
	codedDone   []bool
	nextEmitSeq int

	results  chan jobResult
	inFlight int
	released bool

	idatBuf      []byte
	wroteZlibHdr bool
	adler        uint32
	adlerLen     int

	firstErr error
}

// NewDispatcher starts a Dispatcher that will write completed IDAT chunks
// to emitter.
func NewDispatcher(cfg Config, emitter IDATEmitter) *Dispatcher {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 1
	}
	return &Dispatcher{
		cfg:       cfg,
		emitter:   emitter,
		logger:    cfg.logger(),
		chunkSize: chunkSize,
		results:   make(chan jobResult, 64),
		adler:     1, // adler32 of the empty string; combine folds chunks into this.
	}
}

// ChunkCount returns the number of chunks cut so far.
func (d *Dispatcher) ChunkCount() int {
	return len(d.descriptors)
}

// NextEmitSeq returns the sequence number the dispatcher is waiting to
// emit next; once Finish completes successfully this equals ChunkCount().
func (d *Dispatcher) NextEmitSeq() int {
	return d.nextEmitSeq
}

// WriteRows accumulates rows (a whole multiple of the stride), cutting and
// dispatching a chunk once the accumulated byte count reaches the
// configured chunk size.
func (d *Dispatcher) WriteRows(rows []byte) error {
	if d.firstErr != nil {
		return d.firstErr
	}
	d.pending = append(d.pending, rows...)
	if len(d.pending) >= d.chunkSize {
		d.cutChunk(d.pending)
		d.pending = nil
	}
	if err := d.drainAvailable(); err != nil {
		return err
	}
	return d.backpressure()
}

// Finish cuts any remaining buffered rows as the final (possibly
// undersized) chunk, waits for every outstanding job, appends the
// terminating final deflate block and the zlib Adler-32 trailer, and
// flushes the last IDAT payload. It returns the stream's Adler-32 and the
// total chunk count.
func (d *Dispatcher) Finish() (adler uint32, chunkCount int, err error) {
	if d.firstErr != nil {
		return 0, 0, d.firstErr
	}
	if len(d.pending) > 0 {
		d.cutChunk(d.pending)
		d.pending = nil
	}
	if err := d.drainUntilIdle(); err != nil {
		return 0, 0, err
	}
	if d.nextEmitSeq != len(d.descriptors) {
		return 0, 0, fmt.Errorf("pipeline: internal: emitted %d of %d chunks", d.nextEmitSeq, len(d.descriptors))
	}
	if len(d.descriptors) == 0 {
		return 0, 0, fmt.Errorf("pipeline: internal: finish with no chunks")
	}
	if err := d.appendFinalTerminator(); err != nil {
		return 0, 0, err
	}
	trailer := adlerTrailer(d.adler)
	d.idatBuf = append(d.idatBuf, trailer[:]...)
	if err := d.flushIDAT(); err != nil {
		return 0, 0, err
	}
	return d.adler, len(d.descriptors), nil
}

// Release cancels outstanding jobs by draining their results without
// landing them, discarding any in-flight or ready-but-unemitted output. It
// is safe to call more than once and after Finish.
func (d *Dispatcher) Release() {
	if d.released {
		return
	}
	d.released = true
	for d.inFlight > 0 {
		<-d.results
		d.inFlight--
	}
}

func (d *Dispatcher) cutChunk(rawRows []byte) {
	stride := d.cfg.Stride
	rowCount := len(rawRows) / stride
	seq := len(d.descriptors)
	desc := ChunkDescriptor{Seq: seq, StartRow: d.totalRows, RowCount: rowCount, TraceID: uuid.New()}
	d.descriptors = append(d.descriptors, desc)
	d.totalRows += rowCount

	d.filterOut = append(d.filterOut, filterOutput{})
	d.filterDone = append(d.filterDone, false)
	d.codedOut = append(d.codedOut, codedOutput{})
	d.codedDone = append(d.codedDone, false)

	prevRow := d.lastRawRow
	last := append([]byte(nil), rawRows[len(rawRows)-stride:]...)
	d.lastRawRow = last

	d.logger.Debug("chunk cut",
		zap.Int("seq", seq),
		zap.Int("rows", rowCount),
		zap.String("trace", desc.TraceID.String()),
	)

	cfg := d.cfg
	d.inFlight++
	workerpool.Submit(cfg.Pool, func() (struct{}, error) {
		out := runFilterChunk(cfg, rawRows, rowCount, prevRow)
		d.results <- jobResult{seq: seq, filter: out}
		return struct{}{}, nil
	})
}

// trySubmitCoded submits coded(seq) for every seq, in order starting from
// nextCodedCheck, whose filter output (and whose predecessor's, for the
// dictionary window) is already available. It stops at the first gap:
// coded(seq+1) can never be ready before coded(seq) is, since its
// dictionary comes from filterOut[seq].
func (d *Dispatcher) trySubmitCoded() {
	for d.nextCodedCheck < len(d.filterDone) && d.filterDone[d.nextCodedCheck] {
		seq := d.nextCodedCheck
		var dict []byte
		if seq > 0 {
			dict = d.filterOut[seq-1].trailingWindow
		}
		filtered := d.filterOut[seq].filtered
		cfg := d.cfg

		d.inFlight++
		workerpool.Submit(cfg.Pool, func() (struct{}, error) {
			out, err := runCodedChunk(cfg, filtered, dict)
			d.results <- jobResult{seq: seq, isCoded: true, coded: out, err: err}
			return struct{}{}, nil
		})
		d.nextCodedCheck++
	}
}

func (d *Dispatcher) land(res jobResult) {
	d.inFlight--
	if res.err != nil {
		if d.firstErr == nil {
			d.firstErr = fmt.Errorf("pipeline: chunk %d: %w: %w", res.seq, ErrChunkJob, res.err)
		}
		return
	}
	if res.isCoded {
		d.codedOut[res.seq] = res.coded
		d.codedDone[res.seq] = true
		if err := d.emitReady(); err != nil && d.firstErr == nil {
			d.firstErr = err
		}
		return
	}
	d.filterOut[res.seq] = res.filter
	d.filterDone[res.seq] = true
	d.trySubmitCoded()
}

func (d *Dispatcher) emitReady() error {
	for d.nextEmitSeq < len(d.codedDone) && d.codedDone[d.nextEmitSeq] {
		seq := d.nextEmitSeq
		out := d.codedOut[seq]

		if !d.wroteZlibHdr {
			hdr := zlibHeader(d.cfg.CompressionLevel)
			d.idatBuf = append(d.idatBuf, hdr[:]...)
			d.wroteZlibHdr = true
		}
		d.idatBuf = append(d.idatBuf, out.bytes...)
		d.adler = adler32Combine(d.adler, out.adler, out.length)
		d.adlerLen += out.length

		// Free the chunk's buffers immediately after flushing into the IDAT
		// writer, so memory doesn't accumulate across the whole image.
		d.codedOut[seq] = codedOutput{}
		d.filterOut[seq] = filterOutput{}

		d.logger.Debug("chunk emitted", zap.Int("seq", seq), zap.Int("bytes", len(out.bytes)))

		if len(d.idatBuf) >= idatChunkThreshold {
			if err := d.flushIDAT(); err != nil {
				return err
			}
		}
		d.nextEmitSeq++
	}
	return nil
}

func (d *Dispatcher) flushIDAT() error {
	if len(d.idatBuf) == 0 {
		return nil
	}
	if err := d.emitter.EmitIDAT(d.idatBuf); err != nil {
		return fmt.Errorf("pipeline: emit idat: %w", err)
	}
	d.idatBuf = d.idatBuf[:0]
	return nil
}

// appendFinalTerminator appends a zero-length final deflate block, closing
// out a stream built entirely from non-final per-chunk flushes, per
// closing out a stream built entirely from non-final per-chunk flushes.
func (d *Dispatcher) appendFinalTerminator() error {
	w, err := newTerminatorWriter(d.cfg)
	if err != nil {
		return fmt.Errorf("pipeline: final terminator: %w", err)
	}
	d.idatBuf = append(d.idatBuf, w...)
	return nil
}

func (d *Dispatcher) drainAvailable() error {
	for {
		select {
		case res := <-d.results:
			d.land(res)
		default:
			return d.firstErr
		}
	}
}

func (d *Dispatcher) drainUntilIdle() error {
	for d.inFlight > 0 {
		d.land(<-d.results)
	}
	return d.firstErr
}

// backpressure blocks WriteRows while the number of submitted filter and
// deflate jobs whose results have not yet landed exceeds 2x the pool size,
// a simple high-water mark on outstanding work. Chunks whose output has
// landed but still waits for an earlier chunk to be emitted are not counted.
func (d *Dispatcher) backpressure() error {
	mark := 2 * d.cfg.Pool.Size()
	for d.inFlight > mark {
		d.land(<-d.results)
		if d.firstErr != nil {
			return d.firstErr
		}
	}
	return d.firstErr
}
