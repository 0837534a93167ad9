// Package parapng implements a multithreaded PNG encoder: it partitions an
// image into row-aligned chunks, filters and raw-deflates each chunk on a
// worker pool with cross-chunk dictionary chaining, and reassembles the
// chunk outputs in strict sequence order into a byte-for-byte valid PNG
// file. See Encoder for the public state machine and Options/Header for
// the configuration surface.
//
// Decoding, and matching reference encoders' file size exactly, are out of
// scope; see internal/pipeline for the chunk-dispatch implementation this
// package's Encoder drives.
package parapng
