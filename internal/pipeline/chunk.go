package pipeline

import "github.com/google/uuid"

// ChunkDescriptor identifies one row-aligned partition of the image: its
// position in the row buffer and its place in the submission sequence.
// TraceID has no effect on output bytes; it only correlates this chunk's
// log lines across the worker pool.
type ChunkDescriptor struct {
	Seq      int
	StartRow int
	RowCount int
	TraceID  uuid.UUID
}
