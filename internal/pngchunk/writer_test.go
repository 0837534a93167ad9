package pngchunk

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSignature(t *testing.T) {
	var buf bytes.Buffer
	cw := New(&buf)
	require.NoError(t, cw.WriteSignature())
	assert.Equal(t, 8, buf.Len())
	assert.Equal(t, Signature[:], buf.Bytes())
}

func TestEmptyChunk(t *testing.T) {
	var buf bytes.Buffer
	cw := New(&buf)
	require.NoError(t, cw.WriteChunk("IDAT", nil))
	// 4 bytes len + 4 bytes tag + 4 bytes crc
	assert.Equal(t, 12, buf.Len())
}

func TestFullChunk(t *testing.T) {
	var buf bytes.Buffer
	cw := New(&buf)
	payload := []byte("01234567890123456789")
	require.NoError(t, cw.WriteChunk("IDAT", payload))
	assert.Equal(t, 4+4+len(payload)+4, buf.Len())
}

func TestChunkCRC(t *testing.T) {
	// One-pixel black truecolor IDAT payload, known-good CRC from a
	// reference encoder.
	onePixel := []byte{0x08, 0x99, 0x63, 0x60, 0x60, 0x60, 0x00, 0x00, 0x00, 0x04, 0x00, 0x01}

	var buf bytes.Buffer
	cw := New(&buf)
	require.NoError(t, cw.WriteChunk("IDAT", onePixel))

	out := buf.Bytes()
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x0c}, out[0:4], "length")
	assert.Equal(t, "IDAT", string(out[4:8]))
	assert.Equal(t, onePixel, out[8:20])
	assert.Equal(t, []byte{0xa3, 0x0a, 0x15, 0xe3}, out[20:24], "crc32")
}

func TestWriteIHDR(t *testing.T) {
	var buf bytes.Buffer
	cw := New(&buf)
	require.NoError(t, cw.WriteIHDR(1, 1, 8, 0))
	// 4 len + 4 "IHDR" + 13 payload + 4 crc
	assert.Equal(t, 25, buf.Len())
}

func TestWriteIEND(t *testing.T) {
	var buf bytes.Buffer
	cw := New(&buf)
	require.NoError(t, cw.WriteIEND())
	assert.Equal(t, 12, buf.Len())
}

func TestChunkTagLengthValidation(t *testing.T) {
	var buf bytes.Buffer
	cw := New(&buf)
	err := cw.WriteChunk("TOOLONG", nil)
	assert.Error(t, err)
}
