package deflatewrap

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decompress(t *testing.T, raw []byte, dict []byte) []byte {
	t.Helper()
	var rc io.ReadCloser
	if len(dict) > 0 {
		rc = flate.NewReaderDict(bytes.NewReader(raw), dict)
	} else {
		rc = flate.NewReader(bytes.NewReader(raw))
	}
	defer rc.Close()
	out, err := io.ReadAll(rc)
	require.NoError(t, err)
	return out
}

func TestWriteThenCloseRoundTrips(t *testing.T) {
	w, err := New(6, StrategyDefault, nil)
	require.NoError(t, err)

	input := []byte("the quick brown fox jumps over the lazy dog, repeatedly, repeatedly")
	_, err = w.Write(input)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got := decompress(t, w.Bytes(), nil)
	assert.Equal(t, input, got)
}

func TestFlushBlockLeavesStreamOpen(t *testing.T) {
	w, err := New(6, StrategyDefault, nil)
	require.NoError(t, err)

	_, err = w.Write([]byte("first chunk of data"))
	require.NoError(t, err)
	require.NoError(t, w.FlushBlock())

	lenAfterFlush := w.Len()
	assert.Greater(t, lenAfterFlush, 0)

	_, err = w.Write([]byte("second chunk of data"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Greater(t, w.Len(), lenAfterFlush)
}

func TestPresetDictionarySeedsBackreferences(t *testing.T) {
	dict := []byte("recurring phrase recurring phrase recurring phrase")

	w, err := New(6, StrategyDefault, dict)
	require.NoError(t, err)
	_, err = w.Write([]byte("recurring phrase recurring phrase"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got := decompress(t, w.Bytes(), dict)
	assert.Equal(t, []byte("recurring phrase recurring phrase"), got)
}

func TestHuffmanStrategyResolvesToHuffmanOnlyLevel(t *testing.T) {
	assert.Equal(t, flate.HuffmanOnly, resolveLevel(6, StrategyHuffman))
}

func TestRLEStrategyApproximatedWithBestSpeed(t *testing.T) {
	assert.Equal(t, flate.BestSpeed, resolveLevel(9, StrategyRLE))
}

func TestBitPosIsAlwaysZero(t *testing.T) {
	w, err := New(6, StrategyDefault, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, w.BitPos())
	require.NoError(t, w.FlushBlock())
	assert.Equal(t, 0, w.BitPos())
}
