package workerpool

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitReturnsResult(t *testing.T) {
	p := New(2)
	defer p.Close()

	f := Submit(p, func() (int, error) {
		return 42, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := f.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestSubmitPropagatesError(t *testing.T) {
	p := New(1)
	defer p.Close()

	f := Submit(p, func() (string, error) {
		return "", assert.AnError
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestDefaultSizeUsesNumCPU(t *testing.T) {
	p := New(0)
	defer p.Close()
	assert.NotNil(t, p.jobs)
	assert.Equal(t, runtime.NumCPU(), p.Size())
}

func TestManyJobsAllComplete(t *testing.T) {
	p := New(4)
	defer p.Close()

	const n = 200
	var counter atomic.Int64
	futures := make([]*Future[int], n)
	for i := 0; i < n; i++ {
		futures[i] = Submit(p, func() (int, error) {
			counter.Add(1)
			return 1, nil
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, f := range futures {
		_, err := f.Wait(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(n), counter.Load())
}

func TestCloseIsIdempotent(t *testing.T) {
	p := New(1)
	p.Close()
	p.Close()
}
