package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/object-counter/pkg/types"
)

type countingBackend struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (b *countingBackend) Name() string { return "fake" }

func (b *countingBackend) Count(_ context.Context, upload types.Upload) (*types.AnalysisResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return &types.AnalysisResult{Count: len(upload.Data), Objects: []string{"bird"}, Backend: "fake"}, nil
}

func (b *countingBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func TestCounterCachesByContent(t *testing.T) {
	inner := &countingBackend{}
	c := New(inner, 4)
	ctx := context.Background()

	first, err := c.Count(ctx, types.Upload{Filename: "a.jpg", Data: []byte("abc")})
	require.NoError(t, err)
	second, err := c.Count(ctx, types.Upload{Filename: "renamed.jpg", Data: []byte("abc")})
	require.NoError(t, err)

	assert.Equal(t, 1, inner.Calls())
	assert.Equal(t, first, second)
	assert.Equal(t, "fake", c.Name())
	assert.Same(t, inner, c.Inner())

	_, err = c.Count(ctx, types.Upload{Data: []byte("abcd")})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.Calls())
	assert.Equal(t, 2, c.Len())
}

func TestCounterReturnsCopies(t *testing.T) {
	c := New(&countingBackend{}, 4)
	ctx := context.Background()
	upload := types.Upload{Data: []byte("x")}

	first, err := c.Count(ctx, upload)
	require.NoError(t, err)
	first.Objects[0] = "car"
	first.Count = 99

	second, err := c.Count(ctx, upload)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Count)
	assert.Equal(t, []string{"bird"}, second.Objects)
}

func TestCounterEvictsLeastRecentlyUsed(t *testing.T) {
	inner := &countingBackend{}
	c := New(inner, 2)
	ctx := context.Background()

	for _, data := range []string{"a", "b", "a", "c"} {
		_, err := c.Count(ctx, types.Upload{Data: []byte(data)})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, inner.Calls())
	assert.Equal(t, 2, c.Len())

	// "b" was evicted, "a" was kept
	_, err := c.Count(ctx, types.Upload{Data: []byte("a")})
	require.NoError(t, err)
	assert.Equal(t, 3, inner.Calls())

	_, err = c.Count(ctx, types.Upload{Data: []byte("b")})
	require.NoError(t, err)
	assert.Equal(t, 4, inner.Calls())
}

func TestCounterDoesNotCacheErrors(t *testing.T) {
	inner := &countingBackend{err: errors.New("backend down")}
	c := New(inner, 0)
	ctx := context.Background()

	for range 2 {
		_, err := c.Count(ctx, types.Upload{Data: []byte("x")})
		assert.Error(t, err)
	}
	assert.Equal(t, 2, inner.Calls())
	assert.Equal(t, 0, c.Len())
}

func TestCounterConcurrentUse(t *testing.T) {
	c := New(&countingBackend{}, 8)
	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Count(context.Background(), types.Upload{Data: []byte{byte(i % 10)}})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 8)
}
