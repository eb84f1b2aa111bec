package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/menta2k/object-counter/pkg/client"
	"github.com/menta2k/object-counter/pkg/types"
)

// DefaultSize is the number of results kept when no size is given
const DefaultSize = 128

// Counter wraps a Counter with an in-memory LRU of results keyed by image content.
type Counter struct {
	inner client.Counter
	size  int

	mu      sync.Mutex
	order   *list.List
	entries map[string]*list.Element
}

type entry struct {
	key    string
	result types.AnalysisResult
}

// New creates a cached counter holding at most size results.
func New(inner client.Counter, size int) *Counter {
	if size <= 0 {
		size = DefaultSize
	}
	return &Counter{
		inner:   inner,
		size:    size,
		order:   list.New(),
		entries: make(map[string]*list.Element, size),
	}
}

// Name returns the name of the wrapped backend
func (c *Counter) Name() string {
	return c.inner.Name()
}

// Inner returns the wrapped counter
func (c *Counter) Inner() client.Counter {
	return c.inner
}

// Len returns the number of cached results
func (c *Counter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// hashImage creates a SHA256 hash from image data.
func hashImage(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Count returns a cached result for identical image bytes, or asks the inner counter.
func (c *Counter) Count(ctx context.Context, upload types.Upload) (*types.AnalysisResult, error) {
	hash := hashImage(upload.Data)

	if cached, ok := c.get(hash); ok {
		log.Debug().Str("hash", hash[:16]).Str("backend", c.Name()).Msg("count cache hit")
		return cached, nil
	}

	result, err := c.inner.Count(ctx, upload)
	if err != nil {
		return nil, err
	}

	c.put(hash, result)
	log.Debug().Str("hash", hash[:16]).Str("backend", c.Name()).Msg("cached count result")
	return result, nil
}

func (c *Counter) get(key string) (*types.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return copyResult(el.Value.(*entry).result), true
}

func (c *Counter) put(key string, result *types.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).result = *copyResult(*result)
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, result: *copyResult(*result)})
	for c.order.Len() > c.size {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}

// copyResult detaches the objects slice so callers cannot mutate cached entries
func copyResult(r types.AnalysisResult) *types.AnalysisResult {
	objects := make([]string, len(r.Objects))
	copy(objects, r.Objects)
	r.Objects = objects
	return &r
}
