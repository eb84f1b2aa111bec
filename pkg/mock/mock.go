// Package mock provides a placeholder analysis backend that returns
// synthetic results in place of real model inference. The image content is
// never inspected.
package mock

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/menta2k/object-counter/pkg/types"
)

const (
	// MaxCount is the upper bound of the random object count
	MaxCount = 10
	// MaxObjects is the upper bound of the returned label prefix
	MaxObjects = 4
)

// Counter returns a random count in [1, MaxCount] and a random non-empty
// prefix of the vocabulary of at most MaxObjects labels
type Counter struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a mock counter seeded from the runtime source
func New() *Counter {
	return &Counter{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewWithSeed creates a deterministic mock counter
func NewWithSeed(seed uint64) *Counter {
	return &Counter{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Name returns the backend name
func (c *Counter) Name() string {
	return "mock"
}

// Count returns a synthetic result
func (c *Counter) Count(ctx context.Context, _ types.Upload) (*types.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	count := c.rng.IntN(MaxCount) + 1
	n := c.rng.IntN(MaxObjects) + 1
	c.mu.Unlock()

	objects := make([]string, n)
	copy(objects, types.Vocabulary[:n])

	return &types.AnalysisResult{
		Count:   count,
		Objects: objects,
		Backend: c.Name(),
	}, nil
}
