package launchagent

import (
	"context"
	"sync"
)

// Bulk runs a control operation over many agents concurrently.
// Failures are collected in a MultiError; one failure does not stop the others.
type Bulk struct {
	// Concurrency is the maximum number of concurrent operations
	Concurrency int
}

// NewBulk creates a Bulk with the given concurrency, at least 1
func NewBulk(concurrency int) *Bulk {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Bulk{Concurrency: concurrency}
}

// Run applies op to every agent
func (b *Bulk) Run(ctx context.Context, agents []LaunchAgent, op func(context.Context, LaunchAgent) error) error {
	if len(agents) == 0 {
		return nil
	}

	concurrency := b.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	// Semaphore for concurrency control
	sem := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex
	merr := &MultiError{}

	for _, agent := range agents {
		wg.Add(1)
		go func(a LaunchAgent) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				merr.Add(ctx.Err())
				mu.Unlock()
				return
			}

			if err := op(ctx, a); err != nil {
				mu.Lock()
				merr.Add(err)
				mu.Unlock()
			}
		}(agent)
	}

	wg.Wait()

	return merr.Err()
}
