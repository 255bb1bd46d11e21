// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package collect accumulates download results as concurrent workers
// finish them.
package collect

import (
	"sync"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

// Summary is a point-in-time view of a collector.
type Summary struct {
	Succeeded int
	Failed    int
	Results   []types.DownloadResult
}

// ResultCollector records terminal DownloadResults in completion order.
// It is safe for concurrent use.
type ResultCollector struct {
	mu        sync.Mutex
	results   []types.DownloadResult
	succeeded int
	failed    int
}

// New returns an empty collector.
func New() *ResultCollector {
	return &ResultCollector{}
}

// Add records r and returns the success count after adding it. A result
// in a non-terminal state is counted as failed.
func (c *ResultCollector) Add(r types.DownloadResult) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r.Succeeded() {
		c.succeeded++
	} else {
		if !r.State.Terminal() {
			r.State = types.StateFailed
		}
		c.failed++
	}
	c.results = append(c.results, r)
	return c.succeeded
}

// Succeeded returns the number of successful downloads.
func (c *ResultCollector) Succeeded() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.succeeded
}

// Failed returns the number of failed downloads.
func (c *ResultCollector) Failed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

// Len returns the number of results recorded.
func (c *ResultCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

// Results returns a copy of the results in completion order.
func (c *ResultCollector) Results() []types.DownloadResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyResults()
}

// Paths returns the written files in completion order.
func (c *ResultCollector) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var paths []string
	for _, r := range c.results {
		if r.Succeeded() {
			paths = append(paths, r.Path)
		}
	}
	return paths
}

// Snapshot returns counts and results read under one lock.
func (c *ResultCollector) Snapshot() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Summary{
		Succeeded: c.succeeded,
		Failed:    c.failed,
		Results:   c.copyResults(),
	}
}

func (c *ResultCollector) copyResults() []types.DownloadResult {
	out := make([]types.DownloadResult, len(c.results))
	copy(out, c.results)
	return out
}
