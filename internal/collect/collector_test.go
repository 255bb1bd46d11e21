// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collect

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

func ok(path string) types.DownloadResult {
	return types.DownloadResult{State: types.StateSucceeded, Path: path, Attempts: 1}
}

func bad(msg string) types.DownloadResult {
	return types.DownloadResult{State: types.StateFailed, Error: msg, Kind: types.KindPermanent}
}

func TestCollector_CountsAndOrder(t *testing.T) {
	c := New()
	assert.Equal(t, 1, c.Add(ok("a.pdf")))
	assert.Equal(t, 1, c.Add(bad("404")))
	assert.Equal(t, 2, c.Add(ok("b.pdf")))

	assert.Equal(t, 2, c.Succeeded())
	assert.Equal(t, 1, c.Failed())
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, c.Paths())

	res := c.Results()
	assert.Equal(t, "a.pdf", res[0].Path)
	assert.Equal(t, "404", res[1].Error)
}

func TestCollector_NonTerminalCountsAsFailed(t *testing.T) {
	c := New()
	c.Add(types.DownloadResult{State: types.StateDownloading})
	c.Add(types.DownloadResult{State: types.StateDiscovered})
	assert.Equal(t, 2, c.Failed())
	for _, r := range c.Results() {
		assert.Equal(t, types.StateFailed, r.State)
	}
}

func TestCollector_ResultsIsCopy(t *testing.T) {
	c := New()
	c.Add(ok("a.pdf"))
	res := c.Results()
	res[0].Path = "changed"
	assert.Equal(t, "a.pdf", c.Results()[0].Path)
}

func TestCollector_Concurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				c.Add(ok(fmt.Sprintf("%d.pdf", i)))
			} else {
				c.Add(bad("x"))
			}
		}(i)
	}
	wg.Wait()

	s := c.Snapshot()
	assert.Equal(t, 50, s.Succeeded)
	assert.Equal(t, 50, s.Failed)
	assert.Len(t, s.Results, 100)
}
