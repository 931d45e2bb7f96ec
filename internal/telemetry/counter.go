// Package telemetry keeps per-process request counts keyed by endpoint path
// and client address.
//
// A RequestCounter is created once at startup, lives in memory only and is
// reset only by a restart. Counts never decrease.
package telemetry

import "sync"

type Snapshot map[string]map[string]int64

type RequestCounter struct {
	mu     sync.Mutex
	counts map[string]map[string]int64
}

func NewRequestCounter() *RequestCounter {
	return &RequestCounter{counts: make(map[string]map[string]int64)}
}

// Observe adds one request for the (path, addr) pair.
func (c *RequestCounter) Observe(path, addr string) {
	c.mu.Lock()
	byAddr, ok := c.counts[path]
	if !ok {
		byAddr = make(map[string]int64)
		c.counts[path] = byAddr
	}
	byAddr[addr]++
	c.mu.Unlock()
}

// Snapshot returns a deep copy; later Observe calls do not affect it.
func (c *RequestCounter) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(Snapshot, len(c.counts))
	for path, byAddr := range c.counts {
		cp := make(map[string]int64, len(byAddr))
		for addr, n := range byAddr {
			cp[addr] = n
		}
		out[path] = cp
	}
	return out
}
