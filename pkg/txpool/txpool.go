// Package txpool implements the bounded byte-budget arena (§3.4,
// §4.5) that both transient send buffers and reliable-engine payload
// records are drawn from.
package txpool

import (
	"sync"

	"github.com/vectorlink/m1proto/pkg/status"
)

// Pool is a fixed-size byte budget. It does not manage memory layout
// itself — Go's allocator and GC do that — it only enforces that the
// sum of live allocations never exceeds the configured budget, so a
// runaway sender degrades with NO_SPACE instead of unbounded growth.
type Pool struct {
	mu     sync.Mutex
	budget int
	used   int
}

// New creates a pool with the given byte budget.
func New(budgetBytes int) *Pool {
	return &Pool{budget: budgetBytes}
}

// Alloc reserves n bytes from the budget and returns a freshly zeroed
// buffer of that length, or NO_SPACE if the budget is exhausted.
func (p *Pool) Alloc(n int) ([]byte, status.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.used+n > p.budget {
		return nil, status.NoSpace
	}
	p.used += n
	return make([]byte, n), status.OK
}

// Free releases a buffer previously returned by Alloc, returning its
// length to the budget.
func (p *Pool) Free(buf []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.used -= len(buf)
	if p.used < 0 {
		p.used = 0
	}
}

// Used reports the number of bytes currently reserved.
func (p *Pool) Used() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.used
}

// Budget reports the pool's total byte budget.
func (p *Pool) Budget() int {
	return p.budget
}
