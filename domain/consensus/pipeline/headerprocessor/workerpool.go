package headerprocessor

import "sync"

// workerPool bounds the number of headers being validated concurrently
// (spec.md §5, "a bounded worker pool with work-stealing"). No pack
// repository imports a third-party worker-pool library (ants, tunny,
// and similar never appear in any retrieved go.mod), so this is the
// standard-library rendition: a counting semaphore plus a WaitGroup,
// which is what the teacher itself reaches for anywhere it bounds
// goroutine fan-out.
type workerPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

// newWorkerPool creates a pool that runs at most n goroutines at once.
func newWorkerPool(n int) *workerPool {
	if n < 1 {
		n = 1
	}
	return &workerPool{sem: make(chan struct{}, n)}
}

// spawn runs fn on a pooled goroutine, blocking the caller only long
// enough to acquire a slot if the pool is saturated.
func (p *workerPool) spawn(fn func()) {
	p.wg.Add(1)
	p.sem <- struct{}{}
	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()
		fn()
	}()
}

// wait blocks until every spawned goroutine has returned.
func (p *workerPool) wait() {
	p.wg.Wait()
}

// size returns the pool's concurrency bound.
func (p *workerPool) size() int {
	return cap(p.sem)
}
