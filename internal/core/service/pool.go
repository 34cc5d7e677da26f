package service

import "sync"

// workPool runs units of work with bounded concurrency. A width of 1
// executes submissions inline, so the sequential and parallel dispatch
// modes share one code path and differ only in scheduling.
type workPool struct {
	width int
	sem   chan struct{}
	wg    sync.WaitGroup
}

func newWorkPool(width int) *workPool {
	if width < 1 {
		width = 1
	}
	return &workPool{width: width, sem: make(chan struct{}, width)}
}

// Submit runs fn, blocking while the pool is at full width.
func (p *workPool) Submit(fn func()) {
	if p.width == 1 {
		fn()
		return
	}
	p.sem <- struct{}{}
	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.sem
			p.wg.Done()
		}()
		fn()
	}()
}

// Wait blocks until all submitted work has finished.
func (p *workPool) Wait() {
	p.wg.Wait()
}
