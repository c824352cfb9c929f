package utils

import (
	"context"
	"sync"

	goutils "go.viam.com/utils"
)

// StoppableWorkers is a collection of goroutines that share one cancellable context and can be
// stopped together at a later time.
type StoppableWorkers struct {
	mu                      sync.Mutex
	cancelCtx               context.Context
	cancelFunc              func()
	activeBackgroundWorkers sync.WaitGroup
}

// NewStoppableWorkers runs the functions in separate goroutines. They can be stopped later.
func NewStoppableWorkers(funcs ...func(context.Context)) *StoppableWorkers {
	workers := NewBackgroundStoppableWorkers()
	workers.Add(funcs...)
	return workers
}

// NewBackgroundStoppableWorkers returns an empty collection whose context derives from
// context.Background.
func NewBackgroundStoppableWorkers() *StoppableWorkers {
	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	return &StoppableWorkers{cancelCtx: cancelCtx, cancelFunc: cancelFunc}
}

// Add starts up additional goroutines for each function passed in. If you call this after calling
// Stop(), it will return false without starting any new goroutines. A panic inside a worker is
// logged by go.viam.com/utils and ends only that worker.
func (sw *StoppableWorkers) Add(funcs ...func(context.Context)) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.cancelCtx.Err() != nil { // We've already stopped everything.
		return false
	}

	sw.activeBackgroundWorkers.Add(len(funcs))
	for _, f := range funcs {
		goutils.PanicCapturingGo(func() {
			defer sw.activeBackgroundWorkers.Done()
			f(sw.cancelCtx)
		})
	}
	return true
}

// Stop cancels the shared context and waits for every goroutine to return. It is safe to call more
// than once.
func (sw *StoppableWorkers) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.cancelFunc()
	sw.activeBackgroundWorkers.Wait()
}

// Context gets the context the workers are checking on. Using this function is expected to be
// rare: usually you shouldn't need to interact with the context directly.
func (sw *StoppableWorkers) Context() context.Context {
	return sw.cancelCtx
}
