//go:build unix

package stacktrace

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.viam.com/utils"

	"go.viam.com/arduinohub/logging"
)

// SignalHandler logs all goroutine stacks each time the process receives SIGUSR1.
type SignalHandler struct {
	mu       sync.Mutex
	callback func()
}

// SetCallback installs a function invoked after each dump, replacing any earlier callback.
func (h *SignalHandler) SetCallback(callback func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callback = callback
}

func (h *SignalHandler) runCallback() {
	h.mu.Lock()
	callback := h.callback
	h.mu.Unlock()
	if callback != nil {
		callback()
	}
}

// NewSignalHandler starts listening for SIGUSR1. The returned cleanup function stops listening and
// waits for the handler goroutine to exit.
func NewSignalHandler(logger logging.Logger) (*SignalHandler, func()) {
	handler := &SignalHandler{}
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1)
	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	utils.ManagedGo(func() {
		for {
			select {
			case <-done:
				return
			case <-sigs:
				logger.Warnw("Received SIGUSR1, dumping goroutine stacks", "stacks", Dump())
				handler.runCallback()
			}
		}
	}, wg.Done)

	return handler, func() {
		signal.Stop(sigs)
		close(done)
		wg.Wait()
	}
}
