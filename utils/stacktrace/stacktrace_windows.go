//go:build windows

package stacktrace

import "go.viam.com/arduinohub/logging"

// SignalHandler is a no-op on Windows since SIGUSR1 does not exist.
type SignalHandler struct{}

// SetCallback is a no-op on Windows.
func (h *SignalHandler) SetCallback(func()) {}

// NewSignalHandler is a no-op on Windows since signals don't exist.
func NewSignalHandler(logger logging.Logger) (*SignalHandler, func()) {
	return &SignalHandler{}, func() {}
}
