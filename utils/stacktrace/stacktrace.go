// Package stacktrace captures goroutine stack dumps for fault diagnosis, either on demand or when
// the process receives SIGUSR1.
package stacktrace

import "runtime"

// maxDumpSize bounds the buffer handed to runtime.Stack.
const maxDumpSize = 64 << 20

// Dump returns the stack traces of all goroutines in the process.
func Dump() string {
	buf := make([]byte, 1<<16)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) || len(buf) >= maxDumpSize {
			return string(buf[:n])
		}
		buf = make([]byte, 2*len(buf))
	}
}
