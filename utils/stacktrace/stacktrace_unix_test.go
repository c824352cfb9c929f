//go:build unix

package stacktrace

import (
	"os"
	"syscall"
	"testing"

	"go.uber.org/atomic"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/arduinohub/logging"
)

func TestSignalDumpsAndRunsLatestCallback(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	handler, cleanup := NewSignalHandler(logger)
	defer cleanup()

	var replaced, status atomic.Int32
	handler.SetCallback(func() { replaced.Inc() })
	handler.SetCallback(func() { status.Inc() })

	test.That(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1), test.ShouldBeNil)

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, status.Load(), test.ShouldEqual, int32(1))
	})
	test.That(t, replaced.Load(), test.ShouldEqual, int32(0))

	dumps := logs.FilterMessage("Received SIGUSR1, dumping goroutine stacks").All()
	test.That(t, dumps, test.ShouldHaveLength, 1)
	test.That(t, dumps[0].ContextMap()["stacks"], test.ShouldContainSubstring, "goroutine")
}

func TestSignalWithoutCallback(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	_, cleanup := NewSignalHandler(logger)
	defer cleanup()

	test.That(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1), test.ShouldBeNil)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, logs.FilterMessage("Received SIGUSR1, dumping goroutine stacks").Len(), test.ShouldEqual, 1)
	})
}

func TestDumpIncludesOtherGoroutines(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	go parkedForDump(release)

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, Dump(), test.ShouldContainSubstring, "parkedForDump")
	})
}

func parkedForDump(release chan struct{}) {
	<-release
}
