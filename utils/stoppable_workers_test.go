package utils

import (
	"context"
	"testing"

	"go.uber.org/atomic"
	"go.viam.com/test"
)

func TestStoppableWorkers(t *testing.T) {
	var stopped atomic.Int32
	started := make(chan struct{}, 2)
	worker := func(ctx context.Context) {
		started <- struct{}{}
		<-ctx.Done()
		stopped.Inc()
	}

	workers := NewStoppableWorkers(worker)
	test.That(t, workers.Add(worker), test.ShouldBeTrue)
	<-started
	<-started

	workers.Stop()
	test.That(t, stopped.Load(), test.ShouldEqual, int32(2))
	test.That(t, workers.Context().Err(), test.ShouldNotBeNil)

	// Adding after Stop is refused and Stop stays idempotent.
	test.That(t, workers.Add(worker), test.ShouldBeFalse)
	workers.Stop()
	test.That(t, stopped.Load(), test.ShouldEqual, int32(2))
}

func TestStoppableWorkersPanic(t *testing.T) {
	workers := NewBackgroundStoppableWorkers()
	workers.Add(func(context.Context) {
		panic("whoops")
	})
	// The panic is captured; Stop still returns.
	workers.Stop()
}
