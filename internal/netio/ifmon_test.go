package netio_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-ospfd/ospfd/internal/netio"
)

func TestStubInterfaceMonitorClosesEventsOnCancel(t *testing.T) {
	t.Parallel()

	mon := netio.NewStubInterfaceMonitor(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- mon.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}

	if _, ok := <-mon.Events(); ok {
		t.Error("Events() channel should be closed and empty")
	}
}

func TestStubInterfaceMonitorClose(t *testing.T) {
	t.Parallel()

	mon := netio.NewStubInterfaceMonitor(discardLogger())
	if err := mon.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
}
