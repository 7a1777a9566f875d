package netio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
)

// ErrNoListeners indicates that Run was called without any listeners.
var ErrNoListeners = errors.New("receiver run: no listeners provided")

// Demuxer routes a raw OSPF packet read off one interface's socket to
// that interface's Receive method. Its signature uses only stdlib types
// (rather than internal/ospf's own types) so internal/ospf can implement
// it without importing this package — internal/ospf is the leaf,
// internal/netio depends on it, never the reverse.
type Demuxer interface {
	// Demux hands raw to the interface identified by ifIndex for
	// processing (internal/ospf.Interface.Receive). The reader goroutine
	// hands raw bytes to the engine's event loop via Loop.Post.
	Demux(ifIndex int, src netip.Addr, raw []byte)
}

// Receiver reads raw OSPF packets from one or more Listeners and routes
// them to interfaces via a Demuxer. Each Listener runs its own read
// goroutine; demuxed work is handed off to the single-threaded event loop
// by the Demuxer implementation (normally via sched.Loop.Post), so this
// package never touches OSPF engine state directly.
type Receiver struct {
	demuxer Demuxer
	logger  *slog.Logger
}

// NewReceiver creates a Receiver that routes packets to the given Demuxer.
func NewReceiver(demuxer Demuxer, logger *slog.Logger) *Receiver {
	return &Receiver{
		demuxer: demuxer,
		logger:  logger.With(slog.String("component", "netio.receiver")),
	}
}

// Run reads from all listeners concurrently until ctx is cancelled,
// blocking until every listener goroutine has returned.
func (r *Receiver) Run(ctx context.Context, listeners ...*Listener) error {
	if len(listeners) == 0 {
		return fmt.Errorf("receiver: %w", ErrNoListeners)
	}

	done := make(chan struct{}, len(listeners))
	for _, ln := range listeners {
		go func(l *Listener) {
			r.recvLoop(ctx, l)
			done <- struct{}{}
		}(ln)
	}
	for range len(listeners) {
		<-done
	}
	return nil
}

func (r *Receiver) recvLoop(ctx context.Context, ln *Listener) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := r.recvOne(ctx, ln); err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Warn("recv error", slog.String("error", err.Error()))
		}
	}
}

func (r *Receiver) recvOne(ctx context.Context, ln *Listener) error {
	raw, meta, err := ln.Recv(ctx)
	if err != nil {
		return fmt.Errorf("recv: %w", err)
	}
	r.demuxer.Demux(meta.IfIndex, meta.SrcAddr, raw)
	return nil
}
