package sched

import (
	"container/heap"
	"context"
	"log/slog"
	"time"
)

// readyEvent is a posted callback awaiting its turn on the ready FIFO.
type readyEvent struct {
	fn func()
}

// fdWatch is one registered file descriptor, reported ready by an external
// reader goroutine (e.g. internal/netio's raw-socket reader) via readable.
// The callback itself still executes on the Loop goroutine, preserving the
// "all state mutation happens on one goroutine" invariant even though the
// underlying blocking read happens elsewhere.
type fdWatch struct {
	name     string
	readable chan struct{}
	onReady  func()
}

// Loop is the single-threaded cooperative event loop.
// All OSPF protocol state must only be touched from within callbacks
// invoked by Loop.Run.
type Loop struct {
	logger *slog.Logger

	ready chan readyEvent
	wheel timerWheel
	fds   []*fdWatch

	nextID uint64
}

// NewLoop constructs a Loop with the given ready-queue depth.
func NewLoop(logger *slog.Logger, readyQueueDepth int) *Loop {
	return &Loop{
		logger: logger,
		ready:  make(chan readyEvent, readyQueueDepth),
	}
}

// Post enqueues fn to run on the loop goroutine at the next turn. Safe to
// call from any goroutine (this is the one synchronization primitive the
// engine uses: a buffered channel send, never a mutex over protocol state).
// If the ready queue is full, fn is dropped and a warning is logged.
func (l *Loop) Post(fn func()) {
	select {
	case l.ready <- readyEvent{fn: fn}:
	default:
		l.logger.Warn("ready queue full, dropping posted event")
	}
}

// After schedules fn to run once, delay from now. Returns a cancellable
// handle.
func (l *Loop) After(delay time.Duration, fn func()) *Task {
	return l.schedule(delay, 0, fn)
}

// Every schedules fn to run repeatedly, every period, starting one period
// from now.
func (l *Loop) Every(period time.Duration, fn func()) *Task {
	return l.schedule(period, period, fn)
}

func (l *Loop) schedule(delay, period time.Duration, fn func()) *Task {
	l.nextID++
	id := l.nextID
	entry := &timerEntry{
		expiry: timeNow().Add(delay),
		period: period,
		fn:     fn,
		id:     id,
	}
	heap.Push(&l.wheel, entry)
	return &Task{
		id: id,
		cancel: func() {
			entry.canceled = true
		},
	}
}

// RegisterFD registers an external readiness source. The returned function
// must be called by the feeder goroutine each time the fd becomes readable;
// it wakes the loop, which then invokes onReady on its own goroutine.
func (l *Loop) RegisterFD(name string, onReady func()) (signal func()) {
	w := &fdWatch{name: name, readable: make(chan struct{}, 1), onReady: onReady}
	l.fds = append(l.fds, w)
	return func() {
		select {
		case w.readable <- struct{}{}:
		default:
		}
		l.Post(func() { w.onReady() })
	}
}

// Run executes posted events and due timers, and returns when ctx is
// canceled. Each turn runs either one posted event (fd callbacks arrive
// this way, via RegisterFD) or every timer that has expired.
func (l *Loop) Run(ctx context.Context) {
	for {
		timer := l.nextTimerChan()
		select {
		case <-ctx.Done():
			return
		case ev := <-l.ready:
			ev.fn()
		case <-timer:
			l.fireDueTimers()
		}
	}
}

// nextTimerChan returns a channel that fires when the earliest pending
// timer is due, or nil (never fires) if the wheel is empty.
func (l *Loop) nextTimerChan() <-chan time.Time {
	for len(l.wheel) > 0 && l.wheel[0].canceled {
		heap.Pop(&l.wheel)
	}
	if len(l.wheel) == 0 {
		return nil
	}
	d := l.wheel[0].expiry.Sub(timeNow())
	if d < 0 {
		d = 0
	}
	return time.After(d)
}

// fireDueTimers pops and runs every timer whose expiry has passed,
// re-arming periodic ones.
func (l *Loop) fireDueTimers() {
	now := timeNow()
	for len(l.wheel) > 0 {
		top := l.wheel[0]
		if top.canceled {
			heap.Pop(&l.wheel)
			continue
		}
		if top.expiry.After(now) {
			break
		}
		heap.Pop(&l.wheel)
		top.fn()
		if top.period > 0 && !top.canceled {
			top.expiry = now.Add(top.period)
			heap.Push(&l.wheel, top)
		}
	}
}

// timeNow is a seam for deterministic tests.
var timeNow = time.Now
