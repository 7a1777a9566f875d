// Package sched implements the single-threaded cooperative event loop that
// drives the OSPF engine.
//
// A Loop holds a ready-event FIFO and a timer heap keyed by absolute
// expiry. Each turn runs either one posted event or every expired timer;
// the ready FIFO is not drained in a single turn. File-descriptor
// readiness has no queue of its own: the signal function returned by
// RegisterFD posts the fd's callback onto the ready FIFO. Callbacks must
// not block; long-running work re-arms a one-shot event instead.
package sched
