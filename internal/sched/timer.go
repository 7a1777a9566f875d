package sched

import (
	"container/heap"
	"time"
)

// timerEntry is one pending timer in the wheel, ordered by absolute expiry.
type timerEntry struct {
	expiry   time.Time
	period   time.Duration // zero for one-shot
	fn       func()
	id       uint64
	canceled bool
	index    int // heap index, maintained by container/heap
}

// timerWheel is a min-heap of timerEntry keyed by absolute expiry time.
// Despite the name, this is a classic timer heap rather than a bucketed
// wheel -- the right data structure for a handful of per-interface/neighbor
// timers rather than the tens of thousands of entries a bucketed wheel is
// built for.
type timerWheel []*timerEntry

func (w timerWheel) Len() int { return len(w) }
func (w timerWheel) Less(i, j int) bool { return w[i].expiry.Before(w[j].expiry) }
func (w timerWheel) Swap(i, j int) {
	w[i], w[j] = w[j], w[i]
	w[i].index, w[j].index = i, j
}

func (w *timerWheel) Push(x any) {
	e := x.(*timerEntry) //nolint:forcetypeassert // heap.Interface contract
	e.index = len(*w)
	*w = append(*w, e)
}

func (w *timerWheel) Pop() any {
	old := *w
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*w = old[:n-1]
	return e
}

var _ heap.Interface = (*timerWheel)(nil)
