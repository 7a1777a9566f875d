package ospf

import (
	"log/slog"
	"sort"
	"time"

	"github.com/go-ospfd/ospfd/internal/sched"
)

// LSDB is a content-addressed link-state database for one scope (area,
// or AS). At most one instance per LSAKey is stored; Install replaces
// the stored instance at once and returns the prior one.
type LSDB struct {
	logger *slog.Logger
	scope  Scope

	entries map[LSAKey]*LSA

	sweepTask *sched.Task
	onExpiry  func(*LSA) // invoked when a MaxAge LSA becomes eligible for removal
}

// NewLSDB constructs an empty LSDB for the given scope.
func NewLSDB(scope Scope, logger *slog.Logger) *LSDB {
	return &LSDB{
		scope:   scope,
		logger:  logger,
		entries: make(map[LSAKey]*LSA),
	}
}

// Lookup returns the stored instance for key, or nil.
func (d *LSDB) Lookup(key LSAKey) *LSA {
	return d.entries[key]
}

// All returns every stored LSA, snapshotted so callers may safely mutate
// the LSDB while iterating.
func (d *LSDB) All() []*LSA {
	out := make([]*LSA, 0, len(d.entries))
	for _, lsa := range d.entries {
		out = append(out, lsa)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Header.Type != out[j].Header.Type {
			return out[i].Header.Type < out[j].Header.Type
		}
		if out[i].Header.LSID != out[j].Header.LSID {
			return out[i].Header.LSID < out[j].Header.LSID
		}
		return out[i].Header.AdvRouter < out[j].Header.AdvRouter
	})
	return out
}

// ByType returns every stored LSA of the given type, snapshotted.
func (d *LSDB) ByType(t LSType) []*LSA {
	var out []*LSA
	for _, lsa := range d.entries {
		if lsa.Header.Type == t {
			out = append(out, lsa)
		}
	}
	return out
}

// Install replaces the stored instance for lsa's key. The prior
// instance's retransmitRefs count is not carried over -- callers
// must have already drained or reassigned retransmit references before
// calling Install with a differing LSA (flood.go does this in the correct
// order per RFC 2328 Section 13 step 4). Returns the previous instance, or
// nil if this is a new key.
func (d *LSDB) Install(lsa *LSA) *LSA {
	key := lsa.Header.Key()
	prev := d.entries[key]
	lsa.installed = time.Now()
	d.entries[key] = lsa
	return prev
}

// Delete removes key from the LSDB unconditionally. Callers must ensure no
// neighbor retransmit list still references it.
func (d *LSDB) Delete(key LSAKey) {
	delete(d.entries, key)
}

// AddRetransmitRef increments the reference count used by the MaxAge
// sweep to decide eviction eligibility.
func (d *LSDB) AddRetransmitRef(key LSAKey) {
	if lsa := d.entries[key]; lsa != nil {
		lsa.retransmitRefs++
	}
}

// ReleaseRetransmitRef decrements the reference count; when it reaches
// zero and the LSA is at MaxAge, the next sweep evicts it.
func (d *LSDB) ReleaseRetransmitRef(key LSAKey) {
	if lsa := d.entries[key]; lsa != nil && lsa.retransmitRefs > 0 {
		lsa.retransmitRefs--
	}
}

// StartMaxAgeSweeper arms a periodic sweep that evicts every stored LSA
// whose age has reached MaxAge and which has zero retransmit-list
// holders. onExpiry is called once per evicted LSA, before removal, so
// the caller (Area/Router) can trigger re-origination or flush
// bookkeeping.
func (d *LSDB) StartMaxAgeSweeper(loop *sched.Loop, interval time.Duration, onExpiry func(*LSA)) {
	d.onExpiry = onExpiry
	d.sweepTask = loop.Every(interval, d.sweep)
}

func (d *LSDB) sweep() {
	for key, lsa := range d.entries {
		if !lsa.IsMaxAge() {
			continue
		}
		if lsa.retransmitRefs > 0 {
			continue
		}
		if d.onExpiry != nil {
			d.onExpiry(lsa)
		}
		delete(d.entries, key)
	}
}

// Tick increments every stored LSA's age by one second, capping at MaxAge
// (RFC 2328 Section 12.1.5 "the LS age field of each LSA ... must be
// incremented"). Called once per second by Router.
func (d *LSDB) Tick() {
	for _, lsa := range d.entries {
		if lsa.Header.Age < uint16(MaxAge/time.Second) {
			lsa.Header.Age++
		}
	}
}
