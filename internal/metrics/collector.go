package ospfmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "ospfd"
	subsystem = "ospf"
)

// Label names for OSPF metrics.
const (
	labelArea       = "area"
	labelIface      = "iface"
	labelNeighborID = "neighbor_id"
	labelFromState  = "from_state"
	labelToState    = "to_state"
	labelLSType     = "ls_type"
)

// -------------------------------------------------------------------------
// Collector — Prometheus OSPF Metrics
// -------------------------------------------------------------------------

// Collector holds all OSPF Prometheus metrics.
//
// Metrics are designed for production ISP/DC monitoring:
//   - Neighbor gauges track adjacencies and their FSM state.
//   - LSDB gauges track database size per area and LSA type.
//   - SPF counters/histograms track recomputation frequency and cost.
//   - Flooding/retransmission counters flag unstable links.
type Collector struct {
	// NeighborsFull tracks the number of neighbors currently in NbrFull,
	// labeled by area and interface. Used to alert on adjacency loss.
	NeighborsFull *prometheus.GaugeVec

	// NeighborStateTransitions counts NSM state transitions (RFC 2328
	// Section 10.1), labeled with the old and new state for alerting
	// (e.g. Full->Down flaps).
	NeighborStateTransitions *prometheus.CounterVec

	// InterfaceStateTransitions counts ISM state transitions
	// (RFC 2328 Section 9.1), e.g. DR election churn.
	InterfaceStateTransitions *prometheus.CounterVec

	// LSDBEntries tracks the number of LSAs currently held per area and
	// LS type.
	LSDBEntries *prometheus.GaugeVec

	// SPFRuns counts full SPF recomputations (RFC 2328 Section 16).
	SPFRuns prometheus.Counter

	// SPFDuration observes the wall-clock time spent per SPF run.
	SPFDuration prometheus.Histogram

	// FloodedLSAs counts LSAs transmitted during reliable flooding
	// (RFC 2328 Section 13.3), labeled by interface.
	FloodedLSAs *prometheus.CounterVec

	// Retransmissions counts LSU retransmissions on the per-neighbor
	// retransmission list (RFC 2328 Section 13.3), labeled by neighbor.
	Retransmissions *prometheus.CounterVec

	// RouterIsABR reports (as 0/1) whether this process is currently
	// acting as an area border router (RFC 2328 Section 3).
	RouterIsABR prometheus.Gauge
}

// NewCollector creates a Collector with all OSPF metrics registered against
// the provided prometheus.Registerer. If reg is nil, prometheus.DefaultRegisterer
// is used.
//
// All metrics are created with the "ospfd_ospf_" prefix (namespace_subsystem)
// to avoid collisions with other exporters.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.NeighborsFull,
		c.NeighborStateTransitions,
		c.InterfaceStateTransitions,
		c.LSDBEntries,
		c.SPFRuns,
		c.SPFDuration,
		c.FloodedLSAs,
		c.Retransmissions,
		c.RouterIsABR,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	areaIfaceLabels := []string{labelArea, labelIface}
	transitionLabels := []string{labelArea, labelIface, labelFromState, labelToState}
	lsdbLabels := []string{labelArea, labelLSType}
	ifaceLabels := []string{labelIface}
	neighborLabels := []string{labelArea, labelIface, labelNeighborID}

	return &Collector{
		NeighborsFull: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "neighbors_full",
			Help:      "Number of neighbors currently in the Full state, per area and interface.",
		}, areaIfaceLabels),

		NeighborStateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "neighbor_state_transitions_total",
			Help:      "Total neighbor state machine transitions (RFC 2328 Section 10.1).",
		}, transitionLabels),

		InterfaceStateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "interface_state_transitions_total",
			Help:      "Total interface state machine transitions (RFC 2328 Section 9.1).",
		}, transitionLabels),

		LSDBEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "lsdb_entries",
			Help:      "Number of LSAs currently held in the link-state database, per area and LS type.",
		}, lsdbLabels),

		SPFRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "spf_runs_total",
			Help:      "Total full SPF (Dijkstra) recomputations (RFC 2328 Section 16).",
		}),

		SPFDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "spf_duration_seconds",
			Help:      "Wall-clock time spent computing the routing table per SPF run.",
			Buckets:   prometheus.DefBuckets,
		}),

		FloodedLSAs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "flooded_lsas_total",
			Help:      "Total LSAs transmitted during reliable flooding (RFC 2328 Section 13.3).",
		}, ifaceLabels),

		Retransmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "retransmissions_total",
			Help:      "Total LSU retransmissions from a neighbor's retransmission list.",
		}, neighborLabels),

		RouterIsABR: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "is_abr",
			Help:      "1 if this process is currently acting as an area border router, else 0.",
		}),
	}
}

// -------------------------------------------------------------------------
// Neighbor Lifecycle
// -------------------------------------------------------------------------

// SetNeighborsFull sets the Full-state neighbor gauge for the given area
// and interface. Called by ospfd's periodic metrics poller.
func (c *Collector) SetNeighborsFull(area string, iface string, count int) {
	c.NeighborsFull.WithLabelValues(area, iface).Set(float64(count))
}

// RecordNeighborTransition increments the neighbor state transition
// counter with the old and new state labels. Used for alerting on
// adjacency flaps (e.g. Full->Down triggering an SPF storm).
func (c *Collector) RecordNeighborTransition(area, iface string, from, to string) {
	c.NeighborStateTransitions.WithLabelValues(area, iface, from, to).Inc()
}

// -------------------------------------------------------------------------
// Interface Lifecycle
// -------------------------------------------------------------------------

// RecordInterfaceTransition increments the interface state transition
// counter with the old and new state labels, e.g. DR election churn.
func (c *Collector) RecordInterfaceTransition(area, iface string, from, to string) {
	c.InterfaceStateTransitions.WithLabelValues(area, iface, from, to).Inc()
}

// -------------------------------------------------------------------------
// LSDB / SPF
// -------------------------------------------------------------------------

// SetLSDBEntries sets the LSDB size gauge for the given area and LS type.
func (c *Collector) SetLSDBEntries(area string, lsType string, count int) {
	c.LSDBEntries.WithLabelValues(area, lsType).Set(float64(count))
}

// IncSPFRuns increments the SPF run counter.
func (c *Collector) IncSPFRuns() {
	c.SPFRuns.Inc()
}

// ObserveSPFDuration records the wall-clock time, in seconds, spent on one
// SPF run.
func (c *Collector) ObserveSPFDuration(seconds float64) {
	c.SPFDuration.Observe(seconds)
}

// -------------------------------------------------------------------------
// Flooding
// -------------------------------------------------------------------------

// IncFloodedLSAs increments the flooded-LSA counter for the given interface.
func (c *Collector) IncFloodedLSAs(iface string) {
	c.FloodedLSAs.WithLabelValues(iface).Inc()
}

// IncRetransmissions increments the retransmission counter for the given
// area, interface, and neighbor router-id.
func (c *Collector) IncRetransmissions(area, iface, neighborID string) {
	c.Retransmissions.WithLabelValues(area, iface, neighborID).Inc()
}

// -------------------------------------------------------------------------
// Router
// -------------------------------------------------------------------------

// SetIsABR sets the is_abr gauge to 1 or 0.
func (c *Collector) SetIsABR(isABR bool) {
	if isABR {
		c.RouterIsABR.Set(1)
		return
	}
	c.RouterIsABR.Set(0)
}
