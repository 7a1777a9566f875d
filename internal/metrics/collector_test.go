package ospfmetrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	ospfmetrics "github.com/go-ospfd/ospfd/internal/metrics"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := ospfmetrics.NewCollector(reg)

	if c.NeighborsFull == nil {
		t.Error("NeighborsFull is nil")
	}
	if c.NeighborStateTransitions == nil {
		t.Error("NeighborStateTransitions is nil")
	}
	if c.InterfaceStateTransitions == nil {
		t.Error("InterfaceStateTransitions is nil")
	}
	if c.LSDBEntries == nil {
		t.Error("LSDBEntries is nil")
	}
	if c.SPFRuns == nil {
		t.Error("SPFRuns is nil")
	}
	if c.SPFDuration == nil {
		t.Error("SPFDuration is nil")
	}
	if c.FloodedLSAs == nil {
		t.Error("FloodedLSAs is nil")
	}
	if c.Retransmissions == nil {
		t.Error("Retransmissions is nil")
	}
	if c.RouterIsABR == nil {
		t.Error("RouterIsABR is nil")
	}

	// Verify all metrics are registered by gathering them.
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	// No data yet, so families may be empty -- but registration must not panic.
	_ = families
}

func TestSetNeighborsFull(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := ospfmetrics.NewCollector(reg)

	c.SetNeighborsFull("0.0.0.0", "eth0", 2)

	val := gaugeValue(t, c.NeighborsFull, "0.0.0.0", "eth0")
	if val != 2 {
		t.Errorf("NeighborsFull = %v, want 2", val)
	}

	c.SetNeighborsFull("0.0.0.0", "eth0", 1)

	val = gaugeValue(t, c.NeighborsFull, "0.0.0.0", "eth0")
	if val != 1 {
		t.Errorf("NeighborsFull after update = %v, want 1", val)
	}
}

func TestNeighborStateTransition(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := ospfmetrics.NewCollector(reg)

	c.RecordNeighborTransition("0.0.0.0", "eth0", "TwoWay", "ExStart")
	c.RecordNeighborTransition("0.0.0.0", "eth0", "TwoWay", "ExStart")
	c.RecordNeighborTransition("0.0.0.0", "eth0", "Full", "Down")

	val := counterValue(t, c.NeighborStateTransitions, "0.0.0.0", "eth0", "TwoWay", "ExStart")
	if val != 2 {
		t.Errorf("NeighborStateTransitions(TwoWay->ExStart) = %v, want 2", val)
	}

	val = counterValue(t, c.NeighborStateTransitions, "0.0.0.0", "eth0", "Full", "Down")
	if val != 1 {
		t.Errorf("NeighborStateTransitions(Full->Down) = %v, want 1", val)
	}
}

func TestInterfaceStateTransition(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := ospfmetrics.NewCollector(reg)

	c.RecordInterfaceTransition("0.0.0.0", "eth0", "Waiting", "DR")

	val := counterValue(t, c.InterfaceStateTransitions, "0.0.0.0", "eth0", "Waiting", "DR")
	if val != 1 {
		t.Errorf("InterfaceStateTransitions(Waiting->DR) = %v, want 1", val)
	}
}

func TestLSDBEntries(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := ospfmetrics.NewCollector(reg)

	c.SetLSDBEntries("0.0.0.0", "RouterLSA", 5)

	val := gaugeValue(t, c.LSDBEntries, "0.0.0.0", "RouterLSA")
	if val != 5 {
		t.Errorf("LSDBEntries = %v, want 5", val)
	}
}

func TestSPFCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := ospfmetrics.NewCollector(reg)

	c.IncSPFRuns()
	c.IncSPFRuns()
	c.ObserveSPFDuration(0.042)

	m := &dto.Metric{}
	if err := c.SPFRuns.Write(m); err != nil {
		t.Fatalf("Write SPFRuns: %v", err)
	}
	if got := m.GetCounter().GetValue(); got != 2 {
		t.Errorf("SPFRuns = %v, want 2", got)
	}

	hm := &dto.Metric{}
	if err := c.SPFDuration.Write(hm); err != nil {
		t.Fatalf("Write SPFDuration: %v", err)
	}
	if got := hm.GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("SPFDuration sample count = %v, want 1", got)
	}
}

func TestFloodingCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := ospfmetrics.NewCollector(reg)

	c.IncFloodedLSAs("eth0")
	c.IncFloodedLSAs("eth0")
	c.IncFloodedLSAs("eth0")

	val := counterValue(t, c.FloodedLSAs, "eth0")
	if val != 3 {
		t.Errorf("FloodedLSAs = %v, want 3", val)
	}

	c.IncRetransmissions("0.0.0.0", "eth0", "1.1.1.1")

	val = counterValue(t, c.Retransmissions, "0.0.0.0", "eth0", "1.1.1.1")
	if val != 1 {
		t.Errorf("Retransmissions = %v, want 1", val)
	}
}

func TestSetIsABR(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := ospfmetrics.NewCollector(reg)

	c.SetIsABR(true)

	m := &dto.Metric{}
	if err := c.RouterIsABR.Write(m); err != nil {
		t.Fatalf("Write RouterIsABR: %v", err)
	}
	if got := m.GetGauge().GetValue(); got != 1 {
		t.Errorf("RouterIsABR = %v, want 1", got)
	}

	c.SetIsABR(false)

	m = &dto.Metric{}
	if err := c.RouterIsABR.Write(m); err != nil {
		t.Fatalf("Write RouterIsABR: %v", err)
	}
	if got := m.GetGauge().GetValue(); got != 0 {
		t.Errorf("RouterIsABR = %v, want 0", got)
	}
}

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

// gaugeValue reads the current value of a GaugeVec with the given labels.
func gaugeValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()

	gauge, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := gauge.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetGauge().GetValue()
}

// counterValue reads the current value of a CounterVec with the given labels.
func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetCounter().GetValue()
}
