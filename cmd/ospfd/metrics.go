package main

import (
	"context"
	"time"

	"github.com/go-ospfd/ospfd/internal/config"
	metrics "github.com/go-ospfd/ospfd/internal/metrics"
	"github.com/go-ospfd/ospfd/internal/ospf"
)

// metricsPollInterval is how often the gauge-style metrics (neighbor
// counts, LSDB size, is_abr) are refreshed from a Router snapshot. Counter
// and histogram metrics (SPF runs, retransmissions, flooded LSAs) are
// event-driven and have no home here yet -- see DESIGN.md.
const metricsPollInterval = 5 * time.Second

// runMetricsPoller periodically reads router state via Router.Call and
// updates collector's gauges. Polling rather than push-style hooks avoids
// adding a metrics dependency to internal/ospf.
func runMetricsPoller(ctx context.Context, router *ospf.Router, collector *metrics.Collector) error {
	ticker := time.NewTicker(metricsPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			pollMetricsOnce(router, collector)
		}
	}
}

func pollMetricsOnce(router *ospf.Router, collector *metrics.Collector) {
	router.Call(func() {
		collector.SetIsABR(router.IsABR())
		for _, area := range router.AreaSnapshots() {
			areaID, err := config.RouterIDValue(area.ID)
			if err != nil {
				continue
			}
			lsTypeCounts := make(map[string]int)
			for _, lsa := range router.LSDBSnapshots(areaID) {
				lsTypeCounts[lsa.Type]++
			}
			for lsType, count := range lsTypeCounts {
				collector.SetLSDBEntries(area.ID, lsType, count)
			}
			for _, iface := range area.Interfaces {
				full := 0
				for _, nbr := range iface.Neighbors {
					if nbr.State == "Full" {
						full++
					}
				}
				collector.SetNeighborsFull(area.ID, iface.Name, full)
			}
		}
	})
}
