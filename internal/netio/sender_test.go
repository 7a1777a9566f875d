package netio_test

import (
	"io"
	"log/slog"
	"net/netip"
	"testing"

	"github.com/go-ospfd/ospfd/internal/netio"
	"github.com/go-ospfd/ospfd/internal/ospf"
	"github.com/go-ospfd/ospfd/internal/sched"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherFlushSendsQueuedPacket(t *testing.T) {
	t.Parallel()

	loop := sched.NewLoop(discardLogger(), 16)
	router := ospf.NewRouter(ospf.RouterConfig{RouterID: 0x01010101}, loop, nil, nil, discardLogger())
	area := ospf.NewArea(0, ospf.AreaDefault, discardLogger())
	router.AddArea(area)

	iface := ospf.NewInterface(ospf.IfConfig{
		Name: "eth0",
		Type: ospf.IfTypeBroadcast,
		Addr: netip.MustParsePrefix("10.0.0.1/24"),
	}, area, router, discardLogger())
	area.AddInterface(iface)

	iface.Deliver(ospf.IfEventInterfaceUp)
	iface.SendHello()

	if iface.PopOutbound() == nil {
		t.Fatal("expected a queued hello packet after SendHello, got none")
	}

	// Re-enqueue: PopOutbound above drained it, so send another for the
	// dispatcher to actually flush.
	iface.SendHello()

	conn := NewMockOSPFConn()
	ln := netio.NewListenerFromConn(conn, "eth0")

	disp := netio.NewDispatcher(discardLogger())
	disp.Register("eth0", ln)
	disp.Flush(iface)

	if len(conn.Written) != 1 {
		t.Fatalf("Written count = %d, want 1", len(conn.Written))
	}
	if conn.Written[0].Dst.String() != "224.0.0.5" {
		t.Errorf("Written[0].Dst = %s, want 224.0.0.5", conn.Written[0].Dst)
	}
}

func TestDispatcherFlushUnregisteredInterfaceIsNoop(t *testing.T) {
	t.Parallel()

	loop := sched.NewLoop(discardLogger(), 16)
	router := ospf.NewRouter(ospf.RouterConfig{RouterID: 0x01010101}, loop, nil, nil, discardLogger())
	area := ospf.NewArea(0, ospf.AreaDefault, discardLogger())
	router.AddArea(area)
	iface := ospf.NewInterface(ospf.IfConfig{Name: "eth1", Type: ospf.IfTypeBroadcast, Addr: netip.MustParsePrefix("10.0.1.1/24")}, area, router, discardLogger())
	area.AddInterface(iface)

	disp := netio.NewDispatcher(discardLogger())
	// No Register call: Flush must not panic, just log and return.
	disp.Flush(iface)
}
