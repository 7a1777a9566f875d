package ribclient_test

import (
	"bufio"
	"bytes"
	"net/netip"
	"testing"

	"github.com/go-ospfd/ospfd/internal/ospf"
	"github.com/go-ospfd/ospfd/internal/ribclient"
)

func TestWriteReadMessageRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	want := ribclient.Message{Cmd: ribclient.CmdRouteAdd, Payload: []byte{1, 2, 3, 4}}
	if err := ribclient.WriteMessage(&buf, want); err != nil {
		t.Fatalf("WriteMessage() error: %v", err)
	}

	got, err := ribclient.ReadMessage(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ReadMessage() error: %v", err)
	}
	if got.Cmd != want.Cmd {
		t.Errorf("Cmd = %v, want %v", got.Cmd, want.Cmd)
	}
	if !bytes.Equal(got.Payload, want.Payload) {
		t.Errorf("Payload = %v, want %v", got.Payload, want.Payload)
	}
}

func TestWriteMessageEmptyPayload(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := ribclient.WriteMessage(&buf, ribclient.Message{Cmd: ribclient.CmdRedistributeDefault}); err != nil {
		t.Fatalf("WriteMessage() error: %v", err)
	}

	got, err := ribclient.ReadMessage(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ReadMessage() error: %v", err)
	}
	if got.Cmd != ribclient.CmdRedistributeDefault || len(got.Payload) != 0 {
		t.Errorf("got %+v, want empty REDISTRIBUTE_DEFAULT", got)
	}
}

func TestEncodeDecodeRoute(t *testing.T) {
	t.Parallel()

	route := ospf.Route{
		Prefix: netip.MustParsePrefix("10.1.0.0/16"),
		Type:   ospf.RouteInterArea,
		Cost:   25,
		NextHops: []ospf.NextHop{
			{Addr: netip.MustParseAddr("10.0.0.2")},
			{Addr: netip.MustParseAddr("10.0.0.3")},
		},
	}

	payload, err := ribclient.EncodeRoute(route)
	if err != nil {
		t.Fatalf("EncodeRoute() error: %v", err)
	}

	got, err := ribclient.DecodeRoute(payload)
	if err != nil {
		t.Fatalf("DecodeRoute() error: %v", err)
	}
	if got.Prefix != route.Prefix {
		t.Errorf("Prefix = %s, want %s", got.Prefix, route.Prefix)
	}
	if got.Type != route.Type {
		t.Errorf("Type = %v, want %v", got.Type, route.Type)
	}
	if got.Cost != route.Cost {
		t.Errorf("Cost = %d, want %d", got.Cost, route.Cost)
	}
	if len(got.NextHops) != 2 {
		t.Fatalf("NextHops len = %d, want 2", len(got.NextHops))
	}
	if got.NextHops[0] != netip.MustParseAddr("10.0.0.2") {
		t.Errorf("NextHops[0] = %s, want 10.0.0.2", got.NextHops[0])
	}
}

func TestEncodeRouteRejectsIPv6(t *testing.T) {
	t.Parallel()

	route := ospf.Route{Prefix: netip.MustParsePrefix("2001:db8::/32")}
	if _, err := ribclient.EncodeRoute(route); err == nil {
		t.Fatal("EncodeRoute() with IPv6 prefix returned nil error, want error")
	}
}

func TestEncodeDecodeRouteDeletePrefix(t *testing.T) {
	t.Parallel()

	prefix := netip.MustParsePrefix("192.168.1.0/24")
	payload, err := ribclient.EncodeRouteDeletePrefix(prefix)
	if err != nil {
		t.Fatalf("EncodeRouteDeletePrefix() error: %v", err)
	}

	got, err := ribclient.DecodeRouteDeletePrefix(payload)
	if err != nil {
		t.Fatalf("DecodeRouteDeletePrefix() error: %v", err)
	}
	if got != prefix {
		t.Errorf("got %s, want %s", got, prefix)
	}
}

func TestDecodeInterfaceEvent(t *testing.T) {
	t.Parallel()

	payload := []byte{0, 0, 0, 7, 3, 'e', 't', 'h'}
	ev, err := ribclient.DecodeInterfaceEvent(ribclient.CmdInterfaceAdd, payload)
	if err != nil {
		t.Fatalf("DecodeInterfaceEvent() error: %v", err)
	}
	if ev.IfIndex != 7 {
		t.Errorf("IfIndex = %d, want 7", ev.IfIndex)
	}
	if ev.IfName != "eth" {
		t.Errorf("IfName = %q, want eth", ev.IfName)
	}
}

func TestDecodeAddressEvent(t *testing.T) {
	t.Parallel()

	payload := []byte{0, 0, 0, 7, 3, 'e', 't', 'h', 10, 0, 0, 1, 24}
	ev, err := ribclient.DecodeInterfaceEvent(ribclient.CmdAddressAdd, payload)
	if err != nil {
		t.Fatalf("DecodeInterfaceEvent() error: %v", err)
	}
	if ev.Addr != netip.MustParsePrefix("10.0.0.1/24") {
		t.Errorf("Addr = %s, want 10.0.0.1/24", ev.Addr)
	}
}

func TestDecodeRouteTooShort(t *testing.T) {
	t.Parallel()

	if _, err := ribclient.DecodeRoute([]byte{1, 2, 3}); err == nil {
		t.Fatal("DecodeRoute() with short payload returned nil error, want error")
	}
}
