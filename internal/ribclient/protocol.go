// Package ribclient implements the length-prefixed binary wire protocol
// that carries installed routes out to the kernel RIB process and carries
// interface/address/redistribution events back in, the same message shape
// as Quagga zebra's zserv client protocol (zsend_ipv4_add/
// zsend_interface_add and friends), reworked as an explicit Go wire codec
// instead of a C struct stream.
package ribclient

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net/netip"

	"github.com/go-ospfd/ospfd/internal/ospf"
)

// Command identifies one message on the wire.
type Command uint8

const (
	CmdInterfaceAdd Command = iota + 1
	CmdInterfaceDelete
	CmdAddressAdd
	CmdAddressDelete
	CmdRouteAdd
	CmdRouteDelete
	CmdRedistributeRequest
	CmdRedistributeDefault
)

func (c Command) String() string {
	switch c {
	case CmdInterfaceAdd:
		return "INTERFACE_ADD"
	case CmdInterfaceDelete:
		return "INTERFACE_DELETE"
	case CmdAddressAdd:
		return "ADDRESS_ADD"
	case CmdAddressDelete:
		return "ADDRESS_DELETE"
	case CmdRouteAdd:
		return "ROUTE_ADD"
	case CmdRouteDelete:
		return "ROUTE_DELETE"
	case CmdRedistributeRequest:
		return "REDISTRIBUTE_REQUEST"
	case CmdRedistributeDefault:
		return "REDISTRIBUTE_DEFAULT"
	default:
		return fmt.Sprintf("Command(%d)", uint8(c))
	}
}

// maxPayload bounds a single message's payload so a corrupt length field
// cannot force an unbounded allocation.
const maxPayload = 65535

// header is the 3-byte framing prefix: 1-byte command, 2-byte big-endian
// payload length.
const headerSize = 3

// Message is one decoded frame: a command plus its opaque payload.
type Message struct {
	Cmd     Command
	Payload []byte
}

// WriteMessage frames and writes one message.
func WriteMessage(w io.Writer, msg Message) error {
	if len(msg.Payload) > maxPayload {
		return fmt.Errorf("ribclient: payload length %d exceeds maximum %d", len(msg.Payload), maxPayload)
	}

	var hdr [headerSize]byte
	hdr[0] = byte(msg.Cmd)
	binary.BigEndian.PutUint16(hdr[1:3], uint16(len(msg.Payload)))

	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("ribclient: write header: %w", err)
	}
	if len(msg.Payload) > 0 {
		if _, err := w.Write(msg.Payload); err != nil {
			return fmt.Errorf("ribclient: write payload: %w", err)
		}
	}
	return nil
}

// ReadMessage reads and decodes one framed message from r.
func ReadMessage(r *bufio.Reader) (Message, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Message{}, fmt.Errorf("ribclient: read header: %w", err)
	}

	length := binary.BigEndian.Uint16(hdr[1:3])
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Message{}, fmt.Errorf("ribclient: read payload: %w", err)
		}
	}

	return Message{Cmd: Command(hdr[0]), Payload: payload}, nil
}

// -------------------------------------------------------------------------
// Route add/delete payload
//
// prefix (5 bytes: 4-byte IPv4 address + 1-byte prefix length), 1-byte
// route type (mirrors ospf.RouteType), 4-byte big-endian cost, 1-byte
// next-hop count, then that many 4-byte IPv4 next-hop addresses. Route
// deletion carries only the 5-byte prefix (see EncodeRouteDeletePrefix).
// -------------------------------------------------------------------------

// EncodeRoute serializes one OSPF-computed route for a route-add message.
func EncodeRoute(route ospf.Route) ([]byte, error) {
	if !route.Prefix.Addr().Is4() {
		return nil, fmt.Errorf("ribclient: route prefix %s is not IPv4", route.Prefix)
	}

	buf := make([]byte, 0, 11+4*len(route.NextHops))
	addr4 := route.Prefix.Addr().As4()
	buf = append(buf, addr4[:]...)
	buf = append(buf, byte(route.Prefix.Bits()))
	buf = append(buf, byte(route.Type))

	var costField [4]byte
	binary.BigEndian.PutUint32(costField[:], route.Cost)
	buf = append(buf, costField[:]...)

	if len(route.NextHops) > 255 {
		return nil, fmt.Errorf("ribclient: route %s has %d next hops, maximum 255", route.Prefix, len(route.NextHops))
	}
	buf = append(buf, byte(len(route.NextHops)))
	for _, nh := range route.NextHops {
		if !nh.Addr.Is4() {
			return nil, fmt.Errorf("ribclient: next hop %s is not IPv4", nh.Addr)
		}
		nh4 := nh.Addr.As4()
		buf = append(buf, nh4[:]...)
	}
	return buf, nil
}

// DecodedRoute is the receiver-side view of a route-add/route-delete
// payload, used by test doubles and any future RIB-side consumer.
type DecodedRoute struct {
	Prefix   netip.Prefix
	Type     ospf.RouteType
	Cost     uint32
	NextHops []netip.Addr
}

// DecodeRoute parses the payload produced by EncodeRoute.
func DecodeRoute(payload []byte) (DecodedRoute, error) {
	const fixedLen = 4 + 1 + 1 + 4 + 1
	if len(payload) < fixedLen {
		return DecodedRoute{}, fmt.Errorf("ribclient: route payload too short: %d bytes", len(payload))
	}

	addr := netip.AddrFrom4([4]byte(payload[0:4]))
	bits := int(payload[4])
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return DecodedRoute{}, fmt.Errorf("ribclient: decode route prefix: %w", err)
	}

	routeType := ospf.RouteType(payload[5])
	cost := binary.BigEndian.Uint32(payload[6:10])
	count := int(payload[10])

	wantLen := fixedLen + count*4
	if len(payload) < wantLen {
		return DecodedRoute{}, fmt.Errorf("ribclient: route payload too short for %d next hops", count)
	}

	nextHops := make([]netip.Addr, 0, count)
	offset := fixedLen
	for i := 0; i < count; i++ {
		nextHops = append(nextHops, netip.AddrFrom4([4]byte(payload[offset:offset+4])))
		offset += 4
	}

	return DecodedRoute{Prefix: prefix, Type: routeType, Cost: cost, NextHops: nextHops}, nil
}

// EncodeRouteDeletePrefix serializes just the prefix for a route-delete
// message (5 bytes: address + prefix length).
func EncodeRouteDeletePrefix(prefix netip.Prefix) ([]byte, error) {
	if !prefix.Addr().Is4() {
		return nil, fmt.Errorf("ribclient: route prefix %s is not IPv4", prefix)
	}
	addr4 := prefix.Addr().As4()
	buf := make([]byte, 0, 5)
	buf = append(buf, addr4[:]...)
	buf = append(buf, byte(prefix.Bits()))
	return buf, nil
}

// DecodeRouteDeletePrefix parses the payload produced by
// EncodeRouteDeletePrefix.
func DecodeRouteDeletePrefix(payload []byte) (netip.Prefix, error) {
	if len(payload) < 5 {
		return netip.Prefix{}, fmt.Errorf("ribclient: route-delete payload too short: %d bytes", len(payload))
	}
	addr := netip.AddrFrom4([4]byte(payload[0:4]))
	return addr.Prefix(int(payload[4]))
}

// -------------------------------------------------------------------------
// Interface/address event payloads (RIB -> ospfd direction)
// -------------------------------------------------------------------------

// InterfaceEvent describes an interface-add/delete or address-add/delete
// notification received from the RIB client.
type InterfaceEvent struct {
	IfIndex int
	IfName  string
	Addr    netip.Prefix // zero value for interface-add/delete
}

// DecodeInterfaceEvent parses an interface-add/delete or
// address-add/delete payload: 4-byte ifindex, 1-byte name length, name,
// then (for address events) a 5-byte prefix.
func DecodeInterfaceEvent(cmd Command, payload []byte) (InterfaceEvent, error) {
	if len(payload) < 5 {
		return InterfaceEvent{}, fmt.Errorf("ribclient: interface event payload too short: %d bytes", len(payload))
	}

	ifIndex := int(binary.BigEndian.Uint32(payload[0:4]))
	nameLen := int(payload[4])
	if len(payload) < 5+nameLen {
		return InterfaceEvent{}, fmt.Errorf("ribclient: interface event payload too short for name")
	}
	ifName := string(payload[5 : 5+nameLen])

	ev := InterfaceEvent{IfIndex: ifIndex, IfName: ifName}

	if cmd == CmdAddressAdd || cmd == CmdAddressDelete {
		offset := 5 + nameLen
		if len(payload) < offset+5 {
			return InterfaceEvent{}, fmt.Errorf("ribclient: address event payload too short for prefix")
		}
		addr := netip.AddrFrom4([4]byte(payload[offset : offset+4]))
		bits := int(payload[offset+4])
		prefix := netip.PrefixFrom(addr, bits)
		if !prefix.IsValid() {
			return InterfaceEvent{}, fmt.Errorf("ribclient: decode address event prefix: invalid prefix length %d", bits)
		}
		ev.Addr = prefix
	}

	return ev, nil
}
