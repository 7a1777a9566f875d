//go:build linux

package netio

import (
	"fmt"
	"net"
	"net/netip"
	"sync"

	"golang.org/x/sys/unix"
)

// -------------------------------------------------------------------------
// LinuxOSPFConn — RFC 2328 Appendix A.1 socket requirements
// -------------------------------------------------------------------------

// LinuxOSPFConn implements OSPFConn using a raw IPPROTO_OSPFIGP socket
// bound to one interface, joined to the AllSPFRouters (224.0.0.5) and,
// when opened with joinDR (the interface may become DR/BDR), AllDRouters
// (224.0.0.6) multicast groups
// (RFC 2328 Section 8.1). Uses IP_PKTINFO-based metadata recovery and a
// socket-option Control callback, targeted at protocol 89.
type LinuxOSPFConn struct {
	conn    *net.IPConn
	ifName  string
	ifIndex int
	closed  bool
	mu      sync.Mutex
}

// ReadPacket reads one raw IP datagram (IP header included) and recovers
// its source/destination/interface via IP_PKTINFO ancillary data.
func (c *LinuxOSPFConn) ReadPacket(buf []byte) (int, PacketMeta, error) {
	oob := make([]byte, oobSize)

	n, oobn, _, src, err := c.conn.ReadMsgIP(buf, oob)
	if err != nil {
		return 0, PacketMeta{}, fmt.Errorf("read OSPF packet: %w", err)
	}

	meta := parseMeta(src, oob[:oobn])
	if meta.IfIndex == 0 {
		meta.IfIndex = c.ifIndex
	}
	return n, meta, nil
}

// WritePacket sends buf to dst. The kernel fills in the IP header
// (protocol 89, TTL/multicast-scope already configured at socket-open
// time per RFC 2328 Appendix A.1).
func (c *LinuxOSPFConn) WritePacket(buf []byte, dst netip.Addr) error {
	addr := &net.IPAddr{IP: dst.AsSlice()}
	if _, err := c.conn.WriteToIP(buf, addr); err != nil {
		return fmt.Errorf("write OSPF packet to %s: %w", dst, err)
	}
	return nil
}

// Close releases the underlying socket.
func (c *LinuxOSPFConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("close OSPF socket: %w", err)
	}
	return nil
}

// -------------------------------------------------------------------------
// Constructor
// -------------------------------------------------------------------------

// NewOSPFConn opens a raw IPPROTO_OSPFIGP socket bound to ifName, joins
// the AllSPFRouters group, and (when joinDR is true, i.e. this interface
// may become DR/BDR) the AllDRouters group (RFC 2328 Section 8.1).
func NewOSPFConn(ifName string, localAddr netip.Addr, joinDR bool) (*LinuxOSPFConn, error) {
	iface, err := net.InterfaceByName(ifName)
	if err != nil {
		return nil, fmt.Errorf("lookup interface %s: %w", ifName, err)
	}

	pc, err := net.ListenIP("ip4:ospfigp", &net.IPAddr{IP: localAddr.AsSlice()})
	if err != nil {
		return nil, fmt.Errorf("listen raw OSPF socket on %s: %w", ifName, err)
	}

	rc, err := pc.SyscallConn()
	if err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("raw conn for %s: %w", ifName, err)
	}

	var sockErr error
	ctrlErr := rc.Control(func(fd uintptr) {
		//nolint:gosec // G115: fd uintptr->int is safe; kernel FDs are always small positive integers.
		sockErr = configureOSPFSocket(int(fd), iface, joinDR)
	})
	if ctrlErr != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("raw conn control for %s: %w", ifName, ctrlErr)
	}
	if sockErr != nil {
		_ = pc.Close()
		return nil, sockErr
	}

	return &LinuxOSPFConn{conn: pc, ifName: ifName, ifIndex: iface.Index}, nil
}

// configureOSPFSocket applies RFC 2328 Appendix A.1's socket requirements:
// bind to the interface, join the two well-known multicast groups as
// needed, set outgoing TTL to 1, and request IP_PKTINFO so reads recover
// source/destination/interface.
func configureOSPFSocket(fd int, iface *net.Interface, joinDR bool) error {
	if err := unix.SetsockoptString(fd, unix.SOL_SOCKET, unix.SO_BINDTODEVICE, iface.Name); err != nil {
		return fmt.Errorf("set SO_BINDTODEVICE(%s): %w", iface.Name, err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("set SO_REUSEADDR: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_MULTICAST_TTL, int(MulticastTTL)); err != nil {
		return fmt.Errorf("set IP_MULTICAST_TTL: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_MULTICAST_IF, iface.Index); err != nil {
		//nolint:errcheck // best-effort: some kernels require IP_MULTICAST_IF via struct ip_mreqn instead of an ifindex int; SO_BINDTODEVICE already pins egress.
		_ = err
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_PKTINFO, 1); err != nil {
		return fmt.Errorf("set IP_PKTINFO: %w", err)
	}

	if err := joinMulticastGroup(fd, iface.Index, AllSPFRoutersIP); err != nil {
		return fmt.Errorf("join AllSPFRouters on %s: %w", iface.Name, err)
	}
	if joinDR {
		if err := joinMulticastGroup(fd, iface.Index, AllDRoutersIP); err != nil {
			return fmt.Errorf("join AllDRouters on %s: %w", iface.Name, err)
		}
	}
	return nil
}

// joinMulticastGroup issues IP_ADD_MEMBERSHIP for group on the interface
// identified by ifIndex (RFC 2328 Section 8.1's "join the appropriate
// IP multicast groups").
func joinMulticastGroup(fd int, ifIndex int, group string) error {
	addr, err := netip.ParseAddr(group)
	if err != nil {
		return fmt.Errorf("parse multicast group %s: %w", group, err)
	}
	mreq := &unix.IPMreqn{
		Multiaddr: addr.As4(),
		Ifindex:   int32(ifIndex), //nolint:gosec // G115: interface indexes are small positive integers
	}
	return unix.SetsockoptIPMreqn(fd, unix.IPPROTO_IP, unix.IP_ADD_MEMBERSHIP, mreq)
}

// -------------------------------------------------------------------------
// Ancillary data parsing (IP_PKTINFO)
// -------------------------------------------------------------------------

// oobSize is sized for one IP_PKTINFO control message (struct in_pktinfo,
// 12 bytes of payload plus cmsghdr).
const oobSize = 64

// parseMeta extracts the source address and IP_PKTINFO destination/ifindex
// from one recvmsg ancillary-data buffer.
func parseMeta(src *net.IPAddr, oob []byte) PacketMeta {
	meta := PacketMeta{}
	if src != nil {
		if addr, ok := netip.AddrFromSlice(src.IP); ok {
			meta.SrcAddr = addr.Unmap()
		}
	}

	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return meta
	}
	for i := range msgs {
		if msgs[i].Header.Level == unix.IPPROTO_IP && msgs[i].Header.Type == unix.IP_PKTINFO {
			parsePktInfoMessage(msgs[i].Data, &meta)
		}
	}
	return meta
}

// parsePktInfoMessage decodes struct in_pktinfo (12 bytes: ifindex,
// spec_dst, addr) to recover the destination address and interface index.
func parsePktInfoMessage(data []byte, meta *PacketMeta) {
	const pktInfoSize = 12
	if len(data) < pktInfoSize {
		return
	}
	ifIdx := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
	meta.IfIndex = int(ifIdx)

	var ip4 [4]byte
	copy(ip4[:], data[8:12])
	meta.DstAddr = netip.AddrFrom4(ip4)
}
