package netio

import (
	"errors"
	"net/netip"
)

// -------------------------------------------------------------------------
// OSPFv2 Transport Constants — RFC 2328 Appendix A.1, Section 8.1
// -------------------------------------------------------------------------

const (
	// IPProtoOSPF is the IP protocol number OSPFv2 runs directly over
	// (RFC 2328 Appendix A.1: "OSPF runs directly over IP, using IP
	// protocol 89").
	IPProtoOSPF = 89

	// MulticastTTL is the IP TTL used for all multicast OSPF packets
	// (RFC 2328 Appendix A.1: "the IP TTL ... to 1" for multicast
	// AllSPFRouters/AllDRouters destinations).
	MulticastTTL uint8 = 1

	// UnicastTTL is not applied by this package: sockets set only
	// IP_MULTICAST_TTL, so unicast packets (virtual links included, which
	// RFC 2328 Section 15 requires be unicast) leave with the kernel's
	// default unicast TTL.
	UnicastTTL uint8 = 1

	// AllSPFRoutersIP is the well-known multicast group every OSPF
	// interface joins (RFC 2328 Appendix A.1).
	AllSPFRoutersIP = "224.0.0.5"

	// AllDRoutersIP is the well-known multicast group joined only by
	// interfaces where this router may become DR/BDR (RFC 2328
	// Appendix A.1).
	AllDRoutersIP = "224.0.0.6"
)

// -------------------------------------------------------------------------
// Transport Metadata
// -------------------------------------------------------------------------

// PacketMeta carries transport-layer metadata recovered from a raw IP
// socket's ancillary data (IP_PKTINFO).
type PacketMeta struct {
	// SrcAddr is the source address from the IP header.
	SrcAddr netip.Addr

	// DstAddr is this packet's IP destination, recovered via IP_PKTINFO:
	// distinguishes a unicast-addressed packet from one sent to
	// AllSPFRouters (224.0.0.5) or AllDRouters (224.0.0.6).
	DstAddr netip.Addr

	// IfIndex is the interface index the packet arrived on.
	IfIndex int
}

// -------------------------------------------------------------------------
// OSPFConn Interface
// -------------------------------------------------------------------------

// OSPFConn abstracts raw-IP OSPF packet send/receive over protocol 89.
// Kept minimal so tests can substitute an in-memory fake without
// CAP_NET_RAW.
type OSPFConn interface {
	// ReadPacket reads one IP datagram (header included, since raw IPv4
	// sockets deliver the IP header to userspace) into buf.
	ReadPacket(buf []byte) (n int, meta PacketMeta, err error)

	// WritePacket sends buf (the OSPF packet body, header NOT included —
	// the kernel fills in the IP header) to dst over the interface this
	// conn is bound to.
	WritePacket(buf []byte, dst netip.Addr) error

	// Close releases the underlying socket.
	Close() error
}

var (
	// ErrSocketClosed indicates an operation on a closed socket.
	ErrSocketClosed = errors.New("socket closed")

	// ErrUnexpectedConnType is returned by Listener.Recv when the read
	// buffer pool yields a value that is not a *[]byte.
	ErrUnexpectedConnType = errors.New("unexpected connection type from ListenPacket")
)
