package ospf

import "time"

// -------------------------------------------------------------------------
// Protocol Constants — RFC 2328 Appendix A / Section 13
// -------------------------------------------------------------------------

const (
	// Version is the OSPF version field value for OSPFv2 (RFC 2328 Appendix A.3.1).
	Version uint8 = 2

	// HeaderSize is the size in bytes of the fixed OSPF packet header
	// (RFC 2328 Appendix A.3.1).
	HeaderSize = 24

	// LSAHeaderSize is the size in bytes of the fixed LSA header
	// (RFC 2328 Appendix A.4.1).
	LSAHeaderSize = 20

	// MaxAge is the age in seconds at which an LSA is considered to have
	// reached its maximum and is eligible for flushing (RFC 2328 Section 13.1).
	MaxAge = 3600 * time.Second

	// MaxAgeDiff is the minimum age delta, in seconds, required to break a
	// tie between two LSA instances whose sequence number and checksum are
	// equal (RFC 2328 Section 13.1, rule 5).
	MaxAgeDiff = 15 * time.Second

	// LSRefreshTime is the interval after which a self-originated LSA is
	// re-originated with an incremented sequence number (RFC 2328 Section 12.1.6).
	LSRefreshTime = 1800 * time.Second

	// LSRefreshShift spreads the refresh wheel buckets beyond LSRefreshTime
	// so that not every self-originated LSA lands in the same bucket.
	LSRefreshShift = 5 * time.Second

	// MinLSInterval is the minimum time between originating successive
	// instances of the same self-originated LSA (RFC 2328 Section 13.3).
	MinLSInterval = 5 * time.Second

	// MinLSArrival is the minimum time between accepting successive
	// instances of the same received LSA (RFC 2328 Section 13).
	MinLSArrival = 1 * time.Second

	// InitialSequenceNumber is the first sequence number used for a newly
	// originated LSA (RFC 2328 Section 12.1.6).
	InitialSequenceNumber int32 = -0x7fffffff // 0x80000001

	// MaxSequenceNumber is the largest valid LSA sequence number
	// (RFC 2328 Section 12.1.6); 0x7fffffff.
	MaxSequenceNumber int32 = 0x7fffffff

	// LSInfinity is the metric value representing an unreachable destination
	// (RFC 2328 Section 12.1.3.1, 16.3).
	LSInfinity = 0xffffff

	// DefaultRefBandwidth is the default reference bandwidth in Mbps used to
	// derive interface cost from configured bandwidth when no explicit cost
	// is configured.
	DefaultRefBandwidth = 100

	// AllSPFRoutersIP is the multicast group all OSPF routers listen on
	// (RFC 2328 Appendix A.1).
	AllSPFRoutersIP = "224.0.0.5"

	// AllDRoutersIP is the multicast group the DR/BDR listens on in addition
	// to AllSPFRoutersIP (RFC 2328 Appendix A.1).
	AllDRoutersIP = "224.0.0.6"

	// BackboneAreaID is the reserved area identifier for the backbone
	// (RFC 2328 Section 3).
	BackboneAreaID uint32 = 0

	// SlotsCount is the number of buckets in the refresh wheel, spanning
	// LSRefreshTime+LSRefreshShift seconds at 10-second granularity.
	SlotsCount = int((LSRefreshTime + LSRefreshShift) / (10 * time.Second))

	// RxmtIntervalDefault is the default per-interface retransmit interval
	// (RFC 2328 Appendix C.3).
	RxmtIntervalDefault = 5 * time.Second
)

// PacketType identifies an OSPF packet's Type field (RFC 2328 Appendix A.3.1).
type PacketType uint8

// OSPF packet types.
const (
	PacketHello PacketType = iota + 1
	PacketDBD
	PacketLSRequest
	PacketLSUpdate
	PacketLSAck
)

// String returns the human-readable packet type name.
func (t PacketType) String() string {
	switch t {
	case PacketHello:
		return "Hello"
	case PacketDBD:
		return "DatabaseDescription"
	case PacketLSRequest:
		return "LSRequest"
	case PacketLSUpdate:
		return "LSUpdate"
	case PacketLSAck:
		return "LSAck"
	default:
		return "Unknown"
	}
}

// LSType identifies an LSA's Type field (RFC 2328 Appendix A.4.1).
type LSType uint8

// LSA types.
const (
	LSTypeRouter LSType = iota + 1
	LSTypeNetwork
	LSTypeSummaryNet
	LSTypeSummaryASBR
	LSTypeASExternal
	_ // 6: group-membership, not implemented
	LSTypeNSSA
)

// String returns the human-readable LSA type name.
func (t LSType) String() string {
	switch t {
	case LSTypeRouter:
		return "Router"
	case LSTypeNetwork:
		return "Network"
	case LSTypeSummaryNet:
		return "SummaryNet"
	case LSTypeSummaryASBR:
		return "SummaryASBR"
	case LSTypeASExternal:
		return "ASExternal"
	case LSTypeNSSA:
		return "NSSA"
	default:
		return "Unknown"
	}
}

// Scope is the flooding scope of an LSA type (RFC 2328 Section 12.1.3).
type Scope uint8

// Flooding scopes.
const (
	ScopeLink Scope = iota
	ScopeArea
	ScopeAS
)

// Scope returns the flooding scope for the LSA type.
func (t LSType) Scope() Scope {
	switch t {
	case LSTypeASExternal:
		return ScopeAS
	default:
		return ScopeArea
	}
}

// Options bits carried in Hello, DBD, and LSA-header packets
// (RFC 2328 Appendix A.2).
type Options uint8

// Option bits.
const (
	OptionTOS Options = 1 << 0
	OptionE   Options = 1 << 1 // external routing capability
	OptionMC  Options = 1 << 2 // multicast
	OptionNP  Options = 1 << 3 // NSSA (RFC 3101), reuses the historical N/P bit position
	OptionEA  Options = 1 << 4
	OptionDC  Options = 1 << 5 // demand circuits
)

// AreaType is the external-routing capability configured for an area
// (RFC 2328 Section 3.6).
type AreaType uint8

// Area types.
const (
	AreaDefault AreaType = iota
	AreaStub
	AreaNSSA
)

// String renders the area type the way it appears in configuration and
// introspection output.
func (t AreaType) String() string {
	switch t {
	case AreaStub:
		return "stub"
	case AreaNSSA:
		return "nssa"
	default:
		return "default"
	}
}

// ABRType selects the area-border-router compatibility flavor
type ABRType uint8

// ABR flavors.
const (
	ABRTypeCisco ABRType = iota
	ABRTypeIBM
	ABRTypeShortcut
	ABRTypeStandard
)

// AuthType identifies the interface authentication method
// (RFC 2328 Appendix D.3).
type AuthType uint8

// Authentication types.
const (
	AuthNone AuthType = iota
	AuthSimple
	AuthMD5
)
