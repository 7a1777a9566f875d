package ospf

// LSA header/body codec and the §13.1 instance-comparison rule
// (RFC 2328 Appendix A.4, Section 13.1), grounded on Quagga's ospfd and
// ospf6d LSA lifecycle code even where the ospf6d side is IPv6; the header
// shape and comparison rule are identical across OSPFv2/v3.

import (
	"encoding/binary"
	"time"
)

// LSAHeader is the fixed 20-byte LSA header (RFC 2328 Appendix A.4.1).
type LSAHeader struct {
	Age       uint16 // seconds
	Options   Options
	Type      LSType
	LSID      uint32
	AdvRouter uint32
	SeqNum    int32
	Checksum  uint16
	Length    uint16
}

// Key returns the (type, LS-ID, advertising-router) triple that identifies
// the LSA's LSDB slot.
func (h LSAHeader) Key() LSAKey {
	return LSAKey{Type: h.Type, LSID: h.LSID, AdvRouter: h.AdvRouter}
}

// LSAKey identifies one LSDB slot.
type LSAKey struct {
	Type      LSType
	LSID      uint32
	AdvRouter uint32
}

func decodeLSAHeader(buf []byte) LSAHeader {
	return LSAHeader{
		Age:       binary.BigEndian.Uint16(buf[0:2]),
		Options:   Options(buf[2]),
		Type:      LSType(buf[3]),
		LSID:      binary.BigEndian.Uint32(buf[4:8]),
		AdvRouter: binary.BigEndian.Uint32(buf[8:12]),
		SeqNum:    int32(binary.BigEndian.Uint32(buf[12:16])), //nolint:gosec // wire format is signed 32-bit
		Checksum:  binary.BigEndian.Uint16(buf[16:18]),
		Length:    binary.BigEndian.Uint16(buf[18:20]),
	}
}

func encodeLSAHeader(buf []byte, h LSAHeader) {
	binary.BigEndian.PutUint16(buf[0:2], h.Age)
	buf[2] = uint8(h.Options)
	buf[3] = uint8(h.Type)
	binary.BigEndian.PutUint32(buf[4:8], h.LSID)
	binary.BigEndian.PutUint32(buf[8:12], h.AdvRouter)
	binary.BigEndian.PutUint32(buf[12:16], uint32(h.SeqNum)) //nolint:gosec // wire format is signed 32-bit
	binary.BigEndian.PutUint16(buf[16:18], h.Checksum)
	binary.BigEndian.PutUint16(buf[18:20], h.Length)
}

// LSA is a stored link-state advertisement: header plus opaque body bytes.
// The LSDB is the single strong owner; per-neighbor lists and the refresh
// queue hold the LSAKey plus a membership flag rather than a second
// pointer, so list membership can never outlive an LSDB eviction.
type LSA struct {
	Header LSAHeader
	Raw    []byte // full wire bytes, header+body

	// installed records when this instance entered the LSDB. LSDB.Install
	// sets it and nothing reads it: received instances are not throttled
	// by MinLSArrival, and the MaxAge sweep goes by LS age alone.
	installed time.Time

	// retransmitRefs counts neighbors currently holding this instance on
	// their retransmit list; the LSDB only evicts a MaxAge instance once
	// this reaches zero.
	retransmitRefs int
}

// Body returns the LSA body (everything after the 20-byte header).
func (l *LSA) Body() []byte {
	if len(l.Raw) < LSAHeaderSize {
		return nil
	}
	return l.Raw[LSAHeaderSize:]
}

// IsMaxAge reports whether the LSA's age has reached MaxAge.
func (l *LSA) IsMaxAge() bool {
	return time.Duration(l.Header.Age) * time.Second >= MaxAge
}

// IsSelfOriginated reports whether advRouter matches the LSA's
// advertising router (it is the caller's job to pass the local router-id).
func (l *LSA) IsSelfOriginated(routerID uint32) bool {
	return l.Header.AdvRouter == routerID
}

// FletcherChecksum computes the RFC 2328 Section 12.1.4 / ISO 8473 Annex B
// Fletcher checksum over data, treating the two bytes at offset
// checksumOffset as a zeroed "hole" so the result can be written back into
// that same hole in the original buffer. Used only for the LSA checksum;
// the OSPF packet header checksum is the plain IP one's-complement
// checksum (see ipChecksum in packet.go).
func FletcherChecksum(data []byte, checksumOffset int) (byte, byte) {
	var c0, c1 int32
	length := len(data)
	mutable := make([]byte, length)
	copy(mutable, data)
	mutable[checksumOffset] = 0
	mutable[checksumOffset+1] = 0

	for _, b := range mutable {
		c0 = (c0 + int32(b)) % 255
		c1 = (c1 + c0) % 255
	}

	x := (int32(length-checksumOffset-1)*c0 - c1) % 255
	if x <= 0 {
		x += 255
	}
	y := 510 - c0 - x
	if y > 255 {
		y -= 255
	}

	return byte(x), byte(y) //nolint:gosec // Fletcher bytes are already in [1,255]
}

// SetChecksum computes and writes the LSA checksum field (RFC 2328
// Section 12.1.4: Fletcher checksum over the LSA excluding the LS Age
// field, i.e. offset 2 onward, with the checksum field itself at offset
// 16 relative to the LSA start).
func (l *LSA) SetChecksum() {
	if len(l.Raw) < LSAHeaderSize {
		return
	}
	c0, c1 := FletcherChecksum(l.Raw[2:], 16-2)
	l.Raw[16] = c0
	l.Raw[17] = c1
	l.Header.Checksum = uint16(c0)<<8 | uint16(c1)
}

// Compare implements the RFC 2328 Section 13.1 total order (modulo
// "equal"): positive means a is more recent, negative means b is more
// recent, zero means the instances are the same.
func Compare(a, b *LSA) int {
	if a.Header.SeqNum != b.Header.SeqNum {
		if a.Header.SeqNum > b.Header.SeqNum {
			return 1
		}
		return -1
	}
	if a.Header.Checksum != b.Header.Checksum {
		if a.Header.Checksum > b.Header.Checksum {
			return 1
		}
		return -1
	}
	aMax, bMax := a.IsMaxAge(), b.IsMaxAge()
	if aMax != bMax {
		if aMax {
			return 1
		}
		return -1
	}
	ageDelta := int32(a.Header.Age) - int32(b.Header.Age)
	if abs32(ageDelta) > int32(MaxAgeDiff/time.Second) {
		if ageDelta < 0 {
			return 1 // a has the smaller LS age -> a is "more recent" per the rule
		}
		return -1
	}
	return 0
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// -------------------------------------------------------------------------
// Router-LSA (RFC 2328 Appendix A.4.2)
// -------------------------------------------------------------------------

// RouterLink is one entry of a Router-LSA's link list.
type RouterLink struct {
	LinkID, LinkData uint32
	Type             uint8 // 1=p2p, 2=transit, 3=stub, 4=virtual
	Metric           uint16
}

// Router-LSA link types.
const (
	LinkPointToPoint uint8 = 1
	LinkTransit      uint8 = 2
	LinkStub         uint8 = 3
	LinkVirtual      uint8 = 4
)

// RouterLSABody is the decoded body of a type-1 LSA.
type RouterLSABody struct {
	Bits  uint8 // V|E|B bits
	Links []RouterLink
}

// Router-LSA bit flags.
const (
	RouterBitV uint8 = 1 << 2 // virtual-link endpoint
	RouterBitE uint8 = 1 << 1 // ASBR
	RouterBitB uint8 = 1 << 0 // ABR
)

// EncodeRouterLSABody serializes a RouterLSABody.
func EncodeRouterLSABody(b RouterLSABody) []byte {
	buf := make([]byte, 4+12*len(b.Links))
	buf[0] = b.Bits
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(b.Links)))
	for idx, l := range b.Links {
		off := 4 + idx*12
		binary.BigEndian.PutUint32(buf[off:off+4], l.LinkID)
		binary.BigEndian.PutUint32(buf[off+4:off+8], l.LinkData)
		buf[off+8] = l.Type
		buf[off+9] = 0 // TOS count, always 0 (no TOS routing)
		binary.BigEndian.PutUint16(buf[off+10:off+12], l.Metric)
	}
	return buf
}

// DecodeRouterLSABody parses a RouterLSABody.
func DecodeRouterLSABody(buf []byte) RouterLSABody {
	if len(buf) < 4 {
		return RouterLSABody{}
	}
	b := RouterLSABody{Bits: buf[0]}
	count := int(binary.BigEndian.Uint16(buf[2:4]))
	for i := 0; i < count; i++ {
		off := 4 + i*12
		if off+12 > len(buf) {
			break
		}
		b.Links = append(b.Links, RouterLink{
			LinkID:   binary.BigEndian.Uint32(buf[off : off+4]),
			LinkData: binary.BigEndian.Uint32(buf[off+4 : off+8]),
			Type:     buf[off+8],
			Metric:   binary.BigEndian.Uint16(buf[off+10 : off+12]),
		})
	}
	return b
}

// -------------------------------------------------------------------------
// Network-LSA (RFC 2328 Appendix A.4.3)
// -------------------------------------------------------------------------

// NetworkLSABody is the decoded body of a type-2 LSA.
type NetworkLSABody struct {
	NetworkMask    uint32
	AttachedRouters []uint32
}

// EncodeNetworkLSABody serializes a NetworkLSABody.
func EncodeNetworkLSABody(b NetworkLSABody) []byte {
	buf := make([]byte, 4+4*len(b.AttachedRouters))
	binary.BigEndian.PutUint32(buf[0:4], b.NetworkMask)
	for idx, r := range b.AttachedRouters {
		binary.BigEndian.PutUint32(buf[4+4*idx:8+4*idx], r)
	}
	return buf
}

// DecodeNetworkLSABody parses a NetworkLSABody.
func DecodeNetworkLSABody(buf []byte) NetworkLSABody {
	if len(buf) < 4 {
		return NetworkLSABody{}
	}
	b := NetworkLSABody{NetworkMask: binary.BigEndian.Uint32(buf[0:4])}
	for off := 4; off+4 <= len(buf); off += 4 {
		b.AttachedRouters = append(b.AttachedRouters, binary.BigEndian.Uint32(buf[off:off+4]))
	}
	return b
}

// -------------------------------------------------------------------------
// Summary-LSA (RFC 2328 Appendix A.4.4, types 3 and 4)
// -------------------------------------------------------------------------

// SummaryLSABody is the decoded body shared by type-3 (summary-net) and
// type-4 (summary-ASBR) LSAs; for type 4, NetworkMask is unused (0).
type SummaryLSABody struct {
	NetworkMask uint32
	Metric      uint32 // low 24 bits significant
}

// EncodeSummaryLSABody serializes a SummaryLSABody.
func EncodeSummaryLSABody(b SummaryLSABody) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], b.NetworkMask)
	binary.BigEndian.PutUint32(buf[4:8], b.Metric&0x00ffffff)
	return buf
}

// DecodeSummaryLSABody parses a SummaryLSABody.
func DecodeSummaryLSABody(buf []byte) SummaryLSABody {
	if len(buf) < 8 {
		return SummaryLSABody{}
	}
	return SummaryLSABody{
		NetworkMask: binary.BigEndian.Uint32(buf[0:4]),
		Metric:      binary.BigEndian.Uint32(buf[4:8]) & 0x00ffffff,
	}
}

// -------------------------------------------------------------------------
// AS-External-LSA (RFC 2328 Appendix A.4.5, type 5, reused for type 7 NSSA)
// -------------------------------------------------------------------------

// ASExternalLSABody is the decoded body of a type-5 (or type-7) LSA.
type ASExternalLSABody struct {
	NetworkMask     uint32
	EBit            bool // type-2 (E=1) vs type-1 (E=0) metric
	PBit            bool // NSSA translation-requested bit (type-7 only)
	Metric          uint32
	ForwardingAddr  uint32
	ExternalRouteTag uint32
}

// EncodeASExternalLSABody serializes an ASExternalLSABody.
func EncodeASExternalLSABody(b ASExternalLSABody) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint32(buf[0:4], b.NetworkMask)
	flags := b.Metric & 0x00ffffff
	if b.EBit {
		flags |= 1 << 31
	}
	if b.PBit {
		flags |= 1 << 30
	}
	binary.BigEndian.PutUint32(buf[4:8], flags)
	binary.BigEndian.PutUint32(buf[8:12], b.ForwardingAddr)
	binary.BigEndian.PutUint32(buf[12:16], b.ExternalRouteTag)
	return buf
}

// DecodeASExternalLSABody parses an ASExternalLSABody.
func DecodeASExternalLSABody(buf []byte) ASExternalLSABody {
	if len(buf) < 16 {
		return ASExternalLSABody{}
	}
	flags := binary.BigEndian.Uint32(buf[4:8])
	return ASExternalLSABody{
		NetworkMask:      binary.BigEndian.Uint32(buf[0:4]),
		EBit:             flags&(1<<31) != 0,
		PBit:             flags&(1<<30) != 0,
		Metric:           flags & 0x00ffffff,
		ForwardingAddr:   binary.BigEndian.Uint32(buf[8:12]),
		ExternalRouteTag: binary.BigEndian.Uint32(buf[12:16]),
	}
}

// BuildLSA assembles a complete self-originated LSA: header + body,
// checksum computed, ready to install and flood. seq and age are set by
// the caller (normally InitialSequenceNumber or the stored instance's
// sequence number + 1, with age 0).
func BuildLSA(header LSAHeader, body []byte) *LSA {
	header.Length = uint16(LSAHeaderSize + len(body))
	raw := make([]byte, header.Length)
	encodeLSAHeader(raw[:LSAHeaderSize], header)
	copy(raw[LSAHeaderSize:], body)
	lsa := &LSA{Header: header, Raw: raw}
	lsa.SetChecksum()
	lsa.Header.Checksum = uint16(raw[16])<<8 | uint16(raw[17])
	return lsa
}

// ParseLSA decodes a complete wire LSA (header+body slice, e.g. one entry
// from DecodeLSUpdate) into an *LSA.
func ParseLSA(raw []byte) (*LSA, error) {
	if len(raw) < LSAHeaderSize {
		return nil, ErrPacketTooShort
	}
	h := decodeLSAHeader(raw[:LSAHeaderSize])
	if int(h.Length) != len(raw) {
		return nil, ErrPacketTooShort
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return &LSA{Header: h, Raw: cp}, nil
}
