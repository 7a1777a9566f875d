package ospf

// Wire encode/decode for the OSPFv2 packet header and the five packet
// types (RFC 2328 Appendix A.3), grounded on Quagga's ospfd packet
// handling for field order and the checksum-then-authenticate sequencing,
// adapted to Go's encoding/binary instead of a C `stream` abstraction.

import (
	"crypto/md5" //nolint:gosec // RFC 2328 Appendix D.3 mandates Keyed-MD5.
	"encoding/binary"
	"errors"
	"fmt"
)

// Sentinel errors for packet decode failures.
var (
	ErrPacketTooShort    = errors.New("ospf: packet shorter than header")
	ErrBadVersion        = errors.New("ospf: unsupported version")
	ErrBadChecksum       = errors.New("ospf: header checksum mismatch")
	ErrBadAreaID         = errors.New("ospf: area id mismatch")
	ErrBadAuthType       = errors.New("ospf: authentication type mismatch")
	ErrAuthFailed        = errors.New("ospf: authentication failed")
	ErrSeqNotIncreasing  = errors.New("ospf: crypto sequence number not increasing")
	ErrUnknownPacketType = errors.New("ospf: unknown packet type")
)

// Header is the decoded fixed 24-byte OSPF packet header (RFC 2328
// Appendix A.3.1).
type Header struct {
	Version   uint8
	Type      PacketType
	Length    uint16
	RouterID  uint32
	AreaID    uint32
	Checksum  uint16
	AuType    AuthType
	AuthData  [8]byte // simple password, or MD5 key-id + data-len + crypto-seq
}

// DecodeHeader parses the fixed 24-byte header from the front of buf.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrPacketTooShort
	}
	h := Header{
		Version:  buf[0],
		Type:     PacketType(buf[1]),
		Length:   binary.BigEndian.Uint16(buf[2:4]),
		RouterID: binary.BigEndian.Uint32(buf[4:8]),
		AreaID:   binary.BigEndian.Uint32(buf[8:12]),
		Checksum: binary.BigEndian.Uint16(buf[12:14]),
		AuType:   AuthType(binary.BigEndian.Uint16(buf[14:16])),
	}
	copy(h.AuthData[:], buf[16:24])
	if h.Version != Version {
		return h, ErrBadVersion
	}
	return h, nil
}

// EncodeHeader writes the 24-byte header to the front of buf, which must
// be at least HeaderSize long.
func EncodeHeader(buf []byte, h Header) {
	buf[0] = h.Version
	buf[1] = uint8(h.Type)
	binary.BigEndian.PutUint16(buf[2:4], h.Length)
	binary.BigEndian.PutUint32(buf[4:8], h.RouterID)
	binary.BigEndian.PutUint32(buf[8:12], h.AreaID)
	binary.BigEndian.PutUint16(buf[12:14], h.Checksum)
	binary.BigEndian.PutUint16(buf[14:16], uint16(h.AuType))
	copy(buf[16:24], h.AuthData[:])
}

// ipChecksum computes the standard 16-bit one's-complement Internet
// checksum (RFC 1071) used for the OSPF packet header checksum
// (RFC 2328 Appendix A.3.1: "a standard IP checksum ... excluding the
// 64-bit authentication field").
func ipChecksum(data []byte) uint16 {
	var sum uint32
	n := len(data)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(data[i])<<8 | uint32(data[i+1])
	}
	if n%2 == 1 {
		sum += uint32(data[n-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum) //nolint:gosec // intentional truncation to 16 bits
}

// ChecksumPacket computes and returns the header checksum for a fully
// assembled packet (header+body, with the 8-byte AuthData zeroed first, as
// RFC 2328 Appendix A.3.1 requires); for AuType == AuthMD5, the checksum
// field MUST be zero and this function returns 0 without computing one.
func ChecksumPacket(pkt []byte, auType AuthType) uint16 {
	if auType == AuthMD5 {
		return 0
	}
	work := make([]byte, len(pkt))
	copy(work, pkt)
	binary.BigEndian.PutUint16(work[12:14], 0)
	copy(work[16:24], make([]byte, 8))
	return ipChecksum(work)
}

// SignMD5 appends a 16-byte Keyed-MD5 digest after the packet's declared
// Length and embeds key-id, data-len, and the crypto sequence number in
// the header's AuthData (RFC 2328 Appendix D.3). The digest input is
// `packet || key padded to keyLen(16)`.
func SignMD5(pkt []byte, keyID uint8, key []byte, cryptoSeq uint32) []byte {
	padded := make([]byte, 16)
	copy(padded, key)

	binary.BigEndian.PutUint16(pkt[12:14], 0) // checksum MUST be zero
	binary.BigEndian.PutUint16(pkt[16:18], 0) // reserved
	pkt[18] = keyID
	pkt[19] = 16 // auth data (digest) length
	binary.BigEndian.PutUint32(pkt[20:24], cryptoSeq)

	h := md5.Sum(append(append([]byte{}, pkt...), padded...)) //nolint:gosec // RFC 2328 mandated algorithm
	return append(pkt, h[:]...)
}

// VerifyMD5 checks the trailing 16-byte digest against key, and that
// cryptoSeq is strictly greater than lastSeq from this neighbor
func VerifyMD5(pkt []byte, key []byte, cryptoSeq, lastSeq uint32) error {
	if cryptoSeq <= lastSeq && lastSeq != 0 {
		return ErrSeqNotIncreasing
	}
	if len(pkt) < md5.Size {
		return ErrAuthFailed
	}
	body, digest := pkt[:len(pkt)-md5.Size], pkt[len(pkt)-md5.Size:]
	padded := make([]byte, 16)
	copy(padded, key)
	want := md5.Sum(append(append([]byte{}, body...), padded...)) //nolint:gosec
	if !bytesEqual(want[:], digest) {
		return ErrAuthFailed
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// -------------------------------------------------------------------------
// Hello (RFC 2328 Appendix A.3.2)
// -------------------------------------------------------------------------

// HelloPacket is the decoded body of a Hello packet.
type HelloPacket struct {
	NetworkMask       uint32
	HelloInterval     uint16
	Options           Options
	RtrPriority       uint8
	RouterDeadInterval uint32
	DesignatedRouter  uint32
	BackupRouter      uint32
	Neighbors         []uint32
}

// EncodeHello serializes a Hello packet (header + body), ready for
// checksumming.
func EncodeHello(routerID, areaID uint32, h HelloPacket) []byte {
	body := make([]byte, 20+4*len(h.Neighbors))
	binary.BigEndian.PutUint32(body[0:4], h.NetworkMask)
	binary.BigEndian.PutUint16(body[4:6], h.HelloInterval)
	body[6] = uint8(h.Options)
	body[7] = h.RtrPriority
	binary.BigEndian.PutUint32(body[8:12], h.RouterDeadInterval)
	binary.BigEndian.PutUint32(body[12:16], h.DesignatedRouter)
	binary.BigEndian.PutUint32(body[16:20], h.BackupRouter)
	for idx, nbr := range h.Neighbors {
		binary.BigEndian.PutUint32(body[20+4*idx:24+4*idx], nbr)
	}
	return assemble(routerID, areaID, PacketHello, body)
}

// DecodeHello parses a Hello body (buf starts right after the 24-byte
// header).
func DecodeHello(buf []byte) (HelloPacket, error) {
	if len(buf) < 20 {
		return HelloPacket{}, ErrPacketTooShort
	}
	h := HelloPacket{
		NetworkMask:        binary.BigEndian.Uint32(buf[0:4]),
		HelloInterval:      binary.BigEndian.Uint16(buf[4:6]),
		Options:            Options(buf[6]),
		RtrPriority:        buf[7],
		RouterDeadInterval: binary.BigEndian.Uint32(buf[8:12]),
		DesignatedRouter:   binary.BigEndian.Uint32(buf[12:16]),
		BackupRouter:       binary.BigEndian.Uint32(buf[16:20]),
	}
	for off := 20; off+4 <= len(buf); off += 4 {
		h.Neighbors = append(h.Neighbors, binary.BigEndian.Uint32(buf[off:off+4]))
	}
	return h, nil
}

// -------------------------------------------------------------------------
// Database Description (RFC 2328 Appendix A.3.3)
// -------------------------------------------------------------------------

// DBDFlags holds the I/M/MS bits of a DBD packet.
type DBDFlags uint8

// DBD flag bits.
const (
	DBDFlagMS DBDFlags = 1 << 0 // Master/Slave
	DBDFlagM  DBDFlags = 1 << 1 // More
	DBDFlagI  DBDFlags = 1 << 2 // Init
)

// DBDPacket is the decoded body of a Database Description packet.
type DBDPacket struct {
	MTU     uint16
	Options Options
	Flags   DBDFlags
	SeqNum  uint32
	LSAs    []LSAHeader
}

// EncodeDBD serializes a DBD packet.
func EncodeDBD(routerID, areaID uint32, d DBDPacket) []byte {
	body := make([]byte, 8+LSAHeaderSize*len(d.LSAs))
	binary.BigEndian.PutUint16(body[0:2], d.MTU)
	body[2] = uint8(d.Options)
	body[3] = uint8(d.Flags)
	binary.BigEndian.PutUint32(body[4:8], d.SeqNum)
	for idx, lh := range d.LSAs {
		encodeLSAHeader(body[8+idx*LSAHeaderSize:8+(idx+1)*LSAHeaderSize], lh)
	}
	return assemble(routerID, areaID, PacketDBD, body)
}

// DecodeDBD parses a DBD body.
func DecodeDBD(buf []byte) (DBDPacket, error) {
	if len(buf) < 8 {
		return DBDPacket{}, ErrPacketTooShort
	}
	d := DBDPacket{
		MTU:     binary.BigEndian.Uint16(buf[0:2]),
		Options: Options(buf[2]),
		Flags:   DBDFlags(buf[3]),
		SeqNum:  binary.BigEndian.Uint32(buf[4:8]),
	}
	for off := 8; off+LSAHeaderSize <= len(buf); off += LSAHeaderSize {
		d.LSAs = append(d.LSAs, decodeLSAHeader(buf[off:off+LSAHeaderSize]))
	}
	return d, nil
}

// -------------------------------------------------------------------------
// Link State Request (RFC 2328 Appendix A.3.4)
// -------------------------------------------------------------------------

// LSRequestEntry identifies one LSA being requested.
type LSRequestEntry struct {
	Type      LSType
	LSID      uint32
	AdvRouter uint32
}

// EncodeLSRequest serializes an LS-Request packet.
func EncodeLSRequest(routerID, areaID uint32, entries []LSRequestEntry) []byte {
	body := make([]byte, 12*len(entries))
	for idx, e := range entries {
		binary.BigEndian.PutUint32(body[idx*12:idx*12+4], uint32(e.Type))
		binary.BigEndian.PutUint32(body[idx*12+4:idx*12+8], e.LSID)
		binary.BigEndian.PutUint32(body[idx*12+8:idx*12+12], e.AdvRouter)
	}
	return assemble(routerID, areaID, PacketLSRequest, body)
}

// DecodeLSRequest parses an LS-Request body.
func DecodeLSRequest(buf []byte) ([]LSRequestEntry, error) {
	if len(buf)%12 != 0 {
		return nil, ErrPacketTooShort
	}
	entries := make([]LSRequestEntry, 0, len(buf)/12)
	for off := 0; off < len(buf); off += 12 {
		entries = append(entries, LSRequestEntry{
			Type:      LSType(binary.BigEndian.Uint32(buf[off : off+4])),
			LSID:      binary.BigEndian.Uint32(buf[off+4 : off+8]),
			AdvRouter: binary.BigEndian.Uint32(buf[off+8 : off+12]),
		})
	}
	return entries, nil
}

// -------------------------------------------------------------------------
// Link State Update (RFC 2328 Appendix A.3.5)
// -------------------------------------------------------------------------

// EncodeLSUpdate serializes an LS-Update packet containing the given
// already-encoded LSAs (header+body each).
func EncodeLSUpdate(routerID, areaID uint32, lsas [][]byte) []byte {
	total := 4
	for _, l := range lsas {
		total += len(l)
	}
	body := make([]byte, total)
	binary.BigEndian.PutUint32(body[0:4], uint32(len(lsas)))
	off := 4
	for _, l := range lsas {
		copy(body[off:], l)
		off += len(l)
	}
	return assemble(routerID, areaID, PacketLSUpdate, body)
}

// DecodeLSUpdate splits an LS-Update body into its constituent
// header-prefixed LSA byte slices, using each LSA's own Length field.
func DecodeLSUpdate(buf []byte) ([][]byte, error) {
	if len(buf) < 4 {
		return nil, ErrPacketTooShort
	}
	count := binary.BigEndian.Uint32(buf[0:4])
	out := make([][]byte, 0, count)
	off := 4
	for range int(count) {
		if off+LSAHeaderSize > len(buf) {
			return nil, ErrPacketTooShort
		}
		length := int(binary.BigEndian.Uint16(buf[off+18 : off+20]))
		if length < LSAHeaderSize || off+length > len(buf) {
			return nil, ErrPacketTooShort
		}
		out = append(out, buf[off:off+length])
		off += length
	}
	return out, nil
}

// -------------------------------------------------------------------------
// Link State Acknowledgment (RFC 2328 Appendix A.3.6)
// -------------------------------------------------------------------------

// EncodeLSAck serializes an LSAck packet carrying the given LSA headers.
func EncodeLSAck(routerID, areaID uint32, headers []LSAHeader) []byte {
	body := make([]byte, LSAHeaderSize*len(headers))
	for idx, h := range headers {
		encodeLSAHeader(body[idx*LSAHeaderSize:(idx+1)*LSAHeaderSize], h)
	}
	return assemble(routerID, areaID, PacketLSAck, body)
}

// DecodeLSAck parses an LSAck body into a slice of LSA headers.
func DecodeLSAck(buf []byte) ([]LSAHeader, error) {
	if len(buf)%LSAHeaderSize != 0 {
		return nil, ErrPacketTooShort
	}
	out := make([]LSAHeader, 0, len(buf)/LSAHeaderSize)
	for off := 0; off < len(buf); off += LSAHeaderSize {
		out = append(out, decodeLSAHeader(buf[off:off+LSAHeaderSize]))
	}
	return out, nil
}

// assemble prepends a header (with checksum pre-computed for non-MD5 auth)
// to body and returns the full wire packet. Callers needing MD5 auth call
// SignMD5 on the result before transmission.
func assemble(routerID, areaID uint32, typ PacketType, body []byte) []byte {
	pkt := make([]byte, HeaderSize+len(body))
	EncodeHeader(pkt, Header{
		Version:  Version,
		Type:     typ,
		Length:   uint16(len(pkt)),
		RouterID: routerID,
		AreaID:   areaID,
	})
	copy(pkt[HeaderSize:], body)
	cksum := ChecksumPacket(pkt, AuthNone)
	binary.BigEndian.PutUint16(pkt[12:14], cksum)
	return pkt
}

// DispatchBody decodes buf (everything after the fixed header) according
// to typ and returns a value of the corresponding *Packet type, or an
// error.
func DispatchBody(typ PacketType, buf []byte) (any, error) {
	switch typ {
	case PacketHello:
		return DecodeHello(buf)
	case PacketDBD:
		return DecodeDBD(buf)
	case PacketLSRequest:
		return DecodeLSRequest(buf)
	case PacketLSUpdate:
		return DecodeLSUpdate(buf)
	case PacketLSAck:
		return DecodeLSAck(buf)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownPacketType, typ)
	}
}
