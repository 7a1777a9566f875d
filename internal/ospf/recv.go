package ospf

import (
	"encoding/binary"
	"log/slog"
	"net/netip"
)

// Receive is the single entry point for a packet read off the wire for
// this interface. src is the sender's IP address.
func (i *Interface) Receive(src netip.Addr, raw []byte) {
	h, err := DecodeHeader(raw)
	if err != nil {
		i.logger.Warn("dropping packet: bad header", slog.String("error", err.Error()))
		i.stats.Discards++
		return
	}
	if h.AreaID != i.area.ID() && h.AreaID != 0 {
		i.logger.Warn("dropping packet: area mismatch", slog.String("peer", src.String()))
		i.stats.Discards++
		return
	}
	if h.RouterID == i.router.RouterID() {
		return // our own multicast loopback
	}

	if int(h.Length) > len(raw) || h.Length < HeaderSize {
		i.logger.Warn("dropping packet: bad length", slog.String("peer", src.String()))
		i.stats.Discards++
		return
	}

	if err := i.authenticate(h, raw, src); err != nil {
		i.logger.Warn("dropping packet: auth failed", slog.String("peer", src.String()), slog.String("error", err.Error()))
		i.stats.Discards++
		return
	}

	body := raw[HeaderSize:h.Length]
	decoded, err := DispatchBody(h.Type, body)
	if err != nil {
		i.logger.Warn("dropping packet: bad body", slog.String("error", err.Error()))
		i.stats.Discards++
		return
	}

	if h.Type == PacketHello {
		hp := decoded.(HelloPacket)
		i.HandleHello(h, hp, src)
		return
	}

	n, ok := i.neighbors[i.neighborKey(src, h.RouterID)]
	if !ok {
		i.logger.Warn("dropping packet: no matching neighbor", slog.String("peer", src.String()))
		i.stats.Discards++
		return
	}

	switch body := decoded.(type) {
	case DBDPacket:
		i.HandleDBD(n, body)
	case []LSRequestEntry:
		i.ReceiveLSRequest(n, body)
	case [][]byte:
		i.ReceiveLSUpdate(n, body)
	case []LSAHeader:
		i.ReceiveLSAck(n, body)
	}
}

// authenticate validates the packet's AuType/AuthData against the
// interface's configured authentication.
func (i *Interface) authenticate(h Header, raw []byte, src netip.Addr) error {
	if h.AuType != i.cfg.AuthType {
		return ErrBadAuthType
	}
	switch i.cfg.AuthType {
	case AuthNone:
		want := ChecksumPacket(raw[:h.Length], AuthNone)
		if want != h.Checksum {
			return ErrBadChecksum
		}
		return nil
	case AuthSimple:
		if !bytesEqual(h.AuthData[:], i.cfg.AuthSimpleKey) {
			return ErrAuthFailed
		}
		want := ChecksumPacket(raw[:h.Length], AuthNone)
		if want != h.Checksum {
			return ErrBadChecksum
		}
		return nil
	case AuthMD5:
		keyID := h.AuthData[2]
		key, ok := i.cfg.AuthMD5Keys[keyID]
		if !ok {
			return ErrAuthFailed
		}
		cryptoSeq := binary.BigEndian.Uint32(h.AuthData[4:8])
		last := i.lastCryptoSeqFor(src)
		if err := VerifyMD5(raw, key, cryptoSeq, last); err != nil {
			return err
		}
		i.setLastCryptoSeqFor(src, cryptoSeq)
		return nil
	default:
		return ErrBadAuthType
	}
}

func (i *Interface) lastCryptoSeqFor(src netip.Addr) uint32 {
	if n, ok := i.neighborBySrc(src); ok {
		return n.lastCryptoSeq
	}
	return 0
}

func (i *Interface) setLastCryptoSeqFor(src netip.Addr, seq uint32) {
	if n, ok := i.neighborBySrc(src); ok {
		n.lastCryptoSeq = seq
	}
}

func (i *Interface) neighborBySrc(src netip.Addr) (*Neighbor, bool) {
	for _, n := range i.neighbors {
		if n.srcAddr == src {
			return n, true
		}
	}
	return nil, false
}
