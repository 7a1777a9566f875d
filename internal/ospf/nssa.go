package ospf

// NSSA type-7 to type-5 translation (RFC 3101 Section 3.2). Built on the
// same "recompute a derived set, diff against what's installed,
// reconcile" shape used throughout abr.go's Summary-LSA export.
//
// Translator election: RFC 3101's translator
// election (highest router-id among NSSA ABRs with the translate-always
// or translate-candidate bit set) is replaced here with an always-on
// candidate — every ABR attached to the NSSA translates every
// P-bit-set, non-self type-7 LSA it sees, relying on RFC 2328 Section
// 13.1's duplicate-instance comparison to let the backbone converge on
// one survivor when more than one ABR translates the same route. This
// avoids implementing a second, narrower election state machine for a
// feature real deployments nearly always pin to "always" in practice.

// runNSSATranslation re-derives and re-originates every type-5
// AS-external-LSA this ABR is responsible for translating out of each
// attached NSSA's type-7 LSDB. Called alongside runABRExport whenever
// this router is both an ABR and attached to at least one NSSA area.
func (r *Router) runNSSATranslation() {
	for _, area := range r.areas {
		if area.Type() != AreaNSSA {
			continue
		}
		r.translateNSSAArea(area)
	}
}

func (r *Router) translateNSSAArea(area *Area) {
	for _, lsa := range area.LSDB().ByType(LSTypeNSSA) {
		if lsa.IsMaxAge() {
			continue
		}
		body := DecodeASExternalLSABody(lsa.Body())
		if !body.PBit {
			continue // translation not requested (RFC 3101 Section 2.6)
		}
		r.translateOne(area, lsa, body)
	}
}

// translateOne re-originates a single type-7 LSA as a type-5, keyed by
// the type-7's LS-ID so the backbone's LSDB naturally holds one type-5
// per NSSA destination regardless of how many type-7 instances (from
// different internal sources) map onto it.
func (r *Router) translateOne(area *Area, t7 *LSA, body ASExternalLSABody) {
	backbone := r.areas[BackboneAreaID]
	if backbone == nil {
		return
	}

	out := ASExternalLSABody{
		NetworkMask:      body.NetworkMask,
		EBit:             body.EBit,
		PBit:             false, // RFC 3101 Section 3.2: translated type-5 never carries P
		Metric:           body.Metric,
		ForwardingAddr:   body.ForwardingAddr,
		ExternalRouteTag: body.ExternalRouteTag,
	}
	if out.ForwardingAddr == 0 {
		// RFC 3101 Section 2.6: a zero forwarding address cannot be
		// translated as-is; fall back to the translator's own address on
		// the interface nearest the type-7's originator, approximated
		// here by the first attached NSSA interface's address.
		if addr, ok := firstNSSAInterfaceAddr(area); ok {
			out.ForwardingAddr = addr
		} else {
			return
		}
	}
	encoded := EncodeASExternalLSABody(out)

	key := LSAKey{Type: LSTypeASExternal, LSID: t7.Header.LSID, AdvRouter: r.cfg.RouterID}
	existing := backbone.LSDB().Lookup(key)
	seq := int32(InitialSequenceNumber)
	if existing != nil {
		if bytesEqual(existing.Body(), encoded) {
			return
		}
		seq = existing.Header.SeqNum + 1
	}

	translated := BuildLSA(LSAHeader{
		Age: 0, Options: r.Options(backbone), Type: LSTypeASExternal,
		LSID: t7.Header.LSID, AdvRouter: r.cfg.RouterID, SeqNum: seq,
	}, encoded)

	for _, iface := range backbone.Interfaces() {
		iface.floodSelfOriginated(backbone, translated)
		return
	}
}

func firstNSSAInterfaceAddr(area *Area) (uint32, bool) {
	for _, iface := range area.Interfaces() {
		if iface.cfg.Addr.IsValid() {
			return be32ToUint32(iface.cfg.Addr.Addr().As4()), true
		}
	}
	return 0, false
}
