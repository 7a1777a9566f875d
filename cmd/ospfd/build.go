package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/go-ospfd/ospfd/internal/config"
	"github.com/go-ospfd/ospfd/internal/netio"
	"github.com/go-ospfd/ospfd/internal/ospf"
	"github.com/go-ospfd/ospfd/internal/sched"
)

// errUnknownIfType, errUnknownAreaType, and errUnknownAuthType guard
// against config values that slipped past config.Validate (e.g. a virtual
// link's auth type, which Validate does not check). Blank values map to
// defaults and never raise these errors.
var (
	errUnknownIfType   = errors.New("unrecognized interface type")
	errUnknownAreaType = errors.New("unrecognized area type")
	errUnknownAuthType = errors.New("unrecognized auth type")
	errUnknownABRType  = errors.New("unrecognized abr type")
)

// builtRouter bundles the constructed engine and the transport resources
// that must be closed/run alongside it.
type builtRouter struct {
	router     *ospf.Router
	loop       *sched.Loop
	listeners  []*netio.Listener
	dispatcher *netio.Dispatcher
}

// buildRouter constructs a Router, its Areas, and their Interfaces from
// cfg, opening one raw-socket Listener per non-loopback, non-passive
// interface and
// registering it with dispatcher so the engine's FIFO output reaches the
// network.
func buildRouter(cfg *config.Config, installer ospf.RouteInstaller, logger *slog.Logger) (*builtRouter, error) {
	routerID, err := config.RouterIDValue(cfg.OSPF.RouterID)
	if err != nil {
		return nil, fmt.Errorf("router id: %w", err)
	}
	abrType, err := parseABRType(cfg.OSPF.ABRType)
	if err != nil {
		return nil, err
	}

	loop := sched.NewLoop(logger, 256)
	dispatcher := netio.NewDispatcher(logger)

	router := ospf.NewRouter(ospf.RouterConfig{
		RouterID:      routerID,
		ABRType:       abrType,
		RFC1583Compat: cfg.OSPF.RFC1583Compat,
		SPFDelay:      cfg.OSPF.SPFDelay,
		SPFHoldtime:   cfg.OSPF.SPFHoldtime,
	}, loop, installer, dispatcher, logger)

	var listeners []*netio.Listener
	for _, ac := range cfg.Areas {
		area, areaListeners, err := buildArea(ac, router, logger, dispatcher)
		if err != nil {
			closeListeners(listeners, logger)
			closeListeners(areaListeners, logger)
			return nil, err
		}
		router.AddArea(area)
		listeners = append(listeners, areaListeners...)
	}

	if err := attachVirtualLinks(cfg.Areas, router, logger); err != nil {
		closeListeners(listeners, logger)
		return nil, err
	}

	return &builtRouter{router: router, loop: loop, listeners: listeners, dispatcher: dispatcher}, nil
}

// attachVirtualLinks builds each configured virtual link as an
// IfTypeVirtualLink Interface and adds it to the backbone area, which is
// always a virtual link's logical home even though it is configured under
// its transit area (RFC 2328 Section 15: "the virtual link ... appears in
// the backbone's ... description"). The backbone area is created if no
// area 0.0.0.0 was otherwise configured.
func attachVirtualLinks(areaCfgs []config.AreaConfig, router *ospf.Router, logger *slog.Logger) error {
	var vlinks []struct {
		transitAreaID uint32
		vl            config.VirtualLinkConfig
	}
	for _, ac := range areaCfgs {
		if len(ac.VirtualLinks) == 0 {
			continue
		}
		transitAreaID, err := config.RouterIDValue(ac.ID)
		if err != nil {
			return fmt.Errorf("area %s: %w", ac.ID, err)
		}
		for _, vl := range ac.VirtualLinks {
			vlinks = append(vlinks, struct {
				transitAreaID uint32
				vl            config.VirtualLinkConfig
			}{transitAreaID, vl})
		}
	}
	if len(vlinks) == 0 {
		return nil
	}

	backbone := router.Area(ospf.BackboneAreaID)
	if backbone == nil {
		backbone = ospf.NewArea(ospf.BackboneAreaID, ospf.AreaDefault, logger)
		router.AddArea(backbone)
	}

	for _, entry := range vlinks {
		peerID, err := config.RouterIDValue(entry.vl.PeerRouterID)
		if err != nil {
			return fmt.Errorf("virtual link peer %s: %w", entry.vl.PeerRouterID, err)
		}
		cfg := ospf.IfConfig{
			Name:               fmt.Sprintf("vlink-%s", entry.vl.PeerRouterID),
			Type:               ospf.IfTypeVirtualLink,
			HelloInterval:      entry.vl.HelloInterval,
			RouterDeadInterval: entry.vl.RouterDeadInterval,
			RxmtInterval:       entry.vl.RxmtInterval,
			TransmitDelay:      entry.vl.TransmitDelay,
			TransitAreaID:      entry.transitAreaID,
			PeerRouterID:       peerID,
		}
		if err := applyAuth(&cfg, entry.vl.Auth); err != nil {
			return fmt.Errorf("virtual link peer %s: %w", entry.vl.PeerRouterID, err)
		}
		iface := ospf.NewInterface(cfg, backbone, router, logger)
		backbone.AddInterface(iface)
	}
	return nil
}

func buildArea(ac config.AreaConfig, router *ospf.Router, logger *slog.Logger, dispatcher *netio.Dispatcher) (*ospf.Area, []*netio.Listener, error) {
	areaID, err := config.RouterIDValue(ac.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("area %s: %w", ac.ID, err)
	}
	areaType, err := parseAreaType(ac.Type)
	if err != nil {
		return nil, nil, fmt.Errorf("area %s: %w", ac.ID, err)
	}

	area := ospf.NewArea(areaID, areaType, logger)
	area.SetRanges(buildRanges(ac.Ranges))

	var listeners []*netio.Listener
	for _, ic := range ac.Interfaces {
		iface, ln, err := buildInterface(ic, area, router, logger)
		if err != nil {
			closeListeners(listeners, logger)
			return nil, nil, fmt.Errorf("area %s: %w", ac.ID, err)
		}
		area.AddInterface(iface)
		if ln != nil {
			dispatcher.Register(iface.Name(), ln)
			listeners = append(listeners, ln)
		}
	}

	return area, listeners, nil
}

func buildRanges(rcs []config.RangeConfig) []ospf.AreaRange {
	ranges := make([]ospf.AreaRange, 0, len(rcs))
	for _, rc := range rcs {
		prefix, err := rc.RangePrefix()
		if err != nil {
			continue // already rejected by config.Validate
		}
		effect := ospf.RangeAdvertise
		if !rc.Advertise {
			effect = ospf.RangeSuppress
		}
		ranges = append(ranges, ospf.AreaRange{Prefix: prefix, Effect: effect, Cost: rc.Cost})
	}
	return ranges
}

// buildInterface constructs an Interface and, for anything but a loopback
// or passive interface, the raw-socket Listener that carries its traffic. The kernel ifindex is
// resolved via net.InterfaceByName and recorded so Router.Demux can route
// inbound packets back to this Interface.
func buildInterface(ic config.InterfaceConfig, area *ospf.Area, router *ospf.Router, logger *slog.Logger) (*ospf.Interface, *netio.Listener, error) {
	ifType, err := parseIfType(ic.Type)
	if err != nil {
		return nil, nil, fmt.Errorf("interface %s: %w", ic.Name, err)
	}

	cfg := ospf.IfConfig{
		Name:               ic.Name,
		Type:               ifType,
		Cost:               ic.Cost,
		Priority:           ic.Priority,
		HelloInterval:      ic.HelloInterval,
		RouterDeadInterval: ic.RouterDeadInterval,
		RxmtInterval:       ic.RxmtInterval,
		TransmitDelay:      ic.TransmitDelay,
		Passive:            ic.Passive,
		MTU:                ic.MTU,
	}
	if ifType != ospf.IfTypeLoopback {
		prefix, err := ic.AddrPrefix()
		if err != nil {
			return nil, nil, fmt.Errorf("interface %s: %w", ic.Name, err)
		}
		cfg.Addr = prefix
	}
	if err := applyAuth(&cfg, ic.Auth); err != nil {
		return nil, nil, fmt.Errorf("interface %s: %w", ic.Name, err)
	}

	iface := ospf.NewInterface(cfg, area, router, logger)

	if ifType == ospf.IfTypeLoopback || ic.Passive {
		return iface, nil, nil
	}

	netIface, err := net.InterfaceByName(ic.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("interface %s: %w", ic.Name, err)
	}
	iface.SetIfIndex(netIface.Index)

	ln, err := netio.NewListener(netio.ListenerConfig{
		Addr:     cfg.Addr.Addr(),
		IfName:   ic.Name,
		JoinDR:   ifType == ospf.IfTypeBroadcast || ifType == ospf.IfTypeNBMA,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("interface %s: %w", ic.Name, err)
	}

	return iface, ln, nil
}

func applyAuth(cfg *ospf.IfConfig, ac config.AuthConfig) error {
	authType, err := parseAuthType(ac.Type)
	if err != nil {
		return err
	}
	cfg.AuthType = authType
	cfg.AuthSimpleKey = []byte(ac.SimpleKey)
	cfg.AuthMD5ActiveKey = ac.MD5ActiveKey
	if len(ac.MD5Keys) > 0 {
		cfg.AuthMD5Keys = make(map[uint8][]byte, len(ac.MD5Keys))
		for id, key := range ac.MD5Keys {
			cfg.AuthMD5Keys[id] = []byte(key)
		}
	}
	return nil
}

func parseIfType(s string) (ospf.IfType, error) {
	switch s {
	case "", "broadcast":
		return ospf.IfTypeBroadcast, nil
	case "nbma":
		return ospf.IfTypeNBMA, nil
	case "point_to_point":
		return ospf.IfTypePointToPoint, nil
	case "point_to_multipoint":
		return ospf.IfTypePointToMultipoint, nil
	case "loopback":
		return ospf.IfTypeLoopback, nil
	default:
		return 0, fmt.Errorf("%q: %w", s, errUnknownIfType)
	}
}

func parseAreaType(s string) (ospf.AreaType, error) {
	switch s {
	case "", "default":
		return ospf.AreaDefault, nil
	case "stub":
		return ospf.AreaStub, nil
	case "nssa":
		return ospf.AreaNSSA, nil
	default:
		return 0, fmt.Errorf("%q: %w", s, errUnknownAreaType)
	}
}

func parseAuthType(s string) (ospf.AuthType, error) {
	switch s {
	case "", "none":
		return ospf.AuthNone, nil
	case "simple":
		return ospf.AuthSimple, nil
	case "md5":
		return ospf.AuthMD5, nil
	default:
		return 0, fmt.Errorf("%q: %w", s, errUnknownAuthType)
	}
}

func parseABRType(s string) (ospf.ABRType, error) {
	switch s {
	case "cisco":
		return ospf.ABRTypeCisco, nil
	case "ibm":
		return ospf.ABRTypeIBM, nil
	case "shortcut":
		return ospf.ABRTypeShortcut, nil
	case "", "standard":
		return ospf.ABRTypeStandard, nil
	default:
		return 0, fmt.Errorf("%q: %w", s, errUnknownABRType)
	}
}

func closeListeners(listeners []*netio.Listener, logger *slog.Logger) {
	for _, ln := range listeners {
		if err := ln.Close(); err != nil {
			logger.Warn("failed to close OSPF listener", slog.String("error", err.Error()))
		}
	}
}

// bringUpInterfaces posts an IfEventInterfaceUp to every real interface
// once the event loop is running, the same "administratively enabled"
// trigger the interface state machine expects at startup (RFC 2328
// Section 9.1). Virtual links are excluded: their "line" only comes up
// once refreshVirtualLinks finds a reachable peer through the transit
// area's SPF tree.
func bringUpInterfaces(router *ospf.Router) {
	for _, area := range router.Areas() {
		for _, iface := range area.Interfaces() {
			if iface.Type() == ospf.IfTypeVirtualLink {
				continue
			}
			iface.Deliver(ospf.IfEventInterfaceUp)
		}
	}
}
