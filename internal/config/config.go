// Package config manages ospfd daemon configuration using koanf/v2.
//
// Supports YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete ospfd configuration.
type Config struct {
	Admin   AdminConfig   `koanf:"admin"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	RIB     RIBConfig     `koanf:"rib"`
	OSPF    OSPFConfig    `koanf:"ospf"`
	Areas   []AreaConfig  `koanf:"areas"`
}

// AdminConfig holds the read-only introspection HTTP API configuration
type AdminConfig struct {
	// Addr is the HTTP listen address (e.g., ":8080").
	Addr string `koanf:"addr"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// RIBConfig holds the kernel RIB client connection configuration
type RIBConfig struct {
	// Network is the dial network, e.g. "unix" or "tcp".
	Network string `koanf:"network"`
	// Addr is the dial address: a socket path for "unix", host:port for "tcp".
	Addr string `koanf:"addr"`
}

// OSPFConfig holds the process-wide OSPF attributes
type OSPFConfig struct {
	// RouterID is the dotted-quad OSPF router identifier.
	RouterID string `koanf:"router_id"`

	// ABRType selects the area-border-router compatibility flavor:
	// "cisco", "ibm", "shortcut", or "standard".
	ABRType string `koanf:"abr_type"`

	// RFC1583Compat selects the pre-Section-16.4 (RFC 1583) external-path
	// preference rule instead of the RFC 2328 Section 16.4 rule.
	RFC1583Compat bool `koanf:"rfc1583_compat"`

	// SPFDelay is the quiet period after the first trigger before an SPF
	// run fires (RFC 2328 Section 16.5).
	SPFDelay time.Duration `koanf:"spf_delay"`

	// SPFHoldtime is the minimum interval between successive SPF runs.
	SPFHoldtime time.Duration `koanf:"spf_holdtime"`
}

// AreaConfig describes one configured OSPF area and its interfaces
type AreaConfig struct {
	// ID is the dotted-quad area identifier ("0.0.0.0" is the backbone).
	ID string `koanf:"id"`

	// Type is the area's external-routing capability: "default", "stub",
	// or "nssa" (RFC 2328 Section 3.6).
	Type string `koanf:"type"`

	// StubDefaultCost is parsed from the config file but is not passed to the
	// engine: the Type-3 default route a stub/NSSA ABR originates into the
	// area (RFC 2328 Section 12.4.3) is always advertised with cost 0.
	StubDefaultCost uint32 `koanf:"stub_default_cost"`

	Ranges       []RangeConfig       `koanf:"ranges"`
	Interfaces   []InterfaceConfig   `koanf:"interfaces"`
	VirtualLinks []VirtualLinkConfig `koanf:"virtual_links"`
}

// RangeConfig describes one area-range aggregate (RFC 2328 Section 3.5).
type RangeConfig struct {
	// Prefix is the CIDR prefix to aggregate, e.g. "10.1.0.0/16".
	Prefix string `koanf:"prefix"`

	// Advertise controls whether the range is summarized (true) or
	// suppressed entirely (false, "area range ... not-advertise").
	Advertise bool `koanf:"advertise"`

	// Cost is an explicit cost override; 0 means "use the max contained
	// cost" (RFC 2328 Section 16.2).
	Cost uint32 `koanf:"cost"`
}

// InterfaceConfig describes one OSPF-enabled interface
type InterfaceConfig struct {
	// Name is the kernel interface name (e.g., "eth0").
	Name string `koanf:"name"`

	// Type is the link type: "broadcast", "nbma", "point_to_point",
	// "point_to_multipoint", or "loopback".
	Type string `koanf:"type"`

	// Addr is the interface's IPv4 address and subnet, e.g. "10.0.1.1/24".
	Addr string `koanf:"addr"`

	Cost               uint16        `koanf:"cost"`
	Priority           uint8         `koanf:"priority"`
	HelloInterval      time.Duration `koanf:"hello_interval"`
	RouterDeadInterval time.Duration `koanf:"router_dead_interval"`
	RxmtInterval       time.Duration `koanf:"rxmt_interval"`
	TransmitDelay      time.Duration `koanf:"transmit_delay"`
	Passive            bool          `koanf:"passive"`
	MTU                uint16        `koanf:"mtu"`

	Auth AuthConfig `koanf:"auth"`
}

// VirtualLinkConfig describes one virtual link whose transit area is the
// enclosing AreaConfig (RFC 2328 Section 15).
type VirtualLinkConfig struct {
	// PeerRouterID is the dotted-quad router-id of the virtual neighbor.
	PeerRouterID string `koanf:"peer_router_id"`

	HelloInterval      time.Duration `koanf:"hello_interval"`
	RouterDeadInterval time.Duration `koanf:"router_dead_interval"`
	RxmtInterval       time.Duration `koanf:"rxmt_interval"`
	TransmitDelay      time.Duration `koanf:"transmit_delay"`

	Auth AuthConfig `koanf:"auth"`
}

// AuthConfig describes an interface's authentication method
// (RFC 2328 Appendix D.3). Keys are supplied externally, never generated
// or distributed by this daemon.
type AuthConfig struct {
	// Type is "none", "simple", or "md5".
	Type string `koanf:"type"`

	// SimpleKey is the cleartext key used when Type == "simple".
	SimpleKey string `koanf:"simple_key"`

	// MD5Keys maps a key id to its secret, supporting key rollover
	// (RFC 2328 Appendix D.3).
	MD5Keys map[uint8]string `koanf:"md5_keys"`

	// MD5ActiveKey is the key id used to sign outgoing packets; the
	// remaining entries in MD5Keys are accepted for incoming packets
	// during rollover.
	MD5ActiveKey uint8 `koanf:"md5_active_key"`
}

// AddrPrefix parses Addr as a netip.Prefix.
func (ic InterfaceConfig) AddrPrefix() (netip.Prefix, error) {
	p, err := netip.ParsePrefix(ic.Addr)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("interface %s addr %q: %w", ic.Name, ic.Addr, err)
	}
	return p, nil
}

// RangePrefix parses Prefix as a netip.Prefix.
func (rc RangeConfig) RangePrefix() (netip.Prefix, error) {
	p, err := netip.ParsePrefix(rc.Prefix)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("range %q: %w", rc.Prefix, err)
	}
	return p, nil
}

// RouterIDValue parses s as a dotted-quad router/area identifier, returning
// its wire uint32 form.
func RouterIDValue(s string) (uint32, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return 0, fmt.Errorf("parse router/area id %q: %w", s, err)
	}
	if !addr.Is4() {
		return 0, fmt.Errorf("router/area id %q: %w", s, ErrNotIPv4)
	}
	b := addr.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
//
// Interface timers are not set here. ospf.NewInterface fills in
// HelloInterval 10s, RouterDeadInterval 4x HelloInterval, and
// RxmtInterval 5s when they are zero; TransmitDelay has no default.
func DefaultConfig() *Config {
	return &Config{
		Admin: AdminConfig{
			Addr: ":8080",
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		RIB: RIBConfig{
			Network: "unix",
			Addr:    "/var/run/ospfd/rib.sock",
		},
		OSPF: OSPFConfig{
			ABRType:     "standard",
			SPFDelay:    200 * time.Millisecond,
			SPFHoldtime: 1 * time.Second,
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for ospfd configuration.
// Variables are named OSPFD_<section>_<key>, e.g., OSPFD_ADMIN_ADDR.
const envPrefix = "OSPFD_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (OSPFD_ prefix), and merges on top of DefaultConfig().
// Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	OSPFD_ADMIN_ADDR     -> admin.addr
//	OSPFD_METRICS_ADDR   -> metrics.addr
//	OSPFD_METRICS_PATH   -> metrics.path
//	OSPFD_LOG_LEVEL      -> log.level
//	OSPFD_LOG_FORMAT     -> log.format
//	OSPFD_OSPF_ROUTER_ID -> ospf.router_id
//
// Uses koanf/v2 with file + env providers and YAML parser. Areas and their
// interfaces are YAML-only: the env provider cannot sanely address a list
// of structs.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Load defaults first.
	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	// Load YAML file on top of defaults.
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	// Load environment variable overrides on top of YAML.
	// OSPFD_ADMIN_ADDR -> admin.addr (strip prefix, lowercase, first _ -> .).
	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms OSPFD_ADMIN_ADDR -> admin.addr.
// Strips the OSPFD_ prefix, lowercases, and replaces the first _ with .
// (the section separator), so OSPFD_OSPF_ROUTER_ID -> ospf.router_id.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.Replace(s, "_", ".", 1)
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"admin.addr":        defaults.Admin.Addr,
		"metrics.addr":      defaults.Metrics.Addr,
		"metrics.path":      defaults.Metrics.Path,
		"log.level":         defaults.Log.Level,
		"log.format":        defaults.Log.Format,
		"rib.network":       defaults.RIB.Network,
		"rib.addr":          defaults.RIB.Addr,
		"ospf.abr_type":     defaults.OSPF.ABRType,
		"ospf.spf_delay":    defaults.OSPF.SPFDelay.String(),
		"ospf.spf_holdtime": defaults.OSPF.SPFHoldtime.String(),
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyAdminAddr indicates the admin HTTP listen address is empty.
	ErrEmptyAdminAddr = errors.New("admin.addr must not be empty")

	// ErrEmptyRouterID indicates ospf.router_id is unset.
	ErrEmptyRouterID = errors.New("ospf.router_id must not be empty")

	// ErrInvalidRouterID indicates ospf.router_id does not parse as a
	// dotted-quad IPv4 address.
	ErrInvalidRouterID = errors.New("ospf.router_id must be a dotted-quad IPv4 address")

	// ErrInvalidABRType indicates an unrecognized ospf.abr_type value.
	ErrInvalidABRType = errors.New("ospf.abr_type must be one of cisco, ibm, shortcut, standard")

	// ErrInvalidAreaID indicates an area entry has an unparseable id.
	ErrInvalidAreaID = errors.New("area id must be a dotted-quad IPv4 address")

	// ErrInvalidAreaType indicates an unrecognized area type string.
	ErrInvalidAreaType = errors.New("area type must be default, stub, or nssa")

	// ErrDuplicateAreaID indicates two area entries share the same id.
	ErrDuplicateAreaID = errors.New("duplicate area id")

	// ErrInvalidInterfaceType indicates an unrecognized interface type string.
	ErrInvalidInterfaceType = errors.New("interface type must be broadcast, nbma, point_to_point, point_to_multipoint, or loopback")

	// ErrEmptyInterfaceName indicates an interface entry has no name.
	ErrEmptyInterfaceName = errors.New("interface name must not be empty")

	// ErrInvalidInterfaceAddr indicates an interface entry's addr does not
	// parse as a CIDR prefix.
	ErrInvalidInterfaceAddr = errors.New("interface addr must be a CIDR prefix")

	// ErrInvalidRangePrefix indicates a range entry's prefix does not parse.
	ErrInvalidRangePrefix = errors.New("area range prefix must be a CIDR prefix")

	// ErrInvalidAuthType indicates an unrecognized auth type string.
	ErrInvalidAuthType = errors.New("auth type must be none, simple, or md5")

	// ErrMissingMD5Key indicates auth type md5 with no active key configured.
	ErrMissingMD5Key = errors.New("auth type md5 requires an md5_active_key present in md5_keys")

	// ErrNotIPv4 indicates a parsed address was not an IPv4 address.
	ErrNotIPv4 = errors.New("address is not IPv4")
)

// ValidAreaTypes lists the recognized area type strings.
var ValidAreaTypes = map[string]bool{
	"default": true,
	"stub":    true,
	"nssa":    true,
}

// ValidInterfaceTypes lists the recognized interface type strings.
var ValidInterfaceTypes = map[string]bool{
	"broadcast":           true,
	"nbma":                true,
	"point_to_point":      true,
	"point_to_multipoint": true,
	"loopback":            true,
}

// ValidABRTypes lists the recognized ospf.abr_type strings.
var ValidABRTypes = map[string]bool{
	"cisco":    true,
	"ibm":      true,
	"shortcut": true,
	"standard": true,
}

// ValidAuthTypes lists the recognized auth.type strings.
var ValidAuthTypes = map[string]bool{
	"none":   true,
	"simple": true,
	"md5":    true,
}

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.Admin.Addr == "" {
		return ErrEmptyAdminAddr
	}

	if cfg.OSPF.RouterID == "" {
		return ErrEmptyRouterID
	}
	if _, err := RouterIDValue(cfg.OSPF.RouterID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRouterID, err)
	}

	if !ValidABRTypes[cfg.OSPF.ABRType] {
		return fmt.Errorf("%q: %w", cfg.OSPF.ABRType, ErrInvalidABRType)
	}

	if err := validateAreas(cfg.Areas); err != nil {
		return err
	}

	return nil
}

func validateAreas(areas []AreaConfig) error {
	seen := make(map[string]struct{}, len(areas))

	for i, ac := range areas {
		if _, err := RouterIDValue(ac.ID); err != nil {
			return fmt.Errorf("areas[%d]: %w: %w", i, ErrInvalidAreaID, err)
		}
		if ac.Type != "" && !ValidAreaTypes[ac.Type] {
			return fmt.Errorf("areas[%d] type %q: %w", i, ac.Type, ErrInvalidAreaType)
		}
		if _, dup := seen[ac.ID]; dup {
			return fmt.Errorf("areas[%d] id %q: %w", i, ac.ID, ErrDuplicateAreaID)
		}
		seen[ac.ID] = struct{}{}

		for j, rc := range ac.Ranges {
			if _, err := rc.RangePrefix(); err != nil {
				return fmt.Errorf("areas[%d].ranges[%d]: %w: %w", i, j, ErrInvalidRangePrefix, err)
			}
		}

		if err := validateInterfaces(i, ac.Interfaces); err != nil {
			return err
		}
	}

	return nil
}

func validateInterfaces(areaIdx int, ifaces []InterfaceConfig) error {
	for j, ic := range ifaces {
		if ic.Name == "" {
			return fmt.Errorf("areas[%d].interfaces[%d]: %w", areaIdx, j, ErrEmptyInterfaceName)
		}
		if ic.Type != "" && !ValidInterfaceTypes[ic.Type] {
			return fmt.Errorf("areas[%d].interfaces[%d] type %q: %w", areaIdx, j, ic.Type, ErrInvalidInterfaceType)
		}
		if ic.Type != "loopback" {
			if _, err := ic.AddrPrefix(); err != nil {
				return fmt.Errorf("areas[%d].interfaces[%d]: %w: %w", areaIdx, j, ErrInvalidInterfaceAddr, err)
			}
		}
		if err := validateAuth(ic.Auth); err != nil {
			return fmt.Errorf("areas[%d].interfaces[%d]: %w", areaIdx, j, err)
		}
	}
	return nil
}

func validateAuth(ac AuthConfig) error {
	if ac.Type != "" && !ValidAuthTypes[ac.Type] {
		return fmt.Errorf("%q: %w", ac.Type, ErrInvalidAuthType)
	}
	if ac.Type == "md5" {
		if _, ok := ac.MD5Keys[ac.MD5ActiveKey]; !ok {
			return ErrMissingMD5Key
		}
	}
	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
