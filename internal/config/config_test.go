package config_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-ospfd/ospfd/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()

	if cfg.Admin.Addr != ":8080" {
		t.Errorf("Admin.Addr = %q, want %q", cfg.Admin.Addr, ":8080")
	}

	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9100")
	}

	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, "/metrics")
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}

	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}

	if cfg.OSPF.ABRType != "standard" {
		t.Errorf("OSPF.ABRType = %q, want %q", cfg.OSPF.ABRType, "standard")
	}

	if cfg.OSPF.SPFDelay != 200*time.Millisecond {
		t.Errorf("OSPF.SPFDelay = %v, want %v", cfg.OSPF.SPFDelay, 200*time.Millisecond)
	}

	if cfg.OSPF.SPFHoldtime != 1*time.Second {
		t.Errorf("OSPF.SPFHoldtime = %v, want %v", cfg.OSPF.SPFHoldtime, 1*time.Second)
	}

	// Defaults alone fail validation (no router_id configured); set one
	// and confirm the rest passes.
	cfg.OSPF.RouterID = "1.1.1.1"
	if err := config.Validate(cfg); err != nil {
		t.Errorf("DefaultConfig() with router_id set failed validation: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	t.Parallel()

	yamlContent := `
admin:
  addr: ":9090"
metrics:
  addr: ":9200"
  path: "/custom-metrics"
log:
  level: "debug"
  format: "text"
ospf:
  router_id: "10.0.0.1"
  abr_type: "cisco"
  spf_delay: "500ms"
  spf_holdtime: "2s"
areas:
  - id: "0.0.0.0"
    type: "default"
    interfaces:
      - name: "eth0"
        type: "broadcast"
        addr: "10.0.0.1/24"
        cost: 10
        priority: 1
        hello_interval: "10s"
        router_dead_interval: "40s"
`

	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.Admin.Addr != ":9090" {
		t.Errorf("Admin.Addr = %q, want %q", cfg.Admin.Addr, ":9090")
	}

	if cfg.Metrics.Addr != ":9200" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9200")
	}

	if cfg.Metrics.Path != "/custom-metrics" {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, "/custom-metrics")
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}

	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "text")
	}

	if cfg.OSPF.RouterID != "10.0.0.1" {
		t.Errorf("OSPF.RouterID = %q, want %q", cfg.OSPF.RouterID, "10.0.0.1")
	}

	if cfg.OSPF.ABRType != "cisco" {
		t.Errorf("OSPF.ABRType = %q, want %q", cfg.OSPF.ABRType, "cisco")
	}

	if cfg.OSPF.SPFDelay != 500*time.Millisecond {
		t.Errorf("OSPF.SPFDelay = %v, want %v", cfg.OSPF.SPFDelay, 500*time.Millisecond)
	}

	if len(cfg.Areas) != 1 {
		t.Fatalf("len(Areas) = %d, want 1", len(cfg.Areas))
	}
	if len(cfg.Areas[0].Interfaces) != 1 {
		t.Fatalf("len(Areas[0].Interfaces) = %d, want 1", len(cfg.Areas[0].Interfaces))
	}
	if cfg.Areas[0].Interfaces[0].Cost != 10 {
		t.Errorf("Areas[0].Interfaces[0].Cost = %d, want 10", cfg.Areas[0].Interfaces[0].Cost)
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	t.Parallel()

	// Partial YAML: only override admin.addr and log.level.
	// Everything else should inherit from defaults.
	yamlContent := `
admin:
  addr: ":9999"
log:
  level: "warn"
ospf:
  router_id: "1.2.3.4"
`

	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	// Overridden values.
	if cfg.Admin.Addr != ":9999" {
		t.Errorf("Admin.Addr = %q, want %q", cfg.Admin.Addr, ":9999")
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}

	// Default values should be preserved.
	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q, want default %q", cfg.Metrics.Addr, ":9100")
	}

	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want default %q", cfg.Metrics.Path, "/metrics")
	}

	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want default %q", cfg.Log.Format, "json")
	}

	if cfg.OSPF.ABRType != "standard" {
		t.Errorf("OSPF.ABRType = %q, want default %q", cfg.OSPF.ABRType, "standard")
	}

	if cfg.OSPF.SPFHoldtime != 1*time.Second {
		t.Errorf("OSPF.SPFHoldtime = %v, want default %v", cfg.OSPF.SPFHoldtime, 1*time.Second)
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*config.Config)
		wantErr error
	}{
		{
			name: "empty admin addr",
			modify: func(cfg *config.Config) {
				cfg.OSPF.RouterID = "1.1.1.1"
				cfg.Admin.Addr = ""
			},
			wantErr: config.ErrEmptyAdminAddr,
		},
		{
			name: "empty router id",
			modify: func(cfg *config.Config) {
				cfg.OSPF.RouterID = ""
			},
			wantErr: config.ErrEmptyRouterID,
		},
		{
			name: "invalid router id",
			modify: func(cfg *config.Config) {
				cfg.OSPF.RouterID = "not-an-ip"
			},
			wantErr: config.ErrInvalidRouterID,
		},
		{
			name: "invalid abr type",
			modify: func(cfg *config.Config) {
				cfg.OSPF.RouterID = "1.1.1.1"
				cfg.OSPF.ABRType = "bogus"
			},
			wantErr: config.ErrInvalidABRType,
		},
		{
			name: "duplicate area id",
			modify: func(cfg *config.Config) {
				cfg.OSPF.RouterID = "1.1.1.1"
				cfg.Areas = []config.AreaConfig{
					{ID: "0.0.0.1"},
					{ID: "0.0.0.1"},
				}
			},
			wantErr: config.ErrDuplicateAreaID,
		},
		{
			name: "invalid area type",
			modify: func(cfg *config.Config) {
				cfg.OSPF.RouterID = "1.1.1.1"
				cfg.Areas = []config.AreaConfig{
					{ID: "0.0.0.1", Type: "bogus"},
				}
			},
			wantErr: config.ErrInvalidAreaType,
		},
		{
			name: "invalid interface type",
			modify: func(cfg *config.Config) {
				cfg.OSPF.RouterID = "1.1.1.1"
				cfg.Areas = []config.AreaConfig{
					{ID: "0.0.0.0", Interfaces: []config.InterfaceConfig{
						{Name: "eth0", Type: "bogus", Addr: "10.0.0.1/24"},
					}},
				}
			},
			wantErr: config.ErrInvalidInterfaceType,
		},
		{
			name: "missing md5 active key",
			modify: func(cfg *config.Config) {
				cfg.OSPF.RouterID = "1.1.1.1"
				cfg.Areas = []config.AreaConfig{
					{ID: "0.0.0.0", Interfaces: []config.InterfaceConfig{
						{
							Name: "eth0", Type: "broadcast", Addr: "10.0.0.1/24",
							Auth: config.AuthConfig{Type: "md5", MD5ActiveKey: 1, MD5Keys: map[uint8]string{2: "secret"}},
						},
					}},
				}
			},
			wantErr: config.ErrMissingMD5Key,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			tt.modify(cfg)

			err := config.Validate(cfg)
			if err == nil {
				t.Fatal("Validate() returned nil, want error")
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  slog.Level
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "DEBUG", want: slog.LevelDebug},
		{input: "info", want: slog.LevelInfo},
		{input: "INFO", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "WARN", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "Error", want: slog.LevelError},
		{input: "unknown", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
		{input: "trace", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got := config.ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoadNonexistentFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load("/nonexistent/path/config.yml")
	if err == nil {
		t.Fatal("Load() returned nil error for nonexistent file")
	}
}

// -------------------------------------------------------------------------
// Area/Range/Interface Config Tests
// -------------------------------------------------------------------------

func TestLoadWithAreasAndRanges(t *testing.T) {
	t.Parallel()

	yamlContent := `
ospf:
  router_id: "1.1.1.1"
areas:
  - id: "0.0.0.0"
    type: default
    interfaces:
      - name: eth0
        type: point_to_point
        addr: "10.0.0.1/30"
  - id: "0.0.0.1"
    type: stub
    stub_default_cost: 10
    ranges:
      - prefix: "10.1.0.0/16"
        advertise: true
      - prefix: "10.2.0.0/16"
        advertise: false
    interfaces:
      - name: eth1
        type: broadcast
        addr: "10.1.0.1/24"
        cost: 5
`

	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if len(cfg.Areas) != 2 {
		t.Fatalf("Areas count = %d, want 2", len(cfg.Areas))
	}

	backbone := cfg.Areas[0]
	if backbone.ID != "0.0.0.0" {
		t.Errorf("Areas[0].ID = %q, want %q", backbone.ID, "0.0.0.0")
	}
	if backbone.Interfaces[0].Type != "point_to_point" {
		t.Errorf("Areas[0].Interfaces[0].Type = %q, want %q", backbone.Interfaces[0].Type, "point_to_point")
	}

	stub := cfg.Areas[1]
	if stub.Type != "stub" {
		t.Errorf("Areas[1].Type = %q, want %q", stub.Type, "stub")
	}
	if stub.StubDefaultCost != 10 {
		t.Errorf("Areas[1].StubDefaultCost = %d, want 10", stub.StubDefaultCost)
	}
	if len(stub.Ranges) != 2 {
		t.Fatalf("Areas[1].Ranges count = %d, want 2", len(stub.Ranges))
	}
	if !stub.Ranges[0].Advertise {
		t.Error("Areas[1].Ranges[0].Advertise = false, want true")
	}
	if stub.Ranges[1].Advertise {
		t.Error("Areas[1].Ranges[1].Advertise = true, want false")
	}
}

func TestAreaConfigRangePrefix(t *testing.T) {
	t.Parallel()

	rc := config.RangeConfig{Prefix: "10.0.0.0/8"}
	p, err := rc.RangePrefix()
	if err != nil {
		t.Fatalf("RangePrefix() error: %v", err)
	}
	if p.String() != "10.0.0.0/8" {
		t.Errorf("RangePrefix() = %s, want 10.0.0.0/8", p)
	}
}

func TestInterfaceConfigAddrPrefix(t *testing.T) {
	t.Parallel()

	ic := config.InterfaceConfig{Name: "eth0", Addr: "192.168.1.1/24"}
	p, err := ic.AddrPrefix()
	if err != nil {
		t.Fatalf("AddrPrefix() error: %v", err)
	}
	if p.String() != "192.168.1.1/24" {
		t.Errorf("AddrPrefix() = %s, want 192.168.1.1/24", p)
	}
}

func TestRouterIDValue(t *testing.T) {
	t.Parallel()

	got, err := config.RouterIDValue("1.2.3.4")
	if err != nil {
		t.Fatalf("RouterIDValue() error: %v", err)
	}
	want := uint32(1)<<24 | uint32(2)<<16 | uint32(3)<<8 | uint32(4)
	if got != want {
		t.Errorf("RouterIDValue() = %#x, want %#x", got, want)
	}

	if _, err := config.RouterIDValue("not-an-ip"); err == nil {
		t.Error("RouterIDValue(\"not-an-ip\") returned nil error, want error")
	}
}

// -------------------------------------------------------------------------
// Environment Variable Override Tests
// -------------------------------------------------------------------------

func TestLoadEnvOverrides(t *testing.T) {
	// Environment variable tests cannot be parallel because they modify
	// process-wide state (os.Setenv).

	yamlContent := `
ospf:
  router_id: "1.1.1.1"
log:
  level: "info"
`
	path := writeTemp(t, yamlContent)

	// Set env overrides.
	t.Setenv("OSPFD_ADMIN_ADDR", ":60000")
	t.Setenv("OSPFD_LOG_LEVEL", "debug")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.Admin.Addr != ":60000" {
		t.Errorf("Admin.Addr = %q, want %q (from env)", cfg.Admin.Addr, ":60000")
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q (from env)", cfg.Log.Level, "debug")
	}
}

func TestLoadEnvOverridesMetrics(t *testing.T) {
	yamlContent := `
ospf:
  router_id: "1.1.1.1"
metrics:
  addr: ":9100"
  path: "/metrics"
`
	path := writeTemp(t, yamlContent)

	t.Setenv("OSPFD_METRICS_ADDR", ":9200")
	t.Setenv("OSPFD_METRICS_PATH", "/custom")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.Metrics.Addr != ":9200" {
		t.Errorf("Metrics.Addr = %q, want %q (from env)", cfg.Metrics.Addr, ":9200")
	}

	if cfg.Metrics.Path != "/custom" {
		t.Errorf("Metrics.Path = %q, want %q (from env)", cfg.Metrics.Path, "/custom")
	}
}

// writeTemp creates a temporary YAML file and returns its path.
// The file is automatically cleaned up when the test finishes.
func writeTemp(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "ospfd.yml")

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	return path
}
