package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.HTTPPort != 80 || cfg.Server.TallyPort != 81 || cfg.Server.DNSPort != 53 {
		t.Fatalf("unexpected ports: %+v", cfg.Server)
	}
	if cfg.Network.AssociationAttempts != 30 || cfg.Network.AssociationInterval != 500*time.Millisecond {
		t.Fatalf("unexpected association window: %+v", cfg.Network)
	}
	if cfg.Network.APSSID != "TALLY_SETUP" || cfg.Network.APAddress != "192.168.1.1" {
		t.Fatalf("unexpected AP identity: %+v", cfg.Network)
	}
	if cfg.Reset.Threshold != 500 {
		t.Fatalf("unexpected reset threshold %d", cfg.Reset.Threshold)
	}
	if cfg.Outputs.Strip.Brightness != 10 || cfg.Outputs.Strip.Pixels != 8 {
		t.Fatalf("unexpected strip defaults: %+v", cfg.Outputs.Strip)
	}
	if cfg.Provisioning.LegacyDecode {
		t.Fatalf("legacy decode must be off by default")
	}
}

func TestLoad_MissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.RegionSize != 512 {
		t.Fatalf("unexpected region size %d", cfg.Storage.RegionSize)
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: 8080
  tally_port: 8081
network:
  driver: nmcli
  association_attempts: 5
  association_interval: 100ms
outputs:
  discrete:
    driver: modbus
    preview: ["1", "3", "5"]
    program: ["0", "2", "4"]
    modbus:
      address: 10.0.0.20:502
provisioning:
  legacy_decode: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.HTTPPort != 8080 || cfg.Server.TallyPort != 8081 {
		t.Fatalf("ports not overridden: %+v", cfg.Server)
	}
	if cfg.Network.Driver != "nmcli" || cfg.Network.AssociationInterval != 100*time.Millisecond {
		t.Fatalf("network not overridden: %+v", cfg.Network)
	}
	if cfg.Outputs.Discrete.Modbus.Address != "10.0.0.20:502" || cfg.Outputs.Discrete.Modbus.UnitID != 1 {
		t.Fatalf("modbus not merged: %+v", cfg.Outputs.Discrete.Modbus)
	}
	if len(cfg.Outputs.Discrete.Program) != 3 || cfg.Outputs.Discrete.Program[2] != "4" {
		t.Fatalf("program lines: %v", cfg.Outputs.Discrete.Program)
	}
	if !cfg.Provisioning.LegacyDecode {
		t.Fatalf("legacy decode not set")
	}
}

func TestLoad_SchemaRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"port out of range": "server:\n  http_port: 70000\n",
		"unknown driver":    "network:\n  driver: bluetooth\n",
		"too many lines":    "outputs:\n  discrete:\n    preview: [a, b, c, d]\n",
		"bad ap address":    "network:\n  ap_address: not-an-ip\n",
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), "validation") {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
