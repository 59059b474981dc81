package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	data := `
node:
  id: "!a1b2c3"
  name: Baltic-Harbour
policy:
  queue_capacity:
    acoustic: 32
journal:
  enabled: true
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Policy.IdleSleep != 5*time.Millisecond {
		t.Fatalf("expected IdleSleep default 5ms, got %s", cfg.Policy.IdleSleep)
	}
	if cfg.Policy.QueueCapacity["acoustic"] != 32 || cfg.Policy.QueueCapacity["position"] != 10 || cfg.Policy.QueueCapacity["visual"] != 5 {
		t.Fatalf("unexpected queue capacities %v", cfg.Policy.QueueCapacity)
	}
	if cfg.Schedule.Telemetry != "@every 5m" || cfg.Schedule.Ambient != "@every 10s" {
		t.Fatalf("unexpected schedule defaults %+v", cfg.Schedule)
	}
	if cfg.HTTP.Addr != ":9100" {
		t.Fatalf("expected default http addr :9100, got %s", cfg.HTTP.Addr)
	}
	if cfg.Directory.Capacity != 20 {
		t.Fatalf("expected directory capacity 20, got %d", cfg.Directory.Capacity)
	}
	if cfg.Radio.Kind != RadioLoopback || cfg.Sensors.Ambient != DriverSimulated {
		t.Fatalf("unexpected driver defaults radio=%s ambient=%s", cfg.Radio.Kind, cfg.Sensors.Ambient)
	}

	pol := cfg.PortsPolicy()
	if pol.QueueCapacity[domain.ModalityAcoustic] != 32 || !pol.JournalEnabled {
		t.Fatalf("policy not converted: %+v", pol)
	}
	if cfg.Schedule.Interval(domain.ModalityVisual) != 500*time.Millisecond {
		t.Fatalf("unexpected visual interval %s", cfg.Schedule.Interval(domain.ModalityVisual))
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad node id":       "node:\n  id: zz\n",
		"broadcast id":      "node:\n  id: ffffffff\n",
		"bad format":        "node:\n  format: xml\n",
		"ambient capacity":  "policy:\n  queue_capacity:\n    ambient: 4\n",
		"zero capacity":     "policy:\n  queue_capacity:\n    visual: 0\n",
		"unknown driver":    "sensors:\n  position: nmea\n",
		"zmq without bind":  "radio:\n  kind: zmq\n",
		"opcua no nodes":    "sensors:\n  ambient: opcua\n  opcua:\n    endpoint: opc.tcp://x:4840\n",
		"aht20 without bus": "sensors:\n  ambient: aht20\n",
		"name too long":     "node:\n  name: " + strings.Repeat("n", 200) + "\n",
	}
	for name, data := range cases {
		if _, err := Parse([]byte(data)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestParseNodeID(t *testing.T) {
	for _, in := range []string{"!abc123", "0xABC123", "abc123"} {
		id, err := ParseNodeID(in)
		if err != nil || id != 0xabc123 {
			t.Fatalf("ParseNodeID(%q) = %v, %v", in, id, err)
		}
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateBoundsAnnouncementSize(t *testing.T) {
	cfg := Default()
	cfg.Node.Name = strings.Repeat("n", 60)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("60 byte name should fit: %v", err)
	}

	cfg.Node.Format = "kv"
	cfg.Node.ShortName = strings.Repeat("s", 150)
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected oversize announcement to be rejected")
	}
}
