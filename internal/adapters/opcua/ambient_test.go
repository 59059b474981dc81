package opcua

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gopcua/opcua/ua"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

type nopObs struct{ errors int }

func (*nopObs) LogInfo(string, ...ports.Field)            {}
func (o *nopObs) LogError(string, error, ...ports.Field)  { o.errors++ }
func (*nopObs) LogCritical(string, error, ...ports.Field) {}
func (*nopObs) IncCounter(string, float64)                {}
func (*nopObs) ObserveLatency(string, float64)            {}
func (*nopObs) SetGauge(string, float64)                  {}
func (*nopObs) RecordDiscard(string, []byte, error)       {}

func stationConfig() Config {
	return Config{
		Endpoint: "opc.tcp://station:4840",
		Nodes: []NodeConfig{
			{NodeID: "ns=2;s=Water.Temp", Field: "water_temp"},
			{NodeID: "ns=2;s=Wave.Height.cm", Field: "wave_height", Scale: 0.01},
		},
	}
}

func TestConfigDefaultsAndValidation(t *testing.T) {
	cfg := stationConfig()
	cfg.ApplyDefaults()
	if cfg.SecurityMode != "None" || cfg.MaxAge != 5*time.Minute {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Nodes[0].Scale != 1 || cfg.Nodes[1].Scale != 0.01 {
		t.Fatalf("unexpected scales: %+v", cfg.Nodes)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	bad := stationConfig()
	bad.Nodes[1].Field = "salinity"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected unknown field error")
	}
	dup := stationConfig()
	dup.Nodes[1].Field = "water_temp"
	if err := dup.Validate(); err == nil {
		t.Fatalf("expected duplicate field error")
	}
	if err := (&Config{}).Validate(); err == nil {
		t.Fatalf("expected missing endpoint error")
	}
}

func TestApplyMergesNotifications(t *testing.T) {
	obs := &nopObs{}
	a, err := NewAmbient(stationConfig(), obs)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := a.Read(context.Background(), nil); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData before first update, got %v", err)
	}

	src := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a.apply(&ua.DataChangeNotification{MonitoredItems: []*ua.MonitoredItemNotification{
		{ClientHandle: 1, Value: &ua.DataValue{Value: ua.MustVariant(float32(11.5)), SourceTimestamp: src}},
		{ClientHandle: 2, Value: &ua.DataValue{Value: ua.MustVariant(int32(140))}},
		{ClientHandle: 9, Value: &ua.DataValue{Value: ua.MustVariant(1.0)}},
		{ClientHandle: 1, Value: &ua.DataValue{Value: ua.MustVariant("warm")}},
	}})

	s, err := a.Read(context.Background(), nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s.WaterTemperature != 11.5 {
		t.Fatalf("water temp = %f", s.WaterTemperature)
	}
	if s.WaveHeight < 1.39 || s.WaveHeight > 1.41 {
		t.Fatalf("wave height not scaled: %f", s.WaveHeight)
	}
	if obs.errors != 1 {
		t.Fatalf("expected one unsupported value, got %d", obs.errors)
	}
}

func TestReadExpiresStaleData(t *testing.T) {
	a, _ := NewAmbient(stationConfig(), &nopObs{})
	base := time.Now()
	a.now = func() time.Time { return base }
	a.apply(&ua.DataChangeNotification{MonitoredItems: []*ua.MonitoredItemNotification{
		{ClientHandle: 1, Value: &ua.DataValue{Value: ua.MustVariant(10.0)}},
	}})
	a.now = func() time.Time { return base.Add(6 * time.Minute) }
	if _, err := a.Read(context.Background(), nil); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected stale data to be rejected, got %v", err)
	}
}

func TestVariantToFloat(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{float64(2.5), 2.5, true},
		{uint16(7), 7, true},
		{true, 1, true},
		{"x", 0, false},
	}
	for _, c := range cases {
		got, ok := variantToFloat(ua.MustVariant(c.in))
		if ok != c.ok || got != c.want {
			t.Fatalf("variantToFloat(%v) = %v, %v", c.in, got, ok)
		}
	}
	if _, ok := variantToFloat(nil); ok {
		t.Fatalf("nil variant accepted")
	}
}
