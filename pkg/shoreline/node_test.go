package shoreline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/adapters/radio"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/protocol/mesh"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Node.ID = "!a1b2c3"
	cfg.Sensors.Position = "none"
	cfg.Sensors.Acoustic = "none"
	cfg.Sensors.Visual = "none"
	cfg.Sensors.Seed = 11
	cfg.Journal.Enabled = true
	cfg.Journal.Dir = t.TempDir()
	cfg.Policy.IdleSleep = time.Millisecond
	cfg.Schedule.Receive = 5 * time.Millisecond
	return cfg
}

func TestNewNodeRuntimeWithCustomAdapters(t *testing.T) {
	cfg := testConfig(t)

	medium := radio.NewMedium()
	radioStub := medium.Attach(LinkQuality{})
	sinkStub := &stubSink{}
	journalStub := &stubJournal{}
	obsStub := &stubObservability{}
	sensorStub := &stubSensor{}

	rt, err := NewNodeRuntime(
		cfg,
		WithRadio(radioStub),
		WithSink(sinkStub),
		WithJournal(journalStub),
		WithObservability(obsStub),
		WithSensor(sensorStub),
		WithIdentity(Identity{ID: 0x42, Name: "pier"}),
		WithoutHTTP(),
	)
	if err != nil {
		t.Fatalf("NewNodeRuntime returned error: %v", err)
	}

	if rt.radio != radioStub {
		t.Fatalf("expected custom radio to be used")
	}
	if rt.journal != journalStub {
		t.Fatalf("expected custom journal to be used")
	}
	if rt.obs != obsStub {
		t.Fatalf("expected custom observability to be used")
	}
	if rt.sinks.Len() != 1 {
		t.Fatalf("expected only the custom sink, got %d", rt.sinks.Len())
	}
	if len(rt.sensors) != 1 || rt.sensors[0].driver != "custom" {
		t.Fatalf("expected custom acoustic sensor only, got %+v", rt.sensors)
	}
	if rt.Identity().Name != "pier" {
		t.Fatalf("expected fixed identity")
	}
	if rt.db != nil {
		t.Fatalf("expected db to be nil without a timescale connection string")
	}
	if rt.http != nil {
		t.Fatalf("expected http server to be disabled")
	}
}

func TestNewNodeRuntimeRejectsBadPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Policy.QueueCapacity["visual"] = 0
	obs := &stubObservability{}
	if _, err := NewNodeRuntime(cfg, WithObservability(obs), WithoutHTTP()); err == nil {
		t.Fatalf("expected startup error for zero capacity")
	}
	if obs.criticals() != 1 {
		t.Fatalf("expected one critical log, got %d", obs.criticals())
	}
}

func TestNodeRuntimeAnnouncesAndLearnsPeers(t *testing.T) {
	cfg := testConfig(t)
	medium := radio.NewMedium()
	nodeRadio := medium.Attach(LinkQuality{RSSI: -80, SNR: 7.5})
	peer := medium.Attach(LinkQuality{})
	if err := peer.StartReceive(); err != nil {
		t.Fatalf("peer listen: %v", err)
	}

	msgs, got := collect()
	rt, err := NewNodeRuntime(cfg,
		WithRadio(nodeRadio),
		WithObservability(&stubObservability{}),
		WithSink(NewCallbackSink("test", msgs)),
		WithoutHTTP(),
	)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := rt.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		if err := rt.Shutdown(shutdownCtx); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	}()

	announced := waitFor(t, func() bool {
		frame, _, ok := peer.ReceiveAvailable()
		if !ok {
			return false
		}
		pkt, pl, err := mesh.Decode(frame)
		if err != nil {
			return false
		}
		return pl.Type == mesh.TypeNodeInfo && pkt.From == 0xa1b2c3
	})
	if !announced {
		t.Fatalf("peer never heard the startup announcement")
	}

	hello := mesh.NewNodeInfo(Identity{ID: 0x1234, Name: "Baltic-1234", ShortName: "BS-234"}, time.Minute).Render(mesh.FormatJSON)
	frame := mesh.Encode(0x1234, 0xFFFFFFFF, mesh.DefaultHopLimit, 9, hello)
	learned := waitFor(t, func() bool {
		_ = peer.Transmit(context.Background(), []byte(frame))
		_ = peer.StartReceive()
		return len(rt.Nodes()) == 1
	})
	if !learned {
		t.Fatalf("runtime never learned the peer")
	}
	node := rt.Nodes()[0]
	if node.Name != "Baltic-1234" || node.RSSI != -80 {
		t.Fatalf("unexpected directory entry %+v", node)
	}

	if !rt.RequestTelemetry() {
		t.Fatalf("telemetry request should be accepted")
	}
	sawTelemetry := waitFor(t, func() bool {
		for _, m := range got() {
			if m.Kind == mesh.TypeTelemetry {
				return true
			}
		}
		return false
	})
	if !sawTelemetry {
		t.Fatalf("telemetry broadcast never reached the sink")
	}

	st := rt.Status()
	if st.Node.ID != 0xa1b2c3 || st.Environment == nil || st.Journal == nil {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.Directory.Nodes != 1 || st.Directory.Capacity != 20 {
		t.Fatalf("unexpected directory status %+v", st.Directory)
	}
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func collect() (MessageHandler, func() []Message) {
	var (
		mu  sync.Mutex
		out []Message
	)
	handler := func(m Message) error {
		mu.Lock()
		out = append(out, m)
		mu.Unlock()
		return nil
	}
	return handler, func() []Message {
		mu.Lock()
		defer mu.Unlock()
		return append([]Message(nil), out...)
	}
}

type stubSensor struct{}

func (s *stubSensor) Name() string       { return "stub" }
func (s *stubSensor) Modality() Modality { return ModalityAcoustic }
func (s *stubSensor) Available() bool    { return false }
func (s *stubSensor) Fetch(context.Context, Bus) (SensorEvent, error) {
	return AcousticDetection{}, nil
}

type stubSink struct{}

func (s *stubSink) Accept(context.Context, Message) error { return nil }
func (s *stubSink) Name() string                          { return "stub" }

type stubJournal struct{}

func (s *stubJournal) Append(JournalRecord) (JournalEntryID, error) { return 1, nil }
func (s *stubJournal) Iterate(JournalEntryID, func(JournalEntryID, JournalRecord) error) error {
	return nil
}
func (s *stubJournal) Stats() JournalStats { return JournalStats{} }
func (s *stubJournal) Close() error        { return nil }

type stubObservability struct {
	mu       sync.Mutex
	critical int
}

func (s *stubObservability) LogInfo(string, ...Field)            {}
func (s *stubObservability) LogError(string, error, ...Field)    {}
func (s *stubObservability) IncCounter(string, float64)          {}
func (s *stubObservability) ObserveLatency(string, float64)      {}
func (s *stubObservability) SetGauge(string, float64)            {}
func (s *stubObservability) RecordDiscard(string, []byte, error) {}
func (s *stubObservability) LogCritical(string, error, ...Field) {
	s.mu.Lock()
	s.critical++
	s.mu.Unlock()
}

func (s *stubObservability) criticals() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.critical
}
