package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/app/shared"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

func testPolicy(capacity int) ports.Policy {
	return ports.Policy{
		QueueCapacity: map[domain.Modality]int{
			domain.ModalityPosition: capacity,
			domain.ModalityAcoustic: capacity,
			domain.ModalityVisual:   capacity,
		},
	}
}

func newShared(t *testing.T, pol ports.Policy, bus ports.Bus) *shared.Context {
	t.Helper()
	sc, err := shared.New(pol, bus)
	if err != nil {
		t.Fatalf("shared.New: %v", err)
	}
	return sc
}

type stubDriver struct {
	modality domain.Modality
	bus      bool
	event    domain.SensorEvent
	err      error
	onFetch  func()
	calls    int
}

func (d *stubDriver) Name() string              { return "stub-" + d.modality.String() }
func (d *stubDriver) Modality() domain.Modality { return d.modality }
func (d *stubDriver) Available() bool           { return true }
func (d *stubDriver) UsesBus() bool             { return d.bus }

func (d *stubDriver) Fetch(context.Context, ports.Bus) (domain.SensorEvent, error) {
	d.calls++
	if d.onFetch != nil {
		d.onFetch()
	}
	return d.event, d.err
}

type stubAmbient struct {
	sample domain.EnvironmentalSample
	err    error
}

func (a *stubAmbient) Name() string { return "stub-ambient" }

func (a *stubAmbient) Read(context.Context, ports.Bus) (domain.EnvironmentalSample, error) {
	return a.sample, a.err
}

type stubRadio struct {
	mu       sync.Mutex
	sent     [][]byte
	inbox    [][]byte
	link     domain.LinkQuality
	failTx   bool
	rearms   int
	listened bool
}

func (r *stubRadio) Transmit(_ context.Context, frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listened = false
	if r.failTx {
		return errors.New("tx failed")
	}
	r.sent = append(r.sent, append([]byte(nil), frame...))
	return nil
}

func (r *stubRadio) ReceiveAvailable() ([]byte, domain.LinkQuality, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.inbox) == 0 {
		return nil, domain.LinkQuality{}, false
	}
	f := r.inbox[0]
	r.inbox = r.inbox[1:]
	return f, r.link, true
}

func (r *stubRadio) StartReceive() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rearms++
	r.listened = true
	return nil
}

func (r *stubRadio) frames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, f := range r.sent {
		out[i] = string(f)
	}
	return out
}

type recordingSink struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Accept(_ context.Context, m domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, m)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

type memJournal struct {
	mu      sync.Mutex
	records []ports.JournalRecord
}

func (j *memJournal) Append(rec ports.JournalRecord) (ports.JournalEntryID, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return ports.JournalEntryID(len(j.records)), nil
}

func (j *memJournal) Iterate(ports.JournalEntryID, func(ports.JournalEntryID, ports.JournalRecord) error) error {
	return nil
}

func (j *memJournal) Stats() ports.JournalStats { return ports.JournalStats{} }
func (j *memJournal) Close() error              { return nil }

type mockObs struct {
	mu       sync.Mutex
	errors   []error
	counters map[string]float64
	discards []string
}

func (m *mockObs) LogInfo(string, ...ports.Field) {}

func (m *mockObs) LogError(_ string, err error, _ ...ports.Field) {
	m.mu.Lock()
	m.errors = append(m.errors, err)
	m.mu.Unlock()
}

func (m *mockObs) LogCritical(string, error, ...ports.Field) {}

func (m *mockObs) IncCounter(name string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = map[string]float64{}
	}
	m.counters[name] += v
}

func (m *mockObs) ObserveLatency(string, float64) {}
func (m *mockObs) SetGauge(string, float64)       {}

func (m *mockObs) RecordDiscard(stage string, _ []byte, _ error) {
	m.mu.Lock()
	m.discards = append(m.discards, stage)
	m.mu.Unlock()
}

func (m *mockObs) counter(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}
