package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

// stuckSink blocks every Accept until released or the delivery context ends.
type stuckSink struct {
	release  chan struct{}
	entered  chan struct{}
	mu       sync.Mutex
	accepted int
	closed   bool
}

func newStuckSink() *stuckSink {
	return &stuckSink{release: make(chan struct{}), entered: make(chan struct{}, 16)}
}

func (s *stuckSink) Name() string { return "stuck" }

func (s *stuckSink) Accept(ctx context.Context, _ domain.Message) error {
	select {
	case s.entered <- struct{}{}:
	default:
	}
	select {
	case <-s.release:
		s.mu.Lock()
		s.accepted++
		s.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *stuckSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *stuckSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

type metricObs struct {
	mu       sync.Mutex
	counters map[string]float64
	errors   int
}

func (m *metricObs) LogInfo(string, ...ports.Field) {}

func (m *metricObs) LogError(string, error, ...ports.Field) {
	m.mu.Lock()
	m.errors++
	m.mu.Unlock()
}

func (m *metricObs) LogCritical(string, error, ...ports.Field) {}

func (m *metricObs) IncCounter(name string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = map[string]float64{}
	}
	m.counters[name] += v
}

func (m *metricObs) ObserveLatency(string, float64)      {}
func (m *metricObs) SetGauge(string, float64)            {}
func (m *metricObs) RecordDiscard(string, []byte, error) {}

func (m *metricObs) counter(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

func TestDispatcherAcceptNeverBlocksOnStuckSink(t *testing.T) {
	stuck := newStuckSink()
	obs := &metricObs{}
	d := NewDispatcher(stuck, 2, time.Minute, obs)
	defer func() {
		close(stuck.release)
		_ = d.Close()
	}()

	msg := telemetryMessage(time.Now())
	if err := d.Accept(context.Background(), msg); err != nil {
		t.Fatalf("accept: %v", err)
	}
	select {
	case <-stuck.entered:
	case <-time.After(time.Second):
		t.Fatalf("worker never picked up the first message")
	}

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := d.Accept(context.Background(), msg); err != nil {
			t.Fatalf("accept %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("accept blocked for %v behind a stuck sink", elapsed)
	}
	if d.Dropped() != 3 || obs.counter(ports.MetricSinkDropped) != 3 {
		t.Fatalf("expected 3 drops with a queue of 2, got %d (metric %v)", d.Dropped(), obs.counter(ports.MetricSinkDropped))
	}
}

func TestDispatcherBoundsEachDelivery(t *testing.T) {
	stuck := newStuckSink()
	obs := &metricObs{}
	d := NewDispatcher(stuck, 4, 20*time.Millisecond, obs)

	_ = d.Accept(context.Background(), telemetryMessage(time.Now()))
	deadline := time.Now().Add(time.Second)
	for d.Failed() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if d.Failed() != 1 || obs.counter(ports.MetricSinkErrors) != 1 {
		t.Fatalf("expected one timed out delivery, failed=%d", d.Failed())
	}

	close(stuck.release)
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestDispatcherCloseDrainsAndClosesSink(t *testing.T) {
	stuck := newStuckSink()
	close(stuck.release)
	d := NewDispatcher(stuck, 8, time.Second, &metricObs{})

	for i := 0; i < 3; i++ {
		_ = d.Accept(context.Background(), telemetryMessage(time.Now()))
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if stuck.count() != 3 {
		t.Fatalf("expected queued messages delivered before close, got %d", stuck.count())
	}
	if !stuck.closed {
		t.Fatalf("wrapped sink not closed")
	}
	if err := d.Accept(context.Background(), telemetryMessage(time.Now())); !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("expected ErrDispatcherClosed, got %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestDispatcherCloseGivesUpOnStuckSink(t *testing.T) {
	stuck := newStuckSink()
	d := NewDispatcher(&ignoringSink{stuck: stuck}, 1, 20*time.Millisecond, &metricObs{})
	_ = d.Accept(context.Background(), telemetryMessage(time.Now()))
	<-stuck.entered

	if err := d.Close(); !errors.Is(err, ErrDrainTimeout) {
		t.Fatalf("expected ErrDrainTimeout, got %v", err)
	}
	close(stuck.release)
}

// ignoringSink waits for release without honouring the delivery context.
type ignoringSink struct {
	stuck *stuckSink
}

func (s *ignoringSink) Name() string { return "ignoring" }

func (s *ignoringSink) Accept(_ context.Context, m domain.Message) error {
	return s.stuck.Accept(context.Background(), m)
}
