package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/adapters/queue"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/app/shared"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

func TestSensorTaskPublishesValidEvent(t *testing.T) {
	sc := newShared(t, testPolicy(2), nil)
	obs := &mockObs{}
	drv := &stubDriver{modality: domain.ModalityAcoustic, event: domain.AcousticDetection{IsValid: true, EventID: 3}}

	task, err := NewSensorTask(drv, sc, testPolicy(2), time.Second, obs)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := task.Cycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}

	ev, ok := sc.Lane(domain.ModalityAcoustic).Uplink.TryReceive()
	if !ok || ev.(domain.AcousticDetection).EventID != 3 {
		t.Fatalf("expected event on uplink queue, got %+v", ev)
	}
	if task.Stats().Published != 1 {
		t.Fatalf("unexpected stats %+v", task.Stats())
	}
}

func TestSensorTaskDropsInvalidReading(t *testing.T) {
	sc := newShared(t, testPolicy(2), nil)
	drv := &stubDriver{modality: domain.ModalityVisual, event: domain.VisualDetection{IsValid: false}}
	task, _ := NewSensorTask(drv, sc, testPolicy(2), time.Second, &mockObs{})

	if err := task.Cycle(context.Background()); err != nil {
		t.Fatalf("invalid reading is not an error: %v", err)
	}
	if sc.Lane(domain.ModalityVisual).Uplink.Len() != 0 {
		t.Fatalf("invalid reading should not be queued")
	}
	if task.Stats().Invalid != 1 {
		t.Fatalf("expected invalid counter 1, got %+v", task.Stats())
	}
}

func TestSensorTaskFullQueueTimesOutAndCountsOnce(t *testing.T) {
	pol := testPolicy(1)
	pol.SendTimeout = 20 * time.Millisecond
	sc := newShared(t, pol, nil)
	obs := &mockObs{}
	drv := &stubDriver{modality: domain.ModalityPosition, event: domain.PositionFix{IsValid: true}}
	task, _ := NewSensorTask(drv, sc, pol, time.Second, obs)

	if err := task.Cycle(context.Background()); err != nil {
		t.Fatalf("first cycle: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- task.Cycle(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, queue.ErrTimeout) {
			t.Fatalf("expected queue.ErrTimeout, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("send on full queue hung")
	}

	if got := task.Stats().Dropped; got != 1 {
		t.Fatalf("expected exactly one drop, got %d", got)
	}
	if got := obs.counter(ports.ModalityMetric(domain.ModalityPosition, ports.SuffixDropped)); got != 1 {
		t.Fatalf("expected drop metric 1, got %f", got)
	}
}

func TestSensorTaskReleasesBusBeforeQueueSend(t *testing.T) {
	pol := testPolicy(1)
	pol.SendTimeout = 300 * time.Millisecond
	pol.BusTimeout = 100 * time.Millisecond
	sc := newShared(t, pol, nil)

	fetched := make(chan struct{}, 2)
	drv := &stubDriver{
		modality: domain.ModalityVisual,
		bus:      true,
		event:    domain.VisualDetection{IsValid: true},
		onFetch:  func() { fetched <- struct{}{} },
	}
	task, _ := NewSensorTask(drv, sc, pol, time.Second, &mockObs{})

	if err := task.Cycle(context.Background()); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	<-fetched

	done := make(chan error, 1)
	go func() { done <- task.Cycle(context.Background()) }()
	<-fetched

	// The producer is now blocked on the full queue; the bus must be free.
	if err := sc.Bus.With(pol.BusTimeout, func(ports.Bus) error { return nil }); err != nil {
		t.Fatalf("bus held across queue send: %v", err)
	}
	select {
	case <-done:
		t.Fatalf("cycle returned before its send timeout")
	default:
	}
	if err := <-done; !errors.Is(err, queue.ErrTimeout) {
		t.Fatalf("expected queue.ErrTimeout, got %v", err)
	}
}

func TestSensorTaskSkipsCycleOnBusTimeout(t *testing.T) {
	pol := testPolicy(2)
	pol.BusTimeout = 5 * time.Millisecond
	sc := newShared(t, pol, nil)
	drv := &stubDriver{modality: domain.ModalityVisual, bus: true, event: domain.VisualDetection{IsValid: true}}
	task, _ := NewSensorTask(drv, sc, pol, time.Second, &mockObs{})

	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = sc.Bus.With(time.Second, func(ports.Bus) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	if err := task.Cycle(context.Background()); !errors.Is(err, shared.ErrBusTimeout) {
		t.Fatalf("expected ErrBusTimeout, got %v", err)
	}
	if drv.calls != 0 {
		t.Fatalf("driver must not be touched without the bus")
	}
	if task.Stats().BusTimeouts != 1 {
		t.Fatalf("expected bus timeout counter 1, got %+v", task.Stats())
	}
}

func TestSensorTaskFansOutToJournalLane(t *testing.T) {
	pol := testPolicy(2)
	pol.JournalEnabled = true
	sc := newShared(t, pol, nil)
	drv := &stubDriver{modality: domain.ModalityAcoustic, event: domain.AcousticDetection{IsValid: true}}
	task, _ := NewSensorTask(drv, sc, pol, time.Second, &mockObs{})

	if err := task.Cycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	lane := sc.Lane(domain.ModalityAcoustic)
	if lane.Uplink.Len() != 1 || lane.Journal.Len() != 1 {
		t.Fatalf("expected event on both queues, uplink=%d journal=%d", lane.Uplink.Len(), lane.Journal.Len())
	}
}

func TestSensorTaskCountsDriverErrors(t *testing.T) {
	sc := newShared(t, testPolicy(2), nil)
	drv := &stubDriver{modality: domain.ModalityPosition, err: errors.New("no fix")}
	task, _ := NewSensorTask(drv, sc, testPolicy(2), time.Second, &mockObs{})

	if err := task.Cycle(context.Background()); err == nil {
		t.Fatalf("expected driver error")
	}
	if task.Stats().AcquireErrors != 1 {
		t.Fatalf("unexpected stats %+v", task.Stats())
	}
}

func TestSensorTaskRunStopsOnCancel(t *testing.T) {
	sc := newShared(t, testPolicy(4), nil)
	drv := &stubDriver{modality: domain.ModalityAcoustic, event: domain.AcousticDetection{IsValid: true}}
	task, _ := NewSensorTask(drv, sc, testPolicy(4), time.Millisecond, &mockObs{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- task.Run(ctx) }()

	deadline := time.After(time.Second)
	for sc.Lane(domain.ModalityAcoustic).Uplink.Len() == 0 {
		select {
		case <-deadline:
			t.Fatalf("task never published")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run returned %v", err)
	}
}

// closedReadyDriver reports readiness on a channel that is already closed.
type closedReadyDriver struct {
	stubDriver
	ready chan struct{}
}

func (d *closedReadyDriver) Ready() <-chan struct{} { return d.ready }

func TestSensorTaskIgnoresClosedReadyChannel(t *testing.T) {
	sc := newShared(t, testPolicy(4), nil)
	drv := &closedReadyDriver{
		stubDriver: stubDriver{modality: domain.ModalityAcoustic},
		ready:      make(chan struct{}),
	}
	close(drv.ready)
	task, _ := NewSensorTask(drv, sc, testPolicy(4), time.Hour, &mockObs{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := task.Run(ctx); err != nil {
		t.Fatalf("run returned %v", err)
	}
	if drv.calls != 0 {
		t.Fatalf("closed ready channel drove %d cycles, expected none before the first tick", drv.calls)
	}
}

func TestAmbientTaskOverwritesSample(t *testing.T) {
	sc := newShared(t, testPolicy(1), nil)
	drv := &stubAmbient{sample: domain.EnvironmentalSample{AirTemperature: 10, WaterQuality: 150}}
	task := NewAmbientTask(drv, sc, testPolicy(1), &mockObs{})

	if err := task.Sample(context.Background()); err != nil {
		t.Fatalf("sample: %v", err)
	}
	drv.sample = domain.EnvironmentalSample{AirTemperature: 11}
	if err := task.Sample(context.Background()); err != nil {
		t.Fatalf("sample: %v", err)
	}

	got, ok := sc.Environment.Snapshot()
	if !ok || got.AirTemperature != 11 || got.Timestamp.IsZero() {
		t.Fatalf("unexpected sample %+v", got)
	}
	if task.Samples() != 2 {
		t.Fatalf("expected 2 samples, got %d", task.Samples())
	}
}

func TestAmbientTaskClampsWaterQuality(t *testing.T) {
	sc := newShared(t, testPolicy(1), nil)
	task := NewAmbientTask(&stubAmbient{sample: domain.EnvironmentalSample{WaterQuality: 150}}, sc, testPolicy(1), &mockObs{})
	_ = task.Sample(context.Background())
	got, _ := sc.Environment.Snapshot()
	if got.WaterQuality != domain.MaxWaterQuality {
		t.Fatalf("expected clamp to %d, got %d", domain.MaxWaterQuality, got.WaterQuality)
	}
}

func TestAmbientTaskFailureKeepsPreviousSample(t *testing.T) {
	sc := newShared(t, testPolicy(1), nil)
	drv := &stubAmbient{sample: domain.EnvironmentalSample{Pressure: 1013}}
	task := NewAmbientTask(drv, sc, testPolicy(1), &mockObs{})
	_ = task.Sample(context.Background())

	drv.err = errors.New("sensor offline")
	if err := task.Sample(context.Background()); err == nil {
		t.Fatalf("expected read error")
	}
	got, _ := sc.Environment.Snapshot()
	if got.Pressure != 1013 || task.Failures() != 1 {
		t.Fatalf("unexpected state %+v failures=%d", got, task.Failures())
	}
}
