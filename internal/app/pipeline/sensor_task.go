package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/adapters/queue"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/app/shared"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

// TaskStats are the counters kept by one SensorTask.
type TaskStats struct {
	Published      uint64 `json:"published"`
	Dropped        uint64 `json:"dropped"`
	JournalDropped uint64 `json:"journal_dropped"`
	BusTimeouts    uint64 `json:"bus_timeouts"`
	AcquireErrors  uint64 `json:"acquire_errors"`
	Invalid        uint64 `json:"invalid"`
}

// SensorTask is the single producer for one modality's lane.
type SensorTask struct {
	driver   ports.SensorDriver
	shared   *shared.Context
	lane     *shared.Lane
	pol      ports.Policy
	obs      ports.Observability
	interval time.Duration

	published      atomic.Uint64
	dropped        atomic.Uint64
	journalDropped atomic.Uint64
	busTimeouts    atomic.Uint64
	acquireErrors  atomic.Uint64
	invalid        atomic.Uint64
}

func NewSensorTask(d ports.SensorDriver, sc *shared.Context, pol ports.Policy, interval time.Duration, obs ports.Observability) (*SensorTask, error) {
	lane := sc.Lane(d.Modality())
	if lane == nil {
		return nil, fmt.Errorf("pipeline: no lane for modality %s", d.Modality())
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &SensorTask{
		driver:   d,
		shared:   sc,
		lane:     lane,
		pol:      pol,
		obs:      obs,
		interval: interval,
	}, nil
}

func (t *SensorTask) Modality() domain.Modality { return t.lane.Modality }

// Cycle performs one acquisition attempt. The bus, when needed, is held only
// for the driver call and is always released before any queue send.
func (t *SensorTask) Cycle(ctx context.Context) error {
	if !t.driver.Available() {
		return nil
	}

	var (
		ev  domain.SensorEvent
		err error
	)
	fetch := func(bus ports.Bus) error {
		ev, err = t.driver.Fetch(ctx, bus)
		return err
	}

	if ports.UsesBus(t.driver) {
		err = t.shared.Bus.With(t.pol.BusTimeout, fetch)
		if errors.Is(err, shared.ErrBusTimeout) {
			t.busTimeouts.Add(1)
			t.obs.IncCounter(t.metric(ports.SuffixBusTimeouts), 1)
			return err
		}
	} else {
		err = fetch(nil)
	}

	if err != nil {
		t.acquireErrors.Add(1)
		t.obs.IncCounter(t.metric(ports.SuffixAcquireErrors), 1)
		return fmt.Errorf("%s fetch: %w", t.driver.Name(), err)
	}
	if ev == nil || !ev.Valid() {
		t.invalid.Add(1)
		t.obs.IncCounter(t.metric(ports.SuffixInvalid), 1)
		return nil
	}

	return t.publish(ev)
}

// publish offers ev to the uplink queue first, then to the journal queue.
func (t *SensorTask) publish(ev domain.SensorEvent) error {
	err := t.lane.Uplink.SendTimeout(ev, t.pol.SendTimeout)
	if err != nil {
		t.dropped.Add(1)
		t.obs.IncCounter(t.metric(ports.SuffixDropped), 1)
	} else {
		t.published.Add(1)
		t.obs.IncCounter(t.metric(ports.SuffixPublished), 1)
	}
	t.obs.SetGauge(t.metric(ports.SuffixQueueLength), float64(t.lane.Uplink.Len()))

	if t.lane.Journal != nil {
		if jerr := t.lane.Journal.SendTimeout(ev, t.pol.SendTimeout); jerr != nil {
			t.journalDropped.Add(1)
			t.obs.IncCounter(t.metric(ports.SuffixJournalDropped), 1)
			if err == nil {
				err = fmt.Errorf("journal lane: %w", jerr)
			}
		}
	}
	return err
}

// Run cycles on every tick, or whenever the driver signals readiness, until ctx is done.
func (t *SensorTask) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	var ready <-chan struct{}
	if rn, ok := t.driver.(ports.ReadinessNotifier); ok {
		ready = rn.Ready()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case _, ok := <-ready:
			if !ok {
				// driver stopped signalling; fall back to the ticker
				ready = nil
				continue
			}
		}

		err := t.Cycle(ctx)
		switch {
		case err == nil:
		case errors.Is(err, shared.ErrBusTimeout),
			errors.Is(err, queue.ErrTimeout),
			errors.Is(err, queue.ErrWouldBlock):
			// counted; retried next tick
		default:
			t.obs.LogError("sensor_cycle_failed", err, ports.Field{Key: "modality", Value: t.Modality().String()})
		}
	}
}

func (t *SensorTask) Stats() TaskStats {
	return TaskStats{
		Published:      t.published.Load(),
		Dropped:        t.dropped.Load(),
		JournalDropped: t.journalDropped.Load(),
		BusTimeouts:    t.busTimeouts.Load(),
		AcquireErrors:  t.acquireErrors.Load(),
		Invalid:        t.invalid.Load(),
	}
}

func (t *SensorTask) metric(suffix string) string {
	return ports.ModalityMetric(t.lane.Modality, suffix)
}
