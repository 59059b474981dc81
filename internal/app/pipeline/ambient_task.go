package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/app/shared"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

// AmbientTask refreshes the current EnvironmentalSample. It has no queue;
// each sample overwrites the previous one.
type AmbientTask struct {
	driver ports.AmbientDriver
	shared *shared.Context
	pol    ports.Policy
	obs    ports.Observability
	now    func() time.Time

	samples  atomic.Uint64
	failures atomic.Uint64
}

func NewAmbientTask(d ports.AmbientDriver, sc *shared.Context, pol ports.Policy, obs ports.Observability) *AmbientTask {
	return &AmbientTask{driver: d, shared: sc, pol: pol, obs: obs, now: time.Now}
}

func (a *AmbientTask) Sample(ctx context.Context) error {
	var (
		s   domain.EnvironmentalSample
		err error
	)
	read := func(bus ports.Bus) error {
		s, err = a.driver.Read(ctx, bus)
		return err
	}
	if ports.UsesBus(a.driver) {
		err = a.shared.Bus.With(a.pol.BusTimeout, read)
	} else {
		err = read(nil)
	}
	if err != nil {
		a.failures.Add(1)
		a.obs.IncCounter(ports.MetricAmbientErrors, 1)
		if errors.Is(err, shared.ErrBusTimeout) {
			return err
		}
		return fmt.Errorf("%s read: %w", a.driver.Name(), err)
	}

	s = s.Normalize()
	if s.Timestamp.IsZero() {
		s.Timestamp = a.now()
	}
	a.shared.Environment.Set(s)
	a.samples.Add(1)
	a.obs.IncCounter(ports.MetricAmbientSamples, 1)
	a.publishGauges(s)
	return nil
}

func (a *AmbientTask) publishGauges(s domain.EnvironmentalSample) {
	values := []float64{
		s.WaterTemperature, s.AirTemperature, s.Humidity, s.Pressure, s.WindSpeed,
		s.WindDirection, s.WaveHeight, float64(s.WaterQuality), float64(s.Battery),
	}
	for i, field := range ports.EnvironmentGauges {
		a.obs.SetGauge(ports.EnvironmentMetric(field), values[i])
	}
}

func (a *AmbientTask) Failures() uint64 { return a.failures.Load() }

func (a *AmbientTask) Samples() uint64 { return a.samples.Load() }
