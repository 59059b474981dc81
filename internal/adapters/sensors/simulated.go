package sensors

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

// source is a lock-guarded PRNG shared by one simulated driver.
type source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newSource(seed uint64) *source {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &source{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// between returns a value in [lo, hi).
func (s *source) between(lo, hi float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.rng.Float64()*(hi-lo)
}

func (s *source) intn(lo, hi int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.rng.IntN(hi-lo)
}

func (s *source) chance(p float64) bool { return s.between(0, 1) < p }

// trigger lets a simulated driver announce readiness on demand.
type trigger struct {
	ch chan struct{}
}

func newTrigger() trigger { return trigger{ch: make(chan struct{}, 1)} }

func (t trigger) Ready() <-chan struct{} { return t.ch }

// Trigger signals that a reading is ready without waiting for the next tick.
func (t trigger) Trigger() {
	select {
	case t.ch <- struct{}{}:
	default:
	}
}

// SimulatedPosition wanders around a fixed point. Fixes with fewer than four
// satellites are reported as invalid.
type SimulatedPosition struct {
	trigger
	src      *source
	lat, lon float64
	now      func() time.Time
}

func NewSimulatedPosition(lat, lon float64, seed uint64) *SimulatedPosition {
	if lat == 0 && lon == 0 {
		lat, lon = domain.DefaultLatitude, domain.DefaultLongitude
	}
	return &SimulatedPosition{trigger: newTrigger(), src: newSource(seed), lat: lat, lon: lon, now: time.Now}
}

func (p *SimulatedPosition) Name() string              { return "simulated-gnss" }
func (p *SimulatedPosition) Modality() domain.Modality { return domain.ModalityPosition }
func (p *SimulatedPosition) Available() bool           { return true }

func (p *SimulatedPosition) Fetch(_ context.Context, _ ports.Bus) (domain.SensorEvent, error) {
	sats := p.src.intn(0, 13)
	return domain.PositionFix{
		IsValid:    sats >= 4,
		Latitude:   p.lat + p.src.between(-0.0005, 0.0005),
		Longitude:  p.lon + p.src.between(-0.0005, 0.0005),
		Altitude:   p.src.between(0, 10),
		Speed:      p.src.between(0, 0.5),
		Satellites: uint32(sats),
		HDOP:       uint32(p.src.intn(80, 200)),
		Timestamp:  p.now(),
	}, nil
}

// SimulatedAcoustic reports a classified sound event with probability rate per fetch.
type SimulatedAcoustic struct {
	trigger
	src  *source
	rate float64
	now  func() time.Time
}

func NewSimulatedAcoustic(rate float64, seed uint64) *SimulatedAcoustic {
	if rate <= 0 {
		rate = 0.10
	}
	return &SimulatedAcoustic{trigger: newTrigger(), src: newSource(seed), rate: rate, now: time.Now}
}

func (a *SimulatedAcoustic) Name() string              { return "simulated-hydrophone" }
func (a *SimulatedAcoustic) Modality() domain.Modality { return domain.ModalityAcoustic }
func (a *SimulatedAcoustic) Available() bool           { return true }

func (a *SimulatedAcoustic) Fetch(_ context.Context, _ ports.Bus) (domain.SensorEvent, error) {
	if !a.src.chance(a.rate) {
		return domain.AcousticDetection{IsValid: false, Timestamp: a.now()}, nil
	}
	return domain.AcousticDetection{
		IsValid:    true,
		EventID:    a.src.intn(1, 5),
		Confidence: a.src.between(0.7, 1.0),
		Timestamp:  a.now(),
	}, nil
}

// SimulatedVisual reports floating debris with probability rate per fetch.
// It shares the bus with the ambient sensors, like the camera module it stands in for.
type SimulatedVisual struct {
	trigger
	src  *source
	rate float64
	now  func() time.Time
}

func NewSimulatedVisual(rate float64, seed uint64) *SimulatedVisual {
	if rate <= 0 {
		rate = 0.05
	}
	return &SimulatedVisual{trigger: newTrigger(), src: newSource(seed), rate: rate, now: time.Now}
}

func (v *SimulatedVisual) Name() string              { return "simulated-camera" }
func (v *SimulatedVisual) Modality() domain.Modality { return domain.ModalityVisual }
func (v *SimulatedVisual) Available() bool           { return true }
func (v *SimulatedVisual) UsesBus() bool             { return true }

func (v *SimulatedVisual) Fetch(_ context.Context, _ ports.Bus) (domain.SensorEvent, error) {
	if !v.src.chance(v.rate) {
		return domain.VisualDetection{IsValid: false, Timestamp: v.now()}, nil
	}
	return domain.VisualDetection{
		IsValid:    true,
		ObjectID:   v.src.intn(1, 4),
		Confidence: v.src.between(0.8, 1.0),
		Timestamp:  v.now(),
	}, nil
}

// SimulatedAmbient draws each field from the typical Baltic shoreline range.
type SimulatedAmbient struct {
	src     *source
	battery int
	now     func() time.Time
}

func NewSimulatedAmbient(battery int, seed uint64) *SimulatedAmbient {
	if battery <= 0 {
		battery = 85
	}
	return &SimulatedAmbient{src: newSource(seed), battery: battery, now: time.Now}
}

func (a *SimulatedAmbient) Name() string { return "simulated-ambient" }

func (a *SimulatedAmbient) Read(_ context.Context, _ ports.Bus) (domain.EnvironmentalSample, error) {
	return domain.EnvironmentalSample{
		WaterTemperature: 12.5 + a.src.between(-5, 5),
		AirTemperature:   15.2 + a.src.between(-10, 10),
		Humidity:         65 + a.src.between(-20, 20),
		Pressure:         1013.2 + a.src.between(-5, 5),
		WindSpeed:        5.5 + a.src.between(0, 10),
		WindDirection:    float64(a.src.intn(0, 360)),
		WaveHeight:       0.8 + a.src.between(0, 1.5),
		WaterQuality:     a.src.intn(70, 95),
		Battery:          a.battery,
		Timestamp:        a.now(),
	}, nil
}

var (
	_ ports.SensorDriver      = (*SimulatedPosition)(nil)
	_ ports.SensorDriver      = (*SimulatedAcoustic)(nil)
	_ ports.SensorDriver      = (*SimulatedVisual)(nil)
	_ ports.ReadinessNotifier = (*SimulatedAcoustic)(nil)
	_ ports.BusUser           = (*SimulatedVisual)(nil)
	_ ports.AmbientDriver     = (*SimulatedAmbient)(nil)
)
