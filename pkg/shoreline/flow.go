package shoreline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/app/config"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
)

// Flow assembles a node in the order it is deployed: who it is and where it
// stands, what it senses and how often, which radio carries its frames and
// where sent and received traffic is reported. Build checks the result once.
//
//	flow, _ := shoreline.ConfFromConfig(cfg)
//	rt, err := flow.
//		As(0xa1b2c3, "Baltic-Pier").At(59.33, 18.07).
//		Sense(shoreline.Every(shoreline.ModalityAcoustic, 250*time.Millisecond)).
//		OverZMQ(zc).
//		Report(shoreline.ToCallback("stdout", print)).
//		Build()
type Flow struct {
	cfg  *Config
	opts []NodeRuntimeOption
	errs []error
}

// FlowOption mutates the Flow right after the configuration is loaded.
type FlowOption func(*Flow)

// SenseOption configures acquisition: drivers, the shared bus and sampling periods.
type SenseOption func(*Flow)

// ReportOption configures where sent and received messages end up.
type ReportOption func(*Flow)

// Conf loads YAML from disk and starts a Flow from it.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig starts a Flow from a copy of cfg; later steps never touch the caller's value.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	c := *cfg
	f := &Flow{cfg: &c}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the configuration the node will be built from.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// As fixes the node id and long name instead of deriving them from the host.
func (f *Flow) As(id NodeID, name string) *Flow {
	if f == nil {
		return nil
	}
	f.cfg.Node.ID = id.String()
	if name != "" {
		f.cfg.Node.Name = name
	}
	return f
}

// At sets the position the node announces.
func (f *Flow) At(lat, lon float64) *Flow {
	if f == nil {
		return nil
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		f.errs = append(f.errs, fmt.Errorf("position %.5f,%.5f out of range", lat, lon))
		return f
	}
	f.cfg.Node.Latitude, f.cfg.Node.Longitude = lat, lon
	return f
}

// Sense applies acquisition steps.
func (f *Flow) Sense(opts ...SenseOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Over sends frames through r instead of the configured radio.
func (f *Flow) Over(r Radio) *Flow {
	if f == nil {
		return nil
	}
	if r == nil {
		f.errs = append(f.errs, fmt.Errorf("radio is nil"))
		return f
	}
	f.appendOptions(WithRadio(r))
	return f
}

// OverZMQ joins a ZeroMQ air medium shared with the listed peers.
func (f *Flow) OverZMQ(zc ZMQConfig) *Flow {
	if f == nil {
		return nil
	}
	f.cfg.Radio.Kind = config.RadioZMQ
	f.cfg.Radio.ZMQ = zc
	return f
}

// Report applies delivery steps.
func (f *Flow) Report(opts ...ReportOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Options appends raw NodeRuntimeOption values for anything the steps do not cover.
func (f *Flow) Options(opts ...NodeRuntimeOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// Build validates the assembled configuration and wires the runtime.
func (f *Flow) Build() (*NodeRuntime, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	if err := errors.Join(f.errs...); err != nil {
		return nil, err
	}
	if err := f.cfg.Validate(); err != nil {
		return nil, err
	}
	return NewNodeRuntime(f.cfg, f.opts...)
}

// Run builds the node and runs it until ctx is cancelled.
func (f *Flow) Run(ctx context.Context) error {
	rt, err := f.Build()
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

// WithFlowOptions appends NodeRuntimeOption values during Conf.
func WithFlowOptions(opts ...NodeRuntimeOption) FlowOption {
	return func(f *Flow) {
		f.appendOptions(opts...)
	}
}

// Sensor replaces the configured driver for the driver's modality.
func Sensor(d SensorDriver) SenseOption {
	return func(f *Flow) {
		if d == nil {
			f.errs = append(f.errs, fmt.Errorf("sensor driver is nil"))
			return
		}
		f.appendOptions(WithSensor(d))
	}
}

// Ambient replaces the configured ambient driver.
func Ambient(d AmbientDriver) SenseOption {
	return func(f *Flow) {
		if d == nil {
			f.errs = append(f.errs, fmt.Errorf("ambient driver is nil"))
			return
		}
		f.appendOptions(WithAmbient(d))
	}
}

// OnBus hands drivers b instead of opening the configured bus device.
func OnBus(b Bus) SenseOption {
	return func(f *Flow) {
		if b != nil {
			f.appendOptions(WithBus(b))
		}
	}
}

// Every sets the polling period of an event sensor, or the sampling period of
// the ambient sensor.
func Every(m Modality, d time.Duration) SenseOption {
	return func(f *Flow) {
		if d <= 0 {
			f.errs = append(f.errs, fmt.Errorf("%s period must be positive", m))
			return
		}
		s := &f.cfg.Schedule
		switch m {
		case domain.ModalityPosition:
			s.Position = d
		case domain.ModalityAcoustic:
			s.Acoustic = d
		case domain.ModalityVisual:
			s.Visual = d
		case domain.ModalityAmbient:
			s.Ambient = "@every " + d.String()
		default:
			f.errs = append(f.errs, fmt.Errorf("unknown modality %s", m))
		}
	}
}

// Without switches a modality off.
func Without(m Modality) SenseOption {
	return func(f *Flow) {
		s := &f.cfg.Sensors
		switch m {
		case domain.ModalityPosition:
			s.Position = config.DriverNone
		case domain.ModalityAcoustic:
			s.Acoustic = config.DriverNone
		case domain.ModalityVisual:
			s.Visual = config.DriverNone
		case domain.ModalityAmbient:
			s.Ambient = config.DriverNone
		default:
			f.errs = append(f.errs, fmt.Errorf("unknown modality %s", m))
		}
	}
}

// ToSink adds a telemetry sink next to the configured ones.
func ToSink(s TelemetrySink) ReportOption {
	return func(f *Flow) {
		if s != nil {
			f.appendOptions(WithSink(s))
		}
	}
}

// ToCallback reports every message to fn.
func ToCallback(name string, fn MessageHandler) ReportOption {
	return func(f *Flow) {
		if fn == nil {
			f.errs = append(f.errs, fmt.Errorf("callback %q is nil", name))
			return
		}
		f.appendOptions(WithSink(NewCallbackSink(name, fn)))
	}
}

// ToJournal records sensor events in j; journaling is switched on if it was off.
func ToJournal(j Journal) ReportOption {
	return func(f *Flow) {
		if j == nil {
			return
		}
		f.cfg.Journal.Enabled = true
		f.appendOptions(WithJournal(j))
	}
}

// Observe replaces the Prometheus observability backend.
func Observe(obs Observability) ReportOption {
	return func(f *Flow) {
		if obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

func (f *Flow) appendOptions(opts ...NodeRuntimeOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
