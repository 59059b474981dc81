package shoreline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/adapters/httpapi"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/adapters/i2c"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/adapters/observability"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/adapters/opcua"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/adapters/radio"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/adapters/sensors"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/adapters/sink"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/adapters/wal"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/app/config"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/app/identity"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/app/pipeline"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/app/schedule"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/app/shared"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/directory"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/protocol/mesh"
)

// NodeRuntimeOption customizes the dependencies used by NodeRuntime.
type NodeRuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	sensors       map[domain.Modality]SensorDriver
	ambient       AmbientDriver
	bus           Bus
	radio         Radio
	sinks         []TelemetrySink
	journal       Journal
	observability Observability
	identity      *Identity
	disableHTTP   bool
}

// WithSensor replaces the configured driver for the driver's modality.
func WithSensor(d SensorDriver) NodeRuntimeOption {
	return func(o *runtimeOverrides) {
		if o.sensors == nil {
			o.sensors = make(map[domain.Modality]SensorDriver)
		}
		o.sensors[d.Modality()] = d
	}
}

// WithAmbient replaces the configured ambient driver.
func WithAmbient(d AmbientDriver) NodeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.ambient = d
	}
}

// WithBus supplies the shared two-wire bus instead of opening one from config.
func WithBus(b Bus) NodeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.bus = b
	}
}

// WithRadio plugs in a custom transceiver (hardware LoRa module, test double, etc.).
func WithRadio(r Radio) NodeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.radio = r
	}
}

// WithSink adds a telemetry sink next to the configured ones.
func WithSink(s TelemetrySink) NodeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.sinks = append(o.sinks, s)
	}
}

// WithJournal lets callers bring their own journal. It is used only when journaling is enabled.
func WithJournal(j Journal) NodeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.journal = j
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) NodeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithIdentity fixes the node identity instead of deriving it.
func WithIdentity(id Identity) NodeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.identity = &id
	}
}

// WithoutHTTP disables the status and metrics server.
func WithoutHTTP() NodeRuntimeOption {
	return func(o *runtimeOverrides) {
		o.disableHTTP = true
	}
}

type sensorUnit struct {
	driver string
	task   *pipeline.SensorTask
}

// NodeRuntime wires sensors → lanes → uplink/journal and radio → directory/sinks,
// and exposes lifecycle hooks for embedding a shoreline node in any Go service.
type NodeRuntime struct {
	cfg      *Config
	policy   ports.Policy
	obs      ports.Observability
	self     domain.Identity
	shared   *shared.Context
	radio    ports.Radio
	radioTag string
	dir      *directory.Directory
	sinks    *sink.Multi
	journal  ports.Journal
	db       *sql.DB
	bus      ports.Bus
	station  *opcua.Ambient

	sensors   []sensorUnit
	ambient   *pipeline.AmbientTask
	uplink    *pipeline.UplinkCoordinator
	receiver  *pipeline.ReceiveLoop
	writer    *pipeline.JournalWriter
	scheduler *schedule.Scheduler
	http      *httpapi.Server

	started     time.Time
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	gaugeStopCh chan struct{}
}

// NewNodeRuntime bootstraps the default adapters selected by cfg (simulated
// sensors, loopback radio, file journal, configured sinks, Prometheus
// observability). NodeRuntimeOption values override any of them.
func NewNodeRuntime(cfg *Config, opts ...NodeRuntimeOption) (*NodeRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs(cfg.Verbose)
	}

	rt := &NodeRuntime{
		cfg:    cfg,
		policy: cfg.PortsPolicy(),
		obs:    obs,
		dir:    directory.New(cfg.Directory.Capacity),
		sinks:  sink.NewMulti(),
	}
	if err := rt.build(&overrides); err != nil {
		obs.LogCritical("node_init_failed", err)
		rt.closeResources()
		return nil, err
	}
	return rt, nil
}

func (rt *NodeRuntime) build(o *runtimeOverrides) error {
	cfg := rt.cfg

	if o.identity != nil {
		rt.self = *o.identity
	} else {
		self, err := identity.Resolve(cfg.Node, nil)
		if err != nil {
			return err
		}
		rt.self = self
	}

	bus := o.bus
	if bus == nil {
		if cfg.Sensors.Bus != "" {
			lb, err := i2c.OpenLinuxBus(cfg.Sensors.Bus)
			if err != nil {
				return err
			}
			bus = lb
		} else {
			bus = &i2c.NopBus{}
		}
	}
	rt.bus = bus

	sc, err := shared.New(rt.policy, bus)
	if err != nil {
		return err
	}
	rt.shared = sc

	if err := rt.buildRadio(o); err != nil {
		return err
	}
	if err := rt.buildSinks(o); err != nil {
		return err
	}
	if rt.policy.JournalEnabled {
		j := o.journal
		if j == nil {
			fj, err := wal.NewFileJournal(cfg.Journal.Dir, cfg.Journal.MaxSegmentBytes, cfg.Journal.MaxSegments)
			if err != nil {
				return err
			}
			j = fj
		}
		rt.journal = j
		rt.writer = pipeline.NewJournalWriter(sc, j, rt.self.ID, rt.policy, rt.obs)
	}

	for i, m := range domain.EventModalities {
		d, kind, err := rt.sensorDriver(o, m, uint64(i+1))
		if err != nil {
			return err
		}
		if d == nil {
			continue
		}
		task, err := pipeline.NewSensorTask(d, sc, rt.policy, cfg.Schedule.Interval(m), rt.obs)
		if err != nil {
			return err
		}
		rt.sensors = append(rt.sensors, sensorUnit{driver: kind, task: task})
	}

	ambient, err := rt.ambientDriver(o)
	if err != nil {
		return err
	}
	if ambient != nil {
		rt.ambient = pipeline.NewAmbientTask(ambient, sc, rt.policy, rt.obs)
	}

	rt.uplink = pipeline.NewUplinkCoordinator(pipeline.UplinkConfig{
		Self:     rt.self,
		HopLimit: cfg.Node.HopLimit,
		Format:   mesh.Format(cfg.Node.Format),
	}, sc, rt.radio, rt.sinks, rt.policy, rt.obs)
	rt.receiver = pipeline.NewReceiveLoop(sc, rt.radio, rt.dir, rt.sinks, cfg.Schedule.Receive, rt.obs)

	rt.scheduler = schedule.New(rt.obs)
	if err := rt.scheduler.Add("announce", cfg.Schedule.Announce, func(context.Context) error {
		rt.uplink.RequestAnnounce()
		return nil
	}); err != nil {
		return err
	}
	if err := rt.scheduler.Add("telemetry", cfg.Schedule.Telemetry, func(context.Context) error {
		rt.uplink.RequestTelemetry()
		return nil
	}); err != nil {
		return err
	}
	if rt.ambient != nil {
		if err := rt.scheduler.Add("ambient", cfg.Schedule.Ambient, rt.ambient.Sample); err != nil {
			return err
		}
	}

	if !o.disableHTTP {
		rt.http = httpapi.NewServer(cfg.HTTP.Addr, rt, nil)
	}
	return nil
}

func (rt *NodeRuntime) buildRadio(o *runtimeOverrides) error {
	if o.radio != nil {
		rt.radio, rt.radioTag = o.radio, "custom"
		return nil
	}
	switch rt.cfg.Radio.Kind {
	case config.RadioZMQ:
		z, err := radio.NewZMQRadio(rt.cfg.Radio.ZMQ)
		if err != nil {
			return err
		}
		rt.radio = z
	default:
		rt.radio = radio.NewMedium().Attach(domain.LinkQuality{})
	}
	rt.radioTag = rt.cfg.Radio.Kind
	return nil
}

// buildSinks puts every sink behind its own dispatcher so a slow backend never
// holds up the uplink or receive loops.
func (rt *NodeRuntime) buildSinks(o *runtimeOverrides) error {
	s := rt.cfg.Sinks
	add := func(ts ports.TelemetrySink) {
		rt.sinks.Add(sink.NewDispatcher(ts, s.Buffer, s.Timeout, rt.obs))
	}

	if s.Log {
		add(sink.NewLogSink(rt.obs))
	}
	if s.Timescale.ConnString != "" {
		db, err := sql.Open("postgres", s.Timescale.ConnString)
		if err != nil {
			return err
		}
		rt.db = db
		ts := sink.NewTimescaleSink(db, s.Timescale.Table)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = ts.EnsureSchema(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("timescale schema: %w", err)
		}
		add(ts)
	}
	if s.Mongo.URI != "" {
		client, err := sink.NewMongoConnection(s.Mongo.URI)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		ms, err := sink.NewMongoSink(ctx, client, s.Mongo.Database, s.Mongo.Collection, s.Mongo.BatchSize)
		cancel()
		if err != nil {
			return err
		}
		add(ms)
	}
	if s.Kafka.Brokers != "" {
		ks, err := sink.NewKafkaSink(s.Kafka.Brokers, s.Kafka.Topic, rt.obs)
		if err != nil {
			return err
		}
		add(ks)
	}
	for _, extra := range o.sinks {
		if extra != nil {
			add(extra)
		}
	}
	return nil
}

func (rt *NodeRuntime) sensorDriver(o *runtimeOverrides, m domain.Modality, salt uint64) (ports.SensorDriver, string, error) {
	if d, ok := o.sensors[m]; ok {
		return d, "custom", nil
	}
	kind := rt.cfg.Sensors.Driver(m)
	seed := rt.cfg.Sensors.Seed
	if seed != 0 {
		seed += salt
	}
	if kind != config.DriverSimulated {
		return nil, kind, nil
	}
	switch m {
	case domain.ModalityPosition:
		return sensors.NewSimulatedPosition(rt.self.Latitude, rt.self.Longitude, seed), kind, nil
	case domain.ModalityAcoustic:
		return sensors.NewSimulatedAcoustic(0, seed), kind, nil
	case domain.ModalityVisual:
		return sensors.NewSimulatedVisual(0, seed), kind, nil
	}
	return nil, kind, fmt.Errorf("no simulated driver for %s", m)
}

func (rt *NodeRuntime) ambientDriver(o *runtimeOverrides) (ports.AmbientDriver, error) {
	if o.ambient != nil {
		return o.ambient, nil
	}
	s := rt.cfg.Sensors
	switch s.Ambient {
	case config.DriverSimulated:
		return sensors.NewSimulatedAmbient(0, s.Seed), nil
	case config.DriverAHT20:
		return sensors.NewAHT20Ambient(s.AHT20Address, sensors.NewSimulatedAmbient(0, s.Seed)), nil
	case config.DriverOPCUA:
		st, err := opcua.NewAmbient(s.OPCUA, rt.obs)
		if err != nil {
			return nil, err
		}
		rt.station = st
		return st, nil
	default:
		return nil, nil
	}
}

// Start launches every task and returns immediately; call Run to block on a
// context instead.
func (rt *NodeRuntime) Start(ctx context.Context) error {
	if rt == nil {
		return fmt.Errorf("node runtime is nil")
	}
	if rt.cancel != nil {
		return fmt.Errorf("node runtime already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	rt.cancel = cancel
	rt.started = time.Now()

	if rt.station != nil {
		if err := rt.station.Start(ctx); err != nil {
			rt.obs.LogError("opcua_start_failed", err)
		}
	}
	if rt.ambient != nil {
		if err := rt.ambient.Sample(ctx); err != nil {
			rt.obs.LogError("initial_ambient_sample_failed", err)
		}
	}

	if err := rt.radio.StartReceive(); err != nil {
		rt.obs.LogError("radio_start_receive_failed", err)
	}

	for _, u := range rt.sensors {
		rt.spawn(ctx, "sensor_"+u.task.Modality().String(), u.task.Run)
	}
	rt.spawn(ctx, "uplink", rt.uplink.Run)
	rt.spawn(ctx, "receive", rt.receiver.Run)
	if rt.writer != nil {
		rt.spawn(ctx, "journal", rt.writer.Run)
	}
	rt.scheduler.Start(ctx)

	if rt.http != nil {
		go func() {
			if err := rt.http.Start(ctx); err != nil {
				rt.obs.LogError("http_server_exited", err)
			}
		}()
	}

	rt.gaugeStopCh = make(chan struct{})
	go rt.recordResourceGauges(rt.gaugeStopCh, time.Second)

	rt.obs.LogInfo("node_started",
		ports.Field{Key: "id", Value: rt.self.ID.String()},
		ports.Field{Key: "name", Value: rt.self.Name},
		ports.Field{Key: "radio", Value: rt.radioTag},
		ports.Field{Key: "sensors", Value: len(rt.sensors)})
	return nil
}

func (rt *NodeRuntime) spawn(ctx context.Context, name string, fn func(context.Context) error) {
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			rt.obs.LogError("task_exited", err, ports.Field{Key: "task", Value: name})
		}
	}()
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (rt *NodeRuntime) Run(ctx context.Context) error {
	if err := rt.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return rt.Shutdown(shutdownCtx)
}

// Shutdown stops every task, then closes the radio, sinks, journal and DB connection.
func (rt *NodeRuntime) Shutdown(ctx context.Context) error {
	var errs []error

	if rt.gaugeStopCh != nil {
		close(rt.gaugeStopCh)
		rt.gaugeStopCh = nil
	}
	if rt.cancel != nil {
		rt.cancel()
	}
	rt.scheduler.Stop()

	done := make(chan struct{})
	go func() {
		rt.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("tasks still running: %w", ctx.Err()))
	}

	if err := rt.closeResources(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (rt *NodeRuntime) closeResources() error {
	var errs []error
	if rt.station != nil {
		if err := rt.station.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if c, ok := rt.radio.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.sinks != nil {
		if err := rt.sinks.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.journal != nil {
		if err := rt.journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c, ok := rt.bus.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (rt *NodeRuntime) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rt.obs.SetGauge(ports.MetricUptimeSeconds, time.Since(rt.started).Seconds())
			rt.obs.SetGauge(ports.MetricGoroutines, float64(runtime.NumGoroutine()))
			rt.obs.SetGauge(ports.MetricDirectoryNodes, float64(rt.dir.Len()))
			if rt.journal != nil {
				rt.obs.SetGauge(ports.MetricJournalSizeBytes, float64(rt.journal.Stats().SizeBytes))
			}
			for _, l := range rt.shared.Lanes() {
				rt.obs.SetGauge(ports.ModalityMetric(l.Modality, ports.SuffixQueueLength), float64(l.Uplink.Len()))
			}
		}
	}
}

// Identity returns the identity this node announces.
func (rt *NodeRuntime) Identity() Identity { return rt.self }

// Nodes returns a snapshot of the node directory.
func (rt *NodeRuntime) Nodes() []Node { return rt.dir.Snapshot() }

// RequestAnnounce queues a self-announcement on the uplink.
func (rt *NodeRuntime) RequestAnnounce() bool { return rt.uplink.RequestAnnounce() }

// RequestTelemetry queues a telemetry broadcast on the uplink.
func (rt *NodeRuntime) RequestTelemetry() bool { return rt.uplink.RequestTelemetry() }

// SampleAmbient takes an ambient reading now instead of waiting for the schedule.
func (rt *NodeRuntime) SampleAmbient(ctx context.Context) error {
	if rt.ambient == nil {
		return fmt.Errorf("no ambient driver configured")
	}
	return rt.ambient.Sample(ctx)
}

// Status assembles the overview served by the status API.
func (rt *NodeRuntime) Status() Status {
	st := httpapi.Status{
		Node:      rt.self,
		Radio:     rt.radioTag,
		Uplink:    rt.uplink.Stats(),
		Receive:   rt.receiver.Stats(),
		Sensors:   make(map[string]httpapi.SensorStatus, len(rt.sensors)),
		Directory: httpapi.DirectoryStatus{Nodes: rt.dir.Len(), Capacity: rt.dir.Cap()},
	}
	if !rt.started.IsZero() {
		st.UptimeSeconds = time.Since(rt.started).Seconds()
	}
	for _, u := range rt.sensors {
		m := u.task.Modality()
		lane := rt.shared.Lane(m)
		ss := httpapi.SensorStatus{
			Driver:   u.driver,
			Capacity: lane.Uplink.Cap(),
			Uplink:   lane.Uplink.Len(),
			Stats:    u.task.Stats(),
		}
		if lane.Journal != nil {
			ss.Journal = lane.Journal.Len()
		}
		st.Sensors[m.String()] = ss
	}
	if env, ok := rt.shared.Environment.Snapshot(); ok {
		st.Environment = &env
	}
	if rt.journal != nil {
		js := rt.journal.Stats()
		st.Journal = &js
	}
	return st
}

var _ httpapi.Provider = (*NodeRuntime)(nil)
