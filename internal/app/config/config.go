package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/adapters/opcua"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/adapters/radio"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/protocol/mesh"
)

// Driver kinds accepted in the sensors section.
const (
	DriverSimulated = "simulated"
	DriverAHT20     = "aht20"
	DriverOPCUA     = "opcua"
	DriverNone      = "none"
)

// Radio kinds accepted in the radio section.
const (
	RadioLoopback = "loopback"
	RadioZMQ      = "zmq"
)

type Config struct {
	Node      NodeConfig      `yaml:"node"`
	Policy    PolicyConfig    `yaml:"policy"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Sensors   SensorsConfig   `yaml:"sensors"`
	Radio     RadioConfig     `yaml:"radio"`
	Directory DirectoryConfig `yaml:"directory"`
	Journal   JournalConfig   `yaml:"journal"`
	Sinks     SinksConfig     `yaml:"sinks"`
	HTTP      HTTPConfig      `yaml:"http"`

	// Verbose enables info-level log lines.
	Verbose bool `yaml:"verbose"`
}

// NodeConfig describes this node. An empty ID is derived from the hardware address.
type NodeConfig struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	ShortName string  `yaml:"short_name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	HopLimit  uint8   `yaml:"hop_limit"`
	Format    string  `yaml:"format"`
}

type PolicyConfig struct {
	QueueCapacity  map[string]int `yaml:"queue_capacity"`
	SendTimeout    time.Duration  `yaml:"send_timeout"`
	BusTimeout     time.Duration  `yaml:"bus_timeout"`
	StorageTimeout time.Duration  `yaml:"storage_timeout"`
	IdleSleep      time.Duration  `yaml:"idle_sleep"`
}

// ScheduleConfig holds cron specs for the periodic jobs and polling
// intervals for the sensor and receive loops.
type ScheduleConfig struct {
	Announce  string        `yaml:"announce"`
	Telemetry string        `yaml:"telemetry"`
	Ambient   string        `yaml:"ambient"`
	Position  time.Duration `yaml:"position"`
	Acoustic  time.Duration `yaml:"acoustic"`
	Visual    time.Duration `yaml:"visual"`
	Receive   time.Duration `yaml:"receive"`
}

type SensorsConfig struct {
	Position string `yaml:"position"`
	Acoustic string `yaml:"acoustic"`
	Visual   string `yaml:"visual"`
	Ambient  string `yaml:"ambient"`

	// Seed for the simulated drivers; zero picks a random seed.
	Seed         uint64       `yaml:"seed"`
	Bus          string       `yaml:"bus"`
	AHT20Address uint16       `yaml:"aht20_address"`
	OPCUA        opcua.Config `yaml:"opcua"`
}

type RadioConfig struct {
	Kind string          `yaml:"kind"`
	ZMQ  radio.ZMQConfig `yaml:"zmq"`
}

type DirectoryConfig struct {
	Capacity int `yaml:"capacity"`
}

type JournalConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Dir             string `yaml:"dir"`
	MaxSegmentBytes int64  `yaml:"max_segment_bytes"`
	MaxSegments     int    `yaml:"max_segments"`
}

type SinksConfig struct {
	Log       bool            `yaml:"log"`
	Timescale TimescaleConfig `yaml:"timescale"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Kafka     KafkaConfig     `yaml:"kafka"`

	// Buffer and Timeout bound each sink's dispatch queue and single delivery.
	Buffer  int           `yaml:"buffer"`
	Timeout time.Duration `yaml:"timeout"`
}

type TimescaleConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
	BatchSize  int    `yaml:"batch_size"`
}

type KafkaConfig struct {
	Brokers string `yaml:"brokers"`
	Topic   string `yaml:"topic"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fills unset fields with defaults and checks the result. It is for
// configurations assembled or edited in code after Load.
func (c *Config) Validate() error {
	c.applyDefaults()
	return c.validate()
}

// Default returns a configuration for a fully simulated node.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Node.HopLimit == 0 {
		c.Node.HopLimit = mesh.DefaultHopLimit
	}
	if c.Node.Format == "" {
		c.Node.Format = string(mesh.FormatJSON)
	}

	if c.Policy.QueueCapacity == nil {
		c.Policy.QueueCapacity = map[string]int{}
	}
	for name, n := range map[string]int{"position": 10, "acoustic": 20, "visual": 5} {
		if _, ok := c.Policy.QueueCapacity[name]; !ok {
			c.Policy.QueueCapacity[name] = n
		}
	}
	if c.Policy.SendTimeout == 0 {
		c.Policy.SendTimeout = 50 * time.Millisecond
	}
	if c.Policy.BusTimeout == 0 {
		c.Policy.BusTimeout = 100 * time.Millisecond
	}
	if c.Policy.StorageTimeout == 0 {
		c.Policy.StorageTimeout = 500 * time.Millisecond
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 5 * time.Millisecond
	}

	if c.Schedule.Announce == "" {
		c.Schedule.Announce = "@every 15m"
	}
	if c.Schedule.Telemetry == "" {
		c.Schedule.Telemetry = "@every 5m"
	}
	if c.Schedule.Ambient == "" {
		c.Schedule.Ambient = "@every 10s"
	}
	if c.Schedule.Position == 0 {
		c.Schedule.Position = time.Second
	}
	if c.Schedule.Acoustic == 0 {
		c.Schedule.Acoustic = 100 * time.Millisecond
	}
	if c.Schedule.Visual == 0 {
		c.Schedule.Visual = 500 * time.Millisecond
	}
	if c.Schedule.Receive == 0 {
		c.Schedule.Receive = 50 * time.Millisecond
	}

	for _, d := range []*string{&c.Sensors.Position, &c.Sensors.Acoustic, &c.Sensors.Visual, &c.Sensors.Ambient} {
		if *d == "" {
			*d = DriverSimulated
		}
	}
	if c.Sensors.Ambient == DriverOPCUA {
		c.Sensors.OPCUA.ApplyDefaults()
	}

	if c.Radio.Kind == "" {
		c.Radio.Kind = RadioLoopback
	}
	if c.Directory.Capacity == 0 {
		c.Directory.Capacity = 20
	}

	if c.Journal.Dir == "" {
		c.Journal.Dir = "./data/journal"
	}
	if c.Journal.MaxSegmentBytes == 0 {
		c.Journal.MaxSegmentBytes = 4 << 20
	}
	if c.Journal.MaxSegments == 0 {
		c.Journal.MaxSegments = 8
	}

	if c.Sinks.Timescale.Table == "" {
		c.Sinks.Timescale.Table = "shoreline_messages"
	}
	if c.Sinks.Mongo.Database == "" {
		c.Sinks.Mongo.Database = "shoreline"
	}
	if c.Sinks.Mongo.Collection == "" {
		c.Sinks.Mongo.Collection = "messages"
	}
	if c.Sinks.Mongo.BatchSize == 0 {
		c.Sinks.Mongo.BatchSize = 50
	}
	if c.Sinks.Kafka.Topic == "" {
		c.Sinks.Kafka.Topic = "shoreline.messages"
	}
	if c.Sinks.Buffer == 0 {
		c.Sinks.Buffer = 64
	}
	if c.Sinks.Timeout == 0 {
		c.Sinks.Timeout = 2 * time.Second
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":9100"
	}
}

func (c *Config) validate() error {
	if c.Node.ID != "" {
		if _, err := ParseNodeID(c.Node.ID); err != nil {
			return fmt.Errorf("node.id: %w", err)
		}
	}
	switch mesh.Format(c.Node.Format) {
	case mesh.FormatJSON, mesh.FormatKV:
	default:
		return fmt.Errorf("node.format must be %q or %q", mesh.FormatJSON, mesh.FormatKV)
	}
	if err := c.checkAnnouncement(); err != nil {
		return err
	}
	for name, n := range c.Policy.QueueCapacity {
		m, ok := domain.ParseModality(name)
		if !ok || m == domain.ModalityAmbient {
			return fmt.Errorf("policy.queue_capacity: unknown modality %q", name)
		}
		if n <= 0 {
			return fmt.Errorf("policy.queue_capacity.%s must be positive", name)
		}
	}
	for _, s := range []struct{ key, driver string }{
		{"position", c.Sensors.Position},
		{"acoustic", c.Sensors.Acoustic},
		{"visual", c.Sensors.Visual},
	} {
		if s.driver != DriverSimulated && s.driver != DriverNone {
			return fmt.Errorf("sensors.%s: unsupported driver %q", s.key, s.driver)
		}
	}
	switch c.Sensors.Ambient {
	case DriverSimulated, DriverNone:
	case DriverAHT20:
		if c.Sensors.Bus == "" {
			return fmt.Errorf("sensors.bus is required for the aht20 driver")
		}
	case DriverOPCUA:
		if err := c.Sensors.OPCUA.Validate(); err != nil {
			return fmt.Errorf("sensors.opcua: %w", err)
		}
	default:
		return fmt.Errorf("sensors.ambient: unsupported driver %q", c.Sensors.Ambient)
	}
	switch c.Radio.Kind {
	case RadioLoopback:
	case RadioZMQ:
		if c.Radio.ZMQ.Bind == "" {
			return fmt.Errorf("radio.zmq.bind is required")
		}
	default:
		return fmt.Errorf("radio.kind: unsupported %q", c.Radio.Kind)
	}
	if c.Directory.Capacity < 0 {
		return fmt.Errorf("directory.capacity must not be negative")
	}
	if c.Journal.Enabled && c.Journal.Dir == "" {
		return fmt.Errorf("journal.dir is required")
	}
	if c.Sinks.Buffer < 0 || c.Sinks.Timeout < 0 {
		return fmt.Errorf("sinks.buffer and sinks.timeout must not be negative")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	return nil
}

// checkAnnouncement rejects node names that would push the self-announcement
// past one frame. Unset fields take the widest derived default.
func (c *Config) checkAnnouncement() error {
	self := domain.Identity{
		Name:      c.Node.Name,
		ShortName: c.Node.ShortName,
		Latitude:  c.Node.Latitude,
		Longitude: c.Node.Longitude,
	}
	if id, err := ParseNodeID(c.Node.ID); err == nil {
		self.ID = id
	}
	if self.Name == "" {
		self.Name = "Baltic-ffffff"
	}
	if self.ShortName == "" {
		self.ShortName = "BS-fff"
	}
	if self.Latitude == 0 && self.Longitude == 0 {
		self.Latitude, self.Longitude = domain.DefaultLatitude, domain.DefaultLongitude
	}
	if err := mesh.CheckNodeInfoFits(self, c.Node.HopLimit, mesh.Format(c.Node.Format)); err != nil {
		return fmt.Errorf("node.name and node.short_name must fit one announcement frame: %w", err)
	}
	return nil
}

// PortsPolicy converts the policy section into the runtime policy.
func (c *Config) PortsPolicy() ports.Policy {
	pol := ports.Policy{
		QueueCapacity:  make(map[domain.Modality]int, len(c.Policy.QueueCapacity)),
		SendTimeout:    c.Policy.SendTimeout,
		BusTimeout:     c.Policy.BusTimeout,
		StorageTimeout: c.Policy.StorageTimeout,
		IdleSleep:      c.Policy.IdleSleep,
		JournalEnabled: c.Journal.Enabled,
	}
	for name, n := range c.Policy.QueueCapacity {
		if m, ok := domain.ParseModality(name); ok {
			pol.QueueCapacity[m] = n
		}
	}
	return pol
}

// Interval returns the polling interval configured for an event modality.
func (s ScheduleConfig) Interval(m domain.Modality) time.Duration {
	switch m {
	case domain.ModalityPosition:
		return s.Position
	case domain.ModalityAcoustic:
		return s.Acoustic
	case domain.ModalityVisual:
		return s.Visual
	default:
		return 0
	}
}

// Driver returns the driver kind configured for a modality.
func (s SensorsConfig) Driver(m domain.Modality) string {
	switch m {
	case domain.ModalityPosition:
		return s.Position
	case domain.ModalityAcoustic:
		return s.Acoustic
	case domain.ModalityVisual:
		return s.Visual
	case domain.ModalityAmbient:
		return s.Ambient
	default:
		return DriverNone
	}
}

// ParseNodeID accepts "!abc123", "0xabc123" or "abc123".
func ParseNodeID(s string) (domain.NodeID, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "!"), "0x")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid node id %q", s)
	}
	if domain.NodeID(v) == domain.BroadcastID || v == 0 {
		return 0, fmt.Errorf("reserved node id %q", s)
	}
	return domain.NodeID(v), nil
}
