package shoreline

import (
	"time"

	base "github.com/dgalue/Baltic-Shoreline-Monitor-V1/pkg/shoreline"
)

// Modalities accepted by Every and Without.
const (
	ModalityPosition = base.ModalityPosition
	ModalityAcoustic = base.ModalityAcoustic
	ModalityVisual   = base.ModalityVisual
	ModalityAmbient  = base.ModalityAmbient
)

// Re-exported errors for convenience.
var (
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import github.com/dgalue/Baltic-Shoreline-Monitor-V1 directly.
type (
	Config              = base.Config
	NodeConfig          = base.NodeConfig
	PolicyConfig        = base.PolicyConfig
	ScheduleConfig      = base.ScheduleConfig
	SensorsConfig       = base.SensorsConfig
	RadioConfig         = base.RadioConfig
	ZMQConfig           = base.ZMQConfig
	OPCUAConfig         = base.OPCUAConfig
	OPCUANodeConfig     = base.OPCUANodeConfig
	DirectoryConfig     = base.DirectoryConfig
	JournalConfig       = base.JournalConfig
	SinksConfig         = base.SinksConfig
	TimescaleConfig     = base.TimescaleConfig
	MongoConfig         = base.MongoConfig
	KafkaConfig         = base.KafkaConfig
	HTTPConfig          = base.HTTPConfig
	Flow                = base.Flow
	FlowOption          = base.FlowOption
	SenseOption         = base.SenseOption
	ReportOption        = base.ReportOption
	Modality            = base.Modality
	NodeRuntime         = base.NodeRuntime
	NodeRuntimeOption   = base.NodeRuntimeOption
	MessageHandler      = base.MessageHandler
	Message             = base.Message
	Node                = base.Node
	NodeID              = base.NodeID
	Identity            = base.Identity
	Status              = base.Status
	SensorDriver        = base.SensorDriver
	AmbientDriver       = base.AmbientDriver
	Bus                 = base.Bus
	Radio               = base.Radio
	TelemetrySink       = base.TelemetrySink
	Journal             = base.Journal
	JournalRecord       = base.JournalRecord
	JournalStats        = base.JournalStats
	JournalEntryID      = base.JournalEntryID
	Observability       = base.Observability
	Field               = base.Field
	EnvironmentalSample = base.EnvironmentalSample
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...NodeRuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

// Sensing steps.
func Sensor(d SensorDriver) SenseOption {
	return base.Sensor(d)
}

func Ambient(d AmbientDriver) SenseOption {
	return base.Ambient(d)
}

func OnBus(b Bus) SenseOption {
	return base.OnBus(b)
}

func Every(m Modality, d time.Duration) SenseOption {
	return base.Every(m, d)
}

func Without(m Modality) SenseOption {
	return base.Without(m)
}

// Reporting steps.
func ToSink(s TelemetrySink) ReportOption {
	return base.ToSink(s)
}

func ToCallback(name string, fn MessageHandler) ReportOption {
	return base.ToCallback(name, fn)
}

func ToJournal(j Journal) ReportOption {
	return base.ToJournal(j)
}

func Observe(obs Observability) ReportOption {
	return base.Observe(obs)
}

// Node runtime and options.
func NewNodeRuntime(cfg *Config, opts ...NodeRuntimeOption) (*NodeRuntime, error) {
	return base.NewNodeRuntime(cfg, opts...)
}

func WithSensor(d SensorDriver) NodeRuntimeOption {
	return base.WithSensor(d)
}

func WithAmbient(d AmbientDriver) NodeRuntimeOption {
	return base.WithAmbient(d)
}

func WithBus(b Bus) NodeRuntimeOption {
	return base.WithBus(b)
}

func WithRadio(r Radio) NodeRuntimeOption {
	return base.WithRadio(r)
}

func WithSink(s TelemetrySink) NodeRuntimeOption {
	return base.WithSink(s)
}

func WithJournal(j Journal) NodeRuntimeOption {
	return base.WithJournal(j)
}

func WithObservability(obs Observability) NodeRuntimeOption {
	return base.WithObservability(obs)
}

func WithIdentity(id Identity) NodeRuntimeOption {
	return base.WithIdentity(id)
}

func WithoutHTTP() NodeRuntimeOption {
	return base.WithoutHTTP()
}

// Sink adapters.
func NewCallbackSink(name string, fn MessageHandler) TelemetrySink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (TelemetrySink, <-chan Message, func()) {
	return base.NewChannelSink(name, buffer)
}
